package lox

import (
	"fmt"
	"io"
)

// disassembleChunk dumps every instruction in the chunk under a
// header, for the PrintCode knob and the CLI's -print-code.
func disassembleChunk(w io.Writer, c *chunk, name string) {
	fmt.Fprintf(w, "== %s ==\n", name)
	for offset := 0; offset < len(c.code); {
		offset = disassembleInstruction(w, c, offset)
	}
}

// disassembleInstruction renders the instruction at offset and
// returns the offset of the next one.
func disassembleInstruction(w io.Writer, c *chunk, offset int) int {
	fmt.Fprintf(w, "%04d ", offset)
	if offset > 0 && c.lines[offset] == c.lines[offset-1] {
		fmt.Fprintf(w, "   | ")
	} else {
		fmt.Fprintf(w, "%4d ", c.lines[offset])
	}

	instruction := c.code[offset]
	name, ok := opNames[instruction]
	if !ok {
		fmt.Fprintf(w, "Unknown opcode %d\n", instruction)
		return offset + 1
	}

	switch instruction {
	case opConstant, opGetGlobal, opDefineGlobal, opSetGlobal,
		opGetProperty, opSetProperty, opGetSuper, opClass, opMethod:
		return constantInstruction(w, name, c, offset)
	case opGetLocal, opSetLocal, opGetUpvalue, opSetUpvalue, opCall:
		return byteInstruction(w, name, c, offset)
	case opJump, opJumpIfFalse:
		return jumpInstruction(w, name, 1, c, offset)
	case opLoop:
		return jumpInstruction(w, name, -1, c, offset)
	case opInvoke, opSuperInvoke:
		return invokeInstruction(w, name, c, offset)
	case opClosure:
		return closureInstruction(w, name, c, offset)
	default:
		return simpleInstruction(w, name, offset)
	}
}

func simpleInstruction(w io.Writer, name string, offset int) int {
	fmt.Fprintf(w, "%s\n", name)
	return offset + 1
}

func constantInstruction(w io.Writer, name string, c *chunk, offset int) int {
	constant := c.code[offset+1]
	fmt.Fprintf(w, "%-16s %4d '%s'\n", name, constant, c.constants[constant])
	return offset + 2
}

func byteInstruction(w io.Writer, name string, c *chunk, offset int) int {
	slot := c.code[offset+1]
	fmt.Fprintf(w, "%-16s %4d\n", name, slot)
	return offset + 2
}

func jumpInstruction(w io.Writer, name string, sign int, c *chunk, offset int) int {
	jump := int(c.code[offset+1])<<8 | int(c.code[offset+2])
	fmt.Fprintf(w, "%-16s %4d -> %d\n", name, offset, offset+3+sign*jump)
	return offset + 3
}

func invokeInstruction(w io.Writer, name string, c *chunk, offset int) int {
	constant := c.code[offset+1]
	argCount := c.code[offset+2]
	fmt.Fprintf(w, "%-16s (%d args) %4d '%s'\n", name, argCount, constant, c.constants[constant])
	return offset + 3
}

func closureInstruction(w io.Writer, name string, c *chunk, offset int) int {
	offset++
	constant := c.code[offset]
	offset++
	fmt.Fprintf(w, "%-16s %4d %s\n", name, constant, c.constants[constant])

	function := c.constants[constant].asObj().(*functionObj)
	for i := 0; i < function.upvalueCount; i++ {
		isLocal := c.code[offset]
		index := c.code[offset+1]
		offset += 2
		kind := "upvalue"
		if isLocal == 1 {
			kind = "local"
		}
		fmt.Fprintf(w, "%04d      |                     %s %d\n", offset-2, kind, index)
	}
	return offset
}
