package lox

// NOTE: changing the order of these variants will break compiled
// chunks that are disassembled against a newer opcode table.
const (
	opConstant byte = iota
	opNil
	opTrue
	opFalse
	opPop
	opGetLocal
	opSetLocal
	opGetGlobal
	opDefineGlobal
	opSetGlobal
	opGetUpvalue
	opSetUpvalue
	opGetProperty
	opSetProperty
	opGetSuper
	opEqual
	opGreater
	opLess
	opAdd
	opSubtract
	opMultiply
	opDivide
	opNot
	opNegate
	opPrint
	opJump
	opJumpIfFalse
	opLoop
	opCall
	opInvoke
	opSuperInvoke
	opClosure
	opCloseUpvalue
	opReturn
	opClass
	opInherit
	opMethod
)

var opNames = map[byte]string{
	opConstant:     "constant",
	opNil:          "nil",
	opTrue:         "true",
	opFalse:        "false",
	opPop:          "pop",
	opGetLocal:     "get_local",
	opSetLocal:     "set_local",
	opGetGlobal:    "get_global",
	opDefineGlobal: "define_global",
	opSetGlobal:    "set_global",
	opGetUpvalue:   "get_upvalue",
	opSetUpvalue:   "set_upvalue",
	opGetProperty:  "get_property",
	opSetProperty:  "set_property",
	opGetSuper:     "get_super",
	opEqual:        "equal",
	opGreater:      "greater",
	opLess:         "less",
	opAdd:          "add",
	opSubtract:     "subtract",
	opMultiply:     "multiply",
	opDivide:       "divide",
	opNot:          "not",
	opNegate:       "negate",
	opPrint:        "print",
	opJump:         "jump",
	opJumpIfFalse:  "jump_if_false",
	opLoop:         "loop",
	opCall:         "call",
	opInvoke:       "invoke",
	opSuperInvoke:  "super_invoke",
	opClosure:      "closure",
	opCloseUpvalue: "close_upvalue",
	opReturn:       "return",
	opClass:        "class",
	opInherit:      "inherit",
	opMethod:       "method",
}

// chunk is a block of bytecode with a parallel source-line array (one
// line per byte) and the constant pool its instructions index into.
type chunk struct {
	code      []byte
	lines     []int
	constants []Value
}

func (c *chunk) write(b byte, line int) {
	c.code = append(c.code, b)
	c.lines = append(c.lines, line)
}

// addConstant appends value to the pool and returns its index.  No
// deduplication happens here; writing the same number twice yields
// two entries.
func (c *chunk) addConstant(value Value) int {
	c.constants = append(c.constants, value)
	return len(c.constants) - 1
}
