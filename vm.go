package lox

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	framesMax = 64
	stackMax  = framesMax * 256
)

// callFrame is the per-invocation state of an executing closure: its
// instruction pointer and the base of its window onto the value
// stack (the slot holding the callee or receiver).
type callFrame struct {
	closure *closureObj
	ip      int
	slots   int
}

// VM is the bytecode interpreter.  It owns the value stack, the call
// frames, the global and intern tables, the open-upvalue list, and
// the managed-object list the collector sweeps.  A VM is reusable:
// globals persist across Interpret calls.
type VM struct {
	cfg *Config

	stack      [stackMax]Value
	stackTop   int
	frames     [framesMax]callFrame
	frameCount int

	globals      table
	strings      table
	openUpvalues *upvalueObj

	objects        object
	bytesAllocated int
	nextGC         int
	grayStack      []object

	// parser is non-nil while a compile is in flight so the root
	// scan can reach the functions being built
	parser *parser

	// pendingError carries the RuntimeError produced inside a helper
	// that reports failure with a bool
	pendingError *RuntimeError

	stdout io.Writer
	stderr io.Writer

	startTime time.Time
}

// NewVM creates a virtual machine configured by cfg (nil means
// defaults).  The clock native is registered here.
func NewVM(cfg *Config) *VM {
	if cfg == nil {
		cfg = NewConfig()
	}
	vm := &VM{
		cfg:       cfg,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		startTime: time.Now(),
	}
	vm.nextGC = cfg.InitialGCThreshold
	vm.defineNative("clock", func(argCount int, args []Value) Value {
		return numberValue(time.Since(vm.startTime).Seconds())
	})
	return vm
}

// SetStdout redirects the print statement's output.
func (vm *VM) SetStdout(w io.Writer) { vm.stdout = w }

// SetStderr redirects diagnostics: compile errors, runtime
// backtraces, GC logging, and disassembly.
func (vm *VM) SetStderr(w io.Writer) { vm.stderr = w }

// Interpret compiles and runs source.  It returns nil, a
// *CompileError, or a *RuntimeError.
func (vm *VM) Interpret(source string) error {
	function, err := vm.compile(source)
	if err != nil {
		return err
	}

	vm.push(objValue(function))
	closure := vm.newClosure(function)
	vm.pop()
	vm.push(objValue(closure))
	vm.call(closure, 0)

	return vm.run()
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

func (vm *VM) push(value Value) {
	vm.stack[vm.stackTop] = value
	vm.stackTop++
}

func (vm *VM) pop() Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) Value {
	return vm.stack[vm.stackTop-1-distance]
}

// runtimeError reports a runtime error with a backtrace, resets the
// stacks, and returns the error that aborts the dispatch loop.
func (vm *VM) runtimeError(format string, args ...interface{}) *RuntimeError {
	rte := &RuntimeError{Message: fmt.Sprintf(format, args...)}

	for i := vm.frameCount - 1; i >= 0; i-- {
		frame := &vm.frames[i]
		function := frame.closure.function
		instruction := frame.ip - 1
		name := "script"
		if function.name != nil {
			name = function.name.chars + "()"
		}
		rte.Trace = append(rte.Trace,
			fmt.Sprintf("[line %d] in %s", function.chunk.lines[instruction], name))
	}

	fmt.Fprintln(vm.stderr, rte.Message)
	for _, line := range rte.Trace {
		fmt.Fprintln(vm.stderr, line)
	}

	vm.resetStack()
	return rte
}

func (vm *VM) defineNative(name string, fn nativeFn) {
	// Both objects stay on the stack until the table owns them
	vm.push(objValue(vm.copyString(name)))
	vm.push(objValue(vm.newNative(fn)))
	vm.globals.set(vm.stack[0].asObj().(*stringObj), vm.stack[1])
	vm.pop()
	vm.pop()
}

func (vm *VM) call(closure *closureObj, argCount int) bool {
	if argCount != closure.function.arity {
		vm.pendingError = vm.runtimeError("Expected %d arguments but got %d.",
			closure.function.arity, argCount)
		return false
	}
	if vm.frameCount == framesMax {
		vm.pendingError = vm.runtimeError("Stack overflow.")
		return false
	}

	frame := &vm.frames[vm.frameCount]
	vm.frameCount++
	frame.closure = closure
	frame.ip = 0
	frame.slots = vm.stackTop - argCount - 1
	return true
}

func (vm *VM) callValue(callee Value, argCount int) bool {
	if callee.isObj() {
		switch o := callee.asObj().(type) {
		case *boundMethodObj:
			// the receiver takes over the callee's slot 0
			vm.stack[vm.stackTop-argCount-1] = o.receiver
			return vm.call(o.method, argCount)
		case *classObj:
			instance := vm.newInstance(o)
			vm.stack[vm.stackTop-argCount-1] = objValue(instance)
			if initializer, ok := o.methods.get(vm.initString()); ok {
				return vm.call(initializer.asObj().(*closureObj), argCount)
			}
			if argCount != 0 {
				vm.pendingError = vm.runtimeError("Expected 0 arguments but got %d.", argCount)
				return false
			}
			return true
		case *closureObj:
			return vm.call(o, argCount)
		case *nativeObj:
			result := o.fn(argCount, vm.stack[vm.stackTop-argCount:vm.stackTop])
			vm.stackTop -= argCount + 1
			vm.push(result)
			return true
		}
	}
	vm.pendingError = vm.runtimeError("Can only call functions and classes.")
	return false
}

func (vm *VM) invokeFromClass(class *classObj, name *stringObj, argCount int) bool {
	method, ok := class.methods.get(name)
	if !ok {
		vm.pendingError = vm.runtimeError("Undefined property '%s'.", name.chars)
		return false
	}
	return vm.call(method.asObj().(*closureObj), argCount)
}

func (vm *VM) invoke(name *stringObj, argCount int) bool {
	receiver := vm.peek(argCount)

	instance, ok := receiver.asObj().(*instanceObj)
	if !ok {
		vm.pendingError = vm.runtimeError("Only instances have methods.")
		return false
	}

	// A field shadowing the method name wins and becomes the callee
	if value, found := instance.fields.get(name); found {
		vm.stack[vm.stackTop-argCount-1] = value
		return vm.callValue(value, argCount)
	}

	return vm.invokeFromClass(instance.class, name, argCount)
}

func (vm *VM) bindMethod(class *classObj, name *stringObj) bool {
	method, ok := class.methods.get(name)
	if !ok {
		vm.pendingError = vm.runtimeError("Undefined property '%s'.", name.chars)
		return false
	}

	bound := vm.newBoundMethod(vm.peek(0), method.asObj().(*closureObj))
	vm.pop()
	vm.push(objValue(bound))
	return true
}

// captureUpvalue returns the open upvalue observing slot, creating it
// if needed.  The open list stays sorted by descending slot so the
// walk can stop early, and no slot ever has two upvalues.
func (vm *VM) captureUpvalue(slot int) *upvalueObj {
	var prev *upvalueObj
	upvalue := vm.openUpvalues
	for upvalue != nil && upvalue.slot > slot {
		prev = upvalue
		upvalue = upvalue.next
	}

	if upvalue != nil && upvalue.slot == slot {
		return upvalue
	}

	created := vm.newUpvalue(slot)
	created.next = upvalue
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.next = created
	}
	return created
}

// closeUpvalues closes every open upvalue at or above last, moving
// the stack slot's value into the upvalue itself.
func (vm *VM) closeUpvalues(last int) {
	for vm.openUpvalues != nil && vm.openUpvalues.slot >= last {
		upvalue := vm.openUpvalues
		upvalue.closed = vm.stack[upvalue.slot]
		upvalue.slot = -1
		vm.openUpvalues = upvalue.next
		upvalue.next = nil
	}
}

func (vm *VM) upvalueGet(u *upvalueObj) Value {
	if u.slot >= 0 {
		return vm.stack[u.slot]
	}
	return u.closed
}

func (vm *VM) upvalueSet(u *upvalueObj, value Value) {
	if u.slot >= 0 {
		vm.stack[u.slot] = value
	} else {
		u.closed = value
	}
}

func (vm *VM) defineMethod(name *stringObj) {
	method := vm.peek(0)
	class := vm.peek(1).asObj().(*classObj)
	class.methods.set(name, method)
	vm.pop()
}

// concatenate interns the joined string.  Both operands stay on the
// stack until the result exists so a collection triggered by the
// allocation still sees them as roots.
func (vm *VM) concatenate() {
	b := vm.peek(0).asObj().(*stringObj)
	a := vm.peek(1).asObj().(*stringObj)
	result := vm.takeString(a.chars + b.chars)
	vm.pop()
	vm.pop()
	vm.push(objValue(result))
}

func (vm *VM) initString() *stringObj {
	return vm.copyString("init")
}

// run is the dispatch loop.
func (vm *VM) run() error {
	frame := &vm.frames[vm.frameCount-1]
	trace := vm.cfg.TraceExecution

	readByte := func() byte {
		b := frame.closure.function.chunk.code[frame.ip]
		frame.ip++
		return b
	}
	readShort := func() int {
		frame.ip += 2
		code := frame.closure.function.chunk.code
		return int(code[frame.ip-2])<<8 | int(code[frame.ip-1])
	}
	readConstant := func() Value {
		return frame.closure.function.chunk.constants[readByte()]
	}
	readString := func() *stringObj {
		return readConstant().asObj().(*stringObj)
	}

	for {
		if trace {
			fmt.Fprint(vm.stderr, "          ")
			for i := 0; i < vm.stackTop; i++ {
				fmt.Fprintf(vm.stderr, "[ %s ]", vm.stack[i])
			}
			fmt.Fprintln(vm.stderr)
			disassembleInstruction(vm.stderr, &frame.closure.function.chunk, frame.ip)
		}

		switch instruction := readByte(); instruction {
		case opConstant:
			vm.push(readConstant())
		case opNil:
			vm.push(nilValue)
		case opTrue:
			vm.push(boolValue(true))
		case opFalse:
			vm.push(boolValue(false))
		case opPop:
			vm.pop()

		case opGetLocal:
			slot := readByte()
			vm.push(vm.stack[frame.slots+int(slot)])
		case opSetLocal:
			slot := readByte()
			vm.stack[frame.slots+int(slot)] = vm.peek(0)

		case opGetGlobal:
			name := readString()
			value, ok := vm.globals.get(name)
			if !ok {
				return vm.runtimeError("Undefined variable '%s'.", name.chars)
			}
			vm.push(value)
		case opDefineGlobal:
			name := readString()
			// the value is popped only after the table owns it, so
			// a collection during the resize still sees it rooted
			vm.globals.set(name, vm.peek(0))
			vm.pop()
		case opSetGlobal:
			name := readString()
			if vm.globals.set(name, vm.peek(0)) {
				// assignment must not create the binding
				vm.globals.delete(name)
				return vm.runtimeError("Undefined variable '%s'.", name.chars)
			}

		case opGetUpvalue:
			slot := readByte()
			vm.push(vm.upvalueGet(frame.closure.upvalues[slot]))
		case opSetUpvalue:
			slot := readByte()
			vm.upvalueSet(frame.closure.upvalues[slot], vm.peek(0))

		case opGetProperty:
			instance, ok := vm.peek(0).asObj().(*instanceObj)
			if !ok {
				return vm.runtimeError("Only instances have properties.")
			}
			name := readString()

			if value, found := instance.fields.get(name); found {
				vm.pop() // the instance
				vm.push(value)
				break
			}
			if !vm.bindMethod(instance.class, name) {
				return vm.pendingError
			}
		case opSetProperty:
			instance, ok := vm.peek(1).asObj().(*instanceObj)
			if !ok {
				return vm.runtimeError("Only instances have fields.")
			}
			instance.fields.set(readString(), vm.peek(0))
			value := vm.pop()
			vm.pop() // the instance
			vm.push(value)
		case opGetSuper:
			name := readString()
			superclass := vm.pop().asObj().(*classObj)
			if !vm.bindMethod(superclass, name) {
				return vm.pendingError
			}

		case opEqual:
			b := vm.pop()
			a := vm.pop()
			vm.push(boolValue(valuesEqual(a, b)))
		case opGreater:
			if !vm.peek(0).isNumber() || !vm.peek(1).isNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			b := vm.pop().asNumber()
			a := vm.pop().asNumber()
			vm.push(boolValue(a > b))
		case opLess:
			if !vm.peek(0).isNumber() || !vm.peek(1).isNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			b := vm.pop().asNumber()
			a := vm.pop().asNumber()
			vm.push(boolValue(a < b))
		case opAdd:
			switch {
			case vm.peek(0).isString() && vm.peek(1).isString():
				vm.concatenate()
			case vm.peek(0).isNumber() && vm.peek(1).isNumber():
				b := vm.pop().asNumber()
				a := vm.pop().asNumber()
				vm.push(numberValue(a + b))
			default:
				return vm.runtimeError("Operands must be two numbers or two strings.")
			}
		case opSubtract:
			if !vm.peek(0).isNumber() || !vm.peek(1).isNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			b := vm.pop().asNumber()
			a := vm.pop().asNumber()
			vm.push(numberValue(a - b))
		case opMultiply:
			if !vm.peek(0).isNumber() || !vm.peek(1).isNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			b := vm.pop().asNumber()
			a := vm.pop().asNumber()
			vm.push(numberValue(a * b))
		case opDivide:
			if !vm.peek(0).isNumber() || !vm.peek(1).isNumber() {
				return vm.runtimeError("Operands must be numbers.")
			}
			b := vm.pop().asNumber()
			a := vm.pop().asNumber()
			vm.push(numberValue(a / b))
		case opNot:
			vm.push(boolValue(vm.pop().isFalsey()))
		case opNegate:
			if !vm.peek(0).isNumber() {
				return vm.runtimeError("Operand must be a number.")
			}
			vm.push(numberValue(-vm.pop().asNumber()))

		case opPrint:
			fmt.Fprintln(vm.stdout, vm.pop())

		case opJump:
			offset := readShort()
			frame.ip += offset
		case opJumpIfFalse:
			offset := readShort()
			if vm.peek(0).isFalsey() {
				frame.ip += offset
			}
		case opLoop:
			offset := readShort()
			frame.ip -= offset

		case opCall:
			argCount := int(readByte())
			if !vm.callValue(vm.peek(argCount), argCount) {
				return vm.pendingError
			}
			frame = &vm.frames[vm.frameCount-1]
		case opInvoke:
			name := readString()
			argCount := int(readByte())
			if !vm.invoke(name, argCount) {
				return vm.pendingError
			}
			frame = &vm.frames[vm.frameCount-1]
		case opSuperInvoke:
			name := readString()
			argCount := int(readByte())
			superclass := vm.pop().asObj().(*classObj)
			if !vm.invokeFromClass(superclass, name, argCount) {
				return vm.pendingError
			}
			frame = &vm.frames[vm.frameCount-1]

		case opClosure:
			function := readConstant().asObj().(*functionObj)
			closure := vm.newClosure(function)
			vm.push(objValue(closure))
			for i := range closure.upvalues {
				isLocal := readByte()
				index := readByte()
				if isLocal == 1 {
					closure.upvalues[i] = vm.captureUpvalue(frame.slots + int(index))
				} else {
					closure.upvalues[i] = frame.closure.upvalues[index]
				}
			}
		case opCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case opReturn:
			result := vm.pop()
			vm.closeUpvalues(frame.slots)
			vm.frameCount--

			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}

			vm.stackTop = frame.slots
			vm.push(result)
			frame = &vm.frames[vm.frameCount-1]

		case opClass:
			vm.push(objValue(vm.newClass(readString())))
		case opInherit:
			superclass, ok := vm.peek(1).asObj().(*classObj)
			if !ok {
				return vm.runtimeError("Superclass must be a class.")
			}
			subclass := vm.peek(0).asObj().(*classObj)
			superclass.methods.addAll(&subclass.methods)
			vm.pop() // the subclass
		case opMethod:
			vm.defineMethod(readString())

		default:
			return vm.runtimeError("Unknown opcode %d.", instruction)
		}
	}
}
