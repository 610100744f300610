package lox

import "fmt"

// allocate charges the accounting for a new object and links it into
// the object list.  The collection check runs before the object is
// linked, so an in-flight allocation is never swept; callers are
// responsible for rooting the result before allocating again.
func (vm *VM) allocate(o object, size int) {
	if vm.cfg.StressGC {
		vm.collectGarbage()
	} else if vm.bytesAllocated+size > vm.nextGC {
		vm.collectGarbage()
	}

	h := o.header()
	h.size = size
	h.next = vm.objects
	vm.objects = o
	vm.bytesAllocated += size
}

// freeObject credits the object's bytes back and drops its outgoing
// references so the host runtime can reclaim the payload.
func (vm *VM) freeObject(o object) {
	h := o.header()
	vm.bytesAllocated -= h.size
	h.next = nil

	switch o := o.(type) {
	case *functionObj:
		o.chunk = chunk{}
		o.name = nil
	case *closureObj:
		o.upvalues = nil
		o.function = nil
	case *upvalueObj:
		o.next = nil
		o.closed = nilValue
	case *classObj:
		o.methods = table{}
	case *instanceObj:
		o.fields = table{}
	case *boundMethodObj:
		o.receiver = nilValue
		o.method = nil
	}
}

// collectGarbage runs one full mark-sweep cycle and rescales the
// trigger threshold from the surviving bytes.
func (vm *VM) collectGarbage() {
	logGC := vm.cfg.LogGC
	before := vm.bytesAllocated
	if logGC {
		fmt.Fprintln(vm.stderr, "-- gc begin")
	}

	vm.markRoots()
	vm.traceReferences()
	// Interned strings are weak keys: drop the ones nothing marked
	// before the sweep frees them.
	vm.strings.removeWhite()
	vm.sweep()

	vm.nextGC = vm.bytesAllocated * vm.cfg.GCGrowthFactor

	if logGC {
		fmt.Fprintln(vm.stderr, "-- gc end")
		fmt.Fprintf(vm.stderr, "   collected %d bytes (from %d to %d) next at %d\n",
			before-vm.bytesAllocated, before, vm.bytesAllocated, vm.nextGC)
	}
}

func (vm *VM) markRoots() {
	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}

	for i := 0; i < vm.frameCount; i++ {
		vm.markObject(vm.frames[i].closure)
	}

	for upvalue := vm.openUpvalues; upvalue != nil; upvalue = upvalue.next {
		vm.markObject(upvalue)
	}

	vm.markTable(&vm.globals)
	vm.markCompilerRoots()
}

// markCompilerRoots walks the compiler stack of an in-flight compile,
// innermost outward, so half-built functions survive collections
// triggered during compilation.
func (vm *VM) markCompilerRoots() {
	if vm.parser == nil {
		return
	}
	for c := vm.parser.compiler; c != nil; c = c.enclosing {
		vm.markObject(c.function)
	}
}

func (vm *VM) markValue(value Value) {
	if value.isObj() {
		vm.markObject(value.asObj())
	}
}

// markObject grays an object: the mark is set before it is enqueued,
// so each object is blackened at most once.  The gray worklist is a
// host slice, outside the managed heap.
func (vm *VM) markObject(o object) {
	if o == nil || isNilObject(o) {
		return
	}
	h := o.header()
	if h.marked {
		return
	}
	h.marked = true
	vm.grayStack = append(vm.grayStack, o)
}

func (vm *VM) markTable(t *table) {
	for i := range t.entries {
		e := &t.entries[i]
		if e.key != nil {
			vm.markObject(e.key)
		}
		vm.markValue(e.value)
	}
}

func (vm *VM) traceReferences() {
	for len(vm.grayStack) > 0 {
		o := vm.grayStack[len(vm.grayStack)-1]
		vm.grayStack = vm.grayStack[:len(vm.grayStack)-1]
		vm.blackenObject(o)
	}
}

// blackenObject marks everything an object references directly.
// Strings and natives have no outgoing references.
func (vm *VM) blackenObject(o object) {
	switch o := o.(type) {
	case *functionObj:
		vm.markObject(o.name)
		for _, constant := range o.chunk.constants {
			vm.markValue(constant)
		}
	case *closureObj:
		vm.markObject(o.function)
		for _, upvalue := range o.upvalues {
			vm.markObject(upvalue)
		}
	case *upvalueObj:
		vm.markValue(o.closed)
	case *classObj:
		vm.markObject(o.name)
		vm.markTable(&o.methods)
	case *instanceObj:
		vm.markObject(o.class)
		vm.markTable(&o.fields)
	case *boundMethodObj:
		vm.markValue(o.receiver)
		vm.markObject(o.method)
	}
}

// sweep unlinks every unmarked object from the list and clears the
// mark on survivors for the next cycle.
func (vm *VM) sweep() {
	var previous object
	o := vm.objects
	for o != nil {
		h := o.header()
		if h.marked {
			h.marked = false
			previous = o
			o = h.next
			continue
		}

		unreached := o
		o = h.next
		if previous != nil {
			previous.header().next = o
		} else {
			vm.objects = o
		}
		vm.freeObject(unreached)
	}
}

// isNilObject guards against typed-nil interfaces reaching the mark
// phase through nil *stringObj fields and the like.
func isNilObject(o object) bool {
	switch o := o.(type) {
	case *stringObj:
		return o == nil
	case *functionObj:
		return o == nil
	case *nativeObj:
		return o == nil
	case *closureObj:
		return o == nil
	case *upvalueObj:
		return o == nil
	case *classObj:
		return o == nil
	case *instanceObj:
		return o == nil
	case *boundMethodObj:
		return o == nil
	}
	return o == nil
}
