package lox

import "fmt"

type valueKind int

const (
	valNil valueKind = iota
	valBool
	valNumber
	valObj
)

// Value is the tagged representation of every datum the interpreter
// manipulates: nil, booleans, IEEE-754 doubles, and references to
// heap objects.  Object payloads live behind the object interface so
// the collector can walk them through a single header.
type Value struct {
	kind    valueKind
	boolean bool
	number  float64
	obj     object
}

var nilValue = Value{kind: valNil}

func boolValue(b bool) Value      { return Value{kind: valBool, boolean: b} }
func numberValue(n float64) Value { return Value{kind: valNumber, number: n} }
func objValue(o object) Value     { return Value{kind: valObj, obj: o} }

func (v Value) isNil() bool    { return v.kind == valNil }
func (v Value) isBool() bool   { return v.kind == valBool }
func (v Value) isNumber() bool { return v.kind == valNumber }
func (v Value) isObj() bool    { return v.kind == valObj }

func (v Value) isString() bool {
	_, ok := v.obj.(*stringObj)
	return ok
}

func (v Value) asBool() bool      { return v.boolean }
func (v Value) asNumber() float64 { return v.number }
func (v Value) asObj() object     { return v.obj }

// isFalsey implements the language's truthiness rule: nil and false
// are falsey, everything else is truthy.
func (v Value) isFalsey() bool {
	return v.isNil() || (v.isBool() && !v.boolean)
}

// valuesEqual compares two values.  Cross-variant comparisons are
// always false; numbers follow IEEE equality (NaN != NaN); objects
// compare by identity, which for strings coincides with content
// equality because strings are interned.
func valuesEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case valNil:
		return true
	case valBool:
		return a.boolean == b.boolean
	case valNumber:
		return a.number == b.number
	case valObj:
		return a.obj == b.obj
	}
	return false
}

// String renders a value the way the print statement does.
func (v Value) String() string {
	switch v.kind {
	case valNil:
		return "nil"
	case valBool:
		if v.boolean {
			return "true"
		}
		return "false"
	case valNumber:
		return fmt.Sprintf("%g", v.number)
	case valObj:
		return v.obj.String()
	}
	return "unknown"
}
