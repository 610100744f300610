package lox

import (
	"fmt"
	"strings"
)

// CompileError is reported by the compiler for a malformed program.
// The first error of a statement is the one surfaced; panic mode
// suppresses the rest until the parser resynchronizes.
type CompileError struct {
	Line    int
	Where   string // offending lexeme, "" at end of input
	Message string
	AtEnd   bool
}

func (e *CompileError) Error() string {
	if e.AtEnd {
		return fmt.Sprintf("[line %d] Error at end: %s", e.Line, e.Message)
	}
	if e.Where == "" {
		return fmt.Sprintf("[line %d] Error: %s", e.Line, e.Message)
	}
	return fmt.Sprintf("[line %d] Error at '%s': %s", e.Line, e.Where, e.Message)
}

// RuntimeError aborts an interpret call.  Trace holds one line per
// active frame, innermost first, in the "[line N] in NAME" shape.
type RuntimeError struct {
	Message string
	Trace   []string
}

func (e *RuntimeError) Error() string {
	if len(e.Trace) == 0 {
		return e.Message
	}
	return e.Message + "\n" + strings.Join(e.Trace, "\n")
}
