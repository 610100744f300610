package lox

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisassembleChunk(t *testing.T) {
	function, _, err := compileSource(t, "print 1;")
	require.NoError(t, err)

	var out bytes.Buffer
	disassembleChunk(&out, &function.chunk, "<script>")

	expected := strings.Join([]string{
		"== <script> ==",
		"0000    1 constant            0 '1'",
		"0002    | print",
		"0003    | nil",
		"0004    | return",
		"",
	}, "\n")
	assert.Equal(t, expected, out.String())
}

func TestDisassemble_JumpTargets(t *testing.T) {
	function, _, err := compileSource(t, "while (true) print 1;")
	require.NoError(t, err)

	var out bytes.Buffer
	disassembleChunk(&out, &function.chunk, "<script>")

	// the backward loop jump lands on the condition at offset 0
	assert.Contains(t, out.String(), "loop")
	assert.Contains(t, out.String(), "-> 0")
	assert.Contains(t, out.String(), "jump_if_false")
}

func TestDisassemble_ClosureCaptures(t *testing.T) {
	source := `
fun outer() {
  var x = 1;
  fun inner() { return x; }
}
`
	function, _, err := compileSource(t, source)
	require.NoError(t, err)

	var outer *functionObj
	for _, constant := range function.chunk.constants {
		if f, ok := constant.asObj().(*functionObj); ok {
			outer = f
		}
	}
	require.NotNil(t, outer)

	var out bytes.Buffer
	disassembleChunk(&out, &outer.chunk, "outer")

	assert.Contains(t, out.String(), "closure")
	assert.Contains(t, out.String(), "local 1")
}

func TestDebugPrintCodeKnob(t *testing.T) {
	cfg := NewConfig()
	cfg.PrintCode = true

	vm := NewVM(cfg)
	var outb, errb bytes.Buffer
	vm.SetStdout(&outb)
	vm.SetStderr(&errb)

	require.NoError(t, vm.Interpret("print 1;"))
	assert.Contains(t, errb.String(), "== <script> ==")
	assert.Equal(t, "1\n", outb.String())
}

func TestTraceExecutionKnob(t *testing.T) {
	cfg := NewConfig()
	cfg.TraceExecution = true

	vm := NewVM(cfg)
	var outb, errb bytes.Buffer
	vm.SetStdout(&outb)
	vm.SetStderr(&errb)

	require.NoError(t, vm.Interpret("print 1 + 2;"))
	assert.Equal(t, "3\n", outb.String())
	assert.Contains(t, errb.String(), "add")
	assert.Contains(t, errb.String(), "[ 1 ][ 2 ]")
}
