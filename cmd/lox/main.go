package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	lox "github.com/clarete/lox/go"
)

const (
	exitCompileError = 65
	exitRuntimeError = 70
)

type args struct {
	interactive *bool

	// Debugging Options

	printCode *bool
	traceExec *bool
	stressGC  *bool
	logGC     *bool
}

func readArgs() *args {
	a := &args{
		interactive: flag.Bool("interactive", false, "Drops into a shell"),

		printCode: flag.Bool("print-code", false, "Disassemble each compiled function"),
		traceExec: flag.Bool("trace-execution", false, "Trace the stack and each executed instruction"),
		stressGC:  flag.Bool("stress-gc", false, "Collect on every allocation"),
		logGC:     flag.Bool("log-gc", false, "Log collection cycles"),
	}

	flag.Parse()

	return a
}

func (a *args) config() *lox.Config {
	cfg := lox.NewConfig()
	cfg.PrintCode = *a.printCode
	cfg.TraceExecution = *a.traceExec
	cfg.StressGC = *a.stressGC
	cfg.LogGC = *a.logGC
	return cfg
}

func repl(vm *lox.VM) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		// errors were already reported on stderr; the session goes on
		vm.Interpret(scanner.Text())
	}
}

func runFile(vm *lox.VM, path string) {
	source, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("Could not open file \"%s\".", path)
	}

	if err := vm.Interpret(string(source)); err != nil {
		var rte *lox.RuntimeError
		if errors.As(err, &rte) {
			os.Exit(exitRuntimeError)
		}
		os.Exit(exitCompileError)
	}
}

func main() {
	a := readArgs()
	vm := lox.NewVM(a.config())

	switch {
	case *a.interactive || flag.NArg() == 0:
		repl(vm)
	case flag.NArg() == 1:
		runFile(vm, flag.Arg(0))
	default:
		log.Fatal("Usage: lox [path]")
	}
}
