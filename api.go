package lox

// Interpret compiles and runs a whole program on a fresh virtual
// machine configured by cfg.  Use a VM directly to keep globals
// alive across runs (the REPL does).
func Interpret(source string, cfg *Config) error {
	return NewVM(cfg).Interpret(source)
}

// Compile runs the compiler alone and reports whether the source is
// well formed.  Diagnostics are written to the VM's error writer.
func Compile(source string, cfg *Config) error {
	_, err := NewVM(cfg).compile(source)
	return err
}
