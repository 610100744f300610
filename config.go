package lox

// Config holds the interpreter knobs.  Everything here is optional
// tuning or debug surface; the zero value of each flag is the
// production behavior.
type Config struct {
	// StressGC runs a collection on every allocation request.  It
	// exists to flush out rooting mistakes in tests.
	StressGC bool

	// LogGC writes the begin and end of each collection cycle, with
	// the bytes collected, to the error writer.
	LogGC bool

	// TraceExecution dumps the stack and the disassembled
	// instruction before every dispatch.
	TraceExecution bool

	// PrintCode disassembles each function as it finishes compiling.
	PrintCode bool

	// InitialGCThreshold is the tracked-byte count that triggers the
	// first collection.
	InitialGCThreshold int

	// GCGrowthFactor rescales the threshold from the bytes surviving
	// a collection.
	GCGrowthFactor int
}

// NewConfig returns a configuration with the default collection
// tuning and all debug output off.
func NewConfig() *Config {
	return &Config{
		InitialGCThreshold: 1024 * 1024,
		GCGrowthFactor:     2,
	}
}
