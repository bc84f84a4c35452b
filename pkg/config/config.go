package config

// Config carries the compiler's target-fixed ambient settings: spec.md
// §4.6/§4.7 fix the target to RV32 with a 16-byte stack alignment, so
// unlike the teacher's multi-arch Config there's only one target to
// describe. The driver builds one per run and records the selected
// mode flags in it; the lowering and emission stages do not read it.
type Config struct {
	WordSize       int
	WordType       string
	StackAlignment int
	DumpRaw        bool
	PerfMode       bool
}

// NewConfig returns the fixed RV32 target configuration (spec.md §4).
func NewConfig() *Config {
	return &Config{
		WordSize:       4,
		WordType:       "w",
		StackAlignment: 16,
	}
}
