package fuzzcheck

// Config controls the genetic search's size and budget knobs.
type Config struct {
	// SeedLimit caps the initial seed population.
	// Default: 10000
	SeedLimit int

	// PopulationLimit is the VM step budget (via FuzzTracer) each
	// candidate's exploratory run is allowed before it is treated as
	// having hit the search's own generation ceiling.
	// Default: 100000
	PopulationLimit int

	// CrossSize is the number of crossover pairs attempted per iteration.
	// Default: 25
	CrossSize int

	// MutateSize is the number of mutations attempted per iteration.
	// Default: 50
	MutateSize int

	// MaxSeedSize caps a seed's expanded rune length.
	// Default: 100
	MaxSeedSize int

	// MaxGenerationSize caps how many traces survive into the next
	// generation.
	// Default: 100
	MaxGenerationSize int

	// MaxIteration caps the number of generations run before giving up.
	// Default: 30
	MaxIteration int

	// MaxDegree is the highest polynomial degree tryAttack checks before
	// giving up on scaling a witness into an attack string.
	// Default: 4
	MaxDegree int

	// StepRate scales the polynomial repetition estimate in tryAttack
	// (dispatch steps per consumed character are >1, so the raw
	// attackLimit^(1/d) estimate undershoots).
	// Default: 1.0
	StepRate float64

	// AttackLimit is the step count treated as catastrophic (shared with
	// the automaton path's AttackConfig).
	// Default: 1000000
	AttackLimit int

	// MaxAttackSize bounds the emitted attack string's rune length.
	// Default: 10000
	MaxAttackSize int

	// Random is the injected PRNG source. Tests supply a deterministic
	// seed.
	Random Random
}

// DefaultConfig returns the default knobs with a fixed-seed Random, so two
// runs over the same pattern produce identical diagnostics unless the
// caller injects their own source.
func DefaultConfig() Config {
	return Config{
		SeedLimit:         10000,
		PopulationLimit:   100000,
		CrossSize:         25,
		MutateSize:        50,
		MaxSeedSize:       100,
		MaxGenerationSize: 100,
		MaxIteration:      30,
		MaxDegree:         4,
		StepRate:          1.0,
		AttackLimit:       1000000,
		MaxAttackSize:     10000,
		Random:            NewMathRandom(1),
	}
}

// Validate checks c's fields are within sane ranges.
func (c Config) Validate() error {
	if c.SeedLimit < 1 {
		return &ConfigError{Field: "SeedLimit", Message: "must be at least 1"}
	}
	if c.PopulationLimit < 1 {
		return &ConfigError{Field: "PopulationLimit", Message: "must be at least 1"}
	}
	if c.CrossSize < 0 {
		return &ConfigError{Field: "CrossSize", Message: "must be non-negative"}
	}
	if c.MutateSize < 0 {
		return &ConfigError{Field: "MutateSize", Message: "must be non-negative"}
	}
	if c.MaxSeedSize < 1 {
		return &ConfigError{Field: "MaxSeedSize", Message: "must be at least 1"}
	}
	if c.MaxGenerationSize < 1 {
		return &ConfigError{Field: "MaxGenerationSize", Message: "must be at least 1"}
	}
	if c.MaxIteration < 0 {
		return &ConfigError{Field: "MaxIteration", Message: "must be non-negative"}
	}
	if c.MaxDegree < 2 {
		return &ConfigError{Field: "MaxDegree", Message: "must be at least 2"}
	}
	if c.StepRate <= 0 {
		return &ConfigError{Field: "StepRate", Message: "must be positive"}
	}
	if c.AttackLimit < 1 {
		return &ConfigError{Field: "AttackLimit", Message: "must be at least 1"}
	}
	if c.MaxAttackSize < 1 {
		return &ConfigError{Field: "MaxAttackSize", Message: "must be at least 1"}
	}
	if c.Random == nil {
		return &ConfigError{Field: "Random", Message: "must not be nil"}
	}
	return nil
}

// ConfigError reports an invalid Config field.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "fuzzcheck: invalid config: " + e.Field + ": " + e.Message
}
