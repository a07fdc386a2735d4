// Package redosentinel analyzes regular expressions for catastrophic
// backtracking (ReDoS) without ever matching untrusted input against them.
// Analyze compiles a pattern into the shared AST, runs the automaton
// checker's product-graph ambiguity analysis, and — where the automaton
// path can't model the pattern or the pattern overruns its size caps —
// falls back to the coverage-guided fuzz search, returning a Diagnostics
// value describing the verdict either way.
package redosentinel

import (
	"time"

	"github.com/coregx/redosentinel/internal/automaton"
	"github.com/coregx/redosentinel/internal/fuzzcheck"
)

// Checker selects which analysis path Analyze runs.
type Checker int

const (
	// CheckerHybrid runs the automaton path first, falling back to the
	// fuzz checker when the automaton can't model the pattern or a size
	// guard trips. This is the default and the one most callers want.
	CheckerHybrid Checker = iota
	// CheckerAutomaton runs only the automaton path; patterns with
	// lookaround or back-references report Unknown(Unsupported).
	CheckerAutomaton
	// CheckerFuzz runs only the fuzz checker.
	CheckerFuzz
)

func (c Checker) String() string {
	switch c {
	case CheckerAutomaton:
		return "Automaton"
	case CheckerFuzz:
		return "Fuzz"
	default:
		return "Hybrid"
	}
}

// Config controls every knob Analyze's pipeline exposes.
type Config struct {
	// Checker selects the analysis path. Default: CheckerHybrid.
	Checker Checker

	// Timeout bounds the whole analysis; zero disables deadline checking.
	// Default: 0 (no timeout).
	Timeout time.Duration

	// MaxNFASize bounds the ordered-NFA state count the automaton path
	// will build (and, squared, the product-automaton vertex count).
	// Default: 35000.
	MaxNFASize int

	// MaxRepeatCount is the hybrid-specific guard: a pattern whose bounded
	// repetition quantifiers' counts (the larger bound of each {n,m}),
	// summed over the whole pattern, reach at least this value skips the
	// automaton path entirely (its product graph would be enormous) and
	// goes straight to the fuzz checker. Default: 30.
	MaxRepeatCount int

	// MaxPatternSize is the hybrid-specific guard on the AST's own node
	// count; patterns at or above it skip the automaton path the same
	// way MaxRepeatCount does. Default: 1500.
	MaxPatternSize int

	// AttackLimit is the step count, for both checkers, that counts as
	// catastrophic. Default: 1000000.
	AttackLimit int

	// MaxAttackSize bounds the length of any emitted attack string.
	// Default: 10000.
	MaxAttackSize int

	// StepRate scales the polynomial attack-size estimate in both
	// checkers: matching engines spend several dispatch steps per consumed
	// character, so the raw attackLimit^(1/k) repetition estimate
	// undershoots by a constant factor. Default: 1.0.
	StepRate float64

	// Fuzz carries the fuzz checker's own search-size knobs;
	// AttackLimit/MaxAttackSize/StepRate above are threaded into it so
	// both paths agree on what "catastrophic" means.
	Fuzz fuzzcheck.Config
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	fz := fuzzcheck.DefaultConfig()
	return Config{
		Checker:        CheckerHybrid,
		MaxNFASize:     35000,
		MaxRepeatCount: 30,
		MaxPatternSize: 1500,
		AttackLimit:    1000000,
		MaxAttackSize:  10000,
		StepRate:       1.0,
		Fuzz:           fz,
	}
}

// Validate checks c's fields are within sane ranges.
func (c Config) Validate() error {
	if c.MaxNFASize < 1 {
		return &ConfigError{Field: "MaxNFASize", Message: "must be at least 1"}
	}
	if c.MaxRepeatCount < 1 {
		return &ConfigError{Field: "MaxRepeatCount", Message: "must be at least 1"}
	}
	if c.MaxPatternSize < 1 {
		return &ConfigError{Field: "MaxPatternSize", Message: "must be at least 1"}
	}
	if c.AttackLimit < 1 {
		return &ConfigError{Field: "AttackLimit", Message: "must be at least 1"}
	}
	if c.MaxAttackSize < 1 {
		return &ConfigError{Field: "MaxAttackSize", Message: "must be at least 1"}
	}
	if c.StepRate <= 0 {
		return &ConfigError{Field: "StepRate", Message: "must be positive"}
	}
	if err := c.Fuzz.Validate(); err != nil {
		return &ConfigError{Field: "Fuzz", Message: err.Error()}
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
	return "redosentinel: invalid config: " + e.Field + ": " + e.Message
}

// automatonAttackConfig projects the shared attack-sizing knobs into the
// automaton package's own config shape.
func (c Config) automatonAttackConfig() automaton.AttackConfig {
	return automaton.AttackConfig{AttackLimit: c.AttackLimit, MaxAttackSize: c.MaxAttackSize, StepRate: c.StepRate}
}

// fuzzConfig projects c's fuzz knobs, keeping AttackLimit/MaxAttackSize in
// sync with the top-level Config so both checkers agree on what counts as
// a confirmed attack.
func (c Config) fuzzConfig() fuzzcheck.Config {
	fz := c.Fuzz
	fz.AttackLimit = c.AttackLimit
	fz.MaxAttackSize = c.MaxAttackSize
	fz.StepRate = c.StepRate
	return fz
}
