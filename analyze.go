package redosentinel

import (
	"errors"

	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/automaton"
	"github.com/coregx/redosentinel/internal/enfa"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/fuzzcheck"
	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/ichar"
	"github.com/coregx/redosentinel/internal/uchar"
	"github.com/coregx/redosentinel/internal/vm"
)

// Analyze parses source under flags and runs the default (Hybrid) analysis
// pipeline against it.
func Analyze(source, flags string) (Diagnostics, error) {
	return AnalyzeWithConfig(source, flags, DefaultConfig())
}

// AnalyzeWithConfig is Analyze with caller-supplied Config. Expected
// analysis failures — a syntactically invalid pattern, a construct no
// checker could handle, a deadline breach — are legitimate outcomes and
// come back as Unknown Diagnostics with a nil error; a non-nil error means
// the Config itself was rejected or something genuinely unexpected broke.
func AnalyzeWithConfig(source, flags string, cfg Config) (Diagnostics, error) {
	if err := cfg.Validate(); err != nil {
		return Diagnostics{}, err
	}

	p, err := ast.Parse(source, flags)
	if err != nil {
		return Diagnostics{
			Outcome:      Unknown,
			Checker:      cfg.Checker,
			ErrorKind:    errs.KindInvalidRegExp,
			ErrorMessage: err.Error(),
		}, nil
	}

	to := graph.NoTimeout
	if cfg.Timeout > 0 {
		to = graph.NewTimeout(cfg.Timeout)
	}

	switch cfg.Checker {
	case CheckerAutomaton:
		d, err := runAutomaton(p, to, cfg)
		if err != nil {
			if d2, ok := taxonomyDiagnostics(err, CheckerAutomaton); ok {
				return d2, nil
			}
			return Diagnostics{}, err
		}
		return d, nil
	case CheckerFuzz:
		return runFuzz(p, to, cfg)
	default:
		return runHybrid(p, to, cfg)
	}
}

// taxonomyDiagnostics converts an expected-failure error into the Unknown
// Diagnostics it denotes, or reports ok=false for anything outside the
// taxonomy (a genuine bug, left for the caller to propagate).
func taxonomyDiagnostics(err error, used Checker) (Diagnostics, bool) {
	if errors.Is(err, graph.ErrTimeout) {
		return Diagnostics{Outcome: Unknown, Checker: used, ErrorKind: errs.KindTimeout}, true
	}
	var ae *errs.Error
	if errors.As(err, &ae) {
		return Diagnostics{
			Outcome:      Unknown,
			Checker:      used,
			ErrorKind:    ae.Kind,
			ErrorMessage: ae.Message,
		}, true
	}
	return Diagnostics{}, false
}

// runHybrid implements the hybrid policy: try the automaton path; recover
// from exactly one failure mode (Unsupported — a construct the automaton
// can't model, a size guard tripping, or a witness whose attack failed the
// validation pass) by falling back to the fuzz checker. Any other failure
// is the final verdict.
func runHybrid(p ast.Pattern, to graph.Timeout, cfg Config) (Diagnostics, error) {
	if skipAutomaton(p, cfg) {
		return runFuzz(p, to, cfg)
	}

	d, err := runAutomaton(p, to, cfg)
	if err == nil {
		return d, nil
	}
	if !errs.IsUnsupported(err) {
		if d2, ok := taxonomyDiagnostics(err, CheckerAutomaton); ok {
			return d2, nil
		}
		return Diagnostics{}, err
	}
	return runFuzz(p, to, cfg)
}

// skipAutomaton reports whether p trips one of the hybrid-specific size
// guards that make building its product automaton impractical, in which
// case analysis goes straight to the fuzz checker instead of paying for a
// doomed automaton build first.
func skipAutomaton(p ast.Pattern, cfg Config) bool {
	return repeatCount(p.Root) >= cfg.MaxRepeatCount || p.Size() >= cfg.MaxPatternSize
}

// repeatCount sums the numeric bounds of the pattern's bounded repetition
// quantifiers: a{200} expands into two hundred chained copies in the ε-NFA,
// so the summed bounds are the proxy for how much bigger than its source
// the compiled automaton gets before the product squares it.
func repeatCount(n ast.Node) int {
	count := 0
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case ast.Repeat:
			bound := t.Min
			if t.Max > bound {
				bound = t.Max
			}
			count += bound
			walk(t.Sub)
		case ast.Star:
			walk(t.Sub)
		case ast.Plus:
			walk(t.Sub)
		case ast.Question:
			walk(t.Sub)
		case ast.Disjunction:
			for _, a := range t.Alts {
				walk(a)
			}
		case ast.Sequence:
			for _, it := range t.Items {
				walk(it)
			}
		case ast.Capture:
			walk(t.Sub)
		case ast.NamedCapture:
			walk(t.Sub)
		case ast.Group:
			walk(t.Sub)
		case ast.LookAhead:
			walk(t.Sub)
		case ast.LookBehind:
			walk(t.Sub)
		}
	}
	walk(n)
	return count
}

// runAutomaton runs the automaton checker and, on a vulnerable verdict,
// expands and validates the witness attack. Timeouts and invalid-regex
// failures are final and come back as Unknown Diagnostics; Unsupported is
// returned as a raw error so runHybrid can recover into the fuzz path.
func runAutomaton(p ast.Pattern, to graph.Timeout, cfg Config) (Diagnostics, error) {
	c, err := automaton.Check(p, to, cfg.MaxNFASize)
	if err != nil {
		if errs.IsUnsupported(err) {
			return Diagnostics{}, err
		}
		if d, ok := taxonomyDiagnostics(err, CheckerAutomaton); ok {
			return d, nil
		}
		return Diagnostics{}, err
	}

	if c.Kind != automaton.Exponential && c.Kind != automaton.Polynomial {
		return Diagnostics{Outcome: Safe, Complexity: c.Kind, HasComplexity: true, Checker: CheckerAutomaton}, nil
	}

	attack, err := c.AttackString(cfg.automatonAttackConfig())
	if err != nil {
		return Diagnostics{}, err
	}

	// Validation pass: a witness whose synthesized attack does not drive
	// the backtracking VM past the step budget is rejected — structurally
	// plausible ambiguity that the modeled engine never actually pays for.
	// Rejection surfaces as Unsupported so the hybrid policy retries the
	// pattern on the fuzz path.
	prog, cerr := vm.Compile(p)
	if cerr != nil {
		return Diagnostics{}, cerr
	}
	validated, ok := validateWitnessAttack(prog, c, attack, attackTails(p), cfg)
	if !ok {
		return Diagnostics{}, errs.Unsupported("witness attack failed validation")
	}

	return Diagnostics{
		Outcome:       Vulnerable,
		Complexity:    c.Kind,
		Degree:        c.Degree,
		HasComplexity: true,
		Checker:       CheckerAutomaton,
		Attack:        validated,
	}, nil
}

// validateWitnessAttack runs the candidate attack through the VM under the
// attack step budget, trying the bare expansion first and then each tail
// character appended (a pump that matches cleanly only backtracks once a
// trailing mismatch forces it to). If nothing triggers at the initial
// repetition count, the witness is re-expanded at doubled counts until the
// size cap; the first expansion that exhausts the budget is the attack.
func validateWitnessAttack(prog *vm.Program, c automaton.Complexity, attack []rune, tails []rune, cfg Config) ([]rune, bool) {
	n := c.AttackRepetitions(cfg.automatonAttackConfig())
	for scale := 0; scale < 6; scale++ {
		cand := attack
		if scale > 0 {
			cand = c.Witness.BuildAttack(n << scale)
			if len(cand) > cfg.MaxAttackSize {
				return nil, false
			}
		}
		if exhaustsBudget(prog, cand, cfg.AttackLimit) {
			return cand, true
		}
		for _, tail := range tails {
			t := append(append([]rune(nil), cand...), tail)
			if len(t) > cfg.MaxAttackSize {
				continue
			}
			if exhaustsBudget(prog, t, cfg.AttackLimit) {
				return t, true
			}
		}
	}
	return nil, false
}

func exhaustsBudget(prog *vm.Program, input []rune, limit int) bool {
	res := vm.Run(prog, input, 0, vm.NewLimitTracer(limit))
	return res.Outcome == vm.LimitExceeded
}

// attackTails returns the deterministic candidate mismatch characters the
// validation pass appends: one representative per alphabet atom (covering
// every character class the pattern distinguishes, including the catch-all
// remainder), plus a few fixed fallbacks.
func attackTails(p ast.Pattern) []rune {
	set := ichar.NewICharSet()
	enfa.CollectAlphabet(p.Root, p.Flags, set)
	bound := uchar.MaxBMP
	if p.Flags.Unicode {
		bound = uchar.MaxUnicode
	}
	set.Add(ichar.New(uchar.Range(0, bound), false, false))

	var tails []rune
	for _, atom := range set.Atoms() {
		ivs := atom.Runes.Intervals()
		if len(ivs) == 0 {
			continue
		}
		tails = append(tails, rune(ivs[0].Lo))
	}
	return append(tails, 0, '!')
}

// runFuzz runs the fuzz checker. Like runAutomaton, expected failures come
// back as Unknown Diagnostics rather than errors.
func runFuzz(p ast.Pattern, to graph.Timeout, cfg Config) (Diagnostics, error) {
	fc, err := fuzzcheck.NewFuzzContext(p)
	if err != nil {
		if d, ok := taxonomyDiagnostics(err, CheckerFuzz); ok {
			return d, nil
		}
		return Diagnostics{}, err
	}

	res, _, err := fuzzcheck.Check(fc, cfg.fuzzConfig(), to)
	if err != nil {
		if d, ok := taxonomyDiagnostics(err, CheckerFuzz); ok {
			return d, nil
		}
		return Diagnostics{}, err
	}
	if !res.Vulnerable {
		return Diagnostics{Outcome: Safe, Checker: CheckerFuzz}, nil
	}

	kind := automaton.Exponential
	if res.Degree >= 2 {
		kind = automaton.Polynomial
	}
	return Diagnostics{
		Outcome:       Vulnerable,
		Complexity:    kind,
		Degree:        res.Degree,
		HasComplexity: true,
		Checker:       CheckerFuzz,
		Attack:        res.Attack,
	}, nil
}
