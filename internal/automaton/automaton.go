// Package automaton is the core vulnerability decision engine: it builds a
// product automaton over an ordered NFA's own states, locates the
// "ambiguous" structures within its SCCs, classifies worst-case matching
// time as Constant, Linear, Polynomial(degree), or Exponential, and builds a
// symbolic witness (pump/suffix form) whenever the pattern is vulnerable.
package automaton

import (
	"math"

	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/enfa"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/onfa"
)

// ComplexityKind enumerates the worst-case matching-time classes.
type ComplexityKind int

const (
	Constant ComplexityKind = iota
	Linear
	Polynomial
	Exponential
)

func (k ComplexityKind) String() string {
	switch k {
	case Constant:
		return "Constant"
	case Linear:
		return "Linear"
	case Polynomial:
		return "Polynomial"
	case Exponential:
		return "Exponential"
	default:
		return "Unknown"
	}
}

// PumpSegment is one (prefix, pump) pair of a Witness: prefix is consumed
// once on the way in, pump is the cycle repeated n times.
type PumpSegment struct {
	Prefix []rune
	Pump   []rune
}

// Witness is the symbolic pump/suffix form backing an attack string: the
// attack for repetition n is prefix₁ pump₁ⁿ prefix₂ pump₂ⁿ … suffix.
type Witness struct {
	Pumps  []PumpSegment
	Suffix []rune
}

// BuildAttack expands the witness at repetition n.
func (w *Witness) BuildAttack(n int) []rune {
	var out []rune
	for _, p := range w.Pumps {
		out = append(out, p.Prefix...)
		for i := 0; i < n; i++ {
			out = append(out, p.Pump...)
		}
	}
	out = append(out, w.Suffix...)
	return out
}

// Complexity is the checker's verdict: a kind, a degree (meaningful only for
// Polynomial), and a witness (nil for Constant/Linear).
type Complexity struct {
	Kind    ComplexityKind
	Degree  int
	Witness *Witness
}

// Check runs the full automaton pipeline for p: compile to an ε-NFA,
// eliminate epsilons into an ordered NFA, then classify via product-SCC
// ambiguity analysis. maxNFASize bounds both the ordered-NFA state count and
// (squared) the product automaton's vertex count.
func Check(p ast.Pattern, to graph.Timeout, maxNFASize int) (Complexity, error) {
	c, _, err := CheckWithStats(p, to, maxNFASize)
	return c, err
}

// CheckWithStats is Check plus the product-automaton counters accumulated
// along the way.
func CheckWithStats(p ast.Pattern, to graph.Timeout, maxNFASize int) (Complexity, Stats, error) {
	e, icharSet, err := enfa.Compile(p, to)
	if err != nil {
		return Complexity{}, Stats{}, err
	}
	n, err := onfa.Build(e, icharSet, to, maxNFASize)
	if err != nil {
		return Complexity{}, Stats{}, err
	}
	return classify(p, n, to, maxNFASize)
}

func classify(p ast.Pattern, n *onfa.NFA, to graph.Timeout, maxNFASize int) (Complexity, Stats, error) {
	baseline := Constant
	if !p.IsConstant() {
		baseline = Linear
	}

	if n.NumStates() == 0 {
		return Complexity{Kind: baseline}, Stats{}, nil
	}

	g, N, err := buildProduct(n, maxNFASize, to)
	if err != nil {
		return Complexity{}, Stats{}, err
	}
	stats := Stats{ProductVertices: N * N}

	sccs, err := g.SCC(to)
	if err != nil {
		return Complexity{}, stats, err
	}
	stats.SCCsFound = len(sccs)

	eda, found, err := detectEDA(g, sccs, N, to)
	if err != nil {
		return Complexity{}, stats, err
	}
	if found {
		w, err := buildEDAWitness(n, g, N, eda, to)
		if err != nil {
			return Complexity{}, stats, err
		}
		return Complexity{Kind: Exponential, Witness: w}, stats, nil
	}

	degree, w, err := detectIDA(n, to, maxNFASize)
	if err != nil {
		return Complexity{}, stats, err
	}
	if degree >= 2 {
		return Complexity{Kind: Polynomial, Degree: degree, Witness: w}, stats, nil
	}

	return Complexity{Kind: baseline}, stats, nil
}

// AttackConfig bounds the attack-string expansion built from a Witness.
type AttackConfig struct {
	AttackLimit   int
	MaxAttackSize int

	// StepRate scales the polynomial repetition estimate (matching engines
	// spend several dispatch steps per consumed character, so the raw
	// attackLimit^(1/k) estimate undershoots). Zero means 1.
	StepRate float64
}

// errNoWitness guards AttackString against a nil witness on a non-vulnerable
// complexity, which would otherwise be a caller bug.
var errNoWitness = errs.InvalidRegExp("complexity has no witness to expand")

// AttackString expands c's Witness into a concrete attack string, picking
// the smallest repetition count n whose expansion is expected to exceed
// cfg.AttackLimit matching steps. The expansion is capped at
// cfg.MaxAttackSize; patterns whose witness pumps are all empty (a
// degenerate, ambiguity-only cycle) have their pump length counted as 1
// when n is estimated.
func (c Complexity) AttackString(cfg AttackConfig) ([]rune, error) {
	if c.Witness == nil {
		return nil, errNoWitness
	}
	if c.Kind != Exponential && c.Kind != Polynomial {
		return nil, errNoWitness
	}

	attack := c.Witness.BuildAttack(c.AttackRepetitions(cfg))
	if len(attack) > cfg.MaxAttackSize {
		attack = attack[:cfg.MaxAttackSize]
	}
	return attack, nil
}

// AttackRepetitions returns the repetition count AttackString expands the
// witness at: the smallest n whose expansion is expected to exceed
// cfg.AttackLimit matching steps, given the complexity class.
func (c Complexity) AttackRepetitions(cfg AttackConfig) int {
	pumpLen := 0
	if c.Witness != nil {
		for _, p := range c.Witness.Pumps {
			pumpLen += len(p.Pump)
		}
	}
	if pumpLen == 0 {
		pumpLen = 1
	}

	var r float64
	switch c.Kind {
	case Exponential:
		r = math.Log2(float64(cfg.AttackLimit)) / float64(pumpLen)
	case Polynomial:
		degree := c.Degree
		if degree < 2 {
			degree = 2
		}
		rate := cfg.StepRate
		if rate <= 0 {
			rate = 1
		}
		r = rate * math.Pow(float64(cfg.AttackLimit), 1/float64(degree)) / float64(pumpLen)
	default:
		return 1
	}
	n := int(math.Ceil(r))
	if n < 1 {
		n = 1
	}
	return n
}
