package redosentinel

import (
	"fmt"

	"github.com/coregx/redosentinel/internal/automaton"
	"github.com/coregx/redosentinel/internal/errs"
)

// Outcome is Diagnostics' tag: which of the three verdicts Analyze reached.
type Outcome int

const (
	// Safe: no catastrophic blowup was found, within the checker's
	// confidence (automaton's proof, or fuzz's failure to find an
	// attack after exhausting its search budget).
	Safe Outcome = iota
	// Vulnerable: a concrete attack string was found or constructed.
	Vulnerable
	// Unknown: analysis could not reach a verdict (see ErrorKind).
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case Safe:
		return "Safe"
	case Vulnerable:
		return "Vulnerable"
	default:
		return "Unknown"
	}
}

// Diagnostics is Analyze's result: a tagged sum of Safe/Vulnerable/Unknown,
// carrying whichever fields its Outcome makes meaningful.
type Diagnostics struct {
	Outcome Outcome

	// Complexity and Degree are meaningful when HasComplexity is set.
	// Degree is only meaningful when Complexity == automaton.Polynomial.
	// The fuzz checker's Safe verdict carries no complexity claim — it
	// only reports that the search found no attack — so HasComplexity is
	// false there.
	Complexity    automaton.ComplexityKind
	Degree        int
	HasComplexity bool

	// Checker names which path produced this diagnosis.
	Checker Checker

	// Attack is the confirmed or constructed attack string, meaningful
	// only for Vulnerable.
	Attack []rune

	// ErrorKind and ErrorMessage are meaningful only for Unknown.
	ErrorKind    errs.Kind
	ErrorMessage string
}

// String renders a one-line human-readable summary.
func (d Diagnostics) String() string {
	switch d.Outcome {
	case Safe:
		if !d.HasComplexity {
			return fmt.Sprintf("Safe (via %s)", d.Checker)
		}
		return fmt.Sprintf("Safe (%s, via %s)", d.complexityString(), d.Checker)
	case Vulnerable:
		return fmt.Sprintf("Vulnerable (%s, via %s): attack length %d", d.complexityString(), d.Checker, len(d.Attack))
	default:
		if d.ErrorMessage != "" {
			return fmt.Sprintf("Unknown (%s: %s, via %s)", d.ErrorKind, d.ErrorMessage, d.Checker)
		}
		return fmt.Sprintf("Unknown (%s, via %s)", d.ErrorKind, d.Checker)
	}
}

func (d Diagnostics) complexityString() string {
	if d.Complexity == automaton.Polynomial {
		return fmt.Sprintf("Polynomial(%d)", d.Degree)
	}
	return d.Complexity.String()
}
