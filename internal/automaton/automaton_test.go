package automaton

import (
	"testing"

	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/graph"
)

func mustCheck(t *testing.T, src, flags string) Complexity {
	t.Helper()
	p, err := ast.Parse(src, flags)
	if err != nil {
		t.Fatalf("ast.Parse(%q) failed: %v", src, err)
	}
	c, err := Check(p, graph.NoTimeout, 35000)
	if err != nil {
		t.Fatalf("Check(%q) failed: %v", src, err)
	}
	return c
}

func TestConstantPattern(t *testing.T) {
	c := mustCheck(t, "^abc$", "")
	if c.Kind != Constant {
		t.Fatalf("^abc$: got %s, want Constant", c.Kind)
	}
}

func TestLinearPattern(t *testing.T) {
	c := mustCheck(t, "^a*b$", "")
	if c.Kind != Linear {
		t.Fatalf("^a*b$: got %s, want Linear", c.Kind)
	}
}

func TestBoundedRepeatIsLinear(t *testing.T) {
	c := mustCheck(t, "^a{3,5}b$", "")
	if c.Kind != Linear {
		t.Fatalf("^a{3,5}b$: got %s, want Linear", c.Kind)
	}
}

func TestExponentialNestedStar(t *testing.T) {
	c := mustCheck(t, "^(a*)*$", "")
	if c.Kind != Exponential {
		t.Fatalf("^(a*)*$: got %s, want Exponential", c.Kind)
	}
	if c.Witness == nil {
		t.Fatalf("exponential complexity must carry a witness")
	}
}

func TestExponentialDuplicateAlternation(t *testing.T) {
	c := mustCheck(t, "^(a|a)*$", "")
	if c.Kind != Exponential {
		t.Fatalf("^(a|a)*$: got %s, want Exponential", c.Kind)
	}
}

func TestExponentialNestedPlus(t *testing.T) {
	c := mustCheck(t, "^(a+)+$", "")
	if c.Kind != Exponential {
		t.Fatalf("^(a+)+$: got %s, want Exponential", c.Kind)
	}
}

func TestPolynomialDegreeTwo(t *testing.T) {
	c := mustCheck(t, "^a*a*b$", "")
	if c.Kind != Polynomial || c.Degree != 2 {
		t.Fatalf("^a*a*b$: got %s degree %d, want Polynomial degree 2", c.Kind, c.Degree)
	}
	if c.Witness == nil || len(c.Witness.Pumps) != 2 {
		t.Fatalf("expected a 2-pump witness, got %+v", c.Witness)
	}
}

func TestPolynomialDegreeThree(t *testing.T) {
	c := mustCheck(t, "^a*a*a*b$", "")
	if c.Kind != Polynomial || c.Degree != 3 {
		t.Fatalf("^a*a*a*b$: got %s degree %d, want Polynomial degree 3", c.Kind, c.Degree)
	}
	if c.Witness == nil || len(c.Witness.Pumps) != c.Degree {
		t.Fatalf("witness pump count must match the degree, got %+v", c.Witness)
	}
}

func TestLookaheadUnsupported(t *testing.T) {
	p, err := ast.Parse("(?=x)y", "")
	if err != nil {
		t.Fatalf("ast.Parse failed: %v", err)
	}
	_, err = Check(p, graph.NoTimeout, 35000)
	if !errs.IsUnsupported(err) {
		t.Fatalf("expected Unsupported error, got %v", err)
	}
}

func TestAttackStringRespectsMaxSize(t *testing.T) {
	c := mustCheck(t, "^(a*)*$", "")
	attack, err := c.AttackString(AttackConfig{AttackLimit: 1000000, MaxAttackSize: 16})
	if err != nil {
		t.Fatalf("AttackString failed: %v", err)
	}
	if len(attack) > 16 {
		t.Fatalf("attack string length %d exceeds MaxAttackSize", len(attack))
	}
}

func TestWitnessExpandsToIncreasingLength(t *testing.T) {
	c := mustCheck(t, "^(a*)*$", "")
	short := c.Witness.BuildAttack(1)
	long := c.Witness.BuildAttack(5)
	if len(long) <= len(short) {
		t.Fatalf("expected BuildAttack(5) to be longer than BuildAttack(1): %d vs %d", len(long), len(short))
	}
}
