package enfa

import (
	"testing"

	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/graph"
)

func mustCompile(t *testing.T, src, flags string) *ENFA {
	t.Helper()
	p, err := ast.Parse(src, flags)
	if err != nil {
		t.Fatalf("ast.Parse(%q) failed: %v", src, err)
	}
	e, _, err := Compile(p, graph.NoTimeout)
	if err != nil {
		t.Fatalf("Compile(%q) failed: %v", src, err)
	}
	return e
}

// reachableConsumeCount walks eps/assert closures from start and counts
// distinct Consume states reachable, as a coarse structural sanity check.
func reachableConsumeCount(e *ENFA) int {
	seen := make(map[StateID]bool)
	var consumes int
	var walk func(StateID)
	walk = func(id StateID) {
		if seen[id] {
			return
		}
		seen[id] = true
		s := e.State(id)
		switch s.K {
		case KindEps:
			for _, t := range s.EpsTargets {
				walk(t)
			}
		case KindAssert:
			walk(s.AssertNext)
		case KindConsume:
			consumes++
			walk(s.ConsumeNext)
		}
	}
	walk(e.Start)
	return consumes
}

func TestCompileLiteralHasOneConsumePerChar(t *testing.T) {
	e := mustCompile(t, "^abc$", "")
	if n := reachableConsumeCount(e); n != 3 {
		t.Fatalf("expected 3 reachable consume states, got %d", n)
	}
}

func TestCompileUnanchoredWrapsStart(t *testing.T) {
	e := mustCompile(t, "abc", "")
	s := e.State(e.Start)
	if s.K != KindEps || len(s.EpsTargets) != 2 {
		t.Fatalf("expected unanchored wrap eps state at start, got %#v", s)
	}
}

func TestCompileAnchoredSkipsWrap(t *testing.T) {
	e := mustCompile(t, "^abc", "")
	s := e.State(e.Start)
	if s.K == KindEps && len(s.EpsTargets) == 2 {
		if target := e.State(s.EpsTargets[1]); target.K == KindConsume && len(target.ConsumeSet) > 1 {
			t.Fatalf("did not expect unanchored wrap when pattern starts with ^")
		}
	}
}

func TestCompileStarLoopsBack(t *testing.T) {
	p, err := ast.Parse("^a*$", "")
	if err != nil {
		t.Fatal(err)
	}
	e, _, err := Compile(p, graph.NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	// There must be a consume state for 'a', and the eps/assert closure
	// after it must lead back to that same consume state (the loop).
	if reachableConsumeCount(e) == 0 {
		t.Fatalf("expected at least one consume state for a*")
	}
	s := firstConsume(e)
	loops := false
	seen := make(map[StateID]bool)
	var walk func(StateID)
	walk = func(id StateID) {
		if seen[id] || loops {
			return
		}
		seen[id] = true
		st := e.State(id)
		switch st.K {
		case KindEps:
			for _, t := range st.EpsTargets {
				walk(t)
			}
		case KindAssert:
			walk(st.AssertNext)
		case KindConsume:
			loops = st.ID == s.ID
		}
	}
	walk(s.ConsumeNext)
	if !loops {
		t.Fatalf("expected the consume state for a* to loop back to itself")
	}
}

func TestCompileLookAheadUnsupported(t *testing.T) {
	p, err := ast.Parse("a(?=b)", "")
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Compile(p, graph.NoTimeout)
	if !errs.IsUnsupported(err) {
		t.Fatalf("expected Unsupported for look-ahead, got %v", err)
	}
}

func TestCompileLookBehindUnsupported(t *testing.T) {
	p, err := ast.Parse("(?<=a)b", "")
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Compile(p, graph.NoTimeout)
	if !errs.IsUnsupported(err) {
		t.Fatalf("expected Unsupported for look-behind, got %v", err)
	}
}

func TestCompileBackReferenceUnsupported(t *testing.T) {
	p, err := ast.Parse("(a)\\1", "")
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Compile(p, graph.NoTimeout)
	if !errs.IsUnsupported(err) {
		t.Fatalf("expected Unsupported for back-reference, got %v", err)
	}
}

func TestCompileOutOfOrderRepeatIsInvalid(t *testing.T) {
	p, err := ast.Parse("a{3,1}", "")
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = Compile(p, graph.NoTimeout)
	var target *errs.Error
	if err == nil {
		t.Fatalf("expected an error for out-of-order repeat")
	}
	if e, ok := err.(*errs.Error); ok {
		target = e
	}
	if target == nil || target.Kind != errs.KindInvalidRegExp {
		t.Fatalf("expected KindInvalidRegExp, got %v", err)
	}
}

func TestCompileBoundedRepeatExpandsOptionalTail(t *testing.T) {
	e := mustCompile(t, "^a{2,4}$", "")
	if n := reachableConsumeCount(e); n < 2 {
		t.Fatalf("expected at least 2 reachable consume states for a{2,4}, got %d", n)
	}
}

func TestCompileCharacterClassNegation(t *testing.T) {
	e := mustCompile(t, "^[^a]$", "")
	if reachableConsumeCount(e) == 0 {
		t.Fatalf("expected a consume state for negated class")
	}
}

// firstConsume walks eps/assert transitions from the start until it hits a
// Consume state.
func firstConsume(e *ENFA) *State {
	seen := make(map[StateID]bool)
	var found *State
	var walk func(StateID)
	walk = func(id StateID) {
		if seen[id] || found != nil {
			return
		}
		seen[id] = true
		s := e.State(id)
		switch s.K {
		case KindEps:
			for _, t := range s.EpsTargets {
				walk(t)
			}
		case KindAssert:
			walk(s.AssertNext)
		case KindConsume:
			found = s
		}
	}
	walk(e.Start)
	return found
}

func TestCompileIgnoreCaseFoldsAtoms(t *testing.T) {
	e := mustCompile(t, "^a$", "i")
	s := firstConsume(e)
	if s == nil {
		t.Fatalf("expected a consume state for 'a'")
	}
	coversLower, coversUpper := false, false
	for _, ic := range s.ConsumeSet {
		if ic.Runes.Contains('a') {
			coversLower = true
		}
		if ic.Runes.Contains('A') {
			coversUpper = true
		}
	}
	if !coversLower || !coversUpper {
		t.Fatalf("expected case-folded atoms to cover both 'a' and 'A'")
	}
}
