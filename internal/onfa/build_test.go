package onfa

import (
	"testing"

	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/enfa"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/graph"
)

func mustBuild(t *testing.T, src, flags string) *NFA {
	t.Helper()
	p, err := ast.Parse(src, flags)
	if err != nil {
		t.Fatalf("ast.Parse(%q) failed: %v", src, err)
	}
	e, icharSet, err := enfa.Compile(p, graph.NoTimeout)
	if err != nil {
		t.Fatalf("enfa.Compile(%q) failed: %v", src, err)
	}
	n, err := Build(e, icharSet, graph.NoTimeout, 10000)
	if err != nil {
		t.Fatalf("onfa.Build(%q) failed: %v", src, err)
	}
	return n
}

func TestBuildLinearChainAccepts(t *testing.T) {
	n := mustBuild(t, "^ab$", "")
	if n.StartAccept {
		t.Fatalf("^ab$ must not accept the empty string")
	}
	if len(n.StartTargets) != 1 {
		t.Fatalf("expected a single initial state, got %d", len(n.StartTargets))
	}
	first := n.Trans[n.StartTargets[0]]
	if first.Accept {
		t.Fatalf("consuming 'a' alone must not accept")
	}
	if len(first.Targets) != 1 {
		t.Fatalf("expected one successor after consuming 'a', got %d", len(first.Targets))
	}
	second := n.Trans[first.Targets[0]]
	if !second.Accept {
		t.Fatalf("consuming 'b' after 'a' must accept")
	}
	if len(second.Targets) != 0 {
		t.Fatalf("expected no further states after accept, got %d", len(second.Targets))
	}
}

func TestBuildStarAcceptsEmpty(t *testing.T) {
	n := mustBuild(t, "^a*$", "")
	if !n.StartAccept {
		t.Fatalf("a* must accept the empty string")
	}
	if len(n.StartTargets) != 1 {
		t.Fatalf("expected one loop state, got %d", len(n.StartTargets))
	}
	loop := n.Trans[n.StartTargets[0]]
	if !loop.Accept {
		t.Fatalf("a* must still accept after consuming any number of a's")
	}
	if len(loop.Targets) != 1 || loop.Targets[0] != n.StartTargets[0] {
		t.Fatalf("expected the loop state to target itself, got %+v", loop.Targets)
	}
}

func TestBuildDisjunctionBothBranchesAccept(t *testing.T) {
	n := mustBuild(t, "^(?:a|b)$", "")
	if len(n.StartTargets) != 2 {
		t.Fatalf("expected 2 initial states for a|b, got %d", len(n.StartTargets))
	}
	for _, s := range n.StartTargets {
		if !n.Trans[s].Accept {
			t.Fatalf("both branches of a|b must accept after one character")
		}
	}
}

func TestBuildNestedStarKeepsDuplicateSlots(t *testing.T) {
	n := mustBuild(t, "^(a*)*$", "")
	if len(n.StartTargets) != 1 {
		t.Fatalf("expected one initial state, got %d", len(n.StartTargets))
	}
	loop := n.Trans[n.StartTargets[0]]
	if len(loop.Targets) != 2 || loop.Targets[0] != loop.Targets[1] {
		t.Fatalf("expected the nested-star state to list itself twice (continue vs re-enter), got %+v", loop.Targets)
	}
	if !loop.Accept {
		t.Fatalf("(a*)* must accept after any number of a's")
	}
}

func TestBuildSizeCapRejects(t *testing.T) {
	p, err := ast.Parse("^ab$", "")
	if err != nil {
		t.Fatal(err)
	}
	e, icharSet, err := enfa.Compile(p, graph.NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Build(e, icharSet, graph.NoTimeout, 0)
	if !errs.IsUnsupported(err) {
		t.Fatalf("expected Unsupported for a zero state cap, got %v", err)
	}
}
