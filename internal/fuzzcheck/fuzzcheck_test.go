package fuzzcheck

import (
	"testing"

	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/vm"
)

func mustContext(t *testing.T, src, flags string) *FuzzContext {
	t.Helper()
	p, err := ast.Parse(src, flags)
	if err != nil {
		t.Fatalf("ast.Parse(%q) failed: %v", src, err)
	}
	fc, err := NewFuzzContext(p)
	if err != nil {
		t.Fatalf("NewFuzzContext(%q) failed: %v", src, err)
	}
	return fc
}

func TestFStringToUStringExpandsRepeat(t *testing.T) {
	str := NewFString([]FElem{NewRepeat([]rune("ab"), 3)})
	got := string(str.ToUString())
	want := "ababab"
	if got != want {
		t.Fatalf("ToUString() = %q, want %q", got, want)
	}
}

func TestFStringMapNScalesCount(t *testing.T) {
	str := NewFString([]FElem{NewRepeat([]rune("x"), 2)})
	scaled := str.MapN(5)
	got := string(scaled.ToUString())
	want := "xxxxxxxxxx"
	if got != want {
		t.Fatalf("MapN(5).ToUString() = %q, want %q", got, want)
	}
}

func TestFStringCrossSwapsTails(t *testing.T) {
	a := NewFString([]FElem{Wrap('a'), Wrap('a'), Wrap('a')})
	b := NewFString([]FElem{Wrap('b'), Wrap('b'), Wrap('b')})
	off1, off2 := a.Cross(b, 1, 2)
	if got := string(off1.ToUString()); got != "ab" {
		t.Fatalf("off1 = %q, want %q", got, "ab")
	}
	if got := string(off2.ToUString()); got != "bbaa" {
		t.Fatalf("off2 = %q, want %q", got, "bbaa")
	}
}

func TestNewFuzzContextExtractsLiteralParts(t *testing.T) {
	fc := mustContext(t, "^foo(a+)bar$", "")
	found := false
	for _, part := range fc.Parts {
		if string(part) == "foo" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a literal part %q among %v", "foo", fc.Parts)
	}
}

func TestCheckFindsExponentialAttack(t *testing.T) {
	fc := mustContext(t, "^(a*)*$", "")
	cfg := DefaultConfig()
	cfg.MaxIteration = 5
	res, _, err := Check(fc, cfg, graph.NoTimeout)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if !res.Vulnerable {
		t.Fatalf("^(a*)*$: expected a confirmed attack, got none")
	}
	if len(res.Attack) == 0 {
		t.Fatalf("expected a non-empty attack string")
	}
}

func TestCheckReportsSafeOnConstantPattern(t *testing.T) {
	fc := mustContext(t, "^abc$", "")
	cfg := DefaultConfig()
	cfg.MaxIteration = 2
	res, _, err := Check(fc, cfg, graph.NoTimeout)
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if res.Vulnerable {
		t.Fatalf("^abc$: expected no attack, got %q", string(res.Attack))
	}
}

func TestAdmitTreatsFreshLiteralPartAsNovel(t *testing.T) {
	fc := mustContext(t, "^foo(a+)bar$", "")
	gen := newGeneration()
	gen.MinRate = 1e9 // nothing can beat this on rate alone
	pop := newPopulation(gen)

	with := runTrace(fc, NewFString([]FElem{Wrap('f'), Wrap('o'), Wrap('o')}), 1000)
	if !pop.Admit(with) {
		t.Fatalf("expected a candidate containing a fresh literal part to be admitted")
	}
	again := runTrace(fc, NewFString([]FElem{Wrap('f'), Wrap('o'), Wrap('o')}), 1000)
	if pop.Admit(again) {
		t.Fatalf("expected an already-seen input to be rejected")
	}
}

func TestRunTraceReportsSteps(t *testing.T) {
	fc := mustContext(t, "^a+$", "")
	str := NewFString([]FElem{NewRepeat([]rune("a"), 5)})
	tr := runTrace(fc, str, 1000)
	if tr.Steps <= 0 {
		t.Fatalf("expected positive step count, got %d", tr.Steps)
	}
}

func TestConfigValidateRejectsZeroRandom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Random = nil
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to reject a nil Random")
	}
}

func TestMutateDeleteShrinksCandidate(t *testing.T) {
	fc := mustContext(t, "^a+$", "")
	cfg := DefaultConfig()
	cfg.Random = NewMathRandom(7)
	str := NewFString([]FElem{Wrap('a'), Wrap('a'), Wrap('a')})
	t0 := Trace{Str: str}
	out := mutateDelete(fc, cfg, t0)
	if out.Size() >= str.Size() {
		t.Fatalf("mutateDelete did not shrink: got size %d from %d", out.Size(), str.Size())
	}
}

func TestLimitTracerIntegration(t *testing.T) {
	fc := mustContext(t, "^(a*)*b$", "")
	input := []rune("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	tracer := vm.NewLimitTracer(200)
	res := vm.Run(fc.Prog, input, 0, tracer)
	if res.Outcome != vm.LimitExceeded {
		t.Fatalf("expected LimitExceeded, got %v", res.Outcome)
	}
}
