package redosentinel

import (
	"testing"

	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/automaton"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/vm"
)

func parseForTest(src string) (ast.Pattern, error) {
	return ast.Parse(src, "")
}

func TestAnalyzeConstantPatternIsSafe(t *testing.T) {
	d, err := Analyze("^abc$", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.Outcome != Safe {
		t.Fatalf("^abc$: got %s, want Safe", d.Outcome)
	}
	if d.Checker != CheckerAutomaton {
		t.Fatalf("^abc$: got checker %s, want Automaton", d.Checker)
	}
}

func TestAnalyzeExponentialPatternIsVulnerable(t *testing.T) {
	d, err := Analyze("^(a*)*$", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.Outcome != Vulnerable {
		t.Fatalf("^(a*)*$: got %s, want Vulnerable", d.Outcome)
	}
	if len(d.Attack) == 0 {
		t.Fatalf("expected a non-empty attack string")
	}
}

func TestAnalyzeFallsBackToFuzzOnLookaround(t *testing.T) {
	d, err := Analyze("^(?=a)(a*)*b$", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.Checker != CheckerFuzz {
		t.Fatalf("lookaround pattern: got checker %s, want Fuzz", d.Checker)
	}
}

func TestAnalyzeInvalidPatternReportsUnknown(t *testing.T) {
	d, err := Analyze("(", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.Outcome != Unknown {
		t.Fatalf("unbalanced group: got %s, want Unknown", d.Outcome)
	}
	if d.ErrorKind != errs.KindInvalidRegExp {
		t.Fatalf("unbalanced group: got error kind %s, want InvalidRegExp", d.ErrorKind)
	}
}

func TestAnalyzeWithConfigCheckerAutomatonReportsUnsupported(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Checker = CheckerAutomaton
	d, err := AnalyzeWithConfig("(?=a)b", "", cfg)
	if err != nil {
		t.Fatalf("AnalyzeWithConfig failed: %v", err)
	}
	if d.Outcome != Unknown || d.ErrorKind != errs.KindUnsupported {
		t.Fatalf("lookaround under Automaton-only: got %s, want Unknown(Unsupported)", d.String())
	}
}

func TestSkipAutomatonOnLargeRepeatCount(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRepeatCount = 5
	d, err := AnalyzeWithConfig("^a{2,9}$", "", cfg)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.Checker != CheckerFuzz {
		t.Fatalf("expected MaxRepeatCount guard to route to Fuzz, got %s", d.Checker)
	}
}

func TestBoundedRepeatBelowGuardStaysOnAutomaton(t *testing.T) {
	d, err := Analyze("^a{3,5}b$", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.Outcome != Safe || d.Checker != CheckerAutomaton {
		t.Fatalf("^a{3,5}b$: got %s, want Safe via Automaton", d.String())
	}
	if !d.HasComplexity || d.Complexity != automaton.Linear {
		t.Fatalf("^a{3,5}b$: got complexity %s, want Linear", d.Complexity)
	}
}

func TestAnalyzeAttackTriggersStepLimit(t *testing.T) {
	d, err := Analyze("^(a+)+$", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.Outcome != Vulnerable {
		t.Fatalf("^(a+)+$: got %s, want Vulnerable", d.Outcome)
	}
	p, perr := parseForTest("^(a+)+$")
	if perr != nil {
		t.Fatal(perr)
	}
	prog, cerr := vm.Compile(p)
	if cerr != nil {
		t.Fatal(cerr)
	}
	res := vm.Run(prog, d.Attack, 0, vm.NewLimitTracer(1000000))
	if res.Outcome != vm.LimitExceeded {
		t.Fatalf("expected the emitted attack to exhaust the step budget, got %v", res.Outcome)
	}
}

func TestAnalyzeDeterministicAcrossRuns(t *testing.T) {
	first, err := Analyze("^(a|a)*$", "")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := Analyze("^(a|a)*$", "")
		if err != nil {
			t.Fatalf("Analyze failed: %v", err)
		}
		if again.String() != first.String() || string(again.Attack) != string(first.Attack) {
			t.Fatalf("run %d diverged: %s vs %s", i, again.String(), first.String())
		}
	}
}

func TestAnalyzeAttackRespectsMaxAttackSize(t *testing.T) {
	cfg := DefaultConfig()
	d, err := AnalyzeWithConfig("^(a*)*$", "", cfg)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if d.Outcome != Vulnerable {
		t.Fatalf("^(a*)*$: got %s, want Vulnerable", d.Outcome)
	}
	if len(d.Attack) > cfg.MaxAttackSize {
		t.Fatalf("attack length %d exceeds MaxAttackSize %d", len(d.Attack), cfg.MaxAttackSize)
	}
}

func TestConfigValidateRejectsZeroMaxNFASize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNFASize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to reject MaxNFASize=0")
	}
}

func TestDiagnosticsStringIncludesChecker(t *testing.T) {
	d := Diagnostics{Outcome: Safe, Checker: CheckerAutomaton}
	if got := d.String(); got == "" {
		t.Fatalf("String() returned empty")
	}
}
