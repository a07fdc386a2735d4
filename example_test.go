package redosentinel_test

import (
	"fmt"

	"github.com/coregx/redosentinel"
)

// ExampleAnalyze demonstrates checking a safe pattern.
func ExampleAnalyze() {
	d, err := redosentinel.Analyze("^abc$", "")
	if err != nil {
		panic(err)
	}

	fmt.Println(d.Outcome)
	// Output: Safe
}

// ExampleAnalyze_vulnerable demonstrates detecting catastrophic
// backtracking in a nested repetition.
func ExampleAnalyze_vulnerable() {
	d, err := redosentinel.Analyze("^(a*)*$", "")
	if err != nil {
		panic(err)
	}

	fmt.Println(d.Outcome, d.Complexity)
	// Output: Vulnerable Exponential
}

// ExampleAnalyzeWithConfig demonstrates restricting analysis to the
// automaton checker, which cannot model lookaround.
func ExampleAnalyzeWithConfig() {
	cfg := redosentinel.DefaultConfig()
	cfg.Checker = redosentinel.CheckerAutomaton

	d, err := redosentinel.AnalyzeWithConfig("(?=a)b", "", cfg)
	if err != nil {
		panic(err)
	}

	fmt.Println(d.Outcome, d.ErrorKind)
	// Output: Unknown Unsupported
}
