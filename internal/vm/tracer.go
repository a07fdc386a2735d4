package vm

// LimitTracer is the plain step-limiting Tracer: it refuses every
// dispatch once Limit steps have been observed, giving the attack-string
// validator and any other direct VM caller a hard ceiling on backtracking
// work without relying on the caller unwinding a panic.
type LimitTracer struct {
	Limit int
	steps int
}

// NewLimitTracer returns a LimitTracer capped at limit dispatched steps.
func NewLimitTracer(limit int) *LimitTracer {
	return &LimitTracer{Limit: limit}
}

// Step implements Tracer.
func (t *LimitTracer) Step(pc, pos, shape int, backtrack bool) bool {
	t.steps++
	return t.steps <= t.Limit
}

// Steps reports how many dispatches have been observed so far.
func (t *LimitTracer) Steps() int { return t.steps }

// coverageKey is one entry of a FuzzTracer's coverage set: the dispatched
// instruction, the backtrack stack's shape digest at dispatch, and whether
// the dispatch resumed from a backtrack. Stack shape is what separates
// deep nested backtracking from a linear scan over the same instructions,
// and the direction flag separates forward progress from re-tries of
// already-visited ground.
type coverageKey struct {
	pc        int
	shape     int
	backtrack bool
}

// FuzzTracer is the coverage-guided Tracer the fuzz checker drives its
// population search with: beyond LimitTracer's step cap, it accumulates a
// coverage set of (instruction, stack-shape, direction) triples so the
// search can tell a candidate that explores new VM behavior from one that
// retreads already-seen ground, and it tracks the steps-per-input-length
// ratio the fitness function escalates on.
type FuzzTracer struct {
	Limit int

	steps    int
	coverage map[coverageKey]bool
	inputLen int
}

// NewFuzzTracer returns a FuzzTracer capped at limit steps, computing
// Rate against an input of the given length.
func NewFuzzTracer(limit, inputLen int) *FuzzTracer {
	return &FuzzTracer{Limit: limit, coverage: make(map[coverageKey]bool), inputLen: inputLen}
}

// Step implements Tracer.
func (t *FuzzTracer) Step(pc, pos, shape int, backtrack bool) bool {
	t.steps++
	if t.steps > t.Limit {
		return false
	}
	t.coverage[coverageKey{pc: pc, shape: shape, backtrack: backtrack}] = true
	return true
}

// Steps reports the dispatch count observed so far.
func (t *FuzzTracer) Steps() int { return t.steps }

// CoverageSize reports the number of distinct (pc, stack-shape, direction)
// triples seen: the search's novelty signal.
func (t *FuzzTracer) CoverageSize() int { return len(t.coverage) }

// Rate returns steps per input rune, the blow-up signal the fitness
// function escalates a population toward: candidates whose step count
// grows faster than their length are the interesting ones.
func (t *FuzzTracer) Rate() float64 {
	if t.inputLen == 0 {
		return float64(t.steps)
	}
	return float64(t.steps) / float64(t.inputLen)
}

// Merge folds other's coverage into t, used after a population member's
// run to update the search's global coverage frontier.
func (t *FuzzTracer) Merge(other *FuzzTracer) {
	for k := range other.coverage {
		t.coverage[k] = true
	}
}

// NewCoverage reports how many of other's coverage keys are not already in
// t: the marginal novelty other's run contributed.
func (t *FuzzTracer) NewCoverage(other *FuzzTracer) int {
	n := 0
	for k := range other.coverage {
		if !t.coverage[k] {
			n++
		}
	}
	return n
}
