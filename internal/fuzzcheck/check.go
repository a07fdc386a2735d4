package fuzzcheck

import (
	"math"

	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/vm"
)

// Result is the fuzz checker's verdict on a single trace that exceeded its
// step budget: whether a concrete attack string was confirmed, the degree
// at which the confirming run succeeded (0 means the exponential-style
// probe caught it; >=2 names the polynomial degree that did), and the
// attack string itself.
type Result struct {
	Vulnerable bool
	Degree     int
	Attack     []rune
}

// Check runs the seed/execute/iterate search: seed
// candidates from the pattern's own literal parts and alphabet, evaluate
// each under a step-budgeted FuzzTracer, escalate any candidate that hits
// the budget into tryAttack, and otherwise admit it into the next
// generation via crossover and mutation, up to cfg.MaxIteration rounds.
func Check(fc *FuzzContext, cfg Config, to graph.Timeout) (Result, Stats, error) {
	if err := cfg.Validate(); err != nil {
		return Result{}, Stats{}, err
	}

	var stats Stats
	gen := newGeneration()

	cands := seeds(fc, cfg)
	pop := newPopulation(gen)
	for _, s := range cands {
		if err := to.Check("fuzzcheck.seed"); err != nil {
			return Result{}, stats, err
		}
		t := runTrace(fc, s, cfg.PopulationLimit)
		if t.Steps >= cfg.PopulationLimit {
			stats.AttackAttempts++
			if res, ok := tryAttack(fc, s, cfg); ok {
				return res, stats, nil
			}
			continue
		}
		if pop.Admit(t) {
			stats.SeedsAdmitted++
		}
	}
	gen = pop.ToGeneration(cfg.MaxGenerationSize)

	for iter := 0; iter < cfg.MaxIteration; iter++ {
		if err := to.Check("fuzzcheck.iteration"); err != nil {
			return Result{}, stats, err
		}
		stats.GenerationsRun++
		if len(gen.Traces) == 0 {
			break
		}
		pop = newPopulation(gen)

		for i := 0; i < cfg.CrossSize; i++ {
			a := gen.Traces[cfg.Random.Intn(len(gen.Traces))]
			b := gen.Traces[cfg.Random.Intn(len(gen.Traces))]
			stats.CrossoversTried++
			off1, off2 := crossover(cfg, a, b)
			for _, off := range []FString{off1, off2} {
				if res, escalated := evaluate(fc, cfg, off, pop, &stats); escalated {
					return res, stats, nil
				}
			}
		}

		for i := 0; i < cfg.MutateSize; i++ {
			base := gen.Traces[cfg.Random.Intn(len(gen.Traces))]
			m := mutators[cfg.Random.Intn(len(mutators))]
			stats.MutationsTried++
			off := m(fc, cfg, base)
			if res, escalated := evaluate(fc, cfg, off, pop, &stats); escalated {
				return res, stats, nil
			}
		}

		gen = pop.ToGeneration(cfg.MaxGenerationSize)
	}

	return Result{Vulnerable: false}, stats, nil
}

// evaluate runs one candidate and either escalates it to tryAttack (when it
// exhausts its step budget) or offers it to pop for admission. The second
// return value reports whether an attack was confirmed and Check should
// stop the search.
func evaluate(fc *FuzzContext, cfg Config, s FString, pop *Population, stats *Stats) (Result, bool) {
	t := runTrace(fc, s, cfg.PopulationLimit)
	if t.Steps >= cfg.PopulationLimit {
		stats.AttackAttempts++
		if res, ok := tryAttack(fc, s, cfg); ok {
			return res, true
		}
		return Result{}, false
	}
	pop.Admit(t)
	return Result{}, false
}

// tryAttack escalates a candidate that has shown runaway behavior into a
// confirmed attack string: first probe with an exponential-scale
// repetition count, then — if that overshoots MaxAttackSize or simply
// doesn't blow the budget — retry at each polynomial degree from
// MaxDegree down to 2.
func tryAttack(fc *FuzzContext, str FString, cfg Config) (Result, bool) {
	if str.IsConstant() {
		// Nothing to scale; a constant candidate either already blows the
		// larger attack budget or it never will.
		if confirmAttack(fc, str, cfg) {
			return Result{Vulnerable: true, Degree: 0, Attack: str.ToUString()}, true
		}
		return Result{}, false
	}

	n := float64(str.N)
	if n < 1 {
		n = 1
	}

	r := math.Log2(float64(cfg.AttackLimit)) / n
	if r < 1 {
		r = 1
	}
	scaled := str.MapN(int(math.Ceil(n * r)))
	if confirmAttack(fc, scaled, cfg) {
		return Result{Vulnerable: true, Degree: 0, Attack: scaled.ToUString()}, true
	}

	rate := cfg.StepRate
	if rate <= 0 {
		rate = 1
	}
	for d := cfg.MaxDegree; d >= 2; d-- {
		r := rate * math.Pow(float64(cfg.AttackLimit), 1/float64(d)) / n
		if r < 1 {
			continue
		}
		scaled := str.MapN(int(math.Ceil(n * r)))
		if confirmAttack(fc, scaled, cfg) {
			return Result{Vulnerable: true, Degree: d, Attack: scaled.ToUString()}, true
		}
	}

	return Result{}, false
}

// confirmAttack runs str through the VM under a plain LimitTracer capped at
// AttackLimit, accepting it as a confirmed attack when the run is aborted
// and the expanded string still fits within MaxAttackSize.
func confirmAttack(fc *FuzzContext, str FString, cfg Config) bool {
	input := str.ToUString()
	if len(input) > cfg.MaxAttackSize {
		return false
	}
	tracer := vm.NewLimitTracer(cfg.AttackLimit)
	res := vm.Run(fc.Prog, input, 0, tracer)
	return res.Outcome == vm.LimitExceeded
}
