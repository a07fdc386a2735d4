package fuzzcheck

import (
	"sort"

	"github.com/coregx/redosentinel/internal/vm"
)

// Trace is one evaluated candidate: its FString, the fitness signal
// (Rate), the step count observed, the coverage set its run contributed,
// and which of the pattern's literal parts the expanded input contains.
type Trace struct {
	Str    FString
	Rate   float64
	Steps  int
	tracer *vm.FuzzTracer
	parts  []bool
}

// runTrace executes str's expansion through the VM under a FuzzTracer
// capped at limit steps.
func runTrace(fc *FuzzContext, str FString, limit int) Trace {
	input := str.ToUString()
	tracer := vm.NewFuzzTracer(limit, len(input))
	vm.Run(fc.Prog, input, 0, tracer)
	return Trace{
		Str:    str,
		Rate:   tracer.Rate(),
		Steps:  tracer.Steps(),
		tracer: tracer,
		parts:  fc.PartsPresent(input),
	}
}

const coverageSink = 1 << 30

// Generation is the immutable, rate-sorted, size-capped result of one
// search iteration.
type Generation struct {
	MinRate float64
	Traces  []Trace
	Inputs  map[string]bool
	Covered *vm.FuzzTracer

	// PartsSeen records, per literal part of the pattern, whether any
	// admitted candidate so far contained it. A candidate exercising a
	// part of the pattern's literal surface for the first time counts as
	// novel coverage regardless of its VM trace.
	PartsSeen []bool
}

func newGeneration() *Generation {
	return &Generation{Inputs: map[string]bool{}, Covered: vm.NewFuzzTracer(coverageSink, 0)}
}

// Population is the mutable working set a single iteration accumulates
// into before being collapsed back into the next Generation.
type Population struct {
	gen    *Generation
	traces []Trace
}

// newPopulation seeds a Population from a Generation: its admission rule
// starts from the parent's visited-inputs and coverage sets, so later
// admits are judged novel against everything the search has seen so far,
// not just this iteration.
func newPopulation(gen *Generation) *Population {
	return &Population{gen: gen}
}

// key renders a trace's expanded input as a dedup key.
func key(str FString) string {
	return string(str.ToUString())
}

// Admit applies the admission rule: a candidate is accepted iff it hasn't
// been seen before, and either the parent generation is the initial one
// (MinRate == 0, nothing to beat yet), or its rate is at least the parent's
// MinRate, or it introduces coverage the search hasn't seen before.
func (p *Population) Admit(t Trace) bool {
	k := key(t.Str)
	if p.gen.Inputs[k] {
		return false
	}
	novel := p.gen.Covered.NewCoverage(t.tracer) > 0 || p.newParts(t.parts)
	if p.gen.MinRate > 0 && t.Rate < p.gen.MinRate && !novel {
		return false
	}
	p.gen.Inputs[k] = true
	p.gen.Covered.Merge(t.tracer)
	p.mergeParts(t.parts)
	p.traces = append(p.traces, t)
	return true
}

// newParts reports whether t's part mask covers a literal part no admitted
// candidate has contained yet.
func (p *Population) newParts(parts []bool) bool {
	for i, present := range parts {
		if present && (i >= len(p.gen.PartsSeen) || !p.gen.PartsSeen[i]) {
			return true
		}
	}
	return false
}

func (p *Population) mergeParts(parts []bool) {
	if len(p.gen.PartsSeen) < len(parts) {
		grown := make([]bool, len(parts))
		copy(grown, p.gen.PartsSeen)
		p.gen.PartsSeen = grown
	}
	for i, present := range parts {
		if present {
			p.gen.PartsSeen[i] = true
		}
	}
}

// ToGeneration collapses p into the next Generation: traces sorted by rate
// descending, truncated to maxSize, with MinRate taken from the weakest
// surviving trace.
func (p *Population) ToGeneration(maxSize int) *Generation {
	traces := append([]Trace(nil), p.traces...)
	sort.Slice(traces, func(i, j int) bool { return traces[i].Rate > traces[j].Rate })
	if len(traces) > maxSize {
		traces = traces[:maxSize]
	}
	minRate := 0.0
	if len(traces) > 0 {
		minRate = traces[len(traces)-1].Rate
	}
	return &Generation{MinRate: minRate, Traces: traces, Inputs: p.gen.Inputs, Covered: p.gen.Covered, PartsSeen: p.gen.PartsSeen}
}
