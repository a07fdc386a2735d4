package vm

import (
	"github.com/coregx/redosentinel/internal/ichar"
	"github.com/coregx/redosentinel/internal/simd"
	"github.com/coregx/redosentinel/internal/uchar"
)

// Outcome classifies how a Run terminated.
type Outcome uint8

const (
	// NoMatch means every backtrack alternative was exhausted without
	// reaching OpOK.
	NoMatch Outcome = iota
	// Matched means an OpOK was reached; Result.Caps and Result.End are
	// meaningful.
	Matched
	// LimitExceeded means the Tracer's Step refused a dispatch before a
	// verdict was reached. Modeled as a result variant rather than a panic
	// or error return, since a capped-out match attempt is an expected,
	// common outcome for the oracle this VM serves: the fuzz checker and
	// the attack-string validator both need to keep running after one
	// candidate times out.
	LimitExceeded
)

// Result is what Run returns: the outcome, the capture slots (as
// [start0,end0,start1,end1,...] with -1 for an unset bound) when Matched,
// and the step count the Tracer observed.
type Result struct {
	Outcome Outcome
	Caps    []int
	End     int
	Steps   int
}

// Tracer is consulted once per dispatched instruction. Step returns false
// to abort the run (the caller sees LimitExceeded); a Tracer may also use
// the call to accumulate its own signal (step counts, coverage) alongside
// the machine's own bookkeeping. shape is a digest of the backtrack
// stack's current shape (depth and resume point), and backtrack reports
// whether this dispatch resumes from a popped backtrack frame rather than
// continuing forward.
type Tracer interface {
	Step(pc, pos, shape int, backtrack bool) bool
}

// frame is one backtrack-stack entry: the position and register/capture
// state to restore, and the pc to resume at, when a later instruction
// fails.
type frame struct {
	pc   int
	pos  int
	caps []int
	regs []int
}

// Run executes prog against input starting at pos, under tracer. Run never
// panics on a normal non-match; it returns NoMatch. Input is checked once
// for being ASCII-only (internal/simd); OpRead then answers membership via
// each instruction's precomputed ASCIIMask instead of scanning Set — the
// fuzz corpus is overwhelmingly ASCII, so this is the common path.
// Non-ASCII runes always fall back to the interval scan.
func Run(prog *Program, input []rune, pos int, tracer Tracer) Result {
	m := &machine{prog: prog, input: input, tracer: tracer, ascii: simd.IsASCIIRunes(input)}
	return m.run(prog.Entry, pos, make([]int, prog.NumCaps*2), make([]int, prog.NumRegs))
}

type machine struct {
	prog   *Program
	input  []rune
	tracer Tracer
	steps  int
	ascii  bool
}

func newCaps(n int) []int {
	c := make([]int, n)
	for i := range c {
		c[i] = -1
	}
	return c
}

func cloneInts(s []int) []int {
	out := make([]int, len(s))
	copy(out, s)
	return out
}

func (m *machine) run(entry, startPos int, caps, regs []int) Result {
	pc := entry
	pos := startPos
	for i := range caps {
		caps[i] = -1
	}
	var stack []frame
	backtracked := false

	push := func(failPC, curPos int) {
		stack = append(stack, frame{pc: failPC, pos: curPos, caps: cloneInts(caps), regs: cloneInts(regs)})
	}
	rollback := func() bool {
		if len(stack) == 0 {
			return false
		}
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pc = top.pc
		pos = top.pos
		copy(caps, top.caps)
		copy(regs, top.regs)
		backtracked = true
		return true
	}
	// shape digests the backtrack stack: its depth plus the pc the next
	// rollback would resume at, which together distinguish "deep in a
	// nested repetition" from "same pc, shallow stack".
	shape := func() int {
		if len(stack) == 0 {
			return 0
		}
		return len(stack)<<16 | stack[len(stack)-1].pc&0xffff
	}

	for {
		m.steps++
		if m.tracer != nil && !m.tracer.Step(pc, pos, shape(), backtracked) {
			return Result{Outcome: LimitExceeded, Steps: m.steps}
		}
		backtracked = false

		inst := m.prog.Insts[pc]
		switch inst.Op {
		case OpOK:
			return Result{Outcome: Matched, Caps: cloneInts(caps), End: pos, Steps: m.steps}

		case OpJmp:
			pc = inst.Next

		case OpTry:
			push(inst.Fail, pos)
			pc = inst.Next

		case OpRollback:
			if !rollback() {
				return Result{Outcome: NoMatch, Steps: m.steps}
			}

		case OpCmp:
			ok := regs[inst.Reg] < inst.N
			if inst.GE {
				ok = regs[inst.Reg] >= inst.N
			}
			if ok {
				pc = inst.Next
			} else {
				pc = inst.Fail
			}

		case OpResetReg:
			regs[inst.Reg] = 0
			pc = inst.Next

		case OpIncReg:
			regs[inst.Reg]++
			pc = inst.Next

		case OpPushCanary:
			regs[inst.Reg] = pos
			pc = inst.Next

		case OpCheckCanary:
			if regs[inst.Reg] == pos {
				pc = inst.Next
			} else {
				pc = inst.Fail
			}

		case OpAssert:
			if m.checkAssert(inst.Assert, pos) {
				pc = inst.Next
			} else {
				pc = inst.Fail
			}

		case OpRead:
			if pos < len(m.input) && m.matchesRead(inst, m.input[pos]) {
				pos++
				pc = inst.Next
			} else {
				pc = inst.Fail
			}

		case OpReadBackref:
			n, ok := m.matchBackref(inst.CapIndex, pos, inst.IgnoreCase, caps)
			if ok {
				pos += n
				pc = inst.Next
			} else {
				pc = inst.Fail
			}

		case OpCapBegin:
			caps[inst.CapIndex*2] = pos
			pc = inst.Next

		case OpCapEnd:
			caps[inst.CapIndex*2+1] = pos
			pc = inst.Next

		case OpCapReset:
			for i := inst.CapFrom; i < inst.CapTo; i++ {
				caps[i*2] = -1
				caps[i*2+1] = -1
			}
			pc = inst.Next

		case OpTx:
			if m.runTx(inst, pos, caps) {
				pc = inst.Next
			} else {
				pc = inst.Fail
			}

		default:
			pc = inst.Fail
		}
	}
}

// matchesRead answers an OpRead membership test for rune r. ASCII inputs
// use inst's precomputed mask; anything outside the ASCII range (or any
// rune at all when the input wasn't confirmed ASCII) falls back to the
// interval scan.
func (m *machine) matchesRead(inst Inst, r rune) bool {
	if m.ascii && r < 128 {
		return inst.ASCIIMask[r]
	}
	return inSetSlow(r, inst.Set)
}

// inSetSlow reports whether r falls in any of set's intervals.
func inSetSlow(r rune, set []ichar.IChar) bool {
	for _, ic := range set {
		if ic.Runes.Contains(uchar.UChar(r)) {
			return true
		}
	}
	return false
}

func (m *machine) checkAssert(k AssertKind, pos int) bool {
	switch k {
	case AssertLineBegin:
		return pos == 0 || isLineTerminator(m.input[pos-1])
	case AssertLineEnd:
		return pos == len(m.input) || isLineTerminator(m.input[pos])
	case AssertWordBoundary:
		return m.isWordAt(pos-1) != m.isWordAt(pos)
	case AssertNotWordBoundary:
		return m.isWordAt(pos-1) == m.isWordAt(pos)
	default:
		return false
	}
}

func (m *machine) isWordAt(i int) bool {
	if i < 0 || i >= len(m.input) {
		return false
	}
	return ichar.WordChars().Runes.Contains(uchar.UChar(m.input[i]))
}

func isLineTerminator(r rune) bool {
	return ichar.LineTerminators().Runes.Contains(uchar.UChar(r))
}

// matchBackref compares the input starting at pos against the text
// captured by group idx, returning the number of runes consumed on
// success. An unset (or never-entered) group matches the empty string, per
// ECMA-262.
func (m *machine) matchBackref(idx, pos int, ignoreCase bool, caps []int) (int, bool) {
	start, end := caps[idx*2], caps[idx*2+1]
	if start < 0 || end < 0 {
		return 0, true
	}
	length := end - start
	if pos+length > len(m.input) {
		return 0, false
	}
	for i := 0; i < length; i++ {
		a, b := m.input[start+i], m.input[pos+i]
		if a == b {
			continue
		}
		if ignoreCase && uchar.Canonicalize(uchar.UChar(a)) == uchar.Canonicalize(uchar.UChar(b)) {
			continue
		}
		return 0, false
	}
	return length, true
}

// runTx executes a lookaround sub-program. Lookahead runs Sub forward from
// pos once; lookbehind retries Sub forward from every start position s in
// [pos,0], accepting the first one whose match ends exactly at pos — Sub's
// own compiled order is always left-to-right, so scanning candidate starts
// stands in for running it "backward" (see Op's doc comment in ir.go).
func (m *machine) runTx(inst Inst, pos int, outerCaps []int) bool {
	var matched bool
	if !inst.Behind {
		sub := &machine{prog: inst.Sub, input: m.input, tracer: m.tracer, ascii: m.ascii}
		res := sub.run(inst.Sub.Entry, pos, newCaps(inst.Sub.NumCaps*2), make([]int, inst.Sub.NumRegs))
		m.steps += sub.steps
		matched = res.Outcome == Matched
		if matched && !inst.Invert {
			mergeCaps(outerCaps, res.Caps)
		}
	} else {
		for s := pos; s >= 0; s-- {
			sub := &machine{prog: inst.Sub, input: m.input, tracer: m.tracer, ascii: m.ascii}
			res := sub.run(inst.Sub.Entry, s, newCaps(inst.Sub.NumCaps*2), make([]int, inst.Sub.NumRegs))
			m.steps += sub.steps
			if res.Outcome == Matched && res.End == pos {
				matched = true
				if !inst.Invert {
					mergeCaps(outerCaps, res.Caps)
				}
				break
			}
			if res.Outcome == LimitExceeded {
				break
			}
		}
	}
	return matched != inst.Invert
}

// mergeCaps copies every set slot of sub into outer: a lookaround that
// matches still records the capture groups inside it (ECMA-262 §22.2.2.8).
func mergeCaps(outer, sub []int) {
	for i := 0; i < len(sub) && i < len(outer); i++ {
		if sub[i] >= 0 {
			outer[i] = sub[i]
		}
	}
}
