// Package vm interprets a compiled pattern IR under ECMA-262 backtracking
// semantics: a flat instruction array driven by an explicit backtrack
// stack, instrumented by a Tracer that every dispatch passes through. It
// is the oracle both the attack-string validator and the fuzz checker's
// fitness function run candidate inputs against.
package vm

import "github.com/coregx/redosentinel/internal/ichar"

// Op enumerates the IR instruction set. Every instruction shares one
// branching shape (each Inst carries Next/Fail pc targets): a flat
// bytecode interpreter has no notion of "falling off the end of a block"
// to preserve, so there is nothing gained by splitting terminators from
// non-terminators.
type Op uint8

const (
	// OpOK accepts: the pattern matched ending at the current position.
	OpOK Op = iota
	// OpJmp unconditionally continues at Next.
	OpJmp
	// OpTry pushes a backtrack frame (failure continuation Fail, current
	// position, and a snapshot of captures) then continues at Next.
	OpTry
	// OpCmp compares reg Reg against N ("lt": reg<N, "ge": reg>=N),
	// continuing at Next if true, Fail otherwise.
	OpCmp
	// OpRollback pops the backtrack stack, restores position and
	// captures, and resumes at the popped frame's pc. An empty stack
	// means the whole match failed.
	OpRollback
	// OpTx runs Sub as a nested, non-consuming sub-match (lookaround). If
	// !Behind (lookahead), Sub is run forward from the current position
	// and succeeds if it matches anything. If Behind (lookbehind), Sub is
	// tried forward from every candidate start position at or before the
	// current position, and succeeds if some attempt matches ending
	// exactly at the current position — the input already consumed is
	// scanned again rather than run through a reversed program, since
	// Sub's own compiled form already encodes left-to-right order.
	// Success XOR Invert continues at Next; otherwise at Fail.
	OpTx
	// OpPushCanary records the current position under Reg, to detect a
	// repetition body that matched without consuming.
	OpPushCanary
	// OpCheckCanary compares the current position to the position saved
	// under Reg: equal (zero-width iteration) continues at Next ("stop
	// looping"), otherwise at Fail ("loop again").
	OpCheckCanary
	// OpResetReg zeroes counter register Reg.
	OpResetReg
	// OpIncReg increments counter register Reg.
	OpIncReg
	// OpAssert checks a zero-width condition (AssertKind) at the current
	// position, continuing at Next if satisfied, Fail otherwise.
	OpAssert
	// OpRead consumes one code point forward if it is in Set.
	OpRead
	// OpReadBackref consumes capture group CapIndex's captured text
	// forward, comparing case-insensitively if IgnoreCase.
	OpReadBackref
	// OpCapBegin records the current position as capture CapIndex's start.
	OpCapBegin
	// OpCapEnd records the current position as capture CapIndex's end.
	OpCapEnd
	// OpCapReset clears captures [CapFrom, CapTo) to unset, run at the
	// head of a repetition body so an abandoned partial iteration doesn't
	// leave stale captures visible (ECMA-262 semantics).
	OpCapReset
)

// AssertKind enumerates the zero-width assertions OpAssert checks, mirrors
// enfa.AssertKind so the compiler can carry it straight through.
type AssertKind uint8

const (
	AssertLineBegin AssertKind = iota
	AssertLineEnd
	AssertWordBoundary
	AssertNotWordBoundary
)

// Inst is one instruction. Only the fields relevant to Op are meaningful;
// see each Op's doc comment.
type Inst struct {
	Op Op

	Next, Fail int // pc targets

	Reg int // OpCmp/OpPushCanary/OpCheckCanary/OpResetReg/OpIncReg
	N   int // OpCmp: comparison bound
	GE  bool // OpCmp: true means ">=", false means "<"

	Set []ichar.IChar // OpRead
	// ASCIIMask mirrors Set over the [0,128) range: a precomputed
	// membership table so OpRead can answer ASCII inputs (the overwhelming
	// majority of the fuzz seed corpus) with an array index instead of
	// scanning Set's intervals. See internal/simd.
	ASCIIMask [128]bool // OpRead

	Assert AssertKind // OpAssert

	CapIndex       int  // OpCapBegin/OpCapEnd/OpReadBackref
	CapFrom, CapTo int  // OpCapReset
	IgnoreCase     bool // OpReadBackref

	Sub    *Program // OpTx
	Invert bool     // OpTx
	Behind bool     // OpTx
}

// Program is a compiled pattern: a flat instruction array plus the static
// counts needed to size a Machine's registers and capture slots.
type Program struct {
	Insts    []Inst
	Entry    int
	NumRegs  int
	NumCaps  int // number of capture groups including group 0 (whole match)
}
