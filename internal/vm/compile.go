package vm

import (
	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/ichar"
	"github.com/coregx/redosentinel/internal/uchar"
)

// compiler assembles a Program via continuation-passing compilation: each
// compileX(node, cont) returns the entry pc of node's compiled form, whose
// every exit jumps to cont. This mirrors the ε-NFA compiler's fragment
// linking (enfa/compile.go) at the bytecode level instead of the automaton
// level, letting the VM run constructs (lookaround, back-references) the
// automaton path does not model.
type compiler struct {
	p        *Program
	icharSet *ichar.ICharSet
	flags    ast.FlagSet
	bound    uchar.UChar
	names    map[string]int
	nextReg  int
	rollback int // shared OpRollback instruction index
}

// Compile builds a Program for p, in the style of enfa.Compile: an
// alphabet refinement is collected first so every Read instruction's Set
// is expressed over the same disjoint atoms the automaton path uses,
// keeping the two paths' character-class semantics identical.
func Compile(p ast.Pattern) (*Program, error) {
	icharSet := ichar.NewICharSet()
	collectAlphabet(p.Root, p.Flags, icharSet)

	bound := uchar.UChar(uchar.MaxBMP)
	if p.Flags.Unicode {
		bound = uchar.MaxUnicode
	}
	icharSet.Add(ichar.New(uchar.Range(0, bound), false, false))

	c := &compiler{
		p:        &Program{},
		icharSet: icharSet,
		flags:    p.Flags,
		bound:    bound,
		names:    collectNames(p.Root, map[string]int{}),
	}
	c.rollback = c.emit(Inst{Op: OpRollback})

	numCaps := 1 + maxCaptureIndex(p.Root)
	c.p.NumCaps = numCaps

	okPC := c.emit(Inst{Op: OpOK})
	capEnd := c.emit(Inst{Op: OpCapEnd, CapIndex: 0, Next: okPC, Fail: c.rollback})
	entry, err := c.compileNode(p.Root, capEnd)
	if err != nil {
		return nil, err
	}
	entry = c.emit(Inst{Op: OpCapBegin, CapIndex: 0, Next: entry, Fail: c.rollback})

	if !p.Flags.Sticky && !p.HasLineBeginAtBegin() {
		entry = c.wrapUnanchored(entry)
	}

	c.p.Entry = entry
	c.p.NumRegs = c.nextReg
	return c.p, nil
}

func (c *compiler) emit(i Inst) int {
	c.p.Insts = append(c.p.Insts, i)
	return len(c.p.Insts) - 1
}

func (c *compiler) allocReg() int {
	r := c.nextReg
	c.nextReg++
	return r
}

// collectAlphabet mirrors enfa.CollectAlphabet: a pre-pass that refines
// icharSet with every character-referencing atom in the pattern, so Read
// instructions can be expressed over the same disjoint atoms the
// automaton path uses.
func collectAlphabet(n ast.Node, flags ast.FlagSet, icharSet *ichar.ICharSet) {
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case ast.Disjunction:
			for _, a := range t.Alts {
				walk(a)
			}
		case ast.Sequence:
			for _, it := range t.Items {
				walk(it)
			}
		case ast.Capture:
			walk(t.Sub)
		case ast.NamedCapture:
			walk(t.Sub)
		case ast.Group:
			walk(t.Sub)
		case ast.Star:
			walk(t.Sub)
		case ast.Plus:
			walk(t.Sub)
		case ast.Question:
			walk(t.Sub)
		case ast.Repeat:
			walk(t.Sub)
		case ast.LookAhead:
			walk(t.Sub)
		case ast.LookBehind:
			walk(t.Sub)
		case ast.Character:
			ic := ichar.FromUChar(t.Char)
			if flags.IgnoreCase {
				ic = ic.Canonicalize()
			}
			icharSet.Add(ic)
		case ast.CharacterClass:
			icharSet.Add(classIChar(t, flags))
		case ast.SimpleEscapeClass:
			icharSet.Add(escapeIChar(t.Kind))
		case ast.UnicodeProperty:
			icharSet.Add(unicodePropertyIChar(t))
		case ast.Dot:
			bound := uchar.UChar(uchar.MaxBMP)
			if flags.Unicode {
				bound = uchar.MaxUnicode
			}
			icharSet.Add(ichar.Dot(flags.DotAll, bound))
		}
	}
	walk(n)
}

func classIChar(t ast.CharacterClass, flags ast.FlagSet) ichar.IChar {
	var set uchar.IntervalSet
	for _, it := range t.Items {
		set = set.Union(uchar.Range(it.Lo, it.Hi+1))
	}
	ic := ichar.New(set, false, false)
	if flags.IgnoreCase {
		ic = ic.Canonicalize()
	}
	return ic
}

func escapeIChar(k ast.EscapeKind) ichar.IChar {
	switch k {
	case ast.EscapeDigit, ast.EscapeNotDigit:
		return ichar.DigitChars()
	case ast.EscapeWord, ast.EscapeNotWord:
		return ichar.WordChars()
	default:
		return ichar.SpaceChars()
	}
}

func unicodePropertyIChar(t ast.UnicodeProperty) ichar.IChar {
	if set, ok := uchar.GeneralCategory(t.Name); ok {
		return ichar.New(set, false, false)
	}
	if set, ok := uchar.Script(t.Value); ok {
		return ichar.New(set, false, false)
	}
	if set, ok := uchar.Script(t.Name); ok {
		return ichar.New(set, false, false)
	}
	if set, ok := uchar.Binary(t.Name); ok {
		return ichar.New(set, false, false)
	}
	return ichar.New(uchar.Empty(), false, false)
}

func maxCaptureIndex(n ast.Node) int {
	max := 0
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case ast.Capture:
			if t.Index > max {
				max = t.Index
			}
			walk(t.Sub)
		case ast.NamedCapture:
			if t.Index > max {
				max = t.Index
			}
			walk(t.Sub)
		case ast.Group:
			walk(t.Sub)
		case ast.Disjunction:
			for _, a := range t.Alts {
				walk(a)
			}
		case ast.Sequence:
			for _, it := range t.Items {
				walk(it)
			}
		case ast.Star:
			walk(t.Sub)
		case ast.Plus:
			walk(t.Sub)
		case ast.Question:
			walk(t.Sub)
		case ast.Repeat:
			walk(t.Sub)
		case ast.LookAhead:
			walk(t.Sub)
		case ast.LookBehind:
			walk(t.Sub)
		}
	}
	walk(n)
	return max
}

func collectNames(n ast.Node, m map[string]int) map[string]int {
	switch t := n.(type) {
	case ast.NamedCapture:
		m[t.Name] = t.Index
		collectNames(t.Sub, m)
	case ast.Capture:
		collectNames(t.Sub, m)
	case ast.Group:
		collectNames(t.Sub, m)
	case ast.Disjunction:
		for _, a := range t.Alts {
			collectNames(a, m)
		}
	case ast.Sequence:
		for _, it := range t.Items {
			collectNames(it, m)
		}
	case ast.Star:
		collectNames(t.Sub, m)
	case ast.Plus:
		collectNames(t.Sub, m)
	case ast.Question:
		collectNames(t.Sub, m)
	case ast.Repeat:
		collectNames(t.Sub, m)
	case ast.LookAhead:
		collectNames(t.Sub, m)
	case ast.LookBehind:
		collectNames(t.Sub, m)
	}
	return m
}

// captureRange returns the inclusive-exclusive [lo,hi) range of capture
// indices within n's subtree, or (0,0) if none. Used to emit OpCapReset at
// the head of a repetition body per ECMA-262's "clear captures of an
// abandoned iteration" rule.
func captureRange(n ast.Node) (lo, hi int) {
	lo, hi = -1, -1
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		var idx = -1
		switch t := n.(type) {
		case ast.Capture:
			idx = t.Index
		case ast.NamedCapture:
			idx = t.Index
		}
		if idx >= 0 {
			if lo == -1 || idx < lo {
				lo = idx
			}
			if idx+1 > hi {
				hi = idx + 1
			}
		}
		switch t := n.(type) {
		case ast.Capture:
			walk(t.Sub)
		case ast.NamedCapture:
			walk(t.Sub)
		case ast.Group:
			walk(t.Sub)
		case ast.Disjunction:
			for _, a := range t.Alts {
				walk(a)
			}
		case ast.Sequence:
			for _, it := range t.Items {
				walk(it)
			}
		case ast.Star:
			walk(t.Sub)
		case ast.Plus:
			walk(t.Sub)
		case ast.Question:
			walk(t.Sub)
		case ast.Repeat:
			walk(t.Sub)
		case ast.LookAhead:
			walk(t.Sub)
		case ast.LookBehind:
			walk(t.Sub)
		}
	}
	walk(n)
	if lo == -1 {
		return 0, 0
	}
	return lo, hi
}

func (c *compiler) compileNode(n ast.Node, cont int) (int, error) {
	switch t := n.(type) {
	case ast.Disjunction:
		return c.compileDisjunction(t, cont)
	case ast.Sequence:
		return c.compileSequence(t.Items, cont)
	case ast.Capture:
		return c.compileCapture(t.Index, t.Sub, cont)
	case ast.NamedCapture:
		return c.compileCapture(t.Index, t.Sub, cont)
	case ast.Group:
		return c.compileNode(t.Sub, cont)
	case ast.Star:
		return c.compileStar(t.Sub, t.NonGreedy, cont)
	case ast.Plus:
		return c.compilePlus(t.Sub, t.NonGreedy, cont)
	case ast.Question:
		return c.compileQuestion(t.Sub, t.NonGreedy, cont)
	case ast.Repeat:
		return c.compileRepeat(t, cont)
	case ast.WordBoundary:
		if t.Invert {
			return c.emit(Inst{Op: OpAssert, Assert: AssertNotWordBoundary, Next: cont, Fail: c.rollback}), nil
		}
		return c.emit(Inst{Op: OpAssert, Assert: AssertWordBoundary, Next: cont, Fail: c.rollback}), nil
	case ast.LineBegin:
		return c.emit(Inst{Op: OpAssert, Assert: AssertLineBegin, Next: cont, Fail: c.rollback}), nil
	case ast.LineEnd:
		return c.emit(Inst{Op: OpAssert, Assert: AssertLineEnd, Next: cont, Fail: c.rollback}), nil
	case ast.LookAhead:
		return c.compileLookaround(t.Sub, t.Invert, false, cont)
	case ast.LookBehind:
		return c.compileLookaround(t.Sub, t.Invert, true, cont)
	case ast.Character:
		ic := ichar.FromUChar(t.Char)
		if c.flags.IgnoreCase {
			ic = ic.Canonicalize()
		}
		return c.compileRead(c.icharSet.Refine(ic), cont), nil
	case ast.CharacterClass:
		ic := classIChar(t, c.flags)
		if t.Invert {
			return c.compileRead(c.icharSet.Complement(ic), cont), nil
		}
		return c.compileRead(c.icharSet.Refine(ic), cont), nil
	case ast.SimpleEscapeClass:
		return c.compileRead(c.escapeAtoms(t.Kind), cont), nil
	case ast.UnicodeProperty:
		ic := unicodePropertyIChar(t)
		if t.Invert {
			return c.compileRead(c.icharSet.Complement(ic), cont), nil
		}
		return c.compileRead(c.icharSet.Refine(ic), cont), nil
	case ast.Dot:
		ic := ichar.Dot(c.flags.DotAll, c.bound)
		return c.compileRead(c.icharSet.Refine(ic), cont), nil
	case ast.BackReference:
		return c.compileBackref(t.Index, cont), nil
	case ast.NamedBackReference:
		idx, ok := c.names[t.Name]
		if !ok {
			return 0, errs.InvalidRegExp("unknown named back-reference: " + t.Name)
		}
		return c.compileBackref(idx, cont), nil
	default:
		return 0, errs.Unsupported("unknown node kind")
	}
}

func (c *compiler) compileRead(atoms []ichar.IChar, cont int) int {
	inst := Inst{Op: OpRead, Set: atoms, Next: cont, Fail: c.rollback}
	for b := 0; b < 128; b++ {
		inst.ASCIIMask[b] = inSetSlow(rune(b), atoms)
	}
	return c.emit(inst)
}

func (c *compiler) compileBackref(idx int, cont int) int {
	return c.emit(Inst{Op: OpReadBackref, CapIndex: idx, IgnoreCase: c.flags.IgnoreCase, Next: cont, Fail: c.rollback})
}

func (c *compiler) escapeAtoms(k ast.EscapeKind) []ichar.IChar {
	switch k {
	case ast.EscapeDigit:
		return c.icharSet.Refine(ichar.DigitChars())
	case ast.EscapeNotDigit:
		return c.icharSet.Complement(ichar.DigitChars())
	case ast.EscapeWord:
		return c.icharSet.Refine(ichar.WordChars())
	case ast.EscapeNotWord:
		return c.icharSet.Complement(ichar.WordChars())
	case ast.EscapeSpace:
		return c.icharSet.Refine(ichar.SpaceChars())
	default:
		return c.icharSet.Complement(ichar.SpaceChars())
	}
}

func (c *compiler) compileSequence(items []ast.Node, cont int) (int, error) {
	if len(items) == 0 {
		return cont, nil
	}
	entry := cont
	for i := len(items) - 1; i >= 0; i-- {
		var err error
		entry, err = c.compileNode(items[i], entry)
		if err != nil {
			return 0, err
		}
	}
	return entry, nil
}

func (c *compiler) compileDisjunction(d ast.Disjunction, cont int) (int, error) {
	if len(d.Alts) == 0 {
		return cont, nil
	}
	entries := make([]int, len(d.Alts))
	for i, alt := range d.Alts {
		e, err := c.compileNode(alt, cont)
		if err != nil {
			return 0, err
		}
		entries[i] = e
	}
	result := entries[len(entries)-1]
	for i := len(entries) - 2; i >= 0; i-- {
		result = c.emit(Inst{Op: OpTry, Next: entries[i], Fail: result})
	}
	return result, nil
}

func (c *compiler) compileCapture(idx int, sub ast.Node, cont int) (int, error) {
	endPC := c.emit(Inst{Op: OpCapEnd, CapIndex: idx, Next: cont, Fail: c.rollback})
	body, err := c.compileNode(sub, endPC)
	if err != nil {
		return 0, err
	}
	return c.emit(Inst{Op: OpCapBegin, CapIndex: idx, Next: body, Fail: c.rollback}), nil
}

// compileStar compiles sub* with the standard Try-loop-canary shape: a
// greedy star tries the body first and falls back to exiting; a
// non-greedy star tries exiting first. A canary register guards against a
// body that matches without consuming, which would otherwise loop forever.
func (c *compiler) compileStar(sub ast.Node, nonGreedy bool, cont int) (int, error) {
	reg := c.allocReg()
	loopPC := len(c.p.Insts) // placeholder; patched below via index reuse
	c.p.Insts = append(c.p.Insts, Inst{}) // reserve slot for loopPC (Try)

	checkPC := c.emit(Inst{Op: OpCheckCanary, Reg: reg, Next: cont, Fail: loopPC})
	lo, hi := captureRange(sub)
	bodyEntry, err := c.compileNode(sub, checkPC)
	if err != nil {
		return 0, err
	}
	if hi > lo {
		bodyEntry = c.emit(Inst{Op: OpCapReset, CapFrom: lo, CapTo: hi, Next: bodyEntry, Fail: c.rollback})
	}
	canaryPC := c.emit(Inst{Op: OpPushCanary, Reg: reg, Next: bodyEntry, Fail: c.rollback})

	if nonGreedy {
		c.p.Insts[loopPC] = Inst{Op: OpTry, Next: cont, Fail: canaryPC}
	} else {
		c.p.Insts[loopPC] = Inst{Op: OpTry, Next: canaryPC, Fail: cont}
	}
	return loopPC, nil
}

func (c *compiler) compilePlus(sub ast.Node, nonGreedy bool, cont int) (int, error) {
	star, err := c.compileStar(sub, nonGreedy, cont)
	if err != nil {
		return 0, err
	}
	return c.compileNode(sub, star)
}

func (c *compiler) compileQuestion(sub ast.Node, nonGreedy bool, cont int) (int, error) {
	body, err := c.compileNode(sub, cont)
	if err != nil {
		return 0, err
	}
	if nonGreedy {
		return c.emit(Inst{Op: OpTry, Next: cont, Fail: body}), nil
	}
	return c.emit(Inst{Op: OpTry, Next: body, Fail: cont}), nil
}

func (c *compiler) compileSeqOfN(sub ast.Node, n int, cont int) (int, error) {
	entry := cont
	for i := 0; i < n; i++ {
		var err error
		entry, err = c.compileNode(sub, entry)
		if err != nil {
			return 0, err
		}
	}
	return entry, nil
}

func (c *compiler) compileRepeat(r ast.Repeat, cont int) (int, error) {
	switch {
	case r.Max == ast.ExactCount || r.Max == r.Min:
		return c.compileSeqOfN(r.Sub, r.Min, cont)
	case r.Max == ast.NoUpperBound:
		star, err := c.compileStar(r.Sub, r.NonGreedy, cont)
		if err != nil {
			return 0, err
		}
		return c.compileSeqOfN(r.Sub, r.Min, star)
	case r.Max < r.Min:
		return 0, errs.InvalidRegExp("out of order repetition quantifier")
	default:
		extra, err := c.compileBoundedExtra(r.Sub, r.Max-r.Min, r.NonGreedy, cont)
		if err != nil {
			return 0, err
		}
		return c.compileSeqOfN(r.Sub, r.Min, extra)
	}
}

// compileBoundedExtra compiles up to `extra` additional optional copies of
// sub, bounded by a counter register rather than literal unrolling, so the
// instruction count stays proportional to pattern size, not to the
// repetition bound.
func (c *compiler) compileBoundedExtra(sub ast.Node, extra int, nonGreedy bool, cont int) (int, error) {
	if extra <= 0 {
		return cont, nil
	}
	reg := c.allocReg()
	canaryReg := c.allocReg()

	loopPC := len(c.p.Insts)
	c.p.Insts = append(c.p.Insts, Inst{})
	incPC := c.emit(Inst{Op: OpIncReg, Reg: reg, Next: loopPC, Fail: c.rollback})
	checkPC := c.emit(Inst{Op: OpCheckCanary, Reg: canaryReg, Next: cont, Fail: incPC})
	lo, hi := captureRange(sub)
	bodyEntry, err := c.compileNode(sub, checkPC)
	if err != nil {
		return 0, err
	}
	if hi > lo {
		bodyEntry = c.emit(Inst{Op: OpCapReset, CapFrom: lo, CapTo: hi, Next: bodyEntry, Fail: c.rollback})
	}
	canaryPC := c.emit(Inst{Op: OpPushCanary, Reg: canaryReg, Next: bodyEntry, Fail: c.rollback})

	var tryPC int
	if nonGreedy {
		tryPC = c.emit(Inst{Op: OpTry, Next: cont, Fail: canaryPC})
	} else {
		tryPC = c.emit(Inst{Op: OpTry, Next: canaryPC, Fail: cont})
	}
	c.p.Insts[loopPC] = Inst{Op: OpCmp, Reg: reg, N: extra, GE: false, Next: tryPC, Fail: cont}

	resetPC := c.emit(Inst{Op: OpResetReg, Reg: reg, Next: loopPC, Fail: c.rollback})
	return resetPC, nil
}

// compileLookaround compiles a lookaround assertion as an OpTx: Sub is its
// own self-contained Program (a fresh entry point ending in OpOK), run as
// a nested, non-consuming sub-match by the VM.
func (c *compiler) compileLookaround(sub ast.Node, invert, behind bool, cont int) (int, error) {
	sc := &compiler{
		p:        &Program{},
		icharSet: c.icharSet,
		flags:    c.flags,
		bound:    c.bound,
		names:    c.names,
	}
	sc.rollback = sc.emit(Inst{Op: OpRollback})
	okPC := sc.emit(Inst{Op: OpOK})
	entry, err := sc.compileNode(sub, okPC)
	if err != nil {
		return 0, err
	}
	sc.p.Entry = entry
	sc.p.NumRegs = sc.nextReg
	sc.p.NumCaps = c.p.NumCaps // share the outer capture numbering

	return c.emit(Inst{Op: OpTx, Sub: sc.p, Invert: invert, Behind: behind, Next: cont, Fail: c.rollback}), nil
}

// wrapUnanchored prepends the "search, not anchored match" prefix exactly
// as enfa.compiler.wrapUnanchoredStart does: at every position, first try
// the real pattern; failing that, consume one character and retry.
func (c *compiler) wrapUnanchored(entry int) int {
	atoms := c.icharSet.Atoms()
	loopPC := len(c.p.Insts)
	c.p.Insts = append(c.p.Insts, Inst{})
	consume := c.compileRead(atoms, loopPC)
	c.p.Insts[loopPC] = Inst{Op: OpTry, Next: entry, Fail: consume}
	return loopPC
}
