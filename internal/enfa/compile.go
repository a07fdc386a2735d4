package enfa

import (
	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/ichar"
	"github.com/coregx/redosentinel/internal/uchar"
)

// frag is a dangling Thompson-construction fragment: start is the entry
// state id, out is an eps state whose EpsTargets is still unpatched. A
// caller finishing the fragment appends the continuation's start id to
// out.EpsTargets.
type frag struct {
	start StateID
	out   *State
}

type compiler struct {
	e        *ENFA
	icharSet *ichar.ICharSet
	flags    ast.FlagSet
	bound    uchar.UChar
	to       graph.Timeout
}

// Compile builds an ε-NFA for p. It returns the frozen alphabet refinement
// alongside the automaton: both onfa construction and the automaton checker
// need the atom list to iterate Σ.
func Compile(p ast.Pattern, to graph.Timeout) (*ENFA, *ichar.ICharSet, error) {
	icharSet := ichar.NewICharSet()
	CollectAlphabet(p.Root, p.Flags, icharSet)

	bound := uchar.UChar(uchar.MaxBMP)
	if p.Flags.Unicode {
		bound = uchar.MaxUnicode
	}
	// Force a catch-all atom so every unreferenced code point still has a
	// home atom; the unanchored-prefix self-loop and negated classes need
	// the full alphabet covered, not just the characters a pattern spells
	// out literally.
	icharSet.Add(ichar.New(uchar.Range(0, bound), false, false))

	c := &compiler{e: &ENFA{}, icharSet: icharSet, flags: p.Flags, bound: bound, to: to}

	body, err := c.compileNode(p.Root)
	if err != nil {
		return nil, nil, err
	}
	accept := c.e.newState()
	if p.HasLineEndAtEnd() {
		body.out.EpsTargets = append(body.out.EpsTargets, accept.ID)
	} else {
		body.out.EpsTargets = append(body.out.EpsTargets, c.wrapUnanchoredAccept(accept.ID))
	}

	start := body.start
	if !p.Flags.Sticky && !p.HasLineBeginAtBegin() {
		start = c.wrapUnanchoredStart(start)
	}

	c.e.Start = start
	c.e.Accept = accept.ID
	return c.e, icharSet, nil
}

func (c *compiler) newEps() *State {
	s := c.e.newState()
	s.K = KindEps
	return s
}

// epsilonBridge returns a pass-through fragment that consumes nothing: its
// start and out are the same dangling state, for callers that need an
// empty fragment (e.g. a zero-length Repeat or an empty Sequence).
func (c *compiler) epsilonBridge() frag {
	s := c.newEps()
	return frag{s.ID, s}
}

func (c *compiler) compileNode(n ast.Node) (frag, error) {
	if err := c.to.Check("enfa.compile"); err != nil {
		return frag{}, err
	}
	switch t := n.(type) {
	case ast.Disjunction:
		return c.compileDisjunction(t)
	case ast.Sequence:
		return c.compileSequence(t.Items)
	case ast.Capture:
		return c.compileNode(t.Sub)
	case ast.NamedCapture:
		return c.compileNode(t.Sub)
	case ast.Group:
		return c.compileNode(t.Sub)
	case ast.Star:
		return c.compileStar(t.Sub, t.NonGreedy)
	case ast.Plus:
		return c.compilePlus(t.Sub, t.NonGreedy)
	case ast.Question:
		return c.compileQuestion(t.Sub, t.NonGreedy)
	case ast.Repeat:
		return c.compileRepeat(t)
	case ast.WordBoundary:
		if t.Invert {
			return c.compileAssert(AssertNotWordBoundary), nil
		}
		return c.compileAssert(AssertWordBoundary), nil
	case ast.LineBegin:
		return c.compileAssert(AssertLineBegin), nil
	case ast.LineEnd:
		return c.compileAssert(AssertLineEnd), nil
	case ast.LookAhead:
		return frag{}, errs.Unsupported("look-ahead assertion")
	case ast.LookBehind:
		return frag{}, errs.Unsupported("look-behind assertion")
	case ast.Character:
		ic := ichar.FromUChar(t.Char)
		if c.flags.IgnoreCase {
			ic = ic.Canonicalize()
		}
		return c.compileConsume(c.icharSet.Refine(ic)), nil
	case ast.CharacterClass:
		ic := classIChar(t, c.flags)
		if t.Invert {
			return c.compileConsume(c.icharSet.Complement(ic)), nil
		}
		return c.compileConsume(c.icharSet.Refine(ic)), nil
	case ast.SimpleEscapeClass:
		return c.compileConsume(c.escapeAtoms(t.Kind)), nil
	case ast.UnicodeProperty:
		ic := unicodePropertyIChar(t)
		if t.Invert {
			return c.compileConsume(c.icharSet.Complement(ic)), nil
		}
		return c.compileConsume(c.icharSet.Refine(ic)), nil
	case ast.Dot:
		ic := ichar.Dot(c.flags.DotAll, c.bound)
		return c.compileConsume(c.icharSet.Refine(ic)), nil
	case ast.BackReference:
		return frag{}, errs.Unsupported("back-reference")
	case ast.NamedBackReference:
		return frag{}, errs.Unsupported("back-reference")
	default:
		return frag{}, errs.Unsupported("unknown node kind")
	}
}

// escapeAtoms resolves \d \D \w \W \s \S to atoms, complementing for the
// negated forms so the negation is baked into the atom set rather than
// carried as a runtime flag.
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
	default: // EscapeNotSpace
		return c.icharSet.Complement(ichar.SpaceChars())
	}
}

func (c *compiler) compileConsume(atoms []ichar.IChar) frag {
	out := c.newEps()
	s := c.e.newState()
	s.K = KindConsume
	s.ConsumeSet = atoms
	s.ConsumeNext = out.ID
	return frag{s.ID, out}
}

func (c *compiler) compileAssert(kind AssertKind) frag {
	out := c.newEps()
	s := c.e.newState()
	s.K = KindAssert
	s.AssertKind = kind
	s.AssertNext = out.ID
	return frag{s.ID, out}
}

func (c *compiler) compileSequence(items []ast.Node) (frag, error) {
	if len(items) == 0 {
		return c.epsilonBridge(), nil
	}
	first, err := c.compileNode(items[0])
	if err != nil {
		return frag{}, err
	}
	cur := first
	for _, it := range items[1:] {
		next, err := c.compileNode(it)
		if err != nil {
			return frag{}, err
		}
		cur.out.EpsTargets = append(cur.out.EpsTargets, next.start)
		cur = frag{cur.start, next.out}
	}
	return cur, nil
}

func (c *compiler) compileDisjunction(d ast.Disjunction) (frag, error) {
	if len(d.Alts) == 0 {
		return c.epsilonBridge(), nil
	}
	s := c.newEps()
	out := c.newEps()
	targets := make([]StateID, 0, len(d.Alts))
	for _, alt := range d.Alts {
		f, err := c.compileNode(alt)
		if err != nil {
			return frag{}, err
		}
		f.out.EpsTargets = append(f.out.EpsTargets, out.ID)
		targets = append(targets, f.start)
	}
	s.EpsTargets = targets
	return frag{s.ID, out}, nil
}

// compileStar emits two separate choice states with identical priority
// lists: enter (first entry into the loop) and again (re-entry after the
// body). Looping back to a distinct state keeps the continue-the-body path
// and the exit-and-re-enter path of a nested repetition distinguishable
// during ε-elimination — they land in different priority slots of the
// ordered transition rather than collapsing into one, which is exactly the
// duplication the ambiguity checker keys on for patterns like (a*)*.
func (c *compiler) compileStar(sub ast.Node, nonGreedy bool) (frag, error) {
	body, err := c.compileNode(sub)
	if err != nil {
		return frag{}, err
	}
	enter := c.newEps()
	again := c.newEps()
	out := c.newEps()
	if nonGreedy {
		enter.EpsTargets = []StateID{out.ID, body.start}
		again.EpsTargets = []StateID{out.ID, body.start}
	} else {
		enter.EpsTargets = []StateID{body.start, out.ID}
		again.EpsTargets = []StateID{body.start, out.ID}
	}
	body.out.EpsTargets = append(body.out.EpsTargets, again.ID)
	return frag{enter.ID, out}, nil
}

func (c *compiler) compilePlus(sub ast.Node, nonGreedy bool) (frag, error) {
	first, err := c.compileNode(sub)
	if err != nil {
		return frag{}, err
	}
	star, err := c.compileStar(sub, nonGreedy)
	if err != nil {
		return frag{}, err
	}
	first.out.EpsTargets = append(first.out.EpsTargets, star.start)
	return frag{first.start, star.out}, nil
}

func (c *compiler) compileQuestion(sub ast.Node, nonGreedy bool) (frag, error) {
	body, err := c.compileNode(sub)
	if err != nil {
		return frag{}, err
	}
	s := c.newEps()
	out := c.newEps()
	if nonGreedy {
		s.EpsTargets = []StateID{out.ID, body.start}
	} else {
		s.EpsTargets = []StateID{body.start, out.ID}
	}
	body.out.EpsTargets = append(body.out.EpsTargets, out.ID)
	return frag{s.ID, out}, nil
}

// compileSeqOfN compiles n independent copies of sub chained in sequence
// (n == 0 yields the empty bridge).
func (c *compiler) compileSeqOfN(sub ast.Node, n int) (frag, error) {
	if n == 0 {
		return c.epsilonBridge(), nil
	}
	first, err := c.compileNode(sub)
	if err != nil {
		return frag{}, err
	}
	cur := first
	for i := 1; i < n; i++ {
		next, err := c.compileNode(sub)
		if err != nil {
			return frag{}, err
		}
		cur.out.EpsTargets = append(cur.out.EpsTargets, next.start)
		cur = frag{cur.start, next.out}
	}
	return cur, nil
}

// compileOptionalChain builds count right-folded optional copies of sub:
// each copy is only reachable if the previous one was taken, modeling
// sub{min,max}'s "up to max-min extra, each optional" tail.
func (c *compiler) compileOptionalChain(sub ast.Node, count int, nonGreedy bool) (frag, error) {
	if count == 0 {
		return c.epsilonBridge(), nil
	}
	body, err := c.compileNode(sub)
	if err != nil {
		return frag{}, err
	}
	rest, err := c.compileOptionalChain(sub, count-1, nonGreedy)
	if err != nil {
		return frag{}, err
	}
	body.out.EpsTargets = append(body.out.EpsTargets, rest.start)
	inner := frag{body.start, rest.out}

	s := c.newEps()
	out := c.newEps()
	if nonGreedy {
		s.EpsTargets = []StateID{out.ID, inner.start}
	} else {
		s.EpsTargets = []StateID{inner.start, out.ID}
	}
	inner.out.EpsTargets = append(inner.out.EpsTargets, out.ID)
	return frag{s.ID, out}, nil
}

func (c *compiler) compileRepeat(r ast.Repeat) (frag, error) {
	switch {
	case r.Max == ast.ExactCount || r.Max == r.Min:
		return c.compileSeqOfN(r.Sub, r.Min)
	case r.Max == ast.NoUpperBound:
		req, err := c.compileSeqOfN(r.Sub, r.Min)
		if err != nil {
			return frag{}, err
		}
		star, err := c.compileStar(r.Sub, r.NonGreedy)
		if err != nil {
			return frag{}, err
		}
		req.out.EpsTargets = append(req.out.EpsTargets, star.start)
		return frag{req.start, star.out}, nil
	case r.Max < r.Min:
		return frag{}, errs.InvalidRegExp("out of order repetition quantifier")
	default:
		req, err := c.compileSeqOfN(r.Sub, r.Min)
		if err != nil {
			return frag{}, err
		}
		opt, err := c.compileOptionalChain(r.Sub, r.Max-r.Min, r.NonGreedy)
		if err != nil {
			return frag{}, err
		}
		req.out.EpsTargets = append(req.out.EpsTargets, opt.start)
		return frag{req.start, opt.out}, nil
	}
}

// wrapUnanchoredStart prepends the "search, not anchored match" prefix: at
// every position the engine first tries the real pattern, and only on
// failure consumes one character and retries at the next position. Skipped
// when the pattern is sticky or already begins with ^.
func (c *compiler) wrapUnanchoredStart(start StateID) StateID {
	atoms := c.icharSet.Atoms()
	s0 := c.newEps()
	consume := c.e.newState()
	consume.K = KindConsume
	consume.ConsumeSet = atoms
	consume.ConsumeNext = s0.ID
	s0.EpsTargets = []StateID{start, consume.ID}
	return s0.ID
}

// wrapUnanchoredAccept appends the ".*?"-style suffix loop at the accept
// when the pattern does not end with $: first prefer accepting where the
// match ends, and only otherwise consume one more character and accept
// later. Returns the state the pattern body's exit should link to.
func (c *compiler) wrapUnanchoredAccept(accept StateID) StateID {
	atoms := c.icharSet.Atoms()
	s0 := c.newEps()
	consume := c.e.newState()
	consume.K = KindConsume
	consume.ConsumeSet = atoms
	consume.ConsumeNext = s0.ID
	s0.EpsTargets = []StateID{accept, consume.ID}
	return s0.ID
}
