package fuzzcheck

import (
	"github.com/coregx/ahocorasick"

	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/enfa"
	"github.com/coregx/redosentinel/internal/ichar"
	"github.com/coregx/redosentinel/internal/uchar"
	"github.com/coregx/redosentinel/internal/vm"
)

// FuzzContext is the immutable snapshot the search runs against for one
// pattern: the compiled VM program, a representative alphabet to seed
// mutations from, and the pattern's own literal substrings ("parts") so
// the search can re-use the pattern's own anchors instead of discovering
// them by chance.
type FuzzContext struct {
	Prog     *vm.Program
	Alphabet []rune
	Parts    [][]rune

	partsAC []*ahocorasick.Automaton // parallel to Parts; nil entry if a part failed to build
}

// NewFuzzContext compiles p and derives the search context.
func NewFuzzContext(p ast.Pattern) (*FuzzContext, error) {
	prog, err := vm.Compile(p)
	if err != nil {
		return nil, err
	}

	alphabet := collectAlphabetRunes(p)
	parts := extractParts(p.Root)

	ac := make([]*ahocorasick.Automaton, len(parts))
	for i, part := range parts {
		if len(part) == 0 {
			continue
		}
		b := ahocorasick.NewBuilder()
		b.AddPattern([]byte(string(part)))
		a, err := b.Build()
		if err == nil {
			ac[i] = a
		}
	}

	return &FuzzContext{Prog: prog, Alphabet: alphabet, Parts: parts, partsAC: ac}, nil
}

// PartsPresent reports, per literal part, whether it occurs anywhere in s —
// the "literal surface exercised" half of the coverage novelty metric.
func (fc *FuzzContext) PartsPresent(s []rune) []bool {
	out := make([]bool, len(fc.Parts))
	if len(s) == 0 {
		return out
	}
	hay := []byte(string(s))
	for i, a := range fc.partsAC {
		if a == nil {
			continue
		}
		out[i] = a.Find(hay, 0) != nil
	}
	return out
}

// collectAlphabetRunes refines an ICharSet over p the way enfa.Compile
// does, then takes one representative rune per atom: the seed corpus's
// "one character per distinguishable class" basis.
func collectAlphabetRunes(p ast.Pattern) []rune {
	icharSet := ichar.NewICharSet()
	enfa.CollectAlphabet(p.Root, p.Flags, icharSet)
	bound := uchar.UChar(uchar.MaxBMP)
	if p.Flags.Unicode {
		bound = uchar.MaxUnicode
	}
	icharSet.Add(ichar.New(uchar.Range(0, bound), false, false))

	var out []rune
	for _, atom := range icharSet.Atoms() {
		ivs := atom.Runes.Intervals()
		if len(ivs) == 0 {
			continue
		}
		out = append(out, rune(ivs[0].Lo))
	}
	if len(out) == 0 {
		out = []rune{'a', 'b', '0', ' '}
	}
	return out
}

// extractParts walks p collecting maximal runs of literal characters in
// sequence position: the pattern's own prototype substrings.
func extractParts(n ast.Node) [][]rune {
	var parts [][]rune
	var cur []rune

	flush := func() {
		if len(cur) > 0 {
			parts = append(parts, cur)
			cur = nil
		}
	}

	var walk func(ast.Node)
	walkSeq := func(items []ast.Node) {
		for _, it := range items {
			if ch, ok := it.(ast.Character); ok {
				cur = append(cur, rune(ch.Char))
				continue
			}
			flush()
			walk(it)
		}
		flush()
	}
	walk = func(n ast.Node) {
		switch t := n.(type) {
		case ast.Sequence:
			walkSeq(t.Items)
		case ast.Disjunction:
			for _, a := range t.Alts {
				walk(a)
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
			cur = append(cur, rune(t.Char))
			flush()
		}
	}
	walk(n)
	flush()
	return parts
}
