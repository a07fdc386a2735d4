package enfa

import (
	"github.com/coregx/redosentinel/internal/ast"
	"github.com/coregx/redosentinel/internal/ichar"
	"github.com/coregx/redosentinel/internal/uchar"
)

// CollectAlphabet walks the pattern once, refining icharSet with every
// character-referencing atom it finds. This must run to completion before
// any Consume transition is built (refine's atoms would otherwise go stale
// mid-compile), which is why Compile runs it as an explicit first pass.
func CollectAlphabet(n ast.Node, flags ast.FlagSet, icharSet *ichar.ICharSet) {
	bound := flags.Unicode
	var boundVal uchar.UChar
	if bound {
		boundVal = uchar.MaxUnicode
	} else {
		boundVal = uchar.MaxBMP
	}

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
			ic := classIChar(t, flags)
			icharSet.Add(ic)
		case ast.SimpleEscapeClass:
			icharSet.Add(escapeIChar(t.Kind))
		case ast.UnicodeProperty:
			ic := unicodePropertyIChar(t)
			icharSet.Add(ic)
		case ast.Dot:
			icharSet.Add(ichar.Dot(flags.DotAll, boundVal))
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
