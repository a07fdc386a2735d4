// Package ichar refines the character domain into the alphabet actually
// referenced by a pattern: IChar attaches line-terminator/word-character
// metadata to an interval set, and ICharSet maintains the disjoint
// partition ("atoms") of the alphabet that the ε-NFA compiler and ordered
// NFA construction key their transitions on.
package ichar

import "github.com/coregx/redosentinel/internal/uchar"

// IChar is an interval set of code points carrying two orthogonal bits
// used by assertions and \w/\W character classes: whether every member is
// a line terminator, and whether every member is a "word" character.
type IChar struct {
	Runes            uchar.IntervalSet
	IsLineTerminator bool
	IsWord           bool
}

// New wraps an interval set with the given metadata bits.
func New(runes uchar.IntervalSet, isLineTerminator, isWord bool) IChar {
	return IChar{Runes: runes, IsLineTerminator: isLineTerminator, IsWord: isWord}
}

// FromUChar returns the singleton IChar for a character literal.
func FromUChar(c uchar.UChar) IChar {
	return New(uchar.Single(c), isLineTerminator(c), isWordChar(c))
}

// Canonicalize applies case-fold closure to Runes, widening the interval
// set to include every code point that case-folds to the same orbit as a
// member, via uchar.FoldClosure's (domain, offset) rule application.
func (ic IChar) Canonicalize() IChar {
	return New(uchar.FoldClosure(ic.Runes), ic.IsLineTerminator, ic.IsWord)
}

// Intersect returns the IChar for ic ∩ other's rune set. Metadata bits are
// ANDed: the intersection is only flagged line-terminator/word if both
// operands are (a sound over-approximation otherwise would mislabel mixed
// atoms; true per-atom flags aren't needed once runes are exact).
func (ic IChar) Intersect(other IChar) IChar {
	return New(ic.Runes.Intersect(other.Runes), ic.IsLineTerminator && other.IsLineTerminator, ic.IsWord && other.IsWord)
}

// Difference returns the IChar for ic ∖ other's rune set, keeping ic's bits.
func (ic IChar) Difference(other IChar) IChar {
	return New(ic.Runes.Difference(other.Runes), ic.IsLineTerminator, ic.IsWord)
}

// IsEmpty reports whether the rune set is empty.
func (ic IChar) IsEmpty() bool { return ic.Runes.IsEmpty() }

// lineTerminators is the ECMA-262 LineTerminator production: \n \r    .
var lineTerminators = uchar.FromIntervals([]uchar.Interval{
	{Lo: 0x0A, Hi: 0x0B}, {Lo: 0x0D, Hi: 0x0E}, {Lo: 0x2028, Hi: 0x202A},
})

// wordChars is the ECMA-262 \w production: [A-Za-z0-9_].
var wordChars = uchar.FromIntervals([]uchar.Interval{
	{Lo: '0', Hi: '9' + 1}, {Lo: 'A', Hi: 'Z' + 1}, {Lo: '_', Hi: '_' + 1}, {Lo: 'a', Hi: 'z' + 1},
})

func isLineTerminator(c uchar.UChar) bool { return lineTerminators.Contains(c) }
func isWordChar(c uchar.UChar) bool       { return wordChars.Contains(c) }

// LineTerminators returns the IChar for the LineTerminator production.
func LineTerminators() IChar { return New(lineTerminators, true, false) }

// WordChars returns the IChar for the \w production.
func WordChars() IChar { return New(wordChars, false, true) }

// Dot returns the IChar matched by '.', excluding line terminators unless
// dotAll is set, over the given complement bound (BMP or full Unicode).
func Dot(dotAll bool, bound uchar.UChar) IChar {
	all := uchar.Range(0, bound)
	if dotAll {
		return New(all, false, false)
	}
	return New(all.Difference(lineTerminators), false, false)
}

// digitChars is the ECMA-262 \d production: [0-9].
var digitChars = uchar.Range('0', '9'+1)

// spaceChars is the ECMA-262 \s production: WhiteSpace | LineTerminator.
var spaceChars = uchar.FromIntervals([]uchar.Interval{
	{Lo: 0x09, Hi: 0x0E}, {Lo: 0x20, Hi: 0x21}, {Lo: 0xA0, Hi: 0xA1}, {Lo: 0x1680, Hi: 0x1681},
	{Lo: 0x2000, Hi: 0x200B}, {Lo: 0x2028, Hi: 0x202A}, {Lo: 0x202F, Hi: 0x2030}, {Lo: 0x205F, Hi: 0x2060},
	{Lo: 0x3000, Hi: 0x3001}, {Lo: 0xFEFF, Hi: 0xFF00},
}).Union(lineTerminators)

// DigitChars returns the IChar for the \d production.
func DigitChars() IChar { return New(digitChars, false, false) }

// SpaceChars returns the IChar for the \s production.
func SpaceChars() IChar { return New(spaceChars, false, false) }
