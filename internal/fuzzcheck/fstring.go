// Package fuzzcheck is the coverage-guided fallback checker: where
// internal/automaton cannot model a construct (lookaround, back-
// references) or a pattern exceeds the automaton's size caps, fuzzcheck
// searches for an attack string by running candidate inputs through
// internal/vm's backtracking VM and evolving a population toward inputs
// whose step count blows up relative to their length.
package fuzzcheck

// FElem is one element of an FString: either a single literal rune, or a
// block pumped some number of times. The block's repeat count is scaled by
// the owning FString's N, so one FElem models a whole family of candidate
// inputs parameterized by a single integer.
type FElem struct {
	Repeat bool
	Lit    rune
	Block  []rune
	Count  int
}

// Wrap is a single literal rune element.
func Wrap(r rune) FElem { return FElem{Lit: r} }

// NewRepeat is a block pumped count times before FString.N scaling.
func NewRepeat(block []rune, count int) FElem {
	b := make([]rune, len(block))
	copy(b, block)
	return FElem{Repeat: true, Block: b, Count: count}
}

// FString is a fuzz candidate: an element sequence plus a global scale N.
// ToUString expands every Repeat element's count by N; mutation and
// crossover operate on the element sequence directly.
type FString struct {
	Elems []FElem
	N     int
}

// NewFString wraps an element slice at scale 1.
func NewFString(elems []FElem) FString {
	return FString{Elems: elems, N: 1}
}

// Size is the element count (the unit mutateInsert/mutateDelete and
// friends pick random positions over).
func (f FString) Size() int { return len(f.Elems) }

// IsConstant reports whether f has no pumped elements at all.
func (f FString) IsConstant() bool {
	for _, e := range f.Elems {
		if e.Repeat {
			return false
		}
	}
	return true
}

// ToUString expands f to its concrete rune sequence at its current scale.
func (f FString) ToUString() []rune {
	var out []rune
	n := f.N
	if n < 1 {
		n = 1
	}
	for _, e := range f.Elems {
		if !e.Repeat {
			out = append(out, e.Lit)
			continue
		}
		count := e.Count * n
		for i := 0; i < count; i++ {
			out = append(out, e.Block...)
		}
	}
	return out
}

// MapN returns a copy of f scaled to n (minimum 1): the operation
// tryAttack uses to grow a candidate toward a step-limit-triggering size
// without re-running mutation.
func (f FString) MapN(n int) FString {
	if n < 1 {
		n = 1
	}
	return FString{Elems: f.Elems, N: n}
}

// InsertAt returns a copy of f with e inserted before index i.
func (f FString) InsertAt(i int, e FElem) FString {
	elems := make([]FElem, 0, len(f.Elems)+1)
	elems = append(elems, f.Elems[:i]...)
	elems = append(elems, e)
	elems = append(elems, f.Elems[i:]...)
	return FString{Elems: elems, N: f.N}
}

// ReplaceAt returns a copy of f with index i's element replaced by e.
func (f FString) ReplaceAt(i int, e FElem) FString {
	elems := make([]FElem, len(f.Elems))
	copy(elems, f.Elems)
	elems[i] = e
	return FString{Elems: elems, N: f.N}
}

// Delete returns a copy of f with elements [i,j) removed.
func (f FString) Delete(i, j int) FString {
	elems := make([]FElem, 0, len(f.Elems)-(j-i))
	elems = append(elems, f.Elems[:i]...)
	elems = append(elems, f.Elems[j:]...)
	return FString{Elems: elems, N: f.N}
}

// Cross cuts f at i and other at j and swaps tails, returning both
// offspring.
func (f FString) Cross(other FString, i, j int) (FString, FString) {
	a := make([]FElem, 0, i+len(other.Elems)-j)
	a = append(a, f.Elems[:i]...)
	a = append(a, other.Elems[j:]...)
	b := make([]FElem, 0, j+len(f.Elems)-i)
	b = append(b, other.Elems[:j]...)
	b = append(b, f.Elems[i:]...)
	return FString{Elems: a, N: f.N}, FString{Elems: b, N: other.N}
}
