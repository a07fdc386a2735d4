package ichar

// ICharSet is an alphabet refinement: a set of pairwise-disjoint IChars
// ("atoms") covering every character referenced by a pattern. Every time a
// new IChar is added, the existing atoms are re-split so the invariant
// holds.
type ICharSet struct {
	atoms []IChar
}

// NewICharSet returns an empty alphabet refinement.
func NewICharSet() *ICharSet {
	return &ICharSet{}
}

// Atoms returns the current disjoint atoms. The returned slice must not be
// mutated by callers.
func (s *ICharSet) Atoms() []IChar { return s.atoms }

// Add refines the alphabet with a new IChar c: every existing atom d is
// replaced by d∩c and d∖c (dropping empty pieces), and c∖(union of atoms)
// is added as a new atom. Disjointness of the result is an invariant.
func (s *ICharSet) Add(c IChar) {
	remaining := c
	next := make([]IChar, 0, len(s.atoms)+1)
	for _, d := range s.atoms {
		inter := d.Intersect(c)
		diff := d.Difference(c)
		if !inter.IsEmpty() {
			next = append(next, inter)
		}
		if !diff.IsEmpty() {
			next = append(next, diff)
		}
		remaining = remaining.Difference(d)
	}
	if !remaining.IsEmpty() {
		next = append(next, remaining)
	}
	s.atoms = next
}

// Refine returns the atoms of c in this refinement: the members of the set
// whose intersection with c equals themselves. Callers must have already
// Add-ed c (or a superset) so that c's boundary lines up with atom
// boundaries.
func (s *ICharSet) Refine(c IChar) []IChar {
	var out []IChar
	for _, d := range s.atoms {
		if d.Intersect(c).Runes.Equal(d.Runes) && !d.IsEmpty() {
			out = append(out, d)
		}
	}
	return out
}

// Complement returns the atoms NOT in the given set, i.e. every atom of
// this refinement minus those that refine c. Used to build the atom set
// for a negated character class.
func (s *ICharSet) Complement(c IChar) []IChar {
	refined := s.Refine(c)
	inSet := make(map[int]bool, len(refined))
	for _, r := range refined {
		for i, a := range s.atoms {
			if a.Runes.Equal(r.Runes) {
				inSet[i] = true
			}
		}
	}
	var out []IChar
	for i, a := range s.atoms {
		if !inSet[i] {
			out = append(out, a)
		}
	}
	return out
}
