package uchar

import "sort"

// Interval is a half-open range [Lo, Hi) of code points.
type Interval struct {
	Lo, Hi UChar
}

// Len returns the number of code points covered by the interval.
func (iv Interval) Len() int {
	if iv.Hi <= iv.Lo {
		return 0
	}
	return int(iv.Hi - iv.Lo)
}

// IntervalSet is a canonical, sorted, coalesced set of half-open ranges.
//
// Invariant: intervals are non-empty, non-overlapping, sorted by Lo, and no
// two adjacent intervals touch (Hi of one never equals Lo of the next) —
// such pairs are always merged.
type IntervalSet struct {
	ivs []Interval
}

// Empty returns the empty interval set.
func Empty() IntervalSet { return IntervalSet{} }

// Single returns the interval set containing exactly one code point.
func Single(c UChar) IntervalSet {
	return Range(c, c+1)
}

// Range returns the interval set for the half-open range [lo, hi).
// Returns the empty set if hi <= lo.
func Range(lo, hi UChar) IntervalSet {
	if hi <= lo {
		return Empty()
	}
	return IntervalSet{ivs: []Interval{{lo, hi}}}
}

// FromIntervals builds a canonical set from a (possibly unsorted,
// overlapping) slice of intervals.
func FromIntervals(ivs []Interval) IntervalSet {
	var s IntervalSet
	cp := make([]Interval, 0, len(ivs))
	for _, iv := range ivs {
		if iv.Hi > iv.Lo {
			cp = append(cp, iv)
		}
	}
	s.ivs = normalize(cp)
	return s
}

// normalize sorts and coalesces overlapping/adjacent intervals.
func normalize(ivs []Interval) []Interval {
	if len(ivs) == 0 {
		return nil
	}
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Lo != ivs[j].Lo {
			return ivs[i].Lo < ivs[j].Lo
		}
		return ivs[i].Hi < ivs[j].Hi
	})
	out := make([]Interval, 0, len(ivs))
	cur := ivs[0]
	for _, iv := range ivs[1:] {
		if iv.Lo <= cur.Hi {
			if iv.Hi > cur.Hi {
				cur.Hi = iv.Hi
			}
			continue
		}
		out = append(out, cur)
		cur = iv
	}
	out = append(out, cur)
	return out
}

// Intervals returns the canonical intervals backing the set. The returned
// slice must not be mutated by callers.
func (s IntervalSet) Intervals() []Interval { return s.ivs }

// IsEmpty reports whether the set contains no code points.
func (s IntervalSet) IsEmpty() bool { return len(s.ivs) == 0 }

// Contains reports whether c is a member of the set.
func (s IntervalSet) Contains(c UChar) bool {
	i := sort.Search(len(s.ivs), func(i int) bool { return s.ivs[i].Hi > c })
	return i < len(s.ivs) && s.ivs[i].Lo <= c
}

// Len returns the total number of code points covered.
func (s IntervalSet) Len() int {
	n := 0
	for _, iv := range s.ivs {
		n += iv.Len()
	}
	return n
}

// Union returns s ∪ other.
func (s IntervalSet) Union(other IntervalSet) IntervalSet {
	merged := make([]Interval, 0, len(s.ivs)+len(other.ivs))
	merged = append(merged, s.ivs...)
	merged = append(merged, other.ivs...)
	return IntervalSet{ivs: normalize(merged)}
}

// Intersect returns s ∩ other.
func (s IntervalSet) Intersect(other IntervalSet) IntervalSet {
	var out []Interval
	i, j := 0, 0
	for i < len(s.ivs) && j < len(other.ivs) {
		a, b := s.ivs[i], other.ivs[j]
		lo := a.Lo
		if b.Lo > lo {
			lo = b.Lo
		}
		hi := a.Hi
		if b.Hi < hi {
			hi = b.Hi
		}
		if lo < hi {
			out = append(out, Interval{lo, hi})
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	return IntervalSet{ivs: out}
}

// Difference returns s ∖ other.
func (s IntervalSet) Difference(other IntervalSet) IntervalSet {
	var out []Interval
	for _, a := range s.ivs {
		lo := a.Lo
		for _, b := range other.ivs {
			if b.Hi <= lo || b.Lo >= a.Hi {
				continue
			}
			if b.Lo > lo {
				out = append(out, Interval{lo, b.Lo})
			}
			if b.Hi > lo {
				lo = b.Hi
			}
			if lo >= a.Hi {
				break
			}
		}
		if lo < a.Hi {
			out = append(out, Interval{lo, a.Hi})
		}
	}
	return IntervalSet{ivs: normalize(out)}
}

// Complement returns the complement of s within [0, bound).
func (s IntervalSet) Complement(bound UChar) IntervalSet {
	return Range(0, bound).Difference(s)
}

// Partition splits (s, other) into the triple (s∩other, s∖other, other∖s),
// all pairwise disjoint, whose union equals s∪other.
func Partition(a, b IntervalSet) (both, onlyA, onlyB IntervalSet) {
	return a.Intersect(b), a.Difference(b), b.Difference(a)
}

// Equal reports whether s and other contain exactly the same code points.
func (s IntervalSet) Equal(other IntervalSet) bool {
	if len(s.ivs) != len(other.ivs) {
		return false
	}
	for i := range s.ivs {
		if s.ivs[i] != other.ivs[i] {
			return false
		}
	}
	return true
}
