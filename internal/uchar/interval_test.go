package uchar

import "testing"

func TestIntervalSetUnionCommutative(t *testing.T) {
	a := Range(0, 10).Union(Range(20, 30))
	b := Range(20, 30).Union(Range(0, 10))
	if !a.Equal(b) {
		t.Fatalf("union not commutative: %v vs %v", a.Intervals(), b.Intervals())
	}
}

func TestIntervalSetDistributivity(t *testing.T) {
	a := Range(0, 20)
	b := Range(10, 30)
	c := Range(25, 40)

	lhs := a.Intersect(b.Union(c))
	rhs := a.Intersect(b).Union(a.Intersect(c))
	if !lhs.Equal(rhs) {
		t.Fatalf("distributivity failed: lhs=%v rhs=%v", lhs.Intervals(), rhs.Intervals())
	}
}

func TestIntervalSetDoubleComplement(t *testing.T) {
	a := Range(5, 15).Union(Range(100, 200))
	comp := a.Complement(MaxBMP)
	back := comp.Complement(MaxBMP)
	if !a.Equal(back) {
		t.Fatalf("double complement mismatch: %v vs %v", a.Intervals(), back.Intervals())
	}
}

func TestPartitionDisjointAndCovers(t *testing.T) {
	a := Range(0, 10).Union(Range(20, 30))
	b := Range(5, 25)

	both, onlyA, onlyB := Partition(a, b)

	if !both.Intersect(onlyA).IsEmpty() || !both.Intersect(onlyB).IsEmpty() || !onlyA.Intersect(onlyB).IsEmpty() {
		t.Fatalf("partition pieces not disjoint")
	}
	union := both.Union(onlyA).Union(onlyB)
	expected := a.Union(b)
	if !union.Equal(expected) {
		t.Fatalf("partition union mismatch: got %v want %v", union.Intervals(), expected.Intervals())
	}
}

func TestIntervalSetInvariantCoalesced(t *testing.T) {
	s := FromIntervals([]Interval{{0, 5}, {5, 10}, {20, 25}, {8, 12}})
	ivs := s.Intervals()
	for i, iv := range ivs {
		if iv.Lo >= iv.Hi {
			t.Fatalf("interval %d is empty: %v", i, iv)
		}
		if i > 0 && ivs[i-1].Hi >= iv.Lo {
			t.Fatalf("intervals %d and %d are not coalesced/sorted: %v %v", i-1, i, ivs[i-1], iv)
		}
	}
}

func TestContains(t *testing.T) {
	s := Range(10, 20).Union(Range(30, 40))
	for _, c := range []UChar{9, 10, 19, 20, 29, 30, 39, 40} {
		want := (c >= 10 && c < 20) || (c >= 30 && c < 40)
		if s.Contains(c) != want {
			t.Errorf("Contains(%d) = %v, want %v", c, s.Contains(c), want)
		}
	}
}

func TestCaseFoldClosureASCII(t *testing.T) {
	a := Single('a')
	closure := FoldClosure(a)
	if !closure.Contains('a') || !closure.Contains('A') {
		t.Fatalf("expected fold closure of 'a' to contain 'A', got %v", closure.Intervals())
	}
}

func TestCaseFoldClosureFromUppercase(t *testing.T) {
	// 'A' is its own orbit's canonical representative, so the closure must
	// come from the rule images, not the rule domains.
	closure := FoldClosure(Single('A'))
	if !closure.Contains('a') || !closure.Contains('A') {
		t.Fatalf("expected fold closure of 'A' to contain 'a', got %v", closure.Intervals())
	}
}
