package ast

import "testing"

func mustParse(t *testing.T, src, flags string) Pattern {
	t.Helper()
	p, err := Parse(src, flags)
	if err != nil {
		t.Fatalf("Parse(%q, %q) failed: %v", src, flags, err)
	}
	return p
}

func TestParseLiteralSequence(t *testing.T) {
	p := mustParse(t, "abc", "")
	seq, ok := p.Root.(Sequence)
	if !ok || len(seq.Items) != 3 {
		t.Fatalf("expected 3-item sequence, got %#v", p.Root)
	}
}

func TestParseDisjunction(t *testing.T) {
	p := mustParse(t, "a|b", "")
	d, ok := p.Root.(Disjunction)
	if !ok || len(d.Alts) != 2 {
		t.Fatalf("expected 2-way disjunction, got %#v", p.Root)
	}
}

func TestParseStarIsUnbounded(t *testing.T) {
	p := mustParse(t, "a*", "")
	if p.IsConstant() {
		t.Fatalf("a* must not be constant")
	}
}

func TestParseConstantPattern(t *testing.T) {
	p := mustParse(t, "abc", "")
	if !p.IsConstant() {
		t.Fatalf("abc must be constant")
	}
}

func TestParseBoundedRepeatRange(t *testing.T) {
	p := mustParse(t, "a{3,5}", "")
	rep, ok := p.Root.(Repeat)
	if !ok || rep.Min != 3 || rep.Max != 5 {
		t.Fatalf("expected Repeat{3,5}, got %#v", p.Root)
	}
	if p.IsConstant() {
		t.Fatalf("a range repetition varies the match window; must not be constant")
	}
}

func TestParseExactRepeatIsConstant(t *testing.T) {
	p := mustParse(t, "a{3}", "")
	rep, ok := p.Root.(Repeat)
	if !ok || rep.Min != 3 || rep.Max != ExactCount {
		t.Fatalf("expected Repeat{3}, got %#v", p.Root)
	}
	if !p.IsConstant() {
		t.Fatalf("an exact-count repetition must stay constant")
	}
}

func TestParseUnboundedRepeat(t *testing.T) {
	p := mustParse(t, "a{3,}", "")
	rep, ok := p.Root.(Repeat)
	if !ok || rep.Max != NoUpperBound {
		t.Fatalf("expected unbounded Repeat, got %#v", p.Root)
	}
	if p.IsConstant() {
		t.Fatalf("a{3,} must not be constant")
	}
}

func TestParseNamedCapture(t *testing.T) {
	p := mustParse(t, "(?<year>\\d{4})", "")
	nc, ok := p.Root.(NamedCapture)
	if !ok || nc.Name != "year" || nc.Index != 1 {
		t.Fatalf("expected named capture 'year', got %#v", p.Root)
	}
}

func TestParseLookAhead(t *testing.T) {
	p := mustParse(t, "a(?=b)", "")
	seq, ok := p.Root.(Sequence)
	if !ok || len(seq.Items) != 2 {
		t.Fatalf("expected 2-item sequence, got %#v", p.Root)
	}
	if _, ok := seq.Items[1].(LookAhead); !ok {
		t.Fatalf("expected LookAhead, got %#v", seq.Items[1])
	}
}

func TestParseLookBehindNegative(t *testing.T) {
	p := mustParse(t, "(?<!foo)bar", "")
	seq, ok := p.Root.(Sequence)
	if !ok {
		t.Fatalf("expected sequence, got %#v", p.Root)
	}
	lb, ok := seq.Items[0].(LookBehind)
	if !ok || !lb.Invert {
		t.Fatalf("expected negative look-behind, got %#v", seq.Items[0])
	}
}

func TestParseBackReference(t *testing.T) {
	p := mustParse(t, "(a)\\1", "")
	seq, ok := p.Root.(Sequence)
	if !ok || len(seq.Items) != 2 {
		t.Fatalf("expected 2-item sequence, got %#v", p.Root)
	}
	if _, ok := seq.Items[1].(BackReference); !ok {
		t.Fatalf("expected BackReference, got %#v", seq.Items[1])
	}
}

func TestParseFlags(t *testing.T) {
	fs, err := ParseFlags("gim")
	if err != nil {
		t.Fatal(err)
	}
	if !fs.Global || !fs.IgnoreCase || !fs.Multiline {
		t.Fatalf("flags not parsed correctly: %+v", fs)
	}
}

func TestParseFlagsDuplicateRejected(t *testing.T) {
	if _, err := ParseFlags("gg"); err == nil {
		t.Fatalf("expected error for duplicate flag")
	}
}

func TestHasLineBeginEnd(t *testing.T) {
	p := mustParse(t, "^abc$", "")
	if !p.HasLineBeginAtBegin() || !p.HasLineEndAtEnd() {
		t.Fatalf("expected anchors at both ends")
	}
}

func TestParseCharacterClass(t *testing.T) {
	p := mustParse(t, "[a-z0-9]", "")
	cc, ok := p.Root.(CharacterClass)
	if !ok || len(cc.Items) != 2 {
		t.Fatalf("expected 2-item character class, got %#v", p.Root)
	}
}

func TestParseNegatedCharacterClass(t *testing.T) {
	p := mustParse(t, "[^a-z]", "")
	cc, ok := p.Root.(CharacterClass)
	if !ok || !cc.Invert {
		t.Fatalf("expected inverted class, got %#v", p.Root)
	}
}
