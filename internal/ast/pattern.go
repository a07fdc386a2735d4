package ast

// FlagSet is the ECMA-262 regex flag string g i m s u y, parsed into bits.
type FlagSet struct {
	Global     bool // g
	IgnoreCase bool // i
	Multiline  bool // m
	DotAll     bool // s
	Unicode    bool // u
	Sticky     bool // y
}

// ParseFlags parses a flag string, rejecting unknown or duplicated flags.
func ParseFlags(s string) (FlagSet, error) {
	var f FlagSet
	seen := make(map[rune]bool)
	for _, r := range s {
		if seen[r] {
			return f, &SyntaxError{Code: "duplicate flag", Expr: string(r)}
		}
		seen[r] = true
		switch r {
		case 'g':
			f.Global = true
		case 'i':
			f.IgnoreCase = true
		case 'm':
			f.Multiline = true
		case 's':
			f.DotAll = true
		case 'u':
			f.Unicode = true
		case 'y':
			f.Sticky = true
		default:
			return f, &SyntaxError{Code: "invalid flag", Expr: string(r)}
		}
	}
	return f, nil
}

// Pattern bundles a parsed AST root with its flags.
type Pattern struct {
	Root  Node
	Flags FlagSet
}

// Size returns the total node count of the pattern.
func (p Pattern) Size() int { return p.Root.Size() }

// IsConstant reports whether the pattern contains no repetition of varying
// count anywhere in its tree — no unbounded repetition and no {m,n} range
// with m≠n. Such a pattern matches within a fixed-size window, so its
// matching time does not grow with input length.
func (p Pattern) IsConstant() bool {
	return isConstant(p.Root)
}

func isConstant(n Node) bool {
	if IsUnboundedRepetition(n) {
		return false
	}
	if t, ok := n.(Repeat); ok && t.Max != ExactCount && t.Max != t.Min {
		return false
	}
	for _, c := range children(n) {
		if !isConstant(c) {
			return false
		}
	}
	return true
}

// HasLineBeginAtBegin reports whether the pattern's first matched atom (in
// sequence order, ignoring groups) is a LineBegin assertion.
func (p Pattern) HasLineBeginAtBegin() bool {
	return hasLineBeginAtBegin(p.Root)
}

func hasLineBeginAtBegin(n Node) bool {
	switch t := n.(type) {
	case LineBegin:
		return true
	case Sequence:
		if len(t.Items) == 0 {
			return false
		}
		return hasLineBeginAtBegin(t.Items[0])
	case Capture:
		return hasLineBeginAtBegin(t.Sub)
	case NamedCapture:
		return hasLineBeginAtBegin(t.Sub)
	case Group:
		return hasLineBeginAtBegin(t.Sub)
	case Disjunction:
		for _, a := range t.Alts {
			if !hasLineBeginAtBegin(a) {
				return false
			}
		}
		return len(t.Alts) > 0
	default:
		return false
	}
}

// HasLineEndAtEnd reports whether the pattern's last matched atom is a
// LineEnd assertion.
func (p Pattern) HasLineEndAtEnd() bool {
	return hasLineEndAtEnd(p.Root)
}

func hasLineEndAtEnd(n Node) bool {
	switch t := n.(type) {
	case LineEnd:
		return true
	case Sequence:
		if len(t.Items) == 0 {
			return false
		}
		return hasLineEndAtEnd(t.Items[len(t.Items)-1])
	case Capture:
		return hasLineEndAtEnd(t.Sub)
	case NamedCapture:
		return hasLineEndAtEnd(t.Sub)
	case Group:
		return hasLineEndAtEnd(t.Sub)
	case Disjunction:
		for _, a := range t.Alts {
			if !hasLineEndAtEnd(a) {
				return false
			}
		}
		return len(t.Alts) > 0
	default:
		return false
	}
}

// children returns n's immediate subexpressions, for facts that need to
// walk the whole tree (e.g. IsConstant).
func children(n Node) []Node {
	switch t := n.(type) {
	case Disjunction:
		return t.Alts
	case Sequence:
		return t.Items
	case Capture:
		return []Node{t.Sub}
	case NamedCapture:
		return []Node{t.Sub}
	case Group:
		return []Node{t.Sub}
	case Star:
		return []Node{t.Sub}
	case Plus:
		return []Node{t.Sub}
	case Question:
		return []Node{t.Sub}
	case Repeat:
		return []Node{t.Sub}
	case LookAhead:
		return []Node{t.Sub}
	case LookBehind:
		return []Node{t.Sub}
	default:
		return nil
	}
}
