// Package onfa eliminates epsilon and assertion transitions from a compiled
// ε-NFA, producing an ordered NFA: a dense automaton whose states are the
// original Consume states, each firing on a fixed subset of alphabet atoms
// to a priority-ordered successor list. Assertions are treated as always
// satisfied (epsilon) during elimination — an intentional over-approximation
// that can only make the checker report ambiguity it wouldn't otherwise see,
// never miss a real one.
package onfa

import "github.com/coregx/redosentinel/internal/ichar"

// State is a dense state id in the ordered NFA.
type State uint32

// Trans is one state's sole outgoing transition: the atoms it fires on, the
// priority-ordered sequence of successor states reached by taking it, and
// whether the overall pattern accepts immediately after taking it (i.e.
// Accept was in the post-transition epsilon closure). Targets may contain
// the same state more than once when it is reachable along two distinct
// acyclic ε-paths; the duplicate slots are distinct backtracking
// continuations and are preserved deliberately.
type Trans struct {
	Atoms   []int
	Targets []State
	Accept  bool
}

// NFA is the ordered automaton consumed by the ambiguity checker
// (internal/automaton).
type NFA struct {
	Alphabet []ichar.IChar

	// StartTargets/StartAccept are the epsilon closure of the ε-NFA's start
	// state: the priority-ordered initial states, and whether the empty
	// string is itself accepted.
	StartTargets []State
	StartAccept  bool

	// Trans holds one entry per State, indexed by State.
	Trans []Trans
}

// NumStates returns the number of dense states.
func (n *NFA) NumStates() int { return len(n.Trans) }
