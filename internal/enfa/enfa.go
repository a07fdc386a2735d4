// Package enfa compiles a pattern AST into an ε-NFA: states whose
// transitions are epsilon-priority-lists (backtracking order), zero-width
// assertions, or width-one symbol-set consumes.
package enfa

import (
	"github.com/coregx/redosentinel/internal/conv"
	"github.com/coregx/redosentinel/internal/ichar"
)

// StateID is a dense state id within one ε-NFA.
type StateID uint32

// AssertKind enumerates the zero-width assertions the ε-NFA can check.
// Lookaround is not included: the compiler rejects it with Unsupported,
// since the automaton path does not model it.
type AssertKind uint8

const (
	AssertLineBegin AssertKind = iota
	AssertLineEnd
	AssertWordBoundary
	AssertNotWordBoundary
)

// Kind identifies which of the three transition shapes a state carries.
type Kind uint8

const (
	KindAccept Kind = iota
	KindEps
	KindAssert
	KindConsume
)

// State is one ε-NFA state. Exactly the fields matching Kind are valid.
type State struct {
	ID StateID
	K  Kind

	// KindEps: ordered priority list of successor states; first tried first.
	EpsTargets []StateID

	// KindAssert:
	AssertKind AssertKind
	AssertNext StateID

	// KindConsume: the set of alphabet atoms this transition matches.
	ConsumeSet  []ichar.IChar
	ConsumeNext StateID
}

// ENFA is a compiled ε-NFA with a single start and accept state (standard
// Thompson-construction fragments are wired together by the compiler into
// one overall fragment).
type ENFA struct {
	States []*State
	Start  StateID
	Accept StateID
}

func (e *ENFA) State(id StateID) *State { return e.States[id] }

func (e *ENFA) newState() *State {
	s := &State{ID: StateID(conv.IntToUint32(len(e.States))), K: KindAccept}
	e.States = append(e.States, s)
	return s
}
