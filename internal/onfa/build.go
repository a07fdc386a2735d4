package onfa

import (
	"strconv"
	"strings"

	"github.com/coregx/redosentinel/internal/conv"
	"github.com/coregx/redosentinel/internal/enfa"
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/ichar"
)

// atomKey identifies an IChar by its exact rune-interval content, so a
// Consume state's ConsumeSet entries (which are always atoms taken directly
// from the same ICharSet) can be looked up by value.
func atomKey(ic ichar.IChar) string {
	var b strings.Builder
	for _, iv := range ic.Runes.Intervals() {
		b.WriteString(strconv.Itoa(int(iv.Lo)))
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(int(iv.Hi)))
		b.WriteByte(',')
	}
	return b.String()
}

// closure computes the epsilon/assertion closure of start: the
// priority-ordered list of Consume states reachable without consuming
// input, and whether Accept is reachable the same way. Cycle cutting is
// per ε-path, not global: a state is skipped only while it lies on the
// current path, so a Consume state reachable along two distinct acyclic
// ε-paths appears twice in the list. Those duplicate priority slots are
// two genuinely different backtracking continuations (continue a loop body
// vs exit and re-enter it), and the ambiguity checker needs to see both.
// Zero-width cycles ((?:)*) still terminate via the on-path check.
//
// maxTargets caps both the emitted list and (scaled) the traversal work,
// since ε-only diamonds can make the number of distinct acyclic paths grow
// combinatorially.
func closure(e *enfa.ENFA, start enfa.StateID, maxTargets int) (consumes []enfa.StateID, acceptReached bool, err error) {
	onPath := make(map[enfa.StateID]bool)
	budget := maxTargets * 64
	var dfs func(enfa.StateID) error
	dfs = func(id enfa.StateID) error {
		budget--
		if budget < 0 {
			return errs.Unsupported("ordered NFA size is too large")
		}
		s := e.State(id)
		switch s.K {
		case enfa.KindAccept:
			acceptReached = true
		case enfa.KindConsume:
			if len(consumes) >= maxTargets {
				return errs.Unsupported("ordered NFA size is too large")
			}
			consumes = append(consumes, id)
		case enfa.KindAssert:
			if onPath[id] {
				return nil
			}
			onPath[id] = true
			if err := dfs(s.AssertNext); err != nil {
				return err
			}
			delete(onPath, id)
		case enfa.KindEps:
			if onPath[id] {
				return nil
			}
			onPath[id] = true
			for _, t := range s.EpsTargets {
				if err := dfs(t); err != nil {
					return err
				}
			}
			delete(onPath, id)
		}
		return nil
	}
	if err := dfs(start); err != nil {
		return nil, false, err
	}
	return consumes, acceptReached, nil
}

// Build eliminates epsilons from e, producing an ordered NFA over icharSet's
// frozen atoms. maxStates caps the number of dense states discovered;
// exceeding it fails with an Unsupported error rather than growing without
// bound, mirroring the compiled-program size caps a backtracking engine
// enforces up front.
func Build(e *enfa.ENFA, icharSet *ichar.ICharSet, to graph.Timeout, maxStates int) (*NFA, error) {
	atoms := icharSet.Atoms()
	atomIdx := make(map[string]int, len(atoms))
	for i, a := range atoms {
		atomIdx[atomKey(a)] = i
	}

	idOf := make(map[enfa.StateID]State)
	var order []enfa.StateID

	dense := func(eid enfa.StateID) (State, bool) {
		if id, ok := idOf[eid]; ok {
			return id, false
		}
		id := State(conv.IntToUint32(len(order)))
		idOf[eid] = id
		order = append(order, eid)
		return id, true
	}

	startConsumes, startAccept, err := closure(e, e.Start, maxStates)
	if err != nil {
		return nil, err
	}
	var queue []enfa.StateID
	startTargets := make([]State, 0, len(startConsumes))
	for _, c := range startConsumes {
		id, isNew := dense(c)
		startTargets = append(startTargets, id)
		if isNew {
			queue = append(queue, c)
		}
	}

	trans := make([]Trans, 0, len(order))
	for len(queue) > 0 {
		if err := to.Check("onfa.build"); err != nil {
			return nil, err
		}
		if len(order) > maxStates {
			return nil, errs.Unsupported("ordered NFA size is too large")
		}
		cur := queue[0]
		queue = queue[1:]
		s := e.State(cur)

		consumes, accept, err := closure(e, s.ConsumeNext, maxStates)
		if err != nil {
			return nil, err
		}
		targets := make([]State, 0, len(consumes))
		for _, c := range consumes {
			id, isNew := dense(c)
			targets = append(targets, id)
			if isNew {
				queue = append(queue, c)
			}
		}

		atomsFired := make([]int, 0, len(s.ConsumeSet))
		for _, a := range s.ConsumeSet {
			if idx, ok := atomIdx[atomKey(a)]; ok {
				atomsFired = append(atomsFired, idx)
			}
		}

		curID := idOf[cur]
		for int(curID) >= len(trans) {
			trans = append(trans, Trans{})
		}
		trans[curID] = Trans{Atoms: atomsFired, Targets: targets, Accept: accept}
	}

	return &NFA{
		Alphabet:     atoms,
		StartTargets: startTargets,
		StartAccept:  startAccept,
		Trans:        trans,
	}, nil
}
