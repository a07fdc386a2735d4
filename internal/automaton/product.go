package automaton

import (
	"github.com/coregx/redosentinel/internal/errs"
	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/onfa"
)

// acceptVertex is the sentinel vertex every accepting transition targets in
// the product graph: a single "match completed" node shared by both
// EDA and IDA suffix construction, so BFS path-finding has one fixed
// destination instead of a set of accepting diagonal pairs.
func acceptVertex(n *onfa.NFA) graph.Vertex {
	return graph.Vertex(n.NumStates() * n.NumStates())
}


func encodePair(n *onfa.NFA, p, q onfa.State) graph.Vertex {
	return encodePairSize(n.NumStates(), p, q)
}

func encodePairSize(size int, p, q onfa.State) graph.Vertex {
	return graph.Vertex(int(p)*size + int(q))
}

func decodePairSize(size int, v graph.Vertex) (p, q onfa.State) {
	return onfa.State(int(v) / size), onfa.State(int(v) % size)
}

// atomSet turns a Trans's sorted-on-build atom list into a membership set
// for fast pairwise intersection while building the product graph.
func atomSet(atoms []int) map[int]bool {
	m := make(map[int]bool, len(atoms))
	for _, a := range atoms {
		m[a] = true
	}
	return m
}

// buildProduct builds the product automaton G² over n's own states: an
// edge (p1,p2) --a--> (p1',p2') exists iff both p1--a-->p1' and p2--a-->p2'
// hold in n's transition function. A sentinel
// "accept" vertex is wired in from every diagonal (q,q) whose transition
// accepts and has at least one atom, by a single edge labelled with that
// transition's first atom, so path
// queries toward "some accepting diagonal" reduce to a single BFS target.
//
// maxNFASize bounds n.NumStates() already (onfa.Build enforces it); this
// function re-checks before doing any O(N²) work, since the squared bound
// is what product construction can actually exhaust.
func buildProduct(n *onfa.NFA, maxNFASize int, to graph.Timeout) (*graph.Graph[int], int, error) {
	size := n.NumStates()
	if size > maxNFASize {
		return nil, 0, errs.Unsupported("MultiNFA size is too large")
	}

	g := graph.New[int]()
	acc := acceptVertex(n)
	g.AddVertex(acc)

	sets := make([]map[int]bool, size)
	for i, tr := range n.Trans {
		sets[i] = atomSet(tr.Atoms)
	}

	for p1 := 0; p1 < size; p1++ {
		for p2 := 0; p2 < size; p2++ {
			if err := to.Check("automaton.buildProduct"); err != nil {
				return nil, 0, err
			}
			v := encodePair(n, onfa.State(p1), onfa.State(p2))
			g.AddVertex(v)

			t1 := n.Trans[p1]
			t2 := n.Trans[p2]
			for _, a := range t1.Atoms {
				if !sets[p2][a] {
					continue
				}
				for _, t1p := range t1.Targets {
					for _, t2p := range t2.Targets {
						g.AddEdge(v, a, encodePair(n, t1p, t2p))
					}
				}
			}
			if p1 == p2 && t1.Accept && len(t1.Atoms) > 0 {
				g.AddEdge(v, t1.Atoms[0], acc)
			}
		}
	}
	return g, size, nil
}

// labelsToRunes maps a path's atom-index labels to a representative code
// point per atom: the smallest code point in the atom's interval set,
// which is always a member since intervals are non-empty.
func labelsToRunes(n *onfa.NFA, labels []int) []rune {
	out := make([]rune, 0, len(labels))
	for _, a := range labels {
		atom := n.Alphabet[a]
		ivs := atom.Runes.Intervals()
		if len(ivs) == 0 {
			continue
		}
		out = append(out, rune(ivs[0].Lo))
	}
	return out
}

// startVertices returns every (i,j) pair of the ordered NFA's initial
// states: the product automaton's legal starting points, since two
// candidate backtracking paths for the same string may begin at two
// different (priority-ordered) start states.
func startVertices(n *onfa.NFA) []graph.Vertex {
	var out []graph.Vertex
	for _, i := range n.StartTargets {
		for _, j := range n.StartTargets {
			out = append(out, encodePair(n, i, j))
		}
	}
	return out
}
