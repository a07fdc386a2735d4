package automaton

import (
	"sort"

	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/onfa"
)

// edaWitness records the structure that witnesses exponential degree of
// ambiguity within one product SCC. Two shapes qualify:
//
//   - an off-diagonal pair: the SCC holds both a diagonal (p,p) and a pair
//     (p1,p2) with p1≠p2, i.e. two simulated backtracking runs loop on the
//     same string while visiting different states;
//   - a duplicate transition: a diagonal (p,p) carries two parallel edges
//     with the same label to the same in-SCC target, which happens exactly
//     when the ordered NFA's δ lists a successor twice — two priority
//     slots, two distinct ways to consume the same character and loop.
type edaWitness struct {
	diag graph.Vertex

	offDiag graph.Vertex // valid when !viaDup

	viaDup   bool
	dupLabel int
	dupTo    graph.Vertex
}

// detectEDA scans the product SCCs for either EDA shape. Components and
// their vertices are visited in a deterministic order (by minimum vertex
// id) so that, among several qualifying components, the first one found is
// always the same across runs (the checker's tie-break rule). Within a
// component the off-diagonal shape is preferred over the duplicate shape.
func detectEDA(g *graph.Graph[int], sccs [][]graph.Vertex, N int, to graph.Timeout) (edaWitness, bool, error) {
	ordered := make([][]graph.Vertex, len(sccs))
	copy(ordered, sccs)
	for _, c := range ordered {
		sort.Slice(c, func(i, j int) bool { return c[i] < c[j] })
	}
	sort.Slice(ordered, func(i, j int) bool {
		return minVertex(ordered[i]) < minVertex(ordered[j])
	})

	for _, comp := range ordered {
		if err := to.Check("automaton.detectEDA"); err != nil {
			return edaWitness{}, false, err
		}
		if w, ok := offDiagonalWitness(comp, N); ok {
			return w, true, nil
		}
		if w, ok := duplicateEdgeWitness(g, comp, N); ok {
			return w, true, nil
		}
	}
	return edaWitness{}, false, nil
}

// offDiagonalWitness looks for a diagonal plus an off-diagonal pair in the
// same component.
func offDiagonalWitness(comp []graph.Vertex, N int) (edaWitness, bool) {
	if len(comp) < 2 {
		return edaWitness{}, false
	}
	var diag, offDiag graph.Vertex
	haveDiag, haveOff := false, false
	for _, v := range comp {
		p, q := decodePairSize(N, v)
		if p == q && !haveDiag {
			diag = v
			haveDiag = true
		} else if p != q && !haveOff {
			offDiag = v
			haveOff = true
		}
		if haveDiag && haveOff {
			break
		}
	}
	if haveDiag && haveOff {
		return edaWitness{diag: diag, offDiag: offDiag}, true
	}
	return edaWitness{}, false
}

// duplicateEdgeWitness looks for a diagonal vertex with two parallel edges
// on the same label to the same in-component target.
func duplicateEdgeWitness(g *graph.Graph[int], comp []graph.Vertex, N int) (edaWitness, bool) {
	inComp := make(map[graph.Vertex]bool, len(comp))
	for _, v := range comp {
		inComp[v] = true
	}
	type edgeKey struct {
		label int
		to    graph.Vertex
	}
	for _, v := range comp {
		p, q := decodePairSize(N, v)
		if p != q {
			continue
		}
		seen := make(map[edgeKey]bool)
		for _, e := range g.Edges(v) {
			if !inComp[e.To] {
				continue
			}
			k := edgeKey{label: e.Label, to: e.To}
			if seen[k] {
				return edaWitness{diag: v, viaDup: true, dupLabel: e.Label, dupTo: e.To}, true
			}
			seen[k] = true
		}
	}
	return edaWitness{}, false
}

func minVertex(vs []graph.Vertex) graph.Vertex {
	m := vs[0]
	for _, v := range vs[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// buildEDAWitness turns an edaWitness into the symbolic Witness: a prefix
// from any initial product pair to the diagonal, a pump cycling back to the
// diagonal (through the off-diagonal node, or via the duplicated edge), and
// a suffix from the diagonal to the sentinel accept vertex.
func buildEDAWitness(n *onfa.NFA, g *graph.Graph[int], N int, w edaWitness, to graph.Timeout) (*Witness, error) {
	prefixLabels, ok, err := g.Path(startVertices(n), w.diag, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		prefixLabels = nil
	}

	var pump []int
	if w.viaDup {
		pump = []int{w.dupLabel}
		if w.dupTo != w.diag {
			back, ok, err := g.Path([]graph.Vertex{w.dupTo}, w.diag, to)
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, errNoWitness
			}
			pump = append(pump, back...)
		}
	} else {
		toOff, ok, err := g.Path([]graph.Vertex{w.diag}, w.offDiag, to)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errNoWitness
		}
		backToDiag, ok, err := g.Path([]graph.Vertex{w.offDiag}, w.diag, to)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errNoWitness
		}
		pump = append(append([]int(nil), toOff...), backToDiag...)
	}

	suffixLabels, ok, err := g.Path([]graph.Vertex{w.diag}, acceptVertex(n), to)
	if err != nil {
		return nil, err
	}
	if !ok {
		suffixLabels = nil
	}

	return &Witness{
		Pumps: []PumpSegment{{
			Prefix: labelsToRunes(n, prefixLabels),
			Pump:   labelsToRunes(n, pump),
		}},
		Suffix: labelsToRunes(n, suffixLabels),
	}, nil
}
