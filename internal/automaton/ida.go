package automaton

import (
	"sort"

	"github.com/coregx/redosentinel/internal/graph"
	"github.com/coregx/redosentinel/internal/onfa"
)

// idaLink witnesses that the loopy SCC containing diag(from,from) can reach
// the loopy SCC containing diag(to,to) via the off-diagonal pair (from,to).
type idaLink struct {
	from, to onfa.State
}

// detectIDA looks for a chain of distinct "loopy" product SCCs (each
// containing a cycle) linked by off-diagonal reachability: an edge
// C1 → C2 exists when some p∈C1, q∈C2 have an off-diagonal
// pair (p,q) reachable from diag(p,p) and able to reach diag(q,q). The
// longest such chain's length is the polynomial degree.
//
// This builds its own product graph (buildProduct is cheap to repeat; it is
// only invoked when EDA already failed to find a witness, i.e. once per
// analysis at most).
func detectIDA(n *onfa.NFA, to graph.Timeout, maxNFASize int) (int, *Witness, error) {
	g, N, err := buildProduct(n, maxNFASize, to)
	if err != nil {
		return 0, nil, err
	}
	sccs, err := g.SCC(to)
	if err != nil {
		return 0, nil, err
	}

	compOf := make(map[graph.Vertex]int, N*N)
	loopy := make(map[int]bool)
	for idx, comp := range sccs {
		for _, v := range comp {
			compOf[v] = idx
		}
		if len(comp) > 1 {
			loopy[idx] = true
			continue
		}
		v := comp[0]
		for _, e := range g.Edges(v) {
			if e.To == v {
				loopy[idx] = true
			}
		}
	}

	// loopyComponentOf(p) is the component index of diag(p,p) when that
	// component is loopy, else -1.
	loopyComponentOf := func(p onfa.State) int {
		v := encodePairSize(N, p, p)
		idx, ok := compOf[v]
		if !ok || !loopy[idx] {
			return -1
		}
		return idx
	}

	links := make(map[[2]int]idaLink) // (fromComp,toComp) -> witness pair
	for p := 0; p < N; p++ {
		c1 := loopyComponentOf(onfa.State(p))
		if c1 < 0 {
			continue
		}
		for q := 0; q < N; q++ {
			if err := to.Check("automaton.detectIDA"); err != nil {
				return 0, nil, err
			}
			if p == q {
				continue
			}
			c2 := loopyComponentOf(onfa.State(q))
			if c2 < 0 || c2 == c1 {
				continue
			}
			key := [2]int{c1, c2}
			if _, seen := links[key]; seen {
				continue
			}
			diagP := encodePairSize(N, onfa.State(p), onfa.State(p))
			off := encodePairSize(N, onfa.State(p), onfa.State(q))
			diagQ := encodePairSize(N, onfa.State(q), onfa.State(q))
			_, ok1, err := g.Path([]graph.Vertex{diagP}, off, to)
			if err != nil {
				return 0, nil, err
			}
			if !ok1 {
				continue
			}
			_, ok2, err := g.Path([]graph.Vertex{off}, diagQ, to)
			if err != nil {
				return 0, nil, err
			}
			if !ok2 {
				continue
			}
			links[key] = idaLink{from: onfa.State(p), to: onfa.State(q)}
		}
	}

	chain, ok := longestChain(links)
	if !ok {
		return 1, nil, nil
	}

	w, err := buildIDAWitness(n, g, N, chain, to)
	if err != nil {
		return 0, nil, err
	}
	// Degree counts the loopy SCCs along the chain — one more than the
	// links between them; the Witness carries one pump per SCC.
	return len(chain) + 1, w, nil
}

// longestChain finds the longest simple path through the component-link
// graph implied by links, returning the ordered sequence of idaLinks that
// make it up. Components are visited via the links map, deterministically
// ordered so ties resolve the same way across runs.
func longestChain(links map[[2]int]idaLink) ([]idaLink, bool) {
	adj := make(map[int][]int)
	for k := range links {
		adj[k[0]] = append(adj[k[0]], k[1])
	}
	for from := range adj {
		sort.Ints(adj[from])
	}

	var starts []int
	for k := range links {
		starts = append(starts, k[0])
	}
	sort.Ints(starts)

	var best []int
	var dfs func(path []int, visited map[int]bool)
	dfs = func(path []int, visited map[int]bool) {
		if len(path) > len(best) {
			best = append([]int(nil), path...)
		}
		cur := path[len(path)-1]
		for _, next := range adj[cur] {
			if visited[next] {
				continue
			}
			visited[next] = true
			dfs(append(path, next), visited)
			visited[next] = false
		}
	}
	seenStart := make(map[int]bool)
	for _, s := range starts {
		if seenStart[s] {
			continue
		}
		seenStart[s] = true
		visited := map[int]bool{s: true}
		dfs([]int{s}, visited)
	}
	if len(best) < 2 {
		return nil, false
	}

	chain := make([]idaLink, 0, len(best)-1)
	for i := 0; i+1 < len(best); i++ {
		chain = append(chain, links[[2]int{best[i], best[i+1]}])
	}
	return chain, true
}

// cycleAt finds a short cycle from diag back to itself through the product
// graph, used as one Witness pump segment. Edges are tried in insertion
// order and the first that closes a cycle wins, so the pump is stable
// across runs.
func cycleAt(g *graph.Graph[int], diag graph.Vertex, to graph.Timeout) ([]int, error) {
	for _, e := range g.Edges(diag) {
		if e.To == diag {
			return []int{e.Label}, nil
		}
		rest, ok, err := g.Path([]graph.Vertex{e.To}, diag, to)
		if err != nil {
			return nil, err
		}
		if ok {
			return append([]int{e.Label}, rest...), nil
		}
	}
	return nil, nil
}

// buildIDAWitness builds the k-segment Witness for a polynomial-degree
// chain: a prefix into the first loopy SCC, then for each link a pump
// (cycle at the SCC's diagonal) followed by the prefix crossing into the
// next SCC, and finally a suffix to the sentinel accept vertex.
func buildIDAWitness(n *onfa.NFA, g *graph.Graph[int], N int, chain []idaLink, to graph.Timeout) (*Witness, error) {
	first := chain[0].from
	firstDiag := encodePairSize(N, first, first)

	prefix0, ok, err := g.Path(startVertices(n), firstDiag, to)
	if err != nil {
		return nil, err
	}
	if !ok {
		prefix0 = nil
	}

	pumps := make([]PumpSegment, 0, len(chain))
	pump0, err := cycleAt(g, firstDiag, to)
	if err != nil {
		return nil, err
	}
	pumps = append(pumps, PumpSegment{Prefix: labelsToRunes(n, prefix0), Pump: labelsToRunes(n, pump0)})

	last := first
	for _, link := range chain {
		diagFrom := encodePairSize(N, link.from, link.from)
		off := encodePairSize(N, link.from, link.to)
		diagTo := encodePairSize(N, link.to, link.to)

		// Consecutive links may anchor at different diagonal states of the
		// same SCC; bridge the gap so the expanded string actually drives
		// the automaton through every segment. Both diagonals lie in one
		// strongly connected component, so the bridge always exists.
		var crossing []int
		if link.from != last {
			conn, ok, err := g.Path([]graph.Vertex{encodePairSize(N, last, last)}, diagFrom, to)
			if err != nil {
				return nil, err
			}
			if ok {
				crossing = append(crossing, conn...)
			}
		}

		toOff, _, err := g.Path([]graph.Vertex{diagFrom}, off, to)
		if err != nil {
			return nil, err
		}
		toDiag, _, err := g.Path([]graph.Vertex{off}, diagTo, to)
		if err != nil {
			return nil, err
		}
		crossing = append(append(crossing, toOff...), toDiag...)

		pump, err := cycleAt(g, diagTo, to)
		if err != nil {
			return nil, err
		}
		pumps = append(pumps, PumpSegment{Prefix: labelsToRunes(n, crossing), Pump: labelsToRunes(n, pump)})
		last = link.to
	}

	lastDiag := encodePairSize(N, last, last)
	suffix, ok, err := g.Path([]graph.Vertex{lastDiag}, acceptVertex(n), to)
	if err != nil {
		return nil, err
	}
	if !ok {
		suffix = nil
	}

	return &Witness{Pumps: pumps, Suffix: labelsToRunes(n, suffix)}, nil
}
