package graph

import "sort"

// Vertex is a dense integer vertex id.
type Vertex uint32

// Edge is one labeled edge to a target vertex. Multigraph: two edges with
// the same (From, To) but different Label, or identical edges, may both be
// present.
type Edge[L any] struct {
	Label L
	To    Vertex
}

// Graph is a directed labeled multigraph over dense vertex ids, represented
// as a mapping from vertex to its ordered sequence of outgoing edges (order
// matters: it encodes the ordered-NFA's backtracking priority when the
// graph is a product automaton).
type Graph[L any] struct {
	out      map[Vertex][]Edge[L]
	vertices map[Vertex]struct{}
}

// New returns an empty graph.
func New[L any]() *Graph[L] {
	return &Graph[L]{out: make(map[Vertex][]Edge[L]), vertices: make(map[Vertex]struct{})}
}

// AddVertex registers v even if it has no edges yet.
func (g *Graph[L]) AddVertex(v Vertex) {
	g.vertices[v] = struct{}{}
}

// AddEdge adds a v --label--> to edge, appending to v's ordered edge list.
func (g *Graph[L]) AddEdge(from Vertex, label L, to Vertex) {
	g.AddVertex(from)
	g.AddVertex(to)
	g.out[from] = append(g.out[from], Edge[L]{Label: label, To: to})
}

// Edges returns v's outgoing edges in insertion order.
func (g *Graph[L]) Edges(v Vertex) []Edge[L] {
	return g.out[v]
}

// Vertices returns all registered vertices in ascending id order. The
// fixed order makes every traversal that starts from it (SCC in
// particular) deterministic, which the analysis pipeline's reproducibility
// guarantee depends on.
func (g *Graph[L]) Vertices() []Vertex {
	vs := make([]Vertex, 0, len(g.vertices))
	for v := range g.vertices {
		vs = append(vs, v)
	}
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	return vs
}

// NumVertices returns the number of registered vertices.
func (g *Graph[L]) NumVertices() int { return len(g.vertices) }

// Reverse returns a new graph with every edge's endpoints swapped.
func (g *Graph[L]) Reverse() *Graph[L] {
	r := New[L]()
	for v := range g.vertices {
		r.AddVertex(v)
	}
	for from, edges := range g.out {
		for _, e := range edges {
			r.AddEdge(e.To, e.Label, from)
		}
	}
	return r
}

// Reachable returns the subgraph induced by vertices reachable from init
// via forward traversal (including init itself).
func (g *Graph[L]) Reachable(init []Vertex, to Timeout) (*Graph[L], error) {
	seen := make(map[Vertex]bool)
	stack := append([]Vertex(nil), init...)
	for _, v := range init {
		seen[v] = true
	}
	for len(stack) > 0 {
		if err := to.Check("graph.reachable"); err != nil {
			return nil, err
		}
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.out[v] {
			if !seen[e.To] {
				seen[e.To] = true
				stack = append(stack, e.To)
			}
		}
	}
	sub := New[L]()
	for v := range seen {
		sub.AddVertex(v)
		for _, e := range g.out[v] {
			if seen[e.To] {
				sub.AddEdge(v, e.Label, e.To)
			}
		}
	}
	return sub, nil
}

// ReachableMap returns, per vertex, the set of descendants including
// itself. The input graph must be acyclic; this assumption is the caller's
// responsibility, and behavior on cyclic input is unspecified.
func (g *Graph[L]) ReachableMap(to Timeout) (map[Vertex]map[Vertex]bool, error) {
	memo := make(map[Vertex]map[Vertex]bool)
	var visit func(v Vertex) (map[Vertex]bool, error)
	visit = func(v Vertex) (map[Vertex]bool, error) {
		if m, ok := memo[v]; ok {
			return m, nil
		}
		if err := to.Check("graph.reachableMap"); err != nil {
			return nil, err
		}
		m := map[Vertex]bool{v: true}
		memo[v] = m // break self-loops before recursing on children
		for _, e := range g.out[v] {
			if e.To == v {
				continue
			}
			child, err := visit(e.To)
			if err != nil {
				return nil, err
			}
			for d := range child {
				m[d] = true
			}
		}
		return m, nil
	}
	for v := range g.vertices {
		if _, err := visit(v); err != nil {
			return nil, err
		}
	}
	return memo, nil
}
