package graph

import "testing"

func TestSCCDAGAllTrivial(t *testing.T) {
	g := New[string]()
	g.AddEdge(0, "a", 1)
	g.AddEdge(1, "b", 2)
	g.AddEdge(0, "c", 2)

	comps, err := g.SCC(NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if len(comps) != 3 {
		t.Fatalf("expected 3 trivial components on a DAG, got %d: %v", len(comps), comps)
	}
	for _, c := range comps {
		if len(c) != 1 {
			t.Errorf("expected singleton component on a DAG, got %v", c)
		}
	}
}

func TestSCCStronglyConnected(t *testing.T) {
	g := New[string]()
	g.AddEdge(0, "a", 1)
	g.AddEdge(1, "b", 2)
	g.AddEdge(2, "c", 0)

	comps, err := g.SCC(NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if len(comps) != 1 || len(comps[0]) != 3 {
		t.Fatalf("expected one component of size 3, got %v", comps)
	}
}

func TestSCCSelfLoop(t *testing.T) {
	g := New[string]()
	g.AddVertex(0)
	g.AddEdge(0, "loop", 0)
	g.AddVertex(1)

	comps, err := g.SCC(NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if len(comps) != 2 {
		t.Fatalf("expected 2 components, got %v", comps)
	}
}

func TestPathFindsShortest(t *testing.T) {
	g := New[string]()
	g.AddEdge(0, "a", 1)
	g.AddEdge(1, "b", 3)
	g.AddEdge(0, "c", 2)
	g.AddEdge(2, "d", 3)

	path, ok, err := g.Path([]Vertex{0}, 3, NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || len(path) != 2 {
		t.Fatalf("expected a 2-edge path, got %v ok=%v", path, ok)
	}
}

func TestPathSourceEqualsTarget(t *testing.T) {
	g := New[string]()
	g.AddVertex(5)
	path, ok, err := g.Path([]Vertex{5}, 5, NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if !ok || len(path) != 0 {
		t.Fatalf("expected empty path when source==target, got %v", path)
	}
}

func TestPathUnreachable(t *testing.T) {
	g := New[string]()
	g.AddVertex(0)
	g.AddVertex(1)
	_, ok, err := g.Path([]Vertex{0}, 1, NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatalf("expected unreachable target to report ok=false")
	}
}

func TestReverseSwapsEndpoints(t *testing.T) {
	g := New[string]()
	g.AddEdge(0, "a", 1)
	r := g.Reverse()
	edges := r.Edges(1)
	if len(edges) != 1 || edges[0].To != 0 || edges[0].Label != "a" {
		t.Fatalf("reverse did not swap endpoints: %v", edges)
	}
}

func TestReachableInducedSubgraph(t *testing.T) {
	g := New[string]()
	g.AddEdge(0, "a", 1)
	g.AddEdge(1, "b", 2)
	g.AddEdge(3, "c", 4) // disconnected from 0

	sub, err := g.Reachable([]Vertex{0}, NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if sub.NumVertices() != 3 {
		t.Fatalf("expected 3 reachable vertices, got %d: %v", sub.NumVertices(), sub.Vertices())
	}
	if len(sub.Edges(3)) != 0 {
		t.Fatalf("disconnected vertex must not carry edges into the subgraph")
	}
}

func TestReachableMapAcyclic(t *testing.T) {
	g := New[string]()
	g.AddEdge(0, "a", 1)
	g.AddEdge(1, "b", 2)

	m, err := g.ReachableMap(NoTimeout)
	if err != nil {
		t.Fatal(err)
	}
	if !m[0][0] || !m[0][1] || !m[0][2] {
		t.Fatalf("expected 0 to reach itself, 1, and 2: %v", m[0])
	}
	if len(m[2]) != 1 || !m[2][2] {
		t.Fatalf("expected 2 to only reach itself: %v", m[2])
	}
}
