package graph

// SCC computes the graph's strongly connected components using Tarjan's
// algorithm with an explicit work stack (patterns can be deep enough to
// overflow a recursive implementation). Components are returned in an
// unspecified order; a single vertex with no self-loop is still returned as
// its own (trivial) component, and a self-loop edge makes that singleton a
// non-trivial component.
func (g *Graph[L]) SCC(to Timeout) ([][]Vertex, error) {
	type frame struct {
		v       Vertex
		edgeIdx int
	}

	index := make(map[Vertex]int)
	lowlink := make(map[Vertex]int)
	onStack := make(map[Vertex]bool)
	var tarjanStack []Vertex
	var components [][]Vertex
	clock := 0

	vertices := g.Vertices()
	for _, start := range vertices {
		if _, ok := index[start]; ok {
			continue
		}
		var work []*frame
		work = append(work, &frame{v: start})
		index[start] = clock
		lowlink[start] = clock
		clock++
		tarjanStack = append(tarjanStack, start)
		onStack[start] = true

		for len(work) > 0 {
			if err := to.Check("graph.scc"); err != nil {
				return nil, err
			}
			top := work[len(work)-1]
			edges := g.out[top.v]
			if top.edgeIdx < len(edges) {
				e := edges[top.edgeIdx]
				top.edgeIdx++
				if _, seen := index[e.To]; !seen {
					index[e.To] = clock
					lowlink[e.To] = clock
					clock++
					tarjanStack = append(tarjanStack, e.To)
					onStack[e.To] = true
					work = append(work, &frame{v: e.To})
				} else if onStack[e.To] {
					if index[e.To] < lowlink[top.v] {
						lowlink[top.v] = index[e.To]
					}
				}
				continue
			}

			// Done with top.v: pop and propagate lowlink to parent.
			work = work[:len(work)-1]
			if len(work) > 0 {
				parent := work[len(work)-1]
				if lowlink[top.v] < lowlink[parent.v] {
					lowlink[parent.v] = lowlink[top.v]
				}
			}
			if lowlink[top.v] == index[top.v] {
				var comp []Vertex
				for {
					w := tarjanStack[len(tarjanStack)-1]
					tarjanStack = tarjanStack[:len(tarjanStack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == top.v {
						break
					}
				}
				components = append(components, comp)
			}
		}
	}
	return components, nil
}
