// Package graph provides the directed multigraph container used by the
// relational convolution layer.
//
// The graph is a plain edge list: nodes are integer ids in [0, NumNodes),
// edges are parallel src/dst index slices. Per-edge attributes (relation
// type, direction, normalization weight) live with the caller as parallel
// slices or tensors keyed by edge index; the container itself only knows
// topology. Parallel edges are allowed.
package graph

import "fmt"

// Graph is a directed multigraph over integer node ids.
//
// The zero value is not usable; construct with New.
type Graph struct {
	numNodes int
	src      []int
	dst      []int
}

// New creates a graph with n nodes and no edges.
func New(n int) *Graph {
	if n < 0 {
		panic(fmt.Sprintf("graph: negative node count %d", n))
	}
	return &Graph{numNodes: n}
}

// NumNodes returns the number of nodes.
func (g *Graph) NumNodes() int {
	return g.numNodes
}

// NumEdges returns the number of edges.
func (g *Graph) NumEdges() int {
	return len(g.src)
}

// AddEdge appends a directed edge src -> dst.
// Panics if either endpoint is out of range.
func (g *Graph) AddEdge(src, dst int) {
	if src < 0 || src >= g.numNodes {
		panic(fmt.Sprintf("graph: source node %d out of range [0, %d)", src, g.numNodes))
	}
	if dst < 0 || dst >= g.numNodes {
		panic(fmt.Sprintf("graph: destination node %d out of range [0, %d)", dst, g.numNodes))
	}
	g.src = append(g.src, src)
	g.dst = append(g.dst, dst)
}

// AddEdges appends directed edges src[i] -> dst[i] for all i.
// Panics if the slices differ in length or any endpoint is out of range.
func (g *Graph) AddEdges(src, dst []int) {
	if len(src) != len(dst) {
		panic(fmt.Sprintf("graph: src length %d != dst length %d", len(src), len(dst)))
	}
	for i := range src {
		g.AddEdge(src[i], dst[i])
	}
}

// AddSelfLoops appends one i -> i edge for every node, in node order.
func (g *Graph) AddSelfLoops() {
	for i := 0; i < g.numNodes; i++ {
		g.src = append(g.src, i)
		g.dst = append(g.dst, i)
	}
}

// Src returns the source node of edge i.
func (g *Graph) Src(i int) int {
	return g.src[i]
}

// Dst returns the destination node of edge i.
func (g *Graph) Dst(i int) int {
	return g.dst[i]
}

// SrcNodes returns a copy of the per-edge source node slice.
func (g *Graph) SrcNodes() []int {
	return append([]int(nil), g.src...)
}

// DstNodes returns a copy of the per-edge destination node slice.
func (g *Graph) DstNodes() []int {
	return append([]int(nil), g.dst...)
}

// InDegrees returns the in-degree of every node.
func (g *Graph) InDegrees() []int {
	deg := make([]int, g.numNodes)
	for _, d := range g.dst {
		deg[d]++
	}
	return deg
}

// OutDegrees returns the out-degree of every node.
func (g *Graph) OutDegrees() []int {
	deg := make([]int, g.numNodes)
	for _, s := range g.src {
		deg[s]++
	}
	return deg
}

// Clone returns an independent copy of the graph. Mutating the clone never
// affects the original; callers that need to augment a graph for one
// computation clone it first.
func (g *Graph) Clone() *Graph {
	return &Graph{
		numNodes: g.numNodes,
		src:      append([]int(nil), g.src...),
		dst:      append([]int(nil), g.dst...),
	}
}
