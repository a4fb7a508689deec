package matrix

import (
	"fmt"
	"slices"

	"github.com/hexosynth/hexodsp"
)

type (
	// NodeGraph is a directed graph over node ids, used to check the wiring
	// of the matrix for cycles and to order the nodes for execution.
	NodeGraph struct {
		nodes []hexodsp.NodeId
		adj   map[hexodsp.NodeId][]hexodsp.NodeId
		edges map[graphEdge]struct{}
	}

	graphEdge struct {
		from, to hexodsp.NodeId
	}

	// PathResult is the answer of NodeGraph.HasPath.
	PathResult int
)

const (
	PathNotFound PathResult = iota
	PathFound
	// PathIndeterminate means the search ran into a cycle before it could
	// decide.
	PathIndeterminate
)

func (r PathResult) String() string {
	switch r {
	case PathNotFound:
		return "not found"
	case PathFound:
		return "found"
	case PathIndeterminate:
		return "indeterminate"
	}
	return "?"
}

func NewNodeGraph() *NodeGraph {
	return &NodeGraph{adj: map[hexodsp.NodeId][]hexodsp.NodeId{}, edges: map[graphEdge]struct{}{}}
}

// AddNode adds a node without edges. Adding an existing node does nothing.
func (g *NodeGraph) AddNode(n hexodsp.NodeId) {
	if _, ok := g.adj[n]; ok {
		return
	}
	g.adj[n] = nil
	g.nodes = append(g.nodes, n)
}

// AddEdge adds the edge from -> to, and the nodes if needed. Duplicate edges
// are ignored.
func (g *NodeGraph) AddEdge(from, to hexodsp.NodeId) {
	e := graphEdge{from, to}
	if _, ok := g.edges[e]; ok {
		return
	}
	g.AddNode(from)
	g.AddNode(to)
	g.edges[e] = struct{}{}
	g.adj[from] = append(g.adj[from], to)
}

func (g *NodeGraph) Clear() {
	g.nodes = g.nodes[:0]
	clear(g.adj)
	clear(g.edges)
}

func (g *NodeGraph) NumNodes() int { return len(g.nodes) }
func (g *NodeGraph) NumEdges() int { return len(g.edges) }

// HasPath searches depth first for a path from -> to. Nodes on the current
// search path are tracked separately from finished nodes: reaching a node
// that is still on the path means a cycle and gives PathIndeterminate, while
// a finished node reached again through another branch (a diamond) is simply
// skipped. A node of the graph has a path to itself; a node outside the
// graph has no paths at all.
func (g *NodeGraph) HasPath(from, to hexodsp.NodeId) PathResult {
	if _, ok := g.adj[from]; !ok {
		return PathNotFound
	}
	if from == to {
		return PathFound
	}
	const (
		onPath = 1
		done   = 2
	)
	type frame struct {
		node hexodsp.NodeId
		next int
	}
	state := map[hexodsp.NodeId]int{from: onPath}
	stack := []frame{{node: from}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		children := g.adj[top.node]
		if top.next >= len(children) {
			state[top.node] = done
			stack = stack[:len(stack)-1]
			continue
		}
		child := children[top.next]
		top.next++
		if child == to {
			return PathFound
		}
		switch state[child] {
		case onPath:
			return PathIndeterminate
		case done:
			continue
		}
		state[child] = onPath
		stack = append(stack, frame{node: child})
	}
	return PathNotFound
}

// FindCycle returns an edge that lies on a cycle.
func (g *NodeGraph) FindCycle() (from, to hexodsp.NodeId, found bool) {
	for _, n := range g.nodes {
		for _, m := range g.adj[n] {
			if g.HasPath(m, n) != PathNotFound {
				return n, m, true
			}
		}
	}
	return hexodsp.NopNode, hexodsp.NopNode, false
}

// Order returns the nodes so that every node comes after all nodes with an
// edge to it. Among the nodes that are ready at the same time, the smallest
// NodeId goes first, so the order only depends on the graph.
func (g *NodeGraph) Order() ([]hexodsp.NodeId, error) {
	indeg := make(map[hexodsp.NodeId]int, len(g.nodes))
	for e := range g.edges {
		indeg[e.to]++
	}
	var ready []hexodsp.NodeId
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}
	ret := make([]hexodsp.NodeId, 0, len(g.nodes))
	for len(ready) > 0 {
		slices.SortFunc(ready, hexodsp.NodeId.Compare)
		n := ready[0]
		ready = ready[1:]
		ret = append(ret, n)
		for _, m := range g.adj[n] {
			indeg[m]--
			if indeg[m] == 0 {
				ready = append(ready, m)
			}
		}
	}
	if len(ret) != len(g.nodes) {
		return nil, fmt.Errorf("%w: %d nodes could not be ordered", ErrCycle, len(g.nodes)-len(ret))
	}
	return ret, nil
}
