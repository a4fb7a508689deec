package matrix_test

import (
	"errors"
	"testing"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/matrix"
)

func amp(i int) hexodsp.NodeId { return hexodsp.NodeId{Kind: hexodsp.Amp, Instance: i} }

func TestHasPathRoundTrip(t *testing.T) {
	g := matrix.NewNodeGraph()
	a, b, c := amp(0), amp(1), amp(2)
	g.AddEdge(a, b)
	g.AddEdge(b, c)
	if r := g.HasPath(a, c); r != matrix.PathFound {
		t.Fatalf("expected a path from a to c, got %v", r)
	}
	if r := g.HasPath(c, a); r != matrix.PathNotFound {
		t.Fatalf("expected no path from c to a, got %v", r)
	}
	if r := g.HasPath(b, b); r != matrix.PathFound {
		t.Fatalf("expected a node to reach itself, got %v", r)
	}
	if r := g.HasPath(amp(7), amp(7)); r != matrix.PathNotFound {
		t.Fatalf("expected no path for a node outside the graph, got %v", r)
	}
	g.Clear()
	for _, pair := range [][2]hexodsp.NodeId{{a, b}, {b, c}, {a, c}, {a, a}} {
		if r := g.HasPath(pair[0], pair[1]); r != matrix.PathNotFound {
			t.Fatalf("after Clear, expected no path %v -> %v, got %v", pair[0], pair[1], r)
		}
	}
	if g.NumNodes() != 0 || g.NumEdges() != 0 {
		t.Fatalf("Clear left %d nodes and %d edges", g.NumNodes(), g.NumEdges())
	}
}

func TestAddEdgeDeduplicates(t *testing.T) {
	g := matrix.NewNodeGraph()
	g.AddEdge(amp(0), amp(1))
	g.AddEdge(amp(0), amp(1))
	if g.NumEdges() != 1 || g.NumNodes() != 2 {
		t.Fatalf("expected 2 nodes and 1 edge, got %d and %d", g.NumNodes(), g.NumEdges())
	}
}

// A diamond reaches its bottom node twice without any cycle. The search
// tracks the active path, so this is not mistaken for a cycle.
func TestDiamondIsNotACycle(t *testing.T) {
	g := matrix.NewNodeGraph()
	a, b, c, d := amp(0), amp(1), amp(2), amp(3)
	g.AddEdge(a, b)
	g.AddEdge(a, c)
	g.AddEdge(b, d)
	g.AddEdge(c, d)
	if r := g.HasPath(a, amp(9)); r != matrix.PathNotFound {
		t.Fatalf("expected PathNotFound in a diamond, got %v", r)
	}
	if r := g.HasPath(d, a); r != matrix.PathNotFound {
		t.Fatalf("expected PathNotFound from the bottom, got %v", r)
	}
	if _, _, found := g.FindCycle(); found {
		t.Fatalf("diamond reported as a cycle")
	}
	order, err := g.Order()
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	want := []hexodsp.NodeId{a, b, c, d}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("expected order %v, got %v", want, order)
		}
	}
}

func TestCycle(t *testing.T) {
	g := matrix.NewNodeGraph()
	a, b, c := amp(0), amp(1), amp(2)
	g.AddEdge(a, b)
	g.AddEdge(b, c)
	g.AddEdge(c, b)
	if r := g.HasPath(a, amp(9)); r != matrix.PathIndeterminate {
		t.Fatalf("a search running into a cycle should be indeterminate, got %v", r)
	}
	if _, _, found := g.FindCycle(); !found {
		t.Fatalf("cycle not found")
	}
	if _, err := g.Order(); !errors.Is(err, matrix.ErrCycle) {
		t.Fatalf("expected ErrCycle from Order, got %v", err)
	}
}

func TestOrderIsDeterministic(t *testing.T) {
	build := func(reverse bool) []hexodsp.NodeId {
		g := matrix.NewNodeGraph()
		nodes := []hexodsp.NodeId{amp(3), amp(1), amp(2), amp(0)}
		if reverse {
			nodes = []hexodsp.NodeId{amp(0), amp(2), amp(1), amp(3)}
		}
		for _, n := range nodes {
			g.AddNode(n)
		}
		g.AddEdge(amp(3), amp(0))
		order, err := g.Order()
		if err != nil {
			t.Fatalf("Order failed: %v", err)
		}
		return order
	}
	a, b := build(false), build(true)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("order depends on insertion order: %v vs %v", a, b)
		}
	}
	if a[len(a)-1] != amp(0) {
		t.Fatalf("amp(0) depends on amp(3) and should come last, got %v", a)
	}
}
