package compiler_test

import (
	"strings"
	"testing"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/compiler"
	"github.com/hexosynth/hexodsp/matrix"
)

func sineToOutput(t *testing.T) *matrix.Matrix {
	t.Helper()
	m, _ := matrix.New(4, 4, hexodsp.DefaultSettings(), nil)
	sin := hexodsp.NodeId{Kind: hexodsp.Sin}
	out := hexodsp.NodeId{Kind: hexodsp.Out}
	m.Place(0, 0, hexodsp.NewCell(sin).WithOut(-1, -1, 0))
	m.Place(0, 1, hexodsp.NewCell(out).WithIn(0, -1, -1))
	if err := m.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	return m
}

func TestGraph(t *testing.T) {
	m := sineToOutput(t)
	cells, _ := m.GetCopy()
	g := compiler.NewGraph("test", m.Program(), cells)
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Fatalf("expected 2 nodes and 1 edge, got %d and %d", len(g.Nodes), len(g.Edges))
	}
	e := g.Edges[0]
	if e.From != 0 || e.To != 1 || e.Out != "sig" || e.In != "ch1" || e.Modulated {
		t.Fatalf("unexpected edge %+v", e)
	}
	if n := g.Nodes[1]; !n.Placed || n.X != 0 || n.Y != 1 || len(n.Incoming) != 1 {
		t.Fatalf("unexpected node %+v", n)
	}
}

func TestDot(t *testing.T) {
	c, err := compiler.New()
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	m := sineToOutput(t)
	cells, _ := m.GetCopy()
	dot, err := c.Dot(compiler.NewGraph("sine", m.Program(), cells))
	if err != nil {
		t.Fatalf("Dot failed: %v", err)
	}
	for _, want := range []string{`digraph "sine" {`, `n0 -> n1 [label="sig -> ch1"];`, `{Sin 0 @0,0|freq\ndet\npm|sig}`} {
		if !strings.Contains(dot, want) {
			t.Errorf("expected %q in the output:\n%s", want, dot)
		}
	}
	listing, err := c.Listing(compiler.NewGraph("sine", m.Program(), cells))
	if err != nil {
		t.Fatalf("Listing failed: %v", err)
	}
	if !strings.Contains(listing, "sin(0).sig -> ch1") {
		t.Errorf("expected the wiring in the listing:\n%s", listing)
	}
}
