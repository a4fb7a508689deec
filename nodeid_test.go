package hexodsp_test

import (
	"testing"

	"github.com/hexosynth/hexodsp"
)

func TestNodeIdRoundTrip(t *testing.T) {
	for k := hexodsp.Amp; k < hexodsp.NumNodeKinds; k++ {
		id := hexodsp.NodeId{Kind: k, Instance: 3}
		got, err := hexodsp.ParseNodeId(id.String())
		if err != nil || got != id {
			t.Errorf("ParseNodeId(%q) = %v, %v", id.String(), got, err)
		}
		for _, p := range id.Params() {
			got, err := hexodsp.ParseParamId(p.String())
			if err != nil || got != p {
				t.Errorf("ParseParamId(%q) = %v, %v", p.String(), got, err)
			}
		}
	}
	for _, bad := range []string{"", "sin", "sin(x)", "foo(0)", "sin(-1)", "sin(64)"} {
		if _, err := hexodsp.ParseNodeId(bad); err == nil {
			t.Errorf("ParseNodeId(%q) should fail", bad)
		}
	}
	if _, err := hexodsp.ParseParamId("sin(0).gain"); err == nil {
		t.Errorf("sin has no gain parameter")
	}
}

func TestNodeIdOrdering(t *testing.T) {
	a := hexodsp.NodeId{Kind: hexodsp.Amp, Instance: 5}
	b := hexodsp.NodeId{Kind: hexodsp.Sin, Instance: 0}
	c := hexodsp.NodeId{Kind: hexodsp.Sin, Instance: 1}
	if a.Compare(b) != -1 || c.Compare(b) != 1 || b.Compare(b) != 0 {
		t.Fatalf("NodeIds must be ordered by kind, then instance")
	}
	if !hexodsp.NopNode.IsNop() || hexodsp.NopNode != (hexodsp.NodeId{}) {
		t.Fatalf("the zero NodeId should be the nop node")
	}
	if got := c.Label(); got != "Sin 1" {
		t.Fatalf("expected label Sin 1, got %q", got)
	}
}

func TestParams(t *testing.T) {
	out := hexodsp.NodeId{Kind: hexodsp.Out}
	vol, _ := out.Param("vol")
	mono, _ := out.Param("mono")
	if vol.IsAtom() || !mono.IsAtom() || mono.AtomIndex() != 0 || vol.InputIndex() != 2 {
		t.Fatalf("unexpected parameter layout: %v %v", vol, mono)
	}
	if got := vol.Clamp(hexodsp.ParamAtom(5)); got.Float() != 2 {
		t.Errorf("expected vol to be clamped to 2, got %v", got)
	}
	if got := mono.Default(); !got.IsSetting() || got.Int() != 0 {
		t.Errorf("expected mono to default to setting 0, got %v", got)
	}
	if (hexodsp.ParamId{Node: out, Idx: 4}).Valid() {
		t.Errorf("out has only 4 parameters")
	}
	if got := hexodsp.ParamAtom(2.6).Int(); got != 3 {
		t.Errorf("expected 2.6 to round to 3, got %v", got)
	}
}
