package hexodsp_test

import (
	"testing"

	"github.com/hexosynth/hexodsp"
)

func TestFlipIsInvolution(t *testing.T) {
	for d := hexodsp.TR; d <= hexodsp.T; d++ {
		if d.Flip().Flip() != d {
			t.Errorf("%v: flipping twice gives %v", d, d.Flip().Flip())
		}
		if d.IsOutput() == d.Flip().IsOutput() {
			t.Errorf("%v and %v should be one input and one output edge", d, d.Flip())
		}
	}
}

func TestNeighboursAreMutual(t *testing.T) {
	for _, x := range []int{2, 3} {
		for d := hexodsp.TR; d <= hexodsp.T; d++ {
			nx, ny := d.Neighbour(x, 5)
			bx, by := d.Flip().Neighbour(nx, ny)
			if bx != x || by != 5 {
				t.Errorf("column %d, edge %v: neighbour (%d,%d) leads back to (%d,%d)", x, d, nx, ny, bx, by)
			}
		}
	}
}

func TestOutputsPointRightOrDown(t *testing.T) {
	for _, x := range []int{0, 1} {
		for _, d := range hexodsp.OutputDirs {
			dx, dy := d.Offset(x)
			if dx < 0 || (dx == 0 && dy <= 0) {
				t.Errorf("column %d: output edge %v points to (%d,%d)", x, d, dx, dy)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	amp := hexodsp.NodeId{Kind: hexodsp.Amp}
	c := hexodsp.NewCell(amp).WithIn(1, 1, 7).WithOut(0, 3, -1).Normalize()
	if c.In != [3]int{1, -1, -1} {
		t.Errorf("expected the duplicate and missing inputs to be cleared, got %v", c.In)
	}
	if c.Out != [3]int{0, -1, -1} {
		t.Errorf("expected the missing output to be cleared, got %v", c.Out)
	}
	if got := c.EdgeLabel(hexodsp.T); got != "gain" {
		t.Errorf("expected label gain on the top edge, got %q", got)
	}
	if got := c.EdgeLabel(hexodsp.BR); got != "" {
		t.Errorf("expected no label on an unused edge, got %q", got)
	}
	c.SetPort(hexodsp.BL, 2)
	if c.Port(hexodsp.BL) != 2 || c.Port(hexodsp.C) != -1 {
		t.Errorf("SetPort did not set the bottom left edge: %v", c.In)
	}
	if !hexodsp.EmptyCell().IsEmpty() || c.IsEmpty() {
		t.Errorf("IsEmpty is wrong")
	}
}
