package sequencer_test

import (
	"math"
	"testing"

	"github.com/hexosynth/hexodsp/sequencer"
)

// newSynced returns a backend that has received every column of the pattern
// built by edit.
func newSynced(t *testing.T, edit func(p *sequencer.PatternData)) *sequencer.PatternSequencer {
	t.Helper()
	tr := sequencer.NewTracker(sequencer.MaxCols)
	tr.Edit(edit)
	backend := tr.NewBackend()
	if n := tr.SendUpdates(); n != sequencer.MaxCols {
		t.Fatalf("expected %d column updates, got %d", sequencer.MaxCols, n)
	}
	for i := 0; i < sequencer.MaxCols; i++ {
		if !backend.CheckUpdates() {
			t.Fatalf("update %d was not received", i)
		}
	}
	if backend.CheckUpdates() {
		t.Fatalf("backend received more updates than were sent")
	}
	return backend
}

func evenPhases(n int) []float32 {
	ret := make([]float32, n)
	for i := range ret {
		ret[i] = float32(i) / float32(n)
	}
	return ret
}

func TestGateColumn(t *testing.T) {
	backend := newSynced(t, func(p *sequencer.PatternData) {
		p.SetRows(4)
		p.SetKind(0, sequencer.Gate)
		p.SetCell(0, 0, 0x0F7) // one gate, half width
		p.SetCell(2, 0, 0x0F7)
		p.SetCell(3, 0, 0x0FF) // one gate, full width
	})
	phase := evenPhases(64)
	out := make([]float32, 64)
	backend.GetColAtPhase(0, phase, out)
	expected := []int{8, 0, 8, 16}
	for row := 0; row < 4; row++ {
		on := 0
		for _, v := range out[row*16 : row*16+16] {
			switch v {
			case 1:
				on++
			case 0:
			default:
				t.Fatalf("gate output should be 0 or 1, got %v", v)
			}
		}
		if on != expected[row] {
			t.Errorf("row %d: expected %d samples on, got %d", row, expected[row], on)
		}
	}
	// the on part of a half width gate is the first half of the row
	for i := 0; i < 8; i++ {
		if out[i] != 1 || out[i+8] != 0 {
			t.Fatalf("row 0 gate shape wrong: %v", out[:16])
		}
	}
}

func TestGateSubdivision(t *testing.T) {
	backend := newSynced(t, func(p *sequencer.PatternData) {
		p.SetRows(1)
		p.SetKind(0, sequencer.Gate)
		p.SetCell(0, 0, 0x0C7) // 16-12 = 4 gates per row, each half on
	})
	phase := evenPhases(64)
	out := make([]float32, 64)
	backend.GetColAtPhase(0, phase, out)
	for i, v := range out {
		want := float32(0)
		if i%16 < 8 {
			want = 1
		}
		if v != want {
			t.Fatalf("sample %d: expected %v, got %v", i, want, v)
		}
	}
}

func TestValueColumnInterpolation(t *testing.T) {
	values := []int{0x000, 0xFFF, 0x800, 0x400}
	backend := newSynced(t, func(p *sequencer.PatternData) {
		p.SetRows(len(values))
		p.SetKind(1, sequencer.Value)
		for i, v := range values {
			p.SetCell(i, 1, v)
		}
	})
	norm := func(i int) float32 { return float32(values[i%len(values)]) / sequencer.MaxCellValue }
	out := make([]float32, 1)
	for row := range values {
		backend.GetColAtPhase(1, []float32{float32(row) / 4}, out)
		if math.Abs(float64(out[0]-norm(row))) > 1e-6 {
			t.Errorf("row %d boundary: expected %v, got %v", row, norm(row), out[0])
		}
		for _, frac := range []float32{0.25, 0.5, 0.75} {
			backend.GetColAtPhase(1, []float32{(float32(row) + frac) / 4}, out)
			want := norm(row)*(1-frac) + norm(row+1)*frac
			if math.Abs(float64(out[0]-want)) > 1e-5 {
				t.Errorf("row %d frac %v: expected %v, got %v", row, frac, want, out[0])
			}
		}
	}
}

func TestStepAndNoteColumns(t *testing.T) {
	backend := newSynced(t, func(p *sequencer.PatternData) {
		p.SetRows(4)
		p.SetKind(0, sequencer.Step)
		p.SetKind(1, sequencer.Note)
		p.SetCell(0, 0, 0xFFF)
		p.SetCell(2, 0, 0x000)
		p.SetCell(1, 1, 69+12)
	})
	phase := []float32{0, 0.2, 0.3, 0.55, 0.9}
	out := make([]float32, len(phase))
	backend.GetColAtPhase(0, phase, out)
	// row 1 and 3 are empty and hold the previous value
	want := []float32{1, 1, 1, 0, 0}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("step col phase %v: expected %v, got %v", phase[i], want[i], out[i])
		}
	}
	backend.GetColAtPhase(1, phase, out)
	// the only note is on row 1, so row 0 holds it by wrapping around
	for i := range phase {
		if math.Abs(float64(out[i]-0.1)) > 1e-6 {
			t.Errorf("note col phase %v: expected 0.1, got %v", phase[i], out[i])
		}
	}
}

func TestSendOneUpdateIsColumnGranular(t *testing.T) {
	p := sequencer.NewPatternData(8)
	ch := make(chan sequencer.Update, 1)
	for p.SendOneUpdate(ch) {
		<-ch
	}
	p.SetCell(3, 2, 0x123)
	p.SetCell(4, 4, 0x456)
	if !p.SendOneUpdate(ch) {
		t.Fatalf("expected the first modified column to be sent")
	}
	if p.SendOneUpdate(ch) {
		t.Fatalf("sending to a full channel should fail")
	}
	if !p.IsModified(4) {
		t.Fatalf("column 4 should stay modified until it fits in the channel")
	}
	u := <-ch
	if u.Col != 2 || u.Rows != 8 || u.Kind != sequencer.Value {
		t.Fatalf("unexpected update header: col %d rows %d kind %v", u.Col, u.Rows, u.Kind)
	}
	if !p.SendOneUpdate(ch) {
		t.Fatalf("expected column 4 to be sent")
	}
	if u := <-ch; u.Col != 4 {
		t.Fatalf("expected column 4, got %d", u.Col)
	}
	if p.SendOneUpdate(ch) {
		t.Fatalf("nothing should be left to send")
	}
}

func TestBackendAppliesOneUpdatePerCheck(t *testing.T) {
	tr := sequencer.NewTracker(16)
	backend := tr.NewBackend()
	tr.SendUpdates()
	applied := 0
	for backend.CheckUpdates() {
		applied++
	}
	if applied != sequencer.MaxCols {
		t.Fatalf("expected %d updates, got %d", sequencer.MaxCols, applied)
	}
	if backend.Kind(sequencer.MaxCols-1) != sequencer.Gate {
		t.Fatalf("expected the last column to be a gate column")
	}
}

func TestPatternRepr(t *testing.T) {
	p := sequencer.NewPatternData(12)
	p.SetKind(0, sequencer.Note)
	p.SetCell(5, 0, 60)
	p.SetCell(11, 5, 0x0FF)
	r := p.Repr(3)
	q, err := sequencer.PatternDataFromRepr(r)
	if err != nil {
		t.Fatalf("PatternDataFromRepr failed: %v", err)
	}
	if q.Rows() != 12 || q.Kind(0) != sequencer.Note {
		t.Fatalf("pattern header was not restored")
	}
	if v, ok := q.Cell(5, 0); !ok || v != 60 {
		t.Fatalf("expected cell (5,0) = 60, got %v %v", v, ok)
	}
	if _, ok := q.Cell(6, 0); ok {
		t.Fatalf("cell (6,0) should be empty")
	}
	r.Kinds[1] = "chord"
	if _, err := sequencer.PatternDataFromRepr(r); err == nil {
		t.Fatalf("expected an error for an unknown column kind")
	}
}
