package dsp_test

import (
	"testing"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/dsp"
	"github.com/hexosynth/hexodsp/sequencer"
)

var stepValues = []int{0x000, 0x555, 0xAAA, 0xFFF}

func newStepTracker() *sequencer.Tracker {
	tr := sequencer.NewTracker(sequencer.MaxCols)
	tr.Edit(func(p *sequencer.PatternData) {
		p.SetRows(len(stepValues))
		p.SetKind(0, sequencer.Step)
		for row, v := range stepValues {
			p.SetCell(row, 0, v)
		}
	})
	return tr
}

// runTSeq feeds a clock with a one sample pulse every period samples and
// returns the first output column of the second block.
func runTSeq(t *testing.T, mode int64, period int) []float32 {
	t.Helper()
	tseq := hexodsp.NodeId{Kind: hexodsp.TSeq}
	tr := newStepTracker()
	node := dsp.NewNode(tseq, 44100, tr.NewBackend())
	tr.SendUpdates()
	clock, trig := dsp.NewProcBuf(), dsp.NewProcBuf()
	outs := make([]dsp.ProcBuf, sequencer.MaxCols)
	for i := range outs {
		outs[i] = dsp.NewProcBuf()
	}
	atoms := []hexodsp.Atom{hexodsp.SettingAtom(mode)}
	tables := dsp.NewTables()
	block := hexodsp.NewBlock()
	for b := 0; b < 2; b++ {
		for i := 0; i < hexodsp.MaxBlockSize; i++ {
			v := float32(0)
			if (b*hexodsp.MaxBlockSize+i)%period == 0 {
				v = 1
			}
			clock.Write(i, v)
		}
		node.Process(block, hexodsp.MaxBlockSize, tables, atoms, []dsp.ProcBuf{clock, trig}, outs)
	}
	return outs[0].Slice(hexodsp.MaxBlockSize)
}

func stepAt(row int) float32 {
	return float32(stepValues[row%len(stepValues)]) / sequencer.MaxCellValue
}

func TestTSeqPatternTrigger(t *testing.T) {
	// every pulse restarts the 4 row pattern, so a row lasts period/4 samples
	out := runTSeq(t, 1, 32)
	for i, v := range out {
		if want := stepAt((i % 32) / 8); v != want {
			t.Fatalf("sample %d: expected %v, got %v", i, want, v)
		}
	}
}

func TestTSeqRowTrigger(t *testing.T) {
	// every pulse advances one row
	out := runTSeq(t, 0, 16)
	for i, v := range out {
		if want := stepAt(i / 16); v != want {
			t.Fatalf("sample %d: expected %v, got %v", i, want, v)
		}
	}
}

func TestTSeqWithoutBackendIsSilent(t *testing.T) {
	node := dsp.NewNode(hexodsp.NodeId{Kind: hexodsp.TSeq}, 44100, nil)
	outs := []dsp.ProcBuf{dsp.NewProcBuf()}
	outs[0].Fill(1)
	in := []dsp.ProcBuf{dsp.NewProcBuf(), dsp.NewProcBuf()}
	node.Process(hexodsp.NewBlock(), 16, dsp.NewTables(), nil, in, outs)
	for i := 0; i < 16; i++ {
		if outs[0].Read(i) != 0 {
			t.Fatalf("expected silence")
		}
	}
}
