package dsp_test

import (
	"math"
	"testing"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/dsp"
)

var (
	sin0 = hexodsp.NodeId{Kind: hexodsp.Sin, Instance: 0}
	amp0 = hexodsp.NodeId{Kind: hexodsp.Amp, Instance: 0}
	amp1 = hexodsp.NodeId{Kind: hexodsp.Amp, Instance: 1}
	out0 = hexodsp.NodeId{Kind: hexodsp.Out, Instance: 0}
)

// sinIntoAmp compiles sin(0).sig -> amp(0).inp, with the sine using output
// slot outIdx.
func sinIntoAmp(outIdx int) *dsp.NodeProg {
	p := dsp.NewNodeProg(dsp.ProgLayout{Outputs: outIdx + 2, Inputs: 6, Atoms: 1}, dsp.NewProcBuf)
	p.AppendOp(dsp.NodeOp{Idx: 0, Node: sin0, OutIdx: outIdx, OutLen: 1, InIdx: 0, InLen: 3})
	p.AppendOp(dsp.NodeOp{Idx: 1, Node: amp0, OutIdx: outIdx + 1, OutLen: 1, InIdx: 3, InLen: 3, AtIdx: 0, AtLen: 1,
		Inputs: []dsp.ProgEdge{{Out: outIdx, In: 3, Mod: -1}}})
	return p
}

func expectPanic(t *testing.T, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	f()
}

func TestAssignOutputsAliases(t *testing.T) {
	p := sinIntoAmp(0)
	if p.IsLocked() {
		t.Fatalf("a new program should be unlocked")
	}
	p.AssignOutputs()
	if !p.IsLocked() {
		t.Fatalf("AssignOutputs should lock the program")
	}
	buf, tag := p.Input(3)
	if tag.Origin != dsp.SlotOutput || tag.Src != 0 {
		t.Fatalf("amp input should alias output 0, got %v", tag)
	}
	if !buf.Same(p.Output(0)) {
		t.Fatalf("amp input does not share the sine output buffer")
	}
	for _, in := range []int{0, 1, 2, 4, 5} {
		buf, tag := p.Input(in)
		if tag.Origin != dsp.SlotOwned || buf.IsNull() {
			t.Errorf("input %d should read its own buffer, got %v", in, tag)
		}
	}
}

func TestAssignOutputsTwice(t *testing.T) {
	p := sinIntoAmp(0)
	p.AssignOutputs()
	before, _ := p.Input(3)
	if dsp.StrictAliasing {
		expectPanic(t, p.AssignOutputs)
		return
	}
	p.AssignOutputs()
	after, tag := p.Input(3)
	if !p.IsLocked() || !after.Same(before) || tag.Origin != dsp.SlotOutput {
		t.Fatalf("second AssignOutputs changed the bindings")
	}
}

func TestUnlockBuffers(t *testing.T) {
	p := sinIntoAmp(0)
	p.AssignOutputs()
	p.UnlockBuffers()
	if p.IsLocked() {
		t.Fatalf("program should be unlocked")
	}
	for in := 0; in < 6; in++ {
		if buf, _ := p.Input(in); !buf.IsNull() {
			t.Fatalf("input %d still bound after unlock", in)
		}
	}
	p.AssignOutputs()
	if buf, _ := p.Input(3); !buf.Same(p.Output(0)) {
		t.Fatalf("relocking did not restore the alias")
	}
}

func TestSwapPreviousOutputs(t *testing.T) {
	prev := sinIntoAmp(0)
	prev.Output(0).Fill(0.25)
	prev.Output(1).Fill(0.5)
	next := sinIntoAmp(2)
	next.Output(0).Fill(-1)
	next.SwapPreviousOutputs(prev, 0)
	if v := next.Output(2).Read(0); v != 0.25 {
		t.Fatalf("sine output was not carried over, got %v", v)
	}
	if v := next.Output(3).Read(0); v != 0.5 {
		t.Fatalf("amp output was not carried over, got %v", v)
	}
	if prev.Output(0).Same(next.Output(2)) {
		t.Fatalf("swapped buffers must not be shared")
	}
	if v := next.Output(0).Read(0); v != -1 {
		t.Fatalf("outputs of no node should stay untouched")
	}
}

func TestSwapLockedProgram(t *testing.T) {
	prev := sinIntoAmp(0)
	next := sinIntoAmp(0)
	prev.AssignOutputs()
	if dsp.StrictAliasing {
		expectPanic(t, func() { next.SwapPreviousOutputs(prev, 0) })
		return
	}
	next.SwapPreviousOutputs(prev, 0)
	if prev.IsLocked() || next.IsLocked() {
		t.Fatalf("swapping should force both programs unlocked")
	}
	if buf, _ := prev.Input(3); !buf.IsNull() {
		t.Fatalf("stale alias left in the previous program")
	}
}

func TestProcessModulation(t *testing.T) {
	p := dsp.NewNodeProg(dsp.ProgLayout{Outputs: 2, Inputs: 6, Atoms: 2, Mods: 1}, dsp.NewProcBuf)
	p.AppendOp(dsp.NodeOp{Idx: 0, Node: amp0, OutIdx: 0, OutLen: 1, InIdx: 0, InLen: 3, AtIdx: 0, AtLen: 1})
	p.AppendOp(dsp.NodeOp{Idx: 1, Node: amp1, OutIdx: 1, OutLen: 1, InIdx: 3, InLen: 3, AtIdx: 1, AtLen: 1,
		Inputs: []dsp.ProgEdge{{Out: 0, In: 3, Mod: 0}}})
	for in, v := range []float32{0.5, 1, 1, 0.1, 2, 1} {
		p.SetParam(in, v)
	}
	p.SetModAmt(0, 0.5)
	p.AssignOutputs()
	if _, tag := p.Input(3); tag.Origin != dsp.SlotMod {
		t.Fatalf("modulated input should read the mod buffer, got %v", tag)
	}
	nodes := []*dsp.Node{dsp.NewNode(amp0, 44100, nil), dsp.NewNode(amp1, 44100, nil)}
	block := hexodsp.NewBlock()
	block.NFrames = 64
	p.Process(block, nodes, dsp.NewTables())
	// amp(1) sees 0.1 + 0.5*0.5 and doubles it
	for i := 0; i < 64; i++ {
		if v := p.Output(1).Read(i); math.Abs(float64(v-0.7)) > 1e-6 {
			t.Fatalf("sample %d: expected 0.7, got %v", i, v)
		}
	}
}

func TestProcessNegativeAttenuation(t *testing.T) {
	for _, c := range []struct {
		mode int64
		want float32
	}{{0, -0.5}, {1, 0}} {
		p := dsp.NewNodeProg(dsp.ProgLayout{Outputs: 1, Inputs: 3, Atoms: 1}, dsp.NewProcBuf)
		p.AppendOp(dsp.NodeOp{Idx: 0, Node: amp0, OutIdx: 0, OutLen: 1, InIdx: 0, InLen: 3, AtLen: 1})
		p.SetParam(0, 1)
		p.SetParam(1, 1)
		p.SetParam(2, -0.5)
		p.SetAtom(0, hexodsp.SettingAtom(c.mode))
		p.AssignOutputs()
		p.Process(hexodsp.NewBlock(), []*dsp.Node{dsp.NewNode(amp0, 44100, nil)}, dsp.NewTables())
		if v := p.Output(0).Read(0); v != c.want {
			t.Errorf("neg_att %d: expected %v, got %v", c.mode, c.want, v)
		}
	}
}

func TestParamSmoothing(t *testing.T) {
	p := dsp.NewNodeProg(dsp.ProgLayout{Outputs: 1, Inputs: 3, Atoms: 1}, dsp.NewProcBuf)
	p.AppendOp(dsp.NodeOp{Idx: 0, Node: amp0, OutIdx: 0, OutLen: 1, InIdx: 0, InLen: 3, AtLen: 1})
	p.SetParam(0, 0)
	p.SetParam(1, 1)
	p.SetParam(2, 1)
	p.SetParamSmooth(0, 1, 4)
	if p.Param(0) != 1 {
		t.Fatalf("Param should report the smoothing target")
	}
	p.AssignOutputs()
	block := hexodsp.NewBlock()
	block.NFrames = 6
	p.Process(block, []*dsp.Node{dsp.NewNode(amp0, 44100, nil)}, dsp.NewTables())
	want := []float32{0.25, 0.5, 0.75, 1, 1, 1}
	for i, w := range want {
		if v := p.Output(0).Read(i); math.Abs(float64(v-w)) > 1e-6 {
			t.Errorf("sample %d: expected %v, got %v", i, w, v)
		}
	}
}

func TestOutNodeMixesIntoContext(t *testing.T) {
	for _, mono := range []int64{0, 1} {
		p := dsp.NewNodeProg(dsp.ProgLayout{Inputs: 3, Atoms: 1}, dsp.NewProcBuf)
		p.AppendOp(dsp.NodeOp{Idx: 0, Node: out0, InIdx: 0, InLen: 3, AtLen: 1})
		p.SetParam(0, 0.5)
		p.SetParam(1, 0.25)
		p.SetParam(2, 2)
		p.SetAtom(0, hexodsp.SettingAtom(mono))
		p.AssignOutputs()
		block := hexodsp.NewBlock()
		block.Outputs[1][0] = 0.125 // outputs are mixed into, not overwritten
		p.Process(block, []*dsp.Node{dsp.NewNode(out0, 44100, nil)}, dsp.NewTables())
		wantR := float32(0.625)
		if mono == 1 {
			wantR = 1.125
		}
		if l, r := block.Outputs[0][0], block.Outputs[1][0]; l != 1 || r != wantR {
			t.Errorf("mono=%d: expected (1, %v), got (%v, %v)", mono, wantR, l, r)
		}
	}
}

func TestSinOscillator(t *testing.T) {
	p := dsp.NewNodeProg(dsp.ProgLayout{Outputs: 1, Inputs: 3}, dsp.NewProcBuf)
	p.AppendOp(dsp.NodeOp{Idx: 0, Node: sin0, OutIdx: 0, OutLen: 1, InIdx: 0, InLen: 3})
	p.SetParam(0, 441) // exactly 100 samples per cycle at 44100 Hz
	p.AssignOutputs()
	nodes := []*dsp.Node{dsp.NewNode(sin0, 44100, nil)}
	tables := dsp.NewTables()
	block := hexodsp.NewBlock()
	for b := 0; b < 4; b++ {
		p.Process(block, nodes, tables)
		for i := 0; i < hexodsp.MaxBlockSize; i++ {
			n := b*hexodsp.MaxBlockSize + i
			want := math.Sin(2 * math.Pi * float64(n) / 100)
			if v := p.Output(0).Read(i); math.Abs(float64(v)-want) > 1e-3 {
				t.Fatalf("sample %d: expected %v, got %v", n, want, v)
			}
		}
	}
}

func TestSmoother(t *testing.T) {
	var s dsp.Smoother
	s.Set(1)
	s.SetTarget(0, 4)
	buf := make([]float32, 3)
	s.Fill(buf)
	if s.IsDone() || s.Value() != 0.25 {
		t.Fatalf("expected to be ramping at 0.25, got %v", s.Value())
	}
	var next dsp.Smoother
	next.Set(1)
	next.Continue(&s, 3)
	next.Fill(buf)
	for i, w := range []float32{0.5, 0.75, 1} {
		if math.Abs(float64(buf[i]-w)) > 1e-6 {
			t.Errorf("sample %d: expected %v, got %v", i, w, buf[i])
		}
	}
	if !next.IsDone() {
		t.Fatalf("ramp should be done")
	}
}

func TestRelease(t *testing.T) {
	p := sinIntoAmp(0)
	p.AssignOutputs()
	released := 0
	p.Release(func(dsp.ProcBuf) { released++ })
	if released != 2+6 {
		t.Fatalf("expected 8 released buffers, got %d", released)
	}
	if p.IsLocked() || len(p.Ops()) != 0 {
		t.Fatalf("released program should be empty")
	}
}
