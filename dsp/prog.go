package dsp

import (
	"fmt"

	"github.com/hexosynth/hexodsp"
	"github.com/viterin/vek/vek32"
)

type (
	// NodeOp is one step of a compiled program: the node at Idx of the
	// executor's node table is run with the input slots
	// [InIdx, InIdx+InLen), the output slots [OutIdx, OutIdx+OutLen) and the
	// atom slots [AtIdx, AtIdx+AtLen).
	NodeOp struct {
		Idx    int
		Node   hexodsp.NodeId
		OutIdx int
		OutLen int
		InIdx  int
		InLen  int
		AtIdx  int
		AtLen  int
		// Inputs lists the input slots of this op that are wired to outputs
		// of earlier ops.
		Inputs []ProgEdge
	}

	// ProgEdge wires the output slot Out to the input slot In. If Mod is not
	// negative, the input reads mod slot Mod instead, which is computed as
	// param + amount * output right before the op runs.
	ProgEdge struct {
		Out int
		In  int
		Mod int
	}

	// SlotOrigin tells where the buffer of an input slot comes from.
	SlotOrigin uint8

	// SlotTag records which buffer an input slot currently reads. Only Owned
	// slots read memory owned by the slot itself; the rest alias a buffer
	// owned by another slot of the same program.
	SlotTag struct {
		Origin SlotOrigin
		Src    int
	}

	// ProgLayout gives the number of slots of each kind of a program.
	ProgLayout struct {
		Outputs int
		Inputs  int
		Atoms   int
		Mods    int
	}

	// NodeProg is a compiled, linear program. It is built on the control
	// side, handed over to the audio side and finally handed back for its
	// buffers to be recycled.
	//
	// A program is either unlocked or locked. AssignOutputs locks it: every
	// input slot is bound either to its own parameter buffer or to the output
	// (or mod) buffer it is wired to. Process only runs locked programs.
	// UnlockBuffers drops all the aliases again. Only unlocked programs may
	// exchange buffers with SwapPreviousOutputs.
	NodeProg struct {
		ops []NodeOp

		out    []ProcBuf
		inp    []ProcBuf
		mod    []ProcBuf
		curInp []ProcBuf
		tags   []SlotTag

		params    []float32
		smoothers []Smoother
		atoms     []hexodsp.Atom
		modAmts   []float32

		locked bool
	}
)

const (
	SlotOwned SlotOrigin = iota
	SlotOutput
	SlotMod
)

func (o SlotOrigin) String() string {
	switch o {
	case SlotOwned:
		return "owned"
	case SlotOutput:
		return "output"
	case SlotMod:
		return "mod"
	}
	return "?"
}

func (t SlotTag) String() string {
	if t.Origin == SlotOwned {
		return t.Origin.String()
	}
	return fmt.Sprintf("%v[%d]", t.Origin, t.Src)
}

// NewNodeProg returns an unlocked program with zeroed parameters and the
// given number of slots. newBuf is called once for every buffer the program
// owns.
func NewNodeProg(l ProgLayout, newBuf func() ProcBuf) *NodeProg {
	p := &NodeProg{
		out:       make([]ProcBuf, l.Outputs),
		inp:       make([]ProcBuf, l.Inputs),
		mod:       make([]ProcBuf, l.Mods),
		curInp:    make([]ProcBuf, l.Inputs),
		tags:      make([]SlotTag, l.Inputs),
		params:    make([]float32, l.Inputs),
		smoothers: make([]Smoother, l.Inputs),
		atoms:     make([]hexodsp.Atom, l.Atoms),
		modAmts:   make([]float32, l.Mods),
	}
	for _, bufs := range [][]ProcBuf{p.out, p.inp, p.mod} {
		for i := range bufs {
			bufs[i] = newBuf()
		}
	}
	return p
}

func (p *NodeProg) Layout() ProgLayout {
	return ProgLayout{Outputs: len(p.out), Inputs: len(p.inp), Atoms: len(p.atoms), Mods: len(p.mod)}
}

// AppendOp adds an op at the end of the program.
func (p *NodeProg) AppendOp(op NodeOp) { p.ops = append(p.ops, op) }

func (p *NodeProg) Ops() []NodeOp  { return p.ops }
func (p *NodeProg) IsLocked() bool { return p.locked }

// FindOp returns the op running the given node.
func (p *NodeProg) FindOp(node hexodsp.NodeId) (NodeOp, bool) {
	for _, op := range p.ops {
		if op.Node == node {
			return op, true
		}
	}
	return NodeOp{}, false
}

// SetParam sets the value of an input slot immediately.
func (p *NodeProg) SetParam(in int, v float32) {
	if in < 0 || in >= len(p.params) {
		return
	}
	p.params[in] = v
	p.smoothers[in].Set(v)
}

// SetParamSmooth ramps the value of an input slot to v over samples samples.
func (p *NodeProg) SetParamSmooth(in int, v float32, samples int) {
	if in < 0 || in >= len(p.params) {
		return
	}
	p.params[in] = v
	p.smoothers[in].SetTarget(v, samples)
}

// Param returns the committed value of an input slot, i.e. the target of its
// smoother.
func (p *NodeProg) Param(in int) float32 {
	if in < 0 || in >= len(p.params) {
		return 0
	}
	return p.params[in]
}

func (p *NodeProg) SetAtom(at int, a hexodsp.Atom) {
	if at >= 0 && at < len(p.atoms) {
		p.atoms[at] = a
	}
}

func (p *NodeProg) Atom(at int) hexodsp.Atom {
	if at < 0 || at >= len(p.atoms) {
		return hexodsp.Atom{}
	}
	return p.atoms[at]
}

func (p *NodeProg) SetModAmt(mod int, amt float32) {
	if mod >= 0 && mod < len(p.modAmts) {
		p.modAmts[mod] = amt
	}
}

func (p *NodeProg) ModAmt(mod int) float32 {
	if mod < 0 || mod >= len(p.modAmts) {
		return 0
	}
	return p.modAmts[mod]
}

// AssignOutputs binds every input slot to its own parameter buffer, then
// rebinds the wired slots to the buffer of the output (or mod slot) they
// read, and locks the program. Locking an already locked program is a
// programming error: it panics under StrictAliasing and is ignored otherwise,
// leaving the existing bindings untouched.
func (p *NodeProg) AssignOutputs() {
	if p.locked {
		if StrictAliasing {
			panic("dsp: AssignOutputs called on a locked program")
		}
		return
	}
	copy(p.curInp, p.inp)
	clear(p.tags)
	for _, op := range p.ops {
		for _, e := range op.Inputs {
			if e.Mod >= 0 {
				p.curInp[e.In] = p.mod[e.Mod]
				p.tags[e.In] = SlotTag{Origin: SlotMod, Src: e.Mod}
				continue
			}
			p.curInp[e.In] = p.out[e.Out]
			p.tags[e.In] = SlotTag{Origin: SlotOutput, Src: e.Out}
		}
	}
	p.locked = true
}

// UnlockBuffers drops all the input bindings and unlocks the program.
func (p *NodeProg) UnlockBuffers() {
	clear(p.curInp)
	clear(p.tags)
	p.locked = false
}

// SwapPreviousOutputs exchanges the output buffers of every node that exists
// in both p and prev, so that p continues from the last block prev computed.
// The parameter smoothers of those nodes continue from their previous values
// too. Both programs must be unlocked: under StrictAliasing a locked program
// panics, otherwise both are unlocked first.
func (p *NodeProg) SwapPreviousOutputs(prev *NodeProg, smoothing int) {
	if p.locked || prev.locked {
		if StrictAliasing {
			panic("dsp: SwapPreviousOutputs called on a locked program")
		}
		p.UnlockBuffers()
		prev.UnlockBuffers()
	}
	for _, op := range p.ops {
		old, ok := prev.FindOp(op.Node)
		if !ok {
			continue
		}
		for k := 0; k < min(op.OutLen, old.OutLen); k++ {
			i, j := op.OutIdx+k, old.OutIdx+k
			p.out[i], prev.out[j] = prev.out[j], p.out[i]
		}
		for k := 0; k < min(op.InLen, old.InLen); k++ {
			p.smoothers[op.InIdx+k].Continue(&prev.smoothers[old.InIdx+k], smoothing)
		}
	}
}

// Input returns the buffer an input slot reads and where it comes from. The
// buffer is null while the program is unlocked.
func (p *NodeProg) Input(in int) (ProcBuf, SlotTag) {
	if in < 0 || in >= len(p.curInp) {
		return ProcBuf{}, SlotTag{}
	}
	return p.curInp[in], p.tags[in]
}

func (p *NodeProg) Output(out int) ProcBuf {
	if out < 0 || out >= len(p.out) {
		return ProcBuf{}
	}
	return p.out[out]
}

// Process runs all ops in order for one block. nodes is the node table
// indexed by NodeOp.Idx. It does not allocate.
func (p *NodeProg) Process(ctx hexodsp.ProcessContext, nodes []*Node, t *Tables) {
	if !p.locked {
		if StrictAliasing {
			panic("dsp: Process called on an unlocked program")
		}
		p.AssignOutputs()
	}
	n := min(ctx.Frames(), hexodsp.MaxBlockSize)
	for i := range p.ops {
		op := &p.ops[i]
		for in := op.InIdx; in < op.InIdx+op.InLen; in++ {
			if p.tags[in].Origin != SlotOutput {
				p.smoothers[in].Fill(p.inp[in].Slice(n))
			}
		}
		for _, e := range op.Inputs {
			if e.Mod < 0 {
				continue
			}
			dst := p.mod[e.Mod].Slice(n)
			vek32.MulNumber_Into(dst, p.out[e.Out].Slice(n), p.modAmts[e.Mod])
			vek32.Add_Inplace(dst, p.inp[e.In].Slice(n))
		}
		if op.Idx < 0 || op.Idx >= len(nodes) || nodes[op.Idx] == nil {
			for o := op.OutIdx; o < op.OutIdx+op.OutLen; o++ {
				p.out[o].Zero()
			}
			continue
		}
		nodes[op.Idx].Process(ctx, n, t,
			p.atoms[op.AtIdx:op.AtIdx+op.AtLen],
			p.curInp[op.InIdx:op.InIdx+op.InLen],
			p.out[op.OutIdx:op.OutIdx+op.OutLen])
	}
}

// Release hands every buffer owned by the program to put and empties the
// program. A locked program is unlocked first.
func (p *NodeProg) Release(put func(ProcBuf)) {
	p.UnlockBuffers()
	for _, bufs := range [][]ProcBuf{p.out, p.inp, p.mod} {
		for _, b := range bufs {
			if !b.IsNull() {
				put(b)
			}
		}
	}
	*p = NodeProg{}
}
