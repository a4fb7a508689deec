package dsp

import (
	"math"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/sequencer"
	"github.com/viterin/vek/vek32"
)

type (
	// Node is one node instance living on the audio side. The set of node
	// kinds is closed: Process switches over the kind of Id, and each kind
	// keeps its own state in the matching field.
	Node struct {
		Id         hexodsp.NodeId
		sampleRate float32

		sin   sinOsc
		noise noiseGen
		out   outMix
		tseq  trackerSeq
	}

	sinOsc struct {
		phase float32
	}

	noiseGen struct {
		pos int
	}

	outMix struct {
		tmp [hexodsp.MaxBlockSize]float32
	}
)

// atom values
const (
	negAttAllow = 0
	negAttClip  = 1

	noiseBipolar  = 0
	noiseUnipolar = 1

	outStereo = 0
	outMono   = 1
)

// NewNode returns a node in its initial state. backend is the pattern
// sequencer read by TSeq nodes and is ignored by the other kinds.
func NewNode(id hexodsp.NodeId, sampleRate float32, backend *sequencer.PatternSequencer) *Node {
	n := &Node{Id: id, sampleRate: sampleRate}
	switch id.Kind {
	case hexodsp.Noise:
		// decorrelate instances
		n.noise.pos = id.Instance * 977
	case hexodsp.TSeq:
		n.tseq.reset()
		n.tseq.backend = backend
	}
	return n
}

// Backend returns the pattern sequencer of a TSeq node, or nil.
func (n *Node) Backend() *sequencer.PatternSequencer { return n.tseq.backend }

// Process computes frames samples of every output of the node. atoms, in and
// out are the node's slots of the running program.
func (n *Node) Process(ctx hexodsp.ProcessContext, frames int, t *Tables, atoms []hexodsp.Atom, in, out []ProcBuf) {
	switch n.Id.Kind {
	case hexodsp.Amp:
		n.processAmp(frames, atoms, in, out)
	case hexodsp.Sin:
		n.processSin(frames, t, in, out)
	case hexodsp.Noise:
		n.processNoise(frames, t, atoms, in, out)
	case hexodsp.Out:
		n.processOut(ctx, frames, atoms, in)
	case hexodsp.TSeq:
		n.tseq.process(frames, atoms, in, out)
	}
}

func atomAt(atoms []hexodsp.Atom, i int) int64 {
	if i < 0 || i >= len(atoms) {
		return 0
	}
	return atoms[i].Int()
}

func (n *Node) processAmp(frames int, atoms []hexodsp.Atom, in, out []ProcBuf) {
	sig := out[0].Slice(frames)
	vek32.Mul_Into(sig, in[0].Slice(frames), in[1].Slice(frames))
	att := in[2]
	clip := atomAt(atoms, 0) == negAttClip
	for i := range sig {
		a := att.Read(i)
		if clip && a < 0 {
			a = 0
		}
		sig[i] *= a
	}
}

func (n *Node) processSin(frames int, t *Tables, in, out []ProcBuf) {
	freq, det, pm := in[0], in[1], in[2]
	sig := out[0]
	isr := 1 / n.sampleRate
	phase := n.sin.phase
	for i := 0; i < frames; i++ {
		f := freq.Read(i)
		if d := det.Read(i); d != 0 {
			f *= float32(math.Exp2(float64(d) / 12))
		}
		sig.Write(i, t.Sin(phase+pm.Read(i)))
		phase += f * isr
		phase -= float32(math.Floor(float64(phase)))
	}
	n.sin.phase = phase
}

func (n *Node) processNoise(frames int, t *Tables, atoms []hexodsp.Atom, in, out []ProcBuf) {
	atv, offs := in[0], in[1]
	sig := out[0]
	unipolar := atomAt(atoms, 0) == noiseUnipolar
	for i := 0; i < frames; i++ {
		v := t.Noise(n.noise.pos)
		n.noise.pos++
		if unipolar {
			v = (v + 1) / 2
		}
		sig.Write(i, offs.Read(i)+atv.Read(i)*v)
	}
	n.noise.pos &= NoiseTableSize - 1
}

func (n *Node) processOut(ctx hexodsp.ProcessContext, frames int, atoms []hexodsp.Atom, in []ProcBuf) {
	vol := in[2].Slice(frames)
	ch2 := in[1]
	if atomAt(atoms, 0) == outMono {
		ch2 = in[0]
	}
	tmp := n.out.tmp[:frames]
	for c, src := range [hexodsp.NumOutputChannels]ProcBuf{in[0], ch2} {
		dst := ctx.Output(c)
		if len(dst) < frames {
			continue
		}
		vek32.Mul_Into(tmp, src.Slice(frames), vol)
		vek32.Add_Inplace(dst[:frames], tmp)
	}
}
