package dsp

import (
	"github.com/hexosynth/hexodsp"
	"github.com/viterin/vek/vek32"
)

// ProcBuf is a handle to one block of samples. Copying a ProcBuf copies the
// handle, not the samples, so many program slots can see the same memory.
// Who owns the memory is tracked by the program slots (see SlotTag), not by
// the handle itself. The zero value is the null buffer.
type ProcBuf struct {
	p *[hexodsp.MaxBlockSize]float32
}

// NewProcBuf allocates a zeroed block.
func NewProcBuf() ProcBuf {
	return ProcBuf{p: new([hexodsp.MaxBlockSize]float32)}
}

func (b ProcBuf) IsNull() bool { return b.p == nil }

// Same reports whether both handles point to the same memory.
func (b ProcBuf) Same(o ProcBuf) bool { return b.p == o.p }

func (b ProcBuf) Read(i int) float32     { return b.p[i] }
func (b ProcBuf) Write(i int, v float32) { b.p[i] = v }

// Slice returns the first n samples as a slice sharing the block's memory.
func (b ProcBuf) Slice(n int) []float32 { return b.p[:n] }

func (b ProcBuf) Fill(v float32) {
	for i := range b.p {
		b.p[i] = v
	}
}

func (b ProcBuf) Zero() { vek32.Zeros_Into(b.p[:], hexodsp.MaxBlockSize) }

// CopyFrom copies the first n samples of src.
func (b ProcBuf) CopyFrom(src ProcBuf, n int) { copy(b.p[:n], src.p[:n]) }

// MinMax returns the smallest and largest of the first n samples.
func (b ProcBuf) MinMax(n int) (lo, hi float32) {
	if n <= 0 {
		return 0, 0
	}
	return vek32.Min(b.p[:n]), vek32.Max(b.p[:n])
}
