package dsp

import "math"

const (
	SinTableSize   = 1024
	NoiseTableSize = 1 << 13
)

// Tables holds the precomputed lookup tables shared by all nodes. A Tables is
// built once with NewTables and never written to afterwards, so a single
// instance can be shared by the control side and the audio goroutine.
type Tables struct {
	sin   [SinTableSize + 1]float32
	noise [NoiseTableSize]float32
}

// NewTables computes the sine and noise tables.
func NewTables() *Tables {
	t := &Tables{}
	for i := range t.sin {
		t.sin[i] = float32(math.Sin(2 * math.Pi * float64(i) / SinTableSize))
	}
	seed := uint32(1)
	for i := range t.noise {
		seed *= 16007
		t.noise[i] = float32(int32(seed)) / -2147483648.0
	}
	return t
}

// Sin returns sin(2*pi*phase) using linear interpolation in the table. phase
// is wrapped into [0,1).
func (t *Tables) Sin(phase float32) float32 {
	phase -= float32(math.Floor(float64(phase)))
	p := phase * SinTableSize
	i := int(p)
	if i >= SinTableSize {
		i = SinTableSize - 1
	}
	f := p - float32(i)
	return t.sin[i]*(1-f) + t.sin[i+1]*f
}

// Noise returns the i:th noise sample in [-1,1]; i wraps around the table.
func (t *Tables) Noise(i int) float32 {
	return t.noise[i&(NoiseTableSize-1)]
}
