package sequencer

import "math"

// PatternSequencer is the audio side copy of a pattern. It only ever reads
// from its update channel and never allocates, so it is safe to use from
// the audio goroutine.
type PatternSequencer struct {
	rows    int
	kinds   [MaxCols]ColKind
	data    [MaxCols][MaxRows]float32
	updates <-chan Update

	rand     uint32
	gateKey  [MaxCols]int
	gateSkip [MaxCols]bool
	gateLast [MaxCols]float32
}

// NewPatternSequencer returns a sequencer of empty Value columns, fed by the
// updates channel.
func NewPatternSequencer(rows int, updates <-chan Update) *PatternSequencer {
	s := &PatternSequencer{rows: max(1, min(rows, MaxRows)), updates: updates, rand: 0x9E3779B9}
	for i := range s.kinds {
		s.kinds[i] = Value
		s.gateKey[i] = -1
	}
	return s
}

func (s *PatternSequencer) Rows() int { return s.rows }

func (s *PatternSequencer) Kind(col int) ColKind {
	if col < 0 || col >= MaxCols {
		return Value
	}
	return s.kinds[col]
}

// CheckUpdates applies at most one pending column update. It returns true if
// an update was applied.
func (s *PatternSequencer) CheckUpdates() bool {
	if s.updates == nil {
		return false
	}
	select {
	case u := <-s.updates:
		s.apply(&u)
		return true
	default:
		return false
	}
}

func (s *PatternSequencer) apply(u *Update) {
	if u.Col < 0 || u.Col >= MaxCols {
		return
	}
	s.rows = max(1, min(u.Rows, MaxRows))
	s.kinds[u.Col] = u.Kind
	s.data[u.Col] = u.Data
	s.gateKey[u.Col] = -1
}

// GetColAtPhase samples column col at every phase in [0,1) and writes the
// results to out. Note and Step columns read the row under the phase; Value
// columns interpolate linearly towards the next row; Gate columns output 1 or
// 0 depending on the gate length of the row.
func (s *PatternSequencer) GetColAtPhase(col int, phase []float32, out []float32) {
	n := min(len(phase), len(out))
	if col < 0 || col >= MaxCols {
		clear(out[:n])
		return
	}
	rows := s.rows
	data := &s.data[col]
	fr := float32(rows)
	switch s.kinds[col] {
	case Note, Step:
		for i := 0; i < n; i++ {
			row, _ := rowAt(phase[i], fr, rows)
			out[i] = data[row]
		}
	case Value:
		for i := 0; i < n; i++ {
			row, frac := rowAt(phase[i], fr, rows)
			next := row + 1
			if next >= rows {
				next = 0
			}
			out[i] = data[row]*(1-frac) + data[next]*frac
		}
	case Gate:
		for i := 0; i < n; i++ {
			row, frac := rowAt(phase[i], fr, rows)
			out[i] = s.gate(col, row, frac, data[row])
		}
	}
}

// rowAt maps a phase to a row index and the fractional position inside it.
func rowAt(phase, fr float32, rows int) (int, float32) {
	phase -= float32(math.Floor(float64(phase)))
	rp := phase * fr
	row := int(rp)
	if row >= rows {
		return rows - 1, 0.999999
	}
	return row, rp - float32(row)
}

// gate decodes a raw gate cell value:
//
//	0x00F pulse width, the gate is on for (w+1)/16 of each sub-gate
//	0x0F0 row division, the row has 16-d sub-gates
//	0xF00 skip chance, each sub-gate is skipped with probability p/16
//
// A negative value is an empty cell, i.e. no gate.
func (s *PatternSequencer) gate(col, row int, frac, v float32) float32 {
	if v < 0 {
		return 0
	}
	bits := int(v)
	width := float32(bits&0xF+1) / 16
	div := 16 - (bits>>4)&0xF
	skip := (bits >> 8) & 0xF
	sub := frac * float32(div)
	subIdx := int(sub)
	subFrac := sub - float32(subIdx)
	if skip > 0 {
		key := row*16 + subIdx
		pos := float32(row) + frac
		if pos < s.gateLast[col] {
			s.gateKey[col] = -1 // the pattern wrapped, roll the dice again
		}
		s.gateLast[col] = pos
		if key != s.gateKey[col] {
			s.gateKey[col] = key
			s.gateSkip[col] = int(s.nextRand()>>28) < skip
		}
		if s.gateSkip[col] {
			return 0
		}
	}
	if subFrac < width {
		return 1
	}
	return 0
}

func (s *PatternSequencer) nextRand() uint32 {
	x := s.rand
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	s.rand = x
	return x
}
