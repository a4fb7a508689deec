package dsp

import (
	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/sequencer"
)

// clock modes of the TSeq node
const (
	clockRowTrig = 0 // each clock pulse advances one row
	clockPatTrig = 1 // each clock pulse restarts the pattern
)

const (
	trigHigh = 0.5
	trigLow  = 0.25
)

// trackerSeq follows a clock input and turns it into pattern phases.
type trackerSeq struct {
	backend *sequencer.PatternSequencer
	phase   [hexodsp.MaxBlockSize]float32

	clockHigh bool
	trigHigh  bool
	seenEdge  bool
	sinceEdge int
	period    float32 // clock period in samples, 0 until two edges were seen

	pos float32 // current phase in [0,1)
	row int     // row started by the last pulse, -1 before the first one
}

func (s *trackerSeq) reset() {
	s.seenEdge = false
	s.sinceEdge = 0
	s.period = 0
	s.pos = 0
	s.row = -1
}

// edge returns true when v rises through trigHigh. The level has to drop
// below trigLow before the next edge is detected.
func edge(high *bool, v float32) bool {
	if *high {
		if v < trigLow {
			*high = false
		}
		return false
	}
	if v > trigHigh {
		*high = true
		return true
	}
	return false
}

func (s *trackerSeq) process(frames int, atoms []hexodsp.Atom, in, out []ProcBuf) {
	if s.backend == nil {
		for _, o := range out {
			clear(o.Slice(frames))
		}
		return
	}
	s.backend.CheckUpdates()
	clock, trig := in[0], in[1]
	mode := atomAt(atoms, 0)
	rows := s.backend.Rows()
	for i := 0; i < frames; i++ {
		if edge(&s.trigHigh, trig.Read(i)) {
			s.reset()
		}
		if edge(&s.clockHigh, clock.Read(i)) {
			if s.seenEdge {
				s.period = float32(max(1, s.sinceEdge))
			}
			s.seenEdge = true
			s.sinceEdge = 0
			if mode == clockPatTrig {
				s.pos = 0
			} else {
				s.row = (s.row + 1) % rows
				s.pos = float32(s.row) / float32(rows)
			}
		}
		s.phase[i] = s.pos
		s.sinceEdge++
		if s.period == 0 {
			continue
		}
		if mode == clockPatTrig {
			s.pos += 1 / s.period
			if s.pos >= 1 {
				s.pos -= 1
			}
			continue
		}
		// never run past the row the last pulse started
		s.pos += 1 / (s.period * float32(rows))
		if s.row >= 0 {
			if end := float32(s.row+1) / float32(rows); s.pos >= end {
				s.pos = end - 1e-6
			}
		}
		if s.pos >= 1 {
			s.pos -= 1
		}
	}
	phase := s.phase[:frames]
	for col := 0; col < min(len(out), sequencer.MaxCols); col++ {
		s.backend.GetColAtPhase(col, phase, out[col].Slice(frames))
	}
}
