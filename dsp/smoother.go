package dsp

// Smoother ramps a parameter linearly to its target value over a fixed number
// of samples. The zero value holds 0 and is not ramping.
type Smoother struct {
	value  float32
	target float32
	step   float32
	left   int
}

// Set jumps to v immediately.
func (s *Smoother) Set(v float32) {
	s.value, s.target, s.step, s.left = v, v, 0, 0
}

// SetTarget starts a ramp from the current value to v lasting samples
// samples. A non-positive length jumps immediately.
func (s *Smoother) SetTarget(v float32, samples int) {
	if samples <= 0 || v == s.value {
		s.Set(v)
		return
	}
	s.target = v
	s.left = samples
	s.step = (v - s.value) / float32(samples)
}

// Continue takes over the current value of prev and ramps from there to the
// own target of s.
func (s *Smoother) Continue(prev *Smoother, samples int) {
	target := s.target
	s.value = prev.value
	s.SetTarget(target, samples)
}

func (s *Smoother) Value() float32  { return s.value }
func (s *Smoother) Target() float32 { return s.target }
func (s *Smoother) IsDone() bool    { return s.left == 0 }

// Fill writes the next len(buf) values of the ramp to buf.
func (s *Smoother) Fill(buf []float32) {
	if s.left == 0 {
		for i := range buf {
			buf[i] = s.value
		}
		return
	}
	for i := range buf {
		if s.left > 0 {
			s.left--
			if s.left == 0 {
				s.value = s.target
			} else {
				s.value += s.step
			}
		}
		buf[i] = s.value
	}
}
