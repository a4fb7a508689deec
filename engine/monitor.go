package engine

type (
	// RingBuffer is a fixed size circular buffer. Cursor points to the most
	// recently written value.
	RingBuffer[T any] struct {
		Buffer []T
		Cursor int
	}

	// MonitorHistory keeps the latest min/max frames of each monitored signal.
	MonitorHistory struct {
		signals [MonitorSignals]RingBuffer[MinMax]
	}
)

func (r *RingBuffer[T]) WriteWrapSingle(value T) {
	r.Cursor = (r.Cursor + 1) % len(r.Buffer)
	r.Buffer[r.Cursor] = value
}

// Ordered appends the contents of the buffer to dst, oldest value first.
func (r *RingBuffer[T]) Ordered(dst []T) []T {
	dst = append(dst, r.Buffer[r.Cursor+1:]...)
	return append(dst, r.Buffer[:r.Cursor+1]...)
}

// NewMonitorHistory returns a history of length frames for every signal.
func NewMonitorHistory(length int) *MonitorHistory {
	h := &MonitorHistory{}
	for i := range h.signals {
		h.signals[i].Buffer = make([]MinMax, max(1, length))
	}
	return h
}

func (h *MonitorHistory) Write(f MonitorFrame) {
	for i := range h.signals {
		h.signals[i].WriteWrapSingle(f[i])
	}
}

// Reset forgets all recorded frames.
func (h *MonitorHistory) Reset() {
	for i := range h.signals {
		clear(h.signals[i].Buffer)
		h.signals[i].Cursor = 0
	}
}

// Samples returns the recorded frames of signal i, oldest first. Signals 0-2
// are the inputs and 3-5 the outputs of the monitored cell.
func (h *MonitorHistory) Samples(i int) []MinMax {
	if i < 0 || i >= MonitorSignals {
		return nil
	}
	return h.signals[i].Ordered(make([]MinMax, 0, len(h.signals[i].Buffer)))
}
