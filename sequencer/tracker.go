package sequencer

import (
	"sync"

	"github.com/hexosynth/hexodsp"
)

// Tracker owns the editable pattern of one TSeq node and the channel that
// carries column updates to its audio side PatternSequencer. All methods are
// safe for concurrent use from control side goroutines.
type Tracker struct {
	mu       sync.Mutex
	data     *PatternData
	updates  chan Update
	capacity int
}

// NewTracker returns a tracker with an empty DefaultRows long pattern.
// capacity is the number of column updates that can be queued.
func NewTracker(capacity int) *Tracker {
	return &Tracker{data: NewPatternData(DefaultRows), capacity: max(1, capacity)}
}

// Edit runs f with exclusive access to the pattern.
func (t *Tracker) Edit(f func(p *PatternData)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	f(t.data)
}

// Replace swaps in a whole new pattern; every column will be resent.
func (t *Tracker) Replace(p *PatternData) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p.markAll()
	t.data = p
}

// Repr returns the serializable form of the pattern. empty is true if the
// pattern holds no cells and uses the default layout, so it can be left out
// of saved files.
func (t *Tracker) Repr(index int) (r hexodsp.PatternRepr, empty bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	r = t.data.Repr(index)
	def := NewPatternData(DefaultRows)
	return r, len(r.Cells) == 0 && t.data.rows == def.rows && t.data.kinds == def.kinds
}

// NewBackend returns a fresh audio side sequencer connected to this tracker.
// A previously returned backend stops receiving updates, so every column is
// marked modified to bring the new one up to date.
func (t *Tracker) NewBackend() *PatternSequencer {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.updates = make(chan Update, t.capacity)
	t.data.markAll()
	return NewPatternSequencer(t.data.rows, t.updates)
}

// SendOneUpdate ships at most one modified column to the backend. It returns
// false if nothing was sent, either because nothing was modified, the
// channel is full or no backend exists yet.
func (t *Tracker) SendOneUpdate() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.updates == nil {
		return false
	}
	return t.data.SendOneUpdate(t.updates)
}

// SendUpdates sends modified columns until there are none left or the channel
// is full, and returns the number of columns sent.
func (t *Tracker) SendUpdates() int {
	n := 0
	for t.SendOneUpdate() {
		n++
	}
	return n
}

// Pending returns true if some column has not been sent yet.
func (t *Tracker) Pending() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for col := range t.data.modified {
		if t.data.modified[col] {
			return true
		}
	}
	return false
}
