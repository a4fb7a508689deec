package engine

import (
	"sync"
	"time"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/dsp"
)

// Broker holds the bounded channels between the Configurator (control side)
// and the Executor (audio side), one channel per direction and urgency:
//
//	Graph   control -> audio: new nodes, whole programs, clearing
//	Quick   control -> audio: single parameter, atom and monitor updates
//	Drop    audio -> control: retired programs and nodes to be recycled
//	Monitor audio -> control: per block min/max of the monitored signals
//
// The audio side only ever uses TrySend and non-blocking receives. The
// broker also keeps a pool of ProcBufs, so that buffers of retired programs
// can be reused by the next program instead of being allocated again.
type Broker struct {
	Graph   chan GraphMessage
	Quick   chan QuickMessage
	Drop    chan Retired
	Monitor chan MonitorFrame

	bufferPool sync.Pool
}

func NewBroker(c hexodsp.ChannelSettings) *Broker {
	return &Broker{
		Graph:      make(chan GraphMessage, c.Graph),
		Quick:      make(chan QuickMessage, c.Quick),
		Drop:       make(chan Retired, c.Drop),
		Monitor:    make(chan MonitorFrame, c.Monitor),
		bufferPool: sync.Pool{New: func() any { return dsp.NewProcBuf() }},
	}
}

// GetProcBuf returns a zeroed buffer from the pool.
func (b *Broker) GetProcBuf() dsp.ProcBuf {
	buf := b.bufferPool.Get().(dsp.ProcBuf)
	buf.Zero()
	return buf
}

// PutProcBuf returns a buffer to the pool. It must not be used afterwards.
func (b *Broker) PutProcBuf(buf dsp.ProcBuf) {
	if !buf.IsNull() {
		b.bufferPool.Put(buf)
	}
}

// TrySend is a helper function to send a value to a channel if it is not full.
// It is guaranteed to be non-blocking. Return true if the value was sent, false
// otherwise.
func TrySend[T any](c chan<- T, v T) bool {
	select {
	case c <- v:
	default:
		return false
	}
	return true
}

// TimeoutSend blocks until v is sent to c or t has passed. It returns false
// on timeout. Never call it from the audio goroutine.
func TimeoutSend[T any](c chan<- T, v T, t time.Duration) bool {
	if TrySend(c, v) {
		return true
	}
	timer := time.NewTimer(t)
	defer timer.Stop()
	select {
	case c <- v:
		return true
	case <-timer.C:
		return false
	}
}

// TimeoutReceive is a helper function to block until a value is received from a
// channel, or timing out after t. ok will be false if the timeout occurred or
// if the channel is closed.
func TimeoutReceive[T any](c <-chan T, t time.Duration) (v T, ok bool) {
	select {
	case v, ok = <-c:
		return v, ok
	case <-time.After(t):
		return v, false
	}
}
