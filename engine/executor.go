package engine

import (
	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/dsp"
	"github.com/viterin/vek/vek32"
)

// MaxNodes is the size of the executor node table: every instance of every
// node kind.
const MaxNodes = hexodsp.MaxNodeInstances * int(hexodsp.NumNodeKinds)

const retiredBacklog = 64

// Executor is the audio side of the engine. It owns the running program and
// the node instances, and is driven by calling ProcessGraphUpdates and then
// Process once per block, from a single goroutine. Neither call blocks or
// allocates.
type Executor struct {
	broker    *Broker
	tables    *dsp.Tables
	smoothing int

	nodes []*dsp.Node
	prog  *dsp.NodeProg
	gen   uint64

	monitor [MonitorSignals]MonitorSlot
	retired []Retired
}

// NewExecutor returns an executor with an empty node table. smoothing is the
// length of parameter ramps in samples.
func NewExecutor(broker *Broker, tables *dsp.Tables, smoothing int) *Executor {
	return &Executor{
		broker:    broker,
		tables:    tables,
		smoothing: smoothing,
		nodes:     make([]*dsp.Node, MaxNodes),
		monitor:   NoMonitor,
		retired:   make([]Retired, 0, retiredBacklog),
	}
}

// Generation returns the generation of the running program.
func (e *Executor) Generation() uint64 { return e.gen }

// ProcessGraphUpdates applies every pending graph message, then every pending
// quick message. A quick message for a newer generation than the running one
// first pulls in the graph messages sent before it. It returns as soon as both
// channels are empty.
func (e *Executor) ProcessGraphUpdates() {
	e.flushRetired()
	e.drainGraph()
	for done := false; !done; {
		select {
		case msg := <-e.broker.Quick:
			e.applyQuick(&msg)
		default:
			done = true
		}
	}
}

func (e *Executor) drainGraph() {
	for done := false; !done; {
		select {
		case msg := <-e.broker.Graph:
			e.applyGraph(&msg)
		default:
			done = true
		}
	}
}

func (e *Executor) applyGraph(msg *GraphMessage) {
	switch msg.Kind {
	case NewNode:
		if msg.Index < 0 || msg.Index >= len(e.nodes) {
			e.retire(Retired{Node: msg.Node})
			return
		}
		if old := e.nodes[msg.Index]; old != nil {
			e.retire(Retired{Node: old})
		}
		e.nodes[msg.Index] = msg.Node
	case ReplaceProg:
		if msg.Prog == nil {
			return
		}
		if old := e.prog; old != nil {
			old.UnlockBuffers()
			if msg.CopyOld {
				msg.Prog.SwapPreviousOutputs(old, e.smoothing)
			}
			e.retire(Retired{Prog: old})
		}
		msg.Prog.AssignOutputs()
		e.prog = msg.Prog
		e.gen = msg.Gen
		e.monitor = NoMonitor
	case ClearProg:
		if e.prog != nil {
			e.prog.UnlockBuffers()
			e.retire(Retired{Prog: e.prog})
			e.prog = nil
		}
		for i, n := range e.nodes {
			if n != nil {
				e.retire(Retired{Node: n})
				e.nodes[i] = nil
			}
		}
		e.gen = msg.Gen
		e.monitor = NoMonitor
	}
}

func (e *Executor) applyQuick(msg *QuickMessage) {
	if msg.Gen > e.gen {
		// the graph message of that generation was sent first and is queued
		e.drainGraph()
	}
	if msg.Gen != e.gen || e.prog == nil {
		return
	}
	switch msg.Kind {
	case ParamUpdate:
		e.prog.SetParamSmooth(msg.Slot, msg.Value, e.smoothing)
	case ParamSet:
		e.prog.SetParam(msg.Slot, msg.Value)
	case AtomUpdate:
		e.prog.SetAtom(msg.Slot, msg.Atom)
	case ModAmtUpdate:
		e.prog.SetModAmt(msg.Slot, msg.Value)
	case SetMonitor:
		e.monitor = msg.Monitor
	}
}

// retire hands r back to the control side. If the drop channel is full, r is
// kept in a fixed size backlog and resent on the next block; if even that is
// full, the reference is dropped and left to the garbage collector.
func (e *Executor) retire(r Retired) {
	if len(e.retired) == 0 && TrySend(e.broker.Drop, r) {
		return
	}
	if len(e.retired) < cap(e.retired) {
		e.retired = append(e.retired, r)
	}
}

func (e *Executor) flushRetired() {
	n := 0
	for n < len(e.retired) && TrySend(e.broker.Drop, e.retired[n]) {
		n++
	}
	if n == 0 {
		return
	}
	rest := copy(e.retired, e.retired[n:])
	clear(e.retired[rest:])
	e.retired = e.retired[:rest]
}

// Process clears the output channels of ctx and runs the current program
// once. Afterwards the min/max of the monitored signals is sent to the
// control side, if the monitor channel has room.
func (e *Executor) Process(ctx hexodsp.ProcessContext) {
	n := min(ctx.Frames(), hexodsp.MaxBlockSize)
	for c := 0; c < hexodsp.NumOutputChannels; c++ {
		if out := ctx.Output(c); len(out) >= n {
			vek32.Zeros_Into(out, n)
		}
	}
	if e.prog == nil || n <= 0 {
		return
	}
	e.prog.Process(ctx, e.nodes, e.tables)
	e.sendMonitor(n)
}

func (e *Executor) sendMonitor(n int) {
	var frame MonitorFrame
	found := false
	for i, m := range e.monitor {
		if m.Slot < 0 {
			continue
		}
		var buf dsp.ProcBuf
		if m.Output {
			buf = e.prog.Output(m.Slot)
		} else {
			buf, _ = e.prog.Input(m.Slot)
		}
		if buf.IsNull() {
			continue
		}
		frame[i].Min, frame[i].Max = buf.MinMax(n)
		found = true
	}
	if found {
		TrySend(e.broker.Monitor, frame)
	}
}
