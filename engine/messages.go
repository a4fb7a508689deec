package engine

import (
	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/dsp"
)

type (
	// GraphMessage carries the large, infrequent changes: a new node instance,
	// a whole new program or clearing everything. Gen is the program
	// generation that becomes current once the message is applied.
	GraphMessage struct {
		Kind  GraphMessageKind
		Gen   uint64
		Index int
		Node  *dsp.Node
		Prog  *dsp.NodeProg
		// CopyOld carries the output buffers and smoothers of the previous
		// program over to the new one.
		CopyOld bool
	}

	GraphMessageKind int

	// QuickMessage carries one small, frequent update. Slot indexes into the
	// program of generation Gen; messages for an older generation are
	// ignored by the executor, since the slots of a newer program are
	// already initialized from the current values.
	QuickMessage struct {
		Kind    QuickMessageKind
		Gen     uint64
		Slot    int
		Value   float32
		Atom    hexodsp.Atom
		Monitor [MonitorSignals]MonitorSlot
	}

	QuickMessageKind int

	// MonitorSlot names a program slot to be monitored; Slot < 0 means none.
	MonitorSlot struct {
		Output bool
		Slot   int
	}

	// Retired is something the audio side does not need anymore; exactly one
	// of the fields is set.
	Retired struct {
		Prog *dsp.NodeProg
		Node *dsp.Node
	}

	// MinMax is the range of a signal during one block.
	MinMax struct {
		Min, Max float32
	}

	// MonitorFrame holds the min/max of each monitored signal during one
	// block: the three inputs first, then the three outputs of the monitored
	// cell.
	MonitorFrame [MonitorSignals]MinMax
)

const (
	NewNode GraphMessageKind = iota
	ReplaceProg
	ClearProg
)

const (
	ParamUpdate QuickMessageKind = iota
	ParamSet // like ParamUpdate, without smoothing
	AtomUpdate
	ModAmtUpdate
	SetMonitor
)

// MonitorSignals is the number of signals of the monitored cell.
const MonitorSignals = 6

// NoMonitor is a monitor assignment that monitors nothing.
var NoMonitor = [MonitorSignals]MonitorSlot{{Slot: -1}, {Slot: -1}, {Slot: -1}, {Slot: -1}, {Slot: -1}, {Slot: -1}}
