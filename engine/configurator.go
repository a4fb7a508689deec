package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/dsp"
	"github.com/hexosynth/hexodsp/sequencer"
)

// MaxTrackers is the number of trackers, i.e. the number of TSeq instances
// that can have a pattern.
const MaxTrackers = 8

// ErrExecutorBusy is returned when a graph message could not be delivered to
// the executor within the configured timeout.
var ErrExecutorBusy = errors.New("executor is not consuming graph updates")

type (
	// Configurator is the control side of the engine. It creates node
	// instances, stores the parameter values, builds programs and ships them
	// to the Executor. It is not safe for concurrent use; the Matrix
	// serializes access to it.
	Configurator struct {
		broker   *Broker
		settings hexodsp.Settings
		log      *slog.Logger

		nodes     map[hexodsp.NodeId]int
		usedIndex []bool
		params    map[hexodsp.ParamId]hexodsp.Atom
		modAmts   map[hexodsp.ParamId]float32
		trackers  [MaxTrackers]*sequencer.Tracker

		gen     uint64
		current *Build
		pending map[quickKey]QuickMessage
		order   []quickKey

		monitorNode hexodsp.NodeId
		monitorIn   [3]int
		monitorOut  [3]int
		history     *MonitorHistory
	}

	// Build is a compiled program together with the slot layout needed to
	// address its parameters.
	Build struct {
		Prog   *dsp.NodeProg
		inputs map[hexodsp.ParamId]int
		atoms  map[hexodsp.ParamId]int
		mods   map[hexodsp.ParamId]int
	}

	// Edge connects output Out of node From to input In of node To.
	Edge struct {
		From hexodsp.NodeId
		Out  int
		To   hexodsp.NodeId
		In   int
	}

	quickKey struct {
		kind QuickMessageKind
		slot int
	}
)

// NewConfigurator returns a configurator talking to the executor through
// broker. A nil logger means slog.Default().
func NewConfigurator(broker *Broker, settings hexodsp.Settings, logger *slog.Logger) *Configurator {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Configurator{
		broker:   broker,
		settings: settings,
		log:      logger,
		history:  NewMonitorHistory(settings.MonitorHistory),
	}
	c.reset()
	return c
}

func (c *Configurator) reset() {
	c.nodes = map[hexodsp.NodeId]int{}
	c.usedIndex = make([]bool, MaxNodes)
	c.params = map[hexodsp.ParamId]hexodsp.Atom{}
	c.modAmts = map[hexodsp.ParamId]float32{}
	c.current = nil
	c.pending = map[quickKey]QuickMessage{}
	c.order = c.order[:0]
	c.monitorNode = hexodsp.NopNode
	c.history.Reset()
}

// NewExecutor returns the audio side counterpart of the configurator.
func (c *Configurator) NewExecutor(tables *dsp.Tables) *Executor {
	return NewExecutor(c.broker, tables, c.settings.SmoothingSamples())
}

// Tracker returns the tracker of TSeq instance i, creating it on first use.
func (c *Configurator) Tracker(i int) (*sequencer.Tracker, bool) {
	if i < 0 || i >= MaxTrackers {
		return nil, false
	}
	if c.trackers[i] == nil {
		c.trackers[i] = sequencer.NewTracker(c.settings.Channels.Pattern)
	}
	return c.trackers[i], true
}

// NodeIndex returns the executor table index of an instantiated node.
func (c *Configurator) NodeIndex(id hexodsp.NodeId) (int, bool) {
	i, ok := c.nodes[id]
	return i, ok
}

// CreateNode instantiates the node on the audio side, unless it already
// exists, and returns its index in the executor node table.
func (c *Configurator) CreateNode(id hexodsp.NodeId) (int, error) {
	if i, ok := c.nodes[id]; ok {
		return i, nil
	}
	if err := checkNode(id); err != nil {
		return -1, err
	}
	var backend *sequencer.PatternSequencer
	if id.Kind == hexodsp.TSeq {
		tr, _ := c.Tracker(id.Instance)
		backend = tr.NewBackend()
	}
	index := slices.Index(c.usedIndex, false)
	if index < 0 {
		return -1, fmt.Errorf("node table is full, cannot instantiate %v", id)
	}
	node := dsp.NewNode(id, c.settings.SampleRate, backend)
	msg := GraphMessage{Kind: NewNode, Index: index, Node: node}
	if !TimeoutSend(c.broker.Graph, msg, c.settings.GraphSendTimeout()) {
		return -1, fmt.Errorf("creating %v: %w", id, ErrExecutorBusy)
	}
	c.usedIndex[index] = true
	c.nodes[id] = index
	for _, p := range id.Params() {
		if _, ok := c.params[p]; !ok {
			c.params[p] = p.Default()
		}
	}
	c.log.Debug("node created", "node", id.String(), "index", index)
	return index, nil
}

func checkNode(id hexodsp.NodeId) error {
	if id.IsNop() || id.Kind >= hexodsp.NumNodeKinds || id.Instance < 0 || id.Instance >= hexodsp.MaxNodeInstances {
		return fmt.Errorf("cannot instantiate node %v", id)
	}
	if id.Kind == hexodsp.TSeq && id.Instance >= MaxTrackers {
		return fmt.Errorf("no tracker available for %v, at most %d tseq nodes are supported", id, MaxTrackers)
	}
	return nil
}

// Param returns the stored value of a parameter, or its default.
func (c *Configurator) Param(p hexodsp.ParamId) hexodsp.Atom {
	if a, ok := c.params[p]; ok {
		return a
	}
	return p.Default()
}

// SetParam stores the value of a parameter and forwards it to the running
// program. Inputs are smoothed unless immediate is set; atoms always change
// immediately. The clamped value is returned.
func (c *Configurator) SetParam(p hexodsp.ParamId, a hexodsp.Atom, immediate bool) hexodsp.Atom {
	a = p.Clamp(a)
	c.params[p] = a
	if c.current == nil {
		return a
	}
	if p.IsAtom() {
		if slot, ok := c.current.atoms[p]; ok {
			c.sendQuick(QuickMessage{Kind: AtomUpdate, Slot: slot, Atom: a})
		}
		return a
	}
	if slot, ok := c.current.inputs[p]; ok {
		kind := ParamUpdate
		if immediate {
			kind = ParamSet
		}
		c.sendQuick(QuickMessage{Kind: kind, Slot: slot, Value: a.Float()})
	}
	return a
}

// ModAmt returns the modulation amount of an input; ok is false if the input
// is not modulated.
func (c *Configurator) ModAmt(p hexodsp.ParamId) (amt float32, ok bool) {
	amt, ok = c.modAmts[p]
	return amt, ok
}

// SetParamModAmt sets or, with a nil amt, removes the modulation amount of
// an input. Changing an existing amount is forwarded to the running program;
// adding or removing one changes the program layout, which is reported by
// returning true.
func (c *Configurator) SetParamModAmt(p hexodsp.ParamId, amt *float32) (needsRebuild bool) {
	old, had := c.modAmts[p]
	switch {
	case amt == nil && !had:
		return false
	case amt == nil:
		delete(c.modAmts, p)
		return true
	case !had:
		c.modAmts[p] = *amt
		return true
	}
	c.modAmts[p] = *amt
	if old != *amt && c.current != nil {
		if slot, ok := c.current.mods[p]; ok {
			c.sendQuick(QuickMessage{Kind: ModAmtUpdate, Slot: slot, Value: *amt})
		}
	}
	return false
}

// BuildProg compiles the nodes in order into a program. Every edge has to
// run from a node earlier in order to a later one. Nodes not instantiated yet
// are created.
func (c *Configurator) BuildProg(order []hexodsp.NodeId, edges []Edge) (*Build, error) {
	b, ops, l, err := c.layout(order, edges, c.CreateNode)
	if err != nil {
		return nil, err
	}
	b.Prog = dsp.NewNodeProg(l, c.broker.GetProcBuf)
	for _, op := range ops {
		b.Prog.AppendOp(op)
	}
	for p, slot := range b.inputs {
		b.Prog.SetParam(slot, c.Param(p).Float())
	}
	for p, slot := range b.atoms {
		b.Prog.SetAtom(slot, c.Param(p))
	}
	for p, slot := range b.mods {
		b.Prog.SetModAmt(slot, c.modAmts[p])
	}
	return b, nil
}

// CheckProg returns the error BuildProg would return for order and edges
// after a Clear. Nothing is instantiated or sent to the executor.
func (c *Configurator) CheckProg(order []hexodsp.NodeId, edges []Edge) error {
	n := 0
	_, _, _, err := c.layout(order, edges, func(id hexodsp.NodeId) (int, error) {
		if err := checkNode(id); err != nil {
			return -1, err
		}
		if n >= MaxNodes {
			return -1, fmt.Errorf("node table is full, cannot instantiate %v", id)
		}
		n++
		return n - 1, nil
	})
	return err
}

// layout assigns the slots of the program, resolving node table indices
// with index.
func (c *Configurator) layout(order []hexodsp.NodeId, edges []Edge, index func(hexodsp.NodeId) (int, error)) (*Build, []dsp.NodeOp, dsp.ProgLayout, error) {
	b := &Build{
		inputs: map[hexodsp.ParamId]int{},
		atoms:  map[hexodsp.ParamId]int{},
		mods:   map[hexodsp.ParamId]int{},
	}
	var l dsp.ProgLayout
	ops := make([]dsp.NodeOp, 0, len(order))
	pos := make(map[hexodsp.NodeId]int, len(order))
	for _, id := range order {
		if _, dup := pos[id]; dup {
			return nil, nil, l, fmt.Errorf("node %v appears twice in the program", id)
		}
		idx, err := index(id)
		if err != nil {
			return nil, nil, l, err
		}
		op := dsp.NodeOp{
			Idx: idx, Node: id,
			OutIdx: l.Outputs, OutLen: id.NumOutputs(),
			InIdx: l.Inputs, InLen: id.NumInputs(),
			AtIdx: l.Atoms, AtLen: id.NumAtoms(),
		}
		l.Outputs += op.OutLen
		l.Inputs += op.InLen
		l.Atoms += op.AtLen
		for _, p := range id.Params() {
			if p.IsAtom() {
				b.atoms[p] = op.AtIdx + p.AtomIndex()
			} else {
				b.inputs[p] = op.InIdx + p.Idx
			}
		}
		pos[id] = len(ops)
		ops = append(ops, op)
	}
	wired := map[int]bool{}
	for _, e := range edges {
		from, ok1 := pos[e.From]
		to, ok2 := pos[e.To]
		if !ok1 || !ok2 {
			return nil, nil, l, fmt.Errorf("edge %v -> %v refers to a node outside the program", e.From, e.To)
		}
		if from >= to {
			return nil, nil, l, fmt.Errorf("edge %v -> %v runs against the program order", e.From, e.To)
		}
		if e.Out < 0 || e.Out >= ops[from].OutLen || e.In < 0 || e.In >= ops[to].InLen {
			return nil, nil, l, fmt.Errorf("edge %v:%d -> %v:%d refers to a missing port", e.From, e.Out, e.To, e.In)
		}
		pe := dsp.ProgEdge{Out: ops[from].OutIdx + e.Out, In: ops[to].InIdx + e.In, Mod: -1}
		if wired[pe.In] {
			return nil, nil, l, fmt.Errorf("input %d of %v is wired twice", e.In, e.To)
		}
		wired[pe.In] = true
		p := hexodsp.ParamId{Node: e.To, Idx: e.In}
		if _, ok := c.modAmts[p]; ok {
			pe.Mod = l.Mods
			b.mods[p] = l.Mods
			l.Mods++
		}
		ops[to].Inputs = append(ops[to].Inputs, pe)
	}
	return b, ops, l, nil
}

// UploadProg sends the program to the executor, replacing the running one.
// With copyOld, nodes present in both programs continue from their previous
// output buffers. If the executor does not accept the program in time,
// ErrExecutorBusy is returned and the old program keeps running.
func (c *Configurator) UploadProg(b *Build, copyOld bool) error {
	msg := GraphMessage{Kind: ReplaceProg, Gen: c.gen + 1, Prog: b.Prog, CopyOld: copyOld}
	if !TimeoutSend(c.broker.Graph, msg, c.settings.GraphSendTimeout()) {
		b.Prog.Release(c.broker.PutProcBuf)
		return fmt.Errorf("uploading program: %w", ErrExecutorBusy)
	}
	c.gen++
	c.current = b
	// slots of the old program are meaningless now
	clear(c.pending)
	c.order = c.order[:0]
	c.sendMonitor()
	c.log.Debug("program uploaded", "generation", c.gen, "ops", len(b.Prog.Ops()))
	return nil
}

// Clear removes every node and the running program on the audio side and
// forgets all parameters and patterns.
func (c *Configurator) Clear() error {
	msg := GraphMessage{Kind: ClearProg, Gen: c.gen + 1}
	if !TimeoutSend(c.broker.Graph, msg, c.settings.GraphSendTimeout()) {
		return fmt.Errorf("clearing: %w", ErrExecutorBusy)
	}
	c.gen++
	c.reset()
	for _, tr := range c.trackers {
		if tr != nil {
			tr.Replace(sequencer.NewPatternData(sequencer.DefaultRows))
		}
	}
	return nil
}

// Generation returns the generation of the last uploaded program.
func (c *Configurator) Generation() uint64 { return c.gen }

// Current returns the last uploaded program, or nil.
func (c *Configurator) Current() *Build { return c.current }

// SetMonitor selects the node whose signals are monitored. in and out give
// the input and output port shown on each of the three input and output
// edges of its cell, -1 for none.
func (c *Configurator) SetMonitor(node hexodsp.NodeId, in, out [3]int) {
	if node == c.monitorNode && in == c.monitorIn && out == c.monitorOut {
		return
	}
	c.monitorNode, c.monitorIn, c.monitorOut = node, in, out
	c.history.Reset()
	c.sendMonitor()
}

func (c *Configurator) sendMonitor() {
	if c.current == nil {
		return
	}
	slots := NoMonitor
	if op, ok := c.current.Prog.FindOp(c.monitorNode); ok && !c.monitorNode.IsNop() {
		for i := 0; i < 3; i++ {
			if p := c.monitorIn[i]; p >= 0 && p < op.InLen {
				slots[i] = MonitorSlot{Slot: op.InIdx + p}
			}
			if p := c.monitorOut[i]; p >= 0 && p < op.OutLen {
				slots[3+i] = MonitorSlot{Output: true, Slot: op.OutIdx + p}
			}
		}
	}
	// monitoring is the least urgent message: drop it if there is no room
	if !TrySend(c.broker.Quick, QuickMessage{Kind: SetMonitor, Gen: c.gen, Monitor: slots}) {
		c.log.Debug("quick channel full, monitor assignment dropped", "node", c.monitorNode.String())
	}
}

// MinMaxMonitorSamples returns the recorded min/max history of monitor
// signal i, oldest first.
func (c *Configurator) MinMaxMonitorSamples(i int) []MinMax {
	return c.history.Samples(i)
}

// sendQuick sends msg tagged with the current generation. If the quick
// channel is full, only the latest message per slot is kept and retried by
// Update.
func (c *Configurator) sendQuick(msg QuickMessage) {
	msg.Gen = c.gen
	c.flushPending()
	key := quickKey{kind: msg.Kind, slot: msg.Slot}
	if msg.Kind == ParamSet {
		key.kind = ParamUpdate
	}
	if _, queued := c.pending[key]; !queued && len(c.order) == 0 && TrySend(c.broker.Quick, msg) {
		return
	}
	if _, queued := c.pending[key]; !queued {
		c.order = append(c.order, key)
		c.log.Warn("quick channel full, update deferred", "slot", msg.Slot)
	}
	c.pending[key] = msg
}

func (c *Configurator) flushPending() {
	n := 0
	for ; n < len(c.order); n++ {
		key := c.order[n]
		if !TrySend(c.broker.Quick, c.pending[key]) {
			break
		}
		delete(c.pending, key)
	}
	c.order = append(c.order[:0], c.order[n:]...)
}

// Pending returns the number of quick messages waiting for room in the quick
// channel.
func (c *Configurator) Pending() int { return len(c.order) }

// Update does the periodic control side work: it recycles everything the
// executor retired, records the monitor frames, retries deferred quick
// messages and sends pending pattern updates. It returns true if new monitor
// data arrived.
func (c *Configurator) Update() (monitorUpdated bool) {
	for done := false; !done; {
		select {
		case r := <-c.broker.Drop:
			if r.Prog != nil {
				r.Prog.Release(c.broker.PutProcBuf)
			}
		case f := <-c.broker.Monitor:
			c.history.Write(f)
			monitorUpdated = true
		default:
			done = true
		}
	}
	c.flushPending()
	for _, tr := range c.trackers {
		if tr != nil {
			tr.SendUpdates()
		}
	}
	return monitorUpdated
}
