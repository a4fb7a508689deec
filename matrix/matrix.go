package matrix

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/dsp"
	"github.com/hexosynth/hexodsp/engine"
	"github.com/hexosynth/hexodsp/sequencer"
)

// ErrCycle is returned by Sync when the wiring of the matrix contains a
// cycle. The previously compiled program keeps running.
var ErrCycle = errors.New("matrix contains a cycle")

type (
	// Observer is notified about changes of the matrix. The methods are
	// called after the matrix lock has been released, so they may call back
	// into the matrix, but they must return quickly and never block.
	Observer interface {
		UpdateProp(key string)
		UpdateMonitor(cell hexodsp.Cell)
		UpdateParam(p hexodsp.ParamId)
		UpdateMatrix()
		UpdateAll()
		MidiEvent(ev hexodsp.MidiEvent)
	}

	// Matrix is the hex grid of cells and the control side of the engine
	// behind it. All methods are safe for concurrent use. The audio side is
	// the Executor returned by New; it never touches the Matrix.
	Matrix struct {
		mu       sync.Mutex
		w, h     int
		cells    []hexodsp.Cell
		graph    *NodeGraph
		config   *engine.Configurator
		log      *slog.Logger
		observer Observer
		props    map[string]any

		monitorX, monitorY int
		monitoring         bool
		lastMonitor        [engine.MonitorSignals]atomic.Pointer[[]engine.MinMax]

		gen atomic.Uint64
	}
)

// New returns an empty w x h matrix and the executor to be driven by the
// audio goroutine. A nil logger means slog.Default().
func New(w, h int, settings hexodsp.Settings, logger *slog.Logger) (*Matrix, *engine.Executor) {
	if logger == nil {
		logger = slog.Default()
	}
	w, h = max(1, w), max(1, h)
	broker := engine.NewBroker(settings.Channels)
	config := engine.NewConfigurator(broker, settings, logger)
	m := &Matrix{
		w:      w,
		h:      h,
		cells:  make([]hexodsp.Cell, w*h),
		graph:  NewNodeGraph(),
		config: config,
		log:    logger,
		props:  map[string]any{},
	}
	m.resetCells()
	return m, config.NewExecutor(dsp.NewTables())
}

func (m *Matrix) resetCells() {
	for i := range m.cells {
		c := hexodsp.EmptyCell()
		c.X, c.Y = i%m.w, i/m.w
		m.cells[i] = c
	}
}

func (m *Matrix) Size() (w, h int) { return m.w, m.h }

// Generation is incremented by every change of the matrix. Readers caching
// derived data compare it to detect that their copy is stale.
func (m *Matrix) Generation() uint64 { return m.gen.Load() }

func (m *Matrix) SetObserver(o Observer) {
	m.mu.Lock()
	m.observer = o
	m.mu.Unlock()
}

// notify calls f with the observer, if there is one. The lock must not be
// held.
func (m *Matrix) notify(f func(o Observer)) {
	m.mu.Lock()
	o := m.observer
	m.mu.Unlock()
	if o != nil {
		f(o)
	}
}

func (m *Matrix) inside(x, y int) bool { return x >= 0 && y >= 0 && x < m.w && y < m.h }

// Place puts cell at (x, y), replacing whatever was there. Ports the node
// does not have are cleared. Positions outside the grid are ignored. The
// program is not recompiled until Sync is called.
func (m *Matrix) Place(x, y int, cell hexodsp.Cell) {
	m.mu.Lock()
	if !m.inside(x, y) {
		m.mu.Unlock()
		return
	}
	cell.X, cell.Y = x, y
	m.cells[y*m.w+x] = cell.Normalize()
	m.gen.Add(1)
	m.mu.Unlock()
	m.notify(func(o Observer) { o.UpdateMatrix() })
}

// Remove empties the cell at (x, y).
func (m *Matrix) Remove(x, y int) { m.Place(x, y, hexodsp.EmptyCell()) }

// Get returns the cell at (x, y); ok is false outside the grid.
func (m *Matrix) Get(x, y int) (cell hexodsp.Cell, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.inside(x, y) {
		return hexodsp.Cell{}, false
	}
	return m.cells[y*m.w+x], true
}

// GetCopy returns a snapshot of all non-empty cells, in row-major order,
// together with the generation it was taken at.
func (m *Matrix) GetCopy() ([]hexodsp.Cell, uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ret []hexodsp.Cell
	for _, c := range m.cells {
		if !c.IsEmpty() {
			ret = append(ret, c)
		}
	}
	return ret, m.gen.Load()
}

// FindCell returns the first cell, in row-major order, holding node.
func (m *Matrix) FindCell(node hexodsp.NodeId) (hexodsp.Cell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.cells {
		if c.Node == node && !c.IsEmpty() {
			return c, true
		}
	}
	return hexodsp.Cell{}, false
}

// UniqueIndexFor returns the node of the given kind with the smallest
// instance index not placed in the grid. TSeq instances are limited to the
// number of trackers.
func (m *Matrix) UniqueIndexFor(kind hexodsp.NodeKind) (hexodsp.NodeId, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var used [hexodsp.MaxNodeInstances]bool
	limit := len(used)
	if kind == hexodsp.TSeq {
		limit = engine.MaxTrackers
	}
	for _, c := range m.cells {
		if c.Node.Kind == kind && c.Node.Instance >= 0 && c.Node.Instance < limit {
			used[c.Node.Instance] = true
		}
	}
	if i := slices.Index(used[:limit], false); i >= 0 && kind != hexodsp.Nop {
		return hexodsp.NodeId{Kind: kind, Instance: i}, true
	}
	return hexodsp.NopNode, false
}

// EdgeLabel returns the name of the port exposed on edge d of the cell at
// (x, y), or "".
func (m *Matrix) EdgeLabel(x, y int, d hexodsp.CellDir) string {
	c, ok := m.Get(x, y)
	if !ok {
		return ""
	}
	return c.EdgeLabel(d)
}

// wire adds every node and connection of cells to g and returns the
// connections as engine edges. An input edge of a cell is connected when the
// neighbour behind it exposes an output on the touching edge.
func wire(cells []hexodsp.Cell, w, h int, g *NodeGraph) []engine.Edge {
	at := func(x, y int) (hexodsp.Cell, bool) {
		if x < 0 || y < 0 || x >= w || y >= h {
			return hexodsp.Cell{}, false
		}
		c := cells[y*w+x]
		return c, !c.IsEmpty()
	}
	g.Clear()
	for _, c := range cells {
		if !c.IsEmpty() {
			g.AddNode(c.Node)
		}
	}
	var edges []engine.Edge
	seen := map[engine.Edge]bool{}
	for _, c := range cells {
		if c.IsEmpty() {
			continue
		}
		for _, d := range hexodsp.InputDirs {
			in := c.Port(d)
			if in < 0 {
				continue
			}
			nb, ok := at(d.Neighbour(c.X, c.Y))
			if !ok {
				continue
			}
			out := nb.Port(d.Flip())
			if out < 0 {
				continue
			}
			e := engine.Edge{From: nb.Node, Out: out, To: c.Node, In: in}
			if seen[e] {
				continue
			}
			seen[e] = true
			edges = append(edges, e)
			g.AddEdge(nb.Node, c.Node)
		}
	}
	return edges
}

// Sync compiles the grid into a new program and sends it to the executor.
// If the wiring contains a cycle, an error wrapping ErrCycle is returned and
// the running program is left alone.
func (m *Matrix) Sync() error {
	m.mu.Lock()
	err := m.syncLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(func(o Observer) { o.UpdateMatrix() })
	return nil
}

func (m *Matrix) syncLocked() error {
	edges := wire(m.cells, m.w, m.h, m.graph)
	if from, to, found := m.graph.FindCycle(); found {
		m.log.Warn("sync rejected", "reason", "cycle", "from", from.String(), "to", to.String())
		return fmt.Errorf("%w: through %v -> %v", ErrCycle, from, to)
	}
	order, err := m.graph.Order()
	if err != nil {
		return err
	}
	build, err := m.config.BuildProg(order, edges)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := m.config.UploadProg(build, true); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	m.applyMonitor()
	m.config.Update()
	m.gen.Add(1)
	m.log.Debug("sync done", "nodes", len(order), "edges", len(edges), "generation", m.config.Generation())
	return nil
}

// Program returns the ops of the running program, in execution order.
func (m *Matrix) Program() []dsp.NodeOp {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.config.Current()
	if b == nil {
		return nil
	}
	return slices.Clone(b.Prog.Ops())
}

// SetParam changes a parameter. Inputs are smoothed on the audio side.
func (m *Matrix) SetParam(p hexodsp.ParamId, a hexodsp.Atom) error {
	if !p.Valid() {
		return fmt.Errorf("invalid parameter %v", p)
	}
	m.mu.Lock()
	m.config.SetParam(p, a, false)
	m.gen.Add(1)
	m.mu.Unlock()
	m.notify(func(o Observer) { o.UpdateParam(p) })
	return nil
}

// GetParam returns the value of a parameter.
func (m *Matrix) GetParam(p hexodsp.ParamId) (hexodsp.Atom, bool) {
	if !p.Valid() {
		return hexodsp.Atom{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Param(p), true
}

// SetParamModAmt sets the modulation amount of an input, or removes it when
// amt is nil. A modulated input that is wired receives param + amt * signal
// instead of the plain signal. Adding or removing an amount recompiles the
// program.
func (m *Matrix) SetParamModAmt(p hexodsp.ParamId, amt *float32) error {
	if !p.Valid() || p.IsAtom() {
		return fmt.Errorf("%v cannot be modulated", p)
	}
	m.mu.Lock()
	var err error
	if m.config.SetParamModAmt(p, amt) && m.config.Current() != nil {
		err = m.syncLocked()
	}
	m.gen.Add(1)
	m.mu.Unlock()
	m.notify(func(o Observer) { o.UpdateParam(p) })
	return err
}

// GetParamModAmt returns the modulation amount of an input; ok is false if
// it has none.
func (m *Matrix) GetParamModAmt(p hexodsp.ParamId) (float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.ModAmt(p)
}

// MonitorCell starts monitoring the signals of the cell at (x, y). The cell
// is looked up again after every Sync, so editing it keeps the monitor.
func (m *Matrix) MonitorCell(x, y int) {
	m.mu.Lock()
	if !m.inside(x, y) {
		m.mu.Unlock()
		return
	}
	m.monitorX, m.monitorY, m.monitoring = x, y, true
	m.applyMonitor()
	cell := m.cells[y*m.w+x]
	m.mu.Unlock()
	m.notify(func(o Observer) { o.UpdateMonitor(cell) })
}

// StopMonitoring turns the monitor off.
func (m *Matrix) StopMonitoring() {
	m.mu.Lock()
	m.monitoring = false
	m.applyMonitor()
	m.mu.Unlock()
	m.notify(func(o Observer) { o.UpdateMonitor(hexodsp.EmptyCell()) })
}

func (m *Matrix) applyMonitor() {
	if !m.monitoring {
		m.config.SetMonitor(hexodsp.NopNode, [3]int{-1, -1, -1}, [3]int{-1, -1, -1})
		return
	}
	c := m.cells[m.monitorY*m.w+m.monitorX]
	m.config.SetMonitor(c.Node, c.In, c.Out)
}

// MonitoredCell returns the monitored cell.
func (m *Matrix) MonitoredCell() (hexodsp.Cell, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.monitoring {
		return hexodsp.Cell{}, false
	}
	return m.cells[m.monitorY*m.w+m.monitorX], true
}

// Update does the periodic control side work; see engine.Configurator.Update.
// It should be called regularly, e.g. from the UI loop. It returns true if
// new monitor data arrived.
func (m *Matrix) Update() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Update()
}

// MinMaxMonitorSamples returns the min/max history of monitor signal i,
// oldest first: signals 0-2 are the inputs on edges T, TL and BL of the
// monitored cell, 3-5 the outputs on edges TR, BR and B.
func (m *Matrix) MinMaxMonitorSamples(i int) []engine.MinMax {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.monitorSamplesLocked(i)
}

// TryMinMaxMonitorSamples is like MinMaxMonitorSamples, but never waits for
// the lock: if the matrix is busy, the last history returned is returned
// again.
func (m *Matrix) TryMinMaxMonitorSamples(i int) []engine.MinMax {
	if !m.mu.TryLock() {
		if i < 0 || i >= engine.MonitorSignals {
			return nil
		}
		if last := m.lastMonitor[i].Load(); last != nil {
			return *last
		}
		return nil
	}
	defer m.mu.Unlock()
	return m.monitorSamplesLocked(i)
}

func (m *Matrix) monitorSamplesLocked(i int) []engine.MinMax {
	s := m.config.MinMaxMonitorSamples(i)
	if s != nil {
		m.lastMonitor[i].Store(&s)
	}
	return s
}

// Tracker returns the pattern editor of TSeq instance i.
func (m *Matrix) Tracker(i int) (*sequencer.Tracker, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Tracker(i)
}

// PatternData runs f with exclusive access to the pattern of tracker i.
func (m *Matrix) PatternData(i int, f func(p *sequencer.PatternData)) bool {
	tr, ok := m.Tracker(i)
	if !ok {
		return false
	}
	tr.Edit(f)
	m.gen.Add(1)
	return true
}

// CheckPatternData sends the edited columns of tracker i to the audio side.
func (m *Matrix) CheckPatternData(i int) {
	if tr, ok := m.Tracker(i); ok {
		tr.SendUpdates()
	}
}

// SetProp stores an arbitrary named property, e.g. UI state that should be
// kept with the matrix.
func (m *Matrix) SetProp(key string, v any) {
	m.mu.Lock()
	m.props[key] = v
	m.gen.Add(1)
	m.mu.Unlock()
	m.notify(func(o Observer) { o.UpdateProp(key) })
}

func (m *Matrix) Prop(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.props[key]
	return v, ok
}

// InjectMidiEvent forwards a MIDI event to the observer.
func (m *Matrix) InjectMidiEvent(ev hexodsp.MidiEvent) {
	m.notify(func(o Observer) { o.MidiEvent(ev) })
}

// Clear empties the grid and removes every node, parameter and pattern.
func (m *Matrix) Clear() error {
	m.mu.Lock()
	err := m.clearLocked()
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(func(o Observer) { o.UpdateAll() })
	return nil
}

func (m *Matrix) clearLocked() error {
	if err := m.config.Clear(); err != nil {
		return err
	}
	m.resetCells()
	m.graph.Clear()
	m.monitoring = false
	for i := range m.lastMonitor {
		m.lastMonitor[i].Store(nil)
	}
	m.gen.Add(1)
	return nil
}
