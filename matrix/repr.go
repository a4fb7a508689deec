package matrix

import (
	"fmt"
	"slices"

	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/engine"
	"github.com/hexosynth/hexodsp/sequencer"
)

// ToRepr returns the serializable state of the matrix: the placed cells, the
// parameters of every placed node and the non-empty tracker patterns.
func (m *Matrix) ToRepr() hexodsp.MatrixRepr {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := hexodsp.MatrixRepr{Version: hexodsp.MatrixReprVersion, Width: m.w, Height: m.h}
	var nodes []hexodsp.NodeId
	for _, c := range m.cells {
		if c.IsEmpty() {
			continue
		}
		r.Cells = append(r.Cells, hexodsp.MakeCellRepr(c))
		if !slices.Contains(nodes, c.Node) {
			nodes = append(nodes, c.Node)
		}
	}
	slices.SortFunc(nodes, hexodsp.NodeId.Compare)
	for _, n := range nodes {
		for _, p := range n.Params() {
			pr := hexodsp.ParamRepr{Param: p.String(), Value: m.config.Param(p).Float()}
			if amt, ok := m.config.ModAmt(p); ok {
				pr.ModAmt = &amt
			}
			r.Params = append(r.Params, pr)
		}
		if n.Kind != hexodsp.TSeq {
			continue
		}
		if tr, ok := m.config.Tracker(n.Instance); ok {
			if pr, empty := tr.Repr(n.Instance); !empty {
				r.Patterns = append(r.Patterns, pr)
			}
		}
	}
	return r
}

// FromRepr replaces the whole matrix with r and syncs it. r is fully checked
// before anything is changed: if it has an unsupported version, does not fit
// the grid, is wired into a cycle or does not compile, an error is returned
// and the matrix is left as it was.
func (m *Matrix) FromRepr(r hexodsp.MatrixRepr) error {
	if r.Version < 1 || r.Version > hexodsp.MatrixReprVersion {
		return fmt.Errorf("%w: %d", hexodsp.ErrUnsupportedVersion, r.Version)
	}
	if err := r.Validate(); err != nil {
		return err
	}
	cells := make([]hexodsp.Cell, m.w*m.h)
	for i := range cells {
		cells[i] = hexodsp.EmptyCell()
		cells[i].X, cells[i].Y = i%m.w, i/m.w
	}
	for _, cr := range r.Cells {
		c, err := cr.Cell()
		if err != nil {
			return fmt.Errorf("%w: %v", hexodsp.ErrMalformedRepr, err)
		}
		if !m.inside(c.X, c.Y) {
			return fmt.Errorf("%w: cell at (%d,%d) does not fit a %dx%d matrix", hexodsp.ErrMalformedRepr, c.X, c.Y, m.w, m.h)
		}
		if !cells[c.Y*m.w+c.X].IsEmpty() {
			return fmt.Errorf("%w: two cells at (%d,%d)", hexodsp.ErrMalformedRepr, c.X, c.Y)
		}
		cells[c.Y*m.w+c.X] = c.Normalize()
	}
	type paramValue struct {
		p      hexodsp.ParamId
		v      float32
		modAmt *float32
	}
	params := make([]paramValue, 0, len(r.Params))
	for _, pr := range r.Params {
		p, err := hexodsp.ParseParamId(pr.Param)
		if err != nil {
			return fmt.Errorf("%w: %v", hexodsp.ErrMalformedRepr, err)
		}
		if pr.ModAmt != nil && p.IsAtom() {
			return fmt.Errorf("%w: %v cannot be modulated", hexodsp.ErrMalformedRepr, p)
		}
		params = append(params, paramValue{p, pr.Value, pr.ModAmt})
	}
	patterns := map[int]*sequencer.PatternData{}
	for _, pr := range r.Patterns {
		if pr.Tracker >= engine.MaxTrackers {
			return fmt.Errorf("%w: tracker %d, at most %d are supported", hexodsp.ErrMalformedRepr, pr.Tracker, engine.MaxTrackers)
		}
		p, err := sequencer.PatternDataFromRepr(pr)
		if err != nil {
			return fmt.Errorf("%w: %v", hexodsp.ErrMalformedRepr, err)
		}
		patterns[pr.Tracker] = p
	}
	g := NewNodeGraph()
	edges := wire(cells, m.w, m.h, g)
	if from, to, found := g.FindCycle(); found {
		return fmt.Errorf("%w: through %v -> %v", ErrCycle, from, to)
	}
	order, err := g.Order()
	if err != nil {
		return err
	}

	m.mu.Lock()
	if err := m.config.CheckProg(order, edges); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("%w: %v", hexodsp.ErrMalformedRepr, err)
	}
	err = m.loadLocked(cells, func() {
		for _, pv := range params {
			if pv.p.IsAtom() {
				m.config.SetParam(pv.p, hexodsp.SettingAtom(int64(pv.v)), true)
			} else {
				m.config.SetParam(pv.p, hexodsp.ParamAtom(pv.v), true)
			}
			if pv.modAmt != nil {
				m.config.SetParamModAmt(pv.p, pv.modAmt)
			}
		}
		for i, p := range patterns {
			if tr, ok := m.config.Tracker(i); ok {
				tr.Replace(p)
			}
		}
	})
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.notify(func(o Observer) { o.UpdateAll() })
	return nil
}

func (m *Matrix) loadLocked(cells []hexodsp.Cell, setValues func()) error {
	if err := m.clearLocked(); err != nil {
		return err
	}
	copy(m.cells, cells)
	setValues()
	return m.syncLocked()
}
