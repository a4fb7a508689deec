package sequencer

import (
	"fmt"

	"github.com/hexosynth/hexodsp"
)

const (
	MaxCols     = 6
	MaxRows     = 256
	DefaultRows = 16

	// MaxCellValue is the largest raw value of a pattern cell: three hex
	// digits.
	MaxCellValue = 0xFFF
)

type (
	// ColKind determines how the values of a column are sampled by the
	// sequencer.
	ColKind int

	// PatternData is the editable pattern of one tracker, living on the
	// control side. It is not safe for concurrent use; Tracker guards it.
	// Every edit marks its column modified, and modified columns are shipped
	// to the audio side one whole column at a time by SendOneUpdate.
	PatternData struct {
		rows     int
		kinds    [MaxCols]ColKind
		cells    [MaxCols][MaxRows]int32
		modified [MaxCols]bool
	}

	// Update replaces one column of a PatternSequencer. It is a plain value
	// so that receiving it on the audio side does not allocate.
	Update struct {
		Col  int
		Kind ColKind
		Rows int
		Data [MaxRows]float32
	}
)

const (
	Note ColKind = iota
	Step
	Value
	Gate
	NumColKinds
)

const emptyCell = -1

var colKindNames = [NumColKinds]string{"note", "step", "value", "gate"}

func (k ColKind) String() string {
	if k < 0 || k >= NumColKinds {
		return "?"
	}
	return colKindNames[k]
}

func ParseColKind(s string) (ColKind, error) {
	for i, n := range colKindNames {
		if n == s {
			return ColKind(i), nil
		}
	}
	return Note, fmt.Errorf("unknown column kind %q", s)
}

// NewPatternData returns an empty pattern with the given number of rows. The
// columns default to Value, except the last one which is a Gate column.
func NewPatternData(rows int) *PatternData {
	p := &PatternData{}
	p.SetRows(rows)
	for i := range p.cells {
		for j := range p.cells[i] {
			p.cells[i][j] = emptyCell
		}
		p.kinds[i] = Value
		p.modified[i] = true
	}
	p.kinds[MaxCols-1] = Gate
	return p
}

func (p *PatternData) Rows() int { return p.rows }

// SetRows changes the pattern length, clamped to 1..MaxRows. Cells beyond the
// new length are kept, so growing the pattern again restores them.
func (p *PatternData) SetRows(rows int) {
	rows = max(1, min(rows, MaxRows))
	if rows == p.rows {
		return
	}
	p.rows = rows
	p.markAll()
}

func (p *PatternData) Kind(col int) ColKind {
	if col < 0 || col >= MaxCols {
		return Value
	}
	return p.kinds[col]
}

func (p *PatternData) SetKind(col int, kind ColKind) {
	if col < 0 || col >= MaxCols || kind < 0 || kind >= NumColKinds || p.kinds[col] == kind {
		return
	}
	p.kinds[col] = kind
	p.modified[col] = true
}

// Cell returns the raw value at (row, col); ok is false for empty cells.
func (p *PatternData) Cell(row, col int) (value int, ok bool) {
	if row < 0 || row >= MaxRows || col < 0 || col >= MaxCols {
		return 0, false
	}
	v := p.cells[col][row]
	return int(v), v != emptyCell
}

// SetCell stores a raw value, clamped to 0..MaxCellValue.
func (p *PatternData) SetCell(row, col, value int) {
	if row < 0 || row >= MaxRows || col < 0 || col >= MaxCols {
		return
	}
	v := int32(max(0, min(value, MaxCellValue)))
	if p.cells[col][row] == v {
		return
	}
	p.cells[col][row] = v
	p.modified[col] = true
}

func (p *PatternData) ClearCell(row, col int) {
	if row < 0 || row >= MaxRows || col < 0 || col >= MaxCols || p.cells[col][row] == emptyCell {
		return
	}
	p.cells[col][row] = emptyCell
	p.modified[col] = true
}

func (p *PatternData) IsModified(col int) bool {
	return col >= 0 && col < MaxCols && p.modified[col]
}

func (p *PatternData) markAll() {
	for i := range p.modified {
		p.modified[i] = true
	}
}

// SendOneUpdate sends the first modified column to ch. It never blocks: if
// the channel is full the column stays modified and false is returned. It
// also returns false if nothing was modified.
func (p *PatternData) SendOneUpdate(ch chan<- Update) bool {
	for col, mod := range p.modified {
		if !mod {
			continue
		}
		var u Update
		p.compileCol(col, &u)
		select {
		case ch <- u:
			p.modified[col] = false
			return true
		default:
			return false
		}
	}
	return false
}

// compileCol converts the raw cells of a column into the values the audio
// side reads. Empty Note, Step and Value cells hold the previous value,
// wrapping around the pattern; empty Gate cells are off.
func (p *PatternData) compileCol(col int, u *Update) {
	u.Col, u.Kind, u.Rows = col, p.kinds[col], p.rows
	cells := p.cells[col][:p.rows]
	if u.Kind == Gate {
		for i, c := range cells {
			u.Data[i] = float32(c) // emptyCell stays -1
		}
		return
	}
	last := int32(emptyCell)
	for _, c := range cells {
		if c != emptyCell {
			last = c
		}
	}
	for i, c := range cells {
		if c != emptyCell {
			last = c
		}
		if last == emptyCell {
			u.Data[i] = 0
			continue
		}
		if u.Kind == Note {
			u.Data[i] = (float32(last) - 69) / 120
		} else {
			u.Data[i] = float32(last) / MaxCellValue
		}
	}
}

// Repr returns the serializable form of the pattern.
func (p *PatternData) Repr(tracker int) hexodsp.PatternRepr {
	r := hexodsp.PatternRepr{Tracker: tracker, Rows: p.rows, Kinds: make([]string, MaxCols)}
	for col := range p.cells {
		r.Kinds[col] = p.kinds[col].String()
		for row, v := range p.cells[col] {
			if v != emptyCell {
				r.Cells = append(r.Cells, hexodsp.PatternCellRepr{Row: row, Col: col, Value: int(v)})
			}
		}
	}
	return r
}

// PatternDataFromRepr builds a pattern from its serializable form.
func PatternDataFromRepr(r hexodsp.PatternRepr) (*PatternData, error) {
	if r.Rows < 1 || r.Rows > MaxRows {
		return nil, fmt.Errorf("invalid pattern length %d", r.Rows)
	}
	if len(r.Kinds) > MaxCols {
		return nil, fmt.Errorf("too many pattern columns: %d", len(r.Kinds))
	}
	p := NewPatternData(r.Rows)
	for i, k := range r.Kinds {
		kind, err := ParseColKind(k)
		if err != nil {
			return nil, err
		}
		p.kinds[i] = kind
	}
	for _, c := range r.Cells {
		if c.Row < 0 || c.Row >= MaxRows || c.Col < 0 || c.Col >= MaxCols {
			return nil, fmt.Errorf("pattern cell (%d,%d) out of range", c.Row, c.Col)
		}
		p.SetCell(c.Row, c.Col, c.Value)
	}
	p.markAll()
	return p, nil
}
