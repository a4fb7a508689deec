package hexodsp

import "slices"

type (
	// CellDir is one of the six edges of a hex cell, or its center. The grid
	// uses flat-topped hexagons in columns, odd columns shifted half a cell
	// down.
	CellDir int

	// Cell is the content of one hex grid position: the node placed there and
	// which of the node's ports are exposed on which edge. In[i] is the input
	// port index shown on edge InputDirs[i] and Out[i] is the output port
	// index on edge OutputDirs[i]; -1 means nothing is exposed on that edge.
	//
	// Cell is a value type; the Matrix owns the authoritative grid.
	Cell struct {
		Node NodeId
		X, Y int
		In   [3]int
		Out  [3]int
	}
)

const (
	TR CellDir = iota
	BR
	B
	BL
	TL
	T
	C
)

// InputDirs lists the edges that carry inputs, in the order of Cell.In.
var InputDirs = [3]CellDir{T, TL, BL}

// OutputDirs lists the edges that carry outputs, in the order of Cell.Out.
var OutputDirs = [3]CellDir{TR, BR, B}

var cellDirNames = [...]string{"TR", "BR", "B", "BL", "TL", "T", "C"}

func (d CellDir) String() string {
	if d < 0 || int(d) >= len(cellDirNames) {
		return "?"
	}
	return cellDirNames[d]
}

func (d CellDir) IsOutput() bool { return d >= TR && d <= B }
func (d CellDir) IsInput() bool  { return d >= BL && d <= T }

// Flip returns the edge of the neighbouring cell that touches this edge.
func (d CellDir) Flip() CellDir {
	switch d {
	case TR:
		return BL
	case BR:
		return TL
	case B:
		return T
	case BL:
		return TR
	case TL:
		return BR
	case T:
		return B
	}
	return C
}

// Offset returns the grid offset of the neighbour behind this edge, for a cell
// in column x.
func (d CellDir) Offset(x int) (dx, dy int) {
	even := x%2 == 0
	switch d {
	case TR:
		if even {
			return 1, -1
		}
		return 1, 0
	case BR:
		if even {
			return 1, 0
		}
		return 1, 1
	case B:
		return 0, 1
	case BL:
		if even {
			return -1, 0
		}
		return -1, 1
	case TL:
		if even {
			return -1, -1
		}
		return -1, 0
	case T:
		return 0, -1
	}
	return 0, 0
}

// Neighbour returns the position behind edge d of cell (x, y). The result may
// be outside the grid.
func (d CellDir) Neighbour(x, y int) (int, int) {
	dx, dy := d.Offset(x)
	return x + dx, y + dy
}

// slot returns the index into Cell.In or Cell.Out for the edge.
func (d CellDir) slot() int {
	switch d {
	case T, TR:
		return 0
	case TL, BR:
		return 1
	case BL, B:
		return 2
	}
	return -1
}

// EmptyCell returns a cell with no node and no ports.
func EmptyCell() Cell {
	return Cell{In: [3]int{-1, -1, -1}, Out: [3]int{-1, -1, -1}}
}

// NewCell returns a cell holding node, with no ports exposed yet.
func NewCell(node NodeId) Cell {
	c := EmptyCell()
	c.Node = node
	return c
}

// WithIn returns a copy of the cell with the input ports on edges T, TL and BL
// set. Use -1 to leave an edge empty.
func (c Cell) WithIn(t, tl, bl int) Cell {
	c.In = [3]int{t, tl, bl}
	return c
}

// WithOut returns a copy of the cell with the output ports on edges TR, BR and
// B set. Use -1 to leave an edge empty.
func (c Cell) WithOut(tr, br, b int) Cell {
	c.Out = [3]int{tr, br, b}
	return c
}

func (c Cell) IsEmpty() bool { return c.Node.IsNop() }

// Port returns the port index exposed on edge d, or -1.
func (c Cell) Port(d CellDir) int {
	s := d.slot()
	switch {
	case s < 0:
		return -1
	case d.IsInput():
		return c.In[s]
	default:
		return c.Out[s]
	}
}

// SetPort sets the port index exposed on edge d.
func (c *Cell) SetPort(d CellDir, port int) {
	s := d.slot()
	switch {
	case s < 0:
	case d.IsInput():
		c.In[s] = port
	default:
		c.Out[s] = port
	}
}

// Normalize clears the ports that the node does not have. An input port
// exposed on more than one edge is kept only on the first one.
func (c Cell) Normalize() Cell {
	for i, p := range c.In {
		if p < 0 || p >= c.Node.NumInputs() || slices.Contains(c.In[:i], p) {
			c.In[i] = -1
		}
	}
	for i, p := range c.Out {
		if p < 0 || p >= c.Node.NumOutputs() {
			c.Out[i] = -1
		}
	}
	return c
}

// EdgeLabel returns the name of the port exposed on edge d, or "".
func (c Cell) EdgeLabel(d CellDir) string {
	p := c.Port(d)
	if p < 0 {
		return ""
	}
	if d.IsInput() {
		return c.Node.InputName(p)
	}
	return c.Node.OutputName(p)
}
