package hexodsp

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatrixReprVersion is the version written by MatrixRepr.Marshal. Files with a
// larger version are rejected, as they might contain data we would silently
// drop.
const MatrixReprVersion = 2

var (
	ErrUnsupportedVersion = errors.New("unsupported matrix version")
	ErrMalformedRepr      = errors.New("malformed matrix")
)

type (
	// MatrixRepr is the serializable form of a matrix: its cells, parameters
	// and tracker patterns. It is decoupled from the live Matrix so that a
	// file can be fully validated before anything is loaded.
	MatrixRepr struct {
		Version  int           `yaml:"VERSION"`
		Width    int           `yaml:",omitempty"`
		Height   int           `yaml:",omitempty"`
		Cells    []CellRepr    `yaml:",omitempty"`
		Params   []ParamRepr   `yaml:",omitempty"`
		Patterns []PatternRepr `yaml:",omitempty"`
	}

	// CellRepr is one placed cell. In and Out hold the port indices like
	// Cell.In and Cell.Out, -1 meaning an unused edge.
	CellRepr struct {
		Node string
		X, Y int
		In   [3]int `yaml:",flow"`
		Out  [3]int `yaml:",flow"`
	}

	// ParamRepr is one stored parameter value, e.g. Param: "sin(0).freq".
	ParamRepr struct {
		Param  string
		Value  float32
		ModAmt *float32 `yaml:",omitempty"`
	}

	// PatternRepr is the pattern of the tracker of one TSeq instance. Only the
	// non-empty cells are stored.
	PatternRepr struct {
		Tracker int
		Rows    int
		Kinds   []string          `yaml:",flow"`
		Cells   []PatternCellRepr `yaml:",omitempty"`
	}

	PatternCellRepr struct {
		Row, Col int
		Value    int
	}
)

// Marshal encodes the matrix into YAML, stamping the current version.
func (m MatrixRepr) Marshal() ([]byte, error) {
	m.Version = MatrixReprVersion
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("could not encode matrix: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("could not encode matrix: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalMatrixRepr decodes and validates a matrix. The VERSION field is
// checked before anything else; unknown fields are errors.
func UnmarshalMatrixRepr(data []byte) (MatrixRepr, error) {
	var header struct {
		Version *int `yaml:"VERSION"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return MatrixRepr{}, fmt.Errorf("%w: %v", ErrMalformedRepr, err)
	}
	if header.Version == nil {
		return MatrixRepr{}, fmt.Errorf("%w: missing VERSION", ErrMalformedRepr)
	}
	if v := *header.Version; v < 1 || v > MatrixReprVersion {
		return MatrixRepr{}, fmt.Errorf("%w: %d (max supported %d)", ErrUnsupportedVersion, v, MatrixReprVersion)
	}
	var ret MatrixRepr
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&ret); err != nil {
		return MatrixRepr{}, fmt.Errorf("%w: %v", ErrMalformedRepr, err)
	}
	if err := ret.Validate(); err != nil {
		return MatrixRepr{}, err
	}
	return ret, nil
}

// Validate checks that every node id and parameter name resolves and that
// positions and port indices are sane.
func (m *MatrixRepr) Validate() error {
	if m.Width < 0 || m.Height < 0 {
		return fmt.Errorf("%w: negative dimensions %dx%d", ErrMalformedRepr, m.Width, m.Height)
	}
	for i, c := range m.Cells {
		node, err := ParseNodeId(c.Node)
		if err != nil {
			return fmt.Errorf("%w: cell %d: %v", ErrMalformedRepr, i, err)
		}
		if c.X < 0 || c.Y < 0 || (m.Width > 0 && c.X >= m.Width) || (m.Height > 0 && c.Y >= m.Height) {
			return fmt.Errorf("%w: cell %d out of bounds at (%d,%d)", ErrMalformedRepr, i, c.X, c.Y)
		}
		for _, p := range c.In {
			if p < -1 || p >= node.NumInputs() {
				return fmt.Errorf("%w: cell %d: invalid input port %d for %v", ErrMalformedRepr, i, p, node)
			}
		}
		for _, p := range c.Out {
			if p < -1 || p >= node.NumOutputs() {
				return fmt.Errorf("%w: cell %d: invalid output port %d for %v", ErrMalformedRepr, i, p, node)
			}
		}
	}
	for i, p := range m.Params {
		if _, err := ParseParamId(p.Param); err != nil {
			return fmt.Errorf("%w: param %d: %v", ErrMalformedRepr, i, err)
		}
	}
	for i, p := range m.Patterns {
		if p.Tracker < 0 || p.Tracker >= MaxNodeInstances {
			return fmt.Errorf("%w: pattern %d: invalid tracker %d", ErrMalformedRepr, i, p.Tracker)
		}
		for _, c := range p.Cells {
			if c.Row < 0 || c.Row >= p.Rows || c.Col < 0 || c.Col >= len(p.Kinds) {
				return fmt.Errorf("%w: pattern %d: cell (%d,%d) out of range", ErrMalformedRepr, i, c.Row, c.Col)
			}
		}
	}
	return nil
}

// Cell converts the representation into a Cell.
func (c CellRepr) Cell() (Cell, error) {
	node, err := ParseNodeId(c.Node)
	if err != nil {
		return Cell{}, err
	}
	return Cell{Node: node, X: c.X, Y: c.Y, In: c.In, Out: c.Out}, nil
}

// MakeCellRepr converts a Cell into its representation.
func MakeCellRepr(c Cell) CellRepr {
	return CellRepr{Node: c.Node.String(), X: c.X, Y: c.Y, In: c.In, Out: c.Out}
}

// ParseParamId parses the String form of a ParamId, e.g. "amp(0).gain".
func ParseParamId(s string) (ParamId, error) {
	nodeStr, name, ok := strings.Cut(s, ".")
	if !ok {
		return ParamId{}, fmt.Errorf("malformed param id %q", s)
	}
	node, err := ParseNodeId(nodeStr)
	if err != nil {
		return ParamId{}, err
	}
	p, ok := node.Param(name)
	if !ok {
		return ParamId{}, fmt.Errorf("node %v has no parameter %q", node, name)
	}
	return p, nil
}
