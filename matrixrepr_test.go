package hexodsp_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/hexosynth/hexodsp"
)

func TestMatrixReprMarshal(t *testing.T) {
	amt := float32(0.25)
	r := hexodsp.MatrixRepr{
		Width:  4,
		Height: 3,
		Cells: []hexodsp.CellRepr{
			{Node: "sin(0)", X: 1, Y: 0, In: [3]int{-1, -1, -1}, Out: [3]int{-1, -1, 0}},
			{Node: "out(0)", X: 1, Y: 1, In: [3]int{0, -1, -1}, Out: [3]int{-1, -1, -1}},
		},
		Params: []hexodsp.ParamRepr{
			{Param: "sin(0).freq", Value: 220},
			{Param: "out(0).ch1", Value: 0, ModAmt: &amt},
		},
		Patterns: []hexodsp.PatternRepr{
			{Tracker: 0, Rows: 4, Kinds: []string{"note", "step"}, Cells: []hexodsp.PatternCellRepr{{Row: 1, Col: 0, Value: 60}}},
		},
	}
	data, err := r.Marshal()
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	got, err := hexodsp.UnmarshalMatrixRepr(data)
	if err != nil {
		t.Fatalf("UnmarshalMatrixRepr failed: %v\n%s", err, data)
	}
	r.Version = hexodsp.MatrixReprVersion
	if !reflect.DeepEqual(got, r) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, r)
	}
}

func TestUnmarshalMatrixReprErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"future version", "VERSION: 3\n", hexodsp.ErrUnsupportedVersion},
		{"zero version", "VERSION: 0\n", hexodsp.ErrUnsupportedVersion},
		{"missing version", "width: 2\n", hexodsp.ErrMalformedRepr},
		{"not yaml", "VERSION: [\n", hexodsp.ErrMalformedRepr},
		{"unknown field", "VERSION: 2\ncolour: red\n", hexodsp.ErrMalformedRepr},
		{"unknown node", "VERSION: 2\ncells:\n  - node: foo(0)\n", hexodsp.ErrMalformedRepr},
		{"bad port", "VERSION: 2\ncells:\n  - node: sin(0)\n    in: [5, -1, -1]\n    out: [-1, -1, -1]\n", hexodsp.ErrMalformedRepr},
		{"outside grid", "VERSION: 2\nwidth: 2\nheight: 2\ncells:\n  - node: sin(0)\n    x: 2\n    in: [-1, -1, -1]\n    out: [-1, -1, -1]\n", hexodsp.ErrMalformedRepr},
		{"bad param", "VERSION: 2\nparams:\n  - param: sin(0).gain\n    value: 1\n", hexodsp.ErrMalformedRepr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := hexodsp.UnmarshalMatrixRepr([]byte(tt.data)); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
