package hexodsp

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type (
	// NodeKind is the type tag of a node. The set of kinds is closed: the
	// executor switches over NodeKind when running a compiled program, so
	// adding a kind means adding a case there too.
	NodeKind int

	// NodeId identifies one node instance: the kind of the node plus an
	// instance index, so that several copies of the same kind can coexist in
	// the matrix. The zero value is the Nop node, meaning "no node".
	NodeId struct {
		Kind     NodeKind
		Instance int
	}

	// NodeInfo documents a node kind: its input ports (which double as
	// continuous parameters), its discrete settings (atoms) and its outputs.
	NodeInfo struct {
		Name    string
		Help    string
		Inputs  []InputInfo
		Atoms   []AtomInfo
		Outputs []string
	}

	// InputInfo documents one input port. When nothing is connected to the
	// port, the node reads the stored parameter value instead.
	InputInfo struct {
		Name     string
		Default  float32
		Min, Max float32
	}

	// AtomInfo documents one discrete setting of a node. Names lists the
	// human readable names of the setting values 0..len(Names)-1.
	AtomInfo struct {
		Name    string
		Default int64
		Names   []string
	}
)

const (
	Nop NodeKind = iota
	Amp
	Sin
	Noise
	Out
	TSeq
	NumNodeKinds
)

// MaxNodeInstances is the maximum number of instances of one node kind.
const MaxNodeInstances = 64

// NopNode is the NodeId that denotes an empty cell.
var NopNode = NodeId{}

// NodeInfos documents all the available node kinds, indexed by NodeKind.
var NodeInfos = [NumNodeKinds]NodeInfo{
	Nop: {Name: "nop", Help: "Does nothing. Marks an empty cell."},
	Amp: {
		Name: "amp",
		Help: "Multiplies the input signal by gain and attenuation.",
		Inputs: []InputInfo{
			{Name: "inp", Default: 0, Min: -1, Max: 1},
			{Name: "gain", Default: 1, Min: 0, Max: 16},
			{Name: "att", Default: 1, Min: 0, Max: 1},
		},
		Atoms:   []AtomInfo{{Name: "neg_att", Default: 1, Names: []string{"Allow", "Clip"}}},
		Outputs: []string{"sig"},
	},
	Sin: {
		Name: "sin",
		Help: "Sine oscillator with detune and phase modulation.",
		Inputs: []InputInfo{
			{Name: "freq", Default: 440, Min: 1, Max: 20000},
			{Name: "det", Default: 0, Min: -24, Max: 24},
			{Name: "pm", Default: 0, Min: -1, Max: 1},
		},
		Outputs: []string{"sig"},
	},
	Noise: {
		Name: "noise",
		Help: "White noise read from the shared noise table.",
		Inputs: []InputInfo{
			{Name: "atv", Default: 0.5, Min: -1, Max: 1},
			{Name: "offs", Default: 0, Min: -1, Max: 1},
		},
		Atoms:   []AtomInfo{{Name: "mode", Default: 0, Names: []string{"Bipolar", "Unipolar"}}},
		Outputs: []string{"sig"},
	},
	Out: {
		Name: "out",
		Help: "Writes its inputs to the two audio output channels.",
		Inputs: []InputInfo{
			{Name: "ch1", Default: 0, Min: -1, Max: 1},
			{Name: "ch2", Default: 0, Min: -1, Max: 1},
			{Name: "vol", Default: 1, Min: 0, Max: 2},
		},
		Atoms: []AtomInfo{{Name: "mono", Default: 0, Names: []string{"Stereo", "Mono"}}},
	},
	TSeq: {
		Name: "tseq",
		Help: "Tracker sequencer: plays the pattern of its tracker in sync with the clock.",
		Inputs: []InputInfo{
			{Name: "clock", Default: 0, Min: 0, Max: 1},
			{Name: "trig", Default: 0, Min: 0, Max: 1},
		},
		Atoms:   []AtomInfo{{Name: "cmode", Default: 0, Names: []string{"RowT", "PatT"}}},
		Outputs: []string{"trk1", "trk2", "trk3", "trk4", "trk5", "trk6"},
	},
}

var labelCaser = cases.Title(language.English)

func (k NodeKind) Info() *NodeInfo {
	if k < 0 || k >= NumNodeKinds {
		return &NodeInfos[Nop]
	}
	return &NodeInfos[k]
}

func (k NodeKind) String() string { return k.Info().Name }

// ParseNodeKind returns the kind with the given name, as returned by
// NodeKind.String.
func ParseNodeKind(name string) (NodeKind, bool) {
	for i := range NodeInfos {
		if NodeInfos[i].Name == name {
			return NodeKind(i), true
		}
	}
	return Nop, false
}

func (n NodeId) IsNop() bool { return n.Kind == Nop }

func (n NodeId) Info() *NodeInfo { return n.Kind.Info() }

// Less orders NodeIds first by kind, then by instance.
func (n NodeId) Less(o NodeId) bool {
	if n.Kind != o.Kind {
		return n.Kind < o.Kind
	}
	return n.Instance < o.Instance
}

// Compare returns -1, 0 or 1, for use with slices.SortFunc.
func (n NodeId) Compare(o NodeId) int {
	switch {
	case n.Less(o):
		return -1
	case o.Less(n):
		return 1
	}
	return 0
}

func (n NodeId) String() string {
	return n.Kind.String() + "(" + strconv.Itoa(n.Instance) + ")"
}

// Label is the human readable name of the node, e.g. "Sin 2" for the third sine
// oscillator.
func (n NodeId) Label() string {
	return labelCaser.String(n.Kind.String()) + " " + strconv.Itoa(n.Instance)
}

// ParseNodeId parses the String form of a NodeId, e.g. "sin(1)".
func ParseNodeId(s string) (NodeId, error) {
	name, rest, ok := strings.Cut(s, "(")
	if !ok || !strings.HasSuffix(rest, ")") {
		return NopNode, fmt.Errorf("malformed node id %q", s)
	}
	kind, ok := ParseNodeKind(name)
	if !ok {
		return NopNode, fmt.Errorf("unknown node kind %q", name)
	}
	inst, err := strconv.Atoi(strings.TrimSuffix(rest, ")"))
	if err != nil || inst < 0 || inst >= MaxNodeInstances {
		return NopNode, fmt.Errorf("invalid instance in node id %q", s)
	}
	return NodeId{Kind: kind, Instance: inst}, nil
}

// NumInputs returns the number of input ports of the node.
func (n NodeId) NumInputs() int { return len(n.Info().Inputs) }

// NumOutputs returns the number of output ports of the node.
func (n NodeId) NumOutputs() int { return len(n.Info().Outputs) }

// NumAtoms returns the number of discrete settings of the node.
func (n NodeId) NumAtoms() int { return len(n.Info().Atoms) }

// InputName returns the name of input port i, or "" if out of range.
func (n NodeId) InputName(i int) string {
	if in := n.Info().Inputs; i >= 0 && i < len(in) {
		return in[i].Name
	}
	return ""
}

// OutputName returns the name of output port i, or "" if out of range.
func (n NodeId) OutputName(i int) string {
	if out := n.Info().Outputs; i >= 0 && i < len(out) {
		return out[i]
	}
	return ""
}

// InputIndex returns the port index of the named input, or -1.
func (n NodeId) InputIndex(name string) int {
	for i, in := range n.Info().Inputs {
		if in.Name == name {
			return i
		}
	}
	return -1
}

// OutputIndex returns the port index of the named output, or -1.
func (n NodeId) OutputIndex(name string) int {
	for i, out := range n.Info().Outputs {
		if out == name {
			return i
		}
	}
	return -1
}

// Param returns the ParamId of the named input or atom. ok is false if the node
// has no such parameter.
func (n NodeId) Param(name string) (p ParamId, ok bool) {
	if i := n.InputIndex(name); i >= 0 {
		return ParamId{Node: n, Idx: i}, true
	}
	for i, a := range n.Info().Atoms {
		if a.Name == name {
			return ParamId{Node: n, Idx: n.NumInputs() + i}, true
		}
	}
	return ParamId{}, false
}

// Params returns all parameters of the node: inputs first, then atoms.
func (n NodeId) Params() []ParamId {
	cnt := n.NumInputs() + n.NumAtoms()
	ret := make([]ParamId, cnt)
	for i := range ret {
		ret[i] = ParamId{Node: n, Idx: i}
	}
	return ret
}
