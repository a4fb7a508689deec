package hexodsp

import (
	"fmt"
	"math"
	"strconv"
)

type (
	// ParamId identifies one parameter of a node. Idx counts the inputs of the
	// node first, then its atoms, so ParamId{Node, 0} is always the first
	// input.
	ParamId struct {
		Node NodeId
		Idx  int
	}

	// Atom is the value of a parameter: either a continuous value for an
	// input or a discrete setting.
	Atom struct {
		Kind AtomKind
		I    int64
		F    float32
	}

	AtomKind int
)

const (
	AtomParam AtomKind = iota
	AtomSetting
)

func ParamAtom(v float32) Atom { return Atom{Kind: AtomParam, F: v} }
func SettingAtom(v int64) Atom { return Atom{Kind: AtomSetting, I: v} }
func (a Atom) IsSetting() bool { return a.Kind == AtomSetting }

// Float returns the atom as a float, converting settings.
func (a Atom) Float() float32 {
	if a.Kind == AtomSetting {
		return float32(a.I)
	}
	return a.F
}

// Int returns the atom as an integer, rounding continuous values.
func (a Atom) Int() int64 {
	if a.Kind == AtomSetting {
		return a.I
	}
	return int64(math.Round(float64(a.F)))
}

func (a Atom) String() string {
	if a.Kind == AtomSetting {
		return strconv.FormatInt(a.I, 10)
	}
	return strconv.FormatFloat(float64(a.F), 'g', -1, 32)
}

// IsAtom is true if the parameter is a discrete setting rather than an input.
func (p ParamId) IsAtom() bool { return p.Idx >= p.Node.NumInputs() }

// Valid reports whether Idx is in range for the node.
func (p ParamId) Valid() bool {
	return !p.Node.IsNop() && p.Idx >= 0 && p.Idx < p.Node.NumInputs()+p.Node.NumAtoms()
}

// InputIndex is the port index of the parameter, or -1 for atoms.
func (p ParamId) InputIndex() int {
	if p.IsAtom() {
		return -1
	}
	return p.Idx
}

// AtomIndex is the index of the parameter among the atoms, or -1 for inputs.
func (p ParamId) AtomIndex() int {
	if !p.IsAtom() {
		return -1
	}
	return p.Idx - p.Node.NumInputs()
}

func (p ParamId) Name() string {
	if p.IsAtom() {
		if i := p.AtomIndex(); i < p.Node.NumAtoms() {
			return p.Node.Info().Atoms[i].Name
		}
		return ""
	}
	return p.Node.InputName(p.Idx)
}

func (p ParamId) String() string { return p.Node.String() + "." + p.Name() }

// Default returns the default value of the parameter.
func (p ParamId) Default() Atom {
	if p.IsAtom() {
		if i := p.AtomIndex(); i < p.Node.NumAtoms() {
			return SettingAtom(p.Node.Info().Atoms[i].Default)
		}
		return SettingAtom(0)
	}
	if p.Idx < 0 || p.Idx >= p.Node.NumInputs() {
		return ParamAtom(0)
	}
	return ParamAtom(p.Node.Info().Inputs[p.Idx].Default)
}

// Clamp limits the value into the valid range of the parameter and converts it
// to the right kind of atom.
func (p ParamId) Clamp(a Atom) Atom {
	if p.IsAtom() {
		v := a.Int()
		i := p.AtomIndex()
		if i >= p.Node.NumAtoms() {
			return SettingAtom(0)
		}
		names := p.Node.Info().Atoms[i].Names
		if v < 0 {
			v = 0
		}
		if n := int64(len(names)); n > 0 && v >= n {
			v = n - 1
		}
		return SettingAtom(v)
	}
	if p.Idx < 0 || p.Idx >= p.Node.NumInputs() {
		return ParamAtom(0)
	}
	in := p.Node.Info().Inputs[p.Idx]
	v := a.Float()
	if v < in.Min {
		v = in.Min
	}
	if v > in.Max {
		v = in.Max
	}
	return ParamAtom(v)
}

// FormatValue returns the human readable value of the parameter, using the
// setting names for atoms.
func (p ParamId) FormatValue(a Atom) string {
	if p.IsAtom() {
		if i := p.AtomIndex(); i < p.Node.NumAtoms() {
			names := p.Node.Info().Atoms[i].Names
			if v := a.Int(); v >= 0 && v < int64(len(names)) {
				return names[v]
			}
		}
		return a.String()
	}
	return fmt.Sprintf("%.3f", a.Float())
}
