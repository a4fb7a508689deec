//go:build !cgo

package cmd

import "github.com/hexosynth/hexodsp/gomidi"

func NewMidiContext(target gomidi.Injector) *gomidi.Context {
	// with no cgo, we cannot use MIDI, so return a context without devices
	return gomidi.NewContext(nil, target)
}
