//go:build cgo

package cmd

import "github.com/hexosynth/hexodsp/gomidi"

func NewMidiContext(target gomidi.Injector) *gomidi.Context {
	return gomidi.NewRTMIDIContext(target)
}
