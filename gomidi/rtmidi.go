//go:build cgo

package gomidi

import "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

// NewRTMIDIContext opens the RtMidi driver. If that fails, the context has no
// devices.
func NewRTMIDIContext(target Injector) *Context {
	driver, err := rtmididrv.New()
	if err != nil {
		return NewContext(nil, target)
	}
	return NewContext(driver, target)
}
