package gomidi

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"

	"github.com/hexosynth/hexodsp"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

type (
	// Injector receives decoded note events. matrix.Matrix implements it.
	Injector interface {
		InjectMidiEvent(ev hexodsp.MidiEvent)
	}

	// Context owns a MIDI driver and at most one open input device. Note
	// events arriving on the open input are forwarded to the Injector.
	Context struct {
		mu        sync.Mutex
		driver    drivers.Driver
		currentIn drivers.In
		stop      func()
		target    Injector
	}

	Device struct {
		context *Context
		in      drivers.In
	}
)

var ErrNoDriver = errors.New("no MIDI driver available")

// NewContext returns a context using driver. A nil driver gives a context
// without any devices.
func NewContext(driver drivers.Driver, target Injector) *Context {
	return &Context{driver: driver, target: target}
}

// InputDevices iterates over the available input devices.
func (c *Context) InputDevices() iter.Seq[Device] {
	return func(yield func(Device) bool) {
		if c.driver == nil {
			return
		}
		ins, err := c.driver.Ins()
		if err != nil {
			return
		}
		for _, in := range ins {
			if !yield(Device{context: c, in: in}) {
				return
			}
		}
	}
}

// Open starts listening to the device, closing the previously open one.
func (d Device) Open() error {
	c := d.context
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentIn == d.in {
		return nil
	}
	if c.driver == nil {
		return ErrNoDriver
	}
	c.closeInput()
	if err := d.in.Open(); err != nil {
		return fmt.Errorf("opening MIDI input failed: %w", err)
	}
	stop, err := midi.ListenTo(d.in, c.HandleMessage)
	if err != nil {
		d.in.Close()
		return fmt.Errorf("listening to MIDI input failed: %w", err)
	}
	c.currentIn, c.stop = d.in, stop
	return nil
}

func (d Device) String() string { return d.in.String() }

// OpenByPrefix opens the first input whose name starts with prefix. An empty
// prefix takes the first device.
func (c *Context) OpenByPrefix(prefix string) error {
	for d := range c.InputDevices() {
		if strings.HasPrefix(d.String(), prefix) {
			return d.Open()
		}
	}
	return fmt.Errorf("no MIDI input found starting with %q", prefix)
}

func (c *Context) HasDeviceOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentIn != nil && c.currentIn.IsOpen()
}

func (c *Context) closeInput() {
	if c.stop != nil {
		c.stop()
		c.stop = nil
	}
	if c.currentIn != nil && c.currentIn.IsOpen() {
		c.currentIn.Close()
	}
	c.currentIn = nil
}

// Close closes the open input and the driver.
func (c *Context) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeInput()
	if c.driver != nil {
		c.driver.Close()
	}
}

// HandleMessage is the listener callback. Messages other than notes are
// ignored.
func (c *Context) HandleMessage(msg midi.Message, timestampms int32) {
	if ev, ok := Decode(msg); ok && c.target != nil {
		c.target.InjectMidiEvent(ev)
	}
}

// Decode converts a note on or note off message. A note on with zero velocity
// is a note off.
func Decode(msg midi.Message) (ev hexodsp.MidiEvent, ok bool) {
	var channel, key, velocity uint8
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		return hexodsp.MidiEvent{Channel: channel, Note: key, Velocity: velocity, On: velocity > 0}, true
	case msg.GetNoteOff(&channel, &key, &velocity):
		return hexodsp.MidiEvent{Channel: channel, Note: key, Velocity: velocity}, true
	}
	return hexodsp.MidiEvent{}, false
}
