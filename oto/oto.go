package oto

import (
	"fmt"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/hexosynth/hexodsp"
	"github.com/hexosynth/hexodsp/engine"
)

type (
	// Context is the audio output device.
	Context struct {
		ctx        *oto.Context
		sampleRate int
	}

	// Output plays whatever an executor produces until closed.
	Output struct {
		player *oto.Player
		stream *Stream
	}

	// Stream is an io.Reader rendering an executor block by block into
	// interleaved little-endian float32 stereo. Read runs on the audio
	// goroutine of the device and is the only caller of the executor.
	Stream struct {
		exec  *engine.Executor
		block *hexodsp.Block
		buf   []byte
		pos   int
	}
)

const bytesPerFrame = 2 * 4

// otoBufferFrames sets the device latency; around 23 ms at 44.1 kHz.
const otoBufferFrames = 1024

// NewContext opens the audio device and waits until it is ready.
func NewContext(sampleRate int) (*Context, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: hexodsp.NumOutputChannels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   otoBufferFrames * time.Second / time.Duration(sampleRate),
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("cannot create oto context: %w", err)
	}
	<-ready
	return &Context{ctx: ctx, sampleRate: sampleRate}, nil
}

func (c *Context) SampleRate() int { return c.sampleRate }

// Play starts pulling audio from exec. From now on, exec must not be used by
// any other goroutine.
func (c *Context) Play(exec *engine.Executor) *Output {
	s := NewStream(exec)
	p := c.ctx.NewPlayer(s)
	p.Play()
	return &Output{player: p, stream: s}
}

// Suspend pauses the device; Resume continues.
func (c *Context) Suspend() error {
	if err := c.ctx.Suspend(); err != nil {
		return fmt.Errorf("cannot suspend oto context: %w", err)
	}
	return nil
}

func (c *Context) Resume() error {
	if err := c.ctx.Resume(); err != nil {
		return fmt.Errorf("cannot resume oto context: %w", err)
	}
	return nil
}

func (o *Output) IsPlaying() bool { return o.player.IsPlaying() }

// Close stops the playback.
func (o *Output) Close() error {
	if err := o.player.Close(); err != nil {
		return fmt.Errorf("cannot close oto player: %w", err)
	}
	return nil
}

func NewStream(exec *engine.Executor) *Stream {
	return &Stream{
		exec:  exec,
		block: hexodsp.NewBlock(),
		buf:   make([]byte, 0, hexodsp.MaxBlockSize*bytesPerFrame),
	}
}

// Read fills p with whole frames. It never fails and never blocks.
func (s *Stream) Read(p []byte) (int, error) {
	n := 0
	for len(p)-n >= bytesPerFrame {
		if s.pos >= len(s.buf) {
			s.render()
		}
		c := copy(p[n:], s.buf[s.pos:])
		c -= c % bytesPerFrame
		s.pos += c
		n += c
	}
	return n, nil
}

func (s *Stream) render() {
	s.exec.ProcessGraphUpdates()
	s.exec.Process(s.block)
	s.buf = AppendFloat32LE(s.buf[:0], s.block.Outputs[0], s.block.Outputs[1], s.block.NFrames)
	s.pos = 0
}
