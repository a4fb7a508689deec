package hexodsp

// MaxBlockSize is the maximum number of frames processed in one block. Every
// ProcBuf is exactly this long, so longer host buffers must be split.
const MaxBlockSize = 128

// NumOutputChannels is the number of audio output channels of the engine.
const NumOutputChannels = 2

type (
	// ProcessContext is handed to the executor once per block. All slices
	// returned by it are at least Frames() long and Frames() never exceeds
	// MaxBlockSize.
	ProcessContext interface {
		Frames() int
		Output(ch int) []float32
		Input(ch int) []float32
	}

	// Block is the plain ProcessContext used by the audio backends and tests.
	Block struct {
		NFrames int
		Outputs [NumOutputChannels][]float32
		Inputs  [NumOutputChannels][]float32
	}

	// MidiEvent is a MIDI note event forwarded to the observer.
	MidiEvent struct {
		Channel  uint8
		Note     uint8
		Velocity uint8
		On       bool
	}
)

// NewBlock allocates a block with MaxBlockSize long channel slices.
func NewBlock() *Block {
	b := &Block{NFrames: MaxBlockSize}
	for i := range b.Outputs {
		b.Outputs[i] = make([]float32, MaxBlockSize)
		b.Inputs[i] = make([]float32, MaxBlockSize)
	}
	return b
}

func (b *Block) Frames() int { return b.NFrames }

func (b *Block) Output(ch int) []float32 {
	if ch < 0 || ch >= len(b.Outputs) {
		return nil
	}
	return b.Outputs[ch]
}

func (b *Block) Input(ch int) []float32 {
	if ch < 0 || ch >= len(b.Inputs) {
		return nil
	}
	return b.Inputs[ch]
}

// Interleave appends the first Frames() samples of both output channels to
// dst as interleaved stereo, and returns the extended slice.
func (b *Block) Interleave(dst []float32) []float32 {
	l, r := b.Outputs[0], b.Outputs[1]
	for i := 0; i < b.NFrames; i++ {
		dst = append(dst, l[i], r[i])
	}
	return dst
}
