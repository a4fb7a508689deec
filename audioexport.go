package hexodsp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// Wav encodes interleaved stereo audio into a .wav file, either as 32-bit
// float or 16-bit PCM.
func Wav(buffer []float32, sampleRate int, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	writeWavHeader(buf, len(buffer), sampleRate, pcm16)
	if err := writeSamples(buf, buffer, pcm16); err != nil {
		return nil, fmt.Errorf("Wav failed: %w", err)
	}
	return buf.Bytes(), nil
}

// Raw encodes interleaved stereo audio as headerless little-endian samples.
func Raw(buffer []float32, pcm16 bool) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := writeSamples(buf, buffer, pcm16); err != nil {
		return nil, fmt.Errorf("Raw failed: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSamples(buf *bytes.Buffer, data []float32, pcm16 bool) error {
	if !pcm16 {
		return binary.Write(buf, binary.LittleEndian, data)
	}
	ints := make([]int16, len(data))
	for i, v := range data {
		ints[i] = int16(max(min(v*math.MaxInt16, math.MaxInt16), -math.MaxInt16))
	}
	return binary.Write(buf, binary.LittleEndian, ints)
}

// writeWavHeader writes the RIFF header for numSamples interleaved stereo
// samples (L + R counted separately).
// Refer to: http://www-mmsp.ece.mcgill.ca/Documents/AudioFormats/WAVE/WAVE.html
func writeWavHeader(buf *bytes.Buffer, numSamples, sampleRate int, pcm16 bool) {
	const numChannels = 2
	bytesPerSample, fmtChunkSize, waveFormat := 4, 18, 3 // IEEE float
	if pcm16 {
		bytesPerSample, fmtChunkSize, waveFormat = 2, 16, 1 // PCM
	}
	dataSize := bytesPerSample * numSamples
	chunkSize := 4 + (8 + fmtChunkSize) + (8 + dataSize)
	if !pcm16 {
		chunkSize += 12 // fact chunk
	}
	w := func(v any) { binary.Write(buf, binary.LittleEndian, v) }
	buf.WriteString("RIFF")
	w(uint32(chunkSize))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	w(uint32(fmtChunkSize))
	w(uint16(waveFormat))
	w(uint16(numChannels))
	w(uint32(sampleRate))
	w(uint32(sampleRate * numChannels * bytesPerSample)) // avgBytesPerSec
	w(uint16(numChannels * bytesPerSample))              // blockAlign
	w(uint16(8 * bytesPerSample))                        // bits per sample
	if fmtChunkSize > 16 {
		w(uint16(0)) // size of extension
	}
	if !pcm16 {
		buf.WriteString("fact")
		w(uint32(4))
		w(uint32(numSamples / numChannels))
	}
	buf.WriteString("data")
	w(uint32(dataSize))
}
