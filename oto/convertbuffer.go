package oto

import (
	"encoding/binary"
	"math"
)

// AppendFloat32LE interleaves the first n samples of l and r as little-endian
// 32-bit floats and appends them to dst.
func AppendFloat32LE(dst []byte, l, r []float32, n int) []byte {
	for i := 0; i < n; i++ {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(clamp(l[i])))
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(clamp(r[i])))
	}
	return dst
}

// clamp keeps runaway patches from blowing up the speakers. NaNs become
// silence.
func clamp(v float32) float32 {
	switch {
	case v != v:
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
