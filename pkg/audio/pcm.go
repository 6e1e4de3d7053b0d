package audio

import (
	"encoding/binary"
	"fmt"
)

// BytesToInt16 converts little-endian PCM bytes to int16 samples.
// A trailing odd byte is ignored.
func BytesToInt16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := 0; i < len(samples); i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
	}
	return samples
}

// Int16ToFloat32 normalizes int16 samples to float32 by dividing by
// 32768.0. The result spans [-1.0, 0.99997]; the asymmetry matches the
// signed 16-bit range and is not clipped.
func Int16ToFloat32(samples []int16) []float32 {
	out := make([]float32, len(samples))
	for i, s := range samples {
		out[i] = float32(s) / 32768.0
	}
	return out
}

// BytesToFloat32 converts little-endian 16-bit PCM bytes directly to
// normalized float32 samples.
func BytesToFloat32(data []byte) []float32 {
	n := len(data) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(data[i*2 : i*2+2]))
		samples[i] = float32(v) / 32768.0
	}
	return samples
}

// FrameToFloat32 converts one full frame to normalized samples. It
// rejects any input that is not exactly FrameBytes long so that a
// malformed block is skipped by the caller instead of scored.
func FrameToFloat32(frame []byte) ([]float32, error) {
	if len(frame) != FrameBytes {
		return nil, fmt.Errorf("frame is %d bytes, want %d", len(frame), FrameBytes)
	}
	return BytesToFloat32(frame), nil
}
