// Package audio provides PCM framing and conversion utilities for the
// wake-word pipeline.
//
// The pipeline consumes raw PCM audio: signed 16-bit little-endian
// samples, mono, 16kHz. Scoring operates on fixed 80ms frames of
// exactly 1280 samples (2560 bytes).
package audio

import (
	"io"
)

// Audio format constants for the wake-word pipeline.
const (
	// SampleRate is the required input sample rate in Hz.
	SampleRate = 16000

	// FrameSamples is the number of samples per scoring frame (80ms at 16kHz).
	FrameSamples = 1280

	// FrameBytes is the size of one frame in bytes (16-bit samples).
	FrameBytes = FrameSamples * 2
)

// FrameReader reads fixed-size PCM frames from a byte stream.
//
// Each call to ReadFrame requests exactly FrameBytes from the underlying
// reader. A short or empty read means the stream has ended: the producer
// is assumed to write whole frames atomically, so a trailing partial
// block is discarded rather than buffered.
type FrameReader struct {
	r   io.Reader
	buf [FrameBytes]byte
}

// NewFrameReader creates a FrameReader over r.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r}
}

// ReadFrame returns the next full frame, or io.EOF when the stream is
// exhausted (including a short final read, which is never scored).
//
// The returned slice aliases an internal buffer and is only valid until
// the next call to ReadFrame.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	n, err := io.ReadFull(fr.r, fr.buf[:])
	if err != nil {
		// ErrUnexpectedEOF means a partial trailing block; treat it the
		// same as a clean end of stream.
		if err == io.ErrUnexpectedEOF {
			return nil, io.EOF
		}
		return nil, err
	}
	if n != FrameBytes {
		return nil, io.EOF
	}
	return fr.buf[:], nil
}
