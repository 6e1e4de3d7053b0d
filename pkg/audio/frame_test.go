package audio

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameReaderExactFrames(t *testing.T) {
	// Two full frames back to back.
	data := make([]byte, FrameBytes*2)
	for i := range data {
		data[i] = byte(i % 256)
	}

	fr := NewFrameReader(bytes.NewReader(data))

	frame, err := fr.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, FrameBytes, len(frame))
	assert.Equal(t, data[:FrameBytes], frame)

	frame, err = fr.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, data[FrameBytes:], frame)

	_, err = fr.ReadFrame()
	assert.Equal(t, io.EOF, err)
}

func TestFrameReaderPartialTrailingBlock(t *testing.T) {
	tests := []struct {
		name  string
		extra int
	}{
		{"one byte short of a frame", FrameBytes - 1},
		{"single trailing byte", 1},
		{"half frame", FrameBytes / 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := make([]byte, FrameBytes+tt.extra)
			fr := NewFrameReader(bytes.NewReader(data))

			frame, err := fr.ReadFrame()
			require.NoError(t, err)
			assert.Equal(t, FrameBytes, len(frame))

			// The partial trailing block terminates the stream.
			_, err = fr.ReadFrame()
			assert.Equal(t, io.EOF, err)
		})
	}
}

func TestFrameReaderEmptyStream(t *testing.T) {
	fr := NewFrameReader(bytes.NewReader(nil))
	_, err := fr.ReadFrame()
	assert.Equal(t, io.EOF, err)
}

func TestFrameReaderFragmentedSource(t *testing.T) {
	// io.ReadFull must assemble a frame even when the underlying reader
	// returns short reads, as a pipe does.
	data := make([]byte, FrameBytes)
	for i := range data {
		data[i] = byte(i % 251)
	}

	fr := NewFrameReader(&shortReader{data: data, chunk: 100})
	frame, err := fr.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, data, frame)
}

// shortReader returns at most chunk bytes per Read call.
type shortReader struct {
	data  []byte
	chunk int
}

func (r *shortReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	n := r.chunk
	if n > len(r.data) {
		n = len(r.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, r.data[:n])
	r.data = r.data[n:]
	return n, nil
}
