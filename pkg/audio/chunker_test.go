package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameChunkerReframing(t *testing.T) {
	c := NewFrameChunker()

	// Feed one and a half frames in odd-sized writes.
	total := FrameBytes + FrameBytes/2
	data := make([]byte, total)
	for i := range data {
		data[i] = byte(i % 256)
	}
	for i := 0; i < total; i += 300 {
		end := i + 300
		if end > total {
			end = total
		}
		c.Write(data[i:end])
	}

	frame := c.NextFrame()
	require.NotNil(t, frame)
	assert.Equal(t, data[:FrameBytes], frame)

	// Half a frame remains pending, not yet a frame.
	assert.Nil(t, c.NextFrame())
	assert.Equal(t, FrameBytes/2, c.Pending())

	// Completing it releases the second frame.
	c.Write(data[:FrameBytes/2])
	frame = c.NextFrame()
	require.NotNil(t, frame)
	assert.Equal(t, 0, c.Pending())
}

func TestFrameChunkerFrameSurvivesLaterWrites(t *testing.T) {
	c := NewFrameChunker()
	first := make([]byte, FrameBytes)
	for i := range first {
		first[i] = 0xAA
	}
	c.Write(first)

	frame := c.NextFrame()
	require.NotNil(t, frame)

	second := make([]byte, FrameBytes)
	c.Write(second)
	c.NextFrame()

	// The earlier frame must be an independent copy.
	assert.Equal(t, first, frame)
}

func TestFrameChunkerReset(t *testing.T) {
	c := NewFrameChunker()
	c.Write(make([]byte, FrameBytes/4))
	c.Reset()
	assert.Equal(t, 0, c.Pending())
	assert.Nil(t, c.NextFrame())
}
