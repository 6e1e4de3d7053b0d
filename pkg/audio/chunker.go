package audio

// FrameChunker re-frames arbitrarily sized PCM writes into exact
// FrameBytes frames. Used where message boundaries do not align to
// frames, e.g. WebSocket ingestion.
//
// Not safe for concurrent use; each stream owns its own chunker.
type FrameChunker struct {
	buf []byte
}

// NewFrameChunker creates an empty chunker.
func NewFrameChunker() *FrameChunker {
	return &FrameChunker{buf: make([]byte, 0, FrameBytes*2)}
}

// Write appends PCM bytes to the pending buffer.
func (c *FrameChunker) Write(data []byte) {
	c.buf = append(c.buf, data...)
}

// NextFrame returns the next complete frame, or nil if fewer than
// FrameBytes are pending. The returned slice is a copy and remains
// valid after further writes.
func (c *FrameChunker) NextFrame() []byte {
	if len(c.buf) < FrameBytes {
		return nil
	}
	frame := make([]byte, FrameBytes)
	copy(frame, c.buf[:FrameBytes])
	c.buf = c.buf[FrameBytes:]
	return frame
}

// Pending returns the number of buffered bytes not yet framed.
func (c *FrameChunker) Pending() int {
	return len(c.buf)
}

// Reset discards any buffered bytes.
func (c *FrameChunker) Reset() {
	c.buf = c.buf[:0]
}
