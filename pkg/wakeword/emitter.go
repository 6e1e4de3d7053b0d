package wakeword

import (
	"io"
	"strconv"
	"strings"
)

// Emitter writes detection events as a line-oriented protocol. The
// primary channel carries only protocol lines; diagnostics belong on a
// separate error channel so a consumer parsing this stream never sees
// interleaved text.
//
// If the writer exposes Flush, each line is flushed immediately: the
// consumer may be reading line-by-line in real time.
type Emitter struct {
	w io.Writer
}

type flusher interface {
	Flush() error
}

// NewEmitter creates an Emitter over w.
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Wake emits one wake event line.
func (e *Emitter) Wake() error {
	return e.writeLine("WAKE")
}

// Max emits the final running-maximum line for scoring mode.
func (e *Emitter) Max(v float32) error {
	return e.writeLine("MAX " + FormatScore(v))
}

func (e *Emitter) writeLine(line string) error {
	if _, err := io.WriteString(e.w, line+"\n"); err != nil {
		return err
	}
	if f, ok := e.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// FormatScore renders a confidence as a decimal float. The result
// always contains a decimal point, so zero renders as "0.0" and the
// line stays parseable as a float by calibration harnesses.
func FormatScore(v float32) string {
	s := strconv.FormatFloat(float64(v), 'f', -1, 32)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
