// Package wakeword implements streaming wake-word detection: an opaque
// keyword-spotting scorer behind a small interface, a threshold+debounce
// decision policy, a running-maximum policy for offline calibration, and
// the blocking loop that ties them to a PCM frame stream.
package wakeword

// Scorer produces per-keyword confidence scores for normalized audio
// frames. Implementations are stateful across calls: they maintain
// whatever rolling feature window the underlying model needs, and the
// calling loop never resets them mid-stream.
type Scorer interface {
	// Score runs inference on one frame of normalized float32 samples
	// in [-1, 1] and returns keyword identifier -> confidence in [0, 1].
	Score(samples []float32) (map[string]float32, error)

	// Keywords returns the keyword identifiers this scorer recognizes.
	// With a single loaded model this has exactly one entry.
	Keywords() []string

	// Reset clears the scorer's internal temporal state. Call when
	// starting a new audio stream.
	Reset() error

	// Destroy releases all resources held by the scorer.
	// The scorer must not be used after calling Destroy.
	Destroy() error
}
