package wakeword

import "time"

// Detection tunables. Fixed in the current deployment; a sustained
// utterance spans many 80ms frames, so the debounce interval must
// exceed typical utterance duration.
const (
	// DefaultThreshold is the confidence above which a frame counts as
	// a wake-word hit.
	DefaultThreshold float32 = 0.5

	// DefaultDebounce is the minimum gap between emitted wake events.
	DefaultDebounce = 2500 * time.Millisecond
)

// DebouncePolicy converts raw per-frame scores into debounced wake
// decisions. It keeps the timestamp of the last emitted wake event; the
// zero value means no wake has ever been emitted.
//
// The clock is injected so tests can simulate elapsed time.
type DebouncePolicy struct {
	threshold float32
	debounce  time.Duration
	now       func() time.Time

	lastWake time.Time
}

// NewDebouncePolicy creates a policy with the given threshold and
// debounce interval. now may be nil, in which case time.Now is used.
func NewDebouncePolicy(threshold float32, debounce time.Duration, now func() time.Time) *DebouncePolicy {
	if now == nil {
		now = time.Now
	}
	return &DebouncePolicy{
		threshold: threshold,
		debounce:  debounce,
		now:       now,
	}
}

// Observe evaluates one scored frame and reports whether a wake event
// should be emitted. On emission the last-wake timestamp advances; all
// other observations leave the policy state untouched.
func (p *DebouncePolicy) Observe(score float32) bool {
	if score < p.threshold {
		return false
	}
	now := p.now()
	if !p.lastWake.IsZero() && now.Sub(p.lastWake) < p.debounce {
		return false
	}
	p.lastWake = now
	return true
}

// LastWake returns the time of the last emitted wake event, or the zero
// time if none has been emitted.
func (p *DebouncePolicy) LastWake() time.Time {
	return p.lastWake
}

// MaxTracker folds per-frame scores into a running maximum for offline
// threshold calibration. The zero value is ready to use and reports 0.0
// when no frame was ever observed.
type MaxTracker struct {
	max float32
}

// Observe records one score.
func (t *MaxTracker) Observe(score float32) {
	if score > t.max {
		t.max = score
	}
}

// Max returns the maximum score observed so far.
func (t *MaxTracker) Max() float32 {
	return t.max
}
