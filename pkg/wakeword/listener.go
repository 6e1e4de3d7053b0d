package wakeword

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/realtime-ai/wakeword/pkg/audio"
)

// Config holds the tunables for a detection stream.
type Config struct {
	// Keyword is the active keyword identifier. If empty, the scorer's
	// first keyword is used.
	Keyword string

	// Threshold is the wake confidence threshold. If 0, DefaultThreshold.
	Threshold float32

	// Debounce is the minimum gap between wake events. If 0, DefaultDebounce.
	Debounce time.Duration

	// Now is the clock used for debouncing. If nil, time.Now.
	Now func() time.Time
}

// IsValid validates the configuration.
func (c Config) IsValid() error {
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("invalid Threshold: must be in [0, 1]")
	}
	if c.Debounce < 0 {
		return fmt.Errorf("invalid Debounce: must not be negative")
	}
	return nil
}

// Listener runs the detection loop over a PCM byte stream: read one
// frame, normalize, score, decide, emit. Single-threaded and blocking;
// the only suspension point is the input read.
type Listener struct {
	cfg    Config
	scorer Scorer
}

// NewListener creates a Listener bound to scorer.
func NewListener(cfg Config, scorer Scorer) (*Listener, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = DefaultDebounce
	}
	if cfg.Keyword == "" {
		keywords := scorer.Keywords()
		if len(keywords) == 0 {
			return nil, fmt.Errorf("scorer reports no keywords")
		}
		cfg.Keyword = keywords[0]
	}
	return &Listener{cfg: cfg, scorer: scorer}, nil
}

// Keyword returns the active keyword identifier.
func (l *Listener) Keyword() string {
	return l.cfg.Keyword
}

// Listen consumes r until end of stream, emitting one debounced WAKE
// event per threshold crossing.
//
// Termination is clean (nil) on end of stream, on context cancellation,
// and on an emit failure such as a closed output pipe: the consumer
// going away is normal shutdown for a live audio pipeline, not an
// error. A scorer failure is fatal and returned, never skipped, to
// avoid looping over a broken model.
func (l *Listener) Listen(ctx context.Context, r io.Reader, emitter *Emitter) error {
	policy := NewDebouncePolicy(l.cfg.Threshold, l.cfg.Debounce, l.cfg.Now)

	return l.run(ctx, r, func(score float32) (bool, error) {
		if !policy.Observe(score) {
			return true, nil
		}
		if err := emitter.Wake(); err != nil {
			// Broken pipe: the consumer is gone, stop quietly.
			return false, nil
		}
		return true, nil
	})
}

// ScoreStream consumes r until end of stream and returns the maximum
// active-keyword score observed. The partial maximum is returned even
// alongside a non-nil error so callers can still report it.
func (l *Listener) ScoreStream(ctx context.Context, r io.Reader) (float32, error) {
	var tracker MaxTracker
	err := l.run(ctx, r, func(score float32) (bool, error) {
		tracker.Observe(score)
		return true, nil
	})
	return tracker.Max(), err
}

// run is the shared frame loop. observe receives the active keyword's
// score for each full frame and reports whether to continue.
func (l *Listener) run(ctx context.Context, r io.Reader, observe func(score float32) (bool, error)) error {
	fr := audio.NewFrameReader(r)

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, err := fr.ReadFrame()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}

		samples, err := audio.FrameToFloat32(frame)
		if err != nil {
			// Unreachable for the reader's own size-checked output, but
			// a malformed block must not take the process down.
			log.Printf("[Listener] skipping malformed frame: %v", err)
			continue
		}

		scores, err := l.scorer.Score(samples)
		if err != nil {
			return fmt.Errorf("score frame: %w", err)
		}

		cont, err := observe(scores[l.cfg.Keyword])
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
	}
}
