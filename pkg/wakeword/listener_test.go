package wakeword

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/realtime-ai/wakeword/pkg/audio"
)

// pcmStream returns a silent (all-zero) PCM stream of n whole frames
// plus extra trailing bytes.
func pcmStream(n, extra int) *bytes.Reader {
	return bytes.NewReader(make([]byte, n*audio.FrameBytes+extra))
}

func newTestListener(t *testing.T, scorer Scorer, clock *fakeClock) *Listener {
	t.Helper()
	cfg := Config{}
	if clock != nil {
		cfg.Now = clock.Now
	}
	l, err := NewListener(cfg, scorer)
	require.NoError(t, err)
	return l
}

func TestNewListenerDefaults(t *testing.T) {
	mock := NewMockScorer()
	l, err := NewListener(Config{}, mock)
	require.NoError(t, err)

	// Active keyword defaults to the scorer's first (only) keyword.
	assert.Equal(t, "mock", l.Keyword())
}

func TestNewListenerValidation(t *testing.T) {
	_, err := NewListener(Config{}, nil)
	assert.Error(t, err)

	_, err = NewListener(Config{Threshold: 1.5}, NewMockScorer())
	assert.Error(t, err)

	_, err = NewListener(Config{Debounce: -time.Second}, NewMockScorer())
	assert.Error(t, err)
}

func TestListenSilentStreamEmitsNothing(t *testing.T) {
	// 5 seconds of silence: 62 full frames of zeros, score 0.0.
	mock := NewMockScorerWithScore(0)
	l := newTestListener(t, mock, newFakeClock())

	var out bytes.Buffer
	err := l.Listen(context.Background(), pcmStream(62, 0), NewEmitter(&out))
	require.NoError(t, err)

	assert.Empty(t, out.String())
	assert.Equal(t, 62, mock.GetScoreCallCount())
}

func TestListenScoresExactlyWholeFrames(t *testing.T) {
	mock := NewMockScorerWithScore(0)
	l := newTestListener(t, mock, newFakeClock())

	// 3 full frames plus a partial trailing block: the partial block is
	// discarded, never scored.
	var out bytes.Buffer
	err := l.Listen(context.Background(), pcmStream(3, audio.FrameBytes-4), NewEmitter(&out))
	require.NoError(t, err)

	require.Equal(t, 3, mock.GetScoreCallCount())
	for i, call := range mock.ScoreCalls {
		assert.Equal(t, audio.FrameSamples, len(call), "call %d", i)
	}
}

func TestListenDebouncedWakes(t *testing.T) {
	clock := newFakeClock()
	// Every frame scores above threshold; the clock advances 80ms per
	// frame via the scorer hook.
	mock := NewMockScorer()
	mock.ScoreFunc = func(samples []float32) (map[string]float32, error) {
		defer clock.Advance(80 * time.Millisecond)
		return map[string]float32{"mock": 0.9}, nil
	}
	l := newTestListener(t, mock, clock)

	// 10 seconds of frames: wakes at t=0, 2.56, 5.12, 7.68 -> 4 lines.
	var out bytes.Buffer
	err := l.Listen(context.Background(), pcmStream(125, 0), NewEmitter(&out))
	require.NoError(t, err)

	wakes := strings.Count(out.String(), "WAKE\n")
	assert.Equal(t, 4, wakes)
}

func TestListenBelowThresholdNeverWakes(t *testing.T) {
	clock := newFakeClock()
	mock := NewMockScorer()
	mock.ScoreFunc = func(samples []float32) (map[string]float32, error) {
		defer clock.Advance(80 * time.Millisecond)
		return map[string]float32{"mock": 0.499}, nil
	}
	l := newTestListener(t, mock, clock)

	var out bytes.Buffer
	err := l.Listen(context.Background(), pcmStream(100, 0), NewEmitter(&out))
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestListenMissingKeywordScoresAsZero(t *testing.T) {
	// A ScoreMap without the active keyword defaults to 0.0.
	mock := NewMockScorer()
	mock.ScoreFunc = func(samples []float32) (map[string]float32, error) {
		return map[string]float32{"other_keyword": 0.99}, nil
	}
	l := newTestListener(t, mock, newFakeClock())

	var out bytes.Buffer
	err := l.Listen(context.Background(), pcmStream(10, 0), NewEmitter(&out))
	require.NoError(t, err)
	assert.Empty(t, out.String())
}

func TestListenScorerErrorIsFatal(t *testing.T) {
	mock := NewMockScorer()
	calls := 0
	mock.ScoreFunc = func(samples []float32) (map[string]float32, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("inference backend gone")
		}
		return map[string]float32{"mock": 0}, nil
	}
	l := newTestListener(t, mock, newFakeClock())

	var out bytes.Buffer
	err := l.Listen(context.Background(), pcmStream(10, 0), NewEmitter(&out))
	require.Error(t, err)
	// The loop stops at the failure instead of grinding through the rest.
	assert.Equal(t, 2, calls)
}

func TestListenStopsQuietlyOnEmitFailure(t *testing.T) {
	mock := NewMockScorerWithScore(0.9)
	l := newTestListener(t, mock, newFakeClock())

	// A closed consumer pipe is normal shutdown, not an error.
	err := l.Listen(context.Background(), pcmStream(10, 0), NewEmitter(failingWriter{}))
	assert.NoError(t, err)
	assert.Equal(t, 1, mock.GetScoreCallCount())
}

func TestListenContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mock := NewMockScorerWithScore(0.9)
	l := newTestListener(t, mock, newFakeClock())

	var out bytes.Buffer
	err := l.Listen(ctx, pcmStream(10, 0), NewEmitter(&out))
	assert.NoError(t, err)
	assert.Equal(t, 0, mock.GetScoreCallCount())
}

func TestScoreStreamRunningMax(t *testing.T) {
	mock := NewMockScorerWithSequence([]float32{0.1, 0.7, 0.3, 0.69})
	l := newTestListener(t, mock, nil)

	max, err := l.ScoreStream(context.Background(), pcmStream(4, 0))
	require.NoError(t, err)
	assert.Equal(t, float32(0.7), max)
}

func TestScoreStreamEmptyInput(t *testing.T) {
	mock := NewMockScorer()
	l := newTestListener(t, mock, nil)

	max, err := l.ScoreStream(context.Background(), pcmStream(0, 0))
	require.NoError(t, err)
	assert.Equal(t, float32(0), max)
	assert.Equal(t, 0, mock.GetScoreCallCount())
}

func TestScoreStreamDeterministic(t *testing.T) {
	// Same stream, same scorer behavior -> same MAX.
	run := func() float32 {
		mock := NewMockScorerWithSequence([]float32{0.2, 0.55, 0.4})
		l := newTestListener(t, mock, nil)
		max, err := l.ScoreStream(context.Background(), pcmStream(9, 0))
		require.NoError(t, err)
		return max
	}
	assert.Equal(t, run(), run())
}

func TestScoreStreamReturnsPartialMaxOnError(t *testing.T) {
	mock := NewMockScorer()
	calls := 0
	mock.ScoreFunc = func(samples []float32) (map[string]float32, error) {
		calls++
		if calls == 3 {
			return nil, errors.New("inference failed")
		}
		return map[string]float32{"mock": float32(calls) * 0.2}, nil
	}
	l := newTestListener(t, mock, nil)

	max, err := l.ScoreStream(context.Background(), pcmStream(10, 0))
	require.Error(t, err)
	assert.Equal(t, float32(0.4), max)
}
