package wakeword

import "sync"

// MockScorer is a mock implementation of Scorer for testing.
// It allows customizing the behavior of Score through the ScoreFunc field.
type MockScorer struct {
	// Keyword is the identifier reported by Keywords and used to key
	// scores returned by the built-in helpers. Defaults to "mock".
	Keyword string

	// ScoreFunc is called when Score is invoked.
	// If nil, returns 0.0 for the keyword.
	ScoreFunc func(samples []float32) (map[string]float32, error)

	// ScoreCalls records all calls to Score for verification.
	ScoreCalls [][]float32

	// ResetCalled tracks if Reset was called.
	ResetCalled bool

	// DestroyCalled tracks if Destroy was called.
	DestroyCalled bool

	mu sync.Mutex
}

// NewMockScorer creates a new MockScorer with default behavior.
func NewMockScorer() *MockScorer {
	return &MockScorer{
		Keyword:    "mock",
		ScoreCalls: make([][]float32, 0),
	}
}

// NewMockScorerWithScore creates a MockScorer that returns a fixed score.
func NewMockScorerWithScore(score float32) *MockScorer {
	m := NewMockScorer()
	m.ScoreFunc = func(samples []float32) (map[string]float32, error) {
		return map[string]float32{m.Keyword: score}, nil
	}
	return m
}

// NewMockScorerWithSequence creates a MockScorer that returns scores in
// sequence. After all scores are returned, it cycles back to the beginning.
func NewMockScorerWithSequence(scores []float32) *MockScorer {
	m := NewMockScorer()
	idx := 0
	m.ScoreFunc = func(samples []float32) (map[string]float32, error) {
		if len(scores) == 0 {
			return map[string]float32{m.Keyword: 0}, nil
		}
		score := scores[idx]
		idx = (idx + 1) % len(scores)
		return map[string]float32{m.Keyword: score}, nil
	}
	return m
}

// Score implements Scorer.
func (m *MockScorer) Score(samples []float32) (map[string]float32, error) {
	m.mu.Lock()
	// Make a copy to avoid issues with reused slices
	samplesCopy := make([]float32, len(samples))
	copy(samplesCopy, samples)
	m.ScoreCalls = append(m.ScoreCalls, samplesCopy)
	m.mu.Unlock()

	if m.ScoreFunc != nil {
		return m.ScoreFunc(samples)
	}
	return map[string]float32{m.Keyword: 0}, nil
}

// Keywords implements Scorer.
func (m *MockScorer) Keywords() []string {
	return []string{m.Keyword}
}

// Reset implements Scorer.
func (m *MockScorer) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalled = true
	return nil
}

// Destroy implements Scorer.
func (m *MockScorer) Destroy() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DestroyCalled = true
	return nil
}

// GetScoreCallCount returns the number of times Score was called.
func (m *MockScorer) GetScoreCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ScoreCalls)
}

// Ensure MockScorer implements Scorer at compile time.
var _ Scorer = (*MockScorer)(nil)
