package wakeword

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/realtime-ai/wakeword/pkg/audio"
)

const (
	stateLen   = 2 * 1 * 128
	contextLen = 64
)

// runtimeInitialized tracks whether the ONNX runtime has been initialized.
var (
	runtimeInitialized bool
	runtimeMu          sync.Mutex
)

// InitRuntime initializes the ONNX runtime environment.
// libraryPath can be empty to use auto-detection, or specify the path to
// libonnxruntime.so. Call once at startup before creating any scorers.
func InitRuntime(libraryPath string) error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if runtimeInitialized {
		return nil
	}

	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	} else {
		if libPath := findONNXRuntimeLibrary(); libPath != "" {
			ort.SetSharedLibraryPath(libPath)
		}
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}

	runtimeInitialized = true
	return nil
}

// DestroyRuntime destroys the ONNX runtime environment.
// Call once at shutdown, after all scorers are destroyed.
func DestroyRuntime() error {
	runtimeMu.Lock()
	defer runtimeMu.Unlock()

	if !runtimeInitialized {
		return nil
	}

	if err := ort.DestroyEnvironment(); err != nil {
		return fmt.Errorf("failed to destroy ONNX runtime: %w", err)
	}

	runtimeInitialized = false
	return nil
}

// findONNXRuntimeLibrary tries to find the ONNX Runtime shared library.
func findONNXRuntimeLibrary() string {
	paths := []string{
		os.Getenv("ONNXRUNTIME_LIB"),
		"/usr/lib/libonnxruntime.so",
		"/usr/local/lib/libonnxruntime.so",
		"/opt/onnxruntime/lib/libonnxruntime.so",
		"/opt/homebrew/lib/libonnxruntime.dylib",
		"/usr/local/lib/libonnxruntime.dylib",
	}

	if ldPath := os.Getenv("LD_LIBRARY_PATH"); ldPath != "" {
		for _, dir := range filepath.SplitList(ldPath) {
			paths = append(paths, filepath.Join(dir, "libonnxruntime.so"))
		}
	}
	if dyldPath := os.Getenv("DYLD_LIBRARY_PATH"); dyldPath != "" {
		for _, dir := range filepath.SplitList(dyldPath) {
			paths = append(paths, filepath.Join(dir, "libonnxruntime.dylib"))
		}
	}

	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// ONNXScorerConfig holds configuration for creating an ONNX scorer.
type ONNXScorerConfig struct {
	// ModelPath is the path to the streaming keyword model (.onnx).
	// The keyword identifier is the file basename without extension.
	ModelPath string
	// SampleRate of the input audio. Only 16000 is supported by the
	// shipped wake models.
	SampleRate int
}

// IsValid validates the scorer configuration.
func (c ONNXScorerConfig) IsValid() error {
	if c.ModelPath == "" {
		return fmt.Errorf("invalid ModelPath: should not be empty")
	}
	if c.SampleRate != audio.SampleRate {
		return fmt.Errorf("invalid SampleRate: only %d is supported", audio.SampleRate)
	}
	return nil
}

// ONNXScorer scores frames against a single streaming keyword model.
//
// The model carries its temporal context in a recurrent state tensor
// plus a short sample-context prefix, both owned by the scorer and
// threaded through successive Score calls. Not safe for concurrent use;
// each stream owns one scorer.
type ONNXScorer struct {
	session *ort.DynamicAdvancedSession

	cfg     ONNXScorerConfig
	keyword string

	// Recurrent model state carried across frames.
	state [stateLen]float32
	// Trailing samples from the previous frame, prepended for continuity.
	ctx [contextLen]float32
	// currSample tracks total samples processed; on the first inference
	// no context is prepended.
	currSample int

	inputNames  []string
	outputNames []string
}

// NewONNXScorer loads the keyword model at cfg.ModelPath and returns a
// scorer bound to it. InitRuntime is performed automatically if the
// caller has not done so. Any failure here is fatal to the stream: the
// caller must not start reading frames without a scorer.
func NewONNXScorer(cfg ONNXScorerConfig) (*ONNXScorer, error) {
	if err := cfg.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	runtimeMu.Lock()
	if !runtimeInitialized {
		runtimeMu.Unlock()
		if err := InitRuntime(""); err != nil {
			return nil, fmt.Errorf("ONNX runtime not initialized: %w", err)
		}
	} else {
		runtimeMu.Unlock()
	}

	if _, err := os.Stat(cfg.ModelPath); err != nil {
		return nil, fmt.Errorf("model not readable: %w", err)
	}

	s := &ONNXScorer{
		cfg:         cfg,
		keyword:     keywordFromPath(cfg.ModelPath),
		inputNames:  []string{"input", "state", "sr"},
		outputNames: []string{"output", "stateN"},
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	if err := options.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll); err != nil {
		return nil, fmt.Errorf("failed to set graph optimization level: %w", err)
	}
	if err := options.SetIntraOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("failed to set intra-op threads: %w", err)
	}
	if err := options.SetInterOpNumThreads(1); err != nil {
		return nil, fmt.Errorf("failed to set inter-op threads: %w", err)
	}

	session, err := ort.NewDynamicAdvancedSession(
		cfg.ModelPath,
		s.inputNames,
		s.outputNames,
		options,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load model %s: %w", cfg.ModelPath, err)
	}

	s.session = session
	return s, nil
}

// keywordFromPath derives the keyword identifier from the model file
// basename, e.g. "models/hey_jeeves.onnx" -> "hey_jeeves".
func keywordFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Keywords implements Scorer.
func (s *ONNXScorer) Keywords() []string {
	return []string{s.keyword}
}

// Score implements Scorer. samples should be one frame of normalized
// float32 values in [-1, 1].
func (s *ONNXScorer) Score(samples []float32) (map[string]float32, error) {
	if s == nil {
		return nil, fmt.Errorf("invalid nil scorer")
	}

	// Prepend the previous frame's tail for continuity, except on the
	// very first inference.
	pcm := samples
	if s.currSample > 0 {
		pcm = append(s.ctx[:], samples...)
	}
	if len(samples) >= contextLen {
		copy(s.ctx[:], samples[len(samples)-contextLen:])
	}
	s.currSample += len(samples)

	inputShape := ort.NewShape(1, int64(len(pcm)))
	inputTensor, err := ort.NewTensor(inputShape, pcm)
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer inputTensor.Destroy()

	stateShape := ort.NewShape(2, 1, 128)
	stateTensor, err := ort.NewTensor(stateShape, s.state[:])
	if err != nil {
		return nil, fmt.Errorf("failed to create state tensor: %w", err)
	}
	defer stateTensor.Destroy()

	srShape := ort.NewShape(1)
	srData := []int64{int64(s.cfg.SampleRate)}
	srTensor, err := ort.NewTensor(srShape, srData)
	if err != nil {
		return nil, fmt.Errorf("failed to create sr tensor: %w", err)
	}
	defer srTensor.Destroy()

	outputShape := ort.NewShape(1, 1)
	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	stateNShape := ort.NewShape(2, 1, 128)
	stateNTensor, err := ort.NewEmptyTensor[float32](stateNShape)
	if err != nil {
		return nil, fmt.Errorf("failed to create stateN tensor: %w", err)
	}
	defer stateNTensor.Destroy()

	inputs := []ort.Value{inputTensor, stateTensor, srTensor}
	outputs := []ort.Value{outputTensor, stateNTensor}

	if err := s.session.Run(inputs, outputs); err != nil {
		return nil, fmt.Errorf("failed to run inference: %w", err)
	}

	copy(s.state[:], stateNTensor.GetData())

	outputData := outputTensor.GetData()
	if len(outputData) == 0 {
		return nil, fmt.Errorf("empty output from inference")
	}

	return map[string]float32{s.keyword: outputData[0]}, nil
}

// Reset implements Scorer.
func (s *ONNXScorer) Reset() error {
	if s == nil {
		return fmt.Errorf("invalid nil scorer")
	}

	for i := 0; i < stateLen; i++ {
		s.state[i] = 0
	}
	for i := 0; i < contextLen; i++ {
		s.ctx[i] = 0
	}
	s.currSample = 0

	return nil
}

// Destroy implements Scorer.
func (s *ONNXScorer) Destroy() error {
	if s == nil {
		return fmt.Errorf("invalid nil scorer")
	}

	if s.session != nil {
		if err := s.session.Destroy(); err != nil {
			return fmt.Errorf("failed to destroy session: %w", err)
		}
		s.session = nil
	}

	return nil
}

// Ensure ONNXScorer implements Scorer at compile time.
var _ Scorer = (*ONNXScorer)(nil)
