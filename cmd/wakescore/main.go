// wakescore reads raw PCM audio (16-bit LE, 16kHz, mono) from stdin,
// scores every 80ms frame against a keyword model, and prints a single
// "MAX <score>" line when the stream ends. Used for offline threshold
// calibration.
//
// A missing argument or a model that fails to load still produces a
// parseable "MAX 0.0" line before the non-zero exit, so a calibration
// harness always gets a value.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/realtime-ai/wakeword/pkg/audio"
	"github.com/realtime-ai/wakeword/pkg/wakeword"
)

func main() {
	godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
		// The loop may be blocked on a stdin read; don't wait for it.
		os.Exit(0)
	}()

	os.Exit(run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	emitter := wakeword.NewEmitter(stdout)

	if len(args) < 1 {
		emitter.Max(0)
		return 2
	}
	modelPath := args[0]

	scorer, err := wakeword.NewONNXScorer(wakeword.ONNXScorerConfig{
		ModelPath:  modelPath,
		SampleRate: audio.SampleRate,
	})
	if err != nil {
		emitter.Max(0)
		return 1
	}
	// Registered first so it runs after the scorer is destroyed.
	defer wakeword.DestroyRuntime()
	defer scorer.Destroy()

	listener, err := wakeword.NewListener(wakeword.Config{}, scorer)
	if err != nil {
		emitter.Max(0)
		return 1
	}

	max, err := listener.ScoreStream(ctx, stdin)
	// Emit the maximum seen so far even on a mid-stream failure.
	emitter.Max(max)
	if err != nil {
		fmt.Fprintf(stderr, "wakescore: %v\n", err)
		return 1
	}
	return 0
}
