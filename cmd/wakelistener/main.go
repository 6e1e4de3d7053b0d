// wakelistener reads raw PCM audio (16-bit LE, 16kHz, mono) from stdin
// in 80ms frames, scores each frame against a keyword model, and prints
// one "WAKE" line per debounced detection.
//
// Usage:
//
//	wakelistener path/to/hey_jeeves.onnx < audio.raw
//
// Stdout carries only WAKE lines; diagnostics go to stderr with the
// WAKE_LISTENER_ERROR tag so a consumer parsing stdout never sees them.
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

const errTag = "WAKE_LISTENER_ERROR:"

func main() {
	godotenv.Load()

	// An interrupt from the supervisor is normal shutdown: exit quietly,
	// no stack trace on the error channel.
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
	if len(args) < 1 {
		fmt.Fprintf(stderr, "%s need model path (e.g. wakelistener models/wake/hey_jeeves.onnx)\n", errTag)
		return 2
	}
	modelPath := args[0]

	if err := wakeword.InitRuntime(""); err != nil {
		fmt.Fprintf(stderr, "%s onnxruntime unavailable (set ONNXRUNTIME_LIB): %v\n", errTag, err)
		return 1
	}
	defer wakeword.DestroyRuntime()

	scorer, err := wakeword.NewONNXScorer(wakeword.ONNXScorerConfig{
		ModelPath:  modelPath,
		SampleRate: audio.SampleRate,
	})
	if err != nil {
		fmt.Fprintf(stderr, "%s failed to load model: %v\n", errTag, err)
		return 1
	}
	defer scorer.Destroy()

	listener, err := wakeword.NewListener(wakeword.Config{}, scorer)
	if err != nil {
		fmt.Fprintf(stderr, "%s %v\n", errTag, err)
		return 1
	}

	if err := listener.Listen(ctx, stdin, wakeword.NewEmitter(stdout)); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", errTag, err)
		return 1
	}
	return 0
}
