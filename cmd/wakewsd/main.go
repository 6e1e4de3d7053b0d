// wakewsd serves wake-word detection over WebSocket. Clients connect to
// the /v1/wake endpoint, stream raw PCM (16-bit LE, 16kHz, mono) in
// binary messages, and receive a text "WAKE" message per debounced
// detection. Each connection gets its own scorer instance.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/realtime-ai/wakeword/pkg/audio"
	"github.com/realtime-ai/wakeword/pkg/server"
	"github.com/realtime-ai/wakeword/pkg/trace"
	"github.com/realtime-ai/wakeword/pkg/wakeword"
)

func main() {
	godotenv.Load()

	addr := flag.String("addr", ":8089", "listen address")
	path := flag.String("path", "/v1/wake", "WebSocket endpoint path")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatalf("[wakewsd] usage: wakewsd [flags] <model.onnx>")
	}
	modelPath := flag.Arg(0)

	ctx := context.Background()

	if err := trace.Initialize(ctx, trace.DefaultConfig()); err != nil {
		log.Fatalf("[wakewsd] failed to initialize tracing: %v", err)
	}
	defer trace.Shutdown(ctx)

	if err := wakeword.InitRuntime(""); err != nil {
		log.Fatalf("[wakewsd] onnxruntime unavailable (set ONNXRUNTIME_LIB): %v", err)
	}
	defer wakeword.DestroyRuntime()

	scorerConfig := wakeword.ONNXScorerConfig{
		ModelPath:  modelPath,
		SampleRate: audio.SampleRate,
	}

	// Fail fast on a bad model before accepting any connection.
	probe, err := wakeword.NewONNXScorer(scorerConfig)
	if err != nil {
		log.Fatalf("[wakewsd] failed to load model: %v", err)
	}
	keyword := probe.Keywords()[0]
	probe.Destroy()

	cfg := server.DefaultConfig()
	cfg.Addr = *addr
	cfg.Path = *path

	srv, err := server.NewWakeServer(cfg, func() (wakeword.Scorer, error) {
		return wakeword.NewONNXScorer(scorerConfig)
	})
	if err != nil {
		log.Fatalf("[wakewsd] %v", err)
	}

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("[wakewsd] failed to start: %v", err)
	}
	log.Printf("[wakewsd] listening on %s%s, keyword %q", *addr, *path, keyword)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Printf("[wakewsd] shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Printf("[wakewsd] shutdown error: %v", err)
	}
}
