// Package server provides a WebSocket ingestion surface for the
// wake-word detector: clients stream raw PCM in binary messages and
// receive a text "WAKE" message per debounced detection.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/realtime-ai/wakeword/pkg/audio"
	"github.com/realtime-ai/wakeword/pkg/trace"
	"github.com/realtime-ai/wakeword/pkg/wakeword"
)

// ScorerFactory creates one scorer per session. Scorers carry model
// state across frames, so sessions never share one.
type ScorerFactory func() (wakeword.Scorer, error)

// Config holds the configuration for the wake WebSocket server.
type Config struct {
	// Addr is the address to listen on (e.g. ":8089").
	Addr string

	// Path is the WebSocket endpoint path (e.g. "/v1/wake").
	Path string

	// Detection carries the threshold/debounce tunables applied to
	// every session.
	Detection wakeword.Config

	// MaxSessionsPerIP limits sessions per IP address. 0 means no limit.
	MaxSessionsPerIP int

	// ReadBufferSize is the WebSocket read buffer size.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	WriteBufferSize int
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:             ":8089",
		Path:             "/v1/wake",
		MaxSessionsPerIP: 10,
		ReadBufferSize:   4096,
		WriteBufferSize:  1024,
	}
}

// WakeServer accepts WebSocket connections and runs one detection
// session per connection.
type WakeServer struct {
	config  *Config
	factory ScorerFactory

	sessions   map[string]*session
	sessionsMu sync.RWMutex

	ipSessions   map[string]int
	ipSessionsMu sync.RWMutex

	httpServer *http.Server
	mux        *http.ServeMux
	upgrader   websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
}

// session is one client audio stream with its private scorer and policy.
type session struct {
	id      string
	conn    *websocket.Conn
	scorer  wakeword.Scorer
	policy  *wakeword.DebouncePolicy
	chunker *audio.FrameChunker
	keyword string

	frames int
	wakes  int

	cancel context.CancelFunc
}

// NewWakeServer creates a server. factory is required; it is invoked
// once per accepted connection.
func NewWakeServer(config *Config, factory ScorerFactory) (*WakeServer, error) {
	if factory == nil {
		return nil, fmt.Errorf("scorer factory is required")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Detection.IsValid(); err != nil {
		return nil, fmt.Errorf("invalid detection config: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WakeServer{
		config:     config,
		factory:    factory,
		sessions:   make(map[string]*session),
		ipSessions: make(map[string]int),
		mux:        http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins; customize for production
			},
		},
		ctx:    ctx,
		cancel: cancel,
	}, nil
}

// Start starts the server.
func (s *WakeServer) Start(ctx context.Context) error {
	s.mux.HandleFunc(s.config.Path, s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:    s.config.Addr,
		Handler: s.mux,
	}

	log.Printf("[WakeServer] starting on %s%s", s.config.Addr, s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		// Server started successfully
		return nil
	}
}

// Stop stops the server gracefully, closing all active sessions.
func (s *WakeServer) Stop(ctx context.Context) error {
	s.cancel()

	s.sessionsMu.Lock()
	for _, sess := range s.sessions {
		sess.cancel()
		sess.conn.Close()
	}
	s.sessions = make(map[string]*session)
	s.sessionsMu.Unlock()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// SessionCount returns the number of active sessions.
func (s *WakeServer) SessionCount() int {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	return len(s.sessions)
}

// handleWebSocket upgrades a connection and runs its detection session.
func (s *WakeServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	clientIP := getClientIP(r)
	if s.config.MaxSessionsPerIP > 0 {
		s.ipSessionsMu.RLock()
		count := s.ipSessions[clientIP]
		s.ipSessionsMu.RUnlock()

		if count >= s.config.MaxSessionsPerIP {
			http.Error(w, "Too many sessions from this IP", http.StatusTooManyRequests)
			return
		}
	}

	scorer, err := s.factory()
	if err != nil {
		log.Printf("[WakeServer] failed to create scorer: %v", err)
		http.Error(w, "Scorer unavailable", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		scorer.Destroy()
		log.Printf("[WakeServer] WebSocket upgrade failed: %v", err)
		return
	}

	keywords := scorer.Keywords()
	if len(keywords) == 0 {
		scorer.Destroy()
		conn.Close()
		log.Printf("[WakeServer] scorer reports no keywords")
		return
	}
	keyword := s.config.Detection.Keyword
	if keyword == "" {
		keyword = keywords[0]
	}

	threshold := s.config.Detection.Threshold
	if threshold == 0 {
		threshold = wakeword.DefaultThreshold
	}
	debounce := s.config.Detection.Debounce
	if debounce == 0 {
		debounce = wakeword.DefaultDebounce
	}

	ctx, cancel := context.WithCancel(s.ctx)
	sess := &session{
		id:      uuid.NewString(),
		conn:    conn,
		scorer:  scorer,
		policy:  wakeword.NewDebouncePolicy(threshold, debounce, s.config.Detection.Now),
		chunker: audio.NewFrameChunker(),
		keyword: keyword,
		cancel:  cancel,
	}

	s.registerSession(sess, clientIP)
	defer s.unregisterSession(sess, clientIP)

	log.Printf("[WakeServer] [session %s] connected from %s, keyword %q", sess.id, clientIP, keyword)
	s.handleSession(ctx, sess, clientIP)
}

// handleSession consumes binary PCM messages until the client goes away.
func (s *WakeServer) handleSession(ctx context.Context, sess *session, clientIP string) {
	defer sess.conn.Close()
	defer sess.scorer.Destroy()

	ctx, span := trace.StartSpan(ctx, "wake.session")
	span.SetAttributes(
		attribute.String(trace.AttrSessionID, sess.id),
		attribute.String(trace.AttrKeyword, sess.keyword),
		attribute.String(trace.AttrRemoteAddr, clientIP),
		attribute.String(trace.AttrAudioFormat, "pcm_s16le/16000/mono"),
	)
	defer func() {
		span.SetAttributes(
			attribute.Int(trace.AttrFrameCount, sess.frames),
			attribute.Int(trace.AttrWakeCount, sess.wakes),
		)
		span.End()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Printf("[WakeServer] [session %s] read error: %v", sess.id, err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			if err := sess.processAudio(data, span); err != nil {
				log.Printf("[WakeServer] [session %s] %v", sess.id, err)
				return
			}
		case websocket.TextMessage:
			// "RESET" starts a fresh stream on the same connection.
			if string(data) == "RESET" {
				sess.chunker.Reset()
				if err := sess.scorer.Reset(); err != nil {
					log.Printf("[WakeServer] [session %s] reset failed: %v", sess.id, err)
					return
				}
			}
		}
	}
}

// processAudio re-frames one binary message and scores every completed
// frame. A scorer failure is fatal to the session, matching the
// pipeline's no-retry posture; a malformed frame is skipped.
func (sess *session) processAudio(data []byte, span oteltrace.Span) error {
	sess.chunker.Write(data)

	for {
		frame := sess.chunker.NextFrame()
		if frame == nil {
			return nil
		}

		samples, err := audio.FrameToFloat32(frame)
		if err != nil {
			log.Printf("[WakeServer] [session %s] skipping malformed frame: %v", sess.id, err)
			continue
		}

		scores, err := sess.scorer.Score(samples)
		if err != nil {
			return fmt.Errorf("score frame: %w", err)
		}
		sess.frames++

		score := scores[sess.keyword]
		if !sess.policy.Observe(score) {
			continue
		}
		sess.wakes++
		trace.AddEvent(span, "wake",
			attribute.Float64(trace.AttrScore, float64(score)),
		)

		if err := sess.conn.WriteMessage(websocket.TextMessage, []byte("WAKE")); err != nil {
			return fmt.Errorf("write wake event: %w", err)
		}
	}
}

// registerSession adds a session to the registry.
func (s *WakeServer) registerSession(sess *session, clientIP string) {
	s.sessionsMu.Lock()
	s.sessions[sess.id] = sess
	s.sessionsMu.Unlock()

	s.ipSessionsMu.Lock()
	s.ipSessions[clientIP]++
	s.ipSessionsMu.Unlock()
}

// unregisterSession removes a session from the registry.
func (s *WakeServer) unregisterSession(sess *session, clientIP string) {
	s.sessionsMu.Lock()
	delete(s.sessions, sess.id)
	s.sessionsMu.Unlock()

	s.ipSessionsMu.Lock()
	if s.ipSessions[clientIP] > 0 {
		s.ipSessions[clientIP]--
	}
	s.ipSessionsMu.Unlock()

	sess.cancel()
	log.Printf("[WakeServer] [session %s] closed after %d frames, %d wakes", sess.id, sess.frames, sess.wakes)
}

// getClientIP extracts the client IP from a request.
func getClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
