package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"markestedt/sonarkey/combo"
	"markestedt/sonarkey/storage"
)

//go:embed static/*
var staticFiles embed.FS

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Dashboard is served on localhost only
	},
}

// Status is the agent state reported to the dashboard
type Status struct {
	SessionID   string `json:"sessionId"`
	Hook        string `json:"hook"` // starting, active, feed_lost or stopped
	Matched     bool   `json:"matched"`
	Capturing   bool   `json:"capturing"`
	Combination string `json:"combination"`
	Engagements int64  `json:"engagements"`
	Uptime      string `json:"uptime"`
}

// Controller is the part of the agent the dashboard can drive
type Controller interface {
	Status() Status
	Combination() combo.Combination
	EffectMode() string
	ApplyCombination(c combo.Combination) error
	StartCapture() error
	CancelCapture() bool
}

// Server represents the web server
type Server struct {
	db   *storage.DB // nil when history is disabled
	ctrl Controller
	port int
	hub  *Hub
}

// NewServer creates a new web server
func NewServer(db *storage.DB, ctrl Controller, port int) *Server {
	return &Server{
		db:   db,
		ctrl: ctrl,
		port: port,
		hub:  NewHub(),
	}
}

// Handler returns the HTTP routes
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	// API endpoints
	mux.HandleFunc("/api/config", s.handleConfig)
	mux.HandleFunc("/api/capture", s.handleCapture)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/history", s.handleHistory)
	mux.HandleFunc("/api/history/", s.handleHistory)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ws", s.handleWebSocket)

	// Static files
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to load static files: %w", err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticFS)))

	return mux, nil
}

// Start runs the web server until ctx is done
func (s *Server) Start(ctx context.Context) error {
	handler, err := s.Handler()
	if err != nil {
		return err
	}

	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf("127.0.0.1:%d", s.port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Starting web server", "port", s.port, "url", s.URL())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// URL returns the dashboard address
func (s *Server) URL() string {
	return fmt.Sprintf("http://localhost:%d", s.port)
}

// BroadcastStatus broadcasts a status update to all connected clients
func (s *Server) BroadcastStatus(status Status) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeStatus,
		Data: status,
	})
}

// BroadcastTransition broadcasts a recorded transition to all connected clients
func (s *Server) BroadcastTransition(t *storage.Transition) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeTransition,
		Data: TransitionMessage{
			Kind:        t.Kind,
			Combination: t.Combination,
			TriggerKey:  t.TriggerKey,
			HeldMs:      t.HeldMs,
			Timestamp:   t.Timestamp.UTC().Format(time.RFC3339Nano),
		},
	})
}

// BroadcastCapture announces the key picked by key capture
func (s *Server) BroadcastCapture(key combo.Key, c combo.Combination) {
	s.hub.BroadcastMessage(Message{
		Type: MessageTypeCapture,
		Data: CaptureMessage{Key: key.String(), Combination: c.String()},
	})
}

// handleWebSocket handles WebSocket connections
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket connection", "error", err)
		return
	}

	client := &Client{
		hub:  s.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	if !s.hub.Register(client) {
		conn.Close()
		return
	}

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}
