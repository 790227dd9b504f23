// Package server provides the HTTP transport for the detector status overlay,
// the live event stream and the transcript builder.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Config holds the server configuration.
type Config struct {
	StaticDir string
	Store     *store.Store
	App       *app.App
	// Frames feeds the MJPEG preview. Defaults to the App.
	Frames FrameProvider
}

// Server represents the HTTP server for the mudra application.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
	log    *zap.Logger
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	if config.Frames == nil && config.App != nil {
		config.Frames = config.App
	}

	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
		log:    zap.L().Named("server"),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Detector routes need the App
	if s.config.App != nil {
		d := &detectorHandler{app: s.config.App, log: s.log}
		s.mux.HandleFunc("/api/status", d.status)
		s.mux.HandleFunc("/api/history", d.history)
		s.mux.HandleFunc("/api/tokens", d.tokens)
		s.mux.HandleFunc("/api/transcript", d.transcript)
		s.mux.HandleFunc("/api/detector/start", d.start)
		s.mux.HandleFunc("/api/detector/stop", d.stop)
		s.mux.HandleFunc("/api/detector/restart", d.restart)
		s.mux.Handle("/api/events", NewEventsHandler(s.config.App))
	}

	// Register session API handler if Store is configured
	if s.config.Store != nil {
		cfg := config.Default().History
		if s.config.App != nil {
			cfg = s.config.App.Config().History
		}
		sessions := api.NewSessionHandler(s.config.Store, cfg)
		s.mux.Handle("/api/sessions", sessions)
		s.mux.Handle("/api/sessions/", sessions)
	}

	// Camera preview of the detector's latest sample
	if s.config.Frames != nil {
		s.mux.Handle("/api/stream", NewStreamHandler(s.config.Frames))
	}

	// Serve static files if StaticDir is configured
	if s.config.StaticDir != "" {
		fs := http.FileServer(http.Dir(s.config.StaticDir))
		s.mux.Handle("/", fs)
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]any{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// Handler returns an http.Server for addr serving s.
func (s *Server) Handler(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	return s.Handler(addr).ListenAndServe()
}
