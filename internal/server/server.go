// Package server serves demo fixtures to a browser. Each page load opens a
// session holding a live fixture; the page mirrors the fixture markup and
// forwards DOM events over a websocket, so browser environments can drive
// the same components the in-process testbed does.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/harness/internal/config"
	"github.com/conneroisu/harness/internal/errors"
	"github.com/conneroisu/harness/internal/logging"
	"github.com/conneroisu/harness/internal/registry"
	"github.com/conneroisu/harness/internal/scheduler"
	"github.com/conneroisu/harness/internal/version"
)

// Server serves the fixture catalog and live fixture sessions.
type Server struct {
	config   atomic.Pointer[config.Config]
	registry *registry.FixtureRegistry
	logger   logging.Logger

	sessionsMutex sync.RWMutex
	sessions      map[string]*Session

	serverMutex sync.Mutex
	httpServer  *http.Server
	listener    net.Listener
}

// New creates a server for the fixtures in reg.
func New(cfg *config.Config, reg *registry.FixtureRegistry, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		registry: reg,
		logger:   logger.WithComponent("server"),
		sessions: make(map[string]*Session),
	}
	s.config.Store(cfg)
	return s
}

// Config returns the configuration in effect.
func (s *Server) Config() *config.Config { return s.config.Load() }

// UpdateConfig replaces the configuration. Sessions opened afterwards use
// the new stabilize settings; the listen address is not changed.
func (s *Server) UpdateConfig(cfg *config.Config) {
	s.config.Store(cfg)
	s.logger.Info(context.Background(), "configuration reloaded", "mode", cfg.Stabilize.Mode)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /fixtures/{name}", s.handleFixture)
	mux.HandleFunc("GET /api/fixtures", s.handleFixtures)
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	return Chain(mux, s.recoveryMiddleware, s.loggingMiddleware)
}

// Listen binds the configured address. Port 0 picks a free port.
func (s *Server) Listen() (net.Addr, error) {
	cfg := s.Config()
	ln, err := net.Listen("tcp", fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
	if err != nil {
		return nil, errors.NewInternalError("failed to listen", err)
	}
	s.serverMutex.Lock()
	s.listener = ln
	s.serverMutex.Unlock()
	return ln.Addr(), nil
}

// Serve serves until ctx is cancelled, then shuts down gracefully. It calls
// Listen if that has not happened yet.
func (s *Server) Serve(ctx context.Context) error {
	s.serverMutex.Lock()
	ln := s.listener
	s.serverMutex.Unlock()
	if ln == nil {
		if _, err := s.Listen(); err != nil {
			return err
		}
		s.serverMutex.Lock()
		ln = s.listener
		s.serverMutex.Unlock()
	}

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.serverMutex.Lock()
	s.httpServer = srv
	s.serverMutex.Unlock()

	go s.watchRegistry(ctx, s.registry.Watch())

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info(ctx, "serving fixtures", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	}
}

// Shutdown stops the HTTP server and closes every session.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMutex.Lock()
	srv := s.httpServer
	s.serverMutex.Unlock()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}

	s.sessionsMutex.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.sessionsMutex.Unlock()
	for _, session := range sessions {
		session.Close()
	}
	return err
}

// watchRegistry closes sessions whose fixture is removed from the catalog.
func (s *Server) watchRegistry(ctx context.Context, events <-chan registry.FixtureEvent) {
	defer s.registry.UnWatch(events)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			s.logger.Info(ctx, "fixture catalog changed", "fixture", event.Fixture.Name, "event", event.Type.String())
			if event.Type == registry.EventTypeRemoved {
				s.closeSessions(event.Fixture.Name)
			}
		}
	}
}

func (s *Server) closeSessions(fixture string) {
	s.sessionsMutex.Lock()
	var closing []*Session
	for id, session := range s.sessions {
		if session.Fixture == fixture {
			closing = append(closing, session)
			delete(s.sessions, id)
		}
	}
	s.sessionsMutex.Unlock()

	for _, session := range closing {
		session.Close()
	}
}

// NewSession opens a session on the named fixture.
func (s *Server) NewSession(ctx context.Context, name string) (*Session, error) {
	info, ok := s.registry.Get(name)
	if !ok {
		return nil, errors.NewNoMatchError("fixture " + name)
	}

	cfg := s.Config()
	mode, err := scheduler.ParseMode(cfg.Stabilize.Mode)
	if err != nil {
		return nil, err
	}
	// Virtual time never advances in a live page.
	if mode == scheduler.VirtualTime {
		mode = scheduler.Plain
	}

	session, err := newSession(ctx, info, scheduler.New(mode, cfg.Stabilize.FlushLimit), s.logger)
	if err != nil {
		return nil, err
	}
	s.sessionsMutex.Lock()
	s.sessions[session.ID] = session
	s.sessionsMutex.Unlock()

	s.logger.Debug(ctx, "session opened", "session", session.ID, "fixture", name, "mode", mode.String())
	return session, nil
}

// Session returns an open session.
func (s *Server) Session(id string) (*Session, bool) {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

// SessionCount returns the number of open sessions.
func (s *Server) SessionCount() int {
	s.sessionsMutex.RLock()
	defer s.sessionsMutex.RUnlock()
	return len(s.sessions)
}

func (s *Server) removeSession(id string) {
	s.sessionsMutex.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.sessionsMutex.Unlock()
	if ok {
		session.Close()
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexPage(s.registry.GetAll()).Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "failed to render index")
	}
}

func (s *Server) handleFixture(w http.ResponseWriter, r *http.Request) {
	session, err := s.NewSession(r.Context(), r.PathValue("name"))
	if err != nil {
		if errors.Is(err, errors.ErrNoMatch) {
			http.Error(w, "Fixture not found", http.StatusNotFound)
			return
		}
		s.logger.Error(r.Context(), err, "failed to open session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	markup, err := session.Render(r.Context())
	if err != nil {
		s.removeSession(session.ID)
		s.logger.Error(r.Context(), err, "failed to render fixture")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := fixturePage(session, markup).Render(r.Context(), w); err != nil {
		s.logger.Error(r.Context(), err, "failed to write fixture page")
	}
}

type fixtureSummary struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Harnesses   []string `json:"harnesses"`
}

func (s *Server) handleFixtures(w http.ResponseWriter, r *http.Request) {
	all := s.registry.GetAll()
	out := make([]fixtureSummary, len(all))
	for i, f := range all {
		out[i] = fixtureSummary{Name: f.Name, Description: f.Description, Harnesses: f.Harnesses}
	}
	s.writeJSON(w, r, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"version":    version.GetShortVersion(),
		"build_info": version.GetBuildInfo(),
		"fixtures":   s.registry.Count(),
		"sessions":   s.SessionCount(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), err, "failed to encode response")
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("session")
	session, ok := s.Session(id)
	if !ok {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if !session.attached.CompareAndSwap(false, true) {
		http.Error(w, "Session already attached", http.StatusConflict)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionDisabled,
	})
	if err != nil {
		s.logger.Warn(r.Context(), err, "websocket upgrade failed", "session", id)
		s.removeSession(id)
		return
	}
	defer s.removeSession(id)

	if err := session.serve(r.Context(), conn); err != nil {
		s.logger.Warn(r.Context(), err, "session ended with error", "session", id)
		conn.Close(websocket.StatusInternalError, "session error")
		return
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
