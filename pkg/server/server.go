// Package server implements the kernel's optional introspection HTTP
// endpoint: health, loaded skills/commands, a one-shot route test, and a
// Prometheus metrics passthrough. Grounded on the teacher's
// pkg/server/http.go, stripped of its A2A/gRPC agent-serving surface
// (out of scope here — the kernel serves one process, not a fleet of
// agent endpoints) down to the stdlib http.ServeMux + middleware-chain
// shape that surface was itself built on.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/invopop/jsonschema"

	"github.com/omnikernel/kernel/pkg/config"
	"github.com/omnikernel/kernel/pkg/evolution"
	"github.com/omnikernel/kernel/pkg/homeostasis"
	"github.com/omnikernel/kernel/pkg/kernel"
	"github.com/omnikernel/kernel/pkg/observability"
	"github.com/omnikernel/kernel/pkg/router"
)

// Dependencies are the components the introspection endpoint reports on.
// Any field may be nil; the corresponding routes report unavailable
// rather than panicking.
type Dependencies struct {
	Kernel        *kernel.Kernel
	Router        *router.Router
	Evolution     *evolution.Manager
	Homeostasis   *homeostasis.Manager
	Observability *observability.Manager
}

// Server is the kernel's introspection HTTP server.
type Server struct {
	cfg  config.ServerConfig
	deps Dependencies

	mu     sync.RWMutex
	server *http.Server
}

// New constructs a Server. Call SetDependencies once the engine has
// finished wiring its components (deps may arrive after New, the way the
// teacher's UpdateExecutors rewires handlers after a hot reload).
func New(cfg config.ServerConfig, deps Dependencies) *Server {
	if cfg.Address == "" {
		cfg.SetDefaults()
	}
	return &Server{cfg: cfg, deps: deps}
}

// SetDependencies atomically replaces the components routes report on.
func (s *Server) SetDependencies(deps Dependencies) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deps = deps
}

func (s *Server) snapshot() Dependencies {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deps
}

// Start blocks serving HTTP until ctx is cancelled or ListenAndServe fails.
func (s *Server) Start(ctx context.Context) error {
	mux := s.routes()

	var handler http.Handler = mux
	handler = s.loggingMiddleware(handler)
	handler = s.corsMiddleware(handler)

	deps := s.snapshot()
	if deps.Observability != nil {
		handler = observability.HTTPMiddleware(deps.Observability.Tracer(), deps.Observability.Metrics())(handler)
	}

	httpServer := &http.Server{
		Addr:         s.cfg.Address,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	s.mu.Lock()
	s.server = httpServer
	s.mu.Unlock()

	slog.Info("introspection server starting", "address", s.cfg.Address)

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	httpServer := s.server
	s.mu.RUnlock()
	if httpServer == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/skills", s.handleSkills)
	mux.HandleFunc("/commands", s.handleCommands)
	mux.HandleFunc("/route", s.handleRoute)
	mux.HandleFunc("/evolution/status", s.handleEvolutionStatus)
	mux.HandleFunc("/api/schema", s.handleSchema)

	deps := s.snapshot()
	if deps.Observability != nil && deps.Observability.MetricsEnabled() {
		mux.Handle(deps.Observability.MetricsEndpoint(), deps.Observability.MetricsHandler())
	}
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSkills lists every command grouped by the skill that owns it.
func (s *Server) handleSkills(w http.ResponseWriter, _ *http.Request) {
	deps := s.snapshot()
	if deps.Kernel == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "kernel not wired"})
		return
	}

	grouped := make(map[string][]string)
	for _, c := range deps.Kernel.ListCommands() {
		grouped[c.SkillName] = append(grouped[c.SkillName], c.Name)
	}
	writeJSON(w, http.StatusOK, map[string]any{"skills": grouped})
}

// handleCommands lists core and dynamic commands separately, the same
// split the Agent Loop's adaptive tool schema sees.
func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	deps := s.snapshot()
	if deps.Kernel == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "kernel not wired"})
		return
	}

	toNames := func(cmds []*kernel.Command) []string {
		names := make([]string, len(cmds))
		for i, c := range cmds {
			names[i] = c.QualifiedName()
		}
		return names
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"core":    toNames(deps.Kernel.GetCoreCommands()),
		"dynamic": toNames(deps.Kernel.GetDynamicCommands()),
	})
}

// handleRoute runs one query through the routing pipeline and reports the
// result, for operators to sanity-check tool selection without a full
// Agent Loop task.
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	deps := s.snapshot()
	if deps.Router == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "router not wired"})
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing required query parameter q"})
		return
	}

	result, err := deps.Router.Route(r.Context(), query)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleEvolutionStatus(w http.ResponseWriter, _ *http.Request) {
	deps := s.snapshot()
	if deps.Evolution == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "evolution manager not wired"})
		return
	}
	writeJSON(w, http.StatusOK, deps.Evolution.GetEvolutionStatus())
}

// handleSchema reflects config.Config into JSON Schema, for a config
// editor UI the way the teacher's config builder consumes it.
func (s *Server) handleSchema(w http.ResponseWriter, _ *http.Request) {
	reflector := &jsonschema.Reflector{DoNotReference: true}
	schema := reflector.Reflect(&config.Config{})
	schema.Title = "Omnikernel Configuration Schema"
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(schema); err != nil {
		http.Error(w, fmt.Sprintf("failed to encode schema: %v", err), http.StatusInternalServerError)
	}
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("introspection request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
