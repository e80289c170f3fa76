// Package server wires the HTTP surface exposed by the serve command: a
// static artifact server over the rating/leaderboard/graph JSON written by
// rate/leaderboard/graph, plus health and version endpoints.
package server

import (
	"fmt"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	apperrors "github.com/3leaps/floratings/internal/errors"
	"github.com/3leaps/floratings/internal/server/handlers"
	"github.com/3leaps/floratings/internal/server/middleware"
)

// Server serves the static build/ artifacts produced by rate, evaluate,
// leaderboard, and graph over HTTP, plus health and version endpoints.
type Server struct {
	host       string
	port       int
	outputDir  string
	version    string
	router     chi.Router
}

// New constructs a Server bound to host:port with its health and version
// endpoints only; it serves no static files.
func New(host string, port int) *Server {
	return NewWithOutputDir(host, port, "")
}

// NewWithOutputDir constructs a Server that serves static files from
// outputDir in addition to its health and version endpoints.
func NewWithOutputDir(host string, port int, outputDir string) *Server {
	s := &Server{host: host, port: port, outputDir: outputDir, version: "dev"}
	s.router = s.buildRouter()
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Addr returns the host:port this server listens on.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

// Handler returns the server's root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(chimiddleware.RealIP)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		handlers.RespondNotFound(w, req)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		handlers.RespondMethodNotAllowed(w, req)
	})

	r.Get("/version", func(w http.ResponseWriter, req *http.Request) {
		writeJSONOK(w, map[string]string{"version": s.version})
	})

	r.Get("/health", handlers.HealthHandler)
	r.Get("/health/live", handlers.LivenessHandler)
	r.Get("/health/ready", handlers.ReadinessHandler)
	r.Get("/health/startup", handlers.StartupHandler)

	registerAdminEndpoint(r)

	if s.outputDir != "" {
		fileServer := http.FileServer(http.Dir(s.outputDir))
		r.Handle("/*", http.StripPrefix("/", fileServer))
	}

	return r
}

func writeJSONOK(w http.ResponseWriter, body map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, `{"version":%q}`, body["version"])
}

// registerAdminEndpoint mounts POST /admin/signal behind a bearer token
// read from FLORATINGS_ADMIN_TOKEN. If the token is unset, the endpoint is
// not registered at all (requests 404 instead of 401), so its presence
// never leaks over an unauthenticated deployment.
func registerAdminEndpoint(r chi.Router) {
	token := os.Getenv("FLORATINGS_ADMIN_TOKEN")
	if token == "" {
		return
	}

	r.Post("/admin/signal", func(w http.ResponseWriter, req *http.Request) {
		auth := req.Header.Get("Authorization")
		if auth != "Bearer "+token {
			envelope := apperrors.NewErrorEnvelope("UNAUTHORIZED", "invalid or missing admin token")
			apperrors.WriteJSON(w, http.StatusUnauthorized, envelope)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"status":"acknowledged"}`))
	})
}
