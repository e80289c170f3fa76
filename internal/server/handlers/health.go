// Package handlers implements the HTTP handlers mounted by internal/server:
// liveness/readiness/startup health checks, the error-responder seam
// (SetHTTPErrorResponder), and the router's NotFound/MethodNotAllowed
// handlers, which write their envelopes through internal/errors directly.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	apperrors "github.com/3leaps/floratings/internal/errors"
)

// Checker reports whether a dependency is healthy.
type Checker interface {
	CheckHealth(ctx context.Context) error
}

// HealthResponse is the JSON body written by HealthManager.HealthHandler.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthManager tracks named Checkers and renders their aggregate status.
type HealthManager struct {
	version string

	mu       sync.RWMutex
	checkers map[string]Checker
}

// NewHealthManager constructs a HealthManager reporting version in its
// responses.
func NewHealthManager(version string) *HealthManager {
	return &HealthManager{version: version, checkers: make(map[string]Checker)}
}

// RegisterChecker adds or replaces the checker registered under name.
func (m *HealthManager) RegisterChecker(name string, checker Checker) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.checkers[name] = checker
}

func (m *HealthManager) runChecks(ctx context.Context) map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make(map[string]string, len(m.checkers))
	for name, checker := range m.checkers {
		if err := checker.CheckHealth(ctx); err != nil {
			results[name] = "unhealthy"
			continue
		}
		results[name] = "healthy"
	}
	return results
}

// determineOverallStatus reduces per-checker statuses to an aggregate:
// "healthy" if every check is healthy, "degraded" if every failing check
// reports "timeout", otherwise "unhealthy".
func (m *HealthManager) determineOverallStatus(checks map[string]string) string {
	healthy := true
	degradedOnly := true
	for _, status := range checks {
		if status != "healthy" {
			healthy = false
		}
		if status != "healthy" && status != "timeout" {
			degradedOnly = false
		}
	}
	if healthy {
		return "healthy"
	}
	if degradedOnly {
		return "degraded"
	}
	return "unhealthy"
}

// HealthHandler writes the aggregate health status: 200 if healthy or
// degraded, 503 with a structured error envelope if any check failed
// outright.
func (m *HealthManager) HealthHandler(w http.ResponseWriter, r *http.Request) {
	checks := m.runChecks(r.Context())
	status := m.determineOverallStatus(checks)

	if status == "unhealthy" {
		details := make(map[string]interface{}, 1)
		checksAny := make(map[string]interface{}, len(checks))
		for k, v := range checks {
			checksAny[k] = v
		}
		details["checks"] = checksAny
		envelope := apperrors.NewErrorEnvelope(apperrors.CodeServiceUnavail, "one or more health checks failed")
		envelope, _ = envelope.WithContext(details)
		apperrors.WriteJSON(w, http.StatusServiceUnavailable, envelope)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: status, Version: m.version, Checks: checks})
}

// LivenessHandler reports process liveness without running checkers: if
// the process can respond at all, it is alive.
func (m *HealthManager) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(HealthResponse{Status: "healthy", Version: m.version})
}

// ReadinessHandler reports whether registered dependencies are ready,
// reusing the same check set as HealthHandler.
func (m *HealthManager) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	m.HealthHandler(w, r)
}

// StartupHandler reports whether the process has completed startup; since
// this server has no distinct startup phase, it mirrors liveness.
func (m *HealthManager) StartupHandler(w http.ResponseWriter, r *http.Request) {
	m.LivenessHandler(w, r)
}

var globalHealthManager *HealthManager

// InitHealthManager sets the package-level HealthManager used by the
// global Health/Liveness/Readiness/Startup handlers below.
func InitHealthManager(version string) {
	globalHealthManager = NewHealthManager(version)
}

// GetHealthManager returns the package-level HealthManager, or nil if
// InitHealthManager has not been called.
func GetHealthManager() *HealthManager {
	return globalHealthManager
}

func respondUninitialized(w http.ResponseWriter) {
	envelope := apperrors.NewErrorEnvelope(apperrors.CodeServiceUnavail, "health manager not initialized")
	apperrors.WriteJSON(w, http.StatusServiceUnavailable, envelope)
}

// HealthHandler is the global health endpoint, delegating to the
// package-level manager.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		respondUninitialized(w)
		return
	}
	globalHealthManager.HealthHandler(w, r)
}

// LivenessHandler is the global liveness endpoint.
func LivenessHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		respondUninitialized(w)
		return
	}
	globalHealthManager.LivenessHandler(w, r)
}

// ReadinessHandler is the global readiness endpoint.
func ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		respondUninitialized(w)
		return
	}
	globalHealthManager.ReadinessHandler(w, r)
}

// StartupHandler is the global startup endpoint.
func StartupHandler(w http.ResponseWriter, r *http.Request) {
	if globalHealthManager == nil {
		respondUninitialized(w)
		return
	}
	globalHealthManager.StartupHandler(w, r)
}
