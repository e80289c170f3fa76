// Package middleware provides HTTP middleware shared by internal/server:
// panic recovery rendered as a structured error envelope, and request ID
// propagation.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/3leaps/floratings/internal/errors"
)

type contextKey string

const requestIDKey contextKey = "request_id"

// ErrorResponse is the JSON shape written by Recovery and writeErrorResponse.
type ErrorResponse struct {
	Error apperrors.ErrorEnvelope `json:"error"`
}

// RequestID reads X-Request-ID (or generates none) and stores it on the
// request context for downstream handlers and the Recovery middleware.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id != "" {
			r = r.WithContext(context.WithValue(r.Context(), requestIDKey, id))
		}
		next.ServeHTTP(w, r)
	})
}

// requestIDFrom returns the request ID stashed by RequestID, or "".
func requestIDFrom(r *http.Request) string {
	if id, ok := r.Context().Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Recovery recovers from a panic in next, rendering it as a 500 structured
// error envelope instead of crashing the connection.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				envelope := apperrors.NewErrorEnvelope(apperrors.CodeInternal, fmt.Sprintf("panic: %v", rec))
				envelope.WithRequestID(requestIDFrom(r))
				writeErrorResponse(w, envelope, http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// ErrorHandler is an alias for Recovery; kept distinct so callers can name
// their intent (catching panics vs handling errors) even though today they
// share an implementation.
func ErrorHandler(next http.Handler) http.Handler {
	return Recovery(next)
}

// writeErrorResponse writes envelope as an ErrorResponse with statusCode.
func writeErrorResponse(w http.ResponseWriter, envelope *apperrors.ErrorEnvelope, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: *envelope})
}
