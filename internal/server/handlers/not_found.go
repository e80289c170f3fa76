package handlers

import (
	"net/http"

	apperrors "github.com/3leaps/floratings/internal/errors"
)

// RespondNotFound writes a structured 404 envelope, used as the router's
// NotFound handler.
func RespondNotFound(w http.ResponseWriter, r *http.Request) {
	envelope := apperrors.NewErrorEnvelope(apperrors.CodeNotFound, "resource not found")
	apperrors.WriteJSON(w, http.StatusNotFound, envelope)
}

// RespondMethodNotAllowed writes a structured 405 envelope, used as the
// router's MethodNotAllowed handler.
func RespondMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	envelope := apperrors.NewErrorEnvelope(apperrors.CodeMethodNotAllowed, "method not allowed")
	apperrors.WriteJSON(w, http.StatusMethodNotAllowed, envelope)
}
