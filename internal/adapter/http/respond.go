package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/YelzhanWeb/fulfillment/internal/adapter/logger"
	"github.com/YelzhanWeb/fulfillment/internal/domain"
)

type ErrorResponse struct {
	Error  string                   `json:"error"`
	Errors []domain.ValidationError `json:"errors,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadySettled),
		errors.Is(err, domain.ErrStaleDraft),
		errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(w http.ResponseWriter, r *http.Request, lgr logger.Logger, err error) {
	status := statusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "Validation failed"
		resp.Errors = []domain.ValidationError{*verr}
	}

	if status == http.StatusInternalServerError {
		lgr.Error("request_failed", "Request failed", logger.RequestIDFrom(r.Context()), map[string]interface{}{
			"path": r.URL.Path,
		}, err)
		resp.Error = "Internal server error"
	}

	respondJSON(w, status, resp)
}

func decodeBody(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.NewValidationError("body", "invalid request body")
	}
	return nil
}
