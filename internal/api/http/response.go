package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"vehirent-backend/internal/domain"
	"vehirent-backend/internal/logger"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error     string          `json:"error"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
	Category  domain.Category `json:"category"`

	AlreadyCompleted bool `json:"alreadyCompleted,omitempty"`
	AlreadySubmitted bool `json:"alreadySubmitted,omitempty"`
}

var statusByCategory = map[domain.Category]int{
	domain.CategoryValidation:        http.StatusBadRequest,
	domain.CategoryPermissionDenied:  http.StatusForbidden,
	domain.CategoryCapturePermission: http.StatusUnprocessableEntity,
	domain.CategoryNotFound:          http.StatusNotFound,
	domain.CategoryUnavailable:       http.StatusServiceUnavailable,
	// Duplicates are an outcome the client shows as information, not a failure.
	domain.CategoryDuplicate: http.StatusOK,
	domain.CategoryInternal:  http.StatusInternalServerError,
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Debug("Failed to write response", "error", err)
	}
}

// respondError maps err onto the error taxonomy and writes the payload.
func respondError(w http.ResponseWriter, err error) {
	category := domain.Classify(err)
	body := ErrorResponse{
		Error:     err.Error(),
		Message:   domain.UserMessage(err),
		Retryable: domain.IsRetryable(err),
		Category:  category,
	}
	switch {
	case errors.Is(err, domain.ErrAlreadyReviewed):
		body.AlreadySubmitted = true
	case category == domain.CategoryDuplicate:
		body.AlreadyCompleted = true
	case category == domain.CategoryInternal:
		logger.Error("Unhandled error", "error", err)
		body.Error = "internal error"
	}
	respond(w, statusByCategory[category], body)
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(domain.ErrValidation, err)
	}
	return nil
}
