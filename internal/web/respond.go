package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tableside/internal/models"
)

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto an HTTP status and writes the standard
// error envelope.
func WriteError(w http.ResponseWriter, err error, requestID string) {
	WriteJSON(w, StatusForError(err), map[string]interface{}{
		"error":      err.Error(),
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	})
}

// StatusForError translates the engine's error taxonomy into HTTP statuses.
// Business-rule failures are 400s the UI can act on; absence is 404; anything
// unrecognized is a 500.
func StatusForError(err error) int {
	var validationErr models.ValidationError
	var stockErr models.InsufficientStockError
	var declinedErr models.PaymentDeclinedError

	switch {
	case errors.As(err, &validationErr),
		errors.As(err, &stockErr),
		errors.As(err, &declinedErr),
		errors.Is(err, models.ErrCannotRemove),
		errors.Is(err, models.ErrEmptyCart),
		errors.Is(err, models.ErrCouponExhausted),
		errors.Is(err, models.ErrInvalidSignature):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrLineNotFound),
		errors.Is(err, models.ErrCouponNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
