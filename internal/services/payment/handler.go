package payment

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"tableside/internal/config"
	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/web"
)

// Handler handles the gateway's return callback
type Handler struct {
	service    *Service
	successURL string
	failureURL string
	logger     *logger.Logger
}

// NewHandler creates a new payment callback handler
func NewHandler(service *Service, cfg config.PaymentConfig, log *logger.Logger) *Handler {
	return &Handler{
		service:    service,
		successURL: cfg.SuccessURL,
		failureURL: cfg.FailureURL,
		logger:     log,
	}
}

// Routes mounts the callback endpoint.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/return", h.Return)
	return r
}

// Return handles GET /payments/return, the browser redirect back from the
// gateway. A forged signature is a hard 400 with no state change; a declined
// payment sends the customer to the failure page with the order untouched.
func (h *Handler) Return(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	outcome, err := h.service.HandleCallback(r.Context(), r.URL.Query(), requestID)
	if err != nil {
		var declined models.PaymentDeclinedError
		switch {
		case errors.Is(err, models.ErrInvalidSignature):
			h.logger.Error("callback_rejected", "Gateway callback failed signature check", requestID, err, map[string]interface{}{
				"remote_addr": r.RemoteAddr,
			})
			web.WriteError(w, err, requestID)
		case errors.As(err, &declined):
			h.logger.Info("payment_declined", "Gateway declined the payment", requestID, map[string]interface{}{
				"response_code": declined.Code,
			})
			http.Redirect(w, r, fmt.Sprintf("%s?code=%s", h.failureURL, declined.Code), http.StatusFound)
		default:
			h.logger.Error("callback_failed", "Failed to process gateway callback", requestID, err, nil)
			web.WriteError(w, err, requestID)
		}
		return
	}

	http.Redirect(w, r, fmt.Sprintf("%s?orderId=%s", h.successURL, outcome.OrderID), http.StatusFound)
}
