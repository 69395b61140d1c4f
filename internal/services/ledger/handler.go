package ledger

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tableside/internal/logger"
	"tableside/internal/web"
)

// Handler serves inventory reads
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes mounts the inventory endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/low-stock", h.LowStock)
	return r
}

// LowStock handles GET /ingredients/low-stock, the back-office view of every
// ingredient below its safe threshold.
func (h *Handler) LowStock(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	alerts, err := h.service.LowStock(r.Context())
	if err != nil {
		h.logger.Error("low_stock_read_failed", "Failed to list low stock ingredients", requestID, err, nil)
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": alerts})
}
