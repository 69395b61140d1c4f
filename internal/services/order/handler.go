package order

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/web"
)

// Handler handles order settlement HTTP requests
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// Routes mounts the order endpoints.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Create)
	r.Get("/", h.List)
	return r
}

// Create handles POST /orders.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON"}, requestID)
		return
	}

	response, err := h.service.CreateOrder(r.Context(), &req, clientIP(r), requestID)
	if err != nil {
		h.logger.Error("create_order_failed", "Failed to settle order", requestID, err, map[string]interface{}{
			"payment_method": req.PaymentMethod,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusCreated, response)
}

// List handles GET /orders?limit=N.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.service.ListOrders(r.Context(), limit)
	if err != nil {
		h.logger.Error("list_orders_failed", "Failed to list orders", requestID, err, nil)
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"orders": orders})
}

// clientIP prefers the originating address from X-Forwarded-For; the header
// may carry the whole proxy chain, so only the first hop counts.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if i := strings.Index(forwarded, ","); i >= 0 {
			forwarded = forwarded[:i]
		}
		return strings.TrimSpace(forwarded)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
