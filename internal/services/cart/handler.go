package cart

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/web"
)

// Handler handles HTTP requests for cart mutations
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new cart handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// Routes mounts the cart endpoints under /tables/{tableID}/cart.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.GetCart)
	r.Post("/", h.AddToCart)
	r.Patch("/{productID}", h.SetQuantity)
	r.Delete("/{productID}", h.RemoveFromCart)
	return r
}

type mutateRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// GetCart handles GET /tables/{tableID}/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	tableID, err := pathID(r, "tableID")
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}

	lines, err := h.service.Cart(r.Context(), tableID)
	if err != nil {
		h.logger.Error("cart_read_failed", "Failed to read cart", requestID, err, map[string]interface{}{
			"table_id": tableID,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": lines})
}

// AddToCart handles POST /tables/{tableID}/cart
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	tableID, err := pathID(r, "tableID")
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}

	var req mutateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}

	line, err := h.service.AddToCart(r.Context(), tableID, req.ProductID, req.Quantity, requestID)
	if err != nil {
		h.logger.Error("cart_add_failed", "Failed to add to cart", requestID, err, map[string]interface{}{
			"table_id":   tableID,
			"product_id": req.ProductID,
			"quantity":   req.Quantity,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": line})
}

// SetQuantity handles PATCH /tables/{tableID}/cart/{productID}
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	tableID, err := pathID(r, "tableID")
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}

	if err := h.service.SetQuantity(r.Context(), tableID, productID, req.Quantity, requestID); err != nil {
		h.logger.Error("cart_set_failed", "Failed to set cart quantity", requestID, err, map[string]interface{}{
			"table_id":   tableID,
			"product_id": productID,
			"quantity":   req.Quantity,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// RemoveFromCart handles DELETE /tables/{tableID}/cart/{productID}?quantity=N
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	tableID, err := pathID(r, "tableID")
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}
	productID, err := pathID(r, "productID")
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}

	qty := 1
	if raw := r.URL.Query().Get("quantity"); raw != "" {
		qty, err = strconv.Atoi(raw)
		if err != nil {
			web.WriteError(w, models.ValidationError{Field: "quantity", Message: "quantity must be an integer"}, requestID)
			return
		}
	}

	if err := h.service.RemoveFromCart(r.Context(), tableID, productID, qty, requestID); err != nil {
		h.logger.Error("cart_remove_failed", "Failed to remove from cart", requestID, err, map[string]interface{}{
			"table_id":   tableID,
			"product_id": productID,
			"quantity":   qty,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}
