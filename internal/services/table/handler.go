package table

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/web"
)

// Handler handles HTTP requests for the table workflow
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new table workflow handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// Routes mounts the workflow endpoints. The cart router, when given, is
// mounted under /{tableID}/cart so the whole /tables subtree lives in one
// place.
func (h *Handler) Routes(cart chi.Router) chi.Router {
	r := chi.NewRouter()
	r.Post("/{tableID}/advance", h.Advance)
	r.Post("/{tableID}/regress", h.Regress)
	r.Post("/{tableID}/request", h.SendRequest)
	r.Post("/{tableID}/notice/ack", h.AcknowledgeNotice)
	r.Post("/swap", h.Swap)
	if cart != nil {
		r.Mount("/{tableID}/cart", cart)
	}
	return r
}

// Advance handles POST /tables/{tableID}/advance
func (h *Handler) Advance(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	tableID, err := pathTableID(r)
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}

	table, err := h.service.Advance(r.Context(), tableID, requestID)
	if err != nil {
		h.logger.Error("table_advance_failed", "Failed to advance table", requestID, err, map[string]interface{}{
			"table_id": tableID,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": table})
}

// Regress handles POST /tables/{tableID}/regress
func (h *Handler) Regress(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	tableID, err := pathTableID(r)
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}

	table, err := h.service.Regress(r.Context(), tableID, requestID)
	if err != nil {
		h.logger.Error("table_regress_failed", "Failed to regress table", requestID, err, map[string]interface{}{
			"table_id": tableID,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"data": table})
}

// SendRequest handles POST /tables/{tableID}/request
func (h *Handler) SendRequest(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	tableID, err := pathTableID(r)
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}

	if err := h.service.SendRequest(r.Context(), tableID, requestID); err != nil {
		h.logger.Error("table_request_failed", "Failed to send kitchen request", requestID, err, map[string]interface{}{
			"table_id": tableID,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// AcknowledgeNotice handles POST /tables/{tableID}/notice/ack
func (h *Handler) AcknowledgeNotice(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	tableID, err := pathTableID(r)
	if err != nil {
		web.WriteError(w, err, requestID)
		return
	}

	if err := h.service.AcknowledgeNotice(r.Context(), tableID, requestID); err != nil {
		h.logger.Error("table_notice_ack_failed", "Failed to acknowledge notice", requestID, err, map[string]interface{}{
			"table_id": tableID,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

// Swap handles POST /tables/swap
func (h *Handler) Swap(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	var req struct {
		TableA int64 `json:"table_a"`
		TableB int64 `json:"table_b"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		web.WriteError(w, models.ValidationError{Field: "body", Message: "invalid JSON format"}, requestID)
		return
	}

	if err := h.service.Swap(r.Context(), req.TableA, req.TableB, requestID); err != nil {
		h.logger.Error("table_swap_failed", "Failed to swap tables", requestID, err, map[string]interface{}{
			"table_a": req.TableA,
			"table_b": req.TableB,
		})
		web.WriteError(w, err, requestID)
		return
	}

	web.WriteJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func pathTableID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "tableID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, models.ValidationError{Field: "tableID", Message: "must be a positive integer"}
	}
	return id, nil
}
