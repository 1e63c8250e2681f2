package order

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/pricing"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Handler exposes the order service over HTTP. Tenant identity comes from
// the X-Restaurant-ID header; authentication is handled upstream.
type Handler struct {
	service *Service
	logger  *logger.Logger
	checks  map[string]HealthCheck
}

// NewHandler creates the HTTP handler. checks are probed by /health, keyed
// by dependency name.
func NewHandler(service *Service, log *logger.Logger, checks map[string]HealthCheck) *Handler {
	return &Handler{service: service, logger: log, checks: checks}
}

// RegisterRoutes attaches all order routes to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.withRequest(h.createOrder))
	mux.HandleFunc("GET /orders", h.withRequest(h.listOrders))
	mux.HandleFunc("GET /orders/{id}", h.withRequest(h.getOrder))
	mux.HandleFunc("PATCH /orders/{id}/status", h.withRequest(h.updateStatus))
	mux.HandleFunc("POST /orders/{id}/cancel", h.withRequest(h.cancelOrder))
	mux.HandleFunc("PATCH /orders/{id}/items/{itemID}/status", h.withRequest(h.updateItemStatus))
	mux.HandleFunc("POST /orders/{id}/tip", h.withRequest(h.recordTip))
	mux.HandleFunc("POST /orders/{id}/confirmation", h.withRequest(h.requeueConfirmation))
	mux.HandleFunc("GET /kitchen/queue", h.withRequest(h.kitchenQueue))
	mux.HandleFunc("GET /stats/today", h.withRequest(h.todayStats))
	mux.HandleFunc("GET /health", h.health)
}

type requestContext struct {
	requestID    string
	restaurantID uuid.UUID
	actor        string
}

// withRequest resolves tenant identity, assigns a request ID and logs the
// request once it completes.
func (h *Handler) withRequest(next func(http.ResponseWriter, *http.Request, requestContext)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rc := requestContext{
			requestID: logger.GenerateRequestID(),
			actor:     r.Header.Get("X-Actor-ID"),
		}
		if rc.actor == "" {
			rc.actor = "system"
		}

		restaurantID, err := uuid.Parse(r.Header.Get("X-Restaurant-ID"))
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "X-Restaurant-ID header must be a valid UUID")
			return
		}
		rc.restaurantID = restaurantID

		next(w, r, rc)

		h.logger.Debug("http_request", "Request handled", rc.requestID, map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, rc requestContext) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := h.service.CreateOrder(r.Context(), rc.requestID, rc.restaurantID, rc.actor, &req)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, rc requestContext) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "order id must be a valid UUID")
		return
	}

	order, err := h.service.GetOrder(r.Context(), rc.restaurantID, orderID)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request, rc requestContext) {
	filters, err := parseOrderFilters(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	orders, err := h.service.GetOrders(r.Context(), rc.restaurantID, filters)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders, "count": len(orders)})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, rc requestContext) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "order id must be a valid UUID")
		return
	}

	var body struct {
		Status models.OrderStatus `json:"status"`
		Notes  string             `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), rc.requestID, rc.restaurantID, orderID, body.Status, body.Notes, rc.actor)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, rc requestContext) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "order id must be a valid UUID")
		return
	}

	var body struct {
		Reason string `json:"reason"`
	}
	// Body is optional for cancellation.
	_ = json.NewDecoder(r.Body).Decode(&body)

	order, err := h.service.CancelOrder(r.Context(), rc.requestID, rc.restaurantID, orderID, body.Reason, rc.actor)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) updateItemStatus(w http.ResponseWriter, r *http.Request, rc requestContext) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "order id must be a valid UUID")
		return
	}
	itemID, err := uuid.Parse(r.PathValue("itemID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "item id must be a valid UUID")
		return
	}

	var body struct {
		Status models.ItemStatus `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := h.service.UpdateItemStatus(r.Context(), rc.requestID, rc.restaurantID, orderID, itemID, body.Status, rc.actor)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) recordTip(w http.ResponseWriter, r *http.Request, rc requestContext) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "order id must be a valid UUID")
		return
	}

	var body struct {
		TipAmount decimal.Decimal `json:"tip_amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	order, err := h.service.RecordTip(r.Context(), rc.requestID, rc.restaurantID, orderID, body.TipAmount)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) requeueConfirmation(w http.ResponseWriter, r *http.Request, rc requestContext) {
	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "order id must be a valid UUID")
		return
	}

	if err := h.service.RequeueConfirmation(r.Context(), rc.requestID, rc.restaurantID, orderID); err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
}

func (h *Handler) kitchenQueue(w http.ResponseWriter, r *http.Request, rc requestContext) {
	orders, err := h.service.GetKitchenQueue(r.Context(), rc.restaurantID)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{"orders": orders, "count": len(orders)})
}

func (h *Handler) todayStats(w http.ResponseWriter, r *http.Request, rc requestContext) {
	stats, err := h.service.GetTodayStats(r.Context(), rc.restaurantID)
	if err != nil {
		h.writeServiceError(w, rc.requestID, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	deps := make(map[string]string, len(h.checks))
	healthy := true
	for name, check := range h.checks {
		if err := check(r.Context()); err != nil {
			deps[name] = err.Error()
			healthy = false
			continue
		}
		deps[name] = "ok"
	}

	status := http.StatusOK
	overall := "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}
	h.writeJSON(w, status, map[string]interface{}{"status": overall, "dependencies": deps})
}

func parseOrderFilters(r *http.Request) (models.OrderFilters, error) {
	var filters models.OrderFilters
	query := r.URL.Query()

	filters.Status = models.OrderStatus(query.Get("status"))
	if filters.Status != "" && !filters.Status.IsValid() {
		return filters, errors.New("unknown status filter")
	}
	filters.Type = models.OrderType(query.Get("type"))

	if raw := query.Get("table_id"); raw != "" {
		tableID, err := uuid.Parse(raw)
		if err != nil {
			return filters, errors.New("table_id filter must be a valid UUID")
		}
		filters.TableID = &tableID
	}
	if raw := query.Get("from"); raw != "" {
		from, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, errors.New("from filter must be RFC3339")
		}
		filters.From = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filters, errors.New("to filter must be RFC3339")
		}
		filters.To = &to
	}

	return filters, nil
}

// writeServiceError maps service errors onto HTTP status codes.
func (h *Handler) writeServiceError(w http.ResponseWriter, requestID string, err error) {
	switch {
	case errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrItemNotFound),
		errors.Is(err, ErrTableNotFound),
		errors.Is(err, ErrMenuItemNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrOrderNotCancellable),
		errors.Is(err, ErrOrderImmutable):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrTableOutOfService),
		errors.Is(err, ErrMenuItemUnavailable),
		errors.Is(err, pricing.ErrModifierNotApplicable),
		errors.Is(err, pricing.ErrModifierUnavailable),
		errors.Is(err, pricing.ErrInvalidDiscount),
		errors.Is(err, pricing.ErrNegativeSubtotal):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		// Request validation produces plain, unwrapped errors; anything
		// wrapping a lower-level failure is an internal error.
		if errors.Unwrap(err) == nil {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("request_failed", "Unhandled service error", requestID, err, nil)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
