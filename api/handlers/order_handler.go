package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/folkops/opsboard/internal/grid"
	"github.com/folkops/opsboard/internal/models"
	"github.com/folkops/opsboard/internal/registry"
	"github.com/folkops/opsboard/internal/repository"
	"github.com/folkops/opsboard/internal/service"
)

// ordersView names the orders sheet in column-permission rows.
const ordersView = "orders"

// OrderHandler handles the orders sheet endpoints.
type OrderHandler struct {
	orderService *service.OrderService
	authService  *service.AuthService
	registry     *registry.Registry
	logger       *zap.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderService *service.OrderService, authService *service.AuthService, reg *registry.Registry, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		authService:  authService,
		registry:     reg,
		logger:       logger,
	}
}

// RegisterRoutes registers the order routes. All of them require auth.
func (h *OrderHandler) RegisterRoutes(router *mux.Router) {
	orders := router.PathPrefix("/v1/orders").Subrouter()
	orders.Use(AuthMiddleware(h.authService))
	orders.HandleFunc("", h.ListOrders).Methods(http.MethodGet)
	orders.HandleFunc("/batch", h.BatchUpdate).Methods(http.MethodPost)
	orders.HandleFunc("/{code}/cells", h.UpdateCell).Methods(http.MethodPatch)
	orders.HandleFunc("/columns", h.Columns).Methods(http.MethodGet)
}

func queryFromRequest(r *http.Request, user *models.User) grid.Query {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(q.Get("pageSize"))
	if pageSize <= 0 || pageSize > 500 {
		pageSize = 50
	}
	return grid.Query{
		Page:         page,
		PageSize:     pageSize,
		Team:         q.Get("team"),
		Status:       q.Get("status"),
		Markets:      q["market"],
		Products:     q["product"],
		DateFrom:     q.Get("from"),
		DateTo:       q.Get("to"),
		AllowedStaff: service.ScopeQuery(user),
	}
}

// ListOrders returns one page of order rows, filtered to the columns and
// staff the requesting user may see.
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized("user context missing").WriteHTTP(w)
		return
	}

	page, err := h.orderService.FetchPage(r.Context(), queryFromRequest(r, user))
	if err != nil {
		h.logger.Error("list orders failed", zap.Error(err))
		internalError("failed to load orders").WriteHTTP(w)
		return
	}

	visible, err := h.authService.VisibleColumns(user.Role, ordersView, h.registry)
	if err != nil {
		h.logger.Error("column permission lookup failed", zap.Error(err))
		internalError("failed to load column permissions").WriteHTTP(w)
		return
	}
	if len(visible) < h.registry.Len() {
		allowed := make(map[string]struct{}, len(visible))
		for _, key := range visible {
			allowed[key] = struct{}{}
		}
		for i, row := range page.Rows {
			filtered := make(grid.Row, len(allowed))
			for key := range allowed {
				if v, ok := row[key]; ok {
					filtered[key] = v
				}
			}
			page.Rows[i] = filtered
		}
	}

	respondJSON(w, http.StatusOK, page)
}

// Columns returns the columns the requesting user may see, in sheet order.
func (h *OrderHandler) Columns(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized("user context missing").WriteHTTP(w)
		return
	}

	visible, err := h.authService.VisibleColumns(user.Role, ordersView, h.registry)
	if err != nil {
		h.logger.Error("column permission lookup failed", zap.Error(err))
		internalError("failed to load column permissions").WriteHTTP(w)
		return
	}

	type columnInfo struct {
		Key        string   `json:"key"`
		Label      string   `json:"label"`
		Editable   bool     `json:"editable"`
		EnumValues []string `json:"enum_values,omitempty"`
	}
	columns := make([]columnInfo, 0, len(visible))
	for _, key := range visible {
		col, ok := h.registry.Resolve(key)
		if !ok {
			continue
		}
		columns = append(columns, columnInfo{
			Key:        col.Key,
			Label:      col.Label,
			Editable:   col.Editable,
			EnumValues: col.EnumValues,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"columns": columns})
}

// UpdateCell writes one cell of one order row.
func (h *OrderHandler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized("user context missing").WriteHTTP(w)
		return
	}

	code := mux.Vars(r)["code"]
	var req models.CellUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest("Invalid request body").WriteHTTP(w)
		return
	}
	if req.Column == "" {
		validationError("Column is required").WriteHTTP(w)
		return
	}

	err := h.orderService.For(user.Username).UpdateCell(r.Context(), code, req.Column, req.Value)
	if err != nil {
		h.writeOrderError(w, err, "failed to update cell")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// BatchUpdate writes several order rows in one transaction.
func (h *OrderHandler) BatchUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		unauthorized("user context missing").WriteHTTP(w)
		return
	}

	var req models.BatchUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest("Invalid request body").WriteHTTP(w)
		return
	}
	if len(req.Rows) == 0 {
		validationError("At least one row is required").WriteHTTP(w)
		return
	}

	result, err := h.orderService.For(user.Username).UpdateBatch(r.Context(), req.Rows)
	if err != nil {
		h.writeOrderError(w, err, "failed to update rows")
		return
	}

	var resp models.BatchUpdateResponse
	resp.Success = true
	resp.Summary.Updated = result.Updated
	respondJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, repository.ErrOrderNotFound):
		notFound("order").WriteHTTP(w)
	case errors.Is(err, repository.ErrColumnUnknown),
		errors.Is(err, repository.ErrColumnReadOnly),
		errors.Is(err, repository.ErrValueNotAllowed),
		errors.Is(err, repository.ErrEmptyBatch):
		validationError(err.Error()).WriteHTTP(w)
	default:
		h.logger.Error(fallback, zap.Error(err))
		internalError(fallback).WriteHTTP(w)
	}
}
