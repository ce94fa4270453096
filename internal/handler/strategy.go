// Package handler implements the HTTP API handlers.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/marginmind/backend/internal/apierrors"
	"github.com/marginmind/backend/internal/graphstore"
	"github.com/marginmind/backend/internal/model"
	"github.com/marginmind/backend/internal/strategy"
)

// StrategyService builds strategy and renewal analyses.
type StrategyService interface {
	BuildStrategies(ctx context.Context, serviceID string) (*model.StrategyResponse, error)
	BuildRenewal(ctx context.Context, serviceID string) (*model.RenewalResponse, error)
}

// VendorDirectory searches the vendor catalog.
type VendorDirectory interface {
	SearchVendors(ctx context.Context, search string, limit int) ([]graphstore.VendorSummary, error)
}

// StrategyHandler serves the strategy API.
type StrategyHandler struct {
	svc     StrategyService
	vendors VendorDirectory
	logger  *slog.Logger
}

// NewStrategyHandler creates the handler.
func NewStrategyHandler(svc StrategyService, vendors VendorDirectory, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{svc: svc, vendors: vendors, logger: logger}
}

// Routes mounts the handler's routes on a router.
func (h *StrategyHandler) Routes(r chi.Router) {
	r.Get("/strategies/{serviceID}", h.GetStrategy)
	r.Get("/strategies/{serviceID}/renewal", h.GetRenewal)
	r.Get("/vendors", h.SearchVendors)
}

// GetStrategy returns the full negotiation strategy for a service.
func (h *StrategyHandler) GetStrategy(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")
	if serviceID == "" {
		apierrors.NewBadRequestError("service ID is required").Write(w, r)
		return
	}

	resp, err := h.svc.BuildStrategies(r.Context(), serviceID)
	if err != nil {
		h.writeStrategyError(w, r, serviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRenewal returns the renewal-mode analysis for a service.
func (h *StrategyHandler) GetRenewal(w http.ResponseWriter, r *http.Request) {
	serviceID := chi.URLParam(r, "serviceID")
	if serviceID == "" {
		apierrors.NewBadRequestError("service ID is required").Write(w, r)
		return
	}

	resp, err := h.svc.BuildRenewal(r.Context(), serviceID)
	if err != nil {
		h.writeStrategyError(w, r, serviceID, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *StrategyHandler) writeStrategyError(w http.ResponseWriter, r *http.Request, serviceID string, err error) {
	switch {
	case errors.Is(err, graphstore.ErrServiceNotFound):
		apierrors.NewNotFoundError("service", serviceID).Write(w, r)
	case errors.Is(err, strategy.ErrNoVendorQuotes):
		apierrors.NewNotFoundError("vendor quotes", serviceID).Write(w, r)
	default:
		h.logger.Error("strategy build failed", "service_id", serviceID, "error", err)
		apierrors.NewInternalError("failed to build strategy").Write(w, r)
	}
}

// SearchVendors lists vendors matching the search term.
func (h *StrategyHandler) SearchVendors(w http.ResponseWriter, r *http.Request) {
	search := r.URL.Query().Get("search")
	limit := 25
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	vendors, err := h.vendors.SearchVendors(r.Context(), search, limit)
	if err != nil {
		h.logger.Error("vendor search failed", "search", search, "error", err)
		apierrors.NewServiceUnavailableError("vendor directory").Write(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vendors": vendors,
		"total":   len(vendors),
	})
}
