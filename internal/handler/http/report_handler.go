package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
	"github.com/vasiliy-maslov/storefront/internal/report"
)

type ReportHandler struct {
	service report.Service
}

func NewReportHandler(service report.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) RegisterRoutes(router chi.Router, authn Middleware) {
	router.Group(func(r chi.Router) {
		r.Use(authn, auth.RequireAdmin)
		r.Get("/reports/total-orders", h.handleTotalOrders)
		r.Get("/reports/total-sales", h.handleTotalSales)
		r.Get("/reports/total-sales-by-date", h.handleSalesByDate)
	})
}

func (h *ReportHandler) handleTotalOrders(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.TotalOrders(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "count orders")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int64{"total_orders": n})
}

func (h *ReportHandler) handleTotalSales(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalSales(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "sum sales")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"total_sales": pricing.Fixed(total)})
}

func (h *ReportHandler) handleSalesByDate(w http.ResponseWriter, r *http.Request) {
	sales, err := h.service.SalesByDate(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "sum sales by date")
		return
	}

	respondWithJSON(w, http.StatusOK, newDailySalesResponses(sales))
}
