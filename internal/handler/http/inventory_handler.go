package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
)

type RestockRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	VendorID  uuid.UUID `json:"vendor_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

type UpdateRestockRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type InventoryHandler struct {
	service  inventory.Service
	validate *validator.Validate
}

func NewInventoryHandler(service inventory.Service) *InventoryHandler {
	return &InventoryHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *InventoryHandler) RegisterRoutes(router chi.Router, authn Middleware) {
	router.Group(func(r chi.Router) {
		r.Use(authn, auth.RequireAdmin)

		r.Get("/vendors", h.handleListVendors)
		r.Get("/vendors/{id}", h.handleGetVendor)

		r.Post("/restocks", h.handleCreateRestock)
		r.Get("/restocks", h.handleListRestocks)
		r.Get("/restocks/{id}", h.handleGetRestock)
		r.Put("/restocks/{id}", h.handleUpdateRestock)
		r.Delete("/restocks/{id}", h.handleDeleteRestock)
	})
}

func (h *InventoryHandler) handleListVendors(w http.ResponseWriter, r *http.Request) {
	vendors, err := h.service.ListVendors(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "list vendors")
		return
	}
	if vendors == nil {
		vendors = []inventory.Vendor{}
	}

	respondWithJSON(w, http.StatusOK, vendors)
}

func (h *InventoryHandler) handleGetVendor(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	vendor, err := h.service.GetVendor(r.Context(), vendorID)
	if err != nil {
		respondWithServiceError(w, r, err, "get vendor")
		return
	}

	respondWithJSON(w, http.StatusOK, vendor)
}

func (h *InventoryHandler) handleCreateRestock(w http.ResponseWriter, r *http.Request) {
	var requestPayload RestockRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	entry, err := h.service.Restock(r.Context(), requestPayload.ProductID, requestPayload.VendorID, requestPayload.Quantity)
	if err != nil {
		respondWithServiceError(w, r, err, "restock product")
		return
	}

	respondWithJSON(w, http.StatusCreated, entry)
}

func (h *InventoryHandler) handleListRestocks(w http.ResponseWriter, r *http.Request) {
	vendorID, ok := parseOptionalUUID(w, r, "vendor_id")
	if !ok {
		return
	}
	productID, ok := parseOptionalUUID(w, r, "product_id")
	if !ok {
		return
	}

	entries, err := h.service.ListRestocks(r.Context(), inventory.RestockFilter{VendorID: vendorID, ProductID: productID})
	if err != nil {
		respondWithServiceError(w, r, err, "list restocks")
		return
	}
	if entries == nil {
		entries = []inventory.Restock{}
	}

	respondWithJSON(w, http.StatusOK, entries)
}

func (h *InventoryHandler) handleGetRestock(w http.ResponseWriter, r *http.Request) {
	restockID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	entry, err := h.service.GetRestock(r.Context(), restockID)
	if err != nil {
		respondWithServiceError(w, r, err, "get restock")
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}

func (h *InventoryHandler) handleUpdateRestock(w http.ResponseWriter, r *http.Request) {
	restockID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload UpdateRestockRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	entry, err := h.service.UpdateRestock(r.Context(), restockID, requestPayload.Quantity)
	if err != nil {
		respondWithServiceError(w, r, err, "update restock")
		return
	}

	respondWithJSON(w, http.StatusOK, entry)
}

// handleDeleteRestock drops the history entry only; stock it added stays put.
func (h *InventoryHandler) handleDeleteRestock(w http.ResponseWriter, r *http.Request) {
	restockID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteRestock(r.Context(), restockID); err != nil {
		respondWithServiceError(w, r, err, "delete restock")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
