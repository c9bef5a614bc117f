package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

type ProductRequest struct {
	Name             string          `json:"name" validate:"required,min=2"`
	ShortDescription string          `json:"short_description"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	BrandID          *uuid.UUID      `json:"brand_id,omitempty"`
	CategoryID       *uuid.UUID      `json:"category_id,omitempty"`
	VendorID         *uuid.UUID      `json:"vendor_id,omitempty"`
	Stock            int             `json:"stock" validate:"gte=0"`
	Specs            catalog.Specs   `json:"specs"`
	Ports            catalog.Ports   `json:"ports"`
	Images           []string        `json:"images" validate:"required,min=1,dive,url"`
}

type ReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
	Name    string `json:"name,omitempty" validate:"omitempty,max=100"`
}

func toNullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil || *id == uuid.Nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}

func (req *ProductRequest) toProduct() *catalog.Product {
	return &catalog.Product{
		Name:             req.Name,
		ShortDescription: req.ShortDescription,
		Description:      req.Description,
		Price:            req.Price,
		OriginalPrice:    req.OriginalPrice,
		PurchasePrice:    req.PurchasePrice,
		BrandID:          toNullUUID(req.BrandID),
		CategoryID:       toNullUUID(req.CategoryID),
		VendorID:         toNullUUID(req.VendorID),
		Stock:            req.Stock,
		Specs:            req.Specs,
		Ports:            req.Ports,
		Images:           req.Images,
	}
}

type ProductHandler struct {
	service  catalog.Service
	validate *validator.Validate
}

func NewProductHandler(service catalog.Service) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *ProductHandler) RegisterRoutes(router chi.Router, authn Middleware) {
	router.Get("/products", h.handleListProducts)
	router.Get("/products/{id}", h.handleGetProduct)

	router.Group(func(r chi.Router) {
		r.Use(authn)
		r.Post("/products/{id}/reviews", h.handleAddReview)

		r.With(auth.RequireAdmin).Post("/products", h.handleCreateProduct)
		r.With(auth.RequireAdmin).Put("/products/{id}", h.handleUpdateProduct)
		r.With(auth.RequireAdmin).Delete("/products/{id}", h.handleDeleteProduct)
	})
}

// queryInt reads a positive integer query parameter, falling back to def when absent.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		respondWithError(w, http.StatusBadRequest, "Invalid "+name+" parameter")
		return 0, false
	}
	return n, true
}

func (h *ProductHandler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, ok := queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	limit, ok := queryInt(w, r, "limit", defaultPageLimit)
	if !ok {
		return
	}
	limit = min(limit, maxPageLimit)

	products, total, err := h.service.ListProducts(r.Context(), catalog.ListFilter{
		Keyword: r.URL.Query().Get("keyword"),
		Limit:   limit,
		Offset:  (page - 1) * limit,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "list products")
		return
	}

	resp := ProductListResponse{
		Products: make([]ProductResponse, 0, len(products)),
		Page:     page,
		Pages:    (total + limit - 1) / limit,
		Total:    total,
	}
	for i := range products {
		resp.Products = append(resp.Products, newProductResponse(&products[i], false))
	}

	respondWithJSON(w, http.StatusOK, resp)
}

func (h *ProductHandler) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.service.GetProduct(r.Context(), productID)
	if err != nil {
		respondWithServiceError(w, r, err, "get product")
		return
	}

	respondWithJSON(w, http.StatusOK, newProductResponse(product, false))
}

func (h *ProductHandler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var requestPayload ProductRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	created, err := h.service.CreateProduct(r.Context(), requestPayload.toProduct())
	if err != nil {
		respondWithServiceError(w, r, err, "create product")
		return
	}

	respondWithJSON(w, http.StatusCreated, newProductResponse(created, true))
}

func (h *ProductHandler) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload ProductRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	product := requestPayload.toProduct()
	product.ID = productID

	updated, err := h.service.UpdateProduct(r.Context(), product)
	if err != nil {
		respondWithServiceError(w, r, err, "update product")
		return
	}

	respondWithJSON(w, http.StatusOK, newProductResponse(updated, true))
}

func (h *ProductHandler) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProduct(r.Context(), productID); err != nil {
		respondWithServiceError(w, r, err, "delete product")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ProductHandler) handleAddReview(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	productID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload ReviewRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	name := requestPayload.Name
	if name == "" {
		name = caller.Email
	}

	product, err := h.service.AddReview(r.Context(), productID, catalog.Review{
		UserID:  caller.UserID,
		Name:    name,
		Rating:  requestPayload.Rating,
		Comment: requestPayload.Comment,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "add review")
		return
	}

	respondWithJSON(w, http.StatusCreated, newProductResponse(product, false))
}
