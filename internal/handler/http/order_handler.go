package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

// CartLineRequest may echo the client's cached name, image and price.
// They are accepted and dropped: the order is always priced from the catalog.
type CartLineRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gt=0,max=10000"`
	Name      string          `json:"name,omitempty"`
	Image     string          `json:"image,omitempty"`
	Price     decimal.Decimal `json:"price,omitempty"`
}

type ShippingAddressRequest struct {
	Address    string `json:"address" validate:"required"`
	City       string `json:"city" validate:"required"`
	PostalCode string `json:"postal_code" validate:"required"`
	Country    string `json:"country" validate:"required"`
}

type CreateOrderRequest struct {
	OrderItems      []CartLineRequest      `json:"order_items" validate:"required,min=1,dive"`
	ShippingAddress ShippingAddressRequest `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"required"`
}

type MarkPaidRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
	Status    string `json:"status" validate:"required"`
	Email     string `json:"email,omitempty" validate:"omitempty,email"`
}

type TrackingRequest struct {
	Carrier       string `json:"carrier" validate:"required"`
	WaybillNumber string `json:"waybill_number" validate:"required"`
	InvoiceURL    string `json:"invoice_url,omitempty" validate:"omitempty,url"`
	TrackingURL   string `json:"tracking_url,omitempty" validate:"omitempty,url"`
}

type OrderHandler struct {
	service  order.Service
	validate *validator.Validate
}

func NewOrderHandler(service order.Service) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router, authn Middleware) {
	router.Group(func(r chi.Router) {
		r.Use(authn)
		r.Post("/orders", h.handleCreateOrder)
		r.Get("/orders/mine", h.handleGetMyOrders)
		r.Get("/orders/{id}", h.handleGetOrderByID)

		r.Group(func(admin chi.Router) {
			admin.Use(auth.RequireAdmin)
			admin.Get("/orders", h.handleListOrders)
			admin.Put("/orders/{id}/pay", h.handleMarkPaid)
			admin.Put("/orders/{id}/deliver", h.handleMarkDelivered)
			admin.Put("/orders/{id}/tracking", h.handleUpdateTracking)
		})
	})
}

func (h *OrderHandler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	var requestPayload CreateOrderRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	lines := make([]order.CartLine, 0, len(requestPayload.OrderItems))
	for _, item := range requestPayload.OrderItems {
		lines = append(lines, order.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	created, err := h.service.CreateOrder(r.Context(), order.CreateOrderInput{
		UserID: caller.UserID,
		Items:  lines,
		ShippingAddress: order.ShippingAddress{
			Address:    requestPayload.ShippingAddress.Address,
			City:       requestPayload.ShippingAddress.City,
			PostalCode: requestPayload.ShippingAddress.PostalCode,
			Country:    requestPayload.ShippingAddress.Country,
		},
		PaymentMethod: requestPayload.PaymentMethod,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "create order")
		return
	}

	respondWithJSON(w, http.StatusCreated, newOrderResponse(created))
}

func (h *OrderHandler) handleGetMyOrders(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}

	orders, err := h.service.GetOrdersByUserID(r.Context(), caller.UserID)
	if err != nil {
		respondWithServiceError(w, r, err, "get orders by user")
		return
	}

	respondWithJSON(w, http.StatusOK, newOrderResponses(orders))
}

// handleGetOrderByID answers 404 for another buyer's order so ids cannot be probed.
func (h *OrderHandler) handleGetOrderByID(w http.ResponseWriter, r *http.Request) {
	caller, ok := identity(w, r)
	if !ok {
		return
	}
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	found, err := h.service.GetOrderByID(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, r, err, "get order by id")
		return
	}
	if found.UserID != caller.UserID && !caller.IsAdmin {
		log.Warn().Stringer("order_id", orderID).Stringer("user_id", caller.UserID).Msg("Order read by non-owner rejected")
		respondWithError(w, http.StatusNotFound, order.ErrOrderNotFound.Error())
		return
	}

	respondWithJSON(w, http.StatusOK, newOrderResponse(found))
}

func (h *OrderHandler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListOrders(r.Context())
	if err != nil {
		respondWithServiceError(w, r, err, "list orders")
		return
	}

	respondWithJSON(w, http.StatusOK, newOrderResponses(orders))
}

func (h *OrderHandler) handleMarkPaid(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload MarkPaidRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	paid, err := h.service.MarkPaid(r.Context(), orderID, order.PaymentResult{
		PaymentID: requestPayload.PaymentID,
		Status:    requestPayload.Status,
		Email:     requestPayload.Email,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "mark order paid")
		return
	}

	respondWithJSON(w, http.StatusOK, newOrderResponse(paid))
}

func (h *OrderHandler) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	delivered, err := h.service.MarkDelivered(r.Context(), orderID)
	if err != nil {
		respondWithServiceError(w, r, err, "mark order delivered")
		return
	}

	respondWithJSON(w, http.StatusOK, newOrderResponse(delivered))
}

func (h *OrderHandler) handleUpdateTracking(w http.ResponseWriter, r *http.Request) {
	orderID, ok := parseIDParam(w, r, "id")
	if !ok {
		return
	}

	var requestPayload TrackingRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	updated, err := h.service.UpdateTracking(r.Context(), orderID, order.TrackingInfo{
		Carrier:       requestPayload.Carrier,
		WaybillNumber: requestPayload.WaybillNumber,
		InvoiceURL:    requestPayload.InvoiceURL,
		TrackingURL:   requestPayload.TrackingURL,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "update order tracking")
		return
	}

	respondWithJSON(w, http.StatusOK, newOrderResponse(updated))
}
