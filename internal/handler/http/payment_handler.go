package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/storefront/internal/auth"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
)

// CreateIntentRequest names either an order, whose total is charged, or a raw
// amount in minor currency units.
type CreateIntentRequest struct {
	OrderID *uuid.UUID `json:"order_id,omitempty" validate:"required_without=Amount"`
	Amount  int64      `json:"amount,omitempty" validate:"omitempty,gt=0"`
}

type VerifyPaymentRequest struct {
	IntentID  string    `json:"intent_id" validate:"required"`
	PaymentID string    `json:"payment_id" validate:"required"`
	Signature string    `json:"signature" validate:"required"`
	OrderID   uuid.UUID `json:"order_id" validate:"required"`
}

type PaymentHandler struct {
	service  payment.Service
	orders   order.Service
	validate *validator.Validate
}

func NewPaymentHandler(service payment.Service, orders order.Service) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		orders:   orders,
		validate: newValidator(),
	}
}

func (h *PaymentHandler) RegisterRoutes(router chi.Router, authn Middleware) {
	router.Group(func(r chi.Router) {
		r.Use(authn)
		r.Post("/payments/intents", h.handleCreateIntent)
		r.Post("/payments/verify", h.handleVerifyPayment)
	})
}

// ownOrder loads the order and hides it from anyone but its buyer or an admin.
func (h *PaymentHandler) ownOrder(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*order.Order, bool) {
	caller, ok := identity(w, r)
	if !ok {
		return nil, false
	}

	found, err := h.orders.GetOrderByID(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, r, err, "get order for payment")
		return nil, false
	}
	if found.UserID != caller.UserID && !caller.IsAdmin {
		log.Warn().Stringer("order_id", id).Stringer("user_id", caller.UserID).Msg("Payment for another buyer's order rejected")
		respondWithError(w, http.StatusNotFound, order.ErrOrderNotFound.Error())
		return nil, false
	}
	return found, true
}

func (h *PaymentHandler) handleCreateIntent(w http.ResponseWriter, r *http.Request) {
	var requestPayload CreateIntentRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	in := payment.IntentInput{Amount: requestPayload.Amount}
	if requestPayload.OrderID != nil {
		found, ok := h.ownOrder(w, r, *requestPayload.OrderID)
		if !ok {
			return
		}
		in.Amount = pricing.MinorUnits(found.Pricing.Total)
		in.OrderID = uuid.NullUUID{UUID: found.ID, Valid: true}
	}

	intent, err := h.service.CreateIntent(r.Context(), in)
	if err != nil {
		respondWithServiceError(w, r, err, "create payment intent")
		return
	}

	respondWithJSON(w, http.StatusCreated, intent)
}

func (h *PaymentHandler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var requestPayload VerifyPaymentRequest
	if !decodeAndValidate(w, r, h.validate, &requestPayload) {
		return
	}

	if _, ok := h.ownOrder(w, r, requestPayload.OrderID); !ok {
		return
	}
	caller := auth.FromContext(r.Context())

	paid, err := h.service.VerifyPayment(r.Context(), payment.VerifyInput{
		IntentID:  requestPayload.IntentID,
		PaymentID: requestPayload.PaymentID,
		Signature: requestPayload.Signature,
		OrderID:   requestPayload.OrderID,
		Email:     caller.Email,
	})
	if err != nil {
		respondWithServiceError(w, r, err, "verify payment")
		return
	}

	respondWithJSON(w, http.StatusOK, newOrderResponse(paid))
}
