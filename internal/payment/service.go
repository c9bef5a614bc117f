package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/metrics"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
)

// OrderPayer is the part of the order lifecycle the payment bridge drives.
type OrderPayer interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, result order.PaymentResult) (*order.Order, error)
}

type Service interface {
	CreateIntent(ctx context.Context, in IntentInput) (*Intent, error)
	VerifyPayment(ctx context.Context, in VerifyInput) (*order.Order, error)
}

type Options struct {
	KeyID     string
	KeySecret string
	Currency  string
}

type service struct {
	repo    Repository
	gateway Gateway
	orders  OrderPayer
	opts    Options
	now     func() time.Time
}

func NewService(repo Repository, gateway Gateway, orders OrderPayer, opts Options) Service {
	return &service{
		repo:    repo,
		gateway: gateway,
		orders:  orders,
		opts:    opts,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateIntent asks the gateway for a payment intent and records what it charges.
// No order state changes.
func (s *service) CreateIntent(ctx context.Context, in IntentInput) (*Intent, error) {
	if in.Amount <= 0 {
		return nil, ErrInvalidAmount
	}

	receiptID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate receipt ID: %w", err)
	}

	gwOrder, err := s.gateway.CreateOrder(ctx, in.Amount, s.opts.Currency, "rcpt_"+receiptID.String())
	if err != nil {
		log.Error().Err(err).Int64("amount", in.Amount).Msg("service: gateway create order failed")
		if errors.Is(err, ErrGatewayUnavailable) {
			return nil, ErrGatewayUnavailable
		}
		return nil, fmt.Errorf("service: failed to create payment intent: %w", err)
	}

	rec := &IntentRecord{
		ID:        gwOrder.ID,
		OrderID:   in.OrderID,
		Amount:    gwOrder.Amount,
		Currency:  gwOrder.Currency,
		CreatedAt: s.now(),
	}
	if err := s.repo.SaveIntent(ctx, rec); err != nil {
		log.Error().Err(err).Str("intent_id", gwOrder.ID).Msg("service: failed to save payment intent")
		return nil, fmt.Errorf("service: failed to save payment intent: %w", err)
	}

	log.Info().Str("intent_id", gwOrder.ID).Int64("amount", gwOrder.Amount).Msg("payment intent created")
	return &Intent{
		IntentID: gwOrder.ID,
		Amount:   gwOrder.Amount,
		Currency: gwOrder.Currency,
		KeyID:    s.opts.KeyID,
	}, nil
}

// VerifyPayment checks the gateway signature before anything else. The order is
// marked paid only when the intent was issued for it, or for exactly its total.
func (s *service) VerifyPayment(ctx context.Context, in VerifyInput) (*order.Order, error) {
	if in.IntentID == "" || in.PaymentID == "" || in.Signature == "" {
		return nil, ErrMissingFields
	}

	if !VerifySignature(in.IntentID, in.PaymentID, in.Signature, s.opts.KeySecret) {
		metrics.PaymentVerifications.WithLabelValues("rejected").Inc()
		log.Warn().Stringer("order_id", in.OrderID).Str("intent_id", in.IntentID).Msg("service: payment signature mismatch")
		return nil, ErrInvalidSignature
	}

	intent, err := s.repo.GetIntent(ctx, in.IntentID)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			metrics.PaymentVerifications.WithLabelValues("mismatch").Inc()
			log.Warn().Stringer("order_id", in.OrderID).Str("intent_id", in.IntentID).Msg("service: unknown payment intent")
			return nil, ErrIntentMismatch
		}
		return nil, fmt.Errorf("service: failed to get payment intent: %w", err)
	}

	current, err := s.orders.GetOrderByID(ctx, in.OrderID)
	if err != nil {
		return nil, err
	}
	if (intent.OrderID.Valid && intent.OrderID.UUID != current.ID) || intent.Amount != pricing.MinorUnits(current.Pricing.Total) {
		metrics.PaymentVerifications.WithLabelValues("mismatch").Inc()
		log.Warn().
			Stringer("order_id", in.OrderID).
			Str("intent_id", in.IntentID).
			Int64("intent_amount", intent.Amount).
			Msg("service: payment intent issued for another order or amount")
		return nil, ErrIntentMismatch
	}
	if current.IsPaid {
		metrics.PaymentVerifications.WithLabelValues("duplicate").Inc()
		log.Warn().Stringer("order_id", in.OrderID).Str("payment_id", in.PaymentID).Msg("service: order already paid, duplicate verification")
		return current, nil
	}

	paid, err := s.orders.MarkPaid(ctx, in.OrderID, order.PaymentResult{
		PaymentID:   in.PaymentID,
		Status:      "completed",
		CompletedAt: s.now(),
		Email:       in.Email,
	})
	if err != nil {
		if errors.Is(err, order.ErrPaymentReused) {
			metrics.PaymentVerifications.WithLabelValues("reused").Inc()
		}
		return nil, err
	}

	metrics.PaymentVerifications.WithLabelValues("accepted").Inc()
	log.Info().Stringer("order_id", in.OrderID).Str("payment_id", in.PaymentID).Msg("payment verified")
	return paid, nil
}
