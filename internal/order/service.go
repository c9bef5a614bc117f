package order

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/cache"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/metrics"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
)

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusCreated: {
		StatusPaid: true,
	},
	StatusPaid: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
}

var (
	ErrStatusAlreadySet        = errors.New("status is already set to the desired value")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// checkTransition returns ErrStatusAlreadySet when the order is already at or
// past target, ErrInvalidStatusTransition when target is not reachable in one step.
func checkTransition(current, target OrderStatus) error {
	if current == target {
		return ErrStatusAlreadySet
	}
	if current == StatusDelivered && target == StatusPaid {
		return ErrStatusAlreadySet
	}
	if !allowedTransitions[current][target] {
		return ErrInvalidStatusTransition
	}
	return nil
}

type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	MarkPaid(ctx context.Context, id uuid.UUID, result PaymentResult) (*Order, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (*Order, error)
	UpdateTracking(ctx context.Context, id uuid.UUID, tracking TrackingInfo) (*Order, error)
}

type service struct {
	orderRepo Repository
	cache     cache.Cache
	now       func() time.Time
}

func NewService(orderRepo Repository, c cache.Cache) Service {
	return &service{
		orderRepo: orderRepo,
		cache:     c,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func validateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return ErrEmptyCart
	}
	if input.UserID == uuid.Nil {
		return fmt.Errorf("%w: purchaser is required", ErrInvalidOrder)
	}
	for _, line := range input.Items {
		if line.ProductID == uuid.Nil {
			return fmt.Errorf("%w: product id cannot be empty", ErrInvalidItem)
		}
		if line.Quantity <= 0 {
			return &ProductError{ProductID: line.ProductID, Err: fmt.Errorf("%w: quantity must be greater than zero", ErrInvalidItem)}
		}
	}
	// Лимит проверяется по сумме строк, поэтому сложение не переполняется.
	demand := make(map[uuid.UUID]int, len(input.Items))
	for _, line := range input.Items {
		if line.Quantity > MaxLineQuantity-demand[line.ProductID] {
			return &ProductError{ProductID: line.ProductID, Err: fmt.Errorf("%w: quantity cannot exceed %d", ErrInvalidItem, MaxLineQuantity)}
		}
		demand[line.ProductID] += line.Quantity
	}
	a := input.ShippingAddress
	if a.Address == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return fmt.Errorf("%w: shipping address is incomplete", ErrInvalidOrder)
	}
	if input.PaymentMethod == "" {
		return fmt.Errorf("%w: payment method is required", ErrInvalidOrder)
	}
	return nil
}

// CreateOrder validates the cart against the catalog, snapshots line items at
// catalog prices, debits stock and persists the order in one transaction.
// Nothing is written unless every line can be fulfilled.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	if err := validateInput(input); err != nil {
		log.Warn().Err(err).Stringer("user_id", input.UserID).Msg("service: order rejected by validation")
		return nil, err
	}

	// The same product may appear on several lines; stock is checked against the total.
	demand := make(map[uuid.UUID]int, len(input.Items))
	productIDs := make([]uuid.UUID, 0, len(input.Items))
	for _, line := range input.Items {
		if _, seen := demand[line.ProductID]; !seen {
			productIDs = append(productIDs, line.ProductID)
		}
		demand[line.ProductID] += line.Quantity
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order ID: %w", err)
	}

	var created *Order
	err = s.orderRepo.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		locked, err := tx.LockProducts(ctx, productIDs)
		if err != nil {
			return err
		}

		products := make(map[uuid.UUID]catalog.Product, len(locked))
		for _, p := range locked {
			products[p.ID] = p
		}

		for _, id := range productIDs {
			p, ok := products[id]
			if !ok {
				return &ProductError{ProductID: id, Err: catalog.ErrProductNotFound}
			}
			if p.Stock < demand[id] {
				return &ProductError{ProductID: id, Name: p.Name, Err: catalog.ErrInsufficientStock}
			}
		}

		items := make([]OrderItem, 0, len(input.Items))
		lines := make([]pricing.Line, 0, len(input.Items))
		for _, line := range input.Items {
			p := products[line.ProductID]
			items = append(items, OrderItem{
				ProductID: p.ID,
				Name:      p.Name,
				Image:     p.FirstImage(),
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
			})
			lines = append(lines, pricing.Line{UnitPrice: p.Price, Quantity: line.Quantity})
		}

		for _, id := range productIDs {
			if err := tx.DebitStock(ctx, id, demand[id]); err != nil {
				if errors.Is(err, catalog.ErrInsufficientStock) {
					return &ProductError{ProductID: id, Name: products[id].Name, Err: catalog.ErrInsufficientStock}
				}
				return err
			}
		}

		now := s.now()
		o := &Order{
			ID:              orderID,
			UserID:          input.UserID,
			Items:           items,
			ShippingAddress: input.ShippingAddress,
			PaymentMethod:   input.PaymentMethod,
			Pricing:         pricing.Compute(lines),
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}

		created = o
		return nil
	})
	if err != nil {
		var perr *ProductError
		if errors.As(err, &perr) {
			log.Warn().Err(err).Stringer("user_id", input.UserID).Stringer("product_id", perr.ProductID).Msg("service: order rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", input.UserID).Msg("service: failed to create order")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	if err := s.cache.Del(ctx, catalog.CacheKeys(productIDs...)...); err != nil {
		log.Warn().Err(err).Stringer("order_id", created.ID).Msg("service: failed to invalidate product cache")
	}

	metrics.OrdersCreated.Inc()
	for _, qty := range demand {
		metrics.StockUnits.WithLabelValues("debit").Add(float64(qty))
	}

	log.Info().
		Stringer("order_id", created.ID).
		Stringer("user_id", created.UserID).
		Int("items", len(created.Items)).
		Str("total_price", pricing.Fixed(created.Pricing.Total)).
		Msg("order created")

	return created, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to get order")
		return nil, fmt.Errorf("service: failed to get order %s: %w", id, err)
	}
	return o, nil
}

func (s *service) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to get user orders")
		return nil, fmt.Errorf("service: failed to get orders of user %s: %w", userID, err)
	}
	return orders, nil
}

func (s *service) ListOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.orderRepo.ListOrders(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list orders")
		return nil, fmt.Errorf("service: failed to list orders: %w", err)
	}
	return orders, nil
}

// MarkPaid is idempotent: an order that is already paid is returned unchanged,
// so duplicate gateway callbacks are harmless.
func (s *service) MarkPaid(ctx context.Context, id uuid.UUID, result PaymentResult) (*Order, error) {
	if result.CompletedAt.IsZero() {
		result.CompletedAt = s.now()
	}

	updated, err := s.orderRepo.MarkPaid(ctx, id, s.now(), result)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		if errors.Is(err, ErrPaymentReused) {
			log.Warn().Stringer("order_id", id).Str("payment_id", result.PaymentID).Msg("service: payment id already used by another order")
			return nil, ErrPaymentReused
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to mark order paid")
		return nil, fmt.Errorf("service: failed to mark order %s paid: %w", id, err)
	}

	o, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if !updated {
		log.Warn().Stringer("order_id", id).Stringer("status", o.Status()).Msg("service: order already paid, ignoring")
		return o, nil
	}

	log.Info().Stringer("order_id", id).Str("payment_id", result.PaymentID).Msg("order marked paid")
	return o, nil
}

func (s *service) MarkDelivered(ctx context.Context, id uuid.UUID) (*Order, error) {
	current, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransition(current.Status(), StatusDelivered); err != nil {
		if errors.Is(err, ErrStatusAlreadySet) {
			return current, nil
		}
		log.Warn().Stringer("order_id", id).Stringer("current_status", current.Status()).Msg("service: delivery of unpaid order rejected")
		return nil, ErrOrderNotPaid
	}

	updated, err := s.orderRepo.MarkDelivered(ctx, id, s.now())
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to mark order delivered")
		return nil, fmt.Errorf("service: failed to mark order %s delivered: %w", id, err)
	}

	o, err := s.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !updated && !o.IsPaid {
		return nil, ErrOrderNotPaid
	}

	if updated {
		log.Info().Stringer("order_id", id).Msg("order marked delivered")
	}
	return o, nil
}

func (s *service) UpdateTracking(ctx context.Context, id uuid.UUID, tracking TrackingInfo) (*Order, error) {
	for _, raw := range []string{tracking.InvoiceURL, tracking.TrackingURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, fmt.Errorf("%w: %q is not an absolute http(s) URL", ErrInvalidOrder, raw)
		}
	}

	if err := s.orderRepo.UpdateTracking(ctx, id, tracking); err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to update tracking")
		return nil, fmt.Errorf("service: failed to update tracking of order %s: %w", id, err)
	}

	log.Info().Stringer("order_id", id).Str("carrier", tracking.Carrier).Msg("order tracking updated")
	return s.GetOrderByID(ctx, id)
}
