package memstore

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/order"
)

type orderRepo struct {
	s *Store
}

func (r orderRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	return r.s.write(ctx, func(st *state) error {
		return fn(ctx, orderTx{st: st})
	})
}

type orderTx struct {
	st *state
}

func (t orderTx) LockProducts(_ context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	products := make([]catalog.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := t.st.products[id]; ok {
			p = copyProduct(p)
			p.Reviews = []catalog.Review{}
			products = append(products, p)
		}
	}
	return products, nil
}

func (t orderTx) DebitStock(_ context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: debit quantity must be greater than zero", order.ErrInvalidItem)
	}
	p, ok := t.st.products[productID]
	if !ok || p.Stock < qty {
		return catalog.ErrInsufficientStock
	}
	p.Stock -= qty
	p.UpdatedAt = time.Now().UTC()
	t.st.products[productID] = p
	return nil
}

func (t orderTx) InsertOrder(_ context.Context, o *order.Order) error {
	t.st.orders[o.ID] = copyOrder(*o)
	t.st.track(o.ID)
	return nil
}

func (r orderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*order.Order, error) {
	var (
		out order.Order
		ok  bool
	)
	r.s.read(func(st *state) {
		out, ok = st.orders[id]
		out = copyOrder(out)
	})
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return &out, nil
}

func (r orderRepo) GetOrdersByUserID(_ context.Context, userID uuid.UUID) ([]order.Order, error) {
	return r.list(func(o order.Order) bool { return o.UserID == userID }), nil
}

func (r orderRepo) ListOrders(_ context.Context) ([]order.Order, error) {
	return r.list(func(order.Order) bool { return true }), nil
}

func (r orderRepo) list(keep func(order.Order) bool) []order.Order {
	var out []order.Order
	r.s.read(func(st *state) {
		ids := make([]uuid.UUID, 0, len(st.orders))
		for id, o := range st.orders {
			if keep(o) {
				ids = append(ids, id)
			}
		}
		st.sortNewestFirst(ids)

		out = make([]order.Order, 0, len(ids))
		for _, id := range ids {
			out = append(out, copyOrder(st.orders[id]))
		}
	})
	return out
}

func (r orderRepo) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, result order.PaymentResult) (bool, error) {
	updated := false
	err := r.s.write(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.ErrOrderNotFound
		}
		if o.IsPaid {
			return nil
		}
		if result.PaymentID != "" {
			for otherID, other := range st.orders {
				if otherID != id && other.PaymentResult != nil && other.PaymentResult.PaymentID == result.PaymentID {
					return order.ErrPaymentReused
				}
			}
		}

		o.IsPaid = true
		o.PaidAt = &paidAt
		o.PaymentResult = &result
		o.UpdatedAt = paidAt
		st.orders[id] = o
		updated = true
		return nil
	})
	return updated, err
}

func (r orderRepo) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) (bool, error) {
	updated := false
	err := r.s.write(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.ErrOrderNotFound
		}
		if !o.IsPaid || o.IsDelivered {
			return nil
		}

		o.IsDelivered = true
		o.DeliveredAt = &deliveredAt
		o.UpdatedAt = deliveredAt
		st.orders[id] = o
		updated = true
		return nil
	})
	return updated, err
}

func (r orderRepo) UpdateTracking(ctx context.Context, id uuid.UUID, tracking order.TrackingInfo) error {
	return r.s.write(ctx, func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return order.ErrOrderNotFound
		}
		o.Tracking = &tracking
		o.UpdatedAt = time.Now().UTC()
		st.orders[id] = o
		return nil
	})
}
