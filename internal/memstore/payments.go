package memstore

import (
	"context"
	"fmt"

	"github.com/vasiliy-maslov/storefront/internal/payment"
)

type paymentRepo struct {
	s *Store
}

func (r paymentRepo) SaveIntent(ctx context.Context, rec *payment.IntentRecord) error {
	return r.s.write(ctx, func(st *state) error {
		if _, exists := st.intents[rec.ID]; exists {
			return fmt.Errorf("memstore: payment intent %s already exists", rec.ID)
		}
		if rec.OrderID.Valid {
			if _, ok := st.orders[rec.OrderID.UUID]; !ok {
				return fmt.Errorf("memstore: payment intent %s references unknown order %s", rec.ID, rec.OrderID.UUID)
			}
		}
		st.intents[rec.ID] = *rec
		return nil
	})
}

func (r paymentRepo) GetIntent(_ context.Context, id string) (*payment.IntentRecord, error) {
	var (
		rec payment.IntentRecord
		ok  bool
	)
	r.s.read(func(st *state) { rec, ok = st.intents[id] })
	if !ok {
		return nil, payment.ErrIntentNotFound
	}
	return &rec, nil
}
