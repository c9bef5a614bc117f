// Package memstore keeps every storefront repository in process memory.
//
// All access is serialized by one mutex. A transaction works on a deep copy of
// the state and replaces the state only when its function returns nil, so a
// failed transaction leaves nothing behind, the same guarantee the Postgres
// repositories give.
package memstore

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
	"github.com/vasiliy-maslov/storefront/internal/report"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

type state struct {
	seq      int64
	seqOf    map[uuid.UUID]int64 // insertion sequence of every entity
	users    map[uuid.UUID]user.User
	vendors  map[uuid.UUID]inventory.Vendor
	products map[uuid.UUID]catalog.Product
	orders   map[uuid.UUID]order.Order
	restocks map[uuid.UUID]inventory.Restock
	intents  map[string]payment.IntentRecord
}

func newState() *state {
	return &state{
		seqOf:    make(map[uuid.UUID]int64),
		users:    make(map[uuid.UUID]user.User),
		vendors:  make(map[uuid.UUID]inventory.Vendor),
		products: make(map[uuid.UUID]catalog.Product),
		orders:   make(map[uuid.UUID]order.Order),
		restocks: make(map[uuid.UUID]inventory.Restock),
		intents:  make(map[string]payment.IntentRecord),
	}
}

func (s *state) clone() *state {
	c := &state{
		seq:      s.seq,
		seqOf:    make(map[uuid.UUID]int64, len(s.seqOf)),
		users:    make(map[uuid.UUID]user.User, len(s.users)),
		vendors:  make(map[uuid.UUID]inventory.Vendor, len(s.vendors)),
		products: make(map[uuid.UUID]catalog.Product, len(s.products)),
		orders:   make(map[uuid.UUID]order.Order, len(s.orders)),
		restocks: make(map[uuid.UUID]inventory.Restock, len(s.restocks)),
		intents:  make(map[string]payment.IntentRecord, len(s.intents)),
	}
	for k, v := range s.seqOf {
		c.seqOf[k] = v
	}
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.vendors {
		c.vendors[k] = v
	}
	for k, v := range s.products {
		c.products[k] = copyProduct(v)
	}
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.restocks {
		c.restocks[k] = v
	}
	for k, v := range s.intents {
		c.intents[k] = v
	}
	return c
}

func (s *state) track(id uuid.UUID) {
	s.seq++
	s.seqOf[id] = s.seq
}

// sortNewestFirst orders ids by descending insertion sequence.
func (s *state) sortNewestFirst(ids []uuid.UUID) {
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return int(s.seqOf[b] - s.seqOf[a])
	})
}

func copyProduct(p catalog.Product) catalog.Product {
	p.Images = slices.Clone(p.Images)
	p.Reviews = slices.Clone(p.Reviews)
	if p.Reviews == nil {
		p.Reviews = []catalog.Review{}
	}
	return p
}

func copyOrder(o order.Order) order.Order {
	o.Items = slices.Clone(o.Items)
	if o.PaidAt != nil {
		t := *o.PaidAt
		o.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		o.DeliveredAt = &t
	}
	if o.PaymentResult != nil {
		r := *o.PaymentResult
		o.PaymentResult = &r
	}
	if o.Tracking != nil {
		tr := *o.Tracking
		o.Tracking = &tr
	}
	return o
}

type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: newState()}
}

// read runs fn under the lock against the committed state.
func (s *Store) read(fn func(st *state)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.st)
}

// write runs fn against a copy and commits it when fn returns nil.
func (s *Store) write(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	draft := s.st.clone()
	if err := fn(draft); err != nil {
		return err
	}
	s.st = draft
	return nil
}

func (s *Store) Catalog() catalog.Repository { return catalogRepo{s} }
func (s *Store) Orders() order.Repository { return orderRepo{s} }
func (s *Store) Inventory() inventory.Repository { return inventoryRepo{s} }
func (s *Store) Users() user.Repository { return userRepo{s} }
func (s *Store) Reports() report.Repository { return reportRepo{s} }
func (s *Store) Payments() payment.Repository { return paymentRepo{s} }

// AddVendor seeds a vendor. Vendor records are owned by another system, so
// no repository exposes their creation.
func (s *Store) AddVendor(v inventory.Vendor) inventory.Vendor {
	if v.ID == uuid.Nil {
		v.ID = uuid.Must(uuid.NewV4())
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.vendors[v.ID] = v
	s.st.track(v.ID)
	return v
}
