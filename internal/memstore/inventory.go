package memstore

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
)

type inventoryRepo struct {
	s *Store
}

func (r inventoryRepo) WithinTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	return r.s.write(ctx, func(st *state) error {
		return fn(ctx, inventoryTx{st: st})
	})
}

type inventoryTx struct {
	st *state
}

func (t inventoryTx) VendorExists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := t.st.vendors[id]
	return ok, nil
}

func (t inventoryTx) AdjustStock(_ context.Context, productID uuid.UUID, delta int) error {
	p, ok := t.st.products[productID]
	if !ok {
		return catalog.ErrProductNotFound
	}
	if p.Stock+delta < 0 {
		return inventory.ErrStockUnderflow
	}
	p.Stock += delta
	p.UpdatedAt = time.Now().UTC()
	t.st.products[productID] = p
	return nil
}

func (t inventoryTx) InsertRestock(_ context.Context, rs *inventory.Restock) error {
	if _, ok := t.st.products[rs.ProductID]; !ok {
		return catalog.ErrProductNotFound
	}
	if _, ok := t.st.vendors[rs.VendorID]; !ok {
		return inventory.ErrVendorNotFound
	}
	t.st.restocks[rs.ID] = *rs
	t.st.track(rs.ID)
	return nil
}

func (t inventoryTx) LockRestock(_ context.Context, id uuid.UUID) (*inventory.Restock, error) {
	rs, ok := t.st.restocks[id]
	if !ok {
		return nil, inventory.ErrRestockNotFound
	}
	return &rs, nil
}

func (t inventoryTx) UpdateRestockQuantity(_ context.Context, id uuid.UUID, quantity int, at time.Time) error {
	rs, ok := t.st.restocks[id]
	if !ok {
		return inventory.ErrRestockNotFound
	}
	rs.Quantity = quantity
	rs.UpdatedAt = at
	t.st.restocks[id] = rs
	return nil
}

func (r inventoryRepo) GetVendor(_ context.Context, id uuid.UUID) (*inventory.Vendor, error) {
	var (
		v  inventory.Vendor
		ok bool
	)
	r.s.read(func(st *state) { v, ok = st.vendors[id] })
	if !ok {
		return nil, inventory.ErrVendorNotFound
	}
	return &v, nil
}

func (r inventoryRepo) ListVendors(_ context.Context) ([]inventory.Vendor, error) {
	var vendors []inventory.Vendor
	r.s.read(func(st *state) {
		vendors = make([]inventory.Vendor, 0, len(st.vendors))
		for _, v := range st.vendors {
			vendors = append(vendors, v)
		}
	})
	slices.SortFunc(vendors, func(a, b inventory.Vendor) int {
		return strings.Compare(a.Username, b.Username)
	})
	return vendors, nil
}

func (r inventoryRepo) GetRestock(_ context.Context, id uuid.UUID) (*inventory.Restock, error) {
	var (
		rs inventory.Restock
		ok bool
	)
	r.s.read(func(st *state) { rs, ok = st.restocks[id] })
	if !ok {
		return nil, inventory.ErrRestockNotFound
	}
	return &rs, nil
}

func (r inventoryRepo) ListRestocks(_ context.Context, filter inventory.RestockFilter) ([]inventory.Restock, error) {
	var restocks []inventory.Restock
	r.s.read(func(st *state) {
		ids := make([]uuid.UUID, 0, len(st.restocks))
		for id, rs := range st.restocks {
			if filter.VendorID != uuid.Nil && rs.VendorID != filter.VendorID {
				continue
			}
			if filter.ProductID != uuid.Nil && rs.ProductID != filter.ProductID {
				continue
			}
			ids = append(ids, id)
		}
		st.sortNewestFirst(ids)

		restocks = make([]inventory.Restock, 0, len(ids))
		for _, id := range ids {
			restocks = append(restocks, st.restocks[id])
		}
	})
	return restocks, nil
}

func (r inventoryRepo) DeleteRestock(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.restocks[id]; !ok {
			return inventory.ErrRestockNotFound
		}
		delete(st.restocks, id)
		return nil
	})
}
