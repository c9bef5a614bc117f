package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/cache"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/metrics"
)

type Service interface {
	Restock(ctx context.Context, productID, vendorID uuid.UUID, quantity int) (*Restock, error)
	UpdateRestock(ctx context.Context, id uuid.UUID, quantity int) (*Restock, error)
	DeleteRestock(ctx context.Context, id uuid.UUID) error
	GetRestock(ctx context.Context, id uuid.UUID) (*Restock, error)
	ListRestocks(ctx context.Context, filter RestockFilter) ([]Restock, error)
	GetVendor(ctx context.Context, id uuid.UUID) (*Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
}

type service struct {
	repo  Repository
	cache cache.Cache
}

func NewService(repo Repository, c cache.Cache) Service {
	return &service{repo: repo, cache: c}
}

// Restock increments the product's stock and records the history entry in one transaction.
func (s *service) Restock(ctx context.Context, productID, vendorID uuid.UUID, quantity int) (*Restock, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate restock ID: %w", err)
	}
	now := time.Now().UTC()
	entry := &Restock{
		ID:        id,
		ProductID: productID,
		VendorID:  vendorID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.repo.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		ok, err := tx.VendorExists(ctx, vendorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrVendorNotFound
		}

		if err := tx.AdjustStock(ctx, productID, quantity); err != nil {
			return err
		}
		return tx.InsertRestock(ctx, entry)
	})
	if err != nil {
		if errors.Is(err, ErrVendorNotFound) || errors.Is(err, catalog.ErrProductNotFound) {
			log.Warn().Err(err).Stringer("product_id", productID).Stringer("vendor_id", vendorID).Msg("service: restock rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("product_id", productID).Msg("service: failed to restock")
		return nil, fmt.Errorf("service: failed to restock product %s: %w", productID, err)
	}

	s.invalidate(ctx, productID)
	metrics.StockUnits.WithLabelValues("restock").Add(float64(quantity))

	log.Info().Stringer("restock_id", entry.ID).Stringer("product_id", productID).Int("quantity", quantity).Msg("restock recorded")
	return entry, nil
}

// UpdateRestock moves the product's stock by the difference between the new and
// the recorded quantity, then stores the new quantity.
func (s *service) UpdateRestock(ctx context.Context, id uuid.UUID, quantity int) (*Restock, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	var (
		entry *Restock
		delta int
	)
	err := s.repo.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		current, err := tx.LockRestock(ctx, id)
		if err != nil {
			return err
		}

		delta = quantity - current.Quantity
		if delta != 0 {
			if err := tx.AdjustStock(ctx, current.ProductID, delta); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := tx.UpdateRestockQuantity(ctx, id, quantity, now); err != nil {
			return err
		}

		current.Quantity = quantity
		current.UpdatedAt = now
		entry = current
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRestockNotFound) || errors.Is(err, ErrStockUnderflow) || errors.Is(err, catalog.ErrProductNotFound) {
			log.Warn().Err(err).Stringer("restock_id", id).Int("quantity", quantity).Msg("service: restock update rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("restock_id", id).Msg("service: failed to update restock")
		return nil, fmt.Errorf("service: failed to update restock %s: %w", id, err)
	}

	s.invalidate(ctx, entry.ProductID)
	switch {
	case delta > 0:
		metrics.StockUnits.WithLabelValues("adjust_up").Add(float64(delta))
	case delta < 0:
		metrics.StockUnits.WithLabelValues("adjust_down").Add(float64(-delta))
	}

	log.Info().Stringer("restock_id", id).Int("quantity", quantity).Int("delta", delta).Msg("restock updated")
	return entry, nil
}

// DeleteRestock drops the history entry only; the stock it added stays.
func (s *service) DeleteRestock(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteRestock(ctx, id); err != nil {
		if errors.Is(err, ErrRestockNotFound) {
			return ErrRestockNotFound
		}
		log.Error().Err(err).Stringer("restock_id", id).Msg("service: failed to delete restock")
		return fmt.Errorf("service: failed to delete restock %s: %w", id, err)
	}

	log.Info().Stringer("restock_id", id).Msg("restock entry deleted")
	return nil
}

func (s *service) GetRestock(ctx context.Context, id uuid.UUID) (*Restock, error) {
	r, err := s.repo.GetRestock(ctx, id)
	if err != nil {
		if errors.Is(err, ErrRestockNotFound) {
			return nil, ErrRestockNotFound
		}
		return nil, fmt.Errorf("service: failed to get restock %s: %w", id, err)
	}
	return r, nil
}

func (s *service) ListRestocks(ctx context.Context, filter RestockFilter) ([]Restock, error) {
	restocks, err := s.repo.ListRestocks(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list restocks")
		return nil, fmt.Errorf("service: failed to list restocks: %w", err)
	}
	return restocks, nil
}

func (s *service) GetVendor(ctx context.Context, id uuid.UUID) (*Vendor, error) {
	v, err := s.repo.GetVendor(ctx, id)
	if err != nil {
		if errors.Is(err, ErrVendorNotFound) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("service: failed to get vendor %s: %w", id, err)
	}
	return v, nil
}

func (s *service) ListVendors(ctx context.Context) ([]Vendor, error) {
	vendors, err := s.repo.ListVendors(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list vendors")
		return nil, fmt.Errorf("service: failed to list vendors: %w", err)
	}
	return vendors, nil
}

func (s *service) invalidate(ctx context.Context, productID uuid.UUID) {
	if err := s.cache.Del(ctx, catalog.CacheKey(productID)); err != nil {
		log.Warn().Err(err).Stringer("product_id", productID).Msg("service: failed to invalidate product cache")
	}
}
