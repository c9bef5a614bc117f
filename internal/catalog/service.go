package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/cache"
)

// ImageStore removes stored product images. Uploading is done elsewhere; the
// catalog only ever holds the resulting URLs.
type ImageStore interface {
	Delete(ctx context.Context, urls []string) error
}

type Service interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error)
	UpdateProduct(ctx context.Context, product *Product) (*Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	AddReview(ctx context.Context, productID uuid.UUID, review Review) (*Product, error)
}

type service struct {
	repo   Repository
	cache  cache.Cache
	images ImageStore
	ttl    time.Duration
}

func NewService(repo Repository, c cache.Cache, images ImageStore, ttl time.Duration) Service {
	return &service{repo: repo, cache: c, images: images, ttl: ttl}
}

func (s *service) CreateProduct(ctx context.Context, product *Product) (*Product, error) {
	product.ID = uuid.Nil
	if err := product.Validate(); err != nil {
		log.Warn().Err(err).Str("name", product.Name).Msg("service: invalid product rejected")
		return nil, err
	}

	if err := s.repo.CreateProduct(ctx, product); err != nil {
		log.Error().Err(err).Str("name", product.Name).Msg("service: failed to create product")
		return nil, fmt.Errorf("service: failed to create product: %w", err)
	}

	log.Info().Stringer("product_id", product.ID).Int("stock", product.Stock).Msg("product created")
	return product, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*Product, error) {
	var cached Product
	if s.cache.Get(ctx, CacheKey(id), &cached) {
		return &cached, nil
	}

	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to get product")
		return nil, fmt.Errorf("service: failed to get product %s: %w", id, err)
	}

	if err := s.cache.Set(ctx, CacheKey(id), product, s.ttl); err != nil {
		log.Warn().Err(err).Stringer("product_id", id).Msg("service: failed to cache product")
	}

	return product, nil
}

func (s *service) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, 0, fmt.Errorf("%w: limit and offset cannot be negative", ErrInvalidProduct)
	}
	filter.Keyword = strings.TrimSpace(filter.Keyword)

	products, total, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		log.Error().Err(err).Str("keyword", filter.Keyword).Msg("service: failed to list products")
		return nil, 0, fmt.Errorf("service: failed to list products: %w", err)
	}

	return products, total, nil
}

func (s *service) UpdateProduct(ctx context.Context, product *Product) (*Product, error) {
	if err := product.Validate(); err != nil {
		log.Warn().Err(err).Stringer("product_id", product.ID).Msg("service: invalid product update rejected")
		return nil, err
	}

	if err := s.repo.UpdateProduct(ctx, product); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", product.ID).Msg("service: failed to update product")
		return nil, fmt.Errorf("service: failed to update product %s: %w", product.ID, err)
	}
	s.invalidate(ctx, product.ID)

	updated, err := s.repo.GetProductByID(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to reload product %s: %w", product.ID, err)
	}

	return updated, nil
}

// DeleteProduct removes the product, then its images. A failed image delete leaves
// orphaned files behind and is only logged.
func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("service: failed to get product %s: %w", id, err)
	}

	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		if errors.Is(err, ErrProductNotFound) {
			return ErrProductNotFound
		}
		log.Error().Err(err).Stringer("product_id", id).Msg("service: failed to delete product")
		return fmt.Errorf("service: failed to delete product %s: %w", id, err)
	}
	s.invalidate(ctx, id)

	if err := s.images.Delete(ctx, product.Images); err != nil {
		log.Warn().Err(err).Stringer("product_id", id).Strs("images", product.Images).Msg("service: failed to delete product images")
	}

	log.Info().Stringer("product_id", id).Msg("product deleted")
	return nil
}

func (s *service) AddReview(ctx context.Context, productID uuid.UUID, review Review) (*Product, error) {
	if review.Rating < 1 || review.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if review.UserID == uuid.Nil {
		return nil, fmt.Errorf("%w: review author is required", ErrInvalidProduct)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate review ID: %w", err)
	}
	review.ID = id
	review.CreatedAt = time.Now().UTC()

	product, err := s.repo.AddReview(ctx, productID, review)
	if err != nil {
		if errors.Is(err, ErrAlreadyReviewed) || errors.Is(err, ErrProductNotFound) {
			log.Warn().Err(err).Stringer("product_id", productID).Stringer("user_id", review.UserID).Msg("service: review rejected")
			return nil, err
		}
		return nil, fmt.Errorf("service: failed to add review to product %s: %w", productID, err)
	}
	s.invalidate(ctx, productID)

	log.Info().Stringer("product_id", productID).Int("rating", review.Rating).Float64("average", product.Rating).Msg("review added")
	return product, nil
}

func (s *service) invalidate(ctx context.Context, ids ...uuid.UUID) {
	if err := s.cache.Del(ctx, CacheKeys(ids...)...); err != nil {
		log.Warn().Err(err).Msg("service: failed to invalidate product cache")
	}
}
