package memstore

import (
	"context"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
)

const defaultPageSize = 20

type catalogRepo struct {
	s *Store
}

func (r catalogRepo) CreateProduct(ctx context.Context, p *catalog.Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		p.ID = id
	}
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now
	p.Rating, p.NumReviews, p.Reviews = 0, 0, []catalog.Review{}

	return r.s.write(ctx, func(st *state) error {
		st.products[p.ID] = copyProduct(*p)
		st.track(p.ID)
		return nil
	})
}

func (r catalogRepo) GetProductByID(_ context.Context, id uuid.UUID) (*catalog.Product, error) {
	var (
		out catalog.Product
		ok  bool
	)
	r.s.read(func(st *state) {
		out, ok = st.products[id]
		out = copyProduct(out)
	})
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &out, nil
}

func (r catalogRepo) ListProducts(_ context.Context, filter catalog.ListFilter) ([]catalog.Product, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	keyword := strings.ToLower(filter.Keyword)

	var products []catalog.Product
	total := 0
	r.s.read(func(st *state) {
		ids := make([]uuid.UUID, 0, len(st.products))
		for id, p := range st.products {
			if strings.Contains(strings.ToLower(p.Name), keyword) {
				ids = append(ids, id)
			}
		}
		st.sortNewestFirst(ids)
		total = len(ids)

		products = make([]catalog.Product, 0, limit)
		for i := filter.Offset; i < len(ids) && len(products) < limit; i++ {
			p := copyProduct(st.products[ids[i]])
			p.Reviews = []catalog.Review{}
			products = append(products, p)
		}
	})

	return products, total, nil
}

func (r catalogRepo) UpdateProduct(ctx context.Context, p *catalog.Product) error {
	return r.s.write(ctx, func(st *state) error {
		current, ok := st.products[p.ID]
		if !ok {
			return catalog.ErrProductNotFound
		}

		p.Rating = current.Rating
		p.NumReviews = current.NumReviews
		p.CreatedAt = current.CreatedAt
		p.UpdatedAt = time.Now().UTC()

		updated := copyProduct(*p)
		updated.Reviews = current.Reviews
		st.products[p.ID] = updated
		return nil
	})
}

func (r catalogRepo) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.s.write(ctx, func(st *state) error {
		if _, ok := st.products[id]; !ok {
			return catalog.ErrProductNotFound
		}
		delete(st.products, id)
		for rid, rs := range st.restocks {
			if rs.ProductID == id {
				delete(st.restocks, rid)
			}
		}
		return nil
	})
}

func (r catalogRepo) AddReview(ctx context.Context, productID uuid.UUID, review catalog.Review) (*catalog.Product, error) {
	var out catalog.Product
	err := r.s.write(ctx, func(st *state) error {
		p, ok := st.products[productID]
		if !ok {
			return catalog.ErrProductNotFound
		}
		if p.HasReviewBy(review.UserID) {
			return catalog.ErrAlreadyReviewed
		}

		p.Reviews = append(p.Reviews, review)
		p.NumReviews = len(p.Reviews)
		p.Rating = catalog.AverageRating(p.Reviews)
		p.UpdatedAt = time.Now().UTC()
		st.products[productID] = p

		out = copyProduct(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}
