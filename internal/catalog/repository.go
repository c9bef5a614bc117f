package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

const defaultPageSize = 20

type Repository interface {
	CreateProduct(ctx context.Context, product *Product) error
	GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error)
	ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error)
	UpdateProduct(ctx context.Context, product *Product) error
	DeleteProduct(ctx context.Context, id uuid.UUID) error
	// AddReview inserts the review and recomputes rating and num_reviews atomically.
	AddReview(ctx context.Context, productID uuid.UUID, review Review) (*Product, error)
}

// ProductColumns is the column list ScanProduct expects, usable by other packages
// that read products inside their own transactions.
const ProductColumns = `id, name, short_description, description, price, original_price, purchase_price,
	brand_id, category_id, vendor_id, stock,
	screen_size, ram, storage, color, keyboard, adapter, fingerprint_sensor, s_type,
	usb_ports, hdmi_ports, c_type_ports, images, rating, num_reviews, created_at, updated_at`

// ScanProduct scans one row selected with ProductColumns. Reviews are not loaded.
func ScanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.Name, &p.ShortDescription, &p.Description, &p.Price, &p.OriginalPrice, &p.PurchasePrice,
		&p.BrandID, &p.CategoryID, &p.VendorID, &p.Stock,
		&p.Specs.ScreenSize, &p.Specs.RAM, &p.Specs.Storage, &p.Specs.Color, &p.Specs.Keyboard,
		&p.Specs.Adapter, &p.Specs.FingerprintSensor, &p.Specs.SType,
		&p.Ports.USB, &p.Ports.HDMI, &p.Ports.CType, &p.Images, &p.Rating, &p.NumReviews,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Reviews = []Review{}
	return &p, nil
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateProduct(ctx context.Context, p *Product) error {
	if p.ID == uuid.Nil {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate product ID: %w", err)
		}
		p.ID = id
	}

	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	query := `
		INSERT INTO products (id, name, short_description, description, price, original_price, purchase_price,
			brand_id, category_id, vendor_id, stock,
			screen_size, ram, storage, color, keyboard, adapter, fingerprint_sensor, s_type,
			usb_ports, hdmi_ports, c_type_ports, images, rating, num_reviews, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19,
			$20, $21, $22, $23, 0, 0, $24, $25)
	`
	_, err := r.db.Exec(ctx, query,
		p.ID, p.Name, p.ShortDescription, p.Description, p.Price, p.OriginalPrice, p.PurchasePrice,
		p.BrandID, p.CategoryID, p.VendorID, p.Stock,
		p.Specs.ScreenSize, p.Specs.RAM, p.Specs.Storage, p.Specs.Color, p.Specs.Keyboard,
		p.Specs.Adapter, p.Specs.FingerprintSensor, p.Specs.SType,
		p.Ports.USB, p.Ports.HDMI, p.Ports.CType, p.Images,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert product: %w", err)
	}

	p.Rating, p.NumReviews, p.Reviews = 0, 0, []Review{}
	return nil
}

func (r *postgresRepository) GetProductByID(ctx context.Context, id uuid.UUID) (*Product, error) {
	query := `SELECT ` + ProductColumns + ` FROM products WHERE id = $1`

	p, err := ScanProduct(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("repository: failed to select product by id %s: %w", id, err)
	}

	reviews, err := r.reviews(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	p.Reviews = reviews

	return p, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (r *postgresRepository) reviews(ctx context.Context, q querier, productID uuid.UUID) ([]Review, error) {
	query := `
		SELECT id, user_id, name, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at
	`
	rows, err := q.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query reviews for product %s: %w", productID, err)
	}
	defer rows.Close()

	reviews := make([]Review, 0)
	for rows.Next() {
		var rv Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.Name, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan review for product %s: %w", productID, err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating reviews for product %s: %w", productID, err)
	}

	return reviews, nil
}

func (r *postgresRepository) ListProducts(ctx context.Context, filter ListFilter) ([]Product, int, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	pattern := "%"
	if filter.Keyword != "" {
		pattern = "%" + filter.Keyword + "%"
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM products WHERE name ILIKE $1`, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repository: failed to count products: %w", err)
	}

	query := `SELECT ` + ProductColumns + ` FROM products WHERE name ILIKE $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, pattern, limit, filter.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("repository: failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0, limit)
	for rows.Next() {
		p, err := ScanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repository: failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repository: error iterating products: %w", err)
	}

	return products, total, nil
}

func (r *postgresRepository) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE products SET
			name = $2, short_description = $3, description = $4,
			price = $5, original_price = $6, purchase_price = $7,
			brand_id = $8, category_id = $9, vendor_id = $10, stock = $11,
			screen_size = $12, ram = $13, storage = $14, color = $15, keyboard = $16,
			adapter = $17, fingerprint_sensor = $18, s_type = $19,
			usb_ports = $20, hdmi_ports = $21, c_type_ports = $22, images = $23,
			updated_at = $24
		WHERE id = $1
		RETURNING rating, num_reviews, created_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.ShortDescription, p.Description,
		p.Price, p.OriginalPrice, p.PurchasePrice,
		p.BrandID, p.CategoryID, p.VendorID, p.Stock,
		p.Specs.ScreenSize, p.Specs.RAM, p.Specs.Storage, p.Specs.Color, p.Specs.Keyboard,
		p.Specs.Adapter, p.Specs.FingerprintSensor, p.Specs.SType,
		p.Ports.USB, p.Ports.HDMI, p.Ports.CType, p.Images,
		p.UpdatedAt,
	).Scan(&p.Rating, &p.NumReviews, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("repository: failed to update product %s: %w", p.ID, err)
	}

	return nil
}

func (r *postgresRepository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete product %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *postgresRepository) AddReview(ctx context.Context, productID uuid.UUID, review Review) (*Product, error) {
	var product *Product

	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		// Блокируем товар, чтобы пересчет рейтинга не гонялся с параллельными отзывами.
		var locked uuid.UUID
		err := tx.QueryRow(ctx, `SELECT id FROM products WHERE id = $1 FOR UPDATE`, productID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrProductNotFound
			}
			return fmt.Errorf("repository: failed to lock product %s: %w", productID, err)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO reviews (id, product_id, user_id, name, rating, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, review.ID, productID, review.UserID, review.Name, review.Rating, review.Comment, review.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return ErrAlreadyReviewed
			}
			return fmt.Errorf("repository: failed to insert review for product %s: %w", productID, err)
		}

		query := `
			UPDATE products SET
				rating = (SELECT AVG(rating)::float8 FROM reviews WHERE product_id = $1),
				num_reviews = (SELECT COUNT(*) FROM reviews WHERE product_id = $1),
				updated_at = $2
			WHERE id = $1
			RETURNING ` + ProductColumns
		product, err = ScanProduct(tx.QueryRow(ctx, query, productID, time.Now().UTC()))
		if err != nil {
			return fmt.Errorf("repository: failed to recompute rating for product %s: %w", productID, err)
		}

		product.Reviews, err = r.reviews(ctx, tx, productID)
		return err
	})
	if err != nil {
		if !errors.Is(err, ErrAlreadyReviewed) && !errors.Is(err, ErrProductNotFound) {
			log.Error().Err(err).Stringer("product_id", productID).Msg("repository: add review failed")
		}
		return nil, err
	}

	return product, nil
}
