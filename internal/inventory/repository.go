package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

type Repository interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetVendor(ctx context.Context, id uuid.UUID) (*Vendor, error)
	ListVendors(ctx context.Context) ([]Vendor, error)
	GetRestock(ctx context.Context, id uuid.UUID) (*Restock, error)
	ListRestocks(ctx context.Context, filter RestockFilter) ([]Restock, error)
	DeleteRestock(ctx context.Context, id uuid.UUID) error
}

type Tx interface {
	VendorExists(ctx context.Context, id uuid.UUID) (bool, error)
	// AdjustStock adds delta (possibly negative) to the product's stock. A result
	// below zero fails with ErrStockUnderflow.
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int) error
	InsertRestock(ctx context.Context, r *Restock) error
	// LockRestock reads the entry and holds it until the transaction ends.
	LockRestock(ctx context.Context, id uuid.UUID) (*Restock, error)
	UpdateRestockQuantity(ctx context.Context, id uuid.UUID, quantity int, at time.Time) error
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &postgresTx{tx: tx})
	})
}

type postgresTx struct {
	tx pgx.Tx
}

func (t *postgresTx) VendorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM vendors WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("repository: failed to check vendor %s: %w", id, err)
	}
	return exists, nil
}

func (t *postgresTx) AdjustStock(ctx context.Context, productID uuid.UUID, delta int) error {
	var stock int
	err := t.tx.QueryRow(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = $3
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING stock
	`, productID, delta, time.Now().UTC()).Scan(&stock)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("repository: failed to adjust stock of product %s: %w", productID, err)
	}

	// Нет строки: либо товара нет, либо остаток ушел бы в минус.
	var exists bool
	if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists); err != nil {
		return fmt.Errorf("repository: failed to check product %s: %w", productID, err)
	}
	if !exists {
		return catalog.ErrProductNotFound
	}
	return ErrStockUnderflow
}

func (t *postgresTx) InsertRestock(ctx context.Context, r *Restock) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO restocks (id, product_id, vendor_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, r.ID, r.ProductID, r.VendorID, r.Quantity, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert restock: %w", err)
	}
	return nil
}

const restockColumns = `id, product_id, vendor_id, quantity, created_at, updated_at`

func scanRestock(row pgx.Row) (*Restock, error) {
	var r Restock
	if err := row.Scan(&r.ID, &r.ProductID, &r.VendorID, &r.Quantity, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (t *postgresTx) LockRestock(ctx context.Context, id uuid.UUID) (*Restock, error) {
	r, err := scanRestock(t.tx.QueryRow(ctx, `SELECT `+restockColumns+` FROM restocks WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestockNotFound
		}
		return nil, fmt.Errorf("repository: failed to lock restock %s: %w", id, err)
	}
	return r, nil
}

func (t *postgresTx) UpdateRestockQuantity(ctx context.Context, id uuid.UUID, quantity int, at time.Time) error {
	cmdTag, err := t.tx.Exec(ctx, `UPDATE restocks SET quantity = $2, updated_at = $3 WHERE id = $1`, id, quantity, at)
	if err != nil {
		return fmt.Errorf("repository: failed to update restock %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrRestockNotFound
	}
	return nil
}

func (r *postgresRepository) GetVendor(ctx context.Context, id uuid.UUID) (*Vendor, error) {
	var v Vendor
	err := r.db.QueryRow(ctx, `SELECT id, username, email, created_at, updated_at FROM vendors WHERE id = $1`, id).
		Scan(&v.ID, &v.Username, &v.Email, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVendorNotFound
		}
		return nil, fmt.Errorf("repository: failed to select vendor %s: %w", id, err)
	}
	return &v, nil
}

func (r *postgresRepository) ListVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, email, created_at, updated_at FROM vendors ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query vendors: %w", err)
	}
	defer rows.Close()

	vendors := make([]Vendor, 0)
	for rows.Next() {
		var v Vendor
		if err := rows.Scan(&v.ID, &v.Username, &v.Email, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("repository: failed to scan vendor: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating vendors: %w", err)
	}
	return vendors, nil
}

func (r *postgresRepository) GetRestock(ctx context.Context, id uuid.UUID) (*Restock, error) {
	rs, err := scanRestock(r.db.QueryRow(ctx, `SELECT `+restockColumns+` FROM restocks WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestockNotFound
		}
		return nil, fmt.Errorf("repository: failed to select restock %s: %w", id, err)
	}
	return rs, nil
}

func (r *postgresRepository) ListRestocks(ctx context.Context, filter RestockFilter) ([]Restock, error) {
	query := `
		SELECT ` + restockColumns + `
		FROM restocks
		WHERE ($1::uuid IS NULL OR vendor_id = $1)
		  AND ($2::uuid IS NULL OR product_id = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, nullable(filter.VendorID), nullable(filter.ProductID))
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query restocks: %w", err)
	}
	defer rows.Close()

	restocks := make([]Restock, 0)
	for rows.Next() {
		rs, err := scanRestock(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan restock: %w", err)
		}
		restocks = append(restocks, *rs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating restocks: %w", err)
	}
	return restocks, nil
}

func nullable(id uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: id, Valid: id != uuid.Nil}
}

func (r *postgresRepository) DeleteRestock(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM restocks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete restock %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrRestockNotFound
	}
	return nil
}
