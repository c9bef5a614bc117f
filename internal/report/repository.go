package report

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type Repository interface {
	CountOrders(ctx context.Context) (int64, error)
	// TotalSales sums total_price over every order, paid or not.
	TotalSales(ctx context.Context) (decimal.Decimal, error)
	// SalesByDate groups paid orders by the day payment was confirmed, oldest first.
	SalesByDate(ctx context.Context) ([]DailySales, error)
}

type sqlxRepository struct {
	db *sqlx.DB
}

// NewRepository takes a sqlx handle, usually sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx").
func NewRepository(db *sqlx.DB) Repository {
	return &sqlxRepository{db: db}
}

func (r *sqlxRepository) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM orders`); err != nil {
		return 0, fmt.Errorf("repository: failed to count orders: %w", err)
	}
	return n, nil
}

func (r *sqlxRepository) TotalSales(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, `SELECT COALESCE(SUM(total_price), 0) FROM orders`); err != nil {
		return decimal.Zero, fmt.Errorf("repository: failed to sum sales: %w", err)
	}
	return total, nil
}

func (r *sqlxRepository) SalesByDate(ctx context.Context) ([]DailySales, error) {
	query := `
		SELECT to_char((paid_at AT TIME ZONE 'UTC')::date, 'YYYY-MM-DD') AS date,
		       SUM(total_price) AS total_sales
		FROM orders
		WHERE is_paid
		GROUP BY 1
		ORDER BY 1
	`
	sales := make([]DailySales, 0)
	if err := r.db.SelectContext(ctx, &sales, query); err != nil {
		return nil, fmt.Errorf("repository: failed to group sales by date: %w", err)
	}
	return sales, nil
}
