package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	SaveIntent(ctx context.Context, rec *IntentRecord) error
	GetIntent(ctx context.Context, id string) (*IntentRecord, error)
}

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) SaveIntent(ctx context.Context, rec *IntentRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO payment_intents (id, order_id, amount, currency, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, rec.ID, rec.OrderID, rec.Amount, rec.Currency, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to save payment intent %s: %w", rec.ID, err)
	}
	return nil
}

func (r *postgresRepository) GetIntent(ctx context.Context, id string) (*IntentRecord, error) {
	var rec IntentRecord
	err := r.db.QueryRow(ctx, `
		SELECT id, order_id, amount, currency, created_at FROM payment_intents WHERE id = $1
	`, id).Scan(&rec.ID, &rec.OrderID, &rec.Amount, &rec.Currency, &rec.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIntentNotFound
		}
		return nil, fmt.Errorf("repository: failed to get payment intent %s: %w", id, err)
	}
	return &rec, nil
}
