package order

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
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/db"
)

type Repository interface {
	// WithinTx runs fn in one transaction; any error from fn rolls everything back.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error)
	ListOrders(ctx context.Context) ([]Order, error)
	// MarkPaid sets the paid flag only if it is not set yet and reports whether it did.
	// A payment id already recorded on another order yields ErrPaymentReused.
	MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, result PaymentResult) (bool, error)
	// MarkDelivered sets the delivered flag only on a paid, undelivered order.
	MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) (bool, error)
	UpdateTracking(ctx context.Context, id uuid.UUID, tracking TrackingInfo) error
}

// Tx is the set of writes order creation performs as one unit.
type Tx interface {
	// LockProducts returns the existing products among ids, locked until the end of the transaction.
	LockProducts(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error)
	// DebitStock decrements stock if at least qty is available, else ErrInsufficientStock.
	// qty must be positive.
	DebitStock(ctx context.Context, productID uuid.UUID, qty int) error
	InsertOrder(ctx context.Context, order *Order) error
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

func (t *postgresTx) LockProducts(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	// ORDER BY id: одинаковый порядок блокировок у всех транзакций, без дедлоков.
	query := `SELECT ` + catalog.ProductColumns + ` FROM products WHERE id = ANY($1) ORDER BY id FOR UPDATE`

	rows, err := t.tx.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to lock products: %w", err)
	}
	defer rows.Close()

	products := make([]catalog.Product, 0, len(ids))
	for rows.Next() {
		p, err := catalog.ScanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan locked product: %w", err)
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating locked products: %w", err)
	}

	return products, nil
}

func (t *postgresTx) DebitStock(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("%w: debit quantity must be greater than zero", ErrInvalidItem)
	}
	cmdTag, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = $3
		WHERE id = $1 AND stock >= $2
	`, productID, qty, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to debit stock of product %s: %w", productID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return catalog.ErrInsufficientStock
	}
	return nil
}

func (t *postgresTx) InsertOrder(ctx context.Context, o *Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, shipping_address, shipping_city, shipping_postal_code, shipping_country,
			payment_method, items_price, shipping_price, tax_price, total_price,
			is_paid, is_delivered, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, FALSE, FALSE, $12, $13)
	`,
		o.ID, o.UserID,
		o.ShippingAddress.Address, o.ShippingAddress.City, o.ShippingAddress.PostalCode, o.ShippingAddress.Country,
		o.PaymentMethod,
		o.Pricing.Items, o.Pricing.Shipping, o.Pricing.Tax, o.Pricing.Total,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert order: %w", err)
	}

	for i, item := range o.Items {
		itemID, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate order item ID: %w", err)
		}

		_, err = t.tx.Exec(ctx, `
			INSERT INTO order_items (id, order_id, product_id, name, image, quantity, unit_price, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, itemID, o.ID, item.ProductID, item.Name, item.Image, item.Quantity, item.UnitPrice, i)
		if err != nil {
			return fmt.Errorf("repository: failed to insert order item for order %s: %w", o.ID, err)
		}
	}

	return nil
}

const orderColumns = `id, user_id, shipping_address, shipping_city, shipping_postal_code, shipping_country,
	payment_method, items_price, shipping_price, tax_price, total_price,
	is_paid, paid_at, payment_id, payment_status, payment_completed_at, payment_email,
	is_delivered, delivered_at,
	tracking_carrier, tracking_waybill, tracking_invoice_url, tracking_url,
	created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o                                         Order
		paymentID, paymentStatus, paymentEmail    *string
		paymentCompletedAt                        *time.Time
		carrier, waybill, invoiceURL, trackingURL *string
	)

	err := row.Scan(
		&o.ID, &o.UserID,
		&o.ShippingAddress.Address, &o.ShippingAddress.City, &o.ShippingAddress.PostalCode, &o.ShippingAddress.Country,
		&o.PaymentMethod,
		&o.Pricing.Items, &o.Pricing.Shipping, &o.Pricing.Tax, &o.Pricing.Total,
		&o.IsPaid, &o.PaidAt, &paymentID, &paymentStatus, &paymentCompletedAt, &paymentEmail,
		&o.IsDelivered, &o.DeliveredAt,
		&carrier, &waybill, &invoiceURL, &trackingURL,
		&o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if paymentID != nil {
		o.PaymentResult = &PaymentResult{
			PaymentID: *paymentID,
			Status:    deref(paymentStatus),
			Email:     deref(paymentEmail),
		}
		if paymentCompletedAt != nil {
			o.PaymentResult.CompletedAt = *paymentCompletedAt
		}
	}

	if carrier != nil || waybill != nil || invoiceURL != nil || trackingURL != nil {
		o.Tracking = &TrackingInfo{
			Carrier:       deref(carrier),
			WaybillNumber: deref(waybill),
			InvoiceURL:    deref(invoiceURL),
			TrackingURL:   deref(trackingURL),
		}
	}

	o.Items = make([]OrderItem, 0)
	return &o, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func (r *postgresRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("repository: failed to select order by id %s: %w", id, err)
	}

	orders := map[uuid.UUID]*Order{o.ID: o}
	if err := r.loadItems(ctx, orders, []uuid.UUID{o.ID}); err != nil {
		return nil, err
	}

	return o, nil
}

func (r *postgresRepository) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *postgresRepository) ListOrders(ctx context.Context) ([]Order, error) {
	return r.queryOrders(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY created_at DESC`)
}

func (r *postgresRepository) queryOrders(ctx context.Context, query string, args ...any) ([]Order, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query orders: %w", err)
	}
	defer rows.Close()

	ordersMap := make(map[uuid.UUID]*Order)
	var orderIDs []uuid.UUID

	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan order: %w", err)
		}
		ordersMap[o.ID] = o
		orderIDs = append(orderIDs, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: failed iterating orders: %w", err)
	}

	if len(orderIDs) == 0 {
		return []Order{}, nil
	}

	if err := r.loadItems(ctx, ordersMap, orderIDs); err != nil {
		return nil, err
	}

	result := make([]Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		result = append(result, *ordersMap[id])
	}
	return result, nil
}

func (r *postgresRepository) loadItems(ctx context.Context, orders map[uuid.UUID]*Order, ids []uuid.UUID) error {
	rows, err := r.db.Query(ctx, `
		SELECT order_id, product_id, name, image, quantity, unit_price
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("repository: failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			item    OrderItem
		)
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Image, &item.Quantity, &item.UnitPrice); err != nil {
			return fmt.Errorf("repository: failed to scan order item: %w", err)
		}
		if o, ok := orders[orderID]; ok {
			o.Items = append(o.Items, item)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("repository: failed iterating order items: %w", err)
	}

	return nil
}

func (r *postgresRepository) MarkPaid(ctx context.Context, id uuid.UUID, paidAt time.Time, result PaymentResult) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders SET
			is_paid = TRUE, paid_at = $2,
			payment_id = $3, payment_status = $4, payment_completed_at = $5, payment_email = $6,
			updated_at = $2
		WHERE id = $1 AND NOT is_paid
	`, id, paidAt, result.PaymentID, result.Status, result.CompletedAt, result.Email)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, ErrPaymentReused
		}
		return false, fmt.Errorf("repository: failed to mark order %s paid: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return false, r.ensureExists(ctx, id)
	}
	return true, nil
}

func (r *postgresRepository) MarkDelivered(ctx context.Context, id uuid.UUID, deliveredAt time.Time) (bool, error) {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders SET is_delivered = TRUE, delivered_at = $2, updated_at = $2
		WHERE id = $1 AND is_paid AND NOT is_delivered
	`, id, deliveredAt)
	if err != nil {
		return false, fmt.Errorf("repository: failed to mark order %s delivered: %w", id, err)
	}

	if cmdTag.RowsAffected() == 0 {
		return false, r.ensureExists(ctx, id)
	}
	return true, nil
}

func (r *postgresRepository) UpdateTracking(ctx context.Context, id uuid.UUID, t TrackingInfo) error {
	cmdTag, err := r.db.Exec(ctx, `
		UPDATE orders SET
			tracking_carrier = $2, tracking_waybill = $3, tracking_invoice_url = $4, tracking_url = $5,
			updated_at = $6
		WHERE id = $1
	`, id, t.Carrier, t.WaybillNumber, t.InvoiceURL, t.TrackingURL, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("repository: failed to update tracking of order %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *postgresRepository) ensureExists(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("repository: failed to check order %s: %w", id, err)
	}
	if !exists {
		return ErrOrderNotFound
	}
	return nil
}
