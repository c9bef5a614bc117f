package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
)

type OrderStatus string

const (
	StatusCreated   OrderStatus = "CREATED"
	StatusPaid      OrderStatus = "PAID"
	StatusDelivered OrderStatus = "DELIVERED"
)

func (os OrderStatus) String() string {
	return string(os)
}

// MaxLineQuantity caps the units of one product in an order, summed over its lines.
const MaxLineQuantity = 10000

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrEmptyCart     = errors.New("order must contain at least one item")
	ErrInvalidItem   = errors.New("invalid order item")
	ErrOrderNotPaid  = errors.New("order is not paid")
	ErrInvalidOrder  = errors.New("invalid order")
	ErrPaymentReused = errors.New("payment already settles another order")
)

// ProductError names the product that made an order fail. It unwraps to the
// catalog sentinel (not found, insufficient stock).
type ProductError struct {
	ProductID uuid.UUID
	Name      string
	Err       error
}

func (e *ProductError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Err, e.Name, e.ProductID)
	}
	return fmt.Sprintf("%s: %s", e.Err, e.ProductID)
}

func (e *ProductError) Unwrap() error {
	return e.Err
}

// OrderItem is a snapshot of the catalog taken when the order was created.
// It is never re-read from the product afterwards.
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type PaymentResult struct {
	PaymentID   string    `json:"payment_id"`
	Status      string    `json:"status"`
	CompletedAt time.Time `json:"completed_at"`
	Email       string    `json:"email"`
}

type TrackingInfo struct {
	Carrier       string `json:"carrier"`
	WaybillNumber string `json:"waybill_number"`
	InvoiceURL    string `json:"invoice_url"`
	TrackingURL   string `json:"tracking_url"`
}

type Order struct {
	ID              uuid.UUID         `json:"id"`
	UserID          uuid.UUID         `json:"user_id"`
	Items           []OrderItem       `json:"order_items"`
	ShippingAddress ShippingAddress   `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method"`
	Pricing         pricing.Breakdown `json:"pricing"`
	IsPaid          bool              `json:"is_paid"`
	PaidAt          *time.Time        `json:"paid_at,omitempty"`
	PaymentResult   *PaymentResult    `json:"payment_result,omitempty"`
	IsDelivered     bool              `json:"is_delivered"`
	DeliveredAt     *time.Time        `json:"delivered_at,omitempty"`
	Tracking        *TrackingInfo     `json:"tracking,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// Status is derived from the paid and delivered flags.
func (o *Order) Status() OrderStatus {
	switch {
	case o.IsDelivered:
		return StatusDelivered
	case o.IsPaid:
		return StatusPaid
	default:
		return StatusCreated
	}
}

// CartLine is one requested line of a new order. Client-side price, name and
// image are not part of it: they are always taken from the catalog.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	UserID          uuid.UUID
	Items           []CartLine
	ShippingAddress ShippingAddress
	PaymentMethod   string
}
