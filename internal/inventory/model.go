package inventory

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrVendorNotFound  = errors.New("vendor not found")
	ErrRestockNotFound = errors.New("restock entry not found")
	ErrInvalidQuantity = errors.New("restock quantity must be greater than zero")
	// ErrStockUnderflow is returned when lowering a restock entry would drive stock below zero.
	ErrStockUnderflow = errors.New("stock cannot go negative")
)

// Vendor records are maintained outside this service; only reads happen here.
type Vendor struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Restock is one inbound stock event. Quantity is what the event added to the
// product, so editing it moves stock by the difference.
type Restock struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RestockFilter struct {
	VendorID  uuid.UUID
	ProductID uuid.UUID
}
