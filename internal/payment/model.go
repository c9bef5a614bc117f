package payment

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

var (
	ErrInvalidAmount      = errors.New("payment amount must be greater than zero")
	ErrInvalidSignature   = errors.New("payment signature mismatch")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrMissingFields      = errors.New("intent id, payment id and signature are required")
	ErrIntentNotFound     = errors.New("payment intent not found")
	ErrIntentMismatch     = errors.New("payment intent does not match the order")
)

// IntentInput asks for an intent of Amount minor units. When OrderID is set the
// intent can only settle that order.
type IntentInput struct {
	Amount  int64
	OrderID uuid.NullUUID
}

// IntentRecord is what the store remembers about an issued intent.
type IntentRecord struct {
	ID        string
	OrderID   uuid.NullUUID
	Amount    int64
	Currency  string
	CreatedAt time.Time
}

// Intent is what the client needs to open the gateway's hosted checkout.
type Intent struct {
	IntentID string `json:"intent_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// VerifyInput carries the identifiers the hosted checkout hands back to the client.
type VerifyInput struct {
	IntentID  string
	PaymentID string
	Signature string
	OrderID   uuid.UUID
	Email     string
}
