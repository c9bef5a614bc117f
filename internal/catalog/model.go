package catalog

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrAlreadyReviewed   = errors.New("product already reviewed by this user")
)

// Allowed values of the Specs fields. Anything else is rejected on create and update.
var (
	ScreenSizes        = []string{"13.3", "14", "15.6", "16", "17.3"}
	RAMSizes           = []string{"4GB", "8GB", "16GB", "32GB", "64GB"}
	StorageSizes       = []string{"128GB", "256GB", "512GB", "1TB", "2TB"}
	Colors             = []string{"black", "silver", "gray", "white", "blue", "red"}
	Keyboards          = []string{"backlit", "standard"}
	Adapters           = []string{"45W", "65W", "90W", "120W", "180W"}
	FingerprintSensors = []string{"yes", "no"}
	STypes             = []string{"SSD", "HDD", "NVMe", "Hybrid"}
)

type Specs struct {
	ScreenSize        string `json:"screen_size"`
	RAM               string `json:"ram"`
	Storage           string `json:"storage"`
	Color             string `json:"color"`
	Keyboard          string `json:"keyboard"`
	Adapter           string `json:"adapter"`
	FingerprintSensor string `json:"fingerprint_sensor"`
	SType             string `json:"s_type"`
}

type Ports struct {
	USB   int `json:"usb"`
	HDMI  int `json:"hdmi"`
	CType int `json:"c_type"`
}

// Review is embedded in its product; one per (product, user).
type Review struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

type Product struct {
	ID               uuid.UUID       `json:"id"`
	Name             string          `json:"name"`
	ShortDescription string          `json:"short_description"`
	Description      string          `json:"description"`
	Price            decimal.Decimal `json:"price"`
	OriginalPrice    decimal.Decimal `json:"original_price"`
	PurchasePrice    decimal.Decimal `json:"purchase_price"`
	BrandID          uuid.NullUUID   `json:"brand_id"`
	CategoryID       uuid.NullUUID   `json:"category_id"`
	VendorID         uuid.NullUUID   `json:"vendor_id"`
	Stock            int             `json:"stock"`
	Specs            Specs           `json:"specs"`
	Ports            Ports           `json:"ports"`
	Images           []string        `json:"images"`
	Rating           float64         `json:"rating"`
	NumReviews       int             `json:"num_reviews"`
	Reviews          []Review        `json:"reviews"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// FirstImage is the image snapshotted onto order line items.
func (p *Product) FirstImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

// Validate checks the invariants every stored product must hold.
func (p *Product) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProduct)
	}
	if p.Price.IsNegative() || p.OriginalPrice.IsNegative() || p.PurchasePrice.IsNegative() {
		return fmt.Errorf("%w: prices cannot be negative", ErrInvalidProduct)
	}
	for _, price := range []decimal.Decimal{p.Price, p.OriginalPrice, p.PurchasePrice} {
		if !price.Equal(price.Round(2)) {
			return fmt.Errorf("%w: prices cannot have more than 2 decimal places", ErrInvalidProduct)
		}
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock cannot be negative", ErrInvalidProduct)
	}
	if p.Ports.USB < 0 || p.Ports.HDMI < 0 || p.Ports.CType < 0 {
		return fmt.Errorf("%w: port counts cannot be negative", ErrInvalidProduct)
	}
	if len(p.Images) == 0 {
		return fmt.Errorf("%w: at least one image is required", ErrInvalidProduct)
	}

	enums := []struct {
		field   string
		value   string
		allowed []string
	}{
		{"screen_size", p.Specs.ScreenSize, ScreenSizes},
		{"ram", p.Specs.RAM, RAMSizes},
		{"storage", p.Specs.Storage, StorageSizes},
		{"color", p.Specs.Color, Colors},
		{"keyboard", p.Specs.Keyboard, Keyboards},
		{"adapter", p.Specs.Adapter, Adapters},
		{"fingerprint_sensor", p.Specs.FingerprintSensor, FingerprintSensors},
		{"s_type", p.Specs.SType, STypes},
	}
	for _, e := range enums {
		if !slices.Contains(e.allowed, e.value) {
			return fmt.Errorf("%w: %s %q is not one of %v", ErrInvalidProduct, e.field, e.value, e.allowed)
		}
	}

	return nil
}

// HasReviewBy reports whether userID already reviewed the product.
func (p *Product) HasReviewBy(userID uuid.UUID) bool {
	for _, r := range p.Reviews {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// AverageRating is the arithmetic mean of the review ratings, 0 with no reviews.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// ListFilter narrows ListProducts. Zero Limit means the default page size.
type ListFilter struct {
	Keyword string
	Limit   int
	Offset  int
}

// CacheKey is the cache key of a single product document.
func CacheKey(id uuid.UUID) string {
	return "product:" + id.String()
}

// CacheKeys maps ids to their cache keys.
func CacheKeys(ids ...uuid.UUID) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, CacheKey(id))
	}
	return keys
}
