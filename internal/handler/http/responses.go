package http

import (
	"time"

	"github.com/gofrs/uuid"

	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
	"github.com/vasiliy-maslov/storefront/internal/report"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

// Money leaves the API as a 2-decimal fixed string, never a float.

type ProductResponse struct {
	ID               uuid.UUID        `json:"id"`
	Name             string           `json:"name"`
	ShortDescription string           `json:"short_description"`
	Description      string           `json:"description"`
	Price            string           `json:"price"`
	OriginalPrice    string           `json:"original_price"`
	PurchasePrice    string           `json:"purchase_price,omitempty"`
	BrandID          *uuid.UUID       `json:"brand_id,omitempty"`
	CategoryID       *uuid.UUID       `json:"category_id,omitempty"`
	VendorID         *uuid.UUID       `json:"vendor_id,omitempty"`
	Stock            int              `json:"stock"`
	Specs            catalog.Specs    `json:"specs"`
	Ports            catalog.Ports    `json:"ports"`
	Images           []string         `json:"images"`
	Rating           float64          `json:"rating"`
	NumReviews       int              `json:"num_reviews"`
	Reviews          []catalog.Review `json:"reviews"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
	Total    int               `json:"total"`
}

func nullableID(id uuid.NullUUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	v := id.UUID
	return &v
}

// newProductResponse hides the purchase price unless withCost is set (admin responses).
func newProductResponse(p *catalog.Product, withCost bool) ProductResponse {
	resp := ProductResponse{
		ID:               p.ID,
		Name:             p.Name,
		ShortDescription: p.ShortDescription,
		Description:      p.Description,
		Price:            pricing.Fixed(p.Price),
		OriginalPrice:    pricing.Fixed(p.OriginalPrice),
		BrandID:          nullableID(p.BrandID),
		CategoryID:       nullableID(p.CategoryID),
		VendorID:         nullableID(p.VendorID),
		Stock:            p.Stock,
		Specs:            p.Specs,
		Ports:            p.Ports,
		Images:           p.Images,
		Rating:           p.Rating,
		NumReviews:       p.NumReviews,
		Reviews:          p.Reviews,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if withCost {
		resp.PurchasePrice = pricing.Fixed(p.PurchasePrice)
	}
	if resp.Reviews == nil {
		resp.Reviews = []catalog.Review{}
	}
	return resp
}

type OrderItemResponse struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	Image     string    `json:"image"`
	Quantity  int       `json:"quantity"`
	Price     string    `json:"price"`
}

type OrderResponse struct {
	ID              uuid.UUID             `json:"id"`
	UserID          uuid.UUID             `json:"user_id"`
	OrderItems      []OrderItemResponse   `json:"order_items"`
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                `json:"payment_method"`
	ItemsPrice      string                `json:"items_price"`
	ShippingPrice   string                `json:"shipping_price"`
	TaxPrice        string                `json:"tax_price"`
	TotalPrice      string                `json:"total_price"`
	Status          string                `json:"status"`
	IsPaid          bool                  `json:"is_paid"`
	PaidAt          *time.Time            `json:"paid_at,omitempty"`
	PaymentResult   *order.PaymentResult  `json:"payment_result,omitempty"`
	IsDelivered     bool                  `json:"is_delivered"`
	DeliveredAt     *time.Time            `json:"delivered_at,omitempty"`
	TrackingInfo    *order.TrackingInfo   `json:"tracking_info,omitempty"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

func newOrderResponse(o *order.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Image:     it.Image,
			Quantity:  it.Quantity,
			Price:     pricing.Fixed(it.UnitPrice),
		})
	}

	return OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		OrderItems:      items,
		ShippingAddress: o.ShippingAddress,
		PaymentMethod:   o.PaymentMethod,
		ItemsPrice:      pricing.Fixed(o.Pricing.Items),
		ShippingPrice:   pricing.Fixed(o.Pricing.Shipping),
		TaxPrice:        pricing.Fixed(o.Pricing.Tax),
		TotalPrice:      pricing.Fixed(o.Pricing.Total),
		Status:          o.Status().String(),
		IsPaid:          o.IsPaid,
		PaidAt:          o.PaidAt,
		PaymentResult:   o.PaymentResult,
		IsDelivered:     o.IsDelivered,
		DeliveredAt:     o.DeliveredAt,
		TrackingInfo:    o.Tracking,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func newOrderResponses(orders []order.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for i := range orders {
		out = append(out, newOrderResponse(&orders[i]))
	}
	return out
}

type UserResponse struct {
	ID        uuid.UUID `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

type DailySalesResponse struct {
	Date       string `json:"date"`
	TotalSales string `json:"total_sales"`
}

func newDailySalesResponses(sales []report.DailySales) []DailySalesResponse {
	out := make([]DailySalesResponse, 0, len(sales))
	for _, s := range sales {
		out = append(out, DailySalesResponse{Date: s.Date, TotalSales: pricing.Fixed(s.TotalSales)})
	}
	return out
}
