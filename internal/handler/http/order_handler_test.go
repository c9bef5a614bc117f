package http_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/storefront/internal/catalog"
	storeHandler "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input order.CreateOrderInput) (*order.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrdersByUserID(ctx context.Context, userID uuid.UUID) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context) ([]order.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) MarkPaid(ctx context.Context, id uuid.UUID, result order.PaymentResult) (*order.Order, error) {
	args := m.Called(ctx, id, result)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) MarkDelivered(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateTracking(ctx context.Context, id uuid.UUID, tracking order.TrackingInfo) (*order.Order, error) {
	args := m.Called(ctx, id, tracking)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func sampleOrder(owner uuid.UUID) *order.Order {
	price := decimal.RequireFromString("49.99")
	return &order.Order{
		ID:     uuid.Must(uuid.NewV4()),
		UserID: owner,
		Items: []order.OrderItem{
			{ProductID: uuid.Must(uuid.NewV4()), Name: "ThinkPad", Image: "https://cdn.example.com/t.jpg", Quantity: 3, UnitPrice: price},
		},
		ShippingAddress: order.ShippingAddress{Address: "1 Main St", City: "Pune", PostalCode: "411001", Country: "IN"},
		PaymentMethod:   "card",
		Pricing:         pricing.Compute([]pricing.Line{{UnitPrice: price, Quantity: 3}}),
	}
}

func TestOrderHandler_handleCreateOrder_DropsClientPrices(t *testing.T) {
	mockService := new(MockOrderService)
	router := newRouter(storeHandler.NewOrderHandler(mockService))
	caller := buyer()
	productID := uuid.Must(uuid.NewV4())
	created := sampleOrder(caller.UserID)

	mockService.On("CreateOrder", mock.Anything, mock.MatchedBy(func(in order.CreateOrderInput) bool {
		return in.UserID == caller.UserID &&
			len(in.Items) == 1 &&
			in.Items[0] == order.CartLine{ProductID: productID, Quantity: 3} &&
			in.ShippingAddress.City == "Pune" &&
			in.PaymentMethod == "card"
	})).Return(created, nil).Once()

	body := `{
		"order_items": [{"product_id": "` + productID.String() + `", "quantity": 3, "price": "0.01", "name": "free", "image": "x"}],
		"shipping_address": {"address": "1 Main St", "city": "Pune", "postal_code": "411001", "country": "IN"},
		"payment_method": "card"
	}`
	rr := do(t, router, http.MethodPost, "/orders", body, tokenFor(t, caller))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	resp := decode[storeHandler.OrderResponse](t, rr)
	assert.Equal(t, "149.97", resp.ItemsPrice)
	assert.Equal(t, "0.00", resp.ShippingPrice)
	assert.Equal(t, "22.50", resp.TaxPrice)
	assert.Equal(t, "172.47", resp.TotalPrice)
	assert.Equal(t, "49.99", resp.OrderItems[0].Price)
	assert.Equal(t, "CREATED", resp.Status)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleCreateOrder_Errors(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())
	validBody := map[string]any{
		"order_items":      []map[string]any{{"product_id": productID, "quantity": 1}},
		"shipping_address": map[string]string{"address": "1 Main St", "city": "Pune", "postal_code": "411001", "country": "IN"},
		"payment_method":   "card",
	}

	testCases := []struct {
		name       string
		body       any
		serviceErr error
		wantStatus int
	}{
		{
			name:       "out_of_stock",
			body:       validBody,
			serviceErr: &order.ProductError{ProductID: productID, Err: catalog.ErrInsufficientStock},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown_product",
			body:       validBody,
			serviceErr: &order.ProductError{ProductID: productID, Err: catalog.ErrProductNotFound},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "storage_failure",
			body:       validBody,
			serviceErr: errors.New("service: failed to create order: tx aborted"),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "empty_cart",
			body:       map[string]any{"order_items": []any{}, "shipping_address": validBody["shipping_address"], "payment_method": "card"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "zero_quantity",
			body: map[string]any{
				"order_items":      []map[string]any{{"product_id": productID, "quantity": 0}},
				"shipping_address": validBody["shipping_address"],
				"payment_method":   "card",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "quantity_over_limit",
			body: map[string]any{
				"order_items":      []map[string]any{{"product_id": productID, "quantity": 10001}},
				"shipping_address": validBody["shipping_address"],
				"payment_method":   "card",
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing_address",
			body:       map[string]any{"order_items": validBody["order_items"], "payment_method": "card"},
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			router := newRouter(storeHandler.NewOrderHandler(mockService))
			if tc.serviceErr != nil {
				mockService.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, tc.serviceErr).Once()
			}

			rr := do(t, router, http.MethodPost, "/orders", tc.body, tokenFor(t, buyer()))

			assert.Equal(t, tc.wantStatus, rr.Code, rr.Body.String())
			if tc.serviceErr == nil {
				mockService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
			} else {
				mockService.AssertExpectations(t)
			}
		})
	}
}

func TestOrderHandler_handleGetOrderByID_OwnerOrAdmin(t *testing.T) {
	owner := buyer()
	stored := sampleOrder(owner.UserID)

	testCases := []struct {
		name       string
		caller     func() string
		wantStatus int
	}{
		{name: "owner", caller: func() string { return tokenFor(t, owner) }, wantStatus: http.StatusOK},
		{name: "admin", caller: func() string { return tokenFor(t, admin()) }, wantStatus: http.StatusOK},
		{name: "other_buyer", caller: func() string { return tokenFor(t, buyer()) }, wantStatus: http.StatusNotFound},
		{name: "anonymous", caller: func() string { return "" }, wantStatus: http.StatusUnauthorized},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			router := newRouter(storeHandler.NewOrderHandler(mockService))
			mockService.On("GetOrderByID", mock.Anything, stored.ID).Return(stored, nil).Maybe()

			rr := do(t, router, http.MethodGet, "/orders/"+stored.ID.String(), nil, tc.caller())

			require.Equal(t, tc.wantStatus, rr.Code)
			if tc.wantStatus == http.StatusNotFound {
				assert.Equal(t, order.ErrOrderNotFound.Error(), decode[map[string]string](t, rr)["error"])
			}
			if tc.wantStatus == http.StatusOK {
				assert.Equal(t, stored.ID, decode[storeHandler.OrderResponse](t, rr).ID)
			}
		})
	}
}

func TestOrderHandler_handleGetMyOrders(t *testing.T) {
	mockService := new(MockOrderService)
	router := newRouter(storeHandler.NewOrderHandler(mockService))
	caller := buyer()

	mockService.On("GetOrdersByUserID", mock.Anything, caller.UserID).
		Return([]order.Order{*sampleOrder(caller.UserID)}, nil).Once()

	rr := do(t, router, http.MethodGet, "/orders/mine", nil, tokenFor(t, caller))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]storeHandler.OrderResponse](t, rr), 1)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_AdminRoutes(t *testing.T) {
	mockService := new(MockOrderService)
	router := newRouter(storeHandler.NewOrderHandler(mockService))
	orderID := uuid.Must(uuid.NewV4())

	rr := do(t, router, http.MethodGet, "/orders", nil, tokenFor(t, buyer()))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = do(t, router, http.MethodPut, "/orders/"+orderID.String()+"/deliver", nil, tokenFor(t, buyer()))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	mockService.On("MarkDelivered", mock.Anything, orderID).Return(nil, order.ErrOrderNotPaid).Once()
	rr = do(t, router, http.MethodPut, "/orders/"+orderID.String()+"/deliver", nil, tokenFor(t, admin()))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, order.ErrOrderNotPaid.Error(), decode[map[string]string](t, rr)["error"])

	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleMarkPaid(t *testing.T) {
	mockService := new(MockOrderService)
	router := newRouter(storeHandler.NewOrderHandler(mockService))
	paid := sampleOrder(uuid.Must(uuid.NewV4()))
	paid.IsPaid = true

	mockService.On("MarkPaid", mock.Anything, paid.ID, order.PaymentResult{PaymentID: "cash_1", Status: "completed"}).
		Return(paid, nil).Once()

	rr := do(t, router, http.MethodPut, "/orders/"+paid.ID.String()+"/pay", storeHandler.MarkPaidRequest{
		PaymentID: "cash_1",
		Status:    "completed",
	}, tokenFor(t, admin()))

	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[storeHandler.OrderResponse](t, rr)
	assert.True(t, resp.IsPaid)
	assert.Equal(t, "PAID", resp.Status)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleUpdateTracking_ValidatesURLs(t *testing.T) {
	mockService := new(MockOrderService)
	router := newRouter(storeHandler.NewOrderHandler(mockService))
	orderID := uuid.Must(uuid.NewV4())

	rr := do(t, router, http.MethodPut, "/orders/"+orderID.String()+"/tracking", storeHandler.TrackingRequest{
		Carrier:       "BlueDart",
		WaybillNumber: "WB123",
		TrackingURL:   "not a url",
	}, tokenFor(t, admin()))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	resp := decode[storeHandler.ValidationErrorResponse](t, rr)
	assert.Equal(t, "must be a valid URL", resp.Details["tracking_url"])
	mockService.AssertNotCalled(t, "UpdateTracking", mock.Anything, mock.Anything, mock.Anything)
}
