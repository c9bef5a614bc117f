package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	"github.com/vasiliy-maslov/storefront/internal/inventory"
	"github.com/vasiliy-maslov/storefront/internal/memstore"
	"github.com/vasiliy-maslov/storefront/internal/order"
	"github.com/vasiliy-maslov/storefront/internal/payment"
	"github.com/vasiliy-maslov/storefront/internal/pricing"
	"github.com/vasiliy-maslov/storefront/internal/user"
)

func newProduct(t *testing.T, store *memstore.Store, name string, stock int) *catalog.Product {
	t.Helper()
	p := &catalog.Product{
		Name:   name,
		Price:  decimal.RequireFromString("49.99"),
		Stock:  stock,
		Images: []string{"https://cdn.example.com/" + name + ".jpg"},
	}
	require.NoError(t, store.Catalog().CreateProduct(context.Background(), p))
	return p
}

func TestStore_FailedTransactionLeavesNothingBehind(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := newProduct(t, store, "laptop", 5)

	boom := errors.New("boom")
	err := store.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		require.NoError(t, tx.DebitStock(ctx, p.ID, 3))
		require.NoError(t, tx.InsertOrder(ctx, &order.Order{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4())}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Catalog().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.Stock)

	orders, err := store.Orders().ListOrders(ctx)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestStore_DebitStockIsConditional(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := newProduct(t, store, "laptop", 2)

	err := store.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		return tx.DebitStock(ctx, p.ID, 3)
	})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	err = store.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		return tx.DebitStock(ctx, uuid.Must(uuid.NewV4()), 1)
	})
	require.ErrorIs(t, err, catalog.ErrInsufficientStock)

	for _, qty := range []int{0, -3} {
		err = store.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
			return tx.DebitStock(ctx, p.ID, qty)
		})
		require.ErrorIs(t, err, order.ErrInvalidItem)
	}

	got, err := store.Catalog().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Stock)
}

func TestStore_CanceledContextIsNotCommitted(t *testing.T) {
	store := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Catalog().CreateProduct(ctx, &catalog.Product{Name: "x", Images: []string{"a"}})
	require.ErrorIs(t, err, context.Canceled)

	_, total, err := store.Catalog().ListProducts(context.Background(), catalog.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestCatalog_ListFiltersAndPages(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	newProduct(t, store, "ThinkPad X1", 1)
	newProduct(t, store, "MacBook Air", 1)
	last := newProduct(t, store, "ThinkPad T14", 1)

	products, total, err := store.Catalog().ListProducts(ctx, catalog.ListFilter{Keyword: "thinkpad", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, products, 1)
	assert.Equal(t, last.ID, products[0].ID, "newest first")

	products, _, err = store.Catalog().ListProducts(ctx, catalog.ListFilter{Keyword: "thinkpad", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "ThinkPad X1", products[0].Name)
}

func TestCatalog_ReviewsAggregate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := newProduct(t, store, "laptop", 1)
	alice, bob := uuid.Must(uuid.NewV4()), uuid.Must(uuid.NewV4())

	_, err := store.Catalog().AddReview(ctx, p.ID, catalog.Review{ID: uuid.Must(uuid.NewV4()), UserID: alice, Rating: 4})
	require.NoError(t, err)
	got, err := store.Catalog().AddReview(ctx, p.ID, catalog.Review{ID: uuid.Must(uuid.NewV4()), UserID: bob, Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumReviews)
	assert.InDelta(t, 3.0, got.Rating, 1e-9)

	_, err = store.Catalog().AddReview(ctx, p.ID, catalog.Review{ID: uuid.Must(uuid.NewV4()), UserID: alice, Rating: 5})
	require.ErrorIs(t, err, catalog.ErrAlreadyReviewed)

	stored, err := store.Catalog().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.NumReviews)
	assert.InDelta(t, 3.0, stored.Rating, 1e-9)
}

func TestCatalog_UpdateKeepsReviewAggregate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := newProduct(t, store, "laptop", 1)
	_, err := store.Catalog().AddReview(ctx, p.ID, catalog.Review{ID: uuid.Must(uuid.NewV4()), UserID: uuid.Must(uuid.NewV4()), Rating: 5})
	require.NoError(t, err)

	update := *p
	update.Name = "laptop pro"
	update.Rating, update.NumReviews = 0, 0
	require.NoError(t, store.Catalog().UpdateProduct(ctx, &update))

	got, err := store.Catalog().GetProductByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "laptop pro", got.Name)
	assert.Equal(t, 1, got.NumReviews)
	assert.Len(t, got.Reviews, 1)
}

func TestInventory_AdjustStockGuardsUnderflow(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p := newProduct(t, store, "laptop", 2)

	err := store.Inventory().WithinTx(ctx, func(ctx context.Context, tx inventory.Tx) error {
		return tx.AdjustStock(ctx, p.ID, -3)
	})
	require.ErrorIs(t, err, inventory.ErrStockUnderflow)

	err = store.Inventory().WithinTx(ctx, func(ctx context.Context, tx inventory.Tx) error {
		return tx.AdjustStock(ctx, uuid.Must(uuid.NewV4()), 1)
	})
	require.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestInventory_ListRestocksFilters(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	p1 := newProduct(t, store, "a", 0)
	p2 := newProduct(t, store, "b", 0)
	acme := store.AddVendor(inventory.Vendor{Username: "acme"})
	globex := store.AddVendor(inventory.Vendor{Username: "globex"})

	insert := func(productID, vendorID uuid.UUID) {
		err := store.Inventory().WithinTx(ctx, func(ctx context.Context, tx inventory.Tx) error {
			return tx.InsertRestock(ctx, &inventory.Restock{ID: uuid.Must(uuid.NewV4()), ProductID: productID, VendorID: vendorID, Quantity: 1})
		})
		require.NoError(t, err)
	}
	insert(p1.ID, acme.ID)
	insert(p2.ID, acme.ID)
	insert(p1.ID, globex.ID)

	byVendor, err := store.Inventory().ListRestocks(ctx, inventory.RestockFilter{VendorID: acme.ID})
	require.NoError(t, err)
	assert.Len(t, byVendor, 2)

	both, err := store.Inventory().ListRestocks(ctx, inventory.RestockFilter{VendorID: globex.ID, ProductID: p1.ID})
	require.NoError(t, err)
	assert.Len(t, both, 1)

	all, err := store.Inventory().ListRestocks(ctx, inventory.RestockFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	vendors, err := store.Inventory().ListVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 2)
	assert.Equal(t, "acme", vendors[0].Username)
}

func TestUsers_EmailIsUnique(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	_, err := store.Users().Create(ctx, &user.User{Username: "a", Email: "a@example.com", PasswordHash: "h1"})
	require.NoError(t, err)
	bobID, err := store.Users().Create(ctx, &user.User{Username: "b", Email: "b@example.com", PasswordHash: "h2"})
	require.NoError(t, err)

	_, err = store.Users().Create(ctx, &user.User{Username: "c", Email: "a@example.com"})
	require.ErrorIs(t, err, user.ErrEmailExists)

	err = store.Users().Update(ctx, &user.User{ID: bobID, Username: "b", Email: "a@example.com"})
	require.ErrorIs(t, err, user.ErrEmailExists)

	require.NoError(t, store.Users().Update(ctx, &user.User{ID: bobID, Username: "bobby", Email: "b@example.com"}))
	bob, err := store.Users().GetByID(ctx, bobID)
	require.NoError(t, err)
	assert.Equal(t, "bobby", bob.Username)
	assert.Equal(t, "h2", bob.PasswordHash, "empty hash keeps the stored password")

	users, err := store.Users().List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "a", users[0].Username)
}

func TestReports_SalesByPaidDay(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	day1 := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)
	day2 := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	insert := func(total string) uuid.UUID {
		id := uuid.Must(uuid.NewV4())
		err := store.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
			return tx.InsertOrder(ctx, &order.Order{
				ID:      id,
				UserID:  uuid.Must(uuid.NewV4()),
				Pricing: pricing.Breakdown{Total: decimal.RequireFromString(total)},
			})
		})
		require.NoError(t, err)
		return id
	}
	a, b, c := insert("10.50"), insert("20.00"), insert("5.25")
	insert("99.99") // never paid

	for id, at := range map[uuid.UUID]time.Time{a: day1, b: day1, c: day2} {
		ok, err := store.Orders().MarkPaid(ctx, id, at, order.PaymentResult{PaymentID: "pay"})
		require.NoError(t, err)
		require.True(t, ok)
	}

	count, err := store.Reports().CountOrders(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)

	total, err := store.Reports().TotalSales(ctx)
	require.NoError(t, err)
	assert.Equal(t, "135.74", total.StringFixed(2), "unpaid orders count toward total sales")

	sales, err := store.Reports().SalesByDate(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 2)
	assert.Equal(t, "2026-03-01", sales[0].Date)
	assert.Equal(t, "30.50", sales[0].TotalSales.StringFixed(2))
	assert.Equal(t, "2026-03-02", sales[1].Date)
}

func TestOrders_MarkPaidAndDeliveredAreConditional(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	id := uuid.Must(uuid.NewV4())
	require.NoError(t, store.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		return tx.InsertOrder(ctx, &order.Order{ID: id, UserID: uuid.Must(uuid.NewV4())})
	}))

	ok, err := store.Orders().MarkDelivered(ctx, id, time.Now())
	require.NoError(t, err)
	assert.False(t, ok, "unpaid order cannot be delivered")

	ok, err = store.Orders().MarkPaid(ctx, id, time.Now(), order.PaymentResult{PaymentID: "p1"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Orders().MarkPaid(ctx, id, time.Now(), order.PaymentResult{PaymentID: "p2"})
	require.NoError(t, err)
	assert.False(t, ok)

	otherID := uuid.Must(uuid.NewV4())
	require.NoError(t, store.Orders().WithinTx(ctx, func(ctx context.Context, tx order.Tx) error {
		return tx.InsertOrder(ctx, &order.Order{ID: otherID, UserID: uuid.Must(uuid.NewV4())})
	}))
	_, err = store.Orders().MarkPaid(ctx, otherID, time.Now(), order.PaymentResult{PaymentID: "p1"})
	require.ErrorIs(t, err, order.ErrPaymentReused)

	got, err := store.Orders().GetOrderByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "p1", got.PaymentResult.PaymentID)

	_, err = store.Orders().MarkPaid(ctx, uuid.Must(uuid.NewV4()), time.Now(), order.PaymentResult{})
	require.ErrorIs(t, err, order.ErrOrderNotFound)
}

func TestPayments_IntentsAreRecordedOnce(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	rec := &payment.IntentRecord{ID: "order_raw", Amount: 500, Currency: "INR", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Payments().SaveIntent(ctx, rec))
	assert.Error(t, store.Payments().SaveIntent(ctx, rec))

	got, err := store.Payments().GetIntent(ctx, "order_raw")
	require.NoError(t, err)
	assert.Equal(t, *rec, *got)

	_, err = store.Payments().GetIntent(ctx, "order_missing")
	require.ErrorIs(t, err, payment.ErrIntentNotFound)

	err = store.Payments().SaveIntent(ctx, &payment.IntentRecord{ID: "order_orphan", OrderID: uuid.NullUUID{UUID: uuid.Must(uuid.NewV4()), Valid: true}, Amount: 1})
	assert.Error(t, err)
}
