package http_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/storefront/internal/cache"
	"github.com/vasiliy-maslov/storefront/internal/catalog"
	storeHandler "github.com/vasiliy-maslov/storefront/internal/handler/http"
	"github.com/vasiliy-maslov/storefront/internal/memstore"
	"github.com/vasiliy-maslov/storefront/internal/storage"
)

func productBody(name string) map[string]any {
	return map[string]any{
		"name":           name,
		"price":          "49.99",
		"original_price": "59.99",
		"purchase_price": "30.00",
		"stock":          5,
		"specs": map[string]string{
			"screen_size": "14", "ram": "8GB", "storage": "256GB", "color": "silver",
			"keyboard": "standard", "adapter": "45W", "fingerprint_sensor": "no", "s_type": "SSD",
		},
		"ports":  map[string]int{"usb": 2, "hdmi": 1, "c_type": 1},
		"images": []string{"https://cdn.example.com/" + name + ".jpg"},
	}
}

func newProductRouter() (http.Handler, catalog.Service) {
	store := memstore.New()
	svc := catalog.NewService(store.Catalog(), cache.Nop{}, storage.Nop{}, time.Minute)
	return newRouter(storeHandler.NewProductHandler(svc)), svc
}

func TestProductHandler_CreateAndGet_HidesPurchasePrice(t *testing.T) {
	router, _ := newProductRouter()

	rr := do(t, router, http.MethodPost, "/products", productBody("thinkpad"), tokenFor(t, admin()))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[storeHandler.ProductResponse](t, rr)
	assert.Equal(t, "49.99", created.Price)
	assert.Equal(t, "30.00", created.PurchasePrice)

	rr = do(t, router, http.MethodGet, "/products/"+created.ID.String(), nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "purchase_price")
	got := decode[storeHandler.ProductResponse](t, rr)
	assert.Equal(t, 5, got.Stock)
	assert.Equal(t, []catalog.Review{}, got.Reviews)
}

func TestProductHandler_handleCreateProduct_Rejected(t *testing.T) {
	router, _ := newProductRouter()

	rr := do(t, router, http.MethodPost, "/products", productBody("thinkpad"), tokenFor(t, buyer()))
	assert.Equal(t, http.StatusForbidden, rr.Code)

	badSpecs := productBody("thinkpad")
	badSpecs["specs"] = map[string]string{"screen_size": "99"}
	rr = do(t, router, http.MethodPost, "/products", badSpecs, tokenFor(t, admin()))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[map[string]string](t, rr)["error"], "invalid product")

	negative := productBody("thinkpad")
	negative["price"] = "-1"
	rr = do(t, router, http.MethodPost, "/products", negative, tokenFor(t, admin()))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	noImages := productBody("thinkpad")
	noImages["images"] = []string{}
	rr = do(t, router, http.MethodPost, "/products", noImages, tokenFor(t, admin()))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProductHandler_handleListProducts_Paging(t *testing.T) {
	router, _ := newProductRouter()
	token := tokenFor(t, admin())
	for i := range 3 {
		rr := do(t, router, http.MethodPost, "/products", productBody(fmt.Sprintf("laptop-%d", i)), token)
		require.Equal(t, http.StatusCreated, rr.Code)
	}

	rr := do(t, router, http.MethodGet, "/products?limit=1&page=2", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[storeHandler.ProductListResponse](t, rr)
	assert.Equal(t, 2, resp.Page)
	assert.Equal(t, 3, resp.Pages)
	assert.Equal(t, 3, resp.Total)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "laptop-1", resp.Products[0].Name)

	rr = do(t, router, http.MethodGet, "/products?keyword=LAPTOP-2", nil, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[storeHandler.ProductListResponse](t, rr).Total)

	rr = do(t, router, http.MethodGet, "/products?page=0", nil, "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestProductHandler_handleAddReview(t *testing.T) {
	router, _ := newProductRouter()
	rr := do(t, router, http.MethodPost, "/products", productBody("thinkpad"), tokenFor(t, admin()))
	require.Equal(t, http.StatusCreated, rr.Code)
	product := decode[storeHandler.ProductResponse](t, rr)
	path := "/products/" + product.ID.String() + "/reviews"

	reviewer := tokenFor(t, buyer())

	rr = do(t, router, http.MethodPost, path, storeHandler.ReviewRequest{Rating: 5, Comment: "great"}, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = do(t, router, http.MethodPost, path, storeHandler.ReviewRequest{Rating: 6}, reviewer)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(t, router, http.MethodPost, path, storeHandler.ReviewRequest{Rating: 4, Comment: "great"}, reviewer)
	require.Equal(t, http.StatusCreated, rr.Code)
	reviewed := decode[storeHandler.ProductResponse](t, rr)
	assert.Equal(t, 1, reviewed.NumReviews)
	assert.InDelta(t, 4.0, reviewed.Rating, 1e-9)
	require.Len(t, reviewed.Reviews, 1)
	assert.Equal(t, "buyer@example.com", reviewed.Reviews[0].Name)

	rr = do(t, router, http.MethodPost, path, storeHandler.ReviewRequest{Rating: 2}, reviewer)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, catalog.ErrAlreadyReviewed.Error(), decode[map[string]string](t, rr)["error"])
}

func TestProductHandler_handleDeleteProduct(t *testing.T) {
	router, _ := newProductRouter()
	rr := do(t, router, http.MethodPost, "/products", productBody("thinkpad"), tokenFor(t, admin()))
	require.Equal(t, http.StatusCreated, rr.Code)
	product := decode[storeHandler.ProductResponse](t, rr)

	rr = do(t, router, http.MethodDelete, "/products/"+product.ID.String(), nil, tokenFor(t, admin()))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, router, http.MethodGet, "/products/"+product.ID.String(), nil, "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
