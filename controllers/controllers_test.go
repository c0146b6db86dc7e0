package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront/models"
	"storefront/query"
	"storefront/services"
)

var discard = slog.New(slog.DiscardHandler)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockCatalog struct{ mock.Mock }

func (m *mockCatalog) ListProducts(ctx context.Context, filter query.ProductFilter) (services.ProductPage, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(services.ProductPage), args.Error(1)
}

func (m *mockCatalog) ListCategories(ctx context.Context) (services.CategoryPage, error) {
	args := m.Called(ctx)
	return args.Get(0).(services.CategoryPage), args.Error(1)
}

func (m *mockCatalog) PurgeCache() int { return m.Called().Int(0) }
func (m *mockCatalog) CacheSize() int  { return m.Called().Int(0) }

type mockOrders struct{ mock.Mock }

func (m *mockOrders) SubmitOrder(ctx context.Context, req models.OrderRequest) (models.Receipt, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(models.Receipt), args.Error(1)
}

func router(catalog *mockCatalog, orders *mockOrders) *gin.Engine {
	r := gin.New()
	cc := NewCatalogController(catalog, discard)
	oc := NewOrderController(orders, discard)
	ac := NewAdminController(catalog, discard)
	r.GET("/api/products", cc.GetProducts)
	r.GET("/api/categories", cc.GetCategories)
	r.POST("/api/orders", oc.CreateOrder)
	r.GET("/api/admin/cache", ac.GetCacheStats)
	r.DELETE("/api/admin/cache", ac.PurgeCache)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGetProducts(t *testing.T) {
	catalog := new(mockCatalog)
	cat := int64(3)
	catalog.On("ListProducts", mock.Anything, query.ProductFilter{CategoryID: &cat, Limit: 2}).
		Return(services.ProductPage{
			Products: []models.Product{{ID: 12, CategoryID: 3}, {ID: 10, CategoryID: 3}},
			Source:   models.SourceFallback,
		}, nil).Once()

	w := serve(router(catalog, nil), http.MethodGet, "/api/products?limit=2&categoryId=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FALLBACK", w.Header().Get("X-Data-Source"))

	body := decode(t, w)
	assert.Equal(t, "FALLBACK", body["source"])
	assert.Equal(t, float64(2), body["count"])
	assert.NotContains(t, body, "cachedFrom")
	products := body["products"].([]any)
	assert.Equal(t, float64(12), products[0].(map[string]any)["id"])
	catalog.AssertExpectations(t)
}

func TestGetProducts_CachedFrom(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("ListProducts", mock.Anything, mock.Anything).
		Return(services.ProductPage{Products: []models.Product{}, Source: models.SourceCache, CachedFrom: models.SourcePrimary}, nil)

	w := serve(router(catalog, nil), http.MethodGet, "/api/products", "")
	body := decode(t, w)
	assert.Equal(t, "CACHE", body["source"])
	assert.Equal(t, "PRIMARY", body["cachedFrom"])
	assert.Equal(t, []any{}, body["products"])
}

func TestGetProducts_InvalidQuery(t *testing.T) {
	catalog := new(mockCatalog)
	w := serve(router(catalog, nil), http.MethodGet, "/api/products?categoryId=abc", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_query", decode(t, w)["error"])
	catalog.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
}

func TestGetCategories_Unavailable(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("ListCategories", mock.Anything).
		Return(services.CategoryPage{}, errors.Join(services.ErrFallbackExhausted, errors.New("bad json")))

	w := serve(router(catalog, nil), http.MethodGet, "/api/categories", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "catalog_unavailable", decode(t, w)["error"])
}

func TestGetCategories(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("ListCategories", mock.Anything).
		Return(services.CategoryPage{Categories: []models.Category{{ID: 1, Name: "Kitchenware"}}, Source: models.SourcePrimary}, nil)

	w := serve(router(catalog, nil), http.MethodGet, "/api/categories", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PRIMARY", w.Header().Get("X-Data-Source"))
	body := decode(t, w)
	assert.Equal(t, float64(1), body["count"])
}

const kettleBody = `{
	"customerName": "Ali Hassan",
	"phone": "07701234567",
	"province": "Baghdad",
	"lineItems": [{"code": "BYT58434125", "quantity": 2, "unitPrice": 50000}],
	"totalAmount": 105000
}`

func TestCreateOrder(t *testing.T) {
	orders := new(mockOrders)
	orders.On("SubmitOrder", mock.Anything, mock.MatchedBy(func(req models.OrderRequest) bool {
		return len(req.LineItems) == 1 && req.LineItems[0].Quantity == 2 && req.TotalAmount == 105000
	})).Return(models.Receipt{Success: true, Message: "ok", OrderCorrelationID: "c-1", Persisted: false}, nil).Once()

	w := serve(router(nil, orders), http.MethodPost, "/api/orders", kettleBody)
	require.Equal(t, http.StatusCreated, w.Code)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "c-1", body["orderCorrelationId"])
	assert.NotContains(t, body, "persisted")
	orders.AssertExpectations(t)
}

func TestCreateOrder_ValidationFailed(t *testing.T) {
	orders := new(mockOrders)
	orders.On("SubmitOrder", mock.Anything, mock.Anything).
		Return(models.Receipt{}, &services.ValidationError{Fields: map[string]string{"lineItems": "min=1"}})

	w := serve(router(nil, orders), http.MethodPost, "/api/orders", `{"customerName":"a","phone":"1","lineItems":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	body := decode(t, w)
	assert.Equal(t, "validation_failed", body["error"])
	assert.Equal(t, map[string]any{"lineItems": "min=1"}, body["fields"])
}

func TestCreateOrder_MalformedBody(t *testing.T) {
	orders := new(mockOrders)
	w := serve(router(nil, orders), http.MethodPost, "/api/orders", `{"lineItems": "nope"`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request_body", decode(t, w)["error"])
	orders.AssertNotCalled(t, "SubmitOrder", mock.Anything, mock.Anything)
}

func TestCreateOrder_UnexpectedError(t *testing.T) {
	orders := new(mockOrders)
	orders.On("SubmitOrder", mock.Anything, mock.Anything).Return(models.Receipt{}, errors.New("boom"))

	w := serve(router(nil, orders), http.MethodPost, "/api/orders", kettleBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestAdminCache(t *testing.T) {
	catalog := new(mockCatalog)
	catalog.On("CacheSize").Return(3).Once()
	catalog.On("PurgeCache").Return(3).Once()

	r := router(catalog, nil)

	w := serve(r, http.MethodGet, "/api/admin/cache", "")
	assert.Equal(t, float64(3), decode(t, w)["entries"])

	w = serve(r, http.MethodDelete, "/api/admin/cache", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(3), decode(t, w)["purged"])
	catalog.AssertExpectations(t)
}
