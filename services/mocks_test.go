package services

import (
	"context"
	"log/slog"

	"github.com/stretchr/testify/mock"

	"storefront/models"
	"storefront/notification"
	"storefront/query"
)

var discard = slog.New(slog.DiscardHandler)

type mockCatalogRepo struct{ mock.Mock }

func (m *mockCatalogRepo) ListCategories(ctx context.Context) ([]models.Category, error) {
	args := m.Called(ctx)
	cats, _ := args.Get(0).([]models.Category)
	return cats, args.Error(1)
}

func (m *mockCatalogRepo) ListProducts(ctx context.Context, filter query.ProductFilter) ([]models.Product, error) {
	args := m.Called(ctx, filter)
	products, _ := args.Get(0).([]models.Product)
	return products, args.Error(1)
}

type mockFallback struct{ mock.Mock }

func (m *mockFallback) Categories() ([]models.Category, error) {
	args := m.Called()
	cats, _ := args.Get(0).([]models.Category)
	return cats, args.Error(1)
}

func (m *mockFallback) Products() ([]models.Product, error) {
	args := m.Called()
	products, _ := args.Get(0).([]models.Product)
	return products, args.Error(1)
}

type mockOrderRepo struct{ mock.Mock }

func (m *mockOrderRepo) InsertOrder(ctx context.Context, o *models.Order) (int64, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockOrderRepo) InsertOrderItem(ctx context.Context, orderID int64, item models.OrderLineItem) error {
	args := m.Called(ctx, orderID, item)
	return args.Error(0)
}

type mockNotifier struct{ mock.Mock }

func (m *mockNotifier) Dispatch(s notification.Summary) bool {
	return m.Called(s).Bool(0)
}
