package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront/models"
)

func validRequest() models.OrderRequest {
	return models.OrderRequest{
		CustomerName: "X",
		Phone:        "Y",
		LineItems: []models.LineItemRequest{
			{Code: "BYT58434125", Quantity: 2, UnitPrice: 50000},
		},
		TotalAmount: 105000,
	}
}

func TestOrderRequest_Valid(t *testing.T) {
	assert.NoError(t, New().Struct(validRequest()))
}

func TestOrderRequest_EmptyLineItems(t *testing.T) {
	req := validRequest()
	req.LineItems = []models.LineItemRequest{}

	err := New().Struct(req)

	require.Error(t, err)
	assert.Equal(t, map[string]string{"lineItems": "min=1"}, FieldErrors(err))
}

func TestOrderRequest_MissingFields(t *testing.T) {
	req := models.OrderRequest{
		LineItems: []models.LineItemRequest{{Quantity: 0}},
	}

	fields := FieldErrors(New().Struct(req))

	assert.Equal(t, "required", fields["customerName"])
	assert.Equal(t, "required", fields["phone"])
	assert.Equal(t, "gt=0", fields["lineItems[0].quantity"])
	assert.Equal(t, "required_without=Code", fields["lineItems[0].productId"])
	assert.Equal(t, "required_without=ProductID", fields["lineItems[0].code"])
}

func TestOrderRequest_PaymentMethod(t *testing.T) {
	req := validRequest()
	req.PaymentMethod = "crypto"
	assert.Equal(t, "oneof=cash_on_delivery online", FieldErrors(New().Struct(req))["paymentMethod"])

	req.PaymentMethod = models.PaymentOnline
	assert.NoError(t, New().Struct(req))
}

func TestFieldErrors_NonValidationError(t *testing.T) {
	assert.Equal(t, map[string]string{"error": "boom"}, FieldErrors(errors.New("boom")))
}
