package models

import (
	"time"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "cash_on_delivery"
	PaymentOnline         PaymentMethod = "online"
)

type Order struct {
	ID            int64           `json:"id"`
	CorrelationID string          `json:"orderCorrelationId"`
	CustomerName  string          `json:"customerName"`
	Phone         string          `json:"phone"`
	Address       string          `json:"address"`
	Province      string          `json:"province"`
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	TotalAmount   int64           `json:"totalAmount"`
	ShippingCost  int64           `json:"shippingCost"`
	CreatedAt     time.Time       `json:"createdAt"`
	LineItems     []OrderLineItem `json:"lineItems"`
}

// OrderLineItem keeps the unit price the customer saw when ordering.
type OrderLineItem struct {
	OrderID   int64  `json:"orderId,omitempty"`
	ProductID int64  `json:"productId,omitempty"`
	Code      string `json:"code,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

func (i OrderLineItem) Subtotal() int64 {
	return int64(i.Quantity) * i.UnitPrice
}

// OrderRequest is the body of POST /api/orders.
type OrderRequest struct {
	CustomerName  string            `json:"customerName" validate:"required"`
	Phone         string            `json:"phone" validate:"required"`
	Address       string            `json:"address"`
	Province      string            `json:"province"`
	PaymentMethod PaymentMethod     `json:"paymentMethod" validate:"omitempty,oneof=cash_on_delivery online"`
	LineItems     []LineItemRequest `json:"lineItems" validate:"required,min=1,dive"`
	TotalAmount   int64             `json:"totalAmount"`
}

type LineItemRequest struct {
	ProductID int64  `json:"productId" validate:"required_without=Code,gte=0"`
	Code      string `json:"code" validate:"required_without=ProductID"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity" validate:"gt=0"`
	UnitPrice int64  `json:"unitPrice" validate:"gte=0"`
}

type Receipt struct {
	Success            bool   `json:"success"`
	Message            string `json:"message"`
	OrderCorrelationID string `json:"orderCorrelationId"`

	// Persisted reports whether header and every line item were written.
	Persisted bool `json:"-"`
}

// ExpectedTotal is what totalAmount should be for the given items.
func ExpectedTotal(items []OrderLineItem, shipping int64) int64 {
	total := shipping
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}
