package database

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/models"
)

type OrderRepository struct {
	db   *sql.DB
	gate *Gate
}

func NewOrderRepository(db *sql.DB, gate *Gate) *OrderRepository {
	return &OrderRepository{db: db, gate: gate}
}

// InsertOrder writes the order header and returns its row id.
func (r *OrderRepository) InsertOrder(ctx context.Context, o *models.Order) (int64, error) {
	leave, err := r.gate.Enter(ctx)
	if err != nil {
		return 0, err
	}
	defer leave()

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (correlation_id, customer_name, phone, address, province, total_amount, shipping_cost, payment_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.CorrelationID, o.CustomerName, o.Phone, o.Address, o.Province,
		o.TotalAmount, o.ShippingCost, string(o.PaymentMethod), o.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order id: %w", err)
	}
	return id, nil
}

// InsertOrderItem writes one line item. Items ordered by code only are
// stored with a NULL product_id.
func (r *OrderRepository) InsertOrderItem(ctx context.Context, orderID int64, item models.OrderLineItem) error {
	leave, err := r.gate.Enter(ctx)
	if err != nil {
		return err
	}
	defer leave()

	productID := sql.NullInt64{Int64: item.ProductID, Valid: item.ProductID > 0}
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO order_items (order_id, product_id, product_code, product_name, quantity, price) VALUES (?, ?, ?, ?, ?, ?)",
		orderID, productID, item.Code, item.Name, item.Quantity, item.UnitPrice,
	)
	if err != nil {
		return fmt.Errorf("insert order item: %w", err)
	}
	return nil
}
