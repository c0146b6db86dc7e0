package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/models"
	"storefront/query"
)

type CatalogRepository struct {
	db   *sql.DB
	gate *Gate
}

func NewCatalogRepository(db *sql.DB, gate *Gate) *CatalogRepository {
	return &CatalogRepository{db: db, gate: gate}
}

func (r *CatalogRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	leave, err := r.gate.Enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	rows, err := r.db.QueryContext(ctx, `SELECT id, name, localized_name, icon, description FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := []models.Category{}
	for rows.Next() {
		var (
			c    models.Category
			desc sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.LocalizedName, &c.Icon, &desc); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Description = desc.String
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context, filter query.ProductFilter) ([]models.Product, error) {
	leave, err := r.gate.Enter(ctx)
	if err != nil {
		return nil, err
	}
	defer leave()

	stmt, args := filter.SQL()
	rows, err := r.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := []models.Product{}
	for rows.Next() {
		var (
			p      models.Product
			rating decimal.NullDecimal
		)
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.LocalizedName, &p.Price, &rating,
			&p.ReviewCount, &p.CategoryID, &p.Featured, &p.InStock); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if rating.Valid {
			p.Rating = rating.Decimal
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}
