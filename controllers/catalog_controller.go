package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middlewares"
	"storefront/models"
	"storefront/query"
	"storefront/services"
)

const dataSourceHeader = "X-Data-Source"

type CatalogReader interface {
	ListProducts(ctx context.Context, filter query.ProductFilter) (services.ProductPage, error)
	ListCategories(ctx context.Context) (services.CategoryPage, error)
}

type CatalogController struct {
	catalog CatalogReader
	log     *slog.Logger
}

func NewCatalogController(catalog CatalogReader, log *slog.Logger) *CatalogController {
	return &CatalogController{catalog: catalog, log: log}
}

// GetProducts serves GET /api/products.
func (cc *CatalogController) GetProducts(c *gin.Context) {
	filter, err := query.FromValues(c.Request.URL.Query())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_query", "message": err.Error()})
		return
	}

	page, err := cc.catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		cc.catalogError(c, "products", err)
		return
	}

	middlewares.RecordCatalogRead("products", string(page.Source))
	c.Header(dataSourceHeader, string(page.Source))
	body := gin.H{
		"source":   page.Source,
		"count":    len(page.Products),
		"products": page.Products,
	}
	withCachedFrom(body, page.CachedFrom)
	c.JSON(http.StatusOK, body)
}

// GetCategories serves GET /api/categories.
func (cc *CatalogController) GetCategories(c *gin.Context) {
	page, err := cc.catalog.ListCategories(c.Request.Context())
	if err != nil {
		cc.catalogError(c, "categories", err)
		return
	}

	middlewares.RecordCatalogRead("categories", string(page.Source))
	c.Header(dataSourceHeader, string(page.Source))
	body := gin.H{
		"source":     page.Source,
		"count":      len(page.Categories),
		"categories": page.Categories,
	}
	withCachedFrom(body, page.CachedFrom)
	c.JSON(http.StatusOK, body)
}

func (cc *CatalogController) catalogError(c *gin.Context, resource string, err error) {
	cc.log.ErrorContext(c.Request.Context(), "catalog read failed",
		slog.String("resource", resource),
		slog.String("error", err.Error()))
	if errors.Is(err, services.ErrFallbackExhausted) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "catalog_unavailable"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal_error"})
}

func withCachedFrom(body gin.H, from models.Provenance) {
	if from != "" {
		body["cachedFrom"] = from
	}
}
