package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront/middlewares"
	"storefront/models"
	"storefront/services"
)

type OrderSubmitter interface {
	SubmitOrder(ctx context.Context, req models.OrderRequest) (models.Receipt, error)
}

type OrderController struct {
	orders OrderSubmitter
	log    *slog.Logger
}

func NewOrderController(orders OrderSubmitter, log *slog.Logger) *OrderController {
	return &OrderController{orders: orders, log: log}
}

// CreateOrder serves POST /api/orders. Once the body is valid the customer
// gets 201 even if saving or notifying failed behind the scenes.
func (oc *OrderController) CreateOrder(c *gin.Context) {
	defer func() {
		status := c.Writer.Status() >= 200 && c.Writer.Status() < 300
		middlewares.RecordOrderOperation("submit", status)
	}()

	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid_request_body", "message": err.Error()})
		return
	}

	receipt, err := oc.orders.SubmitOrder(c.Request.Context(), req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "validation_failed", "fields": verr.Fields})
			return
		}
		oc.log.ErrorContext(c.Request.Context(), "order submission failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal_error"})
		return
	}

	c.JSON(http.StatusCreated, receipt)
}
