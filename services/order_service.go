package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"storefront/models"
	"storefront/notification"
	"storefront/validation"
)

const orderAcceptedMessage = "Order received. The merchant will contact you to confirm."

type OrderRepository interface {
	InsertOrder(ctx context.Context, o *models.Order) (int64, error)
	InsertOrderItem(ctx context.Context, orderID int64, item models.OrderLineItem) error
}

// Notifier accepts a summary for delivery. It must not block.
type Notifier interface {
	Dispatch(s notification.Summary) bool
}

type OrderConfig struct {
	WriteTimeout time.Duration
	ShippingFee  int64
	// OnStep, when set, is called after each persistence step ("order",
	// "order_item") with its outcome.
	OnStep func(step string, err error)
}

type OrderService struct {
	repo     OrderRepository
	notifier Notifier
	validate *validatorv10.Validate
	cfg      OrderConfig
	log      *slog.Logger
	tracer   trace.Tracer

	now   func() time.Time
	newID func() string
}

func NewOrderService(repo OrderRepository, notifier Notifier, cfg OrderConfig, log *slog.Logger) *OrderService {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 3 * time.Second
	}
	return &OrderService{
		repo:     repo,
		notifier: notifier,
		validate: validation.New(),
		cfg:      cfg,
		log:      log.With(slog.String("component", "orders")),
		tracer:   otel.Tracer("storefront/services"),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SubmitOrder validates req, records it as far as the store allows, and
// queues the merchant notification. Only a validation failure is returned
// as an error; storage and notification problems are logged.
func (s *OrderService) SubmitOrder(ctx context.Context, req models.OrderRequest) (models.Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "orders.SubmitOrder")
	defer span.End()

	req = normalizeRequest(req)
	if err := s.validate.Struct(req); err != nil {
		verr := &ValidationError{Fields: validation.FieldErrors(err)}
		span.SetAttributes(attribute.Bool("order.valid", false))
		return models.Receipt{}, verr
	}

	order := s.buildOrder(req)
	span.SetAttributes(attribute.String("order.correlation_id", order.CorrelationID))
	log := s.log.With(slog.String("order_correlation_id", order.CorrelationID))

	if expected := models.ExpectedTotal(order.LineItems, order.ShippingCost); expected != order.TotalAmount {
		log.WarnContext(ctx, "order total does not match line items",
			slog.Int64("total_amount", order.TotalAmount),
			slog.Int64("expected_total", expected))
	}

	persisted := s.persist(ctx, log, &order)
	span.SetAttributes(attribute.Bool("order.persisted", persisted))

	if !s.notifier.Dispatch(notification.NewSummary(order, persisted)) {
		log.ErrorContext(ctx, "merchant notification not queued",
			slog.String("error", ErrNotification.Error()))
	}

	return models.Receipt{
		Success:            true,
		Message:            orderAcceptedMessage,
		OrderCorrelationID: order.CorrelationID,
		Persisted:          persisted,
	}, nil
}

func (s *OrderService) buildOrder(req models.OrderRequest) models.Order {
	order := models.Order{
		CorrelationID: s.newID(),
		CustomerName:  req.CustomerName,
		Phone:         req.Phone,
		Address:       req.Address,
		Province:      req.Province,
		PaymentMethod: req.PaymentMethod,
		TotalAmount:   req.TotalAmount,
		ShippingCost:  s.cfg.ShippingFee,
		CreatedAt:     s.now().UTC(),
		LineItems:     make([]models.OrderLineItem, 0, len(req.LineItems)),
	}
	for _, it := range req.LineItems {
		order.LineItems = append(order.LineItems, models.OrderLineItem{
			ProductID: it.ProductID,
			Code:      it.Code,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return order
}

// persist writes the header and then each line item. It reports whether
// everything was written. A failed header skips the items.
func (s *OrderService) persist(ctx context.Context, log *slog.Logger, order *models.Order) bool {
	// the customer's request finishing must not abort a half-written order
	base := context.WithoutCancel(ctx)

	wctx, cancel := context.WithTimeout(base, s.cfg.WriteTimeout)
	id, err := s.repo.InsertOrder(wctx, order)
	cancel()
	s.step("order", err)
	if err != nil {
		log.ErrorContext(ctx, "order not saved",
			slog.String("error", fmt.Errorf("%w: %w", ErrPersistence, err).Error()))
		return false
	}
	order.ID = id

	ok := true
	for i := range order.LineItems {
		order.LineItems[i].OrderID = id
		wctx, cancel := context.WithTimeout(base, s.cfg.WriteTimeout)
		err := s.repo.InsertOrderItem(wctx, id, order.LineItems[i])
		cancel()
		s.step("order_item", err)
		if err != nil {
			ok = false
			log.ErrorContext(ctx, "order item not saved",
				slog.Int64("order_id", id),
				slog.Int("line", i),
				slog.String("error", fmt.Errorf("%w: %w", ErrPersistence, err).Error()))
		}
	}
	return ok
}

func (s *OrderService) step(name string, err error) {
	if s.cfg.OnStep != nil {
		s.cfg.OnStep(name, err)
	}
}

func normalizeRequest(req models.OrderRequest) models.OrderRequest {
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Address = strings.TrimSpace(req.Address)
	req.Province = strings.TrimSpace(req.Province)
	req.PaymentMethod = models.PaymentMethod(strings.ToLower(strings.TrimSpace(string(req.PaymentMethod))))
	if req.PaymentMethod == "" {
		req.PaymentMethod = models.PaymentCashOnDelivery
	}
	items := make([]models.LineItemRequest, len(req.LineItems))
	for i, it := range req.LineItems {
		it.Code = strings.TrimSpace(it.Code)
		it.Name = strings.TrimSpace(it.Name)
		items[i] = it
	}
	if req.LineItems != nil {
		req.LineItems = items
	}
	return req
}
