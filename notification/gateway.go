// Package notification delivers order summaries to the merchant. Delivery
// is best-effort: failures are reported through logs and metrics and never
// reach the customer-facing request.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"storefront/models"
)

// Gateway delivers one summary. Implementations must honor ctx.
type Gateway interface {
	Send(ctx context.Context, s Summary) error
}

type SummaryItem struct {
	ProductID int64  `json:"productId,omitempty"`
	Code      string `json:"code,omitempty"`
	Name      string `json:"name,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unitPrice"`
}

// Summary is what the merchant receives for one order. Text is a rendered,
// human readable version of the same fields.
type Summary struct {
	CorrelationID string        `json:"orderCorrelationId"`
	CustomerName  string        `json:"customerName"`
	Phone         string        `json:"phone"`
	Address       string        `json:"address"`
	Province      string        `json:"province"`
	PaymentMethod string        `json:"paymentMethod"`
	Items         []SummaryItem `json:"items"`
	ShippingCost  int64         `json:"shippingCost"`
	TotalAmount   int64         `json:"totalAmount"`
	PlacedAt      time.Time     `json:"placedAt"`
	Persisted     bool          `json:"persisted"`
	Text          string        `json:"text"`
}

func NewSummary(o models.Order, persisted bool) Summary {
	s := Summary{
		CorrelationID: o.CorrelationID,
		CustomerName:  o.CustomerName,
		Phone:         o.Phone,
		Address:       o.Address,
		Province:      o.Province,
		PaymentMethod: string(o.PaymentMethod),
		Items:         make([]SummaryItem, 0, len(o.LineItems)),
		ShippingCost:  o.ShippingCost,
		TotalAmount:   o.TotalAmount,
		PlacedAt:      o.CreatedAt,
		Persisted:     persisted,
	}
	for _, it := range o.LineItems {
		s.Items = append(s.Items, SummaryItem{
			ProductID: it.ProductID,
			Code:      it.Code,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	s.Text = Render(s)
	return s
}

// Render formats the summary as a plain-text merchant message.
func Render(s Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s\n", s.CorrelationID)
	fmt.Fprintf(&b, "Customer: %s\nPhone: %s\n", s.CustomerName, s.Phone)
	if s.Province != "" || s.Address != "" {
		fmt.Fprintf(&b, "Address: %s\n", strings.TrimSpace(strings.Join([]string{s.Province, s.Address}, " - ")))
	}
	fmt.Fprintf(&b, "Payment: %s\n", s.PaymentMethod)
	b.WriteString("Items:\n")
	for _, it := range s.Items {
		ref := it.Code
		if ref == "" {
			ref = fmt.Sprintf("#%d", it.ProductID)
		}
		label := ref
		if it.Name != "" {
			label = it.Name + " (" + ref + ")"
		}
		fmt.Fprintf(&b, "  - %s x%d @ %s IQD = %s IQD\n", label, it.Quantity, formatAmount(it.UnitPrice), formatAmount(int64(it.Quantity)*it.UnitPrice))
	}
	fmt.Fprintf(&b, "Shipping: %s IQD\n", formatAmount(s.ShippingCost))
	fmt.Fprintf(&b, "Total: %s IQD\n", formatAmount(s.TotalAmount))
	if !s.Persisted {
		b.WriteString("NOTE: order was not fully saved to the database; reconcile from this message.\n")
	}
	return b.String()
}

// formatAmount groups thousands: 105000 -> 105,000.
func formatAmount(v int64) string {
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	digits := fmt.Sprintf("%d", v)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// LogGateway writes the rendered summary to the log. It is the default when
// no transport is configured.
type LogGateway struct {
	log *slog.Logger
}

func NewLogGateway(log *slog.Logger) *LogGateway {
	return &LogGateway{log: log}
}

func (g *LogGateway) Send(ctx context.Context, s Summary) error {
	g.log.InfoContext(ctx, "merchant notification",
		slog.String("order_correlation_id", s.CorrelationID),
		slog.String("summary", s.Text))
	return nil
}
