package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// WebhookGateway posts the summary as JSON to a merchant endpoint.
type WebhookGateway struct {
	client *resty.Client
	url    string
}

func NewWebhookGateway(url string, timeout time.Duration) *WebhookGateway {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "storefront-notifier")
	return &WebhookGateway{client: client, url: url}
}

func (g *WebhookGateway) Send(ctx context.Context, s Summary) error {
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("X-Order-Correlation-Id", s.CorrelationID).
		SetBody(s).
		Post(g.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("post webhook: unexpected status %d", resp.StatusCode())
	}
	return nil
}
