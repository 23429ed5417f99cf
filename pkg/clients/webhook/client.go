// Package webhook delivers delivery lifecycle events to a configured HTTP
// endpoint, typically a chat-ops relay watched by the receiving branch.
package webhook

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/delivery-ledger/internal/config"
	"github.com/mamadbah2/delivery-ledger/internal/domain/models"
)

// Event types pushed to the endpoint.
const (
	EventCreated  = "delivery.created"
	EventReceived = "delivery.received"
	EventReminder = "delivery.reminder"
)

// Client exposes the notification operations used by the application.
type Client interface {
	SendEvent(ctx context.Context, event string, d models.Delivery) error
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a webhook client using the provided configuration values.
func NewClient(cfg config.WebhookConfig) *APIClient {
	restyClient := resty.New()
	restyClient.
		SetBaseURL(strings.TrimSuffix(cfg.URL, "/")).
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)

	if cfg.Token != "" {
		restyClient.SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.Token))
	}

	return &APIClient{httpClient: restyClient}
}

// eventPayload is the wire format of a notification.
type eventPayload struct {
	Event    string          `json:"event"`
	Delivery models.Delivery `json:"delivery"`
}

type apiError struct {
	Error string `json:"error"`
}

// SendEvent posts one event to the endpoint and fails on any non-2xx status.
func (c *APIClient) SendEvent(ctx context.Context, event string, d models.Delivery) error {
	errBody := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(eventPayload{Event: event, Delivery: d}).
		SetError(errBody).
		Post("")
	if err != nil {
		return fmt.Errorf("post %s event: %w", event, err)
	}

	if resp.StatusCode() < http.StatusOK || resp.StatusCode() >= http.StatusMultipleChoices {
		if errBody.Error != "" {
			return fmt.Errorf("webhook rejected %s event: %s (status %d)", event, errBody.Error, resp.StatusCode())
		}
		return fmt.Errorf("webhook rejected %s event: status %d", event, resp.StatusCode())
	}
	return nil
}
