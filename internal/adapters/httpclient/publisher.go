// Package httpclient posts heartbeats to a running uptimeboard API.
package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"uptimeboard/internal/core/domain"
)

type heartbeatBody struct {
	SentAt time.Time `json:"sent_at"`
}

// Publisher sends POST /api/v1/devices/{id}/heartbeat requests.
type Publisher struct {
	client *resty.Client
}

// NewPublisher targets the API at baseURL, e.g. http://localhost:8080.
func NewPublisher(baseURL string) *Publisher {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(200*time.Millisecond).
		SetRetryMaxWaitTime(2*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Publisher{client: client}
}

// Publish posts one heartbeat and expects 204.
func (p *Publisher) Publish(ctx context.Context, hb domain.Heartbeat) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetPathParam("device_id", hb.DeviceID).
		SetBody(heartbeatBody{SentAt: hb.Timestamp.UTC()}).
		Post("/api/v1/devices/{device_id}/heartbeat")
	if err != nil {
		return fmt.Errorf("http: post heartbeat for %s: %w", hb.DeviceID, err)
	}
	if resp.StatusCode() != http.StatusNoContent {
		return fmt.Errorf("http: post heartbeat for %s: status %d: %s", hb.DeviceID, resp.StatusCode(), resp.String())
	}
	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error { return nil }
