package mqtt

import (
	"context"

	"uptimeboard/internal/adapters/payload"
	"uptimeboard/internal/core/domain"
)

// Publisher sends heartbeats to device/heartbeat/<device_id>.
type Publisher struct {
	client *Client
	qos    byte
}

// NewPublisher wraps a connected client.
func NewPublisher(client *Client, qos byte) *Publisher {
	return &Publisher{client: client, qos: qos}
}

// Publish encodes and sends hb. It is not retained.
func (p *Publisher) Publish(_ context.Context, hb domain.Heartbeat) error {
	body, err := payload.Encode(hb)
	if err != nil {
		return err
	}
	return p.client.Publish(payload.Topic(hb.DeviceID), p.qos, false, body)
}

// Close disconnects the underlying client.
func (p *Publisher) Close() error {
	p.client.Disconnect()
	return nil
}
