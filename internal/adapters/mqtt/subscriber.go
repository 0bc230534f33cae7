package mqtt

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"uptimeboard/internal/adapters/payload"
	"uptimeboard/internal/ingest"
)

// Subscriber feeds heartbeat messages into an ingest queue.
type Subscriber struct {
	client *Client
	submit ingest.Submitter
	topic  string
	qos    byte
	logger *zap.Logger
	now    func() time.Time
}

// NewSubscriber builds a subscriber for topic on client.
func NewSubscriber(client *Client, submit ingest.Submitter, topic string, qos byte, logger *zap.Logger) *Subscriber {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Subscriber{
		client: client,
		submit: submit,
		topic:  topic,
		qos:    qos,
		logger: logger,
		now:    time.Now,
	}
}

// Run subscribes and blocks until ctx is cancelled, then unsubscribes and
// disconnects.
func (s *Subscriber) Run(ctx context.Context) error {
	err := s.client.Subscribe(s.topic, s.qos, func(topic string, body []byte) error {
		return s.Handle(ctx, topic, body)
	})
	if err != nil {
		return err
	}
	s.logger.Info("mqtt: subscribed", zap.String("topic", s.topic))

	<-ctx.Done()

	if err := s.client.Unsubscribe(s.topic); err != nil {
		s.logger.Warn("mqtt: unsubscribe failed", zap.Error(err))
	}
	s.client.Disconnect()
	return nil
}

// Handle decodes one message and submits it. Empty bodies are the marker
// left by a cleared retained message and are ignored.
func (s *Subscriber) Handle(ctx context.Context, topic string, body []byte) error {
	if len(body) == 0 {
		return nil
	}

	hb, err := payload.Decode(body, payload.DeviceIDFromTopic(topic), s.now())
	if err != nil {
		return err
	}

	if err := s.submit.Submit(ctx, hb); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("mqtt: submit %s: %w", hb.DeviceID, err)
	}

	s.logger.Debug("mqtt: heartbeat queued",
		zap.String("device_id", hb.DeviceID), zap.Time("timestamp", hb.Timestamp))
	return nil
}
