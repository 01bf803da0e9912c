// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"

	"github.com/blazer82/analytodon-sub001/internal/config"
	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/metrics"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("event bus is closed")

// Bus owns the watermill publisher and subscriber for the configured backend.
type Bus struct {
	cfg        config.EventsConfig
	logger     watermill.LoggerAdapter
	publisher  message.Publisher
	subscriber message.Subscriber
	embedded   *embeddedServer

	// shared is set when one value serves as publisher and subscriber.
	shared bool

	mu     sync.RWMutex
	closed bool
}

// NewBus connects to the backend named by cfg.Backend.
func NewBus(cfg *config.EventsConfig) (*Bus, error) {
	b := &Bus{cfg: *cfg, logger: logging.NewWatermillLogger()}

	switch cfg.Backend {
	case "memory", "":
		ch := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer:            256,
			BlockPublishUntilSubscriberAck: cfg.BlockUntilAck,
		}, b.logger)
		b.publisher, b.subscriber = ch, ch
		b.shared = true
	case "nats":
		if err := b.connectNATS(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}

	logging.Info().Str("backend", cfg.Backend).Bool("embedded_nats", b.embedded != nil).Msg("Event bus ready")
	return b, nil
}

// Publish marshals payload and publishes it on topic. The correlation ID of
// ctx travels in the message metadata.
func (b *Bus) Publish(ctx context.Context, topic string, payload interface{}) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", topic, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	corrID := logging.CorrelationIDFromContext(ctx)
	if corrID == "" {
		corrID = logging.GenerateCorrelationID()
	}
	middleware.SetCorrelationID(corrID, msg)

	if err := b.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", topic, err)
	}
	metrics.EventsPublished.WithLabelValues(topic).Inc()

	logging.Ctx(ctx).Debug().Str("topic", topic).Str("message_id", msg.UUID).Msg("Event published")
	return nil
}

// Subscriber is the consuming side used by Router.
func (b *Bus) Subscriber() message.Subscriber {
	return b.subscriber
}

// Close releases the backend. It is safe to call more than once.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true

	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, err)
	}
	if !b.shared {
		if err := b.subscriber.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if b.embedded != nil {
		b.embedded.Shutdown()
	}
	return errors.Join(errs...)
}

// Decode unmarshals a message payload into v.
func Decode(msg *message.Message, v interface{}) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("failed to decode message %s: %w", msg.UUID, err)
	}
	return nil
}
