// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/blazer82/analytodon-sub001/internal/logging"
)

// HandlerFunc consumes one message. The context carries the publisher's
// correlation ID.
type HandlerFunc func(ctx context.Context, msg *message.Message) error

type handlerSpec struct {
	name  string
	topic string
	fn    HandlerFunc
}

// Router runs registered consumers. A fresh watermill router is built for
// every Serve call so a supervisor can restart it.
type Router struct {
	subscriber    message.Subscriber
	logger        watermill.LoggerAdapter
	retryCount    int
	retryInterval time.Duration

	mu       sync.Mutex
	handlers []handlerSpec
	ready    chan struct{}
	once     sync.Once
}

// NewRouter returns a Router consuming from bus.
func NewRouter(bus *Bus) *Router {
	return &Router{
		subscriber:    bus.Subscriber(),
		logger:        bus.logger,
		retryCount:    bus.cfg.RetryCount,
		retryInterval: bus.cfg.RetryInterval,
		ready:         make(chan struct{}),
	}
}

// Handle registers fn for topic. Call before Serve.
func (r *Router) Handle(name, topic string, fn HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handlerSpec{name: name, topic: topic, fn: fn})
}

// Ready is closed once the first router has subscribed to all topics.
func (r *Router) Ready() <-chan struct{} {
	return r.ready
}

func (r *Router) build() (*message.Router, error) {
	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill router: %w", err)
	}

	retry := middleware.Retry{
		MaxRetries:      r.retryCount,
		InitialInterval: r.retryInterval,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
		Logger:          r.logger,
	}
	router.AddMiddleware(middleware.CorrelationID, retry.Middleware, middleware.Recoverer)

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, h := range r.handlers {
		router.AddConsumerHandler(h.name, h.topic, r.subscriber, wrap(h))
	}
	return router, nil
}

func wrap(h handlerSpec) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx := msg.Context()
		if id := middleware.MessageCorrelationID(msg); id != "" {
			ctx = logging.ContextWithCorrelationID(ctx, id)
		}
		if err := h.fn(ctx, msg); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("handler", h.name).
				Str("topic", h.topic).
				Str("message_id", msg.UUID).
				Msg("Event handler failed")
			return err
		}
		return nil
	}
}

// Serve runs the router until ctx is canceled.
func (r *Router) Serve(ctx context.Context) error {
	router, err := r.build()
	if err != nil {
		return err
	}

	go func() {
		select {
		case <-router.Running():
			r.once.Do(func() { close(r.ready) })
		case <-ctx.Done():
		}
	}()

	logging.Info().Msg("Event router starting")
	if err := router.Run(ctx); err != nil {
		return fmt.Errorf("event router: %w", err)
	}
	return ctx.Err()
}

// String names the service in supervisor logs.
func (r *Router) String() string {
	return "event-router"
}
