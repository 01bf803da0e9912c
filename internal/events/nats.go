// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/nats-io/nats-server/v2/server"
	natsgo "github.com/nats-io/nats.go"
)

const queueGroup = "analytodon"

type embeddedServer struct {
	server *server.Server
}

// startEmbeddedServer runs a core NATS server on loopback.
func startEmbeddedServer(port int) (*embeddedServer, error) {
	opts := &server.Options{
		ServerName: "analytodon-events",
		Host:       "127.0.0.1",
		Port:       port,
		NoLog:      true,
		NoSigs:     true,
		MaxPayload: 4 * 1024 * 1024,
	}

	ns, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	go ns.Start()

	if !ns.ReadyForConnections(30 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within timeout")
	}
	return &embeddedServer{server: ns}, nil
}

func (s *embeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

func (s *embeddedServer) Shutdown() {
	s.server.Shutdown()
	s.server.WaitForShutdown()
}

func (b *Bus) natsOptions() []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("analytodon"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				b.logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			b.logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}
}

// connectNATS builds core NATS pub/sub. JetStream stays off: mail events
// are best effort and the router retries handler failures.
func (b *Bus) connectNATS() error {
	url := b.cfg.NATSURL
	if b.cfg.EmbeddedNATS {
		srv, err := startEmbeddedServer(b.cfg.NATSPort)
		if err != nil {
			return err
		}
		b.embedded = srv
		url = srv.ClientURL()
	}

	pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
		URL:         url,
		NatsOptions: b.natsOptions(),
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream:   wmNats.JetStreamConfig{Disabled: true},
	}, b.logger)
	if err != nil {
		b.shutdownEmbedded()
		return fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmNats.NewSubscriber(wmNats.SubscriberConfig{
		URL:              url,
		QueueGroupPrefix: queueGroup,
		SubscribersCount: 1,
		CloseTimeout:     30 * time.Second,
		AckWaitTimeout:   30 * time.Second,
		NatsOptions:      b.natsOptions(),
		Unmarshaler:      &wmNats.NATSMarshaler{},
		JetStream:        wmNats.JetStreamConfig{Disabled: true},
	}, b.logger)
	if err != nil {
		_ = pub.Close()
		b.shutdownEmbedded()
		return fmt.Errorf("create NATS subscriber: %w", err)
	}

	b.publisher, b.subscriber = pub, sub
	return nil
}

func (b *Bus) shutdownEmbedded() {
	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded = nil
	}
}
