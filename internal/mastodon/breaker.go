// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package mastodon

import (
	"errors"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/blazer82/analytodon-sub001/internal/logging"
	"github.com/blazer82/analytodon-sub001/internal/metrics"
)

// Breaker tuning. The breaker trips once at least breakerMinRequests were
// seen in the current interval and breakerFailureRatio of them failed.
const (
	breakerMaxHalfOpen  = 3
	breakerInterval     = time.Minute
	breakerOpenTimeout  = 2 * time.Minute
	breakerMinRequests  = 10
	breakerFailureRatio = 0.6
)

// hostState is the per-instance limiter and breaker pair.
type hostState struct {
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[struct{}]
}

// hostRegistry lazily creates one hostState per host.
type hostRegistry struct {
	mu    sync.Mutex
	hosts map[string]*hostState
	limit rate.Limit
	burst int
}

func newHostRegistry(perSecond float64, burst int) *hostRegistry {
	if burst < 1 {
		burst = 1
	}
	return &hostRegistry{
		hosts: make(map[string]*hostState),
		limit: rate.Limit(perSecond),
		burst: burst,
	}
}

func (r *hostRegistry) get(host string) *hostState {
	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.hosts[host]; ok {
		return h
	}
	h := &hostState{
		limiter: rate.NewLimiter(r.limit, r.burst),
		breaker: newBreaker("mastodon:" + host),
	}
	r.hosts[host] = h
	return h
}

func newBreaker(name string) *gobreaker.CircuitBreaker[struct{}] {
	logger := logging.WithComponent("mastodon")
	metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(gobreaker.StateClosed))

	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        name,
		MaxRequests: breakerMaxHalfOpen,
		Interval:    breakerInterval,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < breakerMinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			trip := failureRatio >= breakerFailureRatio
			if trip {
				logger.Warn().
					Str("breaker", name).
					Uint32("requests", counts.Requests).
					Uint32("failures", counts.TotalFailures).
					Float64("failure_ratio", failureRatio).
					Msg("Circuit breaker tripping")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Circuit breaker state changed")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
		IsSuccessful: func(err error) bool {
			return err == nil || isClientError(err)
		},
	})
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
