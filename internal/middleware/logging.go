// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/blazer82/analytodon-sub001/internal/logging"
)

// AccessLog writes one structured line per request. Health probes and
// metrics scrapes are logged at debug level.
func AccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		logger := logging.Ctx(r.Context())
		event := logger.Info()
		switch {
		case wrapper.statusCode >= http.StatusInternalServerError:
			event = logger.Error()
		case wrapper.statusCode >= http.StatusBadRequest:
			event = logger.Warn()
		case strings.HasPrefix(r.URL.Path, "/api/v1/health") || r.URL.Path == "/metrics":
			event = logger.Debug()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", routePattern(r)).
			Int("status", wrapper.statusCode).
			Int("bytes", wrapper.bytes).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}
