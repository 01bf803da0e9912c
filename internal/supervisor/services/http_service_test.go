// Analytodon - Mastodon Analytics
// Copyright 2026 blazer82
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/blazer82/analytodon

package services

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/thejerf/suture/v4"
)

// listenerServer serves on a pre-bound listener so tests know the port.
type listenerServer struct {
	*http.Server
	ln net.Listener
}

func (s *listenerServer) ListenAndServe() error {
	return s.Serve(s.ln)
}

func newListenerServer(t *testing.T, handler http.Handler) *listenerServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &listenerServer{Server: &http.Server{Handler: handler, ReadHeaderTimeout: time.Second}, ln: ln}
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

// fakeServer returns a fixed ListenAndServe result.
type fakeServer struct {
	listenErr error
}

func (f *fakeServer) ListenAndServe() error { return f.listenErr }
func (f *fakeServer) Shutdown(context.Context) error { return nil }

// serveInBackground runs svc until the returned cancel is called.
func serveInBackground(svc *HTTPServerService) (context.CancelFunc, <-chan error) {
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()
	return cancel, errCh
}

// getWhenUp retries until the server accepts connections.
func getWhenUp(t *testing.T, url string) *http.Response {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			return resp
		}
		if time.Now().After(deadline) {
			t.Fatalf("GET %s: %v", url, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func waitErr(t *testing.T, errCh <-chan error, within time.Duration) error {
	t.Helper()
	select {
	case err := <-errCh:
		return err
	case <-time.After(within):
		t.Fatal("Serve did not return")
		return nil
	}
}

func TestHTTPServerService_Interface(t *testing.T) {
	var _ suture.Service = (*HTTPServerService)(nil)
}

func TestNewHTTPServerService_Defaults(t *testing.T) {
	t.Parallel()

	svc := NewHTTPServerService(&fakeServer{}, 0)
	if svc.shutdownTimeout != 10*time.Second {
		t.Errorf("shutdownTimeout = %v, want 10s", svc.shutdownTimeout)
	}
	if svc.String() != "http-server" {
		t.Errorf("String() = %q, want http-server", svc.String())
	}
	if got := NewHTTPServerService(&fakeServer{}, 3*time.Second).shutdownTimeout; got != 3*time.Second {
		t.Errorf("shutdownTimeout = %v, want 3s", got)
	}
}

func TestHTTPServerService_ServesRouterUntilCanceled(t *testing.T) {
	t.Parallel()

	r := chi.NewRouter()
	r.Get("/api/v1/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success"}`)
	})
	srv := newListenerServer(t, r)
	url := "http://" + srv.ln.Addr().String() + "/api/v1/health"

	cancel, errCh := serveInBackground(NewHTTPServerService(srv, time.Second))

	resp := getWhenUp(t, url)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != `{"status":"success"}` {
		t.Errorf("GET health = %d %s", resp.StatusCode, body)
	}

	cancel()
	if err := waitErr(t, errCh, 2*time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
	if _, err := http.Get(url); err == nil {
		t.Error("server still accepts connections after shutdown")
	}
}

func TestHTTPServerService_ShutdownWaitsForInflightRequest(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	r := chi.NewRouter()
	r.Get("/api/v1/accounts/{accountID}/followers/export", func(w http.ResponseWriter, _ *http.Request) {
		close(entered)
		<-release
		_, _ = io.WriteString(w, "Day,Followers\n")
	})
	srv := newListenerServer(t, r)
	url := "http://" + srv.ln.Addr().String() + "/api/v1/accounts/a1/followers/export"

	cancel, errCh := serveInBackground(NewHTTPServerService(srv, 5*time.Second))

	type result struct {
		status int
		err    error
	}
	respCh := make(chan result, 1)
	go func() {
		// The listener is already bound, so the request queues until Serve runs.
		resp, err := http.Get(url)
		if err != nil {
			respCh <- result{err: err}
			return
		}
		_ = resp.Body.Close()
		respCh <- result{status: resp.StatusCode}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}
	cancel()

	select {
	case err := <-errCh:
		t.Fatalf("Serve() returned %v before the request finished", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if res := <-respCh; res.err != nil || res.status != http.StatusOK {
		t.Errorf("in-flight request = %d, %v; want 200", res.status, res.err)
	}
	if err := waitErr(t, errCh, 2*time.Second); !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

func TestHTTPServerService_ShutdownTimeout(t *testing.T) {
	t.Parallel()

	entered := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	r := chi.NewRouter()
	r.Get("/slow", func(http.ResponseWriter, *http.Request) {
		close(entered)
		<-release
	})
	srv := newListenerServer(t, r)

	cancel, errCh := serveInBackground(NewHTTPServerService(srv, 50*time.Millisecond))
	go func() {
		if resp, err := http.Get("http://" + srv.ln.Addr().String() + "/slow"); err == nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}
	cancel()

	if err := waitErr(t, errCh, 2*time.Second); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() error = %v, want shutdown deadline exceeded", err)
	}
}

func TestHTTPServerService_ListenResult(t *testing.T) {
	t.Parallel()

	bindErr := errors.New("listen tcp :3000: bind: address already in use")
	tests := []struct {
		name      string
		listenErr error
		wantErr   error
	}{
		{"server closed is a clean exit", http.ErrServerClosed, nil},
		{"listen failure is returned", bindErr, bindErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewHTTPServerService(&fakeServer{listenErr: tt.listenErr}, time.Second)
			err := svc.Serve(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Serve() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Serve() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
