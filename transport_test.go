package bdp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(serverURL string, opts ...Option) *Client {
	base := []Option{
		WithTokenProvider(StaticTokenProvider("test-token")),
		WithBackoffFactor(time.Millisecond),
	}
	return New(serverURL, "id", "secret", "", append(base, opts...)...)
}

func TestTransportRetriesTransientGetFailures(t *testing.T) {
	for _, status := range retryStatuses {
		t.Run(http.StatusText(status), func(t *testing.T) {
			var hits atomic.Int64
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if hits.Add(1) < 3 {
					w.WriteHeader(status)
					return
				}
				w.Write([]byte(`{"ok":true}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL)
			resp, err := client.Get(context.Background(), "jobs", RequestOptions{})
			if err != nil {
				t.Fatalf("Get() failed: %v", err)
			}
			if resp.StatusCode() != http.StatusOK {
				t.Errorf("status = %d, want 200", resp.StatusCode())
			}
			if got := hits.Load(); got != 3 {
				t.Errorf("server hit %d times, want 3", got)
			}
		})
	}
}

func TestTransportGivesUpAfterRetryBudget(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL, WithRetryCount(2))
	_, err := client.Get(context.Background(), "jobs", RequestOptions{})

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("got %v, want ServerError", err)
	}
	if serverErr.HTTPStatus() != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatus() = %d, want 503", serverErr.HTTPStatus())
	}
	// Initial attempt plus two retries.
	if got := hits.Load(); got != 3 {
		t.Errorf("server hit %d times, want 3", got)
	}
}

func TestTransportNeverRetriesNonGet(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	if _, err := client.Post(context.Background(), "jobs", RequestOptions{}); err == nil {
		t.Fatal("expected error for 503 response")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times for POST, want 1", got)
	}

	hits.Store(0)
	if _, err := client.Delete(context.Background(), "jobs", RequestOptions{}); err == nil {
		t.Fatal("expected error for 503 response")
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times for DELETE, want 1", got)
	}
}

func TestTransportDoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Get(context.Background(), "jobs", RequestOptions{})

	var clientErr *ClientError
	if !errors.As(err, &clientErr) {
		t.Fatalf("got %v, want ClientError", err)
	}
	if got := hits.Load(); got != 1 {
		t.Errorf("server hit %d times for 404, want 1", got)
	}
}
