package bdp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

func newTokenServer(t *testing.T, fetches *atomic.Int64, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		if r.Method != http.MethodPost {
			t.Errorf("token fetch used method %s, want POST", r.Method)
		}
		if user, pass, ok := r.BasicAuth(); !ok || user != "id" || pass != "secret" {
			t.Errorf("token fetch missing basic auth, got %q/%q", user, pass)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q, want client_credentials", got)
		}
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestProvider(tokenURL string) *clientCredentialsProvider {
	return &clientCredentialsProvider{
		httpClient:    resty.New(),
		tokenURL:      tokenURL,
		clientID:      "id",
		clientSecret:  "secret",
		renewalBuffer: time.Minute,
		retryWait:     time.Millisecond,
		now:           time.Now,
		logger:        zerolog.Nop(),
	}
}

func TestTokenIsCachedUntilRenewalBuffer(t *testing.T) {
	var fetches atomic.Int64
	server := newTokenServer(t, &fetches, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	})

	provider := newTestProvider(server.URL)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		token, err := provider.Token(ctx)
		if err != nil {
			t.Fatalf("Token() failed: %v", err)
		}
		if token != "tok-1" {
			t.Fatalf("Token() = %q, want tok-1", token)
		}
	}

	if got := fetches.Load(); got != 1 {
		t.Errorf("token endpoint hit %d times, want 1", got)
	}
}

func TestTokenRefreshesInsideRenewalBuffer(t *testing.T) {
	var fetches atomic.Int64
	server := newTokenServer(t, &fetches, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-fresh","expires_in":3600}`))
	})

	provider := newTestProvider(server.URL)
	ctx := context.Background()

	if _, err := provider.Token(ctx); err != nil {
		t.Fatalf("initial Token() failed: %v", err)
	}

	// Just outside the buffer: the cached token is still good.
	provider.now = func() time.Time { return provider.expiresAt.Add(-provider.renewalBuffer - time.Second) }
	if _, err := provider.Token(ctx); err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if got := fetches.Load(); got != 1 {
		t.Fatalf("token endpoint hit %d times before the buffer, want 1", got)
	}

	// Inside the buffer: the token has to be renewed.
	provider.now = func() time.Time { return provider.expiresAt.Add(-provider.renewalBuffer + time.Second) }
	if _, err := provider.Token(ctx); err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if got := fetches.Load(); got != 2 {
		t.Errorf("token endpoint hit %d times inside the buffer, want 2", got)
	}
}

func TestInvalidateForcesRefresh(t *testing.T) {
	var fetches atomic.Int64
	server := newTokenServer(t, &fetches, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","expires_in":3600}`))
	})

	provider := newTestProvider(server.URL)
	ctx := context.Background()

	if _, err := provider.Token(ctx); err != nil {
		t.Fatal(err)
	}
	provider.Invalidate()
	if _, err := provider.Token(ctx); err != nil {
		t.Fatal(err)
	}

	if got := fetches.Load(); got != 2 {
		t.Errorf("token endpoint hit %d times, want 2 after Invalidate", got)
	}
}

func TestTokenMissingCredentials(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*clientCredentialsProvider)
	}{
		{"no token URL", func(p *clientCredentialsProvider) { p.tokenURL = "" }},
		{"no client ID", func(p *clientCredentialsProvider) { p.clientID = "" }},
		{"no client secret", func(p *clientCredentialsProvider) { p.clientSecret = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := newTestProvider("http://localhost:1")
			tt.mutate(provider)

			_, err := provider.Token(context.Background())
			var authErr *AuthenticationError
			if !errors.As(err, &authErr) {
				t.Fatalf("got %v, want AuthenticationError", err)
			}
			if !errors.Is(err, ErrMissingAuthInfo) {
				t.Errorf("got %v, want wrapped ErrMissingAuthInfo", err)
			}
		})
	}
}

func TestTokenFetchRetriesThenFails(t *testing.T) {
	var fetches atomic.Int64
	server := newTokenServer(t, &fetches, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	provider := newTestProvider(server.URL)

	_, err := provider.Token(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("got %v, want AuthenticationError", err)
	}
	if authErr.HTTPStatus() != http.StatusServiceUnavailable {
		t.Errorf("HTTPStatus() = %d, want 503", authErr.HTTPStatus())
	}
	if got := fetches.Load(); got != tokenFetchAttempts {
		t.Errorf("token endpoint hit %d times, want %d", got, tokenFetchAttempts)
	}
}

func TestTokenFetchRecoversOnSecondAttempt(t *testing.T) {
	var fetches atomic.Int64
	server := newTokenServer(t, &fetches, func(w http.ResponseWriter, r *http.Request) {
		if fetches.Load() == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-2","expires_in":3600}`))
	})

	provider := newTestProvider(server.URL)

	token, err := provider.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if token != "tok-2" {
		t.Errorf("Token() = %q, want tok-2", token)
	}
}
