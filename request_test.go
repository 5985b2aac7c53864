package bdp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// refreshingProvider counts refreshes and switches tokens after Invalidate.
type refreshingProvider struct {
	tokens      []string
	invalidated atomic.Int64
}

func (p *refreshingProvider) Token(context.Context) (string, error) {
	i := p.invalidated.Load()
	if i >= int64(len(p.tokens)) {
		i = int64(len(p.tokens)) - 1
	}
	return p.tokens[i], nil
}

func (p *refreshingProvider) Invalidate() { p.invalidated.Add(1) }

func TestRejectedTokenIsRefreshedAndRetriedOnce(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	provider := &refreshingProvider{tokens: []string{"stale", "fresh"}}
	client := New(server.URL, "id", "secret", "", WithTokenProvider(provider))

	resp, err := client.Get(context.Background(), "jobs", RequestOptions{})
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if resp.StatusCode() != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode())
	}
	if got := provider.invalidated.Load(); got != 1 {
		t.Errorf("provider invalidated %d times, want 1", got)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want 2", got)
	}
}

func TestPersistentUnauthorizedSurfacesAfterSingleReplay(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	_, err := client.Get(context.Background(), "jobs", RequestOptions{})

	var unauthorized *UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("got %v, want UnauthorizedError", err)
	}
	if got := hits.Load(); got != 2 {
		t.Errorf("server hit %d times, want exactly one replay", got)
	}
}

func TestValidateResponseErrorTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"success passes", http.StatusOK, func(t *testing.T, err error) {
			if err != nil {
				t.Errorf("got %v, want nil", err)
			}
		}},
		{"accepted passes", http.StatusAccepted, func(t *testing.T, err error) {
			if err != nil {
				t.Errorf("got %v, want nil", err)
			}
		}},
		{"bad request", http.StatusBadRequest, func(t *testing.T, err error) {
			var clientErr *ClientError
			if !errors.As(err, &clientErr) {
				t.Fatalf("got %v, want ClientError", err)
			}
			if clientErr.HTTPStatus() != http.StatusBadRequest {
				t.Errorf("HTTPStatus() = %d, want 400", clientErr.HTTPStatus())
			}
		}},
		{"conflict", http.StatusConflict, func(t *testing.T, err error) {
			var clientErr *ClientError
			if !errors.As(err, &clientErr) {
				t.Errorf("got %v, want ClientError", err)
			}
		}},
		{"internal error", http.StatusInternalServerError, func(t *testing.T, err error) {
			var serverErr *ServerError
			if !errors.As(err, &serverErr) {
				t.Errorf("got %v, want ServerError", err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"error":{"message":"detail"}}`))
			}))
			defer server.Close()

			client := newTestClient(server.URL, WithRetryCount(0))
			_, err := client.Post(context.Background(), "jobs", RequestOptions{})
			tt.check(t, err)
		})
	}
}

func TestSkipValidationReturnsRawResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"status":"PENDING"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Get(context.Background(), "jobs/1", RequestOptions{SkipValidation: true})
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if resp.StatusCode() != http.StatusConflict {
		t.Errorf("status = %d, want the raw 409", resp.StatusCode())
	}
}

func TestRequestShapesMultipartUpload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("expected multipart request: %v", err)
		}
		if got := r.FormValue("options"); got != `{"clientId":"c-1"}` {
			t.Errorf("options form field = %q", got)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		if header.Filename != "invoice.pdf" {
			t.Errorf("file name = %q, want invoice.pdf", header.Filename)
		}
		content, _ := io.ReadAll(file)
		if string(content) != "%PDF-stub" {
			t.Errorf("file content = %q", content)
		}
		w.Write([]byte(`{"id":"job-1"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	resp, err := client.Post(context.Background(), "document/jobs", RequestOptions{
		FormData: map[string]string{"options": `{"clientId":"c-1"}`},
		File: &FileUpload{
			Field:       "file",
			Name:        "invoice.pdf",
			Reader:      strings.NewReader("%PDF-stub"),
			ContentType: "application/pdf",
		},
	})
	if err != nil {
		t.Fatalf("Post() failed: %v", err)
	}
	if !strings.Contains(resp.String(), "job-1") {
		t.Errorf("unexpected body %q", resp.String())
	}
}

func TestReplayedUploadKeepsFileContent(t *testing.T) {
	tests := []struct {
		name   string
		reader func() io.Reader
	}{
		{"seekable reader", func() io.Reader { return strings.NewReader("%PDF-stub") }},
		{"plain reader is buffered", func() io.Reader { return io.MultiReader(strings.NewReader("%PDF-stub")) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var mu sync.Mutex
			var bodies []string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("expected multipart request: %v", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				file, _, err := r.FormFile("file")
				if err != nil {
					t.Errorf("missing file part: %v", err)
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				content, _ := io.ReadAll(file)
				file.Close()
				mu.Lock()
				bodies = append(bodies, string(content))
				mu.Unlock()

				if r.Header.Get("Authorization") != "Bearer fresh" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				w.Write([]byte(`{"id":"job-1"}`))
			}))
			defer server.Close()

			provider := &refreshingProvider{tokens: []string{"stale", "fresh"}}
			client := New(server.URL, "id", "secret", "", WithTokenProvider(provider))

			_, err := client.Post(context.Background(), "document/jobs", RequestOptions{
				FormData: map[string]string{"options": `{"clientId":"c-1"}`},
				File: &FileUpload{
					Field:       "file",
					Name:        "invoice.pdf",
					Reader:      tt.reader(),
					ContentType: "application/pdf",
				},
			})
			if err != nil {
				t.Fatalf("Post() failed: %v", err)
			}
			if len(bodies) != 2 {
				t.Fatalf("server hit %d times, want the original and the replay", len(bodies))
			}
			if bodies[0] != "%PDF-stub" {
				t.Errorf("first upload body = %q, want %%PDF-stub", bodies[0])
			}
			if bodies[1] != "%PDF-stub" {
				t.Errorf("replayed upload body = %q, want %%PDF-stub", bodies[1])
			}
		})
	}
}

func TestRequestSendsQueryParamsAndAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("clientId"); got != "c-7" {
			t.Errorf("clientId param = %q, want c-7", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	if _, err := client.Get(context.Background(), "clients", RequestOptions{
		Params: map[string]string{"clientId": "c-7"},
	}); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
}
