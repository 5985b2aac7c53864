package classification

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	bdp "github.com/SAP/business-document-processing"
)

const apiPrefix = "/document-classification/v1"

func newStubClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "id", "secret", "",
		bdp.WithTokenProvider(bdp.StaticTokenProvider("test-token")),
		bdp.WithPollingSleep(200*time.Millisecond),
		bdp.WithPollingLongSleep(200*time.Millisecond))
}

func writeTestDocument(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("%PDF-stub"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClassifyDocument(t *testing.T) {
	var mu sync.Mutex
	polls := map[string]int{}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+apiPrefix+"/classification/models/travel/versions/2/documents", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("submission is not multipart: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var parameters map[string]string
		if err := json.Unmarshal([]byte(r.FormValue("parameters")), &parameters); err != nil {
			t.Errorf("parameters form field is not valid JSON: %v", err)
		}
		if parameters["documentId"] != "ref-1" {
			t.Errorf("documentId = %q, want ref-1", parameters["documentId"])
		}
		if _, _, err := r.FormFile("document"); err != nil {
			t.Errorf("missing document part: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"documentId": "ref-1"})
	})
	mux.HandleFunc("GET "+apiPrefix+"/classification/models/travel/versions/2/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		mu.Lock()
		polls[id]++
		n := polls[id]
		mu.Unlock()

		// The result endpoint answers 409 until text extraction finished.
		if n <= 2 {
			w.WriteHeader(http.StatusConflict)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status":     "DONE",
			"documentId": id,
			"predictions": []map[string]any{
				{"characteristic": "documentClass", "value": "invoice", "score": 0.97},
			},
		})
	})

	client := newStubClient(t, mux)
	path := writeTestDocument(t, "doc.pdf")

	result, err := client.ClassifyDocument(t.Context(), path, "travel", 2, ClassifyParams{ReferenceID: "ref-1"})
	if err != nil {
		t.Fatalf("ClassifyDocument() failed: %v", err)
	}
	if result["status"] != "DONE" {
		t.Errorf("status = %v, want DONE", result["status"])
	}
	if result["documentId"] != "ref-1" {
		t.Errorf("documentId = %v, want ref-1", result["documentId"])
	}
	mu.Lock()
	defer mu.Unlock()
	if polls["ref-1"] != 3 {
		t.Errorf("result endpoint hit %d times, want 3", polls["ref-1"])
	}
}

func TestClassifyDocumentsTagsResultsWithPath(t *testing.T) {
	var mu sync.Mutex
	nextID := 0

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+apiPrefix+"/classification/models/travel/versions/1/documents", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		nextID++
		id := fmt.Sprintf("doc-%d", nextID)
		mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"documentId": id})
	})
	mux.HandleFunc("GET "+apiPrefix+"/classification/models/travel/versions/1/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "DONE", "documentId": r.PathValue("id")})
	})

	client := newStubClient(t, mux)
	paths := []string{writeTestDocument(t, "a.pdf"), writeTestDocument(t, "b.pdf")}

	results, err := client.ClassifyDocuments(t.Context(), paths, "travel", 1)
	if err != nil {
		t.Fatalf("ClassifyDocuments() failed: %v", err)
	}

	var i int
	for results.Next() {
		result, err := results.Result()
		if err != nil {
			t.Fatalf("slot %d failed: %v", i, err)
		}
		if result[documentPathField] != paths[i] {
			t.Errorf("slot %d document_path = %v, want %q", i, result[documentPathField], paths[i])
		}
		i++
	}
	if i != 2 {
		t.Errorf("drained %d results, want 2", i)
	}
}

func TestClassifyDocumentsEmptyBatch(t *testing.T) {
	client := newStubClient(t, http.NewServeMux())

	_, err := client.ClassifyDocuments(t.Context(), nil, "travel", 1)
	if !errors.Is(err, bdp.ErrEmptyBatch) {
		t.Errorf("got %v, want ErrEmptyBatch", err)
	}
}
