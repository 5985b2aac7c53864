package bdp

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunBatchPreservesInputOrder(t *testing.T) {
	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}

	results, err := RunBatch(context.Background(), 8, items,
		func(i int) string { return fmt.Sprintf("item-%d", i) },
		func(ctx context.Context, i int) (int, error) {
			// Random latency shuffles completion order.
			time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
			return i * 2, nil
		})
	if err != nil {
		t.Fatalf("RunBatch() failed: %v", err)
	}

	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	for i, result := range results {
		if result.Key != fmt.Sprintf("item-%d", i) {
			t.Errorf("slot %d has key %q", i, result.Key)
		}
		if result.Value != i*2 {
			t.Errorf("slot %d = %d, want %d", i, result.Value, i*2)
		}
	}
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	items := []string{"a", "b", "c", "d"}
	boom := errors.New("boom")

	results, err := RunBatch(context.Background(), 2, items,
		func(s string) string { return s },
		func(ctx context.Context, s string) (string, error) {
			if s == "b" || s == "d" {
				return "", boom
			}
			return strings.ToUpper(s), nil
		})
	if err != nil {
		t.Fatalf("RunBatch() failed: %v", err)
	}

	for i, want := range []struct {
		value string
		fails bool
	}{{"A", false}, {"", true}, {"C", false}, {"", true}} {
		if want.fails && !errors.Is(results[i].Err, boom) {
			t.Errorf("slot %d error = %v, want boom", i, results[i].Err)
		}
		if !want.fails && (results[i].Err != nil || results[i].Value != want.value) {
			t.Errorf("slot %d = (%q, %v), want (%q, nil)", i, results[i].Value, results[i].Err, want.value)
		}
	}
}

func TestRunBatchEmptyInput(t *testing.T) {
	_, err := RunBatch(context.Background(), 4, nil,
		func(s string) string { return s },
		func(ctx context.Context, s string) (string, error) { return s, nil })
	if !errors.Is(err, ErrEmptyBatch) {
		t.Errorf("got %v, want ErrEmptyBatch", err)
	}
}

func TestRunBatchBoundsConcurrency(t *testing.T) {
	var active, peak atomic.Int64
	items := make([]int, 20)

	_, err := RunBatch(context.Background(), 3, items,
		func(int) string { return "k" },
		func(ctx context.Context, _ int) (int, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			active.Add(-1)
			return 0, nil
		})
	if err != nil {
		t.Fatalf("RunBatch() failed: %v", err)
	}
	if got := peak.Load(); got > 3 {
		t.Errorf("peak concurrency = %d, want at most 3", got)
	}
}

func TestValidateResults(t *testing.T) {
	results := []Result[string]{
		{Key: "one.pdf", Value: "ok"},
		{Key: "two.pdf", Err: &ClientError{APIError{
			Message:    "request failed with status 400",
			StatusCode: 400,
			Body:       `{"error":"bad document"}`,
		}}},
		{Key: "three.pdf", Value: "ok"},
	}

	_, err := ValidateResults(results, "some documents could not be processed")
	var validation *BatchValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("got %v, want BatchValidationError", err)
	}
	if len(validation.Failures) != 1 {
		t.Fatalf("got %d failures, want 1", len(validation.Failures))
	}

	failure := validation.Failures[0]
	if failure.Key != "two.pdf" {
		t.Errorf("failure key = %q, want two.pdf", failure.Key)
	}
	if failure.StatusCode != 400 {
		t.Errorf("failure status = %d, want 400", failure.StatusCode)
	}
	if !strings.Contains(err.Error(), "two.pdf") {
		t.Errorf("aggregate message %q does not name the failed key", err.Error())
	}

	t.Run("all succeed", func(t *testing.T) {
		ok := []Result[int]{{Key: "a", Value: 1}, {Key: "b", Value: 2}}
		values, err := ValidateResults(ok, "unused")
		if err != nil {
			t.Fatalf("got %v, want nil", err)
		}
		if len(values) != 2 || values[0] != 1 || values[1] != 2 {
			t.Errorf("values = %v, want [1 2]", values)
		}
	})
}

func TestValidateResultsTruncatesExtractedText(t *testing.T) {
	results := []Result[string]{{
		Key: "long.pdf",
		Err: &ClientError{APIError{
			Message:    "processing failed",
			StatusCode: 422,
			Body:       `{"extractedText":"` + strings.Repeat("a", 200) + `"}`,
		}},
	}}

	_, err := ValidateResults(results, "failure")
	var validation *BatchValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("got %v, want BatchValidationError", err)
	}
	if body := validation.Failures[0].Body; !strings.Contains(body, "... truncated") {
		t.Errorf("body %q was not truncated", body)
	}
}
