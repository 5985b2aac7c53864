package bdp

import (
	"context"
	"errors"
	"sync"
)

// Result holds the outcome of one batch item: either a value or the error
// captured while processing it, tagged with the item's original key.
type Result[T any] struct {
	Key   string
	Value T
	Err   error
}

// RunBatch runs op over items on a bounded worker pool and returns exactly
// one Result per item, in input order. A failing item is captured into its
// slot instead of aborting the batch. The pool lives only for the duration
// of the call.
func RunBatch[I, O any](ctx context.Context, workers int, items []I, key func(I) string, op func(context.Context, I) (O, error)) ([]Result[O], error) {
	if len(items) == 0 {
		return nil, ErrEmptyBatch
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers < 1 {
		workers = 1
	}

	results := make([]Result[O], len(items))
	indexes := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indexes {
				item := items[i]
				value, err := op(ctx, item)
				results[i] = Result[O]{Key: key(item), Value: value, Err: err}
				if err != nil {
					batchItemsTotal.WithLabelValues("error").Inc()
				} else {
					batchItemsTotal.WithLabelValues("ok").Inc()
				}
			}
		}()
	}

	for i := range items {
		indexes <- i
	}
	close(indexes)
	wg.Wait()

	return results, nil
}

// ValidateResults splits a batch outcome into its successful values and, if
// any item failed, one aggregate error listing every failure.
func ValidateResults[T any](results []Result[T], message string) ([]T, error) {
	valid := make([]T, 0, len(results))
	var failures []BatchFailure

	for _, result := range results {
		if result.Err == nil {
			valid = append(valid, result.Value)
			continue
		}
		failures = append(failures, newBatchFailure(result.Key, result.Err))
	}

	if len(failures) > 0 {
		return nil, &BatchValidationError{Message: message, Failures: failures}
	}
	return valid, nil
}

func newBatchFailure(key string, err error) BatchFailure {
	failure := BatchFailure{Key: key, Message: err.Error()}

	var withResponse interface {
		HTTPStatus() int
		HTTPBody() string
	}
	if errors.As(err, &withResponse) {
		failure.StatusCode = withResponse.HTTPStatus()
		failure.Body = truncateFailureBody(withResponse.HTTPBody())
	}
	return failure
}
