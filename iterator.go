package bdp

// Iterator is a lazy, single-pass, order-preserving view over batch results.
// Each element is consumed exactly once: the captured error of a failed item
// is returned the moment that slot is read, so callers can drain results in
// a loop and handle per-item failures individually, or Collect everything
// and let the first failure abort eager materialization. Re-running the
// batch is the only way to iterate again.
type Iterator[T any] struct {
	results []Result[T]
	pos     int
	current Result[T]
}

// NewIterator wraps a finite batch outcome.
func NewIterator[T any](results []Result[T]) *Iterator[T] {
	return &Iterator[T]{results: results}
}

// Len reports the total number of items in the batch.
func (it *Iterator[T]) Len() int { return len(it.results) }

// Next advances to the next slot. It returns false once the sequence is
// exhausted.
func (it *Iterator[T]) Next() bool {
	if it.pos >= len(it.results) {
		return false
	}
	it.current = it.results[it.pos]
	it.pos++
	return true
}

// Result returns the current slot's value, or the error captured while
// processing that item.
func (it *Iterator[T]) Result() (T, error) {
	if it.current.Err != nil {
		var zero T
		return zero, it.current.Err
	}
	return it.current.Value, nil
}

// Key returns the input key of the current slot, e.g. the document path.
func (it *Iterator[T]) Key() string { return it.current.Key }

// Collect drains the remaining slots into a slice, stopping at the first
// captured error.
func (it *Iterator[T]) Collect() ([]T, error) {
	out := make([]T, 0, len(it.results)-it.pos)
	for it.Next() {
		value, err := it.Result()
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}
