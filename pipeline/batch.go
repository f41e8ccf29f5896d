package pipeline

import (
	"context"
	"time"
)

// Batch collects up to size values or waits timeout (whichever comes first),
// then emits them as a slice.
//
// size=0 means collect until timeout. timeout=0 means collect until size.
// Both zero is invalid and defaults to size=1.
func Batch[T any](src Iterator[T], size int, timeout time.Duration) Iterator[[]T] {
	if size <= 0 && timeout <= 0 {
		size = 1
	}
	return &batchIter[T]{
		source:  src,
		size:    size,
		timeout: timeout,
	}
}

type batchIter[T any] struct {
	source  Iterator[T]
	size    int
	timeout time.Duration
	done    bool
	pending error
}

func (it *batchIter[T]) Next(ctx context.Context) (result []T, ok bool, err error) {
	if it.pending != nil {
		err, it.pending = it.pending, nil
		it.done = true
		return nil, false, err
	}
	if it.done {
		return nil, false, nil
	}

	var batch []T
	var deadline time.Time
	if it.timeout > 0 {
		deadline = time.Now().Add(it.timeout)
	}

	for {
		if it.size > 0 && len(batch) >= it.size {
			return batch, true, nil
		}

		val, ok, err := it.source.Next(ctx)
		if err != nil {
			if len(batch) > 0 {
				// Partial batch first; the error surfaces on the next call.
				it.pending = err
				return batch, true, nil
			}
			it.done = true
			return nil, false, err
		}
		if !ok {
			it.done = true
			if len(batch) > 0 {
				return batch, true, nil
			}
			return nil, false, nil
		}

		batch = append(batch, val)

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return batch, true, nil
		}
	}
}

func (it *batchIter[T]) Close() error { return it.source.Close() }
