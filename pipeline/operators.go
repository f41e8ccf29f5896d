package pipeline

import (
	"context"
	"sync"
)

// Map transforms each value using fn.
func Map[I, O any](src Iterator[I], fn func(context.Context, I) (O, error)) Iterator[O] {
	return &mapIter[I, O]{source: src, fn: fn}
}

// FlatMap transforms each value into an iterator and flattens the results.
func FlatMap[I, O any](src Iterator[I], fn func(context.Context, I) (Iterator[O], error)) Iterator[O] {
	return &flatMapIter[I, O]{source: src, fn: fn}
}

// Filter keeps only values that satisfy the predicate.
func Filter[T any](src Iterator[T], fn func(context.Context, T) (bool, error)) Iterator[T] {
	return &filterIter[T]{source: src, fn: fn}
}

// Tap calls fn as a side-effect for each value, then passes the value through
// unchanged.
func Tap[T any](src Iterator[T], fn func(context.Context, T) error) Iterator[T] {
	return &tapIter[T]{source: src, fn: fn}
}

// Concat joins iterators sequentially.
// All values from the first iterator are yielded before the second, etc.
func Concat[T any](iters ...Iterator[T]) Iterator[T] {
	return &concatIter[T]{iters: iters}
}

// Limit yields at most n values. The source is not pulled past the limit.
func Limit[T any](src Iterator[T], n int) Iterator[T] {
	return &limitIter[T]{source: src, remaining: n}
}

// OnClose runs fn exactly once, after the source has been closed.
func OnClose[T any](src Iterator[T], fn func() error) Iterator[T] {
	return &onCloseIter[T]{source: src, fn: fn}
}

// Defer postpones creating the source until the first pull. Closing an
// iterator that was never pulled does not create it.
func Defer[T any](create func(ctx context.Context) (Iterator[T], error)) Iterator[T] {
	return &deferIter[T]{create: create}
}

// Peek pulls up to n values from src and returns them along with an iterator
// that replays them before continuing with the rest of src.
func Peek[T any](ctx context.Context, src Iterator[T], n int) ([]T, Iterator[T], error) {
	head := make([]T, 0, n)
	for len(head) < n {
		val, ok, err := src.Next(ctx)
		if err != nil {
			return nil, nil, err
		}
		if !ok {
			break
		}
		head = append(head, val)
	}
	return head, Concat(FromSlice(head), src), nil
}

// --- Iterator implementations ---

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
}

func (it *mapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero O
		return zero, false, err
	}
	out, err := it.fn(ctx, val)
	if err != nil {
		var zero O
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type flatMapIter[I, O any] struct {
	source  Iterator[I]
	fn      func(context.Context, I) (Iterator[O], error)
	current Iterator[O]
}

func (it *flatMapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	for {
		if it.current != nil {
			val, ok, err := it.current.Next(ctx)
			if err != nil {
				var zero O
				return zero, false, err
			}
			if ok {
				return val, true, nil
			}
			_ = it.current.Close()
			it.current = nil
		}
		in, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero O
			return zero, false, err
		}
		inner, err := it.fn(ctx, in)
		if err != nil {
			var zero O
			return zero, false, err
		}
		it.current = inner
	}
}

func (it *flatMapIter[I, O]) Close() error {
	if it.current != nil {
		_ = it.current.Close()
		it.current = nil
	}
	return it.source.Close()
}

type filterIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) (bool, error)
}

func (it *filterIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		keep, err := it.fn(ctx, val)
		if err != nil {
			var zero T
			return zero, false, err
		}
		if keep {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type tapIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) error
}

func (it *tapIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, ok, err
	}
	if err := it.fn(ctx, val); err != nil {
		var zero T
		return zero, false, err
	}
	return val, true, nil
}

func (it *tapIter[T]) Close() error { return it.source.Close() }

type concatIter[T any] struct {
	iters []Iterator[T]
	index int
}

func (it *concatIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for it.index < len(it.iters) {
		val, ok, err := it.iters[it.index].Next(ctx)
		if err != nil {
			return val, false, err
		}
		if ok {
			return val, true, nil
		}
		it.index++
	}
	var zero T
	return zero, false, nil
}

func (it *concatIter[T]) Close() error {
	var firstErr error
	for _, iter := range it.iters {
		if err := iter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

type limitIter[T any] struct {
	source    Iterator[T]
	remaining int
}

func (it *limitIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.remaining <= 0 {
		var zero T
		return zero, false, nil
	}
	val, ok, err := it.source.Next(ctx)
	if ok {
		it.remaining--
	}
	return val, ok, err
}

func (it *limitIter[T]) Close() error { return it.source.Close() }

type onCloseIter[T any] struct {
	source Iterator[T]
	fn     func() error
	once   sync.Once
}

func (it *onCloseIter[T]) Next(ctx context.Context) (T, bool, error) {
	return it.source.Next(ctx)
}

func (it *onCloseIter[T]) Close() error {
	err := it.source.Close()
	it.once.Do(func() {
		if hookErr := it.fn(); err == nil {
			err = hookErr
		}
	})
	return err
}

type deferIter[T any] struct {
	create func(context.Context) (Iterator[T], error)
	source Iterator[T]
	err    error
}

func (it *deferIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.source == nil && it.err == nil {
		it.source, it.err = it.create(ctx)
	}
	if it.err != nil {
		var zero T
		return zero, false, it.err
	}
	return it.source.Next(ctx)
}

func (it *deferIter[T]) Close() error {
	if it.source == nil {
		return nil
	}
	return it.source.Close()
}
