package pipeline

import (
	"context"
	"sync"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// --- Constructors ---

// FromSlice creates an iterator over a slice of values.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

// FromFunc creates an iterator from a next function and an optional close
// function.
func FromFunc[T any](next func(ctx context.Context) (T, bool, error), closeFn func() error) Iterator[T] {
	return &funcIter[T]{next: next, close: closeFn}
}

// Empty returns an exhausted iterator.
func Empty[T any]() Iterator[T] {
	return &sliceIter[T]{}
}

// --- Terminals ---

// Drain pulls all values, sends each to sink and closes it.
func Drain[T any](ctx context.Context, it Iterator[T], sink func(context.Context, T) error) (err error) {
	defer func() {
		if cerr := it.Close(); err == nil {
			err = cerr
		}
	}()
	for {
		val, ok, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := sink(ctx, val); err != nil {
			return err
		}
	}
}

// Collect pulls every value into a slice and closes it.
func Collect[T any](ctx context.Context, it Iterator[T]) ([]T, error) {
	var result []T
	err := Drain(ctx, it, func(_ context.Context, v T) error {
		result = append(result, v)
		return nil
	})
	return result, err
}

// Count pulls every value, discarding it, and returns how many there were.
func Count[T any](ctx context.Context, it Iterator[T]) (int64, error) {
	var n int64
	err := Drain(ctx, it, func(context.Context, T) error {
		n++
		return nil
	})
	return n, err
}

// --- Internal iterators ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type funcIter[T any] struct {
	next  func(context.Context) (T, bool, error)
	close func() error
	once  sync.Once
}

func (it *funcIter[T]) Next(ctx context.Context) (T, bool, error) {
	return it.next(ctx)
}

func (it *funcIter[T]) Close() error {
	var err error
	it.once.Do(func() {
		if it.close != nil {
			err = it.close()
		}
	})
	return err
}
