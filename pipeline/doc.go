// Package pipeline provides composable, pull-based iterators.
//
// Iterators are lazy: no work happens until a value is pulled with Next.
// Each operator pulls from its source on demand, so a chain of operators
// gives natural backpressure without explicit flow control. Closing the
// outermost iterator closes every source behind it.
//
// # Operators
//
//   - Map: transform each value
//   - FlatMap: transform each value into an iterator and flatten
//   - Filter: keep values matching a predicate
//   - Tap: side-effect without altering the value
//   - Concat: join iterators sequentially
//   - Limit: stop after n values
//   - Batch: group values into slices by size or timeout
//   - Peek: buffer a prefix for inspection and replay it
//   - Defer: create the source on the first pull
//   - OnClose: run a hook once when the iterator is closed
//
// # Usage
//
//	it := pipeline.FromSlice([]int{1, 2, 3, 4, 5})
//	doubled := pipeline.Map(it, func(_ context.Context, n int) (int, error) {
//	    return n * 2, nil
//	})
//	evens := pipeline.Filter(doubled, func(_ context.Context, n int) (bool, error) {
//	    return n%4 == 0, nil
//	})
//	results, err := pipeline.Collect(ctx, evens)
package pipeline
