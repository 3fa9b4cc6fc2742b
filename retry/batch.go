package retry

import (
	"context"
	"sync"
)

// DefaultBatchConcurrency is the chunk size used when BatchOptions.Concurrency is not positive.
const DefaultBatchConcurrency = 3

// BatchOptions controls ExecuteBatch.
type BatchOptions struct {
	// Concurrency is the number of operations run together in one chunk.
	Concurrency int
	// FailFast stops after the first chunk containing a failure.
	FailFast bool
	// SkipRetry runs each operation once instead of through Execute.
	SkipRetry bool
}

// BatchResult is the outcome of one operation. Exactly one of Value or Err is meaningful.
type BatchResult struct {
	Value any
	Err   error
}

// ExecuteBatch runs ops in chunks of opts.Concurrency, each chunk in parallel
// and chunks in order. Results keep the order of ops. With FailFast the
// results stop at the first failing chunk and its first error is returned.
func (e *Engine) ExecuteBatch(ctx context.Context, ops []Operation, opts BatchOptions) ([]BatchResult, error) {
	size := opts.Concurrency
	if size <= 0 {
		size = DefaultBatchConcurrency
	}
	results := make([]BatchResult, 0, len(ops))

	for start := 0; start < len(ops); start += size {
		end := min(start+size, len(ops))
		chunk := make([]BatchResult, end-start)

		var wg sync.WaitGroup
		for i, op := range ops[start:end] {
			wg.Add(1)
			go func(i int, op Operation) {
				defer wg.Done()
				var v any
				var err error
				if opts.SkipRetry {
					v, err = op(ctx)
				} else {
					v, err = e.Execute(ctx, op)
				}
				chunk[i] = BatchResult{Value: v, Err: err}
			}(i, op)
		}
		wg.Wait()
		results = append(results, chunk...)

		if opts.FailFast {
			for _, r := range chunk {
				if r.Err != nil {
					return results, r.Err
				}
			}
		}
	}
	return results, nil
}
