package retry

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func constOp(v any) Operation {
	return func(context.Context) (any, error) { return v, nil }
}

func failOp(msg string) Operation {
	return func(context.Context) (any, error) { return nil, errors.New(msg) }
}

func TestExecuteBatch_OrderedResults(t *testing.T) {
	e, _, _ := newTestEngine(t, WithMaxAttempts(1))
	ops := []Operation{constOp(1), failOp("two"), constOp(3), constOp(4), failOp("five")}

	results, err := e.ExecuteBatch(context.Background(), ops, BatchOptions{Concurrency: 2})
	require.NoError(t, err)
	require.Len(t, results, 5)
	assert.Equal(t, 1, results[0].Value)
	assert.Error(t, results[1].Err)
	assert.Equal(t, 3, results[2].Value)
	assert.Equal(t, 4, results[3].Value)
	assert.ErrorContains(t, results[4].Err, "five")
}

func TestExecuteBatch_FailFastStopsAfterChunk(t *testing.T) {
	e, _, _ := newTestEngine(t, WithMaxAttempts(1))
	var ran atomic.Int32
	counted := func(op Operation) Operation {
		return func(ctx context.Context) (any, error) {
			ran.Add(1)
			return op(ctx)
		}
	}
	ops := []Operation{counted(constOp(1)), counted(failOp("boom")), counted(constOp(3)), counted(constOp(4))}

	results, err := e.ExecuteBatch(context.Background(), ops, BatchOptions{Concurrency: 2, FailFast: true})
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), ran.Load())
}

func TestExecuteBatch_SkipRetry(t *testing.T) {
	e, sleeper, h := newTestEngine(t)
	calls := 0
	ops := []Operation{func(context.Context) (any, error) {
		calls++
		return nil, errors.New("once")
	}}

	results, err := e.ExecuteBatch(context.Background(), ops, BatchOptions{SkipRetry: true})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.EqualError(t, results[0].Err, "once")
	assert.Empty(t, sleeper.delays)
	assert.Empty(t, h.Errors())
}

func TestExecuteBatch_RunsChunkInParallel(t *testing.T) {
	e, _, _ := newTestEngine(t)
	var inFlight, peak atomic.Int32
	ops := make([]Operation, 6)
	for i := range ops {
		i := i
		ops[i] = func(context.Context) (any, error) {
			n := inFlight.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			return fmt.Sprint(i), nil
		}
	}

	results, err := e.ExecuteBatch(context.Background(), ops, BatchOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 6)
	assert.Equal(t, "5", results[5].Value)
	assert.LessOrEqual(t, peak.Load(), int32(DefaultBatchConcurrency))
	assert.Greater(t, peak.Load(), int32(1))
}
