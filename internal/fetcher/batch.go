package fetcher

import (
	"context"
	"slices"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/logger"
)

// Result is the outcome of fetching a single item
type Result[K comparable, V any] struct {
	Key   K
	Value V
	// Err is set when the item failed; Value is the zero value then
	Err error
}

// ItemFunc fetches the value of a single key
type ItemFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Batch fetches every key with at most size concurrent requests.
// Keys are processed in consecutive groups of size; a group is fully awaited before the next starts.
// A failing item never cancels its siblings: it yields a Result with Err set and a zero Value.
// Results are returned in the order of keys.
func Batch[K comparable, V any](ctx context.Context, keys []K, size int, fetch ItemFunc[K, V]) []Result[K, V] {
	if len(keys) == 0 {
		return nil
	}
	size = max(size, 1)

	pool := pond.NewResultPool[Result[K, V]](size)
	defer pool.StopAndWait()

	results := make([]Result[K, V], 0, len(keys))
	for chunk := range slices.Chunk(keys, size) {
		group := pool.NewGroup()
		for _, key := range chunk {
			group.Submit(func() Result[K, V] {
				value, err := fetch(ctx, key)
				if err != nil {
					logger.WarnCtx(ctx, "Item fetch failed, continuing with empty result",
						zap.Any("key", key),
						zap.Error(err),
					)
					var zero V
					return Result[K, V]{Key: key, Value: zero, Err: err}
				}
				return Result[K, V]{Key: key, Value: value}
			})
		}

		chunkResults, _ := group.Wait() // tasks never return errors
		results = append(results, chunkResults...)
	}

	return results
}

// Values returns the values of the successful results
func Values[K comparable, V any](results []Result[K, V]) []V {
	values := make([]V, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			values = append(values, r.Value)
		}
	}
	return values
}

// Failed counts the failed results
func Failed[K comparable, V any](results []Result[K, V]) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}
