package util

import (
	"golang.org/x/sync/errgroup"
)

// JoinAll calls fn for every input with at most workerLimit calls in flight
// and returns one result per input, in input order. A failing input never
// stops the others; JoinAll returns only after every call has finished.
func JoinAll[T, R any](inputs []T, workerLimit int, fn func(T) R) []R {
	results := make([]R, len(inputs))
	if len(inputs) == 0 {
		return results
	}

	if workerLimit <= 0 {
		workerLimit = 1
	}

	var g errgroup.Group
	g.SetLimit(workerLimit)
	for i, item := range inputs {
		g.Go(func() error {
			results[i] = fn(item)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
