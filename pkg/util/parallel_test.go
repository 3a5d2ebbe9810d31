package util

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestJoinAllKeepsEveryResult(t *testing.T) {
	t.Parallel()

	inputs := []string{"g1", "g2", "g3", "g4"}
	var calls atomic.Int32
	results := JoinAll(inputs, 2, func(id string) error {
		calls.Add(1)
		if id == "g2" {
			return errors.New("missing access")
		}
		return nil
	})

	if calls.Load() != int32(len(inputs)) {
		t.Fatalf("calls = %d, want %d", calls.Load(), len(inputs))
	}
	var failed []int
	for i, err := range results {
		if err != nil {
			failed = append(failed, i)
		}
	}
	if diff := cmp.Diff([]int{1}, failed); diff != "" {
		t.Fatalf("failed indexes (-want +got):\n%s", diff)
	}
}

func TestJoinAllRespectsWorkerLimit(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	inputs := make([]int, 20)
	JoinAll(inputs, 3, func(int) struct{} {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		inFlight.Add(-1)
		return struct{}{}
	})
	if peak.Load() > 3 {
		t.Fatalf("peak concurrency = %d, want <= 3", peak.Load())
	}
}

func TestJoinAllEmpty(t *testing.T) {
	t.Parallel()

	if got := JoinAll[int, int](nil, 4, func(i int) int { return i }); len(got) != 0 {
		t.Fatalf("results = %v, want empty", got)
	}
}
