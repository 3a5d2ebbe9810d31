package dispatch

import (
	"context"
	"sync/atomic"

	"github.com/keshon/discord-bot-shared/pkg/cmd"
)

// HookVerdict is the answer of the global hook for one invocation.
type HookVerdict struct {
	Proceed bool
	Reason  string
}

// Proceed lets the invocation continue.
func Proceed() HookVerdict { return HookVerdict{Proceed: true} }

// Veto stops the invocation; reason is shown to the invoker.
func Veto(reason string) HookVerdict { return HookVerdict{Reason: reason} }

// Hook runs after authorization and before every command handler. A returned
// error is a fault, not a veto.
type Hook func(ctx context.Context, inv *cmd.Invocation) (HookVerdict, error)

// hookSlot holds at most one hook and can be swapped during live dispatch.
type hookSlot struct {
	p atomic.Pointer[Hook]
}

func (s *hookSlot) set(h Hook) {
	if h == nil {
		s.p.Store(nil)
		return
	}
	s.p.Store(&h)
}

// run evaluates the current hook. With no hook set the invocation proceeds.
func (s *hookSlot) run(ctx context.Context, inv *cmd.Invocation) (HookVerdict, error) {
	h := s.p.Load()
	if h == nil {
		return Proceed(), nil
	}
	var verdict HookVerdict
	err := runSafely(func() error {
		var err error
		verdict, err = (*h)(ctx, inv)
		return err
	})
	if err != nil {
		return HookVerdict{}, err
	}
	return verdict, nil
}
