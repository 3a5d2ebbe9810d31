package dispatch

import (
	"fmt"
	"runtime/debug"
)

// panicError is a recovered panic converted into an error.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string { return fmt.Sprintf("panic recovered: %v", p.value) }

// runSafely executes fn and converts panics into returned errors. It is used
// at every handler and hook boundary to prevent process-wide crashes.
func runSafely(fn func() error) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &panicError{value: recovered, stack: debug.Stack()}
		}
	}()
	return fn()
}
