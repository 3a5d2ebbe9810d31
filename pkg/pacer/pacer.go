// Package pacer spaces out outbound API requests with a rate that adapts to
// the responses. It never retries: callers report each outcome and the next
// Wait is paced accordingly.
//
// Example usage:
//
//	lim := pacer.NewAdaptiveLimiter(5, 1, 20, 1, 0.5)
//	if err := lim.Wait(ctx); err != nil {
//	    return err
//	}
//	lim.Observe(doRequest(), pacer.DefaultClassifier)
package pacer

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// Limiter
// =============================================================================

// AdaptiveLimiter manages a rate limit that adjusts automatically based on
// the outcome of requests. It increases on success and decreases when the
// remote side signals overload. Safe for concurrent use.
type AdaptiveLimiter struct {
	mu        sync.RWMutex
	limiter   *rate.Limiter
	minLimit  rate.Limit
	maxLimit  rate.Limit
	stepUp    rate.Limit
	stepDown  float64
	lastError time.Time
	cooldown  time.Duration
}

// NewAdaptiveLimiter creates an AdaptiveLimiter with the given configuration.
//
// Parameters:
//   - initial: starting requests per second
//   - floor: minimum allowed rate
//   - ceiling: maximum allowed rate
//   - stepUp: increment on success
//   - stepDown: multiplier applied on overload (e.g., 0.5 to halve)
func NewAdaptiveLimiter(initial, floor, ceiling rate.Limit, stepUp rate.Limit, stepDown float64) *AdaptiveLimiter {
	if initial < 1 {
		initial = 1
	}
	if floor < 1 {
		floor = 1
	}
	if ceiling < initial {
		ceiling = initial
	}
	return &AdaptiveLimiter{
		limiter:  rate.NewLimiter(initial, max(1, int(initial))),
		minLimit: floor,
		maxLimit: ceiling,
		stepUp:   stepUp,
		stepDown: stepDown,
		cooldown: 10 * time.Second,
	}
}

// Wait blocks until a token is available or the context is canceled.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	if a == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return a.limiter.Wait(ctx)
}

// Success increases the rate after a successful request, unless the remote
// side signalled overload recently.
func (a *AdaptiveLimiter) Success() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if time.Since(a.lastError) > a.cooldown {
		a.adjustLimit(a.limiter.Limit() + a.stepUp)
	}
}

// RateLimited reduces the rate after an overload response.
func (a *AdaptiveLimiter) RateLimited() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lastError = time.Now()
	a.adjustLimit(rate.Limit(float64(a.limiter.Limit()) * a.stepDown))
}

// Observe feeds the outcome of one request back into the limiter. Errors that
// the classifier does not flag as overload leave the rate untouched.
func (a *AdaptiveLimiter) Observe(err error, classify ErrorClassifier) {
	if a == nil {
		return
	}
	if classify == nil {
		classify = DefaultClassifier
	}
	switch {
	case err == nil:
		a.Success()
	case classify(err):
		a.RateLimited()
	}
}

// CurrentLimit returns the current requests per second.
func (a *AdaptiveLimiter) CurrentLimit() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return float64(a.limiter.Limit())
}

// CurrentBurst returns the current burst size.
func (a *AdaptiveLimiter) CurrentBurst() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.limiter.Burst()
}

// MaxLimit returns the configured maximum rate.
func (a *AdaptiveLimiter) MaxLimit() rate.Limit { return a.maxLimit }

// MinLimit returns the configured minimum rate.
func (a *AdaptiveLimiter) MinLimit() rate.Limit { return a.minLimit }

// adjustLimit sets the limiter to a new rate, respecting min/max boundaries.
func (a *AdaptiveLimiter) adjustLimit(newLimit rate.Limit) {
	if newLimit > a.maxLimit {
		newLimit = a.maxLimit
	} else if newLimit < a.minLimit {
		newLimit = a.minLimit
	}

	if newLimit != a.limiter.Limit() {
		a.limiter.SetLimit(newLimit)
		a.limiter.SetBurst(max(1, int(newLimit)))
	}
}

// =============================================================================
// Errors
// =============================================================================

// HTTPError is implemented by errors that carry an HTTP status code.
type HTTPError interface {
	error
	StatusCode() int
}

// ErrorClassifier reports whether an error means the remote side is overloaded.
type ErrorClassifier func(error) bool

// DefaultClassifier flags 429 and 5xx responses.
func DefaultClassifier(err error) bool {
	var httpErr HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	code := httpErr.StatusCode()
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}
