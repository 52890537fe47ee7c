// Package backoff computes retry delays for failed submissions and polls.
// Policies are stateless and safe for concurrent use; they never sleep.
package backoff

import (
	"math"
	"math/rand"
	"time"

	"github.com/voxora/maestro/internal/domain"
)

const (
	// DefaultBase matches the fixed delays the generation scripts used
	// between retries.
	DefaultBase = 2 * time.Second

	// DefaultMaxAttempts is the retry budget applied when none is
	// configured.
	DefaultMaxAttempts = 3
)

// Policy is an exponential backoff with full-range jitter:
// Delay(n) = Base*2^n + U[0, Base). The jitter keeps concurrent jobs from
// retrying in lockstep against the same endpoint.
type Policy struct {
	base        time.Duration
	maxAttempts int
}

// New validates the parameters and returns a Policy. Base must be positive
// and maxAttempts non-negative; violations are configuration errors and
// surface here, never at Delay time.
func New(base time.Duration, maxAttempts int) (*Policy, error) {
	if base <= 0 {
		return nil, domain.ErrInvalidRetryBase
	}
	if maxAttempts < 0 {
		return nil, domain.ErrInvalidMaxAttempts
	}
	return &Policy{base: base, maxAttempts: maxAttempts}, nil
}

// Default returns the policy used when the caller configures nothing.
func Default() *Policy {
	p, _ := New(DefaultBase, DefaultMaxAttempts)
	return p
}

// Delay returns the wait before retry attempt n (0-indexed: the first retry
// after the initial failure uses attempt 0).
func (p *Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	exp := time.Duration(float64(p.base) * math.Pow(2, float64(attempt)))
	jitter := time.Duration(rand.Float64() * float64(p.base)) //nolint:gosec // jitter intentionally uses non-crypto rand
	return exp + jitter
}

// MaxAttempts returns the configured retry budget.
func (p *Policy) MaxAttempts() int {
	return p.maxAttempts
}

// Base returns the configured base delay.
func (p *Policy) Base() time.Duration {
	return p.base
}
