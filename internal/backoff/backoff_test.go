package backoff_test

import (
	"errors"
	"testing"
	"time"

	"github.com/voxora/maestro/internal/backoff"
	"github.com/voxora/maestro/internal/domain"
)

func TestDelay_StaysInJitterWindow(t *testing.T) {
	base := 100 * time.Millisecond
	p, err := backoff.New(base, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for attempt := 0; attempt <= 6; attempt++ {
		lo := base * (1 << attempt)
		hi := lo + base
		// Jitter is random; sample enough times to catch drift.
		for i := 0; i < 200; i++ {
			d := p.Delay(attempt)
			if d < lo || d >= hi {
				t.Fatalf("Delay(%d) = %v, want in [%v, %v)", attempt, d, lo, hi)
			}
		}
	}
}

func TestDelay_NegativeAttemptClamped(t *testing.T) {
	p, _ := backoff.New(time.Second, 3)
	d := p.Delay(-1)
	if d < time.Second || d >= 2*time.Second {
		t.Errorf("Delay(-1) = %v, want in [1s, 2s)", d)
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name        string
		base        time.Duration
		maxAttempts int
		want        error
	}{
		{"zero base", 0, 3, domain.ErrInvalidRetryBase},
		{"negative base", -time.Second, 3, domain.ErrInvalidRetryBase},
		{"negative attempts", time.Second, -1, domain.ErrInvalidMaxAttempts},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := backoff.New(tt.base, tt.maxAttempts)
			if !errors.Is(err, tt.want) {
				t.Errorf("New(%v, %d) error = %v, want %v", tt.base, tt.maxAttempts, err, tt.want)
			}
		})
	}
}

func TestNew_ZeroAttemptsAllowed(t *testing.T) {
	p, err := backoff.New(time.Second, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.MaxAttempts() != 0 {
		t.Errorf("MaxAttempts() = %d, want 0", p.MaxAttempts())
	}
}
