package reliability

import (
	"context"
	"time"
)

// DefaultPollInterval is the provider's recommended cadence for video
// operations.
const DefaultPollInterval = 5 * time.Second

// PollPolicy bounds a caller-driven polling loop. At least one of MaxAttempts
// and Timeout must be positive; a zero field is not enforced.
type PollPolicy struct {
	Interval    time.Duration
	MaxAttempts int
	Timeout     time.Duration
}

// DefaultPollPolicy waits at most ten minutes at the default cadence.
func DefaultPollPolicy() PollPolicy {
	return PollPolicy{Interval: DefaultPollInterval, MaxAttempts: 120, Timeout: 10 * time.Minute}
}

// Bounded reports whether the policy terminates on its own.
func (p PollPolicy) Bounded() bool {
	return p.MaxAttempts > 0 || p.Timeout > 0
}

// Normalize fills a missing interval and, when the policy is unbounded,
// applies the default bounds.
func (p PollPolicy) Normalize() PollPolicy {
	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}
	if !p.Bounded() {
		def := DefaultPollPolicy()
		p.MaxAttempts = def.MaxAttempts
		p.Timeout = def.Timeout
	}
	return p
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the real-time Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
