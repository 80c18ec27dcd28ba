package replicate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const DefaultPollInterval = time.Second

// DelayStrategy returns how long to pause after the given attempt, which
// starts at 1.
type DelayStrategy interface {
	Delay(attempt int) time.Duration
}

// FixedDelay pauses for the same duration after every attempt.
type FixedDelay time.Duration

func (d FixedDelay) Delay(int) time.Duration {
	return time.Duration(d)
}

// Sleeper pauses for d or until ctx is done. Tests inject one that
// returns immediately.
type Sleeper func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type waitConfig struct {
	delay       DelayStrategy
	maxAttempts int
	sleep       Sleeper
	terminal    func(Status) bool
}

type WaitOption func(*waitConfig)

func WithPollInterval(d time.Duration) WaitOption {
	return func(c *waitConfig) {
		c.delay = FixedDelay(d)
	}
}

func WithDelayStrategy(s DelayStrategy) WaitOption {
	return func(c *waitConfig) {
		c.delay = s
	}
}

// WithMaxAttempts bounds the number of fetches. Zero means no bound other
// than the context.
func WithMaxAttempts(n int) WaitOption {
	return func(c *waitConfig) {
		c.maxAttempts = n
	}
}

func WithSleeper(s Sleeper) WaitOption {
	return func(c *waitConfig) {
		c.sleep = s
	}
}

func newWaitConfig(opts []WaitOption) waitConfig {
	cfg := waitConfig{
		delay:    FixedDelay(DefaultPollInterval),
		sleep:    sleepContext,
		terminal: Status.IsTerminal,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// poll fetches until status reports a terminal value. It returns either a
// terminal resource or an error, never both.
func poll[T any](ctx context.Context, fetch func(context.Context) (*T, error), status func(*T) Status, cfg waitConfig, logger *zap.Logger) (*T, error) {
	log := logger.Sugar()
	for attempt := 1; ; attempt++ {
		v, err := fetch(ctx)
		if err != nil {
			log.Debugw("poll failed", "attempt", attempt, "error", err)
			return nil, err
		}
		s := status(v)
		if !s.IsValid() {
			return nil, &DecodeError{Err: fmt.Errorf("%w %q", ErrUnknownStatus, s)}
		}
		if cfg.terminal(s) {
			log.Debugw("reached terminal status", "attempt", attempt, "status", s)
			return v, nil
		}
		if cfg.maxAttempts > 0 && attempt >= cfg.maxAttempts {
			return nil, fmt.Errorf("replicate: %w: %d attempts, last status %s", ErrMaxAttemptsExceeded, attempt, s)
		}
		d := cfg.delay.Delay(attempt)
		log.Debugw("waiting", "attempt", attempt, "status", s, "delay", d)
		if err := cfg.sleep(ctx, d); err != nil {
			return nil, err
		}
	}
}

func zapPredictionID(id string) zap.Field {
	return zap.String("prediction_id", id)
}
