package assistant

import (
	"context"
	"log"
	"math/rand"
	"time"
)

// RetryPolicy is composed around each transport call site. The delay doubles
// per attempt and the final attempt's error propagates unmasked.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Jitter      float64 // fraction of the delay, 0 disables
}

// DefaultRetry matches the backend client's historical behavior: 3 attempts,
// 1s base delay, doubling.
var DefaultRetry = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second, Jitter: 0.1}

func (p RetryPolicy) Do(ctx context.Context, name string, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := p.BaseDelay
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == attempts {
			log.Printf("❌ %s failed after %d attempts: %v", name, attempts, err)
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		wait := delay
		if p.Jitter > 0 {
			wait += time.Duration(rand.Float64() * p.Jitter * float64(delay))
		}
		log.Printf("⚠️  %s attempt %d failed, retrying in %s: %v", name, attempt, wait, err)
		if sleepErr := sleepCtx(ctx, wait); sleepErr != nil {
			return err
		}
		delay *= 2
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
