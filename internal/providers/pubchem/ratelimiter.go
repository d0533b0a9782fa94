package pubchem

import (
	"context"
	"sync"
	"time"
)

// rateLimiter is a token-channel limiter: the channel starts full and a
// ticker refills one token per interval, so bursts drain the bucket and
// sustained traffic settles at the configured rate.
type rateLimiter struct {
	tokens   chan struct{}
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
}

func newRateLimiter(rps int) *rateLimiter {
	rl := &rateLimiter{
		tokens:   make(chan struct{}, rps),
		interval: time.Second / time.Duration(rps),
		stop:     make(chan struct{}),
	}
	for i := 0; i < rps; i++ {
		rl.tokens <- struct{}{}
	}
	go func() {
		ticker := time.NewTicker(rl.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				select {
				case rl.tokens <- struct{}{}:
				default:
				}
			case <-rl.stop:
				return
			}
		}
	}()
	return rl
}

// Acquire blocks until a token is available or the context is done.
func (rl *rateLimiter) Acquire(ctx context.Context) error {
	select {
	case <-rl.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the refill goroutine.
func (rl *rateLimiter) Close() {
	rl.once.Do(func() { close(rl.stop) })
}
