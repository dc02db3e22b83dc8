package fetcher

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter caps requests per minute for each host. A zero rpm disables it.
type RateLimiter struct {
	rpm   int
	hosts map[string]*rate.Limiter
	mu    sync.Mutex
}

func NewRateLimiter(rpm int) *RateLimiter {
	return &RateLimiter{
		rpm:   rpm,
		hosts: make(map[string]*rate.Limiter),
	}
}

func (rl *RateLimiter) limiterFor(host string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if lim, ok := rl.hosts[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.rpm)), 1)
	rl.hosts[host] = lim
	return lim
}

func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	if rl == nil || rl.rpm <= 0 {
		return ctx.Err()
	}
	return rl.limiterFor(host).Wait(ctx)
}
