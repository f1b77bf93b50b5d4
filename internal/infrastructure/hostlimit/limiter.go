// Package hostlimit keeps one token bucket per remote host so outbound
// fetches stay polite towards any single shop.
package hostlimit

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter hands out per-host rate limiters created on first use
type Limiter struct {
	mu    sync.Mutex
	rate  rate.Limit
	burst int
	hosts map[string]*rate.Limiter
}

// New creates a limiter allowing rps requests per second per host.
// A non-positive rps disables limiting.
func New(rps float64, burst int) *Limiter {
	r := rate.Inf
	if rps > 0 {
		r = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	return &Limiter{
		rate:  r,
		burst: burst,
		hosts: make(map[string]*rate.Limiter),
	}
}

// Wait blocks until a request to rawURL's host is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	return l.forHost(HostKey(rawURL)).Wait(ctx)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.hosts[host]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.rate, l.burst)
	l.hosts[host] = lim
	return lim
}

// HostKey returns the lowercased host of rawURL without a leading "www."
func HostKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "default"
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
