package pipeline

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiters hands out a per-provider token-bucket limiter, lazily created on
// first use from a provider's configured rate. A provider with no
// configured rate gets an unlimited limiter (rate.Inf), so dispatch never
// has to special-case "no limit configured".
type Limiters struct {
	mu       sync.Mutex
	byName   map[string]*rate.Limiter
	defaults map[string]Rate
}

// Rate describes a requests-per-second limit with a burst allowance.
type Rate struct {
	PerSecond float64
	Burst     int
}

func NewLimiters(defaults map[string]Rate) *Limiters {
	return &Limiters{
		byName:   make(map[string]*rate.Limiter),
		defaults: defaults,
	}
}

// Wait blocks until providerName's limiter admits one request, or ctx is
// canceled first.
func (l *Limiters) Wait(ctx context.Context, providerName string) error {
	return l.get(providerName).Wait(ctx)
}

func (l *Limiters) get(providerName string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.byName[providerName]; ok {
		return lim
	}

	r, ok := l.defaults[providerName]
	var lim *rate.Limiter
	if !ok || r.PerSecond <= 0 {
		lim = rate.NewLimiter(rate.Inf, 0)
	} else {
		burst := r.Burst
		if burst <= 0 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(r.PerSecond), burst)
	}

	l.byName[providerName] = lim
	return lim
}
