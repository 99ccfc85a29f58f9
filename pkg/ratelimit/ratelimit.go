package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter allows maxHits events per window for each key, refilling evenly
type Limiter struct {
	mu      sync.Mutex
	limits  map[string]*rate.Limiter
	window  time.Duration
	maxHits int
}

func NewLimiter(window time.Duration, maxHits int) *Limiter {
	if maxHits < 1 {
		maxHits = 1
	}
	return &Limiter{
		limits:  make(map[string]*rate.Limiter),
		window:  window,
		maxHits: maxHits,
	}
}

func (l *Limiter) Allow(key string) bool {
	return l.limiterFor(key).Allow()
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, exists := l.limits[key]; exists {
		return lim
	}

	every := rate.Every(l.window / time.Duration(l.maxHits))
	lim := rate.NewLimiter(every, l.maxHits)
	l.limits[key] = lim
	return lim
}
