package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a sliding-window request limiter keyed by subject (user id
// for authenticated traffic, remote address for login attempts).
type Limiter struct {
	mu      sync.RWMutex
	buckets map[string]*bucket
	maxReqs int
	window  time.Duration
	cleanup *time.Ticker
	done    chan struct{}
}

type bucket struct {
	requests []time.Time
	lastSeen time.Time
}

func NewLimiter(maxRequests int, window time.Duration) *Limiter {
	limiter := &Limiter{
		buckets: make(map[string]*bucket),
		maxReqs: maxRequests,
		window:  window,
		cleanup: time.NewTicker(5 * time.Minute),
		done:    make(chan struct{}),
	}
	go limiter.cleanupOldBuckets()
	return limiter
}

func (l *Limiter) Allow(subject string) bool {
	if subject == "" {
		return true
	}
	return l.allow(subject, l.maxReqs, l.window)
}

// AllowStrict applies tighter limits for sensitive endpoints such as login
func (l *Limiter) AllowStrict(subject string, maxReqs int, window time.Duration) bool {
	if subject == "" {
		return true
	}
	// Separate key space so strict counters do not collide with normal ones
	return l.allow("strict:"+subject, maxReqs, window)
}

func (l *Limiter) allow(key string, maxReqs int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	b, exists := l.buckets[key]
	if !exists {
		b = &bucket{}
		l.buckets[key] = b
	}

	cutoff := now.Add(-window)
	var reqs []time.Time
	for _, t := range b.requests {
		if t.After(cutoff) {
			reqs = append(reqs, t)
		}
	}
	b.requests = reqs
	b.lastSeen = now

	if len(b.requests) >= maxReqs {
		return false
	}

	b.requests = append(b.requests, now)
	return true
}

func (l *Limiter) cleanupOldBuckets() {
	for {
		select {
		case <-l.done:
			return
		case <-l.cleanup.C:
			l.mu.Lock()
			cutoff := time.Now().Add(-30 * time.Minute)
			for key, b := range l.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(l.buckets, key)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop halts the background cleanup goroutine
func (l *Limiter) Stop() {
	l.cleanup.Stop()
	close(l.done)
}
