// Package ratelimit caps mutating GitHub operations per repository per
// time window, bounding the bot's own write amplification.
package ratelimit

import (
	"time"
)

const (
	// DefaultWindow is how long one counting window lasts.
	DefaultWindow = 10 * time.Minute
	// DefaultLimit is the number of mutations allowed per window.
	DefaultLimit = 100
)

type window struct {
	start time.Time
	count int
}

// Limiter is a reset-counter window per repository. It is not a token
// bucket: the count resets in full once the window elapses, which is the
// behavior users see ("try again in a few minutes"). Keyed by repository,
// so channels sharing a repository share the budget.
//
// Limiter is used only from the event loop and needs no locking.
type Limiter struct {
	Window time.Duration
	Limit  int

	now     func() time.Time
	windows map[string]*window
}

// New returns a Limiter with the default window and limit.
func New() *Limiter {
	return &Limiter{
		Window:  DefaultWindow,
		Limit:   DefaultLimit,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// TryConsume records one mutating operation against repo and reports
// whether it is allowed. On first use, or once the window has elapsed, the
// counter restarts at one.
func (l *Limiter) TryConsume(repo string) bool {
	now := l.now()
	w, ok := l.windows[repo]
	if !ok || now.Sub(w.start) >= l.Window {
		l.windows[repo] = &window{start: now, count: 1}
		return true
	}
	if w.count < l.Limit {
		w.count++
		return true
	}
	return false
}
