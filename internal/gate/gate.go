package gate

import (
	"sync"
	"time"
)

// DefaultMinInterval is the throttle applied when none is configured.
const DefaultMinInterval = 6 * time.Hour

// Gate decides whether the dashboard prompt is due again.
type Gate struct {
	mu          sync.Mutex
	lastShownAt time.Time
	minInterval time.Duration
}

// New returns a Gate seeded with the last time the dashboard was shown. A zero
// lastShownAt means it has never been shown in this session.
func New(lastShownAt time.Time, minInterval time.Duration) *Gate {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return &Gate{lastShownAt: lastShownAt, minInterval: minInterval}
}

// IsDue reports whether the dashboard should be shown at now. A calendar day
// rollover since the last showing makes it due regardless of the interval, as
// does a last showing recorded in the future.
func (g *Gate) IsDue(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.lastShownAt.IsZero() {
		return true
	}
	if !sameDay(g.lastShownAt, now) {
		return true
	}
	elapsed := now.Sub(g.lastShownAt)
	return elapsed < 0 || elapsed >= g.minInterval
}

// MarkShown records now as the last showing.
func (g *Gate) MarkShown(now time.Time) {
	g.mu.Lock()
	g.lastShownAt = now
	g.mu.Unlock()
}

// LastShownAt returns the recorded showing time.
func (g *Gate) LastShownAt() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastShownAt
}

// MinInterval returns the configured throttle.
func (g *Gate) MinInterval() time.Duration {
	return g.minInterval
}

func sameDay(a, b time.Time) bool {
	a, b = a.Local(), b.Local()
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
