package rte

import (
	"slices"
	"time"
)

// CommitWindow is the window length of the commit rate limiter.
const CommitWindow = 10 * time.Second

// DefaultMaxCommitFrequency is the default number of commits allowed per
// CommitWindow in strict mode.
const DefaultMaxCommitFrequency = 10

// commitLimiter counts commits inside a rolling window.
//
// Unlike a token bucket it has no burst credit: a commit is allowed only
// while fewer than limit commits happened in the last window.
type commitLimiter struct {
	limit  int
	window time.Duration
	stamps []time.Time // ascending
}

func newCommitLimiter(limit int, window time.Duration) *commitLimiter {
	return &commitLimiter{limit: limit, window: window}
}

// Allow records a commit at now, or returns CommitRateError without recording.
func (l *commitLimiter) Allow(now time.Time) error {
	l.prune(now)
	if len(l.stamps) >= l.limit {
		return &CommitRateError{Commits: len(l.stamps), Limit: l.limit, Window: l.window}
	}
	l.stamps = append(l.stamps, now)
	return nil
}

// InWindow returns the number of commits inside the window ending at now.
func (l *commitLimiter) InWindow(now time.Time) int {
	l.prune(now)
	return len(l.stamps)
}

// Reset forgets every recorded commit.
func (l *commitLimiter) Reset() {
	l.stamps = l.stamps[:0]
}

func (l *commitLimiter) prune(now time.Time) {
	cutoff := now.Add(-l.window)
	i := 0
	for i < len(l.stamps) && !l.stamps[i].After(cutoff) {
		i++
	}
	l.stamps = slices.Delete(l.stamps, 0, i)
}
