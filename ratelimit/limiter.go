// Package ratelimit guards the external generation quota. One Limiter is
// shared by the whole process; the external provider enforces a hard daily
// ceiling, so the configured limit sits below it with a safety margin.
package ratelimit

import (
	"fmt"
	"sync"
	"time"
)

const dayFormat = "2006-01-02"

type Limiter struct {
	mu         sync.Mutex
	dailyLimit int
	callsToday int
	day        string // day boundary marker, YYYY-MM-DD

	now func() time.Time
}

// UsageStats is a point-in-time snapshot of quota consumption.
type UsageStats struct {
	DailyLimit  int     `json:"daily_limit"`
	CallsToday  int     `json:"calls_today"`
	Remaining   int     `json:"remaining"`
	PercentUsed float64 `json:"percent_used"`
}

func NewLimiter(dailyLimit int) *Limiter {
	return &Limiter{
		dailyLimit: dailyLimit,
		now:        time.Now,
	}
}

// NewLimiterWithClock lets tests simulate day-boundary rollovers.
func NewLimiterWithClock(dailyLimit int, now func() time.Time) *Limiter {
	return &Limiter{
		dailyLimit: dailyLimit,
		now:        now,
	}
}

// rollDay resets the counter the first time the current date differs from
// the stored boundary. Callers must hold l.mu.
func (l *Limiter) rollDay() {
	today := l.now().Format(dayFormat)
	if l.day != today {
		l.day = today
		l.callsToday = 0
	}
}

// CanMakeCall reports whether another generation call fits in today's quota.
// The day-boundary check runs as a side effect of being queried.
func (l *Limiter) CanMakeCall() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay()
	return l.callsToday < l.dailyLimit
}

// IncrementCallCount records one generation call. Call CanMakeCall
// immediately before; the pair is not atomic against concurrent callers, a
// small overshoot is accepted because the configured limit leaves margin
// under the true external ceiling.
func (l *Limiter) IncrementCallCount() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay()
	l.callsToday++
}

// UsageStats is a pure read (beyond the boundary check).
func (l *Limiter) UsageStats() UsageStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDay()
	remaining := l.dailyLimit - l.callsToday
	if remaining < 0 {
		remaining = 0
	}
	pct := 0.0
	if l.dailyLimit > 0 {
		pct = float64(l.callsToday) / float64(l.dailyLimit) * 100
	}
	return UsageStats{
		DailyLimit:  l.dailyLimit,
		CallsToday:  l.callsToday,
		Remaining:   remaining,
		PercentUsed: pct,
	}
}

// LimitExceededMessage is the canned reply shown instead of a generated
// answer once the quota is gone for the day.
func (l *Limiter) LimitExceededMessage() string {
	return fmt.Sprintf(
		"I've reached my daily limit of %d responses. Please try again tomorrow — your message was saved.",
		l.dailyLimit,
	)
}
