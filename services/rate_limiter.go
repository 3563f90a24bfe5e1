package services

import (
	"context"
	"fmt"
	"time"

	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/models"
	"github.com/blogem/contact-guard/repositories"
)

// RateWindow is the per-IP submission count over the trailing hour and day
type RateWindow struct {
	Hourly int `json:"hourly"`
	Daily  int `json:"daily"`
}

// RateLimiter derives rate windows from the event log on every call
type RateLimiter interface {
	Window(ctx context.Context, ip string) (RateWindow, error)
	Check(ctx context.Context, ip string) (Verdict, error)
}

// rateLimiter implements RateLimiter interface
type rateLimiter struct {
	eventLog repositories.EventLogRepository
	limits   config.RateLimitConfig
	now      func() time.Time
}

// NewRateLimiter creates a rate limiter backed by the event log
func NewRateLimiter(eventLog repositories.EventLogRepository, limits config.RateLimitConfig, now func() time.Time) RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &rateLimiter{
		eventLog: eventLog,
		limits:   limits,
		now:      now,
	}
}

// Window counts rate-limited events for ip in the trailing hour and day
func (l *rateLimiter) Window(ctx context.Context, ip string) (RateWindow, error) {
	now := l.now()

	hourly, err := l.eventLog.CountEventsInWindow(ctx, ip, models.RateLimitedEvents, now.Add(-time.Hour))
	if err != nil {
		return RateWindow{}, fmt.Errorf("failed to count hourly events: %w", err)
	}
	daily, err := l.eventLog.CountEventsInWindow(ctx, ip, models.RateLimitedEvents, now.Add(-24*time.Hour))
	if err != nil {
		return RateWindow{}, fmt.Errorf("failed to count daily events: %w", err)
	}

	return RateWindow{Hourly: hourly, Daily: daily}, nil
}

// Check rejects ip once either window reaches its limit
func (l *rateLimiter) Check(ctx context.Context, ip string) (Verdict, error) {
	window, err := l.Window(ctx, ip)
	if err != nil {
		return Verdict{}, err
	}

	if window.Hourly >= l.limits.MaxPerHour {
		return reject(fmt.Sprintf("hourly limit reached: %d/%d", window.Hourly, l.limits.MaxPerHour)), nil
	}
	if window.Daily >= l.limits.MaxPerDay {
		return reject(fmt.Sprintf("daily limit reached: %d/%d", window.Daily, l.limits.MaxPerDay)), nil
	}

	return accept(), nil
}
