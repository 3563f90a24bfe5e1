package services

import (
	"context"
	"time"

	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/repositories"
)

// Verdict is the outcome of one abuse check. Reason is for operators only and
// never shown to the client.
type Verdict struct {
	Rejected bool
	Reason   string
}

func accept() Verdict {
	return Verdict{}
}

func reject(reason string) Verdict {
	return Verdict{Rejected: true, Reason: reason}
}

// AbuseService composes the rate limiter, bot detector, honeypot and spam
// detector. Each check is independent so the orchestrator can order them.
type AbuseService interface {
	CheckRate(ctx context.Context, ip string) (Verdict, error)
	Window(ctx context.Context, ip string) (RateWindow, error)
	CheckClient(userAgent string, formRenderedAt time.Time, rendered bool) Verdict
	CheckHoneypot(value string) Verdict
	CheckContent(text string) Verdict
	HoneypotField() string
}

// abuseService implements AbuseService interface
type abuseService struct {
	rateLimiter   RateLimiter
	botDetector   BotDetector
	spamDetector  SpamDetector
	honeypotField string
}

// NewAbuseService creates the abuse gate from configuration
func NewAbuseService(cfg *config.Config, eventLog repositories.EventLogRepository, now func() time.Time) (AbuseService, error) {
	bots, err := NewBotDetector(cfg.Rules.SuspiciousAgents, cfg.Rules.BotPatterns, cfg.Honeypot.MinElapsed, now)
	if err != nil {
		return nil, err
	}
	spam, err := NewSpamDetector(cfg.Rules.SpamKeywords, cfg.Rules.SpamPatterns)
	if err != nil {
		return nil, err
	}

	return &abuseService{
		rateLimiter:   NewRateLimiter(eventLog, cfg.RateLimit, now),
		botDetector:   bots,
		spamDetector:  spam,
		honeypotField: cfg.Honeypot.FieldName,
	}, nil
}

// CheckRate applies the hourly and daily submission limits
func (s *abuseService) CheckRate(ctx context.Context, ip string) (Verdict, error) {
	return s.rateLimiter.Check(ctx, ip)
}

// Window reports the current rate windows for ip
func (s *abuseService) Window(ctx context.Context, ip string) (RateWindow, error) {
	return s.rateLimiter.Window(ctx, ip)
}

// CheckClient applies the user-agent and timing heuristics
func (s *abuseService) CheckClient(userAgent string, formRenderedAt time.Time, rendered bool) Verdict {
	return s.botDetector.Inspect(userAgent, formRenderedAt, rendered)
}

// CheckHoneypot rejects any value in the hidden trap field
func (s *abuseService) CheckHoneypot(value string) Verdict {
	if value != "" {
		return reject("honeypot field " + s.honeypotField + " filled")
	}
	return accept()
}

// CheckContent scans already validated text for spam
func (s *abuseService) CheckContent(text string) Verdict {
	return s.spamDetector.Inspect(text)
}

// HoneypotField is the form field name of the trap
func (s *abuseService) HoneypotField() string {
	return s.honeypotField
}
