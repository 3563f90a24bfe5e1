package controllers

import (
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"gitea.com/go-chi/session"

	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/models"
	"github.com/blogem/contact-guard/repositories"
	"github.com/blogem/contact-guard/services"
	"github.com/blogem/contact-guard/userctx"
)

const (
	defaultEventLimit = 100
	maxEventLimit     = 1000
)

// AdminController serves the maintenance endpoints
type AdminController struct {
	cfg      *config.Config
	services *services.Services
	repos    *repositories.Repositories
}

// NewAdminController creates a new admin controller
func NewAdminController(cfg *config.Config, services *services.Services, repos *repositories.Repositories) *AdminController {
	return &AdminController{
		cfg:      cfg,
		services: services,
		repos:    repos,
	}
}

// ResetRateLimit handles POST /admin/rate-limit/reset
func (c *AdminController) ResetRateLimit(w http.ResponseWriter, r *http.Request) {
	backupPath, err := c.repos.EventLog.Reset(r.Context())
	if err != nil {
		slog.Error("failed to reset event log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to reset rate limit history",
		})
		return
	}

	c.services.Token.Forget(session.GetSession(r))

	slog.Info("rate limit history reset", "admin", userctx.GetAdminEmail(r.Context()), "backup", backupPath)

	body := map[string]any{"success": true}
	if backupPath == "" {
		body["message"] = "No event log to reset"
	} else {
		body["message"] = "Rate limit history cleared"
		body["backup"] = filepath.Base(backupPath)
	}
	writeJSON(w, http.StatusOK, body)
}

// Events handles GET /admin/events?limit=N
func (c *AdminController) Events(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"success": false,
				"error":   "limit must be a positive integer",
			})
			return
		}
		limit = min(n, maxEventLimit)
	}

	events, err := c.repos.EventLog.Recent(r.Context(), limit)
	if err != nil {
		slog.Error("failed to read event log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "Failed to read event log",
		})
		return
	}
	if events == nil {
		events = []models.LogEvent{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(events),
		"events":  events,
	})
}

// selfTestCase is one fixed validator sample
type selfTestCase struct {
	Field    string `json:"field"`
	Value    string `json:"value"`
	Expected bool   `json:"expected"`
	Got      bool   `json:"got"`
	Pass     bool   `json:"pass"`
}

// Diagnostics handles GET /admin/diagnostics
func (c *AdminController) Diagnostics(w http.ResponseWriter, r *http.Request) {
	window, err := c.services.Abuse.Window(r.Context(), userctx.GetClientIP(r.Context()))
	if err != nil {
		slog.Warn("rate window unavailable", "error", err)
	}

	cases := c.selfTest()
	passed := true
	for _, tc := range cases {
		passed = passed && tc.Pass
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"generated": time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"rate_max_per_hour":        c.cfg.RateLimit.MaxPerHour,
			"rate_max_per_day":         c.cfg.RateLimit.MaxPerDay,
			"token_lifetime_seconds":   int(c.cfg.Token.Lifetime.Seconds()),
			"honeypot_field":           c.cfg.Honeypot.FieldName,
			"honeypot_min_seconds":     c.cfg.Honeypot.MinElapsed.Seconds(),
			"log_file":                 c.cfg.EventLog.Path,
			"log_max_size":             c.cfg.EventLog.MaxSize,
			"log_keep_lines":           c.cfg.EventLog.KeepLines,
			"mail_to":                  c.cfg.Mail.To,
			"mail_from":                c.cfg.Mail.From,
			"smtp_host":                c.cfg.Mail.SMTPHost,
			"smtp_port":                c.cfg.Mail.SMTPPort,
			"mail_admin_copy":          c.cfg.Mail.AdminCopy,
			"trust_proxy_headers":      c.cfg.TrustProxyHeaders,
			"token_requests_per_min":   c.cfg.Token.RequestsPerMin,
			"session_lifetime_seconds": int(c.cfg.Session.Lifetime.Seconds()),
		},
		"rules": map[string]int{
			"suspicious_domains": len(c.cfg.Rules.SuspiciousDomains),
			"spam_keywords":      len(c.cfg.Rules.SpamKeywords),
			"spam_patterns":      len(c.cfg.Rules.SpamPatterns),
			"suspicious_agents":  len(c.cfg.Rules.SuspiciousAgents),
			"bot_patterns":       len(c.cfg.Rules.BotPatterns),
		},
		"your_rate_window": window,
		"self_test": map[string]any{
			"passed": passed,
			"cases":  cases,
		},
	})
}

func (c *AdminController) selfTest() []selfTestCase {
	v := c.services.Validation
	samples := []struct {
		field    string
		value    string
		expected bool
		check    func(string) bool
	}{
		{"name", "Jo", true, v.ValidName},
		{"name", "J", false, v.ValidName},
		{"name", services.Normalize("Seán O'Brien"), true, v.ValidName},
		{"name", "John123", false, v.ValidName},
		{"email", "a@b.com", true, v.ValidEmail},
		{"email", "a@mailinator.com", false, v.ValidEmail},
		{"email", "not-an-address", false, v.ValidEmail},
		{"phone", "+34 (600) 123-456", true, v.ValidPhone},
		{"phone", "call me", false, v.ValidPhone},
		{"message", "fifteen chars!!", true, v.ValidMessage},
		{"message", "fourteen chars", false, v.ValidMessage},
	}

	cases := make([]selfTestCase, 0, len(samples))
	for _, s := range samples {
		got := s.check(s.value)
		cases = append(cases, selfTestCase{
			Field:    s.field,
			Value:    s.value,
			Expected: s.expected,
			Got:      got,
			Pass:     got == s.expected,
		})
	}
	return cases
}
