package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("MAIL_TO", "inbox@company.org")
	t.Setenv("MAIL_FROM", "no-reply@company.org")
	t.Setenv("SMTP_HOST", "smtp.company.org")
}

func TestDefaultMatchesReferenceValues(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.RateLimit.MaxPerHour)
	assert.Equal(t, 8, cfg.RateLimit.MaxPerDay)
	assert.Equal(t, 1800*time.Second, cfg.Token.Lifetime)
	assert.Equal(t, time.Second, cfg.Honeypot.MinElapsed)
	assert.Equal(t, "website_url", cfg.Honeypot.FieldName)
	assert.Equal(t, 1000, cfg.EventLog.KeepLines)
	assert.Contains(t, cfg.Rules.SuspiciousDomains, "mailinator.com")
	assert.Contains(t, cfg.Rules.SpamKeywords, "viagra")
}

func TestLoad_EnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_MAX_PER_HOUR", "5")
	t.Setenv("RATE_MAX_PER_DAY", "20")
	t.Setenv("CSRF_TOKEN_LIFETIME", "600")
	t.Setenv("HONEYPOT_FIELD", "company_site")
	t.Setenv("MESSAGE_MAX", "3000")
	t.Setenv("MAIL_ADMIN_COPY", "true")
	t.Setenv("ADMIN_EMAILS", "ops@company.org, owner@company.org")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.RateLimit.MaxPerHour)
	assert.Equal(t, 20, cfg.RateLimit.MaxPerDay)
	assert.Equal(t, 10*time.Minute, cfg.Token.Lifetime)
	assert.Equal(t, "company_site", cfg.Honeypot.FieldName)
	assert.Equal(t, 3000, cfg.Fields.MessageMax)
	assert.True(t, cfg.Mail.AdminCopy)
	assert.Equal(t, []string{"ops@company.org", "owner@company.org"}, cfg.Admin.AllowedEmails)
}

func TestLoad_RejectsMalformedNumbers(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RATE_MAX_PER_HOUR", "three")

	_, err := Load()
	assert.ErrorContains(t, err, "RATE_MAX_PER_HOUR")
}

func TestLoad_RequiresMailSettings(t *testing.T) {
	t.Setenv("MAIL_TO", "")
	t.Setenv("MAIL_FROM", "no-reply@company.org")
	t.Setenv("SMTP_HOST", "smtp.company.org")

	_, err := Load()
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestValidate_BoundOrdering(t *testing.T) {
	cfg := Default()
	cfg.Mail.To = "inbox@company.org"
	cfg.Mail.From = "no-reply@company.org"
	cfg.Mail.SMTPHost = "smtp.company.org"
	require.NoError(t, cfg.Validate())

	cfg.Fields.MessageMax = 10
	assert.Error(t, cfg.Validate())
}

func TestLoadRules_ReplacesOnlyPresentLists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	content := "spam_keywords:\n  - widget\n  - gadget\nsuspicious_domains:\n  - spam.test\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := Default()
	agents := cfg.Rules.SuspiciousAgents

	require.NoError(t, cfg.LoadRules(path))
	assert.Equal(t, []string{"widget", "gadget"}, cfg.Rules.SpamKeywords)
	assert.Equal(t, []string{"spam.test"}, cfg.Rules.SuspiciousDomains)
	assert.Equal(t, agents, cfg.Rules.SuspiciousAgents)
}

func TestLoadRules_MissingFile(t *testing.T) {
	cfg := Default()
	err := cfg.LoadRules(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read rules file")
}

func TestAdminEnabled(t *testing.T) {
	admin := AdminConfig{}
	assert.False(t, admin.Enabled())

	admin = AdminConfig{
		OIDCDomain:       "login.company.org",
		OIDCClientID:     "client",
		OIDCClientSecret: "secret",
		OIDCCallbackURL:  "https://company.org/admin/callback",
		AllowedEmails:    []string{"ops@company.org"},
	}
	assert.True(t, admin.Enabled())
}
