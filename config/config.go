package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the contact service
type Config struct {
	Port              string
	TrustProxyHeaders bool

	Mail      MailConfig
	RateLimit RateLimitConfig
	Token     TokenConfig
	Honeypot  HoneypotConfig
	Fields    FieldConfig
	EventLog  EventLogConfig
	Session   SessionConfig
	Admin     AdminConfig
	Rules     Rules
}

// MailConfig describes where accepted messages are relayed
type MailConfig struct {
	To            string `validate:"required,email"`
	From          string `validate:"required,email"`
	FromName      string
	SubjectPrefix string
	AdminCopy     bool
	AdminAddress  string `validate:"omitempty,email"`
	SMTPHost      string `validate:"required"`
	SMTPPort      int    `validate:"gt=0,lte=65535"`
	SMTPUser      string
	SMTPPass      string
	SMTPTLS       bool
}

// RateLimitConfig bounds accepted-or-failed submissions per IP
type RateLimitConfig struct {
	MaxPerHour int `validate:"gt=0"`
	MaxPerDay  int `validate:"gt=0,gtefield=MaxPerHour"`
}

// TokenConfig controls the anti-forgery token and its endpoint throttle
type TokenConfig struct {
	Lifetime       time.Duration `validate:"gt=0"`
	RequestsPerMin int           `validate:"gt=0"`
	RequestsBurst  int           `validate:"gt=0"`
}

// HoneypotConfig names the hidden trap field and the minimum fill time
type HoneypotConfig struct {
	FieldName  string `validate:"required"`
	MinElapsed time.Duration
}

// FieldConfig carries length bounds, measured in characters
type FieldConfig struct {
	NameMin    int `validate:"gt=0"`
	NameMax    int `validate:"gtefield=NameMin"`
	SubjectMin int `validate:"gt=0"`
	SubjectMax int `validate:"gtefield=SubjectMin"`
	MessageMin int `validate:"gt=0"`
	MessageMax int `validate:"gtefield=MessageMin"`
	EmailMax   int `validate:"gt=0"`
}

// EventLogConfig locates the security event log and its rotation bounds
type EventLogConfig struct {
	Path      string `validate:"required"`
	MaxSize   int64  `validate:"gt=0"`
	KeepLines int    `validate:"gt=0"`
}

// SessionConfig configures the session cookie
type SessionConfig struct {
	CookieName string        `validate:"required"`
	Lifetime   time.Duration `validate:"gt=0"`
	Secure     bool
}

// AdminConfig enables the maintenance endpoints behind OpenID Connect login
type AdminConfig struct {
	OIDCDomain       string
	OIDCClientID     string
	OIDCClientSecret string
	OIDCCallbackURL  string
	AllowedEmails    []string
}

// Enabled reports whether admin single sign-on is fully configured
func (a AdminConfig) Enabled() bool {
	return a.OIDCDomain != "" && a.OIDCClientID != "" && a.OIDCClientSecret != "" &&
		a.OIDCCallbackURL != "" && len(a.AllowedEmails) > 0
}

// Rules are the heuristic lists used by validation and the abuse gate
type Rules struct {
	SuspiciousDomains []string `yaml:"suspicious_domains"`
	SpamKeywords      []string `yaml:"spam_keywords"`
	SpamPatterns      []string `yaml:"spam_patterns"`
	SuspiciousAgents  []string `yaml:"suspicious_agents"`
	BotPatterns       []string `yaml:"bot_patterns"`
}

// Default returns the reference configuration
func Default() *Config {
	return &Config{
		Port: "8080",
		Mail: MailConfig{
			FromName:      "Contact Form",
			SubjectPrefix: "Website enquiry: ",
			SMTPPort:      587,
		},
		RateLimit: RateLimitConfig{
			MaxPerHour: 3,
			MaxPerDay:  8,
		},
		Token: TokenConfig{
			Lifetime:       1800 * time.Second,
			RequestsPerMin: 20,
			RequestsBurst:  5,
		},
		Honeypot: HoneypotConfig{
			FieldName:  "website_url",
			MinElapsed: time.Second,
		},
		Fields: FieldConfig{
			NameMin:    2,
			NameMax:    80,
			SubjectMin: 3,
			SubjectMax: 150,
			MessageMin: 15,
			MessageMax: 1500,
			EmailMax:   254,
		},
		EventLog: EventLogConfig{
			Path:      "logs/contact.log",
			MaxSize:   5 * 1024 * 1024,
			KeepLines: 1000,
		},
		Session: SessionConfig{
			CookieName: "contact_session",
			Lifetime:   time.Hour,
		},
		Rules: DefaultRules(),
	}
}

// Load reads .env (if present), applies environment overrides and the optional
// rules file, then validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if path := os.Getenv("CONTACT_RULES_FILE"); path != "" {
		if err := cfg.LoadRules(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var validate = validator.New()

// Validate checks required values and bound ordering
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadRules replaces every list present in the YAML file at path
func (c *Config) LoadRules(path string) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file %s: %w", path, err)
	}

	var rules Rules
	if err := yaml.Unmarshal(b, &rules); err != nil {
		return fmt.Errorf("failed to parse rules file %s: %w", path, err)
	}

	if rules.SuspiciousDomains != nil {
		c.Rules.SuspiciousDomains = rules.SuspiciousDomains
	}
	if rules.SpamKeywords != nil {
		c.Rules.SpamKeywords = rules.SpamKeywords
	}
	if rules.SpamPatterns != nil {
		c.Rules.SpamPatterns = rules.SpamPatterns
	}
	if rules.SuspiciousAgents != nil {
		c.Rules.SuspiciousAgents = rules.SuspiciousAgents
	}
	if rules.BotPatterns != nil {
		c.Rules.BotPatterns = rules.BotPatterns
	}

	slog.Info("rules file loaded", "path", path,
		"domains", len(c.Rules.SuspiciousDomains),
		"keywords", len(c.Rules.SpamKeywords),
		"patterns", len(c.Rules.SpamPatterns))
	return nil
}

func (c *Config) applyEnv() error {
	var errs []error

	envString(&c.Port, "PORT")
	errs = append(errs, envBool(&c.TrustProxyHeaders, "TRUST_PROXY_HEADERS"))

	envString(&c.Mail.To, "MAIL_TO")
	envString(&c.Mail.From, "MAIL_FROM")
	envString(&c.Mail.FromName, "MAIL_FROM_NAME")
	envString(&c.Mail.SubjectPrefix, "MAIL_SUBJECT_PREFIX")
	errs = append(errs, envBool(&c.Mail.AdminCopy, "MAIL_ADMIN_COPY"))
	envString(&c.Mail.AdminAddress, "MAIL_ADMIN_ADDRESS")
	envString(&c.Mail.SMTPHost, "SMTP_HOST")
	errs = append(errs, envInt(&c.Mail.SMTPPort, "SMTP_PORT"))
	envString(&c.Mail.SMTPUser, "SMTP_USER")
	envString(&c.Mail.SMTPPass, "SMTP_PASS")
	errs = append(errs, envBool(&c.Mail.SMTPTLS, "SMTP_TLS"))

	errs = append(errs,
		envInt(&c.RateLimit.MaxPerHour, "RATE_MAX_PER_HOUR"),
		envInt(&c.RateLimit.MaxPerDay, "RATE_MAX_PER_DAY"),
		envSeconds(&c.Token.Lifetime, "CSRF_TOKEN_LIFETIME"),
		envInt(&c.Token.RequestsPerMin, "TOKEN_RATE_PER_MINUTE"),
		envInt(&c.Token.RequestsBurst, "TOKEN_RATE_BURST"),
		envSeconds(&c.Honeypot.MinElapsed, "HONEYPOT_MIN_SECONDS"),
		envInt(&c.Fields.NameMin, "NAME_MIN"),
		envInt(&c.Fields.NameMax, "NAME_MAX"),
		envInt(&c.Fields.SubjectMin, "SUBJECT_MIN"),
		envInt(&c.Fields.SubjectMax, "SUBJECT_MAX"),
		envInt(&c.Fields.MessageMin, "MESSAGE_MIN"),
		envInt(&c.Fields.MessageMax, "MESSAGE_MAX"),
		envInt(&c.Fields.EmailMax, "EMAIL_MAX"),
		envInt64(&c.EventLog.MaxSize, "LOG_MAX_SIZE"),
		envInt(&c.EventLog.KeepLines, "LOG_KEEP_LINES"),
		envSeconds(&c.Session.Lifetime, "SESSION_LIFETIME"),
		envBool(&c.Session.Secure, "USE_HTTPS"),
	)
	envString(&c.Honeypot.FieldName, "HONEYPOT_FIELD")
	envString(&c.EventLog.Path, "LOG_FILE")
	envString(&c.Session.CookieName, "SESSION_COOKIE")

	envString(&c.Admin.OIDCDomain, "OIDC_DOMAIN")
	envString(&c.Admin.OIDCClientID, "OIDC_CLIENT_ID")
	envString(&c.Admin.OIDCClientSecret, "OIDC_CLIENT_SECRET")
	envString(&c.Admin.OIDCCallbackURL, "OIDC_CALLBACK_URL")
	if v := os.Getenv("ADMIN_EMAILS"); v != "" {
		c.Admin.AllowedEmails = splitList(v)
	}

	return errors.Join(errs...)
}

func envString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func envInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func envInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be a boolean: %w", key, err)
	}
	*dst = b
	return nil
}

// envSeconds reads a whole number of seconds
func envSeconds(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%s must be a number of seconds: %w", key, err)
	}
	*dst = time.Duration(n) * time.Second
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
