package services

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/models"
)

// ErrRelayFailed wraps any failure of the primary mail transport
var ErrRelayFailed = errors.New("mail relay failed")

// Mailer delivers a composed message
type Mailer interface {
	Send(msg *email.Email) error
}

// smtpMailer implements Mailer over SMTP
type smtpMailer struct {
	addr string
	host string
	auth smtp.Auth
	tls  bool
}

// NewSMTPMailer creates a Mailer for the configured SMTP server. Plain auth is
// used only when a user is configured.
func NewSMTPMailer(cfg config.MailConfig) Mailer {
	m := &smtpMailer{
		addr: net.JoinHostPort(cfg.SMTPHost, strconv.Itoa(cfg.SMTPPort)),
		host: cfg.SMTPHost,
		tls:  cfg.SMTPTLS,
	}
	if cfg.SMTPUser != "" {
		m.auth = smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPHost)
	}
	return m
}

// Send delivers msg, over implicit TLS when configured
func (m *smtpMailer) Send(msg *email.Email) error {
	if m.tls {
		return msg.SendWithTLS(m.addr, m.auth, &tls.Config{ServerName: m.host})
	}
	return msg.Send(m.addr, m.auth)
}

// MailService composes contact messages and hands them to the Mailer
type MailService interface {
	Relay(ctx context.Context, msg *models.ContactMessage) error
}

// mailService implements MailService interface
type mailService struct {
	mailer Mailer
	cfg    config.MailConfig
}

// NewMailService creates a new mail service
func NewMailService(mailer Mailer, cfg config.MailConfig) MailService {
	return &mailService{
		mailer: mailer,
		cfg:    cfg,
	}
}

// Relay sends msg to the destination address. An optional admin copy is sent
// afterwards; its failure is only logged.
func (s *mailService) Relay(ctx context.Context, msg *models.ContactMessage) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}

	e := s.compose(msg, s.cfg.To, "")
	if err := s.mailer.Send(e); err != nil {
		return fmt.Errorf("%w: %v", ErrRelayFailed, err)
	}

	if s.cfg.AdminCopy && s.cfg.AdminAddress != "" && !strings.EqualFold(s.cfg.AdminAddress, s.cfg.To) {
		copyMsg := s.compose(msg, s.cfg.AdminAddress, "[COPY] ")
		if err := s.mailer.Send(copyMsg); err != nil {
			slog.Warn("admin copy not sent", "submission_id", msg.ID, "error", err)
		}
	}

	return nil
}

func (s *mailService) compose(msg *models.ContactMessage, to, tag string) *email.Email {
	form := msg.Form

	e := email.NewEmail()
	e.From = fmt.Sprintf("%s <%s>", headerSafe(s.cfg.FromName), s.cfg.From)
	e.To = []string{to}
	e.ReplyTo = []string{fmt.Sprintf("%s <%s>", headerSafe(plainText(form.Name)), headerSafe(plainText(form.Email)))}
	e.Subject = tag + s.cfg.SubjectPrefix + headerSafe(plainText(form.Subject))
	e.Headers.Set("X-Mailer", "Contact Guard")
	e.Headers.Set("X-Submission-Id", msg.ID)

	phone := form.Phone
	if phone == "" {
		phone = "-"
	}
	userAgent := msg.UserAgent
	if userAgent == "" {
		userAgent = "unavailable"
	}

	var b strings.Builder
	b.WriteString("New enquiry from the website contact form\n\n")
	fmt.Fprintf(&b, "Name: %s\n", form.Name)
	fmt.Fprintf(&b, "Email: %s\n", form.Email)
	fmt.Fprintf(&b, "Phone: %s\n", phone)
	fmt.Fprintf(&b, "Subject: %s\n\n", form.Subject)
	fmt.Fprintf(&b, "Message:\n%s\n\n", form.Message)
	b.WriteString("---\n")
	fmt.Fprintf(&b, "IP: %s\n", msg.IPAddress)
	fmt.Fprintf(&b, "Date: %s\n", msg.SubmittedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "User Agent: %s\n", userAgent)
	fmt.Fprintf(&b, "Reference: %s\n", msg.ID)
	e.Text = []byte(b.String())

	return e
}

// headerSafe strips line breaks so a value cannot inject extra headers
func headerSafe(v string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(v)
}
