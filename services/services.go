package services

import (
	"fmt"
	"time"

	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/repositories"
)

// Services holds all service instances
type Services struct {
	Token      TokenService
	Validation ValidationService
	Abuse      AbuseService
	Mail       MailService
	Submission SubmissionService
}

// NewServices creates and initializes all service instances
func NewServices(cfg *config.Config, repos *repositories.Repositories, mailer Mailer) (*Services, error) {
	now := time.Now

	abuse, err := NewAbuseService(cfg, repos.EventLog, now)
	if err != nil {
		return nil, fmt.Errorf("failed to build abuse gate: %w", err)
	}

	token := NewTokenService(cfg.Token.Lifetime, now)
	validation := NewValidationService(cfg.Fields, cfg.Rules.SuspiciousDomains)
	mail := NewMailService(mailer, cfg.Mail)

	return &Services{
		Token:      token,
		Validation: validation,
		Abuse:      abuse,
		Mail:       mail,
		Submission: NewSubmissionService(token, validation, abuse, mail, repos.EventLog, now),
	}, nil
}
