package services

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"

	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/models"
)

var (
	nameRegex  = regexp.MustCompile(`^[\p{L}\s'\-]+$`)
	phoneRegex = regexp.MustCompile(`^[\d\s+\-()]+$`)
)

// ValidationService checks the normalized fields of a contact form
type ValidationService interface {
	ValidateForm(form *models.ContactForm) models.ValidationErrors
	ValidName(name string) bool
	ValidEmail(email string) bool
	ValidPhone(phone string) bool
	ValidSubject(subject string) bool
	ValidMessage(message string) bool
}

// validationService implements ValidationService interface
type validationService struct {
	fields            config.FieldConfig
	suspiciousDomains map[string]bool
	validate          *validator.Validate
}

// NewValidationService creates a validator for the given bounds and domain list
func NewValidationService(fields config.FieldConfig, suspiciousDomains []string) ValidationService {
	domains := make(map[string]bool, len(suspiciousDomains))
	for _, d := range suspiciousDomains {
		domains[strings.ToLower(strings.TrimSpace(d))] = true
	}
	return &validationService{
		fields:            fields,
		suspiciousDomains: domains,
		validate:          validator.New(),
	}
}

// ValidateForm checks every field and collects all failures
func (s *validationService) ValidateForm(form *models.ContactForm) models.ValidationErrors {
	var errors models.ValidationErrors

	if !s.ValidName(form.Name) {
		errors = append(errors, models.ValidationError{
			Field:   "name",
			Message: fmt.Sprintf("Invalid name - must be between %d and %d characters and contain only letters", s.fields.NameMin, s.fields.NameMax),
		})
	}

	if !s.ValidEmail(form.Email) {
		errors = append(errors, models.ValidationError{
			Field:   "email",
			Message: "Invalid email - please check the address",
		})
	}

	if !s.ValidPhone(form.Phone) {
		errors = append(errors, models.ValidationError{
			Field:   "phone",
			Message: "Invalid phone - only digits, spaces, +, -, ( and ) are allowed",
		})
	}

	if !s.ValidSubject(form.Subject) {
		errors = append(errors, models.ValidationError{
			Field:   "subject",
			Message: fmt.Sprintf("Invalid subject - must be between %d and %d characters", s.fields.SubjectMin, s.fields.SubjectMax),
		})
	}

	if !s.ValidMessage(form.Message) {
		errors = append(errors, models.ValidationError{
			Field:   "message",
			Message: fmt.Sprintf("Invalid message - must be between %d and %d characters", s.fields.MessageMin, s.fields.MessageMax),
		})
	}

	return errors
}

// ValidName accepts letters, whitespace, apostrophes and hyphens
func (s *validationService) ValidName(name string) bool {
	name = plainText(name)
	if !withinLength(name, s.fields.NameMin, s.fields.NameMax) {
		return false
	}
	return nameRegex.MatchString(name)
}

// ValidEmail checks syntax, length and the suspicious-domain list
func (s *validationService) ValidEmail(email string) bool {
	email = plainText(email)
	if email == "" || len(email) > s.fields.EmailMax {
		return false
	}
	if err := s.validate.Var(email, "email"); err != nil {
		return false
	}

	at := strings.LastIndex(email, "@")
	domain := strings.ToLower(email[at+1:])
	if domain == "" || !strings.Contains(domain, ".") {
		return false
	}

	return !s.suspiciousDomains[domain]
}

// ValidPhone accepts an empty value; otherwise digits, spaces, + - ( )
func (s *validationService) ValidPhone(phone string) bool {
	phone = plainText(phone)
	if phone == "" {
		return true
	}
	return phoneRegex.MatchString(phone)
}

// ValidSubject checks the subject length bounds
func (s *validationService) ValidSubject(subject string) bool {
	return withinLength(plainText(subject), s.fields.SubjectMin, s.fields.SubjectMax)
}

// ValidMessage checks the message length bounds
func (s *validationService) ValidMessage(message string) bool {
	return withinLength(plainText(message), s.fields.MessageMin, s.fields.MessageMax)
}

func withinLength(value string, minLen, maxLen int) bool {
	n := utf8.RuneCountInString(value)
	return n >= minLen && n <= maxLen
}
