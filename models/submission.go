package models

import "time"

// SubmissionRequest is one contact form POST together with its request metadata.
// It is never persisted; only derived log events survive it.
type SubmissionRequest struct {
	Name      string
	Phone     string
	Email     string
	Subject   string
	Message   string
	CSRFToken string
	Honeypot  string

	Method      string
	ContentType string
	IPAddress   string
	UserAgent   string
}

// ContactForm holds the normalized (HTML-escaped) fields of a submission
type ContactForm struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// ContactMessage is an accepted submission ready to be relayed
type ContactMessage struct {
	ID          string
	Form        ContactForm
	IPAddress   string
	UserAgent   string
	SubmittedAt time.Time
}

// SubmissionResponse is the JSON body returned by the submission endpoint
type SubmissionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TokenResponse is the JSON body returned by the token endpoint
type TokenResponse struct {
	Success   bool   `json:"success"`
	CSRFToken string `json:"csrf_token,omitempty"`
	Error     string `json:"error,omitempty"`
}
