package services

import (
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/blogem/contact-guard/models"
	"github.com/blogem/contact-guard/repositories"
)

// Client-visible messages. Rejections never say which heuristic fired.
const (
	MsgAccepted        = "Message sent successfully. We will get back to you soon."
	MsgMethodNotAllow  = "Method not allowed"
	MsgBadContentType  = "Unsupported content type"
	MsgTooManyRequests = "Too many requests. Please try again later."
	MsgRejected        = "Request rejected"
	MsgInvalidToken    = "Invalid security token"
	MsgInternalError   = "Internal server error. Please try again later."
)

// Stage is a step of the submission pipeline
type Stage int

const (
	StageReceived Stage = iota
	StageMethodChecked
	StageContentTypeChecked
	StageRateOK
	StageBotChecked
	StageCSRFOK
	StageHoneypotOK
	StageFieldsValid
	StageSpamClear
	StageRelayed
	StageLogged
	StageResponded
)

var stageNames = [...]string{
	"RECEIVED",
	"METHOD_CHECKED",
	"CONTENT_TYPE_CHECKED",
	"RATE_OK",
	"BOT_CHECKED",
	"CSRF_OK",
	"HONEYPOT_OK",
	"FIELDS_VALID",
	"SPAM_CLEAR",
	"RELAYED",
	"LOGGED",
	"RESPONDED",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "UNKNOWN"
	}
	return stageNames[s]
}

// SubmissionResult is what the handler turns into an HTTP response.
// Reached is the last stage the submission passed.
type SubmissionResult struct {
	Status  int
	Message string
	Reached Stage
	ID      string
}

// Success reports whether the message was relayed
func (r *SubmissionResult) Success() bool {
	return r.Status == http.StatusOK
}

// SubmissionService runs a contact form submission through every check and
// relays it when all of them pass
type SubmissionService interface {
	Submit(ctx context.Context, sess Session, req *models.SubmissionRequest) *SubmissionResult
}

// submissionService implements SubmissionService interface
type submissionService struct {
	tokens     TokenService
	validation ValidationService
	abuse      AbuseService
	mail       MailService
	eventLog   repositories.EventLogRepository
	now        func() time.Time
	newID      func() string
}

// NewSubmissionService creates a new submission service
func NewSubmissionService(
	tokens TokenService,
	validation ValidationService,
	abuse AbuseService,
	mail MailService,
	eventLog repositories.EventLogRepository,
	now func() time.Time,
) SubmissionService {
	if now == nil {
		now = time.Now
	}
	return &submissionService{
		tokens:     tokens,
		validation: validation,
		abuse:      abuse,
		mail:       mail,
		eventLog:   eventLog,
		now:        now,
		newID:      uuid.NewString,
	}
}

// Submit walks the pipeline in order and stops at the first failing check.
// Cheap request-level checks run before any field content is looked at.
func (s *submissionService) Submit(ctx context.Context, sess Session, req *models.SubmissionRequest) *SubmissionResult {
	stage := StageReceived
	respond := func(status int, message string) *SubmissionResult {
		return &SubmissionResult{Status: status, Message: message, Reached: stage}
	}

	if req.Method != http.MethodPost {
		slog.Debug("submission with wrong method", "method", req.Method, "ip", req.IPAddress)
		return respond(http.StatusMethodNotAllowed, MsgMethodNotAllow)
	}
	stage = StageMethodChecked

	if isJSON(req.ContentType) {
		slog.Debug("submission with unsupported content type", "content_type", req.ContentType, "ip", req.IPAddress)
		return respond(http.StatusBadRequest, MsgBadContentType)
	}
	stage = StageContentTypeChecked

	verdict, err := s.abuse.CheckRate(ctx, req.IPAddress)
	switch {
	case errors.Is(err, repositories.ErrLogUnavailable):
		// Without history there is nothing to count against
		slog.Error("rate limit skipped", "ip", req.IPAddress, "error", err)
	case err != nil:
		slog.Error("rate limit check failed", "ip", req.IPAddress, "error", err)
		return respond(http.StatusInternalServerError, MsgInternalError)
	case verdict.Rejected:
		s.reject(ctx, req, models.EventRateLimitExceeded, verdict.Reason, nil)
		return respond(http.StatusTooManyRequests, MsgTooManyRequests)
	}
	stage = StageRateOK

	renderedAt, rendered := s.tokens.FormRenderedAt(sess)
	if v := s.abuse.CheckClient(req.UserAgent, renderedAt, rendered); v.Rejected {
		s.reject(ctx, req, models.EventBotDetected, v.Reason, nil)
		return respond(http.StatusForbidden, MsgRejected)
	}
	stage = StageBotChecked

	if !s.tokens.Validate(sess, req.CSRFToken) {
		s.reject(ctx, req, models.EventCSRFFailed, "token missing, expired or mismatched", map[string]any{
			"token_provided": req.CSRFToken != "",
		})
		return respond(http.StatusForbidden, MsgInvalidToken)
	}
	stage = StageCSRFOK

	if v := s.abuse.CheckHoneypot(req.Honeypot); v.Rejected {
		s.reject(ctx, req, models.EventHoneypotTriggered, v.Reason, map[string]any{
			"field": s.abuse.HoneypotField(),
		})
		return respond(http.StatusForbidden, MsgRejected)
	}
	stage = StageHoneypotOK

	form := &models.ContactForm{
		Name:    Normalize(req.Name),
		Phone:   Normalize(req.Phone),
		Email:   Normalize(req.Email),
		Subject: Normalize(req.Subject),
		Message: Normalize(req.Message),
	}
	if errs := s.validation.ValidateForm(form); errs.HasErrors() {
		s.reject(ctx, req, models.EventValidationFailed, errs.Error(), map[string]any{
			"fields": errs.Fields(),
		})
		return respond(http.StatusBadRequest, errs.Error())
	}
	stage = StageFieldsValid

	content := plainText(form.Name) + " " + plainText(form.Subject) + " " + plainText(form.Message)
	if v := s.abuse.CheckContent(content); v.Rejected {
		s.reject(ctx, req, models.EventSpamDetected, v.Reason, nil)
		return respond(http.StatusForbidden, MsgRejected)
	}
	stage = StageSpamClear

	msg := &models.ContactMessage{
		ID:          s.newID(),
		Form:        *form,
		IPAddress:   req.IPAddress,
		UserAgent:   req.UserAgent,
		SubmittedAt: s.now(),
	}
	if err := s.mail.Relay(ctx, msg); err != nil {
		slog.Error("failed to relay contact message", "submission_id", msg.ID, "ip", req.IPAddress, "error", err)
		s.record(ctx, req, models.EventError, map[string]any{
			"error":         err.Error(),
			"submission_id": msg.ID,
		})
		return respond(http.StatusInternalServerError, MsgInternalError)
	}
	stage = StageRelayed

	s.record(ctx, req, models.EventEmailSent, map[string]any{
		"submission_id": msg.ID,
		"email":         plainText(form.Email),
		"subject":       plainText(form.Subject),
	})
	stage = StageLogged

	s.tokens.Invalidate(sess)
	slog.Info("contact message relayed", "submission_id", msg.ID, "ip", req.IPAddress)

	result := respond(http.StatusOK, MsgAccepted)
	result.ID = msg.ID
	return result
}

// reject records a security rejection in the event log and at WARN level
func (s *submissionService) reject(ctx context.Context, req *models.SubmissionRequest, eventType models.EventType, reason string, extra map[string]any) {
	slog.Warn("submission rejected", "event", eventType, "ip", req.IPAddress, "reason", reason)

	data := map[string]any{"reason": reason}
	for k, v := range extra {
		data[k] = v
	}
	s.record(ctx, req, eventType, data)
}

// record appends an event; a failed append never changes the response
func (s *submissionService) record(ctx context.Context, req *models.SubmissionRequest, eventType models.EventType, data map[string]any) {
	event := models.NewLogEvent(eventType, req.IPAddress, req.UserAgent, data)
	event.Timestamp = s.now().UTC()
	err := s.eventLog.Append(ctx, event)
	switch {
	case err == nil:
	case errors.Is(err, repositories.ErrRotationFailed):
		slog.Error("event recorded but log rotation failed", "event", eventType, "error", err)
	default:
		slog.Error("failed to append event", "event", eventType, "error", err)
	}
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mediaType == "application/json"
}
