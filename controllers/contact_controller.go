package controllers

import (
	"log/slog"
	"mime"
	"net/http"

	"gitea.com/go-chi/session"

	"github.com/blogem/contact-guard/models"
	"github.com/blogem/contact-guard/services"
	"github.com/blogem/contact-guard/userctx"
)

// maxFormBytes bounds a submission body
const maxFormBytes = 1 << 20

// ContactController serves the token and submission endpoints
type ContactController struct {
	services *services.Services
}

// NewContactController creates a new contact controller
func NewContactController(services *services.Services) *ContactController {
	return &ContactController{
		services: services,
	}
}

// Token handles GET /api/csrf-token
func (c *ContactController) Token(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeJSON(w, http.StatusMethodNotAllowed, models.TokenResponse{Error: services.MsgMethodNotAllow})
		return
	}

	token, err := c.services.Token.Issue(session.GetSession(r))
	if err != nil {
		slog.Error("failed to issue token", "ip", userctx.GetClientIP(r.Context()), "error", err)
		writeJSON(w, http.StatusInternalServerError, models.TokenResponse{Error: "Failed to generate security token"})
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{Success: true, CSRFToken: token})
}

// Submit handles POST /api/contact
func (c *ContactController) Submit(w http.ResponseWriter, r *http.Request) {
	req := &models.SubmissionRequest{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
		IPAddress:   userctx.GetClientIP(r.Context()),
		UserAgent:   r.UserAgent(),
	}

	if r.Method == http.MethodPost {
		if err := parseForm(w, r); err != nil {
			slog.Debug("unreadable form body", "ip", req.IPAddress, "error", err)
			writeJSON(w, http.StatusBadRequest, models.SubmissionResponse{Message: "Invalid form data"})
			return
		}
		req.Name = r.PostFormValue("name")
		req.Phone = r.PostFormValue("phone")
		req.Email = r.PostFormValue("email")
		req.Subject = r.PostFormValue("subject")
		req.Message = r.PostFormValue("message")
		req.CSRFToken = r.PostFormValue("csrf_token")
		req.Honeypot = r.PostFormValue(c.services.Abuse.HoneypotField())
	}

	result := c.services.Submission.Submit(r.Context(), session.GetSession(r), req)
	if result.Status == http.StatusMethodNotAllowed {
		w.Header().Set("Allow", http.MethodPost)
	}

	writeJSON(w, result.Status, models.SubmissionResponse{
		Success: result.Success(),
		Message: result.Message,
	})
}

// parseForm reads urlencoded or multipart bodies. JSON bodies are left alone
// so the submission pipeline can refuse them.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		return nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if mediaType == "multipart/form-data" {
		return r.ParseMultipartForm(maxFormBytes)
	}
	return r.ParseForm()
}
