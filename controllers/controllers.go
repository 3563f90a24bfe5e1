package controllers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/blogem/contact-guard/authenticator"
	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/repositories"
	"github.com/blogem/contact-guard/services"
)

// writeJSON writes body as JSON with the given status code
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Controllers holds all controller instances
type Controllers struct {
	Auth    *AuthController
	Contact *ContactController
	Admin   *AdminController
}

// NewControllers creates and initializes all controller instances
// Auth and Admin stay nil without an identity provider.
func NewControllers(cfg *config.Config, services *services.Services, repos *repositories.Repositories, auth authenticator.Provider) *Controllers {
	ctrl := &Controllers{
		Contact: NewContactController(services),
	}
	if auth != nil {
		ctrl.Auth = NewAuthController(auth, cfg.Admin.AllowedEmails)
		ctrl.Admin = NewAdminController(cfg, services, repos)
	}
	return ctrl
}
