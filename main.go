package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitea.com/go-chi/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blogem/contact-guard/authenticator"
	"github.com/blogem/contact-guard/config"
	"github.com/blogem/contact-guard/controllers"
	"github.com/blogem/contact-guard/logging"
	guard "github.com/blogem/contact-guard/middleware"
	"github.com/blogem/contact-guard/repositories"
	"github.com/blogem/contact-guard/services"
)

// Paths served by the previous deployment; the existing front-end still posts there
const (
	legacyTokenPath  = "/assets/php/get-csrf-token.php"
	legacySubmitPath = "/assets/php/mail.php"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("failed to load configuration", "error", err)
	}

	// Initialize repositories
	repos := repositories.NewRepositories(cfg.EventLog)
	if err := repos.EventLog.RotateIfNeeded(context.Background()); err != nil {
		slog.Warn("event log rotation failed", "path", cfg.EventLog.Path, "error", err)
	}

	// Initialize services
	srvs, err := services.NewServices(cfg, repos, services.NewSMTPMailer(cfg.Mail))
	if err != nil {
		logging.Fatal("failed to initialize services", "error", err)
	}

	// Admin single sign-on is optional
	var auth authenticator.Provider
	if cfg.Admin.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		auth, err = authenticator.NewOpenIDProvider(ctx, cfg.Admin)
		cancel()
		if err != nil {
			logging.Fatal("failed to initialize OpenID provider", "error", err)
		}
	} else {
		slog.Info("admin endpoints disabled, OpenID Connect is not configured")
	}

	// Initialize controllers
	ctrl := controllers.NewControllers(cfg, srvs, repos, auth)

	r, err := setupRouter(cfg, ctrl)
	if err != nil {
		logging.Fatal("failed to setup router", "error", err)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	go func() {
		slog.Info("contact guard listening", "addr", server.Addr, "event_log", cfg.EventLog.Path)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// setupRouter configures all routes. Admin routes are only mounted with an identity provider.
func setupRouter(cfg *config.Config, ctrl *controllers.Controllers) (*chi.Mux, error) {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(slog.Default().Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))
	r.Use(guard.ClientIP(cfg.TrustProxyHeaders))
	r.Use(guard.SecurityHeaders(cfg.Session.Secure))

	// Session middleware
	sessionHandler, err := session.Sessioner(session.Options{
		Provider:       "memory",
		ProviderConfig: "",
		CookieName:     cfg.Session.CookieName,
		Secure:         cfg.Session.Secure,
		SameSite:       http.SameSiteStrictMode,
		Gclifetime:     int64(cfg.Session.Lifetime.Seconds()),
		Maxlifetime:    int64(cfg.Session.Lifetime.Seconds()),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize session: %w", err)
	}
	r.Use(sessionHandler)

	// Every method reaches the handlers so wrong methods get a JSON 405
	throttle := guard.NewIPThrottle(cfg.Token.RequestsPerMin, cfg.Token.RequestsBurst)
	for _, path := range []string{"/api/csrf-token", legacyTokenPath} {
		r.With(throttle.Handler).HandleFunc(path, ctrl.Contact.Token)
	}
	for _, path := range []string{"/api/contact", legacySubmitPath} {
		r.HandleFunc(path, ctrl.Contact.Submit)
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status": "healthy", "service": "contact-guard"}`)
	})

	if ctrl.Auth == nil {
		return r, nil
	}

	r.Route("/admin", func(r chi.Router) {
		r.Get("/login", ctrl.Auth.Login)
		r.Get("/callback", ctrl.Auth.Callback)
		r.Get("/logout", ctrl.Auth.Logout)

		// PROTECTED ROUTES (administrator required)
		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAdmin(cfg.Admin.AllowedEmails))

			r.Post("/rate-limit/reset", ctrl.Admin.ResetRateLimit)
			r.Get("/events", ctrl.Admin.Events)
			r.Get("/diagnostics", ctrl.Admin.Diagnostics)
		})
	})

	return r, nil
}
