package middleware

import (
	"net/http"
	"strings"

	"gitea.com/go-chi/session"

	"github.com/blogem/contact-guard/userctx"
)

// Session keys shared with the admin login flow
const (
	SessionKeyAdminEmail         = "admin_email"
	SessionKeyRedirectAfterLogin = "redirect_after_login"
)

// RequireAdmin ensures an allowed administrator is signed in.
// Anonymous GETs are sent to /admin/login and return to the requested path;
// anything else gets a plain 401.
func RequireAdmin(allowed []string) func(http.Handler) http.Handler {
	allow := make(map[string]bool, len(allowed))
	for _, e := range allowed {
		allow[strings.ToLower(strings.TrimSpace(e))] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.GetSession(r)
			email, _ := sess.Get(SessionKeyAdminEmail).(string)

			if email == "" {
				if r.Method == http.MethodGet {
					// Store the intended destination for redirect after login
					sess.Set(SessionKeyRedirectAfterLogin, r.URL.RequestURI())
					http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
					return
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			if !allow[strings.ToLower(email)] {
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}

			// Add admin email to request context for use in handlers
			ctx := userctx.SetAdminEmail(r.Context(), email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
