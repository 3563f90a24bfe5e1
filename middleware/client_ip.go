package middleware

import (
	"net"
	"net/http"
	"strings"

	"github.com/blogem/contact-guard/userctx"
)

// ClientIP resolves the caller's address once per request and stores it in
// the request context. Forwarding headers are only honoured behind a trusted
// proxy, otherwise any client could pick its own rate-limit bucket.
func ClientIP(trustProxyHeaders bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := userctx.SetClientIP(r.Context(), getIPAddress(r, trustProxyHeaders))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// getIPAddress extracts the client address from the request. Behind a trusted
// proxy it prefers X-Real-IP, then the rightmost X-Forwarded-For entry: the
// proxy appends the peer it saw, while entries to the left are client-supplied.
func getIPAddress(r *http.Request, trustProxyHeaders bool) string {
	if trustProxyHeaders {
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}

		if forwarded := r.Header.Values("X-Forwarded-For"); len(forwarded) > 0 {
			hops := strings.Split(forwarded[len(forwarded)-1], ",")
			if ip := strings.TrimSpace(hops[len(hops)-1]); ip != "" {
				return ip
			}
		}
	}

	// Fall back to RemoteAddr, without the port
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
