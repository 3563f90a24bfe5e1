package userctx

import "context"

// Context key type
type contextKey string

const clientIPKey contextKey = "client_ip"
const adminEmailKey contextKey = "admin_email"

// SetClientIP adds the resolved client address to request context
func SetClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// GetClientIP retrieves the client address from request context
func GetClientIP(ctx context.Context) string {
	ip, ok := ctx.Value(clientIPKey).(string)
	if !ok || ip == "" {
		return "unknown"
	}
	return ip
}

// SetAdminEmail adds the signed-in administrator to request context
func SetAdminEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, adminEmailKey, email)
}

// GetAdminEmail retrieves the administrator email from request context
func GetAdminEmail(ctx context.Context) string {
	if email := ctx.Value(adminEmailKey); email != nil {
		if s, ok := email.(string); ok {
			return s
		}
	}
	return ""
}
