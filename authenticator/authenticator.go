// Package authenticator signs administrators in through an OpenID Connect
// identity provider.
package authenticator

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNonceMismatch means the ID token was not issued for this login attempt
	ErrNonceMismatch = errors.New("id token nonce mismatch")
	// ErrNoIDToken means the provider answered without an ID token
	ErrNoIDToken = errors.New("provider returned no id_token")
)

// Claims are the verified claims of an ID token
type Claims map[string]interface{}

// Email returns the verified email claim, or "" when the provider did not
// assert one
func (c Claims) Email() string {
	email, _ := c["email"].(string)
	if verified, ok := c["email_verified"].(bool); ok && !verified {
		return ""
	}
	return strings.TrimSpace(email)
}

// Identity is a signed-in administrator
type Identity struct {
	Subject string
	Email   string
	Claims  Claims
}

// Provider runs the authorization code flow
type Provider interface {
	// AuthURL is where the browser goes to sign in; state and nonce come back
	// with the callback and inside the ID token respectively
	AuthURL(state, nonce string) string
	// Authenticate redeems the code and verifies the resulting ID token
	Authenticate(ctx context.Context, code, nonce string) (*Identity, error)
}

func identityFrom(claims Claims) *Identity {
	sub, _ := claims["sub"].(string)
	return &Identity{
		Subject: sub,
		Email:   claims.Email(),
		Claims:  claims,
	}
}
