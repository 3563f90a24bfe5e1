package authenticator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/blogem/contact-guard/config"
)

// OpenIDProvider signs administrators in against a discovered OIDC issuer
type OpenIDProvider struct {
	oauth    oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// NewOpenIDProvider discovers the issuer and creates a provider for the admin login.
// The domain may be a bare host or a full issuer URL.
func NewOpenIDProvider(ctx context.Context, cfg config.AdminConfig) (Provider, error) {
	switch {
	case cfg.OIDCDomain == "":
		return nil, errors.New("domain is required")
	case cfg.OIDCClientID == "":
		return nil, errors.New("client ID is required")
	case cfg.OIDCClientSecret == "":
		return nil, errors.New("client secret is required")
	case cfg.OIDCCallbackURL == "":
		return nil, errors.New("callback URL is required")
	}

	issuer, err := oidc.NewProvider(ctx, issuerURL(cfg.OIDCDomain))
	if err != nil {
		return nil, fmt.Errorf("failed to discover OpenID provider: %w", err)
	}

	return &OpenIDProvider{
		oauth: oauth2.Config{
			ClientID:     cfg.OIDCClientID,
			ClientSecret: cfg.OIDCClientSecret,
			RedirectURL:  cfg.OIDCCallbackURL,
			Endpoint:     issuer.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: issuer.Verifier(&oidc.Config{ClientID: cfg.OIDCClientID}),
	}, nil
}

func issuerURL(domain string) string {
	if strings.HasPrefix(domain, "https://") || strings.HasPrefix(domain, "http://") {
		return domain
	}
	return "https://" + domain + "/"
}

// AuthURL returns the authorization endpoint URL for this attempt
func (p *OpenIDProvider) AuthURL(state, nonce string) string {
	return p.oauth.AuthCodeURL(state, oidc.Nonce(nonce))
}

// Authenticate exchanges the code, then verifies signature, audience, expiry
// and nonce of the ID token
func (p *OpenIDProvider) Authenticate(ctx context.Context, code, nonce string) (*Identity, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange failed: %w", err)
	}

	raw, ok := tok.Extra("id_token").(string)
	if !ok || raw == "" {
		return nil, ErrNoIDToken
	}

	idToken, err := p.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to verify ID token: %w", err)
	}
	if idToken.Nonce != nonce {
		return nil, ErrNonceMismatch
	}

	var claims Claims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode claims: %w", err)
	}

	return identityFrom(claims), nil
}
