package services

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// Session keys owned by the token service
const (
	sessionKeyToken          = "csrf_token"
	sessionKeyTokenIssuedAt  = "csrf_issued_at"
	sessionKeyFormRenderedAt = "form_rendered_at"
)

// tokenBytes is the entropy of an issued token (256 bits)
const tokenBytes = 32

// Session is the part of a server-side session the services rely on.
// gitea.com/go-chi/session stores satisfy it.
type Session interface {
	Set(key, value interface{}) error
	Get(key interface{}) interface{}
	Delete(key interface{}) error
}

// TokenService issues and validates session-bound anti-forgery tokens
type TokenService interface {
	Issue(sess Session) (string, error)
	Validate(sess Session, candidate string) bool
	Invalidate(sess Session)
	Forget(sess Session)
	FormRenderedAt(sess Session) (time.Time, bool)
}

// tokenService implements TokenService interface
type tokenService struct {
	lifetime time.Duration
	now      func() time.Time
	random   func([]byte) (int, error)
}

// NewTokenService creates a token service whose tokens expire after lifetime
func NewTokenService(lifetime time.Duration, now func() time.Time) TokenService {
	if now == nil {
		now = time.Now
	}
	return &tokenService{
		lifetime: lifetime,
		now:      now,
		random:   rand.Read,
	}
}

// Issue stores a fresh token in the session and returns it. The form render
// time is stamped only the first time.
func (s *tokenService) Issue(sess Session) (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := s.random(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	token := hex.EncodeToString(b)
	now := s.now()

	if err := sess.Set(sessionKeyToken, token); err != nil {
		return "", fmt.Errorf("failed to store token: %w", err)
	}
	if err := sess.Set(sessionKeyTokenIssuedAt, now); err != nil {
		return "", fmt.Errorf("failed to store token time: %w", err)
	}
	if _, ok := s.FormRenderedAt(sess); !ok {
		if err := sess.Set(sessionKeyFormRenderedAt, now); err != nil {
			return "", fmt.Errorf("failed to store form render time: %w", err)
		}
	}

	return token, nil
}

// Validate reports whether candidate matches the live session token.
// An expired token is removed from the session.
func (s *tokenService) Validate(sess Session, candidate string) bool {
	stored, ok := sess.Get(sessionKeyToken).(string)
	if !ok || stored == "" {
		return false
	}
	issuedAt, ok := sess.Get(sessionKeyTokenIssuedAt).(time.Time)
	if !ok {
		return false
	}

	if s.now().Sub(issuedAt) > s.lifetime {
		s.Invalidate(sess)
		return false
	}

	// Digests keep the comparison fixed-length whatever the candidate length
	want := sha256.Sum256([]byte(stored))
	got := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(want[:], got[:]) == 1
}

// Invalidate clears the token so it cannot be replayed
func (s *tokenService) Invalidate(sess Session) {
	_ = sess.Delete(sessionKeyToken)
	_ = sess.Delete(sessionKeyTokenIssuedAt)
}

// Forget drops every form key, including the render time
func (s *tokenService) Forget(sess Session) {
	s.Invalidate(sess)
	_ = sess.Delete(sessionKeyFormRenderedAt)
}

// FormRenderedAt returns when the form was first served to this session
func (s *tokenService) FormRenderedAt(sess Session) (time.Time, bool) {
	t, ok := sess.Get(sessionKeyFormRenderedAt).(time.Time)
	return t, ok
}
