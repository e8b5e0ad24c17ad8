// Package auth talks to the identity provider (Supabase GoTrue) on behalf of the
// terminal client: password and sign-up grants, token refresh, sign-out, and the
// PKCE OAuth flow with a local callback listener.
package auth

import (
	"time"
)

// User is the identity attached to a session.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role,omitempty"`
}

// Session is an authenticated identity context issued by the provider.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at,omitempty"` // unix seconds
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user,omitempty"`
}

// Valid reports whether the session carries a bearer credential.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != ""
}

// Email returns the user's email or "" when unknown.
func (s *Session) Email() string {
	if s == nil || s.User == nil {
		return ""
	}
	return s.User.Email
}

// Expiry returns when the access token stops being accepted.
func (s *Session) Expiry() time.Time {
	if s.ExpiresAt > 0 {
		return time.Unix(s.ExpiresAt, 0)
	}
	return time.Time{}
}

// ExpiresWithin reports whether, seen from now, the token expires within d.
// Sessions without an expiry are treated as non-expiring.
func (s *Session) ExpiresWithin(now time.Time, d time.Duration) bool {
	exp := s.Expiry()
	if exp.IsZero() {
		return false
	}
	return now.Add(d).After(exp)
}

// normalize fills ExpiresAt from ExpiresIn when the provider omitted it.
func (s *Session) normalize() {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(s.ExpiresIn) * time.Second).Unix()
	}
	if s.TokenType == "" {
		s.TokenType = "bearer"
	}
}

// SignUpRequest for user registration.
type SignUpRequest struct {
	Email    string                 `json:"email"`
	Password string                 `json:"password"`
	Data     map[string]interface{} `json:"data,omitempty"`
}

// Error is a provider-reported failure.
type Error struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"status_code"`
}

func (e *Error) Error() string {
	if e.Message == "" {
		return "identity provider error " + e.Code
	}
	return e.Message
}
