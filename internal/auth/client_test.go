package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// fakeGoTrue serves the subset of /auth/v1 the client uses.
func fakeGoTrue(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"message": "No API key found in request"})
			return
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)

		switch r.URL.Query().Get("grant_type") {
		case "password":
			if body["password"] != "hunter2" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{
					"error":             "invalid_grant",
					"error_description": "Invalid login credentials",
				})
				return
			}
		case "refresh_token":
			if body["refresh_token"] != "refresh-1" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]interface{}{"code": 400, "error_code": "refresh_token_not_found", "msg": "Invalid Refresh Token"})
				return
			}
		case "pkce":
			if body["auth_code"] != "the-code" || body["code_verifier"] == "" {
				w.WriteHeader(http.StatusBadRequest)
				json.NewEncoder(w).Encode(map[string]string{"msg": "invalid flow state"})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-1",
			"token_type":    "bearer",
			"expires_in":    3600,
			"refresh_token": "refresh-2",
			"user":          map[string]string{"id": "u1", "email": "user@example.com"},
		})
	})

	mux.HandleFunc("/auth/v1/signup", func(w http.ResponseWriter, r *http.Request) {
		var body SignUpRequest
		json.NewDecoder(r.Body).Decode(&body)
		if strings.HasSuffix(body.Email, "@confirm.me") {
			json.NewEncoder(w).Encode(map[string]string{"id": "u2", "email": body.Email})
			return
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-new",
			"expires_in":    3600,
			"refresh_token": "refresh-new",
			"user":          map[string]string{"id": "u2", "email": body.Email},
		})
	})

	mux.HandleFunc("/auth/v1/user", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"msg":"invalid JWT"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "u1", "email": "user@example.com"})
	})

	mux.HandleFunc("/auth/v1/logout", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(srv.URL+"/", "anon", srv.Client())
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return c
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient("", "anon", nil); err == nil {
		t.Error("expected error for empty project url")
	}
	if _, err := NewClient("https://x.supabase.co", "", nil); err == nil {
		t.Error("expected error for empty anon key")
	}
}

func TestSignInWithPassword(t *testing.T) {
	c := newTestClient(t, fakeGoTrue(t))

	s, err := c.SignInWithPassword(context.Background(), "user@example.com", "hunter2")
	if err != nil {
		t.Fatalf("SignInWithPassword failed: %v", err)
	}
	if s.AccessToken != "access-1" {
		t.Errorf("unexpected access token %s", s.AccessToken)
	}
	if s.Email() != "user@example.com" {
		t.Errorf("unexpected email %s", s.Email())
	}
	if s.ExpiresAt == 0 {
		t.Error("expected ExpiresAt derived from expires_in")
	}
	if s.ExpiresWithin(time.Now(), time.Minute) {
		t.Error("fresh session should not be expiring")
	}
}

func TestSignInWithPassword_BadCredentials(t *testing.T) {
	c := newTestClient(t, fakeGoTrue(t))

	_, err := c.SignInWithPassword(context.Background(), "user@example.com", "wrong")
	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if authErr.Message != "Invalid login credentials" {
		t.Errorf("unexpected message %q", authErr.Message)
	}
	if authErr.Code != "invalid_grant" {
		t.Errorf("unexpected code %q", authErr.Code)
	}
	if authErr.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected status %d", authErr.StatusCode)
	}
}

func TestRefreshToken(t *testing.T) {
	c := newTestClient(t, fakeGoTrue(t))

	s, err := c.RefreshToken(context.Background(), "refresh-1")
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if s.RefreshToken != "refresh-2" {
		t.Errorf("expected rotated refresh token, got %s", s.RefreshToken)
	}

	_, err = c.RefreshToken(context.Background(), "stale")
	var authErr *Error
	if !errors.As(err, &authErr) || authErr.Message != "Invalid Refresh Token" || authErr.Code != "refresh_token_not_found" {
		t.Errorf("unexpected error %v", err)
	}

	if _, err := c.RefreshToken(context.Background(), ""); err == nil {
		t.Error("expected error for empty refresh token")
	}
}

func TestSignUp(t *testing.T) {
	c := newTestClient(t, fakeGoTrue(t))

	s, err := c.SignUp(context.Background(), SignUpRequest{Email: "new@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if s == nil || s.AccessToken != "access-new" {
		t.Fatalf("expected session, got %+v", s)
	}

	s, err = c.SignUp(context.Background(), SignUpRequest{Email: "new@confirm.me", Password: "pw"})
	if err != nil {
		t.Fatalf("SignUp failed: %v", err)
	}
	if s != nil {
		t.Error("expected nil session when confirmation is pending")
	}
}

func TestGetUserAndSignOut(t *testing.T) {
	c := newTestClient(t, fakeGoTrue(t))

	u, err := c.GetUser(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u.ID != "u1" {
		t.Errorf("unexpected user %+v", u)
	}

	if _, err := c.GetUser(context.Background(), "bogus"); err == nil {
		t.Error("expected error for bad token")
	}

	if err := c.SignOut(context.Background(), "access-1"); err != nil {
		t.Errorf("SignOut failed: %v", err)
	}
	if err := c.SignOut(context.Background(), ""); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession, got %v", err)
	}
}

func TestParseError_NonJSON(t *testing.T) {
	err := parseError([]byte("<html>bad gateway</html>"), http.StatusBadGateway)
	var authErr *Error
	if !errors.As(err, &authErr) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if authErr.Message != "<html>bad gateway</html>" {
		t.Errorf("unexpected message %q", authErr.Message)
	}

	err = parseError(nil, http.StatusServiceUnavailable)
	if err.Error() != "Service Unavailable" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
