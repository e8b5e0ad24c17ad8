package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"aibuddies/internal/logging"

	"github.com/tidwall/gjson"
)

// ErrNoSession is returned when a call needs a session and none is present.
var ErrNoSession = errors.New("no session, sign in required")

// Client is a minimal GoTrue REST client.
type Client struct {
	authURL string
	anonKey string
	http    *http.Client
}

// NewClient creates a client for the project at projectURL (e.g. https://xxx.supabase.co).
func NewClient(projectURL, anonKey string, httpClient *http.Client) (*Client, error) {
	if projectURL == "" {
		return nil, fmt.Errorf("project URL is required")
	}
	if anonKey == "" {
		return nil, fmt.Errorf("anon key is required")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		authURL: strings.TrimRight(projectURL, "/") + "/auth/v1",
		anonKey: anonKey,
		http:    httpClient,
	}, nil
}

// SignInWithPassword authenticates a user with email/password.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]string{"email": email, "password": password}
	return c.sessionRequest(ctx, "/token?grant_type=password", body)
}

// SignUp creates a new user. Projects with email confirmation enabled return
// a user without a session; that case yields (nil, nil).
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*Session, error) {
	respBody, err := c.do(ctx, http.MethodPost, "/signup", req, "")
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(respBody, "access_token").Exists() {
		return nil, nil
	}
	return decodeSession(respBody)
}

// RefreshToken exchanges a refresh token for a new session.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}
	body := map[string]string{"refresh_token": refreshToken}
	return c.sessionRequest(ctx, "/token?grant_type=refresh_token", body)
}

// ExchangeCode completes the PKCE flow.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	body := map[string]string{"auth_code": code, "code_verifier": verifier}
	return c.sessionRequest(ctx, "/token?grant_type=pkce", body)
}

// GetUser retrieves the user for an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	respBody, err := c.do(ctx, http.MethodGet, "/user", nil, accessToken)
	if err != nil {
		return nil, err
	}
	var user User
	if err := json.Unmarshal(respBody, &user); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &user, nil
}

// SignOut revokes the session server-side.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return ErrNoSession
	}
	_, err := c.do(ctx, http.MethodPost, "/logout", nil, accessToken)
	return err
}

func (c *Client) sessionRequest(ctx context.Context, path string, body interface{}) (*Session, error) {
	respBody, err := c.do(ctx, http.MethodPost, path, body, "")
	if err != nil {
		return nil, err
	}
	return decodeSession(respBody)
}

func decodeSession(data []byte) (*Session, error) {
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	if s.AccessToken == "" {
		return nil, fmt.Errorf("provider returned no access token")
	}
	s.normalize()
	return &s, nil
}

// do performs a request. The anon key is always sent as apikey; the bearer is
// the user's token when given, otherwise the anon key.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, accessToken string) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.authURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.anonKey)
	bearer := c.anonKey
	if accessToken != "" {
		bearer = accessToken
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	logging.AuthDebug("%s %s", method, path)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, parseError(respBody, resp.StatusCode)
	}
	return respBody, nil
}

// parseError extracts the provider's message. GoTrue has used several shapes
// over time: {msg}, {message}, {error, error_description}.
func parseError(body []byte, statusCode int) error {
	if !gjson.ValidBytes(body) {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
		return &Error{Code: "unknown", Message: msg, StatusCode: statusCode}
	}

	res := gjson.GetManyBytes(body, "msg", "message", "error_description", "error", "error_code", "code")
	msg := ""
	for _, r := range res[:4] {
		if r.String() != "" {
			msg = r.String()
			break
		}
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	code := res[4].String()
	if code == "" {
		code = res[3].String()
	}
	if code == "" {
		code = res[5].String()
	}
	if code == "" {
		code = strconv.Itoa(statusCode)
	}

	return &Error{Code: code, Message: msg, StatusCode: statusCode}
}
