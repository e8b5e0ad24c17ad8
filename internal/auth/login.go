package auth

import (
	"context"
	"fmt"
	"net"

	"aibuddies/internal/logging"
)

// Opener opens a URL for the user, usually in a browser.
type Opener func(url string) error

// LoginWithProvider runs the whole OAuth round trip: build the authorization
// URL, hand it to open, wait for the callback on callbackAddr and exchange the
// code. notify, when non-nil, receives the URL so callers can print it in case
// the browser does not open.
func (c *Client) LoginWithProvider(ctx context.Context, provider, callbackAddr string, open Opener, notify func(string)) (*Session, error) {
	flow, err := c.StartOAuth(provider, callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to start OAuth: %w", err)
	}

	// Bind before opening the browser so a fast redirect cannot miss us.
	ln, err := net.Listen("tcp", callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", callbackAddr, err)
	}

	if notify != nil {
		notify(flow.AuthURL)
	}
	if open != nil {
		if err := open(flow.AuthURL); err != nil {
			logging.AuthWarn("could not open browser: %v", err)
		}
	}

	code, err := serveCallback(ctx, ln, flow.State)
	if err != nil {
		return nil, fmt.Errorf("OAuth callback failed: %w", err)
	}

	session, err := c.ExchangeCode(ctx, code, flow.Verifier)
	if err != nil {
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	if session.User == nil || session.User.Email == "" {
		if user, err := c.GetUser(ctx, session.AccessToken); err == nil {
			session.User = user
		}
	}
	return session, nil
}
