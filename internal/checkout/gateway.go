// Package checkout drives the hosted payment widget from a terminal: the
// widget script is fetched once, served from a local page that the user's
// browser opens, and the widget's outcome is posted back to that page's
// server.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"aibuddies/internal/logging"

	"golang.org/x/sync/singleflight"
)

// DefaultScriptURL is the hosted checkout widget.
const DefaultScriptURL = "https://checkout.razorpay.com/v1/checkout.js"

var (
	// ErrGatewayUnavailable means the widget script could not be loaded.
	ErrGatewayUnavailable = errors.New("Failed to load payment gateway. Please try again.")
	// ErrDismissed means the user closed the widget without paying.
	ErrDismissed = errors.New("checkout dismissed")
)

// Gateway loads the widget script at most once per process. A failed load is
// not cached, so the next attempt tries again.
type Gateway struct {
	scriptURL    string
	callbackAddr string
	http         *http.Client

	group  singleflight.Group
	mu     sync.RWMutex
	script []byte
}

// NewGateway creates a gateway for scriptURL whose checkout pages are served
// on callbackAddr.
func NewGateway(scriptURL, callbackAddr string, hc *http.Client) *Gateway {
	if scriptURL == "" {
		scriptURL = DefaultScriptURL
	}
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Gateway{scriptURL: scriptURL, callbackAddr: callbackAddr, http: hc}
}

// Loaded reports whether the script is cached.
func (g *Gateway) Loaded() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.script != nil
}

// Load fetches the widget script unless it is already cached. Concurrent
// callers share one fetch.
func (g *Gateway) Load(ctx context.Context) error {
	if g.Loaded() {
		return nil
	}

	_, err, shared := g.group.Do("script", func() (interface{}, error) {
		if g.Loaded() {
			return nil, nil
		}
		data, err := g.fetch(ctx)
		if err != nil {
			return nil, err
		}
		g.mu.Lock()
		g.script = data
		g.mu.Unlock()
		logging.Checkout("Loaded checkout script (%d bytes)", len(data))
		return nil, nil
	})
	if err != nil {
		logging.CheckoutError("Loading checkout script failed (shared=%v): %v", shared, err)
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	return nil
}

func (g *Gateway) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.scriptURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := g.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("script returned status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("script is empty")
	}
	return data, nil
}

func (g *Gateway) cachedScript() []byte {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.script
}
