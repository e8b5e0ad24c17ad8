package checkout

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"aibuddies/internal/logging"
)

// FailedError is a payment the widget reported as failed.
type FailedError struct {
	Reason string
}

func (e *FailedError) Error() string {
	return e.Reason
}

// Opener opens a URL for the user, usually in a browser.
type Opener func(url string) error

type callback struct {
	Nonce string `json:"nonce"`
	Response
	Error string `json:"error"`
	Fatal bool   `json:"fatal"`
}

type outcome struct {
	resp *Response
	err  error
}

// Open serves the checkout page for opts, hands its URL to open (and notify,
// when non-nil) and blocks until the widget completes, is dismissed, or ctx
// ends. Load must have succeeded first.
func (g *Gateway) Open(ctx context.Context, opts Options, open Opener, notify func(string)) (*Response, error) {
	script := g.cachedScript()
	if script == nil {
		return nil, ErrGatewayUnavailable
	}

	ln, err := net.Listen("tcp", g.callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", g.callbackAddr, err)
	}
	return serveCheckout(ctx, ln, script, opts, open, notify)
}

func serveCheckout(ctx context.Context, ln net.Listener, script []byte, opts Options, open Opener, notify func(string)) (*Response, error) {
	nonce, err := newNonce()
	if err != nil {
		ln.Close()
		return nil, err
	}

	outcomes := make(chan outcome, 1)
	var (
		mu          sync.Mutex
		lastFailure string
	)

	finish := func(o outcome) {
		select {
		case outcomes <- o:
		default:
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		logging.CheckoutDebug("Serving checkout page to %s", r.RemoteAddr)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := renderPage(w, opts, nonce); err != nil {
			logging.CheckoutError("Rendering checkout page: %v", err)
		}
	})
	mux.HandleFunc("/checkout.js", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write(script)
	})
	mux.HandleFunc("/checkout/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var cb callback
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&cb); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if cb.Nonce != nonce {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusNoContent)

		switch r.URL.Path {
		case "/checkout/complete":
			resp := cb.Response
			logging.Checkout("Checkout completed for order %s", resp.OrderID)
			finish(outcome{resp: &resp})
		case "/checkout/dismiss":
			logging.Checkout("Checkout dismissed")
			mu.Lock()
			reason := lastFailure
			mu.Unlock()
			if reason != "" {
				finish(outcome{err: &FailedError{Reason: reason}})
				return
			}
			finish(outcome{err: ErrDismissed})
		case "/checkout/failed":
			logging.CheckoutError("Checkout reported failure: %s", cb.Error)
			if cb.Fatal {
				finish(outcome{err: &FailedError{Reason: cb.Error}})
				return
			}
			// The widget lets the user retry, so keep waiting.
			mu.Lock()
			lastFailure = cb.Error
			mu.Unlock()
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	pageURL := "http://" + ln.Addr().String() + "/"
	logging.Checkout("Serving checkout for order %s at %s", opts.OrderID, pageURL)
	if notify != nil {
		notify(pageURL)
	}
	if open != nil {
		if err := open(pageURL); err != nil {
			logging.CheckoutError("Could not open browser: %v", err)
		}
	}

	select {
	case o := <-outcomes:
		return o.resp, o.err
	case err := <-serveErr:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
