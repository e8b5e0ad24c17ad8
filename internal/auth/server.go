package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"aibuddies/internal/logging"
)

const callbackSuccessPage = `<html>
<head><title>Signed in</title></head>
<body style="font-family: sans-serif; text-align: center; padding: 50px; background: #111827; color: #f3f4f6;">
	<h1 style="color: #22d3ee;">AIBUDDIES</h1>
	<p>Sign-in complete. You can close this tab and return to the terminal.</p>
	<script>window.close();</script>
</body>
</html>`

// serveCallback waits on ln for the OAuth redirect and returns the
// authorization code. It stops on the first callback, ctx cancellation or a
// listener failure.
func serveCallback(ctx context.Context, ln net.Listener, expectedState string) (string, error) {
	codeChan := make(chan string, 1)
	errChan := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(CallbackPath, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		state := q.Get("state")
		code := q.Get("code")
		errStr := q.Get("error_description")
		if errStr == "" {
			errStr = q.Get("error")
		}

		if state != expectedState {
			http.Error(w, "Invalid state", http.StatusBadRequest)
			sendErr(errChan, fmt.Errorf("invalid state received"))
			return
		}

		if errStr != "" {
			http.Error(w, "Sign-in failed: "+errStr, http.StatusBadRequest)
			sendErr(errChan, fmt.Errorf("sign-in failed: %s", errStr))
			return
		}

		if code == "" {
			http.Error(w, "No code received", http.StatusBadRequest)
			sendErr(errChan, fmt.Errorf("no code received"))
			return
		}

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(callbackSuccessPage))

		select {
		case codeChan <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendErr(errChan, err)
		}
	}()
	logging.Auth("Waiting for OAuth callback on %s", ln.Addr())

	// Shutdown lets the handler flush its page before the listener goes away.
	shutdown := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}

	select {
	case code := <-codeChan:
		shutdown()
		return code, nil
	case err := <-errChan:
		shutdown()
		return "", err
	case <-ctx.Done():
		server.Close()
		return "", ctx.Err()
	}
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}
