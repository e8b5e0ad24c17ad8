package main

import (
	"fmt"
	"io"

	"aibuddies/internal/api"
	"aibuddies/internal/app"
	"aibuddies/internal/auth"
	"aibuddies/internal/browser"
	"aibuddies/internal/checkout"
	"aibuddies/internal/config"
	"aibuddies/internal/logging"
	"aibuddies/internal/session"

	"go.uber.org/zap"
)

// runtime is everything a command needs, wired from the config.
type runtime struct {
	cfg     *config.Config
	auth    *auth.Client
	store   *session.Store
	client  *api.Client
	gateway *checkout.Gateway
	app     *app.App

	// notify is swapped by the dashboard once its program exists.
	notify func(string)
}

// newRuntime validates cfg and builds the client stack. Progress notices
// (URLs to open by hand) go to out until notify is replaced.
func newRuntime(cfg *config.Config, out io.Writer) (*runtime, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	authClient, err := auth.NewClient(cfg.Auth.ProjectURL, cfg.Auth.AnonKey, nil)
	if err != nil {
		return nil, err
	}

	rt := &runtime{
		cfg:  cfg,
		auth: authClient,
		notify: func(url string) {
			fmt.Fprintf(out, "If your browser did not open, visit:\n  %s\n", url)
		},
	}

	rt.store = session.NewStore(cfg.Session.File, authClient)
	if sess := rt.store.Load(); sess.Valid() {
		logging.Session("restored session for %s", sess.Email())
	}

	rt.client = api.New(cfg.API.BaseURL, rt.store, api.WithTimeout(cfg.GetAPITimeout()))
	rt.gateway = checkout.NewGateway(cfg.Checkout.ScriptURL, cfg.Checkout.CallbackAddr, nil)
	rt.app = app.New(rt.client, rt.store, rt.gateway,
		app.WithOpener(browser.Open),
		app.WithNotify(rt.notifyFunc()),
		app.WithCheckoutTimeout(cfg.GetCheckoutTimeout()),
	)

	logger.Debug("runtime ready",
		zap.String("api", cfg.API.BaseURL),
		zap.String("session", cfg.Session.File),
	)
	return rt, nil
}

// notifyFunc defers to whatever rt.notify is at call time.
func (rt *runtime) notifyFunc() func(string) {
	return func(url string) { rt.notify(url) }
}

// authFlow returns the sign-in adapter used by the dashboard and auth commands.
func (rt *runtime) authFlow() *authFlow {
	return &authFlow{
		client:       rt.auth,
		store:        rt.store,
		providers:    rt.cfg.Auth.Providers,
		callbackAddr: rt.cfg.Auth.CallbackAddr,
		timeout:      rt.cfg.GetLoginTimeout(),
		open:         browser.Open,
		notify:       rt.notifyFunc(),
	}
}

func (rt *runtime) Close() {
	rt.app.Close()
}
