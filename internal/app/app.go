// Package app is the state container behind both the dashboard and the CLI.
// It owns the catalog, profile, form fields and the outcome of the latest
// request, and runs every backend flow through the api client.
package app

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"aibuddies/internal/api"
	"aibuddies/internal/auth"
	"aibuddies/internal/checkout"
	"aibuddies/internal/logging"
	"aibuddies/internal/session"

	"golang.org/x/sync/errgroup"
)

// Sessions is the session store as the app sees it.
type Sessions interface {
	api.TokenSource
	Current() *auth.Session
	Subscribe(fn session.Listener) (unsubscribe func())
	SignOut(ctx context.Context) error
}

// Checkout loads and runs the payment widget.
type Checkout interface {
	Load(ctx context.Context) error
	Open(ctx context.Context, opts checkout.Options, open checkout.Opener, notify func(string)) (*checkout.Response, error)
}

// Option configures an App.
type Option func(*App)

// WithOpener sets how URLs are shown to the user (normally the browser).
func WithOpener(open func(string) error) Option {
	return func(a *App) { a.open = open }
}

// WithNotify sets a callback receiving URLs the user may need to open by hand.
func WithNotify(notify func(string)) Option {
	return func(a *App) { a.notify = notify }
}

// WithCheckoutTimeout bounds how long BuyCredits waits for the widget.
// Zero waits until ctx ends.
func WithCheckoutTimeout(d time.Duration) Option {
	return func(a *App) { a.checkoutTimeout = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// App is safe for concurrent use.
type App struct {
	mu    sync.RWMutex
	state State

	api      *api.Client
	quietAPI *api.Client
	sessions Sessions
	checkout Checkout

	open            func(string) error
	notify          func(string)
	now             func() time.Time
	checkoutTimeout time.Duration

	busy    atomic.Bool
	changes chan struct{}

	baseCtx     context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

// New wires an App. gateway may be nil when purchases are unavailable.
func New(client *api.Client, sessions Sessions, gateway Checkout, opts ...Option) *App {
	a := &App{
		sessions: sessions,
		checkout: gateway,
		now:      time.Now,
		changes:  make(chan struct{}, 1),
	}
	a.api = client.WithTracker(a)
	a.quietAPI = client.WithTracker(quietTracker{a})
	for _, opt := range opts {
		opt(a)
	}
	a.baseCtx, a.cancel = context.WithCancel(context.Background())
	return a
}

// Start subscribes to session changes and loads the catalog and profile
// concurrently. Load failures are already recorded in the request state.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	a.state.Session = a.sessions.Current()
	a.mu.Unlock()
	a.unsubscribe = a.sessions.Subscribe(a.onSessionEvent)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_ = a.LoadTools(gctx)
		return nil
	})
	g.Go(func() error {
		_ = a.LoadProfile(gctx)
		return nil
	})
	_ = g.Wait()
	a.changed()
}

// Close stops background work started by session events.
func (a *App) Close() {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	a.cancel()
	a.wg.Wait()
}

// Changes delivers a signal after every state change. Signals coalesce, so
// receivers should read Snapshot rather than count them.
func (a *App) Changes() <-chan struct{} {
	return a.changes
}

// Snapshot returns a copy of the current state.
func (a *App) Snapshot() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s := a.state
	if !s.Session.Valid() {
		s.Profile = nil
	}
	if s.Request.Result != nil {
		s.Request.Result = append([]byte(nil), s.Request.Result...)
	}
	return s
}

func (a *App) onSessionEvent(e session.Event, s *auth.Session) {
	logging.AppDebug("Session event %s", e)

	a.mu.Lock()
	a.state.Session = s
	if e == session.SignedOut {
		a.state.Profile = nil
	}
	a.mu.Unlock()
	a.changed()

	switch e {
	case session.SignedOut:
		logging.Audit().Identity(logging.AuditSignedOut)
	case session.SignedIn, session.InitialSession:
		if e == session.SignedIn {
			logging.AuditFor(s.Email()).Identity(logging.AuditSignedIn)
		}
		if s == nil {
			return
		}
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			_ = a.LoadProfile(a.baseCtx)
		}()
	}
}

func (a *App) update(fn func(s *State)) {
	a.mu.Lock()
	fn(&a.state)
	a.mu.Unlock()
	a.changed()
}

func (a *App) changed() {
	select {
	case a.changes <- struct{}{}:
	default:
	}
}

// Begin implements api.Tracker.
func (a *App) Begin() {
	a.update(func(s *State) {
		s.Request = RequestState{Loading: true}
	})
}

// Fail implements api.Tracker.
func (a *App) Fail(err error) {
	logging.AppWarn("Request failed: %v", err)
	a.update(func(s *State) {
		s.Request.Error = err.Error()
	})
}

// End implements api.Tracker.
func (a *App) End() {
	a.update(func(s *State) {
		s.Request.Loading = false
	})
}

// quietTracker is used for the profile refresh that follows an action: it
// keeps the action's message and result on screen.
type quietTracker struct{ a *App }

func (q quietTracker) Begin() {
	q.a.update(func(s *State) { s.Request.Loading = true })
}

func (q quietTracker) Fail(err error) { q.a.Fail(err) }

func (q quietTracker) End() { q.a.End() }

func (a *App) acquire() error {
	if !a.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (a *App) release() {
	a.busy.Store(false)
}

// Busy reports whether a user action is running.
func (a *App) Busy() bool {
	return a.busy.Load()
}
