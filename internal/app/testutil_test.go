package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"aibuddies/internal/api"
	"aibuddies/internal/auth"
	"aibuddies/internal/checkout"
	"aibuddies/internal/session"
)

type reply struct {
	status int
	body   string
}

// backend is a scripted stand-in for the AIBUDDIES API.
type backend struct {
	t   *testing.T
	srv *httptest.Server

	mu      sync.Mutex
	hits    map[string]int
	bodies  map[string]string
	replies map[string]reply
}

func newBackend(t *testing.T) *backend {
	t.Helper()
	b := &backend{
		t:      t,
		hits:   make(map[string]int),
		bodies: make(map[string]string),
		replies: map[string]reply{
			api.PathTools:         {200, `{"tools":{"text_gen":"Generate text","image_caption":"Caption an image"},"credit_costs":{"text_gen":1,"image_caption":2}}`},
			api.PathProfile:       {200, `{"profile":{"id":"u1","credits":5}}`},
			api.PathDailyBonus:    {200, `{"bonus_earned":3,"total_credits":8}`},
			api.PathWatchAd:       {200, `{"credits_earned":2,"total_credits":10}`},
			api.PathCreateOrder:   {200, `{"id":"order_1","amount":1000,"currency":"INR","notes":{"razorpay_key_id":"rzp_test_x"}}`},
			api.PathVerifyPayment: {200, `{"credits_added":500}`},
			api.PathGenerate:      {200, `{"output":"hello"}`},
		},
	}
	b.srv = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.srv.Close)
	return b
}

func (b *backend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.hits[r.URL.Path]++
	b.bodies[r.URL.Path] = string(body)
	rep, ok := b.replies[r.URL.Path]
	if !ok && strings.HasPrefix(r.URL.Path, api.PathImagePrefix) {
		rep, ok = reply{200, `{"caption":"a cat"}`}, true
	}
	b.mu.Unlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Not Found"}`))
		return
	}
	w.WriteHeader(rep.status)
	w.Write([]byte(rep.body))
}

func (b *backend) set(path string, status int, body string) {
	b.mu.Lock()
	b.replies[path] = reply{status, body}
	b.mu.Unlock()
}

func (b *backend) count(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

func (b *backend) total() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, v := range b.hits {
		n += v
	}
	return n
}

func (b *backend) body(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bodies[path]
}

// fakeSessions is an in-memory session store.
type fakeSessions struct {
	mu        sync.Mutex
	current   *auth.Session
	listeners map[int]session.Listener
	next      int
}

func newFakeSessions(signedIn bool) *fakeSessions {
	f := &fakeSessions{listeners: make(map[int]session.Listener)}
	if signedIn {
		f.current = &auth.Session{AccessToken: "tok", User: &auth.User{ID: "u1", Email: "user@example.com"}}
	}
	return f
}

func (f *fakeSessions) Current() *auth.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *fakeSessions) AccessToken(context.Context) (string, error) {
	if s := f.Current(); s != nil {
		return s.AccessToken, nil
	}
	return "", nil
}

func (f *fakeSessions) Subscribe(fn session.Listener) func() {
	f.mu.Lock()
	id := f.next
	f.next++
	f.listeners[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeSessions) SignOut(context.Context) error {
	f.set(session.SignedOut, nil)
	return nil
}

func (f *fakeSessions) set(e session.Event, s *auth.Session) {
	f.mu.Lock()
	f.current = s
	fns := make([]session.Listener, 0, len(f.listeners))
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(e, s)
	}
}

// fakeCheckout scripts the payment widget.
type fakeCheckout struct {
	loadErr error
	openErr error
	resp    *checkout.Response

	mu     sync.Mutex
	opened []checkout.Options
}

func (f *fakeCheckout) Load(context.Context) error { return f.loadErr }

func (f *fakeCheckout) Open(_ context.Context, opts checkout.Options, _ checkout.Opener, _ func(string)) (*checkout.Response, error) {
	f.mu.Lock()
	f.opened = append(f.opened, opts)
	f.mu.Unlock()
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f.resp, nil
}

func newTestApp(t *testing.T, b *backend, sessions *fakeSessions, gw Checkout) *App {
	t.Helper()
	client := api.New(b.srv.URL, sessions, api.WithHTTPClient(b.srv.Client()))
	a := New(client, sessions, gw, WithClock(func() time.Time {
		return time.Date(2026, 3, 4, 5, 6, 7, 890_000_000, time.UTC)
	}))
	t.Cleanup(a.Close)
	return a
}

// startedApp returns an app with catalog and profile loaded.
func startedApp(t *testing.T, b *backend, sessions *fakeSessions, gw Checkout) *App {
	t.Helper()
	a := newTestApp(t, b, sessions, gw)
	a.Start(context.Background())
	return a
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}
