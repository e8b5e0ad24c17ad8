package dashboard

import (
	"context"
	"encoding/json"
	"sync"

	"aibuddies/cmd/aibuddies/ui"
	"aibuddies/internal/api"
	"aibuddies/internal/app"
	"aibuddies/internal/auth"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeController struct {
	mu      sync.Mutex
	state   app.State
	calls   []string
	prompt  string
	image   string
	busy    bool
	err     error
	// blockBuy makes BuyCredits wait for its context, like a checkout
	// page nobody answers.
	blockBuy bool
	changes chan struct{}
}

func newFakeController(signedIn bool) *fakeController {
	c := &fakeController{changes: make(chan struct{}, 1)}
	c.state.Catalog = api.NewCatalog([]api.Tool{
		{Key: "text_generation", Description: "Write text", Cost: 2},
		{Key: "image_caption", Description: "Describe an image", Cost: 1},
		{Key: "code_generation", Description: "Write code", Cost: 3},
	})
	if signedIn {
		c.state.Session = &auth.Session{AccessToken: "tok", User: &auth.User{Email: "a@b.c"}}
		c.state.Profile = &api.Profile{ID: "u1", Credits: 5}
	}
	return c
}

func (c *fakeController) record(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, name)
	return c.err
}

func (c *fakeController) called() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *fakeController) Start(ctx context.Context) { _ = c.record("start") }
func (c *fakeController) Snapshot() app.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
func (c *fakeController) Changes() <-chan struct{} { return c.changes }
func (c *fakeController) Busy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy
}

func (c *fakeController) LoadTools(ctx context.Context) error  { return c.record("tools") }
func (c *fakeController) ClaimBonus(ctx context.Context) error { return c.record("bonus") }
func (c *fakeController) WatchAd(ctx context.Context) error    { return c.record("ad") }
func (c *fakeController) BuyCredits(ctx context.Context) error {
	if err := c.record("buy"); err != nil {
		return err
	}
	c.mu.Lock()
	block := c.blockBuy
	c.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}
func (c *fakeController) Submit(ctx context.Context) error     { return c.record("submit") }
func (c *fakeController) SignOut(ctx context.Context) error {
	c.mu.Lock()
	c.state.Session = nil
	c.state.Profile = nil
	c.mu.Unlock()
	return c.record("signout")
}

func (c *fakeController) SelectTool(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Selected = key
	c.state.Request.Result = nil
}

func (c *fakeController) SetPrompt(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompt = prompt
	c.state.Prompt = prompt
}

func (c *fakeController) SetImage(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = path
	c.state.ImagePath = path
}

func (c *fakeController) setRequest(r app.RequestState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Request = r
}

func (c *fakeController) setResult(v interface{}) {
	raw, _ := json.Marshal(v)
	c.setRequest(app.RequestState{Result: raw})
}

type fakeAuth struct {
	mu        sync.Mutex
	email     string
	password  string
	provider  string
	signedUp  bool
	pending   bool
	err       error
	providers []string
}

func (f *fakeAuth) SignInWithPassword(ctx context.Context, email, password string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email, f.password = email, password
	return f.err
}

func (f *fakeAuth) SignUp(ctx context.Context, email, password string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.email, f.password, f.signedUp = email, password, true
	return f.pending, f.err
}

func (f *fakeAuth) SignInWithProvider(ctx context.Context, provider string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.provider = provider
	return f.err
}

func (f *fakeAuth) Providers() []string { return f.providers }

func newTestModel(ctrl *fakeController, authn *fakeAuth) Model {
	if authn == nil {
		authn = &fakeAuth{providers: []string{"google", "github"}}
	}
	return New(context.Background(), ctrl, authn, Config{
		Styles:           ui.NewStyles(ui.DarkTheme()),
		ShowDescriptions: true,
		GridColumns:      2,
	})
}

// send feeds msg through Update and returns the concrete model.
func send(t interface{ Helper() }, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

// typeText sends s one rune at a time.
func typeText(t interface{ Helper() }, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m, _ = send(t, m, keyRunes(string(r)))
	}
	return m
}

// drain runs cmd and feeds its message back, the way the program loop would.
func drain(t interface{ Helper() }, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	msg := cmd()
	if msg == nil {
		return m
	}
	m, _ = send(t, m, msg)
	return m
}
