// Package dashboard is the Bubble Tea front end: a login screen while signed
// out and the credits/tools dashboard once a session exists. All state that
// outlives a keystroke lives in the app container; the model only keeps
// widget state.
package dashboard

import (
	"context"

	"aibuddies/cmd/aibuddies/ui"
	"aibuddies/internal/app"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Controller is the app container as the dashboard drives it.
type Controller interface {
	Start(ctx context.Context)
	Snapshot() app.State
	Changes() <-chan struct{}
	Busy() bool

	LoadTools(ctx context.Context) error
	ClaimBonus(ctx context.Context) error
	WatchAd(ctx context.Context) error
	BuyCredits(ctx context.Context) error
	Submit(ctx context.Context) error
	SignOut(ctx context.Context) error

	SelectTool(key string)
	SetPrompt(prompt string)
	SetImage(path string)
}

// Authenticator signs the user in. A successful call results in a session
// event on the controller, which switches the screen.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) error
	// SignUp returns pending=true when the account needs email confirmation.
	SignUp(ctx context.Context, email, password string) (pending bool, err error)
	SignInWithProvider(ctx context.Context, provider string) error
	Providers() []string
}

// Config holds what the dashboard needs besides its collaborators.
type Config struct {
	Styles           ui.Styles
	ShowDescriptions bool
	GridColumns      int
}

// focusArea is the dashboard region receiving keys.
type focusArea int

const (
	focusTools focusArea = iota
	focusPrompt
	focusFilePicker
)

// loginMode toggles between sign-in and account creation.
type loginMode int

const (
	modeSignIn loginMode = iota
	modeSignUp
)

type (
	// stateChangedMsg arrives whenever the controller signals a change.
	stateChangedMsg struct{}
	// startedMsg arrives when the initial loads complete.
	startedMsg struct{}
	// actionDoneMsg carries the outcome of a dashboard action.
	actionDoneMsg struct {
		name string
		err  error
	}
	// loginDoneMsg carries the outcome of a login attempt.
	loginDoneMsg struct {
		pending bool
		err     error
	}
	// noticeMsg carries a URL the user may have to open by hand.
	noticeMsg struct {
		url string
	}
)

// Notifier returns a callback that surfaces URLs in the status line of the
// running program.
func Notifier(p *tea.Program) func(string) {
	return func(url string) {
		p.Send(noticeMsg{url: url})
	}
}

// Model is the root Bubble Tea model.
type Model struct {
	ctx    context.Context
	ctrl   Controller
	auth   Authenticator
	styles ui.Styles
	cfg    Config

	state  app.State
	width  int
	height int

	// Login screen
	emailInput    textinput.Model
	passwordInput textinput.Model
	loginFocus    int
	loginMode     loginMode
	loggingIn     bool
	loginErr      string
	loginInfo     string

	// Dashboard
	focus      focusArea
	cursor     int
	prompt     textarea.Model
	filepicker filepicker.Model
	spinner    spinner.Model
	result     viewport.Model
	renderer   *glamour.TermRenderer
	status     string

	// In-flight action, cancellable with x.
	pending      string
	cancelAction context.CancelFunc

	quitting bool
}

// New creates the root model.
func New(ctx context.Context, ctrl Controller, authn Authenticator, cfg Config) Model {
	email := textinput.New()
	email.Placeholder = "Email address"
	email.CharLimit = 254
	email.Focus()

	password := textinput.New()
	password.Placeholder = "Password"
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	prompt := textarea.New()
	prompt.Placeholder = "Enter your prompt..."
	prompt.ShowLineNumbers = false
	prompt.SetHeight(4)
	prompt.CharLimit = 0

	fp := filepicker.New()
	fp.AllowedTypes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cfg.Styles.Spinner

	return Model{
		ctx:           ctx,
		ctrl:          ctrl,
		auth:          authn,
		styles:        cfg.Styles,
		cfg:           cfg,
		state:         ctrl.Snapshot(),
		emailInput:    email,
		passwordInput: password,
		prompt:        prompt,
		filepicker:    fp,
		spinner:       sp,
		result:        viewport.New(80, 10),
		width:         80,
		height:        24,
	}
}

// Init starts the initial loads, the spinner and the change listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.startCmd(),
		waitForChange(m.ctrl.Changes()),
		textinput.Blink,
	)
}

func (m Model) startCmd() tea.Cmd {
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		ctrl.Start(ctx)
		return startedMsg{}
	}
}

func waitForChange(ch <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return stateChangedMsg{}
	}
}

// selectedIndex returns the grid index of the selected tool or -1.
func (m Model) selectedIndex() int {
	if m.state.Catalog == nil {
		return -1
	}
	for i, t := range m.state.Catalog.Tools {
		if t.Key == m.state.Selected {
			return i
		}
	}
	return -1
}

func (m Model) toolCount() int {
	if m.state.Catalog == nil {
		return 0
	}
	return len(m.state.Catalog.Tools)
}
