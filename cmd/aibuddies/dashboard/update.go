package dashboard

import (
	"context"
	"errors"
	"strings"

	"aibuddies/internal/app"
	"aibuddies/internal/checkout"
	"aibuddies/internal/logging"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
)

// Update handles every incoming message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg), nil

	case stateChangedMsg:
		m = m.refresh()
		return m, waitForChange(m.ctrl.Changes())

	case startedMsg:
		return m.refresh(), nil

	case actionDoneMsg:
		if msg.name == m.pending {
			m = m.clearPending()
		}
		m.status = ""
		switch {
		case msg.err == nil:
		case errors.Is(msg.err, app.ErrBusy):
			m.status = "Please wait for the current request to finish."
		case errors.Is(msg.err, checkout.ErrDismissed):
			m.status = "Checkout closed."
		case errors.Is(msg.err, context.Canceled):
			m.status = "Request cancelled."
		}
		if msg.err != nil {
			logging.UIDebug("%s finished: %v", msg.name, msg.err)
		}
		return m.refresh(), nil

	case loginDoneMsg:
		m.loggingIn = false
		switch {
		case msg.err != nil:
			m.loginErr = msg.err.Error()
		case msg.pending:
			m.loginInfo = "Check your email for the confirmation link."
		}
		return m.refresh(), nil

	case noticeMsg:
		m.status = "If your browser did not open, visit: " + msg.url
		if !m.state.SignedIn() {
			m.loginInfo = m.status
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m.quit()
		}
		if !m.state.SignedIn() {
			return m.updateLogin(msg)
		}
		return m.updateDashboard(msg)
	}

	// Anything else (cursor blink, directory reads) goes to the active widget.
	return m.forward(msg)
}

func (m Model) forward(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case !m.state.SignedIn():
		switch m.loginFocus {
		case 0:
			m.emailInput, cmd = m.emailInput.Update(msg)
		case 1:
			m.passwordInput, cmd = m.passwordInput.Update(msg)
		}
	case m.focus == focusFilePicker:
		m.filepicker, cmd = m.filepicker.Update(msg)
	case m.focus == focusPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	}
	return m, cmd
}

func (m Model) resize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height

	inner := max(msg.Width-4, 20)
	m.prompt.SetWidth(inner)
	m.emailInput.Width = min(inner, 48)
	m.passwordInput.Width = min(inner, 48)
	m.filepicker.Height = max(msg.Height-12, 5)
	m.result.Width = inner
	m.result.Height = max(msg.Height/3, 5)

	m.renderer, _ = glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(inner-2),
	)
	return m.refresh()
}

// refresh pulls a new snapshot and re-renders derived widgets.
func (m Model) refresh() Model {
	wasSignedIn := m.state.SignedIn()
	m.state = m.ctrl.Snapshot()

	if wasSignedIn != m.state.SignedIn() {
		m.loginErr, m.loginInfo, m.status = "", "", ""
		m.focus = focusTools
	}
	if m.state.Selected != "" {
		if m.state.SelectedIsImage() {
			m.prompt.Placeholder = "Enter an optional prompt"
		} else {
			m.prompt.Placeholder = "Enter your prompt..."
		}
	}
	if n := m.toolCount(); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	}

	m.result.SetContent(m.renderResult())
	return m
}

// renderResult formats the result JSON through glamour when available.
func (m Model) renderResult() string {
	pretty := m.state.PrettyResult()
	if pretty == "" {
		return ""
	}
	if m.renderer == nil {
		return pretty
	}
	out, err := m.renderer.Render("```json\n" + pretty + "\n```")
	if err != nil {
		return pretty
	}
	return strings.TrimRight(out, "\n")
}

// =============================================================================
// LOGIN
// =============================================================================

// loginItems are the focusable controls after the two inputs.
func (m Model) loginItems() int {
	return 3 + len(m.auth.Providers())
}

func (m Model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loggingIn {
		return m, nil
	}

	switch msg.String() {
	case "esc":
		return m.quit()
	case "tab", "down":
		return m.setLoginFocus((m.loginFocus + 1) % m.loginItems()), nil
	case "shift+tab", "up":
		return m.setLoginFocus((m.loginFocus - 1 + m.loginItems()) % m.loginItems()), nil
	case "ctrl+t":
		if m.loginMode == modeSignIn {
			m.loginMode = modeSignUp
		} else {
			m.loginMode = modeSignIn
		}
		m.loginErr, m.loginInfo = "", ""
		return m, nil
	case "enter":
		return m.submitLogin()
	}

	return m.forward(msg)
}

func (m Model) setLoginFocus(i int) Model {
	m.loginFocus = i
	m.emailInput.Blur()
	m.passwordInput.Blur()
	switch i {
	case 0:
		m.emailInput.Focus()
	case 1:
		m.passwordInput.Focus()
	}
	return m
}

func (m Model) submitLogin() (tea.Model, tea.Cmd) {
	providers := m.auth.Providers()
	m.loginErr, m.loginInfo = "", ""

	switch {
	case m.loginFocus == 0:
		return m.setLoginFocus(1), nil
	case m.loginFocus == 2:
		m.loginMode = 1 - m.loginMode
		return m, nil
	case m.loginFocus >= 3 && m.loginFocus-3 < len(providers):
		provider := providers[m.loginFocus-3]
		m.loggingIn = true
		m.loginInfo = "Continue in your browser to sign in with " + provider + "..."
		authn, ctx := m.auth, m.ctx
		return m, func() tea.Msg {
			return loginDoneMsg{err: authn.SignInWithProvider(ctx, provider)}
		}
	}

	email := strings.TrimSpace(m.emailInput.Value())
	password := m.passwordInput.Value()
	if email == "" || password == "" {
		m.loginErr = "Email and password are required."
		return m, nil
	}

	m.loggingIn = true
	authn, ctx, mode := m.auth, m.ctx, m.loginMode
	return m, func() tea.Msg {
		if mode == modeSignUp {
			pending, err := authn.SignUp(ctx, email, password)
			return loginDoneMsg{pending: pending, err: err}
		}
		return loginDoneMsg{err: authn.SignInWithPassword(ctx, email, password)}
	}
}

// =============================================================================
// DASHBOARD
// =============================================================================

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.focus {
	case focusFilePicker:
		return m.updateFilePicker(msg)
	case focusPrompt:
		return m.updatePrompt(msg)
	}

	switch msg.String() {
	case "q", "esc":
		return m.quit()
	case "x":
		if m.cancelAction != nil {
			m.cancelAction()
			m.status = "Cancelling..."
		}
	case "left", "h":
		m.cursor = max(m.cursor-1, 0)
	case "right", "l":
		m.cursor = min(m.cursor+1, max(m.toolCount()-1, 0))
	case "up", "k":
		m.cursor = max(m.cursor-m.columns(), 0)
	case "down", "j":
		m.cursor = min(m.cursor+m.columns(), max(m.toolCount()-1, 0))
	case "enter", " ":
		if m.toolCount() == 0 {
			return m, nil
		}
		key := m.state.Catalog.Tools[m.cursor].Key
		m.ctrl.SelectTool(key)
		m = m.refresh()
		return m.focusPrompt()
	case "tab":
		if m.state.Selected != "" {
			return m.focusPrompt()
		}
	case "b":
		return m.runAction("bonus", m.ctrl.ClaimBonus)
	case "a":
		return m.runAction("ad", m.ctrl.WatchAd)
	case "c":
		return m.runAction("buy", m.ctrl.BuyCredits)
	case "g", "ctrl+s":
		return m.runAction("submit", m.ctrl.Submit)
	case "f":
		if m.state.SelectedIsImage() {
			return m.openFilePicker()
		}
	case "r":
		return m.runAction("reload", m.ctrl.LoadTools)
	case "o":
		return m.runAction("signout", m.ctrl.SignOut)
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.result, cmd = m.result.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updatePrompt(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc", "tab":
		m.prompt.Blur()
		m.focus = focusTools
		return m, nil
	case "ctrl+s":
		m.ctrl.SetPrompt(m.prompt.Value())
		return m.runAction("submit", m.ctrl.Submit)
	case "ctrl+f":
		if m.state.SelectedIsImage() {
			m.ctrl.SetPrompt(m.prompt.Value())
			return m.openFilePicker()
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	m.ctrl.SetPrompt(m.prompt.Value())
	return m, cmd
}

func (m Model) focusPrompt() (tea.Model, tea.Cmd) {
	m.focus = focusPrompt
	cmd := m.prompt.Focus()
	return m, cmd
}

func (m Model) openFilePicker() (tea.Model, tea.Cmd) {
	m.prompt.Blur()
	m.focus = focusFilePicker
	return m, m.filepicker.Init()
}

func (m Model) updateFilePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "esc" {
		return m.focusPrompt()
	}

	var cmd tea.Cmd
	m.filepicker, cmd = m.filepicker.Update(msg)

	if didSelect, path := m.filepicker.DidSelectFile(msg); didSelect {
		m.ctrl.SetImage(path)
		m.filepicker = filepicker.New()
		m.filepicker.AllowedTypes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}
		m.filepicker.Height = max(m.height-12, 5)
		m = m.refresh()
		next, focusCmd := m.focusPrompt()
		return next, tea.Batch(cmd, focusCmd)
	}
	if didSelect, path := m.filepicker.DidSelectDisabledFile(msg); didSelect {
		m.status = "Not an image file: " + path
	}
	return m, cmd
}

// runAction runs fn off the UI goroutine with its own cancellable context.
// Triggers are ignored while a request is in flight.
func (m Model) runAction(name string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	if m.state.Request.Loading || m.ctrl.Busy() || m.pending != "" {
		m.status = "Please wait for the current request to finish."
		return m, nil
	}
	ctx, cancel := context.WithCancel(m.ctx)
	m.status = ""
	m.pending, m.cancelAction = name, cancel
	return m, func() tea.Msg {
		return actionDoneMsg{name: name, err: fn(ctx)}
	}
}

func (m Model) clearPending() Model {
	if m.cancelAction != nil {
		m.cancelAction()
	}
	m.pending, m.cancelAction = "", nil
	return m
}

// quit stops any running action before leaving.
func (m Model) quit() (tea.Model, tea.Cmd) {
	m = m.clearPending()
	m.quitting = true
	return m, tea.Quit
}

// columns is the tool grid width in cards.
func (m Model) columns() int {
	if m.cfg.GridColumns > 0 {
		return m.cfg.GridColumns
	}
	cardWidth := m.styles.ToolCard.GetWidth() + 2
	if cardWidth <= 2 {
		cardWidth = 30
	}
	return max(1, (m.width-2)/cardWidth)
}
