package dashboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"aibuddies/internal/app"
	"aibuddies/internal/checkout"

	tea "github.com/charmbracelet/bubbletea"
)

func TestPasswordLogin(t *testing.T) {
	ctrl := newFakeController(false)
	authn := &fakeAuth{providers: []string{"google"}}
	m := newTestModel(ctrl, authn)

	m = typeText(t, m, "a@b.c")
	m, _ = send(t, m, key(tea.KeyTab))
	m = typeText(t, m, "hunter2")

	m, cmd := send(t, m, key(tea.KeyEnter))
	if cmd == nil {
		t.Fatal("expected a login command")
	}
	if !m.loggingIn {
		t.Error("model should show the login in progress")
	}

	m = drain(t, m, cmd)
	if authn.email != "a@b.c" || authn.password != "hunter2" {
		t.Errorf("credentials = %q/%q", authn.email, authn.password)
	}
	if m.loggingIn || m.loginErr != "" {
		t.Errorf("unexpected login state: loggingIn=%v err=%q", m.loggingIn, m.loginErr)
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	authn := &fakeAuth{}
	m := newTestModel(newFakeController(false), authn)

	m, _ = send(t, m, key(tea.KeyTab))
	m, cmd := send(t, m, key(tea.KeyEnter))
	if cmd != nil {
		t.Fatal("no request should be sent without credentials")
	}
	if m.loginErr != "Email and password are required." {
		t.Errorf("loginErr = %q", m.loginErr)
	}
}

func TestLoginErrorIsShown(t *testing.T) {
	authn := &fakeAuth{err: errors.New("Invalid login credentials")}
	m := newTestModel(newFakeController(false), authn)

	m = typeText(t, m, "a@b.c")
	m, _ = send(t, m, key(tea.KeyTab))
	m = typeText(t, m, "x")
	m, cmd := send(t, m, key(tea.KeyEnter))
	m = drain(t, m, cmd)

	if m.loginErr != "Invalid login credentials" {
		t.Errorf("loginErr = %q", m.loginErr)
	}
	if !strings.Contains(m.View(), "Invalid login credentials") {
		t.Error("error missing from login view")
	}
}

func TestSignUpPending(t *testing.T) {
	authn := &fakeAuth{pending: true}
	m := newTestModel(newFakeController(false), authn)

	m, _ = send(t, m, key(tea.KeyCtrlT))
	if m.loginMode != modeSignUp {
		t.Fatal("ctrl+t should switch to sign up")
	}
	m = typeText(t, m, "new@b.c")
	m, _ = send(t, m, key(tea.KeyTab))
	m = typeText(t, m, "secret")
	m, cmd := send(t, m, key(tea.KeyEnter))
	m = drain(t, m, cmd)

	if !authn.signedUp {
		t.Fatal("SignUp was not called")
	}
	if !strings.Contains(m.loginInfo, "confirmation") {
		t.Errorf("loginInfo = %q", m.loginInfo)
	}
}

func TestProviderLogin(t *testing.T) {
	authn := &fakeAuth{providers: []string{"google", "github"}}
	m := newTestModel(newFakeController(false), authn)

	// email, password, mode toggle, google, github
	for i := 0; i < 4; i++ {
		m, _ = send(t, m, key(tea.KeyTab))
	}
	if m.loginFocus != 4 {
		t.Fatalf("loginFocus = %d", m.loginFocus)
	}

	m, cmd := send(t, m, key(tea.KeyEnter))
	if !strings.Contains(m.loginInfo, "github") {
		t.Errorf("loginInfo = %q", m.loginInfo)
	}
	drain(t, m, cmd)
	if authn.provider != "github" {
		t.Errorf("provider = %q", authn.provider)
	}
}

func TestLoginFocusWraps(t *testing.T) {
	m := newTestModel(newFakeController(false), &fakeAuth{providers: []string{"google"}})

	m, _ = send(t, m, key(tea.KeyShiftTab))
	if m.loginFocus != 3 {
		t.Errorf("shift+tab from the first field should wrap, got %d", m.loginFocus)
	}
	m, _ = send(t, m, key(tea.KeyTab))
	if m.loginFocus != 0 {
		t.Errorf("tab from the last control should wrap, got %d", m.loginFocus)
	}
}

func TestActionKeys(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"b", "bonus"},
		{"a", "ad"},
		{"c", "buy"},
		{"g", "submit"},
		{"r", "tools"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			ctrl := newFakeController(true)
			m := newTestModel(ctrl, nil)

			m, cmd := send(t, m, keyRunes(tt.key))
			if cmd == nil {
				t.Fatalf("key %q produced no command", tt.key)
			}
			drain(t, m, cmd)

			got := ctrl.called()
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("calls = %v, want [%s]", got, tt.want)
			}
		})
	}
}

func TestActionsIgnoredWhileLoading(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.setRequest(app.RequestState{Loading: true})
	m := newTestModel(ctrl, nil)

	m, cmd := send(t, m, keyRunes("b"))
	if cmd != nil {
		t.Fatal("action should not start while a request is in flight")
	}
	if m.status == "" {
		t.Error("expected a wait hint")
	}
	if len(ctrl.called()) != 0 {
		t.Errorf("calls = %v", ctrl.called())
	}
}

func TestActionOutcomeStatus(t *testing.T) {
	m := newTestModel(newFakeController(true), nil)

	m, _ = send(t, m, actionDoneMsg{name: "bonus", err: app.ErrBusy})
	if !strings.Contains(m.status, "wait") {
		t.Errorf("status = %q", m.status)
	}

	m, _ = send(t, m, actionDoneMsg{name: "buy", err: checkout.ErrDismissed})
	if m.status != "Checkout closed." {
		t.Errorf("status = %q", m.status)
	}

	m, _ = send(t, m, actionDoneMsg{name: "bonus"})
	if m.status != "" {
		t.Errorf("status should clear, got %q", m.status)
	}
}

func TestPendingCheckoutCanBeCancelled(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.blockBuy = true
	m := newTestModel(ctrl, nil)

	m, buy := send(t, m, keyRunes("c"))
	if buy == nil {
		t.Fatal("c should start the checkout")
	}
	if m.pending != "buy" {
		t.Fatalf("pending = %q", m.pending)
	}
	if !strings.Contains(m.View(), "x: cancel") {
		t.Error("footer should offer to cancel the checkout")
	}

	m, cmd := send(t, m, keyRunes("b"))
	if cmd != nil {
		t.Fatal("no second action while the checkout is pending")
	}

	m, _ = send(t, m, keyRunes("x"))
	m = drain(t, m, buy)

	if m.pending != "" || m.cancelAction != nil {
		t.Errorf("pending action not cleared: %q", m.pending)
	}
	if m.status != "Request cancelled." {
		t.Errorf("status = %q", m.status)
	}

	m, cmd = send(t, m, keyRunes("b"))
	if cmd == nil {
		t.Fatal("actions should be accepted again after cancelling")
	}
	drain(t, m, cmd)
	if got := ctrl.called(); len(got) != 2 || got[1] != "bonus" {
		t.Errorf("calls = %v", got)
	}
}

func TestQuitCancelsPendingAction(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.blockBuy = true
	m := newTestModel(ctrl, nil)

	m, buy := send(t, m, keyRunes("c"))
	_, quit := send(t, m, keyRunes("q"))
	if _, ok := quit().(tea.QuitMsg); !ok {
		t.Fatal("q should quit")
	}

	done := make(chan tea.Msg, 1)
	go func() { done <- buy() }()
	select {
	case msg := <-done:
		if res, ok := msg.(actionDoneMsg); !ok || !errors.Is(res.err, context.Canceled) {
			t.Errorf("msg = %#v", msg)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("checkout still running after quit")
	}
}

func TestSelectToolFocusesPrompt(t *testing.T) {
	ctrl := newFakeController(true)
	m := newTestModel(ctrl, nil)

	m, _ = send(t, m, key(tea.KeyEnter))
	if m.state.Selected != "text_generation" {
		t.Fatalf("selected = %q", m.state.Selected)
	}
	if m.focus != focusPrompt {
		t.Fatal("prompt should take focus after selecting a tool")
	}
	if m.prompt.Placeholder != "Enter your prompt..." {
		t.Errorf("placeholder = %q", m.prompt.Placeholder)
	}

	m = typeText(t, m, "hi")
	if ctrl.prompt != "hi" {
		t.Errorf("prompt = %q", ctrl.prompt)
	}

	// Letters go to the prompt, not to action shortcuts.
	if len(ctrl.called()) != 0 {
		t.Errorf("calls = %v", ctrl.called())
	}

	m, cmd := send(t, m, key(tea.KeyCtrlS))
	drain(t, m, cmd)
	if got := ctrl.called(); len(got) != 1 || got[0] != "submit" {
		t.Errorf("calls = %v", got)
	}
}

func TestImageToolPlaceholder(t *testing.T) {
	ctrl := newFakeController(true)
	m := newTestModel(ctrl, nil)

	m, _ = send(t, m, keyRunes("l"))
	m, _ = send(t, m, key(tea.KeyEnter))
	if m.state.Selected != "image_caption" {
		t.Fatalf("selected = %q", m.state.Selected)
	}
	if m.prompt.Placeholder != "Enter an optional prompt" {
		t.Errorf("placeholder = %q", m.prompt.Placeholder)
	}

	m, _ = send(t, m, key(tea.KeyCtrlF))
	if m.focus != focusFilePicker {
		t.Fatal("ctrl+f should open the file picker for image tools")
	}
	m, _ = send(t, m, key(tea.KeyEsc))
	if m.focus != focusPrompt {
		t.Error("esc should return to the prompt")
	}
}

func TestGridNavigation(t *testing.T) {
	m := newTestModel(newFakeController(true), nil)

	m, _ = send(t, m, keyRunes("j"))
	if m.cursor != 2 {
		t.Errorf("down with two columns: cursor = %d, want 2", m.cursor)
	}
	m, _ = send(t, m, keyRunes("l"))
	if m.cursor != 2 {
		t.Errorf("right past the last tool should clamp, got %d", m.cursor)
	}
	m, _ = send(t, m, keyRunes("k"))
	m, _ = send(t, m, keyRunes("h"))
	if m.cursor != 0 {
		t.Errorf("cursor = %d, want 0", m.cursor)
	}
}

func TestStateChangeRearmsListener(t *testing.T) {
	ctrl := newFakeController(true)
	m := newTestModel(ctrl, nil)

	ctrl.setRequest(app.RequestState{Message: "+3 credits! Total: 8"})
	m, cmd := send(t, m, stateChangedMsg{})
	if cmd == nil {
		t.Fatal("listener must be re-armed after each change")
	}
	if m.state.Request.Message != "+3 credits! Total: 8" {
		t.Errorf("message = %q", m.state.Request.Message)
	}
}

func TestSignOutReturnsToLogin(t *testing.T) {
	ctrl := newFakeController(true)
	m := newTestModel(ctrl, nil)

	m, cmd := send(t, m, keyRunes("o"))
	m = drain(t, m, cmd)

	if m.state.SignedIn() {
		t.Fatal("model should be signed out")
	}
	if !strings.Contains(m.View(), "Sign in to continue") {
		t.Error("login view expected after sign out")
	}
}

func TestQuitKeys(t *testing.T) {
	m := newTestModel(newFakeController(true), nil)

	next, cmd := send(t, m, key(tea.KeyCtrlC))
	if cmd == nil {
		t.Fatal("ctrl+c should quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c should produce tea.QuitMsg")
	}
	if next.View() != "" {
		t.Error("view should be empty after quitting")
	}
}

func TestWindowResize(t *testing.T) {
	ctrl := newFakeController(true)
	ctrl.setResult(map[string]string{"caption": "a cat"})
	m := newTestModel(ctrl, nil)

	m, _ = send(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
	if m.result.Width != 116 {
		t.Errorf("viewport width = %d", m.result.Width)
	}
	if m.renderer == nil {
		t.Error("renderer should be built on resize")
	}
}
