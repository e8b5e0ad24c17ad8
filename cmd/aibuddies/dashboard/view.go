package dashboard

import (
	"fmt"
	"path/filepath"
	"strings"

	"aibuddies/cmd/aibuddies/ui"
	"aibuddies/internal/api"

	"github.com/charmbracelet/lipgloss"
)

// View renders the current screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.state.SignedIn() {
		return m.loginView()
	}

	sections := []string{
		m.headerView(),
		m.creditsView(),
		m.toolsView(),
	}
	if m.state.Selected != "" {
		sections = append(sections, m.formView())
	}
	sections = append(sections, m.resultView(), m.footerView())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) loginView() string {
	s := m.styles
	var b strings.Builder

	b.WriteString(ui.Logo(s))
	b.WriteString("\n")
	if m.loginMode == modeSignUp {
		b.WriteString(s.Subtitle.Render("Create an account"))
	} else {
		b.WriteString(s.Subtitle.Render("Sign in to continue"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.emailInput.View())
	b.WriteString("\n")
	b.WriteString(m.passwordInput.View())
	b.WriteString("\n\n")

	submit := "Sign In"
	toggle := "Don't have an account? Sign Up"
	if m.loginMode == modeSignUp {
		submit = "Sign Up"
		toggle = "Already have an account? Sign In"
	}
	b.WriteString(m.button(submit, m.loginFocus <= 1 && !m.loggingIn))
	b.WriteString("\n")
	b.WriteString(m.focusable(toggle, m.loginFocus == 2))
	b.WriteString("\n")

	for i, p := range m.auth.Providers() {
		if p == "" {
			continue
		}
		label := "Continue with " + strings.ToUpper(p[:1]) + p[1:]
		b.WriteString(m.focusable(label, m.loginFocus == 3+i))
		b.WriteString("\n")
	}

	if m.loggingIn {
		b.WriteString("\n" + m.spinner.View() + " ")
	}
	if m.loginInfo != "" {
		b.WriteString(s.Muted.Render(m.loginInfo))
		b.WriteString("\n")
	}
	if m.loginErr != "" {
		b.WriteString("\n" + s.Error.Render(m.loginErr) + "\n")
	}

	b.WriteString("\n")
	b.WriteString(s.Footer.Render("tab: next • enter: select • ctrl+t: sign in/up • esc: quit"))
	return s.Content.Render(b.String())
}

func (m Model) headerView() string {
	s := m.styles
	right := []string{s.Credits.Render(m.state.CreditsLabel())}
	if m.state.Profile != nil {
		right = append(right, s.Muted.Render("User: "+m.state.Session.Email()))
	}
	right = append(right, s.Muted.Render("[o] Sign Out"))

	left := ui.Logo(s)
	rightStr := strings.Join(right, "  ")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(rightStr)-2, 1)
	line := left + strings.Repeat(" ", gap) + rightStr
	return s.Header.Render(line) + "\n" + s.RenderDivider(max(m.width-2, 1))
}

func (m Model) creditsView() string {
	s := m.styles
	loading := m.state.Request.Loading
	enabled := !loading && m.pending == ""
	label := func(text string) string {
		if loading {
			return "..."
		}
		return text
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top,
		m.button("[b] "+label("Claim Daily Bonus"), enabled),
		m.button("[a] "+label("Watch Ad for Credits"), enabled),
		m.button("[c] "+label("Buy Credits (₹10)"), enabled),
	)
	return s.Title.Render("Get Credits") + "\n" + buttons + "\n"
}

func (m Model) toolsView() string {
	s := m.styles
	title := s.Title.Render("Select a Tool")
	if m.toolCount() == 0 {
		return title + "\n" + s.Muted.Render("No tools available. Press r to reload.") + "\n"
	}

	cols := m.columns()
	selected := m.selectedIndex()
	var rows []string
	var row []string
	for i, t := range m.state.Catalog.Tools {
		row = append(row, m.toolCard(t, i == m.cursor && m.focus == focusTools, i == selected))
		if len(row) == cols {
			rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	return title + "\n" + lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func (m Model) toolCard(t api.Tool, cursor, selected bool) string {
	s := m.styles
	style := s.ToolCard
	if selected || cursor {
		style = s.ToolCardSelected
	}

	name := t.DisplayName()
	if cursor {
		name = s.Focused.Render("› " + name)
	} else {
		name = s.Bold.Render(name)
	}
	lines := []string{name}
	if m.cfg.ShowDescriptions && t.Description != "" {
		lines = append(lines, s.Muted.Render(t.Description))
	}
	lines = append(lines, s.ToolCost.Render(costLabel(m.state.Catalog.Cost(t.Key))))
	return style.Render(strings.Join(lines, "\n"))
}

func costLabel(cost int) string {
	return fmt.Sprintf("Cost: %d credit(s)", cost)
}

func (m Model) formView() string {
	s := m.styles
	name := api.Tool{Key: m.state.Selected}.DisplayName()

	var b strings.Builder
	b.WriteString(s.Title.Render(name))
	b.WriteString("\n")

	if m.state.SelectedIsImage() {
		b.WriteString(s.Bold.Render("Upload Image"))
		b.WriteString(" ")
		if m.state.ImagePath != "" {
			b.WriteString(s.Body.Render(filepath.Base(m.state.ImagePath)))
		} else {
			b.WriteString(s.Muted.Render("no file selected"))
		}
		b.WriteString(s.Muted.Render("  (ctrl+f to browse)"))
		b.WriteString("\n")
		if m.focus == focusFilePicker {
			b.WriteString(s.Panel.Render(m.filepicker.View()))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.prompt.View())
	b.WriteString("\n")

	submit := fmt.Sprintf("Generate (Cost: %d)", m.state.SelectedCost())
	if m.state.Request.Loading {
		submit = "Generating..."
	}
	b.WriteString(m.button("[ctrl+s] "+submit, !m.state.Request.Loading))
	return s.Panel.Width(max(m.width-4, 20)).Render(b.String())
}

func (m Model) resultView() string {
	s := m.styles
	var b strings.Builder
	b.WriteString(s.Title.Render("Result"))
	b.WriteString("\n")

	req := m.state.Request
	if req.Loading {
		b.WriteString(m.spinner.View() + " " + s.Muted.Render("Loading..."))
		b.WriteString("\n")
	}
	if req.Error != "" {
		b.WriteString(s.Error.Render(req.Error))
		b.WriteString("\n")
	}
	if req.Message != "" {
		b.WriteString(s.Success.Render(req.Message))
		b.WriteString("\n")
	}
	if len(req.Result) > 0 {
		b.WriteString(m.result.View())
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) footerView() string {
	s := m.styles
	var help string
	switch m.focus {
	case focusPrompt:
		help = "ctrl+s: generate • ctrl+f: pick image • tab/esc: back to tools"
	case focusFilePicker:
		help = "enter: choose • esc: cancel"
	default:
		help = "arrows: move • enter: select • g: generate • r: reload • q: quit"
		if m.pending == "buy" {
			help = "waiting for checkout • x: cancel • q: quit"
		} else if m.pending != "" {
			help = "x: cancel • " + help
		}
	}
	if m.status != "" {
		return s.Warning.Render(m.status) + "\n" + s.Footer.Render(help)
	}
	return s.Footer.Render(help)
}

func (m Model) button(label string, enabled bool) string {
	if enabled {
		return m.styles.Button.Render(label)
	}
	return m.styles.ButtonDisabled.Render(label)
}

func (m Model) focusable(label string, focused bool) string {
	if focused {
		return m.styles.Focused.Render("› " + label)
	}
	return m.styles.Muted.Render("  " + label)
}
