package main

import (
	"fmt"

	"aibuddies/cmd/aibuddies/dashboard"
	"aibuddies/cmd/aibuddies/ui"
	"aibuddies/internal/logging"
	"aibuddies/internal/session"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// runDashboard launches the interactive dashboard.
func runDashboard(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()

	if cfg.Session.Watch {
		var w *session.Watcher
		w, err = rt.store.Watch(ctx)
		if err != nil {
			logging.SessionWarn("session watch disabled: %v", err)
		} else {
			defer w.Stop()
		}
	}

	model := dashboard.New(ctx, rt.app, rt.authFlow(), dashboard.Config{
		Styles:           ui.NewStyles(ui.ThemeFor(cfg.UI.Theme)),
		ShowDescriptions: cfg.UI.ShowDescriptions,
		GridColumns:      cfg.UI.GridColumns,
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	rt.notify = dashboard.Notifier(p)

	logging.UI("dashboard started")
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	logging.UI("dashboard exited")
	return nil
}
