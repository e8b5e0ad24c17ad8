package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"aibuddies/internal/api"
	"aibuddies/internal/app"
	"aibuddies/internal/checkout"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	runPrompt string
	runImage  string
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the available tools and their credit costs",
	RunE:  runTools,
}

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show your credit balance",
	RunE:  runProfile,
}

var bonusCmd = &cobra.Command{
	Use:   "bonus",
	Short: "Claim the daily bonus",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, func(ctx context.Context, a *app.App) error {
			return a.ClaimBonus(ctx)
		})
	},
}

var adCmd = &cobra.Command{
	Use:   "ad",
	Short: "Watch an ad for credits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, func(ctx context.Context, a *app.App) error {
			return a.WatchAd(ctx)
		})
	},
}

var buyCmd = &cobra.Command{
	Use:   "buy",
	Short: "Buy 500 credits (₹10) through the checkout page",
	Long: `Creates an order and opens the payment checkout in your browser.
The command waits for the checkout to finish, at most checkout.timeout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, func(ctx context.Context, a *app.App) error {
			fmt.Fprintln(cmd.OutOrStdout(), "Opening checkout in your browser...")
			return a.BuyCredits(ctx)
		})
	},
}

var runCmd = &cobra.Command{
	Use:   "run <tool>",
	Short: "Run a tool",
	Long: `Runs a tool with a prompt, or with an image for image tools.

Examples:
  aibuddies run text_generation --prompt "a haiku about Go"
  aibuddies run image_caption --image cat.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAction(cmd, func(ctx context.Context, a *app.App) error {
			// Without a catalog the backend gets to reject the name.
			if cat := a.Snapshot().Catalog; cat != nil {
				if _, ok := cat.Lookup(args[0]); !ok {
					return fmt.Errorf("unknown tool %q; run 'aibuddies tools' to list them", args[0])
				}
			}
			a.SelectTool(args[0])
			a.SetPrompt(runPrompt)
			a.SetImage(runImage)
			return a.Submit(ctx)
		})
	},
}

// runAction starts the app, runs fn and prints what the dashboard would show.
func runAction(cmd *cobra.Command, fn func(context.Context, *app.App) error) error {
	rt, err := newRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := cmd.Context()
	rt.app.Start(ctx)
	return report(cmd, rt.app, fn(ctx, rt.app))
}

// report prints the message and result and turns the error banner into the
// command's error.
func report(cmd *cobra.Command, a *app.App, actionErr error) error {
	st := a.Snapshot()
	out := cmd.OutOrStdout()

	if errors.Is(actionErr, checkout.ErrDismissed) {
		fmt.Fprintln(out, "Checkout closed.")
		return nil
	}
	if st.Request.Message != "" {
		fmt.Fprintln(out, st.Request.Message)
	}
	if res := st.PrettyResult(); res != "" {
		fmt.Fprintln(out, res)
	}
	if st.Request.Error != "" {
		return errors.New(st.Request.Error)
	}
	return actionErr
}

// runTools lists the catalog. It needs no session, so it skips the identity
// provider settings and the session store entirely.
func runTools(cmd *cobra.Command, args []string) error {
	if err := cfg.ValidateBackend(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	client := api.New(cfg.API.BaseURL, nil, api.WithTimeout(cfg.GetAPITimeout()))

	cat, err := client.Tools(cmd.Context())
	if err != nil {
		return err
	}
	if len(cat.Tools) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tools available.")
		return nil
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("TOOL", "COST", "DESCRIPTION")
	for _, tool := range cat.Tools {
		t.Row(tool.Key, strconv.Itoa(tool.Cost), tool.Description)
	}
	fmt.Fprintln(cmd.OutOrStdout(), t.String())
	return nil
}

func runProfile(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	rt.app.Start(cmd.Context())
	st := rt.app.Snapshot()
	if !st.SignedIn() {
		return fmt.Errorf("not signed in; run 'aibuddies auth login' first")
	}
	if st.Request.Error != "" {
		return errors.New(st.Request.Error)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, st.CreditsLabel())
	if st.Profile != nil {
		fmt.Fprintf(out, "User: %s\n", st.Session.Email())
	}
	return nil
}
