package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"aibuddies/internal/auth"
	"aibuddies/internal/logging"
	"aibuddies/internal/session"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginProvider string
	loginEmail    string
)

// authCmd manages the signed-in identity
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage your AIBUDDIES account session",
	Long: `Sign in, create an account, or sign out.

Available subcommands:
  login  - Sign in with email/password or an OAuth provider
  signup - Create an account with email/password
  logout - Sign out and forget the stored session
  status - Show who is signed in`,
}

var authLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in",
	Long: `Sign in with email and password, or through an OAuth provider.

Examples:
  aibuddies auth login --email me@example.com
  aibuddies auth login --provider github`,
	RunE: runAuthLogin,
}

var authSignupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account",
	RunE:  runAuthSignup,
}

var authLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out",
	RunE:  runAuthLogout,
}

var authStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show authentication status",
	RunE:  runAuthStatus,
}

// authFlow signs in through the identity provider and persists the result in
// the session store, which notifies the app.
type authFlow struct {
	client       *auth.Client
	store        *session.Store
	providers    []string
	callbackAddr string
	timeout      time.Duration
	open         auth.Opener
	notify       func(string)
}

func (f *authFlow) SignInWithPassword(ctx context.Context, email, password string) error {
	sess, err := f.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	logging.Auth("signed in as %s", email)
	return f.store.SignIn(sess)
}

// SignUp reports pending=true when the account must be confirmed by email
// before a session is issued.
func (f *authFlow) SignUp(ctx context.Context, email, password string) (bool, error) {
	sess, err := f.client.SignUp(ctx, auth.SignUpRequest{Email: email, Password: password})
	if err != nil {
		return false, err
	}
	if sess == nil {
		logging.Auth("sign-up for %s awaiting confirmation", email)
		return true, nil
	}
	return false, f.store.SignIn(sess)
}

func (f *authFlow) SignInWithProvider(ctx context.Context, provider string) error {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}
	sess, err := f.client.LoginWithProvider(ctx, provider, f.callbackAddr, f.open, f.notify)
	if err != nil {
		return err
	}
	logging.Auth("signed in with %s as %s", provider, sess.Email())
	return f.store.SignIn(sess)
}

func (f *authFlow) Providers() []string {
	return f.providers
}

func runAuthLogin(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	flow := rt.authFlow()
	out := cmd.OutOrStdout()

	if loginProvider != "" {
		fmt.Fprintf(out, "Opening %s sign-in in your browser...\n", loginProvider)
		if err := flow.SignInWithProvider(cmd.Context(), loginProvider); err != nil {
			return err
		}
		fmt.Fprintf(out, "Signed in as %s\n", rt.store.Current().Email())
		return nil
	}

	email, password, err := readCredentials(cmd.InOrStdin(), out, loginEmail)
	if err != nil {
		return err
	}
	if err := flow.SignInWithPassword(cmd.Context(), email, password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Signed in as %s\n", email)
	return nil
}

func runAuthSignup(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	email, password, err := readCredentials(cmd.InOrStdin(), out, loginEmail)
	if err != nil {
		return err
	}
	pending, err := rt.authFlow().SignUp(cmd.Context(), email, password)
	if err != nil {
		return err
	}
	if pending {
		fmt.Fprintln(out, "Check your email for the confirmation link.")
		return nil
	}
	fmt.Fprintf(out, "Signed in as %s\n", email)
	return nil
}

func runAuthLogout(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	if !rt.store.Current().Valid() {
		fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
		return nil
	}
	if err := rt.store.SignOut(cmd.Context()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
	return nil
}

func runAuthStatus(cmd *cobra.Command, args []string) error {
	rt, err := newRuntime(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	out := cmd.OutOrStdout()
	sess := rt.store.Current()
	if !sess.Valid() {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}

	fmt.Fprintf(out, "Signed in as %s\n", sess.Email())
	if exp := sess.Expiry(); !exp.IsZero() {
		fmt.Fprintf(out, "Access token expires %s\n", exp.Local().Format(time.RFC1123))
	}
	fmt.Fprintf(out, "Session file: %s\n", rt.store.Path())
	return nil
}

// readCredentials prompts for whatever is missing. The password is read
// without echo when stdin is a terminal.
func readCredentials(in io.Reader, out io.Writer, email string) (string, string, error) {
	reader := bufio.NewReader(in)

	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return "", "", fmt.Errorf("email is required")
	}

	fmt.Fprint(out, "Password: ")
	var password string
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if password == "" {
		return "", "", fmt.Errorf("password is required")
	}
	return email, password, nil
}
