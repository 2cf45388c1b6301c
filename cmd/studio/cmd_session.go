package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"aistudio/internal/backend"
	"aistudio/internal/credstore"
	"aistudio/internal/router"
	"aistudio/internal/session"
	"aistudio/internal/studio"
	"aistudio/internal/tools"
	"aistudio/internal/types"
	"aistudio/internal/usage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// studioEnv is one wired studio plus what it needs to shut down.
type studioEnv struct {
	studio *studio.Studio
	api    *backend.Client
	kv     *credstore.SQLiteKV
}

func (e *studioEnv) Close() {
	if err := e.kv.Close(); err != nil {
		logger.Warn("closing credential store", zap.Error(err))
	}
}

// openStudio opens the credential store and wires a studio around it.
func openStudio() (*studioEnv, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	kv, err := credstore.OpenSQLite(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}

	api := backend.New(cfg.APIBaseURL(), cfg.GetTimeout())
	mgr := session.NewManager(credstore.New(kv), api, session.WithLogoutTimeout(cfg.GetLogoutTimeout()))
	st := studio.New(mgr, nil, studio.WithObserver(func(t router.Transition) {
		logger.Debug("view changed", zap.Stringer("from", t.From), zap.Stringer("to", t.To), zap.String("cause", t.Cause))
	}))
	return &studioEnv{studio: st, api: api, kv: kv}, nil
}

// boot restores the session within the validate timeout.
func (e *studioEnv) boot(ctx context.Context) (studio.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.GetValidateTimeout())
	defer cancel()
	return e.studio.Boot(ctx)
}

func password() string {
	if flagPassword != "" {
		return flagPassword
	}
	return os.Getenv("AISTUDIO_PASSWORD")
}

func runLogin(cmd *cobra.Command, args []string) error {
	creds := types.Credentials{Username: flagUsername, Password: password()}
	return authenticate(cmd, router.GoLogin, creds, (*studio.Studio).SubmitLogin)
}

func runSignup(cmd *cobra.Command, args []string) error {
	creds := types.Credentials{Username: flagUsername, Email: flagEmail, Password: password()}
	return authenticate(cmd, router.GoSignup, creds, (*studio.Studio).SubmitSignup)
}

type submitFunc func(*studio.Studio, context.Context, types.Credentials) (studio.Snapshot, error)

func authenticate(cmd *cobra.Command, intent router.Intent, creds types.Credentials, submit submitFunc) error {
	out := cmd.OutOrStdout()
	if creds.Password == "" {
		return errors.New("password required (--password or AISTUDIO_PASSWORD)")
	}

	env, err := openStudio()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := env.boot(ctx)
	if err != nil {
		return err
	}
	if snap.View == router.Dashboard {
		fmt.Fprintf(out, "Already signed in as %s. Run \"studio logout\" first.\n", snap.Session.Profile.DisplayName())
		return nil
	}

	if _, err := env.studio.Navigate(intent); err != nil {
		return err
	}
	snap, err = submit(env.studio, ctx, creds)
	if snap.View == router.Dashboard {
		logger.Info("signed in", zap.String("user", snap.Session.Profile.Username))
		fmt.Fprintf(out, "✓ Signed in as %s\n", snap.Session.Profile.DisplayName())
		return nil
	}
	if snap.Flash.Kind == router.FlashNotice {
		fmt.Fprintln(out, snap.Flash.Text)
		return nil
	}
	if err != nil {
		return errors.New(session.UserMessage(err))
	}
	return fmt.Errorf("sign-in did not complete (%s)", snap.View)
}

func runLogout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	env, err := openStudio()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := env.boot(ctx)
	if err != nil {
		return err
	}
	if !snap.Session.Authenticated() {
		fmt.Fprintln(out, "Not signed in.")
		return nil
	}
	user := snap.Session.Profile.DisplayName()
	env.studio.Logout(ctx)
	fmt.Fprintf(out, "Signed out %s.\n", user)
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	env, err := openStudio()
	if err != nil {
		return err
	}
	defer env.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	snap, err := env.boot(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "AI Studio Status")
	fmt.Fprintln(out, "================")
	fmt.Fprintf(out, "Backend:  %s\n", cfg.APIBaseURL())
	fmt.Fprintf(out, "Storage:  %s\n", cfg.Storage.Path)
	fmt.Fprintf(out, "Session:  %s\n", snap.Session.Status)
	if snap.Session.Authenticated() {
		p := snap.Session.Profile
		email := p.Email
		if email == "" {
			email = "Not provided"
		}
		fmt.Fprintf(out, "User:     %s <%s>\n", p.DisplayName(), email)
		if tracker, err := usage.NewTracker(filepath.Dir(cfg.Storage.Path)); err == nil {
			runs := tracker.User(p.Username)
			fmt.Fprintf(out, "Tools:    %d runs, %d failed\n", runs.Runs, runs.Failures)
			if name, n := topTool(env.studio.Registry(), tracker.Stats().ByTool); n > 0 {
				fmt.Fprintf(out, "Top tool: %s (%d runs)\n", name, n)
			}
		}
	}
	fmt.Fprintf(out, "Opens in: %s\n", snap.View)
	return nil
}

// topTool picks the most used tool on this machine. Entries whose stored name
// no longer resolves are skipped; ties go to the name that sorts first.
func topTool(reg *tools.Registry, byTool map[string]usage.RunCounts) (string, int64) {
	var best string
	var bestRuns int64
	for key, counts := range byTool {
		tool, err := reg.Resolve(key)
		if err != nil {
			logger.Debug("skipping usage entry", zap.String("tool", key), zap.Error(err))
			continue
		}
		if counts.Runs > bestRuns || (counts.Runs == bestRuns && tool.Name < best) {
			best, bestRuns = tool.Name, counts.Runs
		}
	}
	return best, bestRuns
}
