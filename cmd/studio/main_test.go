package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"aistudio/internal/config"
	"aistudio/internal/devserver"
	"aistudio/internal/tools"
	"aistudio/internal/usage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// setup points the globals at a fresh dev server and state directory.
func setup(t *testing.T, opts devserver.Options) {
	t.Helper()
	opts.BcryptCost = bcrypt.MinCost
	ts := httptest.NewServer(devserver.New(opts).Handler())
	t.Cleanup(ts.Close)

	c := config.DefaultConfig()
	c.Backend.BaseURL = ts.URL
	c.Storage.Path = filepath.Join(t.TempDir(), "state", "state.db")
	cfg = c
	logger = zap.NewNop()

	flagUsername, flagPassword, flagEmail = "", "", ""
}

func run(t *testing.T, fn func(*cobra.Command, []string) error) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetContext(context.Background())
	err := fn(cmd, nil)
	return buf.String(), err
}

func signupAnn(t *testing.T) string {
	t.Helper()
	flagUsername, flagEmail, flagPassword = "ann", "ann@example.com", "secret1"
	out, err := run(t, runSignup)
	if err != nil {
		t.Fatalf("runSignup returned error: %v", err)
	}
	return out
}

func TestSignupStatusLogout(t *testing.T) {
	setup(t, devserver.Options{})

	if out := signupAnn(t); !strings.Contains(out, "Signed in as ann") {
		t.Fatalf("expected sign-in confirmation, got: %s", out)
	}

	out, err := run(t, runStatus)
	if err != nil {
		t.Fatalf("runStatus returned error: %v", err)
	}
	for _, want := range []string{"Session:  authenticated", "User:     ann <ann@example.com>", "Tools:    0 runs, 0 failed", "Opens in: dashboard"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q, got: %s", want, out)
		}
	}

	out, err = run(t, runLogin)
	if err != nil {
		t.Fatalf("runLogin returned error: %v", err)
	}
	if !strings.Contains(out, "Already signed in as ann") {
		t.Errorf("expected already-signed-in notice, got: %s", out)
	}

	out, err = run(t, runLogout)
	if err != nil {
		t.Fatalf("runLogout returned error: %v", err)
	}
	if !strings.Contains(out, "Signed out ann") {
		t.Errorf("expected sign-out confirmation, got: %s", out)
	}

	out, _ = run(t, runStatus)
	if !strings.Contains(out, "Session:  anonymous") || !strings.Contains(out, "Opens in: public-chat") {
		t.Errorf("expected anonymous status after logout, got: %s", out)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	setup(t, devserver.Options{})
	signupAnn(t)
	if _, err := run(t, runLogout); err != nil {
		t.Fatal(err)
	}

	flagPassword = "wrong-password"
	_, err := run(t, runLogin)
	if err == nil || err.Error() != "Invalid username or password" {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestLoginRequiresPassword(t *testing.T) {
	setup(t, devserver.Options{})
	flagUsername = "ann"
	t.Setenv("AISTUDIO_PASSWORD", "")

	if _, err := run(t, runLogin); err == nil {
		t.Fatal("expected missing password error")
	}
}

func TestPasswordFromEnv(t *testing.T) {
	flagPassword = ""
	t.Setenv("AISTUDIO_PASSWORD", "from-env")
	if got := password(); got != "from-env" {
		t.Fatalf("password() = %q", got)
	}
}

func TestDegradedSignupAsksForLogin(t *testing.T) {
	setup(t, devserver.Options{DegradedAuth: true})

	out := signupAnn(t)
	if !strings.Contains(out, "Account created! Please login with your credentials.") {
		t.Fatalf("expected login notice, got: %s", out)
	}

	out, _ = run(t, runStatus)
	if !strings.Contains(out, "Session:  anonymous") {
		t.Errorf("degraded signup must not persist a session, got: %s", out)
	}
}

func TestStatusShowsTopTool(t *testing.T) {
	setup(t, devserver.Options{})
	signupAnn(t)

	tracker, err := usage.NewTracker(filepath.Dir(cfg.Storage.Path))
	if err != nil {
		t.Fatal(err)
	}
	tracker.Track("ann", tools.Sentiment.String(), true)
	tracker.Track("ann", tools.Sentiment.String(), false)
	tracker.Track("ann", tools.Salary.String(), true)
	for i := 0; i < 5; i++ {
		tracker.Track("bob", "teleporter", true)
	}
	if err := tracker.Close(); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, runStatus)
	if err != nil {
		t.Fatalf("runStatus returned error: %v", err)
	}
	for _, want := range []string{"Tools:    3 runs, 1 failed", "Top tool: Sentiment Analyzer (2 runs)"} {
		if !strings.Contains(out, want) {
			t.Errorf("status missing %q, got: %s", want, out)
		}
	}
}

func TestLogoutWhenSignedOut(t *testing.T) {
	setup(t, devserver.Options{})
	out, err := run(t, runLogout)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Not signed in.") {
		t.Errorf("got: %s", out)
	}
}
