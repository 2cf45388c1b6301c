// Test utilities for driving the TUI against an in-process dev server.
package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"aistudio/cmd/studio/config"
	"aistudio/cmd/studio/ui"
	"aistudio/internal/backend"
	"aistudio/internal/credstore"
	"aistudio/internal/devserver"
	"aistudio/internal/session"
	"aistudio/internal/studio"
	"aistudio/internal/types"
	"aistudio/internal/usage"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/crypto/bcrypt"
)

var annCreds = types.Credentials{Username: "ann", Email: "ann@example.com", Password: "secret1"}

// harness owns one dev server and the credential KV shared by every model
// it builds, so a second model sees what the first persisted.
type harness struct {
	t     *testing.T
	api   *backend.Client
	srv   *devserver.Server
	kv    *credstore.MemoryKV
	usage *usage.Tracker
	saved []config.Prefs

	mu         sync.Mutex
	chatTokens []string // Authorization header of each chat request
}

func newHarness(t *testing.T, opts devserver.Options) *harness {
	t.Helper()
	opts.BcryptCost = bcrypt.MinCost
	h := &harness{
		t:   t,
		srv: devserver.New(opts),
		kv:  credstore.NewMemoryKV(),
	}
	handler := h.srv.Handler()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/chat/send" {
			h.mu.Lock()
			h.chatTokens = append(h.chatTokens, r.Header.Get("Authorization"))
			h.mu.Unlock()
		}
		handler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)
	h.api = backend.New(ts.URL, 5*time.Second)
	return h
}

func (h *harness) sentChatTokens() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.chatTokens...)
}

func (h *harness) register(creds types.Credentials) backend.AuthResponse {
	h.t.Helper()
	resp, err := h.api.Register(context.Background(), creds)
	if err != nil {
		h.t.Fatalf("register %s: %v", creds.Username, err)
	}
	return resp
}

// unbooted returns a sized model that has not run Init.
func (h *harness) unbooted(width int) Model {
	h.t.Helper()
	mgr := session.NewManager(credstore.New(h.kv), h.api)
	m := New(Deps{
		Studio:       studio.New(mgr, nil),
		API:          h.api,
		BootTimeout:  5 * time.Second,
		RobotTimeout: time.Second,
		Prefs:        config.DefaultPrefs(),
		SavePrefs: func(p config.Prefs) error {
			h.saved = append(h.saved, p)
			return nil
		},
		Styles: ui.NewStyles(ui.LightTheme()),
		Usage:  h.usage,
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: width, Height: 40})
	return next.(Model)
}

// model returns a booted wide-screen model.
func (h *harness) model() Model {
	h.t.Helper()
	m := h.unbooted(140)
	return drive(h.t, m, m.Init())
}

// signedIn boots, registers ann and logs in through the login form.
func (h *harness) signedIn() Model {
	h.t.Helper()
	h.register(annCreds)
	m := h.model()
	m = press(h.t, m, key(tea.KeyCtrlG))
	m.loginForm.set(loginUsername, annCreds.Username)
	m.loginForm.set(loginPassword, annCreds.Password)
	m.loginForm.setFocus(loginPassword)
	m = press(h.t, m, key(tea.KeyEnter))
	return m
}

// drive runs cmd and every command it produces, feeding the model's own
// messages back into Update. Timer-driven messages (spinner ticks, cursor
// blinks) are dropped so tests never sleep.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case bootMsg, authMsg, logoutMsg, chatMsg, toolMsg, uploadMsg, robotMsg:
			next, more := m.Update(msg)
			m = next.(Model)
			queue = append(queue, more)
		}
	}
	return m
}

// press sends one key and drives whatever it started.
func press(t *testing.T, m Model, k tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(k)
	return drive(t, next.(Model), cmd)
}

func key(k tea.KeyType) tea.KeyMsg {
	return tea.KeyMsg{Type: k}
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func alt(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s), Alt: true}
}

func lastLine(p *chatPanel) chatLine {
	return p.lines[len(p.lines)-1]
}
