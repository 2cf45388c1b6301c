package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"aistudio/internal/backend"
	"aistudio/internal/credstore"
	"aistudio/internal/logging"
	"aistudio/internal/types"

	"golang.org/x/sync/singleflight"
)

// Backend is the slice of the backend client the manager needs.
type Backend interface {
	Validate(ctx context.Context, token string) (bool, error)
	Login(ctx context.Context, creds types.Credentials) (backend.AuthResponse, error)
	Register(ctx context.Context, creds types.Credentials) (backend.AuthResponse, error)
	Logout(ctx context.Context, token string) error
}

// CredentialStore is the persisted copy of the session.
type CredentialStore interface {
	Load(ctx context.Context) (credstore.Credential, error)
	Save(ctx context.Context, c credstore.Credential) error
	Clear(ctx context.Context) error
}

// Manager owns the session.
type Manager struct {
	store         CredentialStore
	backend       Backend
	logoutTimeout time.Duration

	mu      sync.Mutex
	sess    Session
	settled bool   // Restore has produced its outcome
	gen     uint64 // bumped by Login and Logout; stale restores are dropped

	restoreGroup singleflight.Group
}

// clearTimeout bounds removal of the persisted credential.
const clearTimeout = 2 * time.Second

// Option configures a Manager.
type Option func(*Manager)

// WithLogoutTimeout bounds the best-effort logout notification.
func WithLogoutTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.logoutTimeout = d
		}
	}
}

// NewManager creates a manager in StatusValidating.
func NewManager(store CredentialStore, be Backend, opts ...Option) *Manager {
	m := &Manager{
		store:         store,
		backend:       be,
		logoutTimeout: 3 * time.Second,
		sess:          Session{Status: StatusValidating},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current session.
func (m *Manager) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sess
}

// Token returns the current token, or "" when not authenticated.
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sess.Status != StatusAuthenticated {
		return ""
	}
	return m.sess.Token
}

// Restore reads the persisted credential and validates it. It never
// returns an error: corruption, rejection and network failure all clear the
// credential and yield NoSession. Validation happens once per manager;
// concurrent first callers share it and later callers get the outcome of
// the current session without touching storage or network.
func (m *Manager) Restore(ctx context.Context) Outcome {
	m.mu.Lock()
	if m.settled {
		o := m.currentOutcomeLocked()
		m.mu.Unlock()
		return o
	}
	m.mu.Unlock()

	v, _, _ := m.restoreGroup.Do("restore", func() (interface{}, error) {
		m.mu.Lock()
		if m.settled {
			o := m.currentOutcomeLocked()
			m.mu.Unlock()
			return o, nil
		}
		m.mu.Unlock()
		return m.restore(ctx), nil
	})
	return v.(Outcome)
}

func (m *Manager) restore(ctx context.Context) Outcome {
	timer := logging.StartTimer(logging.CategorySession, "Restore")
	defer timer.Stop()

	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()

	cred, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, credstore.ErrNotFound):
		logging.Session("No persisted credential")
		return m.settle(gen, Session{Status: StatusAnonymous})
	case err != nil:
		logging.SessionWarn("Persisted credential unusable, clearing: %v", err)
		return m.invalidate(ctx, gen)
	}

	valid, err := m.backend.Validate(ctx, cred.Token)
	if err != nil {
		logging.SessionWarn("Validation failed, clearing credential: %v", err)
		return m.invalidate(ctx, gen)
	}
	if !valid {
		logging.Session("Backend reported token invalid, clearing credential")
		return m.invalidate(ctx, gen)
	}

	// The validate endpoint vouches for the token only; the profile shown is
	// the one cached at login.
	logging.Session("Restored session for %s", cred.Profile.Username)
	return m.settle(gen, Session{Status: StatusAuthenticated, Token: cred.Token, Profile: cred.Profile})
}

// settle applies a restore result unless Login or Logout ran meanwhile.
func (m *Manager) settle(gen uint64, s Session) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen == m.gen {
		m.sess = s
	} else {
		logging.SessionDebug("Restore result dropped: session changed while validating")
	}
	m.settled = true
	return m.currentOutcomeLocked()
}

// invalidate passes through StatusInvalid while the credential is cleared.
func (m *Manager) invalidate(ctx context.Context, gen uint64) Outcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settled = true
	if gen != m.gen {
		// A login persisted a fresh credential; do not clear it.
		return m.currentOutcomeLocked()
	}
	m.sess = Session{Status: StatusInvalid}
	if err := m.clearStored(ctx); err != nil {
		logging.SessionError("Failed to clear credential: %v", err)
	}
	m.sess = Session{Status: StatusAnonymous}
	return m.currentOutcomeLocked()
}

// clearStored deletes the credential even when ctx has already expired: a
// validation that timed out must still leave nothing on disk.
func (m *Manager) clearStored(ctx context.Context) error {
	clearCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), clearTimeout)
	defer cancel()
	return m.store.Clear(clearCtx)
}

func (m *Manager) currentOutcomeLocked() Outcome {
	if m.sess.Authenticated() {
		return Outcome{Kind: Valid, Profile: m.sess.Profile, Token: m.sess.Token}
	}
	return Outcome{Kind: NoSession}
}

// Login installs an authenticated session. An empty token or a profile
// without a username is ErrMalformedCredentials and leaves state alone. A
// persistence failure is logged; the in-memory session still holds.
func (m *Manager) Login(ctx context.Context, profile types.UserProfile, token string) error {
	if strings.TrimSpace(token) == "" || strings.TrimSpace(profile.Username) == "" {
		logging.SessionWarn("Login refused: token or profile missing")
		return ErrMalformedCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.settled = true
	m.sess = Session{Status: StatusAuthenticated, Token: token, Profile: profile}

	if err := m.store.Save(ctx, credstore.Credential{Token: token, Profile: profile}); err != nil {
		logging.SessionError("Credential not persisted, session is memory-only: %v", err)
	}
	logging.Session("Logged in as %s", profile.Username)
	return nil
}

// Logout clears the session. The backend is told on a best-effort basis
// after local state is gone; its failure is ignored. Calling Logout on an
// anonymous session is a no-op apart from clearing storage again.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.sess.Token
	m.gen++
	m.settled = true
	m.sess = Session{Status: StatusAnonymous}
	if err := m.clearStored(ctx); err != nil {
		logging.SessionError("Failed to clear credential on logout: %v", err)
	}
	m.mu.Unlock()

	if token == "" {
		return
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.logoutTimeout)
	defer cancel()
	if err := m.backend.Logout(notifyCtx, token); err != nil {
		logging.SessionDebug("Logout notification failed (ignored): %v", err)
	}
	logging.Session("Logged out")
}

// Authenticate submits credentials to the login or register endpoint and,
// on a complete reply, installs the session. Errors are *AuthError.
func (m *Manager) Authenticate(ctx context.Context, mode Mode, creds types.Credentials) (AuthResult, error) {
	timer := logging.StartTimer(logging.CategorySession, "Authenticate/"+mode.String())
	defer timer.Stop()

	call := m.backend.Login
	rejected := msgLoginFailed
	if mode == ModeSignup {
		call = m.backend.Register
		rejected = msgSignupFailed
	}

	resp, err := call(ctx, creds)
	if err != nil {
		logging.SessionWarn("%s request failed: %v", mode, err)
		return AuthResult{}, &AuthError{Kind: ErrUnavailable, Message: msgNetwork, cause: err}
	}

	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = rejected
		}
		logging.Session("%s rejected for %s", mode, creds.Username)
		return AuthResult{}, &AuthError{Kind: ErrRejected, Message: msg}
	}

	if !resp.Complete() {
		logging.SessionWarn("%s succeeded without user or session token", mode)
		return AuthResult{}, &AuthError{Kind: ErrContractViolation, Message: incompleteMessage(mode, resp)}
	}

	if err := m.Login(ctx, *resp.User, resp.SessionToken); err != nil {
		return AuthResult{}, &AuthError{Kind: ErrContractViolation, Message: msgMissingSession, cause: err}
	}
	return AuthResult{Profile: *resp.User, Token: resp.SessionToken}, nil
}

func incompleteMessage(mode Mode, resp backend.AuthResponse) string {
	if mode == ModeLogin {
		return msgMissingSession
	}
	if resp.UserID != "" {
		return msgSignupLoginByID
	}
	return msgSignupLoginPlain
}
