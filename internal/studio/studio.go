// Package studio composes the session manager, the view router and the tool
// dispatcher, and runs every user or network event to completion under one
// lock.
//
// After each event the studio re-checks that the dashboard is never shown
// without an authenticated session and repairs the view if it is.
package studio

import (
	"context"
	"errors"
	"sync"

	"aistudio/internal/logging"
	"aistudio/internal/router"
	"aistudio/internal/session"
	"aistudio/internal/tools"
	"aistudio/internal/types"
)

var (
	// ErrNotInDashboard rejects tool operations outside the dashboard.
	ErrNotInDashboard = errors.New("tools are only available on the dashboard")
	// ErrAlreadyBooting is returned by a second Boot.
	ErrAlreadyBooting = errors.New("studio already booted")
)

// Snapshot is the read-only state a UI renders.
type Snapshot struct {
	View      router.View
	Flash     router.Flash
	Session   session.Session
	Selection tools.Selection
	// Panel is the tool on screen (Profile while the profile is open).
	Panel tools.Tool
}

// Studio is safe for concurrent use.
type Studio struct {
	mu       sync.Mutex
	sessions *session.Manager
	router   *router.Router
	tools    *tools.Dispatcher
	booting  bool

	observer func(router.Transition)
}

// Option configures a Studio.
type Option func(*Studio)

// WithObserver receives every view transition.
func WithObserver(fn func(router.Transition)) Option {
	return func(s *Studio) { s.observer = fn }
}

// New wires a studio around mgr. A nil registry means the default catalogue.
func New(mgr *session.Manager, registry *tools.Registry, opts ...Option) *Studio {
	s := &Studio{
		sessions: mgr,
		tools:    tools.NewDispatcher(registry),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.router = router.New(func() bool { return mgr.Snapshot().Authenticated() })
	s.router.Observe(func(t router.Transition) {
		logging.RouterDebug("transition %s -> %s cause=%s", t.From, t.To, t.Cause)
		if t.From != t.To {
			logging.Audit().Route(t.From.String(), t.To.String(), t.Cause)
		}
		if s.observer != nil {
			s.observer(t)
		}
	})
	return s
}

// Sessions exposes the manager for read-only consumers such as tool panels
// that need the token.
func (s *Studio) Sessions() *session.Manager {
	return s.sessions
}

// Registry returns the tool catalogue.
func (s *Studio) Registry() *tools.Registry {
	return s.tools.Registry()
}

// Boot restores the session and leaves Loading. The lock is not held while
// the backend validates, so intents arriving meanwhile see Loading and are
// rejected with router.ErrBooting instead of queueing.
func (s *Studio) Boot(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.booting || !s.router.Booting() {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, ErrAlreadyBooting
	}
	s.booting = true
	s.mu.Unlock()

	timer := logging.StartTimer(logging.CategoryBoot, "Boot")
	outcome := s.sessions.Restore(ctx)
	timer.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	from := s.router.Current()
	if _, err := s.router.Boot(outcome); err != nil {
		return s.snapshotLocked(), err
	}
	s.afterLocked(from)
	logging.Boot("Booted into %s (session %s)", s.router.Current(), outcome.Kind)
	logging.Audit().SessionEvent(logging.AuditSessionRestore, outcome.Profile.Username, outcome.Kind == session.Valid, outcome.Kind.String())
	return s.snapshotLocked(), nil
}

// Navigate applies a navigation intent.
func (s *Studio) Navigate(intent router.Intent) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := s.router.Current()
	_, err := s.router.Navigate(intent)
	s.afterLocked(from)
	return s.snapshotLocked(), err
}

// SubmitLogin authenticates against the login endpoint.
func (s *Studio) SubmitLogin(ctx context.Context, creds types.Credentials) (Snapshot, error) {
	return s.submit(ctx, session.ModeLogin, creds)
}

// SubmitSignup registers and, when the backend starts a session, signs in.
func (s *Studio) SubmitSignup(ctx context.Context, creds types.Credentials) (Snapshot, error) {
	return s.submit(ctx, session.ModeSignup, creds)
}

func (s *Studio) submit(ctx context.Context, mode session.Mode, creds types.Credentials) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router.Booting() {
		return s.snapshotLocked(), router.ErrBooting
	}

	from := s.router.Current()
	res, err := s.sessions.Authenticate(ctx, mode, creds)
	switch {
	case err == nil:
		_, err = s.router.CompleteAuth(session.Outcome{Kind: session.Valid, Profile: res.Profile, Token: res.Token})
	case errors.Is(err, session.ErrContractViolation):
		kind := router.FlashError
		if mode == session.ModeSignup {
			kind = router.FlashNotice
		}
		_, _ = s.router.RequireLogin(kind, session.UserMessage(err))
	default:
		s.router.FailAuth(session.UserMessage(err))
	}
	kind := logging.AuditLogin
	if mode == session.ModeSignup {
		kind = logging.AuditSignup
	}
	logging.Audit().SessionEvent(kind, creds.Username, err == nil, session.UserMessage(err))
	s.afterLocked(from)
	return s.snapshotLocked(), err
}

// Logout ends the session and returns to the public chat.
func (s *Studio) Logout(ctx context.Context) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router.Booting() {
		return s.snapshotLocked()
	}
	from := s.router.Current()
	user := s.sessions.Snapshot().Profile.Username
	s.sessions.Logout(ctx)
	logging.Audit().SessionEvent(logging.AuditLogout, user, true, "")
	s.tools.Reset()
	s.router.LoggedOut()
	s.afterLocked(from)
	return s.snapshotLocked()
}

// SelectTool activates a dashboard panel.
func (s *Studio) SelectTool(id tools.ToolID) (Snapshot, error) {
	return s.toolEvent(func(d *tools.Dispatcher) {
		d.SelectTool(id)
		logging.Audit().ToolSelect(s.sessions.Snapshot().Profile.Username, d.CurrentTool().Name)
	})
}

// OpenProfile shows the profile panel over the active tool.
func (s *Studio) OpenProfile() (Snapshot, error) {
	return s.toolEvent((*tools.Dispatcher).OpenProfile)
}

// CloseProfile returns to the previously active tool.
func (s *Studio) CloseProfile() (Snapshot, error) {
	return s.toolEvent((*tools.Dispatcher).CloseProfile)
}

// ToggleMobileOverlay opens or closes the compact sidebar drawer.
func (s *Studio) ToggleMobileOverlay() (Snapshot, error) {
	return s.toolEvent((*tools.Dispatcher).ToggleMobileOverlay)
}

func (s *Studio) toolEvent(apply func(*tools.Dispatcher)) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.router.Booting() {
		return s.snapshotLocked(), router.ErrBooting
	}
	if s.router.Current() != router.Dashboard {
		return s.snapshotLocked(), ErrNotInDashboard
	}
	apply(s.tools)
	s.afterLocked(router.Dashboard)
	return s.snapshotLocked(), nil
}

// Snapshot returns the current state, repairing the view first if the
// session ended outside the studio.
func (s *Studio) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.afterLocked(s.router.Current())
	return s.snapshotLocked()
}

// afterLocked resets the dispatcher on a fresh dashboard entry and repairs
// the view/session invariant.
func (s *Studio) afterLocked(from router.View) {
	if from != router.Dashboard && s.router.Current() == router.Dashboard {
		s.tools.Reset()
	}
	if s.router.Enforce() {
		s.tools.Reset()
	}
}

func (s *Studio) snapshotLocked() Snapshot {
	return Snapshot{
		View:      s.router.Current(),
		Flash:     s.router.Flash(),
		Session:   s.sessions.Snapshot(),
		Selection: s.tools.Selection(),
		Panel:     s.tools.CurrentTool(),
	}
}
