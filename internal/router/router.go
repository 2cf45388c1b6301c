// Package router is the single-active-view state machine.
//
// The router holds exactly one View. Dashboard may only be entered, and
// only be held, while the injected guard reports an authenticated session;
// every other path into it is redirected to Login.
package router

import (
	"errors"
	"fmt"

	"aistudio/internal/logging"
	"aistudio/internal/session"
)

// View is a top-level screen.
type View int

const (
	Loading View = iota
	PublicChat
	Login
	Signup
	Dashboard
)

func (v View) String() string {
	switch v {
	case Loading:
		return "loading"
	case PublicChat:
		return "public-chat"
	case Login:
		return "login"
	case Signup:
		return "signup"
	case Dashboard:
		return "dashboard"
	default:
		return "unknown"
	}
}

// Intent is an explicit user navigation request.
type Intent int

const (
	GoPublicChat Intent = iota
	GoLogin
	GoSignup
	GoDashboard
)

func (i Intent) String() string {
	switch i {
	case GoPublicChat:
		return "go-public-chat"
	case GoLogin:
		return "go-login"
	case GoSignup:
		return "go-signup"
	case GoDashboard:
		return "go-dashboard"
	default:
		return "unknown"
	}
}

var (
	// ErrBooting rejects intents while the session is being restored.
	ErrBooting = errors.New("navigation unavailable while loading")
	// ErrInvalidTransition rejects an intent the current view does not offer.
	ErrInvalidTransition = errors.New("invalid navigation")
	// ErrAlreadyBooted is returned by Boot after the first call.
	ErrAlreadyBooted = errors.New("router already booted")
)

// intents lists what each view offers. Dashboard is reached from Login and
// Signup only through CompleteAuth.
var intents = map[View]map[Intent]View{
	PublicChat: {GoPublicChat: PublicChat, GoLogin: Login, GoSignup: Signup, GoDashboard: Dashboard},
	Login:      {GoPublicChat: PublicChat, GoLogin: Login, GoSignup: Signup},
	Signup:     {GoPublicChat: PublicChat, GoLogin: Login, GoSignup: Signup},
	Dashboard:  {GoPublicChat: PublicChat, GoDashboard: Dashboard},
}

// FlashKind tells the screen how to style a flash message.
type FlashKind int

const (
	FlashNone FlashKind = iota
	FlashError
	FlashNotice
)

// Flash is the one-shot message shown by the current screen.
type Flash struct {
	Kind FlashKind
	Text string
}

// Transition records one view change.
type Transition struct {
	From  View
	To    View
	Cause string
}

// Guard reports whether the session may see Dashboard.
type Guard func() bool

// Router is not safe for concurrent use; its owner serializes events.
type Router struct {
	view     View
	flash    Flash
	guard    Guard
	observer func(Transition)
}

// New returns a router pinned to Loading.
func New(guard Guard) *Router {
	if guard == nil {
		guard = func() bool { return false }
	}
	return &Router{view: Loading, guard: guard}
}

// Observe installs fn to receive every transition.
func (r *Router) Observe(fn func(Transition)) {
	r.observer = fn
}

// Current returns the active view.
func (r *Router) Current() View {
	return r.view
}

// Flash returns the message for the active view.
func (r *Router) Flash() Flash {
	return r.flash
}

// Booting reports whether the router still waits for Boot.
func (r *Router) Booting() bool {
	return r.view == Loading
}

// Boot leaves Loading according to the restore outcome.
func (r *Router) Boot(outcome session.Outcome) (View, error) {
	if r.view != Loading {
		return r.view, ErrAlreadyBooted
	}
	if outcome.Kind == session.Valid {
		return r.enterDashboard("restore:valid"), nil
	}
	r.move(PublicChat, "restore:no-session", Flash{})
	return r.view, nil
}

// Navigate applies a user intent.
func (r *Router) Navigate(intent Intent) (View, error) {
	if r.view == Loading {
		return r.view, ErrBooting
	}
	to, ok := intents[r.view][intent]
	if !ok {
		return r.view, fmt.Errorf("%w: %s from %s", ErrInvalidTransition, intent, r.view)
	}
	if to == Dashboard {
		return r.enterDashboard(intent.String()), nil
	}
	r.move(to, intent.String(), Flash{})
	return r.view, nil
}

// CompleteAuth handles a successful login or signup. An outcome missing
// the profile or token goes to Login with an error instead.
func (r *Router) CompleteAuth(outcome session.Outcome) (View, error) {
	if r.view == Loading {
		return r.view, ErrBooting
	}
	if outcome.Kind != session.Valid || outcome.Token == "" || outcome.Profile.Username == "" {
		r.move(Login, "auth:incomplete", Flash{Kind: FlashError, Text: "Sign-in did not complete. Please sign in again."})
		return r.view, nil
	}
	return r.enterDashboard("auth:success"), nil
}

// FailAuth keeps the current form open with an error message.
func (r *Router) FailAuth(message string) {
	r.flash = Flash{Kind: FlashError, Text: message}
}

// RequireLogin routes to Login with a message, used when the backend
// created an account or accepted a login without starting a session.
func (r *Router) RequireLogin(kind FlashKind, message string) (View, error) {
	if r.view == Loading {
		return r.view, ErrBooting
	}
	r.move(Login, "auth:require-login", Flash{Kind: kind, Text: message})
	return r.view, nil
}

// LoggedOut leaves the authenticated area.
func (r *Router) LoggedOut() View {
	if r.view == Loading {
		return r.view
	}
	r.move(PublicChat, "logout", Flash{})
	return r.view
}

// Enforce repairs a Dashboard held without an authenticated session. It
// reports whether a repair happened.
func (r *Router) Enforce() bool {
	if r.view != Dashboard || r.guard() {
		return false
	}
	logging.RouterError("Dashboard held without an authenticated session, redirecting to login")
	r.move(Login, "guard", Flash{Kind: FlashError, Text: "Your session has ended. Please sign in again."})
	return true
}

func (r *Router) enterDashboard(cause string) View {
	if !r.guard() {
		logging.RouterWarn("Dashboard refused (%s): session not authenticated", cause)
		r.move(Login, cause+":redirect", Flash{Kind: FlashNotice, Text: "Please sign in to open the dashboard."})
		return r.view
	}
	r.move(Dashboard, cause, Flash{})
	return r.view
}

func (r *Router) move(to View, cause string, flash Flash) {
	from := r.view
	r.view = to
	r.flash = flash
	if from != to {
		logging.Router("%s -> %s (%s)", from, to, cause)
	}
	if r.observer != nil {
		r.observer(Transition{From: from, To: to, Cause: cause})
	}
}
