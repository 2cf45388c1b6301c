// Package session owns the in-memory authentication session and its
// persisted copy.
//
// The Manager is the only writer of the credential store. It validates a
// restored token once per process, fails closed on any validation problem,
// and never lets a half-populated session report itself as authenticated.
package session

import (
	"errors"

	"aistudio/internal/types"
)

// Status is the lifecycle state of the session.
type Status int

const (
	// StatusValidating is the state of a fresh manager until Restore settles.
	StatusValidating Status = iota
	StatusAnonymous
	StatusAuthenticated
	// StatusInvalid exists only while a rejected credential is being cleared.
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusValidating:
		return "validating"
	case StatusAnonymous:
		return "anonymous"
	case StatusAuthenticated:
		return "authenticated"
	case StatusInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Session is a read-only snapshot of the manager's state.
type Session struct {
	Status  Status
	Token   string
	Profile types.UserProfile
}

// Authenticated reports whether the snapshot is a usable session. Status
// alone is not enough: token and profile must both be present.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != "" && s.Profile.Username != ""
}

// OutcomeKind is the result of Restore.
type OutcomeKind int

const (
	NoSession OutcomeKind = iota
	Valid
)

func (k OutcomeKind) String() string {
	if k == Valid {
		return "valid"
	}
	return "no-session"
}

// Outcome is what Restore reports to the router.
type Outcome struct {
	Kind    OutcomeKind
	Profile types.UserProfile
	Token   string
}

// Mode selects the auth endpoint for Authenticate.
type Mode int

const (
	ModeLogin Mode = iota
	ModeSignup
)

func (m Mode) String() string {
	if m == ModeSignup {
		return "signup"
	}
	return "login"
}

// AuthResult is a successful Authenticate.
type AuthResult struct {
	Profile types.UserProfile
	Token   string
}

var (
	// ErrMalformedCredentials means Login was handed an empty token or
	// profile. No state changed.
	ErrMalformedCredentials = errors.New("malformed credentials")

	// ErrContractViolation means the backend reported success without the
	// user or session token.
	ErrContractViolation = errors.New("backend reported success without a session")

	// ErrRejected means the backend refused the credentials.
	ErrRejected = errors.New("credentials rejected")

	// ErrUnavailable means the backend could not be reached or answered
	// with something unusable.
	ErrUnavailable = errors.New("authentication unavailable")
)

// AuthError carries the user-visible message for a failed Authenticate.
// Kind is one of ErrContractViolation, ErrRejected or ErrUnavailable.
type AuthError struct {
	Kind    error
	Message string
	cause   error
}

func (e *AuthError) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the underlying cause to errors.Is.
func (e *AuthError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind, e.cause}
	}
	return []error{e.Kind}
}

// UserMessage returns the sentence to show for err.
func UserMessage(err error) string {
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	if errors.Is(err, ErrMalformedCredentials) {
		return msgMissingSession
	}
	if err != nil {
		return err.Error()
	}
	return ""
}

// User-facing messages.
const (
	msgLoginFailed      = "Login failed. Please check your credentials."
	msgSignupFailed     = "Registration failed. Please try again."
	msgNetwork          = "Network error. Please check your connection and try again."
	msgMissingSession   = "Signed in, but the server did not start a session. Please sign in again."
	msgSignupLoginByID  = "Account created! Please login with your credentials."
	msgSignupLoginPlain = "Account created successfully! Please login."
)
