// Package types holds the small value types shared by the session core,
// the credential store and the backend client.
package types

import "strings"

// UserProfile is the identity snapshot returned by the backend on login or
// signup. It is a cache of server truth and is never validated beyond
// being non-empty.
type UserProfile struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// IsZero reports whether the profile carries no identity at all.
func (p UserProfile) IsZero() bool {
	return strings.TrimSpace(p.Username) == "" && strings.TrimSpace(p.Email) == ""
}

// DisplayName returns the username, falling back to the email.
func (p UserProfile) DisplayName() string {
	if p.Username != "" {
		return p.Username
	}
	if p.Email != "" {
		return p.Email
	}
	return "Guest User"
}

// Initial returns the upper-cased first letter of the display name.
func (p UserProfile) Initial() string {
	name := []rune(p.DisplayName())
	if len(name) == 0 {
		return "?"
	}
	return strings.ToUpper(string(name[0]))
}

// Credentials is what the user types into the login or signup form.
type Credentials struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

// Guest is the profile shown in the public chat when nobody is signed in.
var Guest = UserProfile{Username: "Guest"}
