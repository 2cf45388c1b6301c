package credstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"aistudio/internal/logging"
	"aistudio/internal/types"
)

// Storage keys. Both are present or both absent.
const (
	KeyToken = "sessionToken"
	KeyUser  = "user"
)

var (
	// ErrNotFound means no credential is persisted.
	ErrNotFound = errors.New("credstore: no credential")
	// ErrCorrupted means the persisted credential could not be trusted.
	ErrCorrupted = errors.New("credstore: credential corrupted")
)

// Credential is the on-disk projection of an authenticated session.
type Credential struct {
	Token   string
	Profile types.UserProfile
}

// Store reads and writes the persisted credential.
type Store struct {
	kv KV
}

// New wraps kv.
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Load reads the credential. It returns ErrNotFound when neither key is
// present and an error wrapping ErrCorrupted when the stored shape is wrong
// (one key missing, unparsable profile, empty token or username). Load never
// deletes anything; the caller decides whether to Clear.
func (s *Store) Load(ctx context.Context) (Credential, error) {
	token, hasToken, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	raw, hasUser, err := s.kv.Get(ctx, KeyUser)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}

	switch {
	case !hasToken && !hasUser:
		return Credential{}, ErrNotFound
	case !hasToken:
		return Credential{}, fmt.Errorf("%w: %s present without %s", ErrCorrupted, KeyUser, KeyToken)
	case !hasUser:
		return Credential{}, fmt.Errorf("%w: %s present without %s", ErrCorrupted, KeyToken, KeyUser)
	}

	if strings.TrimSpace(token) == "" {
		return Credential{}, fmt.Errorf("%w: empty token", ErrCorrupted)
	}

	var profile types.UserProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return Credential{}, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	if strings.TrimSpace(profile.Username) == "" {
		return Credential{}, fmt.Errorf("%w: profile has no username", ErrCorrupted)
	}

	return Credential{Token: token, Profile: profile}, nil
}

// Save writes both keys. A failed second write removes the first so the
// pair never goes out of step.
func (s *Store) Save(ctx context.Context, c Credential) error {
	data, err := json.Marshal(c.Profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := s.kv.Set(ctx, KeyUser, string(data)); err != nil {
		return fmt.Errorf("persist profile: %w", err)
	}
	if err := s.kv.Set(ctx, KeyToken, c.Token); err != nil {
		if derr := s.kv.Delete(ctx, KeyUser); derr != nil {
			logging.StoreError("Rollback of %s failed: %v", KeyUser, derr)
		}
		return fmt.Errorf("persist token: %w", err)
	}
	logging.StoreDebug("Saved credential for %s", c.Profile.Username)
	return nil
}

// Clear deletes both keys. Clearing an empty store is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, KeyToken, KeyUser); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	logging.StoreDebug("Cleared credential")
	return nil
}

// Close releases the underlying storage.
func (s *Store) Close() error {
	return s.kv.Close()
}
