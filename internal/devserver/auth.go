package devserver

import (
	"net/http"
	"strings"
	"time"

	"aistudio/internal/logging"
	"aistudio/internal/types"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type authRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a user and starts a session.
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decode(r, &req); err != nil {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Username, email and password are required"})
		return
	}
	if len(req.Password) < 6 {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Password must be at least 6 characters"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.opts.BcryptCost)
	if err != nil {
		JSON(w, http.StatusInternalServerError, map[string]any{"success": false, "message": "Could not create account"})
		return
	}

	s.mu.Lock()
	if _, exists := s.users[req.Username]; exists {
		s.mu.Unlock()
		JSON(w, http.StatusConflict, map[string]any{"success": false, "message": "Username already exists"})
		return
	}
	u := &user{
		id:           uuid.NewString(),
		profile:      types.UserProfile{Username: req.Username, Email: req.Email},
		passwordHash: hash,
		createdAt:    time.Now(),
	}
	s.users[u.profile.Username] = u
	token := s.startSessionLocked(u)
	s.mu.Unlock()

	logging.API("devserver: registered %s", u.profile.Username)
	s.writeAuthSuccess(w, u, token, "Account created successfully")
}

// Login checks the password and starts a session.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if err := decode(r, &req); err != nil {
		JSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "Invalid request body"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[strings.TrimSpace(req.Username)]
	s.mu.Unlock()

	if !ok || bcrypt.CompareHashAndPassword(u.passwordHash, []byte(req.Password)) != nil {
		JSON(w, http.StatusUnauthorized, map[string]any{"success": false, "message": "Invalid username or password"})
		return
	}

	s.mu.Lock()
	token := s.startSessionLocked(u)
	s.mu.Unlock()

	s.writeAuthSuccess(w, u, token, "Login successful")
}

func (s *Server) startSessionLocked(u *user) string {
	token := uuid.NewString()
	s.sessions[token] = u.profile.Username
	return token
}

func (s *Server) writeAuthSuccess(w http.ResponseWriter, u *user, token, message string) {
	body := map[string]any{
		"success": true,
		"message": message,
		"user":    u.profile,
		"userId":  u.id,
	}
	if !s.opts.DegradedAuth {
		body["sessionToken"] = token
	}
	JSON(w, http.StatusOK, body)
}

// Validate reports whether the Authorization token is live.
func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	_, ok := s.lookupSession(r.Header.Get("Authorization"))
	JSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

// Logout ends the session named by the Authorization token.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	token := r.Header.Get("Authorization")
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
	JSON(w, http.StatusOK, map[string]any{"success": true})
}

// Revoke drops every session of username. Tests use it to expire tokens.
func (s *Server) Revoke(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, owner := range s.sessions {
		if owner == username {
			delete(s.sessions, token)
		}
	}
}
