// Package devserver is an in-memory stand-in for the AI Studio backend.
//
// It implements every endpoint the client calls, keeps users and sessions
// in memory, and answers the predictive tools with deterministic canned
// models. It backs the `studio devserver` command and end-to-end tests.
package devserver

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"aistudio/internal/logging"
	"aistudio/internal/types"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/crypto/bcrypt"
)

// Options tunes the server.
type Options struct {
	// DegradedAuth omits sessionToken from successful login and register
	// replies, reproducing a backend that breaks the auth contract.
	DegradedAuth bool

	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

type user struct {
	id           string
	profile      types.UserProfile
	passwordHash []byte
	createdAt    time.Time
}

type salesFile struct {
	id   string
	name string
	data []byte
}

// Server holds all state behind one mutex.
type Server struct {
	opts Options

	mu       sync.Mutex
	users    map[string]*user  // by username
	sessions map[string]string // token -> username
	files    map[string]*salesFile
}

// New creates an empty server.
func New(opts Options) *Server {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	return &Server{
		opts:     opts,
		users:    make(map[string]*user),
		sessions: make(map[string]string),
		files:    make(map[string]*salesFile),
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/health"))
	r.Use(requestLogger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", s.Register)
			r.Post("/login", s.Login)
			r.Get("/validate", s.Validate)
			r.Post("/logout", s.Logout)
		})

		r.Post("/chat/send", s.SendChat)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Route("/ai-tools", func(r chi.Router) {
				r.Post("/sentiment-analysis", s.SentimentAnalysis)
				r.Post("/salary-prediction", s.SalaryPrediction)
				r.Post("/weather-prediction", s.WeatherPrediction)
				r.Post("/car-recognition", s.CarRecognition)
			})
			r.Route("/retail", func(r chi.Router) {
				r.Post("/upload-sales-data", s.UploadSalesData)
				r.Post("/analyze-sales", s.AnalyzeSales)
				r.Post("/train-model", s.TrainModel)
			})
		})
	})

	return r
}

// requestLogger records each request in the api log category.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logging.APIDebug("devserver %s %s -> %d in %v (request_id=%s)",
			r.Method, r.URL.Path, ww.Status(), time.Since(start), r.Header.Get("X-Request-ID"))
	})
}

// requireSession rejects tool calls without a live token. The reply uses
// the tool envelope so the client shows the message.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.lookupSession(r.Header.Get("Authorization")); !ok {
			JSON(w, http.StatusUnauthorized, map[string]any{
				"error":   true,
				"success": false,
				"message": "Invalid or expired session",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) lookupSession(token string) (string, bool) {
	if token == "" {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	username, ok := s.sessions[token]
	return username, ok
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// toolError writes the {error:true, message} envelope.
func toolError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]any{"error": true, "success": false, "message": message})
}

func decode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
}
