// Package api wires the HTTP routes of the analysis service.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/okian/commskill/internal/adapters/coach"
	"github.com/okian/commskill/internal/domain/annotations"
	"github.com/okian/commskill/internal/domain/model"
	"github.com/okian/commskill/internal/domain/scoring"
	"github.com/okian/commskill/internal/domain/types"
	"github.com/okian/commskill/pkg/auth"
	"github.com/okian/commskill/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	StartAnalysis(ctx context.Context, owner string, up types.Upload) (types.StartResult, error)
	UploadAndAnalyze(ctx context.Context, owner string, up types.Upload) (model.AnalysisRecord, error)
	Process(ctx context.Context, owner, videoURL string) (model.AnalysisRecord, error)
	Score(ctx context.Context, raw *annotations.RawAnnotations) (scoring.Result, error)

	Session(ctx context.Context, owner, id string) (model.Session, error)
	History(ctx context.Context, owner string, limit int) ([]model.AnalysisRecord, error)
	Get(ctx context.Context, owner, id string) (model.AnalysisRecord, error)
	Delete(ctx context.Context, owner, id string) error
	SaveResults(ctx context.Context, owner, videoURL string, scores scoring.Scores) (model.AnalysisRecord, error)
	TestConnection(ctx context.Context) (types.ConnectionReport, error)

	StartChat(ctx context.Context, owner string) (coach.Conversation, error)
	SendChat(ctx context.Context, owner, conversationID, message string) (coach.Reply, error)
	EndChat(ctx context.Context, owner, conversationID string) error
}

// StatsProvider defines the interface for getting service statistics.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// Authenticator verifies bearer tokens.
type Authenticator interface {
	Parse(token string) (*auth.Claims, error)
}

// Server holds the route handlers.
type Server struct {
	deps           Dependencies
	stats          StatsProvider
	auth           Authenticator
	corsOrigins    []string
	maxUploadBytes int64
	logger         logger.Logger
}

// NewServer creates a new API server.
func NewServer(deps Dependencies, stats StatsProvider, authn Authenticator, opts ...Option) *Server {
	s := &Server{
		deps:           deps,
		stats:          stats,
		auth:           authn,
		corsOrigins:    []string{"*"},
		maxUploadBytes: defaultMaxUploadBytes,
		logger:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds a chi router with the middleware stack and every API
// route. Further routes may be added to the returned router.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           corsMaxAge,
	}))
	r.Use(MetricsMiddleware)
	r.Use(s.requestLogger)

	s.Register(r)
	return r
}

// Register attaches the API routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", HandleHealth)
	r.Get("/stats", s.handleStats)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/video", func(r chi.Router) {
			r.Post("/start", s.wrap(s.handleStart))
			r.Post("/analyze", s.wrap(s.handleAnalyze))
			r.Post("/process", s.wrap(s.handleProcess))
			r.Post("/score", s.wrap(s.handleScore))
			r.Get("/sessions/{sessionId}", s.wrap(s.handleSession))
			r.Get("/history", s.wrap(s.handleHistory))
			r.Get("/test-connection", s.wrap(s.handleTestConnection))
			r.Get("/{analysisId}", s.wrap(s.handleGet))
			r.Delete("/{analysisId}", s.wrap(s.handleDelete))
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", s.wrap(s.handleProfile))
			r.Post("/analysis/save", s.wrap(s.handleSave))
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/start", s.wrap(s.handleChatStart))
			r.Post("/message", s.wrap(s.handleChatMessage))
			r.Delete("/{conversationId}", s.wrap(s.handleChatEnd))
		})
	})
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

// wrap turns handler errors into JSON error responses.
func (s *Server) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err == nil {
			return
		}
		status, code := statusFor(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error(r.Context(), "request failed",
				logger.String("path", r.URL.Path),
				logger.Error(err),
			)
		}
		writeError(w, status, code, err)
	}
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil && status < http.StatusInternalServerError {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
