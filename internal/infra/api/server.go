package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/domain/model"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/infra/logging"
	"github.com/nelsonAndelson/saas-ai-portfolio/internal/usecase"
)

const maxBodyBytes = 1 << 20

type Options struct {
	RequestTimeout time.Duration
	MetricsPath    string
	MetricsHandler http.Handler // nil leaves the path unrouted
	RateLimitKey   func(clientID string) string
}

// Server exposes the chat submission and status endpoints plus the admin
// queue view.
type Server struct {
	chat    usecase.ChatUseCase
	limiter Limiter
	auth    *AuthManager
	opts    Options
	log     *zerolog.Logger
}

// NewServer constructs the HTTP layer. limiter and auth may be nil.
func NewServer(chat usecase.ChatUseCase, limiter Limiter, auth *AuthManager, opts Options, logger *zerolog.Logger) *Server {
	if opts.RateLimitKey == nil {
		opts.RateLimitKey = func(id string) string { return "rate_limit:chat_submit:" + id }
	}
	return &Server{chat: chat, limiter: limiter, auth: auth, opts: opts, log: logging.Component(logger, "api")}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(TraceID(s.log), RequestLog(s.log), Recover(s.log))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	if s.opts.MetricsHandler != nil && s.opts.MetricsPath != "" {
		r.Handle(s.opts.MetricsPath, s.opts.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout))
		limited := r.With(RateLimit(s.limiter, s.opts.RateLimitKey, s.log))
		for _, p := range []string{"/api/chat", "/chat"} {
			limited.Post(p, s.handleSubmit)
			r.Get(p, s.handleStatus)
		}
		r.With(s.auth.Require).Get("/api/admin/queue", s.handleAdminQueue)
	})
	return r
}

type submitRequest struct {
	Messages    []model.Message    `json:"messages"`
	CompanyInfo *model.CompanyInfo `json:"companyInfo"`
}

type submitResponse struct {
	ID     string          `json:"id"`
	Status model.JobStatus `json:"status"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "messages are required")
		return
	}
	if req.CompanyInfo == nil {
		writeError(w, http.StatusBadRequest, "companyInfo is required")
		return
	}

	job, err := s.chat.Submit(r.Context(), req.Messages, *req.CompanyInfo)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("chat submission failed")
		writeError(w, http.StatusInternalServerError, "failed to submit chat request")
		return
	}
	writeJSON(w, http.StatusCreated, submitResponse{ID: job.ID, Status: job.Status})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id := q.Get("id")
	if id == "" {
		id = q.Get("requestId")
	}

	job, err := s.chat.Status(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, job)
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "missing id")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "job not found")
	default:
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("job_id", id).Msg("chat status lookup failed")
		writeError(w, http.StatusInternalServerError, "failed to load chat job")
	}
}

type queueResponse struct {
	Backend string `json:"backend"`
	Pending int64  `json:"pending"`
}

func (s *Server) handleAdminQueue(w http.ResponseWriter, r *http.Request) {
	n, err := s.chat.QueueDepth(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read queue")
		return
	}
	writeJSON(w, http.StatusOK, queueResponse{Backend: s.chat.Backend(), Pending: n})
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorResponse{Error: msg})
}
