package api

import (
	"log/slog"
	"math/rand/v2"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/studykit/internal/bank"
	"github.com/dgallion1/studykit/internal/config"
	"github.com/dgallion1/studykit/internal/jobs"
	"github.com/dgallion1/studykit/internal/kb"
	"github.com/dgallion1/studykit/internal/llm"
	"github.com/dgallion1/studykit/internal/transcribe"
)

// Deps are the components the server exposes.
type Deps struct {
	KB      *kb.Store
	Builder *bank.Builder
	Jobs    *jobs.Queue // nil disables the job endpoints
	// Transcriber backs the transcribe job; nil when no model is configured.
	Transcriber *transcribe.Runner
	Stats       *llm.Stats
	Model       string
	// Rand returns the generator used for one quiz. Defaults to a randomly
	// seeded PCG.
	Rand func() *rand.Rand
}

// Server is the HTTP API of the study knowledge base.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if deps.Rand == nil {
		deps.Rand = func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) }
	}
	s := &Server{deps: deps, log: log, cfg: cfg}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.cfg.ServeAPIKey != "" {
			r.Use(AuthMiddleware(s.cfg.ServeAPIKey, s.log))
		}

		r.Get("/api/index", s.handleIndex)
		r.Get("/api/sections", s.handleListSections)
		r.Get("/api/sections/{name}", s.handleGetSection)
		r.Get("/api/search", s.handleSearch)

		r.Get("/api/banks", s.handleListBanks)
		r.Get("/api/banks/{bank}/problems", s.handleListProblems)
		r.Post("/api/banks/{bank}/problems", s.handleAddProblem)
		r.Post("/api/banks/{bank}/quiz", s.handleQuiz)

		r.Post("/api/jobs", s.handleSubmitJob)
		r.Get("/api/jobs/{jobID}", s.handleJobStatus)

		r.Get("/api/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
