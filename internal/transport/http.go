// Package transport serves the CRM services over a JSON REST API.
package transport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/crmdesk/internal/app"
)

// Options configures the router.
type Options struct {
	// Auth guards /api and /mcp when set.
	Auth func(http.Handler) http.Handler
	// MCP is mounted at /mcp when set.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers to the domain services.
type Server struct {
	services app.Services
	logger   *slog.Logger
}

// NewServer creates an HTTP router with middleware.
func NewServer(services app.Services, opts Options) *chi.Mux {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{services: services, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestIDMiddleware)
	r.Use(LogRequests(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)

	r.Group(func(r chi.Router) {
		if opts.Auth != nil {
			r.Use(opts.Auth)
		}
		if opts.MCP != nil {
			r.Handle("/mcp", opts.MCP)
		}
		r.Route("/api", srv.routes)
	})

	return r
}

func (s *Server) routes(r chi.Router) {
	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", s.listContacts)
		r.Post("/", s.createContact)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getContact)
			r.Patch("/", s.updateContact)
			r.Delete("/", s.deleteContact)
			r.Get("/deals", s.contactDeals)
			r.Get("/tasks", s.contactTasks)
			r.Get("/activities", s.contactActivities)
			r.Get("/comments", s.contactComments)
		})
	})

	r.Route("/deals", func(r chi.Router) {
		r.Get("/", s.listDeals)
		r.Post("/", s.createDeal)
		r.Get("/pipeline", s.dealPipeline)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getDeal)
			r.Patch("/", s.updateDeal)
			r.Delete("/", s.deleteDeal)
			r.Put("/stage", s.moveDeal)
		})
	})

	r.Route("/tasks", func(r chi.Router) {
		r.Get("/", s.listTasks)
		r.Post("/", s.createTask)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getTask)
			r.Patch("/", s.updateTask)
			r.Delete("/", s.deleteTask)
			r.Post("/toggle", s.toggleTask)
		})
	})

	r.Route("/activities", func(r chi.Router) {
		r.Get("/", s.listActivities)
		r.Post("/", s.createActivity)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getActivity)
			r.Patch("/", s.updateActivity)
			r.Delete("/", s.deleteActivity)
		})
	})

	r.Route("/comments", func(r chi.Router) {
		r.Get("/", s.listComments)
		r.Post("/", s.createComment)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.getComment)
			r.Patch("/", s.updateComment)
			r.Delete("/", s.deleteComment)
		})
	})

	r.Get("/dashboard", s.dashboard)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
