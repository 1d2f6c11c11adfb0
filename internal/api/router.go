package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/savegress/oncotrace/internal/audit"
	"github.com/savegress/oncotrace/internal/config"
	"github.com/savegress/oncotrace/internal/docstore"
	"github.com/savegress/oncotrace/internal/source"
)

// Server represents the API server
type Server struct {
	config   *config.Config
	router   chi.Router
	handlers *Handlers
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, store *docstore.Store, svc *source.Service, auditLog *audit.Logger) *Server {
	s := &Server{
		config:   cfg,
		router:   chi.NewRouter(),
		handlers: NewHandlers(store, svc, auditLog),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handlers.HealthCheck)

	s.router.Route("/api/v1/oncotrace", func(r chi.Router) {
		// Patients
		r.Route("/patients", func(r chi.Router) {
			r.Post("/", s.handlers.CreatePatient)
			r.Get("/{id}", s.handlers.GetPatient)
			r.Get("/{id}/documents", s.handlers.ListPatientDocuments)
		})

		// Documents
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handlers.CreateDocument)
			r.Get("/{filename}", s.handlers.GetDocument)
			r.Post("/{filename}/search", s.handlers.SearchDocument)
		})

		// Raw fragments feeding the synthesizer
		r.Post("/fragments", s.handlers.CreateFragment)

		// Claim location
		r.Post("/locate", s.handlers.Locate)

		// Provenance audit
		r.Route("/audit", func(r chi.Router) {
			r.Get("/events", s.handlers.ListAuditEvents)
			r.Get("/events/{id}", s.handlers.GetAuditEvent)
			r.Get("/stats", s.handlers.GetAuditStats)
		})
	})
}

// Router returns the chi router
func (s *Server) Router() http.Handler {
	return s.router
}
