package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/markdave123-py/fiscalextract/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/fiscalextract/internal/api/middlewares"
	"github.com/markdave123-py/fiscalextract/internal/config"
	"github.com/markdave123-py/fiscalextract/internal/core"
	ingestor "github.com/markdave123-py/fiscalextract/internal/core/ingestion_engine"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
}

// NewServer builds and wires all routes. db and ing may be nil when persistence is off.
func NewServer(cfg *config.Config, db core.DbClient, extractor core.TextExtractor, ing ingestor.Ingestor, logger *zap.Logger) *Server {
	secret := []byte(cfg.JWTSecret)
	authHandler := handlers.NewAuthHandler(db, secret, logger)
	extractionHandler := handlers.NewExtractionHandler(extractor, db, ing, cfg.MaxUploadBytes(), logger)

	r := chi.NewRouter()
	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CorsOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.NotFound(handlers.NotFound)
		api.MethodNotAllowed(handlers.MethodNotAllowed)

		// public endpoints
		api.Post("/signup", authHandler.Signup)
		api.Post("/login", authHandler.Login)
		api.Get("/extraction/schema", extractionHandler.Schema)

		// uploads are anonymous unless a token is sent
		api.Group(func(upload chi.Router) {
			upload.Use(appMiddleware.OptionalJWT(secret))
			upload.Post("/extraction/extract", extractionHandler.Extract)
			upload.Post("/pdf-extraction", extractionHandler.Extract)
			upload.Post("/extraction/extract-darf", extractionHandler.ExtractDarf)
		})

		// protected endpoints
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWT(secret))
			protected.Get("/extractions", extractionHandler.List)
			protected.Get("/extractions/{id}", extractionHandler.Get)
			protected.Get("/extractions/{id}/export.xlsx", extractionHandler.Export)
		})
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Server{httpServer: httpSrv, logger: logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
