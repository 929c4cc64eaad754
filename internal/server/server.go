// Package server wires the FieldFinder REST API together and runs it.
//
// New is the composition root: it opens the database and builds, in order,
//
//	sqlite.DB → repositories → services → handlers → chi routes
//
// Each layer receives only the layer below it. Handler returns the finished
// router so tests can drive the whole stack through httptest without a port.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/fieldfinder/internal/auth"
	"github.com/sakif/fieldfinder/internal/handler"
	"github.com/sakif/fieldfinder/internal/middleware"
	sqliteRepo "github.com/sakif/fieldfinder/internal/repository/sqlite"
	"github.com/sakif/fieldfinder/internal/service"
)

// purgeInterval is how often expired revocation entries are deleted.
const purgeInterval = time.Hour

// Config holds server configuration.
type Config struct {
	Port        string
	DBPath      string
	JWTSecret   string
	TokenTTL    time.Duration
	AdminEmails []string

	// BcryptCost overrides the password hashing cost. Zero keeps the
	// production default; tests set bcrypt.MinCost.
	BcryptCost int
}

// Server owns the database connection and the router.
type Server struct {
	router *chi.Mux
	config Config
	logger *slog.Logger
	db     *sqliteRepo.DB
	auth   *service.AuthService
}

// New opens the database, runs migrations and registers every route.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	passwords := auth.NewPasswordService()
	if cfg.BcryptCost > 0 {
		passwords = auth.NewPasswordServiceForTest(cfg.BcryptCost)
	}

	db, err := sqliteRepo.New(ctx, cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	s.setupRoutes(tokens, passwords)

	return s, nil
}

// setupRoutes registers middleware and routes.
//
// ROUTES:
//
//	GET    /healthz
//	POST   /auth/signup                 public
//	POST   /auth/login                  public
//	POST   /auth/logout                 auth
//	GET    /auth/me                     auth
//	GET    /fields                      public
//	GET    /fields/search?keyword=      public
//	GET    /fields/pending              admin
//	POST   /fields                      auth
//	GET    /fields/{id}                 public (submitter/admin also see PENDING)
//	PATCH  /fields/{id}/approve         admin
//	GET    /fields/{id}/reviews?lastId= public
//	POST   /fields/{id}/reviews         auth
//	PUT    /reviews/{id}                auth (owner or admin)
//	DELETE /reviews/{id}                auth (owner or admin)
//	GET    /reviews/{id}/comments       public
//	POST   /reviews/{id}/comments       auth
//	PUT    /comments/{id}               auth (owner or admin)
//	DELETE /comments/{id}               auth (owner or admin)
//
// Static segments (/fields/search, /fields/pending) are matched before
// {id} by chi's radix tree, so registration order does not matter.
func (s *Server) setupRoutes(tokens *auth.TokenService, passwords *auth.PasswordService) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	users := s.db.Users()
	fields := s.db.Fields()
	reviews := s.db.Reviews()
	comments := s.db.Comments()
	revocations := s.db.Revocations()

	s.auth = service.NewAuthService(users, revocations, tokens, passwords, s.config.AdminEmails, s.logger)
	fieldService := service.NewFieldService(fields, reviews, s.logger)
	reviewService := service.NewReviewService(fields, reviews, s.logger)
	commentService := service.NewCommentService(reviews, comments, s.logger)

	authMW := auth.NewMiddleware(tokens, revocations, s.logger)

	authHandler := handler.NewAuthHandler(s.auth, s.logger)
	fieldHandler := handler.NewFieldHandler(fieldService, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.logger)

	s.router.Get("/healthz", healthHandler.HandleHealth)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/signup", authHandler.HandleSignup)
		r.Post("/login", authHandler.HandleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAuth)
			r.Post("/logout", authHandler.HandleLogout)
			r.Get("/me", authHandler.HandleMe)
		})
	})

	// Public reads still look at the token: a submitter may view their own
	// pending field.
	s.router.Group(func(r chi.Router) {
		r.Use(authMW.OptionalAuth)

		r.Get("/fields", fieldHandler.HandleList)
		r.Get("/fields/search", fieldHandler.HandleSearch)
		r.Get("/fields/{id}", fieldHandler.HandleGet)
		r.Get("/fields/{id}/reviews", reviewHandler.HandleList)
		r.Get("/reviews/{id}/comments", commentHandler.HandleList)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(authMW.RequireAuth)

		r.Post("/fields", fieldHandler.HandleCreate)
		r.Post("/fields/{id}/reviews", reviewHandler.HandleCreate)
		r.Put("/reviews/{id}", reviewHandler.HandleUpdate)
		r.Delete("/reviews/{id}", reviewHandler.HandleDelete)
		r.Post("/reviews/{id}/comments", commentHandler.HandleCreate)
		r.Put("/comments/{id}", commentHandler.HandleUpdate)
		r.Delete("/comments/{id}", commentHandler.HandleDelete)

		r.Group(func(r chi.Router) {
			r.Use(authMW.RequireAdmin)
			r.Get("/fields/pending", fieldHandler.HandlePending)
			r.Patch("/fields/{id}/approve", fieldHandler.HandleApprove)
		})
	})
}

// Handler returns the router with all middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         net.JoinHostPort("", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	purgeCtx, stopPurge := context.WithCancel(context.Background())
	defer stopPurge()
	go s.purgeRevocations(purgeCtx)

	go func() {
		s.logger.Info("server starting",
			slog.String("port", s.config.Port),
			slog.String("url", "http://localhost:"+s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

// purgeRevocations drops revoked-token rows whose tokens have expired anyway.
func (s *Server) purgeRevocations(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		if err := s.auth.PurgeRevocations(ctx); err != nil && ctx.Err() == nil {
			s.logger.Warn("purging revoked tokens failed", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
