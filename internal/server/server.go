// Package server wires handlers, middleware and routes, and runs the HTTP
// server with graceful shutdown.
//
// This is the composition root: the store, asset store and token services
// come in from main, services and handlers are built here, and nothing below
// this package knows how the others are constructed.
//
//	main → server.New(cfg, deps) → services(repos, assets) → handlers(services) → routes
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/videotube/internal/auth"
	"github.com/sakif/videotube/internal/config"
	"github.com/sakif/videotube/internal/handler"
	"github.com/sakif/videotube/internal/middleware"
	"github.com/sakif/videotube/internal/repository"
	"github.com/sakif/videotube/internal/service"
	"github.com/sakif/videotube/internal/storage"
)

// Deps are the long-lived resources main builds before the server.
type Deps struct {
	Store     repository.Store
	Assets    storage.AssetStore
	Tokens    *auth.TokenService
	Passwords *auth.PasswordService
}

// Server owns the router and the store. The store is closed when Start
// returns.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger
}

func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.Store == nil || deps.Assets == nil || deps.Tokens == nil || deps.Passwords == nil {
		return nil, errors.New("server: store, assets, tokens and passwords are required")
	}
	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		deps:   deps,
		logger: logger,
	}
	s.setupRoutes()
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// setupRoutes installs middleware and mounts every route under /api/v1.
//
// MIDDLEWARE ORDER:
//  1. RequestID: assigns the id the logger picks up
//  2. RealIP: client address for the rate limiter
//  3. Logger: request-scoped logger + one line per request
//  4. Metrics: per-route counters and latency
//  5. Recoverer: a panic becomes a 500 instead of killing the server
//  6. CORS
func (s *Server) setupRoutes() {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	store := s.deps.Store

	// === Services ===
	authSvc := service.NewAuthService(store, s.deps.Tokens, s.deps.Passwords, s.deps.Assets, s.logger)
	accountSvc := service.NewAccountService(store, s.deps.Passwords, s.deps.Assets, s.logger)
	channelSvc := service.NewChannelService(store, s.logger)
	videoSvc := service.NewVideoService(store, store, s.deps.Assets, s.logger)
	commentSvc := service.NewCommentService(store, store, s.logger)
	tweetSvc := service.NewTweetService(store, store, s.logger)
	likeSvc := service.NewLikeService(store, store, s.logger)
	playlistSvc := service.NewPlaylistService(store, store, s.logger)
	subSvc := service.NewSubscriptionService(store, store, s.logger)

	// === Handlers ===
	authH := handler.NewAuthHandler(authSvc, handler.CookieConfig{
		Secure:     s.cfg.Auth.CookieSecure,
		SameSite:   s.cfg.Auth.SameSite(),
		AccessTTL:  s.cfg.Auth.AccessTokenTTL,
		RefreshTTL: s.cfg.Auth.RefreshTokenTTL,
	}, s.logger)
	accountH := handler.NewAccountHandler(accountSvc, channelSvc, s.logger)
	videoH := handler.NewVideoHandler(videoSvc, s.logger)
	commentH := handler.NewCommentHandler(commentSvc, s.logger)
	tweetH := handler.NewTweetHandler(tweetSvc, s.logger)
	likeH := handler.NewLikeHandler(likeSvc, s.logger)
	playlistH := handler.NewPlaylistHandler(playlistSvc, s.logger)
	subH := handler.NewSubscriptionHandler(subSvc, s.logger)
	healthH := handler.NewHealthHandler(store, s.logger)

	requireAuth := auth.RequireAuth(authSvc)
	jsonBody := chimiddleware.RequestSize(s.cfg.Server.MaxJSONBytes)
	uploadBody := chimiddleware.RequestSize(s.cfg.Server.MaxUploadBytes)
	limited := s.rateLimit()

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", healthH.HandleHealthcheck)

		r.Route("/users", func(r chi.Router) {
			r.With(limited, uploadBody).Post("/register", authH.HandleRegister)
			r.With(limited, jsonBody).Post("/login", authH.HandleLogin)
			r.With(limited, jsonBody).Post("/refresh-token", authH.HandleRefreshToken)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.With(jsonBody).Post("/logout", authH.HandleLogout)
				r.With(jsonBody).Post("/change-password", accountH.HandleChangePassword)
				r.Get("/current-user", accountH.HandleCurrentUser)
				r.With(jsonBody).Patch("/update-account", accountH.HandleUpdateAccount)
				r.With(uploadBody).Patch("/update-avatar", accountH.HandleUpdateAvatar)
				r.With(uploadBody).Patch("/update-coverimage", accountH.HandleUpdateCoverImage)
				r.Get("/c/{username}", accountH.HandleChannelProfile)
				r.Get("/history", accountH.HandleWatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", videoH.HandleList)
			r.With(uploadBody).Post("/", videoH.HandlePublish)
			r.Get("/{videoId}", videoH.HandleGet)
			r.With(uploadBody).Patch("/{videoId}", videoH.HandleUpdate)
			r.Delete("/{videoId}", videoH.HandleDelete)
			r.Patch("/toggle/publish/{videoId}", videoH.HandleTogglePublish)
		})

		r.Route("/comments", func(r chi.Router) {
			r.Use(requireAuth, jsonBody)
			r.Get("/{videoId}", commentH.HandleList)
			r.Post("/{videoId}", commentH.HandleCreate)
			r.Patch("/c/{commentId}", commentH.HandleUpdate)
			r.Delete("/c/{commentId}", commentH.HandleDelete)
		})

		r.Route("/tweets", func(r chi.Router) {
			r.Use(requireAuth, jsonBody)
			r.Post("/", tweetH.HandleCreate)
			r.Get("/user/{userId}", tweetH.HandleListByUser)
			r.Patch("/{tweetId}", tweetH.HandleUpdate)
			r.Delete("/{tweetId}", tweetH.HandleDelete)
		})

		r.Route("/likes", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/toggle/v/{videoId}", likeH.HandleToggleVideo)
			r.Post("/toggle/c/{commentId}", likeH.HandleToggleComment)
			r.Post("/toggle/t/{tweetId}", likeH.HandleToggleTweet)
			r.Get("/videos", likeH.HandleLikedVideos)
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Use(requireAuth, jsonBody)
			r.Post("/", playlistH.HandleCreate)
			r.Get("/user/{userId}", playlistH.HandleListByUser)
			r.Patch("/add/{videoId}/{playlistId}", playlistH.HandleAddVideo)
			r.Patch("/remove/{videoId}/{playlistId}", playlistH.HandleRemoveVideo)
			r.Get("/{playlistId}", playlistH.HandleGet)
			r.Patch("/{playlistId}", playlistH.HandleUpdate)
			r.Delete("/{playlistId}", playlistH.HandleDelete)
		})

		r.Route("/subscriptions", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/c/{channelId}", subH.HandleToggle)
			r.Get("/c/{channelId}", subH.HandleSubscribers)
			r.Get("/u/{subscriberId}", subH.HandleSubscribedChannels)
		})
	})
}

// rateLimit limits the unauthenticated account endpoints per client IP.
func (s *Server) rateLimit() func(http.Handler) http.Handler {
	rl := s.cfg.RateLimit
	if !rl.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(rl.Requests, rl.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(middleware.RateLimited),
	)
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up to
// the configured shutdown timeout and closes the store.
func (s *Server) Start() error {
	defer func() {
		if err := s.deps.Store.Close(); err != nil {
			s.logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	sc := s.cfg.Server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", sc.Port),
		Handler:      s.router,
		ReadTimeout:  sc.ReadTimeout,
		WriteTimeout: sc.WriteTimeout,
		IdleTimeout:  sc.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", sc.Port),
			slog.String("database", s.cfg.Database.Driver),
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

		ctx, cancel := context.WithTimeout(context.Background(), sc.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
