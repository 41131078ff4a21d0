package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gamerfie/game-vault/auth"
	"github.com/gamerfie/game-vault/config"
	"github.com/gamerfie/game-vault/database"
	"github.com/gamerfie/game-vault/handlers"
	"github.com/gamerfie/game-vault/metrics"
	"github.com/gamerfie/game-vault/middleware"
	"github.com/gamerfie/game-vault/repository"
	"github.com/gamerfie/game-vault/services"
	"github.com/gamerfie/game-vault/websocket"
)

// Global config
var cfg *config.Config

func main() {
	// Load configuration
	cfg = config.Load()
	log.Printf("Configuration loaded - Environment: %s, Frontend: %s, Database: %s", cfg.Environment, cfg.FrontendURL, cfg.DBType)

	// Initialize database
	if err := database.Init(database.Config{
		Type:       database.DBType(cfg.DBType),
		SQLitePath: cfg.DBPath,
		MySQL: database.MySQLConfig{
			Host:            cfg.MySQLHost,
			Port:            cfg.MySQLPort,
			User:            cfg.MySQLUser,
			Password:        cfg.MySQLPassword,
			Database:        cfg.MySQLDatabase,
			TLSEnabled:      cfg.MySQLTLSEnabled,
			TLSSkipVerify:   cfg.MySQLTLSSkipVerify,
			TLSCACert:       cfg.MySQLTLSCACert,
			MaxOpenConns:    cfg.MySQLMaxOpenConns,
			MaxIdleConns:    cfg.MySQLMaxIdleConns,
			ConnMaxLifetime: cfg.MySQLConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQLConnMaxIdleTime,
		},
		Postgres: database.PostgresConfig{
			DSN:          cfg.PostgresDSN,
			MaxOpenConns: cfg.PostgresMaxOpenConns,
		},
	}); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	metrics.Register()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	defer wsHub.Stop()
	log.Println("WebSocket hub started")

	// Initialize repositories
	challengeRepo := repository.NewChallengeRepository()
	participantRepo := repository.NewParticipantRepository()
	statsRepo := repository.NewUserStatsRepository()
	claimRepo := repository.NewRewardClaimRepository()

	// Initialize services
	challengeService := services.NewChallengeService(cfg, challengeRepo, participantRepo, statsRepo, claimRepo, wsHub)
	statsService := services.NewStatsService(statsRepo)
	coverCache := services.NewCoverCacheService(cfg.CoverCacheDir, cfg.CoverAllowPrivateHosts)
	lifecycleService := services.NewLifecycleService(cfg.LifecycleInterval, challengeRepo, wsHub, challengeService.InvalidateLeaderboard)
	lifecycleService.Start()
	defer lifecycleService.Stop()

	// Token verification: local JWTs first, then Supabase sessions when configured
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpirationDays)
	verifiers := []auth.Verifier{jwtService}
	if cfg.SupabaseURL != "" {
		verifiers = append(verifiers, auth.NewSupabaseVerifier(cfg.SupabaseURL, cfg.SupabaseKey))
	}
	verifier := auth.NewChainVerifier(verifiers...)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	rateLimiter.StartCleanup(time.Minute, 10*time.Minute)
	defer rateLimiter.Stop()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(jwtService)
	challengeHandler := handlers.NewChallengeHandler(challengeService, coverCache)
	statsHandler := handlers.NewStatsHandler(statsService)
	wsHandler := handlers.NewWebSocketHandler(wsHub, verifier, cfg.FrontendURL)

	r := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))
	r.Use(middleware.Metrics())

	// Health check endpoint
	r.GET("/health", handlers.Health(database.Ping, wsHub.GetConnectedUserCount))

	// Prometheus metrics
	r.GET("/metrics", middleware.MetricsAuth(cfg.MetricsUser, cfg.MetricsPass), gin.WrapH(promhttp.Handler()))

	// API routes
	api := r.Group("/api/v1")
	{
		// Public routes, limited per client IP
		public := api.Group("")
		public.Use(rateLimiter.Middleware())

		// Development login
		if cfg.IsDevelopment() {
			public.POST("/auth/dev-token", authHandler.DevToken)
			log.Println("WARNING: development token endpoint enabled")
		}

		// Challenges
		public.GET("/challenges", challengeHandler.List)
		public.GET("/challenges/:id", challengeHandler.Get)
		public.GET("/challenges/:id/leaderboard", challengeHandler.Leaderboard)
		public.GET("/challenges/:id/cover", challengeHandler.Cover)

		// WebSocket endpoint (token passed as query param)
		public.GET("/ws", wsHandler.HandleConnection)

		// Protected routes, limited per user after authentication
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(verifier), rateLimiter.Middleware())
		{
			// Auth
			protected.GET("/auth/me", authHandler.Me)

			// Challenges
			protected.POST("/challenges", challengeHandler.Create)
			protected.PATCH("/challenges/:id", challengeHandler.Update)
			protected.DELETE("/challenges/:id", challengeHandler.Delete)
			protected.POST("/challenges/:id/join", challengeHandler.Join)
			protected.POST("/challenges/:id/leave", challengeHandler.Leave)
			protected.GET("/challenges/:id/progress", challengeHandler.GetProgress)
			protected.PUT("/challenges/:id/progress", challengeHandler.RecordProgress)
			protected.POST("/challenges/:id/rewards/:rewardId/claim", challengeHandler.ClaimReward)
			protected.GET("/challenges/:id/claims", challengeHandler.MyClaims)

			// WebSocket presence
			protected.GET("/ws/status", wsHandler.Status)

			// Current user
			protected.GET("/me/challenges", challengeHandler.MyChallenges)
			protected.GET("/me/stats", statsHandler.Get)
			protected.PUT("/me/stats", statsHandler.Replace)
		}
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
}
