package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goodfit/internal/config"
	"goodfit/internal/delivery"
	"goodfit/internal/events"
	"goodfit/internal/handler"
	"goodfit/internal/logging"
	"goodfit/internal/middleware"
	"goodfit/internal/repository"
	"goodfit/internal/service"
	"goodfit/internal/storage"
	"goodfit/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func fatal(msg string, err error) {
	slog.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	logging.Setup("goodfit-server")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found, relying on environment variables")
	}

	// --- Configuration ---
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		fatal("failed to load DB config", err)
	}
	cfg, err := config.LoadServerConfig()
	if err != nil {
		fatal("failed to load server config", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database Connection ---
	dbPool, err := config.ConnectDB(ctx, dbCfg)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer dbPool.Close()

	// --- Auto Migration ---
	if err := config.AutoMigrate(ctx, dbPool); err != nil {
		fatal("failed to auto-migrate database", err)
	}

	// --- Event bus and code delivery ---
	var publisher events.Publisher = events.LogPublisher{}
	if cfg.NATSURL != "" {
		natsPublisher, err := events.NewNatsPublisher(cfg.NATSURL)
		if err != nil {
			fatal("failed to connect to NATS", err)
		}
		publisher = natsPublisher
	}
	defer publisher.Close()

	router := delivery.Router{Email: delivery.LogSender{}, SMS: delivery.LogSender{}}
	if cfg.ResendAPIKey != "" {
		router.Email = delivery.NewEmailSender(cfg.ResendAPIKey, cfg.ResendFrom, cfg.OTPTTL)
	}
	if cfg.NATSURL != "" {
		router.SMS = delivery.NewSMSSender(publisher)
	}

	var presigner service.UploadPresigner
	if cfg.S3.Enabled() {
		filePresigner, err := storage.NewFilePresigner(ctx, cfg.S3)
		if err != nil {
			fatal("failed to configure object storage", err)
		}
		presigner = filePresigner
	}

	// --- Initialize Utilities ---
	jwtUtil := utils.NewJWTUtil(cfg.JWTSecret, cfg.JWTExpirationHours)

	// --- Initialize Repositories ---
	userRepo := repository.NewUserRepository(dbPool)
	identityRepo := repository.NewIdentityRepository(dbPool)
	otpRepo := repository.NewOTPRepository(dbPool)
	sessionRepo := repository.NewSessionRepository(dbPool)
	gymRepo := repository.NewGymRepository(dbPool)
	classRepo := repository.NewClassRepository(dbPool)
	bookingRepo := repository.NewBookingRepository(dbPool)
	subscriptionRepo := repository.NewSubscriptionRepository(dbPool)

	// --- Initialize Services ---
	authService := service.NewAuthService(identityRepo, otpRepo, sessionRepo, userRepo, router, publisher, jwtUtil,
		service.AuthConfig{
			CodeTTL:        cfg.OTPTTL,
			ResendInterval: cfg.OTPResendInterval,
			MaxAttempts:    cfg.OTPMaxAttempts,
			SessionTTL:     cfg.SessionTTL,
		})
	userService := service.NewUserService(userRepo, cfg.InitialAdminEmail)
	catalogService := service.NewCatalogService(gymRepo, classRepo, subscriptionRepo, presigner)
	bookingService := service.NewBookingService(bookingRepo, classRepo, publisher)

	// --- Initialize Handlers ---
	authHandler := handler.NewAuthHandler(authService)
	userHandler := handler.NewUserHandler(userService)
	catalogHandler := handler.NewCatalogHandler(catalogService)
	bookingHandler := handler.NewBookingHandler(bookingService)

	// --- Setup Gin Router ---
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	// Simple CORS middleware for the web client
	engine.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PATCH, DELETE")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// --- Initialize Middlewares ---
	jwtAuthMW := middleware.JWTAuthMiddleware(authService)

	// --- Register Routes ---
	authHandler.RegisterAuthRoutes(engine.Group(""))
	restGroup := engine.Group("/rest/v1")
	userHandler.RegisterUserRoutes(restGroup, jwtAuthMW)
	catalogHandler.RegisterCatalogRoutes(restGroup, jwtAuthMW)
	bookingHandler.RegisterBookingRoutes(restGroup, jwtAuthMW)

	engine.GET("/health", func(c *gin.Context) {
		if err := dbPool.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "db": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "healthy"})
	})

	// --- Start Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fatal("listen failed", err)
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("server exiting")
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.InfoContext(c.Request.Context(), "http_request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}
