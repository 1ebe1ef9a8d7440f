package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"

	"worktrack/pkg/accounts"
	"worktrack/pkg/auth"
	"worktrack/pkg/config"
	"worktrack/pkg/events"
	"worktrack/pkg/logx"
	"worktrack/pkg/middleware"
	"worktrack/pkg/receipt"
)

var (
	cfg       *config.Config
	logger    *logx.Logger
	tokens    *auth.Issuer
	accts     *accounts.Service
	publisher events.Publisher = events.Nop{}
	extractor *receipt.Extractor
	limiter   *middleware.Limiter
)

func main() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger = logx.New(logx.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logx.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", logx.FieldError, err)
		os.Exit(1)
	}

	// `worktrack migrate` applies the schema and exits. Useful for CI or manual DB setup.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrations(cfg.DBDSN); err != nil {
			logger.Error("Migration failed", logx.FieldError, err)
			os.Exit(1)
		}
		logger.Info("Migrations applied")
		return
	}

	if err := initDB(cfg); err != nil {
		logger.Error("Database initialisation failed", logx.FieldError, err)
		os.Exit(1)
	}
	initServices(cfg)

	if cfg.AMQPURL != "" {
		client, err := events.Dial(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			// the API works without the broker; events are dropped
			logger.Warn("AMQP unavailable, events disabled", logx.FieldError, err)
		} else {
			publisher = client
			defer client.Close()
		}
	}

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	limiter = middleware.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	defer limiter.Stop()

	r := newRouter()
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           withCORS(cfg.CORSOrigins, r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "addr", srv.Addr, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", logx.FieldError, err)
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("Shutting down", logx.FieldOperation, logx.OpShutdown)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", logx.FieldError, err)
	}
}

// initServices wires the packages that depend on the database and config.
func initServices(c *config.Config) {
	tokens = auth.NewIssuer(c.JWTSecret, c.JWTTTL)
	accts = accounts.NewService(db, c.BcryptCost, c.RefreshTokenTTL)
	extractor = receipt.NewExtractor(receipt.Tesseract{})
}

// newRouter builds the engine with the middleware chain and every route.
func newRouter() *gin.Engine {
	registerValidators()
	r := gin.New()
	r.Use(logx.GinMiddleware(logger))
	r.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logx.FromGin(c).Error("Panic recovered", "panic", fmt.Sprint(recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong!"})
	}))
	r.Use(middleware.SecurityHeaders(middleware.DefaultHeadersConfig()))
	if limiter != nil {
		r.Use(middleware.RateLimit(limiter))
	}
	setupRoutes(r)
	return r
}

// withCORS restricts browsers to the configured origins. Requests without
// an Origin header (curl, mobile apps) pass through untouched.
func withCORS(origins []string, h http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"http://localhost:8080"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", logx.RequestIDHeader},
		ExposedHeaders:   []string{logx.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})(h)
}
