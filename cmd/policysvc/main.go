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

	"github.com/dhawalhost/permitkit/internal/rbac"
	"github.com/dhawalhost/permitkit/internal/todos"
	"github.com/dhawalhost/permitkit/pkg/config"
	"github.com/dhawalhost/permitkit/pkg/database"
	"github.com/dhawalhost/permitkit/pkg/logger"
	"github.com/dhawalhost/permitkit/pkg/middleware"
	"github.com/dhawalhost/permitkit/pkg/observability"
	"github.com/dhawalhost/permitkit/pkg/policy"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "policysvc"

var version = "dev"

func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log); err != nil {
		log.Fatal("Policy service failed", zap.Error(err))
	}
}

func run(cfg config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTLPEndpoint,
	}, log)
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(sctx); err != nil {
			log.Warn("Tracer shutdown failed", zap.Error(err))
		}
	}()

	registry := policy.NewRegistry()
	if cfg.PolicyFile != "" {
		defs, err := config.LoadPolicyFile(cfg.PolicyFile)
		if err != nil {
			return err
		}
		if err := registry.RegisterDefinitions(defs...); err != nil {
			return fmt.Errorf("register policies: %w", err)
		}
		log.Info("Loaded policy definitions", zap.Int("count", len(defs)), zap.String("file", cfg.PolicyFile))
	}

	var source policy.SubjectSource
	switch cfg.SubjectSource {
	case config.SourceFile:
		fs, err := rbac.LoadFile(cfg.SubjectFile)
		if err != nil {
			return err
		}
		// Role data shipped as configuration is validated up front; dangling
		// references in the database are handled at decision time instead.
		if err := registry.Validate(fs.Roles()...); err != nil {
			return fmt.Errorf("subjects file: %w", err)
		}
		source = fs
	default:
		dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		db, err := database.NewConnection(dctx, cfg.Database)
		cancel()
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		source = rbac.NewStore(db)
	}

	engine := policy.NewEngine(
		policy.WithRegistry(registry),
		policy.WithLogger(log.Named("policy")),
		policy.WithMetrics(observability.NewDecisionMetrics(nil)),
	)
	svc := policy.NewService(engine, source)
	metrics := observability.NewMetrics(nil)

	limiter := middleware.NewKeyedRateLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	go limiter.Run(ctx, time.Minute)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(serviceName),
		middleware.RequestID(log),
		middleware.SecurityHeadersMiddleware(),
		observability.PrometheusMiddleware(metrics),
	)
	if len(cfg.CORSOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost},
			AllowHeaders:  []string{"Content-Type", policy.DefaultSubjectHeader, middleware.RequestIDHeader},
			ExposeHeaders: []string{middleware.RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}
	router.GET("/metrics", gin.WrapH(observability.PrometheusHandler(nil)))

	handler := policy.NewHTTPHandler(svc, log)
	api := router.Group("/")
	api.Use(middleware.RateLimitMiddleware(limiter))
	handler.RegisterRoutes(api)

	if cfg.ExampleRoutes {
		example := router.Group("/api/example")
		example.Use(
			middleware.RateLimitMiddleware(limiter),
			policy.Identity(policy.IdentityConfig{Source: source, Logger: log}),
		)
		todos.NewHTTPHandler(todos.NewStore(todos.SeedData()...), engine, log).RegisterRoutes(example)
	}

	servers := []*http.Server{{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}}
	if cfg.AdminAddr != "" {
		admin := gin.New()
		admin.Use(gin.Recovery(), middleware.RequestID(log))
		handler.RegisterAdminRoutes(admin)
		servers = append(servers, &http.Server{
			Addr:              cfg.AdminAddr,
			Handler:           admin,
			ReadHeaderTimeout: 5 * time.Second,
		})
	}

	errCh := make(chan error, len(servers))
	for _, server := range servers {
		go func() {
			log.Info("HTTP server starting", zap.String("addr", server.Addr))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("listen on %s: %w", server.Addr, err)
			}
		}()
	}

	var serveErr error
	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
	}

	log.Info("Shutting down HTTP servers")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, server := range servers {
		if err := server.Shutdown(sctx); err != nil {
			serveErr = errors.Join(serveErr, err)
		}
	}
	return serveErr
}
