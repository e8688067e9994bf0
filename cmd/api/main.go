// Package main is the entry point for the docledger API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/sealdoc/docledger/internal/api"
	"github.com/sealdoc/docledger/internal/blob"
	"github.com/sealdoc/docledger/internal/config"
	"github.com/sealdoc/docledger/internal/db"
	"github.com/sealdoc/docledger/internal/document"
	"github.com/sealdoc/docledger/internal/health"
	"github.com/sealdoc/docledger/internal/identity"
	"github.com/sealdoc/docledger/internal/middleware"
	"github.com/sealdoc/docledger/internal/org"
	"github.com/sealdoc/docledger/internal/tracing"
	"github.com/sealdoc/docledger/internal/verification"
	"github.com/sealdoc/docledger/internal/workflow"
)

const serviceName = "docledger-api"

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to YAML config file (optional)")
	flag.Parse()

	if *help {
		fmt.Println("Docledger API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)

	summary := cfg.LogSummary()
	attrs := make([]any, 0, len(summary)*2)
	for k, v := range summary {
		attrs = append(attrs, k, v)
	}
	logger.Info("configuration loaded", attrs...)

	// Tracing is active only when an OTLP endpoint is configured.
	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  serviceName,
		Enabled:      cfg.OTLPEndpoint != "",
		Environment:  cfg.Env,
		OTLPEndpoint: cfg.OTLPEndpoint,
		SamplingRate: 1.0,
		InsecureMode: cfg.Env != "production",
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shut down tracer provider", "error", err)
		}
	}()

	// Persistent stores when a database is configured, in-memory otherwise.
	var (
		identities identity.Repository
		documents  document.Repository
		directory  org.Directory
		records    verification.Repository
		dbChecker  api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		var conn *sql.DB
		conn, err = db.Open(cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		identities = identity.NewPostgresRepository(conn)
		documents = document.NewPostgresRepository(conn)
		directory = org.NewPostgresDirectory(conn)
		records = verification.NewPostgresRepository(conn)
		dbChecker = health.NewDBChecker(conn)
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		identities = identity.NewInMemoryRepository()
		documents = document.NewInMemoryRepository()
		directory = org.NewInMemoryDirectory()
		records = verification.NewInMemoryRepository()
	}

	// Challenge store backs replay protection; Redis shares it across
	// replicas.
	var (
		challenges   identity.ChallengeStore
		redisChecker api.HealthChecker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		client := redis.NewClient(opts)
		defer client.Close()

		challenges = identity.NewRedisChallengeStore(client)
		redisChecker = health.NewRedisChecker(client)
	} else {
		logger.Warn("REDIS_URL not set, using in-memory challenge store")
		challenges = identity.NewInMemoryChallengeStore()
	}

	var blobs blob.Store
	if cfg.S3Enabled() {
		blobs, err = blob.NewS3Store(blob.S3Config{
			BucketName:      cfg.S3BucketName,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
		})
		if err != nil {
			logger.Error("failed to initialize blob storage", "error", err)
			os.Exit(1)
		}
	} else {
		logger.Warn("S3 not configured, using in-memory blob store")
		blobs = blob.NewInMemoryStore()
	}

	sealer, err := blob.NewSealer(cfg.EncryptionSecret)
	if err != nil {
		logger.Error("failed to initialize document sealer", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	httpMetrics := middleware.NewMetrics()
	if err := httpMetrics.Register(registry); err != nil {
		logger.Error("failed to register http metrics", "error", err)
		os.Exit(1)
	}
	ledgerMetrics := verification.NewMetrics()
	if err := ledgerMetrics.Register(registry); err != nil {
		logger.Error("failed to register ledger metrics", "error", err)
		os.Exit(1)
	}

	auth := identity.NewAuthenticator(challenges, time.Duration(cfg.ChallengeTTLSeconds)*time.Second)
	ledger := verification.NewLedger(records, documents, directory, ledgerMetrics)
	coordinator := workflow.NewCoordinator(identities, documents, ledger, blobs, sealer, workflow.LogNotifier{})

	mux := api.NewRouter(api.RouterConfig{
		Auth:      api.NewAuthHandlers(auth, identities, cfg.AdminAddress),
		Orgs:      api.NewOrgHandlers(directory, auth, cfg.AdminAddress),
		Documents: api.NewDocumentHandlers(coordinator, auth, cfg.MaxUploadSizeMB),
		Verify:    api.NewVerifyHandlers(coordinator),
		Admin:     api.NewAdminHandlers(coordinator, auth, cfg.AdminAddress),
		Health: api.NewHealthHandlers(api.HealthHandlersConfig{
			DBChecker:    dbChecker,
			RedisChecker: redisChecker,
		}),
		Metrics: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	// Middleware chain: RequestID -> Tracing -> Logging -> HTTPMetrics -> CORS
	var handler http.Handler = mux
	handler = middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.CORSAllowedOrigins})(handler)
	handler = middleware.HTTPMetrics(httpMetrics)(handler)
	handler = middleware.Logging(logger)(handler)
	handler = middleware.Tracing(serviceName)(handler)
	handler = middleware.RequestID(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
