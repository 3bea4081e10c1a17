package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/snapseek/snapseek/internal/assets"
	"github.com/snapseek/snapseek/internal/config"
	dbRedis "github.com/snapseek/snapseek/internal/db/redis"
	logpkg "github.com/snapseek/snapseek/internal/logger"
	"github.com/snapseek/snapseek/internal/metrics"
	catalogrepo "github.com/snapseek/snapseek/internal/repository/catalog"
	vectorrepo "github.com/snapseek/snapseek/internal/repository/vector"
	chiTransport "github.com/snapseek/snapseek/internal/transport/chi"
	minioBlob "github.com/snapseek/snapseek/internal/transport/minio"
	"github.com/snapseek/snapseek/internal/transport/tfserving"
	detectuc "github.com/snapseek/snapseek/internal/usecase/detect"
	searchuc "github.com/snapseek/snapseek/internal/usecase/search"
	"github.com/snapseek/snapseek/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting snapseek API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("inference_base_url", cfg.Inference.BaseURL),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	// Durable blob storage. Local and dev environments run without it;
	// the asset manager then keeps local copies only.
	devMode := env == "local" || env == "dev"
	var blob assets.BlobStore
	if !devMode {
		blobStore, err := minioBlob.NewStore(minioBlob.Config{
			Endpoint:  cfg.Blob.Endpoint,
			AccessKey: cfg.Blob.AccessKey,
			SecretKey: cfg.Blob.SecretKey,
			Bucket:    cfg.Blob.Bucket,
			UseSSL:    cfg.Blob.UseSSL,
		})
		if err != nil {
			logger.Fatal("Failed to create blob store", zap.Error(err))
		}
		if err := blobStore.EnsureBucket(ctx); err != nil {
			logger.Fatal("Failed to ensure blob bucket", zap.Error(err))
		}
		blob = blobStore
		logger.Info("Connected to blob storage", zap.String("bucket", cfg.Blob.Bucket))
	}

	manager, err := assets.NewManager(assets.Config{
		Dir:           cfg.Assets.Dir,
		Retention:     time.Duration(cfg.Assets.RetentionSec) * time.Second,
		UploadTimeout: time.Duration(cfg.Assets.UploadSec) * time.Second,
		DevMode:       devMode,
	}, blob, logger)
	if err != nil {
		logger.Fatal("Failed to create asset manager", zap.Error(err))
	}
	defer manager.Close()

	inference := tfserving.NewClient(&tfserving.Config{
		BaseURL: cfg.Inference.BaseURL,
		Timeout: time.Duration(cfg.Inference.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Create repositories
	vectorRepo := vectorrepo.New(store, cfg.Search.EmbeddingIndex)
	catalogRepo := catalogrepo.New(store, cfg.Search.CatalogIndex)

	// Create use case services
	detectSvc := detectuc.New(inference, manager, detectuc.Params{
		InputDim:        cfg.Detect.InputDim,
		ConfThreshold:   cfg.Detect.ConfThreshold,
		IoUThreshold:    cfg.Detect.IoUThreshold,
		MaxOutputs:      cfg.Detect.MaxOutputs,
		ClassOfInterest: cfg.Detect.ClassOfInterest,
	}, logger)
	searchSvc := searchuc.New(inference, vectorRepo, catalogRepo, manager, searchuc.Params{
		CropDim:           cfg.Extract.InputDim,
		DistanceThreshold: cfg.Search.DistanceThreshold,
		TopK:              cfg.Search.TopK,
	}, logger)

	// Create chi server
	server := chiTransport.NewServer(detectSvc, searchSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
