// The analyzer service ingests pitch decks, runs the multi-stage analysis
// pipeline against the reasoning backend and serves the resulting investment
// memos.
package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/dealflow-labs/dealflow-go/internal/document"
	"github.com/dealflow-labs/dealflow-go/internal/pipeline"
	"github.com/dealflow-labs/dealflow-go/internal/platform/auditlog"
	"github.com/dealflow-labs/dealflow-go/internal/platform/auth"
	"github.com/dealflow-labs/dealflow-go/internal/platform/env"
	"github.com/dealflow-labs/dealflow-go/internal/platform/httpserver"
	"github.com/dealflow-labs/dealflow-go/internal/platform/objectstore"
	"github.com/dealflow-labs/dealflow-go/internal/platform/postgres"
	"github.com/dealflow-labs/dealflow-go/internal/reasoning"
	"github.com/dealflow-labs/dealflow-go/internal/stages"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx := context.Background()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := env.String("DEALFLOW_HTTP_ADDR", ":8080")
	shutdownTimeout, err := env.Duration("DEALFLOW_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		logger.Error("invalid env", "error", err)
		os.Exit(2)
	}

	pipelineCfg, err := pipeline.LoadConfig(env.String("DEALFLOW_PIPELINE_CONFIG", ""))
	if err != nil {
		logger.Error("invalid pipeline config", "error", err)
		os.Exit(2)
	}

	reasoningCfg, err := reasoning.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid reasoning config", "error", err)
		os.Exit(2)
	}
	reasoningClient, err := reasoning.NewHTTPClient(reasoningCfg)
	if err != nil {
		logger.Error("reasoning client init failed", "error", err)
		os.Exit(2)
	}

	dbCfg, err := postgres.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid database config", "error", err)
		os.Exit(2)
	}
	db, err := postgres.Open(ctx, dbCfg)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	storeCfg, err := objectstore.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid object store config", "error", err)
		os.Exit(2)
	}
	storeClient, err := objectstore.NewMinIOClient(storeCfg)
	if err != nil {
		logger.Error("object store client init failed", "error", err)
		os.Exit(2)
	}
	startupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectstore.EnsureBuckets(startupCtx, storeClient, storeCfg); err != nil {
		cancel()
		logger.Error("object store unavailable", "error", err)
		os.Exit(1)
	}
	cancel()

	authCfg, err := auth.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid auth config", "error", err)
		os.Exit(2)
	}
	authenticator, loginHandlers, err := auth.FromConfig(ctx, authCfg)
	if err != nil {
		logger.Error("auth init failed", "error", err)
		os.Exit(2)
	}

	runner := &analysisRunner{
		logger:    logger,
		recorder:  &pgRunRecorder{db: db},
		stages:    stages.NewReasoning(reasoningClient, logger),
		cfg:       pipelineCfg,
		converter: document.NewPlainText(),
		fetchDeck: func(ctx context.Context, objectKey string) (io.ReadCloser, error) {
			obj, err := storeClient.GetObject(ctx, storeCfg.BucketDecks, objectKey, minio.GetObjectOptions{})
			if err != nil {
				return nil, err
			}
			if _, err := obj.Stat(); err != nil {
				_ = obj.Close()
				return nil, err
			}
			return obj, nil
		},
		putMemo: func(ctx context.Context, objectKey string, data []byte) error {
			_, err := storeClient.PutObject(ctx, storeCfg.BucketMemos, objectKey,
				bytes.NewReader(data), int64(len(data)),
				minio.PutObjectOptions{ContentType: "application/json"})
			return err
		},
		insertAudit: func(ctx context.Context, event auditlog.Event) (int64, error) {
			return auditlog.Insert(ctx, db, event)
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", httpserver.Healthz("analyzer"))
	mux.HandleFunc(
		"/readyz",
		httpserver.ReadyzWithChecks(
			"analyzer",
			httpserver.ReadinessCheck{
				Name: "postgres",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return db.PingContext(checkCtx)
				},
			},
			httpserver.ReadinessCheck{
				Name: "minio",
				Check: func(ctx context.Context) error {
					checkCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
					defer cancel()
					return objectstore.CheckBuckets(checkCtx, storeClient, storeCfg)
				},
			},
		),
	)
	if loginHandlers != nil {
		loginHandlers.Register(mux)
	}

	api := newAnalyzerAPI(logger, db, storeClient, storeCfg, runner)
	api.register(mux)

	handler := auth.Middleware{
		Logger:        logger,
		Authenticator: authenticator,
		Authorize:     auth.MethodRoleAuthorizer(),
		Audit: func(ctx context.Context, event auth.DenyEvent) error {
			auditCtx, cancel := context.WithTimeout(ctx, 750*time.Millisecond)
			defer cancel()
			return auditlog.InsertAuthDeny(auditCtx, db, "analyzer", event)
		},
		SkipPrefixes: []string{"/healthz", "/readyz", "/auth/"},
	}.Wrap(mux)

	cfg := httpserver.Config{
		Service:         "analyzer",
		Addr:            addr,
		ShutdownTimeout: shutdownTimeout,
	}

	if err := httpserver.Run(ctx, logger, cfg, httpserver.Wrap(logger, "analyzer", handler)); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}
