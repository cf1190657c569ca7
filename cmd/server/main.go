// Package main is the entrypoint for the survey portal API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/surveyportal/internal/api"
	"github.com/kiranshivaraju/surveyportal/internal/api/handler"
	mw "github.com/kiranshivaraju/surveyportal/internal/api/middleware"
	"github.com/kiranshivaraju/surveyportal/internal/auth"
	"github.com/kiranshivaraju/surveyportal/internal/cache"
	"github.com/kiranshivaraju/surveyportal/internal/config"
	"github.com/kiranshivaraju/surveyportal/internal/manifest"
	"github.com/kiranshivaraju/surveyportal/internal/movemgmt"
	"github.com/kiranshivaraju/surveyportal/internal/store"
	"github.com/kiranshivaraju/surveyportal/internal/survey"
	"github.com/kiranshivaraju/surveyportal/internal/upload"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast when invalid
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"survey_api", cfg.Survey.BaseURL,
		"movemgmt", cfg.MoveMgmt.BaseURL,
		"password_grant", cfg.Auth.UsesPasswordGrant())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Create store and resolve the partner that owns backend jobs
	pgStore := store.NewPostgresStore(pool)

	partner, err := pgStore.GetDefaultPartner(ctx)
	if err != nil {
		return fmt.Errorf("load default partner: %w", err)
	}
	if err := bootstrapAdminKey(ctx, pgStore, partner.ID, cfg.Admin.BootstrapKey); err != nil {
		return fmt.Errorf("bootstrap admin key: %w", err)
	}

	// 6. Backend clients share one session token
	session := auth.NewSession(tokenSource(cfg))
	surveyClient := survey.NewHTTPClient(cfg.Survey.BaseURL, cfg.Survey.APIVersion, session,
		cfg.Survey.Timeout, cfg.Upload.TransferTimeout)
	moveClient := movemgmt.NewClient(cfg.MoveMgmt.BaseURL, session, cfg.MoveMgmt.Timeout)

	// 7. Upload pipeline, poller and manifest reconciler
	notifier := upload.MultiNotifier{
		upload.LogNotifier{Logger: slog.Default()},
		upload.NewPublishNotifier(redisCache, cache.UploadNotificationsChannel),
	}
	uploads := upload.NewService(surveyClient, pgStore, notifier, cfg.Upload.MaxBytes)

	if n, err := uploads.Resume(ctx, partner.ID); err != nil {
		slog.Warn("could not resume uploads; polling starts empty", "error", err)
	} else {
		slog.Info("uploads resumed", "count", n)
	}

	poller := upload.NewPoller(uploads, cfg.Upload.PollInterval)
	go poller.Run(ctx)

	reconciler := manifest.NewReconciler(uploads, surveyClient, moveClient.ItemStatuses, pgStore,
		manifest.NewCacheSessionStore(redisCache, cfg.Review.SessionTTL))

	// 8. Build router with dependencies
	deps := api.Dependencies{
		Auth:      mw.NewAuth(pgStore),
		RateLimit: mw.NewRateLimit(redisCache, cfg.RateLimit.RequestsPerMinute),

		HealthHandler: handler.NewHealthHandler(pgStore, redisCache),

		CreateUpload: handler.NewCreateUploadHandler(uploads, cfg.Upload.MaxBytes, cfg.Upload.SpoolDir),
		ListUploads:  handler.NewListUploadsHandler(pgStore),
		GetUpload:    handler.NewGetUploadHandler(uploads, pgStore),
		RetryUpload:  handler.NewRetryUploadHandler(uploads),
		ListImports:  handler.NewListImportsHandler(pgStore),

		OpenReview:    handler.NewOpenReviewHandler(reconciler),
		GetReview:     handler.NewGetReviewHandler(reconciler),
		ToggleItem:    handler.NewToggleItemHandler(reconciler),
		SelectAll:     handler.NewSelectAllHandler(reconciler),
		DeselectAll:   handler.NewDeselectAllHandler(reconciler),
		ConfirmReview: handler.NewConfirmReviewHandler(reconciler),

		ListMoves:        handler.NewListMovesHandler(moveClient.Moves),
		GetMove:          handler.NewGetMoveHandler(moveClient.Moves),
		UpdateMoveStatus: handler.NewUpdateMoveStatusHandler(moveClient.Moves),

		InvoicePreview: handler.NewInvoicePreviewHandler(),

		CreateKeyHandler: handler.NewCreateKeyHandler(pgStore),
		ListKeysHandler:  handler.NewListKeysHandler(pgStore),
		RevokeKeyHandler: handler.NewRevokeKeyHandler(pgStore),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		// Upload requests stay open for the whole signed-URL transfer.
		WriteTimeout: cfg.Upload.TransferTimeout + cfg.Survey.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// tokenSource picks the static token when configured, otherwise the password grant.
func tokenSource(cfg *config.Config) auth.TokenSource {
	if !cfg.Auth.UsesPasswordGrant() {
		return auth.StaticTokenSource(cfg.Auth.AccessToken)
	}
	return auth.NewPasswordTokenSource(cfg.Auth.ProjectURL, cfg.Auth.AnonKey,
		cfg.Auth.Email, cfg.Auth.Password, cfg.Survey.Timeout)
}

// bootstrapAdminKey installs rawKey as an admin key while the partner has none.
func bootstrapAdminKey(ctx context.Context, keys handler.KeyManager, partnerID uuid.UUID, rawKey string) error {
	if rawKey == "" {
		return nil
	}
	existing, err := keys.ListAPIKeys(ctx, partnerID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	key, err := handler.NewAPIKey(partnerID, "bootstrap-admin", rawKey, []string{"read", "write", "admin"})
	if err != nil {
		return err
	}
	if err := keys.CreateAPIKey(ctx, key); err != nil {
		return err
	}
	slog.Info("bootstrap admin key installed", "key_prefix", key.KeyPrefix)
	return nil
}
