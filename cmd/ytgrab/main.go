package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	"github.com/italolelis/ytgrab/internal/catalog"
	"github.com/italolelis/ytgrab/internal/cleanup"
	"github.com/italolelis/ytgrab/internal/config"
	"github.com/italolelis/ytgrab/internal/http/rest"
	"github.com/italolelis/ytgrab/internal/job"
	"github.com/italolelis/ytgrab/internal/locator"
	"github.com/italolelis/ytgrab/internal/logctx"
	"github.com/italolelis/ytgrab/internal/notifier"
	"github.com/italolelis/ytgrab/internal/samples"
	"github.com/italolelis/ytgrab/internal/storage/sqlite"
	"github.com/italolelis/ytgrab/internal/telemetry"
	"github.com/italolelis/ytgrab/internal/ytdlp"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config error", "err", err)
		os.Exit(1)
	}

	logger := slog.New(logctx.NewTraceHandler(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("ytgrab starting...", "log_level", cfg.LogLevel)

	if err := run(logctx.WithLogger(ctx, logger), cfg); err != nil {
		slog.Error("fatal error", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := logctx.LoggerFromContext(ctx)

	// =========================================================================
	// Start Telemetry
	tel, err := telemetry.New(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: cfg.Telemetry.ServiceVersion,
	})
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}

	// =========================================================================
	// Prepare Directories and Sample Assets
	for _, dir := range []string{cfg.OutputDir, cfg.TempDir, cfg.SamplesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	prov := samples.NewProvisioner(cfg.SamplesDir, cfg.SampleVideoURL, cfg.SampleAudioURL, nil)
	if err := prov.Ensure(ctx); err != nil {
		return fmt.Errorf("failed to provision sample assets: %w", err)
	}

	// =========================================================================
	// Start Database
	database, err := sqlite.InitDB(cfg.DBPath)
	if err != nil {
		logger.Error("DB error", "err", err)

		return err
	}
	defer database.Close()

	history := sqlite.NewInstrumentedHistoryRepository(database, tel)

	// =========================================================================
	// Start Core Services
	client := ytdlp.NewClient(cfg.YTDLPPath)
	builder := catalog.NewBuilder(client, cfg.InfoTimeout, tel)
	jobs := job.NewStore(client, cfg.TempDir, cfg.SamplesDir, cfg.SubstituteOnFailure(), cfg.DownloadTimeout, history, tel)
	files := locator.New(cfg.TempDir, cfg.SamplesDir, tel)

	// =========================================================================
	// Start Notification
	setupNotificationForJobs(ctx, jobs, cfg)

	// =========================================================================
	// Start API Service

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	server := setupServer(ctx, builder, jobs, files, tel, cfg)

	go func() {
		logger.Info("Initializing API support", "host", cfg.Web.BindAddress)
		serverErrors <- server.ListenAndServe()
	}()

	logger.Info("waiting for downloads...",
		"temp_dir", cfg.TempDir,
		"fallback_policy", cfg.FallbackPolicy,
		"job_ttl", cfg.JobTTL.String(),
		"retention", cfg.KeepArtifactsFor.String(),
	)

	// =========================================================================
	// Start Cleanup
	setupCleanup(ctx, jobs, history, cfg)

	// =========================================================================
	// Wait for Shutdown
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		logger.Info("start shutdown")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			logger.Error("failed to gracefully shutdown the server", "err", err)

			if err = server.Close(); err != nil {
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}

		return nil
	}
}

func setupNotificationForJobs(ctx context.Context, jobs *job.Store, cfg *config.Config) {
	logger := logctx.LoggerFromContext(ctx)

	if cfg.DiscordWebhookURL == "" {
		return
	}

	notif := &notifier.DiscordNotifier{WebhookURL: cfg.DiscordWebhookURL}

	go func() {
		for event := range jobs.OnJobFailed {
			logger.Error("download failed", "download_id", event.JobID, "video_id", event.VideoID, "err", event.Error)

			if notifyErr := notif.Notify(
				"❌ Download failed for video: " + event.VideoID + " (" + event.Error + ")",
			); notifyErr != nil {
				logger.Error("failed to send notification", "download_id", event.JobID, "err", notifyErr)
			}
		}
	}()

	go func() {
		for event := range jobs.OnJobFinished {
			logger.Info("download finished", "download_id", event.JobID, "video_id", event.VideoID, "status", string(event.Status))

			if notifyErr := notif.Notify(
				"✅ Download finished for video: " + event.VideoID + " (" + event.JobID + ")",
			); notifyErr != nil {
				logger.Error("failed to send notification", "download_id", event.JobID, "err", notifyErr)
			}
		}
	}()
}

// setupServer prepares the handlers and services to create the http rest server.
func setupServer(
	ctx context.Context,
	builder *catalog.Builder,
	jobs *job.Store,
	files *locator.Locator,
	tel *telemetry.Telemetry,
	cfg *config.Config,
) *http.Server {
	vHandler := rest.NewVideoHandler(builder, jobs, files, tel)

	r := chi.NewRouter()
	r.Use(telemetry.RequestID)
	r.Use(telemetry.HTTPLogging)
	r.Use(telemetry.NewHTTPMiddleware(tel).Middleware)
	r.Mount("/", vHandler.Routes())
	r.Get("/metrics", tel.Handler().ServeHTTP)

	return &http.Server{
		Addr:         cfg.Web.BindAddress,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: cfg.Web.WriteTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		Handler:      r,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}
}

func setupCleanup(ctx context.Context, jobs *job.Store, history *sqlite.InstrumentedHistoryRepository, cfg *config.Config) {
	logger := logctx.LoggerFromContext(ctx)

	go func() {
		cleanupTicker := time.NewTicker(cfg.CleanupInterval)
		defer cleanupTicker.Stop()

		for {
			select {
			case <-ctx.Done():
				logger.Info("cleanup goroutine shutting down.")

				return
			case <-cleanupTicker.C:
				if evicted := jobs.EvictExpired(cfg.JobTTL); evicted > 0 {
					logger.Info("evicted expired jobs", "count", evicted)
				}

				tracked, err := history.GetDownloads()
				if err != nil {
					logger.Error("failed to get tracked downloads for cleanup", "err", err)

					continue
				}

				if err := cleanup.DeleteExpiredArtifacts(ctx, tracked, cfg.TempDir, cfg.KeepArtifactsFor); err != nil {
					logger.Error("failed to delete expired artifacts", "err", err)
				}
			}
		}
	}()
}
