package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"steprecorder/internal/api/handlers"
	"steprecorder/internal/api/routes"
	"steprecorder/internal/config"
	"steprecorder/internal/recorder"
	"steprecorder/internal/screencast"
	"steprecorder/internal/services"
	"steprecorder/internal/session"
	"steprecorder/pkg/database"
	"steprecorder/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the recording API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			log := logger.Init(cfg.Log)
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func openStore(cfg *config.Config, log *zap.Logger) (database.Store, error) {
	if cfg.Database.Driver != "mysql" {
		log.Warn("Using in-memory store, recordings will not survive a restart")
		return database.NewMemoryStore(), nil
	}
	db, err := database.InitDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	return database.NewGormStore(db), nil
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	store, err := openStore(cfg, log)
	if err != nil {
		return err
	}

	// Chrome starts with the first opened page.
	browser := recorder.NewBrowser(cfg.Chrome, log)
	defer browser.Close()

	screen := screencast.NewRecorder(browser, screencast.Config{
		Interval: cfg.Recorder.ScreencastInterval,
		Dir:      cfg.Recorder.RecordingsDir,
	}, log)

	coord := session.New(ctx, store, log,
		session.WithScreenCapture(screen),
		session.WithSystemInfo(browser.SystemInfo))
	defer coord.Close()

	retention := services.NewRetentionService(cfg.Recorder.RecordingsDir, cfg.Retention.Days, log)
	if err := retention.Start(cfg.Retention.Schedule); err != nil {
		return err
	}
	defer retention.Stop()

	opener := handlers.PageOpenerFunc(func(ctx context.Context, url, device string) (handlers.Page, error) {
		p, err := browser.OpenPage(ctx, recorder.PageOptions{URL: url, Device: device}, coord, cfg.Recorder.ScreenshotTimeout)
		if err != nil {
			return nil, err
		}
		return p, nil
	})

	gin.SetMode(cfg.Server.Mode)
	router := routes.SetupRoutes(cfg, handlers.NewRecordingHandler(coord, opener, log), log)

	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:     router,
		ReadTimeout: time.Duration(cfg.Server.ReadTimeout) * time.Second,
		// WriteTimeout stays unset: it would cut off the websocket feed.
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr), zap.Bool("auth", cfg.JWT.Enabled))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// The recording flag stays persisted so a restart resumes recording.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown incomplete", zap.Error(err))
	}
	log.Info("Server shutdown complete")
	return nil
}
