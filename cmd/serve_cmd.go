package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"export-site/pkg/carousel"
	"export-site/pkg/config"
	"export-site/pkg/events"
	"export-site/pkg/handlers"
	"export-site/pkg/jobs"
	"export-site/pkg/services"
)

// newServeCmd creates a new command for serving the web application
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long:  `Start the web server to serve the catalog pages, the JSON API and the carousel event stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			return Serve(cmd.Context(), cfg)
		},
	}
}

// Serve runs the website until ctx is cancelled or the process is
// interrupted
func Serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services.InitService(cfg)
	catalogService := services.Default()
	if _, err := catalogService.Entries(ctx); err != nil {
		slog.Warn("Catalog not loaded at startup, will retry on request", slog.Any("error", err))
	}

	events.Init()
	defer events.Server.Close()

	playlist := services.NewPlaylistSource(cfg)
	if _, err := playlist.Playlist(ctx); err != nil {
		slog.Warn("Carousel playlist not loaded at startup, will retry per session", slog.Any("error", err))
	}

	// Every visitor gets a showcase on its own stream. The hooks have to be
	// in place before the first stream is opened.
	publisher := events.Publisher{Server: events.Server}
	showcases := services.NewShowcases(playlist, publisher, cfg.SessionTimeout, cfg.MaxSessions,
		carousel.WithInterval(cfg.CarouselInterval))
	publisher.Watch(showcases.Attach, showcases.Detach)
	defer showcases.Shutdown()

	refreshers := []jobs.Refresher{
		{Name: "catalog", Run: catalogService.Refresh},
		{Name: "playlist", Run: func(ctx context.Context) error {
			playlist.Invalidate()
			return showcases.Reload(ctx)
		}},
	}

	if cfg.RefreshInterval > 0 {
		scheduler, err := jobs.SetupInBackground(cfg.RefreshInterval, refreshers...)
		if err != nil {
			return err
		}
		scheduler.StartAsync()
		defer scheduler.Stop()
	}

	router := handlers.New(cfg, catalogService, showcases).Register(http.NewServeMux(), events.Server)
	server := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		cfg.PrintServerStartMessage()
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	// event streams never go idle, so end them before draining connections
	showcases.Shutdown()
	events.Server.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
