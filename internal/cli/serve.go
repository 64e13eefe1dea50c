package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"

	"github.com/invoice-intake/backend/internal/api"
	"github.com/invoice-intake/backend/internal/config"
	"github.com/invoice-intake/backend/internal/intake"
	"github.com/invoice-intake/backend/internal/processing"
	"github.com/invoice-intake/backend/internal/query"
	"github.com/invoice-intake/backend/internal/storage"
	"github.com/invoice-intake/backend/internal/store"
	"github.com/invoice-intake/backend/internal/web"
)

// DefaultConfigName is looked up next to the executable when --config is not given.
const DefaultConfigName = "invoice-intake.config"

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	ConfigPath string
}

// NewServeCommand creates the serve command.
func NewServeCommand(info BuildInfo) *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Run the invoice intake HTTP server.

The XML config file is created with defaults when it does not exist.

Example:
  invoice-intake serve
  invoice-intake serve --config /etc/invoice-intake/invoice-intake.config`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.ConfigPath
			if path == "" {
				var err error
				if path, err = defaultConfigPath(); err != nil {
					return err
				}
			}

			cfg, err := config.LoadConfig(path)
			if err != nil {
				return err
			}
			logger := config.SetupLogger(cfg, os.Stderr)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := NewServer(cfg, logger, info)
			if err != nil {
				return err
			}
			logger.Info("Configuration loaded", slog.String("path", path))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to the XML config file")

	return cmd
}

func defaultConfigPath() (string, error) {
	exePath, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}
	return filepath.Join(filepath.Dir(exePath), DefaultConfigName), nil
}

// Server owns every long-lived component of a running service.
type Server struct {
	cfg       *config.AppConfig
	logger    *slog.Logger
	echo      *echo.Echo
	store     store.Store
	simulator *processing.Simulator
	hub       *api.InvoiceHub
}

// NewServer wires the components described by cfg.
func NewServer(cfg *config.AppConfig, logger *slog.Logger, info BuildInfo) (*Server, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	files, err := storage.NewLocalStore(cfg.GetUploadDir())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	var records store.Store
	records, err = store.New(store.Options{
		Backend:       cfg.Storage.Backend,
		DuckDBThreads: cfg.Storage.DuckDBThreads,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize record store: %w", err)
	}
	if cfg.Query.CacheSize > 0 {
		records = store.NewCached(records, cfg.Query.CacheSize, cfg.CacheTTL())
	}

	catalog := processing.DefaultCatalog()
	if cfg.Processing.CatalogFile != "" {
		if catalog, err = processing.LoadCatalog(cfg.Processing.CatalogFile); err != nil {
			records.Close()
			return nil, err
		}
	}
	fabricator, err := processing.NewRandomFabricator(catalog, nil)
	if err != nil {
		records.Close()
		return nil, err
	}

	hub := api.NewInvoiceHub(logger)

	minDelay, maxDelay := cfg.ProcessingDelays()
	sim := processing.NewSimulator(records, processing.SimulatorConfig{
		MinDelay:    minDelay,
		MaxDelay:    maxDelay,
		FailureRate: cfg.Processing.FailureRate,
	}, processing.WithNotifier(hub), processing.WithLogger(logger))

	svc := intake.NewService(intake.Deps{
		Store:      records,
		Files:      files,
		Fabricator: fabricator,
		Processor:  sim,
		Notifier:   hub,
		Logger:     logger,
	})

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	api.SetupMiddleware(e, api.MiddlewareConfig{
		Logger:           logger,
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		BodyLimit:        cfg.Server.BodyLimit,
		EnableCORS:       cfg.Server.EnableCORS,
		AllowOrigins:     cfg.Server.AllowOrigins,
		Compression:      cfg.Advanced.EnableCompression,
		CompressionLevel: cfg.Advanced.CompressionLevel,
	})
	api.RegisterRoutes(e, api.NewHandlers(&api.Dependencies{
		Store:    records,
		Files:    files,
		Ingester: svc,
		Hub:      hub,
		QueryDefaults: query.Defaults{
			Limit:    cfg.Query.DefaultLimit,
			MaxLimit: cfg.Query.MaxLimit,
		},
		Version: info.Version,
		Logger:  logger,
	}))

	if web.HasEmbeddedFiles() {
		if err := web.RegisterStaticRoutes(e); err != nil {
			logger.Warn("Failed to register static routes", slog.Any("error", err))
		}
	}

	return &Server{
		cfg:       cfg,
		logger:    logger,
		echo:      e,
		store:     records,
		simulator: sim,
		hub:       hub,
	}, nil
}

// Handler exposes the HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:         s.cfg.GetServerAddr(),
		Handler:      s.echo,
		ReadTimeout:  time.Duration(s.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(s.cfg.Server.IdleTimeout) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening",
			slog.String("addr", "http://"+s.cfg.GetServerAddr()),
			slog.String("data_dir", s.cfg.GetDataDir()),
			slog.String("store", s.cfg.Storage.Backend),
		)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			s.Shutdown(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout())
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP shutdown failed", slog.Any("error", err))
	}
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting processing work, waits for scheduled invoices
// until ctx expires, then releases the store.
func (s *Server) Shutdown(ctx context.Context) error {
	s.simulator.Close()

	done := make(chan struct{})
	go func() {
		s.simulator.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Processing drained")
	case <-ctx.Done():
		s.logger.Warn("Shutdown timeout reached, abandoning scheduled processing")
	}

	s.hub.Close()
	return s.store.Close()
}
