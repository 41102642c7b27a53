package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alekingreal/ajudaita/internal/config"
	errwrap "github.com/alekingreal/ajudaita/internal/errors"
	"github.com/alekingreal/ajudaita/internal/llm"
	"github.com/alekingreal/ajudaita/internal/llm/driver/openai"
	"github.com/alekingreal/ajudaita/internal/metrics"
	"github.com/alekingreal/ajudaita/internal/observability"
	"github.com/alekingreal/ajudaita/internal/server"
	"github.com/alekingreal/ajudaita/internal/server/handlers"
	"github.com/alekingreal/ajudaita/internal/store"
)

var (
	servePort int
	serveHost string
)

// signalHealthChecker implements HealthChecker for the signal system.
type signalHealthChecker struct{}

func (signalHealthChecker) CheckHealth(ctx context.Context) error {
	return nil // Signal handlers are registered and ready
}

// telemetryHealthChecker ensures telemetry system and exporter are available
type telemetryHealthChecker struct{}

func (telemetryHealthChecker) CheckHealth(ctx context.Context) error {
	if observability.TelemetrySystem == nil || observability.PrometheusExporter == nil {
		return errwrap.NewInternalError("telemetry system not initialized")
	}
	return nil
}

// storeHealthChecker pings the record database.
type storeHealthChecker struct {
	db *store.Store
}

func (s storeHealthChecker) CheckHealth(ctx context.Context) error {
	if s.db == nil || s.db.DB == nil {
		return errwrap.NewInternalError("record store not initialized")
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.DB.PingContext(pingCtx)
}

// limiterHealthChecker reports the admission gate snapshot as degraded-only
// information; the gate blocks rather than fails, so this never errors.
type limiterHealthChecker struct {
	limiter *llm.RateLimiter
}

func (l limiterHealthChecker) CheckHealth(ctx context.Context) error {
	if l.limiter == nil {
		return errwrap.NewInternalError("rate limiter not initialized")
	}
	return nil
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the HTTP server with graceful shutdown support.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (placeholder - restart recommended)

The server will cleanly shut down the HTTP server, close the record store
and flush logs on shutdown.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()

		// Host/port flags override the config file when set explicitly.
		if cmd.Flags().Changed("host") {
			cfg.Server.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}

		if err := config.Validate(cfg); err != nil {
			ExitWithCode(observability.CLILogger, foundry.ExitConfigInvalid, "Invalid configuration", err)
		}

		observability.InitServerLogger("ajudaita", cfg.Logging.Level)

		if cfg.Metrics.Enabled {
			if err := observability.InitMetrics("ajudaita", cfg.Metrics.Port); err != nil {
				observability.ServerLogger.Error("Failed to initialize metrics", zap.Error(err))
				return errwrap.WrapInternal(cmd.Context(), err, "metrics initialization failed")
			}

			startedAt := time.Now()
			metrics.SetServerStartTime(startedAt.Unix())
			go func() {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()
				for range ticker.C {
					metrics.SetServerUptime(int64(time.Since(startedAt).Seconds()))
				}
			}()
		}

		observability.ServerLogger.Info("Initializing server",
			zap.String("service", "ajudaita"),
			zap.String("version", versionInfo.Version),
			zap.String("host", cfg.Server.Host),
			zap.Int("port", cfg.Server.Port),
			zap.Int("metrics_port", cfg.Metrics.Port),
			zap.String("model", cfg.LLM.Model),
			zap.Int("rpm", cfg.LLM.RPM),
			zap.Int("tpm", cfg.LLM.TPM))

		// Open the record store and run migrations before accepting traffic.
		db, err := store.Open(cmd.Context(), cfg.Store)
		if err != nil {
			return errwrap.WrapDatabaseError(cmd.Context(), err, "failed to open record store")
		}
		if err := db.Migrate(cmd.Context()); err != nil {
			_ = db.Close()
			return errwrap.WrapDatabaseError(cmd.Context(), err, "failed to migrate record store")
		}

		// Wire the assistant: provider driver, admission gate, dispatcher.
		drv := openai.NewClient(cfg.LLM.BaseURL, cfg.LLM.APIKey)
		limiter := llm.NewRateLimiter(cfg.LLM.RPM, cfg.LLM.TPM)
		assistant, err := llm.NewService(drv, limiter, llm.Options{
			Model:          cfg.LLM.Model,
			Timeout:        cfg.LLM.Timeout,
			Temperature:    cfg.LLM.Temperature,
			SmoothingDelay: cfg.LLM.SmoothingDelay,
		}, observability.ServerLogger)
		if err != nil {
			_ = db.Close()
			return errwrap.WrapInternal(cmd.Context(), err, "failed to build assistant")
		}

		handlers.SetAssistant(assistant)
		handlers.SetRecordStore(db)

		// Initialize health manager
		handlers.InitHealthManager(versionInfo.Version)
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("signal_handlers", signalHealthChecker{})
		hm.RegisterChecker("record_store", storeHealthChecker{db: db})
		hm.RegisterChecker("rate_limiter", limiterHealthChecker{limiter: limiter})
		if cfg.Metrics.Enabled {
			hm.RegisterChecker("telemetry", telemetryHealthChecker{})
		}

		srv := server.New(cfg.Server.Host, cfg.Server.Port)

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if shutdownTimeout == 0 {
			shutdownTimeout = 10 * time.Second
		}

		// Register graceful shutdown handlers (LIFO order - last registered, first executed)
		// Handler 1: Flush logger (executed last)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Flushing logger...")
			if err := observability.ServerLogger.Sync(); err != nil {
				// Sync errors are often benign (stdout/stderr already closed)
				observability.ServerLogger.Warn("Logger sync returned error (may be benign)",
					zap.Error(err))
			}
			return nil
		})

		// Handler 2: Close record store
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Closing record store...")
			if err := db.Close(); err != nil {
				observability.ServerLogger.Warn("Record store close returned error", zap.Error(err))
			}
			return nil
		})

		// Handler 3: Shutdown HTTP server (executed first)
		signals.OnShutdown(func(ctx context.Context) error {
			observability.ServerLogger.Info("Shutting down HTTP server...")
			shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				return errwrap.WrapInternal(ctx, err, "server shutdown failed")
			}

			observability.ServerLogger.Info("HTTP server stopped gracefully")
			return nil
		})

		// Config reload handler (SIGHUP). Limits and credentials are captured
		// at startup; a restart is required to change them.
		signals.OnReload(func(ctx context.Context) error {
			observability.ServerLogger.Info("Received SIGHUP: config reload is not supported, restart the server to apply changes")
			return nil
		})

		// Enable double-tap force quit (Ctrl+C within 2 seconds)
		if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
			Window:  2 * time.Second,
			Message: "Press Ctrl+C again within 2 seconds to force quit",
		}); err != nil {
			observability.ServerLogger.Warn("Failed to enable double-tap force quit",
				zap.Error(err))
		}

		// Start server in background goroutine
		errChan := make(chan error, 1)
		go func() {
			observability.ServerLogger.Info("Starting HTTP server...",
				zap.String("host", cfg.Server.Host),
				zap.Int("port", cfg.Server.Port))
			if err := srv.Start(); err != nil && err != http.ErrServerClosed {
				errChan <- err
			}
		}()

		// Start signal listener in background
		go func() {
			if err := signals.Listen(cmd.Context()); err != nil {
				observability.ServerLogger.Error("Signal handler error", zap.Error(err))
				errChan <- err
			}
		}()

		// Wait for error or shutdown completion
		if err := <-errChan; err != nil {
			return errwrap.WrapInternal(cmd.Context(), err, "server error")
		}

		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "server host")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "server port")
}
