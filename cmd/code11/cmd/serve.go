package cmd

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

	"github.com/MeKo-Tech/code11/internal/barcode"
	"github.com/MeKo-Tech/code11/internal/config"
	"github.com/MeKo-Tech/code11/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	pruneInterval = time.Hour
	pruneIdle     = 24 * time.Hour
)

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start HTTP server for the validation API",
	Long: `Start an HTTP server that validates Code 11 barcodes.

The server provides the following endpoints:
  GET  /health          - Health check endpoint
  GET  /symbols         - The Code 11 symbol table
  POST /validate        - Validate one barcode
  POST /validate/batch  - Validate many barcodes
  GET  /ws/validate     - WebSocket validation stream
  GET  /metrics         - Prometheus metrics

Examples:
  code11 serve
  code11 serve --port 8080 --use-check
  code11 serve --host 0.0.0.0 --rate-limit-enabled`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := GetConfig()
		if err != nil {
			return err
		}

		serverConfig := buildServerConfig(cmd, cfg)
		if serverConfig.Port < 1 || serverConfig.Port > 65535 {
			return fmt.Errorf("invalid port number: %d (must be between 1 and 65535)", serverConfig.Port)
		}

		shutdownTimeout := cfg.Server.ShutdownTimeout
		if cmd.Flags().Changed("shutdown-timeout") {
			shutdownTimeout, _ = cmd.Flags().GetInt("shutdown-timeout")
		}

		return runServer(cmd.Context(), serverConfig, time.Duration(shutdownTimeout)*time.Second)
	},
}

// buildServerConfig merges the loaded configuration with explicitly set flags.
func buildServerConfig(cmd *cobra.Command, cfg *config.Config) server.Config {
	flags := cmd.Flags()

	sc := server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		CORSOrigin:   cfg.Server.CORSOrigin,
		MaxBodyKB:    int64(cfg.Server.MaxBodyKB),
		TimeoutSec:   cfg.Server.TimeoutSec,
		Defaults:     cfg.ToBarcodeOptions(),
		BatchWorkers: cfg.ToBatchConfig().Workers,
		RateLimit: server.RateLimitConfig{
			Enabled:           cfg.Server.RateLimitEnabled,
			RequestsPerMinute: cfg.Server.RequestsPerMinute,
			RequestsPerHour:   cfg.Server.RequestsPerHour,
			MaxRequestsPerDay: cfg.Server.MaxRequestsPerDay,
			MaxDataPerDay:     cfg.Server.MaxDataPerDay,
		},
	}

	sc.BatchProgressInterval = time.Duration(cfg.Batch.ProgressIntervalMS) * time.Millisecond

	if flags.Changed("host") {
		sc.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		sc.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("cors-origin") {
		sc.CORSOrigin, _ = flags.GetString("cors-origin")
	}
	if flags.Changed("max-body-kb") {
		sc.MaxBodyKB, _ = flags.GetInt64("max-body-kb")
	}
	if flags.Changed("timeout") {
		sc.TimeoutSec, _ = flags.GetInt("timeout")
	}
	if flags.Changed("use-check") {
		sc.Defaults.UseCheck, _ = flags.GetBool("use-check")
	}
	if flags.Changed("min-digits") {
		sc.Defaults.MinDigits, _ = flags.GetInt("min-digits")
	}
	if flags.Changed("workers") {
		sc.BatchWorkers, _ = flags.GetInt("workers")
	}
	if flags.Changed("rate-limit-enabled") {
		sc.RateLimit.Enabled, _ = flags.GetBool("rate-limit-enabled")
	}
	if flags.Changed("requests-per-minute") {
		sc.RateLimit.RequestsPerMinute, _ = flags.GetInt("requests-per-minute")
	}
	if flags.Changed("requests-per-hour") {
		sc.RateLimit.RequestsPerHour, _ = flags.GetInt("requests-per-hour")
	}
	if flags.Changed("max-requests-per-day") {
		sc.RateLimit.MaxRequestsPerDay, _ = flags.GetInt("max-requests-per-day")
	}
	if flags.Changed("max-data-per-day") {
		sc.RateLimit.MaxDataPerDay, _ = flags.GetInt64("max-data-per-day")
	}

	return sc
}

// runServer serves until SIGINT/SIGTERM or ctx cancellation, then shuts down
// gracefully within shutdownTimeout.
func runServer(parent context.Context, sc server.Config, shutdownTimeout time.Duration) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	srv, err := server.NewServer(sc)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", sc.Host, sc.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(sc.TimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(sc.TimeoutSec) * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting validation server",
			"host", sc.Host, "port", sc.Port,
			"format", barcode.FormatCode11.String(),
			"use_check", sc.Defaults.UseCheck, "min_digits", sc.Defaults.MinDigits)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			serveErr <- err
			cancel()
		}
	}()

	if sc.RateLimit.Enabled {
		go pruneRateLimiter(ctx, srv)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		slog.Info("Received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		slog.Info("Context cancelled, initiating shutdown")
	}

	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server shutdown completed")
	}

	if err := srv.Close(); err != nil {
		slog.Error("Server cleanup error", "error", err)
	}

	slog.Info("Graceful shutdown completed")

	select {
	case err := <-serveErr:
		return err
	default:
		return nil
	}
}

// pruneRateLimiter periodically forgets idle rate limit clients.
func pruneRateLimiter(ctx context.Context, srv *server.Server) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if n := srv.PruneRateLimiter(now.Add(-pruneIdle)); n > 0 {
				slog.Debug("Pruned idle rate limit clients", "count", n)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	addServeFlags(serveCmd.Flags())
}

// addServeFlags registers the serve flags with their configuration defaults.
func addServeFlags(flags *pflag.FlagSet) {
	defaults := config.DefaultConfig()

	flags.StringP("host", "H", defaults.Server.Host, "server host")
	flags.IntP("port", "p", defaults.Server.Port, "server port")
	flags.String("cors-origin", defaults.Server.CORSOrigin, "CORS allowed origins")
	flags.Int64("max-body-kb", int64(defaults.Server.MaxBodyKB), "maximum request body size in KB")
	flags.Int("timeout", defaults.Server.TimeoutSec, "request timeout in seconds")
	flags.Int("shutdown-timeout", defaults.Server.ShutdownTimeout, "shutdown timeout in seconds")
	// Validation defaults
	flags.Bool("use-check", defaults.Validation.UseCheck, "verify the modulus-11 check character by default")
	flags.Int("min-digits", defaults.Validation.MinDigits, "data symbols required when the check character is not used")
	flags.Int("workers", defaults.Batch.Workers, "batch validation workers")
	// Rate limiting flags
	flags.Bool("rate-limit-enabled", defaults.Server.RateLimitEnabled, "enable rate limiting")
	flags.Int("requests-per-minute", defaults.Server.RequestsPerMinute, "maximum requests per minute per client")
	flags.Int("requests-per-hour", defaults.Server.RequestsPerHour, "maximum requests per hour per client")
	flags.Int("max-requests-per-day", defaults.Server.MaxRequestsPerDay, "maximum requests per day per client")
	flags.Int64("max-data-per-day", defaults.Server.MaxDataPerDay, "maximum request bytes per day per client")
}
