// Command orchestrator runs the MCP server orchestrator: it loads a
// server fleet definition, supervises each server's lifecycle, guards
// every dispatched call, and exposes an HTTP control surface (spec §1).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mcporch/orchestrator/internal/audit"
	"github.com/mcporch/orchestrator/internal/config"
	"github.com/mcporch/orchestrator/internal/health"
	"github.com/mcporch/orchestrator/internal/httpapi"
	"github.com/mcporch/orchestrator/internal/observability"
	"github.com/mcporch/orchestrator/internal/orchestrator"
	"github.com/mcporch/orchestrator/internal/registry"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string
	var listenAddr string
	var auditLogPath string

	cmd := &cobra.Command{
		Use:   "orchestrator",
		Short: "Supervise and guard a fleet of MCP servers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), viper.GetString("config"), viper.GetString("listen"), viper.GetString("audit-log"))
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "orchestrator.json", "path to the orchestrator fleet configuration")
	cmd.Flags().StringVar(&listenAddr, "listen", ":8080", "address for the HTTP control surface")
	cmd.Flags().StringVar(&auditLogPath, "audit-log", "", "path to append audit events to (stdout if empty)")

	viper.SetEnvPrefix("ORCHESTRATOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	_ = viper.BindPFlag("config", cmd.Flags().Lookup("config"))
	_ = viper.BindPFlag("listen", cmd.Flags().Lookup("listen"))
	_ = viper.BindPFlag("audit-log", cmd.Flags().Lookup("audit-log"))

	return cmd
}

func run(ctx context.Context, configPath, listenAddr, auditLogPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(observability.LogConfig{Level: cfg.Observability.LogLevel})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	tracing, err := observability.NewTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Observability.OTel,
		ServiceName: "mcp-orchestrator",
	}, logger)
	if err != nil {
		return fmt.Errorf("build tracing: %w", err)
	}

	var auditWriter = os.Stdout
	if auditLogPath != "" {
		f, err := os.OpenFile(auditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open audit log: %w", err)
		}
		defer f.Close()
		sink := audit.NewSink(f, logger)
		return runWithSink(ctx, cfg, logger, sink, tracing, listenAddr)
	}

	sink := audit.NewSink(auditWriter, logger)
	return runWithSink(ctx, cfg, logger, sink, tracing, listenAddr)
}

func runWithSink(ctx context.Context, cfg *config.Config, logger *zap.Logger, sink *audit.Sink, tracing *observability.Tracing, listenAddr string) error {
	metrics := observability.NewMetrics()
	reg := registry.New(cfg.Servers)
	checker := health.NewChecker(time.Duration(config.DefaultProbeIntervalMs)*time.Millisecond, sink, metrics, logger)
	orch := orchestrator.New(reg, logger, sink, metrics, checker)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := orch.Start(ctx); err != nil {
		return fmt.Errorf("start orchestrator: %w", err)
	}
	checker.Start(ctx)

	apiServer := httpapi.New(orch, checker, sink, metrics, logger)
	httpSrv := &http.Server{Addr: listenAddr, Handler: apiServer}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("control surface listening", zap.String("addr", listenAddr))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("control surface failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(shutdownCtx)
	if err := orch.Shutdown(shutdownCtx); err != nil {
		logger.Error("orchestrator shutdown error", zap.Error(err))
	}
	_ = tracing.Shutdown(shutdownCtx)

	return nil
}
