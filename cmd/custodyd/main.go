package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"custodychain/config"
	"custodychain/core"
	"custodychain/core/types"
	"custodychain/observability/logging"
	"custodychain/observability/otel"
)

const maxBlockLine = 4 << 20

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	blocksFile := flag.String("blocks", "", "JSON lines file; each line is an array of signed transactions forming one block")
	metricsAddr := flag.String("metrics", "", "Serve Prometheus metrics on this address and keep running")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := logging.Setup("custodyd", cfg.Environment,
		logging.WithLevel(level),
		logging.WithFile(cfg.LogFile, 100, 5),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *blocksFile, *metricsAddr); err != nil {
		logger.Error("custodyd stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, blocksFile, metricsAddr string) error {
	shutdown, err := otel.Init(ctx, otel.FromSettings("custodyd", cfg.Environment, cfg.Telemetry))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", slog.Any("error", err))
		}
	}()

	node, err := core.Open(cfg, logger)
	if err != nil {
		return fmt.Errorf("open node: %w", err)
	}
	defer node.Close()

	if strings.TrimSpace(blocksFile) != "" {
		if err := replayBlocks(ctx, node, blocksFile, logger); err != nil {
			return err
		}
	}
	if strings.TrimSpace(metricsAddr) == "" {
		return nil
	}
	return serveMetrics(ctx, metricsAddr, logger)
}

// replayBlocks produces one block per line of path.
func replayBlocks(ctx context.Context, node *core.Node, path string, logger *slog.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxBlockLine)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var txs []*types.Transaction
		if err := json.Unmarshal([]byte(raw), &txs); err != nil {
			return fmt.Errorf("%s:%d: decode block: %w", path, line, err)
		}
		result, err := node.ProduceBlockContext(ctx, txs)
		if err != nil {
			return fmt.Errorf("%s:%d: produce block: %w", path, line, err)
		}
		for i, tx := range result.Txs {
			if tx.Err != nil {
				logger.Warn("transaction failed",
					"height", result.Height,
					"index", i,
					"error", tx.Err,
				)
			}
		}
	}
	return scanner.Err()
}

func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           otelhttp.NewHandler(mux, "custodyd.metrics"),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
