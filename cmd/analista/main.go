package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mauv0809/analista/internal/config"
	"github.com/mauv0809/analista/internal/logging"
	"github.com/mauv0809/analista/internal/pipeline"
	"go.uber.org/zap"
)

var version = "dev"

const usage = "uso: analista <TICKER>"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}
	ticker, err := pipeline.NormalizeTicker(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	// Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuração: %v\n", err)
		return 1
	}

	logger, err := logging.New(cfg.Log.Level, cfg.IsProduction())
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		return 1
	}
	defer logger.Sync() //nolint:errcheck
	zap.ReplaceGlobals(logger)

	sentry, err := logging.SetupSentry(cfg.Sentry.DSN, cfg.Environment, version)
	if err != nil {
		logger.Warn("sentry disabled", zap.Error(err))
	}
	defer sentry.Flush()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Pipeline
	svc, err := pipeline.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("building pipeline", zap.Error(err))
		return 1
	}
	defer svc.Close()

	out, err := svc.Runner.Run(ctx, ticker)
	if err != nil {
		sentry.Capture(err, ticker)
		logger.Error("analysis failed", zap.String("ticker", ticker), zap.Error(err))
		return 1
	}

	fmt.Println(out.Analysis())
	return 0
}
