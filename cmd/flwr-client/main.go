package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Julianrussmeyer/flower/pkg/client"
	"github.com/Julianrussmeyer/flower/pkg/config"
	"github.com/Julianrussmeyer/flower/pkg/observability"
	"github.com/Julianrussmeyer/flower/pkg/start"
	"github.com/Julianrussmeyer/flower/pkg/transport"
	"github.com/Julianrussmeyer/flower/pkg/transport/bidi"
	"github.com/Julianrussmeyer/flower/pkg/transport/rere"
)

func main() {
	cfgPath := flag.String("config", "", "path to YAML config (optional)")
	server := flag.String("server", "", "override coordinator address")
	mode := flag.String("transport", "", "override transport mode: bidi|rere")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *server != "" {
		cfg.ServerAddress = *server
	}
	if *mode != "" {
		cfg.Transport = *mode
	}

	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tlsc := &transport.TLSConfig{
		RootCAFile: cfg.TLS.RootCAFile,
		ServerName: cfg.TLS.ServerName,
		Insecure:   cfg.TLS.Insecure,
	}

	var conn transport.Connection
	switch cfg.Transport {
	case config.TransportBidi:
		conn, err = bidi.New(cfg.ServerAddress, tlsc, logger)
	case config.TransportRere:
		conn, err = rere.New(cfg.ServerAddress, tlsc, logger)
	default:
		logger.Fatal("unknown transport mode", zap.String("transport", cfg.Transport))
	}
	if err != nil {
		logger.Fatal("build transport", zap.Error(err))
	}

	opts := start.Options{
		PollInterval:   cfg.PollInterval(),
		BackoffInitial: cfg.Backoff.Initial(),
		BackoffMax:     cfg.Backoff.Max(),
		BackoffJitter:  cfg.Backoff.Jitter(),
		MaxFailures:    cfg.Backoff.MaxFailures,
	}

	logger.Info("starting client",
		zap.String("server", cfg.ServerAddress),
		zap.String("transport", cfg.Transport))

	if err := start.Run(ctx, conn, demoClient{log: logger}, opts, logger); err != nil {
		logger.Fatal("client terminated", zap.Error(err))
	}
	logger.Info("client stopped")
}

var _ client.Client = demoClient{}
