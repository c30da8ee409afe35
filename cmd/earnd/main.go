package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"earnd/config"
	"earnd/engine"
	"earnd/mint"
	"earnd/observability/logging"
	telemetry "earnd/observability/otel"
	"earnd/server"
	"earnd/server/middleware"
	"earnd/strategy"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "earnd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "path to earnd configuration")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("EARND_ENV"))
	logging.Setup("earnd", env)

	shutdownTelemetry, err := telemetry.Setup(context.Background(), "earnd", env)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	table := strategy.Default()
	if len(cfg.Strategies) > 0 {
		entries := make([]strategy.Strategy, 0, len(cfg.Strategies))
		for _, sc := range cfg.Strategies {
			entries = append(entries, strategy.Strategy{ID: sc.ID, APY: sc.APY, Weight: sc.Weight})
		}
		table, err = strategy.NewTable(entries)
		if err != nil {
			return fmt.Errorf("build strategy table: %w", err)
		}
	}
	calc := engine.NewCalculator(table, cfg.Boost)

	opts := []engine.Option{
		engine.WithPrincipal(cfg.Principal),
		engine.WithSettlementInterval(cfg.Settlement.MinInterval.Duration),
		engine.WithSettlementTimeout(cfg.Settlement.MintTimeout.Duration),
	}
	if cfg.Chain.MintingConfigured() {
		dialCtx, cancel := context.WithTimeout(context.Background(), cfg.Settlement.MintTimeout.Duration)
		minter, err := mint.NewEVMMinter(
			dialCtx,
			cfg.Chain.RPCURL,
			cfg.Chain.SignerKey(),
			common.HexToAddress(cfg.Chain.TokenAddress),
			cfg.Settlement.GasLimit,
		)
		cancel()
		if err != nil {
			return fmt.Errorf("init minter: %w", err)
		}
		defer minter.Close()
		opts = append(opts, engine.WithMinter(minter))
		slog.Info("minting enabled", "signer", minter.From().Hex(), "token", cfg.Chain.TokenAddress)
	} else {
		slog.Warn("chain credentials missing, minting disabled")
	}

	eng := engine.New(calc, opts...)

	srv := server.New(server.Config{
		ListenAddress:  cfg.ListenAddress,
		Version:        version,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit: middleware.RateLimit{
			RequestsPerMinute: cfg.HTTP.RequestsPerMinute,
			Burst:             cfg.HTTP.Burst,
		},
	}, eng, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = srv.Run(ctx)
	// Let confirmed mints finish reconciling before the process exits.
	eng.Drain()
	return err
}
