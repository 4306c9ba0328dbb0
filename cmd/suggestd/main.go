package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/predictive-search/internal/catalog"
	"github.com/kitbuilder587/predictive-search/internal/catalog/postgres"
	"github.com/kitbuilder587/predictive-search/internal/config"
	"github.com/kitbuilder587/predictive-search/internal/metrics"
	"github.com/kitbuilder587/predictive-search/internal/ratelimit"
	"github.com/kitbuilder587/predictive-search/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	seed := flag.Bool("seed", false, "import the demo catalog on startup")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	repo := postgres.NewProductRepo(db)
	if *seed {
		if _, err := catalog.ImportSeed(ctx, repo, logger); err != nil {
			return fmt.Errorf("import seed: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RateLimit.RequestsPerMinute})
	defer limiter.Stop()

	srv := server.New(server.Deps{
		Store:    repo,
		Limiter:  limiter,
		Logger:   logger,
		Metrics:  metrics.New(reg),
		Gatherer: reg,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Addr)
	})

	err = g.Wait()
	logger.Info("suggest server stopped", zap.Error(err))
	return err
}
