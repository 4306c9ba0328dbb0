package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/predictive-search/internal/config"
	"github.com/kitbuilder587/predictive-search/internal/metrics"
	"github.com/kitbuilder587/predictive-search/internal/predictive"
	"github.com/kitbuilder587/predictive-search/internal/search/storefront"
	"github.com/kitbuilder587/predictive-search/internal/telegram"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		return err
	}

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	suggester, err := storefront.New(storefront.Config{
		BaseURL: cfg.Suggest.BaseURL,
		Timeout: cfg.Suggest.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	// у каждого пользователя свой кеш, debounce и состояние троттлинга
	newClient := func(userID int64) (*predictive.Client, error) {
		return predictive.New(cfg.DomainConfig(), predictive.Deps{
			Suggester:      suggester,
			Logger:         logger.With(zap.Int64("user_id", userID)),
			Metrics:        m,
			Context:        ctx,
			DebounceRate:   cfg.Suggest.Debounce,
			CacheSize:      cfg.Suggest.CacheSize,
			RequestTimeout: cfg.Suggest.Timeout,
		})
	}

	botCfg := telegram.BotConfig{
		Token:    cfg.Telegram.Token,
		Debug:    cfg.Telegram.Debug,
		StoreURL: cfg.Suggest.BaseURL,
	}
	api, err := telegram.NewAPI(botCfg, logger)
	if err != nil {
		return err
	}

	bot, err := telegram.New(botCfg, api, newClient, logger)
	if err != nil {
		return err
	}

	metricsSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           metrics.Handler(reg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := bot.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("metrics listening", zap.String("addr", metricsSrv.Addr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return metricsSrv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
