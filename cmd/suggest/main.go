package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/kitbuilder587/predictive-search/internal/config"
	"github.com/kitbuilder587/predictive-search/internal/predictive"
	"github.com/kitbuilder587/predictive-search/internal/search/storefront"
	"github.com/kitbuilder587/predictive-search/internal/tui"
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

	// терминал занят программой, без LOG_FILE логи выключены
	logger := zap.NewNop()
	if cfg.Log.File != "" {
		if logger, err = config.NewLogger(cfg.Log); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer logger.Sync()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	suggester, err := storefront.New(storefront.Config{
		BaseURL: cfg.Suggest.BaseURL,
		Timeout: cfg.Suggest.Timeout,
	}, logger)
	if err != nil {
		return err
	}

	client, err := predictive.New(cfg.DomainConfig(), predictive.Deps{
		Suggester:      suggester,
		Logger:         logger,
		Context:        ctx,
		DebounceRate:   cfg.Suggest.Debounce,
		CacheSize:      cfg.Suggest.CacheSize,
		RequestTimeout: cfg.Suggest.Timeout,
	})
	if err != nil {
		return err
	}

	p := tea.NewProgram(tui.New(client), tea.WithContext(ctx))
	tui.Subscribe(ctx, client, p.Send)

	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
