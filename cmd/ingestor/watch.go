package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/ingestor/api"
	"github.com/use-agent/ingestor/browser"
	"github.com/use-agent/ingestor/engine"
	"github.com/use-agent/ingestor/notice"
	"github.com/use-agent/ingestor/sink"
	"github.com/use-agent/ingestor/strategy"
	"github.com/use-agent/ingestor/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [url]",
	Short: "Follow a browser tab and capture every page it shows",
	Long: `Launches Chrome (or attaches with --cdp-url) and follows its first tab.
The page is captured at startup and again after every navigation, once the
page has been quiet for --spa-delay. A toast in the page reports each result.

Only that tab is followed while the command runs. Switching to another tab or
opening pages in new tabs does not move the capture; use capture <url> for
those pages.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var spaDelayMs int

func init() {
	f := watchCmd.Flags()
	f.IntVar(&spaDelayMs, "spa-delay", int(cfg.Ingest.SPADelay.Milliseconds()), "milliseconds to wait after a navigation before capturing")
	f.BoolVar(&cfg.Browser.Headless, "headless", cfg.Browser.Headless, "run a launched browser headless")
	f.StringVar(&cfg.Browser.StartURL, "start-url", cfg.Browser.StartURL, "page opened when the browser has no tab")
	f.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "control API port, 0 disables it")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if cmd.Flags().Changed("spa-delay") {
		cfg.Ingest.SPADelay = time.Duration(spaDelayMs) * time.Millisecond
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b, err := browser.Start(cfg.Browser)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := b.Active(ctx)
	if err != nil {
		return err
	}
	if len(args) == 1 {
		if err := p.Navigate(ctx, args[0]); err != nil {
			return err
		}
	}

	eng := engine.New(p,
		strategy.Default(cfg.Ingest.WaitTimeout),
		strategy.NewGeneric(),
		sink.New(cfg.Ingest.SinkURL, cfg.Ingest.SendTimeout),
		notice.Multi{p, notice.Log{}},
	)

	w := watcher.New(cfg.Ingest.SPADelay, func(ctx context.Context, address string) {
		report, err := eng.Run(ctx, "navigation")
		if err != nil {
			slog.Warn("capture failed", "armed_by", address, "error", err)
			return
		}
		slog.Debug("capture finished", "armed_by", address, "run_id", report.RunID, "outcome", report.Outcome)
	})

	mutations, err := p.Observe(ctx)
	if err != nil {
		return err
	}
	initial, err := p.Location(ctx)
	if err != nil {
		return err
	}

	if cfg.Server.Enabled() {
		srv := &http.Server{
			Addr:    cfg.Server.Addr(),
			Handler: api.NewRouter(ctx, eng, w, cfg, time.Now()),
		}
		go func() {
			slog.Info("control API listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("control API error", "error", err)
				stop()
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				slog.Error("control API forced shutdown", "error", err)
			}
		}()
	}

	slog.Info("watching",
		"url", initial.String(),
		"sink", cfg.Ingest.SinkURL,
		"spa_delay", cfg.Ingest.SPADelay,
		"strategies", eng.Strategies(),
	)

	err = w.Watch(ctx, initial.String(), mutations)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch: %w", err)
	}
	slog.Info("ingestor stopped")
	return nil
}
