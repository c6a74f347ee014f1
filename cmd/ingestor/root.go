package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/ingestor/config"
)

// cfg is loaded from the environment before any subcommand runs and then
// overridden by explicitly set flags.
var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:   "ingestor",
	Short: "Capture web pages as markdown and deliver them to an ingestion backend",
	Long: `ingestor drives a Chrome tab, extracts the page you are viewing with a
site-aware strategy (Reddit threads, GitHub repositories, YouTube videos)
or a readability fallback, and posts the result to the ingestion backend.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		initLogger(cfg.Log)
		return cfg.Validate()
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfg.Ingest.SinkURL, "sink-url", cfg.Ingest.SinkURL, "ingestion backend endpoint")
	pf.DurationVar(&cfg.Ingest.WaitTimeout, "wait-timeout", cfg.Ingest.WaitTimeout, "how long strategies wait for dynamic content")
	pf.DurationVar(&cfg.Ingest.SendTimeout, "send-timeout", cfg.Ingest.SendTimeout, "timeout of one delivery")
	pf.StringVar(&cfg.Browser.CDPURL, "cdp-url", cfg.Browser.CDPURL, "attach to a running Chrome instead of launching one")
	pf.StringVar(&cfg.Browser.BrowserBin, "browser-bin", cfg.Browser.BrowserBin, "Chromium binary to launch")
	pf.BoolVar(&cfg.Browser.NoSandbox, "no-sandbox", cfg.Browser.NoSandbox, "disable the Chrome sandbox")
	pf.StringVar(&cfg.Log.Level, "log-level", cfg.Log.Level, "debug, info, warn or error")
	pf.StringVar(&cfg.Log.Format, "log-format", cfg.Log.Format, "text or json")
}

// initLogger configures slog based on the LogConfig. Logs go to stderr so
// capture output on stdout stays machine readable.
func initLogger(lc config.LogConfig) {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
