package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/ingestor/browser"
	"github.com/use-agent/ingestor/engine"
	"github.com/use-agent/ingestor/notice"
	"github.com/use-agent/ingestor/sink"
	"github.com/use-agent/ingestor/strategy"
)

var captureCmd = &cobra.Command{
	Use:   "capture <url>",
	Short: "Open one URL, capture it and exit",
	Long: `Opens the URL in a new tab (headless unless --headed), waits for the page to
settle and runs a single capture. The run report is printed to stdout. The
command fails when nothing could be extracted or the backend did not accept
the record.`,
	Args: cobra.ExactArgs(1),
	RunE: runCapture,
}

var (
	captureHeaded bool
	captureAds    bool
	captureDryRun bool
)

func init() {
	f := captureCmd.Flags()
	f.BoolVar(&captureHeaded, "headed", false, "show the browser window")
	f.BoolVar(&captureAds, "block-ads", true, "block known ad and tracking hosts")
	f.BoolVar(&captureDryRun, "dry-run", false, "print the payload instead of delivering it")
	f.BoolVar(&cfg.Browser.Stealth, "stealth", cfg.Browser.Stealth, "apply anti-detection patches")
	f.StringSliceVar(&cfg.Browser.BlockedResourceTypes, "block", cfg.Browser.BlockedResourceTypes, "resource types to block (Image, Stylesheet, Font, Media)")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bc := cfg.Browser
	bc.Headless = !captureHeaded
	b, err := browser.Start(bc)
	if err != nil {
		return err
	}
	defer b.Close()

	p, err := b.Open(ctx, args[0], browser.OpenOptions{
		Stealth:              bc.Stealth,
		BlockedResourceTypes: bc.BlockedResourceTypes,
		BlockAds:             captureAds,
		NavigationTimeout:    bc.NavigationTimeout,
	})
	if err != nil {
		return err
	}
	defer p.Close()

	var sender engine.Sender = sink.New(cfg.Ingest.SinkURL, cfg.Ingest.SendTimeout)
	if captureDryRun {
		sender = sink.NewWriter(cmd.OutOrStdout())
	}

	eng := engine.New(p,
		strategy.Default(cfg.Ingest.WaitTimeout),
		strategy.NewGeneric(),
		sender,
		notice.Log{},
	)
	report, runErr := eng.Run(ctx, "capture")

	if !captureDryRun {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return runErr
	}
	if report.Outcome != sink.OutcomeDelivered.String() {
		return fmt.Errorf("capture: backend outcome %s: %s", report.Outcome, report.Error)
	}
	return nil
}
