// Package browser drives Chrome over the DevTools protocol and exposes its
// tabs as page.Page.
package browser

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/ingestor/config"
	"github.com/use-agent/ingestor/models"
)

// Browser is a launched or attached Chrome instance.
type Browser struct {
	rod      *rod.Browser
	launcher *launcher.Launcher
	cfg      config.BrowserConfig
}

// Launch starts a Chrome process configured by cfg.
func Launch(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.Proxy != "" {
		l = l.Proxy(cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("no-first-run"))
	l.Set(flags.Flag("no-default-browser-check"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowser, "failed to launch browser", err)
	}
	slog.Info("browser launched", "controlURL", controlURL, "headless", cfg.Headless)

	b, err := connect(controlURL)
	if err != nil {
		l.Kill()
		return nil, err
	}
	return &Browser{rod: b, launcher: l, cfg: cfg}, nil
}

// Connect attaches to a Chrome instance that is already running, e.g. one
// started with --remote-debugging-port.
func Connect(cdpURL string, cfg config.BrowserConfig) (*Browser, error) {
	controlURL := cdpURL
	if resolved, err := launcher.ResolveURL(cdpURL); err == nil {
		controlURL = resolved
	}
	b, err := connect(controlURL)
	if err != nil {
		return nil, err
	}
	slog.Info("attached to browser", "controlURL", controlURL)
	return &Browser{rod: b, cfg: cfg}, nil
}

func connect(controlURL string) (*rod.Browser, error) {
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowser, "failed to connect to browser", err)
	}
	return b, nil
}

// Start launches or attaches depending on cfg.CDPURL.
func Start(cfg config.BrowserConfig) (*Browser, error) {
	if cfg.CDPURL != "" {
		return Connect(cfg.CDPURL, cfg)
	}
	return Launch(cfg)
}

// Close kills a launched browser. An attached browser is left running.
func (b *Browser) Close() {
	if b.launcher == nil {
		return
	}
	slog.Info("closing browser")
	if err := b.rod.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
	b.launcher.Kill()
	b.launcher.Cleanup()
}

// OpenOptions controls how Open prepares a new tab.
type OpenOptions struct {
	Stealth              bool
	BlockedResourceTypes []string
	BlockAds             bool
	NavigationTimeout    time.Duration
}

// Open creates a tab, applies stealth and request blocking before the
// first navigation, loads rawURL and waits for the DOM to settle.
func (b *Browser) Open(ctx context.Context, rawURL string, opts OpenOptions) (*Page, error) {
	rp, err := b.rod.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowser, "failed to create page", err)
	}
	p := &Page{rod: rp, owned: true}

	if opts.Stealth {
		if _, err := rp.EvalOnNewDocument(stealth.JS); err != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", err)
		}
	}
	p.router = setupHijack(rp, opts.BlockedResourceTypes, opts.BlockAds)

	timeout := opts.NavigationTimeout
	if timeout <= 0 {
		timeout = b.cfg.NavigationTimeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.Navigate(navCtx, rawURL); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// Active returns the first open tab, creating one at cfg.StartURL when
// the browser has none. The returned page stays bound to that target; tab
// switches in the browser are not followed.
func (b *Browser) Active(ctx context.Context) (*Page, error) {
	pages, err := b.rod.Context(ctx).Pages()
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowser, "failed to list pages", err)
	}
	if rp := pages.First(); rp != nil {
		return &Page{rod: rp}, nil
	}

	start := b.cfg.StartURL
	if start == "" {
		start = "about:blank"
	}
	rp, err := b.rod.Page(proto.TargetCreateTarget{URL: start})
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowser, "failed to create page", err)
	}
	return &Page{rod: rp}, nil
}
