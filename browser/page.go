package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/use-agent/ingestor/dom"
	"github.com/use-agent/ingestor/models"
	"github.com/use-agent/ingestor/notice"
	"github.com/ysmood/gson"
)

// navBinding is the window function the navigation observer reports to.
const navBinding = "__ingestorNavigated"

// waitSlack is added to a WaitFor timeout before the Go side gives up on
// the in-page promise.
const waitSlack = time.Second

// Page is a browser tab. It implements page.Page, page.Observer and
// notice.Notifier.
type Page struct {
	rod    *rod.Page
	router *rod.HijackRouter
	owned  bool
}

// Close stops request interception and closes tabs opened by Open.
func (p *Page) Close() {
	if p.router != nil {
		_ = p.router.Stop()
		p.router = nil
	}
	if p.owned {
		_ = p.rod.Close()
	}
}

// Navigate loads rawURL in the tab and waits for the DOM to settle.
func (p *Page) Navigate(ctx context.Context, rawURL string) error {
	nav := p.rod.Context(ctx)
	if err := nav.Navigate(rawURL); err != nil {
		return categorizeError(err, "navigation to target URL failed")
	}
	if err := nav.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", err)
	}
	return nil
}

func (p *Page) evalString(ctx context.Context, js string, args ...interface{}) (string, error) {
	res, err := p.rod.Context(ctx).Eval(js, args...)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Location returns window.location.href.
func (p *Page) Location(ctx context.Context) (*url.URL, error) {
	href, err := p.evalString(ctx, `() => location.href`)
	if err != nil {
		return nil, categorizeError(err, "failed to read page address")
	}
	return url.Parse(href)
}

// Title returns document.title.
func (p *Page) Title(ctx context.Context) (string, error) {
	title, err := p.evalString(ctx, `() => document.title`)
	if err != nil {
		return "", categorizeError(err, "failed to read page title")
	}
	return title, nil
}

// Snapshot serialises the live document, shadow roots included, and
// parses it into a detached copy.
func (p *Page) Snapshot(ctx context.Context) (*dom.Document, error) {
	markup, err := p.evalString(ctx, snapshotJS)
	if err != nil {
		return nil, categorizeError(err, "failed to serialise page")
	}
	doc, err := dom.ParseString(markup)
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeSnapshot, "failed to parse page snapshot", err)
	}
	return doc, nil
}

// WaitFor resolves once selector matches in the live document. The
// in-page observer enforces timeout; ctx is bounded slightly later so a
// wedged page still returns.
func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout+waitSlack)
	defer cancel()

	res, err := p.rod.Context(waitCtx).Eval(waitForJS, selector, timeout.Milliseconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return models.NewExtractError(models.ErrCodeTargetNotFound,
				fmt.Sprintf("%s not found within %s", selector, timeout), err)
		}
		return categorizeError(err, "waiting for "+selector)
	}
	if !res.Value.Bool() {
		return models.NewExtractError(models.ErrCodeTargetNotFound,
			fmt.Sprintf("%s not found within %s", selector, timeout), nil)
	}
	return nil
}

// Observe reports the page address after DOM mutation batches that follow
// an address change. The observer is reinstalled on every new document.
// The channel is closed when ctx is done.
func (p *Page) Observe(ctx context.Context) (<-chan string, error) {
	out := make(chan string, 16)
	var (
		mu     sync.Mutex
		closed bool
	)

	stop, err := p.rod.Expose(navBinding, func(arg gson.JSON) (interface{}, error) {
		mu.Lock()
		defer mu.Unlock()
		if closed {
			return nil, nil
		}
		select {
		case out <- arg.Str():
		case <-ctx.Done():
		}
		return nil, nil
	})
	if err != nil {
		return nil, models.NewExtractError(models.ErrCodeBrowser, "failed to expose navigation binding", err)
	}

	install := fmt.Sprintf("(%s)(%q)", observeJS, navBinding)
	remove, err := p.rod.EvalOnNewDocument(install)
	if err != nil {
		_ = stop()
		return nil, models.NewExtractError(models.ErrCodeBrowser, "failed to install navigation observer", err)
	}
	if _, err := p.rod.Context(ctx).Eval(observeJS, navBinding); err != nil {
		slog.Warn("navigation observer not installed on current document", "error", err)
	}

	go func() {
		<-ctx.Done()
		_ = remove()
		_ = stop()
		mu.Lock()
		closed = true
		close(out)
		mu.Unlock()
	}()
	return out, nil
}

// Notify shows a toast in the page. Failures are logged, never returned.
func (p *Page) Notify(ctx context.Context, text string, isError bool) {
	_, err := p.rod.Context(ctx).Eval(toastJS, text, isError,
		notice.VisibleFor.Milliseconds(), notice.Transition.Milliseconds())
	if err != nil {
		slog.Debug("toast failed", "text", text, "error", err)
	}
}

// categorizeError wraps rod errors so callers can tell timeouts from
// browser failures.
func categorizeError(err error, msg string) *models.ExtractError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewExtractError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewExtractError(models.ErrCodeTimeout, "operation canceled", err)
	default:
		return models.NewExtractError(models.ErrCodeBrowser, msg, err)
	}
}
