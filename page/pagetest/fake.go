// Package pagetest provides an in-memory page.Page for tests.
package pagetest

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/use-agent/ingestor/dom"
	"github.com/use-agent/ingestor/models"
)

// Page is a static-HTML page whose address and markup can be changed while
// strategies run. SetHTML wakes pending WaitFor calls the way a DOM mutation
// wakes a MutationObserver.
type Page struct {
	mu      sync.Mutex
	url     *url.URL
	html    string
	changed chan struct{}

	// SnapshotErr, when set, is returned by Snapshot.
	SnapshotErr error
	// Snapshots counts Snapshot calls.
	Snapshots int
	// Notices records Notify calls.
	Notices []Notice
}

// Notice is one recorded user notice.
type Notice struct {
	Text    string
	IsError bool
}

// New creates a page at rawURL rendering markup.
func New(rawURL, markup string) *Page {
	p := &Page{changed: make(chan struct{})}
	p.SetURL(rawURL)
	p.html = markup
	return p
}

// SetURL changes the address, as a single-page-app navigation would.
func (p *Page) SetURL(rawURL string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		panic(fmt.Sprintf("pagetest: bad url %q: %v", rawURL, err))
	}
	p.mu.Lock()
	p.url = u
	p.mu.Unlock()
}

// SetHTML replaces the markup and wakes waiters.
func (p *Page) SetHTML(markup string) {
	p.mu.Lock()
	p.html = markup
	close(p.changed)
	p.changed = make(chan struct{})
	p.mu.Unlock()
}

// Location implements page.Page.
func (p *Page) Location(context.Context) (*url.URL, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u := *p.url
	return &u, nil
}

// Title implements page.Page.
func (p *Page) Title(ctx context.Context) (string, error) {
	doc, err := p.parse()
	if err != nil {
		return "", err
	}
	return doc.Title(), nil
}

// Snapshot implements page.Page.
func (p *Page) Snapshot(context.Context) (*dom.Document, error) {
	p.mu.Lock()
	p.Snapshots++
	snapErr := p.SnapshotErr
	p.mu.Unlock()
	if snapErr != nil {
		return nil, snapErr
	}
	return p.parse()
}

func (p *Page) parse() (*dom.Document, error) {
	p.mu.Lock()
	markup := p.html
	p.mu.Unlock()
	return dom.ParseString(markup)
}

// WaitFor implements page.Page.
func (p *Page) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		p.mu.Lock()
		markup, changed := p.html, p.changed
		p.mu.Unlock()

		doc, err := dom.ParseString(markup)
		if err != nil {
			return err
		}
		found, err := dom.Query(doc.Root(), selector)
		if err != nil {
			return err
		}
		if found.Length() > 0 {
			return nil
		}

		select {
		case <-changed:
		case <-timer.C:
			return models.NewExtractError(models.ErrCodeTargetNotFound,
				fmt.Sprintf("%s not found within %s", selector, timeout), nil)
		case <-ctx.Done():
			return models.NewExtractError(models.ErrCodeTimeout, "wait cancelled", ctx.Err())
		}
	}
}

// Notify records a notice.
func (p *Page) Notify(_ context.Context, text string, isError bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Notices = append(p.Notices, Notice{Text: text, IsError: isError})
}

// RecordedNotices returns a copy of the notices shown so far.
func (p *Page) RecordedNotices() []Notice {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Notice(nil), p.Notices...)
}
