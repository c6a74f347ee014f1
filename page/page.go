// Package page defines the view the extraction core has of the live
// document the user is looking at.
package page

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/use-agent/ingestor/dom"
)

// Page is the live document. It is mutated only by the browser; the core
// reads it and never writes to it.
type Page interface {
	// Location returns the current address.
	Location(ctx context.Context) (*url.URL, error)

	// Title returns document.title.
	Title(ctx context.Context) (string, error)

	// Snapshot returns a detached copy of the DOM, open shadow roots included.
	Snapshot(ctx context.Context) (*dom.Document, error)

	// WaitFor blocks until an element matching selector is attached to the
	// document or timeout elapses. It returns a TARGET_NOT_FOUND
	// ExtractError on timeout.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
}

// Observer reports DOM mutation batches. Each message is the page address
// at the time the batch was observed.
type Observer interface {
	Observe(ctx context.Context) (<-chan string, error)
}

// Host returns u's host name without port, lower-cased.
func Host(u *url.URL) string {
	if u == nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// HostMatches reports whether host is domain or one of its subdomains.
func HostMatches(host, domain string) bool {
	if host == domain {
		return true
	}
	return strings.HasSuffix(host, "."+domain)
}
