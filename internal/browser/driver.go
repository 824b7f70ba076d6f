// Package browser abstracts the browser-automation layer behind a small
// capability interface so the session, scanner and executor depend on
// the contract rather than a concrete automation library.
package browser

import (
	"context"
	"time"
)

// Driver is the capability surface wodbot needs from a browser. The
// production implementation drives Playwright; tests substitute fakes.
//
// Selector strings use Playwright/CSS syntax (including "text=" and
// ":has-text()" forms); fakes treat them as opaque keys.
type Driver interface {
	// Navigate loads the given URL and waits for the DOM to be ready.
	Navigate(ctx context.Context, url string) error
	// Click clicks the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Fill types value into the first element matching selector.
	Fill(ctx context.Context, selector, value string) error
	// WaitVisible blocks until selector is visible or timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Text returns the text content of the first match of selector.
	Text(ctx context.Context, selector string) (string, error)
	// Content returns the full rendered HTML of the current page.
	Content(ctx context.Context) (string, error)
	// URL returns the current page URL.
	URL() string
	// Close releases every browser resource. Safe to call more than once.
	Close() error
}
