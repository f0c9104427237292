// Package scraper extracts reviews from rendered business pages. It only
// talks to the page through the Document/Element contract, so the same
// extraction code runs against a live browser or static markup.
package scraper

import (
	"context"
	"fmt"
)

// Element is an opaque handle to one node of a rendered document.
type Element interface {
	// Find returns the first descendant matching css. found is false when
	// nothing matches; that is not an error.
	Find(ctx context.Context, css string) (el Element, found bool, err error)
	// FindAll returns every descendant matching css, possibly none.
	FindAll(ctx context.Context, css string) ([]Element, error)
	// Text returns the visible text of the element.
	Text(ctx context.Context) (string, error)
	// Attr returns the named attribute; ok is false when it is not set.
	Attr(ctx context.Context, name string) (value string, ok bool, err error)
}

// Document is one opened target page. The document itself acts as the root
// Element. Close releases the underlying resources; it is idempotent and
// safe to call after any failure.
type Document interface {
	Element
	Content(ctx context.Context) (string, error)
	Click(ctx context.Context, el Element) error
	ScrollToBottom(ctx context.Context, el Element) error
	Close() error
}

// Opener navigates to a target URL and hands back the rendered document.
// Navigation failures are reported as *NavigationError.
type Opener interface {
	Open(ctx context.Context, url string) (Document, error)
}

// NavigationError means the target page could not be reached or did not
// load in time.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigate %s: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }
