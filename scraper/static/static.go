// Package static serves scraper documents from fixed markup with goquery.
// It backs fixtures and the offline replay of saved pages (file:// targets).
package static

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"review-monitor/scraper"
)

var (
	ErrPageNotFound = errors.New("page not found")
	ErrClosed       = errors.New("document closed")
)

type element struct {
	sel *goquery.Selection
}

func (e element) Find(ctx context.Context, css string) (scraper.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s := e.sel.Find(css).First()
	if s.Length() == 0 {
		return nil, false, nil
	}
	return element{sel: s}, true, nil
}

func (e element) FindAll(ctx context.Context, css string) ([]scraper.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []scraper.Element
	e.sel.Find(css).Each(func(_ int, s *goquery.Selection) {
		out = append(out, element{sel: s})
	})
	return out, nil
}

func (e element) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.sel.Text(), nil
}

func (e element) Attr(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

// Document is a parsed, immutable page. Click and ScrollToBottom do nothing
// since static markup has no lazy content.
type Document struct {
	element
	markup string

	mu     sync.Mutex
	closed bool
}

// Parse builds a Document from HTML markup.
func Parse(markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("static: parse markup: %w", err)
	}
	return &Document{element: element{sel: doc.Selection}, markup: markup}, nil
}

func (d *Document) Content(ctx context.Context) (string, error) {
	if err := d.check(ctx); err != nil {
		return "", err
	}
	return d.markup, nil
}

func (d *Document) Click(ctx context.Context, _ scraper.Element) error {
	return d.check(ctx)
}

func (d *Document) ScrollToBottom(ctx context.Context, _ scraper.Element) error {
	return d.check(ctx)
}

func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (d *Document) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

func (d *Document) check(ctx context.Context) error {
	if d.Closed() {
		return ErrClosed
	}
	return ctx.Err()
}

// MapOpener serves pages from an in-memory URL → markup table.
type MapOpener map[string]string

func (m MapOpener) Open(ctx context.Context, url string) (scraper.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, &scraper.NavigationError{URL: url, Err: err}
	}
	markup, ok := m[url]
	if !ok {
		return nil, &scraper.NavigationError{URL: url, Err: ErrPageNotFound}
	}
	return open(url, markup)
}

// FileOpener replays pages saved to disk for file:// targets and hands every
// other URL to Next.
type FileOpener struct {
	Next scraper.Opener
}

func (f FileOpener) Open(ctx context.Context, url string) (scraper.Document, error) {
	path, ok := strings.CutPrefix(url, "file://")
	if !ok {
		if f.Next == nil {
			return nil, &scraper.NavigationError{URL: url, Err: ErrPageNotFound}
		}
		return f.Next.Open(ctx, url)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &scraper.NavigationError{URL: url, Err: err}
	}
	return open(url, string(b))
}

func open(url, markup string) (scraper.Document, error) {
	doc, err := Parse(markup)
	if err != nil {
		return nil, &scraper.NavigationError{URL: url, Err: err}
	}
	return doc, nil
}
