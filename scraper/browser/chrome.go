// Package browser opens target pages in headless Chrome through chromedp.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"review-monitor/scraper"
)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	scrollJS = `function() { this.scrollTop = this.scrollHeight; }`
	// innerText falls back to textContent for nodes that are not rendered
	textJS = `function() { return this.innerText; }`
)

var ErrClosed = errors.New("browser: document closed")

// Options configures the Chrome process started for each document.
type Options struct {
	ChromeBin    string
	Headless     bool
	NavTimeout   time.Duration
	OpTimeout    time.Duration
	WindowWidth  int
	WindowHeight int
}

// Launcher starts one isolated browser per opened document, so a crashed
// or wedged page never leaks into the next target.
type Launcher struct {
	opts Options
}

// NewLauncher resolves the Chrome binary and returns a Launcher.
func NewLauncher(opts Options) *Launcher {
	if opts.ChromeBin == "" {
		opts.ChromeBin = findChromeBinary()
	}
	if opts.NavTimeout <= 0 {
		opts.NavTimeout = 60 * time.Second
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = 10 * time.Second
	}
	if opts.WindowWidth <= 0 || opts.WindowHeight <= 0 {
		opts.WindowWidth, opts.WindowHeight = 1400, 900
	}
	return &Launcher{opts: opts}
}

// ChromeBin reports the resolved browser binary ("" means chromedp's default lookup).
func (l *Launcher) ChromeBin() string { return l.opts.ChromeBin }

func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", "en-US"),
		chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight),
		chromedp.UserAgent(userAgent),
	)
	if l.opts.ChromeBin != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ChromeBin))
	}
	return opts
}

// Open starts a browser, navigates to url and waits for the load event,
// bounded by NavTimeout. On failure every resource is released before
// returning.
func (l *Launcher) Open(ctx context.Context, url string) (scraper.Document, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, l.allocatorOptions()...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	d := &Document{
		tab:       tabCtx,
		opTimeout: l.opts.OpTimeout,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}

	// The first Run starts the browser; it must not carry the navigation
	// timeout or the browser dies with it.
	if err := chromedp.Run(tabCtx); err != nil {
		d.Close()
		return nil, &scraper.NavigationError{URL: url, Err: fmt.Errorf("start browser: %w", err)}
	}

	navCtx, cancelNav := context.WithTimeout(tabCtx, l.opts.NavTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		d.Close()
		return nil, &scraper.NavigationError{URL: url, Err: err}
	}
	return d, nil
}

// Document is a live page in its own browser process.
type Document struct {
	tab       context.Context
	opTimeout time.Duration

	once   sync.Once
	cancel func()
	closed bool
	mu     sync.Mutex
}

type element struct {
	doc  *Document
	node *cdp.Node
}

// run executes actions on the tab, bounded by the op timeout and by ctx.
func (d *Document) run(ctx context.Context, actions ...chromedp.Action) error {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return ErrClosed
	}

	opCtx, cancel := context.WithTimeout(d.tab, d.opTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(opCtx, actions...)
}

func (d *Document) query(ctx context.Context, from *cdp.Node, css string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if from != nil {
		opts = append(opts, chromedp.FromNode(from))
	}
	if err := d.run(ctx, chromedp.Nodes(css, &nodes, opts...)); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (d *Document) find(ctx context.Context, from *cdp.Node, css string) (scraper.Element, bool, error) {
	nodes, err := d.query(ctx, from, css)
	if err != nil || len(nodes) == 0 {
		return nil, false, err
	}
	return element{doc: d, node: nodes[0]}, true, nil
}

func (d *Document) findAll(ctx context.Context, from *cdp.Node, css string) ([]scraper.Element, error) {
	nodes, err := d.query(ctx, from, css)
	if err != nil {
		return nil, err
	}
	out := make([]scraper.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, element{doc: d, node: n})
	}
	return out, nil
}

func (d *Document) Find(ctx context.Context, css string) (scraper.Element, bool, error) {
	return d.find(ctx, nil, css)
}

func (d *Document) FindAll(ctx context.Context, css string) ([]scraper.Element, error) {
	return d.findAll(ctx, nil, css)
}

func (d *Document) Text(ctx context.Context) (string, error) {
	var s string
	err := d.run(ctx, chromedp.Text("body", &s, chromedp.ByQuery))
	return s, err
}

// Attr reads attributes of the root <html> element.
func (d *Document) Attr(ctx context.Context, name string) (string, bool, error) {
	var v string
	var ok bool
	err := d.run(ctx, chromedp.AttributeValue("html", name, &v, &ok, chromedp.ByQuery))
	return v, ok, err
}

func (d *Document) Content(ctx context.Context) (string, error) {
	var html string
	err := d.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (d *Document) Click(ctx context.Context, el scraper.Element) error {
	n, err := d.nodeOf(el)
	if err != nil {
		return err
	}
	return d.run(ctx, chromedp.Click([]cdp.NodeID{n.NodeID}, chromedp.ByNodeID))
}

func (d *Document) ScrollToBottom(ctx context.Context, el scraper.Element) error {
	n, err := d.nodeOf(el)
	if err != nil {
		return err
	}
	_, err = d.callOn(ctx, n, scrollJS)
	if err != nil {
		return fmt.Errorf("scroll: %w", err)
	}
	return nil
}

// callOn runs fn with this bound to node and returns its JSON result.
// Unlike chromedp's query actions it does not wait for visibility.
func (d *Document) callOn(ctx context.Context, node *cdp.Node, fn string) ([]byte, error) {
	var out []byte
	err := d.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node.NodeID).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		res, exc, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return err
		}
		if exc != nil {
			return errors.New(exc.Text)
		}
		if res != nil {
			out = res.Value
		}
		return nil
	}))
	return out, err
}

// Close kills the tab and its browser process. Safe to call repeatedly.
func (d *Document) Close() error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		d.mu.Unlock()
		d.cancel()
	})
	return nil
}

func (d *Document) nodeOf(el scraper.Element) (*cdp.Node, error) {
	e, ok := el.(element)
	if !ok || e.doc != d {
		return nil, errors.New("browser: element belongs to another document")
	}
	return e.node, nil
}

func (e element) Find(ctx context.Context, css string) (scraper.Element, bool, error) {
	return e.doc.find(ctx, e.node, css)
}

func (e element) FindAll(ctx context.Context, css string) ([]scraper.Element, error) {
	return e.doc.findAll(ctx, e.node, css)
}

func (e element) Text(ctx context.Context) (string, error) {
	raw, err := e.doc.callOn(ctx, e.node, textJS)
	if err != nil {
		return "", err
	}
	var s string
	if len(raw) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("decode text: %w", err)
	}
	return s, nil
}

func (e element) Attr(_ context.Context, name string) (string, bool, error) {
	v, ok := e.node.Attribute(name)
	return v, ok, nil
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
