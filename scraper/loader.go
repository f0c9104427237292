package scraper

import (
	"context"
	"time"

	"review-monitor/utils"
)

const (
	// DefaultScrollIterations is the scroll budget per page. The loop has no
	// reliable end-of-list signal, so it stops after this many passes.
	DefaultScrollIterations = 6
	// DefaultScrollPause gives lazy items time to render between passes.
	DefaultScrollPause = time.Second
	// DefaultActivatePause waits for the reviews view after a click.
	DefaultActivatePause = 2 * time.Second
	// DefaultMaxItems bounds how many review items are extracted.
	DefaultMaxItems = 50
	// MaxItemsLimit is the hard upper bound for MaxItems.
	MaxItemsLimit = 100
	// DefaultStableRounds ends scrolling early once this many consecutive
	// passes added no items. Zero always runs the full budget.
	DefaultStableRounds = 2
)

// LoaderQueries are the ordered CSS selector chains used by the loader.
type LoaderQueries struct {
	Activate  []string
	Container []string
	Items     []string
}

// LoaderConfig holds the tunable limits of the scroll loop.
type LoaderConfig struct {
	ScrollIterations int
	ScrollPause      time.Duration
	ActivatePause    time.Duration
	MaxItems         int
	StableRounds     int
}

// DefaultLoaderConfig returns the empirically chosen loop limits.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		ScrollIterations: DefaultScrollIterations,
		ScrollPause:      DefaultScrollPause,
		ActivatePause:    DefaultActivatePause,
		MaxItems:         DefaultMaxItems,
		StableRounds:     DefaultStableRounds,
	}
}

// ReviewListLoader forces lazily rendered review items into the document
// and returns them.
type ReviewListLoader struct {
	queries LoaderQueries
	cfg     LoaderConfig
	logger  *utils.Logger
}

// NewReviewListLoader creates a loader. A non-positive MaxItems falls back
// to DefaultMaxItems and larger values are capped at MaxItemsLimit.
func NewReviewListLoader(queries LoaderQueries, cfg LoaderConfig, logger *utils.Logger) *ReviewListLoader {
	switch {
	case cfg.MaxItems <= 0:
		cfg.MaxItems = DefaultMaxItems
	case cfg.MaxItems > MaxItemsLimit:
		cfg.MaxItems = MaxItemsLimit
	}
	if cfg.ScrollIterations < 0 {
		cfg.ScrollIterations = 0
	}
	return &ReviewListLoader{queries: queries, cfg: cfg, logger: logger}
}

// Load activates the reviews view, scrolls its container and enumerates the
// review items. Missing triggers or containers are tolerated; the only
// error returned is ctx's.
func (l *ReviewListLoader) Load(ctx context.Context, doc Document) ([]Element, error) {
	if l.activate(ctx, doc) {
		if err := utils.Pause(ctx, l.cfg.ActivatePause); err != nil {
			return nil, err
		}
	}

	if container, ok := l.container(ctx, doc); ok {
		if err := l.scroll(ctx, doc, container); err != nil {
			return nil, err
		}
	} else {
		l.debug("[loader] no scroll container found, reading items as rendered")
	}

	items := l.items(ctx, doc)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(items) > l.cfg.MaxItems {
		items = items[:l.cfg.MaxItems]
	}
	return items, nil
}

func (l *ReviewListLoader) activate(ctx context.Context, doc Document) bool {
	for _, q := range l.queries.Activate {
		el, ok, err := doc.Find(ctx, q)
		if err != nil || !ok {
			continue
		}
		if err := doc.Click(ctx, el); err != nil {
			l.debug("[loader] activation %q failed: %v", q, err)
			continue
		}
		l.debug("[loader] activated reviews view via %q", q)
		return true
	}
	return false
}

func (l *ReviewListLoader) container(ctx context.Context, doc Document) (Element, bool) {
	for _, q := range l.queries.Container {
		el, ok, err := doc.Find(ctx, q)
		if err == nil && ok {
			return el, true
		}
	}
	return nil, false
}

func (l *ReviewListLoader) scroll(ctx context.Context, doc Document, container Element) error {
	last := -1
	stable := 0

	for i := 0; i < l.cfg.ScrollIterations; i++ {
		if err := doc.ScrollToBottom(ctx, container); err != nil {
			l.debug("[loader] scroll %d failed: %v", i+1, err)
		}
		if err := utils.Pause(ctx, l.cfg.ScrollPause); err != nil {
			return err
		}

		if l.cfg.StableRounds <= 0 {
			continue
		}
		n := len(l.items(ctx, doc))
		if n == last {
			stable++
			if stable >= l.cfg.StableRounds {
				l.debug("[loader] item count stable at %d after %d scrolls", n, i+1)
				return nil
			}
		} else {
			stable = 0
		}
		last = n
	}
	return nil
}

// items returns the first non-empty result of the item query chain.
func (l *ReviewListLoader) items(ctx context.Context, doc Document) []Element {
	for _, q := range l.queries.Items {
		els, err := doc.FindAll(ctx, q)
		if err == nil && len(els) > 0 {
			return els
		}
	}
	return nil
}

func (l *ReviewListLoader) debug(format string, args ...any) {
	if l.logger != nil {
		l.logger.Debug(format, args...)
	}
}
