package scraper

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

var (
	errNoMatch      = errors.New("no matching element")
	errNoAttr       = errors.New("attribute not set")
	errNoContent    = errors.New("source has no document content")
	errNoPatternHit = errors.New("pattern did not match")
)

// Strategy is one heuristic for locating the raw text of a field. Strategies
// are plain data so a field's fallback chain can be listed, reordered and
// tested independently of the code that runs it.
type Strategy struct {
	Name string
	// Query is a CSS selector evaluated under the source. Empty means the
	// source element itself.
	Query string
	// Attr reads this attribute instead of the element text.
	Attr string
	// Content reads the whole document markup instead of an element.
	// Query and Attr are ignored.
	Content bool
	// Pattern, when set, must match the raw value. Its first capture group
	// (or the whole match if it has none) becomes the value.
	Pattern *regexp.Regexp
}

// Read resolves the raw value of s against src.
func (s Strategy) Read(ctx context.Context, src Element) (string, error) {
	raw, err := s.resolve(ctx, src)
	if err != nil {
		return "", err
	}
	if s.Pattern == nil {
		return raw, nil
	}

	m := s.Pattern.FindStringSubmatch(raw)
	if m == nil {
		return "", errNoPatternHit
	}
	if len(m) > 1 {
		return m[1], nil
	}
	return m[0], nil
}

func (s Strategy) resolve(ctx context.Context, src Element) (string, error) {
	if s.Content {
		doc, ok := src.(interface {
			Content(ctx context.Context) (string, error)
		})
		if !ok {
			return "", errNoContent
		}
		return doc.Content(ctx)
	}

	el := src
	if s.Query != "" {
		found, ok, err := src.Find(ctx, s.Query)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errNoMatch
		}
		el = found
	}

	if s.Attr != "" {
		v, ok, err := el.Attr(ctx, s.Attr)
		if err != nil {
			return "", err
		}
		if !ok {
			return "", errNoAttr
		}
		return v, nil
	}
	return el.Text(ctx)
}

// Parser validates a raw value against a field's expected shape.
type Parser[T any] func(raw string) (T, bool)

// Field is a named semantic field with its ordered strategy chain.
type Field[T any] struct {
	Name       string
	Strategies []Strategy
	Parse      Parser[T]
}

// Extract runs the field's strategy chain against src.
func (f Field[T]) Extract(ctx context.Context, src Element) (T, bool) {
	v, _, ok := ExtractWith(ctx, src, f.Strategies, f.Parse)
	return v, ok
}

// Extract tries strategies in order and returns the first value that both
// resolves and parses. A failing strategy only moves on to the next one;
// exhausting the chain yields ok == false.
func Extract[T any](ctx context.Context, src Element, strategies []Strategy, parse Parser[T]) (T, bool) {
	v, _, ok := ExtractWith(ctx, src, strategies, parse)
	return v, ok
}

// ExtractWith is Extract that also reports the name of the winning strategy.
func ExtractWith[T any](ctx context.Context, src Element, strategies []Strategy, parse Parser[T]) (T, string, bool) {
	var zero T
	if src == nil || parse == nil {
		return zero, "", false
	}

	for _, s := range strategies {
		if ctx.Err() != nil {
			return zero, "", false
		}
		raw, err := tryRead(ctx, s, src)
		if err != nil {
			continue
		}
		if v, ok := parse(raw); ok {
			return v, s.Name, true
		}
	}
	return zero, "", false
}

// tryRead turns a panicking strategy into an ordinary failure.
func tryRead(ctx context.Context, s Strategy, src Element) (raw string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("strategy %s panicked: %v", s.Name, r)
		}
	}()
	return s.Read(ctx, src)
}
