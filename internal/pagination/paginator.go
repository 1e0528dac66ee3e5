// Package pagination walks cursor-paginated listings and merges their pages
// into a deduplicated, insertion-ordered collection.
package pagination

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bankin-collector/internal/metrics"
)

var (
	// ErrPageLimit is returned when a listing exceeds the configured page budget.
	ErrPageLimit = errors.New("page limit reached")
	// ErrCursorLoop is returned when the server hands back a cursor already visited.
	ErrCursorLoop = errors.New("cursor revisited")
)

// Page is one decoded page of a listing. An empty Next ends the walk.
type Page[T any] struct {
	Items []T
	Next  string
}

// FetchFunc loads the page a cursor points at.
type FetchFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// KeyFunc extracts the dedup key of an item.
type KeyFunc[T any, K comparable] func(T) K

// Option configures a Paginator.
type Option func(*options)

type options struct {
	maxPages int
	resource string
	logger   *zap.Logger
}

// WithMaxPages bounds the number of pages fetched per walk. Zero means unbounded.
func WithMaxPages(n int) Option {
	return func(o *options) { o.maxPages = n }
}

// WithResource names the listing in logs, metrics and errors.
func WithResource(name string) Option {
	return func(o *options) { o.resource = name }
}

// WithLogger sets the logger used for per-page debug events.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// Paginator follows next-page cursors and merges items by key.
// It holds no per-walk state, so one Paginator can run any number of walks.
type Paginator[T any, K comparable] struct {
	fetch FetchFunc[T]
	key   KeyFunc[T, K]
	opts  options
}

// New builds a Paginator over fetch, keyed by key.
func New[T any, K comparable](fetch FetchFunc[T], key KeyFunc[T, K], opts ...Option) *Paginator[T, K] {
	o := options{resource: "items", logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Paginator[T, K]{fetch: fetch, key: key, opts: o}
}

// FetchAll walks the cursor chain starting at start until a page has no next cursor.
// Items are kept in order of first appearance; an item whose key was already
// seen is dropped, never merged. Any fetch error aborts the walk.
func (p *Paginator[T, K]) FetchAll(ctx context.Context, start string) (*Collection[K, T], error) {
	items := NewCollection[K, T]()
	visited := make(map[string]struct{})

	for cursor := start; cursor != ""; {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if p.opts.maxPages > 0 && items.pages >= p.opts.maxPages {
			return nil, fmt.Errorf("%s: %w after %d pages", p.opts.resource, ErrPageLimit, items.pages)
		}
		if _, ok := visited[cursor]; ok {
			return nil, fmt.Errorf("%s: %w: %s", p.opts.resource, ErrCursorLoop, cursor)
		}
		visited[cursor] = struct{}{}

		page, err := p.fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("%s page %d: %w", p.opts.resource, items.pages+1, err)
		}
		items.pages++

		added := 0
		for _, item := range page.Items {
			if items.Add(p.key(item), item) {
				added++
			}
		}

		metrics.IncPage(p.opts.resource)
		metrics.AddDuplicates(p.opts.resource, len(page.Items)-added)
		p.opts.logger.Debug("pagination.page_fetched",
			zap.String("resource", p.opts.resource),
			zap.String("cursor", cursor),
			zap.Int("page", items.pages),
			zap.Int("items", len(page.Items)),
			zap.Int("added", added),
			zap.Bool("has_next", page.Next != ""))

		cursor = page.Next
	}

	return items, nil
}
