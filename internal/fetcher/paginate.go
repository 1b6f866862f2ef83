// Package fetcher drives paginated and per-item fetches against the upstream APIs.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/feral-file/castindex/internal/adapter"
	"github.com/feral-file/castindex/internal/logger"
)

// Page is one page of a cursor-paginated listing
type Page[T any] struct {
	Items []T
	// Cursor continues the listing, empty on the last page
	Cursor string
}

// PageFunc fetches the page that starts at cursor. The first call receives the start cursor.
type PageFunc[T any] func(ctx context.Context, cursor string) (Page[T], error)

// StopFunc reports whether the listing should end after the given page
type StopFunc[T any] func(items []T) bool

// Paginator walks a cursor-paginated listing
type Paginator struct {
	clock adapter.Clock
	// delay is waited between two successful pages
	delay time.Duration
}

// NewPaginator creates a paginator that waits delay between pages
func NewPaginator(clock adapter.Clock, delay time.Duration) *Paginator {
	return &Paginator{clock: clock, delay: delay}
}

// Paginate fetches pages from start until the cursor runs out or stop returns true for a page.
// Items of every fetched page, including the one that triggered stop, are returned in order.
// A page that fails after retries aborts the listing; nothing is returned in that case.
func Paginate[T any](ctx context.Context, p *Paginator, start string, fetch PageFunc[T], stop StopFunc[T]) ([]T, error) {
	var all []T
	cursor := start

	for pageNum := 1; ; pageNum++ {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch page %d: %w", pageNum, err)
		}
		all = append(all, page.Items...)

		logger.DebugCtx(ctx, "Fetched page",
			zap.Int("page", pageNum),
			zap.Int("items", len(page.Items)),
			zap.Int("total", len(all)),
		)

		if page.Cursor == "" || (stop != nil && stop(page.Items)) {
			return all, nil
		}
		cursor = page.Cursor

		if p.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-p.clock.After(p.delay):
			}
		}
	}
}
