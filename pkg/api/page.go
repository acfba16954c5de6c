package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// PageConfig holds batch page-fetch configuration.
type PageConfig struct {
	// MaxConcurrency is the maximum number of parallel page requests.
	MaxConcurrency int

	// PageSize is the _limit parameter sent per page.
	PageSize int

	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultPageConfig returns safe defaults for catalog-sized collections.
func DefaultPageConfig() PageConfig {
	return PageConfig{
		MaxConcurrency: 4,
		PageSize:       50,
		Timeout:        15 * time.Second,
	}
}

// ListAllPages fetches every page of the resource collection using a worker
// pool. Page 1 is fetched first to learn the total page count; remaining
// pages are distributed across workers. Failed pages are skipped with a
// warning and the partial result is returned together with the first error,
// so callers can choose between partial data and a hard failure.
//
// Item order across pages is preserved.
func (r *Resource[T]) ListAllPages(ctx context.Context, filters map[string]string, cfg PageConfig) ([]T, error) {
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 4
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	start := time.Now()

	firstPage, totalPages, err := r.ListPage(ctx, filters, 1, cfg.PageSize)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}
	if totalPages <= 1 {
		return firstPage, nil
	}

	log.Debug().
		Str("resource", r.path).
		Int("total_pages", totalPages).
		Msg("Starting parallel page fetch")

	pages := make([][]T, totalPages+1)
	pages[1] = firstPage

	pageQueue := make(chan int, totalPages)
	for page := 2; page <= totalPages; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	for i := 0; i < cfg.MaxConcurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for page := range pageQueue {
				select {
				case <-ctx.Done():
					return
				default:
				}

				pageCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
				items, _, err := r.ListPage(pageCtx, filters, page, cfg.PageSize)
				cancel()

				mu.Lock()
				if err != nil {
					log.Warn().
						Err(err).
						Str("resource", r.path).
						Int("page", page).
						Msg("Page fetch failed")
					if firstErr == nil {
						firstErr = err
					}
				} else {
					pages[page] = items
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	var all []T
	for _, items := range pages {
		all = append(all, items...)
	}

	log.Debug().
		Str("resource", r.path).
		Int("items", len(all)).
		Int("total_pages", totalPages).
		Dur("duration", time.Since(start)).
		Msg("Page fetch complete")

	if firstErr != nil {
		return all, fmt.Errorf("partial page fetch: %w", firstErr)
	}
	return all, nil
}
