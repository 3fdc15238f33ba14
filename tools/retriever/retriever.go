// Package retriever turns a query into scraped web text: search, then fetch each link.
package retriever

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/askweb/internal/helpers"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch"
	"github.com/mohammad-safakhou/askweb/tools/web_fetch/cache"
	fetchmodels "github.com/mohammad-safakhou/askweb/tools/web_fetch/models"
	"github.com/mohammad-safakhou/askweb/tools/web_search"
	"golang.org/x/sync/errgroup"
)

// Result is everything one search produced. Heading and paragraph order across pages is not significant.
type Result struct {
	Links      []string
	Headings   []string
	Paragraphs []string
}

// Text joins headings then paragraphs with single spaces.
func (r Result) Text() string {
	parts := make([]string, 0, len(r.Headings)+len(r.Paragraphs))
	parts = append(parts, r.Headings...)
	parts = append(parts, r.Paragraphs...)
	return strings.Join(parts, " ")
}

type Retriever struct {
	Searcher      web_search.WebSearcher
	Fetcher       web_fetch.WebFetcher
	Cache         cache.Cache
	Workers       int
	MaxResults    int
	SearchTimeout time.Duration
	Permit        func(link string) bool // nil scrapes every http(s) link
	Logger        *log.Logger
}

// Retrieve searches for q and scrapes every http(s) link on a bounded worker pool.
// A failed page is logged and skipped; only the search itself can fail the call.
func (r *Retriever) Retrieve(ctx context.Context, q string) (Result, error) {
	k := r.MaxResults
	if k <= 0 {
		k = 3
	}
	sctx := ctx
	if r.SearchTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, r.SearchTimeout)
		defer cancel()
	}
	hits, err := r.Searcher.Discover(sctx, q, k)
	if err != nil {
		return Result{}, fmt.Errorf("search %q: %w", q, err)
	}

	var res Result
	for _, h := range hits {
		res.Links = append(res.Links, h.URL)
	}

	pages := make([]fetchmodels.Page, len(res.Links))
	seen := make(map[string]struct{}, len(res.Links))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i, link := range res.Links {
		if !strings.HasPrefix(link, "http") {
			r.logf("invalid url %q, skipping", link)
			continue
		}
		if canonical, err := helpers.CanonicalURL(link); err == nil {
			if _, dup := seen[canonical]; dup {
				continue
			}
			seen[canonical] = struct{}{}
		}
		if r.Permit != nil && !r.Permit(link) {
			r.logf("%s blocked by crawl policy, skipping", link)
			continue
		}
		g.Go(func() error {
			page, err := r.fetch(gctx, link)
			if err != nil {
				r.logf("scrape %s: %v", link, err)
				return nil
			}
			pages[i] = page
			return nil
		})
	}
	_ = g.Wait()

	for _, p := range pages {
		res.Headings = append(res.Headings, p.Headings...)
		res.Paragraphs = append(res.Paragraphs, p.Paragraphs...)
	}
	return res, ctx.Err()
}

func (r *Retriever) fetch(ctx context.Context, link string) (fetchmodels.Page, error) {
	if r.Cache != nil {
		if page, ok, err := r.Cache.Get(ctx, link); err != nil {
			r.logf("cache get %s: %v", link, err)
		} else if ok {
			return page, nil
		}
	}
	page, err := r.Fetcher.Exec(ctx, link)
	if err != nil {
		return fetchmodels.Page{}, err
	}
	if r.Cache != nil && !page.Empty() {
		if err := r.Cache.Set(ctx, link, page); err != nil {
			r.logf("cache set %s: %v", link, err)
		}
	}
	return page, nil
}

func (r *Retriever) workers() int {
	if r.Workers <= 0 {
		return 1
	}
	return r.Workers
}

func (r *Retriever) logf(format string, args ...any) {
	if r.Logger != nil {
		r.Logger.Printf(format, args...)
	}
}
