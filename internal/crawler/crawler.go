package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/fetcher"
	"github.com/deidaraiorek/lemmasearch/internal/parser"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
	"golang.org/x/time/rate"
)

type Fetcher interface {
	Fetch(ctx context.Context, urlStr string) *fetcher.Document
}

type StatusChecker interface {
	IsIndexing(ctx context.Context, siteID int64) (bool, error)
}

// Toucher is implemented by status checkers that can record progress of a
// running site.
type Toucher interface {
	Touch(ctx context.Context, siteID int64) error
}

type Config struct {
	Parallelism     int
	PolitenessDelay time.Duration
	MaxPages        int
}

type Result struct {
	Pages []*storage.Page
}

type Crawler struct {
	config  Config
	fetcher Fetcher
	status  StatusChecker
	logger  *slog.Logger
}

func New(config Config, f Fetcher, status StatusChecker) *Crawler {
	if config.Parallelism <= 0 {
		config.Parallelism = runtime.NumCPU()
	}
	return &Crawler{
		config:  config,
		fetcher: f,
		status:  status,
		logger:  slog.Default().With("component", "crawler"),
	}
}

func (c *Crawler) WithLogger(logger *slog.Logger) *Crawler {
	c.logger = logger.With("component", "crawler")
	return c
}

// run holds the state of one site crawl.
type run struct {
	*Crawler
	site    *storage.Site
	scope   *parser.Scope
	visited *PathSet
	limiter *rate.Limiter
	sem     chan struct{}
	logger  *slog.Logger
}

// Crawl visits every page of site reachable from its root. Each page is
// fetched at most once. The crawl stops expanding as soon as the site is no
// longer INDEXING or ctx is cancelled, and returns what it collected so far.
func (c *Crawler) Crawl(ctx context.Context, site *storage.Site) (*Result, error) {
	scope, err := parser.NewScope(site.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to crawl site %d: %w", site.ID, err)
	}

	limit := rate.Inf
	if c.config.PolitenessDelay > 0 {
		limit = rate.Every(c.config.PolitenessDelay)
	}

	r := &run{
		Crawler: c,
		site:    site,
		scope:   scope,
		visited: NewPathSet(c.config.MaxPages),
		limiter: rate.NewLimiter(limit, 1),
		sem:     make(chan struct{}, c.config.Parallelism),
		logger:  c.logger.With("site", site.URL),
	}

	start := time.Now()
	var pages []*storage.Page
	if r.visited.Add("/") {
		pages = r.visit(ctx, "/")
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })

	r.logger.Info("crawl finished", "pages", len(pages), "duration", time.Since(start))
	return &Result{Pages: pages}, nil
}

// visit fetches path and then crawls every newly claimed link concurrently,
// returning the pages of the whole subtree.
func (r *run) visit(ctx context.Context, path string) []*storage.Page {
	if !r.active(ctx) {
		return nil
	}

	doc := r.fetch(ctx, path)
	if doc == nil {
		return nil
	}

	if errors.Is(doc.Err, fetcher.ErrDisallowed) {
		r.logger.Debug("skipping disallowed page", "path", path)
		return nil
	}
	if doc.Err != nil {
		r.logger.Warn("fetch failed", "path", path, "status", doc.StatusCode, "error", doc.Err)
	}

	page := &storage.Page{
		SiteID:  r.site.ID,
		Path:    path,
		Code:    doc.StatusCode,
		Content: doc.Content,
	}

	if t, ok := r.status.(Toucher); ok {
		if err := t.Touch(ctx, r.site.ID); err != nil {
			r.logger.Debug("touch failed", "error", err)
		}
	}

	var children []string
	for _, link := range doc.Links {
		childPath, ok := r.scope.Path(link)
		if !ok || !r.visited.Add(childPath) {
			continue
		}
		children = append(children, childPath)
	}

	subtrees := make([][]*storage.Page, len(children))
	var wg sync.WaitGroup
	for i, childPath := range children {
		wg.Add(1)
		go func(i int, childPath string) {
			defer wg.Done()
			subtrees[i] = r.visit(ctx, childPath)
		}(i, childPath)
	}
	wg.Wait()

	pages := []*storage.Page{page}
	for _, subtree := range subtrees {
		pages = append(pages, subtree...)
	}
	return pages
}

// fetch holds a fetch slot only for the request itself, never while
// children are being crawled.
func (r *run) fetch(ctx context.Context, path string) *fetcher.Document {
	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return nil
	}
	defer func() { <-r.sem }()

	if err := r.limiter.Wait(ctx); err != nil {
		return nil
	}

	doc := r.fetcher.Fetch(ctx, r.scope.URL(path))
	if ctx.Err() != nil {
		return nil
	}
	return doc
}

func (r *run) active(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if r.status == nil {
		return true
	}
	ok, err := r.status.IsIndexing(ctx, r.site.ID)
	if err != nil {
		r.logger.Warn("status check failed", "error", err)
		return false
	}
	return ok
}
