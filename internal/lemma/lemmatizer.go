package lemma

import (
	"context"
	"log/slog"
	"runtime"
	"sync"

	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

// Result maps page ID -> lemma -> rank.
type Result map[int64]map[string]float64

// Lemmas returns the distinct lemmas of the result with the number of pages
// each one appears on.
func (r Result) Lemmas() map[string]int {
	counts := make(map[string]int)
	for _, ranks := range r {
		for lemma := range ranks {
			counts[lemma]++
		}
	}
	return counts
}

// StatusChecker reports whether a site is still being indexed. Any answer
// other than true stops work for that site.
type StatusChecker interface {
	IsIndexing(ctx context.Context, siteID int64) (bool, error)
}

type Lemmatizer struct {
	extractor   *Extractor
	status      StatusChecker
	parallelism int
	logger      *slog.Logger
}

func NewLemmatizer(extractor *Extractor, status StatusChecker, parallelism int) *Lemmatizer {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	return &Lemmatizer{
		extractor:   extractor,
		status:      status,
		parallelism: parallelism,
		logger:      slog.Default().With("component", "lemmatizer"),
	}
}

func (l *Lemmatizer) WithLogger(logger *slog.Logger) *Lemmatizer {
	l.logger = logger.With("component", "lemmatizer")
	return l
}

// Run lemmatizes the responsive pages of a site concurrently. Pages without
// lemmas are left out. A site that stops indexing mid-run yields whatever
// was finished; callers check the site status before using the result.
func (l *Lemmatizer) Run(ctx context.Context, siteID int64, pages []*storage.Page, fields []storage.Field) Result {
	out := make([]map[string]float64, len(pages))

	sem := make(chan struct{}, l.parallelism)
	var wg sync.WaitGroup

	for i, page := range pages {
		if !page.Responsive() {
			continue
		}

		wg.Add(1)
		go func(i int, page *storage.Page) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			if !l.active(ctx, siteID) {
				return
			}

			out[i] = l.extractor.Extract(page.Content, fields)
		}(i, page)
	}

	wg.Wait()

	result := make(Result)
	for i, ranks := range out {
		if len(ranks) == 0 {
			continue
		}
		result[pages[i].ID] = ranks
	}

	l.logger.Debug("lemmatization finished", "site_id", siteID, "pages", len(pages), "lemmatized", len(result))
	return result
}

func (l *Lemmatizer) active(ctx context.Context, siteID int64) bool {
	if ctx.Err() != nil {
		return false
	}
	if l.status == nil {
		return true
	}
	ok, err := l.status.IsIndexing(ctx, siteID)
	if err != nil {
		l.logger.Warn("status check failed", "site_id", siteID, "error", err)
		return false
	}
	return ok
}
