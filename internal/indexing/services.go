// Package indexing runs the crawl, lemmatize and index pipeline for whole
// sites and for single pages.
package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/crawler"
	"github.com/deidaraiorek/lemmasearch/internal/fetcher"
	"github.com/deidaraiorek/lemmasearch/internal/index"
	"github.com/deidaraiorek/lemmasearch/internal/lemma"
	"github.com/deidaraiorek/lemmasearch/internal/morphology"
	"github.com/deidaraiorek/lemmasearch/internal/parser"
	"github.com/deidaraiorek/lemmasearch/internal/site"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

type Config struct {
	CrawlParallelism      int
	PolitenessDelay       time.Duration
	MaxPages              int
	LemmaFrequencyPercent int
}

// Services is the pipeline of one indexing run. It reports the outcome of
// every run through the site conditions and never leaves a site INDEXING on
// return.
type Services struct {
	db         *storage.Database
	fetcher    crawler.Fetcher
	crawler    *crawler.Crawler
	lemmatizer *lemma.Lemmatizer
	reducer    *lemma.Reducer
	loader     *lemma.Loader
	conditions *site.Conditions
	logger     *slog.Logger
}

func NewServices(db *storage.Database, f crawler.Fetcher, analyzer morphology.Analyzer, config Config, logger *slog.Logger) *Services {
	if logger == nil {
		logger = slog.Default()
	}
	if config.LemmaFrequencyPercent <= 0 {
		config.LemmaFrequencyPercent = 100
	}

	conditions := site.NewConditions(db).WithLogger(logger)

	return &Services{
		db:      db,
		fetcher: f,
		crawler: crawler.New(crawler.Config{
			Parallelism:     config.CrawlParallelism,
			PolitenessDelay: config.PolitenessDelay,
			MaxPages:        config.MaxPages,
		}, f, conditions).WithLogger(logger),
		lemmatizer: lemma.NewLemmatizer(lemma.NewExtractor(analyzer), conditions, config.CrawlParallelism).WithLogger(logger),
		reducer:    lemma.NewReducer(db),
		loader:     lemma.NewLoader(db, config.LemmaFrequencyPercent),
		conditions: conditions,
		logger:     logger.With("component", "indexing"),
	}
}

func (s *Services) Conditions() *site.Conditions {
	return s.conditions
}

func (s *Services) Loader() *lemma.Loader {
	return s.loader
}

// IndexSite crawls, lemmatizes and indexes a site that is already marked
// INDEXING.
func (s *Services) IndexSite(ctx context.Context, st *storage.Site, fields []storage.Field) error {
	logger := s.logger.With("site", st.URL)

	crawled, err := s.crawler.Crawl(ctx, st)
	if err != nil {
		return s.abort(ctx, st.ID, err)
	}

	if len(crawled.Pages) == 0 || !s.stillIndexing(ctx, st.ID) {
		return s.conditions.EmptyPages(ctx, st.ID)
	}

	if err := s.db.SavePages(ctx, st.ID, crawled.Pages); err != nil {
		if errors.Is(err, storage.ErrSiteNotIndexing) {
			return s.conditions.EmptyPages(ctx, st.ID)
		}
		return s.abort(ctx, st.ID, err)
	}
	logger.Info("pages saved", "pages", len(crawled.Pages))

	result := s.lemmatizer.Run(ctx, st.ID, crawled.Pages, fields)

	return s.persist(ctx, st.ID, result, nil, false)
}

// IndexPage re-indexes one page of a site that is already marked INDEXING.
// The page's previous contribution to lemma frequencies is removed first.
func (s *Services) IndexPage(ctx context.Context, st *storage.Site, path string, fields []storage.Field) error {
	scope, err := parser.NewScope(st.URL)
	if err != nil {
		return s.abort(ctx, st.ID, err)
	}

	existing, err := s.db.FindPage(ctx, st.ID, path)
	if err != nil {
		return s.abort(ctx, st.ID, err)
	}
	if existing != nil {
		reduction, err := s.reducer.Reduce(ctx, existing.ID)
		if errors.Is(err, storage.ErrSiteNotIndexing) {
			return s.conditions.EmptyLemmasOnPage(ctx, st.ID)
		}
		if err != nil {
			return s.abort(ctx, st.ID, err)
		}
		s.logger.Debug("page reduced", "site", st.URL, "path", path,
			"updated", len(reduction.Updated), "deleted", len(reduction.Deleted))
	}

	doc := s.fetcher.Fetch(ctx, scope.URL(path))
	if errors.Is(doc.Err, fetcher.ErrDisallowed) || !s.stillIndexing(ctx, st.ID) {
		return s.conditions.EmptyLemmasOnPage(ctx, st.ID)
	}

	page := &storage.Page{SiteID: st.ID, Path: path, Code: doc.StatusCode, Content: doc.Content}
	if err := s.db.SavePage(ctx, page); err != nil {
		if errors.Is(err, storage.ErrSiteNotIndexing) {
			return s.conditions.EmptyLemmasOnPage(ctx, st.ID)
		}
		return s.abort(ctx, st.ID, err)
	}

	result := s.lemmatizer.Run(ctx, st.ID, []*storage.Page{page}, fields)
	if len(result) == 0 || !s.stillIndexing(ctx, st.ID) {
		return s.conditions.EmptyLemmasOnPage(ctx, st.ID)
	}

	prior, err := s.loader.SiteLemmasByText(ctx, st.ID)
	if err != nil {
		return s.abort(ctx, st.ID, err)
	}

	return s.persist(ctx, st.ID, result, prior, true)
}

// persist merges result against prior and writes it. onPage selects the
// single-page failure reasons.
func (s *Services) persist(ctx context.Context, siteID int64, result lemma.Result, prior map[string]storage.Lemma, onPage bool) error {
	emptyLemmas, emptyIndex := s.conditions.EmptyLemmas, s.conditions.EmptyIndex
	if onPage {
		emptyLemmas, emptyIndex = s.conditions.EmptyLemmasOnPage, s.conditions.EmptyIndexOnPage
	}

	if len(result) == 0 || !s.stillIndexing(ctx, siteID) {
		return emptyLemmas(ctx, siteID)
	}

	batch := index.Merge(siteID, result, prior)
	written, err := s.db.SaveLemmasAndIndexes(ctx, siteID, batch.Lemmas, batch.Entries)
	if errors.Is(err, storage.ErrSiteNotIndexing) {
		return emptyLemmas(ctx, siteID)
	}
	if err != nil {
		return s.abort(ctx, siteID, err)
	}

	if written == 0 {
		return emptyIndex(ctx, siteID)
	}

	indexed, err := s.conditions.Indexed(ctx, siteID)
	if err != nil {
		return err
	}
	s.logger.Info("index saved", "site_id", siteID, "lemmas", len(batch.Lemmas), "rows", written, "indexed", indexed)
	return nil
}

func (s *Services) stillIndexing(ctx context.Context, siteID int64) bool {
	ok, err := s.conditions.IsIndexing(ctx, siteID)
	return err == nil && ok
}

// abort records err as the failure reason of the run and returns it.
func (s *Services) abort(ctx context.Context, siteID int64, err error) error {
	s.logger.Error("indexing run failed", "site_id", siteID, "error", err)

	// The run context may already be cancelled; the status write must land.
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if markErr := s.conditions.Failed(markCtx, siteID, err.Error()); markErr != nil {
		return fmt.Errorf("%w (and failed to mark site: %v)", err, markErr)
	}
	return err
}
