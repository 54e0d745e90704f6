package indexing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/parser"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
	"github.com/google/uuid"
)

var (
	ErrAlreadyRunning = errors.New("indexing is already running")
	ErrNotRunning     = errors.New("indexing is not running")
	ErrPageOutOfRange = errors.New("page is outside the sites listed in the configuration")
)

// SiteConfig is a site the service is allowed to index.
type SiteConfig struct {
	URL  string
	Name string
}

type configuredSite struct {
	SiteConfig
	scope *parser.Scope
	lock  *sync.Mutex
}

// Service admits indexing runs and executes them on a bounded pool. Runs of
// the same site, full or single page, never overlap.
type Service struct {
	db       *storage.Database
	services *Services
	sites    []configuredSite
	fields   []storage.Field

	runCtx context.Context
	pool   chan struct{}
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu serializes admission and stop. stops counts StopIndexing calls so a
	// queued run can tell it was stopped before it started.
	mu    sync.Mutex
	stops uint64
}

// NewService builds a Service whose runs live until runCtx is cancelled.
// workers bounds the number of concurrent site runs; 0 means one per CPU.
func NewService(runCtx context.Context, db *storage.Database, services *Services, sites []SiteConfig, fields []storage.Field, workers int, logger *slog.Logger) (*Service, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if logger == nil {
		logger = slog.Default()
	}

	configured := make([]configuredSite, 0, len(sites))
	for _, sc := range sites {
		scope, err := parser.NewScope(sc.URL)
		if err != nil {
			return nil, err
		}
		configured = append(configured, configuredSite{SiteConfig: sc, scope: scope, lock: &sync.Mutex{}})
	}

	return &Service{
		db:       db,
		services: services,
		sites:    configured,
		fields:   fields,
		runCtx:   runCtx,
		pool:     make(chan struct{}, workers),
		logger:   logger.With("component", "service"),
	}, nil
}

// StartIndexing wipes the database and starts a full run of every
// configured site.
func (s *Service) StartIndexing(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	running, err := s.services.Conditions().AnyIndexing(ctx)
	if err != nil {
		return err
	}
	if running {
		return ErrAlreadyRunning
	}

	if err := s.db.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset database: %w", err)
	}

	fields, err := s.loadFields(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, cs := range s.sites {
		st := &storage.Site{URL: cs.URL, Name: cs.Name, Status: storage.StatusIndexing, StatusTime: now}
		if err := s.db.CreateSite(ctx, st); err != nil {
			return err
		}

		s.submit(cs, st, func(ctx context.Context) error {
			return s.services.IndexSite(ctx, st, fields)
		})
	}

	s.logger.Info("indexing started", "sites", len(s.sites))
	return nil
}

func (s *Service) StopIndexing(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stopped, err := s.services.Conditions().StopAll(ctx)
	if err != nil {
		return err
	}
	if stopped == 0 {
		return ErrNotRunning
	}
	s.stops++
	return nil
}

// IndexPage re-indexes the page at rawURL, which must belong to one of the
// configured sites.
func (s *Service) IndexPage(ctx context.Context, rawURL string) error {
	cs, path, ok := s.lookup(rawURL)
	if !ok {
		return ErrPageOutOfRange
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fields, err := s.loadFields(ctx)
	if err != nil {
		return err
	}

	st, err := s.db.FindSiteByURL(ctx, cs.URL)
	if err != nil {
		return err
	}
	if st == nil {
		st = &storage.Site{URL: cs.URL, Name: cs.Name, Status: storage.StatusIndexing, StatusTime: time.Now()}
		if err := s.db.CreateSite(ctx, st); err != nil {
			return err
		}
	} else if err := s.services.Conditions().StartIndexing(ctx, st.ID); err != nil {
		return err
	}

	s.submit(cs, st, func(ctx context.Context) error {
		return s.services.IndexPage(ctx, st, path, fields)
	})
	return nil
}

// Wait blocks until every submitted run has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Shutdown waits for the runs to return and fails any site they left
// INDEXING, which happens when the run context was cancelled.
func (s *Service) Shutdown(ctx context.Context) error {
	s.Wait()
	_, err := s.services.Conditions().StopAll(ctx)
	return err
}

func (s *Service) lookup(rawURL string) (configuredSite, string, bool) {
	for _, cs := range s.sites {
		if path, ok := cs.scope.Path(rawURL); ok {
			return cs, path, true
		}
	}
	return configuredSite{}, "", false
}

// loadFields stores the configured fields on first use and returns the
// persisted ones.
func (s *Service) loadFields(ctx context.Context) ([]storage.Field, error) {
	fields, err := s.db.ListFields(ctx)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		return fields, nil
	}
	if err := s.db.SaveFields(ctx, s.fields); err != nil {
		return nil, err
	}
	return s.db.ListFields(ctx)
}

// submit queues run on the pool. Callers hold s.mu.
func (s *Service) submit(cs configuredSite, st *storage.Site, run func(ctx context.Context) error) {
	runID := uuid.NewString()
	logger := s.logger.With("run", runID, "site", st.URL)
	admitted := s.stops

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case s.pool <- struct{}{}:
		case <-s.runCtx.Done():
			logger.Warn("run dropped at shutdown")
			return
		}
		defer func() { <-s.pool }()

		cs.lock.Lock()
		defer cs.lock.Unlock()

		if !s.resume(st.ID, admitted) {
			logger.Info("run skipped, indexing was stopped")
			return
		}

		start := time.Now()
		logger.Info("run started")
		if err := run(s.runCtx); err != nil {
			logger.Error("run failed", "error", err, "duration", time.Since(start))
			return
		}

		final, err := s.db.GetSite(s.runCtx, st.ID)
		if err != nil || final == nil {
			logger.Info("run finished", "duration", time.Since(start))
			return
		}
		logger.Info("run finished", "status", final.Status, "error", final.LastError.String, "duration", time.Since(start))
	}()
}

// resume marks the site INDEXING again once its run holds the site lock:
// a run queued behind another run of the same site finds the site already
// INDEXED. It refuses when indexing was stopped after admission.
func (s *Service) resume(siteID int64, admitted uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stops != admitted {
		return false
	}
	if err := s.services.Conditions().StartIndexing(s.runCtx, siteID); err != nil {
		s.logger.Error("failed to resume site", "site_id", siteID, "error", err)
		return false
	}
	return true
}
