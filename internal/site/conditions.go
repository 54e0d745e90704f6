// Package site owns the status transitions of indexed sites. Every change
// of a site's status goes through Conditions.
package site

import (
	"context"
	"log/slog"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

const (
	ReasonNoPages          = "site produced no pages"
	ReasonNoLemmas         = "site produced no lemmas"
	ReasonNoLemmasOnPage   = "page produced no lemmas"
	ReasonEmptyIndex       = "empty index"
	ReasonEmptyIndexOnPage = "page produced empty index"
	ReasonStopped          = "stopped by user"
)

type Store interface {
	MarkSiteIndexing(ctx context.Context, id int64, at time.Time) error
	MarkSiteFailed(ctx context.Context, id int64, reason string, at time.Time) error
	MarkSiteIndexed(ctx context.Context, id int64, at time.Time) (bool, error)
	FailIndexingSites(ctx context.Context, reason string, at time.Time) (int64, error)
	TouchSite(ctx context.Context, id int64, at time.Time) error
	SiteStatus(ctx context.Context, id int64) (storage.Status, error)
	CountSitesByStatus(ctx context.Context, status storage.Status) (int, error)
}

// Conditions records why a site run ended. The first failure reason of a
// run is kept; later ones only refresh the status time.
type Conditions struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

func NewConditions(store Store) *Conditions {
	return &Conditions{
		store:  store,
		now:    time.Now,
		logger: slog.Default().With("component", "conditions"),
	}
}

func (c *Conditions) WithLogger(logger *slog.Logger) *Conditions {
	c.logger = logger.With("component", "conditions")
	return c
}

func (c *Conditions) StartIndexing(ctx context.Context, siteID int64) error {
	return c.store.MarkSiteIndexing(ctx, siteID, c.now())
}

func (c *Conditions) EmptyPages(ctx context.Context, siteID int64) error {
	return c.fail(ctx, siteID, ReasonNoPages)
}

func (c *Conditions) EmptyLemmas(ctx context.Context, siteID int64) error {
	return c.fail(ctx, siteID, ReasonNoLemmas)
}

func (c *Conditions) EmptyLemmasOnPage(ctx context.Context, siteID int64) error {
	return c.fail(ctx, siteID, ReasonNoLemmasOnPage)
}

func (c *Conditions) EmptyIndex(ctx context.Context, siteID int64) error {
	return c.fail(ctx, siteID, ReasonEmptyIndex)
}

func (c *Conditions) EmptyIndexOnPage(ctx context.Context, siteID int64) error {
	return c.fail(ctx, siteID, ReasonEmptyIndexOnPage)
}

// Failed marks the site FAILED with an arbitrary reason, used for storage
// errors during a run.
func (c *Conditions) Failed(ctx context.Context, siteID int64, reason string) error {
	return c.fail(ctx, siteID, reason)
}

func (c *Conditions) fail(ctx context.Context, siteID int64, reason string) error {
	c.logger.Info("site failed", "site_id", siteID, "reason", reason)
	return c.store.MarkSiteFailed(ctx, siteID, reason, c.now())
}

// Indexed completes a run. A site that is no longer INDEXING, for example
// because it was stopped, keeps its status; the return value tells which
// happened.
func (c *Conditions) Indexed(ctx context.Context, siteID int64) (bool, error) {
	return c.store.MarkSiteIndexed(ctx, siteID, c.now())
}

// StopAll fails every INDEXING site and returns how many were stopped.
func (c *Conditions) StopAll(ctx context.Context) (int64, error) {
	n, err := c.store.FailIndexingSites(ctx, ReasonStopped, c.now())
	if err != nil {
		return 0, err
	}
	c.logger.Info("indexing stopped", "sites", n)
	return n, nil
}

func (c *Conditions) Touch(ctx context.Context, siteID int64) error {
	return c.store.TouchSite(ctx, siteID, c.now())
}

// IsIndexing is the cancellation signal of a run: work for a site goes on
// only while this returns true.
func (c *Conditions) IsIndexing(ctx context.Context, siteID int64) (bool, error) {
	status, err := c.store.SiteStatus(ctx, siteID)
	if err != nil {
		return false, err
	}
	return status == storage.StatusIndexing, nil
}

func (c *Conditions) AnyIndexing(ctx context.Context) (bool, error) {
	n, err := c.store.CountSitesByStatus(ctx, storage.StatusIndexing)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
