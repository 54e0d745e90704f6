package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const siteColumns = "id, url, name, status, status_time, last_error"

// ErrSiteNotIndexing is returned by writes that only apply to a site being
// indexed once the site has been stopped, failed or removed.
var ErrSiteNotIndexing = errors.New("site is not indexing")

// requireIndexing checks the site status on tx so that a stop committed
// before the transaction started is seen by the write that follows.
func requireIndexing(ctx context.Context, tx *sql.Tx, siteID int64) error {
	var status string
	err := tx.QueryRowContext(ctx, "SELECT status FROM site WHERE id = ?", siteID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrSiteNotIndexing
	}
	if err != nil {
		return fmt.Errorf("failed to read status of site %d: %w", siteID, err)
	}
	if Status(status) != StatusIndexing {
		return ErrSiteNotIndexing
	}
	return nil
}

func scanSite(row interface{ Scan(...any) error }) (*Site, error) {
	var s Site
	var status string
	if err := row.Scan(&s.ID, &s.URL, &s.Name, &status, &s.StatusTime, &s.LastError); err != nil {
		return nil, err
	}
	s.Status = Status(status)
	return &s, nil
}

// CreateSite inserts a site and sets its ID.
func (d *Database) CreateSite(ctx context.Context, site *Site) error {
	if site.StatusTime.IsZero() {
		site.StatusTime = time.Now()
	}
	result, err := d.db.ExecContext(ctx,
		"INSERT INTO site (url, name, status, status_time, last_error) VALUES (?, ?, ?, ?, ?)",
		site.URL, site.Name, string(site.Status), site.StatusTime, site.LastError,
	)
	if err != nil {
		return fmt.Errorf("failed to create site %s: %w", site.URL, err)
	}
	site.ID, err = result.LastInsertId()
	return err
}

// GetSite returns nil, nil when the site does not exist.
func (d *Database) GetSite(ctx context.Context, id int64) (*Site, error) {
	site, err := scanSite(d.db.QueryRowContext(ctx, "SELECT "+siteColumns+" FROM site WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return site, err
}

// FindSiteByURL returns nil, nil when the site does not exist.
func (d *Database) FindSiteByURL(ctx context.Context, url string) (*Site, error) {
	site, err := scanSite(d.db.QueryRowContext(ctx, "SELECT "+siteColumns+" FROM site WHERE url = ?", url))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return site, err
}

func (d *Database) ListSites(ctx context.Context) ([]*Site, error) {
	return d.querySites(ctx, "SELECT "+siteColumns+" FROM site ORDER BY id")
}

func (d *Database) SitesByStatus(ctx context.Context, status Status) ([]*Site, error) {
	return d.querySites(ctx, "SELECT "+siteColumns+" FROM site WHERE status = ? ORDER BY id", string(status))
}

func (d *Database) querySites(ctx context.Context, query string, args ...any) ([]*Site, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sites []*Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, site)
	}
	return sites, rows.Err()
}

// SiteStatus returns an empty status when the site does not exist.
func (d *Database) SiteStatus(ctx context.Context, id int64) (Status, error) {
	var status string
	err := d.db.QueryRowContext(ctx, "SELECT status FROM site WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return Status(status), err
}

func (d *Database) CountSitesByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM site WHERE status = ?", string(status)).Scan(&count)
	return count, err
}

// MarkSiteIndexing starts a run: status INDEXING and the previous error cleared.
func (d *Database) MarkSiteIndexing(ctx context.Context, id int64, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE site SET status = ?, status_time = ?, last_error = NULL WHERE id = ?",
		string(StatusIndexing), at, id,
	)
	return err
}

// MarkSiteFailed sets FAILED. An existing last_error is kept.
func (d *Database) MarkSiteFailed(ctx context.Context, id int64, reason string, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE site SET status = ?, status_time = ?, last_error = COALESCE(last_error, ?) WHERE id = ?",
		string(StatusFailed), at, reason, id,
	)
	return err
}

// MarkSiteIndexed moves an INDEXING site to INDEXED and reports whether the
// transition happened.
func (d *Database) MarkSiteIndexed(ctx context.Context, id int64, at time.Time) (bool, error) {
	result, err := d.db.ExecContext(ctx,
		"UPDATE site SET status = ?, status_time = ? WHERE id = ? AND status = ?",
		string(StatusIndexed), at, id, string(StatusIndexing),
	)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	return n > 0, err
}

// FailIndexingSites moves every INDEXING site to FAILED with reason.
func (d *Database) FailIndexingSites(ctx context.Context, reason string, at time.Time) (int64, error) {
	result, err := d.db.ExecContext(ctx,
		"UPDATE site SET status = ?, status_time = ?, last_error = COALESCE(last_error, ?) WHERE status = ?",
		string(StatusFailed), at, reason, string(StatusIndexing),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// TouchSite refreshes status_time of a site that is still INDEXING.
func (d *Database) TouchSite(ctx context.Context, id int64, at time.Time) error {
	_, err := d.db.ExecContext(ctx,
		"UPDATE site SET status_time = ? WHERE id = ? AND status = ?",
		at, id, string(StatusIndexing),
	)
	return err
}
