package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const upsertPageQuery = `
	INSERT INTO page (site_id, path, code, content)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(site_id, path) DO UPDATE SET
		code = excluded.code,
		content = excluded.content
	RETURNING id
`

// SavePage inserts or replaces the page identified by (site, path) and sets
// its ID. It returns ErrSiteNotIndexing without writing when the page's site
// is no longer INDEXING.
func (d *Database) SavePage(ctx context.Context, page *Page) error {
	return d.SavePages(ctx, page.SiteID, []*Page{page})
}

// SavePages stores pages of one site in one transaction, provided the site is
// still INDEXING when the transaction starts.
func (d *Database) SavePages(ctx context.Context, siteID int64, pages []*Page) error {
	if len(pages) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := requireIndexing(ctx, tx, siteID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, upsertPageQuery)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, page := range pages {
		if page.SiteID != siteID {
			return fmt.Errorf("page %s belongs to site %d, not %d", page.Path, page.SiteID, siteID)
		}
		if err := stmt.QueryRowContext(ctx, page.SiteID, page.Path, page.Code, page.Content).Scan(&page.ID); err != nil {
			return fmt.Errorf("failed to save page %s: %w", page.Path, err)
		}
	}
	return tx.Commit()
}

// FindPage returns nil, nil when the page does not exist.
func (d *Database) FindPage(ctx context.Context, siteID int64, path string) (*Page, error) {
	var p Page
	err := d.db.QueryRowContext(ctx,
		"SELECT id, site_id, path, code, content FROM page WHERE site_id = ? AND path = ?",
		siteID, path,
	).Scan(&p.ID, &p.SiteID, &p.Path, &p.Code, &p.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *Database) CountPages(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM page").Scan(&count)
	return count, err
}

func (d *Database) CountPagesBySite(ctx context.Context, siteID int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM page WHERE site_id = ?", siteID).Scan(&count)
	return count, err
}
