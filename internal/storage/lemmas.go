package storage

import (
	"context"
	"fmt"
)

const lemmaColumns = "id, site_id, lemma, frequency"

func (d *Database) queryLemmas(ctx context.Context, query string, args ...any) ([]Lemma, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lemmas []Lemma
	for rows.Next() {
		var l Lemma
		if err := rows.Scan(&l.ID, &l.SiteID, &l.Lemma, &l.Frequency); err != nil {
			return nil, err
		}
		lemmas = append(lemmas, l)
	}
	return lemmas, rows.Err()
}

func (d *Database) SiteLemmas(ctx context.Context, siteID int64) ([]Lemma, error) {
	return d.queryLemmas(ctx, "SELECT "+lemmaColumns+" FROM lemma WHERE site_id = ? ORDER BY lemma", siteID)
}

func (d *Database) LemmasBySites(ctx context.Context, siteIDs []int64) ([]Lemma, error) {
	if len(siteIDs) == 0 {
		return nil, nil
	}
	query := "SELECT " + lemmaColumns + " FROM lemma WHERE site_id IN (" + placeholders(len(siteIDs)) + ") ORDER BY site_id, lemma"
	return d.queryLemmas(ctx, query, int64Args(siteIDs)...)
}

func (d *Database) LemmasByIDs(ctx context.Context, ids []int64) ([]Lemma, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := "SELECT " + lemmaColumns + " FROM lemma WHERE id IN (" + placeholders(len(ids)) + ") ORDER BY id"
	return d.queryLemmas(ctx, query, int64Args(ids)...)
}

func (d *Database) CountLemmasBySite(ctx context.Context, siteID int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lemma WHERE site_id = ?", siteID).Scan(&count)
	return count, err
}

func (d *Database) CountLemmas(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM lemma").Scan(&count)
	return count, err
}

// SaveLemmasAndIndexes writes one merge batch in a single transaction.
// Lemmas with ID 0 are inserted and get their ID assigned, the others have
// their frequency overwritten. Entries reference lemmas of the batch by text;
// an existing (page, lemma) row has its rank replaced. It returns the number
// of index rows written, or ErrSiteNotIndexing without writing anything when
// siteID is no longer INDEXING.
func (d *Database) SaveLemmasAndIndexes(ctx context.Context, siteID int64, lemmas []*Lemma, entries []IndexEntry) (int, error) {
	if len(lemmas) == 0 && len(entries) == 0 {
		return 0, nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := requireIndexing(ctx, tx, siteID); err != nil {
		return 0, err
	}

	insertLemma, err := tx.PrepareContext(ctx, `
		INSERT INTO lemma (site_id, lemma, frequency) VALUES (?, ?, ?)
		ON CONFLICT(site_id, lemma) DO UPDATE SET frequency = excluded.frequency
		RETURNING id
	`)
	if err != nil {
		return 0, err
	}
	defer insertLemma.Close()

	updateLemma, err := tx.PrepareContext(ctx, "UPDATE lemma SET frequency = ? WHERE id = ?")
	if err != nil {
		return 0, err
	}
	defer updateLemma.Close()

	ids := make(map[string]int64, len(lemmas))
	for _, l := range lemmas {
		if l.SiteID != siteID {
			return 0, fmt.Errorf("lemma %q belongs to site %d, not %d", l.Lemma, l.SiteID, siteID)
		}
		if l.ID == 0 {
			if err := insertLemma.QueryRowContext(ctx, l.SiteID, l.Lemma, l.Frequency).Scan(&l.ID); err != nil {
				return 0, fmt.Errorf("failed to insert lemma %q: %w", l.Lemma, err)
			}
		} else if _, err := updateLemma.ExecContext(ctx, l.Frequency, l.ID); err != nil {
			return 0, fmt.Errorf("failed to update lemma %q: %w", l.Lemma, err)
		}
		ids[l.Lemma] = l.ID
	}

	insertIndex, err := tx.PrepareContext(ctx, `
		INSERT INTO search_index (page_id, lemma_id, rank) VALUES (?, ?, ?)
		ON CONFLICT(page_id, lemma_id) DO UPDATE SET rank = excluded.rank
	`)
	if err != nil {
		return 0, err
	}
	defer insertIndex.Close()

	for _, e := range entries {
		lemmaID, ok := ids[e.Lemma]
		if !ok {
			return 0, fmt.Errorf("index entry for page %d references unknown lemma %q", e.PageID, e.Lemma)
		}
		if _, err := insertIndex.ExecContext(ctx, e.PageID, lemmaID, e.Rank); err != nil {
			return 0, fmt.Errorf("failed to save index for page %d: %w", e.PageID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(entries), nil
}

func (d *Database) PageIndexes(ctx context.Context, pageID int64) ([]Index, error) {
	rows, err := d.db.QueryContext(ctx,
		"SELECT id, page_id, lemma_id, rank FROM search_index WHERE page_id = ? ORDER BY lemma_id",
		pageID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var indexes []Index
	for rows.Next() {
		var idx Index
		if err := rows.Scan(&idx.ID, &idx.PageID, &idx.LemmaID, &idx.Rank); err != nil {
			return nil, err
		}
		indexes = append(indexes, idx)
	}
	return indexes, rows.Err()
}

func (d *Database) CountIndexesBySite(ctx context.Context, siteID int64) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM search_index i
		JOIN page p ON p.id = i.page_id
		WHERE p.site_id = ?
	`, siteID).Scan(&count)
	return count, err
}

// FrequencyMismatches counts lemmas whose frequency differs from the number
// of index rows referencing them. Zero on a consistent database.
func (d *Database) FrequencyMismatches(ctx context.Context) (int, error) {
	var count int
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM lemma l
		WHERE l.frequency != (SELECT COUNT(*) FROM search_index i WHERE i.lemma_id = l.id)
	`).Scan(&count)
	return count, err
}

// ApplyReduction removes the index rows of a page and adjusts the lemmas it
// referenced in one transaction: updates carry the new frequency, deletes
// are lemma IDs whose frequency reached zero. The page's site must still be
// INDEXING, otherwise ErrSiteNotIndexing is returned and nothing changes.
func (d *Database) ApplyReduction(ctx context.Context, pageID int64, updates []Lemma, deletes []int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var siteID int64
	if err := tx.QueryRowContext(ctx, "SELECT site_id FROM page WHERE id = ?", pageID).Scan(&siteID); err != nil {
		return fmt.Errorf("failed to find page %d: %w", pageID, err)
	}
	if err := requireIndexing(ctx, tx, siteID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM search_index WHERE page_id = ?", pageID); err != nil {
		return fmt.Errorf("failed to delete index of page %d: %w", pageID, err)
	}

	if len(updates) > 0 {
		stmt, err := tx.PrepareContext(ctx, "UPDATE lemma SET frequency = ? WHERE id = ?")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, l := range updates {
			if _, err := stmt.ExecContext(ctx, l.Frequency, l.ID); err != nil {
				return fmt.Errorf("failed to update lemma %d: %w", l.ID, err)
			}
		}
	}

	if len(deletes) > 0 {
		query := "DELETE FROM lemma WHERE id IN (" + placeholders(len(deletes)) + ")"
		if _, err := tx.ExecContext(ctx, query, int64Args(deletes)...); err != nil {
			return fmt.Errorf("failed to delete lemmas: %w", err)
		}
	}

	return tx.Commit()
}
