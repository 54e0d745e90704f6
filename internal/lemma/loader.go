package lemma

import (
	"context"

	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

type LemmaStore interface {
	SiteLemmas(ctx context.Context, siteID int64) ([]storage.Lemma, error)
	LemmasBySites(ctx context.Context, siteIDs []int64) ([]storage.Lemma, error)
	SitesByStatus(ctx context.Context, status storage.Status) ([]*storage.Site, error)
}

// Loader reads persisted lemmas, optionally dropping the ones that appear on
// too large a share of pages to tell pages apart.
type Loader struct {
	store   LemmaStore
	percent int
}

// NewLoader builds a Loader; percent >= 100 disables filtering.
func NewLoader(store LemmaStore, percent int) *Loader {
	return &Loader{store: store, percent: percent}
}

// TooOften reports whether a lemma found on frequency of totalPages pages
// exceeds the configured share.
func (l *Loader) TooOften(frequency, totalPages int) bool {
	if l.percent >= 100 {
		return false
	}
	total := float64(totalPages)
	threshold := total - (total/100.0)*float64(100-l.percent)
	return float64(frequency) > threshold
}

func (l *Loader) SiteLemmas(ctx context.Context, siteID int64, totalPages int) (map[int64]storage.Lemma, error) {
	lemmas, err := l.store.SiteLemmas(ctx, siteID)
	if err != nil {
		return nil, err
	}
	return l.filter(lemmas, totalPages), nil
}

// IndexedSitesLemmas returns the significant lemmas of every INDEXED site.
func (l *Loader) IndexedSitesLemmas(ctx context.Context, totalPages int) (map[int64]storage.Lemma, error) {
	sites, err := l.store.SitesByStatus(ctx, storage.StatusIndexed)
	if err != nil {
		return nil, err
	}
	if len(sites) == 0 {
		return map[int64]storage.Lemma{}, nil
	}

	ids := make([]int64, len(sites))
	for i, s := range sites {
		ids[i] = s.ID
	}

	lemmas, err := l.store.LemmasBySites(ctx, ids)
	if err != nil {
		return nil, err
	}
	return l.filter(lemmas, totalPages), nil
}

func (l *Loader) filter(lemmas []storage.Lemma, totalPages int) map[int64]storage.Lemma {
	result := make(map[int64]storage.Lemma, len(lemmas))
	for _, lm := range lemmas {
		if l.TooOften(lm.Frequency, totalPages) {
			continue
		}
		result[lm.ID] = lm
	}
	return result
}

// SiteLemmasByText returns every lemma of a site keyed by its text.
func (l *Loader) SiteLemmasByText(ctx context.Context, siteID int64) (map[string]storage.Lemma, error) {
	lemmas, err := l.store.SiteLemmas(ctx, siteID)
	if err != nil {
		return nil, err
	}
	result := make(map[string]storage.Lemma, len(lemmas))
	for _, lm := range lemmas {
		result[lm.Lemma] = lm
	}
	return result, nil
}
