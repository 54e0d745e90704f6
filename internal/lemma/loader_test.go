package lemma_test

import (
	"context"
	"testing"

	"github.com/deidaraiorek/lemmasearch/internal/lemma"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

type memoryLemmaStore struct {
	sites  []*storage.Site
	lemmas []storage.Lemma
}

func (m *memoryLemmaStore) SiteLemmas(ctx context.Context, siteID int64) ([]storage.Lemma, error) {
	var out []storage.Lemma
	for _, l := range m.lemmas {
		if l.SiteID == siteID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memoryLemmaStore) LemmasBySites(ctx context.Context, siteIDs []int64) ([]storage.Lemma, error) {
	var out []storage.Lemma
	for _, id := range siteIDs {
		ls, _ := m.SiteLemmas(ctx, id)
		out = append(out, ls...)
	}
	return out, nil
}

func (m *memoryLemmaStore) SitesByStatus(ctx context.Context, status storage.Status) ([]*storage.Site, error) {
	var out []*storage.Site
	for _, s := range m.sites {
		if s.Status == status {
			out = append(out, s)
		}
	}
	return out, nil
}

func TestTooOften(t *testing.T) {
	loader := lemma.NewLoader(&memoryLemmaStore{}, 80)

	// 3 > 10 - (10/100)*(100-80) = 8 is false.
	if loader.TooOften(3, 10) {
		t.Error("Lemma on 3 of 10 pages should be kept at 80%")
	}
	if loader.TooOften(8, 10) {
		t.Error("Lemma on exactly 8 of 10 pages should be kept at 80%")
	}
	if !loader.TooOften(9, 10) {
		t.Error("Lemma on 9 of 10 pages should be filtered at 80%")
	}

	disabled := lemma.NewLoader(&memoryLemmaStore{}, 100)
	if disabled.TooOften(10, 10) {
		t.Error("Percent 100 disables the filter")
	}
}

func TestLoaderFilters(t *testing.T) {
	store := &memoryLemmaStore{
		sites: []*storage.Site{
			{ID: 1, Status: storage.StatusIndexed},
			{ID: 2, Status: storage.StatusFailed},
		},
		lemmas: []storage.Lemma{
			{ID: 1, SiteID: 1, Lemma: "common", Frequency: 10},
			{ID: 2, SiteID: 1, Lemma: "rare", Frequency: 3},
			{ID: 3, SiteID: 2, Lemma: "other", Frequency: 1},
		},
	}
	loader := lemma.NewLoader(store, 80)
	ctx := context.Background()

	site, err := loader.SiteLemmas(ctx, 1, 10)
	if err != nil {
		t.Fatalf("SiteLemmas error: %v", err)
	}
	if len(site) != 1 || site[2].Lemma != "rare" {
		t.Errorf("Expected only rare, got %v", site)
	}

	indexed, err := loader.IndexedSitesLemmas(ctx, 10)
	if err != nil {
		t.Fatalf("IndexedSitesLemmas error: %v", err)
	}
	if len(indexed) != 1 {
		t.Errorf("Expected lemmas of indexed sites only, got %v", indexed)
	}

	byText, _ := loader.SiteLemmasByText(ctx, 1)
	if len(byText) != 2 || byText["common"].Frequency != 10 {
		t.Errorf("SiteLemmasByText should not filter, got %v", byText)
	}
}
