package indexing

import (
	"context"

	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

type TotalStatistics struct {
	Sites    int  `json:"sites"`
	Pages    int  `json:"pages"`
	Lemmas   int  `json:"lemmas"`
	Indexing bool `json:"indexing"`

	// SignificantLemmas counts the lemmas of INDEXED sites that pass the
	// frequency filter against the pages of those sites.
	SignificantLemmas int `json:"significantLemmas"`

	// FrequencyMismatches counts lemmas whose frequency disagrees with their
	// index rows. Zero unless the database was modified by hand.
	FrequencyMismatches int `json:"frequencyMismatches"`
}

type SiteStatistics struct {
	URL        string `json:"url"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	StatusTime int64  `json:"statusTime"`
	Error      string `json:"error,omitempty"`
	Pages      int    `json:"pages"`
	Lemmas     int    `json:"lemmas"`
	Indexes    int    `json:"indexes"`

	// SignificantLemmas excludes lemmas found on too many of the site's pages.
	SignificantLemmas int `json:"significantLemmas"`
}

type Statistics struct {
	Total    TotalStatistics  `json:"total"`
	Detailed []SiteStatistics `json:"detailed"`
}

// Statistics reports the state of every site in the database.
func (s *Service) Statistics(ctx context.Context) (*Statistics, error) {
	sites, err := s.db.ListSites(ctx)
	if err != nil {
		return nil, err
	}

	stats := &Statistics{Detailed: make([]SiteStatistics, 0, len(sites))}
	stats.Total.Sites = len(sites)

	if stats.Total.Pages, err = s.db.CountPages(ctx); err != nil {
		return nil, err
	}
	if stats.Total.Lemmas, err = s.db.CountLemmas(ctx); err != nil {
		return nil, err
	}
	if stats.Total.FrequencyMismatches, err = s.db.FrequencyMismatches(ctx); err != nil {
		return nil, err
	}

	indexedPages := 0
	for _, st := range sites {
		pages, err := s.db.CountPagesBySite(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		lemmas, err := s.db.CountLemmasBySite(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		indexes, err := s.db.CountIndexesBySite(ctx, st.ID)
		if err != nil {
			return nil, err
		}
		significant, err := s.services.Loader().SiteLemmas(ctx, st.ID, pages)
		if err != nil {
			return nil, err
		}

		detail := SiteStatistics{
			URL:               st.URL,
			Name:              st.Name,
			Status:            string(st.Status),
			StatusTime:        st.StatusTime.UnixMilli(),
			Pages:             pages,
			Lemmas:            lemmas,
			Indexes:           indexes,
			SignificantLemmas: len(significant),
		}
		if st.LastError.Valid {
			detail.Error = st.LastError.String
		}

		stats.Detailed = append(stats.Detailed, detail)
		switch st.Status {
		case storage.StatusIndexing:
			stats.Total.Indexing = true
		case storage.StatusIndexed:
			indexedPages += pages
		}
	}

	significant, err := s.services.Loader().IndexedSitesLemmas(ctx, indexedPages)
	if err != nil {
		return nil, err
	}
	stats.Total.SignificantLemmas = len(significant)

	return stats, nil
}
