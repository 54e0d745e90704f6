// Package index turns lemmatization results into lemma upserts and index
// rows for one site.
package index

import (
	"sort"

	"github.com/deidaraiorek/lemmasearch/internal/lemma"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

// Batch is everything one merge writes. Lemmas with ID 0 are new.
type Batch struct {
	Lemmas  []*storage.Lemma
	Entries []storage.IndexEntry
}

func (b Batch) Empty() bool {
	return len(b.Entries) == 0
}

// Merge folds result into prior, the site's persisted lemmas keyed by text
// (nil for a fresh site). Each lemma's frequency grows by the number of
// distinct pages of result containing it, so a lemma repeated across the
// batch is counted once per page and never once per occurrence.
func Merge(siteID int64, result lemma.Result, prior map[string]storage.Lemma) Batch {
	counts := result.Lemmas()
	if len(counts) == 0 {
		return Batch{}
	}

	texts := make([]string, 0, len(counts))
	for text := range counts {
		texts = append(texts, text)
	}
	sort.Strings(texts)

	batch := Batch{Lemmas: make([]*storage.Lemma, 0, len(texts))}
	for _, text := range texts {
		l := &storage.Lemma{SiteID: siteID, Lemma: text, Frequency: counts[text]}
		if p, ok := prior[text]; ok {
			l.ID = p.ID
			l.Frequency += p.Frequency
		}
		batch.Lemmas = append(batch.Lemmas, l)
	}

	pageIDs := make([]int64, 0, len(result))
	for id := range result {
		pageIDs = append(pageIDs, id)
	}
	sort.Slice(pageIDs, func(i, j int) bool { return pageIDs[i] < pageIDs[j] })

	for _, pageID := range pageIDs {
		ranks := result[pageID]
		lemmas := make([]string, 0, len(ranks))
		for text := range ranks {
			lemmas = append(lemmas, text)
		}
		sort.Strings(lemmas)

		for _, text := range lemmas {
			batch.Entries = append(batch.Entries, storage.IndexEntry{
				PageID: pageID,
				Lemma:  text,
				Rank:   ranks[text],
			})
		}
	}

	return batch
}
