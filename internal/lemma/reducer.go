package lemma

import (
	"context"
	"fmt"

	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

type ReductionStore interface {
	PageIndexes(ctx context.Context, pageID int64) ([]storage.Index, error)
	LemmasByIDs(ctx context.Context, ids []int64) ([]storage.Lemma, error)
	ApplyReduction(ctx context.Context, pageID int64, updates []storage.Lemma, deletes []int64) error
}

// Reduction is the effect of removing one page's contribution.
type Reduction struct {
	Updated []storage.Lemma
	Deleted []int64
}

// PlanReduction decrements every lemma by one. Lemmas that reach zero are
// scheduled for deletion instead of update.
func PlanReduction(lemmas []storage.Lemma) Reduction {
	var r Reduction
	for _, l := range lemmas {
		l.Frequency--
		if l.Frequency > 0 {
			r.Updated = append(r.Updated, l)
		} else {
			r.Deleted = append(r.Deleted, l.ID)
		}
	}
	return r
}

// Reducer removes a page's contribution to lemma frequencies before the page
// is indexed again.
type Reducer struct {
	store ReductionStore
}

func NewReducer(store ReductionStore) *Reducer {
	return &Reducer{store: store}
}

func (r *Reducer) Reduce(ctx context.Context, pageID int64) (Reduction, error) {
	indexes, err := r.store.PageIndexes(ctx, pageID)
	if err != nil {
		return Reduction{}, fmt.Errorf("failed to load index of page %d: %w", pageID, err)
	}
	if len(indexes) == 0 {
		return Reduction{}, nil
	}

	ids := make([]int64, len(indexes))
	for i, idx := range indexes {
		ids[i] = idx.LemmaID
	}

	lemmas, err := r.store.LemmasByIDs(ctx, ids)
	if err != nil {
		return Reduction{}, fmt.Errorf("failed to load lemmas of page %d: %w", pageID, err)
	}

	reduction := PlanReduction(lemmas)
	if err := r.store.ApplyReduction(ctx, pageID, reduction.Updated, reduction.Deleted); err != nil {
		return Reduction{}, fmt.Errorf("failed to reduce page %d: %w", pageID, err)
	}
	return reduction, nil
}
