package site_test

import (
	"context"
	"testing"
	"time"

	"github.com/deidaraiorek/lemmasearch/internal/site"
	"github.com/deidaraiorek/lemmasearch/internal/storage"
)

func setup(t *testing.T) (*storage.Database, *site.Conditions, *storage.Site) {
	t.Helper()
	db, err := storage.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := &storage.Site{URL: "https://example.com", Name: "example", Status: storage.StatusFailed, StatusTime: time.Now()}
	if err := db.CreateSite(context.Background(), s); err != nil {
		t.Fatalf("CreateSite error: %v", err)
	}
	return db, site.NewConditions(db), s
}

func TestFirstFailureReasonWins(t *testing.T) {
	ctx := context.Background()
	db, c, s := setup(t)

	if err := c.StartIndexing(ctx, s.ID); err != nil {
		t.Fatalf("StartIndexing error: %v", err)
	}
	indexing, _ := c.IsIndexing(ctx, s.ID)
	if !indexing {
		t.Fatal("Site should be indexing")
	}

	if err := c.EmptyLemmas(ctx, s.ID); err != nil {
		t.Fatalf("EmptyLemmas error: %v", err)
	}
	if err := c.EmptyIndex(ctx, s.ID); err != nil {
		t.Fatalf("EmptyIndex error: %v", err)
	}

	got, _ := db.GetSite(ctx, s.ID)
	if got.Status != storage.StatusFailed || got.LastError.String != site.ReasonNoLemmas {
		t.Errorf("Expected FAILED with %q, got %s %q", site.ReasonNoLemmas, got.Status, got.LastError.String)
	}

	indexing, _ = c.IsIndexing(ctx, s.ID)
	if indexing {
		t.Error("Failed site must not report indexing")
	}
}

func TestStopKeepsSiteFailed(t *testing.T) {
	ctx := context.Background()
	db, c, s := setup(t)

	c.StartIndexing(ctx, s.ID)

	running, _ := c.AnyIndexing(ctx)
	if !running {
		t.Fatal("Expected a site indexing")
	}

	n, err := c.StopAll(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 stopped site, got %d err=%v", n, err)
	}

	// The run finishing after the stop must not overwrite the stop.
	ok, err := c.Indexed(ctx, s.ID)
	if err != nil {
		t.Fatalf("Indexed error: %v", err)
	}
	if ok {
		t.Error("Stopped site must not become INDEXED")
	}
	c.EmptyIndex(ctx, s.ID)

	got, _ := db.GetSite(ctx, s.ID)
	if got.Status != storage.StatusFailed || got.LastError.String != site.ReasonStopped {
		t.Errorf("Expected FAILED %q, got %s %q", site.ReasonStopped, got.Status, got.LastError.String)
	}

	running, _ = c.AnyIndexing(ctx)
	if running {
		t.Error("No site should be indexing after stop")
	}
}

func TestIndexedAndTouch(t *testing.T) {
	ctx := context.Background()
	db, c, s := setup(t)

	c.StartIndexing(ctx, s.ID)
	before, _ := db.GetSite(ctx, s.ID)

	time.Sleep(5 * time.Millisecond)
	if err := c.Touch(ctx, s.ID); err != nil {
		t.Fatalf("Touch error: %v", err)
	}
	after, _ := db.GetSite(ctx, s.ID)
	if !after.StatusTime.After(before.StatusTime) {
		t.Errorf("Touch should advance status time: %v -> %v", before.StatusTime, after.StatusTime)
	}

	ok, err := c.Indexed(ctx, s.ID)
	if err != nil || !ok {
		t.Fatalf("Expected INDEXED, got ok=%v err=%v", ok, err)
	}
	got, _ := db.GetSite(ctx, s.ID)
	if got.Status != storage.StatusIndexed || got.LastError.Valid {
		t.Errorf("Unexpected site after indexing: %+v", got)
	}

	indexing, _ := c.IsIndexing(ctx, 424242)
	if indexing {
		t.Error("Unknown site must not report indexing")
	}
}
