package queue_test

import (
	"context"
	"testing"
	"time"

	"clipmill/internal/queue"
	"clipmill/internal/testsupport"
)

func openStore(t *testing.T) *queue.Store {
	t.Helper()
	store, err := queue.Open(testsupport.NewConfig(t))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewVideoIsIdempotentPerVideoID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, err := store.NewVideo(ctx, "vid-1", "Lecture", "DentalChannel", "2026-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("NewVideo returned error: %v", err)
	}
	if first.Status != queue.StatusPending {
		t.Fatalf("expected pending status, got %s", first.Status)
	}

	second, err := store.NewVideo(ctx, "vid-1", "Different Title", "Other", "")
	if err != nil {
		t.Fatalf("NewVideo second call returned error: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same item for duplicate video id, got %d and %d", first.ID, second.ID)
	}
	if second.Title != "Lecture" {
		t.Fatalf("expected original title preserved, got %q", second.Title)
	}
}

func TestUpdateRoundTripsFields(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, err := store.NewVideo(ctx, "vid-2", "Lecture", "DentalChannel", "")
	if err != nil {
		t.Fatalf("NewVideo returned error: %v", err)
	}

	item.Status = queue.StatusScored
	item.CandidatesJSON = `[{"start":0,"end":30}]`
	item.ClipsCreated = 2
	item.SetProgress("Scoring", "2 candidates", 100)
	now := time.Now().UTC()
	item.LastHeartbeat = &now
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	loaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if loaded.Status != queue.StatusScored {
		t.Fatalf("expected scored status, got %s", loaded.Status)
	}
	if loaded.CandidatesJSON != item.CandidatesJSON {
		t.Fatalf("candidates json not persisted: %q", loaded.CandidatesJSON)
	}
	if loaded.ClipsCreated != 2 {
		t.Fatalf("expected 2 clips created, got %d", loaded.ClipsCreated)
	}
	if loaded.LastHeartbeat == nil {
		t.Fatal("expected heartbeat to be persisted")
	}
}

func TestNextForStatusesOrdersByInsertion(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if _, err := store.NewVideo(ctx, id, "", "", ""); err != nil {
			t.Fatalf("NewVideo returned error: %v", err)
		}
	}

	item, err := store.NextForStatuses(ctx, queue.StatusPending)
	if err != nil {
		t.Fatalf("NextForStatuses returned error: %v", err)
	}
	if item == nil || item.VideoID != "a" {
		t.Fatalf("expected oldest pending item, got %+v", item)
	}

	none, err := store.NextForStatuses(ctx, queue.StatusPublishing)
	if err != nil {
		t.Fatalf("NextForStatuses returned error: %v", err)
	}
	if none != nil {
		t.Fatalf("expected nil for unmatched statuses, got %+v", none)
	}
}

func TestRetryFailedResetsToPending(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, err := store.NewVideo(ctx, "vid-3", "", "", "")
	if err != nil {
		t.Fatalf("NewVideo returned error: %v", err)
	}
	item.SetFailed("render exploded")
	item.SourceFile = "/tmp/source.mp4"
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	count, err := store.RetryFailed(ctx)
	if err != nil {
		t.Fatalf("RetryFailed returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 retried item, got %d", count)
	}

	loaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if loaded.Status != queue.StatusPending {
		t.Fatalf("expected pending after retry, got %s", loaded.Status)
	}
	if loaded.SourceFile != "" || loaded.ErrorMessage != "" {
		t.Fatalf("expected cleared work fields, got %+v", loaded)
	}
}

func TestReclaimStaleFailsStuckProcessingItems(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	item, err := store.NewVideo(ctx, "vid-4", "", "", "")
	if err != nil {
		t.Fatalf("NewVideo returned error: %v", err)
	}
	old := time.Now().Add(-time.Hour)
	item.Status = queue.StatusRendering
	item.LastHeartbeat = &old
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	count, err := store.ReclaimStale(ctx, time.Minute)
	if err != nil {
		t.Fatalf("ReclaimStale returned error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 reclaimed item, got %d", count)
	}
	loaded, err := store.GetByID(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetByID returned error: %v", err)
	}
	if loaded.Status != queue.StatusFailed {
		t.Fatalf("expected failed after reclaim, got %s", loaded.Status)
	}
}

func TestStatsCountsPerStatus(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for _, id := range []string{"x", "y"} {
		if _, err := store.NewVideo(ctx, id, "", "", ""); err != nil {
			t.Fatalf("NewVideo returned error: %v", err)
		}
	}
	item, _ := store.GetByVideoID(ctx, "y")
	item.Status = queue.StatusCompleted
	if err := store.Update(ctx, item); err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats returned error: %v", err)
	}
	if stats[queue.StatusPending] != 1 || stats[queue.StatusCompleted] != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
