package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/ytdbot/ytd-bot/internal/domain"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(t.TempDir())
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func entry(jobID string, userID int64, finished time.Time) *domain.HistoryEntry {
	return &domain.HistoryEntry{
		JobID:      jobID,
		UserID:     userID,
		URL:        "https://example.com/v",
		Title:      "Title " + jobID,
		Mode:       domain.ModeSafeFallback,
		State:      domain.StatePublished,
		FileName:   jobID + ".mp4",
		SizeBytes:  1024,
		PublicURL:  "https://files.test/" + jobID,
		CreatedAt:  finished.Add(-time.Minute),
		FinishedAt: finished,
	}
}

func TestRecordAndRecentByUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i, id := range []string{"a", "b", "c"} {
		if err := repo.Record(ctx, entry(id, 1, now.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Record(%s): %v", id, err)
		}
	}
	if err := repo.Record(ctx, entry("other", 2, now)); err != nil {
		t.Fatalf("Record(other): %v", err)
	}

	entries, err := repo.RecentByUser(ctx, 1, 2)
	if err != nil {
		t.Fatalf("RecentByUser: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].JobID != "c" || entries[1].JobID != "b" {
		t.Errorf("order = %s, %s, want c, b", entries[0].JobID, entries[1].JobID)
	}

	count, err := repo.CountByUser(ctx, 1)
	if err != nil {
		t.Fatalf("CountByUser: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestDeleteOlderThan(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := repo.Record(ctx, entry("old", 1, now.Add(-48*time.Hour))); err != nil {
		t.Fatal(err)
	}
	if err := repo.Record(ctx, entry("fresh", 1, now)); err != nil {
		t.Fatal(err)
	}

	deleted, err := repo.DeleteOlderThan(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if deleted != 1 {
		t.Errorf("deleted = %d, want 1", deleted)
	}

	entries, err := repo.RecentByUser(ctx, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].JobID != "fresh" {
		t.Errorf("remaining = %+v, want only fresh", entries)
	}
}
