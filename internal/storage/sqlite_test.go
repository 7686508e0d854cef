package storage

import (
	"path/filepath"
	"testing"
	"time"

	"acervo/internal/player"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "acervo.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCredentialRoundtrip(t *testing.T) {
	store := newTestStore(t)

	got, err := store.LoadCredential()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "" {
		t.Errorf("Expected empty credential in a fresh store, got %q", got)
	}

	if err := store.SaveCredential("tok-1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := store.SaveCredential("tok-2"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err = store.LoadCredential()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != "tok-2" {
		t.Errorf("Expected latest credential, got %q", got)
	}

	if err := store.DeleteCredential(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got, _ = store.LoadCredential()
	if got != "" {
		t.Errorf("Expected empty credential after delete, got %q", got)
	}
}

func TestBookmarkRoundtrip(t *testing.T) {
	store := newTestStore(t)

	first := player.Bookmark{
		ID:        "bm-1",
		ItemID:    "item-a",
		Time:      42.5,
		Label:     "Capítulo 3",
		CreatedAt: time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
	second := player.Bookmark{
		ID:        "bm-2",
		ItemID:    "item-a",
		Time:      120,
		CreatedAt: time.Date(2026, 1, 11, 9, 30, 0, 0, time.UTC),
	}

	if err := store.SaveBookmark(second); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := store.SaveBookmark(first); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	marks, err := store.ListBookmarks()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(marks) != 2 {
		t.Fatalf("Expected 2 bookmarks, got %d", len(marks))
	}
	if marks[0].ID != "bm-1" || marks[1].ID != "bm-2" {
		t.Errorf("Expected creation order, got %s then %s", marks[0].ID, marks[1].ID)
	}
	if marks[0].Time != 42.5 || marks[0].Label != "Capítulo 3" {
		t.Errorf("Bookmark fields lost: %+v", marks[0])
	}

	if err := store.DeleteBookmark("bm-1"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	marks, _ = store.ListBookmarks()
	if len(marks) != 1 || marks[0].ID != "bm-2" {
		t.Errorf("Expected only bm-2 to remain, got %+v", marks)
	}
}

func TestPositionRoundtrip(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetPosition("missing")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for unknown item, got %+v", got)
	}

	if err := store.SavePosition("item-a", 30, 120); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := store.SavePosition("item-a", 60, 120); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	got, err = store.GetPosition("item-a")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got == nil {
		t.Fatal("Expected a stored position")
	}
	if got.Position != 60 || got.Duration != 120 {
		t.Errorf("Expected 60/120, got %f/%f", got.Position, got.Duration)
	}
	if got.Progress != 0.5 {
		t.Errorf("Expected progress 0.5, got %f", got.Progress)
	}
}

func TestSavePositionZeroDuration(t *testing.T) {
	store := newTestStore(t)

	if err := store.SavePosition("item-a", 10, 0); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	got, _ := store.GetPosition("item-a")
	if got.Progress != 0 {
		t.Errorf("Expected progress 0 without a duration, got %f", got.Progress)
	}
}

func TestRecentPositionsLimit(t *testing.T) {
	store := newTestStore(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		if err := store.SavePosition(id, 5, 100); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
	}

	positions, err := store.RecentPositions(3)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(positions) != 3 {
		t.Errorf("Expected limit of 3, got %d", len(positions))
	}

	positions, err = store.RecentPositions(10)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(positions) != 4 {
		t.Errorf("Expected all 4 positions, got %d", len(positions))
	}
}
