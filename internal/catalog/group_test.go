package catalog

import (
	"testing"
	"time"

	"acervo/internal/drive"
)

func audioFile(id, name, parent string) drive.FileRecord {
	return drive.FileRecord{
		ID:         id,
		Name:       name,
		MimeType:   "audio/mpeg",
		ParentIDs:  []string{parent},
		SizeBytes:  1000,
		ModifiedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func imageFile(id, name, parent string) drive.FileRecord {
	return drive.FileRecord{
		ID:           id,
		Name:         name,
		MimeType:     "image/png",
		ParentIDs:    []string{parent},
		ThumbnailRef: "thumb-" + id,
	}
}

func folder(id, name string) drive.FileRecord {
	return drive.FileRecord{ID: id, Name: name, MimeType: drive.MimeTypeFolder}
}

func noRoots(string) CollectionKind { return "" }

func TestGroupMultiTrackOrdering(t *testing.T) {
	records := []drive.FileRecord{
		folder("f1", "O Poder do Hábito"),
		audioFile("a", "2.mp3", "f1"),
		audioFile("b", "10.mp3", "f1"),
		audioFile("c", "1.mp3", "f1"),
	}

	items := BuildItems(records, nil, noRoots)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	item := items[0]
	if !item.MultiTrack {
		t.Fatal("Expected a multi-track item")
	}
	if item.Title != "O Poder do Hábito" {
		t.Errorf("Expected folder name as title, got %q", item.Title)
	}

	want := []string{"1", "2", "10"}
	if len(item.Tracks) != len(want) {
		t.Fatalf("Expected %d tracks, got %d", len(want), len(item.Tracks))
	}
	for i, name := range want {
		if item.Tracks[i].Name != name {
			t.Errorf("Track %d: expected %q, got %q", i, name, item.Tracks[i].Name)
		}
	}
}

func TestGroupCoverPrecedence(t *testing.T) {
	records := []drive.FileRecord{
		folder("f1", "Sapiens"),
		audioFile("a", "1.mp3", "f1"),
		audioFile("b", "2.mp3", "f1"),
		imageFile("img1", "random.jpg", "f1"),
		imageFile("img2", "capa.png", "f1"),
	}

	items := BuildItems(records, nil, noRoots)

	var grouped *Item
	for i := range items {
		if items[i].MultiTrack {
			grouped = &items[i]
		}
	}
	if grouped == nil {
		t.Fatal("Expected a multi-track item")
	}
	if grouped.CoverImageRef != "thumb-img2" {
		t.Errorf("Expected capa.png as cover, got %q", grouped.CoverImageRef)
	}
	if grouped.ThemeGradientID != "" {
		t.Error("Expected no gradient when a cover exists")
	}
}

func TestGroupThreshold(t *testing.T) {
	// One audio file in a folder stays a loose item.
	records := []drive.FileRecord{
		folder("f1", "Single"),
		audioFile("a", "only.mp3", "f1"),
	}
	items := BuildItems(records, nil, noRoots)
	if len(items) != 1 || items[0].MultiTrack {
		t.Fatalf("Expected one loose item, got %+v", items)
	}

	// Two audio files cross the threshold.
	records = append(records, audioFile("b", "second.mp3", "f1"))
	items = BuildItems(records, nil, noRoots)
	if len(items) != 1 || !items[0].MultiTrack {
		t.Fatalf("Expected one grouped item, got %+v", items)
	}
	if len(items[0].Tracks) != 2 {
		t.Errorf("Expected 2 tracks, got %d", len(items[0].Tracks))
	}
}

func TestGroupConsumesAudioOnlyOnce(t *testing.T) {
	records := []drive.FileRecord{
		folder("f1", "Book"),
		audioFile("a", "1.mp3", "f1"),
		audioFile("b", "2.mp3", "f1"),
		audioFile("c", "3.mp3", "f1"),
		audioFile("loose", "standalone.mp3", "other-folder"),
	}

	items := BuildItems(records, nil, noRoots)
	if len(items) != 2 {
		t.Fatalf("Expected grouped + loose, got %d items", len(items))
	}

	seen := make(map[string]int)
	for _, item := range items {
		if item.MultiTrack {
			for _, tr := range item.Tracks {
				seen[tr.ID]++
			}
		} else {
			seen[item.ID]++
		}
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("File %s emitted %d times", id, n)
		}
	}
}

func TestGroupedItemsComeFirstAndOutputIsDeterministic(t *testing.T) {
	records := []drive.FileRecord{
		audioFile("z", "zeta.mp3", "elsewhere"),
		folder("f1", "Beta Book"),
		audioFile("a", "1.mp3", "f1"),
		audioFile("b", "2.mp3", "f1"),
		folder("f2", "Alpha Book"),
		audioFile("c", "1.mp3", "f2"),
		audioFile("d", "2.mp3", "f2"),
	}

	first := BuildItems(records, nil, noRoots)
	if len(first) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(first))
	}
	if first[0].Title != "Alpha Book" || first[1].Title != "Beta Book" {
		t.Errorf("Expected grouped items first in name order, got %q, %q", first[0].Title, first[1].Title)
	}
	if first[2].MultiTrack {
		t.Error("Expected the loose item last")
	}

	for run := 0; run < 5; run++ {
		again := BuildItems(records, nil, noRoots)
		for i := range first {
			if again[i].ID != first[i].ID {
				t.Fatalf("Output order changed between runs at index %d", i)
			}
		}
	}
}

func TestLooseItemTitleAndTheme(t *testing.T) {
	f := drive.FileRecord{ID: "x", Name: "A Arte da Guerra.pdf", MimeType: "application/pdf"}
	items := BuildItems([]drive.FileRecord{f}, nil, noRoots)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}

	item := items[0]
	if item.Title != "A Arte da Guerra" {
		t.Errorf("Expected extension stripped, got %q", item.Title)
	}
	if item.ContentType != ContentEbook {
		t.Errorf("Expected ebook, got %s", item.ContentType)
	}
	// No thumbnail: exactly the gradient side of the XOR.
	if item.CoverImageRef != "" || item.ThemeGradientID == "" {
		t.Errorf("Expected gradient fallback, got cover=%q gradient=%q", item.CoverImageRef, item.ThemeGradientID)
	}
}

func TestAudioDirectlyInRootStaysLoose(t *testing.T) {
	roots := func(id string) CollectionKind {
		if id == "root-a" {
			return KindAudiobooks
		}
		return ""
	}
	records := []drive.FileRecord{
		audioFile("a", "Book One.mp3", "root-a"),
		audioFile("b", "Book Two.mp3", "root-a"),
		audioFile("c", "Book Three.mp3", "root-a"),
	}

	items := BuildItems(records, map[string]bool{"root-a": true}, roots)
	if len(items) != 3 {
		t.Fatalf("Expected 3 single items, got %d", len(items))
	}
	for _, item := range items {
		if item.MultiTrack {
			t.Errorf("Item %s: root-level files must not be grouped", item.ID)
		}
		if item.ContentType != ContentAudiobook {
			t.Errorf("Item %s: expected audiobook, got %s", item.ID, item.ContentType)
		}
	}
}

func TestGroupTitleFallsBackToTrackName(t *testing.T) {
	// Parent folder metadata missing from the record set.
	records := []drive.FileRecord{
		audioFile("a", "Mindset - 01.mp3", "unknown-folder"),
		audioFile("b", "Mindset - 02.mp3", "unknown-folder"),
	}
	items := BuildItems(records, nil, noRoots)
	if len(items) != 1 {
		t.Fatalf("Expected 1 item, got %d", len(items))
	}
	if items[0].Title != "Mindset" {
		t.Errorf("Expected derived title %q, got %q", "Mindset", items[0].Title)
	}
}
