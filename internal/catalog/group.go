package catalog

import (
	"path"
	"sort"
	"strings"
	"time"

	"acervo/internal/drive"
)

// groupedTrackMin is the audio-file count at which a folder is treated as
// one multi-track audiobook instead of loose files.
const groupedTrackMin = 2

var coverHints = []string{"cover", "capa", "front"}

// BuildItems turns the merged record set of one sync cycle into catalog
// items: folders holding groupedTrackMin or more audio files become one
// multi-track item each, everything else becomes a loose single item.
// Files sitting directly in a root collection are never grouped; rootIDs
// names those collections. Output is deterministic for identical input.
func BuildItems(records []drive.FileRecord, rootIDs map[string]bool, rootOf func(id string) CollectionKind) []Item {
	folders := make(map[string]drive.FileRecord)
	var leaves []drive.FileRecord
	for _, r := range records {
		if r.IsFolder() {
			folders[r.ID] = r
		} else {
			leaves = append(leaves, r)
		}
	}

	buckets := make(map[string][]drive.FileRecord)
	for _, f := range leaves {
		buckets[f.PrimaryParent()] = append(buckets[f.PrimaryParent()], f)
	}

	consumed := make(map[string]bool)
	var grouped []Item
	for parentID, bucket := range buckets {
		if rootIDs[parentID] {
			continue
		}
		audio := filterAudio(bucket)
		if len(audio) < groupedTrackMin {
			continue
		}
		item := buildGroupedItem(parentID, folders[parentID], audio, bucket)
		for _, t := range audio {
			consumed[t.ID] = true
		}
		grouped = append(grouped, item)
	}

	var loose []Item
	for _, f := range leaves {
		if consumed[f.ID] {
			continue
		}
		loose = append(loose, buildLooseItem(f, rootOf))
	}

	sort.Slice(grouped, func(i, j int) bool { return naturalLess(grouped[i].Title, grouped[j].Title) })
	sort.Slice(loose, func(i, j int) bool { return naturalLess(loose[i].Title, loose[j].Title) })

	return append(grouped, loose...)
}

func buildGroupedItem(parentID string, folder drive.FileRecord, audio, bucket []drive.FileRecord) Item {
	sort.Slice(audio, func(i, j int) bool { return naturalLess(audio[i].Name, audio[j].Name) })

	tracks := make([]Track, 0, len(audio))
	var totalSize int64
	for _, f := range audio {
		tracks = append(tracks, Track{
			ID:        f.ID,
			Name:      stripExtension(f.Name),
			SourceRef: f.ID,
			SizeBytes: f.SizeBytes,
		})
		totalSize += f.SizeBytes
	}

	title := folder.Name
	if title == "" {
		title = deriveGroupTitle(audio[0].Name)
	}

	itemID := parentID
	if itemID == "" {
		itemID = audio[0].ID
	}

	item := Item{
		ID:          itemID,
		Title:       title,
		ContentType: ContentAudiobook,
		MultiTrack:  true,
		Tracks:      tracks,
		SourceRef:   tracks[0].SourceRef,
		SizeBytes:   totalSize,
		ModifiedAt:  latestModified(audio),
	}

	if cover := pickCover(bucket, audio); cover != "" {
		item.CoverImageRef = cover
	} else {
		item.ThemeGradientID = ThemeGradientID(itemID)
	}
	return item
}

func buildLooseItem(f drive.FileRecord, rootOf func(id string) CollectionKind) Item {
	contentType, theme := Classify(f, rootOf)

	item := Item{
		ID:              f.ID,
		Title:           stripExtension(f.Name),
		ContentType:     contentType,
		SourceRef:       f.ID,
		ExternalViewRef: f.ExternalViewRef,
		SizeBytes:       f.SizeBytes,
		ModifiedAt:      f.ModifiedAt,
	}

	if f.ThumbnailRef != "" {
		item.CoverImageRef = f.ThumbnailRef
	} else {
		item.ThemeGradientID = theme
	}
	return item
}

// pickCover resolves a grouped item's artwork: an image whose name carries a
// cover hint, then any image in the folder, then the first track's own
// thumbnail. Returns "" when the item must fall back to a theme gradient.
func pickCover(bucket, audio []drive.FileRecord) string {
	images := filterImages(bucket)
	sort.Slice(images, func(i, j int) bool { return naturalLess(images[i].Name, images[j].Name) })

	for _, img := range images {
		name := strings.ToLower(img.Name)
		for _, hint := range coverHints {
			if strings.Contains(name, hint) {
				return coverRef(img)
			}
		}
	}
	if len(images) > 0 {
		return coverRef(images[0])
	}
	return audio[0].ThumbnailRef
}

func coverRef(img drive.FileRecord) string {
	if img.ThumbnailRef != "" {
		return img.ThumbnailRef
	}
	return img.ID
}

func filterAudio(bucket []drive.FileRecord) []drive.FileRecord {
	var out []drive.FileRecord
	for _, f := range bucket {
		if strings.HasPrefix(f.MimeType, "audio/") {
			out = append(out, f)
		}
	}
	return out
}

func filterImages(bucket []drive.FileRecord) []drive.FileRecord {
	var out []drive.FileRecord
	for _, f := range bucket {
		if strings.HasPrefix(f.MimeType, "image/") {
			out = append(out, f)
		}
	}
	return out
}

func stripExtension(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// deriveGroupTitle guesses an album-style title from a track name when the
// containing folder has no usable display name.
func deriveGroupTitle(trackName string) string {
	name := stripExtension(trackName)
	if i := strings.Index(name, " - "); i > 0 {
		return name[:i]
	}
	return name
}

func latestModified(files []drive.FileRecord) (latest time.Time) {
	for _, f := range files {
		if f.ModifiedAt.After(latest) {
			latest = f.ModifiedAt
		}
	}
	return latest
}
