package catalog

import (
	"hash/fnv"
	"time"
)

// ContentType is the classified kind of a catalog item.
type ContentType string

const (
	ContentAudiobook  ContentType = "audiobook"
	ContentEbook      ContentType = "ebook"
	ContentVideo      ContentType = "video"
	ContentFinanceDoc ContentType = "finance-doc"
	ContentOther      ContentType = "other"
)

// CollectionKind names a configured root collection's purpose.
type CollectionKind string

const (
	KindAudiobooks CollectionKind = "audiobooks"
	KindEbooks     CollectionKind = "ebooks"
	KindVideos     CollectionKind = "videos"
	KindFinance    CollectionKind = "finance"
)

// RootCollection is one top-level remote folder the catalog mirrors.
type RootCollection struct {
	ID   string
	Name string
	Kind CollectionKind
}

// Track is one remote audio file inside a multi-track item.
type Track struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	SourceRef string `json:"source_ref"`
	SizeBytes int64  `json:"size_bytes"`
}

// Chapter is a named [Start, End) interval inside a single-file item.
type Chapter struct {
	Index int     `json:"index"`
	Title string  `json:"title"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Item is one playable or openable unit exposed to the view layer.
// Exactly one of CoverImageRef / ThemeGradientID is set.
type Item struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	ContentType     ContentType `json:"content_type"`
	MultiTrack      bool        `json:"multi_track"`
	Tracks          []Track     `json:"tracks,omitempty"`
	Chapters        []Chapter   `json:"chapters,omitempty"`
	CoverImageRef   string      `json:"cover_image_ref,omitempty"`
	ThemeGradientID string      `json:"theme_gradient_id,omitempty"`
	SourceRef       string      `json:"source_ref"`
	ExternalViewRef string      `json:"external_view_ref,omitempty"`
	SizeBytes       int64       `json:"size_bytes"`
	ModifiedAt      time.Time   `json:"modified_at"`
}

// Status is the synchronizer's observable phase.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// Catalog is an immutable snapshot of the mirrored library. A new snapshot
// wholly replaces the previous one on every sync cycle.
type Catalog struct {
	Items    []Item    `json:"items"`
	SyncedAt time.Time `json:"synced_at"`
	Status   Status    `json:"status"`
	Err      string    `json:"error,omitempty"`
}

// GradientPalette maps a theme gradient id to its CSS background. The view
// renders these as cover stand-ins.
var GradientPalette = map[string]string{
	"g00": "linear-gradient(135deg, #667eea 0%, #764ba2 100%)",
	"g01": "linear-gradient(135deg, #f093fb 0%, #f5576c 100%)",
	"g02": "linear-gradient(135deg, #4facfe 0%, #00f2fe 100%)",
	"g03": "linear-gradient(135deg, #43e97b 0%, #38f9d7 100%)",
	"g04": "linear-gradient(135deg, #fa709a 0%, #fee140 100%)",
	"g05": "linear-gradient(135deg, #a18cd1 0%, #fbc2eb 100%)",
	"g06": "linear-gradient(135deg, #fccb90 0%, #d57eeb 100%)",
	"g07": "linear-gradient(135deg, #e0c3fc 0%, #8ec5fc 100%)",
	"g08": "linear-gradient(135deg, #f5576c 0%, #ff6f61 100%)",
	"g09": "linear-gradient(135deg, #667eea 0%, #47d6e8 100%)",
	"g10": "linear-gradient(135deg, #C850C0 0%, #4158D0 100%)",
	"g11": "linear-gradient(135deg, #0093E9 0%, #80D0C7 100%)",
	"g12": "linear-gradient(135deg, #8BC6EC 0%, #9599E2 100%)",
	"g13": "linear-gradient(135deg, #FBAB7E 0%, #F7CE68 100%)",
	"g14": "linear-gradient(135deg, #85FFBD 0%, #FFFB7D 100%)",
	"g15": "linear-gradient(135deg, #FF9A8B 0%, #FF6A88 50%, #FF99AC 100%)",
}

const gradientCount = 16

// ThemeGradientID picks the deterministic fallback gradient for a source id.
// The same id always maps to the same gradient across sync cycles.
func ThemeGradientID(sourceID string) string {
	h := fnv.New32a()
	h.Write([]byte(sourceID))
	n := h.Sum32() % gradientCount
	return gradientID(int(n))
}

func gradientID(n int) string {
	const digits = "0123456789"
	return "g" + string(digits[n/10]) + string(digits[n%10])
}
