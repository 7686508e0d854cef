package api

import (
	"time"

	"github.com/dustin/go-humanize"

	"acervo/internal/catalog"
	"acervo/internal/player"
	"acervo/internal/storage"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AuthRequest struct {
	Credential string `json:"credential"`
}

type AuthResponse struct {
	Connected bool `json:"connected"`
}

type SyncResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ItemResponse decorates a catalog item with display fields: a humanized
// size, the cover endpoint and the gradient CSS for the fallback theme.
type ItemResponse struct {
	catalog.Item
	Size     string `json:"size"`
	CoverURL string `json:"cover_url,omitempty"`
	Gradient string `json:"gradient,omitempty"`
}

type CatalogResponse struct {
	Status   catalog.Status `json:"status"`
	Error    string         `json:"error,omitempty"`
	SyncedAt time.Time      `json:"synced_at"`
	Count    int            `json:"count"`
	Items    []ItemResponse `json:"items"`
}

type LoadRequest struct {
	ItemID     string `json:"item_id"`
	TrackIndex int    `json:"track_index"`
}

type SeekRequest struct {
	Position float64 `json:"position"`
}

type SeekRelativeRequest struct {
	Delta float64 `json:"delta"`
}

type SpeedRequest struct {
	Speed float64 `json:"speed"`
}

type VolumeRequest struct {
	Volume float64 `json:"volume"`
}

// SleepRequest sets the sleep timer: minutes for a fixed delay,
// chapter_end for the end-of-chapter marker, neither to cancel.
type SleepRequest struct {
	Minutes    *int `json:"minutes"`
	ChapterEnd bool `json:"chapter_end"`
}

type StateResponse struct {
	State player.State `json:"state"`
}

// LoadResponse carries the fresh session state plus any previously saved
// position for the item. The saved position is informational; the caller
// decides whether to seek to it.
type LoadResponse struct {
	State         player.State      `json:"state"`
	SavedPosition *storage.Position `json:"saved_position,omitempty"`
}

type BookmarksResponse struct {
	Bookmarks []player.Bookmark `json:"bookmarks"`
}

type ContinueListeningResponse struct {
	Positions []storage.Position `json:"positions"`
}

func toItemResponse(item catalog.Item) ItemResponse {
	resp := ItemResponse{
		Item: item,
		Size: humanize.Bytes(uint64(item.SizeBytes)),
	}
	if item.CoverImageRef != "" {
		resp.CoverURL = "/api/v1/catalog/items/" + item.ID + "/cover"
	}
	if item.ThemeGradientID != "" {
		resp.Gradient = catalog.GradientPalette[item.ThemeGradientID]
	}
	return resp
}
