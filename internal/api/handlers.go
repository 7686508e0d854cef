package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"acervo/internal/auth"
	"acervo/internal/catalog"
	"acervo/internal/covers"
	"acervo/internal/drive"
	"acervo/internal/player"
	"acervo/internal/storage"
)

const Version = "0.1.0"

type Handler struct {
	synchronizer *catalog.Synchronizer
	session      *player.Session
	auth         *auth.Manager
	covers       *covers.Service
	store        *storage.SQLiteStore
	logger       zerolog.Logger
}

func NewHandler(
	synchronizer *catalog.Synchronizer,
	session *player.Session,
	authMgr *auth.Manager,
	coverService *covers.Service,
	store *storage.SQLiteStore,
	logger zerolog.Logger,
) *Handler {
	return &Handler{
		synchronizer: synchronizer,
		session:      session,
		auth:         authMgr,
		covers:       coverService,
		store:        store,
		logger:       logger,
	}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// Auth

func (h *Handler) SetCredential(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Credential == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Credential required")
		return
	}
	h.auth.SetCredential(req.Credential)
	writeJSON(w, http.StatusOK, AuthResponse{Connected: true})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.auth.Invalidate()
	writeJSON(w, http.StatusOK, AuthResponse{Connected: false})
}

// Catalog

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	snap := h.synchronizer.Catalog()

	items := make([]ItemResponse, 0, len(snap.Items))
	for _, item := range snap.Items {
		items = append(items, toItemResponse(item))
	}

	writeJSON(w, http.StatusOK, CatalogResponse{
		Status:   snap.Status,
		Error:    snap.Err,
		SyncedAt: snap.SyncedAt,
		Count:    len(items),
		Items:    items,
	})
}

func (h *Handler) SyncCatalog(w http.ResponseWriter, r *http.Request) {
	if h.auth.Credential() == "" {
		writeError(w, http.StatusUnauthorized, "NOT_SIGNED_IN", "Connect the storage account first")
		return
	}

	// Detached from the request context: the cycle outlives this response.
	go func() {
		if err := h.synchronizer.Sync(context.Background()); err != nil {
			h.logger.Error().Err(err).Msg("sync failed")
		}
	}()

	writeJSON(w, http.StatusAccepted, SyncResponse{
		Status:  "started",
		Message: "Catalog sync started",
	})
}

func (h *Handler) GetCover(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "id")

	item, ok := h.synchronizer.Item(itemID)
	if !ok {
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found")
		return
	}

	data, err := h.covers.Get(r.Context(), item)
	if err != nil {
		switch {
		case errors.Is(err, covers.ErrNoCover):
			writeError(w, http.StatusNotFound, "NO_COVER", "Item uses a theme gradient")
		case drive.IsAuthExpired(err):
			writeError(w, http.StatusUnauthorized, "AUTH_EXPIRED", "Re-authentication required")
		default:
			h.logger.Warn().Err(err).Str("id", itemID).Msg("cover fetch failed")
			writeError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "Cover not available")
		}
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) ContinueListening(w http.ResponseWriter, r *http.Request) {
	positions, err := h.store.RecentPositions(20)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to load recent positions")
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load positions")
		return
	}
	writeJSON(w, http.StatusOK, ContinueListeningResponse{Positions: positions})
}

// Player

func (h *Handler) GetPlayerState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StateResponse{State: h.session.Snapshot()})
}

func (h *Handler) LoadItem(w http.ResponseWriter, r *http.Request) {
	var req LoadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ItemID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "item_id required")
		return
	}

	item, ok := h.synchronizer.Item(req.ItemID)
	if !ok {
		writeError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "Item not found")
		return
	}

	if err := h.session.Load(item, req.TrackIndex); err != nil {
		if errors.Is(err, player.ErrNotPlayable) {
			// The caller routes non-audio items to an external viewer.
			writeError(w, http.StatusUnprocessableEntity, "NOT_PLAYABLE", "Item is not audio")
			return
		}
		h.logger.Error().Err(err).Str("id", req.ItemID).Msg("load failed")
		writeError(w, http.StatusBadGateway, "PLAYBACK_ERROR", err.Error())
		return
	}

	saved, err := h.store.GetPosition(req.ItemID)
	if err != nil {
		h.logger.Warn().Err(err).Str("id", req.ItemID).Msg("failed to load saved position")
	}

	writeJSON(w, http.StatusOK, LoadResponse{
		State:         h.session.Snapshot(),
		SavedPosition: saved,
	})
}

func (h *Handler) Play(w http.ResponseWriter, r *http.Request) {
	h.playerCommand(w, h.session.Play())
}

func (h *Handler) Pause(w http.ResponseWriter, r *http.Request) {
	h.playerCommand(w, h.session.Pause())
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	h.playerCommand(w, h.session.Toggle())
}

func (h *Handler) Seek(w http.ResponseWriter, r *http.Request) {
	var req SeekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	h.playerCommand(w, h.session.Seek(req.Position))
}

func (h *Handler) SeekRelative(w http.ResponseWriter, r *http.Request) {
	var req SeekRelativeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	h.playerCommand(w, h.session.SeekRelative(req.Delta))
}

func (h *Handler) SkipForward(w http.ResponseWriter, r *http.Request) {
	h.playerCommand(w, h.session.SkipForward())
}

func (h *Handler) SkipBackward(w http.ResponseWriter, r *http.Request) {
	h.playerCommand(w, h.session.SkipBackward())
}

func (h *Handler) CycleSpeed(w http.ResponseWriter, r *http.Request) {
	h.session.CycleSpeed()
	h.playerCommand(w, nil)
}

func (h *Handler) SetSpeed(w http.ResponseWriter, r *http.Request) {
	var req SpeedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	h.session.SetSpeed(req.Speed)
	h.playerCommand(w, nil)
}

func (h *Handler) SetVolume(w http.ResponseWriter, r *http.Request) {
	var req VolumeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	h.session.SetVolume(req.Volume)
	h.playerCommand(w, nil)
}

func (h *Handler) ToggleMute(w http.ResponseWriter, r *http.Request) {
	h.session.ToggleMute()
	h.playerCommand(w, nil)
}

func (h *Handler) ToggleRepeat(w http.ResponseWriter, r *http.Request) {
	h.session.ToggleRepeat()
	h.playerCommand(w, nil)
}

func (h *Handler) SetSleep(w http.ResponseWriter, r *http.Request) {
	var req SleepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid request body")
		return
	}
	switch {
	case req.ChapterEnd:
		h.session.SetSleepAtChapterEnd()
	case req.Minutes != nil:
		h.session.SetSleepTimer(*req.Minutes)
	default:
		h.session.CancelSleepTimer()
	}
	h.playerCommand(w, nil)
}

func (h *Handler) AddBookmark(w http.ResponseWriter, r *http.Request) {
	bm, ok := h.session.AddBookmark()
	if !ok {
		writeError(w, http.StatusConflict, "NOTHING_LOADED", "No item loaded")
		return
	}
	writeJSON(w, http.StatusCreated, bm)
}

func (h *Handler) ListBookmarks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, BookmarksResponse{Bookmarks: h.session.Bookmarks()})
}

func (h *Handler) RemoveBookmark(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.session.RemoveBookmark(id) {
		writeError(w, http.StatusNotFound, "BOOKMARK_NOT_FOUND", "Bookmark not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) playerCommand(w http.ResponseWriter, err error) {
	if err != nil {
		var pe *player.PlaybackError
		if errors.As(err, &pe) {
			writeError(w, http.StatusBadGateway, "PLAYBACK_ERROR", pe.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, StateResponse{State: h.session.Snapshot()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}
