// Package player owns the single active playback session: transport
// status, track pointer, derived chapter, sleep timer and bookmarks.
package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"acervo/internal/catalog"
)

// SpeedOptions is the fixed ordered set of playback rates. CycleSpeed
// advances through it and wraps.
var SpeedOptions = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.5, 3.0}

const defaultSpeedIndex = 2 // 1.0x

// ErrNotPlayable is returned by Load for non-audio items; routing those to
// an external viewer is the caller's job.
var ErrNotPlayable = errors.New("player: item is not playable audio")

// Status is the session's transport state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoaded  Status = "loaded"
	StatusPlaying Status = "playing"
	StatusPaused  Status = "paused"
	StatusEnded   Status = "ended"
)

// RepeatMode cycles off → one → all.
type RepeatMode string

const (
	RepeatOff RepeatMode = "off"
	RepeatOne RepeatMode = "one"
	RepeatAll RepeatMode = "all"
)

// Bookmark marks a position inside an item. Bookmarks are append-only
// during a session and removed only by explicit id.
type Bookmark struct {
	ID        string    `json:"id"`
	ItemID    string    `json:"item_id"`
	Time      float64   `json:"time"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// BookmarkStore persists bookmarks between runs.
type BookmarkStore interface {
	SaveBookmark(b Bookmark) error
	DeleteBookmark(id string) error
}

// ProgressStore persists per-item playback positions.
type ProgressStore interface {
	SavePosition(itemID string, position, duration float64) error
}

// State is a read-only snapshot of the session for the view layer and the
// media-session notifier.
type State struct {
	Status            Status           `json:"status"`
	ItemID            string           `json:"item_id,omitempty"`
	ItemTitle         string           `json:"item_title,omitempty"`
	TrackIndex        int              `json:"track_index"`
	TrackCount        int              `json:"track_count"`
	TrackName         string           `json:"track_name,omitempty"`
	Chapter           *catalog.Chapter `json:"chapter,omitempty"`
	Position          float64          `json:"position"`
	Duration          float64          `json:"duration"`
	Speed             float64          `json:"speed"`
	Volume            float64          `json:"volume"`
	Muted             bool             `json:"muted"`
	Repeat            RepeatMode       `json:"repeat"`
	SleepMinutesLeft  float64          `json:"sleep_minutes_left,omitempty"`
	SleepAtChapterEnd bool             `json:"sleep_at_chapter_end,omitempty"`
}

// Session is the playback state machine. All mutations, whether commands
// from the facade or events from the transport, serialize on one mutex so
// position writes apply in arrival order.
type Session struct {
	mu sync.Mutex

	transport Transport
	notifier  Notifier
	bookmarks BookmarkStore
	progress  ProgressStore
	logger    zerolog.Logger

	item       *catalog.Item
	trackIndex int
	status     Status
	position   float64
	duration   float64
	speedIdx   int
	volume     float64
	muted      bool
	repeat     RepeatMode
	chapter    *catalog.Chapter

	sleepTimer        *time.Timer
	sleepDeadline     time.Time
	sleepAtChapterEnd bool

	marks []Bookmark

	// Injected for tests; default to time.AfterFunc / time.Now.
	newTimer func(d time.Duration, f func()) *time.Timer
	now      func() time.Time
}

func NewSession(transport Transport, notifier Notifier, logger zerolog.Logger) *Session {
	return &Session{
		transport: transport,
		notifier:  notifier,
		logger:    logger,
		status:    StatusIdle,
		speedIdx:  defaultSpeedIndex,
		volume:    0.8,
		repeat:    RepeatOff,
		newTimer:  time.AfterFunc,
		now:       time.Now,
	}
}

// SetBookmarkStore attaches bookmark persistence.
func (s *Session) SetBookmarkStore(store BookmarkStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookmarks = store
}

// SetProgressStore attaches position persistence.
func (s *Session) SetProgressStore(store ProgressStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.progress = store
}

// RestoreBookmarks seeds the in-memory bookmark list, typically from the
// store at startup.
func (s *Session) RestoreBookmarks(marks []Bookmark) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marks = append([]Bookmark(nil), marks...)
}

// Load starts playback of an audio item at the given track. The item is
// copied so it survives a later catalog replacement. Load implies autoplay.
func (s *Session) Load(item catalog.Item, trackIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ContentType != catalog.ContentAudiobook {
		return ErrNotPlayable
	}

	s.savePositionLocked()
	copied := item
	s.item = &copied
	return s.loadTrackLocked(trackIndex, true)
}

func (s *Session) loadTrackLocked(idx int, autoplay bool) error {
	if s.item.MultiTrack {
		if idx < 0 {
			idx = 0
		}
		if idx >= len(s.item.Tracks) {
			idx = len(s.item.Tracks) - 1
		}
	} else {
		idx = 0
	}
	s.trackIndex = idx

	source := s.item.SourceRef
	if s.item.MultiTrack {
		source = s.item.Tracks[idx].SourceRef
	}

	s.position = 0
	s.duration = 0
	s.chapter = nil
	if len(s.item.Chapters) > 0 {
		s.chapter = &s.item.Chapters[0]
	}

	if err := s.transport.Load(source); err != nil {
		s.status = StatusPaused
		s.notifyLocked()
		return &PlaybackError{Op: "load", Err: err}
	}
	s.status = StatusLoaded

	s.transport.SetRate(SpeedOptions[s.speedIdx])
	s.transport.SetVolume(s.volume)
	s.transport.SetMuted(s.muted)

	if autoplay {
		if err := s.transport.Play(); err != nil {
			s.status = StatusPaused
			s.notifyLocked()
			return &PlaybackError{Op: "play", Err: err}
		}
		s.status = StatusPlaying
	}
	s.notifyLocked()
	return nil
}

// Play resumes playback. No-op in idle.
func (s *Session) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playLocked()
}

func (s *Session) playLocked() error {
	if s.status == StatusIdle || s.item == nil {
		return nil
	}
	if err := s.transport.Play(); err != nil {
		s.status = StatusPaused
		s.notifyLocked()
		return &PlaybackError{Op: "play", Err: err}
	}
	s.status = StatusPlaying
	s.notifyLocked()
	return nil
}

// Pause halts playback and saves the position. No-op in idle.
func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pauseLocked()
}

func (s *Session) pauseLocked() error {
	if s.status == StatusIdle || s.item == nil {
		return nil
	}
	if err := s.transport.Pause(); err != nil {
		s.status = StatusPaused
		s.notifyLocked()
		return &PlaybackError{Op: "pause", Err: err}
	}
	s.status = StatusPaused
	s.savePositionLocked()
	s.notifyLocked()
	return nil
}

// Toggle flips between playing and paused.
func (s *Session) Toggle() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusPlaying {
		return s.pauseLocked()
	}
	return s.playLocked()
}

// Seek moves to t, clamped to [0, duration]. Valid from any non-idle
// state; play/pause status is unchanged.
func (s *Session) Seek(t float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekLocked(t)
}

// SeekRelative moves by delta seconds from the current position.
func (s *Session) SeekRelative(delta float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seekLocked(s.position + delta)
}

func (s *Session) seekLocked(t float64) error {
	if s.status == StatusIdle {
		return nil
	}
	s.position = clamp(t, 0, s.duration)
	if err := s.transport.Seek(s.position); err != nil {
		s.status = StatusPaused
		s.notifyLocked()
		return &PlaybackError{Op: "seek", Err: err}
	}
	s.updateChapterLocked()
	s.notifyLocked()
	return nil
}

// CycleSpeed advances to the next speed option, wrapping after the last.
func (s *Session) CycleSpeed() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speedIdx = (s.speedIdx + 1) % len(SpeedOptions)
	speed := SpeedOptions[s.speedIdx]
	s.transport.SetRate(speed)
	s.notifyLocked()
	return speed
}

// SetSpeed snaps to the nearest configured speed option.
func (s *Session) SetSpeed(speed float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	best := 0
	for i, opt := range SpeedOptions {
		if abs(opt-speed) < abs(SpeedOptions[best]-speed) {
			best = i
		}
	}
	s.speedIdx = best
	s.transport.SetRate(SpeedOptions[best])
	s.notifyLocked()
	return SpeedOptions[best]
}

// SetVolume clamps to [0, 1].
func (s *Session) SetVolume(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volume = clamp(v, 0, 1)
	s.transport.SetVolume(s.volume)
	s.notifyLocked()
}

// ToggleMute flips the mute flag and returns the new value.
func (s *Session) ToggleMute() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = !s.muted
	s.transport.SetMuted(s.muted)
	s.notifyLocked()
	return s.muted
}

// ToggleRepeat cycles off → one → all → off.
func (s *Session) ToggleRepeat() RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.repeat {
	case RepeatOff:
		s.repeat = RepeatOne
	case RepeatOne:
		s.repeat = RepeatAll
	default:
		s.repeat = RepeatOff
	}
	s.notifyLocked()
	return s.repeat
}

// SetSleepTimer replaces any pending timer with a one-shot pause after the
// given number of minutes. Zero or negative cancels with no side effect.
func (s *Session) SetSleepTimer(minutes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelSleepLocked()
	if minutes <= 0 {
		return
	}
	d := time.Duration(minutes) * time.Minute
	s.sleepDeadline = s.now().Add(d)
	s.sleepTimer = s.newTimer(d, s.sleepExpired)
	s.notifyLocked()
}

// SetSleepAtChapterEnd pauses playback at the next chapter boundary.
func (s *Session) SetSleepAtChapterEnd() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelSleepLocked()
	s.sleepAtChapterEnd = true
	s.notifyLocked()
}

// CancelSleepTimer cancels any pending sleep action.
func (s *Session) CancelSleepTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelSleepLocked()
	s.notifyLocked()
}

func (s *Session) cancelSleepLocked() {
	if s.sleepTimer != nil {
		s.sleepTimer.Stop()
		s.sleepTimer = nil
	}
	s.sleepDeadline = time.Time{}
	s.sleepAtChapterEnd = false
}

func (s *Session) sleepExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sleepTimer = nil
	s.sleepDeadline = time.Time{}
	if s.status != StatusPlaying {
		return
	}
	s.transport.Pause()
	s.status = StatusPaused
	s.savePositionLocked()
	s.logger.Info().Msg("sleep timer expired")
	s.notifyLocked()
}

// AddBookmark captures the current position. Returns false when nothing
// is loaded.
func (s *Session) AddBookmark() (Bookmark, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.item == nil {
		return Bookmark{}, false
	}

	label := s.item.Title
	if s.chapter != nil {
		label = s.chapter.Title
	} else if s.item.MultiTrack {
		label = s.item.Tracks[s.trackIndex].Name
	}

	bm := Bookmark{
		ID:        uuid.NewString(),
		ItemID:    s.item.ID,
		Time:      s.position,
		Label:     label,
		CreatedAt: s.now(),
	}
	s.marks = append(s.marks, bm)

	if s.bookmarks != nil {
		if err := s.bookmarks.SaveBookmark(bm); err != nil {
			s.logger.Error().Err(err).Msg("failed to persist bookmark")
		}
	}
	return bm, true
}

// RemoveBookmark deletes a bookmark by id.
func (s *Session) RemoveBookmark(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, bm := range s.marks {
		if bm.ID == id {
			s.marks = append(s.marks[:i], s.marks[i+1:]...)
			if s.bookmarks != nil {
				if err := s.bookmarks.DeleteBookmark(id); err != nil {
					s.logger.Error().Err(err).Msg("failed to delete bookmark")
				}
			}
			return true
		}
	}
	return false
}

// Bookmarks returns a copy of the bookmark list.
func (s *Session) Bookmarks() []Bookmark {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Bookmark(nil), s.marks...)
}

// SkipForward jumps to the start of the next chapter.
func (s *Session) SkipForward() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chapters := s.chapterListLocked()
	if s.chapter == nil || len(chapters) == 0 {
		return nil
	}
	if s.chapter.Index < len(chapters)-1 {
		return s.seekLocked(chapters[s.chapter.Index+1].Start)
	}
	return nil
}

// SkipBackward restarts the current chapter, or jumps to the previous one
// when already near the chapter start.
func (s *Session) SkipBackward() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	chapters := s.chapterListLocked()
	if s.chapter == nil || len(chapters) == 0 {
		return nil
	}
	if s.position-s.chapter.Start > 3 {
		return s.seekLocked(s.chapter.Start)
	}
	if s.chapter.Index > 0 {
		return s.seekLocked(chapters[s.chapter.Index-1].Start)
	}
	return s.seekLocked(0)
}

// HandleTimeUpdate consumes a transport position event.
func (s *Session) HandleTimeUpdate(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status == StatusIdle {
		return
	}
	s.setPositionLocked(t)
}

// HandleDurationKnown consumes the transport's duration event.
func (s *Session) HandleDurationKnown(d float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d < 0 {
		d = 0
	}
	s.duration = d
	s.position = clamp(s.position, 0, s.duration)
	s.notifyLocked()
}

// HandleEnded consumes the transport's end-of-source event: advance to the
// next track of a multi-track item, otherwise apply the repeat mode.
func (s *Session) HandleEnded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handleEndedLocked()
}

func (s *Session) handleEndedLocked() {
	if s.item == nil {
		return
	}

	if s.item.MultiTrack && s.trackIndex < len(s.item.Tracks)-1 {
		if err := s.loadTrackLocked(s.trackIndex+1, s.status == StatusPlaying || s.status == StatusLoaded); err != nil {
			s.logger.Error().Err(err).Msg("auto-advance failed")
		}
		return
	}

	switch s.repeat {
	case RepeatOne:
		s.restartLocked()
	case RepeatAll:
		// No cross-item queue: loop the item, wrapping multi-track
		// playback to the first track.
		if s.item.MultiTrack {
			if err := s.loadTrackLocked(0, true); err != nil {
				s.logger.Error().Err(err).Msg("repeat-all restart failed")
			}
			return
		}
		s.restartLocked()
	default:
		s.position = s.duration
		s.transport.Pause()
		s.status = StatusEnded
		s.savePositionLocked()
	}
	s.notifyLocked()
}

// restartLocked rewinds and resumes for the repeat modes. Transport
// failures go through the usual pause-on-error path.
func (s *Session) restartLocked() {
	if err := s.seekLocked(0); err != nil {
		s.logger.Error().Err(err).Msg("repeat restart failed")
		return
	}
	if err := s.playLocked(); err != nil {
		s.logger.Error().Err(err).Msg("repeat restart failed")
	}
}

// RunTicker advances the position cooperatively when the transport pushes
// no timeUpdate events. Every advance goes through the same mutex as
// commands, so a seek can never race a tick.
func (s *Session) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(interval)
		}
	}
}

func (s *Session) tick(interval time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusPlaying || s.duration <= 0 {
		return
	}
	next := s.position + SpeedOptions[s.speedIdx]*interval.Seconds()
	if next >= s.duration {
		s.position = s.duration
		s.handleEndedLocked()
		return
	}
	s.setPositionLocked(next)
}

// setPositionLocked applies a position update and the derived effects:
// chapter projection and the end-of-chapter sleep action.
func (s *Session) setPositionLocked(t float64) {
	s.position = clamp(t, 0, s.duration)
	prev := s.chapter
	s.updateChapterLocked()
	if s.sleepAtChapterEnd && prev != nil && s.chapter != nil && prev.Index != s.chapter.Index {
		s.sleepAtChapterEnd = false
		s.transport.Pause()
		s.status = StatusPaused
		s.savePositionLocked()
		s.logger.Info().Msg("sleep at chapter end")
		s.notifyLocked()
	}
}

// updateChapterLocked selects the chapter containing the position. When no
// interval matches (a boundary instant), the previous chapter is retained
// rather than cleared.
func (s *Session) updateChapterLocked() {
	chapters := s.chapterListLocked()
	for i := range chapters {
		if s.position >= chapters[i].Start && s.position < chapters[i].End {
			s.chapter = &chapters[i]
			return
		}
	}
}

func (s *Session) chapterListLocked() []catalog.Chapter {
	if s.item == nil {
		return nil
	}
	return s.item.Chapters
}

// Snapshot returns the current state for the facade.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() State {
	st := State{
		Status:            s.status,
		TrackIndex:        s.trackIndex,
		Position:          s.position,
		Duration:          s.duration,
		Speed:             SpeedOptions[s.speedIdx],
		Volume:            s.volume,
		Muted:             s.muted,
		Repeat:            s.repeat,
		Chapter:           s.chapter,
		SleepAtChapterEnd: s.sleepAtChapterEnd,
	}
	if s.item != nil {
		st.ItemID = s.item.ID
		st.ItemTitle = s.item.Title
		if s.item.MultiTrack {
			st.TrackCount = len(s.item.Tracks)
			st.TrackName = s.item.Tracks[s.trackIndex].Name
		}
	}
	if !s.sleepDeadline.IsZero() {
		if left := s.sleepDeadline.Sub(s.now()).Minutes(); left > 0 {
			st.SleepMinutesLeft = left
		}
	}
	return st
}

func (s *Session) savePositionLocked() {
	if s.progress == nil || s.item == nil {
		return
	}
	if err := s.progress.SavePosition(s.item.ID, s.position, s.duration); err != nil {
		s.logger.Error().Err(err).Msg("failed to persist position")
	}
}

func (s *Session) notifyLocked() {
	if s.notifier != nil {
		s.notifier.PlaybackChanged(s.snapshotLocked())
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
