package player

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Transport is the external decode/output engine. The session issues
// commands through it and consumes its events via the Handle* methods;
// it never constructs one itself, so tests substitute a fake.
type Transport interface {
	Load(sourceRef string) error
	Play() error
	Pause() error
	Seek(t float64) error
	SetRate(r float64) error
	SetVolume(v float64) error
	SetMuted(m bool) error
}

// Notifier receives one-way state-change notifications, the integration
// point for platform media-session surfaces.
type Notifier interface {
	PlaybackChanged(state State)
}

// PlaybackError wraps a transport failure. It forces the session into
// paused and is never retried automatically.
type PlaybackError struct {
	Op  string
	Err error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("player: %s failed: %v", e.Op, e.Err)
}

func (e *PlaybackError) Unwrap() error { return e.Err }

// NopTransport logs commands and produces no events. It stands in when no
// real decode engine is attached to the process.
type NopTransport struct {
	Logger zerolog.Logger
}

func (t NopTransport) Load(sourceRef string) error {
	t.Logger.Debug().Str("source", sourceRef).Msg("transport load")
	return nil
}

func (t NopTransport) Play() error               { t.Logger.Debug().Msg("transport play"); return nil }
func (t NopTransport) Pause() error              { t.Logger.Debug().Msg("transport pause"); return nil }
func (t NopTransport) Seek(pos float64) error    { return nil }
func (t NopTransport) SetRate(r float64) error   { return nil }
func (t NopTransport) SetVolume(v float64) error { return nil }
func (t NopTransport) SetMuted(m bool) error     { return nil }

// LogNotifier reports playback transitions to the process log.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) PlaybackChanged(state State) {
	n.Logger.Debug().
		Str("status", string(state.Status)).
		Str("item", state.ItemID).
		Int("track", state.TrackIndex).
		Msg("playback state")
}
