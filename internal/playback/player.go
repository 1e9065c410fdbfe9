// Package playback keeps a secondary translated-audio player aligned with
// the host video player's timeline, speed and pause state.
package playback

import (
	"context"
	"time"
)

// Player is one secondary audio player instance. Implementations wrap the
// host platform's media player; errors from illegal player states are
// returned, never panicked, and the synchronizer logs and contains them.
type Player interface {
	// Prepare blocks until the player is ready to start, or ctx expires.
	Prepare(ctx context.Context) error
	Start() error
	Pause() error
	Stop() error
	Release()
	SeekTo(pos time.Duration) error
	Position() (time.Duration, error)
	IsPlaying() bool
	// SetVolume takes a linear volume in [0, 1].
	SetVolume(volume float64) error
	SetSpeed(speed float64) error
}

// Factory creates players. Speech-oriented audio attributes are the
// factory's concern, not the synchronizer's.
type Factory interface {
	FromURL(url string) (Player, error)
	FromFile(path string) (Player, error)
}

// Host exposes the primary video player state the synchronizer tracks.
type Host interface {
	VideoTime() time.Duration
	PlaybackSpeed() float64
	Playing() bool
	// Volume and SetVolume drive the nudge fallback that forces the host to
	// re-apply its own volume through the ducking interception point.
	Volume() float64
	SetVolume(volume float64)
}

// Settings supplies the user volume preferences, both in percent.
type Settings interface {
	TranslationVolumePercent() int
	OriginalVolumePercent() int
}
