package client

import (
	"context"
	"time"
)

// Player is one secondary audio player instance, implemented by the host
// platform's media stack. Errors from illegal player states must be
// returned, not panicked; the client logs and contains them.
type Player interface {
	// Prepare blocks until the player can start, or ctx expires.
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

// Factory creates players from a remote URL or a local file. Implementations
// should configure speech-oriented audio attributes on the players they
// return.
type Factory interface {
	FromURL(url string) (Player, error)
	FromFile(path string) (Player, error)
}

// Host exposes the host application's primary player state the client reads.
type Host interface {
	// CurrentVideoID identifies the video the user is watching right now;
	// polling aborts when it changes.
	CurrentVideoID() string
	VideoTime() time.Duration
	PlaybackSpeed() float64
	Playing() bool
	// Volume and SetVolume let the client nudge the host volume so ducking
	// takes effect without reloading the video.
	Volume() float64
	SetVolume(volume float64)
}

// Notifier receives user-visible events; the host renders them (the
// original UI shows toasts).
type Notifier interface {
	TranslationStarted()
	TranslationStopped()
	TranslationWaiting(estimate time.Duration)
	TranslationFailed()
	TranslationNotReady()
	LiveVoicesUnavailable()
}
