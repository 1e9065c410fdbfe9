package playback

import (
	"context"
	"math"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	// driftReseekThreshold is the position discrepancy that forces a re-seek
	// on a time tick.
	driftReseekThreshold = 20 * time.Second
	// A position jump beyond these bounds between two ticks is treated as a
	// user-initiated seek.
	userSeekBackward = 500 * time.Millisecond
	userSeekForward  = 3 * time.Second
	// pauseDebounce pauses the audio when no time tick arrives in time.
	pauseDebounce = 1500 * time.Millisecond
	resumeDelay   = 80 * time.Millisecond
	// prepareTimeout bounds player preparation when a fallback source exists.
	prepareTimeout = 15 * time.Second

	minSpeed = 0.25
	maxSpeed = 2.5

	proxyPathMarker = "/audio-proxy/"
)

// Fetch downloads a proxy-served audio URL to a local temporary file and
// returns its path. The caller owns the file.
type Fetch func(ctx context.Context, url string) (string, error)

// Config wires a Synchronizer.
type Config struct {
	Factory  Factory
	Host     Host
	Settings Settings
	// Fetch retrieves proxy-served sources to a local file before playback.
	// When nil, proxy URLs are played directly.
	Fetch Fetch
	// OnStateChange fires on the dispatch goroutine when the
	// active-translation marker flips.
	OnStateChange func(active bool)
	// OnError fires when no candidate source could be played.
	OnError func()
	Logger  *zap.Logger
}

// Synchronizer owns at most one secondary audio player and keeps it aligned
// with the host player. All player mutations run on a single dispatch
// goroutine; public methods are safe to call from any goroutine.
type Synchronizer struct {
	factory  Factory
	host     Host
	settings Settings
	fetch    Fetch
	onState  func(active bool)
	onError  func()
	logger   *zap.Logger

	dispatch *dispatcher

	// Everything below is touched on the dispatch goroutine only.
	player        Player
	videoID       string
	paused        bool
	lastVideoTime time.Duration
	tempFile      string
	// generation invalidates async completions (fetches, prepares) that
	// outlive the player they were started for.
	generation  uint64
	pauseTimer  *time.Timer
	resumeTimer *time.Timer

	active   atomic.Bool
	starting atomic.Bool

	// Intervals live on the struct so tests can shorten them.
	pauseAfter  time.Duration
	resumeAfter time.Duration
	prepareIn   time.Duration
}

// New creates a Synchronizer and starts its dispatch goroutine.
func New(cfg Config) *Synchronizer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synchronizer{
		factory:       cfg.Factory,
		host:          cfg.Host,
		settings:      cfg.Settings,
		fetch:         cfg.Fetch,
		onState:       cfg.OnStateChange,
		onError:       cfg.OnError,
		logger:        logger,
		dispatch:      newDispatcher(),
		lastVideoTime: -1,
		pauseAfter:    pauseDebounce,
		resumeAfter:   resumeDelay,
		prepareIn:     prepareTimeout,
	}
}

// Close stops the dispatch goroutine. Pending stops are drained first.
func (s *Synchronizer) Close() {
	s.Stop()
	s.dispatch.close()
}

// Start begins playback of the first playable source in candidates for
// videoID, stopping any existing player first. Candidates are tried in
// order; proxy-served ones are fetched to a temp file and fall through to
// the next candidate on failure.
func (s *Synchronizer) Start(videoID string, candidates []string) {
	s.starting.Store(true)
	s.dispatch.do(func() {
		s.stopLocked()
		s.startLocked(videoID, candidates)
	})
}

// Stop releases the player, cancels timers, deletes the temp file and
// clears the active-translation marker.
func (s *Synchronizer) Stop() {
	s.starting.Store(false)
	s.dispatch.sync(s.stopLocked)
}

// Active reports whether a translation player currently exists.
func (s *Synchronizer) Active() bool { return s.active.Load() }

// ActiveVideoID returns the video the current player belongs to, or "".
func (s *Synchronizer) ActiveVideoID() string {
	var id string
	s.dispatch.sync(func() { id = s.videoID })
	return id
}

// MarkStarting flags that a translation is about to start, so original-audio
// ducking kicks in before the secondary player exists.
func (s *Synchronizer) MarkStarting(on bool) { s.starting.Store(on) }

// Starting reports the about-to-start flag.
func (s *Synchronizer) Starting() bool { return s.starting.Load() }

// SetVideoTime is the host time tick. It drives drift correction, user-seek
// detection, speed re-apply, delayed resume while paused, and the debounced
// pause when ticks stop arriving.
func (s *Synchronizer) SetVideoTime(t time.Duration) {
	s.dispatch.do(func() {
		if s.paused {
			s.scheduleResume(t)
		}
		s.reschedulePauseCheck()

		p := s.player
		if p == nil || !p.IsPlaying() {
			return
		}
		s.applySpeed(p)
		pos, err := p.Position()
		if err != nil {
			return
		}
		prev := s.lastVideoTime
		s.lastVideoTime = t

		drift := pos - t
		if drift < 0 {
			drift = -drift
		}
		userSeeked := prev >= 0 && (t < prev-userSeekBackward || t > prev+userSeekForward)
		if userSeeked || drift > driftReseekThreshold {
			if err := p.SeekTo(t); err != nil {
				s.logger.Debug("re-seek failed", zap.Error(err))
				return
			}
			s.applySpeed(p)
		}
	})
}

// OnPlaying is the host "playback started" event; it resumes a paused
// player at the host's current time.
func (s *Synchronizer) OnPlaying() {
	s.dispatch.do(func() {
		if !s.host.Playing() {
			return
		}
		s.resumeLocked(-1)
	})
}

// OnNotPlaying is the host "playback stopped" event.
func (s *Synchronizer) OnNotPlaying() {
	s.dispatch.do(func() {
		s.cancelPauseTimer()
		s.pauseLocked()
	})
}

// OnSpeedChanged re-applies the host speed to the player.
func (s *Synchronizer) OnSpeedChanged() {
	s.dispatch.do(func() {
		if !s.host.Playing() {
			return
		}
		if p := s.player; p != nil {
			s.applySpeed(p)
		}
	})
}

// ApplyTranslationVolume pushes the current translation volume setting to
// the live player, if any.
func (s *Synchronizer) ApplyTranslationVolume() {
	s.dispatch.do(func() {
		if p := s.player; p != nil {
			if err := p.SetVolume(s.translationVolume()); err != nil {
				s.logger.Debug("set volume failed", zap.Error(err))
			}
		}
	})
}

// DuckFactor is the host volume interception point: it scales the host's
// intended volume by the original-audio percentage while a translation is
// active or starting. Safe to call from any goroutine.
func (s *Synchronizer) DuckFactor(volume float64) float64 {
	if !s.active.Load() && !s.starting.Load() {
		return volume
	}
	result := volume * float64(s.settings.OriginalVolumePercent()) / 100
	if math.IsNaN(result) || result < 0 {
		return 0
	}
	return math.Min(result, 1)
}

// RefreshOriginalVolume nudges the host volume so the host re-applies it
// through DuckFactor immediately, without reloading the video.
func (s *Synchronizer) RefreshOriginalVolume() {
	current := s.host.Volume()
	if math.IsNaN(current) {
		current = 1
	}
	current = math.Min(math.Max(current, 0), 1)
	nudged := math.Min(1, current+0.01)
	if current >= 0.99 {
		nudged = math.Max(0, current-0.01)
	}
	s.host.SetVolume(nudged)
	s.host.SetVolume(current)
}

func (s *Synchronizer) startLocked(videoID string, candidates []string) {
	if len(candidates) == 0 {
		s.failLocked()
		return
	}
	next, rest := candidates[0], candidates[1:]

	if strings.Contains(next, proxyPathMarker) && s.fetch != nil {
		gen := s.generation
		go func() {
			path, err := s.fetch(context.Background(), next)
			s.dispatch.do(func() {
				if s.generation != gen {
					if path != "" {
						s.removeFile(path)
					}
					return
				}
				if err != nil {
					s.logger.Warn("proxy audio fetch failed",
						zap.String("videoId", videoID), zap.Error(err))
					s.startLocked(videoID, rest)
					return
				}
				player, err := s.factory.FromFile(path)
				if err != nil {
					s.logger.Warn("player creation failed", zap.Error(err))
					s.removeFile(path)
					s.startLocked(videoID, rest)
					return
				}
				s.tempFile = path
				s.attachLocked(videoID, player, rest)
			})
		}()
		return
	}

	player, err := s.factory.FromURL(next)
	if err != nil {
		s.logger.Warn("player creation failed",
			zap.String("url", next), zap.Error(err))
		s.startLocked(videoID, rest)
		return
	}
	s.attachLocked(videoID, player, rest)
}

// attachLocked installs player as the current one and prepares it off the
// dispatch goroutine. Preparation is bounded by prepareTimeout when more
// candidates remain to fall back to.
func (s *Synchronizer) attachLocked(videoID string, player Player, rest []string) {
	s.player = player
	s.videoID = videoID
	if !s.active.Swap(true) {
		s.notifyState(true)
	}

	gen := s.generation
	ctx := context.Background()
	cancel := func() {}
	if len(rest) > 0 {
		ctx, cancel = context.WithTimeout(ctx, s.prepareIn)
	}
	go func() {
		defer cancel()
		err := player.Prepare(ctx)
		s.dispatch.do(func() {
			if s.generation != gen || s.player != player {
				return
			}
			if err != nil {
				s.logger.Warn("player prepare failed",
					zap.String("videoId", videoID), zap.Error(err))
				s.stopLocked()
				s.startLocked(videoID, rest)
				return
			}
			s.onPreparedLocked(player)
		})
	}()
}

func (s *Synchronizer) onPreparedLocked(p Player) {
	s.starting.Store(false)
	if err := p.SetVolume(s.translationVolume()); err != nil {
		s.logger.Debug("set volume failed", zap.Error(err))
	}
	if t := s.host.VideoTime(); t > 0 {
		if err := p.SeekTo(t); err != nil {
			s.logger.Debug("initial seek failed", zap.Error(err))
		}
	}
	if s.host.Playing() {
		s.applySpeed(p)
		if err := p.Start(); err != nil {
			s.logger.Warn("player start failed", zap.Error(err))
		}
		return
	}
	// Playback begins on the next host "playing" event.
	s.paused = true
}

func (s *Synchronizer) stopLocked() {
	s.cancelPauseTimer()
	s.cancelResumeTimer()
	if s.tempFile != "" {
		s.removeFile(s.tempFile)
		s.tempFile = ""
	}
	if p := s.player; p != nil {
		if p.IsPlaying() {
			if err := p.Stop(); err != nil {
				s.logger.Debug("player stop failed", zap.Error(err))
			}
		}
		p.Release()
		s.player = nil
	}
	s.generation++
	s.videoID = ""
	s.paused = false
	s.lastVideoTime = -1
	if s.active.Swap(false) {
		s.notifyState(false)
	}
}

func (s *Synchronizer) failLocked() {
	s.starting.Store(false)
	if s.onError != nil {
		s.onError()
	}
}

func (s *Synchronizer) pauseLocked() {
	p := s.player
	if p == nil || !p.IsPlaying() {
		return
	}
	if err := p.Pause(); err != nil {
		s.logger.Debug("pause failed", zap.Error(err))
		return
	}
	s.paused = true
}

func (s *Synchronizer) resumeLocked(t time.Duration) {
	if !s.host.Playing() {
		return
	}
	p := s.player
	if p == nil || !s.paused {
		return
	}
	pos := t
	if pos < 0 {
		pos = s.host.VideoTime()
	}
	if err := p.SeekTo(pos); err != nil {
		s.logger.Debug("resume seek failed", zap.Error(err))
	}
	s.applySpeed(p)
	if err := p.Start(); err != nil {
		s.logger.Warn("resume failed", zap.Error(err))
		return
	}
	s.paused = false
}

func (s *Synchronizer) applySpeed(p Player) {
	speed := s.host.PlaybackSpeed()
	if speed <= 0 || math.IsNaN(speed) {
		speed = 1.0
	}
	if speed < minSpeed {
		speed = minSpeed
	}
	if speed > maxSpeed {
		speed = maxSpeed
	}
	if err := p.SetSpeed(speed); err != nil {
		s.logger.Debug("set speed failed", zap.Error(err))
	}
}

func (s *Synchronizer) scheduleResume(t time.Duration) {
	s.cancelResumeTimer()
	s.resumeTimer = time.AfterFunc(s.resumeAfter, func() {
		s.dispatch.do(func() { s.resumeLocked(t) })
	})
}

func (s *Synchronizer) reschedulePauseCheck() {
	s.cancelPauseTimer()
	s.pauseTimer = time.AfterFunc(s.pauseAfter, func() {
		s.dispatch.do(func() {
			if !s.paused {
				s.pauseLocked()
			}
		})
	})
}

func (s *Synchronizer) cancelPauseTimer() {
	if s.pauseTimer != nil {
		s.pauseTimer.Stop()
		s.pauseTimer = nil
	}
}

func (s *Synchronizer) cancelResumeTimer() {
	if s.resumeTimer != nil {
		s.resumeTimer.Stop()
		s.resumeTimer = nil
	}
}

func (s *Synchronizer) translationVolume() float64 {
	return float64(s.settings.TranslationVolumePercent()) / 100
}

func (s *Synchronizer) notifyState(active bool) {
	if s.onState != nil {
		s.onState(active)
	}
}

func (s *Synchronizer) removeFile(path string) {
	if err := os.Remove(path); err != nil {
		s.logger.Debug("temp file removal failed",
			zap.String("path", path), zap.Error(err))
	}
}
