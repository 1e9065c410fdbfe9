// Package client is the public voice-over-translation facade. It owns the
// signed worker API client, the translation engine and the playback
// synchronizer, and exposes the operations the embedding application calls
// at playback lifecycle points.
package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/famomatic/vot/internal/downloader"
	"github.com/famomatic/vot/internal/orchestrator"
	"github.com/famomatic/vot/internal/playback"
	"github.com/famomatic/vot/internal/worker"
)

// VideoMeta describes the video the host is currently playing.
type VideoMeta struct {
	VideoID  string
	Title    string
	Duration time.Duration
	IsLive   bool
}

// Client is the high-level translation client. All methods are safe for
// concurrent use; errors never propagate into the host beyond the sentinel
// values this package defines.
type Client struct {
	logger   *zap.Logger
	settings Settings
	notifier Notifier
	api      *worker.Client
	engine   *orchestrator.Engine
	sync     *playback.Synchronizer

	mu        sync.Mutex
	pending   VideoMeta
	cancelRun context.CancelFunc

	stateMu       sync.Mutex
	onStateChange func(active bool)
}

// New creates a translation client.
func New(config Config) (*Client, error) {
	if config.PlayerFactory == nil || config.Host == nil || config.Notifier == nil {
		return nil, errors.New("client: PlayerFactory, Host and Notifier are required")
	}
	if config.HTTPClient == nil {
		config.HTTPClient = defaultHTTPClient(config.ProxyURL)
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	settings := config.Settings
	if settings == nil {
		settings = NewMemorySettings()
	}

	c := &Client{
		logger:   logger,
		settings: settings,
		notifier: config.Notifier,
	}
	c.api = worker.New(worker.Config{
		HTTPClient: config.HTTPClient,
		Host:       config.WorkerHost,
		Logger:     logger,
	})
	fetcher := downloader.New(downloader.Config{
		HTTPClient: config.HTTPClient,
		Dir:        config.CacheDir,
		Logger:     logger,
	})
	c.sync = playback.New(playback.Config{
		Factory:       playerFactory{config.PlayerFactory},
		Host:          config.Host,
		Settings:      settings,
		Fetch:         fetcher.FetchToTemp,
		OnStateChange: c.notifyStateChange,
		OnError:       config.Notifier.TranslationFailed,
		Logger:        logger,
	})
	c.engine = orchestrator.New(orchestrator.Config{
		API:      c.api,
		Settings: settings,
		Host:     config.Host,
		Notifier: config.Notifier,
		Deliver:  c.deliver,
		Logger:   logger,
	})
	return c, nil
}

// Close stops playback and releases the client's goroutines.
func (c *Client) Close() {
	c.stopPlayback()
	c.sync.Close()
}

// NewVideoStarted records the video the host began playing and stops any
// translation belonging to a different video.
func (c *Client) NewVideoStarted(meta VideoMeta) {
	if !c.settings.Enabled() {
		return
	}
	c.mu.Lock()
	changed := meta.VideoID != c.pending.VideoID
	c.pending = meta
	c.mu.Unlock()
	if changed {
		c.sync.MarkStarting(false)
	}
	if meta.VideoID != c.sync.ActiveVideoID() {
		c.stopPlayback()
	}
}

// ToggleTranslation starts translation for the current video, or stops the
// active one. Pre-flight violations (live content, over-long video, same
// source and target language) are returned as sentinel errors and no
// request is made.
func (c *Client) ToggleTranslation() error {
	if !c.settings.Enabled() {
		return nil
	}
	if c.sync.Active() {
		c.sync.MarkStarting(false)
		c.stopPlayback()
		c.notifier.TranslationStopped()
		c.sync.RefreshOriginalVolume()
		return nil
	}

	c.mu.Lock()
	meta := c.pending
	c.mu.Unlock()
	if meta.VideoID == "" {
		return ErrNoVideo
	}
	req := c.requestFor(meta)
	if err := orchestrator.Preflight(req); err != nil {
		return mapError(err)
	}
	c.notifier.TranslationStarted()
	c.sync.MarkStarting(true)
	c.sync.RefreshOriginalVolume()
	c.startRun(req)
	return nil
}

// Stop cancels any in-flight translation run and stops playback. Unlike
// ToggleTranslation it emits no notification; use it when the host tears a
// player down.
func (c *Client) Stop() {
	c.sync.MarkStarting(false)
	c.stopPlayback()
}

// RestartTranslationIfActive stops and re-requests the active translation,
// for example after the audio-proxy setting changed. No-op when inactive.
func (c *Client) RestartTranslationIfActive() {
	if !c.settings.Enabled() || !c.sync.Active() {
		return
	}
	videoID := c.sync.ActiveVideoID()
	if videoID == "" {
		return
	}
	c.mu.Lock()
	meta := c.pending
	c.mu.Unlock()
	meta.VideoID = videoID
	req := c.requestFor(meta)
	if orchestrator.Preflight(req) != nil {
		return
	}
	c.stopPlayback()
	c.startRun(req)
}

// IsTranslationActive reports whether a translation player exists.
func (c *Client) IsTranslationActive() bool { return c.sync.Active() }

// SetVideoTime is the host time tick driving drift correction, user-seek
// detection and pause/resume tracking.
func (c *Client) SetVideoTime(t time.Duration) {
	if !c.settings.Enabled() {
		return
	}
	c.sync.SetVideoTime(t)
}

// OnPlaying is the host "playback started" event.
func (c *Client) OnPlaying() { c.sync.OnPlaying() }

// OnNotPlaying is the host "playback stopped" event.
func (c *Client) OnNotPlaying() { c.sync.OnNotPlaying() }

// OnSpeedChanged re-applies the host playback speed to the translation
// player.
func (c *Client) OnSpeedChanged() { c.sync.OnSpeedChanged() }

// ApplyTranslationVolume pushes the translation volume setting to the live
// player, for immediate effect when the user moves the slider.
func (c *Client) ApplyTranslationVolume() { c.sync.ApplyTranslationVolume() }

// DuckFactor is the host volume interception point: the host passes its
// intended volume through here before applying it, and receives the ducked
// value while a translation is active or starting.
func (c *Client) DuckFactor(volume float64) float64 { return c.sync.DuckFactor(volume) }

// RefreshOriginalVolume forces the host to re-apply its volume so a changed
// ducking percentage takes effect immediately. No-op unless a translation is
// active or starting.
func (c *Client) RefreshOriginalVolume() {
	if !c.settings.Enabled() {
		return
	}
	if !c.sync.Active() && !c.sync.Starting() {
		return
	}
	c.sync.RefreshOriginalVolume()
}

// OnTranslationStateChange registers fn to run whenever the
// active-translation marker flips. Only one callback is kept.
func (c *Client) OnTranslationStateChange(fn func(active bool)) {
	c.stateMu.Lock()
	c.onStateChange = fn
	c.stateMu.Unlock()
}

// FormatWait renders a wait estimate for display: seconds below a minute,
// rounded minutes above.
func FormatWait(d time.Duration) string { return orchestrator.FormatWait(d) }

func (c *Client) requestFor(meta VideoMeta) orchestrator.Request {
	return orchestrator.Request{
		VideoID:    meta.VideoID,
		VideoURL:   "https://youtu.be/" + meta.VideoID,
		VideoTitle: meta.Title,
		Duration:   meta.Duration,
		SourceLang: c.settings.SourceLanguage(),
		TargetLang: c.settings.TargetLanguage(),
		IsLive:     meta.IsLive,
	}
}

// startRun launches the translation state machine on a worker goroutine,
// cancelling any previous run first.
func (c *Client) startRun(req orchestrator.Request) {
	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	prev := c.cancelRun
	c.cancelRun = cancel
	c.mu.Unlock()
	if prev != nil {
		prev()
	}
	go func() {
		defer cancel()
		err := c.engine.Translate(ctx, req)
		if err != nil && !errors.Is(err, orchestrator.ErrAlreadyTranslating) {
			c.logger.Warn("translation run failed",
				zap.String("videoId", req.VideoID), zap.Error(err))
		}
	}()
}

// deliver receives the resolved audio source from the engine and hands the
// candidate list to the synchronizer, proxied URL first.
func (c *Client) deliver(videoID string, src orchestrator.Source) {
	candidates := []string{src.URL}
	if src.Fallback != "" {
		candidates = append(candidates, src.Fallback)
	}
	c.sync.Start(videoID, candidates)
}

func (c *Client) stopPlayback() {
	c.mu.Lock()
	cancel := c.cancelRun
	c.cancelRun = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	c.sync.Stop()
}

func (c *Client) notifyStateChange(active bool) {
	c.stateMu.Lock()
	fn := c.onStateChange
	c.stateMu.Unlock()
	if fn != nil {
		fn(active)
	}
}

// playerFactory adapts the public Factory to the synchronizer's player
// types.
type playerFactory struct{ f Factory }

func (a playerFactory) FromURL(url string) (playback.Player, error) { return a.f.FromURL(url) }

func (a playerFactory) FromFile(path string) (playback.Player, error) { return a.f.FromFile(path) }
