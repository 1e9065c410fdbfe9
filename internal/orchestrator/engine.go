// Package orchestrator drives the request/poll/resolve state machine that
// turns a "start translation" intent into a playable audio source.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/famomatic/vot/internal/worker"
)

const (
	maxPollRetries = 30

	// defaultPollWait is used when the worker does not suggest a remaining
	// time; audio retries poll with the longer default.
	defaultPollWait       = 5 * time.Second
	defaultAudioRetryWait = 10 * time.Second
	audioRetryGrace       = 3 * time.Second
	maxTranslatableLength = 4 * time.Hour
)

// API is the worker surface the engine drives.
type API interface {
	RequestTranslation(ctx context.Context, videoURL string, duration float64,
		sourceLang, targetLang, videoTitle string, useLiveVoices bool) (*worker.TranslationResult, error)
	SendFailedAudio(ctx context.Context, videoURL string)
	SendEmptyAudio(ctx context.Context, videoURL, translationID string)
	ToProxyAudioURL(originalURL string) string
}

// Settings supplies the user preferences the engine consults. Disabling
// live voices after a failure must persist for the retry.
type Settings interface {
	UseLiveVoices() bool
	SetUseLiveVoices(enabled bool)
	AudioProxyEnabled() bool
}

// Host exposes the one piece of player state the engine polls: which video
// the user is currently watching.
type Host interface {
	CurrentVideoID() string
}

// Notifier receives user-visible progress events.
type Notifier interface {
	TranslationWaiting(estimate time.Duration)
	TranslationFailed()
	TranslationNotReady()
	LiveVoicesUnavailable()
}

// Source is a playable audio source. Fallback, when set, is the direct URL
// to retry if the proxied one cannot be played.
type Source struct {
	URL      string
	Fallback string
}

// Request describes one video to translate.
type Request struct {
	VideoID    string
	VideoURL   string
	VideoTitle string
	Duration   time.Duration
	SourceLang string
	TargetLang string
	IsLive     bool
}

// Config wires an Engine.
type Config struct {
	API      API
	Settings Settings
	Host     Host
	Notifier Notifier
	// Deliver receives the resolved audio source for a video.
	Deliver func(videoID string, src Source)
	Logger  *zap.Logger
}

// Engine runs at most one translation state machine per process.
type Engine struct {
	api      API
	settings Settings
	host     Host
	notifier Notifier
	deliver  func(videoID string, src Source)
	logger   *zap.Logger

	// sleep is replaced in tests.
	sleep func(ctx context.Context, d time.Duration) error

	inFlight atomic.Bool
}

// New creates an Engine.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		api:      cfg.API,
		settings: cfg.Settings,
		host:     cfg.Host,
		notifier: cfg.Notifier,
		deliver:  cfg.Deliver,
		logger:   logger,
		sleep:    sleepContext,
	}
}

// Translate runs the state machine for req until a terminal outcome: a
// source delivered, a user-visible error, or cancellation. Re-entrant calls
// are rejected with ErrAlreadyTranslating while a run is in flight.
// Cancelling ctx aborts polling immediately.
func (e *Engine) Translate(ctx context.Context, req Request) error {
	if err := Preflight(req); err != nil {
		return err
	}
	if !e.inFlight.CompareAndSwap(false, true) {
		return ErrAlreadyTranslating
	}
	defer e.inFlight.Store(false)

	e.run(ctx, req, true)
	return nil
}

// Preflight rejects requests that can never translate, before any network
// round trip.
func Preflight(req Request) error {
	if req.IsLive {
		return ErrLiveNotSupported
	}
	if req.Duration > maxTranslatableLength {
		return ErrVideoTooLong
	}
	src := req.SourceLang
	if src != "" && !strings.EqualFold(src, "auto") && src == req.TargetLang {
		return ErrSameLanguage
	}
	return nil
}

func (e *Engine) run(ctx context.Context, req Request, allowAudioRetry bool) {
	res := e.request(ctx, req)
	e.dispatch(ctx, req, res, allowAudioRetry)
}

func (e *Engine) dispatch(ctx context.Context, req Request, res *worker.TranslationResult, allowAudioRetry bool) {
	if ctx.Err() != nil {
		return
	}
	switch {
	case res == nil:
		if e.downgradeLiveVoices() {
			e.run(ctx, req, allowAudioRetry)
			return
		}
		e.notifier.TranslationFailed()

	case res.Status == worker.StatusFinished || res.Status == worker.StatusPartContent:
		e.finish(req.VideoID, res)

	case res.Status == worker.StatusWaiting || res.Status == worker.StatusLongWaiting:
		wait := remainingOrDefault(res.RemainingTime, defaultPollWait)
		e.notifier.TranslationWaiting(wait)
		e.poll(ctx, req, wait)

	case res.Status == worker.StatusAudioRequested:
		if allowAudioRetry {
			e.handleAudioRequested(ctx, req, res.TranslationID)
			return
		}
		e.notifier.TranslationFailed()

	default: // StatusFailed and anything unrecognized
		if e.downgradeLiveVoices() {
			e.run(ctx, req, allowAudioRetry)
			return
		}
		e.notifier.TranslationFailed()
	}
}

// poll re-issues the request until the translation resolves, the retry
// budget runs out, the user navigates away, or ctx is cancelled.
func (e *Engine) poll(ctx context.Context, req Request, wait time.Duration) {
	for attempt := 0; attempt < maxPollRetries; attempt++ {
		if err := e.sleep(ctx, wait); err != nil {
			return
		}
		if e.host.CurrentVideoID() != req.VideoID {
			// User navigated away; abort silently.
			return
		}

		res := e.request(ctx, req)
		if res == nil {
			continue
		}
		switch res.Status {
		case worker.StatusFinished, worker.StatusPartContent:
			e.finish(req.VideoID, res)
			return
		case worker.StatusFailed:
			if e.downgradeLiveVoices() {
				e.run(ctx, req, true)
				return
			}
			e.notifier.TranslationFailed()
			return
		case worker.StatusWaiting, worker.StatusLongWaiting:
			wait = remainingOrDefault(res.RemainingTime, defaultPollWait)
			e.notifier.TranslationWaiting(wait)
		default:
			wait = remainingOrDefault(res.RemainingTime, defaultPollWait)
		}
	}
	e.notifier.TranslationNotReady()
}

// handleAudioRequested reports the previous audio as failed and empty, waits
// out the worker's grace period and re-requests. A second consecutive
// audio-requested status is treated as a failure.
func (e *Engine) handleAudioRequested(ctx context.Context, req Request, translationID string) {
	e.api.SendFailedAudio(ctx, req.VideoURL)
	e.api.SendEmptyAudio(ctx, req.VideoURL, translationID)
	if err := e.sleep(ctx, audioRetryGrace); err != nil {
		return
	}

	res := e.request(ctx, req)
	if res != nil && (res.Status == worker.StatusWaiting || res.Status == worker.StatusLongWaiting) {
		wait := remainingOrDefault(res.RemainingTime, defaultAudioRetryWait)
		e.notifier.TranslationWaiting(wait)
		e.poll(ctx, req, wait)
		return
	}
	e.dispatch(ctx, req, res, false)
}

// finish hands a resolved source to the sink, rewriting to the audio proxy
// when enabled and keeping the direct URL as a fallback.
func (e *Engine) finish(videoID string, res *worker.TranslationResult) {
	if res.AudioURL == "" {
		e.notifier.TranslationFailed()
		return
	}
	src := Source{URL: res.AudioURL}
	if e.settings.AudioProxyEnabled() {
		src.URL = e.api.ToProxyAudioURL(res.AudioURL)
		src.Fallback = res.AudioURL
	}
	e.deliver(videoID, src)
}

// downgradeLiveVoices disables the live-voice preference after a failure so
// the retry uses standard voices. Returns false when already disabled.
func (e *Engine) downgradeLiveVoices() bool {
	if !e.settings.UseLiveVoices() {
		return false
	}
	e.settings.SetUseLiveVoices(false)
	e.notifier.LiveVoicesUnavailable()
	return true
}

func (e *Engine) request(ctx context.Context, req Request) *worker.TranslationResult {
	res, err := e.api.RequestTranslation(ctx, req.VideoURL, req.Duration.Seconds(),
		req.SourceLang, req.TargetLang, req.VideoTitle, e.settings.UseLiveVoices())
	if err != nil {
		e.logger.Warn("translation request failed",
			zap.String("videoId", req.VideoID), zap.Error(err))
		return nil
	}
	return res
}

func remainingOrDefault(remainingSeconds int, fallback time.Duration) time.Duration {
	if remainingSeconds > 0 {
		return time.Duration(remainingSeconds) * time.Second
	}
	return fallback
}

// FormatWait renders a wait estimate for user display: seconds below a
// minute (at least one), rounded minutes above.
func FormatWait(d time.Duration) string {
	seconds := int(d / time.Second)
	if seconds < 60 {
		if seconds < 1 {
			seconds = 1
		}
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm", (seconds+30)/60)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
