// Command votctl requests a voice-over translation for a single video and
// either prints the resolved audio URL or downloads it to a file.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/famomatic/vot/internal/cli"
	"github.com/famomatic/vot/internal/downloader"
	"github.com/famomatic/vot/internal/orchestrator"
	"github.com/famomatic/vot/internal/worker"
)

func main() {
	opts := cli.ParseFlags()
	if len(opts.Inputs) != 1 {
		fmt.Fprintln(os.Stderr, "votctl: exactly one URL or video id is required")
		os.Exit(2)
	}

	logger := newLogger(opts.Verbose)
	defer logger.Sync()

	req, err := cli.ToRequest(opts, opts.Inputs[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "votctl: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	if err := run(ctx, logger, opts, req); err != nil {
		fmt.Fprintf(os.Stderr, "votctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger, opts cli.Options, req orchestrator.Request) error {
	httpClient := proxyHTTPClient(opts.ProxyURL)
	api := worker.New(worker.Config{
		HTTPClient: httpClient,
		Host:       opts.WorkerHost,
		Logger:     logger,
	})

	settings := &runSettings{
		liveVoices: opts.UseLiveVoices,
		audioProxy: opts.AudioProxy,
	}
	notifier := &consoleNotifier{}

	var src *orchestrator.Source
	engine := orchestrator.New(orchestrator.Config{
		API:      api,
		Settings: settings,
		Host:     staticHost{videoID: req.VideoID},
		Notifier: notifier,
		Deliver: func(videoID string, resolved orchestrator.Source) {
			src = &resolved
		},
		Logger: logger,
	})

	if err := engine.Translate(ctx, req); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if src == nil {
		return errors.New("translation did not produce an audio source")
	}

	if opts.OutputFile == "" {
		fmt.Println(src.URL)
		return nil
	}
	return download(ctx, logger, httpClient, *src, opts.OutputFile)
}

// download fetches the resolved audio to the output file, falling back to
// the direct URL when the proxied one cannot be fetched.
func download(ctx context.Context, logger *zap.Logger, httpClient *http.Client, src orchestrator.Source, outputFile string) error {
	fetcher := downloader.New(downloader.Config{
		HTTPClient: httpClient,
		Dir:        filepath.Dir(outputFile),
		Logger:     logger,
	})

	tmp, err := fetcher.FetchToTemp(ctx, src.URL)
	if err != nil && src.Fallback != "" {
		logger.Warn("proxied audio fetch failed, retrying direct URL", zap.Error(err))
		tmp, err = fetcher.FetchToTemp(ctx, src.Fallback)
	}
	if err != nil {
		return fmt.Errorf("fetch audio: %w", err)
	}
	if err := os.Rename(tmp, outputFile); err != nil {
		os.Remove(tmp)
		return err
	}
	fmt.Fprintf(os.Stderr, "saved translated audio to %s\n", outputFile)
	return nil
}

func newLogger(verbose bool) *zap.Logger {
	if verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			return logger
		}
	}
	return zap.NewNop()
}

// proxyHTTPClient returns a client bound to proxyURL, or nil so each
// subsystem uses its own tuned transport.
func proxyHTTPClient(proxyURL string) *http.Client {
	if proxyURL == "" {
		return nil
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		fmt.Fprintf(os.Stderr, "votctl: ignoring invalid proxy URL %q\n", proxyURL)
		return nil
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(parsed)
	return &http.Client{Transport: transport}
}

// runSettings carries the translation preferences for one run. Live voices
// may be downgraded mid-run after a worker failure.
type runSettings struct {
	mu         sync.Mutex
	liveVoices bool
	audioProxy bool
}

func (s *runSettings) UseLiveVoices() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liveVoices
}

func (s *runSettings) SetUseLiveVoices(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.liveVoices = enabled
}

func (s *runSettings) AudioProxyEnabled() bool { return s.audioProxy }

// staticHost pins the engine to the requested video; there is no player to
// navigate away.
type staticHost struct{ videoID string }

func (h staticHost) CurrentVideoID() string { return h.videoID }

type consoleNotifier struct{}

func (consoleNotifier) TranslationWaiting(estimate time.Duration) {
	fmt.Fprintf(os.Stderr, "translation in progress, about %s remaining\n", orchestrator.FormatWait(estimate))
}

func (consoleNotifier) TranslationFailed() {
	fmt.Fprintln(os.Stderr, "translation failed")
}

func (consoleNotifier) TranslationNotReady() {
	fmt.Fprintln(os.Stderr, "translation is taking too long; try again later")
}

func (consoleNotifier) LiveVoicesUnavailable() {
	fmt.Fprintln(os.Stderr, "live voices unavailable, retrying with standard voices")
}
