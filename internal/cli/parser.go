// Package cli parses votctl's command line, with environment variables
// (optionally loaded from a .env file) supplying the defaults.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/famomatic/vot/client"
	"github.com/famomatic/vot/internal/orchestrator"
)

// Options holds all command-line options.
type Options struct {
	// Input
	Inputs []string // video URLs or ids

	// Network
	ProxyURL   string // --proxy
	WorkerHost string // --worker-host, VOT_WORKER_HOST

	// Translation
	SourceLang    string        // --source-lang, VOT_SOURCE_LANG
	TargetLang    string        // --target-lang, VOT_TARGET_LANG
	Duration      time.Duration // --duration
	Title         string        // --title
	UseLiveVoices bool          // --live-voices, VOT_USE_LIVE_VOICES
	AudioProxy    bool          // --audio-proxy, VOT_AUDIO_PROXY

	// Output
	OutputFile string        // -o, --output
	Timeout    time.Duration // --timeout
	Verbose    bool
}

// ParseFlags parses command-line arguments into Options.
func ParseFlags() Options {
	// A .env file is optional; absence is not an error.
	_ = godotenv.Load()

	opts := Options{}

	var outputShort, outputLong string
	flag.StringVar(&outputShort, "o", "", "Write the translated audio to this file instead of printing its URL")
	flag.StringVar(&outputLong, "output", "", "Write the translated audio to this file instead of printing its URL")

	flag.StringVar(&opts.ProxyURL, "proxy", "", "Use the specified HTTP/HTTPS proxy")
	flag.StringVar(&opts.WorkerHost, "worker-host", envOr("VOT_WORKER_HOST", ""), "Translation worker hostname override")
	flag.StringVar(&opts.SourceLang, "source-lang", envOr("VOT_SOURCE_LANG", "auto"), "Source language (auto detects)")
	flag.StringVar(&opts.TargetLang, "target-lang", envOr("VOT_TARGET_LANG", "en"), "Target language")
	flag.DurationVar(&opts.Duration, "duration", 0, "Video duration (e.g. 3m33s); 0 uses the worker default")
	flag.StringVar(&opts.Title, "title", "", "Video title to attach to the request")
	flag.BoolVar(&opts.UseLiveVoices, "live-voices", envBool("VOT_USE_LIVE_VOICES"), "Request live voices (auto-downgrades on failure)")
	flag.BoolVar(&opts.AudioProxy, "audio-proxy", envBool("VOT_AUDIO_PROXY"), "Route the audio URL through the worker's audio proxy")

	flag.DurationVar(&opts.Timeout, "timeout", 10*time.Minute, "Overall run timeout, polling included")
	flag.BoolVar(&opts.Verbose, "verbose", false, "Print debug logging")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: votctl [OPTIONS] URL|VIDEO_ID\n\n")
		fmt.Fprintln(os.Stderr, "Options:")
		flag.PrintDefaults()
	}

	flag.Parse()

	opts.OutputFile = pickValue(outputShort, outputLong, "")
	opts.Inputs = flag.Args()
	return opts
}

func pickValue(v1, v2, def string) string {
	if v1 != def {
		return v1
	}
	if v2 != def {
		return v2
	}
	return def
}

// ToRequest converts Options and one input (URL or id) into a translation
// request.
func ToRequest(opts Options, input string) (orchestrator.Request, error) {
	videoID, err := client.ExtractVideoID(input)
	if err != nil {
		return orchestrator.Request{}, fmt.Errorf("invalid input %q: %w", input, err)
	}
	return orchestrator.Request{
		VideoID:    videoID,
		VideoURL:   "https://youtu.be/" + videoID,
		VideoTitle: opts.Title,
		Duration:   opts.Duration,
		SourceLang: strings.TrimSpace(opts.SourceLang),
		TargetLang: strings.TrimSpace(opts.TargetLang),
	}, nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return err == nil && v
}
