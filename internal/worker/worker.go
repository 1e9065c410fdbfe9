// Package worker is the client for the translation worker API: session
// management, request signing and the JSON-enveloped protobuf transport.
package worker

import (
	"encoding/hex"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultHost is the worker/relay endpoint used when none is configured.
	DefaultHost = "vot-worker.toil.cc"

	// AudioProxyPath is the relay route for fetching translated audio.
	AudioProxyPath = "/video-translation/audio-proxy/"

	sessionModule    = "video-translation"
	translatePath    = "/video-translation/translate"
	audioPath        = "/video-translation/audio"
	failAudioPath    = "/video-translation/fail-audio-js"
	sessionPath      = "/session/create"
	componentVersion = "25.6.0.2259"

	// hmacKey is the shared signing key baked into the official web client.
	hmacKey = "bt8xH3VOlb4mqf0nqAibnDOoiPlXsisf"

	// defaultDuration substitutes for unknown or non-positive durations.
	defaultDuration = 343.0

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/134.0.0.0 YaBrowser/25.4.0.0 Safari/537.36"

	connectTimeout = 15 * time.Second
	readTimeout    = 30 * time.Second

	// sessionExpiryMargin is subtracted from the server-reported expiry so a
	// session is never used right at its edge.
	sessionExpiryMargin = 60
)

// Status is a translation status code reported by the worker.
type Status int

const (
	StatusFailed         Status = 0
	StatusFinished       Status = 1
	StatusWaiting        Status = 2
	StatusLongWaiting    Status = 3
	StatusPartContent    Status = 5
	StatusAudioRequested Status = 6
)

// TranslationResult is the outcome of one translation request. Ephemeral,
// one per API call.
type TranslationResult struct {
	Status        Status
	AudioURL      string
	RemainingTime int
	TranslationID string
	Message       string
}

// Config holds configuration for the worker client.
type Config struct {
	// HTTPClient is the client used for making requests.
	// If nil, a default with 15s connect / 30s read timeouts is used.
	HTTPClient *http.Client

	// Host is the worker hostname (no scheme). Defaults to DefaultHost.
	// The same host serves the audio proxy route.
	Host string

	// Logger is an optional structured logger. If nil, logging is disabled.
	Logger *zap.Logger
}

// Client talks to the translation worker. Safe for concurrent use; the
// signed session is shared by all requests behind a lock.
type Client struct {
	httpClient *http.Client
	host       string
	logger     *zap.Logger

	now     func() time.Time
	newUUID func() string

	sessionMu sync.Mutex
	session   session
}

// New creates a worker client.
func New(cfg Config) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: httpClient,
		host:       normalizeHost(cfg.Host),
		logger:     logger,
		now:        time.Now,
		newUUID:    newSessionUUID,
	}
}

func defaultHTTPClient() *http.Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
	}
	return &http.Client{Transport: transport}
}

// normalizeHost strips an optional scheme and trailing slashes so the value
// can be spliced into worker URLs.
func normalizeHost(host string) string {
	host = strings.TrimSpace(host)
	host = strings.TrimPrefix(host, "https://")
	host = strings.TrimPrefix(host, "http://")
	host = strings.TrimRight(host, "/")
	if host == "" {
		return DefaultHost
	}
	return host
}

// newSessionUUID returns 32 uppercase hex characters of random identity.
func newSessionUUID() string {
	u := uuid.New()
	return strings.ToUpper(hex.EncodeToString(u[:]))
}
