package client

import (
	"net/http"

	"go.uber.org/zap"
)

// Config holds configuration for the translation client.
type Config struct {
	// HTTPClient is the client used for worker API requests.
	// If nil, a default with optional proxy support is used.
	HTTPClient *http.Client

	// ProxyURL is the optional proxy URL to use for requests.
	// If HTTPClient is provided, this field is ignored.
	ProxyURL string

	// WorkerHost overrides the translation worker hostname.
	WorkerHost string

	// CacheDir is where proxy-fetched audio temp files live.
	// Empty means the OS temp directory.
	CacheDir string

	// Logger is optional; nil disables logging.
	Logger *zap.Logger

	// Settings supplies user preferences. If nil, NewMemorySettings() is used.
	Settings Settings

	// PlayerFactory creates secondary audio players. Required.
	PlayerFactory Factory

	// Host exposes the primary video player state. Required.
	Host Host

	// Notifier receives user-visible progress events. Required.
	Notifier Notifier
}
