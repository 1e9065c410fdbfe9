// Package downloader fetches proxy-served translated audio to temporary
// files ahead of playback.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"
)

const (
	maxRedirects = 5
	// Anything smaller than this is an error page, not audio.
	minValidBytes = 1000
	tempPattern   = "vot_proxy_*.mp3"

	connectTimeout = 15 * time.Second
	readTimeout    = 60 * time.Second

	fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/145.0.0.0 Safari/537.36"
)

var (
	// ErrTooManyRedirects is returned after the redirect hop budget runs out.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrResponseTooSmall is returned for responses under the minimum valid
	// audio size; the temp file is removed.
	ErrResponseTooSmall = errors.New("response too small to be audio")
)

// Config wires a Fetcher.
type Config struct {
	// HTTPClient is optional; redirect following is always disabled on it so
	// hops can be counted and resolved manually.
	HTTPClient *http.Client
	// Dir is the directory for temp files. Empty means the OS default.
	Dir    string
	Logger *zap.Logger
	Retry  TransportConfig
}

// Fetcher downloads audio assets to local temp files. The caller owns the
// returned file and removes it when playback ends.
type Fetcher struct {
	client *http.Client
	dir    string
	logger *zap.Logger
	retry  TransportConfig
}

// New creates a Fetcher.
func New(cfg Config) *Fetcher {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	client := cfg.HTTPClient
	if client == nil {
		client = defaultHTTPClient()
	} else {
		clone := *client
		clone.CheckRedirect = noFollowRedirects
		client = &clone
	}
	return &Fetcher{
		client: client,
		dir:    cfg.Dir,
		logger: logger,
		retry:  cfg.Retry,
	}
}

// FetchToTemp downloads rawURL to a new temp file and returns its path.
// Redirects are followed manually up to maxRedirects hops, 200 and 206 are
// accepted, and undersized responses are rejected with ErrResponseTooSmall.
func (f *Fetcher) FetchToTemp(ctx context.Context, rawURL string) (string, error) {
	current := rawURL
	for hop := 0; hop < maxRedirects; hop++ {
		resp, err := doGETWithRetry(ctx, f.client, current, fetchHeaders(), f.retry)
		if err != nil {
			return "", err
		}
		switch resp.StatusCode {
		case http.StatusMovedPermanently, http.StatusFound,
			http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
			location := resp.Header.Get("Location")
			resp.Body.Close()
			if location == "" {
				return "", fmt.Errorf("redirect without location from %s", current)
			}
			next, err := resolveLocation(current, location)
			if err != nil {
				return "", err
			}
			f.logger.Debug("following redirect",
				zap.String("from", current), zap.String("to", next))
			current = next

		case http.StatusOK, http.StatusPartialContent:
			return f.saveToTemp(resp.Body)

		default:
			resp.Body.Close()
			return "", &httpStatusError{StatusCode: resp.StatusCode}
		}
	}
	return "", ErrTooManyRedirects
}

func (f *Fetcher) saveToTemp(body io.ReadCloser) (string, error) {
	defer body.Close()
	tmp, err := os.CreateTemp(f.dir, tempPattern)
	if err != nil {
		return "", err
	}
	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written < minValidBytes {
		err = ErrResponseTooSmall
	}
	if err != nil {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			f.logger.Debug("temp file removal failed",
				zap.String("path", tmp.Name()), zap.Error(rmErr))
		}
		return "", err
	}
	return tmp.Name(), nil
}

func fetchHeaders() http.Header {
	h := make(http.Header)
	h.Set("Range", "bytes=0-")
	h.Set("User-Agent", fetchUserAgent)
	h.Set("Accept", "*/*")
	return h
}

func resolveLocation(current, location string) (string, error) {
	base, err := url.Parse(current)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

func noFollowRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func defaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			ResponseHeaderTimeout: readTimeout,
		},
		CheckRedirect: noFollowRedirects,
	}
}
