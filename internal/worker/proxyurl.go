package worker

import (
	"net/url"
	"strings"
)

// ToProxyAudioURL rewrites a direct audio asset URL onto the worker's
// audio-proxy route: https://{host}/video-translation/audio-proxy/{filename}
// with the original query (AWS signature params) preserved. Used where the
// direct asset host is unreachable.
//
// Returns the input unchanged when no path can be parsed. Not idempotent:
// applying it to an already-proxied URL re-derives from the proxy path and
// produces a double-wrapped URL.
func (c *Client) ToProxyAudioURL(originalURL string) string {
	if originalURL == "" {
		return originalURL
	}
	parsed, err := url.Parse(originalURL)
	if err != nil {
		return originalURL
	}
	path := strings.TrimLeft(parsed.EscapedPath(), "/")
	if path == "" {
		return originalURL
	}
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		path = path[idx+1:]
	}

	var proxyURL strings.Builder
	proxyURL.WriteString("https://")
	proxyURL.WriteString(c.host)
	proxyURL.WriteString(AudioProxyPath)
	proxyURL.WriteString(path)
	if parsed.RawQuery != "" {
		proxyURL.WriteString("?")
		proxyURL.WriteString(parsed.RawQuery)
	}
	return proxyURL.String()
}
