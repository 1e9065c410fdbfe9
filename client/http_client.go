package client

import (
	"net/http"
	"net/url"
	"strings"
)

// defaultHTTPClient returns a client bound to proxyURL, or nil when no
// usable proxy is configured so each subsystem falls back to its own tuned
// transport.
func defaultHTTPClient(proxyURL string) *http.Client {
	if strings.TrimSpace(proxyURL) == "" {
		return nil
	}
	parsed, err := url.Parse(proxyURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil
	}
	baseTransport, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil
	}
	transport := baseTransport.Clone()
	transport.Proxy = http.ProxyURL(parsed)
	return &http.Client{Transport: transport}
}
