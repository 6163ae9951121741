package httputil

import (
	"net/http"
	"time"
)

const (
	DefaultTimeout = 60 * time.Second
	UserAgent      = "marsweather/1.0 (+https://github.com/lox/marsweather)"
)

// NewClient returns an HTTP client with the standard timeout that identifies
// itself on every request. Dataset mirrors reject the default Go agent.
func NewClient() *http.Client {
	return &http.Client{
		Timeout:   DefaultTimeout,
		Transport: userAgentTransport{base: http.DefaultTransport},
	}
}

type userAgentTransport struct {
	base http.RoundTripper
}

func (t userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", UserAgent)
	}
	return t.base.RoundTrip(req)
}
