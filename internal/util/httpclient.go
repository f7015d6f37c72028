package util

import (
	"net/http"
	"net/url"
	"time"

	"golang.org/x/net/http/httpproxy"
)

// HTTPOptions configures outbound HTTP clients
type HTTPOptions struct {
	Timeout    time.Duration
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// NewProxyFunc creates a proxy function based on configuration.
// If no proxy URLs are provided, falls back to environment variables.
func NewProxyFunc(httpProxy, httpsProxy, noProxy string) func(*http.Request) (*url.URL, error) {
	if httpProxy == "" && httpsProxy == "" {
		return http.ProxyFromEnvironment
	}

	proxyFor := (&httpproxy.Config{
		HTTPProxy:  httpProxy,
		HTTPSProxy: httpsProxy,
		NoProxy:    noProxy,
	}).ProxyFunc()

	return func(req *http.Request) (*url.URL, error) {
		return proxyFor(req.URL)
	}
}

// NewHTTPClient returns a client with the given timeout and proxy settings
func NewHTTPClient(opts HTTPOptions) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = NewProxyFunc(opts.HTTPProxy, opts.HTTPSProxy, opts.NoProxy)

	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: transport,
	}
}
