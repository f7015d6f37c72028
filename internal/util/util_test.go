package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"
)

func TestIsRetryableStatus(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{403, false},
		{404, false},
		{408, true},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
		{599, true},
	}
	for _, tt := range tests {
		if got := IsRetryableStatus(tt.code); got != tt.want {
			t.Errorf("IsRetryableStatus(%d) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestIsRetryableNetworkError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", fmt.Errorf("get: %w", context.Canceled), false},
		{"deadline", fmt.Errorf("get: %w", context.DeadlineExceeded), true},
		{"refused", errors.New("dial tcp 127.0.0.1:1: connect: connection refused"), true},
		{"reset", errors.New("read: connection reset by peer"), true},
		{"timeout text", errors.New("Client.Timeout exceeded while awaiting headers"), true},
		{"bad request", errors.New("invalid API key"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryableNetworkError(tt.err); got != tt.want {
				t.Errorf("IsRetryableNetworkError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.local:3128", "http://secure-proxy.local:3128", "internal.example")

	req := func(raw string) *http.Request {
		u, _ := url.Parse(raw)
		return &http.Request{URL: u}
	}

	got, err := proxy(req("http://example.com/a"))
	if err != nil || got == nil || got.Host != "proxy.local:3128" {
		t.Errorf("http proxy = %v, %v", got, err)
	}

	got, err = proxy(req("https://example.com/a"))
	if err != nil || got == nil || got.Host != "secure-proxy.local:3128" {
		t.Errorf("https proxy = %v, %v", got, err)
	}

	got, err = proxy(req("https://internal.example/a"))
	if err != nil || got != nil {
		t.Errorf("no_proxy host should bypass proxy, got %v, %v", got, err)
	}
}

func TestNewHTTPClient(t *testing.T) {
	c := NewHTTPClient(HTTPOptions{Timeout: 3 * time.Second})
	if c.Timeout != 3*time.Second {
		t.Errorf("timeout = %v", c.Timeout)
	}
	if _, ok := c.Transport.(*http.Transport); !ok {
		t.Errorf("expected *http.Transport, got %T", c.Transport)
	}
}
