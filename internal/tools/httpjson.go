package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const maxErrorBody = 512

// getBody performs a GET and returns the body of a 2xx response, reading
// at most limit bytes. Non-2xx responses are returned as errors carrying
// the status code.
func getBody(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, limit int64) ([]byte, *http.Response, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, 0, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, resp, resp.StatusCode, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if limit <= 0 {
		limit = 10 << 20
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, resp, 0, fmt.Errorf("read body: %w", err)
	}
	return body, resp, 0, nil
}

// getJSON performs a GET and decodes a JSON response into dst
func getJSON(ctx context.Context, client *http.Client, rawURL string, headers map[string]string, dst any) (int, error) {
	if headers == nil {
		headers = map[string]string{}
	}
	if _, ok := headers["Accept"]; !ok {
		headers["Accept"] = "application/json"
	}

	body, _, status, err := getBody(ctx, client, rawURL, headers, 0)
	if err != nil {
		return status, err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return 0, nil
}
