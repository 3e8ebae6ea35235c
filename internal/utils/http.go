package utils

import (
	"context"
	"io"
	"net/http"
	"time"
)

var client = &http.Client{
	Timeout: 5 * time.Second,
}

// HTTPRequestWithClient sends a request with the given client, nil selects a default one with a short timeout.
func HTTPRequestWithClient(ctx context.Context, c *http.Client, method string, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	if c == nil {
		c = client
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	return c.Do(req)
}
