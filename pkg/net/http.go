package net

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorURLNotFound is returned when the server responds with 404.
var ErrorURLNotFound = errors.New("URL not found")

// Get issues a GET request with the scirank user agent. Non-2xx responses
// are returned as errors and the body is closed.
func Get(ctx context.Context, c *http.Client, url string, accept string) (*http.Response, error) {
	if c == nil {
		var err error
		if c, err = GetHTTPClient(); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating HTTP Get request: %w", err)
	}

	req.Header.Set("User-Agent", UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.Do(req) //nolint:gosec // URL from configuration
	if err != nil {
		return nil, fmt.Errorf("error executing request %s: %w", url, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return nil, ErrorURLNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		PrintHTTPResponse(resp)
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status (%d - %s): %s", resp.StatusCode, resp.Status, url)
	}

	return resp, nil
}
