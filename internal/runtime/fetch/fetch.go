// Package fetch retrieves raw provider catalogs. One GET per call, no retry:
// a failed fetch is terminal for the resolution and retry policy belongs to
// the caller.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/provisdev/provis/internal/runtime/types"
)

// Client fetches catalog documents from fixed provider endpoints.
type Client struct {
	HTTPClient *http.Client
}

// NewClient creates a catalog fetcher backed by the default HTTP client.
func NewClient() *Client {
	return &Client{HTTPClient: &http.Client{}}
}

// Get retrieves the document at url. Any transport failure or non-success
// status is returned as a *types.NetworkError.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &types.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &types.NetworkError{URL: url, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &types.NetworkError{URL: url, Err: err}
	}

	return body, nil
}

// Download streams the file at url into w. Used for archive retrieval, which
// shares the fetcher's failure policy.
func (c *Client) Download(ctx context.Context, url string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return &types.NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &types.NetworkError{URL: url, Err: fmt.Errorf("unexpected status code: %d", resp.StatusCode)}
	}

	_, err = io.Copy(w, resp.Body)
	return err
}
