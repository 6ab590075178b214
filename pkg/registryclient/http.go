// Package registryclient implements contract.RegistryClient against a
// brickhub.dev-compatible HTTP API: a version index lookup followed by
// a bundle download. None of the repos in the retrieval pack import an
// HTTP client library (no go-resty, go-retryablehttp, gjson, sling),
// so this talks to the registry with net/http directly (documented in
// DESIGN.md as the one deliberately stdlib-backed collaborator).
package registryclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-mason/mason/pkg/contract"
)

const defaultBaseURL = "https://registry.brickhub.dev"

// Client is the default contract.RegistryClient, backed by net/http.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New builds a Client pointed at brickhub.dev's default endpoint.
func New() *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type versionsResponse struct {
	Versions []struct {
		Version string `json:"version"`
	} `json:"versions"`
}

// LatestVersion fetches the brick's version index and returns the last
// version listed in it. The constraint argument is ignored: no version
// in the index is checked against it.
func (c *Client) LatestVersion(ctx context.Context, name, _ string) (string, error) {
	url := fmt.Sprintf("%s/api/v1/bricks/%s", c.BaseURL, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &contract.RegistryError{Cause: err}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", &contract.RegistryError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &contract.RegistryError{Cause: fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)}
	}

	var parsed versionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", &contract.RegistryError{Cause: err}
	}
	if len(parsed.Versions) == 0 {
		return "", &contract.RegistryError{Cause: fmt.Errorf("no versions published for brick %q", name)}
	}

	return parsed.Versions[len(parsed.Versions)-1].Version, nil
}

// Download fetches the universal bundle bytes for name@version.
func (c *Client) Download(ctx context.Context, name, version string) ([]byte, error) {
	url := fmt.Sprintf("%s/api/v1/bricks/%s/versions/%s", c.BaseURL, name, version)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &contract.RegistryError{Cause: err}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, &contract.RegistryError{Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &contract.RegistryError{Cause: fmt.Errorf("unexpected status %d fetching %s", resp.StatusCode, url)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &contract.RegistryError{Cause: err}
	}
	return data, nil
}
