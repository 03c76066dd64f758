// Package client talks to the listing service on behalf of the widget: the
// refresh call feeding the image selector, and the view fetch feeding the
// preview pane.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rdomunky/comfyui-subfolderimageloader/internal/httpx"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/logging"
	"github.com/rdomunky/comfyui-subfolderimageloader/internal/models"
)

// ErrNotFound indicates a previously-listed file that has since vanished.
var ErrNotFound = errors.New("file not found")

const defaultTimeout = 30 * time.Second

// Client is the HTTP client for one loader server.
type Client struct {
	httpClient *http.Client
	baseURL    string
	log        *logging.Logger
}

// New creates a Client for the server at baseURL (scheme://host:port).
func New(baseURL string, log *logging.Logger) *Client {
	return &Client{
		httpClient: httpx.NewRetryClient(defaultTimeout, log),
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		log:        log,
	}
}

// Refresh requests the filtered listing for a subfolder. A transport-level
// failure returns an error; an application-level rejection comes back as a
// RefreshResponse with Success=false.
func (c *Client) Refresh(ctx context.Context, req models.RefreshRequest) (*models.RefreshResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal refresh request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/subfolder_loader/refresh", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("refresh request failed: unexpected status %d", resp.StatusCode)
	}

	var out models.RefreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode refresh response: %w", err)
	}
	return &out, nil
}

// ViewURL builds the view URL for an image, with a rand cache buster so a
// re-selected image is refetched after the file changed on disk.
func (c *Client) ViewURL(subfolder, filename string) string {
	q := url.Values{}
	q.Set("filename", filename)
	q.Set("type", "input")
	q.Set("subfolder", subfolder)
	q.Set("rand", fmt.Sprintf("%f", rand.Float64()))
	return c.baseURL + "/view?" + q.Encode()
}

// FetchView downloads the raw bytes for one image. Cancelling ctx abandons
// the transfer.
func (c *Client) FetchView(ctx context.Context, subfolder, filename string) ([]byte, string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ViewURL(subfolder, filename), nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, "", fmt.Errorf("view request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, "", ErrNotFound
	default:
		return nil, "", fmt.Errorf("view request failed: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image bytes: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}
