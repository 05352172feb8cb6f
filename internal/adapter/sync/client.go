// Package sync implements the multi-device exemplar store client. The
// remote service stores captured images and their embedding rows; every
// device sees every commit.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"go.uber.org/zap"

	"profilematch/internal/domain"
	"profilematch/internal/port"
)

// Client talks to the capture sync service over HTTP.
type Client struct {
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	client       *http.Client
	log          *zap.Logger
}

type captureRow struct {
	Code      string    `json:"code"`
	ImageURL  string    `json:"image_url"`
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}

type uploadResponse struct {
	URL   string `json:"url"`
	Error string `json:"error,omitempty"`
}

// NewClient creates a sync client. apiKeyEnv may be empty.
func NewClient(baseURL, apiKeyEnv string, pollInterval time.Duration, log *zap.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("sync base URL not configured")
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Second
	}

	var apiKey string
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}

	return &Client{
		baseURL:      baseURL,
		apiKey:       apiKey,
		pollInterval: pollInterval,
		client:       &http.Client{Timeout: 30 * time.Second},
		log:          log,
	}, nil
}

// Upload stores a captured JPEG under the code and returns its public URL.
func (c *Client) Upload(ctx context.Context, code string, imageJPEG []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/captures/%s/image", c.baseURL, url.PathEscape(code))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(imageJPEG))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "image/jpeg")
	c.auth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var parsed uploadResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse upload response: %w", err)
	}
	if parsed.Error != "" {
		return "", fmt.Errorf("upload rejected: %s", parsed.Error)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("upload returned status %d", resp.StatusCode)
	}

	return parsed.URL, nil
}

// SaveMetadata appends a capture row for a code.
func (c *Client) SaveMetadata(ctx context.Context, code, imageURL string, embedding domain.Vector) error {
	row := captureRow{Code: code, ImageURL: imageURL, Embedding: embedding}
	payload, err := json.Marshal(row)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/captures", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.auth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("save metadata failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("save metadata returned status %d", resp.StatusCode)
	}
	return nil
}

// FetchAll returns every capture row, newest first.
func (c *Client) FetchAll(ctx context.Context) ([]port.Capture, error) {
	return c.fetch(ctx, time.Time{})
}

// Subscribe polls for new captures and invokes onInsert for each until ctx
// is done. The remote service is the source of truth; polling keeps the
// transport opaque to the core, which only depends on the callback contract.
func (c *Client) Subscribe(ctx context.Context, onInsert func(port.Capture)) error {
	since := time.Now()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		rows, err := c.fetch(ctx, since)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			c.log.Warn("capture poll failed", zap.Error(err))
			continue
		}

		for i := len(rows) - 1; i >= 0; i-- { // oldest first for the callback
			row := rows[i]
			if row.CreatedAt.After(since) {
				since = row.CreatedAt
			}
			if ctx.Err() != nil {
				return nil
			}
			onInsert(row)
		}
	}
}

func (c *Client) fetch(ctx context.Context, since time.Time) ([]port.Capture, error) {
	endpoint := c.baseURL + "/captures"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.Format(time.RFC3339Nano))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.auth(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch captures returned status %d", resp.StatusCode)
	}

	var rows []captureRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse captures: %w", err)
	}

	out := make([]port.Capture, 0, len(rows))
	for _, r := range rows {
		vec := domain.Vector(r.Embedding)
		if err := vec.Validate(0); err != nil {
			c.log.Warn("skipping malformed capture", zap.String("code", r.Code), zap.Error(err))
			continue
		}
		out = append(out, port.Capture{
			Code:      r.Code,
			Embedding: vec,
			ImageURL:  r.ImageURL,
			CreatedAt: r.CreatedAt,
		})
	}
	return out, nil
}

func (c *Client) auth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

// ExemplarMap folds capture rows (newest first) into per-code FIFO-bounded
// exemplar sets, the shape the similarity engine consumes.
func ExemplarMap(rows []port.Capture) map[string]domain.ExemplarSet {
	out := make(map[string]domain.ExemplarSet)
	// Rows arrive newest first; walk backwards so Add sees oldest first and
	// the bound keeps the most recent entries.
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		out[r.Code] = out[r.Code].Add(domain.Exemplar{
			Embedding: r.Embedding,
			ImageURL:  r.ImageURL,
			CreatedAt: r.CreatedAt,
		})
	}
	return out
}
