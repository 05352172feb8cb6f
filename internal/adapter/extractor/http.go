package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"profilematch/internal/adapter/imaging"
	"profilematch/internal/domain"
)

// HTTPExtractor calls an inference server that wraps a pretrained image
// backbone behind an embed endpoint.
type HTTPExtractor struct {
	baseURL   string
	model     string
	apiKey    string
	dimension int
	inputSize int
	client    *http.Client
	log       *zap.Logger
}

type embedRequest struct {
	Model string `json:"model"`
	// Image is the base64-encoded JPEG raster, pre-sized to the model input
	// geometry. JPEG carries no alpha channel.
	Image string `json:"image"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewHTTPExtractor creates an extractor client. apiKeyEnv may be empty for
// unauthenticated local servers.
func NewHTTPExtractor(baseURL, model, apiKeyEnv string, dimension, inputSize int, timeout time.Duration, log *zap.Logger) (*HTTPExtractor, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("extractor base URL not configured")
	}
	if dimension <= 0 || inputSize <= 0 {
		return nil, fmt.Errorf("invalid extractor geometry: dimension=%d input_size=%d", dimension, inputSize)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	var apiKey string
	if apiKeyEnv != "" {
		apiKey = os.Getenv(apiKeyEnv)
	}

	return &HTTPExtractor{
		baseURL:   baseURL,
		model:     model,
		apiKey:    apiKey,
		dimension: dimension,
		inputSize: inputSize,
		client:    &http.Client{Timeout: timeout},
		log:       log,
	}, nil
}

// Embed sends the pre-sized image to the inference server. Images that do
// not match the input geometry are rejected: the extractor performs no
// resizing.
func (e *HTTPExtractor) Embed(ctx context.Context, img image.Image) (domain.Vector, error) {
	b := img.Bounds()
	if b.Dx() != e.inputSize || b.Dy() != e.inputSize {
		return nil, fmt.Errorf("input must be %dx%d, got %dx%d", e.inputSize, e.inputSize, b.Dx(), b.Dy())
	}

	jpegBytes, err := imaging.EncodeJPEG(img, 90)
	if err != nil {
		return nil, err
	}

	reqBody := embedRequest{
		Model: e.model,
		Image: base64.StdEncoding.EncodeToString(jpegBytes),
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embed", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read embed response: %w", err)
	}

	var parsed embedResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse embed response: %w", err)
	}
	if parsed.Error != nil {
		return nil, fmt.Errorf("extractor error: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor returned status %d", resp.StatusCode)
	}

	vec := domain.Vector(parsed.Embedding)
	if err := vec.Validate(e.dimension); err != nil {
		return nil, fmt.Errorf("extractor produced malformed vector: %w", err)
	}

	e.log.Debug("embedded image",
		zap.String("model", e.model),
		zap.Int("dimension", len(vec)))

	return vec, nil
}

// HealthCheck probes the inference server so load failures surface before
// any matching is attempted.
func (e *HTTPExtractor) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/health", nil)
	if err != nil {
		return err
	}
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrExtractorUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health returned status %d", domain.ErrExtractorUnavailable, resp.StatusCode)
	}
	return nil
}

func (e *HTTPExtractor) Dimension() int { return e.dimension }

func (e *HTTPExtractor) InputSize() int { return e.inputSize }

func (e *HTTPExtractor) ModelName() string { return e.model }
