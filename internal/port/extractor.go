package port

import (
	"context"
	"image"

	"profilematch/internal/domain"
)

// Extractor produces embedding vectors from images. Implementations are
// stateless; the image must already match the extractor's input geometry —
// the extractor performs no resizing.
type Extractor interface {
	// Embed generates the embedding for a pre-sized RGB image.
	Embed(ctx context.Context, img image.Image) (domain.Vector, error)

	// Dimension returns the embedding vector dimension.
	Dimension() int

	// InputSize returns the required square input geometry in pixels.
	InputSize() int

	// ModelName returns the name of the backbone model.
	ModelName() string
}

// HealthChecker verifies extractor availability. Extractors that can probe
// their backend implement this; the resource loader consults it once.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
