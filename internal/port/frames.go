package port

import (
	"context"
	"image"
)

// FrameSource delivers frames from a continuous capture stream. Next blocks
// until a frame is available or ctx is done; frames are replaced one by one,
// the source never queues.
type FrameSource interface {
	Next(ctx context.Context) (image.Image, error)

	// Close releases the underlying capture device.
	Close() error
}
