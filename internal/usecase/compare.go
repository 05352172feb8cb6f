package usecase

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"profilematch/internal/adapter/imaging"
	"profilematch/internal/domain"
	"profilematch/internal/port"
)

// DefaultHighConfidence is the presentation threshold above which a live
// comparison score is flagged high confidence. Crossing it never triggers
// any automatic action.
const DefaultHighConfidence = 0.85

// DefaultCropFraction is the central square fraction of the shorter frame
// dimension scored by the live loop, matching the capture viewfinder.
const DefaultCropFraction = 0.5

// Score is one published live comparison result.
type Score struct {
	Value          float64
	HighConfidence bool
}

// Comparator continuously re-scores a frame stream against one pinned
// target embedding so the user can confirm alignment before committing an
// exemplar. Advisory only: it never commits anything itself.
type Comparator struct {
	extractor    port.Extractor
	cropFraction float64
	threshold    float64
	log          *zap.Logger
}

func NewComparator(extractor port.Extractor, cropFraction, threshold float64, log *zap.Logger) *Comparator {
	if cropFraction <= 0 || cropFraction > 1 {
		cropFraction = DefaultCropFraction
	}
	if threshold <= 0 {
		threshold = DefaultHighConfidence
	}
	return &Comparator{
		extractor:    extractor,
		cropFraction: cropFraction,
		threshold:    threshold,
		log:          log,
	}
}

// Run scores frames against target until ctx is done, publishing each
// result. At most one embed call is in flight: a new pass starts only after
// the previous one published or failed. The cancellation token is checked
// before scheduling each embed and again before publishing, so a stale
// in-flight result is discarded rather than published. Cancellation is not
// an error; Run returns nil and releases the frame source.
func (c *Comparator) Run(ctx context.Context, frames port.FrameSource, target domain.Vector, publish func(Score)) error {
	defer frames.Close()

	for {
		if ctx.Err() != nil {
			return nil
		}

		frame, err := frames.Next(ctx)
		if err != nil {
			if canceled(ctx, err) {
				return nil
			}
			return err
		}

		crop := imaging.CenterSquare(frame, c.cropFraction)
		sized := imaging.Fit(crop, c.extractor.InputSize())

		if ctx.Err() != nil {
			return nil
		}

		vec, err := c.extractor.Embed(ctx, sized)
		if err != nil {
			if canceled(ctx, err) {
				return nil
			}
			// Failed pass; the next frame schedules a fresh one.
			c.log.Warn("frame embed failed", zap.Error(err))
			continue
		}

		if ctx.Err() != nil {
			return nil
		}

		value := domain.CosineSimilarity(vec, target)
		publish(Score{
			Value:          value,
			HighConfidence: value > c.threshold,
		})
	}
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
