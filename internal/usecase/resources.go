package usecase

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"profilematch/internal/adapter/store"
	"profilematch/internal/domain"
	"profilematch/internal/port"
)

// Resources is the load-once handle over the feature extractor and the
// embedding store. All queries share one loaded instance; the first caller
// of EnsureLoaded performs the load and concurrent callers block on the
// same in-flight load.
type Resources struct {
	extractor port.Extractor
	storePath string
	log       *zap.Logger

	once    sync.Once
	corpus  *store.Corpus
	loadErr error
}

func NewResources(extractor port.Extractor, storePath string, log *zap.Logger) *Resources {
	return &Resources{
		extractor: extractor,
		storePath: storePath,
		log:       log,
	}
}

// EnsureLoaded loads the extractor and embedding store at most once.
// Extractor failures surface as ErrExtractorUnavailable and store failures
// as ErrCorpusUnavailable, both distinct from empty query results.
func (r *Resources) EnsureLoaded(ctx context.Context) error {
	r.once.Do(func() {
		if hc, ok := r.extractor.(port.HealthChecker); ok {
			if err := hc.HealthCheck(ctx); err != nil {
				r.loadErr = fmt.Errorf("%w: %v", domain.ErrExtractorUnavailable, err)
				return
			}
		}

		corpus, err := store.Open(r.storePath)
		if err != nil {
			r.loadErr = err
			return
		}
		r.corpus = corpus

		r.log.Info("resources loaded",
			zap.String("model", r.extractor.ModelName()),
			zap.Int("corpus_size", corpus.Len()))
	})
	return r.loadErr
}

// Extractor returns the shared extractor.
func (r *Resources) Extractor() port.Extractor {
	return r.extractor
}

// Corpus returns the loaded embedding store. Callers must have called
// EnsureLoaded successfully first.
func (r *Resources) Corpus() port.CorpusStore {
	return r.corpus
}
