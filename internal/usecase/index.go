package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"profilematch/internal/adapter/fs"
	"profilematch/internal/adapter/imaging"
	"profilematch/internal/adapter/store"
	"profilematch/internal/domain"
	"profilematch/internal/port"
)

// Indexer builds and extends the embedding store from a catalog image
// directory. Runs are incremental: codes already in the store are skipped,
// so an interrupted run resumes without recomputing or duplicating records.
type Indexer struct {
	extractor  port.Extractor
	store      *store.Corpus
	walker     *fs.Walker
	flushEvery int
	log        *zap.Logger
}

func NewIndexer(extractor port.Extractor, st *store.Corpus, walker *fs.Walker, flushEvery int, log *zap.Logger) *Indexer {
	if flushEvery <= 0 {
		flushEvery = 20
	}
	return &Indexer{
		extractor:  extractor,
		store:      st,
		walker:     walker,
		flushEvery: flushEvery,
		log:        log,
	}
}

// IndexResult contains the results of an indexing run.
type IndexResult struct {
	FilesIndexed int
	FilesSkipped int
	Errors       []string
}

// ProgressFunc reports per-file progress to the caller.
type ProgressFunc func(processed, total int, currentFile string)

// Index processes every unindexed catalog image under root. Each file's
// base name (sans extension) is the catalog code. A failure on one file is
// recorded and skipped; it never aborts the batch. The store is flushed
// every flushEvery new records so a crash loses at most one batch.
func (ix *Indexer) Index(ctx context.Context, root string, progress ProgressFunc) (*IndexResult, error) {
	result := &IndexResult{}

	files, err := ix.walker.Walk(root)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	// Filter to unindexed codes before processing; already-indexed codes
	// cannot be recomputed or duplicated by construction.
	var pending []fs.FileInfo
	for _, f := range files {
		if !imaging.IsSupported(f.Path) {
			continue
		}
		if ix.store.Has(CodeFromPath(f.Path)) {
			result.FilesSkipped++
			continue
		}
		pending = append(pending, f)
	}

	ix.log.Info("indexing catalog images",
		zap.Int("total", len(files)),
		zap.Int("pending", len(pending)),
		zap.Int("skipped", result.FilesSkipped))

	sinceFlush := 0
	for i, f := range pending {
		if err := ctx.Err(); err != nil {
			// Persist what this run produced before stopping.
			if ferr := ix.store.Flush(); ferr != nil {
				ix.log.Error("flush on cancel failed", zap.Error(ferr))
			}
			return result, err
		}

		if progress != nil {
			progress(i+1, len(pending), f.Path)
		}

		if err := ix.indexFile(ctx, root, f.Path); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", f.Path, err))
			ix.log.Warn("skipping image", zap.String("path", f.Path), zap.Error(err))
			continue
		}
		result.FilesIndexed++
		sinceFlush++

		if sinceFlush >= ix.flushEvery {
			if err := ix.store.Flush(); err != nil {
				return result, fmt.Errorf("failed to flush store: %w", err)
			}
			sinceFlush = 0
			ix.log.Debug("flushed store", zap.Int("records", ix.store.Len()))
		}
	}

	if err := ix.store.Flush(); err != nil {
		return result, fmt.Errorf("failed to flush store: %w", err)
	}

	return result, nil
}

func (ix *Indexer) indexFile(ctx context.Context, root, path string) error {
	img, err := imaging.Decode(path)
	if err != nil {
		return err
	}

	sized := imaging.Fit(img, ix.extractor.InputSize())
	vec, err := ix.extractor.Embed(ctx, sized)
	if err != nil {
		return fmt.Errorf("embed: %w", err)
	}

	return ix.store.Append(domain.Record{
		Code:      CodeFromPath(path),
		Image:     webPath(root, path),
		Embedding: vec,
	})
}

// CodeFromPath derives the catalog code from an image file path: the base
// name without its extension.
func CodeFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// webPath stores the image location relative to the indexed root with a
// leading slash, the form the catalog UI serves images from.
func webPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return "/" + filepath.ToSlash(rel)
}
