package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"profilematch/internal/domain"
	"profilematch/internal/port"
)

// Linker attaches a freshly captured (embedding, image) pair to a catalog
// code, selected from ranked results or typed manually.
type Linker struct {
	corpus port.CorpusStore
	local  port.ExemplarStore
	remote port.ExemplarSync // nil when sync is disabled
	log    *zap.Logger
}

func NewLinker(corpus port.CorpusStore, local port.ExemplarStore, remote port.ExemplarSync, log *zap.Logger) *Linker {
	return &Linker{corpus: corpus, local: local, remote: remote, log: log}
}

// NormalizeCode strips dots, spaces and letters, leaving the numeric core,
// so "10.008", "10008" and "P10008" reconcile to the same identifier.
// Distinct codes can share a core after stripping; Resolve therefore never
// auto-picks among multiple core matches.
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range code {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Resolve reconciles a manually entered code against the catalog. An exact
// match or a unique numeric-core match yields one candidate, committed
// directly by the caller; several core matches are all surfaced with score
// 1.0 (treated as certain manual matches) for the user to pick from.
func (l *Linker) Resolve(entry string) []domain.MatchCandidate {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}

	if l.corpus.Has(entry) {
		return []domain.MatchCandidate{{Code: entry, Score: 1.0, MatchedAgainst: domain.CatalogOriginal}}
	}

	core := NormalizeCode(entry)
	if core == "" {
		return nil
	}

	var out []domain.MatchCandidate
	for _, r := range l.corpus.Records() {
		if NormalizeCode(r.Code) == core {
			out = append(out, domain.MatchCandidate{Code: r.Code, Score: 1.0, MatchedAgainst: domain.CatalogOriginal})
		}
	}
	return out
}

// Commit stores a captured exemplar for a code: the image is uploaded, the
// metadata row appended for other devices, and the local set updated under
// the FIFO bound. The code must exist in the catalog. Returns the stored
// image URL.
func (l *Linker) Commit(ctx context.Context, code string, imageJPEG []byte, embedding domain.Vector) (string, error) {
	if !l.corpus.Has(code) {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownCode, code)
	}
	if err := embedding.Validate(0); err != nil {
		return "", fmt.Errorf("capture for %s: %w", code, err)
	}

	var imageURL string
	if l.remote != nil {
		url, err := l.remote.Upload(ctx, code, imageJPEG)
		if err != nil {
			return "", fmt.Errorf("failed to upload capture: %w", err)
		}
		if err := l.remote.SaveMetadata(ctx, code, url, embedding); err != nil {
			return "", fmt.Errorf("failed to save capture metadata: %w", err)
		}
		imageURL = url
	}

	if l.local != nil {
		err := l.local.Put(code, domain.Exemplar{
			Embedding: embedding,
			ImageURL:  imageURL,
			CreatedAt: time.Now(),
		})
		if err != nil {
			return imageURL, fmt.Errorf("failed to store exemplar locally: %w", err)
		}
	}

	l.log.Info("exemplar committed",
		zap.String("code", code),
		zap.Bool("synced", l.remote != nil))

	return imageURL, nil
}
