// Package indexer orchestrates the full knowledge refresh: corpus build,
// snapshot persistence, and embedding index refresh.
package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/omnicart/assistant/internal/blob"
	"github.com/omnicart/assistant/internal/corpus"
	"github.com/omnicart/assistant/internal/knowledge"
)

// Result contains statistics about one refresh run.
type Result struct {
	Products int
	Shops    int
	Entries  int
	Duration time.Duration
}

// Pipeline runs the refresh steps in dependency order. Corpora are only
// written after a successful build, so a catalog read failure leaves the
// previous snapshots authoritative.
type Pipeline struct {
	builder   *corpus.Builder
	blobs     *blob.Store
	refresher *knowledge.Refresher
	logger    *slog.Logger
}

// NewPipeline creates a refresh pipeline. A nil logger falls back to
// slog.Default().
func NewPipeline(builder *corpus.Builder, blobs *blob.Store, refresher *knowledge.Refresher, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		builder:   builder,
		blobs:     blobs,
		refresher: refresher,
		logger:    logger,
	}
}

// Run rebuilds both corpora, persists them, and refreshes the knowledge
// index. Any failure abandons the run; previously persisted documents are
// never deleted before their replacements are ready.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	productCorpus, shopCorpus, err := p.builder.BuildAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("build corpora: %w", err)
	}

	if err := p.blobs.Write(blob.ProductCorpusDoc, productCorpus); err != nil {
		return nil, fmt.Errorf("persist product corpus: %w", err)
	}
	if err := p.blobs.Write(blob.ShopCorpusDoc, shopCorpus); err != nil {
		return nil, fmt.Errorf("persist shop corpus: %w", err)
	}

	idx, err := p.refresher.Refresh(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh index: %w", err)
	}

	result := &Result{
		Products: len(productCorpus.Products),
		Shops:    len(shopCorpus.Shops),
		Entries:  len(idx.Entries),
		Duration: time.Since(start),
	}
	p.logger.Info("Refresh complete",
		"products", result.Products,
		"shops", result.Shops,
		"entries", result.Entries,
		"duration", result.Duration,
	)
	return result, nil
}
