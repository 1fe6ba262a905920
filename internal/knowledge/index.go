package knowledge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/omnicart/assistant/internal/blob"
	"github.com/omnicart/assistant/internal/corpus"
	"github.com/omnicart/assistant/internal/embedding"
)

// Record is a knowledge entry plus the embedding produced from its text.
type Record struct {
	Entry
	Embedding []float32 `json:"embedding,omitempty"`
}

// Index is the persisted knowledge index document.
type Index struct {
	GeneratedAt    time.Time `json:"generated_at"`
	EmbeddingModel string    `json:"embedding_model"`
	Entries        []Record  `json:"entries"`
}

// Refresher rebuilds the knowledge index from the persisted corpora. Refresh
// is a full-replace operation: entries are recomputed wholesale, but each
// embedding is reused when the entry's content hash is unchanged, since the
// embedding call is the expensive step.
//
// Concurrent refreshes are coalesced: at most one embedding pass runs at a
// time and simultaneous callers share its result.
type Refresher struct {
	blobs    *blob.Store
	provider embedding.Provider
	logger   *slog.Logger
	group    singleflight.Group
}

// NewRefresher creates a Refresher. A nil logger falls back to slog.Default().
func NewRefresher(blobs *blob.Store, provider embedding.Provider, logger *slog.Logger) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{blobs: blobs, provider: provider, logger: logger}
}

// Load reads the persisted index. A missing document yields an empty index,
// not an error.
func (r *Refresher) Load() (*Index, error) {
	var idx Index
	if err := r.blobs.Read(blob.KnowledgeIndexDoc, &idx); err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return &Index{Entries: []Record{}}, nil
		}
		return nil, fmt.Errorf("load knowledge index: %w", err)
	}
	return &idx, nil
}

// Refresh rebuilds the index from the latest persisted corpora and writes it
// back, replacing the previous document. An embedding failure for any entry
// aborts the whole refresh and the prior index stays authoritative.
func (r *Refresher) Refresh(ctx context.Context) (*Index, error) {
	v, err, _ := r.group.Do("refresh", func() (any, error) {
		return r.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Index), nil
}

func (r *Refresher) refresh(ctx context.Context) (*Index, error) {
	start := time.Now()

	var products corpus.ProductCorpus
	if err := r.blobs.Read(blob.ProductCorpusDoc, &products); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("load product corpus: %w", err)
	}
	var shops corpus.ShopCorpus
	if err := r.blobs.Read(blob.ShopCorpusDoc, &shops); err != nil && !errors.Is(err, blob.ErrNotFound) {
		return nil, fmt.Errorf("load shop corpus: %w", err)
	}

	entries := BuildEntries(&products, &shops)

	previous, err := r.Load()
	if err != nil {
		return nil, err
	}
	prior := make(map[string]Record, len(previous.Entries))
	for _, rec := range previous.Entries {
		prior[rec.ID] = rec
	}

	reused := 0
	records := make([]Record, 0, len(entries))
	for _, entry := range entries {
		if existing, ok := prior[entry.ID]; ok && existing.Hash == entry.Hash && len(existing.Embedding) > 0 {
			records = append(records, existing)
			reused++
			continue
		}
		vector, err := r.provider.Embed(ctx, entry.Text)
		if err != nil {
			return nil, fmt.Errorf("embed %s: %w", entry.ID, err)
		}
		records = append(records, Record{Entry: entry, Embedding: vector})
	}

	idx := &Index{
		GeneratedAt:    time.Now().UTC(),
		EmbeddingModel: r.provider.Model(),
		Entries:        records,
	}
	if err := r.blobs.Write(blob.KnowledgeIndexDoc, idx); err != nil {
		return nil, fmt.Errorf("persist knowledge index: %w", err)
	}

	r.logger.Info("Refreshed knowledge index",
		"entries", len(records),
		"reused", reused,
		"embedded", len(records)-reused,
		"duration", time.Since(start),
	)
	return idx, nil
}
