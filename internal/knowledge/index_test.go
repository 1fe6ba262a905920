package knowledge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omnicart/assistant/internal/blob"
	"github.com/omnicart/assistant/internal/corpus"
)

// stubProvider counts Embed calls so tests can assert on embedding reuse.
type stubProvider struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (p *stubProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.calls++
	// Deterministic per-text vector so reuse is observable bit-for-bit.
	vector := make([]float32, 4)
	for i, c := range text {
		vector[i%4] += float32(c)
	}
	return vector, nil
}

func (p *stubProvider) Model() string { return "stub-embedding" }

func (p *stubProvider) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func seedCorpora(t *testing.T, blobs *blob.Store, price float64) {
	t.Helper()
	products := corpus.ProductCorpus{Products: []corpus.ProductEntry{
		{ProductID: "p1", Name: "Portable Speaker", Price: price, Currency: "USD", Tags: []string{"audio"},
			ShopID: "s1", ShopName: "Audio Hub", URL: "/products/p1", InStock: true},
		{ProductID: "p2", Name: "Ceramic Mug", Price: 12, Currency: "USD", Tags: []string{"kitchen"},
			URL: "/products/p2", InStock: true},
	}}
	shops := corpus.ShopCorpus{Shops: []corpus.ShopEntry{
		{ShopID: "s1", Name: "Audio Hub", Owner: "Dana Reyes", URL: "/shops/s1"},
	}}
	require.NoError(t, blobs.Write(blob.ProductCorpusDoc, products))
	require.NoError(t, blobs.Write(blob.ShopCorpusDoc, shops))
}

func TestRefresher_Refresh(t *testing.T) {
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	provider := &stubProvider{}
	refresher := NewRefresher(blobs, provider, nil)

	seedCorpora(t, blobs, 79.5)

	idx, err := refresher.Refresh(context.Background())
	require.NoError(t, err)
	require.Len(t, idx.Entries, 3)
	assert.Equal(t, "stub-embedding", idx.EmbeddingModel)
	assert.Equal(t, 3, provider.callCount(), "every entry embedded on first refresh")
	for _, rec := range idx.Entries {
		assert.NotEmpty(t, rec.Embedding)
		assert.NotEmpty(t, rec.Hash)
	}
}

func TestRefresher_ReusesUnchangedEmbeddings(t *testing.T) {
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	provider := &stubProvider{}
	refresher := NewRefresher(blobs, provider, nil)
	ctx := context.Background()

	seedCorpora(t, blobs, 79.5)
	first, err := refresher.Refresh(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, provider.callCount())

	// No catalog change: all vectors reused, no embedding calls.
	second, err := refresher.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, provider.callCount(), "unchanged entries must not re-embed")
	for i := range first.Entries {
		assert.Equal(t, first.Entries[i].Embedding, second.Entries[i].Embedding)
	}

	// Price change on p1: exactly one entry re-embedded.
	seedCorpora(t, blobs, 89.5)
	third, err := refresher.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, provider.callCount(), "only the changed entry re-embeds")
	require.Len(t, third.Entries, 3)
}

// gatedProvider blocks every Embed call until released, so concurrent
// refreshes pile up behind one in-flight embedding pass.
type gatedProvider struct {
	stubProvider
	release chan struct{}
}

func (p *gatedProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	<-p.release
	return p.stubProvider.Embed(ctx, text)
}

func TestRefresher_CoalescesConcurrentRefreshes(t *testing.T) {
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	provider := &gatedProvider{release: make(chan struct{})}
	refresher := NewRefresher(blobs, provider, nil)

	seedCorpora(t, blobs, 79.5)

	const callers = 8
	var ready, done sync.WaitGroup
	results := make([]*Index, callers)
	errs := make([]error, callers)
	ready.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			ready.Done()
			results[i], errs[i] = refresher.Refresh(context.Background())
		}(i)
	}

	// Release the embedding pass only after every caller is in flight.
	ready.Wait()
	time.Sleep(20 * time.Millisecond)
	close(provider.release)
	done.Wait()

	assert.Equal(t, 3, provider.callCount(), "one embedding pass regardless of caller count")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.Len(t, results[i].Entries, 3)
		assert.Equal(t, results[0].Entries, results[i].Entries, "coalesced callers share one result")
	}
}

func TestRefresher_EmbedFailurePreservesPriorIndex(t *testing.T) {
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	provider := &stubProvider{}
	refresher := NewRefresher(blobs, provider, nil)
	ctx := context.Background()

	seedCorpora(t, blobs, 79.5)
	first, err := refresher.Refresh(ctx)
	require.NoError(t, err)

	seedCorpora(t, blobs, 89.5)
	provider.err = errors.New("provider down")
	_, err = refresher.Refresh(ctx)
	require.Error(t, err)

	// The failed refresh wrote nothing; the prior index is still served.
	loaded, err := refresher.Load()
	require.NoError(t, err)
	assert.Equal(t, first.Entries, loaded.Entries)
}

func TestRefresher_LoadEmptyWhenNeverBuilt(t *testing.T) {
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	refresher := NewRefresher(blobs, &stubProvider{}, nil)

	idx, err := refresher.Load()
	require.NoError(t, err)
	assert.Empty(t, idx.Entries)
}

func TestIndex_PersistRoundTrip(t *testing.T) {
	blobs, err := blob.NewStore(t.TempDir())
	require.NoError(t, err)
	provider := &stubProvider{}
	refresher := NewRefresher(blobs, provider, nil)

	seedCorpora(t, blobs, 79.5)
	built, err := refresher.Refresh(context.Background())
	require.NoError(t, err)

	loaded, err := refresher.Load()
	require.NoError(t, err)
	assert.Equal(t, built.EmbeddingModel, loaded.EmbeddingModel)
	require.Len(t, loaded.Entries, len(built.Entries))
	for i := range built.Entries {
		assert.Equal(t, built.Entries[i].ID, loaded.Entries[i].ID)
		assert.Equal(t, built.Entries[i].Hash, loaded.Entries[i].Hash)
		assert.Equal(t, built.Entries[i].Metadata, loaded.Entries[i].Metadata)
		assert.Equal(t, built.Entries[i].Embedding, loaded.Entries[i].Embedding)
	}
}
