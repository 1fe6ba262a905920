// Package retrieval gathers candidate knowledge entries for a query by two
// paths: deterministic keyword/shop matching against entry metadata, and
// cosine-similarity ranking against the embedding index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/omnicart/assistant/internal/embedding"
	"github.com/omnicart/assistant/internal/knowledge"
	"github.com/omnicart/assistant/internal/query"
)

// ErrQueryEmbedding marks a failure to embed the query text, so the caller
// can map it to the embedding-error fallback reply.
var ErrQueryEmbedding = errors.New("query embedding failed")

// Config holds retrieval policy. RelevanceThreshold is a product decision
// carried from the storefront, kept configurable.
type Config struct {
	RelevanceThreshold float64
	SemanticTopK       int
	KeywordCap         int
	DisplayCap         int
}

// DefaultConfig returns the production retrieval policy.
func DefaultConfig() Config {
	return Config{
		RelevanceThreshold: 0.2,
		SemanticTopK:       5,
		KeywordCap:         3,
		DisplayCap:         5,
	}
}

// Product is a display-ready product suggestion returned to the shopper.
type Product struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Price    float64 `json:"price"`
	Currency string  `json:"currency"`
	Image    string  `json:"image,omitempty"`
	InStock  bool    `json:"inStock"`
	Rating   float64 `json:"rating"`
	ShopID   string  `json:"shopId,omitempty"`
	ShopName string  `json:"shopName,omitempty"`
	ShopURL  string  `json:"shopUrl,omitempty"`
}

// Shop is a display-ready shop suggestion, derived from the matched products.
type Shop struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Result is the combined outcome of both retrieval paths.
type Result struct {
	// Products are the final deduplicated product suggestions, capped for
	// display.
	Products []Product
	// Shops are the owning shops of the final products, deduplicated.
	Shops []Shop
	// ContextEntries ground the model: semantically relevant entries plus the
	// entries backing the final product picks.
	ContextEntries []knowledge.Entry
}

// Retriever ranks knowledge entries for shopper queries.
type Retriever struct {
	provider embedding.Provider
	cfg      Config
}

// NewRetriever creates a Retriever using the same embedding provider as the
// index, so query and entry vectors are comparable.
func NewRetriever(provider embedding.Provider, cfg Config) *Retriever {
	return &Retriever{provider: provider, cfg: cfg}
}

// Retrieve runs both candidate paths over the index and merges the results.
// A query-embedding failure is reported as ErrQueryEmbedding.
func (r *Retriever) Retrieve(ctx context.Context, qctx query.Context, idx *knowledge.Index) (*Result, error) {
	queryVector, err := r.provider.Embed(ctx, qctx.Message)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryEmbedding, err)
	}

	scored := r.rankBySimilarity(queryVector, idx.Entries)

	var relevant []knowledge.Entry
	for _, s := range scored {
		if s.score > r.cfg.RelevanceThreshold {
			relevant = append(relevant, s.record.Entry)
		}
	}

	// Keyword/shop path: high precision, capped.
	var picked []knowledge.Record
	if qctx.ShopPhrase != "" {
		picked = matchProductsByShop(idx.Entries, qctx.ShopPhrase, qctx.Keywords, r.cfg.KeywordCap)
	} else if qctx.WantsListing && len(qctx.Keywords) > 0 {
		picked = matchProductsByKeywords(idx.Entries, qctx.Keywords, r.cfg.KeywordCap)
	}

	// Semantic fallback: when the keyword path found nothing, the single
	// highest-scoring product becomes the sole suggestion.
	if len(picked) == 0 {
		for _, s := range scored {
			if s.record.Kind == knowledge.KindProduct {
				picked = append(picked, s.record)
				break
			}
		}
	}

	result := &Result{}

	seenProducts := make(map[string]struct{})
	pickedEntries := make(map[string]knowledge.Entry)
	for _, rec := range picked {
		if _, dup := seenProducts[rec.Metadata.ID]; dup {
			continue
		}
		seenProducts[rec.Metadata.ID] = struct{}{}
		result.Products = append(result.Products, productFromMetadata(rec.Metadata))
		pickedEntries[rec.ID] = rec.Entry
	}
	if len(result.Products) > r.cfg.DisplayCap {
		result.Products = result.Products[:r.cfg.DisplayCap]
	}

	seenShops := make(map[string]struct{})
	for _, p := range result.Products {
		if p.ShopID == "" {
			continue
		}
		if _, dup := seenShops[p.ShopID]; dup {
			continue
		}
		seenShops[p.ShopID] = struct{}{}
		shopName := p.ShopName
		if shopName == "" {
			shopName = "Shop"
		}
		shopURL := p.ShopURL
		if shopURL == "" {
			shopURL = "/shops/" + p.ShopID
		}
		result.Shops = append(result.Shops, Shop{ID: p.ShopID, Name: shopName, URL: shopURL})
	}
	if len(result.Shops) > r.cfg.DisplayCap {
		result.Shops = result.Shops[:r.cfg.DisplayCap]
	}

	// Context entries: union of semantic-relevant entries and the entries
	// behind the final picks, in that order.
	seenContext := make(map[string]struct{})
	for _, entry := range relevant {
		if _, dup := seenContext[entry.ID]; dup {
			continue
		}
		seenContext[entry.ID] = struct{}{}
		result.ContextEntries = append(result.ContextEntries, entry)
	}
	for _, rec := range picked {
		if _, dup := seenContext[rec.ID]; dup {
			continue
		}
		seenContext[rec.ID] = struct{}{}
		result.ContextEntries = append(result.ContextEntries, rec.Entry)
	}

	return result, nil
}

type scoredRecord struct {
	record knowledge.Record
	score  float64
}

// rankBySimilarity scores every entry with a stored vector and keeps the
// top SemanticTopK by score descending.
func (r *Retriever) rankBySimilarity(queryVector []float32, records []knowledge.Record) []scoredRecord {
	scored := make([]scoredRecord, 0, len(records))
	for _, rec := range records {
		if len(rec.Embedding) == 0 {
			continue
		}
		scored = append(scored, scoredRecord{
			record: rec,
			score:  CosineSimilarity(queryVector, rec.Embedding),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})
	if len(scored) > r.cfg.SemanticTopK {
		scored = scored[:r.cfg.SemanticTopK]
	}
	return scored
}

// CosineSimilarity computes dot(a,b) / (|a| * |b|). Returns 0 when either
// vector has zero magnitude, guarding the divide-by-zero instead of raising.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, magA, magB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
	}
	for _, v := range a {
		magA += float64(v) * float64(v)
	}
	for _, v := range b {
		magB += float64(v) * float64(v)
	}
	if magA == 0 || magB == 0 {
		return 0
	}
	return dot / (math.Sqrt(magA) * math.Sqrt(magB))
}

func matchProductsByShop(records []knowledge.Record, shopPhrase string, keywords []string, limit int) []knowledge.Record {
	normalized := strings.ToLower(shopPhrase)
	var matches []knowledge.Record
	for _, rec := range records {
		if rec.Kind != knowledge.KindProduct {
			continue
		}
		if !strings.Contains(strings.ToLower(rec.Metadata.ShopName), normalized) {
			continue
		}
		if !metadataMatchesKeywords(rec.Metadata, keywords) {
			continue
		}
		matches = append(matches, rec)
		if len(matches) == limit {
			break
		}
	}
	return matches
}

func matchProductsByKeywords(records []knowledge.Record, keywords []string, limit int) []knowledge.Record {
	var matches []knowledge.Record
	for _, rec := range records {
		if rec.Kind != knowledge.KindProduct {
			continue
		}
		if !metadataMatchesKeywords(rec.Metadata, keywords) {
			continue
		}
		matches = append(matches, rec)
		if len(matches) == limit {
			break
		}
	}
	return matches
}

// metadataMatchesKeywords checks whether the product's name, tags, or
// category contain any keyword. With no keywords every product passes.
func metadataMatchesKeywords(meta knowledge.EntryMetadata, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	parts := []string{meta.Name}
	parts = append(parts, meta.Tags...)
	parts = append(parts, meta.Category)
	haystack := strings.ToLower(strings.Join(parts, " "))
	for _, keyword := range keywords {
		if strings.Contains(haystack, keyword) {
			return true
		}
	}
	return false
}

func productFromMetadata(meta knowledge.EntryMetadata) Product {
	url := meta.URL
	if url == "" {
		url = "/products/" + meta.ID
	}
	name := meta.Name
	if name == "" {
		name = "Product"
	}
	return Product{
		ID:       meta.ID,
		Name:     name,
		URL:      url,
		Price:    meta.Price,
		Currency: meta.Currency,
		Image:    meta.Image,
		InStock:  meta.InStock,
		Rating:   meta.Rating,
		ShopID:   meta.ShopID,
		ShopName: meta.ShopName,
		ShopURL:  meta.ShopURL,
	}
}
