// Package corpus builds denormalized product and shop snapshots from the raw
// catalog. Snapshots are full replacements, not incremental diffs.
package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/omnicart/assistant/internal/catalog"
)

// Config holds the similarity-scoring policy. The weights are product
// decisions carried over from the storefront, kept configurable rather than
// baked in.
type Config struct {
	SharedTagWeight int
	SameShopBonus   int
	MaxSimilar      int
	MaxTopProducts  int
	DefaultCategory string
	Currency        string
}

// DefaultConfig returns the production scoring policy.
func DefaultConfig() Config {
	return Config{
		SharedTagWeight: 2,
		SameShopBonus:   1,
		MaxSimilar:      5,
		MaxTopProducts:  5,
		DefaultCategory: "General",
		Currency:        "USD",
	}
}

// Builder constructs corpora from a catalog store.
type Builder struct {
	store  catalog.Store
	cfg    Config
	logger *slog.Logger
}

// NewBuilder creates a Builder. A nil logger falls back to slog.Default().
func NewBuilder(store catalog.Store, cfg Config, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{store: store, cfg: cfg, logger: logger}
}

// BuildProducts reads all products with their owning shop and produces the
// product corpus, including per-product similarity cross-references.
func (b *Builder) BuildProducts(ctx context.Context) (*ProductCorpus, error) {
	products, err := b.store.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("read products: %w", err)
	}

	entries := make([]ProductEntry, len(products))
	for i, p := range products {
		entries[i] = b.buildProductEntry(p)
	}
	b.crossReference(entries)

	b.logger.Info("Built product corpus", "products", len(entries))
	return &ProductCorpus{
		GeneratedAt: time.Now().UTC(),
		Products:    entries,
	}, nil
}

// BuildShops produces the shop corpus from the shop collection and an
// already-built product corpus. Build order is fixed: products before shops.
func (b *Builder) BuildShops(ctx context.Context, products *ProductCorpus) (*ShopCorpus, error) {
	shops, err := b.store.Shops(ctx)
	if err != nil {
		return nil, fmt.Errorf("read shops: %w", err)
	}

	byShop := make(map[string][]ProductEntry)
	for _, entry := range products.Products {
		if entry.ShopID == "" {
			continue
		}
		byShop[entry.ShopID] = append(byShop[entry.ShopID], entry)
	}

	entries := make([]ShopEntry, len(shops))
	for i, sh := range shops {
		entries[i] = b.buildShopEntry(sh, byShop[sh.ID.Hex()])
	}

	b.logger.Info("Built shop corpus", "shops", len(entries))
	return &ShopCorpus{
		GeneratedAt: time.Now().UTC(),
		Shops:       entries,
	}, nil
}

// BuildAll runs both builds in dependency order.
func (b *Builder) BuildAll(ctx context.Context) (*ProductCorpus, *ShopCorpus, error) {
	productCorpus, err := b.BuildProducts(ctx)
	if err != nil {
		return nil, nil, err
	}
	shopCorpus, err := b.BuildShops(ctx, productCorpus)
	if err != nil {
		return nil, nil, err
	}
	return productCorpus, shopCorpus, nil
}

func (b *Builder) buildProductEntry(p catalog.Product) ProductEntry {
	id := p.ID.Hex()

	category := b.cfg.DefaultCategory
	if len(p.Tags) > 0 {
		category = p.Tags[0]
	}

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	reviews := p.Reviews
	if reviews == nil {
		reviews = []string{}
	}

	updated := p.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}

	entry := ProductEntry{
		ProductID:             id,
		Name:                  p.Title,
		Description:           p.Description,
		Category:              category,
		Price:                 p.Price,
		Currency:              b.cfg.Currency,
		Tags:                  tags,
		AvgRating:             p.Rating,
		Reviews:               reviews,
		SimilarProducts:       []string{},
		SimilarProductDetails: []SimilarProductRef{},
		URL:                   fmt.Sprintf("/products/%s", id),
		Image:                 p.Image,
		InStock:               true,
		LastUpdated:           updated.UTC().Format(time.RFC3339),
	}
	if p.Shop != nil {
		shopID := p.Shop.ID.Hex()
		entry.ShopID = shopID
		entry.ShopName = p.Shop.Name
		entry.OwnerName = p.Shop.OwnerName
		entry.Location = p.Shop.Address
		entry.ShopURL = fmt.Sprintf("/shops/%s", shopID)
	}
	return entry
}

// crossReference fills similar_products on every entry: score each candidate
// as SharedTagWeight x |shared tags| + SameShopBonus when same shop, keep the
// top MaxSimilar with score > 0, ties broken by input order.
func (b *Builder) crossReference(entries []ProductEntry) {
	byID := make(map[string]*ProductEntry, len(entries))
	for i := range entries {
		byID[entries[i].ProductID] = &entries[i]
	}

	for i := range entries {
		entry := &entries[i]
		tagSet := make(map[string]struct{}, len(entry.Tags))
		for _, tag := range entry.Tags {
			tagSet[tag] = struct{}{}
		}

		type scored struct {
			id    string
			score int
		}
		var candidates []scored
		for j := range entries {
			candidate := &entries[j]
			if candidate.ProductID == entry.ProductID {
				continue
			}
			shared := 0
			for _, tag := range candidate.Tags {
				if _, ok := tagSet[tag]; ok {
					shared++
				}
			}
			score := shared * b.cfg.SharedTagWeight
			if candidate.ShopID != "" && candidate.ShopID == entry.ShopID {
				score += b.cfg.SameShopBonus
			}
			if score > 0 {
				candidates = append(candidates, scored{id: candidate.ProductID, score: score})
			}
		}

		sort.SliceStable(candidates, func(a, c int) bool {
			return candidates[a].score > candidates[c].score
		})
		if len(candidates) > b.cfg.MaxSimilar {
			candidates = candidates[:b.cfg.MaxSimilar]
		}

		entry.SimilarProducts = make([]string, 0, len(candidates))
		entry.SimilarProductDetails = make([]SimilarProductRef, 0, len(candidates))
		for _, c := range candidates {
			entry.SimilarProducts = append(entry.SimilarProducts, c.id)
			ref := SimilarProductRef{ProductID: c.id}
			if match := byID[c.id]; match != nil {
				ref.Name = match.Name
				ref.URL = match.URL
				ref.Price = match.Price
				ref.Currency = match.Currency
			}
			entry.SimilarProductDetails = append(entry.SimilarProductDetails, ref)
		}
	}
}

func (b *Builder) buildShopEntry(sh catalog.Shop, products []ProductEntry) ShopEntry {
	id := sh.ID.Hex()

	var rating float64
	if len(products) > 0 {
		sum := 0.0
		for _, p := range products {
			sum += p.AvgRating
		}
		rating = math.Round(sum/float64(len(products))*100) / 100
	}

	ranked := make([]ProductEntry, len(products))
	copy(ranked, products)
	sort.SliceStable(ranked, func(a, c int) bool {
		return ranked[a].AvgRating > ranked[c].AvgRating
	})
	if len(ranked) > b.cfg.MaxTopProducts {
		ranked = ranked[:b.cfg.MaxTopProducts]
	}
	top := make([]string, 0, len(ranked))
	for _, p := range ranked {
		top = append(top, p.ProductID)
	}

	description := sh.Description
	if description == "" {
		description = fmt.Sprintf("Trusted retailer operated by %s located at %s.", sh.OwnerName, sh.Address)
	}

	return ShopEntry{
		ShopID:        id,
		Name:          sh.Name,
		Owner:         sh.OwnerName,
		Description:   description,
		Location:      sh.Address,
		Rating:        rating,
		TotalProducts: len(products),
		URL:           fmt.Sprintf("/shops/%s", id),
		TopProducts:   top,
	}
}
