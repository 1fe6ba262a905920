// Package knowledge flattens corpus snapshots into retrievable entries and
// maintains the embedded knowledge index.
package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/omnicart/assistant/internal/corpus"
)

// Entry kinds.
const (
	KindProduct = "product"
	KindShop    = "shop"
)

// EntryMetadata carries the display fields needed to answer about an entry
// without re-querying the catalog. Product and shop entries populate
// different subsets.
type EntryMetadata struct {
	ID              string                     `json:"id"`
	Name            string                     `json:"name"`
	URL             string                     `json:"url"`
	Price           float64                    `json:"price,omitempty"`
	Currency        string                     `json:"currency,omitempty"`
	Image           string                     `json:"image,omitempty"`
	InStock         bool                       `json:"in_stock"`
	Rating          float64                    `json:"rating,omitempty"`
	Tags            []string                   `json:"tags,omitempty"`
	Category        string                     `json:"category,omitempty"`
	ShopID          string                     `json:"shop_id,omitempty"`
	ShopName        string                     `json:"shop_name,omitempty"`
	ShopURL         string                     `json:"shop_url,omitempty"`
	Owner           string                     `json:"owner,omitempty"`
	Location        string                     `json:"location,omitempty"`
	SimilarProducts []corpus.SimilarProductRef `json:"similar_products,omitempty"`
	TopProducts     []string                   `json:"top_products,omitempty"`
}

// Entry is one retrievable unit: a product or shop in flattened text form.
// The hash is computed over the source snapshot, so formatting changes to the
// flattened text never force re-embedding.
type Entry struct {
	ID       string        `json:"id"`
	Kind     string        `json:"type"`
	Metadata EntryMetadata `json:"metadata"`
	Text     string        `json:"text"`
	Hash     string        `json:"hash"`
}

// NewProductEntry flattens a product snapshot into a knowledge entry.
func NewProductEntry(p corpus.ProductEntry) Entry {
	shopLabel := "Unknown (N/A)"
	if p.ShopName != "" {
		shopLabel = fmt.Sprintf("%s (%s)", p.ShopName, p.ShopID)
	}
	similar := make([]string, 0, len(p.SimilarProductDetails))
	for _, ref := range p.SimilarProductDetails {
		name := ref.Name
		if name == "" {
			name = ref.ProductID
		}
		url := ref.URL
		if url == "" {
			url = ref.ProductID
		}
		similar = append(similar, fmt.Sprintf("%s (%s)", name, url))
	}

	lines := []string{
		"Product Name: " + p.Name,
		"Product ID: " + p.ProductID,
		"Description: " + p.Description,
		"Category: " + p.Category,
		fmt.Sprintf("Price: %s %s", formatNumber(p.Price), p.Currency),
		"Tags: " + strings.Join(p.Tags, ", "),
		"Shop: " + shopLabel,
		"Owner: " + defaultIfEmpty(p.OwnerName, "Unknown"),
		"Location: " + defaultIfEmpty(p.Location, "Unknown"),
		"Average Rating: " + formatNumber(p.AvgRating),
		"Reviews: " + defaultIfEmpty(strings.Join(p.Reviews, " | "), "No reviews available."),
		"Similar Products: " + defaultIfEmpty(strings.Join(similar, ", "), "None listed."),
		"URL: " + p.URL,
		"In Stock: " + yesNo(p.InStock),
		"Last Updated: " + p.LastUpdated,
	}

	return Entry{
		ID:   KindProduct + ":" + p.ProductID,
		Kind: KindProduct,
		Metadata: EntryMetadata{
			ID:              p.ProductID,
			Name:            p.Name,
			URL:             p.URL,
			Price:           p.Price,
			Currency:        p.Currency,
			Image:           p.Image,
			InStock:         p.InStock,
			Rating:          p.AvgRating,
			Tags:            p.Tags,
			Category:        p.Category,
			ShopID:          p.ShopID,
			ShopName:        p.ShopName,
			ShopURL:         p.ShopURL,
			SimilarProducts: p.SimilarProductDetails,
		},
		Text: strings.Join(lines, "\n"),
		Hash: hashSnapshot(p),
	}
}

// NewShopEntry flattens a shop snapshot into a knowledge entry.
func NewShopEntry(s corpus.ShopEntry) Entry {
	lines := []string{
		"Shop Name: " + s.Name,
		"Shop ID: " + s.ShopID,
		"Owner: " + s.Owner,
		"Description: " + s.Description,
		"Location: " + s.Location,
		"Rating: " + formatNumber(s.Rating),
		"Total Products: " + strconv.Itoa(s.TotalProducts),
		"Top Products: " + defaultIfEmpty(strings.Join(s.TopProducts, ", "), "No products listed."),
		"URL: " + s.URL,
	}

	return Entry{
		ID:   KindShop + ":" + s.ShopID,
		Kind: KindShop,
		Metadata: EntryMetadata{
			ID:          s.ShopID,
			Name:        s.Name,
			URL:         s.URL,
			Owner:       s.Owner,
			Location:    s.Location,
			Rating:      s.Rating,
			TopProducts: s.TopProducts,
		},
		Text: strings.Join(lines, "\n"),
		Hash: hashSnapshot(s),
	}
}

// BuildEntries flattens both corpora into the full knowledge entry set,
// products first.
func BuildEntries(products *corpus.ProductCorpus, shops *corpus.ShopCorpus) []Entry {
	entries := make([]Entry, 0, len(products.Products)+len(shops.Shops))
	for _, p := range products.Products {
		entries = append(entries, NewProductEntry(p))
	}
	for _, s := range shops.Shops {
		entries = append(entries, NewShopEntry(s))
	}
	return entries
}

// hashSnapshot hashes the canonical JSON of the source snapshot. Struct field
// order makes the encoding deterministic.
func hashSnapshot(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// Snapshot structs contain only marshalable fields.
		panic(fmt.Sprintf("marshal snapshot: %v", err))
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func defaultIfEmpty(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
