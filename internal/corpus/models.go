package corpus

import "time"

// SimilarProductRef is a compact display stub for a related product, cached on
// the referencing entry so the storefront can render it without another lookup.
type SimilarProductRef struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name,omitempty"`
	URL       string  `json:"url,omitempty"`
	Price     float64 `json:"price,omitempty"`
	Currency  string  `json:"currency,omitempty"`
}

// ProductEntry is a denormalized product snapshot. It is regenerated wholesale
// on every corpus build and carries every field the assistant needs to answer
// about the product without re-querying the catalog. Field names match the
// persisted JSON document shape.
type ProductEntry struct {
	ProductID             string              `json:"product_id"`
	Name                  string              `json:"name"`
	Description           string              `json:"description"`
	Category              string              `json:"category"`
	Price                 float64             `json:"price"`
	Currency              string              `json:"currency"`
	Tags                  []string            `json:"tags"`
	ShopID                string              `json:"shop_id"`
	ShopName              string              `json:"shop_name"`
	OwnerName             string              `json:"owner_name"`
	Location              string              `json:"location"`
	AvgRating             float64             `json:"avg_rating"`
	Reviews               []string            `json:"reviews"`
	SimilarProducts       []string            `json:"similar_products"`
	SimilarProductDetails []SimilarProductRef `json:"similar_product_details"`
	URL                   string              `json:"url"`
	ShopURL               string              `json:"shop_url"`
	Image                 string              `json:"image"`
	InStock               bool                `json:"in_stock"`
	LastUpdated           string              `json:"last_updated"`
}

// ShopEntry is a denormalized shop snapshot, derived from the shop document
// plus the already-built product corpus for that shop.
type ShopEntry struct {
	ShopID        string   `json:"shop_id"`
	Name          string   `json:"name"`
	Owner         string   `json:"owner"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Rating        float64  `json:"rating"`
	TotalProducts int      `json:"total_products"`
	URL           string   `json:"url"`
	TopProducts   []string `json:"top_products"`
}

// ProductCorpus is the persisted product snapshot document.
type ProductCorpus struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Products    []ProductEntry `json:"products"`
}

// ShopCorpus is the persisted shop snapshot document.
type ShopCorpus struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Shops       []ShopEntry `json:"shops"`
}
