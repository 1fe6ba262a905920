// Package catalog provides read access to the marketplace product and shop
// collections for corpus building.
package catalog

import (
	"context"
	"errors"
)

var ErrStoreUnreachable = errors.New("catalog store unreachable")

// Store reads the current catalog. Implementations join each product with its
// owning shop so downstream consumers never re-query the catalog.
type Store interface {
	// Products returns all products with their Shop field populated when the
	// owning shop exists.
	Products(ctx context.Context) ([]Product, error)
	// Shops returns all shops.
	Shops(ctx context.Context) ([]Shop, error)
}
