package catalog

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store used by tests and local seeding.
type MemoryStore struct {
	mu       sync.RWMutex
	products []Product
	shops    []Shop
	err      error
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

// SetCatalog replaces the stored products and shops wholesale.
func (s *MemoryStore) SetCatalog(products []Product, shops []Shop) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.shops = shops
}

// SetError makes every subsequent read fail with err. Pass nil to clear.
func (s *MemoryStore) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemoryStore) Products(ctx context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	shopsByID := make(map[string]*Shop, len(s.shops))
	for i := range s.shops {
		shopsByID[s.shops[i].ID.Hex()] = &s.shops[i]
	}
	out := make([]Product, len(s.products))
	for i, p := range s.products {
		p.Shop = shopsByID[p.ShopID.Hex()]
		out[i] = p
	}
	return out, nil
}

func (s *MemoryStore) Shops(ctx context.Context) ([]Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]Shop, len(s.shops))
	copy(out, s.shops)
	return out, nil
}
