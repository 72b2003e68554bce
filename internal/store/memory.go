package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/skarsvik/beautycrawl/internal/types"
)

// MemoryStore keeps everything in process memory. Used when no MongoDB
// is configured and throughout the tests.
type MemoryStore struct {
	mu        sync.RWMutex
	providers map[string]*Provider // keyed by name
	products  []*Product
	byURL     map[string]*Product
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		providers: make(map[string]*Provider),
		byURL:     make(map[string]*Product),
	}
}

func (s *MemoryStore) EnsureProvider(_ context.Context, name string) (*Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.providers[name]; ok {
		return p, nil
	}
	p := &Provider{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	s.providers[name] = p
	return p, nil
}

func (s *MemoryStore) SaveProduct(_ context.Context, providerID string, rec *types.ProductRecord, tags []string) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.URL != "" {
		if _, exists := s.byURL[rec.URL]; exists {
			return nil, fmt.Errorf("%w: %s", types.ErrDuplicateURL, rec.URL)
		}
	}

	product := &Product{
		ID:            uuid.NewString(),
		ProviderID:    providerID,
		ProviderName:  rec.ProviderName,
		Name:          rec.Name,
		URL:           rec.URL,
		PriceAmount:   rec.PriceAmount,
		PriceCurrency: rec.PriceCurrency,
		INCI:          rec.INCI,
		Tags:          tags,
		ScrapedAt:     time.Now().UTC(),
	}
	s.products = append(s.products, product)
	if rec.URL != "" {
		s.byURL[rec.URL] = product
	}
	return product, nil
}

func (s *MemoryStore) GetProductByURL(_ context.Context, url string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.byURL[url]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%w: %s", types.ErrNotFound, url)
}

func (s *MemoryStore) ListProducts(_ context.Context, filter ProductFilter) ([]*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Product
	for _, p := range s.products {
		if filter.ProviderID != "" && p.ProviderID != filter.ProviderID {
			continue
		}
		if filter.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Query)) {
			continue
		}
		if filter.MinPrice != nil && (p.PriceAmount == nil || *p.PriceAmount < *filter.MinPrice) {
			continue
		}
		if filter.MaxPrice != nil && (p.PriceAmount == nil || *p.PriceAmount > *filter.MaxPrice) {
			continue
		}
		if filter.Ingredient != "" && !containsIngredient(p.INCI, filter.Ingredient) {
			continue
		}
		matched = append(matched, p)
	}

	return paginate(matched, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) ListProviders(_ context.Context, filter ProviderFilter) ([]*Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*Provider
	for _, p := range s.providers {
		if filter.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Query)) {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	return paginate(matched, filter.Limit, filter.Offset), nil
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func containsIngredient(inci []string, ingredient string) bool {
	needle := strings.ToLower(ingredient)
	for _, i := range inci {
		if strings.Contains(strings.ToLower(i), needle) {
			return true
		}
	}
	return false
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
