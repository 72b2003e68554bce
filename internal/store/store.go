package store

import (
	"context"
	"errors"
	"time"

	"github.com/skarsvik/beautycrawl/internal/types"
)

// Provider is a retailer or brand products are attributed to.
type Provider struct {
	ID        string    `json:"id" bson:"_id"`
	Name      string    `json:"name" bson:"name"`
	Website   string    `json:"website,omitempty" bson:"website,omitempty"`
	Country   string    `json:"country,omitempty" bson:"country,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Product is a persisted product record, keyed by URL: a second save of
// the same URL is rejected with types.ErrDuplicateURL.
type Product struct {
	ID            string    `json:"id" bson:"_id"`
	ProviderID    string    `json:"provider_id" bson:"provider_id"`
	ProviderName  string    `json:"provider_name" bson:"provider_name"`
	Name          string    `json:"name" bson:"name"`
	URL           string    `json:"url,omitempty" bson:"url,omitempty"`
	PriceAmount   *float64  `json:"price_amount,omitempty" bson:"price_amount,omitempty"`
	PriceCurrency string    `json:"price_currency" bson:"price_currency"`
	INCI          []string  `json:"inci,omitempty" bson:"inci,omitempty"`
	Tags          []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	ScrapedAt     time.Time `json:"scraped_at" bson:"scraped_at"`
}

// ProductFilter narrows ListProducts. Zero values mean "no constraint".
type ProductFilter struct {
	ProviderID string
	Query      string
	MinPrice   *float64
	MaxPrice   *float64
	Ingredient string
	Limit      int
	Offset     int
}

// ProviderFilter narrows ListProviders.
type ProviderFilter struct {
	Query  string
	Limit  int
	Offset int
}

// Store is the persistence collaborator: providers are resolved by
// name, products are deduplicated by URL.
type Store interface {
	// EnsureProvider returns the provider with the given name,
	// creating it when absent.
	EnsureProvider(ctx context.Context, name string) (*Provider, error)

	// SaveProduct persists a record under the provider. Fails with
	// types.ErrDuplicateURL when a product with the same URL exists.
	SaveProduct(ctx context.Context, providerID string, rec *types.ProductRecord, tags []string) (*Product, error)

	// GetProductByURL fails with types.ErrNotFound when absent.
	GetProductByURL(ctx context.Context, url string) (*Product, error)

	ListProducts(ctx context.Context, filter ProductFilter) ([]*Product, error)
	ListProviders(ctx context.Context, filter ProviderFilter) ([]*Provider, error)

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Ingest persists extracted records, resolving each record's provider
// by name and skipping URLs already stored. Returns how many products
// were created.
func Ingest(ctx context.Context, st Store, records []*types.ProductRecord, tags []string) (int, error) {
	created := 0
	for _, rec := range records {
		provider, err := st.EnsureProvider(ctx, rec.ProviderName)
		if err != nil {
			return created, err
		}
		if _, err := st.SaveProduct(ctx, provider.ID, rec, tags); err != nil {
			if errors.Is(err, types.ErrDuplicateURL) {
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
