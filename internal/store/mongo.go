package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/skarsvik/beautycrawl/internal/config"
	"github.com/skarsvik/beautycrawl/internal/types"
)

// MongoStore persists providers and products in MongoDB.
type MongoStore struct {
	client    *mongo.Client
	providers *mongo.Collection
	products  *mongo.Collection
	logger    *slog.Logger
}

// NewMongoStore connects to MongoDB and prepares the collections and
// their indexes.
func NewMongoStore(cfg *config.Config, logger *slog.Logger) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Storage.URI))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}

	db := client.Database(cfg.Storage.Database)
	s := &MongoStore{
		client:    client,
		providers: db.Collection("providers"),
		products:  db.Collection(cfg.Storage.Collection),
		logger:    logger.With("component", "mongo_store"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.providers.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("provider index: %w", err)
	}

	_, err = s.products.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "url", Value: 1}},
		Options: options.Index().
			SetUnique(true).
			SetPartialFilterExpression(bson.D{{Key: "url", Value: bson.D{{Key: "$type", Value: "string"}}}}),
	})
	if err != nil {
		return fmt.Errorf("product index: %w", err)
	}
	return nil
}

// EnsureProvider returns the provider with the given name, creating it
// on first use.
func (s *MongoStore) EnsureProvider(ctx context.Context, name string) (*Provider, error) {
	var existing Provider
	err := s.providers.FindOne(ctx, bson.M{"name": name}).Decode(&existing)
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("provider lookup: %w", err)
	}

	provider := &Provider{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.providers.InsertOne(ctx, provider); err != nil {
		// Lost a race with a concurrent insert of the same name.
		if mongo.IsDuplicateKeyError(err) {
			var winner Provider
			if ferr := s.providers.FindOne(ctx, bson.M{"name": name}).Decode(&winner); ferr == nil {
				return &winner, nil
			}
		}
		return nil, fmt.Errorf("provider insert: %w", err)
	}

	s.logger.Debug("provider created", "name", name, "id", provider.ID)
	return provider, nil
}

// SaveProduct persists a record. A URL already present in the
// collection fails with types.ErrDuplicateURL.
func (s *MongoStore) SaveProduct(ctx context.Context, providerID string, rec *types.ProductRecord, tags []string) (*Product, error) {
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

	if rec.URL != "" {
		count, err := s.products.CountDocuments(ctx, bson.M{"url": rec.URL})
		if err != nil {
			return nil, fmt.Errorf("product lookup: %w", err)
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: %s", types.ErrDuplicateURL, rec.URL)
		}
	}

	if _, err := s.products.InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", types.ErrDuplicateURL, rec.URL)
		}
		return nil, fmt.Errorf("product insert: %w", err)
	}
	return product, nil
}

// GetProductByURL looks a product up by its source URL.
func (s *MongoStore) GetProductByURL(ctx context.Context, url string) (*Product, error) {
	var product Product
	err := s.products.FindOne(ctx, bson.M{"url": url}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, url)
	}
	if err != nil {
		return nil, fmt.Errorf("product lookup: %w", err)
	}
	return &product, nil
}

// ListProducts applies the filter and returns matching products.
func (s *MongoStore) ListProducts(ctx context.Context, filter ProductFilter) ([]*Product, error) {
	query := bson.M{}
	if filter.ProviderID != "" {
		query["provider_id"] = filter.ProviderID
	}
	if filter.Query != "" {
		query["name"] = bson.M{"$regex": filter.Query, "$options": "i"}
	}
	price := bson.M{}
	if filter.MinPrice != nil {
		price["$gte"] = *filter.MinPrice
	}
	if filter.MaxPrice != nil {
		price["$lte"] = *filter.MaxPrice
	}
	if len(price) > 0 {
		query["price_amount"] = price
	}
	if filter.Ingredient != "" {
		query["inci"] = bson.M{"$regex": filter.Ingredient, "$options": "i"}
	}

	limit := int64(filter.Limit)
	if limit <= 0 {
		limit = 50
	}
	skip := int64(filter.Offset)
	if skip < 0 {
		skip = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scraped_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip)

	cursor, err := s.products.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("product list: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*Product
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("product decode: %w", err)
	}
	return out, nil
}

// ListProviders applies the filter and returns matching providers.
func (s *MongoStore) ListProviders(ctx context.Context, filter ProviderFilter) ([]*Provider, error) {
	query := bson.M{}
	if filter.Query != "" {
		query["name"] = bson.M{"$regex": filter.Query, "$options": "i"}
	}

	limit := int64(filter.Limit)
	if limit <= 0 {
		limit = 50
	}
	skip := int64(filter.Offset)
	if skip < 0 {
		skip = 0
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(limit).
		SetSkip(skip)

	cursor, err := s.providers.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("provider list: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*Provider
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("provider decode: %w", err)
	}
	return out, nil
}

// Ping verifies the MongoDB connection.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects from MongoDB.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
