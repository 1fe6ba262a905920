package catalog

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	productsCollection = "products"
	shopsCollection    = "shops"
)

// MongoStore reads the catalog from MongoDB.
type MongoStore struct {
	client   *mongo.Client
	products *mongo.Collection
	shops    *mongo.Collection
}

// NewMongoStore connects to MongoDB and verifies the connection with a ping.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnreachable, err)
	}
	db := client.Database(dbName)
	return &MongoStore{
		client:   client,
		products: db.Collection(productsCollection),
		shops:    db.Collection(shopsCollection),
	}, nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Products loads all products and joins each with its owning shop.
func (s *MongoStore) Products(ctx context.Context) ([]Product, error) {
	shops, err := s.Shops(ctx)
	if err != nil {
		return nil, err
	}
	shopsByID := make(map[string]*Shop, len(shops))
	for i := range shops {
		shopsByID[shops[i].ID.Hex()] = &shops[i]
	}

	cursor, err := s.products.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []Product
	for cursor.Next(ctx) {
		var p Product
		if err := cursor.Decode(&p); err != nil {
			return nil, fmt.Errorf("decode product: %w", err)
		}
		p.Shop = shopsByID[p.ShopID.Hex()]
		products = append(products, p)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}
	return products, nil
}

// Shops loads all shops.
func (s *MongoStore) Shops(ctx context.Context) ([]Shop, error) {
	cursor, err := s.shops.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("find shops: %w", err)
	}
	defer cursor.Close(ctx)

	var shops []Shop
	for cursor.Next(ctx) {
		var sh Shop
		if err := cursor.Decode(&sh); err != nil {
			return nil, fmt.Errorf("decode shop: %w", err)
		}
		shops = append(shops, sh)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate shops: %w", err)
	}
	return shops, nil
}
