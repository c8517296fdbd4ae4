package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"realty/catalog/internal/logging"
)

// ConnectDB initializes and returns a MongoDB client and database instance.
func ConnectDB(uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	ctxPing, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelPing()
	if err := client.Ping(ctxPing, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logging.L().Info().Str("database", dbName).Msg("connected to MongoDB")
	return client, client.Database(dbName), nil
}

// DisconnectDB closes the MongoDB client connection.
func DisconnectDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect MongoDB: %w", err)
	}
	logging.L().Info().Msg("MongoDB connection closed")
	return nil
}

// EnsureIndexes creates the indexes backing the default search and each sort key.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "area", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "rooms", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "pricePerMeter", Value: 1}}},
		{Keys: bson.D{{Key: "dealType", Value: 1}, {Key: "category", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "features", Value: 1}}},
	}
	names, err := database.Collection(ListingsCollection).Indexes().CreateMany(ctx, models)
	if err != nil {
		return fmt.Errorf("failed to create listing indexes: %w", err)
	}
	logging.L().Debug().Strs("indexes", names).Msg("listing indexes ensured")
	return nil
}
