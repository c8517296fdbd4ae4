package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"realty/catalog/internal/models"
	"realty/catalog/internal/search"
)

const ListingsCollection = "properties"

// ErrNoListing is returned when no document matches the given ID.
var ErrNoListing = errors.New("listing not found")

// ListingStore is the document-store contract the listing service runs on.
type ListingStore interface {
	Find(ctx context.Context, q search.Query) ([]models.Listing, error)
	Count(ctx context.Context, filter bson.D) (int64, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	Insert(ctx context.Context, listing *models.Listing) error
	Replace(ctx context.Context, listing *models.Listing) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddImage(ctx context.Context, id primitive.ObjectID, key string, at time.Time) error
}

type mongoListingStore struct {
	coll *mongo.Collection
}

// NewListingStore returns a ListingStore over the properties collection of database.
func NewListingStore(database *mongo.Database) ListingStore {
	return &mongoListingStore{coll: database.Collection(ListingsCollection)}
}

func (s *mongoListingStore) Find(ctx context.Context, q search.Query) ([]models.Listing, error) {
	opts := options.Find().SetSort(q.Sort).SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}
	cursor, err := s.coll.Find(ctx, q.Filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute listing query: %w", err)
	}
	defer cursor.Close(ctx)

	results := []models.Listing{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, fmt.Errorf("failed to decode listing query results: %w", err)
	}
	return results, nil
}

func (s *mongoListingStore) Count(ctx context.Context, filter bson.D) (int64, error) {
	n, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

func (s *mongoListingStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	var listing models.Listing
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&listing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoListing
		}
		return nil, fmt.Errorf("error finding listing by ID %s: %w", id.Hex(), err)
	}
	return &listing, nil
}

// Insert assigns a fresh ID on every attempt.
func (s *mongoListingStore) Insert(ctx context.Context, listing *models.Listing) error {
	err := Try(func() error {
		listing.ID = primitive.NewObjectID()
		_, err := s.coll.InsertOne(ctx, listing)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to insert listing after retries: %w", err)
	}
	return nil
}

func (s *mongoListingStore) Replace(ctx context.Context, listing *models.Listing) error {
	res, err := s.coll.ReplaceOne(ctx, bson.M{"_id": listing.ID}, listing)
	if err != nil {
		return fmt.Errorf("failed to replace listing %s: %w", listing.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNoListing
	}
	return nil
}

func (s *mongoListingStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete listing %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return ErrNoListing
	}
	return nil
}

func (s *mongoListingStore) AddImage(ctx context.Context, id primitive.ObjectID, key string, at time.Time) error {
	update := bson.M{
		"$addToSet": bson.M{"images": key},
		"$set":      bson.M{"updatedAt": at},
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to add image to listing %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return ErrNoListing
	}
	return nil
}
