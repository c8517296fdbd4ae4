package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"realty/catalog/internal/db"
	"realty/catalog/internal/logging"
	"realty/catalog/internal/models"
	"realty/catalog/internal/search"
)

// FeaturedCount is the size of the featured-listings block.
const FeaturedCount = 6

// ErrListingNotFound is returned for an unknown listing ID.
var ErrListingNotFound = errors.New("listing not found")

// IListingService defines the interface for listing-related operations.
type IListingService interface {
	SearchListings(ctx context.Context, criteria search.Criteria) (*models.ListingPage, error)
	FeaturedListings(ctx context.Context) ([]models.Listing, error)
	FindListingByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error)
	CreateListing(ctx context.Context, in models.ListingInput) (*models.Listing, error)
	ReplaceListing(ctx context.Context, id primitive.ObjectID, in models.ListingInput) (*models.Listing, error)
	PatchListing(ctx context.Context, id primitive.ObjectID, raw []byte) (*models.Listing, error)
	DeleteListing(ctx context.Context, id primitive.ObjectID) error
	AddImageToListing(ctx context.Context, id primitive.ObjectID, imageKey string) error
}

// listingService implements IListingService.
type listingService struct {
	store db.ListingStore
	now   func() time.Time
}

// NewListingService creates a new ListingService on top of store.
func NewListingService(store db.ListingStore) IListingService {
	return &listingService{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// SearchListings runs the translated query for one page plus an unpaginated
// count over the same filter.
func (s *listingService) SearchListings(ctx context.Context, criteria search.Criteria) (*models.ListingPage, error) {
	criteria = criteria.Normalized()
	q := search.Translate(criteria)

	items, err := s.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	total, err := s.store.Count(ctx, q.Filter)
	if err != nil {
		return nil, fmt.Errorf("failed to count listings: %w", err)
	}
	if items == nil {
		items = []models.Listing{}
	}

	logging.Ctx(ctx).Debug().
		Str("criteria", criteria.Encode()).
		Int("returned", len(items)).
		Int64("total", total).
		Msg("listing search")

	return &models.ListingPage{
		Items: items,
		Pagination: models.Pagination{
			CurrentPage: criteria.Page,
			TotalPages:  search.TotalPages(total, criteria.Limit),
			TotalItems:  total,
		},
	}, nil
}

// FeaturedListings returns the most recent active listings.
func (s *listingService) FeaturedListings(ctx context.Context) ([]models.Listing, error) {
	c := search.DefaultCriteria()
	c.Limit = FeaturedCount
	items, err := s.store.Find(ctx, search.Translate(c))
	if err != nil {
		return nil, fmt.Errorf("failed to load featured listings: %w", err)
	}
	if items == nil {
		items = []models.Listing{}
	}
	return items, nil
}

// FindListingByID returns a listing regardless of its status.
func (s *listingService) FindListingByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	listing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return listing, nil
}

// CreateListing persists a new listing; status defaults to active.
func (s *listingService) CreateListing(ctx context.Context, in models.ListingInput) (*models.Listing, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := s.now()
	listing := &models.Listing{CreatedAt: now, UpdatedAt: now}
	in.ApplyTo(listing)

	if err := s.store.Insert(ctx, listing); err != nil {
		return nil, fmt.Errorf("failed to create listing: %w", err)
	}
	logging.Ctx(ctx).Info().Str(logging.FieldListingID, listing.ID.Hex()).Msg("listing created")
	return listing, nil
}

// ReplaceListing overwrites every writable field. CreatedAt is preserved.
func (s *listingService) ReplaceListing(ctx context.Context, id primitive.ObjectID, in models.ListingInput) (*models.Listing, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	return s.save(ctx, existing, in)
}

// PatchListing applies a partial payload on top of the stored listing.
func (s *listingService) PatchListing(ctx context.Context, id primitive.ObjectID, raw []byte) (*models.Listing, error) {
	existing, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFound(err)
	}
	in, err := models.PatchListingInput(models.InputFromListing(existing), raw)
	if err != nil {
		return nil, err
	}
	return s.save(ctx, existing, in)
}

func (s *listingService) save(ctx context.Context, listing *models.Listing, in models.ListingInput) (*models.Listing, error) {
	in.ApplyTo(listing)
	listing.UpdatedAt = s.now()
	if err := s.store.Replace(ctx, listing); err != nil {
		return nil, notFound(err)
	}
	logging.Ctx(ctx).Info().Str(logging.FieldListingID, listing.ID.Hex()).Msg("listing updated")
	return listing, nil
}

// DeleteListing removes the listing permanently.
func (s *listingService) DeleteListing(ctx context.Context, id primitive.ObjectID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return notFound(err)
	}
	logging.Ctx(ctx).Info().Str(logging.FieldListingID, id.Hex()).Msg("listing deleted")
	return nil
}

// AddImageToListing appends a processed image key.
func (s *listingService) AddImageToListing(ctx context.Context, id primitive.ObjectID, imageKey string) error {
	if err := s.store.AddImage(ctx, id, imageKey, s.now()); err != nil {
		return notFound(err)
	}
	return nil
}

// notFound maps the store's missing-document error onto ErrListingNotFound.
func notFound(err error) error {
	if errors.Is(err, db.ErrNoListing) {
		return ErrListingNotFound
	}
	return err
}
