package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"realty/catalog/internal/models"
	"realty/catalog/internal/search"
)

// --- Mocks ---

// MockListingService
type MockListingService struct {
	mock.Mock
}

func (m *MockListingService) SearchListings(ctx context.Context, criteria search.Criteria) (*models.ListingPage, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListingPage), args.Error(1)
}

func (m *MockListingService) FeaturedListings(ctx context.Context) ([]models.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Listing), args.Error(1)
}

func (m *MockListingService) FindListingByID(ctx context.Context, id primitive.ObjectID) (*models.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) CreateListing(ctx context.Context, in models.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) ReplaceListing(ctx context.Context, id primitive.ObjectID, in models.ListingInput) (*models.Listing, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) PatchListing(ctx context.Context, id primitive.ObjectID, raw []byte) (*models.Listing, error) {
	args := m.Called(ctx, id, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Listing), args.Error(1)
}

func (m *MockListingService) DeleteListing(ctx context.Context, id primitive.ObjectID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockListingService) AddImageToListing(ctx context.Context, id primitive.ObjectID, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

// MockStorage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GeneratePresignedPutURL(ctx context.Context, listingID, contentType string) (string, string, error) {
	args := m.Called(ctx, listingID, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, "", args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockStorage) PublicURL(key string) string {
	return m.Called(key).String(0)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
