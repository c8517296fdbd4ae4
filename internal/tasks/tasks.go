package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register decoder
	"image/jpeg"
	_ "image/png" // register decoder

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"realty/catalog/internal/config"
	"realty/catalog/internal/logging"
	"realty/catalog/internal/services"
	"realty/catalog/internal/storage"
)

// TaskType defines the type of a background task.
const (
	TypeImageProcess = "image:process"

	QueueImages = "images"
)

// --- Task Client (Enqueuing tasks) ---

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{Addr: opts.Addr, Password: opts.Password, DB: opts.DB}
}

func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// ImageTaskPayload names an uploaded object and the listing it belongs to.
type ImageTaskPayload struct {
	S3Key     string `json:"s3_key"`
	ListingID string `json:"listing_id"`
}

// NewImageProcessTask builds the task that normalizes an uploaded image.
func NewImageProcessTask(listingID primitive.ObjectID, key string) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: key, ListingID: listingID.Hex()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload, asynq.Queue(QueueImages), asynq.MaxRetry(5)), nil
}

// --- Task Server (Processing tasks) ---

// TaskProcessor handles the processing of tasks.
type TaskProcessor struct {
	cfg            *config.Config
	storage        storage.IS3Storage
	listingService services.IListingService
}

func NewTaskProcessor(cfg *config.Config, storageService storage.IS3Storage, listingService services.IListingService) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		storage:        storageService,
		listingService: listingService,
	}
}

// SetupServer configures an Asynq server and its handler mux. The caller runs it.
func SetupServer(rdb *redis.Client, processor *TaskProcessor) (*asynq.Server, *asynq.ServeMux) {
	logger := logging.L().With().Str(logging.FieldService, "img").Logger()
	srv := asynq.NewServer(
		redisOpt(rdb),
		asynq.Config{
			Queues: map[string]int{QueueImages: 1},
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error().Err(err).
					Str("task_type", task.Type()).
					Bytes("payload", task.Payload()).
					Msg("task failed")
			}),
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	return srv, mux
}

// --- Task Handlers ---

// HandleImageProcessTask downloads an uploaded image, shrinks it to the
// configured bounds, writes it back under the same key and attaches the key
// to the listing.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	listingID, err := primitive.ObjectIDFromHex(payload.ListingID)
	if err != nil {
		return fmt.Errorf("invalid listing ID in payload: %w", asynq.SkipRetry)
	}

	log := logging.Ctx(ctx).With().
		Str("key", payload.S3Key).
		Str(logging.FieldListingID, payload.ListingID).
		Logger()
	log.Info().Msg("processing image task")

	imgData, contentType, err := p.storage.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	processed, processedType, err := NormalizeImage(imgData, uint(p.cfg.ImageMaxDimension), maxSizeBytes)
	if err != nil {
		log.Warn().Err(err).Msg("image rejected")
		return err
	}

	if processedType != "" {
		contentType = processedType
		if err := p.storage.PutObject(ctx, payload.S3Key, processed, contentType); err != nil {
			return err
		}
		log.Info().Int("bytes", len(processed)).Msg("stored resized image")
	}

	if err := p.listingService.AddImageToListing(ctx, listingID, payload.S3Key); err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			return fmt.Errorf("listing %s no longer exists: %w", payload.ListingID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to update listing with processed image: %w", err)
	}

	log.Info().Msg("image task processed")
	return nil
}

// NormalizeImage enforces size and dimension limits. It returns the
// re-encoded JPEG and its content type when a resize was needed, or an empty
// content type when data can be kept as is. Limit violations wrap
// asynq.SkipRetry.
func NormalizeImage(data []byte, maxDimension uint, maxSizeBytes int64) ([]byte, string, error) {
	if int64(len(data)) > maxSizeBytes {
		return nil, "", fmt.Errorf("image exceeds max size (%d > %d bytes): %w", len(data), maxSizeBytes, asynq.SkipRetry)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("unsupported image format or corrupt image: %w", asynq.SkipRetry)
	}

	bounds := img.Bounds()
	if uint(bounds.Dx()) <= maxDimension && uint(bounds.Dy()) <= maxDimension {
		return data, "", nil
	}

	resized := resize.Thumbnail(maxDimension, maxDimension, img, resize.Lanczos3)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return nil, "", fmt.Errorf("failed to re-encode resized image: %w", err)
	}
	if int64(buf.Len()) > maxSizeBytes {
		return nil, "", fmt.Errorf("resized image still exceeds max size: %w", asynq.SkipRetry)
	}
	return buf.Bytes(), "image/jpeg", nil
}
