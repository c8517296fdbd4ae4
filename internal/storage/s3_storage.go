package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"realty/catalog/internal/config"
	"realty/catalog/internal/logging"
)

var (
	ErrObjectNotFound         = errors.New("object not found")
	ErrUnsupportedContentType = errors.New("unsupported image content type")
)

// ImageContentTypes maps accepted upload content types to key extensions.
var ImageContentTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

// IS3Storage defines the interface for S3 operations.
type IS3Storage interface {
	GeneratePresignedPutURL(ctx context.Context, listingID, contentType string) (url string, key string, err error)
	GetObject(ctx context.Context, key string) ([]byte, string, error)
	PutObject(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(key string) string
}

// s3Storage implements IS3Storage.
type s3Storage struct {
	cfg           *config.Config
	s3Client      *s3.Client
	presignClient *s3.PresignClient
}

// NewS3Storage creates a new S3 storage service.
func NewS3Storage(cfg *config.Config) (IS3Storage, error) {
	opts := []func(*aws_config.LoadOptions) error{aws_config.WithRegion(cfg.AwsRegion)}
	if cfg.AwsAccessKeyID != "" {
		opts = append(opts, aws_config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AwsAccessKeyID,
			cfg.AwsSecretAccessKey,
			"", // session token
		)))
	}
	awsCfg, err := aws_config.LoadDefaultConfig(context.TODO(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		// S3-compatible stores such as MinIO.
		if cfg.AwsS3Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.AwsS3Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Storage{
		cfg:           cfg,
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
	}, nil
}

// ObjectKey builds the storage key for a new image of listingID.
func ObjectKey(listingID, contentType string) (string, error) {
	ext, ok := ImageContentTypes[contentType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}
	return path.Join("listings", listingID, uuid.NewString()+ext), nil
}

// GeneratePresignedPutURL creates a pre-signed URL for uploading an object.
// It returns the URL and the generated S3 object key.
func (s *s3Storage) GeneratePresignedPutURL(ctx context.Context, listingID, contentType string) (string, string, error) {
	objectKey, err := ObjectKey(listingID, contentType)
	if err != nil {
		return "", "", err
	}

	expiration := s.cfg.ImageUploadURLTTL
	if expiration <= 0 {
		expiration = 15 * time.Minute
	}

	presignedReq, err := s.presignClient.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(objectKey),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expiration))
	if err != nil {
		return "", "", fmt.Errorf("failed to generate presigned PUT URL for key %s: %w", objectKey, err)
	}

	logging.Ctx(ctx).Debug().Str("key", objectKey).Msg("generated presigned upload URL")
	return presignedReq.URL, objectKey, nil
}

// GetObject downloads key and returns its body and content type.
func (s *s3Storage) GetObject(ctx context.Context, key string) ([]byte, string, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.AwsS3Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, "", fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, "", fmt.Errorf("failed to download %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, aws.ToString(out.ContentType), nil
}

// PutObject uploads data under key, overwriting any existing object.
func (s *s3Storage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.cfg.AwsS3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	return nil
}

// PublicURL resolves a stored key against IMAGE_BASE_S3_URL.
func (s *s3Storage) PublicURL(key string) string {
	return JoinURL(s.cfg.ImageBaseS3URL, key)
}

// JoinURL joins base and key with exactly one slash. An empty base yields key.
func JoinURL(base, key string) string {
	if base == "" {
		return key
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}
