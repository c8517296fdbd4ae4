package db

import (
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"realty/catalog/internal/logging"
)

// Operation is a function that performs an action and returns an error if it fails.
type Operation func() error

// IsRetryable decides whether a failed Operation should run again.
type IsRetryable func(err error) bool

const DefaultMaxRetries = 3

// Try runs op, retrying on duplicate-key errors. Inserts regenerate their ID
// inside op, so a retry gets a fresh key.
func Try(op Operation) error {
	return WithRetries(op, DefaultMaxRetries, IsMongoDuplicateKeyError)
}

// WithRetries runs op once plus up to maxRetries more times while retryable
// reports true, backing off 50ms per attempt.
func WithRetries(op Operation, maxRetries int, retryable IsRetryable) error {
	var err error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if attempt == maxRetries || !retryable(err) {
			break
		}
		logging.L().Warn().Err(err).Int("attempt", attempt+1).Msg("retrying storage operation")
		time.Sleep(time.Duration(50*(attempt+1)) * time.Millisecond)
	}
	return err
}

// IsMongoDuplicateKeyError checks for MongoDB error code 11000.
func IsMongoDuplicateKeyError(err error) bool {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}
