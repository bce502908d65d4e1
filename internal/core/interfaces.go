// Package core holds repository contracts shared by the service and data layers.
package core

import (
	"context"
	"time"

	"github.com/reelapps/reelhunter/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// Service implementations depend on these interfaces, not concrete implementations.

// JobPostingRepository defines the interface for job posting data operations.
type JobPostingRepository interface {
	Create(ctx context.Context, recruiterID string, req *model.CreateJobPostingRequest) (*model.JobPosting, error)
	GetByID(ctx context.Context, id string) (*model.JobPosting, error)
	List(ctx context.Context, opts model.JobPostingsListOptions) ([]*model.JobPosting, error)
	Stats(ctx context.Context, recruiterID string) (model.RecruitmentStats, error)
	SetMatchCount(ctx context.Context, id string, matches int) error
}

// CacheRepository defines the interface for caching operations.
type CacheRepository interface {
	// Set stores a value in the cache with the given key and TTL.
	// If TTL is 0, the key will not expire.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Get retrieves a value from the cache by key.
	// Returns nil if the key doesn't exist or has expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key from the cache.
	// Returns true if the key was deleted, false if it didn't exist.
	Delete(ctx context.Context, key string) (bool, error)

	// Health checks the health of the cache connection.
	Health(ctx context.Context) error
}
