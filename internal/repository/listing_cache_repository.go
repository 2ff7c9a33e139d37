package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/ai-declaration-api/internal/models"
	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
)

// Bump when the cached row shape changes so stale payloads read as misses.
const listingSnapshotVersion = 1

type listingSnapshot struct {
	Version  int                  `json:"v"`
	CachedAt time.Time            `json:"cached_at"`
	Rows     []models.Declaration `json:"rows"`
}

// ListingCacheRepository keeps snapshots of the declaration listing in Redis.
type ListingCacheRepository struct {
	client redis.Cmdable
	prefix string
}

// NewListingCacheRepository constructs the repository. Every key is namespaced by prefix.
func NewListingCacheRepository(client redis.Cmdable, prefix string) *ListingCacheRepository {
	return &ListingCacheRepository{client: client, prefix: prefix}
}

// Load returns the cached rows stored under name, or ErrCacheMiss.
func (r *ListingCacheRepository) Load(ctx context.Context, name string) ([]models.Declaration, error) {
	raw, err := r.client.Get(ctx, r.prefix+name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrCacheMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", name, err)
	}

	var snap listingSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode listing snapshot %s: %w", name, err)
	}
	if snap.Version != listingSnapshotVersion || snap.Rows == nil {
		return nil, appErrors.ErrCacheMiss
	}
	return snap.Rows, nil
}

// Store writes rows under name with the given TTL.
func (r *ListingCacheRepository) Store(ctx context.Context, name string, rows []models.Declaration, ttl time.Duration) error {
	if rows == nil {
		rows = []models.Declaration{}
	}
	payload, err := json.Marshal(listingSnapshot{
		Version:  listingSnapshotVersion,
		CachedAt: time.Now().UTC(),
		Rows:     rows,
	})
	if err != nil {
		return fmt.Errorf("encode listing snapshot %s: %w", name, err)
	}
	if err := r.client.Set(ctx, r.prefix+name, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", name, err)
	}
	return nil
}

// Drop removes the named snapshots. Missing keys are not an error.
func (r *ListingCacheRepository) Drop(ctx context.Context, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = r.prefix + name
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
