package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/ai-declaration-api/internal/models"
	appErrors "github.com/noah-isme/ai-declaration-api/pkg/errors"
)

const listingCacheName = "declarations:list"

type listingSnapshotStore interface {
	Load(ctx context.Context, name string) ([]models.Declaration, error)
	Store(ctx context.Context, name string, rows []models.Declaration, ttl time.Duration) error
	Drop(ctx context.Context, names ...string) error
}

// ListingCache fronts the declaration listing. Backend failures degrade to
// misses; a nil cache or one without a store does nothing.
type ListingCache struct {
	store   listingSnapshotStore
	metrics *MetricsService
	ttl     time.Duration
	logger  *zap.Logger
}

// NewListingCache constructs the cache. A nil store disables it.
func NewListingCache(store listingSnapshotStore, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *ListingCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ListingCache{store: store, metrics: metrics, ttl: ttl, logger: logger}
}

// Enabled reports whether lookups reach a backend.
func (c *ListingCache) Enabled() bool {
	return c != nil && c.store != nil
}

// Rows returns the cached listing and whether it was found.
func (c *ListingCache) Rows(ctx context.Context) ([]models.Declaration, bool) {
	if !c.Enabled() {
		return nil, false
	}
	rows, err := c.store.Load(ctx, listingCacheName)
	switch {
	case err == nil:
		c.metrics.RecordCacheLookup("hit")
		return rows, true
	case errors.Is(err, appErrors.ErrCacheMiss):
		c.metrics.RecordCacheLookup("miss")
	default:
		c.metrics.RecordCacheLookup("error")
		c.logger.Warn("listing cache read failed", zap.Error(err))
	}
	return nil, false
}

// Put stores a fresh listing.
func (c *ListingCache) Put(ctx context.Context, rows []models.Declaration) {
	if !c.Enabled() {
		return
	}
	if err := c.store.Store(ctx, listingCacheName, rows, c.ttl); err != nil {
		c.logger.Warn("listing cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached listing after a write.
func (c *ListingCache) Invalidate(ctx context.Context) {
	if !c.Enabled() {
		return
	}
	if err := c.store.Drop(ctx, listingCacheName); err != nil {
		c.logger.Warn("listing cache invalidate failed", zap.Error(err))
	}
}
