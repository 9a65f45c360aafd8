package redis

import (
	"context"
	"errors"
	"time"

	"github.com/epitaphe360/siport-sub000/internal/application/query"
)

// RecommendationCache implements query.RecommendationCache on top of the
// generic Redis Cache. Ranked lists are stored as JSON per (viewer, limit)
// pair and expire on their own even when no invalidation fires.
type RecommendationCache struct {
	cache *Cache
	ttl   time.Duration
}

// NewRecommendationCache creates a new RecommendationCache with the default TTL.
func NewRecommendationCache(cache *Cache) *RecommendationCache {
	return &RecommendationCache{
		cache: cache,
		ttl:   TTLRecommendations,
	}
}

// WithTTL overrides the default TTL for cached recommendation lists.
func (r *RecommendationCache) WithTTL(ttl time.Duration) *RecommendationCache {
	r.ttl = ttl
	return r
}

// Get returns the cached recommendation list for a viewer and limit.
// A cache miss returns (nil, nil) so the caller falls through to scoring.
func (r *RecommendationCache) Get(ctx context.Context, viewerID string, limit int) ([]query.RecommendationDTO, error) {
	var items []query.RecommendationDTO
	key := RecommendationKey(viewerID, limit)
	if err := r.cache.Get(ctx, key, &items); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return items, nil
}

// Set stores a recommendation list for a viewer and limit.
func (r *RecommendationCache) Set(ctx context.Context, viewerID string, limit int, items []query.RecommendationDTO) error {
	if items == nil {
		items = []query.RecommendationDTO{}
	}
	key := RecommendationKey(viewerID, limit)
	return r.cache.Set(ctx, key, items, r.ttl)
}

// Invalidate drops every cached recommendation list for a viewer.
// Called when a connection edge changes, since edge state and mutual
// connection counts feed the cached payload.
func (r *RecommendationCache) Invalidate(ctx context.Context, viewerID string) error {
	if viewerID == "" {
		return ErrCacheKeyEmpty
	}
	return r.cache.DeleteByPattern(ctx, RecommendationPattern(viewerID))
}
