package redis

import (
	"context"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
)

// CachedProfileStore decorates a matching.ProfileStore with a Redis
// read-through cache for single-profile lookups. List queries always go
// to the underlying store: they feed scoring, which must see fresh data.
type CachedProfileStore struct {
	store matching.ProfileStore
	cache *Cache
}

// NewCachedProfileStore wraps a ProfileStore with per-profile caching.
func NewCachedProfileStore(store matching.ProfileStore, cache *Cache) *CachedProfileStore {
	return &CachedProfileStore{
		store: store,
		cache: cache,
	}
}

// GetByID returns a profile, serving from cache when possible.
// Cache failures are not fatal: the underlying store is the source of truth.
func (s *CachedProfileStore) GetByID(ctx context.Context, id matching.ParticipantID) (*matching.Profile, error) {
	key := ProfileKey(string(id))

	var cached matching.Profile
	if err := s.cache.Get(ctx, key, &cached); err == nil {
		return &cached, nil
	}

	// Miss or degraded cache: the underlying store is the source of truth.
	profile, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	_ = s.cache.Set(ctx, key, profile, TTLProfileCache)
	return profile, nil
}

// ListAll returns all profiles from the underlying store.
func (s *CachedProfileStore) ListAll(ctx context.Context) ([]*matching.Profile, error) {
	return s.store.ListAll(ctx)
}

// ListByKind returns profiles of the given kind from the underlying store.
func (s *CachedProfileStore) ListByKind(ctx context.Context, kind matching.ParticipantKind) ([]*matching.Profile, error) {
	return s.store.ListByKind(ctx, kind)
}

// Save persists a profile and refreshes its cache entry.
func (s *CachedProfileStore) Save(ctx context.Context, profile *matching.Profile) error {
	if err := s.store.Save(ctx, profile); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, ProfileKey(string(profile.ID)))
	return nil
}

// Delete removes a profile and drops its cache entry.
func (s *CachedProfileStore) Delete(ctx context.Context, id matching.ParticipantID) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	_ = s.cache.Delete(ctx, ProfileKey(string(id)))
	return nil
}
