package query

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
)

type memProfiles struct {
	profiles map[matching.ParticipantID]*matching.Profile
	order    []matching.ParticipantID
}

func newMemProfiles(profiles ...*matching.Profile) *memProfiles {
	m := &memProfiles{profiles: make(map[matching.ParticipantID]*matching.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *memProfiles) GetByID(_ context.Context, id matching.ParticipantID) (*matching.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, matching.ErrParticipantNotFound
	}
	return p, nil
}

func (m *memProfiles) ListAll(_ context.Context) ([]*matching.Profile, error) {
	result := make([]*matching.Profile, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.profiles[id])
	}
	return result, nil
}

func (m *memProfiles) ListByKind(ctx context.Context, kind matching.ParticipantKind) ([]*matching.Profile, error) {
	all, _ := m.ListAll(ctx)
	result := make([]*matching.Profile, 0, len(all))
	for _, p := range all {
		if p.Kind == kind {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *memProfiles) Save(_ context.Context, p *matching.Profile) error {
	if _, ok := m.profiles[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.profiles[p.ID] = p
	return nil
}

func (m *memProfiles) Delete(_ context.Context, id matching.ParticipantID) error {
	if _, ok := m.profiles[id]; !ok {
		return matching.ErrParticipantNotFound
	}
	delete(m.profiles, id)
	return nil
}

type memEdges struct {
	mu    sync.RWMutex
	edges map[string]*matching.ConnectionEdge
}

func newMemEdges() *memEdges {
	return &memEdges{edges: make(map[string]*matching.ConnectionEdge)}
}

func (r *memEdges) GetByParticipants(_ context.Context, a, b matching.ParticipantID) (*matching.ConnectionEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.edges[matching.EdgeKey(a, b)].Clone(), nil
}

func (r *memEdges) LoadEdges(_ context.Context, id matching.ParticipantID) ([]*matching.ConnectionEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*matching.ConnectionEdge
	for _, e := range r.edges {
		if e.Involves(id) {
			result = append(result, e.Clone())
		}
	}
	return result, nil
}

func (r *memEdges) SaveEdge(_ context.Context, edge *matching.ConnectionEdge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[edge.Key()] = edge.Clone()
	return nil
}

func (r *memEdges) DeleteEdge(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.edges {
		if e.ID == id {
			delete(r.edges, key)
			return nil
		}
	}
	return matching.ErrEdgeNotFound
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]RecommendationDTO
	hits  int
}

func newMemCache() *memCache {
	return &memCache{items: make(map[string][]RecommendationDTO)}
}

func (c *memCache) key(viewerID string, limit int) string {
	return fmt.Sprintf("%s:%d", viewerID, limit)
}

func (c *memCache) Get(_ context.Context, viewerID string, limit int) ([]RecommendationDTO, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	items, ok := c.items[c.key(viewerID, limit)]
	if !ok {
		return nil, nil
	}
	c.hits++
	return items, nil
}

func (c *memCache) Set(_ context.Context, viewerID string, limit int, items []RecommendationDTO) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[c.key(viewerID, limit)] = items
	return nil
}

func (c *memCache) Invalidate(_ context.Context, viewerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.items {
		if len(key) > len(viewerID) && key[:len(viewerID)+1] == viewerID+":" {
			delete(c.items, key)
		}
	}
	return nil
}

var queryClock = func() time.Time {
	return time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
}

func queryProfile(id string, mutate func(*matching.Profile)) *matching.Profile {
	p := &matching.Profile{
		ID:               matching.ParticipantID(id),
		Kind:             matching.KindExhibitor,
		DisplayName:      "Participant " + id,
		GeographicRegion: "Europe",
		CreatedAt:        time.Date(2021, time.March, 1, 0, 0, 0, 0, time.UTC),
	}
	if mutate != nil {
		mutate(p)
	}
	return p
}

func newTestLifecycle() *matching.LifecycleManager {
	var seq int
	return matching.NewLifecycleManager(newMemEdges(), func() string {
		seq++
		return fmt.Sprintf("edge-%d", seq)
	})
}

func TestGetRecommendationsHandler(t *testing.T) {
	ctx := context.Background()

	viewer := queryProfile("viewer", func(p *matching.Profile) {
		p.Sectors = matching.NewTagSet("logistics")
	})
	near := queryProfile("near", func(p *matching.Profile) {
		p.Sectors = matching.NewTagSet("logistics")
	})
	far := queryProfile("far", func(p *matching.Profile) {
		p.Sectors = matching.NewTagSet("tourism")
		p.GeographicRegion = "Asia"
	})

	profiles := newMemProfiles(viewer, far, near)
	ranker := matching.NewRanker(matching.MustScorer(matching.WithClock(queryClock)), nil)
	lifecycle := newTestLifecycle()

	handler := NewGetRecommendationsHandler(profiles, ranker, lifecycle, nil, nil)

	result, err := handler.Handle(ctx, GetRecommendationsQuery{ViewerID: "viewer", Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 2)
	assert.False(t, result.FromCache)

	// the sector twin outranks the unrelated candidate, viewer excluded
	assert.Equal(t, "near", result.Recommendations[0].ParticipantID)
	assert.Equal(t, "far", result.Recommendations[1].ParticipantID)
	assert.Greater(t, result.Recommendations[0].Score, result.Recommendations[1].Score)
	assert.Equal(t, string(matching.StatusNone), result.Recommendations[0].ConnectionStatus)
}

func TestGetRecommendationsHandler_ConnectionStatus(t *testing.T) {
	ctx := context.Background()
	viewer := queryProfile("viewer", nil)
	other := queryProfile("other", nil)

	profiles := newMemProfiles(viewer, other)
	ranker := matching.NewRanker(matching.MustScorer(matching.WithClock(queryClock)), nil)
	lifecycle := newTestLifecycle()
	_, err := lifecycle.SendRequest(ctx, "viewer", "other")
	require.NoError(t, err)
	_, err = lifecycle.SetFavorite(ctx, "viewer", "other", true)
	require.NoError(t, err)

	handler := NewGetRecommendationsHandler(profiles, ranker, lifecycle, nil, nil)
	result, err := handler.Handle(ctx, GetRecommendationsQuery{ViewerID: "viewer", Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Recommendations, 1)
	assert.Equal(t, string(matching.StatusRequestSent), result.Recommendations[0].ConnectionStatus)
	assert.True(t, result.Recommendations[0].Favorited)
}

func TestGetRecommendationsHandler_Cache(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfiles(queryProfile("viewer", nil), queryProfile("other", nil))
	ranker := matching.NewRanker(matching.MustScorer(matching.WithClock(queryClock)), nil)
	cache := newMemCache()

	handler := NewGetRecommendationsHandler(profiles, ranker, newTestLifecycle(), cache, nil)

	first, err := handler.Handle(ctx, GetRecommendationsQuery{ViewerID: "viewer", Limit: 10})
	require.NoError(t, err)
	assert.False(t, first.FromCache)

	second, err := handler.Handle(ctx, GetRecommendationsQuery{ViewerID: "viewer", Limit: 10})
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.Equal(t, 1, cache.hits)

	bypassed, err := handler.Handle(ctx, GetRecommendationsQuery{ViewerID: "viewer", Limit: 10, BypassCache: true})
	require.NoError(t, err)
	assert.False(t, bypassed.FromCache)
}

func TestGetRecommendationsHandler_Validation(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfiles(queryProfile("viewer", nil))
	ranker := matching.NewRanker(matching.MustScorer(matching.WithClock(queryClock)), nil)
	handler := NewGetRecommendationsHandler(profiles, ranker, nil, nil, nil)

	_, err := handler.Handle(ctx, GetRecommendationsQuery{Limit: 10})
	assert.Error(t, err)

	// an unset limit is an input error, never an implicit default
	_, err = handler.Handle(ctx, GetRecommendationsQuery{ViewerID: "viewer"})
	assert.ErrorIs(t, err, matching.ErrInvalidLimit)

	_, err = handler.Handle(ctx, GetRecommendationsQuery{ViewerID: "viewer", Limit: -1})
	assert.ErrorIs(t, err, matching.ErrInvalidLimit)

	_, err = handler.Handle(ctx, GetRecommendationsQuery{ViewerID: "ghost", Limit: 10})
	assert.ErrorIs(t, err, matching.ErrParticipantNotFound)
}

func TestSearchParticipantsHandler(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfiles(
		queryProfile("viewer", func(p *matching.Profile) {
			p.Sectors = matching.NewTagSet("logistics")
		}),
		queryProfile("p1", func(p *matching.Profile) {
			p.Sectors = matching.NewTagSet("logistics")
			p.Kind = matching.KindVisitor
		}),
		queryProfile("p2", func(p *matching.Profile) {
			p.Sectors = matching.NewTagSet("logistics", "energy")
			p.GeographicRegion = "Africa"
		}),
	)
	handler := NewSearchParticipantsHandler(profiles)

	result, err := handler.Handle(ctx, SearchParticipantsQuery{
		ViewerID: "viewer",
		Sectors:  []string{"logistics"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalMatched)
	require.Len(t, result.Participants, 2)
	assert.Equal(t, "p1", result.Participants[0].ParticipantID)
	assert.Equal(t, "p2", result.Participants[1].ParticipantID)

	byKind, err := handler.Handle(ctx, SearchParticipantsQuery{Kind: "visitor"})
	require.NoError(t, err)
	require.Len(t, byKind.Participants, 1)
	assert.Equal(t, "p1", byKind.Participants[0].ParticipantID)

	limited, err := handler.Handle(ctx, SearchParticipantsQuery{Sectors: []string{"logistics"}, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited.Participants, 1)
	assert.Equal(t, 3, limited.TotalMatched)

	_, err = handler.Handle(ctx, SearchParticipantsQuery{Kind: "sponsor"})
	assert.Error(t, err)
}

func TestGetCompatibilityHandler(t *testing.T) {
	ctx := context.Background()
	viewer := queryProfile("viewer", func(p *matching.Profile) {
		p.Sectors = matching.NewTagSet("logistics")
	})
	candidate := queryProfile("candidate", func(p *matching.Profile) {
		p.Sectors = matching.NewTagSet("logistics")
	})
	profiles := newMemProfiles(viewer, candidate)
	scorer := matching.MustScorer(matching.WithClock(queryClock))
	lifecycle := newTestLifecycle()

	handler := NewGetCompatibilityHandler(profiles, scorer, lifecycle, nil)

	dto, err := handler.Handle(ctx, GetCompatibilityQuery{ViewerID: "viewer", CandidateID: "candidate"})
	require.NoError(t, err)
	assert.Greater(t, dto.Score, 0)
	assert.Equal(t, 100, dto.Factors.SectorAlignment)
	assert.NotEmpty(t, dto.Reasons)
	assert.Equal(t, string(matching.StatusNone), dto.ConnectionStatus)

	_, err = handler.Handle(ctx, GetCompatibilityQuery{ViewerID: "viewer", CandidateID: "viewer"})
	assert.ErrorIs(t, err, matching.ErrSelfReference)

	_, err = handler.Handle(ctx, GetCompatibilityQuery{ViewerID: "viewer", CandidateID: "ghost"})
	assert.ErrorIs(t, err, matching.ErrParticipantNotFound)
}

func TestGetConnectionsHandler(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfiles(
		queryProfile("alice", nil),
		queryProfile("bob", nil),
		queryProfile("carol", nil),
	)
	lifecycle := newTestLifecycle()

	_, err := lifecycle.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = lifecycle.AcceptRequest(ctx, "bob", "alice")
	require.NoError(t, err)
	_, err = lifecycle.SendRequest(ctx, "carol", "alice")
	require.NoError(t, err)
	_, err = lifecycle.SetFavorite(ctx, "alice", "carol", true)
	require.NoError(t, err)

	handler := NewGetConnectionsHandler(profiles, lifecycle)
	result, err := handler.Handle(ctx, GetConnectionsQuery{ViewerID: "alice"})
	require.NoError(t, err)

	require.Len(t, result.Connected, 1)
	assert.Equal(t, "bob", result.Connected[0].ParticipantID)
	assert.Equal(t, "Participant bob", result.Connected[0].DisplayName)

	require.Len(t, result.Received, 1)
	assert.Equal(t, "carol", result.Received[0].ParticipantID)

	require.Len(t, result.Favorites, 1)
	assert.Equal(t, "carol", result.Favorites[0].ParticipantID)
	assert.Empty(t, result.Sent)
	assert.NotEmpty(t, result.Connected[0].UpdatedAgo)

	_, err = handler.Handle(ctx, GetConnectionsQuery{})
	assert.Error(t, err)
}
