package application

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitaphe360/siport-sub000/internal/application/command"
	"github.com/epitaphe360/siport-sub000/internal/application/query"
	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
)

type fakeProfiles struct {
	profiles map[matching.ParticipantID]*matching.Profile
	order    []matching.ParticipantID
}

func newFakeProfiles(profiles ...*matching.Profile) *fakeProfiles {
	m := &fakeProfiles{profiles: make(map[matching.ParticipantID]*matching.Profile)}
	for _, p := range profiles {
		m.profiles[p.ID] = p
		m.order = append(m.order, p.ID)
	}
	return m
}

func (m *fakeProfiles) GetByID(_ context.Context, id matching.ParticipantID) (*matching.Profile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, matching.ErrParticipantNotFound
	}
	return p, nil
}

func (m *fakeProfiles) ListAll(_ context.Context) ([]*matching.Profile, error) {
	result := make([]*matching.Profile, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, m.profiles[id])
	}
	return result, nil
}

func (m *fakeProfiles) ListByKind(ctx context.Context, kind matching.ParticipantKind) ([]*matching.Profile, error) {
	all, _ := m.ListAll(ctx)
	result := make([]*matching.Profile, 0, len(all))
	for _, p := range all {
		if p.Kind == kind {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *fakeProfiles) Save(_ context.Context, p *matching.Profile) error {
	if _, ok := m.profiles[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.profiles[p.ID] = p
	return nil
}

func (m *fakeProfiles) Delete(_ context.Context, id matching.ParticipantID) error {
	if _, ok := m.profiles[id]; !ok {
		return matching.ErrParticipantNotFound
	}
	delete(m.profiles, id)
	return nil
}

type fakeEdges struct {
	mu    sync.RWMutex
	edges map[string]*matching.ConnectionEdge
}

func newFakeEdges() *fakeEdges {
	return &fakeEdges{edges: make(map[string]*matching.ConnectionEdge)}
}

func (r *fakeEdges) GetByParticipants(_ context.Context, a, b matching.ParticipantID) (*matching.ConnectionEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.edges[matching.EdgeKey(a, b)].Clone(), nil
}

func (r *fakeEdges) LoadEdges(_ context.Context, id matching.ParticipantID) ([]*matching.ConnectionEdge, error) {
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

func (r *fakeEdges) SaveEdge(_ context.Context, edge *matching.ConnectionEdge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[edge.Key()] = edge.Clone()
	return nil
}

func (r *fakeEdges) DeleteEdge(_ context.Context, id string) error {
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

func engineProfile(id string, mutate func(*matching.Profile)) *matching.Profile {
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

func newTestEngine(t *testing.T, profiles ...*matching.Profile) *Engine {
	t.Helper()

	scorer := matching.MustScorer(matching.WithClock(func() time.Time {
		return time.Date(2026, time.September, 1, 10, 0, 0, 0, time.UTC)
	}))

	var seq int
	lifecycle := matching.NewLifecycleManager(newFakeEdges(), func() string {
		seq++
		return fmt.Sprintf("edge-%d", seq)
	})

	engine, err := NewEngine(EngineDeps{
		Profiles:  newFakeProfiles(profiles...),
		Scorer:    scorer,
		Ranker:    matching.NewRanker(scorer, nil),
		Lifecycle: lifecycle,
	})
	require.NoError(t, err)
	return engine
}

func TestNewEngine_RequiredDeps(t *testing.T) {
	scorer := matching.MustScorer()
	lifecycle := matching.NewLifecycleManager(newFakeEdges(), func() string { return "edge" })
	profiles := newFakeProfiles()

	cases := []struct {
		name string
		deps EngineDeps
	}{
		{"missing profiles", EngineDeps{Scorer: scorer, Ranker: matching.NewRanker(scorer, nil), Lifecycle: lifecycle}},
		{"missing scorer", EngineDeps{Profiles: profiles, Ranker: matching.NewRanker(scorer, nil), Lifecycle: lifecycle}},
		{"missing ranker", EngineDeps{Profiles: profiles, Scorer: scorer, Lifecycle: lifecycle}},
		{"missing lifecycle", EngineDeps{Profiles: profiles, Scorer: scorer, Ranker: matching.NewRanker(scorer, nil)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, err := NewEngine(tc.deps)
			assert.Error(t, err)
			assert.Nil(t, engine)
		})
	}
}

func TestEngine_ConnectionJourney(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t,
		engineProfile("alice", func(p *matching.Profile) {
			p.Sectors = matching.NewTagSet("logistics", "port operations")
		}),
		engineProfile("bob", func(p *matching.Profile) {
			p.Sectors = matching.NewTagSet("logistics")
		}),
		engineProfile("carol", nil),
	)

	// alice requests bob
	sent, err := engine.SendConnectionRequest(ctx, command.SendConnectionRequestCommand{
		ViewerID:    "alice",
		CandidateID: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, matching.StatusRequestSent, sent.Status)

	// bob sees the request as received
	bobNet, err := engine.GetConnections(ctx, query.GetConnectionsQuery{ViewerID: "bob"})
	require.NoError(t, err)
	require.Len(t, bobNet.Received, 1)
	assert.Equal(t, "alice", bobNet.Received[0].ParticipantID)
	assert.Empty(t, bobNet.Connected)

	// bob accepts
	accepted, err := engine.AcceptConnectionRequest(ctx, command.AcceptConnectionRequestCommand{
		ViewerID:    "bob",
		RequesterID: "alice",
	})
	require.NoError(t, err)
	assert.Equal(t, matching.StatusConnected, accepted.Status)

	// both sides now see the connection
	for _, viewer := range []string{"alice", "bob"} {
		net, err := engine.GetConnections(ctx, query.GetConnectionsQuery{ViewerID: viewer})
		require.NoError(t, err)
		require.Len(t, net.Connected, 1, "viewer %s", viewer)
		assert.Empty(t, net.Sent)
		assert.Empty(t, net.Received)
	}

	// recommendations project the connected status
	recs, err := engine.GetRecommendations(ctx, query.GetRecommendationsQuery{ViewerID: "alice", Limit: 10})
	require.NoError(t, err)
	require.Len(t, recs.Recommendations, 2)
	for _, rec := range recs.Recommendations {
		if rec.ParticipantID == "bob" {
			assert.Equal(t, string(matching.StatusConnected), rec.ConnectionStatus)
		}
	}
}

func TestEngine_RecommendationsRejectZeroLimit(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t,
		engineProfile("viewer", nil),
		engineProfile("other", nil),
	)

	_, err := engine.GetRecommendations(ctx, query.GetRecommendationsQuery{ViewerID: "viewer", Limit: 0})
	require.ErrorIs(t, err, matching.ErrInvalidLimit)

	_, err = engine.GetRecommendations(ctx, query.GetRecommendationsQuery{ViewerID: "viewer", Limit: -5})
	require.ErrorIs(t, err, matching.ErrInvalidLimit)
}

func TestEngine_RejectAndWithdraw(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t,
		engineProfile("alice", nil),
		engineProfile("bob", nil),
	)

	// addressee rejects
	_, err := engine.SendConnectionRequest(ctx, command.SendConnectionRequestCommand{
		ViewerID: "alice", CandidateID: "bob",
	})
	require.NoError(t, err)

	rejected, err := engine.RejectConnectionRequest(ctx, command.RejectConnectionRequestCommand{
		ViewerID: "bob", OtherID: "alice",
	})
	require.NoError(t, err)
	assert.False(t, rejected.Withdrawn)

	// requester withdraws their own pending request
	_, err = engine.SendConnectionRequest(ctx, command.SendConnectionRequestCommand{
		ViewerID: "alice", CandidateID: "bob",
	})
	require.NoError(t, err)

	withdrawn, err := engine.RejectConnectionRequest(ctx, command.RejectConnectionRequestCommand{
		ViewerID: "alice", OtherID: "bob",
	})
	require.NoError(t, err)
	assert.True(t, withdrawn.Withdrawn)

	net, err := engine.GetConnections(ctx, query.GetConnectionsQuery{ViewerID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, net.Sent)
	assert.Empty(t, net.Connected)
}

func TestEngine_FavoriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t,
		engineProfile("alice", nil),
		engineProfile("bob", nil),
	)

	fav, err := engine.FavoriteParticipant(ctx, "alice", "bob", "")
	require.NoError(t, err)
	assert.True(t, fav.Favorited)

	net, err := engine.GetConnections(ctx, query.GetConnectionsQuery{ViewerID: "alice"})
	require.NoError(t, err)
	require.Len(t, net.Favorites, 1)
	assert.Equal(t, "bob", net.Favorites[0].ParticipantID)

	// favorite is one-sided
	bobNet, err := engine.GetConnections(ctx, query.GetConnectionsQuery{ViewerID: "bob"})
	require.NoError(t, err)
	assert.Empty(t, bobNet.Favorites)

	unfav, err := engine.UnfavoriteParticipant(ctx, "alice", "bob", "")
	require.NoError(t, err)
	assert.False(t, unfav.Favorited)

	net, err = engine.GetConnections(ctx, query.GetConnectionsQuery{ViewerID: "alice"})
	require.NoError(t, err)
	assert.Empty(t, net.Favorites)
}

func TestEngine_Compatibility(t *testing.T) {
	ctx := context.Background()
	engine := newTestEngine(t,
		engineProfile("alice", func(p *matching.Profile) {
			p.Sectors = matching.NewTagSet("logistics")
			p.ThematicInterests = matching.NewTagSet("automation")
		}),
		engineProfile("bob", func(p *matching.Profile) {
			p.Sectors = matching.NewTagSet("logistics")
			p.ThematicInterests = matching.NewTagSet("automation")
		}),
	)

	dto, err := engine.GetCompatibility(ctx, query.GetCompatibilityQuery{
		ViewerID: "alice", CandidateID: "bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", dto.CandidateID)
	assert.Greater(t, dto.Score, 0)
	assert.NotEmpty(t, dto.Reasons)
}