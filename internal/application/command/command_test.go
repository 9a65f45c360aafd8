package command

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
)

type memProfiles struct {
	profiles map[matching.ParticipantID]*matching.Profile
}

func newMemProfiles(ids ...string) *memProfiles {
	m := &memProfiles{profiles: make(map[matching.ParticipantID]*matching.Profile)}
	for _, id := range ids {
		pid := matching.ParticipantID(id)
		m.profiles[pid] = &matching.Profile{ID: pid, Kind: matching.KindExhibitor, DisplayName: id}
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
	result := make([]*matching.Profile, 0, len(m.profiles))
	for _, p := range m.profiles {
		result = append(result, p)
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

type capturingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *capturingPublisher) Publish(event shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturingPublisher) types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		types = append(types, e.EventType())
	}
	return types
}

func newTestLifecycle() *matching.LifecycleManager {
	var seq int
	return matching.NewLifecycleManager(newMemEdges(), func() string {
		seq++
		return fmt.Sprintf("edge-%d", seq)
	})
}

func TestSendConnectionRequestHandler(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfiles("alice", "bob")
	lifecycle := newTestLifecycle()
	publisher := &capturingPublisher{}
	handler := NewSendConnectionRequestHandler(profiles, lifecycle, publisher)

	result, err := handler.Handle(ctx, SendConnectionRequestCommand{ViewerID: "alice", CandidateID: "bob"})
	require.NoError(t, err)
	assert.Equal(t, matching.StatusRequestSent, result.Status)
	assert.NotEmpty(t, result.EdgeID)
	assert.Equal(t, []shared.EventType{shared.EventConnectionRequested}, publisher.types())

	// duplicate request hits the same edge
	_, err = handler.Handle(ctx, SendConnectionRequestCommand{ViewerID: "alice", CandidateID: "bob"})
	assert.ErrorIs(t, err, matching.ErrInvalidTransition)

	// counter-request from the addressee too
	_, err = handler.Handle(ctx, SendConnectionRequestCommand{ViewerID: "bob", CandidateID: "alice"})
	assert.ErrorIs(t, err, matching.ErrInvalidTransition)
}

func TestSendConnectionRequestHandler_Validation(t *testing.T) {
	ctx := context.Background()
	handler := NewSendConnectionRequestHandler(newMemProfiles("alice"), newTestLifecycle(), nil)

	_, err := handler.Handle(ctx, SendConnectionRequestCommand{ViewerID: "alice", CandidateID: "alice"})
	assert.ErrorIs(t, err, matching.ErrSelfReference)

	_, err = handler.Handle(ctx, SendConnectionRequestCommand{ViewerID: "alice"})
	assert.Error(t, err)

	_, err = handler.Handle(ctx, SendConnectionRequestCommand{ViewerID: "alice", CandidateID: "ghost"})
	assert.ErrorIs(t, err, matching.ErrParticipantNotFound)
}

func TestAcceptConnectionRequestHandler(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfiles("alice", "bob")
	lifecycle := newTestLifecycle()
	publisher := &capturingPublisher{}

	send := NewSendConnectionRequestHandler(profiles, lifecycle, publisher)
	_, err := send.Handle(ctx, SendConnectionRequestCommand{ViewerID: "alice", CandidateID: "bob"})
	require.NoError(t, err)

	accept := NewAcceptConnectionRequestHandler(lifecycle, publisher)

	// the requester cannot accept their own request
	_, err = accept.Handle(ctx, AcceptConnectionRequestCommand{ViewerID: "alice", RequesterID: "bob"})
	assert.ErrorIs(t, err, matching.ErrNoSuchRequest)

	result, err := accept.Handle(ctx, AcceptConnectionRequestCommand{ViewerID: "bob", RequesterID: "alice"})
	require.NoError(t, err)
	assert.Equal(t, matching.StatusConnected, result.Status)
	assert.False(t, result.ConnectedAt.IsZero())
	assert.Contains(t, publisher.types(), shared.EventConnectionAccepted)
}

func TestRejectConnectionRequestHandler(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfiles("alice", "bob")
	lifecycle := newTestLifecycle()
	publisher := &capturingPublisher{}

	send := NewSendConnectionRequestHandler(profiles, lifecycle, publisher)
	reject := NewRejectConnectionRequestHandler(lifecycle, publisher)

	// addressee rejects
	_, err := send.Handle(ctx, SendConnectionRequestCommand{ViewerID: "alice", CandidateID: "bob"})
	require.NoError(t, err)
	result, err := reject.Handle(ctx, RejectConnectionRequestCommand{ViewerID: "bob", OtherID: "alice"})
	require.NoError(t, err)
	assert.False(t, result.Withdrawn)
	assert.Contains(t, publisher.types(), shared.EventConnectionRejected)

	// requester withdraws
	_, err = send.Handle(ctx, SendConnectionRequestCommand{ViewerID: "alice", CandidateID: "bob"})
	require.NoError(t, err)
	result, err = reject.Handle(ctx, RejectConnectionRequestCommand{ViewerID: "alice", OtherID: "bob"})
	require.NoError(t, err)
	assert.True(t, result.Withdrawn)
	assert.Contains(t, publisher.types(), shared.EventConnectionWithdrawn)

	// nothing pending anymore
	_, err = reject.Handle(ctx, RejectConnectionRequestCommand{ViewerID: "bob", OtherID: "alice"})
	assert.ErrorIs(t, err, matching.ErrNoSuchRequest)
}

func TestFavoriteParticipantHandler(t *testing.T) {
	ctx := context.Background()
	profiles := newMemProfiles("alice", "bob")
	lifecycle := newTestLifecycle()
	publisher := &capturingPublisher{}
	handler := NewFavoriteParticipantHandler(profiles, lifecycle, publisher)

	result, err := handler.Handle(ctx, FavoriteParticipantCommand{ViewerID: "alice", CandidateID: "bob", Favorited: true})
	require.NoError(t, err)
	assert.True(t, result.Favorited)

	// idempotent add
	result, err = handler.Handle(ctx, FavoriteParticipantCommand{ViewerID: "alice", CandidateID: "bob", Favorited: true})
	require.NoError(t, err)
	assert.True(t, result.Favorited)

	result, err = handler.Handle(ctx, FavoriteParticipantCommand{ViewerID: "alice", CandidateID: "bob", Favorited: false})
	require.NoError(t, err)
	assert.False(t, result.Favorited)

	_, err = handler.Handle(ctx, FavoriteParticipantCommand{ViewerID: "alice", CandidateID: "ghost", Favorited: true})
	assert.ErrorIs(t, err, matching.ErrParticipantNotFound)

	types := publisher.types()
	assert.Contains(t, types, shared.EventParticipantFavorited)
	assert.Contains(t, types, shared.EventParticipantUnfavorited)
}
