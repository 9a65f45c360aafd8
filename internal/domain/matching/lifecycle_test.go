package matching

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryEdgeRepo is an in-memory EdgeRepository for manager tests.
type memoryEdgeRepo struct {
	mu    sync.RWMutex
	edges map[string]*ConnectionEdge
}

func newMemoryEdgeRepo() *memoryEdgeRepo {
	return &memoryEdgeRepo{edges: make(map[string]*ConnectionEdge)}
}

func (r *memoryEdgeRepo) GetByParticipants(_ context.Context, a, b ParticipantID) (*ConnectionEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.edges[EdgeKey(a, b)].Clone(), nil
}

func (r *memoryEdgeRepo) LoadEdges(_ context.Context, id ParticipantID) ([]*ConnectionEdge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []*ConnectionEdge
	for _, e := range r.edges {
		if e.Involves(id) {
			result = append(result, e.Clone())
		}
	}
	return result, nil
}

func (r *memoryEdgeRepo) SaveEdge(_ context.Context, edge *ConnectionEdge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[edge.Key()] = edge.Clone()
	return nil
}

func (r *memoryEdgeRepo) DeleteEdge(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, e := range r.edges {
		if e.ID == id {
			delete(r.edges, key)
			return nil
		}
	}
	return ErrEdgeNotFound
}

func testManager() (*LifecycleManager, *memoryEdgeRepo) {
	repo := newMemoryEdgeRepo()
	var seq int
	newID := func() string {
		seq++
		return fmt.Sprintf("edge-%d", seq)
	}
	return NewLifecycleManager(repo, newID), repo
}

func TestEdgeKey_Canonical(t *testing.T) {
	assert.Equal(t, EdgeKey("a", "b"), EdgeKey("b", "a"))
	assert.Equal(t, "a:b", EdgeKey("b", "a"))
}

func TestNewConnectionEdge(t *testing.T) {
	edge, err := NewConnectionEdge("e1", "bob", "alice")
	require.NoError(t, err)

	assert.Equal(t, ParticipantID("alice"), edge.LowID)
	assert.Equal(t, ParticipantID("bob"), edge.HighID)
	assert.Equal(t, EdgeStateNone, edge.State)

	_, err = NewConnectionEdge("e2", "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfReference)

	_, err = NewConnectionEdge("e3", "", "bob")
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestConnectionEdge_SendRequest(t *testing.T) {
	edge, err := NewConnectionEdge("e1", "alice", "bob")
	require.NoError(t, err)

	require.NoError(t, edge.SendRequest("alice"))
	assert.Equal(t, EdgeStatePending, edge.State)
	assert.Equal(t, ParticipantID("alice"), edge.RequesterID)
	assert.Equal(t, ParticipantID("bob"), edge.AddresseeID())

	// duplicate request while pending
	assert.ErrorIs(t, edge.SendRequest("alice"), ErrInvalidTransition)
	// counter-request from the addressee hits the same single edge
	assert.ErrorIs(t, edge.SendRequest("bob"), ErrInvalidTransition)

	require.NoError(t, edge.Accept("bob"))
	assert.ErrorIs(t, edge.SendRequest("alice"), ErrInvalidTransition)

	stranger, _ := NewConnectionEdge("e2", "alice", "bob")
	assert.ErrorIs(t, stranger.SendRequest("mallory"), ErrInvalidProfile)
}

func TestConnectionEdge_Accept(t *testing.T) {
	edge, _ := NewConnectionEdge("e1", "alice", "bob")

	// nothing pending yet
	assert.ErrorIs(t, edge.Accept("bob"), ErrNoSuchRequest)

	require.NoError(t, edge.SendRequest("alice"))
	// the requester cannot accept their own request
	assert.ErrorIs(t, edge.Accept("alice"), ErrNoSuchRequest)

	require.NoError(t, edge.Accept("bob"))
	assert.Equal(t, EdgeStateConnected, edge.State)
	require.NotNil(t, edge.ConnectedAt)

	// accept is not idempotent: the request is gone
	assert.ErrorIs(t, edge.Accept("bob"), ErrNoSuchRequest)
}

func TestConnectionEdge_Reject(t *testing.T) {
	edge, _ := NewConnectionEdge("e1", "alice", "bob")

	assert.ErrorIs(t, edge.Reject("bob"), ErrNoSuchRequest)

	// addressee rejects
	require.NoError(t, edge.SendRequest("alice"))
	require.NoError(t, edge.Reject("bob"))
	assert.Equal(t, EdgeStateNone, edge.State)
	assert.Empty(t, edge.RequesterID)

	// requester withdraws: same reverse transition
	require.NoError(t, edge.SendRequest("bob"))
	require.NoError(t, edge.Reject("bob"))
	assert.Equal(t, EdgeStateNone, edge.State)

	// a rejected pair can start over
	require.NoError(t, edge.SendRequest("alice"))
	assert.Equal(t, ParticipantID("alice"), edge.RequesterID)

	// connected edges cannot be rejected
	require.NoError(t, edge.Accept("bob"))
	assert.ErrorIs(t, edge.Reject("bob"), ErrNoSuchRequest)
}

func TestConnectionEdge_FavoriteIsOrthogonal(t *testing.T) {
	edge, _ := NewConnectionEdge("e1", "alice", "bob")

	require.NoError(t, edge.SetFavorite("alice", true))
	assert.True(t, edge.FavoritedBy("alice"))
	assert.False(t, edge.FavoritedBy("bob"))

	// idempotent in both directions
	require.NoError(t, edge.SetFavorite("alice", true))
	assert.True(t, edge.FavoritedBy("alice"))
	require.NoError(t, edge.SetFavorite("alice", false))
	require.NoError(t, edge.SetFavorite("alice", false))
	assert.False(t, edge.FavoritedBy("alice"))

	// favorites survive lifecycle transitions untouched
	require.NoError(t, edge.SetFavorite("bob", true))
	require.NoError(t, edge.SendRequest("alice"))
	require.NoError(t, edge.Accept("bob"))
	assert.True(t, edge.FavoritedBy("bob"))

	assert.ErrorIs(t, edge.SetFavorite("mallory", true), ErrInvalidProfile)
}

func TestConnectionEdge_View(t *testing.T) {
	edge, _ := NewConnectionEdge("e1", "alice", "bob")

	assert.Equal(t, StatusNone, edge.View("alice").Status)

	require.NoError(t, edge.SendRequest("alice"))
	// one edge, two mirrored projections
	assert.Equal(t, StatusRequestSent, edge.View("alice").Status)
	assert.Equal(t, StatusRequestReceived, edge.View("bob").Status)
	assert.Equal(t, ParticipantID("bob"), edge.View("alice").OtherID)
	assert.Equal(t, ParticipantID("alice"), edge.View("bob").OtherID)

	require.NoError(t, edge.Accept("bob"))
	assert.Equal(t, StatusConnected, edge.View("alice").Status)
	assert.Equal(t, StatusConnected, edge.View("bob").Status)
}

func TestLifecycleManager_FullFlow(t *testing.T) {
	ctx := context.Background()
	manager, _ := testManager()

	edge, err := manager.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, EdgeStatePending, edge.State)

	view, err := manager.ViewFor(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, StatusRequestReceived, view.Status)

	edge, err = manager.AcceptRequest(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, EdgeStateConnected, edge.State)

	view, err = manager.ViewFor(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusConnected, view.Status)
}

func TestLifecycleManager_RejectsSelfReference(t *testing.T) {
	ctx := context.Background()
	manager, _ := testManager()

	_, err := manager.SendRequest(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfReference)

	_, err = manager.SetFavorite(ctx, "alice", "alice", true)
	assert.ErrorIs(t, err, ErrSelfReference)

	_, err = manager.ViewFor(ctx, "alice", "alice")
	assert.ErrorIs(t, err, ErrSelfReference)
}

func TestLifecycleManager_AcceptWrongRequester(t *testing.T) {
	ctx := context.Background()
	manager, _ := testManager()

	_, err := manager.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	// bob tries to accept a request alice never received from carol
	_, err = manager.AcceptRequest(ctx, "bob", "carol")
	assert.ErrorIs(t, err, ErrNoSuchRequest)
}

func TestLifecycleManager_ViewForMissingEdge(t *testing.T) {
	ctx := context.Background()
	manager, _ := testManager()

	view, err := manager.ViewFor(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, StatusNone, view.Status)
	assert.False(t, view.Favorited)
}

func TestLifecycleManager_Connections(t *testing.T) {
	ctx := context.Background()
	manager, _ := testManager()

	// alice: connected with bob, outgoing to carol, incoming from dave,
	// and dave is also a favorite
	_, err := manager.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = manager.AcceptRequest(ctx, "bob", "alice")
	require.NoError(t, err)

	_, err = manager.SendRequest(ctx, "alice", "carol")
	require.NoError(t, err)

	_, err = manager.SendRequest(ctx, "dave", "alice")
	require.NoError(t, err)
	_, err = manager.SetFavorite(ctx, "alice", "dave", true)
	require.NoError(t, err)

	summary, err := manager.Connections(ctx, "alice")
	require.NoError(t, err)

	require.Len(t, summary.Connected, 1)
	assert.Equal(t, ParticipantID("bob"), summary.Connected[0].OtherID)

	require.Len(t, summary.Sent, 1)
	assert.Equal(t, ParticipantID("carol"), summary.Sent[0].OtherID)

	require.Len(t, summary.Received, 1)
	assert.Equal(t, ParticipantID("dave"), summary.Received[0].OtherID)

	require.Len(t, summary.Favorites, 1)
	assert.Equal(t, ParticipantID("dave"), summary.Favorites[0].OtherID)
}

func TestLifecycleManager_ConcurrentFavorites(t *testing.T) {
	ctx := context.Background()
	manager, repo := testManager()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			other := ParticipantID(fmt.Sprintf("p%d", i))
			_, err := manager.SetFavorite(ctx, "alice", other, true)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	edges, err := repo.LoadEdges(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, edges, 20)
}
