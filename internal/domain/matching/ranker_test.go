package matching

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubGraph serves canned mutual-connection counts keyed by candidate ID.
type stubGraph struct {
	counts map[ParticipantID]int
	err    error
}

func (g *stubGraph) MutualConnectionCount(_ context.Context, _, candidate ParticipantID) (int, error) {
	if g.err != nil {
		return 0, g.err
	}
	return g.counts[candidate], nil
}

func TestRanker_Recommend_InvalidInput(t *testing.T) {
	ranker := NewRanker(MustScorer(WithClock(fixedClock)), nil)
	viewer := testProfile("viewer", nil)

	_, err := ranker.Recommend(context.Background(), viewer, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = ranker.Recommend(context.Background(), viewer, nil, -5)
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = ranker.Recommend(context.Background(), nil, nil, 10)
	assert.ErrorIs(t, err, ErrInvalidProfile)
}

func TestRanker_Recommend_ExcludesViewer(t *testing.T) {
	ranker := NewRanker(MustScorer(WithClock(fixedClock)), nil)
	viewer := testProfile("viewer", nil)

	candidates := []*Profile{
		testProfile("viewer", nil), // self must never be recommended
		nil,
		testProfile("other", nil),
	}

	results, err := ranker.Recommend(context.Background(), viewer, candidates, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, ParticipantID("other"), results[0].Profile.ID)
}

func TestRanker_Recommend_EmptyCandidates(t *testing.T) {
	ranker := NewRanker(MustScorer(WithClock(fixedClock)), nil)

	results, err := ranker.Recommend(context.Background(), testProfile("viewer", nil), nil, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRanker_Recommend_SortsByScoreThenID(t *testing.T) {
	ranker := NewRanker(MustScorer(WithClock(fixedClock)), nil)

	viewer := testProfile("viewer", func(p *Profile) {
		p.Sectors = NewTagSet("logistics")
	})

	// strong shares the sector, twins b and a tie with no overlap at all
	strong := testProfile("strong", func(p *Profile) {
		p.Sectors = NewTagSet("logistics")
	})
	twinB := testProfile("twin-b", func(p *Profile) { p.Sectors = nil })
	twinA := testProfile("twin-a", func(p *Profile) { p.Sectors = nil })

	results, err := ranker.Recommend(context.Background(), viewer, []*Profile{twinB, strong, twinA}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, ParticipantID("strong"), results[0].Profile.ID)
	// equal scores fall back to ID order, regardless of insertion order
	assert.Equal(t, results[1].Score, results[2].Score)
	assert.Equal(t, ParticipantID("twin-a"), results[1].Profile.ID)
	assert.Equal(t, ParticipantID("twin-b"), results[2].Profile.ID)
}

func TestRanker_Recommend_AppliesLimit(t *testing.T) {
	ranker := NewRanker(MustScorer(WithClock(fixedClock)), nil)
	viewer := testProfile("viewer", nil)

	candidates := []*Profile{
		testProfile("c1", nil),
		testProfile("c2", nil),
		testProfile("c3", nil),
	}

	results, err := ranker.Recommend(context.Background(), viewer, candidates, 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRanker_Recommend_AttachesMutualConnections(t *testing.T) {
	graph := &stubGraph{counts: map[ParticipantID]int{"c1": 3, "c2": 1}}
	ranker := NewRanker(MustScorer(WithClock(fixedClock)), graph)
	viewer := testProfile("viewer", nil)

	results, err := ranker.Recommend(context.Background(), viewer, []*Profile{
		testProfile("c1", nil),
		testProfile("c2", nil),
	}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	byID := map[ParticipantID]int{}
	for _, r := range results {
		byID[r.Profile.ID] = r.MutualConnections
	}
	assert.Equal(t, 3, byID["c1"])
	assert.Equal(t, 1, byID["c2"])
}

func TestRanker_Recommend_GraphFailureIsNotFatal(t *testing.T) {
	graph := &stubGraph{err: errors.New("graph unavailable")}
	ranker := NewRanker(MustScorer(WithClock(fixedClock)), graph)

	results, err := ranker.Recommend(context.Background(), testProfile("viewer", nil), []*Profile{
		testProfile("c1", nil),
	}, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Zero(t, results[0].MutualConnections)
}

func TestMatchResultList_TopN(t *testing.T) {
	list := MatchResultList{
		{Profile: testProfile("a", nil), Score: 90},
		{Profile: testProfile("b", nil), Score: 80},
	}

	assert.Len(t, list.TopN(1), 1)
	assert.Len(t, list.TopN(2), 2)
	assert.Len(t, list.TopN(5), 2)
}
