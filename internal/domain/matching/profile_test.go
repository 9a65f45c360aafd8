package matching

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
)

func TestNewTagSet_DeduplicatesCaseInsensitively(t *testing.T) {
	set := NewTagSet("Logistics", "logistics", "  Shipping  ", "", "LOGISTICS")

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, TagSet{"Logistics", "Shipping"}, set)
	assert.True(t, set.Contains("shipping"))
	assert.False(t, set.Contains("energy"))
}

func TestTagSet_Intersect_PreservesOrder(t *testing.T) {
	a := NewTagSet("smart ports", "digitalisation", "green energy")
	b := NewTagSet("Green Energy", "Smart Ports")

	common := a.Intersect(b)
	assert.Equal(t, TagSet{"smart ports", "green energy"}, common)
}

func TestTagSet_OverlapRatio(t *testing.T) {
	tests := []struct {
		name string
		a    TagSet
		b    TagSet
		want float64
	}{
		{"identical sets", NewTagSet("a", "b"), NewTagSet("a", "b"), 1.0},
		{"half overlap against larger set", NewTagSet("a"), NewTagSet("a", "b"), 0.5},
		{"no overlap", NewTagSet("a"), NewTagSet("b"), 0.0},
		{"both empty", NewTagSet(), NewTagSet(), 0.0},
		{"one empty", NewTagSet("a"), NewTagSet(), 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, tt.a.OverlapRatio(tt.b), 1e-9)
			// symmetric by definition
			assert.InDelta(t, tt.want, tt.b.OverlapRatio(tt.a), 1e-9)
		})
	}
}

func TestProfile_Validate(t *testing.T) {
	valid := &Profile{ID: "p1", Kind: KindExhibitor}
	assert.NoError(t, valid.Validate())

	noID := &Profile{Kind: KindVisitor}
	assert.ErrorIs(t, noID.Validate(), ErrInvalidProfile)

	badKind := &Profile{ID: "p1", Kind: "sponsor"}
	assert.ErrorIs(t, badKind.Validate(), ErrInvalidProfile)
}

func TestProfile_TenureYears(t *testing.T) {
	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

	p := &Profile{ID: "p1", CreatedAt: time.Date(2021, time.March, 10, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 5, p.TenureYears(now))

	fresh := &Profile{ID: "p2", CreatedAt: now.Add(24 * time.Hour)}
	assert.Equal(t, 0, fresh.TenureYears(now))

	unset := &Profile{ID: "p3"}
	assert.Equal(t, 0, unset.TenureYears(now))
}

func TestRegion_Equals(t *testing.T) {
	assert.True(t, Region("Europe").Equals("europe"))
	assert.False(t, Region("Europe").Equals("Asia"))
	assert.True(t, Region("").Equals(""))
	assert.False(t, Region("").IsValid())
}

func TestDomainErrors_ClassifyByKind(t *testing.T) {
	// каждая доменная ошибка несёт базовый вид для errors.Is
	assert.ErrorIs(t, ErrParticipantNotFound, shared.ErrNotFound)
	assert.ErrorIs(t, ErrEdgeNotFound, shared.ErrNotFound)
	assert.ErrorIs(t, ErrInvalidLimit, shared.ErrInvalidInput)
	assert.ErrorIs(t, ErrInvalidWeights, shared.ErrInvalidInput)
	assert.ErrorIs(t, ErrInvalidTransition, shared.ErrStateTransition)
	assert.ErrorIs(t, ErrNoSuchRequest, shared.ErrStateTransition)
	assert.ErrorIs(t, ErrSelfReference, shared.ErrSelfReference)

	assert.True(t, shared.IsNotFound(ErrParticipantNotFound))
	assert.True(t, shared.IsValidation(ErrInvalidLimit))
	assert.True(t, shared.IsValidation(ErrInvalidProfile))
	assert.True(t, shared.IsValidation(ErrSelfReference))
	assert.True(t, shared.IsStateTransition(ErrInvalidTransition))

	// классификация переживает обёртывание через fmt.Errorf
	wrapped := fmt.Errorf("send_connection_request: %w", ErrNoSuchRequest)
	assert.ErrorIs(t, wrapped, ErrNoSuchRequest)
	assert.True(t, shared.IsStateTransition(wrapped))
	assert.False(t, shared.IsNotFound(wrapped))
}
