package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET COMPATIBILITY QUERY
// Детальная совместимость одной пары: под-баллы, итог, причины и текущий
// статус связи. Используется карточкой участника "почему мы совместимы".
// ══════════════════════════════════════════════════════════════════════════════

// GetCompatibilityQuery содержит параметры запроса.
type GetCompatibilityQuery struct {
	// ViewerID - ID зрителя.
	ViewerID string

	// CandidateID - ID кандидата.
	CandidateID string
}

// Validate проверяет корректность параметров.
func (q *GetCompatibilityQuery) Validate() error {
	if q.ViewerID == "" {
		return errors.New("viewer_id is required")
	}
	if q.CandidateID == "" {
		return errors.New("candidate_id is required")
	}
	if q.ViewerID == q.CandidateID {
		return matching.ErrSelfReference
	}
	return nil
}

// CompatibilityDTO - детальная совместимость пары.
type CompatibilityDTO struct {
	// ViewerID - зритель.
	ViewerID string `json:"viewer_id"`

	// CandidateID - кандидат.
	CandidateID string `json:"candidate_id"`

	// Score - итоговый балл 0-100.
	Score int `json:"score"`

	// Factors - под-баллы по пяти измерениям в процентах.
	Factors matching.FactorPercentages `json:"factors"`

	// Reasons - до четырёх коротких причин совместимости.
	Reasons []string `json:"reasons"`

	// MutualConnections - количество общих связей.
	MutualConnections int `json:"mutual_connections"`

	// ConnectionStatus - статус связи пары со стороны зрителя.
	ConnectionStatus string `json:"connection_status"`

	// Favorited - добавил ли зритель кандидата в избранное.
	Favorited bool `json:"favorited"`
}

// GetCompatibilityHandler обрабатывает GetCompatibilityQuery.
type GetCompatibilityHandler struct {
	profiles  matching.ProfileStore
	scorer    *matching.Scorer
	lifecycle *matching.LifecycleManager
	graph     matching.RelationshipGraph
}

// NewGetCompatibilityHandler создаёт обработчик.
// lifecycle и graph могут быть nil.
func NewGetCompatibilityHandler(
	profiles matching.ProfileStore,
	scorer *matching.Scorer,
	lifecycle *matching.LifecycleManager,
	graph matching.RelationshipGraph,
) *GetCompatibilityHandler {
	return &GetCompatibilityHandler{
		profiles:  profiles,
		scorer:    scorer,
		lifecycle: lifecycle,
		graph:     graph,
	}
}

// Handle вычисляет совместимость пары.
func (h *GetCompatibilityHandler) Handle(ctx context.Context, q GetCompatibilityQuery) (*CompatibilityDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_compatibility: %w", err)
	}

	viewer, err := h.profiles.GetByID(ctx, matching.ParticipantID(q.ViewerID))
	if err != nil {
		return nil, fmt.Errorf("get_compatibility: viewer: %w", err)
	}
	candidate, err := h.profiles.GetByID(ctx, matching.ParticipantID(q.CandidateID))
	if err != nil {
		return nil, fmt.Errorf("get_compatibility: candidate: %w", err)
	}

	factors := h.scorer.Score(viewer, candidate)
	dto := &CompatibilityDTO{
		ViewerID:         q.ViewerID,
		CandidateID:      q.CandidateID,
		Score:            h.scorer.OverallScore(factors),
		Factors:          factors.Percentages(),
		Reasons:          h.scorer.Reasons(viewer, candidate, factors),
		ConnectionStatus: string(matching.StatusNone),
	}

	if h.graph != nil {
		// best effort: a missing count never fails the query
		if count, err := h.graph.MutualConnectionCount(ctx, viewer.ID, candidate.ID); err == nil && count > 0 {
			dto.MutualConnections = count
		}
	}
	if h.lifecycle != nil {
		if view, err := h.lifecycle.ViewFor(ctx, viewer.ID, candidate.ID); err == nil {
			dto.ConnectionStatus = string(view.Status)
			dto.Favorited = view.Favorited
		}
	}
	return dto, nil
}
