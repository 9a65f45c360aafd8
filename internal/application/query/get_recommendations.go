// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET RECOMMENDATIONS QUERY
// Возвращает top-N наиболее совместимых участников для зрителя.
// Это КЛЮЧЕВОЙ запрос движка, реализующий философию:
// "Правильный контакт в правильный момент".
//
// Каталог участников превращается из алфавитного списка в ранжированную
// ленту: каждый результат объясним (причины) и действенен (статус связи).
// ══════════════════════════════════════════════════════════════════════════════

// MaxRecommendationLimit - верхняя граница limit для одного запроса.
const MaxRecommendationLimit = 50

// GetRecommendationsQuery содержит параметры запроса рекомендаций.
type GetRecommendationsQuery struct {
	// ViewerID - ID участника, для которого строятся рекомендации.
	ViewerID string

	// Limit - максимальное количество результатов. Обязателен и должен
	// быть положительным; limit <= 0 отклоняется как ошибка ввода.
	Limit int

	// BypassCache - пропустить кэш и пересчитать заново.
	BypassCache bool
}

// Validate проверяет корректность параметров.
// Limit обязателен: нулевой или отрицательный limit — ошибка ввода,
// а не "без ограничения". Значение по умолчанию подставляет
// транспортный слой, когда параметр вовсе не передан.
func (q *GetRecommendationsQuery) Validate() error {
	if q.ViewerID == "" {
		return errors.New("viewer_id is required")
	}
	if q.Limit <= 0 {
		return matching.ErrInvalidLimit
	}
	if q.Limit > MaxRecommendationLimit {
		q.Limit = MaxRecommendationLimit
	}
	return nil
}

// RecommendationDTO - один рекомендованный участник.
type RecommendationDTO struct {
	// ParticipantID - ID кандидата.
	ParticipantID string `json:"participant_id"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// Kind - тип участника (exhibitor, partner, visitor).
	Kind string `json:"kind"`

	// Region - географический регион.
	Region string `json:"region"`

	// Score - итоговый балл совместимости 0-100.
	Score int `json:"score"`

	// Factors - под-баллы по пяти измерениям в процентах.
	Factors matching.FactorPercentages `json:"factors"`

	// Reasons - до четырёх коротких причин совместимости.
	Reasons []string `json:"reasons"`

	// MutualConnections - количество общих связей.
	MutualConnections int `json:"mutual_connections"`

	// ConnectionStatus - статус связи со зрителем.
	ConnectionStatus string `json:"connection_status"`

	// Favorited - добавил ли зритель кандидата в избранное.
	Favorited bool `json:"favorited"`
}

// GetRecommendationsResult содержит результат запроса.
type GetRecommendationsResult struct {
	// ViewerID - для кого построены рекомендации.
	ViewerID string `json:"viewer_id"`

	// Recommendations - ранжированный список.
	Recommendations []RecommendationDTO `json:"recommendations"`

	// FromCache - результат отдан из кэша.
	FromCache bool `json:"from_cache"`
}

// RecommendationCache кэширует готовые рекомендации.
// Get возвращает (nil, nil) при промахе.
type RecommendationCache interface {
	Get(ctx context.Context, viewerID string, limit int) ([]RecommendationDTO, error)
	Set(ctx context.Context, viewerID string, limit int, items []RecommendationDTO) error
	Invalidate(ctx context.Context, viewerID string) error
}

// GetRecommendationsHandler обрабатывает GetRecommendationsQuery.
type GetRecommendationsHandler struct {
	profiles  matching.ProfileStore
	ranker    *matching.Ranker
	lifecycle *matching.LifecycleManager
	cache     RecommendationCache
	publisher shared.EventPublisher
}

// NewGetRecommendationsHandler создаёт обработчик.
// cache и publisher могут быть nil: кэширование и события опциональны.
func NewGetRecommendationsHandler(
	profiles matching.ProfileStore,
	ranker *matching.Ranker,
	lifecycle *matching.LifecycleManager,
	cache RecommendationCache,
	publisher shared.EventPublisher,
) *GetRecommendationsHandler {
	return &GetRecommendationsHandler{
		profiles:  profiles,
		ranker:    ranker,
		lifecycle: lifecycle,
		cache:     cache,
		publisher: publisher,
	}
}

// Handle выполняет запрос рекомендаций.
func (h *GetRecommendationsHandler) Handle(ctx context.Context, q GetRecommendationsQuery) (*GetRecommendationsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_recommendations: %w", err)
	}

	if h.cache != nil && !q.BypassCache {
		if cached, err := h.cache.Get(ctx, q.ViewerID, q.Limit); err == nil && cached != nil {
			return &GetRecommendationsResult{
				ViewerID:        q.ViewerID,
				Recommendations: cached,
				FromCache:       true,
			}, nil
		}
	}

	viewer, err := h.profiles.GetByID(ctx, matching.ParticipantID(q.ViewerID))
	if err != nil {
		return nil, fmt.Errorf("get_recommendations: viewer: %w", err)
	}

	candidates, err := h.profiles.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("get_recommendations: candidates: %w", err)
	}

	results, err := h.ranker.Recommend(ctx, viewer, candidates, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("get_recommendations: %w", err)
	}

	items := make([]RecommendationDTO, 0, len(results))
	for _, r := range results {
		dto := RecommendationDTO{
			ParticipantID:     string(r.Profile.ID),
			DisplayName:       r.Profile.DisplayName,
			Kind:              string(r.Profile.Kind),
			Region:            string(r.Profile.GeographicRegion),
			Score:             r.Score,
			Factors:           r.Factors,
			Reasons:           r.Reasons,
			MutualConnections: r.MutualConnections,
			ConnectionStatus:  string(matching.StatusNone),
		}
		if h.lifecycle != nil {
			if view, err := h.lifecycle.ViewFor(ctx, viewer.ID, r.Profile.ID); err == nil {
				dto.ConnectionStatus = string(view.Status)
				dto.Favorited = view.Favorited
			}
		}
		items = append(items, dto)
	}

	if h.cache != nil {
		_ = h.cache.Set(ctx, q.ViewerID, q.Limit, items)
	}

	if h.publisher != nil {
		topScore := 0
		if len(items) > 0 {
			topScore = items[0].Score
		}
		_ = h.publisher.Publish(shared.NewRecommendationsServedEvent(q.ViewerID, len(items), topScore))
	}

	return &GetRecommendationsResult{
		ViewerID:        q.ViewerID,
		Recommendations: items,
	}, nil
}
