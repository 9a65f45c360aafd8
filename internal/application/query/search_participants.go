package query

import (
	"context"
	"fmt"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH PARTICIPANTS QUERY
// Декларативный поиск по каталогу участников. Поиск сужает множество,
// ранжирование упорядочивает: критерии комбинируются через AND,
// значения внутри одного критерия — через ANY-of.
// ══════════════════════════════════════════════════════════════════════════════

// MaxSearchLimit - верхняя граница limit для одного поиска.
const MaxSearchLimit = 100

// SearchParticipantsQuery содержит критерии поиска.
type SearchParticipantsQuery struct {
	// ViewerID - ID зрителя. Опционален; если задан, зритель
	// исключается из результатов.
	ViewerID string

	// Kind - фильтр по типу участника (пустой = все).
	Kind string

	// Sectors - профиль подходит, если имеет хотя бы один из секторов.
	Sectors []string

	// Regions - профиль подходит, если его регион входит в список.
	Regions []string

	// CompanySizeBands - фильтр по диапазону размера компании.
	CompanySizeBands []string

	// Keyword - подстрока для поиска по имени и описанию.
	Keyword string

	// Limit - максимальное количество результатов (по умолчанию 50).
	Limit int
}

// Validate проверяет корректность параметров.
func (q *SearchParticipantsQuery) Validate() error {
	if q.Kind != "" && !matching.ParticipantKind(q.Kind).IsValid() {
		return fmt.Errorf("invalid participant kind: %s", q.Kind)
	}
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Limit > MaxSearchLimit {
		q.Limit = MaxSearchLimit
	}
	return nil
}

// ParticipantDTO - участник в результатах поиска.
type ParticipantDTO struct {
	// ParticipantID - ID участника.
	ParticipantID string `json:"participant_id"`

	// DisplayName - отображаемое имя.
	DisplayName string `json:"display_name"`

	// Kind - тип участника.
	Kind string `json:"kind"`

	// Description - описание компании.
	Description string `json:"description,omitempty"`

	// Sectors - отраслевые секторы.
	Sectors []string `json:"sectors,omitempty"`

	// Region - географический регион.
	Region string `json:"region,omitempty"`

	// CompanySizeBand - диапазон размера компании.
	CompanySizeBand string `json:"company_size_band,omitempty"`
}

// SearchParticipantsResult содержит результат поиска.
type SearchParticipantsResult struct {
	// Participants - найденные участники в стабильном порядке.
	Participants []ParticipantDTO `json:"participants"`

	// TotalMatched - сколько всего профилей подошло (до limit).
	TotalMatched int `json:"total_matched"`
}

// SearchParticipantsHandler обрабатывает SearchParticipantsQuery.
type SearchParticipantsHandler struct {
	profiles matching.ProfileStore
}

// NewSearchParticipantsHandler создаёт обработчик.
func NewSearchParticipantsHandler(profiles matching.ProfileStore) *SearchParticipantsHandler {
	return &SearchParticipantsHandler{profiles: profiles}
}

// Handle выполняет поиск.
func (h *SearchParticipantsHandler) Handle(ctx context.Context, q SearchParticipantsQuery) (*SearchParticipantsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("search_participants: %w", err)
	}

	var (
		profiles []*matching.Profile
		err      error
	)
	if q.Kind != "" {
		profiles, err = h.profiles.ListByKind(ctx, matching.ParticipantKind(q.Kind))
	} else {
		profiles, err = h.profiles.ListAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("search_participants: %w", err)
	}

	matched := matching.Filter(profiles, matching.FilterCriteria{
		Sectors:          q.Sectors,
		Regions:          q.Regions,
		CompanySizeBands: q.CompanySizeBands,
		Keyword:          q.Keyword,
	})

	result := &SearchParticipantsResult{
		Participants: make([]ParticipantDTO, 0, len(matched)),
	}
	for _, p := range matched {
		if q.ViewerID != "" && string(p.ID) == q.ViewerID {
			continue
		}
		result.TotalMatched++
		if len(result.Participants) == q.Limit {
			continue
		}
		result.Participants = append(result.Participants, ParticipantDTO{
			ParticipantID:   string(p.ID),
			DisplayName:     p.DisplayName,
			Kind:            string(p.Kind),
			Description:     p.Description,
			Sectors:         p.Sectors,
			Region:          string(p.GeographicRegion),
			CompanySizeBand: string(p.CompanySizeBand),
		})
	}
	return result, nil
}
