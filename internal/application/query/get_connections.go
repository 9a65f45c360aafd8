package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET CONNECTIONS QUERY
// Сводка "моя сеть": избранное, исходящие и входящие запросы,
// подтверждённые связи. Все четыре списка — проекции одних и тех же
// рёбер, поэтому противоречия между ними невозможны.
// ══════════════════════════════════════════════════════════════════════════════

// GetConnectionsQuery содержит параметры запроса.
type GetConnectionsQuery struct {
	// ViewerID - ID участника, чья сеть запрашивается.
	ViewerID string
}

// Validate проверяет корректность параметров.
func (q *GetConnectionsQuery) Validate() error {
	if q.ViewerID == "" {
		return errors.New("viewer_id is required")
	}
	return nil
}

// ConnectionDTO - одна запись в списках сети.
type ConnectionDTO struct {
	// ParticipantID - ID второго участника.
	ParticipantID string `json:"participant_id"`

	// DisplayName - отображаемое имя (пустое, если профиль удалён).
	DisplayName string `json:"display_name,omitempty"`

	// Kind - тип участника.
	Kind string `json:"kind,omitempty"`

	// Status - статус связи со стороны зрителя.
	Status string `json:"status"`

	// Favorited - в избранном ли у зрителя.
	Favorited bool `json:"favorited"`

	// UpdatedAgo - человекочитаемая давность последнего изменения.
	UpdatedAgo string `json:"updated_ago"`
}

// GetConnectionsResult содержит сводку сети участника.
type GetConnectionsResult struct {
	// ViewerID - чья сеть.
	ViewerID string `json:"viewer_id"`

	// Favorites - кого зритель добавил в избранное.
	Favorites []ConnectionDTO `json:"favorites"`

	// Sent - исходящие ожидающие запросы.
	Sent []ConnectionDTO `json:"sent"`

	// Received - входящие ожидающие запросы.
	Received []ConnectionDTO `json:"received"`

	// Connected - подтверждённые связи.
	Connected []ConnectionDTO `json:"connected"`
}

// GetConnectionsHandler обрабатывает GetConnectionsQuery.
type GetConnectionsHandler struct {
	profiles  matching.ProfileStore
	lifecycle *matching.LifecycleManager
}

// NewGetConnectionsHandler создаёт обработчик.
func NewGetConnectionsHandler(profiles matching.ProfileStore, lifecycle *matching.LifecycleManager) *GetConnectionsHandler {
	return &GetConnectionsHandler{profiles: profiles, lifecycle: lifecycle}
}

// Handle собирает сводку сети участника.
func (h *GetConnectionsHandler) Handle(ctx context.Context, q GetConnectionsQuery) (*GetConnectionsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("get_connections: %w", err)
	}

	summary, err := h.lifecycle.Connections(ctx, matching.ParticipantID(q.ViewerID))
	if err != nil {
		return nil, fmt.Errorf("get_connections: %w", err)
	}

	return &GetConnectionsResult{
		ViewerID:  q.ViewerID,
		Favorites: h.toDTOs(ctx, summary.Favorites),
		Sent:      h.toDTOs(ctx, summary.Sent),
		Received:  h.toDTOs(ctx, summary.Received),
		Connected: h.toDTOs(ctx, summary.Connected),
	}, nil
}

func (h *GetConnectionsHandler) toDTOs(ctx context.Context, views []matching.EdgeView) []ConnectionDTO {
	items := make([]ConnectionDTO, 0, len(views))
	for _, view := range views {
		dto := ConnectionDTO{
			ParticipantID: string(view.OtherID),
			Status:        string(view.Status),
			Favorited:     view.Favorited,
			UpdatedAgo:    timeutil.FormatRelative(view.UpdatedAt),
		}
		// a vanished profile keeps the edge visible, just without a name
		if profile, err := h.profiles.GetByID(ctx, view.OtherID); err == nil {
			dto.DisplayName = profile.DisplayName
			dto.Kind = string(profile.Kind)
		}
		items = append(items, dto)
	}
	return items
}
