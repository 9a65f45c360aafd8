package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAVORITE PARTICIPANT COMMAND
// Флаг избранного ортогонален автомату связи: его можно ставить и
// снимать в любом состоянии ребра, идемпотентно.
// ══════════════════════════════════════════════════════════════════════════════

// FavoriteParticipantCommand выставляет или снимает флаг избранного.
type FavoriteParticipantCommand struct {
	// ViewerID - кто добавляет в избранное.
	ViewerID string

	// CandidateID - кого добавляют.
	CandidateID string

	// Favorited - true добавить, false убрать.
	Favorited bool

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c FavoriteParticipantCommand) Validate() error {
	if c.ViewerID == "" {
		return errors.New("favorite_participant: viewer_id is required")
	}
	if c.CandidateID == "" {
		return errors.New("favorite_participant: candidate_id is required")
	}
	if c.ViewerID == c.CandidateID {
		return matching.ErrSelfReference
	}
	return nil
}

// FavoriteParticipantResult содержит результат команды.
type FavoriteParticipantResult struct {
	// EdgeID - ID ребра пары.
	EdgeID string

	// Favorited - итоговое значение флага.
	Favorited bool

	// Events - сгенерированные доменные события.
	Events []shared.Event
}

// FavoriteParticipantHandler обрабатывает FavoriteParticipantCommand.
type FavoriteParticipantHandler struct {
	profiles  matching.ProfileStore
	lifecycle *matching.LifecycleManager
	publisher shared.EventPublisher
}

// NewFavoriteParticipantHandler создаёт обработчик.
func NewFavoriteParticipantHandler(
	profiles matching.ProfileStore,
	lifecycle *matching.LifecycleManager,
	publisher shared.EventPublisher,
) *FavoriteParticipantHandler {
	return &FavoriteParticipantHandler{
		profiles:  profiles,
		lifecycle: lifecycle,
		publisher: publisher,
	}
}

// Handle выполняет команду.
func (h *FavoriteParticipantHandler) Handle(ctx context.Context, cmd FavoriteParticipantCommand) (*FavoriteParticipantResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	viewerID := matching.ParticipantID(cmd.ViewerID)
	candidateID := matching.ParticipantID(cmd.CandidateID)

	if _, err := h.profiles.GetByID(ctx, candidateID); err != nil {
		return nil, fmt.Errorf("favorite_participant: candidate: %w", err)
	}

	edge, err := h.lifecycle.SetFavorite(ctx, viewerID, candidateID, cmd.Favorited)
	if err != nil {
		return nil, fmt.Errorf("favorite_participant: %w", err)
	}

	result := &FavoriteParticipantResult{
		EdgeID:    edge.ID,
		Favorited: edge.FavoritedBy(viewerID),
		Events:    make([]shared.Event, 0, 1),
	}

	event := shared.NewParticipantFavoritedEvent(cmd.ViewerID, cmd.CandidateID, cmd.Favorited)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)
	if h.publisher != nil {
		_ = h.publisher.Publish(event)
	}

	return result, nil
}
