// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEND CONNECTION REQUEST COMMAND
// Переводит ребро пары none → pending от имени зрителя. Состояние пары —
// одно на двоих: повторный запрос и встречный запрос упираются в то же
// самое ребро и отклоняются переходом автомата, а не дедупликацией списков.
// ══════════════════════════════════════════════════════════════════════════════

// SendConnectionRequestCommand содержит данные запроса на связь.
type SendConnectionRequestCommand struct {
	// ViewerID - кто отправляет запрос.
	ViewerID string

	// CandidateID - кому отправляется запрос.
	CandidateID string

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c SendConnectionRequestCommand) Validate() error {
	if c.ViewerID == "" {
		return errors.New("send_connection_request: viewer_id is required")
	}
	if c.CandidateID == "" {
		return errors.New("send_connection_request: candidate_id is required")
	}
	if c.ViewerID == c.CandidateID {
		return matching.ErrSelfReference
	}
	return nil
}

// SendConnectionRequestResult содержит результат команды.
type SendConnectionRequestResult struct {
	// EdgeID - ID ребра пары.
	EdgeID string

	// Status - статус связи со стороны отправителя.
	Status matching.ConnectionStatus

	// Events - сгенерированные доменные события.
	Events []shared.Event

	// RequestedAt - когда запрос был отправлен.
	RequestedAt time.Time
}

// SendConnectionRequestHandler обрабатывает SendConnectionRequestCommand.
type SendConnectionRequestHandler struct {
	profiles  matching.ProfileStore
	lifecycle *matching.LifecycleManager
	publisher shared.EventPublisher
}

// NewSendConnectionRequestHandler создаёт обработчик.
func NewSendConnectionRequestHandler(
	profiles matching.ProfileStore,
	lifecycle *matching.LifecycleManager,
	publisher shared.EventPublisher,
) *SendConnectionRequestHandler {
	return &SendConnectionRequestHandler{
		profiles:  profiles,
		lifecycle: lifecycle,
		publisher: publisher,
	}
}

// Handle выполняет команду отправки запроса.
func (h *SendConnectionRequestHandler) Handle(ctx context.Context, cmd SendConnectionRequestCommand) (*SendConnectionRequestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	viewerID := matching.ParticipantID(cmd.ViewerID)
	candidateID := matching.ParticipantID(cmd.CandidateID)

	if _, err := h.profiles.GetByID(ctx, viewerID); err != nil {
		return nil, fmt.Errorf("send_connection_request: viewer: %w", err)
	}
	if _, err := h.profiles.GetByID(ctx, candidateID); err != nil {
		return nil, fmt.Errorf("send_connection_request: candidate: %w", err)
	}

	edge, err := h.lifecycle.SendRequest(ctx, viewerID, candidateID)
	if err != nil {
		return nil, fmt.Errorf("send_connection_request: %w", err)
	}

	result := &SendConnectionRequestResult{
		EdgeID:      edge.ID,
		Status:      edge.View(viewerID).Status,
		Events:      make([]shared.Event, 0, 1),
		RequestedAt: edge.UpdatedAt,
	}

	event := shared.NewConnectionRequestedEvent(edge.Key(), cmd.ViewerID, cmd.CandidateID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)
	if h.publisher != nil {
		_ = h.publisher.Publish(event)
	}

	return result, nil
}
