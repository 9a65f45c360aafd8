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
// RESPOND TO CONNECTION REQUEST
// Две команды над одним ожидающим ребром:
//   - Accept: pending → connected, легален только для адресата;
//   - Reject: pending → none, легален для обеих сторон (отказ адресата
//     и отзыв отправителя — один и тот же обратный переход).
// ══════════════════════════════════════════════════════════════════════════════

// AcceptConnectionRequestCommand принимает ожидающий запрос.
type AcceptConnectionRequestCommand struct {
	// ViewerID - кто принимает (должен быть адресатом).
	ViewerID string

	// RequesterID - кто отправил запрос.
	RequesterID string

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c AcceptConnectionRequestCommand) Validate() error {
	if c.ViewerID == "" {
		return errors.New("accept_connection_request: viewer_id is required")
	}
	if c.RequesterID == "" {
		return errors.New("accept_connection_request: requester_id is required")
	}
	if c.ViewerID == c.RequesterID {
		return matching.ErrSelfReference
	}
	return nil
}

// AcceptConnectionRequestResult содержит результат принятия.
type AcceptConnectionRequestResult struct {
	// EdgeID - ID ребра пары.
	EdgeID string

	// Status - статус связи со стороны принявшего.
	Status matching.ConnectionStatus

	// Events - сгенерированные доменные события.
	Events []shared.Event

	// ConnectedAt - когда связь была подтверждена.
	ConnectedAt time.Time
}

// AcceptConnectionRequestHandler обрабатывает AcceptConnectionRequestCommand.
type AcceptConnectionRequestHandler struct {
	lifecycle *matching.LifecycleManager
	publisher shared.EventPublisher
}

// NewAcceptConnectionRequestHandler создаёт обработчик.
func NewAcceptConnectionRequestHandler(lifecycle *matching.LifecycleManager, publisher shared.EventPublisher) *AcceptConnectionRequestHandler {
	return &AcceptConnectionRequestHandler{lifecycle: lifecycle, publisher: publisher}
}

// Handle выполняет команду принятия запроса.
func (h *AcceptConnectionRequestHandler) Handle(ctx context.Context, cmd AcceptConnectionRequestCommand) (*AcceptConnectionRequestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	viewerID := matching.ParticipantID(cmd.ViewerID)
	requesterID := matching.ParticipantID(cmd.RequesterID)

	edge, err := h.lifecycle.AcceptRequest(ctx, viewerID, requesterID)
	if err != nil {
		return nil, fmt.Errorf("accept_connection_request: %w", err)
	}

	result := &AcceptConnectionRequestResult{
		EdgeID: edge.ID,
		Status: edge.View(viewerID).Status,
		Events: make([]shared.Event, 0, 1),
	}
	if edge.ConnectedAt != nil {
		result.ConnectedAt = *edge.ConnectedAt
	}

	event := shared.NewConnectionAcceptedEvent(edge.Key(), cmd.RequesterID, cmd.ViewerID)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)
	if h.publisher != nil {
		_ = h.publisher.Publish(event)
	}

	return result, nil
}

// RejectConnectionRequestCommand отклоняет или отзывает ожидающий запрос.
type RejectConnectionRequestCommand struct {
	// ViewerID - кто отклоняет (адресат) или отзывает (отправитель).
	ViewerID string

	// OtherID - второй участник пары.
	OtherID string

	// CorrelationID для трассировки.
	CorrelationID string
}

// Validate проверяет корректность команды.
func (c RejectConnectionRequestCommand) Validate() error {
	if c.ViewerID == "" {
		return errors.New("reject_connection_request: viewer_id is required")
	}
	if c.OtherID == "" {
		return errors.New("reject_connection_request: other_id is required")
	}
	if c.ViewerID == c.OtherID {
		return matching.ErrSelfReference
	}
	return nil
}

// RejectConnectionRequestResult содержит результат отклонения.
type RejectConnectionRequestResult struct {
	// EdgeID - ID ребра пары.
	EdgeID string

	// Withdrawn - true, если запрос отозвал сам отправитель.
	Withdrawn bool

	// Events - сгенерированные доменные события.
	Events []shared.Event
}

// RejectConnectionRequestHandler обрабатывает RejectConnectionRequestCommand.
type RejectConnectionRequestHandler struct {
	lifecycle *matching.LifecycleManager
	publisher shared.EventPublisher
}

// NewRejectConnectionRequestHandler создаёт обработчик.
func NewRejectConnectionRequestHandler(lifecycle *matching.LifecycleManager, publisher shared.EventPublisher) *RejectConnectionRequestHandler {
	return &RejectConnectionRequestHandler{lifecycle: lifecycle, publisher: publisher}
}

// Handle выполняет команду отклонения запроса.
func (h *RejectConnectionRequestHandler) Handle(ctx context.Context, cmd RejectConnectionRequestCommand) (*RejectConnectionRequestResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	viewerID := matching.ParticipantID(cmd.ViewerID)
	otherID := matching.ParticipantID(cmd.OtherID)

	// Снимок до перехода: после Reject отправитель уже стёрт с ребра.
	withdrawn := false
	requesterID, addresseeID := cmd.OtherID, cmd.ViewerID
	if view, err := h.lifecycle.ViewFor(ctx, viewerID, otherID); err == nil && view.Status == matching.StatusRequestSent {
		withdrawn = true
		requesterID, addresseeID = cmd.ViewerID, cmd.OtherID
	}

	edge, err := h.lifecycle.RejectRequest(ctx, viewerID, otherID)
	if err != nil {
		return nil, fmt.Errorf("reject_connection_request: %w", err)
	}

	result := &RejectConnectionRequestResult{
		EdgeID:    edge.ID,
		Withdrawn: withdrawn,
		Events:    make([]shared.Event, 0, 1),
	}

	event := shared.NewConnectionRejectedEvent(edge.Key(), requesterID, addresseeID, withdrawn)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)
	if h.publisher != nil {
		_ = h.publisher.Publish(event)
	}

	return result, nil
}
