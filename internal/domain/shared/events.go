// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event marks something significant that external
// subscribers (notification service, analytics) may react to.
const (
	// Connection lifecycle events
	EventConnectionRequested = EventType("connection.requested")
	EventConnectionAccepted  = EventType("connection.accepted")
	EventConnectionRejected  = EventType("connection.rejected")
	EventConnectionWithdrawn = EventType("connection.withdrawn")

	// Favorite events
	EventParticipantFavorited   = EventType("favorite.added")
	EventParticipantUnfavorited = EventType("favorite.removed")

	// Recommendation events
	EventRecommendationsServed = EventType("matching.recommendations_served")
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Connection Lifecycle Events
// ═══════════════════════════════════════════════════════════════════════════

// ConnectionRequestedEvent is emitted when a participant sends a connection
// request. The aggregate is the edge key (requester:addressee).
type ConnectionRequestedEvent struct {
	BaseEvent
	RequesterID string `json:"requester_id"`
	AddresseeID string `json:"addressee_id"`
}

// Payload implements Event interface.
func (e ConnectionRequestedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"requester_id": e.RequesterID,
		"addressee_id": e.AddresseeID,
	}
}

// NewConnectionRequestedEvent creates a new ConnectionRequestedEvent.
func NewConnectionRequestedEvent(edgeKey, requesterID, addresseeID string) ConnectionRequestedEvent {
	return ConnectionRequestedEvent{
		BaseEvent:   NewBaseEvent(EventConnectionRequested, edgeKey),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
	}
}

// ConnectionAcceptedEvent is emitted when a pending request is accepted.
type ConnectionAcceptedEvent struct {
	BaseEvent
	RequesterID string `json:"requester_id"`
	AddresseeID string `json:"addressee_id"`
}

// Payload implements Event interface.
func (e ConnectionAcceptedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"requester_id": e.RequesterID,
		"addressee_id": e.AddresseeID,
	}
}

// NewConnectionAcceptedEvent creates a new ConnectionAcceptedEvent.
func NewConnectionAcceptedEvent(edgeKey, requesterID, addresseeID string) ConnectionAcceptedEvent {
	return ConnectionAcceptedEvent{
		BaseEvent:   NewBaseEvent(EventConnectionAccepted, edgeKey),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
	}
}

// ConnectionRejectedEvent is emitted when a pending request is rejected or
// withdrawn by the requester.
type ConnectionRejectedEvent struct {
	BaseEvent
	RequesterID string `json:"requester_id"`
	AddresseeID string `json:"addressee_id"`
	Withdrawn   bool   `json:"withdrawn"`
}

// Payload implements Event interface.
func (e ConnectionRejectedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"requester_id": e.RequesterID,
		"addressee_id": e.AddresseeID,
		"withdrawn":    e.Withdrawn,
	}
}

// NewConnectionRejectedEvent creates a new ConnectionRejectedEvent.
func NewConnectionRejectedEvent(edgeKey, requesterID, addresseeID string, withdrawn bool) ConnectionRejectedEvent {
	eventType := EventConnectionRejected
	if withdrawn {
		eventType = EventConnectionWithdrawn
	}
	return ConnectionRejectedEvent{
		BaseEvent:   NewBaseEvent(eventType, edgeKey),
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Withdrawn:   withdrawn,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Favorite Events
// ═══════════════════════════════════════════════════════════════════════════

// ParticipantFavoritedEvent is emitted when a favorite flag is toggled.
type ParticipantFavoritedEvent struct {
	BaseEvent
	ViewerID    string `json:"viewer_id"`
	CandidateID string `json:"candidate_id"`
	Favorited   bool   `json:"favorited"`
}

// Payload implements Event interface.
func (e ParticipantFavoritedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"viewer_id":    e.ViewerID,
		"candidate_id": e.CandidateID,
		"favorited":    e.Favorited,
	}
}

// NewParticipantFavoritedEvent creates a new ParticipantFavoritedEvent.
func NewParticipantFavoritedEvent(viewerID, candidateID string, favorited bool) ParticipantFavoritedEvent {
	eventType := EventParticipantFavorited
	if !favorited {
		eventType = EventParticipantUnfavorited
	}
	return ParticipantFavoritedEvent{
		BaseEvent:   NewBaseEvent(eventType, viewerID),
		ViewerID:    viewerID,
		CandidateID: candidateID,
		Favorited:   favorited,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Recommendation Events
// ═══════════════════════════════════════════════════════════════════════════

// RecommendationsServedEvent is emitted after a ranked recommendation list is
// produced for a viewer. Useful for analytics on engine usage.
type RecommendationsServedEvent struct {
	BaseEvent
	ViewerID string `json:"viewer_id"`
	Count    int    `json:"count"`
	TopScore int    `json:"top_score"`
}

// Payload implements Event interface.
func (e RecommendationsServedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"viewer_id": e.ViewerID,
		"count":     e.Count,
		"top_score": e.TopScore,
	}
}

// NewRecommendationsServedEvent creates a new RecommendationsServedEvent.
func NewRecommendationsServedEvent(viewerID string, count, topScore int) RecommendationsServedEvent {
	return RecommendationsServedEvent{
		BaseEvent: NewBaseEvent(EventRecommendationsServed, viewerID),
		ViewerID:  viewerID,
		Count:     count,
		TopScore:  topScore,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Bus Contracts
// ═══════════════════════════════════════════════════════════════════════════

// EventHandler processes a single event.
type EventHandler func(event Event) error

// EventPublisher publishes domain events.
type EventPublisher interface {
	// Publish delivers an event to all subscribers of its type.
	Publish(event Event) error
}

// EventSubscriber registers handlers for event types.
type EventSubscriber interface {
	// Subscribe registers a handler for a specific event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for every event type.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber

	// Close shuts the bus down, draining in-flight events.
	Close() error
}
