// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"

	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
	"github.com/epitaphe360/siport-sub000/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON CONNECTION CHANGED HANDLER
// Обрабатывает все события, меняющие проекцию связи или избранного:
// запрос, принятие, отклонение, отзыв и переключение избранного.
//
// Кэшированные рекомендации содержат connection_status и favorited,
// поэтому КАЖДОЕ из этих событий делает кэш затронутых участников
// устаревшим — не только принятие. Ключевые функции:
// 1. Инвалидация кэша рекомендаций всех затронутых сторон
// 2. Структурированный аудитный лог для дашборда организаторов
// ═══════════════════════════════════════════════════════════════════════════

// InvalidationEventTypes - события, после которых кэш рекомендаций
// затронутых участников должен быть сброшен.
var InvalidationEventTypes = []shared.EventType{
	shared.EventConnectionRequested,
	shared.EventConnectionAccepted,
	shared.EventConnectionRejected,
	shared.EventConnectionWithdrawn,
	shared.EventParticipantFavorited,
	shared.EventParticipantUnfavorited,
}

// RecommendationInvalidator сбрасывает кэш рекомендаций участника.
type RecommendationInvalidator interface {
	Invalidate(ctx context.Context, viewerID string) error
}

// OnConnectionChangedHandler обрабатывает события жизненного цикла связей.
type OnConnectionChangedHandler struct {
	cache RecommendationInvalidator
	log   *logger.Logger
}

// NewOnConnectionChangedHandler создаёт обработчик.
// cache может быть nil, если кэширование выключено.
func NewOnConnectionChangedHandler(cache RecommendationInvalidator, log *logger.Logger) *OnConnectionChangedHandler {
	if log == nil {
		log = logger.Default()
	}
	return &OnConnectionChangedHandler{
		cache: cache,
		log:   log.With(logger.Component("on_connection_changed")),
	}
}

// Handle обрабатывает событие.
func (h *OnConnectionChangedHandler) Handle(event shared.Event) error {
	affected := h.affectedViewers(event)
	if affected == nil {
		h.log.Warn("received unexpected event type",
			logger.String("event_type", string(event.EventType())))
		return nil
	}

	if h.cache == nil {
		return nil
	}

	ctx := context.Background()
	for _, id := range affected {
		if err := h.cache.Invalidate(ctx, id); err != nil {
			h.log.Warn("failed to invalidate recommendation cache",
				logger.ViewerID(id), logger.Err(err))
		}
	}
	return nil
}

// affectedViewers возвращает участников, чьи кэшированные рекомендации
// устарели после события. nil означает незнакомый тип события.
// Для событий связи это обе стороны ребра; избранное односторонне,
// поэтому затронут только сам зритель.
func (h *OnConnectionChangedHandler) affectedViewers(event shared.Event) []string {
	switch e := event.(type) {
	case shared.ConnectionRequestedEvent:
		h.log.Info("connection requested",
			logger.EdgeKey(e.AggregateID()),
			logger.String("requester_id", e.RequesterID),
			logger.String("addressee_id", e.AddresseeID))
		return []string{e.RequesterID, e.AddresseeID}

	case shared.ConnectionAcceptedEvent:
		h.log.Info("connection accepted",
			logger.EdgeKey(e.AggregateID()),
			logger.String("requester_id", e.RequesterID),
			logger.String("addressee_id", e.AddresseeID))
		return []string{e.RequesterID, e.AddresseeID}

	case shared.ConnectionRejectedEvent:
		h.log.Info("connection closed",
			logger.EdgeKey(e.AggregateID()),
			logger.String("requester_id", e.RequesterID),
			logger.String("addressee_id", e.AddresseeID),
			logger.Bool("withdrawn", e.Withdrawn))
		return []string{e.RequesterID, e.AddresseeID}

	case shared.ParticipantFavoritedEvent:
		h.log.Info("favorite toggled",
			logger.ViewerID(e.ViewerID),
			logger.CandidateID(e.CandidateID),
			logger.Bool("favorited", e.Favorited))
		return []string{e.ViewerID}

	default:
		return nil
	}
}
