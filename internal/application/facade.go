// Package application собирает use cases движка нетворкинга за одним
// стабильным фасадом. Сам фасад ничего не считает: скоринг живёт в
// domain/matching, персистентность — в infrastructure. Транспорту (HTTP)
// достаточно фасада, чтобы обслужить все операции движка.
package application

import (
	"context"
	"errors"

	"github.com/epitaphe360/siport-sub000/internal/application/command"
	"github.com/epitaphe360/siport-sub000/internal/application/query"
	"github.com/epitaphe360/siport-sub000/internal/domain/matching"
	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
)

// EngineDeps - зависимости фасада.
// Cache, Publisher и Graph опциональны: без них движок работает,
// теряя только кэширование, события и обогащение общими связями.
type EngineDeps struct {
	Profiles  matching.ProfileStore
	Scorer    *matching.Scorer
	Ranker    *matching.Ranker
	Lifecycle *matching.LifecycleManager

	Graph     matching.RelationshipGraph
	Cache     query.RecommendationCache
	Publisher shared.EventPublisher
}

// Engine - фасад движка: один вход для всех операций подбора и связей.
type Engine struct {
	// Query handlers
	Recommendations *query.GetRecommendationsHandler
	Search          *query.SearchParticipantsHandler
	Compatibility   *query.GetCompatibilityHandler
	Connections     *query.GetConnectionsHandler

	// Command handlers
	SendRequest   *command.SendConnectionRequestHandler
	AcceptRequest *command.AcceptConnectionRequestHandler
	RejectRequest *command.RejectConnectionRequestHandler
	Favorite      *command.FavoriteParticipantHandler
}

// NewEngine создаёт фасад и все обработчики из общих зависимостей.
func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Profiles == nil {
		return nil, errors.New("application: profile store is required")
	}
	if deps.Scorer == nil {
		return nil, errors.New("application: scorer is required")
	}
	if deps.Ranker == nil {
		return nil, errors.New("application: ranker is required")
	}
	if deps.Lifecycle == nil {
		return nil, errors.New("application: lifecycle manager is required")
	}

	return &Engine{
		Recommendations: query.NewGetRecommendationsHandler(deps.Profiles, deps.Ranker, deps.Lifecycle, deps.Cache, deps.Publisher),
		Search:          query.NewSearchParticipantsHandler(deps.Profiles),
		Compatibility:   query.NewGetCompatibilityHandler(deps.Profiles, deps.Scorer, deps.Lifecycle, deps.Graph),
		Connections:     query.NewGetConnectionsHandler(deps.Profiles, deps.Lifecycle),

		SendRequest:   command.NewSendConnectionRequestHandler(deps.Profiles, deps.Lifecycle, deps.Publisher),
		AcceptRequest: command.NewAcceptConnectionRequestHandler(deps.Lifecycle, deps.Publisher),
		RejectRequest: command.NewRejectConnectionRequestHandler(deps.Lifecycle, deps.Publisher),
		Favorite:      command.NewFavoriteParticipantHandler(deps.Profiles, deps.Lifecycle, deps.Publisher),
	}, nil
}

// GetRecommendations возвращает ранжированные рекомендации для зрителя.
func (e *Engine) GetRecommendations(ctx context.Context, q query.GetRecommendationsQuery) (*query.GetRecommendationsResult, error) {
	return e.Recommendations.Handle(ctx, q)
}

// SearchParticipants ищет участников по декларативным фильтрам.
func (e *Engine) SearchParticipants(ctx context.Context, q query.SearchParticipantsQuery) (*query.SearchParticipantsResult, error) {
	return e.Search.Handle(ctx, q)
}

// GetCompatibility вычисляет совместимость пары участников.
func (e *Engine) GetCompatibility(ctx context.Context, q query.GetCompatibilityQuery) (*query.CompatibilityDTO, error) {
	return e.Compatibility.Handle(ctx, q)
}

// GetConnections возвращает сеть зрителя: избранное, исходящие,
// входящие и подтверждённые связи.
func (e *Engine) GetConnections(ctx context.Context, q query.GetConnectionsQuery) (*query.GetConnectionsResult, error) {
	return e.Connections.Handle(ctx, q)
}

// SendConnectionRequest отправляет запрос на контакт.
func (e *Engine) SendConnectionRequest(ctx context.Context, cmd command.SendConnectionRequestCommand) (*command.SendConnectionRequestResult, error) {
	return e.SendRequest.Handle(ctx, cmd)
}

// AcceptConnectionRequest принимает входящий запрос.
func (e *Engine) AcceptConnectionRequest(ctx context.Context, cmd command.AcceptConnectionRequestCommand) (*command.AcceptConnectionRequestResult, error) {
	return e.AcceptRequest.Handle(ctx, cmd)
}

// RejectConnectionRequest отклоняет входящий запрос. Та же операция
// служит отправителю для отзыва собственного запроса.
func (e *Engine) RejectConnectionRequest(ctx context.Context, cmd command.RejectConnectionRequestCommand) (*command.RejectConnectionRequestResult, error) {
	return e.RejectRequest.Handle(ctx, cmd)
}

// FavoriteParticipant добавляет кандидата в избранное зрителя.
func (e *Engine) FavoriteParticipant(ctx context.Context, viewerID, candidateID, correlationID string) (*command.FavoriteParticipantResult, error) {
	return e.Favorite.Handle(ctx, command.FavoriteParticipantCommand{
		ViewerID:      viewerID,
		CandidateID:   candidateID,
		Favorited:     true,
		CorrelationID: correlationID,
	})
}

// UnfavoriteParticipant убирает кандидата из избранного зрителя.
func (e *Engine) UnfavoriteParticipant(ctx context.Context, viewerID, candidateID, correlationID string) (*command.FavoriteParticipantResult, error) {
	return e.Favorite.Handle(ctx, command.FavoriteParticipantCommand{
		ViewerID:      viewerID,
		CandidateID:   candidateID,
		Favorited:     false,
		CorrelationID: correlationID,
	})
}
