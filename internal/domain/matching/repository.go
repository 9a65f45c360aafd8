package matching

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Эти интерфейсы определяют контракт для работы с хранилищем данных.
// Реализации находятся в infrastructure/persistence.
//
// Принципы:
// - Dependency Inversion: Domain определяет интерфейсы, Infrastructure реализует
// - ProfileStore и EdgeRepository разделены по агрегатам
// ══════════════════════════════════════════════════════════════════════════════

// ProfileStore определяет операции чтения и записи профилей участников.
type ProfileStore interface {
	// GetByID возвращает профиль участника по ID.
	// Возвращает ErrParticipantNotFound, если профиль не найден.
	GetByID(ctx context.Context, id ParticipantID) (*Profile, error)

	// ListAll возвращает все профили участников салона.
	ListAll(ctx context.Context) ([]*Profile, error)

	// ListByKind возвращает профили заданного типа участия.
	ListByKind(ctx context.Context, kind ParticipantKind) ([]*Profile, error)

	// Save создаёт или обновляет профиль.
	Save(ctx context.Context, profile *Profile) error

	// Delete удаляет профиль участника.
	// Возвращает ErrParticipantNotFound, если профиль не найден.
	Delete(ctx context.Context, id ParticipantID) error
}

// EdgeRepository определяет операции для работы с рёбрами связей.
type EdgeRepository interface {
	// GetByParticipants возвращает ребро пары. Направление не важно:
	// пара хранится канонически. Возвращает (nil, nil), если ребра нет.
	GetByParticipants(ctx context.Context, a, b ParticipantID) (*ConnectionEdge, error)

	// LoadEdges возвращает все рёбра, в которых участвует участник.
	LoadEdges(ctx context.Context, id ParticipantID) ([]*ConnectionEdge, error)

	// SaveEdge создаёт или обновляет ребро.
	SaveEdge(ctx context.Context, edge *ConnectionEdge) error

	// DeleteEdge удаляет ребро по ID.
	// Возвращает ErrEdgeNotFound, если ребро не найдено.
	DeleteEdge(ctx context.Context, id string) error
}
