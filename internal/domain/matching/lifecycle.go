package matching

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONNECTION EDGE
// Единственное направленное ребро на пару участников:
//
//	none → requestSent → connected
//	       requestSent → none (отзыв или отклонение)
//
// "requestReceived" — НЕ отдельное состояние, а проекция того же ребра
// со стороны адресата. Хранить два зеркальных состояния запрещено:
// именно так в исходных трёх параллельных списках появлялись противоречия.
// Флаг избранного ортогонален основному автомату и хранится на каждую
// сторону отдельно.
// ══════════════════════════════════════════════════════════════════════════════

// EdgeState - состояние ребра между парой участников.
type EdgeState string

const (
	// EdgeStateNone - связи нет.
	EdgeStateNone EdgeState = "none"

	// EdgeStatePending - запрос отправлен, ожидает ответа.
	EdgeStatePending EdgeState = "pending"

	// EdgeStateConnected - связь подтверждена обеими сторонами.
	EdgeStateConnected EdgeState = "connected"
)

// IsValid проверяет корректность состояния.
func (s EdgeState) IsValid() bool {
	switch s {
	case EdgeStateNone, EdgeStatePending, EdgeStateConnected:
		return true
	default:
		return false
	}
}

// ConnectionStatus - статус ребра, видимый КОНКРЕТНОМУ участнику.
type ConnectionStatus string

const (
	// StatusNone - связи нет.
	StatusNone ConnectionStatus = "none"

	// StatusRequestSent - этот участник отправил запрос и ждёт ответа.
	StatusRequestSent ConnectionStatus = "request_sent"

	// StatusRequestReceived - этот участник получил запрос.
	StatusRequestReceived ConnectionStatus = "request_received"

	// StatusConnected - связь подтверждена.
	StatusConnected ConnectionStatus = "connected"
)

// EdgeKey возвращает канонический ключ пары: ID в лексикографическом
// порядке через двоеточие. Ключ не зависит от направления.
func EdgeKey(a, b ParticipantID) string {
	la, lb := string(a), string(b)
	if la > lb {
		la, lb = lb, la
	}
	return la + ":" + lb
}

// ConnectionEdge - ребро между двумя участниками.
// LowID < HighID лексикографически: пара хранится канонически.
type ConnectionEdge struct {
	// ID - уникальный идентификатор ребра (UUID).
	ID string

	// LowID - меньший из ID пары.
	LowID ParticipantID

	// HighID - больший из ID пары.
	HighID ParticipantID

	// State - текущее состояние автомата.
	State EdgeState

	// RequesterID - кто отправил запрос (валиден в pending и connected).
	RequesterID ParticipantID

	// LowFavorited - LowID добавил HighID в избранное.
	LowFavorited bool

	// HighFavorited - HighID добавил LowID в избранное.
	HighFavorited bool

	// CreatedAt - когда ребро впервые возникло.
	CreatedAt time.Time

	// UpdatedAt - когда ребро менялось в последний раз.
	UpdatedAt time.Time

	// ConnectedAt - когда связь была подтверждена (nil если не подтверждена).
	ConnectedAt *time.Time
}

// NewConnectionEdge создаёт пустое ребро для пары участников.
func NewConnectionEdge(id string, a, b ParticipantID) (*ConnectionEdge, error) {
	if !a.IsValid() || !b.IsValid() {
		return nil, ErrInvalidProfile
	}
	if a == b {
		return nil, ErrSelfReference
	}

	low, high := a, b
	if string(low) > string(high) {
		low, high = high, low
	}

	now := time.Now().UTC()
	return &ConnectionEdge{
		ID:        id,
		LowID:     low,
		HighID:    high,
		State:     EdgeStateNone,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Key возвращает канонический ключ ребра.
func (e *ConnectionEdge) Key() string {
	return EdgeKey(e.LowID, e.HighID)
}

// Involves проверяет, участвует ли участник в ребре.
func (e *ConnectionEdge) Involves(id ParticipantID) bool {
	return e.LowID == id || e.HighID == id
}

// OtherOf возвращает ID второго участника ребра.
func (e *ConnectionEdge) OtherOf(id ParticipantID) ParticipantID {
	if e.LowID == id {
		return e.HighID
	}
	return e.LowID
}

// AddresseeID возвращает адресата текущего запроса (валиден в pending).
func (e *ConnectionEdge) AddresseeID() ParticipantID {
	return e.OtherOf(e.RequesterID)
}

// SendRequest переводит ребро none → pending от имени from.
// Из pending и connected запрос запрещён.
func (e *ConnectionEdge) SendRequest(from ParticipantID) error {
	if !e.Involves(from) {
		return fmt.Errorf("%w: %s is not part of this edge", ErrInvalidProfile, from)
	}
	if e.State != EdgeStateNone {
		return fmt.Errorf("%w: request from state %q", ErrInvalidTransition, e.State)
	}

	e.State = EdgeStatePending
	e.RequesterID = from
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// Accept переводит ребро pending → connected. Принять может только адресат.
func (e *ConnectionEdge) Accept(by ParticipantID) error {
	if e.State != EdgeStatePending || e.AddresseeID() != by {
		return ErrNoSuchRequest
	}

	now := time.Now().UTC()
	e.State = EdgeStateConnected
	e.ConnectedAt = &now
	e.UpdatedAt = now
	return nil
}

// Reject переводит ребро pending → none. Отклонить может адресат,
// отозвать — отправитель; оба действия — один и тот же обратный переход.
func (e *ConnectionEdge) Reject(by ParticipantID) error {
	if e.State != EdgeStatePending || !e.Involves(by) {
		return ErrNoSuchRequest
	}

	e.State = EdgeStateNone
	e.RequesterID = ""
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// SetFavorite выставляет флаг избранного для стороны by.
// Идемпотентен и легален из любого состояния автомата.
func (e *ConnectionEdge) SetFavorite(by ParticipantID, favorited bool) error {
	switch by {
	case e.LowID:
		e.LowFavorited = favorited
	case e.HighID:
		e.HighFavorited = favorited
	default:
		return fmt.Errorf("%w: %s is not part of this edge", ErrInvalidProfile, by)
	}
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// FavoritedBy возвращает флаг избранного для стороны by.
func (e *ConnectionEdge) FavoritedBy(by ParticipantID) bool {
	switch by {
	case e.LowID:
		return e.LowFavorited
	case e.HighID:
		return e.HighFavorited
	default:
		return false
	}
}

// IsStale возвращает true, если ребро в none без флагов избранного —
// такое ребро можно не сохранять.
func (e *ConnectionEdge) IsStale() bool {
	return e.State == EdgeStateNone && !e.LowFavorited && !e.HighFavorited
}

// View возвращает проекцию ребра со стороны viewer.
func (e *ConnectionEdge) View(viewer ParticipantID) EdgeView {
	view := EdgeView{
		ViewerID:  viewer,
		OtherID:   e.OtherOf(viewer),
		Favorited: e.FavoritedBy(viewer),
		UpdatedAt: e.UpdatedAt,
	}

	switch e.State {
	case EdgeStatePending:
		if e.RequesterID == viewer {
			view.Status = StatusRequestSent
		} else {
			view.Status = StatusRequestReceived
		}
	case EdgeStateConnected:
		view.Status = StatusConnected
	default:
		view.Status = StatusNone
	}
	return view
}

// Clone создаёт глубокую копию ребра.
func (e *ConnectionEdge) Clone() *ConnectionEdge {
	if e == nil {
		return nil
	}
	clone := *e
	if e.ConnectedAt != nil {
		connectedAt := *e.ConnectedAt
		clone.ConnectedAt = &connectedAt
	}
	return &clone
}

// String возвращает строковое представление для логирования.
func (e *ConnectionEdge) String() string {
	return fmt.Sprintf("Edge{%s, state: %s, requester: %s}", e.Key(), e.State, e.RequesterID)
}

// EdgeView - проекция ребра для одной из сторон.
type EdgeView struct {
	// ViewerID - чья это проекция.
	ViewerID ParticipantID `json:"viewer_id"`

	// OtherID - второй участник ребра.
	OtherID ParticipantID `json:"other_id"`

	// Status - статус с точки зрения viewer.
	Status ConnectionStatus `json:"status"`

	// Favorited - добавил ли viewer второго участника в избранное.
	Favorited bool `json:"favorited"`

	// UpdatedAt - когда ребро менялось в последний раз.
	UpdatedAt time.Time `json:"updated_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LIFECYCLE MANAGER
// Единственный мутабельный компонент движка. Каждое ребро изменяется под
// собственным эксклюзивным замком; операции над разными парами не
// блокируют друг друга. Персистентность делегирована EdgeRepository.
// ══════════════════════════════════════════════════════════════════════════════

// IDGenerator выдаёт идентификаторы для новых рёбер.
type IDGenerator func() string

// LifecycleManager управляет состоянием рёбер всех пар.
type LifecycleManager struct {
	repo  EdgeRepository
	newID IDGenerator

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewLifecycleManager создаёт менеджер жизненного цикла связей.
func NewLifecycleManager(repo EdgeRepository, newID IDGenerator) *LifecycleManager {
	return &LifecycleManager{
		repo:  repo,
		newID: newID,
		locks: make(map[string]*sync.Mutex),
	}
}

// lockFor возвращает эксклюзивный замок ребра, создавая его при
// первом обращении. Замки живут столько же, сколько и менеджер.
func (m *LifecycleManager) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[key] = lock
	}
	return lock
}

// withEdge выполняет fn над ребром пары (a, b) под его замком и сохраняет
// результат. Ребро загружается из репозитория или создаётся пустым.
func (m *LifecycleManager) withEdge(ctx context.Context, a, b ParticipantID, fn func(*ConnectionEdge) error) (*ConnectionEdge, error) {
	if a == b {
		return nil, ErrSelfReference
	}
	if !a.IsValid() || !b.IsValid() {
		return nil, ErrInvalidProfile
	}

	key := EdgeKey(a, b)
	lock := m.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	edge, err := m.repo.GetByParticipants(ctx, a, b)
	if err != nil {
		return nil, err
	}
	if edge == nil {
		edge, err = NewConnectionEdge(m.newID(), a, b)
		if err != nil {
			return nil, err
		}
	}

	if err := fn(edge); err != nil {
		return nil, err
	}

	if err := m.repo.SaveEdge(ctx, edge); err != nil {
		return nil, err
	}
	return edge.Clone(), nil
}

// SendRequest отправляет запрос на связь от viewer к candidate.
func (m *LifecycleManager) SendRequest(ctx context.Context, viewer, candidate ParticipantID) (*ConnectionEdge, error) {
	return m.withEdge(ctx, viewer, candidate, func(e *ConnectionEdge) error {
		return e.SendRequest(viewer)
	})
}

// AcceptRequest принимает запрос, отправленный requester участнику by.
func (m *LifecycleManager) AcceptRequest(ctx context.Context, by, requester ParticipantID) (*ConnectionEdge, error) {
	return m.withEdge(ctx, by, requester, func(e *ConnectionEdge) error {
		if e.State == EdgeStatePending && e.RequesterID != requester {
			return ErrNoSuchRequest
		}
		return e.Accept(by)
	})
}

// RejectRequest отклоняет (если by — адресат) или отзывает (если by —
// отправитель) ожидающий запрос между by и other.
func (m *LifecycleManager) RejectRequest(ctx context.Context, by, other ParticipantID) (*ConnectionEdge, error) {
	return m.withEdge(ctx, by, other, func(e *ConnectionEdge) error {
		return e.Reject(by)
	})
}

// SetFavorite выставляет флаг избранного viewer → candidate.
func (m *LifecycleManager) SetFavorite(ctx context.Context, viewer, candidate ParticipantID, favorited bool) (*ConnectionEdge, error) {
	return m.withEdge(ctx, viewer, candidate, func(e *ConnectionEdge) error {
		return e.SetFavorite(viewer, favorited)
	})
}

// ViewFor возвращает проекцию ребра пары со стороны viewer.
// Отсутствующее ребро проецируется как StatusNone.
func (m *LifecycleManager) ViewFor(ctx context.Context, viewer, candidate ParticipantID) (EdgeView, error) {
	if viewer == candidate {
		return EdgeView{}, ErrSelfReference
	}
	edge, err := m.repo.GetByParticipants(ctx, viewer, candidate)
	if err != nil {
		return EdgeView{}, err
	}
	if edge == nil {
		return EdgeView{
			ViewerID: viewer,
			OtherID:  candidate,
			Status:   StatusNone,
		}, nil
	}
	return edge.View(viewer), nil
}

// ConnectionSummary - все проекции рёбер участника, сгруппированные
// по статусу. Источник данных для дашборда "моя сеть".
type ConnectionSummary struct {
	// Favorites - кого участник добавил в избранное.
	Favorites []EdgeView `json:"favorites"`

	// Sent - исходящие ожидающие запросы.
	Sent []EdgeView `json:"sent"`

	// Received - входящие ожидающие запросы.
	Received []EdgeView `json:"received"`

	// Connected - подтверждённые связи.
	Connected []EdgeView `json:"connected"`
}

// Connections возвращает сводку всех рёбер участника.
func (m *LifecycleManager) Connections(ctx context.Context, viewer ParticipantID) (*ConnectionSummary, error) {
	if !viewer.IsValid() {
		return nil, ErrInvalidProfile
	}

	edges, err := m.repo.LoadEdges(ctx, viewer)
	if err != nil {
		return nil, err
	}

	summary := &ConnectionSummary{
		Favorites: make([]EdgeView, 0),
		Sent:      make([]EdgeView, 0),
		Received:  make([]EdgeView, 0),
		Connected: make([]EdgeView, 0),
	}

	for _, edge := range edges {
		if edge == nil || !edge.Involves(viewer) {
			continue
		}
		view := edge.View(viewer)
		if view.Favorited {
			summary.Favorites = append(summary.Favorites, view)
		}
		switch view.Status {
		case StatusRequestSent:
			summary.Sent = append(summary.Sent, view)
		case StatusRequestReceived:
			summary.Received = append(summary.Received, view)
		case StatusConnected:
			summary.Connected = append(summary.Connected, view)
		}
	}
	return summary, nil
}
