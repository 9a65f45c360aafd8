// Package matching содержит доменную модель движка деловых знакомств SIPORTS.
// Философия: "Правильный контакт в правильный момент" — салон длится три дня,
// и каждая рекомендация должна экономить участнику время, а не создавать шум.
package matching

import (
	"fmt"
	"strings"
	"time"

	"github.com/epitaphe360/siport-sub000/internal/domain/shared"
	"github.com/epitaphe360/siport-sub000/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ParticipantID представляет идентификатор участника салона.
type ParticipantID string

// IsValid проверяет, что ParticipantID непустой.
func (p ParticipantID) IsValid() bool {
	return len(p) > 0
}

// String возвращает строковое представление.
func (p ParticipantID) String() string {
	return string(p)
}

// ParticipantKind определяет тип участника.
type ParticipantKind string

const (
	// KindExhibitor - экспонент со стендом.
	KindExhibitor ParticipantKind = "exhibitor"

	// KindPartner - официальный партнёр салона.
	KindPartner ParticipantKind = "partner"

	// KindVisitor - посетитель.
	KindVisitor ParticipantKind = "visitor"
)

// IsValid проверяет корректность типа участника.
func (k ParticipantKind) IsValid() bool {
	switch k {
	case KindExhibitor, KindPartner, KindVisitor:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление.
func (k ParticipantKind) String() string {
	return string(k)
}

// Region представляет географический регион участника.
type Region string

// IsValid проверяет, что регион непустой.
func (r Region) IsValid() bool {
	return len(r) > 0
}

// String возвращает строковое представление.
func (r Region) String() string {
	return string(r)
}

// Equals сравнивает регионы без учёта регистра.
func (r Region) Equals(other Region) bool {
	return strings.EqualFold(string(r), string(other))
}

// CompanySizeBand представляет диапазон размера компании (например "50-200").
type CompanySizeBand string

// String возвращает строковое представление.
func (b CompanySizeBand) String() string {
	return string(b)
}

// ══════════════════════════════════════════════════════════════════════════════
// TAG SET
// Множество тегов (секторы, интересы, цели). Сравнение без учёта регистра.
// ══════════════════════════════════════════════════════════════════════════════

// TagSet представляет множество декларативных тегов профиля.
// Порядок сохраняется для отображения; дубликаты игнорируются.
type TagSet []string

// NewTagSet создаёт множество тегов, убирая пустые значения и дубликаты.
func NewTagSet(tags ...string) TagSet {
	seen := make(map[string]struct{}, len(tags))
	result := make(TagSet, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}

// Len возвращает количество тегов.
func (s TagSet) Len() int {
	return len(s)
}

// IsEmpty проверяет, пусто ли множество.
func (s TagSet) IsEmpty() bool {
	return len(s) == 0
}

// Contains проверяет наличие тега (без учёта регистра).
func (s TagSet) Contains(tag string) bool {
	for _, t := range s {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// ContainsAny проверяет наличие хотя бы одного из тегов.
func (s TagSet) ContainsAny(tags []string) bool {
	for _, tag := range tags {
		if s.Contains(tag) {
			return true
		}
	}
	return false
}

// Intersect возвращает общие теги в порядке исходного множества.
func (s TagSet) Intersect(other TagSet) TagSet {
	common := make(TagSet, 0)
	for _, tag := range s {
		if other.Contains(tag) {
			common = append(common, tag)
		}
	}
	return common
}

// OverlapRatio возвращает коэффициент пересечения двух множеств:
// |A ∩ B| / max(|A|, |B|, 1). Симметричен; для двух пустых множеств
// знаменатель подменяется единицей, результат 0.
func (s TagSet) OverlapRatio(other TagSet) float64 {
	denom := len(s)
	if len(other) > denom {
		denom = len(other)
	}
	if denom == 0 {
		denom = 1
	}
	return float64(len(s.Intersect(other))) / float64(denom)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// Все ошибки домена построены поверх shared.DomainError: errors.Is по
// конкретной ошибке и по базовому виду (shared.ErrNotFound и т.д.)
// работают одновременно, классификацию делают shared.IsNotFound/IsValidation.
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidProfile - профиль не проходит валидацию.
	ErrInvalidProfile = shared.NewDomainError("matching", "Validate", shared.ErrInvalidEntity, "invalid participant profile")

	// ErrInvalidLimit - лимит рекомендаций должен быть положительным.
	ErrInvalidLimit = shared.NewDomainError("matching", "Recommend", shared.ErrInvalidInput, "recommendation limit must be positive")

	// ErrInvalidWeights - веса факторов должны суммироваться в 1.0.
	ErrInvalidWeights = shared.NewDomainError("matching", "Configure", shared.ErrInvalidInput, "factor weights must sum to 1.0")

	// ErrSelfReference - операция над самим собой запрещена.
	ErrSelfReference = shared.NewDomainError("lifecycle", "SendRequest", shared.ErrSelfReference, "viewer and candidate are the same participant")

	// ErrInvalidTransition - недопустимый переход состояния связи.
	ErrInvalidTransition = shared.NewDomainError("lifecycle", "Transition", shared.ErrStateTransition, "illegal connection state transition")

	// ErrNoSuchRequest - нет ожидающего запроса для принятия/отклонения.
	ErrNoSuchRequest = shared.NewDomainError("lifecycle", "Respond", shared.ErrStateTransition, "no pending connection request")

	// ErrParticipantNotFound - профиль участника не найден.
	ErrParticipantNotFound = shared.NewDomainError("participant", "Fetch", shared.ErrNotFound, "participant not found")

	// ErrEdgeNotFound - ребро связи не найдено.
	ErrEdgeNotFound = shared.NewDomainError("lifecycle", "FindEdge", shared.ErrNotFound, "connection edge not found")
)

// ══════════════════════════════════════════════════════════════════════════════
// ENTITY: PROFILE
// Декларативные сетевые атрибуты участника. Неизменяем в пределах одного
// прохода скоринга — движок никогда не пишет в профиль.
// ══════════════════════════════════════════════════════════════════════════════

// Profile - сетевой профиль участника салона.
type Profile struct {
	// ID - уникальный идентификатор участника.
	ID ParticipantID

	// Kind - тип участника (exhibitor, partner, visitor).
	// На веса скоринга не влияет; используется для фильтрации и отображения.
	Kind ParticipantKind

	// DisplayName - имя для отображения.
	DisplayName string

	// Description - свободный текст о компании (для поиска по ключевым словам).
	Description string

	// Sectors - отраслевые секторы (например "Port Operations", "Technology").
	Sectors TagSet

	// ThematicInterests - тематические интересы.
	ThematicInterests TagSet

	// ParticipationObjectives - заявленные цели участия
	// (например "Technology Transfer", "Market Expansion").
	ParticipationObjectives TagSet

	// CollaborationTypes - предпочитаемые форматы партнёрства
	// (например "Joint Ventures", "Distribution").
	CollaborationTypes TagSet

	// GeographicRegion - регион участника (например "Europe", "Africa").
	GeographicRegion Region

	// CompanySizeBand - диапазон размера компании (например "50-200").
	CompanySizeBand CompanySizeBand

	// CreatedAt - когда создан аккаунт. Используется ТОЛЬКО как прокси
	// стажа для фактора experienceLevel.
	CreatedAt time.Time
}

// Validate проверяет минимальную корректность профиля.
// Пустые множества тегов допустимы: скоринг обязан их переносить.
func (p *Profile) Validate() error {
	if !p.ID.IsValid() {
		return ErrInvalidProfile
	}
	if p.Kind != "" && !p.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidProfile, p.Kind)
	}
	return nil
}

// TenureYears возвращает стаж аккаунта в целых календарных годах
// относительно переданного момента времени.
func (p *Profile) TenureYears(now time.Time) int {
	return timeutil.YearsBetween(p.CreatedAt, now)
}

// SearchText возвращает конкатенацию свободно-текстовых полей профиля
// для поиска по подстроке.
func (p *Profile) SearchText() string {
	return strings.ToLower(p.DisplayName + " " + p.Description)
}

// String возвращает строковое представление для логирования.
func (p *Profile) String() string {
	return fmt.Sprintf("Profile{ID: %s, Kind: %s, Region: %s}", p.ID, p.Kind, p.GeographicRegion)
}
