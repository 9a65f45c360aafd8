package matching

import (
	"strings"
)

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH / FILTER ENGINE
// Декларативная фильтрация независима от скоринга: фильтр сужает множество,
// ранжирование упорядочивает. Их разделение позволяет использовать
// и комбинировать оба механизма по отдельности.
// ══════════════════════════════════════════════════════════════════════════════

// FilterCriteria - опциональные критерии поиска. Все поля необязательны;
// пустой критерий означает "без ограничения".
type FilterCriteria struct {
	// Sectors - профиль подходит, если имеет хотя бы один из секторов.
	Sectors []string

	// Regions - профиль подходит, если его регион входит в список.
	Regions []string

	// CompanySizeBands - профиль подходит, если его диапазон входит в список.
	CompanySizeBands []string

	// Keyword - подстрока для поиска по свободно-текстовым полям профиля
	// без учёта регистра. Сознательно простой поиск по подстроке,
	// а не токенизированный полнотекстовый.
	Keyword string
}

// IsEmpty возвращает true, если ни один критерий не задан.
func (c FilterCriteria) IsEmpty() bool {
	return len(c.Sectors) == 0 &&
		len(c.Regions) == 0 &&
		len(c.CompanySizeBands) == 0 &&
		strings.TrimSpace(c.Keyword) == ""
}

// Normalize возвращает копию критериев с обрезанными пробелами
// и без пустых значений в списках.
func (c FilterCriteria) Normalize() FilterCriteria {
	return FilterCriteria{
		Sectors:          trimNonEmpty(c.Sectors),
		Regions:          trimNonEmpty(c.Regions),
		CompanySizeBands: trimNonEmpty(c.CompanySizeBands),
		Keyword:          strings.TrimSpace(c.Keyword),
	}
}

func trimNonEmpty(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	result := make([]string, 0, len(values))
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Matches проверяет профиль по всем критериям (AND между критериями,
// ANY-of внутри спискового критерия).
func (c FilterCriteria) Matches(p *Profile) bool {
	if len(c.Sectors) > 0 && !p.Sectors.ContainsAny(c.Sectors) {
		return false
	}
	if len(c.Regions) > 0 && !regionIn(p.GeographicRegion, c.Regions) {
		return false
	}
	if len(c.CompanySizeBands) > 0 && !bandIn(p.CompanySizeBand, c.CompanySizeBands) {
		return false
	}
	if c.Keyword != "" && !strings.Contains(p.SearchText(), strings.ToLower(c.Keyword)) {
		return false
	}
	return true
}

func regionIn(region Region, list []string) bool {
	for _, r := range list {
		if region.Equals(Region(r)) {
			return true
		}
	}
	return false
}

func bandIn(band CompanySizeBand, list []string) bool {
	for _, b := range list {
		if strings.EqualFold(string(band), b) {
			return true
		}
	}
	return false
}

// Filter возвращает профили, удовлетворяющие критериям, в исходном
// относительном порядке. Фильтр стабилен и идемпотентен.
func Filter(profiles []*Profile, criteria FilterCriteria) []*Profile {
	normalized := criteria.Normalize()
	if normalized.IsEmpty() {
		return profiles
	}

	result := make([]*Profile, 0, len(profiles))
	for _, p := range profiles {
		if p == nil {
			continue
		}
		if normalized.Matches(p) {
			result = append(result, p)
		}
	}
	return result
}
