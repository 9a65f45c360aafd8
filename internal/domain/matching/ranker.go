package matching

import (
	"context"
	"sort"
	"sync"
)

// ══════════════════════════════════════════════════════════════════════════════
// MATCH RESULT
// ══════════════════════════════════════════════════════════════════════════════

// MatchResult - оценённый кандидат для конкретного зрителя.
// Никогда не сохраняется: пересчитывается по требованию.
type MatchResult struct {
	// Profile - профиль кандидата.
	Profile *Profile

	// Score - итоговый балл совместимости (0-100).
	Score int

	// Factors - под-баллы в целых процентах.
	Factors FactorPercentages

	// Reasons - до четырёх коротких причин для отображения.
	Reasons []string

	// MutualConnections - количество общих связей. Поставляется внешним
	// графом отношений; при его недоступности остаётся 0.
	MutualConnections int
}

// MatchResultList - список результатов с детерминированным порядком.
type MatchResultList []MatchResult

// Len возвращает длину списка.
func (m MatchResultList) Len() int {
	return len(m)
}

// Less сортирует по убыванию балла; при равенстве — по ID кандидата.
// Порядок вставки не является контрактом и не должен влиять на результат.
func (m MatchResultList) Less(i, j int) bool {
	if m[i].Score != m[j].Score {
		return m[i].Score > m[j].Score
	}
	return m[i].Profile.ID < m[j].Profile.ID
}

// Swap меняет элементы местами.
func (m MatchResultList) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

// Sort сортирует список.
func (m MatchResultList) Sort() {
	sort.Sort(m)
}

// TopN возвращает первые n результатов.
func (m MatchResultList) TopN(n int) MatchResultList {
	if n >= len(m) {
		return m
	}
	return m[:n]
}

// ══════════════════════════════════════════════════════════════════════════════
// RELATIONSHIP GRAPH (внешний коллаборатор)
// ══════════════════════════════════════════════════════════════════════════════

// RelationshipGraph поставляет количество общих связей для пары участников.
// Движок НЕ обходит социальный граф сам: это обязанность внешнего сервиса.
// Ошибка деградирует до нуля и никогда не валит рекомендацию целиком.
type RelationshipGraph interface {
	// MutualConnectionCount возвращает число общих связей пары.
	MutualConnectionCount(ctx context.Context, a, b ParticipantID) (int, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// RANKER
// Применяет Scorer к множеству кандидатов, сортирует, обрезает до top-N.
// Скоринг пар независим и выполняется параллельно.
// ══════════════════════════════════════════════════════════════════════════════

// DefaultRecommendationLimit - лимит рекомендаций по умолчанию.
const DefaultRecommendationLimit = 10

// Ranker ранжирует кандидатов для зрителя.
type Ranker struct {
	scorer *Scorer
	graph  RelationshipGraph
}

// NewRanker создаёт Ranker. graph может быть nil: тогда общие связи
// всегда равны нулю.
func NewRanker(scorer *Scorer, graph RelationshipGraph) *Ranker {
	return &Ranker{scorer: scorer, graph: graph}
}

// Recommend вычисляет MatchResult для каждого кандидата, исключая самого
// зрителя, сортирует по убыванию балла (при равенстве — по ID) и обрезает
// до limit. limit <= 0 — ошибка входа, а не "без лимита".
func (r *Ranker) Recommend(ctx context.Context, viewer *Profile, candidates []*Profile, limit int) (MatchResultList, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if viewer == nil || !viewer.ID.IsValid() {
		return nil, ErrInvalidProfile
	}

	eligible := make([]*Profile, 0, len(candidates))
	for _, c := range candidates {
		if c == nil || c.ID == viewer.ID {
			continue // self-match запрещён
		}
		eligible = append(eligible, c)
	}
	if len(eligible) == 0 {
		return MatchResultList{}, nil
	}

	// Параллельный скоринг: каждая пара независима, общего состояния нет,
	// порядок не важен до финальной сортировки.
	results := make(MatchResultList, len(eligible))
	var wg sync.WaitGroup
	for i, candidate := range eligible {
		wg.Add(1)
		go func(i int, candidate *Profile) {
			defer wg.Done()
			factors := r.scorer.Score(viewer, candidate)
			results[i] = MatchResult{
				Profile: candidate,
				Score:   r.scorer.OverallScore(factors),
				Factors: factors.Percentages(),
				Reasons: r.scorer.Reasons(viewer, candidate, factors),
			}
		}(i, candidate)
	}
	wg.Wait()

	results.Sort()
	results = results.TopN(limit)

	r.attachMutualConnections(ctx, viewer.ID, results)
	return results, nil
}

// attachMutualConnections обогащает top-N количеством общих связей.
// Лучшая попытка: любая ошибка графа оставляет ноль.
func (r *Ranker) attachMutualConnections(ctx context.Context, viewerID ParticipantID, results MatchResultList) {
	if r.graph == nil {
		return
	}
	for i := range results {
		count, err := r.graph.MutualConnectionCount(ctx, viewerID, results[i].Profile.ID)
		if err != nil || count < 0 {
			continue
		}
		results[i].MutualConnections = count
	}
}
