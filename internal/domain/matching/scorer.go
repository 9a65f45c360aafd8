package matching

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORING PHILOSOPHY
//
// Философия скоринга: "Прозрачная формула вместо чёрного ящика"
//
// Совместимость двух участников считается по пяти измерениям:
// 1. Секторы (30%) — пересечение отраслевых секторов
// 2. Цели (25%) — пересечение целей участия
// 3. География (20%) — мягкий сигнал, никогда не исключает кандидата
// 4. Стаж (10%) — качество кандидата, НЕ парная совместимость
// 5. Форматы партнёрства (15%) — пересечение предпочитаемых форматов
//
// Каждый под-балл лежит в [0,1]; итог = round(100 × взвешенная сумма).
// Формула детерминирована и не содержит ни случайности, ни обучения.
// ══════════════════════════════════════════════════════════════════════════════

// ══════════════════════════════════════════════════════════════════════════════
// COMPATIBILITY FACTORS
// ══════════════════════════════════════════════════════════════════════════════

// CompatibilityFactors - пять под-баллов совместимости, каждый в [0,1].
type CompatibilityFactors struct {
	// SectorAlignment - пересечение секторов (симметричный).
	SectorAlignment float64

	// ObjectiveAlignment - пересечение целей участия (симметричный).
	ObjectiveAlignment float64

	// GeographicRelevance - географическая близость (симметричный).
	GeographicRelevance float64

	// ExperienceLevel - стаж КАНДИДАТА, а не пары. Это априорный показатель
	// качества, сознательно асимметричный: стаж зрителя не учитывается.
	ExperienceLevel float64

	// CollaborationPotential - пересечение форматов партнёрства (симметричный).
	CollaborationPotential float64
}

// Clamped возвращает копию с каждым под-баллом, ограниченным в [0,1].
func (f CompatibilityFactors) Clamped() CompatibilityFactors {
	return CompatibilityFactors{
		SectorAlignment:        clamp01(f.SectorAlignment),
		ObjectiveAlignment:     clamp01(f.ObjectiveAlignment),
		GeographicRelevance:    clamp01(f.GeographicRelevance),
		ExperienceLevel:        clamp01(f.ExperienceLevel),
		CollaborationPotential: clamp01(f.CollaborationPotential),
	}
}

// Percentages возвращает под-баллы как целые проценты (×100) для API/UI.
func (f CompatibilityFactors) Percentages() FactorPercentages {
	return FactorPercentages{
		SectorAlignment:        int(math.Round(f.SectorAlignment * 100)),
		ObjectiveAlignment:     int(math.Round(f.ObjectiveAlignment * 100)),
		GeographicRelevance:    int(math.Round(f.GeographicRelevance * 100)),
		ExperienceLevel:        int(math.Round(f.ExperienceLevel * 100)),
		CollaborationPotential: int(math.Round(f.CollaborationPotential * 100)),
	}
}

// FactorPercentages - под-баллы в целых процентах (0-100).
type FactorPercentages struct {
	SectorAlignment        int `json:"sector_alignment"`
	ObjectiveAlignment     int `json:"objective_alignment"`
	GeographicRelevance    int `json:"geographic_relevance"`
	ExperienceLevel        int `json:"experience_level"`
	CollaborationPotential int `json:"collaboration_potential"`
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ══════════════════════════════════════════════════════════════════════════════
// WEIGHT CONFIGURATION
// Веса — именованные константы, а не литералы в формуле: происхождение
// каждого коэффициента должно быть проверяемо отдельно от взвешенной суммы.
// ══════════════════════════════════════════════════════════════════════════════

// Веса факторов по умолчанию. Сумма равна 1.0.
const (
	DefaultSectorWeight        = 0.30
	DefaultObjectiveWeight     = 0.25
	DefaultGeographicWeight    = 0.20
	DefaultExperienceWeight    = 0.10
	DefaultCollaborationWeight = 0.15
)

// ExperienceCapYears - потолок стажа для фактора experienceLevel.
// Десять и более лет дают максимальный балл 1.0.
const ExperienceCapYears = 10

// FactorWeights - веса пяти факторов в итоговой оценке.
type FactorWeights struct {
	// Sector - вес пересечения секторов.
	Sector float64

	// Objective - вес пересечения целей.
	Objective float64

	// Geographic - вес географической близости.
	Geographic float64

	// Experience - вес стажа кандидата.
	Experience float64

	// Collaboration - вес пересечения форматов партнёрства.
	Collaboration float64
}

// DefaultFactorWeights возвращает веса по умолчанию.
func DefaultFactorWeights() FactorWeights {
	return FactorWeights{
		Sector:        DefaultSectorWeight,
		Objective:     DefaultObjectiveWeight,
		Geographic:    DefaultGeographicWeight,
		Experience:    DefaultExperienceWeight,
		Collaboration: DefaultCollaborationWeight,
	}
}

// Validate проверяет, что веса неотрицательны и суммируются в 1.0
// (с допуском на плавающую точку).
func (w FactorWeights) Validate() error {
	for _, v := range []float64{w.Sector, w.Objective, w.Geographic, w.Experience, w.Collaboration} {
		if v < 0 {
			return ErrInvalidWeights
		}
	}
	sum := w.Sector + w.Objective + w.Geographic + w.Experience + w.Collaboration
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("%w: got %.6f", ErrInvalidWeights, sum)
	}
	return nil
}

// Apply возвращает взвешенную сумму под-баллов в [0,1].
func (w FactorWeights) Apply(f CompatibilityFactors) float64 {
	return w.Sector*f.SectorAlignment +
		w.Objective*f.ObjectiveAlignment +
		w.Geographic*f.GeographicRelevance +
		w.Experience*f.ExperienceLevel +
		w.Collaboration*f.CollaborationPotential
}

// ══════════════════════════════════════════════════════════════════════════════
// GEOGRAPHIC ADJACENCY
// Явная, расширяемая таблица соседства регионов. География — мягкий сигнал:
// балл никогда не опускается ниже пола, кандидат не исключается по региону.
// ══════════════════════════════════════════════════════════════════════════════

// Географические баллы.
const (
	// GeoSameRegionScore - участники из одного региона.
	GeoSameRegionScore = 1.0

	// GeoAdjacentScore - пара регионов из таблицы соседства.
	GeoAdjacentScore = 0.8

	// GeoFloorScore - все остальные пары. Нижняя граница фактора.
	GeoFloorScore = 0.6
)

// RegionAdjacency - таблица пар соседних регионов. Симметрична по построению:
// Score(a,b) == Score(b,a) для любой пары.
type RegionAdjacency struct {
	pairs map[adjacencyKey]struct{}
}

type adjacencyKey struct {
	low, high string
}

func newAdjacencyKey(a, b Region) adjacencyKey {
	la, lb := strings.ToLower(string(a)), strings.ToLower(string(b))
	if la > lb {
		la, lb = lb, la
	}
	return adjacencyKey{low: la, high: lb}
}

// NewRegionAdjacency создаёт пустую таблицу соседства.
func NewRegionAdjacency() *RegionAdjacency {
	return &RegionAdjacency{pairs: make(map[adjacencyKey]struct{})}
}

// DefaultRegionAdjacency возвращает действующую политику соседства.
// Единственная признанная пара - Europe↔Africa (средиземноморские порты).
// Новые пары добавляются только по решению продукта, не по догадке.
func DefaultRegionAdjacency() *RegionAdjacency {
	adj := NewRegionAdjacency()
	adj.Add("Europe", "Africa")
	return adj
}

// Add регистрирует пару соседних регионов (в обе стороны).
func (a *RegionAdjacency) Add(r1, r2 Region) {
	a.pairs[newAdjacencyKey(r1, r2)] = struct{}{}
}

// IsAdjacent проверяет, являются ли регионы соседними.
func (a *RegionAdjacency) IsAdjacent(r1, r2 Region) bool {
	_, ok := a.pairs[newAdjacencyKey(r1, r2)]
	return ok
}

// Score возвращает географический балл для пары регионов.
func (a *RegionAdjacency) Score(r1, r2 Region) float64 {
	if r1.IsValid() && r1.Equals(r2) {
		return GeoSameRegionScore
	}
	if a.IsAdjacent(r1, r2) {
		return GeoAdjacentScore
	}
	return GeoFloorScore
}

// ══════════════════════════════════════════════════════════════════════════════
// SCORER
// Чистая функция: (профиль зрителя, профиль кандидата) → факторы + балл.
// Никакого I/O, никакого скрытого состояния; для одинаковых входов и
// одинакового момента времени результат идентичен.
// ══════════════════════════════════════════════════════════════════════════════

// Scorer вычисляет совместимость пары профилей.
type Scorer struct {
	weights   FactorWeights
	adjacency *RegionAdjacency
	reasons   []ReasonRule
	now       func() time.Time
}

// ScorerOption настраивает Scorer.
type ScorerOption func(*Scorer)

// WithWeights задаёт веса факторов.
func WithWeights(w FactorWeights) ScorerOption {
	return func(s *Scorer) { s.weights = w }
}

// WithAdjacency задаёт таблицу соседства регионов.
func WithAdjacency(a *RegionAdjacency) ScorerOption {
	return func(s *Scorer) { s.adjacency = a }
}

// WithReasonRules задаёт правила генерации причин.
func WithReasonRules(rules []ReasonRule) ScorerOption {
	return func(s *Scorer) { s.reasons = rules }
}

// WithClock задаёт источник времени (для детерминированных тестов).
func WithClock(now func() time.Time) ScorerOption {
	return func(s *Scorer) { s.now = now }
}

// NewScorer создаёт Scorer. Возвращает ошибку, если веса невалидны.
func NewScorer(opts ...ScorerOption) (*Scorer, error) {
	s := &Scorer{
		weights:   DefaultFactorWeights(),
		adjacency: DefaultRegionAdjacency(),
		reasons:   DefaultReasonRules(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.weights.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// MustScorer создаёт Scorer с настройками по умолчанию, паникуя при ошибке.
// Пригоден только для конфигураций, проверенных на старте приложения.
func MustScorer(opts ...ScorerOption) *Scorer {
	s, err := NewScorer(opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Weights возвращает действующие веса факторов.
func (s *Scorer) Weights() FactorWeights {
	return s.weights
}

// Score вычисляет пять под-баллов совместимости пары (viewer, candidate).
// Все множества могут быть пустыми: коэффициент пересечения защищён от
// деления на ноль.
func (s *Scorer) Score(viewer, candidate *Profile) CompatibilityFactors {
	factors := CompatibilityFactors{
		SectorAlignment:        viewer.Sectors.OverlapRatio(candidate.Sectors),
		ObjectiveAlignment:     viewer.ParticipationObjectives.OverlapRatio(candidate.ParticipationObjectives),
		GeographicRelevance:    s.adjacency.Score(viewer.GeographicRegion, candidate.GeographicRegion),
		ExperienceLevel:        s.experienceLevel(candidate),
		CollaborationPotential: viewer.CollaborationTypes.OverlapRatio(candidate.CollaborationTypes),
	}
	return factors.Clamped()
}

// OverallScore возвращает итоговый балл 0-100 для уже вычисленных факторов.
func (s *Scorer) OverallScore(factors CompatibilityFactors) int {
	return int(math.Round(100 * s.weights.Apply(factors.Clamped())))
}

// experienceLevel возвращает прокси стажа кандидата: min(годы/10, 1.0).
// Фактор односторонний: это априорная оценка качества кандидата,
// а не парная совместимость.
func (s *Scorer) experienceLevel(candidate *Profile) float64 {
	years := candidate.TenureYears(s.now().UTC())
	return clamp01(float64(years) / float64(ExperienceCapYears))
}

// ══════════════════════════════════════════════════════════════════════════════
// REASON GENERATION
// Причины — презентационный слой поверх факторов: пороги и формулировки
// заданы таблицей, чтобы тестироваться отдельно от числового скоринга.
// На ранжирование причины не влияют.
// ══════════════════════════════════════════════════════════════════════════════

// MaxReasons - максимум причин в одном результате.
const MaxReasons = 4

// MaxSharedInterestsNamed - сколько общих интересов называется в причине.
const MaxSharedInterestsNamed = 2

// ReasonRule - одно пороговое правило генерации причины.
// Правила применяются в порядке объявления (порядок = приоритет).
type ReasonRule struct {
	// Factor извлекает проверяемый под-балл из факторов.
	Factor func(CompatibilityFactors) float64

	// Threshold - причина выдаётся строго при балле выше порога.
	Threshold float64

	// Phrase - формулировка для UI.
	Phrase string
}

// DefaultReasonRules возвращает действующие правила в порядке приоритета.
func DefaultReasonRules() []ReasonRule {
	return []ReasonRule{
		{
			Factor:    func(f CompatibilityFactors) float64 { return f.SectorAlignment },
			Threshold: 0.7,
			Phrase:    "Secteurs d'activité complémentaires",
		},
		{
			Factor:    func(f CompatibilityFactors) float64 { return f.ObjectiveAlignment },
			Threshold: 0.6,
			Phrase:    "Objectifs de participation alignés",
		},
		{
			Factor:    func(f CompatibilityFactors) float64 { return f.GeographicRelevance },
			Threshold: 0.8,
			Phrase:    "Proximité géographique",
		},
		{
			Factor:    func(f CompatibilityFactors) float64 { return f.CollaborationPotential },
			Threshold: 0.5,
			Phrase:    "Types de partenariat compatibles",
		},
	}
}

// Reasons генерирует до MaxReasons коротких причин совместимости пары.
// Пороговые правила идут в порядке приоритета; последним добавляется
// упоминание общих тематических интересов (до двух по имени).
func (s *Scorer) Reasons(viewer, candidate *Profile, factors CompatibilityFactors) []string {
	reasons := make([]string, 0, MaxReasons)

	for _, rule := range s.reasons {
		if len(reasons) == MaxReasons {
			return reasons
		}
		if rule.Factor(factors) > rule.Threshold {
			reasons = append(reasons, rule.Phrase)
		}
	}

	if len(reasons) < MaxReasons {
		if shared := viewer.ThematicInterests.Intersect(candidate.ThematicInterests); !shared.IsEmpty() {
			named := shared
			if len(named) > MaxSharedInterestsNamed {
				named = named[:MaxSharedInterestsNamed]
			}
			reasons = append(reasons, fmt.Sprintf("Intérêts communs: %s", strings.Join(named, ", ")))
		}
	}

	return reasons
}
