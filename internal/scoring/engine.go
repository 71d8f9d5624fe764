package scoring

import (
	"fmt"

	"github.com/clinic-assessment-server/internal/domain"
)

// Engine scores selections against a Catalog. It holds only immutable data
// and is safe for concurrent use.
type Engine struct {
	catalog *Catalog
	max     map[domain.Gender]int
}

// Evaluation is the full outcome of scoring one submission.
type Evaluation struct {
	Gender          domain.Gender                    `json:"gender"`
	RawScore        int                              `json:"rawScore"`
	MaxScore        int                              `json:"maxScore"`
	NormalizedScore int                              `json:"normalizedScore"`
	Tier            Tier                             `json:"tier"`
	Breakdown       map[string]domain.ScoreBreakdown `json:"breakdown"`
	Selected        []domain.QuestionRef             `json:"selected"`
	Skipped         []string                         `json:"skipped"`
}

// NewEngine creates an engine over catalog.
func NewEngine(catalog *Catalog) *Engine {
	e := &Engine{
		catalog: catalog,
		max:     make(map[domain.Gender]int, 2),
	}
	for _, g := range []domain.Gender{domain.GenderMale, domain.GenderFemale} {
		total := 0
		for _, cat := range catalog.categories {
			if cat.AppliesTo(g) {
				total += cat.MaxScore()
			}
		}
		e.max[g] = total
	}
	return e
}

// Catalog returns the catalog the engine scores against.
func (e *Engine) Catalog() *Catalog {
	return e.catalog
}

// MaxPossibleScore sums the weights of every category shown to gender g.
func (e *Engine) MaxPossibleScore(g domain.Gender) (int, error) {
	if !g.IsValid() {
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidGender, g)
	}
	return e.max[g], nil
}

// RawScore sums the weights of the selected questions. References that are
// not in the catalog are ignored.
func (e *Engine) RawScore(sel domain.Selection) int {
	total := 0
	for ref := range sel {
		if w, ok := e.catalog.Weight(ref); ok {
			total += w
		}
	}
	return total
}

// Normalize scales raw to 0..100 against the maximum for g, rounding half up.
func (e *Engine) Normalize(raw int, g domain.Gender) (int, error) {
	maxScore, err := e.MaxPossibleScore(g)
	if err != nil {
		return 0, err
	}
	if maxScore == 0 {
		return 0, fmt.Errorf("%w: no categories apply to %q", domain.ErrInvalidGender, g)
	}
	if raw <= 0 {
		return 0, nil
	}
	if raw >= maxScore {
		return 100, nil
	}
	return (200*raw + maxScore) / (2 * maxScore), nil
}

// SectionBreakdown computes the per-category score for every category shown
// to g and for every category listed in skipped. Skipped categories always
// score zero. Callers are expected to have cleared selections inside skipped
// categories already; Evaluate does this.
func (e *Engine) SectionBreakdown(sel domain.Selection, g domain.Gender, skipped []string) (map[string]domain.ScoreBreakdown, error) {
	if !g.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidGender, g)
	}

	skip := make(map[string]bool, len(skipped))
	for _, id := range skipped {
		skip[id] = true
	}

	out := make(map[string]domain.ScoreBreakdown, len(e.catalog.categories))
	for _, cat := range e.catalog.categories {
		applies := cat.AppliesTo(g)
		if !applies && !skip[cat.ID] {
			continue
		}

		b := domain.ScoreBreakdown{Skipped: skip[cat.ID]}
		if applies {
			b.MaxScore = cat.MaxScore()
		}
		if !b.Skipped {
			for _, q := range cat.Questions {
				if sel.Has(domain.QuestionRef{Category: cat.ID, Question: q.ID}) {
					b.Score += q.Weight
				}
			}
		}
		out[cat.ID] = b
	}
	return out, nil
}

// Classify maps a normalized score to its tier. Upper bounds are inclusive;
// scores outside 0..100 are clamped first.
func (e *Engine) Classify(normalized int) Tier {
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 100 {
		normalized = 100
	}
	tiers := e.catalog.tiers
	for _, t := range tiers {
		if normalized <= t.UpperBound {
			return copyTier(t)
		}
	}
	// unreachable for a validated catalog
	return copyTier(tiers[len(tiers)-1])
}

// Tier returns the tier with the given level.
func (e *Engine) Tier(level int) (Tier, bool) {
	if level < 1 || level > len(e.catalog.tiers) {
		return Tier{}, false
	}
	return copyTier(e.catalog.tiers[level-1]), true
}

// Evaluate scores one submission. Selections inside skipped categories are
// dropped before scoring. A selection that references a category not shown
// to g is rejected with ErrGenderMismatch; unknown references are ignored.
func (e *Engine) Evaluate(g domain.Gender, sel domain.Selection, skipped []string) (*Evaluation, error) {
	if _, err := e.MaxPossibleScore(g); err != nil {
		return nil, err
	}

	skippedIDs := e.knownCategories(skipped)
	skip := make(map[string]bool, len(skippedIDs))
	for _, id := range skippedIDs {
		skip[id] = true
	}

	effective := sel.Without(skip)
	selected := make([]domain.QuestionRef, 0, len(effective))
	for _, ref := range effective.Refs() {
		if _, ok := e.catalog.Weight(ref); !ok {
			continue
		}
		cat := e.catalog.categories[e.catalog.byID[ref.Category]]
		if !cat.AppliesTo(g) {
			return nil, fmt.Errorf("%w: category %q is not shown to %s patients", domain.ErrGenderMismatch, cat.ID, g)
		}
		selected = append(selected, ref)
	}

	raw := e.RawScore(effective)
	normalized, err := e.Normalize(raw, g)
	if err != nil {
		return nil, err
	}
	breakdown, err := e.SectionBreakdown(effective, g, skippedIDs)
	if err != nil {
		return nil, err
	}

	return &Evaluation{
		Gender:          g,
		RawScore:        raw,
		MaxScore:        e.max[g],
		NormalizedScore: normalized,
		Tier:            e.Classify(normalized),
		Breakdown:       breakdown,
		Selected:        selected,
		Skipped:         skippedIDs,
	}, nil
}

// knownCategories returns the ids in ids that exist in the catalog, without
// duplicates, in catalog order.
func (e *Engine) knownCategories(ids []string) []string {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]string, 0, len(want))
	for _, cat := range e.catalog.categories {
		if want[cat.ID] {
			out = append(out, cat.ID)
		}
	}
	return out
}

func copyTier(t Tier) Tier {
	t.Treatments = append([]string(nil), t.Treatments...)
	return t
}
