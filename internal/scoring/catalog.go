// Package scoring implements the symptom checklist scoring engine: the fixed
// catalog of categories and questions, score normalisation against the
// gender-appropriate maximum, and classification into treatment tiers.
//
// A Catalog is built once at startup and never mutated afterwards, so an
// Engine can be shared by any number of goroutines without locking.
package scoring

import (
	"fmt"

	"github.com/clinic-assessment-server/internal/domain"
)

// Question is one checklist item. Weight is awarded when it is selected.
type Question struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Weight int    `json:"weight"`
}

// Category groups related questions. An empty Gender applies to everyone.
type Category struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Gender      domain.Gender `json:"gender,omitempty"`
	Questions   []Question    `json:"questions"`
}

// AppliesTo reports whether the category is shown to patients of gender g.
func (c Category) AppliesTo(g domain.Gender) bool {
	return c.Gender == "" || c.Gender == g
}

// MaxScore is the sum of every question weight in the category.
func (c Category) MaxScore() int {
	total := 0
	for _, q := range c.Questions {
		total += q.Weight
	}
	return total
}

// Section groups categories for navigation only.
type Section struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	CategoryIDs []string `json:"categoryIds"`
}

// Tier is one treatment band. A normalized score belongs to the first tier
// whose UpperBound it does not exceed.
type Tier struct {
	Level           int      `json:"level"`
	Label           string   `json:"label"`
	UpperBound      int      `json:"upperBound"`
	RequiresInDepth bool     `json:"requiresInDepth"`
	Description     string   `json:"description"`
	Treatments      []string `json:"treatments"`
}

// Catalog is the immutable question, section and tier configuration.
type Catalog struct {
	sections   []Section
	categories []Category
	tiers      []Tier

	byID    map[string]int
	weights map[domain.QuestionRef]int
}

// NewCatalog validates the definitions and indexes them. The slices are
// copied; later changes by the caller do not affect the catalog.
func NewCatalog(sections []Section, categories []Category, tiers []Tier) (*Catalog, error) {
	c := &Catalog{
		sections:   copySections(sections),
		categories: copyCategories(categories),
		tiers:      copyTiers(tiers),
		byID:       make(map[string]int, len(categories)),
		weights:    make(map[domain.QuestionRef]int),
	}

	for i, cat := range c.categories {
		if cat.ID == "" {
			return nil, fmt.Errorf("category %d: empty id", i)
		}
		if _, dup := c.byID[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category id %q", cat.ID)
		}
		if cat.Gender != "" && !cat.Gender.IsValid() {
			return nil, fmt.Errorf("category %q: %w: %q", cat.ID, domain.ErrInvalidGender, cat.Gender)
		}
		if len(cat.Questions) == 0 {
			return nil, fmt.Errorf("category %q has no questions", cat.ID)
		}
		c.byID[cat.ID] = i

		for _, q := range cat.Questions {
			ref := domain.QuestionRef{Category: cat.ID, Question: q.ID}
			if q.ID == "" {
				return nil, fmt.Errorf("category %q: question with empty id", cat.ID)
			}
			if _, dup := c.weights[ref]; dup {
				return nil, fmt.Errorf("category %q: duplicate question id %q", cat.ID, q.ID)
			}
			if q.Weight <= 0 {
				return nil, fmt.Errorf("question %s/%s: weight must be positive, got %d", cat.ID, q.ID, q.Weight)
			}
			c.weights[ref] = q.Weight
		}
	}

	seenSection := make(map[string]bool, len(c.sections))
	for _, s := range c.sections {
		if seenSection[s.ID] {
			return nil, fmt.Errorf("duplicate section id %q", s.ID)
		}
		seenSection[s.ID] = true
		for _, id := range s.CategoryIDs {
			if _, ok := c.byID[id]; !ok {
				return nil, fmt.Errorf("section %q references unknown category %q", s.ID, id)
			}
		}
	}

	if err := validateTiers(c.tiers); err != nil {
		return nil, err
	}

	return c, nil
}

// validateTiers checks that the bands are ordered, contiguous and cover
// [0,100] exactly once.
func validateTiers(tiers []Tier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("no tiers defined")
	}
	prev := -1
	for i, t := range tiers {
		if t.Level != i+1 {
			return fmt.Errorf("tier %d: level must be %d, got %d", i, i+1, t.Level)
		}
		if t.UpperBound <= prev {
			return fmt.Errorf("tier %d: upper bound %d does not exceed previous bound %d", t.Level, t.UpperBound, prev)
		}
		prev = t.UpperBound
	}
	if prev != 100 {
		return fmt.Errorf("last tier must end at 100, got %d", prev)
	}
	return nil
}

// Sections returns the navigation sections in display order.
func (c *Catalog) Sections() []Section {
	return copySections(c.sections)
}

// Categories returns every category in display order.
func (c *Catalog) Categories() []Category {
	return copyCategories(c.categories)
}

// CategoriesFor returns the categories shown to gender g.
func (c *Catalog) CategoriesFor(g domain.Gender) []Category {
	out := make([]Category, 0, len(c.categories))
	for _, cat := range c.categories {
		if cat.AppliesTo(g) {
			out = append(out, copyCategory(cat))
		}
	}
	return out
}

// Category looks up a category by id.
func (c *Catalog) Category(id string) (Category, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Category{}, false
	}
	return copyCategory(c.categories[i]), true
}

// Weight returns the weight of ref, or false when ref is not in the catalog.
func (c *Catalog) Weight(ref domain.QuestionRef) (int, bool) {
	w, ok := c.weights[ref]
	return w, ok
}

// Tiers returns the tiers ordered from lowest to highest.
func (c *Catalog) Tiers() []Tier {
	return copyTiers(c.tiers)
}

// QuestionCount returns the number of questions shown to gender g.
func (c *Catalog) QuestionCount(g domain.Gender) int {
	n := 0
	for _, cat := range c.categories {
		if cat.AppliesTo(g) {
			n += len(cat.Questions)
		}
	}
	return n
}

func copySections(in []Section) []Section {
	out := make([]Section, len(in))
	for i, s := range in {
		s.CategoryIDs = append([]string(nil), s.CategoryIDs...)
		out[i] = s
	}
	return out
}

func copyCategories(in []Category) []Category {
	out := make([]Category, len(in))
	for i, cat := range in {
		out[i] = copyCategory(cat)
	}
	return out
}

func copyCategory(cat Category) Category {
	cat.Questions = append([]Question(nil), cat.Questions...)
	return cat
}

func copyTiers(in []Tier) []Tier {
	out := make([]Tier, len(in))
	for i, t := range in {
		t.Treatments = append([]string(nil), t.Treatments...)
		out[i] = t
	}
	return out
}
