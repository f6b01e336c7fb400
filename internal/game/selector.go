package game

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Catalog is the question store the selector draws from. Lookups that match
// nothing return ErrNotFound; which candidate wins among several eligible
// ones is unspecified.
type Catalog interface {
	QuestionByID(ctx context.Context, id uuid.UUID) (*Question, error)
	AlternativeByID(ctx context.Context, id uuid.UUID) (*Alternative, error)
	OneByLevelAndCategories(ctx context.Context, level int, categories []uuid.UUID, excluded []uuid.UUID) (*Question, error)
	OneByLevel(ctx context.Context, level int, excluded []uuid.UUID) (*Question, error)
	OneByCategories(ctx context.Context, categories []uuid.UUID, excluded []uuid.UUID) (*Question, error)
	OneNotIn(ctx context.Context, excluded []uuid.UUID) (*Question, error)
}

// Filter describes what the next question must satisfy.
type Filter struct {
	Level      int // 0 means any level
	Categories []uuid.UUID
	Excluded   QuestionSet
}

// strategy is one ranked selection predicate. Strategies are evaluated in
// declaration order; the first applicable one decides.
type strategy struct {
	name    string
	applies func(Filter) bool
	pick    func(context.Context, Catalog, Filter) (*Question, error)
}

var strategies = []strategy{
	{
		name:    "level_and_categories",
		applies: func(f Filter) bool { return f.Level != 0 && len(f.Categories) > 0 },
		pick: func(ctx context.Context, c Catalog, f Filter) (*Question, error) {
			return c.OneByLevelAndCategories(ctx, f.Level, f.Categories, f.Excluded.IDs())
		},
	},
	{
		name:    "level",
		applies: func(f Filter) bool { return f.Level != 0 },
		pick: func(ctx context.Context, c Catalog, f Filter) (*Question, error) {
			return c.OneByLevel(ctx, f.Level, f.Excluded.IDs())
		},
	},
	{
		name:    "categories",
		applies: func(f Filter) bool { return len(f.Categories) > 0 },
		pick: func(ctx context.Context, c Catalog, f Filter) (*Question, error) {
			return c.OneByCategories(ctx, f.Categories, f.Excluded.IDs())
		},
	},
	{
		name:    "any",
		applies: func(Filter) bool { return true },
		pick: func(ctx context.Context, c Catalog, f Filter) (*Question, error) {
			return c.OneNotIn(ctx, f.Excluded.IDs())
		},
	},
}

// Selector chooses the next eligible question for a filter.
type Selector struct {
	catalog Catalog
}

// NewSelector builds a selector over the given catalog.
func NewSelector(catalog Catalog) *Selector {
	return &Selector{catalog: catalog}
}

// Next returns the next eligible question, or (nil, nil) when the pool is
// exhausted. Exhaustion is a normal outcome, not an error.
func (s *Selector) Next(ctx context.Context, f Filter) (*Question, error) {
	if f.Excluded == nil {
		f.Excluded = NewQuestionSet()
	}
	for _, st := range strategies {
		if !st.applies(f) {
			continue
		}
		q, err := st.pick(ctx, s.catalog, f)
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return nil, nil
}
