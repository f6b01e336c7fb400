package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// AdminCatalog is the writable side of the question catalog.
type AdminCatalog interface {
	InsertQuestion(ctx context.Context, q *Question) error
	UpdateQuestion(ctx context.Context, q *Question) error
	DeleteQuestion(ctx context.Context, id uuid.UUID) error
	ListQuestions(ctx context.Context) ([]Question, error)
	InsertCategory(ctx context.Context, c *Category) error
	GetCategory(ctx context.Context, id uuid.UUID) (*Category, error)
	ListCategories(ctx context.Context) ([]Category, error)
	UpdateCategory(ctx context.Context, c *Category) error
	DeleteCategory(ctx context.Context, id uuid.UUID) error
}

// Admin curates the question catalog. Catalog edits happen outside match
// flow; the engine never sees a question change mid-session.
type Admin struct {
	catalog Catalog
	store   AdminCatalog
}

// NewAdmin builds the catalog curation service.
func NewAdmin(catalog Catalog, store AdminCatalog) *Admin {
	return &Admin{catalog: catalog, store: store}
}

func requireAdmin(caller Caller) error {
	if caller.ID == uuid.Nil {
		return ErrUnauthorized
	}
	if caller.Role != RoleAdmin {
		return ErrInvalidRole
	}
	return nil
}

func validateQuestion(q *Question) error {
	if q.Prompt == "" {
		return fmt.Errorf("question prompt is required")
	}
	if len(q.Alternatives) < 2 {
		return fmt.Errorf("a question needs at least two alternatives")
	}
	correct := 0
	for _, alt := range q.Alternatives {
		if alt.Correct {
			correct++
		}
	}
	if correct != 1 {
		return fmt.Errorf("exactly one alternative must be correct, got %d", correct)
	}
	return nil
}

// InsertQuestion stores a new question after re-resolving its category.
func (a *Admin) InsertQuestion(ctx context.Context, caller Caller, q *Question) (*Question, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	if _, err := a.store.GetCategory(ctx, q.CategoryID); err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}
	if q.ID == uuid.Nil {
		q.ID = uuid.New()
	}
	for i := range q.Alternatives {
		if q.Alternatives[i].ID == uuid.Nil {
			q.Alternatives[i].ID = uuid.New()
		}
		q.Alternatives[i].QuestionID = q.ID
	}
	if err := a.store.InsertQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("insert question: %w", err)
	}
	return q, nil
}

// UpdateQuestion replaces a question and its alternatives.
func (a *Admin) UpdateQuestion(ctx context.Context, caller Caller, q *Question) (*Question, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if err := validateQuestion(q); err != nil {
		return nil, err
	}
	if _, err := a.catalog.QuestionByID(ctx, q.ID); err != nil {
		return nil, fmt.Errorf("resolve question: %w", err)
	}
	if _, err := a.store.GetCategory(ctx, q.CategoryID); err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}
	for i := range q.Alternatives {
		if q.Alternatives[i].ID == uuid.Nil {
			q.Alternatives[i].ID = uuid.New()
		}
		q.Alternatives[i].QuestionID = q.ID
	}
	if err := a.store.UpdateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// DeleteQuestion removes a question from the catalog.
func (a *Admin) DeleteQuestion(ctx context.Context, caller Caller, id uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return a.store.DeleteQuestion(ctx, id)
}

// GetQuestion fetches one question with its alternatives.
func (a *Admin) GetQuestion(ctx context.Context, id uuid.UUID) (*Question, error) {
	return a.catalog.QuestionByID(ctx, id)
}

// ListQuestions returns the full catalog.
func (a *Admin) ListQuestions(ctx context.Context) ([]Question, error) {
	return a.store.ListQuestions(ctx)
}

// InsertCategory stores a new category.
func (a *Admin) InsertCategory(ctx context.Context, caller Caller, c *Category) (*Category, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if c.Name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if err := a.store.InsertCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// GetCategory fetches one category.
func (a *Admin) GetCategory(ctx context.Context, id uuid.UUID) (*Category, error) {
	return a.store.GetCategory(ctx, id)
}

// ListCategories returns every category.
func (a *Admin) ListCategories(ctx context.Context) ([]Category, error) {
	return a.store.ListCategories(ctx)
}

// UpdateCategory renames a category.
func (a *Admin) UpdateCategory(ctx context.Context, caller Caller, c *Category) (*Category, error) {
	if err := requireAdmin(caller); err != nil {
		return nil, err
	}
	if c.Name == "" {
		return nil, fmt.Errorf("category name is required")
	}
	if _, err := a.store.GetCategory(ctx, c.ID); err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}
	if err := a.store.UpdateCategory(ctx, c); err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return c, nil
}

// DeleteCategory removes a category.
func (a *Admin) DeleteCategory(ctx context.Context, caller Caller, id uuid.UUID) error {
	if err := requireAdmin(caller); err != nil {
		return err
	}
	return a.store.DeleteCategory(ctx, id)
}
