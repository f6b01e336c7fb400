package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bennie10colado/JogoPOO-FORK/internal/game"
)

// QuestionRepository persists the question catalog and serves the selection
// lookups. Which row wins a LIMIT 1 lookup among several eligible ones is up
// to the planner.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository constructs a question repository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

var (
	_ game.Catalog      = (*QuestionRepository)(nil)
	_ game.AdminCatalog = (*QuestionRepository)(nil)
)

// QuestionByID fetches one question with its alternatives.
func (r *QuestionRepository) QuestionByID(ctx context.Context, id uuid.UUID) (*game.Question, error) {
	q := game.Question{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT category_id, level, prompt FROM questions WHERE id = $1`, id,
	).Scan(&q.CategoryID, &q.Level, &q.Prompt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("question %s: %w", id, game.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query question: %w", err)
	}

	alts, err := r.alternativesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	q.Alternatives = alts
	return &q, nil
}

// AlternativeByID fetches one alternative.
func (r *QuestionRepository) AlternativeByID(ctx context.Context, id uuid.UUID) (*game.Alternative, error) {
	alt := game.Alternative{ID: id}
	err := r.pool.QueryRow(ctx,
		`SELECT question_id, body, correct FROM alternatives WHERE id = $1`, id,
	).Scan(&alt.QuestionID, &alt.Body, &alt.Correct)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("alternative %s: %w", id, game.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query alternative: %w", err)
	}
	return &alt, nil
}

// OneByLevelAndCategories returns one question matching both level and
// categories, outside the excluded set.
func (r *QuestionRepository) OneByLevelAndCategories(ctx context.Context, level int, categories []uuid.UUID, excluded []uuid.UUID) (*game.Question, error) {
	return r.one(ctx,
		`SELECT id FROM questions
		 WHERE level = $1 AND category_id = ANY($2) AND NOT (id = ANY($3))
		 LIMIT 1`,
		level, categories, emptyNotNil(excluded))
}

// OneByLevel returns one question of the given level outside the excluded set.
func (r *QuestionRepository) OneByLevel(ctx context.Context, level int, excluded []uuid.UUID) (*game.Question, error) {
	return r.one(ctx,
		`SELECT id FROM questions
		 WHERE level = $1 AND NOT (id = ANY($2))
		 LIMIT 1`,
		level, emptyNotNil(excluded))
}

// OneByCategories returns one question from the given categories outside the
// excluded set.
func (r *QuestionRepository) OneByCategories(ctx context.Context, categories []uuid.UUID, excluded []uuid.UUID) (*game.Question, error) {
	return r.one(ctx,
		`SELECT id FROM questions
		 WHERE category_id = ANY($1) AND NOT (id = ANY($2))
		 LIMIT 1`,
		categories, emptyNotNil(excluded))
}

// OneNotIn returns any question outside the excluded set.
func (r *QuestionRepository) OneNotIn(ctx context.Context, excluded []uuid.UUID) (*game.Question, error) {
	return r.one(ctx,
		`SELECT id FROM questions WHERE NOT (id = ANY($1)) LIMIT 1`,
		emptyNotNil(excluded))
}

func (r *QuestionRepository) one(ctx context.Context, query string, args ...interface{}) (*game.Question, error) {
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, args...).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select question: %w", err)
	}
	return r.QuestionByID(ctx, id)
}

// InsertQuestion stores a question and its alternatives in one transaction.
func (r *QuestionRepository) InsertQuestion(ctx context.Context, q *game.Question) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO questions (id, category_id, level, prompt) VALUES ($1, $2, $3, $4)`,
			q.ID, q.CategoryID, q.Level, q.Prompt)
		if err != nil {
			return fmt.Errorf("insert question: %w", err)
		}
		return insertAlternatives(ctx, tx, q)
	})
}

// UpdateQuestion replaces a question row and rewrites its alternatives.
func (r *QuestionRepository) UpdateQuestion(ctx context.Context, q *game.Question) error {
	return r.inTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE questions SET category_id = $2, level = $3, prompt = $4 WHERE id = $1`,
			q.ID, q.CategoryID, q.Level, q.Prompt)
		if err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("question %s: %w", q.ID, game.ErrNotFound)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM alternatives WHERE question_id = $1`, q.ID); err != nil {
			return fmt.Errorf("clear alternatives: %w", err)
		}
		return insertAlternatives(ctx, tx, q)
	})
}

// DeleteQuestion removes a question; alternatives cascade.
func (r *QuestionRepository) DeleteQuestion(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("question %s: %w", id, game.ErrNotFound)
	}
	return nil
}

// ListQuestions loads the whole catalog with alternatives attached.
func (r *QuestionRepository) ListQuestions(ctx context.Context) ([]game.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, category_id, level, prompt FROM questions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []game.Question
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		var q game.Question
		if err := rows.Scan(&q.ID, &q.CategoryID, &q.Level, &q.Prompt); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		index[q.ID] = len(questions)
		questions = append(questions, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}

	altRows, err := r.pool.Query(ctx,
		`SELECT id, question_id, body, correct FROM alternatives`)
	if err != nil {
		return nil, fmt.Errorf("query alternatives: %w", err)
	}
	defer altRows.Close()
	for altRows.Next() {
		var alt game.Alternative
		if err := altRows.Scan(&alt.ID, &alt.QuestionID, &alt.Body, &alt.Correct); err != nil {
			return nil, fmt.Errorf("scan alternative: %w", err)
		}
		if i, ok := index[alt.QuestionID]; ok {
			questions[i].Alternatives = append(questions[i].Alternatives, alt)
		}
	}
	if err := altRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate alternatives: %w", err)
	}
	return questions, nil
}

// InsertCategory stores a category.
func (r *QuestionRepository) InsertCategory(ctx context.Context, c *game.Category) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO categories (id, name) VALUES ($1, $2)`, c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

// GetCategory fetches one category.
func (r *QuestionRepository) GetCategory(ctx context.Context, id uuid.UUID) (*game.Category, error) {
	c := game.Category{ID: id}
	err := r.pool.QueryRow(ctx, `SELECT name FROM categories WHERE id = $1`, id).Scan(&c.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("category %s: %w", id, game.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query category: %w", err)
	}
	return &c, nil
}

// ListCategories returns every category.
func (r *QuestionRepository) ListCategories(ctx context.Context) ([]game.Category, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []game.Category
	for rows.Next() {
		var c game.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory renames a category.
func (r *QuestionRepository) UpdateCategory(ctx context.Context, c *game.Category) error {
	tag, err := r.pool.Exec(ctx, `UPDATE categories SET name = $2 WHERE id = $1`, c.ID, c.Name)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %s: %w", c.ID, game.ErrNotFound)
	}
	return nil
}

// DeleteCategory removes a category.
func (r *QuestionRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %s: %w", id, game.ErrNotFound)
	}
	return nil
}

func (r *QuestionRepository) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertAlternatives(ctx context.Context, tx pgx.Tx, q *game.Question) error {
	for i := range q.Alternatives {
		alt := &q.Alternatives[i]
		_, err := tx.Exec(ctx,
			`INSERT INTO alternatives (id, question_id, body, correct) VALUES ($1, $2, $3, $4)`,
			alt.ID, alt.QuestionID, alt.Body, alt.Correct)
		if err != nil {
			return fmt.Errorf("insert alternative: %w", err)
		}
	}
	return nil
}

func (r *QuestionRepository) alternativesFor(ctx context.Context, questionID uuid.UUID) ([]game.Alternative, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, question_id, body, correct FROM alternatives WHERE question_id = $1`, questionID)
	if err != nil {
		return nil, fmt.Errorf("query alternatives: %w", err)
	}
	defer rows.Close()

	var alts []game.Alternative
	for rows.Next() {
		var alt game.Alternative
		if err := rows.Scan(&alt.ID, &alt.QuestionID, &alt.Body, &alt.Correct); err != nil {
			return nil, fmt.Errorf("scan alternative: %w", err)
		}
		alts = append(alts, alt)
	}
	return alts, rows.Err()
}

// emptyNotNil keeps ANY($n) well-typed when there is nothing to exclude.
func emptyNotNil(ids []uuid.UUID) []uuid.UUID {
	if ids == nil {
		return []uuid.UUID{}
	}
	return ids
}
