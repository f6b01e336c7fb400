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

// SessionRepository persists match sessions.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

var _ game.SessionStore = (*SessionRepository)(nil)

const sessionColumns = `id, player_id, config_id, current_question_id, score, answered_ids, active, created_at, updated_at`

// InsertSession stores a session.
func (r *SessionRepository) InsertSession(ctx context.Context, sess *game.Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO match_sessions (`+sessionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		sess.ID, sess.PlayerID, sess.ConfigID, nullableID(sess.CurrentQuestionID),
		sess.Score, sess.Answered.IDs(), sess.Active, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetSession fetches one session.
func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*game.Session, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM match_sessions WHERE id = $1`, id)
	sess, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, game.ErrNotFound)
	}
	return sess, err
}

// ListSessions returns every session.
func (r *SessionRepository) ListSessions(ctx context.Context) ([]game.Session, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM match_sessions ORDER BY created_at`)
}

// ActiveSessionsByPlayer lists a player's running sessions.
func (r *SessionRepository) ActiveSessionsByPlayer(ctx context.Context, playerID uuid.UUID) ([]game.Session, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM match_sessions
		 WHERE player_id = $1 AND active ORDER BY created_at`, playerID)
}

// DeleteSession removes a session.
func (r *SessionRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM match_sessions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", id, game.ErrNotFound)
	}
	return nil
}

// RankSessions ranks sessions by score across all configurations.
func (r *SessionRepository) RankSessions(ctx context.Context, limit int) ([]game.Session, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM match_sessions
		 ORDER BY score DESC, created_at LIMIT $1`, limit)
}

// RankSessionsByConfig ranks the sessions played under one configuration.
func (r *SessionRepository) RankSessionsByConfig(ctx context.Context, configID uuid.UUID, limit int) ([]game.Session, error) {
	return r.list(ctx,
		`SELECT `+sessionColumns+` FROM match_sessions
		 WHERE config_id = $1 ORDER BY score DESC, created_at LIMIT $2`, configID, limit)
}

// CommitAnswer writes the evaluated session, its configuration and the player
// account delta in one transaction.
func (r *SessionRepository) CommitAnswer(ctx context.Context, sess *game.Session, cfg *game.Configuration, delta game.PlayerDelta) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx,
		`UPDATE match_sessions
		 SET current_question_id = $2, score = $3, answered_ids = $4, active = $5, updated_at = $6
		 WHERE id = $1`,
		sess.ID, nullableID(sess.CurrentQuestionID), sess.Score,
		sess.Answered.IDs(), sess.Active, sess.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("session %s: %w", sess.ID, game.ErrNotFound)
	}

	preset, level, categoryIDs, questionIDs := flattenRules(cfg)
	if _, err := tx.Exec(ctx,
		`UPDATE match_configs
		 SET preset = $2, level = $3, category_ids = $4, question_ids = $5
		 WHERE id = $1`,
		cfg.ID, preset, level, categoryIDs, questionIDs); err != nil {
		return fmt.Errorf("update config: %w", err)
	}

	if delta != (game.PlayerDelta{}) {
		if _, err := tx.Exec(ctx,
			`UPDATE users
			 SET score = score + $2, balance = balance + $3, matches_played = matches_played + $4
			 WHERE id = $1`,
			sess.PlayerID, delta.Score, delta.Balance, delta.MatchesPlayed); err != nil {
			return fmt.Errorf("update player account: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *SessionRepository) list(ctx context.Context, query string, args ...interface{}) ([]game.Session, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []game.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*game.Session, error) {
	var (
		sess        game.Session
		current     *uuid.UUID
		answeredIDs []uuid.UUID
	)
	err := row.Scan(&sess.ID, &sess.PlayerID, &sess.ConfigID, &current,
		&sess.Score, &answeredIDs, &sess.Active, &sess.CreatedAt, &sess.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if current != nil {
		sess.CurrentQuestionID = *current
	}
	sess.Answered = game.NewQuestionSet(answeredIDs...)
	return &sess, nil
}

func nullableID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
