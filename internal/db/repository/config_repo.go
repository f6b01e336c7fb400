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

// ConfigRepository persists match configurations. The Rules variant is
// flattened into a preset flag plus the filter columns; the question_ids
// array holds the preset pool or the generative drawn set.
type ConfigRepository struct {
	pool *pgxpool.Pool
}

// NewConfigRepository constructs a configuration repository.
func NewConfigRepository(pool *pgxpool.Pool) *ConfigRepository {
	return &ConfigRepository{pool: pool}
}

var _ game.ConfigStore = (*ConfigRepository)(nil)

// InsertConfig stores a configuration.
func (r *ConfigRepository) InsertConfig(ctx context.Context, cfg *game.Configuration) error {
	preset, level, categoryIDs, questionIDs := flattenRules(cfg)
	_, err := r.pool.Exec(ctx,
		`INSERT INTO match_configs (id, player_id, preset, level, category_ids, question_ids, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		cfg.ID, cfg.PlayerID, preset, level, categoryIDs, questionIDs, cfg.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert config: %w", err)
	}
	return nil
}

// GetConfig fetches one configuration.
func (r *ConfigRepository) GetConfig(ctx context.Context, id uuid.UUID) (*game.Configuration, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, player_id, preset, level, category_ids, question_ids, created_at
		 FROM match_configs WHERE id = $1`, id)
	cfg, err := scanConfig(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("configuration %s: %w", id, game.ErrNotFound)
	}
	return cfg, err
}

// ListConfigs returns every configuration.
func (r *ConfigRepository) ListConfigs(ctx context.Context) ([]game.Configuration, error) {
	return r.list(ctx,
		`SELECT id, player_id, preset, level, category_ids, question_ids, created_at
		 FROM match_configs ORDER BY created_at`)
}

// ListPresetConfigs returns fixed-pool configurations only.
func (r *ConfigRepository) ListPresetConfigs(ctx context.Context) ([]game.Configuration, error) {
	return r.list(ctx,
		`SELECT id, player_id, preset, level, category_ids, question_ids, created_at
		 FROM match_configs WHERE preset ORDER BY created_at`)
}

// DeleteConfig removes a configuration.
func (r *ConfigRepository) DeleteConfig(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM match_configs WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("configuration %s: %w", id, game.ErrNotFound)
	}
	return nil
}

func (r *ConfigRepository) list(ctx context.Context, query string) ([]game.Configuration, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query configs: %w", err)
	}
	defer rows.Close()

	var cfgs []game.Configuration
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, *cfg)
	}
	return cfgs, rows.Err()
}

func scanConfig(row pgx.Row) (*game.Configuration, error) {
	var (
		cfg         game.Configuration
		preset      bool
		level       int
		categoryIDs []uuid.UUID
		questionIDs []uuid.UUID
	)
	err := row.Scan(&cfg.ID, &cfg.PlayerID, &preset, &level, &categoryIDs, &questionIDs, &cfg.CreatedAt)
	if err != nil {
		return nil, err
	}
	if preset {
		cfg.Rules = &game.PresetRules{Questions: game.NewQuestionSet(questionIDs...)}
	} else {
		cfg.Rules = &game.GenerativeRules{
			Level:      level,
			Categories: categoryIDs,
			Drawn:      game.NewQuestionSet(questionIDs...),
		}
	}
	return &cfg, nil
}

func flattenRules(cfg *game.Configuration) (preset bool, level int, categoryIDs, questionIDs []uuid.UUID) {
	questionIDs = cfg.Pool().IDs()
	if gen, ok := cfg.Rules.(*game.GenerativeRules); ok {
		return false, gen.Level, emptyNotNil(gen.Categories), questionIDs
	}
	return true, 0, []uuid.UUID{}, questionIDs
}
