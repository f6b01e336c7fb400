package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bennie10colado/JogoPOO-FORK/internal/auth"
	"github.com/bennie10colado/JogoPOO-FORK/internal/game"
)

// UserRepository persists accounts. It serves both the auth side (credential
// storage) and the game side (player account reads).
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository constructs a user repository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

var (
	_ auth.UserStore   = (*UserRepository)(nil)
	_ game.PlayerStore = (*UserRepository)(nil)
)

const userColumns = `id, email, display_name, role, score, balance, matches_played`

// CreateUser stores an account with its password hash.
func (r *UserRepository) CreateUser(ctx context.Context, user auth.User, passwordHash string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, email, display_name, role, password_hash)
		 VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.DisplayName, user.Role, passwordHash)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UserByEmail fetches an account and its password hash.
func (r *UserRepository) UserByEmail(ctx context.Context, email string) (auth.User, string, error) {
	var (
		user auth.User
		hash string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+`, password_hash FROM users WHERE email = $1`, email,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role,
		&user.Score, &user.Balance, &user.MatchesPlayed, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, "", fmt.Errorf("user %s: %w", email, game.ErrNotFound)
	}
	if err != nil {
		return auth.User{}, "", fmt.Errorf("query user: %w", err)
	}
	return user, hash, nil
}

// UserByID fetches an account.
func (r *UserRepository) UserByID(ctx context.Context, id uuid.UUID) (auth.User, error) {
	var user auth.User
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role,
		&user.Score, &user.Balance, &user.MatchesPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, fmt.Errorf("user %s: %w", id, game.ErrNotFound)
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// ListUsers returns every account.
func (r *UserRepository) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []auth.User
	for rows.Next() {
		var user auth.User
		if err := rows.Scan(&user.ID, &user.Email, &user.DisplayName, &user.Role,
			&user.Score, &user.Balance, &user.MatchesPlayed); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdatePassword replaces an account's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1`, id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %s: %w", id, game.ErrNotFound)
	}
	return nil
}

// GetPlayer fetches the account fields the engine mutates.
func (r *UserRepository) GetPlayer(ctx context.Context, id uuid.UUID) (*game.Player, error) {
	var p game.Player
	err := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&p.ID, &p.Email, &p.DisplayName, &p.Role,
		&p.Score, &p.Balance, &p.MatchesPlayed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("player %s: %w", id, game.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query player: %w", err)
	}
	return &p, nil
}
