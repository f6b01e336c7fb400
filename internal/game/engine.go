package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ConfigStore persists match configurations.
type ConfigStore interface {
	InsertConfig(ctx context.Context, cfg *Configuration) error
	GetConfig(ctx context.Context, id uuid.UUID) (*Configuration, error)
	ListConfigs(ctx context.Context) ([]Configuration, error)
	ListPresetConfigs(ctx context.Context) ([]Configuration, error)
	DeleteConfig(ctx context.Context, id uuid.UUID) error
}

// SessionStore persists match sessions. CommitAnswer writes the session, its
// configuration and the player delta in a single transaction so concurrent
// readers never observe a half-applied answer.
type SessionStore interface {
	InsertSession(ctx context.Context, sess *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	ListSessions(ctx context.Context) ([]Session, error)
	ActiveSessionsByPlayer(ctx context.Context, playerID uuid.UUID) ([]Session, error)
	DeleteSession(ctx context.Context, id uuid.UUID) error
	RankSessions(ctx context.Context, limit int) ([]Session, error)
	RankSessionsByConfig(ctx context.Context, configID uuid.UUID, limit int) ([]Session, error)
	CommitAnswer(ctx context.Context, sess *Session, cfg *Configuration, delta PlayerDelta) error
}

// PlayerStore resolves player accounts.
type PlayerStore interface {
	GetPlayer(ctx context.Context, id uuid.UUID) (*Player, error)
}

// Locker serializes answer submissions per session.
type Locker interface {
	LockSession(ctx context.Context, id uuid.UUID) (func() error, error)
}

// ScoreRecorder receives score increments after a committed correct answer.
// Implementations are best-effort; the engine logs and continues on failure.
type ScoreRecorder interface {
	RecordScore(ctx context.Context, player Player, points int) error
}

// NewConfigurationRequest carries caller input for configuration creation.
// A non-empty QuestionIDs list builds a preset configuration and the filter
// fields are ignored; otherwise Level/CategoryIDs drive a generative one.
type NewConfigurationRequest struct {
	QuestionIDs []uuid.UUID
	Level       int
	CategoryIDs []uuid.UUID
}

// Engine orchestrates match creation, answer evaluation, scoring and
// termination.
type Engine struct {
	catalog  Catalog
	selector *Selector
	configs  ConfigStore
	sessions SessionStore
	players  PlayerStore
	locker   Locker
	scores   ScoreRecorder
	logger   zerolog.Logger
}

// NewEngine wires the engine. scores may be nil when no leaderboard is
// configured.
func NewEngine(
	catalog Catalog,
	configs ConfigStore,
	sessions SessionStore,
	players PlayerStore,
	locker Locker,
	scores ScoreRecorder,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		catalog:  catalog,
		selector: NewSelector(catalog),
		configs:  configs,
		sessions: sessions,
		players:  players,
		locker:   locker,
		scores:   scores,
		logger:   logger.With().Str("component", "engine").Logger(),
	}
}

func requirePlayer(caller Caller) error {
	if caller.ID == uuid.Nil {
		return ErrUnauthorized
	}
	if caller.Role != RolePlayer {
		return ErrInvalidRole
	}
	return nil
}

// CreateConfiguration builds and persists a match configuration for the
// caller. Preset input is re-resolved question by question against the
// catalog; generative input must yield at least one question up front, so an
// empty configuration is never persisted.
func (e *Engine) CreateConfiguration(ctx context.Context, caller Caller, req NewConfigurationRequest) (*Configuration, error) {
	if err := requirePlayer(caller); err != nil {
		return nil, err
	}
	player, err := e.players.GetPlayer(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve player: %w", err)
	}

	cfg := &Configuration{
		ID:        uuid.New(),
		PlayerID:  player.ID,
		CreatedAt: time.Now(),
	}

	if len(req.QuestionIDs) > 0 {
		pool := NewQuestionSet()
		for _, id := range req.QuestionIDs {
			q, err := e.catalog.QuestionByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve question %s: %w", id, err)
			}
			pool.Add(q.ID)
		}
		cfg.Rules = &PresetRules{Questions: pool}
	} else {
		gen := &GenerativeRules{
			Level:      req.Level,
			Categories: req.CategoryIDs,
			Drawn:      NewQuestionSet(),
		}
		first, err := e.selector.Next(ctx, Filter{Level: gen.Level, Categories: gen.Categories, Excluded: gen.Drawn})
		if err != nil {
			return nil, fmt.Errorf("draw first question: %w", err)
		}
		if first == nil {
			return nil, fmt.Errorf("no questions for this match configuration: %w", ErrNotFound)
		}
		gen.Drawn.Add(first.ID)
		cfg.Rules = gen
	}

	if err := e.configs.InsertConfig(ctx, cfg); err != nil {
		return nil, fmt.Errorf("insert configuration: %w", err)
	}

	e.logger.Info().
		Str("config_id", cfg.ID.String()).
		Str("player_id", player.ID.String()).
		Bool("preset", cfg.Preset()).
		Msg("configuration created")
	return cfg, nil
}

// CreateSession starts a match for the caller. With a configuration id the
// session reuses that configuration and faces one of its pooled questions;
// without one an implicit unconstrained generative configuration is created.
func (e *Engine) CreateSession(ctx context.Context, caller Caller, configID *uuid.UUID) (*Session, error) {
	if err := requirePlayer(caller); err != nil {
		return nil, err
	}
	player, err := e.players.GetPlayer(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve player: %w", err)
	}

	var cfg *Configuration
	if configID != nil {
		cfg, err = e.configs.GetConfig(ctx, *configID)
		if err != nil {
			return nil, fmt.Errorf("resolve configuration: %w", err)
		}
	} else {
		cfg, err = e.CreateConfiguration(ctx, caller, NewConfigurationRequest{})
		if err != nil {
			return nil, err
		}
	}

	current, ok := cfg.Pool().Any()
	if !ok {
		return nil, fmt.Errorf("configuration %s has no questions: %w", cfg.ID, ErrNotFound)
	}

	now := time.Now()
	sess := &Session{
		ID:                uuid.New(),
		PlayerID:          player.ID,
		ConfigID:          cfg.ID,
		CurrentQuestionID: current,
		Answered:          NewQuestionSet(),
		Active:            true,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := e.sessions.InsertSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}

	e.logger.Info().
		Str("session_id", sess.ID.String()).
		Str("config_id", cfg.ID.String()).
		Str("player_id", player.ID.String()).
		Msg("session created")
	return sess, nil
}

// AnswerQuestion evaluates one submitted alternative against the session's
// current question. Precondition failures return before any mutation;
// incorrect and exhausted outcomes are reported on the result after their
// state change has been committed.
func (e *Engine) AnswerQuestion(ctx context.Context, caller Caller, sessionID, alternativeID uuid.UUID) (*AnswerResult, error) {
	if err := requirePlayer(caller); err != nil {
		return nil, err
	}

	unlock, err := e.locker.LockSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			e.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("session unlock failed")
		}
	}()

	sess, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if sess.PlayerID != caller.ID {
		return nil, fmt.Errorf("only the session's player can answer: %w", ErrUnauthorized)
	}
	if !sess.Active {
		return nil, ErrInactive
	}

	current, err := e.catalog.QuestionByID(ctx, sess.CurrentQuestionID)
	if err != nil {
		return nil, fmt.Errorf("resolve current question: %w", err)
	}
	alt, err := e.catalog.AlternativeByID(ctx, alternativeID)
	if err != nil {
		return nil, fmt.Errorf("resolve alternative: %w", err)
	}
	if alt.QuestionID != current.ID {
		return nil, fmt.Errorf("alternative does not belong to the current question: %w", ErrNotFound)
	}

	cfg, err := e.configs.GetConfig(ctx, sess.ConfigID)
	if err != nil {
		return nil, fmt.Errorf("resolve configuration: %w", err)
	}

	var result *AnswerResult
	var delta PlayerDelta
	if alt.Correct {
		result, delta, err = e.applyCorrect(ctx, sess, cfg, current)
		if err != nil {
			return nil, err
		}
	} else {
		result, delta = e.applyIncorrect(sess, cfg, current)
	}
	sess.UpdatedAt = time.Now()

	if err := e.sessions.CommitAnswer(ctx, sess, cfg, delta); err != nil {
		return nil, fmt.Errorf("commit answer: %w", err)
	}

	if alt.Correct && e.scores != nil {
		player := Player{ID: sess.PlayerID}
		if p, err := e.players.GetPlayer(ctx, sess.PlayerID); err == nil {
			player = *p
		}
		if err := e.scores.RecordScore(ctx, player, current.Level); err != nil {
			e.logger.Warn().Err(err).Str("player_id", sess.PlayerID.String()).Msg("failed to record leaderboard score")
		}
	}
	answerOutcomes.WithLabelValues(string(result.Outcome)).Inc()

	e.logger.Info().
		Str("session_id", sess.ID.String()).
		Str("question_id", current.ID.String()).
		Str("outcome", string(result.Outcome)).
		Int("session_score", sess.Score).
		Msg("answer evaluated")
	return result, nil
}

// applyCorrect scores the answer, draws the next question and decides
// between advancing and a win-out termination. Mutations stay in memory
// until CommitAnswer.
func (e *Engine) applyCorrect(ctx context.Context, sess *Session, cfg *Configuration, q *Question) (*AnswerResult, PlayerDelta, error) {
	sess.Score += q.Level
	sess.Answered.Add(q.ID)
	delta := PlayerDelta{Score: q.Level, Balance: q.Level}

	next, err := e.nextForSession(ctx, sess, cfg)
	if err != nil {
		return nil, PlayerDelta{}, fmt.Errorf("resolve next question: %w", err)
	}
	if next == nil {
		delta.MatchesPlayed = 1
		cfg.Freeze()
		sess.Active = false
		sess.CurrentQuestionID = uuid.Nil
		return &AnswerResult{Outcome: OutcomeExhausted, SessionScore: sess.Score}, delta, nil
	}

	cfg.RecordDrawn(next.ID)
	sess.CurrentQuestionID = next.ID
	return &AnswerResult{Outcome: OutcomeAdvanced, SessionScore: sess.Score, NextQuestion: next}, delta, nil
}

// applyIncorrect terminates the match as a loss and freezes the
// configuration's pool.
func (e *Engine) applyIncorrect(sess *Session, cfg *Configuration, q *Question) (*AnswerResult, PlayerDelta) {
	cfg.Freeze()
	sess.Active = false
	result := &AnswerResult{Outcome: OutcomeIncorrect, SessionScore: sess.Score}
	if correct := q.CorrectAlternative(); correct != nil {
		result.CorrectAnswer = correct.Body
	}
	return result, PlayerDelta{MatchesPlayed: 1}
}

// nextForSession resolves the question the session faces next. Generative
// configurations delegate to the selector excluding everything ever drawn
// under the configuration; preset ones serve any pooled question the session
// has not answered yet.
func (e *Engine) nextForSession(ctx context.Context, sess *Session, cfg *Configuration) (*Question, error) {
	if gen, ok := cfg.Rules.(*GenerativeRules); ok {
		return e.selector.Next(ctx, Filter{Level: gen.Level, Categories: gen.Categories, Excluded: gen.Drawn})
	}
	remaining := cfg.Pool().Diff(sess.Answered)
	id, ok := remaining.Any()
	if !ok {
		return nil, nil
	}
	return e.catalog.QuestionByID(ctx, id)
}

// CurrentQuestion returns the question the session is waiting on.
func (e *Engine) CurrentQuestion(ctx context.Context, sessionID uuid.UUID) (*Question, error) {
	sess, err := e.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("resolve session: %w", err)
	}
	if !sess.Active {
		return nil, ErrInactive
	}
	return e.catalog.QuestionByID(ctx, sess.CurrentQuestionID)
}

// GetConfiguration fetches one configuration.
func (e *Engine) GetConfiguration(ctx context.Context, id uuid.UUID) (*Configuration, error) {
	return e.configs.GetConfig(ctx, id)
}

// ListConfigurations returns every configuration.
func (e *Engine) ListConfigurations(ctx context.Context) ([]Configuration, error) {
	return e.configs.ListConfigs(ctx)
}

// ListPresetConfigurations returns reusable fixed-pool configurations.
func (e *Engine) ListPresetConfigurations(ctx context.Context) ([]Configuration, error) {
	return e.configs.ListPresetConfigs(ctx)
}

// DeleteConfiguration removes a configuration.
func (e *Engine) DeleteConfiguration(ctx context.Context, id uuid.UUID) error {
	return e.configs.DeleteConfig(ctx, id)
}

// GetSession fetches one session; ended sessions remain queryable.
func (e *Engine) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	return e.sessions.GetSession(ctx, id)
}

// ListSessions returns every session.
func (e *Engine) ListSessions(ctx context.Context) ([]Session, error) {
	return e.sessions.ListSessions(ctx)
}

// ActiveSessionsByPlayer lists a player's running matches.
func (e *Engine) ActiveSessionsByPlayer(ctx context.Context, playerID uuid.UUID) ([]Session, error) {
	if _, err := e.players.GetPlayer(ctx, playerID); err != nil {
		return nil, fmt.Errorf("resolve player: %w", err)
	}
	return e.sessions.ActiveSessionsByPlayer(ctx, playerID)
}

// DeleteSession removes a session record.
func (e *Engine) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return e.sessions.DeleteSession(ctx, id)
}

// RankSessions ranks sessions by score across all configurations.
func (e *Engine) RankSessions(ctx context.Context, limit int) ([]Session, error) {
	return e.sessions.RankSessions(ctx, limit)
}

// RankSessionsByConfiguration ranks the sessions played under one
// configuration.
func (e *Engine) RankSessionsByConfiguration(ctx context.Context, configID uuid.UUID, limit int) ([]Session, error) {
	if _, err := e.configs.GetConfig(ctx, configID); err != nil {
		return nil, fmt.Errorf("resolve configuration: %w", err)
	}
	return e.sessions.RankSessionsByConfig(ctx, configID, limit)
}
