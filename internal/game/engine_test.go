package game

import (
	"context"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memCatalog struct {
	questions []*Question
}

func (c *memCatalog) QuestionByID(ctx context.Context, id uuid.UUID) (*Question, error) {
	for _, q := range c.questions {
		if q.ID == id {
			return q, nil
		}
	}
	return nil, ErrNotFound
}

func (c *memCatalog) AlternativeByID(ctx context.Context, id uuid.UUID) (*Alternative, error) {
	for _, q := range c.questions {
		for i := range q.Alternatives {
			if q.Alternatives[i].ID == id {
				return &q.Alternatives[i], nil
			}
		}
	}
	return nil, ErrNotFound
}

func (c *memCatalog) pick(excluded []uuid.UUID, match func(*Question) bool) (*Question, error) {
	skip := NewQuestionSet(excluded...)
	for _, q := range c.questions {
		if skip.Contains(q.ID) {
			continue
		}
		if match(q) {
			return q, nil
		}
	}
	return nil, ErrNotFound
}

func (c *memCatalog) OneByLevelAndCategories(ctx context.Context, level int, categories []uuid.UUID, excluded []uuid.UUID) (*Question, error) {
	return c.pick(excluded, func(q *Question) bool {
		return q.Level == level && containsID(categories, q.CategoryID)
	})
}

func (c *memCatalog) OneByLevel(ctx context.Context, level int, excluded []uuid.UUID) (*Question, error) {
	return c.pick(excluded, func(q *Question) bool { return q.Level == level })
}

func (c *memCatalog) OneByCategories(ctx context.Context, categories []uuid.UUID, excluded []uuid.UUID) (*Question, error) {
	return c.pick(excluded, func(q *Question) bool { return containsID(categories, q.CategoryID) })
}

func (c *memCatalog) OneNotIn(ctx context.Context, excluded []uuid.UUID) (*Question, error) {
	return c.pick(excluded, func(*Question) bool { return true })
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

type memConfigStore struct {
	configs map[uuid.UUID]*Configuration
}

func newMemConfigStore() *memConfigStore {
	return &memConfigStore{configs: make(map[uuid.UUID]*Configuration)}
}

func (s *memConfigStore) InsertConfig(ctx context.Context, cfg *Configuration) error {
	s.configs[cfg.ID] = cfg
	return nil
}

func (s *memConfigStore) GetConfig(ctx context.Context, id uuid.UUID) (*Configuration, error) {
	cfg, ok := s.configs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cfg, nil
}

func (s *memConfigStore) ListConfigs(ctx context.Context) ([]Configuration, error) {
	var out []Configuration
	for _, cfg := range s.configs {
		out = append(out, *cfg)
	}
	return out, nil
}

func (s *memConfigStore) ListPresetConfigs(ctx context.Context) ([]Configuration, error) {
	var out []Configuration
	for _, cfg := range s.configs {
		if cfg.Preset() {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (s *memConfigStore) DeleteConfig(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.configs[id]; !ok {
		return ErrNotFound
	}
	delete(s.configs, id)
	return nil
}

type memPlayerStore struct {
	players map[uuid.UUID]*Player
}

func newMemPlayerStore() *memPlayerStore {
	return &memPlayerStore{players: make(map[uuid.UUID]*Player)}
}

func (s *memPlayerStore) GetPlayer(ctx context.Context, id uuid.UUID) (*Player, error) {
	p, ok := s.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

type memSessionStore struct {
	sessions map[uuid.UUID]*Session
	players  *memPlayerStore
	commits  int
}

func newMemSessionStore(players *memPlayerStore) *memSessionStore {
	return &memSessionStore{sessions: make(map[uuid.UUID]*Session), players: players}
}

func (s *memSessionStore) InsertSession(ctx context.Context, sess *Session) error {
	s.sessions[sess.ID] = sess
	return nil
}

func (s *memSessionStore) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *memSessionStore) ListSessions(ctx context.Context) ([]Session, error) {
	var out []Session
	for _, sess := range s.sessions {
		out = append(out, *sess)
	}
	return out, nil
}

func (s *memSessionStore) ActiveSessionsByPlayer(ctx context.Context, playerID uuid.UUID) ([]Session, error) {
	var out []Session
	for _, sess := range s.sessions {
		if sess.PlayerID == playerID && sess.Active {
			out = append(out, *sess)
		}
	}
	return out, nil
}

func (s *memSessionStore) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *memSessionStore) RankSessions(ctx context.Context, limit int) ([]Session, error) {
	out, _ := s.ListSessions(ctx)
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memSessionStore) RankSessionsByConfig(ctx context.Context, configID uuid.UUID, limit int) ([]Session, error) {
	all, _ := s.RankSessions(ctx, limit)
	var out []Session
	for _, sess := range all {
		if sess.ConfigID == configID {
			out = append(out, sess)
		}
	}
	return out, nil
}

func (s *memSessionStore) CommitAnswer(ctx context.Context, sess *Session, cfg *Configuration, delta PlayerDelta) error {
	s.sessions[sess.ID] = sess
	s.commits++
	if p, ok := s.players.players[sess.PlayerID]; ok {
		p.Score += delta.Score
		p.Balance += delta.Balance
		p.MatchesPlayed += delta.MatchesPlayed
	}
	return nil
}

type stubLocker struct {
	err error
}

func (l *stubLocker) LockSession(ctx context.Context, id uuid.UUID) (func() error, error) {
	if l.err != nil {
		return nil, l.err
	}
	return func() error { return nil }, nil
}

func newQuestion(level int, category uuid.UUID) *Question {
	id := uuid.New()
	return &Question{
		ID:         id,
		CategoryID: category,
		Level:      level,
		Prompt:     "prompt",
		Alternatives: []Alternative{
			{ID: uuid.New(), QuestionID: id, Body: "right answer", Correct: true},
			{ID: uuid.New(), QuestionID: id, Body: "wrong answer"},
		},
	}
}

func correctAltID(q *Question) uuid.UUID   { return q.Alternatives[0].ID }
func incorrectAltID(q *Question) uuid.UUID { return q.Alternatives[1].ID }

type testEnv struct {
	engine   *Engine
	catalog  *memCatalog
	configs  *memConfigStore
	sessions *memSessionStore
	players  *memPlayerStore
	locker   *stubLocker
	player   Caller
}

func newTestEnv(questions ...*Question) *testEnv {
	catalog := &memCatalog{questions: questions}
	configs := newMemConfigStore()
	players := newMemPlayerStore()
	sessions := newMemSessionStore(players)
	locker := &stubLocker{}

	playerID := uuid.New()
	players.players[playerID] = &Player{ID: playerID, DisplayName: "Ace", Role: RolePlayer}

	engine := NewEngine(catalog, configs, sessions, players, locker, nil, zerolog.Nop())
	return &testEnv{
		engine:   engine,
		catalog:  catalog,
		configs:  configs,
		sessions: sessions,
		players:  players,
		locker:   locker,
		player:   Caller{ID: playerID, Role: RolePlayer},
	}
}

func (env *testEnv) startSession(t *testing.T, configID *uuid.UUID) *Session {
	t.Helper()
	sess, err := env.engine.CreateSession(context.Background(), env.player, configID)
	require.NoError(t, err)
	return sess
}

func TestCorrectAnswerOnLastQuestionEndsMatch(t *testing.T) {
	category := uuid.New()
	q := newQuestion(2, category)
	env := newTestEnv(q)

	cfg, err := env.engine.CreateConfiguration(context.Background(), env.player, NewConfigurationRequest{Level: 2})
	require.NoError(t, err)
	sess := env.startSession(t, &cfg.ID)
	require.Equal(t, q.ID, sess.CurrentQuestionID)

	result, err := env.engine.AnswerQuestion(context.Background(), env.player, sess.ID, correctAltID(q))
	require.NoError(t, err)

	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Equal(t, 2, result.SessionScore)
	assert.Nil(t, result.NextQuestion)
	assert.False(t, sess.Active)
	assert.Equal(t, uuid.Nil, sess.CurrentQuestionID)
	assert.True(t, cfg.Preset(), "pool must be frozen when the match ends")

	account := env.players.players[env.player.ID]
	assert.Equal(t, 2, account.Score)
	assert.Equal(t, 2, account.Balance)
	assert.Equal(t, 1, account.MatchesPlayed)
}

func TestIncorrectAnswerTerminatesWithoutScoring(t *testing.T) {
	q := newQuestion(3, uuid.New())
	env := newTestEnv(q)

	sess := env.startSession(t, nil)

	result, err := env.engine.AnswerQuestion(context.Background(), env.player, sess.ID, incorrectAltID(q))
	require.NoError(t, err)

	assert.Equal(t, OutcomeIncorrect, result.Outcome)
	assert.Equal(t, 0, result.SessionScore)
	assert.Equal(t, "right answer", result.CorrectAnswer)
	assert.False(t, sess.Active)

	account := env.players.players[env.player.ID]
	assert.Equal(t, 0, account.Score)
	assert.Equal(t, 0, account.Balance)
	assert.Equal(t, 1, account.MatchesPlayed)
	assert.Equal(t, 1, env.sessions.commits, "the terminal state must be committed")
}

func TestGenerativeSessionAdvancesWithoutRepeats(t *testing.T) {
	category := uuid.New()
	q1 := newQuestion(1, category)
	q2 := newQuestion(1, category)
	env := newTestEnv(q1, q2)

	cfg, err := env.engine.CreateConfiguration(context.Background(), env.player, NewConfigurationRequest{Level: 1})
	require.NoError(t, err)
	sess := env.startSession(t, &cfg.ID)

	first, err := env.catalog.QuestionByID(context.Background(), sess.CurrentQuestionID)
	require.NoError(t, err)

	result, err := env.engine.AnswerQuestion(context.Background(), env.player, sess.ID, correctAltID(first))
	require.NoError(t, err)
	require.Equal(t, OutcomeAdvanced, result.Outcome)
	require.NotNil(t, result.NextQuestion)
	assert.NotEqual(t, first.ID, result.NextQuestion.ID)
	assert.Equal(t, 2, cfg.Pool().Len(), "drawn pool accumulates each question once")

	result, err = env.engine.AnswerQuestion(context.Background(), env.player, sess.ID, correctAltID(result.NextQuestion))
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome)
	assert.Equal(t, 2, sess.Score)
	assert.Equal(t, 2, sess.Answered.Len())
}

func TestPresetSessionServesOnlyPooledQuestions(t *testing.T) {
	category := uuid.New()
	inPool := newQuestion(2, category)
	outside := newQuestion(2, category)
	env := newTestEnv(inPool, outside)

	cfg, err := env.engine.CreateConfiguration(context.Background(), env.player, NewConfigurationRequest{
		QuestionIDs: []uuid.UUID{inPool.ID},
	})
	require.NoError(t, err)
	require.True(t, cfg.Preset())

	sess := env.startSession(t, &cfg.ID)
	require.Equal(t, inPool.ID, sess.CurrentQuestionID)

	result, err := env.engine.AnswerQuestion(context.Background(), env.player, sess.ID, correctAltID(inPool))
	require.NoError(t, err)
	assert.Equal(t, OutcomeExhausted, result.Outcome, "preset pools never grow past their fixed set")
	assert.Equal(t, 1, cfg.Pool().Len())
}

func TestAnswerRejectsForeignSession(t *testing.T) {
	q := newQuestion(1, uuid.New())
	env := newTestEnv(q)
	sess := env.startSession(t, nil)

	otherID := uuid.New()
	env.players.players[otherID] = &Player{ID: otherID, Role: RolePlayer}
	other := Caller{ID: otherID, Role: RolePlayer}

	_, err := env.engine.AnswerQuestion(context.Background(), other, sess.ID, correctAltID(q))
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.True(t, sess.Active, "a rejected submission must not mutate the session")
	assert.Equal(t, 0, env.sessions.commits)
}

func TestAnswerRejectsAdminCaller(t *testing.T) {
	q := newQuestion(1, uuid.New())
	env := newTestEnv(q)
	sess := env.startSession(t, nil)

	admin := Caller{ID: uuid.New(), Role: RoleAdmin}
	_, err := env.engine.AnswerQuestion(context.Background(), admin, sess.ID, correctAltID(q))
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAnswerRejectsAnonymousCaller(t *testing.T) {
	q := newQuestion(1, uuid.New())
	env := newTestEnv(q)
	sess := env.startSession(t, nil)

	_, err := env.engine.AnswerQuestion(context.Background(), Caller{}, sess.ID, correctAltID(q))
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAnswerRejectsInactiveSession(t *testing.T) {
	q := newQuestion(1, uuid.New())
	env := newTestEnv(q)
	sess := env.startSession(t, nil)
	sess.Active = false

	_, err := env.engine.AnswerQuestion(context.Background(), env.player, sess.ID, correctAltID(q))
	assert.ErrorIs(t, err, ErrInactive)
}

func TestAnswerRejectsAlternativeOfAnotherQuestion(t *testing.T) {
	category := uuid.New()
	current := newQuestion(2, category)
	other := newQuestion(5, category)
	env := newTestEnv(current, other)

	cfg, err := env.engine.CreateConfiguration(context.Background(), env.player, NewConfigurationRequest{
		QuestionIDs: []uuid.UUID{current.ID},
	})
	require.NoError(t, err)
	sess := env.startSession(t, &cfg.ID)

	_, err = env.engine.AnswerQuestion(context.Background(), env.player, sess.ID, correctAltID(other))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, sess.Active)
	assert.Equal(t, 0, sess.Score)
	assert.Equal(t, 0, env.sessions.commits)
}

func TestAnswerWhileSessionLocked(t *testing.T) {
	q := newQuestion(1, uuid.New())
	env := newTestEnv(q)
	sess := env.startSession(t, nil)

	env.locker.err = ErrSessionLocked
	_, err := env.engine.AnswerQuestion(context.Background(), env.player, sess.ID, correctAltID(q))
	assert.ErrorIs(t, err, ErrSessionLocked)
}

func TestCreateConfigurationRejectsUnknownQuestion(t *testing.T) {
	env := newTestEnv(newQuestion(1, uuid.New()))

	_, err := env.engine.CreateConfiguration(context.Background(), env.player, NewConfigurationRequest{
		QuestionIDs: []uuid.UUID{uuid.New()},
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateConfigurationRequiresEligibleQuestion(t *testing.T) {
	env := newTestEnv(newQuestion(1, uuid.New()))

	_, err := env.engine.CreateConfiguration(context.Background(), env.player, NewConfigurationRequest{Level: 9})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateSessionWithoutConfigUsesImplicitOne(t *testing.T) {
	q := newQuestion(4, uuid.New())
	env := newTestEnv(q)

	sess := env.startSession(t, nil)

	cfg, err := env.configs.GetConfig(context.Background(), sess.ConfigID)
	require.NoError(t, err)
	assert.False(t, cfg.Preset())
	assert.Equal(t, q.ID, sess.CurrentQuestionID)
}

func TestCurrentQuestionOnInactiveSession(t *testing.T) {
	q := newQuestion(1, uuid.New())
	env := newTestEnv(q)
	sess := env.startSession(t, nil)
	sess.Active = false

	_, err := env.engine.CurrentQuestion(context.Background(), sess.ID)
	assert.ErrorIs(t, err, ErrInactive)
}

func TestFreezeIsIdempotent(t *testing.T) {
	drawn := NewQuestionSet(uuid.New(), uuid.New())
	cfg := &Configuration{ID: uuid.New(), Rules: &GenerativeRules{Level: 1, Drawn: drawn}}

	cfg.Freeze()
	require.True(t, cfg.Preset())
	frozen := cfg.Pool()

	cfg.Freeze()
	assert.True(t, cfg.Preset())
	assert.Equal(t, frozen, cfg.Pool())
	assert.Equal(t, 2, cfg.Pool().Len())
}

func TestRecordDrawnNeverGrowsPresetPool(t *testing.T) {
	fixed := NewQuestionSet(uuid.New())
	cfg := &Configuration{ID: uuid.New(), Rules: &PresetRules{Questions: fixed}}

	cfg.RecordDrawn(uuid.New())
	assert.Equal(t, 1, cfg.Pool().Len())
}

func TestRankSessionsByConfigurationChecksExistence(t *testing.T) {
	env := newTestEnv(newQuestion(1, uuid.New()))

	_, err := env.engine.RankSessionsByConfiguration(context.Background(), uuid.New(), 10)
	assert.ErrorIs(t, err, ErrNotFound)
}
