package game

import (
	"time"

	"github.com/google/uuid"
)

// Roles recognized by the engine.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// Caller is the resolved identity of the requesting user.
type Caller struct {
	ID   uuid.UUID
	Role string
}

// Category groups questions by subject.
type Category struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// Alternative is one candidate answer of a question. The correctness flag
// never leaves the server.
type Alternative struct {
	ID         uuid.UUID `json:"id"`
	QuestionID uuid.UUID `json:"question_id"`
	Body       string    `json:"body"`
	Correct    bool      `json:"-"`
}

// Question is immutable for the purposes of match progression; edits happen
// through the admin surface, never mid-match.
type Question struct {
	ID           uuid.UUID     `json:"id"`
	CategoryID   uuid.UUID     `json:"category_id"`
	Level        int           `json:"level"`
	Prompt       string        `json:"prompt"`
	Alternatives []Alternative `json:"alternatives"`
}

// CorrectAlternative returns the single correct alternative, or nil.
func (q *Question) CorrectAlternative() *Alternative {
	for i := range q.Alternatives {
		if q.Alternatives[i].Correct {
			return &q.Alternatives[i]
		}
	}
	return nil
}

// QuestionSet is an identity set with idempotent membership.
type QuestionSet map[uuid.UUID]struct{}

// NewQuestionSet builds a set from the given ids.
func NewQuestionSet(ids ...uuid.UUID) QuestionSet {
	s := make(QuestionSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s QuestionSet) Add(id uuid.UUID)      { s[id] = struct{}{} }
func (s QuestionSet) Contains(id uuid.UUID) bool {
	_, ok := s[id]
	return ok
}
func (s QuestionSet) Len() int { return len(s) }

// IDs returns the members in arbitrary order.
func (s QuestionSet) IDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	return ids
}

// Clone returns an independent copy.
func (s QuestionSet) Clone() QuestionSet {
	c := make(QuestionSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// Diff returns the members of s not present in other.
func (s QuestionSet) Diff(other QuestionSet) QuestionSet {
	d := make(QuestionSet)
	for id := range s {
		if !other.Contains(id) {
			d[id] = struct{}{}
		}
	}
	return d
}

// Any returns an arbitrary member. The choice is unspecified.
func (s QuestionSet) Any() (uuid.UUID, bool) {
	for id := range s {
		return id, true
	}
	return uuid.Nil, false
}

// Rules is the tagged variant behind a configuration: either a fixed preset
// pool or a generative filter with its progressively drawn pool.
type Rules interface {
	Pool() QuestionSet
	isRules()
}

// PresetRules fixes the question pool; it never grows.
type PresetRules struct {
	Questions QuestionSet
}

func (r *PresetRules) Pool() QuestionSet { return r.Questions }
func (r *PresetRules) isRules()          {}

// GenerativeRules draws questions on demand by level and/or categories.
// Level 0 means any level; an empty category list means any category.
// Drawn accumulates every question handed out under this configuration.
type GenerativeRules struct {
	Level      int
	Categories []uuid.UUID
	Drawn      QuestionSet
}

func (r *GenerativeRules) Pool() QuestionSet { return r.Drawn }
func (r *GenerativeRules) isRules()          {}

// Configuration is the rule-set governing which questions a match may draw.
type Configuration struct {
	ID        uuid.UUID
	PlayerID  uuid.UUID
	Rules     Rules
	CreatedAt time.Time
}

// Preset reports whether the pool is fixed.
func (c *Configuration) Preset() bool {
	_, ok := c.Rules.(*PresetRules)
	return ok
}

// Pool returns the configuration's current question pool.
func (c *Configuration) Pool() QuestionSet { return c.Rules.Pool() }

// RecordDrawn accumulates a freshly drawn question. Preset pools never grow.
func (c *Configuration) RecordDrawn(id uuid.UUID) {
	if gen, ok := c.Rules.(*GenerativeRules); ok {
		gen.Drawn.Add(id)
	}
}

// Freeze locks a generative configuration into its drawn pool. The
// transition is one-way and idempotent; preset configurations are untouched.
func (c *Configuration) Freeze() {
	if gen, ok := c.Rules.(*GenerativeRules); ok {
		c.Rules = &PresetRules{Questions: gen.Drawn}
	}
}

// Session is one player's run through a configuration.
type Session struct {
	ID                uuid.UUID
	PlayerID          uuid.UUID
	ConfigID          uuid.UUID
	CurrentQuestionID uuid.UUID // uuid.Nil once the pool is exhausted
	Score             int
	Answered          QuestionSet
	Active            bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Player holds the account mutated by answer evaluation.
type Player struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	DisplayName   string    `json:"display_name"`
	Role          string    `json:"role"`
	Score         int       `json:"score"`
	Balance       int       `json:"balance"`
	MatchesPlayed int       `json:"matches_played"`
}

// PlayerDelta is the per-answer account mutation, applied atomically.
type PlayerDelta struct {
	Score         int
	Balance       int
	MatchesPlayed int
}

// Outcome classifies how an answer evaluation ended.
type Outcome string

const (
	// OutcomeAdvanced: correct answer, next question set.
	OutcomeAdvanced Outcome = "advanced"
	// OutcomeIncorrect: wrong answer, match over.
	OutcomeIncorrect Outcome = "incorrect"
	// OutcomeExhausted: correct answer but no further question exists.
	OutcomeExhausted Outcome = "exhausted"
)

// AnswerResult reports a completed evaluation. Incorrect and exhausted
// outcomes are results, not errors: their state mutation has already been
// committed by the time the caller sees them.
type AnswerResult struct {
	Outcome       Outcome   `json:"outcome"`
	SessionScore  int       `json:"session_score"`
	NextQuestion  *Question `json:"next_question,omitempty"`
	CorrectAnswer string    `json:"correct_answer,omitempty"`
}
