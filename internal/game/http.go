package game

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	httperrors "github.com/bennie10colado/JogoPOO-FORK/pkg/http/errors"
)

// CallerFunc resolves the request's identity. A zero Caller means anonymous.
type CallerFunc func(*http.Request) Caller

// HTTPHandlers provides REST endpoints for match play and catalog curation.
type HTTPHandlers struct {
	engine *Engine
	admin  *Admin
	caller CallerFunc
	logger zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers over the engine and admin services.
func NewHTTPHandlers(engine *Engine, admin *Admin, caller CallerFunc, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		engine: engine,
		admin:  admin,
		caller: caller,
		logger: logger.With().Str("component", "game_http").Logger(),
	}
}

type configResponse struct {
	ID          uuid.UUID   `json:"id"`
	PlayerID    uuid.UUID   `json:"player_id"`
	Preset      bool        `json:"preset"`
	Level       int         `json:"level,omitempty"`
	CategoryIDs []uuid.UUID `json:"category_ids,omitempty"`
	QuestionIDs []uuid.UUID `json:"question_ids"`
	CreatedAt   time.Time   `json:"created_at"`
}

func toConfigResponse(cfg *Configuration) configResponse {
	resp := configResponse{
		ID:          cfg.ID,
		PlayerID:    cfg.PlayerID,
		Preset:      cfg.Preset(),
		QuestionIDs: cfg.Pool().IDs(),
		CreatedAt:   cfg.CreatedAt,
	}
	if gen, ok := cfg.Rules.(*GenerativeRules); ok {
		resp.Level = gen.Level
		resp.CategoryIDs = gen.Categories
	}
	return resp
}

type sessionResponse struct {
	ID                uuid.UUID   `json:"id"`
	PlayerID          uuid.UUID   `json:"player_id"`
	ConfigID          uuid.UUID   `json:"config_id"`
	CurrentQuestionID *uuid.UUID  `json:"current_question_id,omitempty"`
	Score             int         `json:"score"`
	AnsweredIDs       []uuid.UUID `json:"answered_ids"`
	Active            bool        `json:"active"`
	CreatedAt         time.Time   `json:"created_at"`
	UpdatedAt         time.Time   `json:"updated_at"`
}

func toSessionResponse(sess *Session) sessionResponse {
	resp := sessionResponse{
		ID:          sess.ID,
		PlayerID:    sess.PlayerID,
		ConfigID:    sess.ConfigID,
		Score:       sess.Score,
		AnsweredIDs: sess.Answered.IDs(),
		Active:      sess.Active,
		CreatedAt:   sess.CreatedAt,
		UpdatedAt:   sess.UpdatedAt,
	}
	if sess.CurrentQuestionID != uuid.Nil {
		id := sess.CurrentQuestionID
		resp.CurrentQuestionID = &id
	}
	return resp
}

// Configs handles POST (create) and GET (list) on /v1/configs.
func (h *HTTPHandlers) Configs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			QuestionIDs []uuid.UUID `json:"question_ids"`
			Level       int         `json:"level"`
			CategoryIDs []uuid.UUID `json:"category_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		cfg, err := h.engine.CreateConfiguration(r.Context(), h.caller(r), NewConfigurationRequest{
			QuestionIDs: req.QuestionIDs,
			Level:       req.Level,
			CategoryIDs: req.CategoryIDs,
		})
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusCreated, toConfigResponse(cfg))
	case http.MethodGet:
		cfgs, err := h.engine.ListConfigurations(r.Context())
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, configResponses(cfgs))
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

// ConfigByID handles GET and DELETE on /v1/configs/{id}.
func (h *HTTPHandlers) ConfigByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		cfg, err := h.engine.GetConfiguration(r.Context(), id)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, toConfigResponse(cfg))
	case http.MethodDelete:
		if err := h.engine.DeleteConfiguration(r.Context(), id); err != nil {
			h.respondGameError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

// PresetConfigs handles GET /v1/configs/presets.
func (h *HTTPHandlers) PresetConfigs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	cfgs, err := h.engine.ListPresetConfigurations(r.Context())
	if err != nil {
		h.respondGameError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, configResponses(cfgs))
}

// ConfigRank handles GET /v1/configs/{id}/rank.
func (h *HTTPHandlers) ConfigRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	sessions, err := h.engine.RankSessionsByConfiguration(r.Context(), id, h.limit(r))
	if err != nil {
		h.respondGameError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, sessionResponses(sessions))
}

// Sessions handles POST (create) and GET (list) on /v1/sessions.
func (h *HTTPHandlers) Sessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req struct {
			ConfigID *uuid.UUID `json:"config_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		sess, err := h.engine.CreateSession(r.Context(), h.caller(r), req.ConfigID)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusCreated, toSessionResponse(sess))
	case http.MethodGet:
		sessions, err := h.engine.ListSessions(r.Context())
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, sessionResponses(sessions))
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

// SessionByID handles GET and DELETE on /v1/sessions/{id}.
func (h *HTTPHandlers) SessionByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		sess, err := h.engine.GetSession(r.Context(), id)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, toSessionResponse(sess))
	case http.MethodDelete:
		if err := h.engine.DeleteSession(r.Context(), id); err != nil {
			h.respondGameError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

// ActiveSessions handles GET /v1/sessions/active for the caller.
func (h *HTTPHandlers) ActiveSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	caller := h.caller(r)
	if caller.ID == uuid.Nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}
	sessions, err := h.engine.ActiveSessionsByPlayer(r.Context(), caller.ID)
	if err != nil {
		h.respondGameError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, sessionResponses(sessions))
}

// SessionsRank handles GET /v1/sessions/rank.
func (h *HTTPHandlers) SessionsRank(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	sessions, err := h.engine.RankSessions(r.Context(), h.limit(r))
	if err != nil {
		h.respondGameError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, sessionResponses(sessions))
}

// SessionQuestion handles GET /v1/sessions/{id}/question.
func (h *HTTPHandlers) SessionQuestion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	q, err := h.engine.CurrentQuestion(r.Context(), id)
	if err != nil {
		h.respondGameError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, q)
}

// SubmitAnswer handles POST /v1/sessions/{id}/answer.
func (h *HTTPHandlers) SubmitAnswer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
		return
	}
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req struct {
		AlternativeID uuid.UUID `json:"alternative_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return
	}
	result, err := h.engine.AnswerQuestion(r.Context(), h.caller(r), id, req.AlternativeID)
	if err != nil {
		h.respondGameError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, result)
}

// Questions handles POST (create) and GET (list) on /v1/questions.
func (h *HTTPHandlers) Questions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		q, ok := h.decodeQuestion(w, r, uuid.Nil)
		if !ok {
			return
		}
		created, err := h.admin.InsertQuestion(r.Context(), h.caller(r), q)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		questions, err := h.admin.ListQuestions(r.Context())
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, questions)
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

// QuestionByID handles GET, PUT and DELETE on /v1/questions/{id}.
func (h *HTTPHandlers) QuestionByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		q, err := h.admin.GetQuestion(r.Context(), id)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, q)
	case http.MethodPut:
		q, ok := h.decodeQuestion(w, r, id)
		if !ok {
			return
		}
		updated, err := h.admin.UpdateQuestion(r.Context(), h.caller(r), q)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.admin.DeleteQuestion(r.Context(), h.caller(r), id); err != nil {
			h.respondGameError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

// Categories handles POST (create) and GET (list) on /v1/categories.
func (h *HTTPHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req Category
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		created, err := h.admin.InsertCategory(r.Context(), h.caller(r), &req)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusCreated, created)
	case http.MethodGet:
		categories, err := h.admin.ListCategories(r.Context())
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, categories)
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

// CategoryByID handles GET, PUT and DELETE on /v1/categories/{id}.
func (h *HTTPHandlers) CategoryByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		c, err := h.admin.GetCategory(r.Context(), id)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, c)
	case http.MethodPut:
		var req Category
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
			return
		}
		req.ID = id
		updated, err := h.admin.UpdateCategory(r.Context(), h.caller(r), &req)
		if err != nil {
			h.respondGameError(w, err)
			return
		}
		h.respondJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		if err := h.admin.DeleteCategory(r.Context(), h.caller(r), id); err != nil {
			h.respondGameError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "Method not allowed")
	}
}

func (h *HTTPHandlers) decodeQuestion(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*Question, bool) {
	var req struct {
		CategoryID   uuid.UUID `json:"category_id"`
		Level        int       `json:"level"`
		Prompt       string    `json:"prompt"`
		Alternatives []struct {
			Body    string `json:"body"`
			Correct bool   `json:"correct"`
		} `json:"alternatives"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid JSON payload")
		return nil, false
	}
	q := &Question{
		ID:         id,
		CategoryID: req.CategoryID,
		Level:      req.Level,
		Prompt:     req.Prompt,
	}
	for _, alt := range req.Alternatives {
		q.Alternatives = append(q.Alternatives, Alternative{Body: alt.Body, Correct: alt.Correct})
	}
	return q, true
}

func (h *HTTPHandlers) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidRequest, "Invalid id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *HTTPHandlers) limit(r *http.Request) int {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}
	return limit
}

func (h *HTTPHandlers) respondGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "Access denied")
	case errors.Is(err, ErrInvalidRole):
		httperrors.RespondForbidden(w, httperrors.ErrCodeInvalidRole, "Wrong role for this operation")
	case errors.Is(err, ErrInactive):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeMatchInactive, "The match is inactive")
	case errors.Is(err, ErrSessionLocked):
		httperrors.RespondError(w, http.StatusConflict, httperrors.ErrCodeSessionBusy, "The session is processing another answer")
	case errors.Is(err, ErrNotFound):
		httperrors.RespondNotFound(w, httperrors.ErrCodeNotFound, err.Error())
	default:
		h.logger.Error().Err(err).Msg("unhandled engine error")
		httperrors.RespondInternalError(w, "Internal error")
	}
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Warn().Err(err).Msg("failed to encode response")
	}
}

func configResponses(cfgs []Configuration) []configResponse {
	out := make([]configResponse, 0, len(cfgs))
	for i := range cfgs {
		out = append(out, toConfigResponse(&cfgs[i]))
	}
	return out
}

func sessionResponses(sessions []Session) []sessionResponse {
	out := make([]sessionResponse, 0, len(sessions))
	for i := range sessions {
		out = append(out, toSessionResponse(&sessions[i]))
	}
	return out
}
