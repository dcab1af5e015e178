package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/hiscores/internal/domain/types"
)

// SkillDependencies defines the per-skill listing operations.
type SkillDependencies interface {
	SkillRankings(ctx context.Context, limit int) (types.SkillRankings, error)
	SkillRanking(ctx context.Context, skill string, limit int) (types.SkillRanking, error)
}

// SkillHandler serves skill listings.
type SkillHandler struct {
	deps     SkillDependencies
	maxLimit int
}

// NewSkillHandler creates a new skill handler.
func NewSkillHandler(deps SkillDependencies, maxLimit int) *SkillHandler {
	return &SkillHandler{deps: deps, maxLimit: maxLimit}
}

// HandleListSkills handles GET /api/skill-rankings?limit=N.
func (h *SkillHandler) HandleListSkills(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_skill_rankings"
	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.SkillRankings(r.Context(), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGetSkill handles GET /api/skill-rankings/{skill}?limit=N.
func (h *SkillHandler) HandleGetSkill(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_skill_ranking"
	n, err := parseLimit(r, h.maxLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.SkillRanking(r.Context(), chi.URLParam(r, "skill"), n)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
