package api

import (
	"context"
	"net/http"

	"github.com/okian/hiscores/internal/domain/achievement"
	"github.com/okian/hiscores/internal/domain/types"
)

// AchievementDependencies exposes the catalog and prevalence counts.
type AchievementDependencies interface {
	AchievementStats(ctx context.Context) (types.AchievementStats, error)
	Catalog() []achievement.Entry
}

// AchievementHandler serves achievement metadata.
type AchievementHandler struct {
	deps AchievementDependencies
}

// NewAchievementHandler creates a new achievement handler.
func NewAchievementHandler(deps AchievementDependencies) *AchievementHandler {
	return &AchievementHandler{deps: deps}
}

// HandleStats handles GET /api/achievements/stats.
func (h *AchievementHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.AchievementStats(r.Context())
	if err != nil {
		writeServiceError(w, "api.achievement_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleCatalog handles GET /api/achievements/catalog.
func (h *AchievementHandler) HandleCatalog(w http.ResponseWriter, _ *http.Request) {
	entries := h.deps.Catalog()
	writeJSON(w, http.StatusOK, catalogResponse{Achievements: entries, Total: len(entries)})
}
