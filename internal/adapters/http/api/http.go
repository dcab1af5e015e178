// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/hiscores/internal/app"
	"github.com/okian/hiscores/internal/domain/achievement"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	LeaderboardDependencies
	SkillDependencies
	AchievementDependencies
	UserDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	leaderboardHandler *LeaderboardHandler
	skillHandler       *SkillHandler
	achievementHandler *AchievementHandler
	userHandler        *UserHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit query parameter.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLimit),
		skillHandler:       NewSkillHandler(deps, maxLimit),
		achievementHandler: NewAchievementHandler(deps),
		userHandler:        NewUserHandler(deps),
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r chi.Router) {
	if r == nil {
		panic("router is nil")
	}
	r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	r.Get("/metrics", s.healthHandler.HandleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Get("/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
		r.Get("/skill-rankings", MetricsMiddleware(s.skillHandler.HandleListSkills, "skill_rankings"))
		r.Get("/skill-rankings/{skill}", MetricsMiddleware(s.skillHandler.HandleGetSkill, "skill_ranking"))
		r.Get("/achievements/stats", MetricsMiddleware(s.achievementHandler.HandleStats, "achievement_stats"))
		r.Get("/achievements/catalog", MetricsMiddleware(s.achievementHandler.HandleCatalog, "achievement_catalog"))
		r.Get("/users/{username}", MetricsMiddleware(s.userHandler.HandleGetUser, "user"))
		r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	})
}

// NewRouter returns a chi router with the standard middleware stack and
// every API route registered.
func NewRouter(ctx context.Context, s *Server) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})
	s.Register(ctx, r)
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service failures onto the HTTP taxonomy.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case isNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, service.ErrUserNotFound) ||
		errors.Is(err, service.ErrUnknownSkill)
}

var (
	_ LeaderboardDependencies = (*service.Service)(nil)
	_ Dependencies            = (*service.Service)(nil)
	_ StatsProvider           = (*service.Service)(nil)
)

// catalogResponse wraps the achievement catalog.
type catalogResponse struct {
	Achievements []achievement.Entry `json:"achievements"`
	Total        int                 `json:"total"`
}
