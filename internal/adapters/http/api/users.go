package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/okian/hiscores/internal/domain/types"
)

// UserDependencies defines the profile lookup.
type UserDependencies interface {
	User(ctx context.Context, username string) (types.UserProfile, error)
}

// UserHandler handles profile requests.
type UserHandler struct {
	deps UserDependencies
}

// NewUserHandler creates a new user handler.
func NewUserHandler(deps UserDependencies) *UserHandler {
	return &UserHandler{deps: deps}
}

// HandleGetUser handles GET /api/users/{username} requests.
func (h *UserHandler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_user"
	username := strings.TrimSpace(chi.URLParam(r, "username"))
	if username == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	profile, err := h.deps.User(r.Context(), username)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
