package handler

import (
	"net/http"
	"time"

	"github.com/robalyx/imagegate/internal/rest/convert"
	"github.com/robalyx/imagegate/internal/rest/middleware/auth"
	"github.com/robalyx/imagegate/internal/review"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// UserHandler handles user moderation state endpoints.
type UserHandler struct {
	reviews *review.Manager
	logger  *zap.Logger
}

// NewUserHandler creates a new user handler.
func NewUserHandler(reviews *review.Manager, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		reviews: reviews,
		logger:  logger.Named("user_handler"),
	}
}

// GetModerationState returns a user's review standing to the user or a moderator.
func (h *UserHandler) GetModerationState(w http.ResponseWriter, req bunrouter.Request) error {
	userID := req.Param("id")

	id := auth.FromContext(req.Context())
	if !id.Moderator && id.UserID != userID {
		return forbidden(w)
	}

	state, err := h.reviews.GetUserState(req.Context(), userID)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusOK, convert.ModerationState(state, state.InCooldown(time.Now())))
}
