package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/robalyx/imagegate/internal/database/types"
	"github.com/robalyx/imagegate/internal/rest/convert"
	"github.com/robalyx/imagegate/internal/rest/middleware/auth"
	restTypes "github.com/robalyx/imagegate/internal/rest/types"
	"github.com/robalyx/imagegate/internal/review"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

const (
	defaultCaseLimit = 50
	maxCaseLimit     = 200
)

// CaseHandler handles the moderator review queue.
type CaseHandler struct {
	reviews      *review.Manager
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewCaseHandler creates a new case handler.
func NewCaseHandler(reviews *review.Manager, maxBodyBytes int64, logger *zap.Logger) *CaseHandler {
	return &CaseHandler{
		reviews:      reviews,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.Named("case_handler"),
	}
}

// List returns open cases, oldest first.
func (h *CaseHandler) List(w http.ResponseWriter, req bunrouter.Request) error {
	limit := defaultCaseLimit
	if raw := req.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return writeError(w, h.logger, fmt.Errorf("%w: limit must be a positive integer", types.ErrValidation))
		}
		limit = min(parsed, maxCaseLimit)
	}

	cases, err := h.reviews.ListOpenCases(req.Context(), limit)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusOK, convert.Cases(cases))
}

// Get returns a single case.
func (h *CaseHandler) Get(w http.ResponseWriter, req bunrouter.Request) error {
	reviewCase, err := h.reviews.GetCase(req.Context(), req.Param("id"))
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusOK, convert.Case(reviewCase))
}

// Claim takes or renews the moderator lock on a case.
func (h *CaseHandler) Claim(w http.ResponseWriter, req bunrouter.Request) error {
	moderatorID := auth.FromContext(req.Context()).UserID

	result, err := h.reviews.Claim(req.Context(), req.Param("id"), moderatorID)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	status := http.StatusOK
	if !result.Claimed {
		status = http.StatusConflict
	}
	return writeJSON(w, status, result)
}

// Release drops the caller's lock on a case.
func (h *CaseHandler) Release(w http.ResponseWriter, req bunrouter.Request) error {
	moderatorID := auth.FromContext(req.Context()).UserID

	if err := h.reviews.Release(req.Context(), req.Param("id"), moderatorID); err != nil {
		return writeError(w, h.logger, err)
	}

	w.WriteHeader(http.StatusNoContent)
	return nil
}

// Decide records the moderator's decision.
func (h *CaseHandler) Decide(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.DecisionRequest
	if err := decodeJSON(w, req, h.maxBodyBytes, &body); err != nil {
		return writeError(w, h.logger, err)
	}

	reviewCase, err := h.reviews.RecordDecision(req.Context(), review.DecisionRequest{
		CaseID:       req.Param("id"),
		ModeratorID:  auth.FromContext(req.Context()).UserID,
		Decision:     body.Decision,
		Message:      body.Message,
		Reasons:      body.Reasons,
		InternalNote: body.InternalNote,
	})
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusOK, convert.Case(reviewCase))
}
