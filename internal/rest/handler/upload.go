package handler

import (
	"net/http"

	"github.com/robalyx/imagegate/internal/fingerprint"
	"github.com/robalyx/imagegate/internal/moderation"
	"github.com/robalyx/imagegate/internal/rest/convert"
	"github.com/robalyx/imagegate/internal/rest/middleware/auth"
	restTypes "github.com/robalyx/imagegate/internal/rest/types"
	"github.com/robalyx/imagegate/internal/review"
	"github.com/uptrace/bunrouter"
	"go.uber.org/zap"
)

// UploadHandler handles image moderation endpoints.
type UploadHandler struct {
	engine       *moderation.Engine
	reviews      *review.Manager
	maxBodyBytes int64
	logger       *zap.Logger
}

// NewUploadHandler creates a new upload handler.
func NewUploadHandler(
	engine *moderation.Engine, reviews *review.Manager, maxBodyBytes int64, logger *zap.Logger,
) *UploadHandler {
	return &UploadHandler{
		engine:       engine,
		reviews:      reviews,
		maxBodyBytes: maxBodyBytes,
		logger:       logger.Named("upload_handler"),
	}
}

// Moderate classifies an image. Unverified callers are treated as anonymous
// so that no review case is opened for them.
func (h *UploadHandler) Moderate(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.ModerateRequest
	if err := decodeJSON(w, req, h.maxBodyBytes, &body); err != nil {
		return writeError(w, h.logger, err)
	}

	mimeType, data, err := fingerprint.ParseDataURL(body.Image)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	var userID string
	if id := auth.FromContext(req.Context()); id.Verified() {
		userID = id.UserID
	}

	result, err := h.engine.Moderate(req.Context(), moderation.Request{
		Data:      data,
		MIMEType:  mimeType,
		MakerTags: body.MakerTags,
		UserID:    userID,
	})
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusOK, convert.ModerateResponse(result))
}

// GetUpload returns an upload to its owner or a moderator.
func (h *UploadHandler) GetUpload(w http.ResponseWriter, req bunrouter.Request) error {
	upload, err := h.engine.GetUpload(req.Context(), req.Param("id"))
	if err != nil {
		return writeError(w, h.logger, err)
	}

	id := auth.FromContext(req.Context())
	if !id.Moderator && (upload.UserID == "" || upload.UserID != id.UserID) {
		return forbidden(w)
	}

	return writeJSON(w, http.StatusOK, convert.Upload(upload))
}

// RequestReview opens a review case for one of the caller's forbidden uploads.
func (h *UploadHandler) RequestReview(w http.ResponseWriter, req bunrouter.Request) error {
	id := auth.FromContext(req.Context())

	reviewCase, err := h.reviews.RequestReview(req.Context(), req.Param("id"), id.UserID)
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusCreated, convert.CaseSummary(reviewCase))
}

// Report files a community report against an upload.
func (h *UploadHandler) Report(w http.ResponseWriter, req bunrouter.Request) error {
	var body restTypes.ReportRequest
	if err := decodeJSON(w, req, h.maxBodyBytes, &body); err != nil {
		return writeError(w, h.logger, err)
	}

	reviewCase, err := h.reviews.FileReport(req.Context(), review.ReportRequest{
		UploadID:   req.Param("id"),
		ReporterID: auth.FromContext(req.Context()).UserID,
		Note:       body.Note,
	})
	if err != nil {
		return writeError(w, h.logger, err)
	}

	return writeJSON(w, http.StatusAccepted, map[string]string{"reviewCaseId": reviewCase.ID})
}
