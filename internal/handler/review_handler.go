package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prepaconcours/prepa-backend/internal/middleware"
	"github.com/prepaconcours/prepa-backend/internal/model"
	"github.com/prepaconcours/prepa-backend/internal/response"
	"github.com/prepaconcours/prepa-backend/internal/service"
	"github.com/prepaconcours/prepa-backend/internal/validator"
)

// ReviewHandler serves a candidate's stored attempts, progress and drafts.
type ReviewHandler struct {
	attempts *service.AttemptService
	drafts   *service.DraftService
}

// NewReviewHandler creates a new ReviewHandler. drafts may be nil when Redis
// is not configured.
func NewReviewHandler(attempts *service.AttemptService, drafts *service.DraftService) *ReviewHandler {
	return &ReviewHandler{attempts: attempts, drafts: drafts}
}

// ListAttempts godoc
// GET /api/v1/me/attempts
// Returns the candidate's attempt history, most recent first.
func (h *ReviewHandler) ListAttempts(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	attempts, err := h.attempts.List(c.Request.Context(), claims.UserID())
	if err != nil {
		response.FailErr(c, err)
		return
	}
	if attempts == nil {
		attempts = []model.AttemptSummary{}
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// GetAttempt godoc
// GET /api/v1/me/attempts/:exam_type/:exam_number
// Rebuilds the stored attempt for review.
func (h *ReviewHandler) GetAttempt(c *gin.Context) {
	claims, params, ok := bindExamKey(c)
	if !ok {
		return
	}

	attempt, err := h.attempts.Load(c.Request.Context(), claims.UserID(), params.ExamType, params.ExamNumber)
	if err != nil {
		response.FailErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, attempt)
}

// DeleteAttempt godoc
// DELETE /api/v1/me/attempts/:exam_type/:exam_number
// Removes the stored attempt so the exam can be retaken from scratch.
func (h *ReviewHandler) DeleteAttempt(c *gin.Context) {
	claims, params, ok := bindExamKey(c)
	if !ok {
		return
	}

	if err := h.attempts.Delete(c.Request.Context(), claims.UserID(), params.ExamType, params.ExamNumber); err != nil {
		response.FailErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// GetProgress godoc
// GET /api/v1/me/progress
func (h *ReviewHandler) GetProgress(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	progress, err := h.attempts.Progress(c.Request.Context(), claims.UserID())
	if err != nil {
		response.FailErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, progress)
}

// GetDraft godoc
// GET /api/v1/me/exams/:exam_type/:exam_number/draft
// Returns the last autosaved draft of an unfinished attempt. It is shown as a
// notice only; a new session always starts fresh.
func (h *ReviewHandler) GetDraft(c *gin.Context) {
	claims, params, ok := bindExamKey(c)
	if !ok {
		return
	}
	if h.drafts == nil {
		response.Fail(c, http.StatusNotFound, response.ErrDraftNotFound)
		return
	}

	draft, err := h.drafts.GetDraft(c.Request.Context(), claims.UserID(), params.ExamType, params.ExamNumber)
	if err != nil {
		response.FailErr(c, err)
		return
	}

	response.Success(c, http.StatusOK, draft)
}

func bindExamKey(c *gin.Context) (*service.Claims, model.ExamKeyParams, bool) {
	var params model.ExamKeyParams

	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, params, false
	}

	if fields := validator.BindURI(c, &params); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return nil, params, false
	}
	return claims, params, true
}
