package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/surveyflow/middleware"
	"github.com/vnkhanh/surveyflow/models"
)

type publicSurvey struct {
	ID               string                  `json:"id"`
	Title            string                  `json:"title"`
	Description      string                  `json:"description"`
	Status           models.SurveyStatus     `json:"status"`
	Questions        []models.SurveyQuestion `json:"questions"`
	AlreadyResponded bool                    `json:"already_responded"`
}

/* ========== Public form ========== */

// GET /api/public/surveys/:id
func (h *Handler) GetPublicSurvey(c *gin.Context) {
	ctx := c.Request.Context()
	survey, err := h.Surveys.Get(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	responded, err := h.Responses.HasResponded(ctx, survey.ID, middleware.ClientFingerprint(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, publicSurvey{
		ID:               survey.ID,
		Title:            survey.Title,
		Description:      survey.Description,
		Status:           survey.Status,
		Questions:        survey.Questions,
		AlreadyResponded: responded,
	})
}

type submitReq struct {
	Answers map[string]models.Answer `json:"answers"`
}

// POST /api/public/surveys/:id/responses
func (h *Handler) SubmitResponse(c *gin.Context) {
	var req submitReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	resp, err := h.Responses.Submit(c.Request.Context(), c.Param("id"), middleware.ClientFingerprint(c), req.Answers)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":           resp.ID,
		"submitted_at": resp.SubmittedAt,
		"message":      "Thank you for your response.",
	})
}

/* ========== Submissions (admin) ========== */

// GET /api/surveys/:id/responses
func (h *Handler) ListResponses(c *gin.Context) {
	responses, err := h.Responses.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": responses, "total": len(responses)})
}

// GET /api/surveys/:id/responses/:rid
func (h *Handler) GetResponse(c *gin.Context) {
	resp, err := h.Responses.Get(c.Request.Context(), c.Param("id"), c.Param("rid"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
