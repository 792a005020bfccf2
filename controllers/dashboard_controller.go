package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/surveyflow/analytics"
)

// GET /api/surveys/:id/analytics
func (h *Handler) GetAnalytics(c *gin.Context) {
	ctx := c.Request.Context()
	survey, err := h.Surveys.Get(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	responses, err := h.Responses.List(ctx, survey.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"survey_id": survey.ID,
		"title":     survey.Title,
		"summary":   analytics.Summarize(survey, responses),
		"questions": analytics.TallyAll(survey, responses),
		"frequency": analytics.FrequencyByDay(responses),
	})
}
