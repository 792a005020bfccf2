package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/surveyflow/models"
)

/* ========== Survey templates: create / list / detail ========== */

func (h *Handler) CreateSurvey(c *gin.Context) {
	var draft models.SurveyDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}

	survey, err := h.Surveys.Create(c.Request.Context(), draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, survey)
}

func (h *Handler) ListSurveys(c *gin.Context) {
	surveys, err := h.Surveys.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": surveys, "total": len(surveys)})
}

func (h *Handler) GetSurvey(c *gin.Context) {
	survey, err := h.Surveys.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, survey)
}

/* ========== Survey templates: edit / delete ========== */

func (h *Handler) UpdateSurvey(c *gin.Context) {
	var draft models.SurveyDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		badRequest(c, err)
		return
	}

	survey, err := h.Surveys.Update(c.Request.Context(), c.Param("id"), draft)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, survey)
}

func (h *Handler) DeleteSurvey(c *gin.Context) {
	if err := h.Surveys.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Survey deleted"})
}

/* ========== Survey status: publish / close ========== */

func (h *Handler) setStatus(c *gin.Context, status models.SurveyStatus) {
	survey, err := h.Surveys.SetStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, survey)
}

func (h *Handler) PublishSurvey(c *gin.Context) {
	h.setStatus(c, models.StatusActive)
}

func (h *Handler) CloseSurvey(c *gin.Context) {
	h.setStatus(c, models.StatusClosed)
}
