package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type createLinkReq struct {
	SurveyID  string    `json:"survey_id" binding:"required"`
	ValidFrom time.Time `json:"valid_from"`
	ValidTo   time.Time `json:"valid_to"`
}

const defaultLinkValidity = 7 * 24 * time.Hour

// POST /api/links
func (h *Handler) CreateLink(c *gin.Context) {
	var req createLinkReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ValidFrom.IsZero() {
		req.ValidFrom = time.Now().UTC()
	}
	if req.ValidTo.IsZero() {
		req.ValidTo = req.ValidFrom.Add(defaultLinkValidity)
	}

	link, err := h.Links.Generate(c.Request.Context(), req.SurveyID, req.ValidFrom, req.ValidTo)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, link)
}

// GET /api/links?survey_id=
func (h *Handler) ListLinks(c *gin.Context) {
	links, err := h.Links.List(c.Request.Context(), c.Query("survey_id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": links, "total": len(links)})
}

// PUT /api/links/:id/deactivate
func (h *Handler) DeactivateLink(c *gin.Context) {
	link, err := h.Links.Deactivate(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}
