package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/surveyflow/middleware"
	"github.com/vnkhanh/surveyflow/services"
)

// POST /api/auth/login
func (h *Handler) Login(c *gin.Context) {
	var cred services.Credentials
	if err := c.ShouldBindJSON(&cred); err != nil {
		badRequest(c, err)
		return
	}

	token, session, err := h.Auth.Login(c.Request.Context(), cred)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_at": session.ExpiresAt,
		"user":       session.User,
	})
}

// POST /api/auth/logout
func (h *Handler) Logout(c *gin.Context) {
	if err := h.Auth.Logout(c.Request.Context()); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GET /api/me
func (h *Handler) Me(c *gin.Context) {
	session, ok := middleware.CurrentSession(c)
	if !ok {
		abort(c, http.StatusUnauthorized, "unauthorized", "Unauthorized")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user":       session.User,
		"expires_at": session.ExpiresAt,
	})
}
