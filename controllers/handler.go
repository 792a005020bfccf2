package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vnkhanh/surveyflow/services"
	"github.com/vnkhanh/surveyflow/store"
)

// ReportUploader publishes a generated file and returns its public URL.
type ReportUploader interface {
	Upload(folder, name, contentType string, data []byte) (string, error)
}

// Handler carries the services shared by all HTTP handlers.
type Handler struct {
	Store     store.Store
	Surveys   *services.SurveyService
	Responses *services.ResponseService
	Links     *services.LinkService
	Auth      *services.AuthService
	// Uploader is nil when report publishing is not configured.
	Uploader ReportUploader
	Log      *zap.Logger
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": code, "message": message})
}

// respondError maps service errors to HTTP statuses. Anything unexpected is
// logged and answered with a generic 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	var (
		verr *services.ValidationError
		nf   *services.NotFoundError
		inc  *services.IncompleteSubmissionError
		dup  *services.DuplicateSubmissionError
		conf *services.ConflictError
	)

	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation", "message": verr.Error(), "field": verr.Field})
	case errors.As(err, &nf):
		abort(c, http.StatusNotFound, "not_found", nf.Error())
	case errors.As(err, &inc):
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "incomplete",
			"message": "Please answer all questions before submitting.",
			"missing": inc.Missing,
		})
	case errors.As(err, &dup):
		abort(c, http.StatusConflict, "duplicate", "You have already responded to this survey.")
	case errors.As(err, &conf):
		abort(c, http.StatusConflict, "conflict", conf.Message)
	case errors.Is(err, services.ErrUnauthorized):
		abort(c, http.StatusUnauthorized, "unauthorized", "Invalid credentials")
	default:
		_ = c.Error(err)
		h.Log.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		abort(c, http.StatusInternalServerError, "internal", "Internal server error")
	}
}

func badRequest(c *gin.Context, err error) {
	abort(c, http.StatusBadRequest, "validation", "Invalid payload: "+err.Error())
}
