package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vnkhanh/surveyflow/analytics"
	"github.com/vnkhanh/surveyflow/models"
)

const (
	formatTXT  = "txt"
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func fileBase(survey models.Survey) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(survey.Title, "_"), "_")
	if name == "" {
		name = survey.ID
	}
	return name
}

// render builds the requested document for a survey.
func render(format string, survey models.Survey, responses []models.SurveyResponse) (data []byte, filename, contentType string, err error) {
	var buf bytes.Buffer
	switch format {
	case formatTXT:
		buf.WriteString(analytics.BuildReport(survey, responses))
		return buf.Bytes(), fileBase(survey) + "_report.txt", "text/plain; charset=utf-8", nil
	case formatCSV:
		if err := analytics.WriteCSV(&buf, survey, responses); err != nil {
			return nil, "", "", err
		}
		return buf.Bytes(), fileBase(survey) + "_responses.csv", "text/csv; charset=utf-8", nil
	case formatXLSX:
		if err := analytics.WriteXLSX(&buf, survey, responses); err != nil {
			return nil, "", "", err
		}
		return buf.Bytes(), fileBase(survey) + "_responses.xlsx", contentTypeXLSX, nil
	}
	return nil, "", "", fmt.Errorf("unsupported format %q", format)
}

func (h *Handler) loadSurveyData(c *gin.Context) (models.Survey, []models.SurveyResponse, bool) {
	ctx := c.Request.Context()
	survey, err := h.Surveys.Get(ctx, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return models.Survey{}, nil, false
	}
	responses, err := h.Responses.List(ctx, survey.ID)
	if err != nil {
		h.respondError(c, err)
		return models.Survey{}, nil, false
	}
	return survey, responses, true
}

func (h *Handler) sendFile(c *gin.Context, format string) {
	survey, responses, ok := h.loadSurveyData(c)
	if !ok {
		return
	}
	data, filename, contentType, err := render(format, survey, responses)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, contentType, data)
}

// GET /api/surveys/:id/report
func (h *Handler) DownloadReport(c *gin.Context) {
	h.sendFile(c, formatTXT)
}

// GET /api/surveys/:id/export?format=csv|xlsx
func (h *Handler) ExportResponses(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", formatCSV))
	if format != formatCSV && format != formatXLSX {
		abort(c, http.StatusBadRequest, "validation", "format must be csv or xlsx")
		return
	}
	h.sendFile(c, format)
}

// POST /api/surveys/:id/report/publish?format=txt|csv|xlsx
func (h *Handler) PublishReport(c *gin.Context) {
	if h.Uploader == nil {
		abort(c, http.StatusServiceUnavailable, "unavailable", "Report storage is not configured")
		return
	}
	format := strings.ToLower(c.DefaultQuery("format", formatTXT))
	switch format {
	case formatTXT, formatCSV, formatXLSX:
	default:
		abort(c, http.StatusBadRequest, "validation", "format must be txt, csv or xlsx")
		return
	}

	survey, responses, ok := h.loadSurveyData(c)
	if !ok {
		return
	}
	data, filename, contentType, err := render(format, survey, responses)
	if err != nil {
		h.respondError(c, err)
		return
	}

	name := time.Now().UTC().Format("20060102T150405Z") + "_" + filename
	url, err := h.Uploader.Upload(survey.ID, name, contentType, data)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"url":      url,
		"filename": name,
		"format":   format,
	})
}
