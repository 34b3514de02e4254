package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taxlator-api/internal/middleware"
	"taxlator-api/internal/models"
	"taxlator-api/internal/services"
)

// HistoryHandler handles the calculation history of signed in users
type HistoryHandler struct {
	historyService services.HistoryService
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(historyService services.HistoryService) *HistoryHandler {
	return &HistoryHandler{
		historyService: historyService,
	}
}

// @Summary List history
// @Description Get one page of the user's calculations, newest first
// @Tags history
// @Produce json
// @Param limit query int false "Page size" default(10) maximum(100)
// @Param cursor query string false "Cursor returned as nextCursor by the previous page"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /history [get]
func (h *HistoryHandler) List(c *gin.Context) {
	query := &models.HistoryQuery{UserID: middleware.GetUserID(c)}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			respondError(c, models.NewInvalidInputError("limit", limitStr, "must be an integer"))
			return
		}
		query.Limit = limit
	}

	if cursorStr := c.Query("cursor"); cursorStr != "" {
		cursor, err := models.DecodeHistoryCursor(cursorStr)
		if err != nil {
			respondError(c, err)
			return
		}
		query.Cursor = cursor
	}

	page, err := h.historyService.List(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, success(page))
}

// @Summary Clear history
// @Description Delete every calculation of the user
// @Tags history
// @Produce json
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /history [delete]
func (h *HistoryHandler) Clear(c *gin.Context) {
	deleted, err := h.historyService.Clear(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, success(gin.H{"deleted": deleted}))
}

// @Summary Export history as CSV
// @Description Download the user's history as a CSV file
// @Tags history
// @Produce text/csv
// @Success 200 {file} file
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /history/export/csv [get]
func (h *HistoryHandler) ExportCSV(c *gin.Context) {
	export, err := h.historyService.ExportCSV(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sendExport(c, export)
}

// @Summary Export history as PDF
// @Description Download the user's history as a PDF table
// @Tags history
// @Produce application/pdf
// @Success 200 {file} file
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Security BearerAuth
// @Router /history/export/pdf [get]
func (h *HistoryHandler) ExportPDF(c *gin.Context) {
	export, err := h.historyService.ExportPDF(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	sendExport(c, export)
}

func sendExport(c *gin.Context, export *services.Export) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	c.Header("X-Export-Records", strconv.Itoa(export.Records))
	c.Data(http.StatusOK, export.ContentType, export.Data)
}
