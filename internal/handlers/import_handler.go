package handlers

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"catalog-import-service/internal/importer"
	"catalog-import-service/internal/middleware"
	"catalog-import-service/internal/models"
	"catalog-import-service/internal/repository"
)

// ImportHandler exposes the import pipeline over HTTP: preview, submit,
// status polling, audit listing, and template downloads.
type ImportHandler struct {
	orchestrator *importer.Orchestrator
	imports      *repository.ImportRepository
	logger       *logrus.Entry
}

func NewImportHandler(orchestrator *importer.Orchestrator, imports *repository.ImportRepository, logger *logrus.Logger) *ImportHandler {
	return &ImportHandler{
		orchestrator: orchestrator,
		imports:      imports,
		logger:       logger.WithField("component", "import-handler"),
	}
}

// PreviewImport validates the first rows of a file without persisting
// anything.
// POST /api/v1/imports/preview
func (h *ImportHandler) PreviewImport(c *gin.Context) {
	data, format, ok := h.readUpload(c)
	if !ok {
		return
	}

	preview, err := h.orchestrator.Preview(data, format)
	if err != nil {
		h.writePipelineError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    preview,
	})
}

// SubmitImport creates an import job and runs the commit stage in the
// background; poll GetImportStatus for completion.
// POST /api/v1/imports
func (h *ImportHandler) SubmitImport(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	data, format, ok := h.readUpload(c)
	if !ok {
		return
	}

	mode := models.PublicationMode(c.DefaultPostForm("publicationMode", string(models.PublicationModeImmediate)))
	switch mode {
	case models.PublicationModeImmediate, models.PublicationModeScheduled, models.PublicationModePerRow:
	default:
		h.writeError(c, http.StatusBadRequest, "INVALID_PUBLICATION_MODE", "publicationMode must be immediate, scheduled, or per_row")
		return
	}

	var scheduledAt *time.Time
	if raw := c.PostForm("scheduledAt"); raw != "" {
		parsed, err := importer.ParseDate(raw)
		if err != nil {
			h.writeError(c, http.StatusBadRequest, "INVALID_SCHEDULED_AT", "scheduledAt must be a valid date/time")
			return
		}
		scheduledAt = &parsed
	}
	if mode == models.PublicationModeScheduled && scheduledAt == nil {
		h.writeError(c, http.StatusBadRequest, "SCHEDULED_AT_REQUIRED", "scheduledAt is required when publicationMode is scheduled")
		return
	}

	job, records, err := h.orchestrator.Submit(c.Request.Context(), importer.SubmitParams{
		TenantID:        tenantID,
		Name:            c.PostForm("name"),
		Data:            data,
		Format:          format,
		PublicationMode: mode,
		ScheduledAt:     scheduledAt,
	})
	if err != nil {
		h.writePipelineError(c, err)
		return
	}

	// Snapshot the response fields first: once Run starts, the job is owned
	// by the commit goroutine and must not be read here.
	jobID, totalRows, status := job.ID, job.TotalRows, job.Status

	// Commit runs to completion regardless of the client connection.
	go h.orchestrator.Run(context.Background(), job, records)

	c.JSON(http.StatusAccepted, models.SuccessResponse{
		Success: true,
		Data:    gin.H{"jobId": jobID, "totalRows": totalRows, "status": status},
	})
}

// GetImportStatus returns the job with its aggregate counters and error
// list.
// GET /api/v1/imports/:id
func (h *ImportHandler) GetImportStatus(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.writeError(c, http.StatusBadRequest, "INVALID_ID", "Job ID must be a valid UUID")
		return
	}

	job, err := h.imports.GetJob(c.Request.Context(), tenantID, jobID)
	if err != nil {
		h.writeError(c, http.StatusNotFound, "JOB_NOT_FOUND", "Import job not found")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    job,
	})
}

// ListImportRows returns the per-row audit trail of a job.
// GET /api/v1/imports/:id/rows
func (h *ImportHandler) ListImportRows(c *gin.Context) {
	tenantID := middleware.GetTenantID(c)

	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.writeError(c, http.StatusBadRequest, "INVALID_ID", "Job ID must be a valid UUID")
		return
	}

	audits, err := h.imports.ListRowAudits(c.Request.Context(), tenantID, jobID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list row audits")
		h.writeError(c, http.StatusInternalServerError, "DB_ERROR", "Failed to load row audits")
		return
	}

	c.JSON(http.StatusOK, models.SuccessResponse{
		Success: true,
		Data:    audits,
	})
}

// GetImportTemplate returns the import template definition or file.
// GET /api/v1/imports/template
func (h *ImportHandler) GetImportTemplate(c *gin.Context) {
	format := c.DefaultQuery("format", "json")

	template := models.ProductImportTemplate()

	switch format {
	case "csv":
		h.generateCSVTemplate(c, template)
	case "xlsx":
		h.generateXLSXTemplate(c, template)
	default:
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"template": template,
		})
	}
}

// generateCSVTemplate generates and downloads a CSV template (headers only)
func (h *ImportHandler) generateCSVTemplate(c *gin.Context, template models.ImportTemplate) {
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.csv")

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	headers := make([]string, len(template.Columns))
	for i, col := range template.Columns {
		headers[i] = col.Name
	}
	writer.Write(headers)
}

// generateXLSXTemplate generates and downloads an Excel template
func (h *ImportHandler) generateXLSXTemplate(c *gin.Context, template models.ImportTemplate) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Products"
	f.SetSheetName("Sheet1", sheetName)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	requiredStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"C65911"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, col := range template.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		headerText := col.Name
		if col.Required {
			headerText = col.Name + " *"
		}
		f.SetCellValue(sheetName, cell, headerText)

		if col.Required {
			f.SetCellStyle(sheetName, cell, cell, requiredStyle)
		} else {
			f.SetCellStyle(sheetName, cell, cell, headerStyle)
		}

		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 22)
	}

	// Instructions sheet documenting translation columns and timing modes
	f.NewSheet("Instructions")
	f.SetCellValue("Instructions", "A1", "Catalog Import Instructions")

	f.SetCellValue("Instructions", "A3", "TRANSLATION COLUMNS:")
	f.SetCellValue("Instructions", "A4", "Append a locale suffix to any column to load a localized value, e.g. description_fr-FR or description_es-ES.")
	f.SetCellValue("Instructions", "A5", "Both underscore and hyphen separators are accepted; the locale itself is case-insensitive.")

	f.SetCellValue("Instructions", "A7", "PUBLICATION TIMING:")
	f.SetCellValue("Instructions", "A8", "immediate: changes go live as soon as the row is processed.")
	f.SetCellValue("Instructions", "A9", "scheduled: all rows go live at the job's scheduled instant.")
	f.SetCellValue("Instructions", "A10", "per_row: each row's publish_date column decides; rows without one go live immediately.")

	f.SetCellValue("Instructions", "A12", "Column Definitions:")
	f.SetCellValue("Instructions", "A13", "Column")
	f.SetCellValue("Instructions", "B13", "Description")
	f.SetCellValue("Instructions", "C13", "Required")
	f.SetCellValue("Instructions", "D13", "Type")
	f.SetCellValue("Instructions", "E13", "Example")

	for i, col := range template.Columns {
		row := i + 14
		cellA, _ := excelize.CoordinatesToCellName(1, row)
		cellB, _ := excelize.CoordinatesToCellName(2, row)
		cellC, _ := excelize.CoordinatesToCellName(3, row)
		cellD, _ := excelize.CoordinatesToCellName(4, row)
		cellE, _ := excelize.CoordinatesToCellName(5, row)
		f.SetCellValue("Instructions", cellA, col.Name)
		f.SetCellValue("Instructions", cellB, col.Description)
		required := "Optional"
		if col.Required {
			required = "Required"
		}
		f.SetCellValue("Instructions", cellC, required)
		f.SetCellValue("Instructions", cellD, col.Type)
		f.SetCellValue("Instructions", cellE, col.Example)
	}

	f.SetColWidth("Instructions", "A", "A", 25)
	f.SetColWidth("Instructions", "B", "B", 60)
	f.SetColWidth("Instructions", "C", "C", 15)
	f.SetColWidth("Instructions", "D", "D", 15)
	f.SetColWidth("Instructions", "E", "E", 40)

	sheetIdx, _ := f.GetSheetIndex(sheetName)
	f.SetActiveSheet(sheetIdx)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=catalog_import_template.xlsx")

	f.Write(c.Writer)
}

// readUpload pulls the uploaded file and its declared format out of the
// multipart form. The format field wins; the filename extension is the
// fallback.
func (h *ImportHandler) readUpload(c *gin.Context) ([]byte, models.ImportFormat, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		h.writeError(c, http.StatusBadRequest, "FILE_REQUIRED", "Please upload a CSV or JSON file")
		return nil, "", false
	}
	defer file.Close()

	format := models.ImportFormat(strings.ToLower(c.PostForm("format")))
	if format == "" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".csv":
			format = models.ImportFormatCSV
		case ".json":
			format = models.ImportFormatJSON
		case ".xlsx":
			format = models.ImportFormatXLSX
		}
	}

	switch format {
	case models.ImportFormatCSV, models.ImportFormatJSON, models.ImportFormatXLSX:
	default:
		h.writeError(c, http.StatusBadRequest, "INVALID_FORMAT", "Only CSV and JSON files are supported")
		return nil, "", false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeError(c, http.StatusBadRequest, "FILE_UNREADABLE", "Failed to read uploaded file")
		return nil, "", false
	}

	return data, format, true
}

func (h *ImportHandler) writePipelineError(c *gin.Context, err error) {
	var formatErr *importer.FormatError
	if errors.As(err, &formatErr) {
		h.writeError(c, http.StatusBadRequest, "PARSE_ERROR", formatErr.Reason)
		return
	}
	h.logger.WithError(err).Error("Import pipeline failure")
	h.writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Import failed")
}

func (h *ImportHandler) writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, models.ErrorResponse{
		Success: false,
		Error: models.Error{
			Code:    code,
			Message: message,
		},
	})
}
