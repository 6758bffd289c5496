package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/api/middleware"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/config"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/db/models"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/repository"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/services"
)

type DocumentHandler struct {
	documentService *services.DocumentService
	maxUploadBytes  int64
	allowedTypes    []string
	logger          *zap.Logger
}

func NewDocumentHandler(documentService *services.DocumentService, cfg *config.Configuration, logger *zap.Logger) *DocumentHandler {
	return &DocumentHandler{
		documentService: documentService,
		maxUploadBytes:  cfg.Upload.MaxSizeBytes,
		allowedTypes:    cfg.AllowedMediaTypes(),
		logger:          logger.With(zap.String("handler", "document")),
	}
}

type documentResponse struct {
	ID                string                `json:"id"`
	OriginalName      string                `json:"originalName"`
	MediaType         string                `json:"mediaType"`
	SizeBytes         int64                 `json:"sizeBytes"`
	AnalysisStatus    models.AnalysisStatus `json:"analysisStatus"`
	Summary           *string               `json:"summary,omitempty"`
	Category          *string               `json:"category,omitempty"`
	ExtractedMetadata map[string]any        `json:"extractedMetadata,omitempty"`
	ExtractedText     string                `json:"extractedText,omitempty"`
	CreatedAt         time.Time             `json:"createdAt"`
	UpdatedAt         time.Time             `json:"updatedAt"`
}

// toDocumentResponse builds the API view of a record. The extracted text
// only travels on upload and get responses; list rows and analyze payloads
// stay small.
func toDocumentResponse(doc *models.Document, includeText bool) documentResponse {
	resp := documentResponse{
		ID:                doc.ID,
		OriginalName:      doc.OriginalName,
		MediaType:         doc.MediaType,
		SizeBytes:         doc.SizeBytes,
		AnalysisStatus:    doc.AnalysisStatus,
		Summary:           doc.Summary,
		Category:          doc.Category,
		ExtractedMetadata: map[string]any(doc.ExtractedMetadata),
		CreatedAt:         doc.CreatedAt,
		UpdatedAt:         doc.UpdatedAt,
	}
	if includeText {
		resp.ExtractedText = doc.ExtractedText
	}
	return resp
}

func (dh *DocumentHandler) Upload(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		respondError(c, apperr.New(apperr.CodeUnauthorized, nil))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondError(c, apperr.Newf(apperr.CodeValidation, "multipart field %q is required", "file"))
		return
	}
	if fileHeader.Size > dh.maxUploadBytes {
		respondError(c, apperr.Newf(apperr.CodeValidation, "file exceeds the %d byte upload limit", dh.maxUploadBytes))
		return
	}

	mediaType, err := dh.resolveMediaType(fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		dh.logger.Error("Open uploaded file failed", zap.Error(err))
		respondError(c, apperr.New(apperr.CodeInternal, err))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		dh.logger.Error("Read uploaded file failed", zap.Error(err))
		respondError(c, apperr.New(apperr.CodeInternal, err))
		return
	}

	doc, err := dh.documentService.Upload(c.Request.Context(), principal.UserID, fileHeader.Filename, mediaType, fileHeader.Size, content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toDocumentResponse(doc, true))
}

func (dh *DocumentHandler) Get(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		respondError(c, apperr.New(apperr.CodeUnauthorized, nil))
		return
	}

	doc, err := dh.documentService.Get(c.Request.Context(), principal.UserID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toDocumentResponse(doc, true))
}

func (dh *DocumentHandler) List(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		respondError(c, apperr.New(apperr.CodeUnauthorized, nil))
		return
	}

	filter := repository.ListFilter{
		MediaType: c.Query("media_type"),
		SortBy:    c.Query("sort_by"),
		SortDir:   c.Query("sort_dir"),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := parseStatus(raw)
		if !ok {
			respondError(c, apperr.Newf(apperr.CodeValidation, "unknown status %q", raw))
			return
		}
		filter.Status = status
	}

	var err error
	if filter.Page, err = queryInt(c, "page"); err != nil {
		respondError(c, err)
		return
	}
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		respondError(c, err)
		return
	}

	docs, pagination, err := dh.documentService.List(c.Request.Context(), principal.UserID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i := range docs {
		items[i] = toDocumentResponse(&docs[i], false)
	}
	c.JSON(http.StatusOK, gin.H{
		"items":      items,
		"pagination": pagination,
	})
}

func (dh *DocumentHandler) Delete(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		respondError(c, apperr.New(apperr.CodeUnauthorized, nil))
		return
	}

	if err := dh.documentService.Delete(c.Request.Context(), principal.UserID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type analyzeRequest struct {
	ForceReAnalysis bool `json:"forceReAnalysis"`
}

// Analyze runs the summarization pipeline for one document. The body is
// optional; an absent body means forceReAnalysis=false.
func (dh *DocumentHandler) Analyze(c *gin.Context) {
	principal, ok := middleware.CurrentPrincipal(c)
	if !ok {
		respondError(c, apperr.New(apperr.CodeUnauthorized, nil))
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, apperr.Newf(apperr.CodeValidation, "request body must be JSON"))
		return
	}

	doc, alreadyCompleted, err := dh.documentService.Analyze(c.Request.Context(), principal.UserID, c.Param("id"), req.ForceReAnalysis)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"document":         toDocumentResponse(doc, false),
		"alreadyCompleted": alreadyCompleted,
	})
}

// resolveMediaType returns the effective upload type, preferring the
// declared Content-Type and falling back to the file extension when the
// client sent none or a generic octet-stream.
func (dh *DocumentHandler) resolveMediaType(fileHeader *multipart.FileHeader) (string, error) {
	declared := fileHeader.Header.Get("Content-Type")
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared == "" || declared == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(fileHeader.Filename)) {
		case ".pdf":
			declared = config.MediaTypePDF
		case ".docx":
			declared = config.MediaTypeDOCX
		}
	}
	for _, allowed := range dh.allowedTypes {
		if declared == allowed {
			return declared, nil
		}
	}
	return "", apperr.New(apperr.CodeUnsupportedMediaType, nil)
}

func parseStatus(raw string) (models.AnalysisStatus, bool) {
	switch models.AnalysisStatus(strings.ToUpper(raw)) {
	case models.StatusPending:
		return models.StatusPending, true
	case models.StatusAnalyzing:
		return models.StatusAnalyzing, true
	case models.StatusCompleted:
		return models.StatusCompleted, true
	case models.StatusFailed:
		return models.StatusFailed, true
	}
	return "", false
}

func queryInt(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Newf(apperr.CodeValidation, "query parameter %q must be a non-negative integer", name)
	}
	return n, nil
}
