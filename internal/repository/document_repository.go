package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/db/models"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// ListFilter narrows and orders a document listing. Zero values mean
// "no filter" / defaults.
type ListFilter struct {
	Status    models.AnalysisStatus
	MediaType string
	Page      int
	Limit     int
	SortBy    string
	SortDir   string
}

// Pagination describes the page of results a List call returned.
type Pagination struct {
	Total       int64 `json:"total"`
	Page        int   `json:"page"`
	Limit       int   `json:"limit"`
	TotalPages  int   `json:"totalPages"`
	HasNext     bool  `json:"hasNext"`
	HasPrevious bool  `json:"hasPrevious"`
}

// sortColumns whitelists ORDER BY targets. Anything else falls back to
// created_at.
var sortColumns = map[string]string{
	"created_at":    "created_at",
	"updated_at":    "updated_at",
	"original_name": "original_name",
	"size_bytes":    "size_bytes",
}

// DocumentRepository is the persistence layer for document records. Every
// query composes is_deleted = false; soft-deleted rows are invisible to
// callers.
type DocumentRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewDocumentRepository(db *gorm.DB, logger *zap.Logger) *DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger.With(zap.String("repository", "documents")),
	}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return apperr.New(apperr.CodePersistenceFailure, err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, ownerID uint, id string) (*models.Document, error) {
	var doc models.Document
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ? AND is_deleted = ?", id, ownerID, false).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.New(apperr.CodeNotFound, err)
	}
	if err != nil {
		return nil, apperr.New(apperr.CodePersistenceFailure, err)
	}
	return &doc, nil
}

// Update applies patch to an existing record. Zero affected rows means the
// record is absent or soft-deleted.
func (r *DocumentRepository) Update(ctx context.Context, id string, patch map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(patch)
	if res.Error != nil {
		return apperr.New(apperr.CodePersistenceFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, nil)
	}
	return nil
}

// UpdateStatusIf applies patch only if the record currently holds the
// expected status. It returns false when no row matched, which callers
// treat as a lost race rather than an error.
func (r *DocumentRepository) UpdateStatusIf(ctx context.Context, id string, expected models.AnalysisStatus, patch map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ? AND analysis_status = ? AND is_deleted = ?", id, expected, false).
		Updates(patch)
	if res.Error != nil {
		return false, apperr.New(apperr.CodePersistenceFailure, res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *DocumentRepository) List(ctx context.Context, ownerID uint, filter ListFilter) ([]models.Document, Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	query := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false)
	if filter.Status != "" {
		query = query.Where("analysis_status = ?", filter.Status)
	}
	if filter.MediaType != "" {
		query = query.Where("media_type = ?", filter.MediaType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, Pagination{}, apperr.New(apperr.CodePersistenceFailure, err)
	}

	var docs []models.Document
	err := query.
		Order(orderClause(filter.SortBy, filter.SortDir)).
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&docs).Error
	if err != nil {
		return nil, Pagination{}, apperr.New(apperr.CodePersistenceFailure, err)
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return docs, Pagination{
		Total:       total,
		Page:        page,
		Limit:       limit,
		TotalPages:  totalPages,
		HasNext:     page < totalPages,
		HasPrevious: page > 1,
	}, nil
}

// SoftDelete hides a record from all subsequent reads. Deleting an already
// deleted or absent record reports NotFound.
func (r *DocumentRepository) SoftDelete(ctx context.Context, ownerID uint, id string) error {
	res := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ? AND owner_id = ? AND is_deleted = ?", id, ownerID, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return apperr.New(apperr.CodePersistenceFailure, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.New(apperr.CodeNotFound, nil)
	}
	r.logger.Info("Document soft-deleted", zap.String("document_id", id), zap.Uint("owner_id", ownerID))
	return nil
}

func orderClause(sortBy, sortDir string) string {
	column, ok := sortColumns[strings.ToLower(sortBy)]
	if !ok {
		column = "created_at"
	}
	dir := "DESC"
	if strings.EqualFold(sortDir, "asc") {
		dir = "ASC"
	}
	return fmt.Sprintf("%s %s", column, dir)
}
