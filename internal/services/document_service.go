package services

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/analysis"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/db/models"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/extract"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/repository"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/storage"
	"github.com/C3Techie/ai-doc-summarizer-service/pkg/metrics"
)

// MaxExtractedTextChars bounds the text kept on a record. Longer
// extractions are cut once, at upload time, mid-word if that is where the
// bound falls.
const MaxExtractedTextChars = 200000

// compensationTimeout bounds the best-effort blob delete that runs when a
// later pipeline step fails.
const compensationTimeout = 10 * time.Second

// DocumentStore is the record persistence contract the service needs.
// *repository.DocumentRepository is the production implementation.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, ownerID uint, id string) (*models.Document, error)
	UpdateStatusIf(ctx context.Context, id string, expected models.AnalysisStatus, patch map[string]any) (bool, error)
	List(ctx context.Context, ownerID uint, filter repository.ListFilter) ([]models.Document, repository.Pagination, error)
	SoftDelete(ctx context.Context, ownerID uint, id string) error
}

// DocumentService coordinates the blob store, the text extractor, the
// record store and the analysis client. It owns the record state machine;
// nothing else writes analysis statuses.
type DocumentService struct {
	repo     DocumentStore
	blobs    storage.BlobStore
	analyzer analysis.Client
	logger   *zap.Logger
	metrics  *metrics.Collector
}

func NewDocumentService(repo DocumentStore, blobs storage.BlobStore, analyzer analysis.Client, logger *zap.Logger, collector *metrics.Collector) *DocumentService {
	return &DocumentService{
		repo:     repo,
		blobs:    blobs,
		analyzer: analyzer,
		logger:   logger.With(zap.String("service", "document_service")),
		metrics:  collector,
	}
}

// Upload runs the ingest pipeline: store the raw bytes, extract text,
// create the record. If extraction or record creation fails the stored
// blob is deleted again so no blob outlives a failed upload. That delete
// is best-effort; its failure is logged and never masks the original
// error.
func (ds *DocumentService) Upload(ctx context.Context, ownerID uint, originalName, mediaType string, sizeBytes int64, data []byte) (*models.Document, error) {
	start := time.Now()

	key, err := ds.blobs.Put(ctx, data, originalName)
	if err != nil {
		ds.logger.Error("Blob store put failed", zap.String("original_name", originalName), zap.Error(err))
		ds.metrics.IncrementCounter("upload_failures", map[string]string{"stage": "store"})
		return nil, apperr.New(apperr.CodeStorageFailure, err)
	}

	text, err := extract.Text(data, mediaType)
	if err != nil {
		ds.logger.Warn("Text extraction failed",
			zap.String("original_name", originalName),
			zap.String("media_type", mediaType),
			zap.String("storage_key", key),
			zap.Error(err))
		ds.metrics.IncrementCounter("upload_failures", map[string]string{"stage": "extract"})
		ds.compensateBlob(ctx, key)
		return nil, err
	}

	if truncated := truncateChars(text, MaxExtractedTextChars); len(truncated) != len(text) {
		ds.logger.Info("Extracted text truncated",
			zap.String("original_name", originalName),
			zap.Int("max_chars", MaxExtractedTextChars))
		ds.metrics.IncrementCounter("extracted_text_truncated", nil)
		text = truncated
	}

	doc := &models.Document{
		ID:             uuid.NewString(),
		OwnerID:        ownerID,
		OriginalName:   originalName,
		MediaType:      mediaType,
		SizeBytes:      sizeBytes,
		StorageKey:     key,
		ExtractedText:  text,
		AnalysisStatus: models.StatusPending,
	}
	if err := ds.repo.Create(ctx, doc); err != nil {
		ds.logger.Error("Document record create failed",
			zap.String("original_name", originalName),
			zap.String("storage_key", key),
			zap.Error(err))
		ds.metrics.IncrementCounter("upload_failures", map[string]string{"stage": "persist"})
		ds.compensateBlob(ctx, key)
		return nil, err
	}

	ds.metrics.IncrementCounter("documents_uploaded", nil)
	ds.metrics.ObserveSize("document_size", float64(sizeBytes))
	ds.metrics.ObserveLatency("document_upload", time.Since(start))

	ds.logger.Info("Document uploaded",
		zap.String("document_id", doc.ID),
		zap.Uint("owner_id", ownerID),
		zap.String("media_type", mediaType),
		zap.Int64("size_bytes", sizeBytes),
		zap.Int("extracted_chars", utf8.RuneCountInString(text)))
	return doc, nil
}

// Analyze runs the analysis pipeline. The bool result reports the
// idempotent short-circuit: a record already COMPLETED is returned as-is
// without calling the analysis client unless force is set.
func (ds *DocumentService) Analyze(ctx context.Context, ownerID uint, id string, force bool) (*models.Document, bool, error) {
	if err := validateID(id); err != nil {
		return nil, false, err
	}

	doc, err := ds.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, false, err
	}

	if doc.AnalysisStatus == models.StatusCompleted && !force {
		ds.metrics.IncrementCounter("analyses_short_circuited", nil)
		ds.logger.Info("Analysis short-circuited, already completed", zap.String("document_id", id))
		return doc, true, nil
	}

	// Only one run per record may be in flight. ANALYZING has no analyze
	// edge; a record stuck there after a crash needs operator attention.
	if doc.AnalysisStatus == models.StatusAnalyzing {
		ds.metrics.IncrementCounter("analysis_conflicts", nil)
		return nil, false, apperr.Newf(apperr.CodeConflict, "document is already being processed")
	}

	// Claim the record. Losing the guarded update means another request
	// moved the status first; that caller owns the run.
	won, err := ds.repo.UpdateStatusIf(ctx, id, doc.AnalysisStatus, map[string]any{
		"analysis_status": models.StatusAnalyzing,
	})
	if err != nil {
		return nil, false, err
	}
	if !won {
		ds.metrics.IncrementCounter("analysis_conflicts", nil)
		ds.logger.Warn("Analysis lost status race",
			zap.String("document_id", id),
			zap.String("expected_status", string(doc.AnalysisStatus)))
		return nil, false, apperr.Newf(apperr.CodeConflict, "document is already being processed")
	}

	start := time.Now()
	result, err := ds.analyzer.Analyze(ctx, doc.ExtractedText)
	if err != nil {
		ds.markFailed(ctx, id)
		ds.metrics.IncrementCounter("analysis_failures", map[string]string{"code": string(apperr.CodeOf(err))})
		ds.logger.Warn("Analysis failed",
			zap.String("document_id", id),
			zap.String("code", string(apperr.CodeOf(err))),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, false, err
	}

	if err := result.Validate(); err != nil {
		ds.markFailed(ctx, id)
		ds.metrics.IncrementCounter("analysis_failures", map[string]string{"code": string(apperr.CodeInvalidAnalysisResult)})
		ds.logger.Warn("Analysis returned incomplete result", zap.String("document_id", id), zap.Error(err))
		return nil, false, err
	}

	won, err = ds.repo.UpdateStatusIf(ctx, id, models.StatusAnalyzing, map[string]any{
		"analysis_status":    models.StatusCompleted,
		"summary":            result.Summary,
		"category":           string(result.Category),
		"extracted_metadata": datatypes.JSONMap(result.Metadata),
	})
	if err != nil {
		return nil, false, err
	}
	if !won {
		ds.logger.Warn("Analysis result discarded, record changed underneath", zap.String("document_id", id))
		return nil, false, apperr.Newf(apperr.CodeConflict, "document changed while being processed")
	}

	ds.metrics.IncrementCounter("documents_analyzed", nil)
	ds.metrics.ObserveLatency("document_analysis", time.Since(start))
	ds.logger.Info("Document analyzed",
		zap.String("document_id", id),
		zap.String("category", string(result.Category)),
		zap.Duration("elapsed", time.Since(start)))

	updated, err := ds.repo.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, false, err
	}
	return updated, false, nil
}

func (ds *DocumentService) Get(ctx context.Context, ownerID uint, id string) (*models.Document, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	return ds.repo.GetByID(ctx, ownerID, id)
}

func (ds *DocumentService) List(ctx context.Context, ownerID uint, filter repository.ListFilter) ([]models.Document, repository.Pagination, error) {
	return ds.repo.List(ctx, ownerID, filter)
}

// Delete soft-deletes the record. The stored blob is kept; records are
// recoverable by an operator until a retention job is added.
func (ds *DocumentService) Delete(ctx context.Context, ownerID uint, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := ds.repo.SoftDelete(ctx, ownerID, id); err != nil {
		return err
	}
	ds.metrics.IncrementCounter("documents_deleted", nil)
	return nil
}

// markFailed flips the record out of ANALYZING after a failed run. Prior
// summary, category and metadata from an earlier successful run are left
// in place; only the status changes. Persistence problems here are logged
// and swallowed so the original analysis error reaches the caller.
func (ds *DocumentService) markFailed(ctx context.Context, id string) {
	won, err := ds.repo.UpdateStatusIf(ctx, id, models.StatusAnalyzing, map[string]any{
		"analysis_status": models.StatusFailed,
	})
	if err != nil {
		ds.logger.Error("Failed to persist FAILED status", zap.String("document_id", id), zap.Error(err))
		return
	}
	if !won {
		ds.logger.Warn("Record left ANALYZING before failure could be recorded", zap.String("document_id", id))
	}
}

// compensateBlob deletes a blob whose pipeline did not complete. It runs
// on its own deadline so a dead request context cannot leave orphans.
func (ds *DocumentService) compensateBlob(ctx context.Context, key string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()
	if err := ds.blobs.Delete(cctx, key); err != nil {
		ds.logger.Error("Compensating blob delete failed", zap.String("storage_key", key), zap.Error(err))
		ds.metrics.IncrementCounter("blob_compensation_failures", nil)
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperr.New(apperr.CodeInvalidIdentifier, err)
	}
	return nil
}

func truncateChars(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
