package models

import (
	"time"

	"gorm.io/datatypes"
)

// AnalysisStatus tracks where a document sits in the summarization
// workflow. Transitions are driven by the document service; the record
// store only ever writes them through guarded updates.
type AnalysisStatus string

const (
	StatusPending   AnalysisStatus = "PENDING"
	StatusAnalyzing AnalysisStatus = "ANALYZING"
	StatusCompleted AnalysisStatus = "COMPLETED"
	StatusFailed    AnalysisStatus = "FAILED"
)

type Document struct {
	ID           string `gorm:"primaryKey"`
	OwnerID      uint   `gorm:"index;not null"`
	OriginalName string `gorm:"not null"`
	MediaType    string `gorm:"not null"`
	SizeBytes    int64  `gorm:"not null"`

	// StorageKey references the blob store object holding the raw upload.
	// Exactly one document owns a given key.
	StorageKey string `gorm:"uniqueIndex;not null"`

	ExtractedText  string         `gorm:"type:text"`
	AnalysisStatus AnalysisStatus `gorm:"not null;default:'PENDING';index"`

	// Analysis results stay empty until a run completes. A later failed
	// re-analysis leaves them untouched; only the status flips.
	Summary           *string `gorm:"type:text"`
	Category          *string
	ExtractedMetadata datatypes.JSONMap

	// Soft delete: flagged, never physically removed by this service.
	IsDeleted bool `gorm:"not null;default:false;index"`
	DeletedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}
