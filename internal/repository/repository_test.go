package repository

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/C3Techie/ai-doc-summarizer-service/internal/apperr"
	"github.com/C3Techie/ai-doc-summarizer-service/internal/db/models"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("set TEST_POSTGRES_DSN to run repository integration tests")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Document{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newTestUser registers an isolated owner so concurrent or repeated runs
// cannot see each other's documents.
func newTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	user := &models.User{
		Username:     "it_" + suffix,
		Email:        fmt.Sprintf("it_%s@example.com", suffix),
		PasswordHash: "x",
		Role:         models.RoleUser,
		ActiveStatus: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		db.Where("owner_id = ?", user.ID).Delete(&models.Document{})
		db.Unscoped().Delete(user)
	})
	return user
}

func newTestDocument(owner uint, status models.AnalysisStatus, mediaType string) *models.Document {
	return &models.Document{
		ID:             uuid.NewString(),
		OwnerID:        owner,
		OriginalName:   "file.pdf",
		MediaType:      mediaType,
		SizeBytes:      42,
		StorageKey:     uuid.NewString(),
		ExtractedText:  "some text",
		AnalysisStatus: status,
	}
}

func TestDocumentRepositoryCreateAndGet(t *testing.T) {
	db := setupDB(t)
	repo := NewDocumentRepository(db, zap.NewNop())
	owner := newTestUser(t, db)
	ctx := context.Background()

	doc := newTestDocument(owner.ID, models.StatusPending, "application/pdf")
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(ctx, owner.ID, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AnalysisStatus != models.StatusPending || got.ExtractedText != "some text" {
		t.Errorf("got %+v", got)
	}

	if _, err := repo.GetByID(ctx, owner.ID+1, doc.ID); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("foreign owner should see not_found, got %v", err)
	}
	if _, err := repo.GetByID(ctx, owner.ID, uuid.NewString()); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("unknown id should be not_found, got %v", err)
	}
}

func TestDocumentRepositoryUpdateStatusIf(t *testing.T) {
	db := setupDB(t)
	repo := NewDocumentRepository(db, zap.NewNop())
	owner := newTestUser(t, db)
	ctx := context.Background()

	doc := newTestDocument(owner.ID, models.StatusPending, "application/pdf")
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	won, err := repo.UpdateStatusIf(ctx, doc.ID, models.StatusPending, map[string]any{
		"analysis_status": models.StatusAnalyzing,
	})
	if err != nil {
		t.Fatalf("UpdateStatusIf: %v", err)
	}
	if !won {
		t.Fatal("first guarded update should win")
	}

	// A second caller still expecting PENDING must lose without error.
	won, err = repo.UpdateStatusIf(ctx, doc.ID, models.StatusPending, map[string]any{
		"analysis_status": models.StatusAnalyzing,
	})
	if err != nil {
		t.Fatalf("UpdateStatusIf: %v", err)
	}
	if won {
		t.Error("stale expected status should lose the race")
	}

	got, err := repo.GetByID(ctx, owner.ID, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.AnalysisStatus != models.StatusAnalyzing {
		t.Errorf("status = %s, want %s", got.AnalysisStatus, models.StatusAnalyzing)
	}
}

func TestDocumentRepositoryUpdate(t *testing.T) {
	db := setupDB(t)
	repo := NewDocumentRepository(db, zap.NewNop())
	owner := newTestUser(t, db)
	ctx := context.Background()

	doc := newTestDocument(owner.ID, models.StatusPending, "application/pdf")
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.Update(ctx, doc.ID, map[string]any{"summary": "patched"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, err := repo.GetByID(ctx, owner.ID, doc.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Summary == nil || *got.Summary != "patched" {
		t.Errorf("summary = %v, want patched", got.Summary)
	}

	err = repo.Update(ctx, uuid.NewString(), map[string]any{"summary": "x"})
	if !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("update of unknown id should be not_found, got %v", err)
	}
}

func TestDocumentRepositorySoftDelete(t *testing.T) {
	db := setupDB(t)
	repo := NewDocumentRepository(db, zap.NewNop())
	owner := newTestUser(t, db)
	ctx := context.Background()

	doc := newTestDocument(owner.ID, models.StatusCompleted, "application/pdf")
	if err := repo.Create(ctx, doc); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := repo.SoftDelete(ctx, owner.ID, doc.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := repo.GetByID(ctx, owner.ID, doc.ID); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("deleted record should be invisible, got %v", err)
	}
	if err := repo.SoftDelete(ctx, owner.ID, doc.ID); !apperr.IsCode(err, apperr.CodeNotFound) {
		t.Errorf("second delete should be not_found, got %v", err)
	}

	docs, page, err := repo.List(ctx, owner.ID, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 0 || page.Total != 0 {
		t.Errorf("deleted record leaked into listing: %d items, total %d", len(docs), page.Total)
	}

	var raw models.Document
	if err := db.Where("id = ?", doc.ID).First(&raw).Error; err != nil {
		t.Fatalf("raw row should still exist: %v", err)
	}
	if !raw.IsDeleted || raw.DeletedAt == nil {
		t.Errorf("raw row should carry the delete flag and timestamp: %+v", raw)
	}
}

func TestDocumentRepositoryListPaginationAndFilters(t *testing.T) {
	db := setupDB(t)
	repo := NewDocumentRepository(db, zap.NewNop())
	owner := newTestUser(t, db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := repo.Create(ctx, newTestDocument(owner.ID, models.StatusPending, "application/pdf")); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	for i := 0; i < 2; i++ {
		doc := newTestDocument(owner.ID, models.StatusCompleted, "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		if err := repo.Create(ctx, doc); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	docs, page, err := repo.List(ctx, owner.ID, ListFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 2 || page.Total != 5 || page.TotalPages != 3 {
		t.Errorf("page 1: items=%d total=%d pages=%d", len(docs), page.Total, page.TotalPages)
	}
	if !page.HasNext || page.HasPrevious {
		t.Errorf("page 1 navigation: %+v", page)
	}

	docs, page, err = repo.List(ctx, owner.ID, ListFilter{Page: 3, Limit: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(docs) != 1 || page.HasNext || !page.HasPrevious {
		t.Errorf("page 3: items=%d navigation=%+v", len(docs), page)
	}

	_, page, err = repo.List(ctx, owner.ID, ListFilter{Status: models.StatusCompleted})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 2 {
		t.Errorf("status filter total = %d, want 2", page.Total)
	}

	_, page, err = repo.List(ctx, owner.ID, ListFilter{MediaType: "application/pdf"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Total != 3 {
		t.Errorf("media type filter total = %d, want 3", page.Total)
	}

	_, page, err = repo.List(ctx, owner.ID, ListFilter{Limit: 500})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Limit != MaxPageSize {
		t.Errorf("limit should clamp to %d, got %d", MaxPageSize, page.Limit)
	}

	_, page, err = repo.List(ctx, owner.ID, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Limit != DefaultPageSize {
		t.Errorf("limit should default to %d, got %d", DefaultPageSize, page.Limit)
	}
}

func TestUserRepositoryDuplicateUsername(t *testing.T) {
	db := setupDB(t)
	repo := NewUserRepository(db, zap.NewNop())
	ctx := context.Background()

	first := newTestUser(t, db)

	dup := &models.User{
		Username:     first.Username,
		Email:        "other_" + first.Email,
		PasswordHash: "x",
		Role:         models.RoleUser,
		ActiveStatus: true,
	}
	if err := repo.Create(ctx, dup); !apperr.IsCode(err, apperr.CodeConflict) {
		t.Errorf("duplicate username should conflict, got %v", err)
	}
}

func TestOrderClauseWhitelist(t *testing.T) {
	cases := []struct {
		sortBy, sortDir, want string
	}{
		{"created_at", "asc", "created_at ASC"},
		{"size_bytes", "desc", "size_bytes DESC"},
		{"original_name", "", "original_name DESC"},
		{"extracted_text; DROP TABLE documents", "asc", "created_at ASC"},
		{"", "", "created_at DESC"},
	}
	for _, tc := range cases {
		if got := orderClause(tc.sortBy, tc.sortDir); got != tc.want {
			t.Errorf("orderClause(%q, %q) = %q, want %q", tc.sortBy, tc.sortDir, got, tc.want)
		}
	}
}
