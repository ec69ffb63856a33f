// Package document persists record documents. Binary content lives in the
// upload layer's object store; only the reference and metadata are kept.
package document

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

var documentColumns = []string{
	"id", "tenant_id", "record_id", "name", "type", "content_type",
	"size_bytes", "storage_key", "source", "selected", "created_at", "updated_at",
}

// Repository handles document persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new document repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a document reference.
func (r *Repository) Create(ctx context.Context, document *models.Document) error {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.Create")
	defer span.End()

	if document.ID == "" {
		document.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if document.CreatedAt.IsZero() {
		document.CreatedAt = now
	}
	document.UpdatedAt = now

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("documents")
	ib.Cols(documentColumns...)
	ib.Values(
		document.ID, document.TenantID, document.RecordID, document.Name, document.Type,
		document.ContentType, document.SizeBytes, document.StorageKey, document.Source,
		document.Selected, document.CreatedAt, document.UpdatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": document.TenantID, "record_id": document.RecordID}).Error("Failed to create document")
		return apperrors.Persistence("failed to create document")
	}
	return nil
}

// ListByRecord returns a record's documents in creation order.
func (r *Repository) ListByRecord(ctx context.Context, tenantID, recordID string) ([]models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.ListByRecord")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("record_id", recordID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "record_id": recordID}).Error("Failed to list documents")
		return nil, apperrors.Persistence("failed to list documents")
	}
	return documents, nil
}

// GetByID fetches one document owned by a specific record.
func (r *Repository) GetByID(ctx context.Context, tenantID, recordID, id string) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(documentColumns...)
	sb.From("documents")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("record_id", recordID), sb.Equal("id", id))

	query, args := sb.Build()
	var document models.Document
	if err := r.db.GetContext(ctx, &document, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("document", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "document_id": id}).Error("Failed to get document")
		return nil, apperrors.Persistence("failed to get document")
	}
	return &document, nil
}

// CopyToRecord copies a document reference onto another record, tagging the
// copy with its originating record.
func (r *Repository) CopyToRecord(ctx context.Context, document models.Document, targetRecordID string, selected bool) (*models.Document, error) {
	ctx, span := tracing.StartSpan(ctx, "document.Repository.CopyToRecord")
	defer span.End()

	copied := document
	copied.ID = ""
	copied.Source = document.RecordID
	copied.RecordID = targetRecordID
	copied.Selected = selected
	copied.CreatedAt = time.Time{}

	if err := r.Create(ctx, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}
