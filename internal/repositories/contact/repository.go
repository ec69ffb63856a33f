// Package contact persists record contacts.
package contact

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

var contactColumns = []string{
	"id", "tenant_id", "record_id", "name", "job_title", "email", "phone",
	"is_primary", "source", "selected", "created_at", "updated_at",
}

// Repository handles contact persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new contact repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a contact.
func (r *Repository) Create(ctx context.Context, contact *models.Contact) error {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.Create")
	defer span.End()

	if contact.ID == "" {
		contact.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if contact.CreatedAt.IsZero() {
		contact.CreatedAt = now
	}
	contact.UpdatedAt = now

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("contacts")
	ib.Cols(contactColumns...)
	ib.Values(
		contact.ID, contact.TenantID, contact.RecordID, contact.Name, contact.JobTitle,
		contact.Email, contact.Phone, contact.IsPrimary, contact.Source, contact.Selected,
		contact.CreatedAt, contact.UpdatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": contact.TenantID, "record_id": contact.RecordID}).Error("Failed to create contact")
		return apperrors.Persistence("failed to create contact")
	}
	return nil
}

// ListByRecord returns a record's contacts in creation order.
func (r *Repository) ListByRecord(ctx context.Context, tenantID, recordID string) ([]models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.ListByRecord")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("record_id", recordID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var contacts []models.Contact
	if err := r.db.SelectContext(ctx, &contacts, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "record_id": recordID}).Error("Failed to list contacts")
		return nil, apperrors.Persistence("failed to list contacts")
	}
	return contacts, nil
}

// GetByID fetches one contact owned by a specific record.
func (r *Repository) GetByID(ctx context.Context, tenantID, recordID, id string) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(contactColumns...)
	sb.From("contacts")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("record_id", recordID), sb.Equal("id", id))

	query, args := sb.Build()
	var contact models.Contact
	if err := r.db.GetContext(ctx, &contact, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("contact", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "contact_id": id}).Error("Failed to get contact")
		return nil, apperrors.Persistence("failed to get contact")
	}
	return &contact, nil
}

// CopyToRecord copies a contact onto another record, tagging the copy with
// its originating record. Used when staging contacts onto a master.
func (r *Repository) CopyToRecord(ctx context.Context, contact models.Contact, targetRecordID string, selected bool) (*models.Contact, error) {
	ctx, span := tracing.StartSpan(ctx, "contact.Repository.CopyToRecord")
	defer span.End()

	copied := contact
	copied.ID = ""
	copied.Source = contact.RecordID
	copied.RecordID = targetRecordID
	copied.Selected = selected
	copied.CreatedAt = time.Time{}

	if err := r.Create(ctx, &copied); err != nil {
		return nil, err
	}
	return &copied, nil
}
