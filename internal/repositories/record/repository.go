// Package record persists records and owns the advisory locking that
// serializes master builds per duplicate-group key.
package record

import (
	"context"
	"database/sql"
	"errors"
	"hash/fnv"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/normalizers"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

var recordColumns = []string{
	"id", "tenant_id", "request_id", "request_type", "origin", "source_system",
	"tax_number", "normalized_tax", "company_name", "company_name_ar",
	"country", "city", "street", "building", "email", "phone",
	"sales_org", "distribution_channel", "division",
	"status", "assigned_to", "is_golden", "is_master", "master_id", "confidence",
	"reject_reason", "block_reason", "quarantine_reason",
	"built_from_records", "selected_field_sources", "build_strategy",
	"fingerprint", "previous_fingerprint", "created_at", "updated_at",
}

// openStatuses are the states in which a record still participates in the
// duplicate-resolution workflow.
var openStatuses = []any{
	string(models.StatusDraft), string(models.StatusPending),
	string(models.StatusRejected), string(models.StatusUpdated),
	string(models.StatusApproved),
}

// Repository handles record persistence
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new record repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a record. ID, normalized key, and timestamps are assigned
// here when missing.
func (r *Repository) Create(ctx context.Context, record *models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Create")
	defer span.End()

	if record.ID == "" {
		record.ID = uuid.New().String()
	}
	record.NormalizedTax = normalizers.NormalizeTaxID(record.TaxNumber)
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("records")
	ib.Cols(recordColumns...)
	ib.Values(
		record.ID, record.TenantID, record.RequestID, record.RequestType, record.Origin, record.SourceSystem,
		record.TaxNumber, record.NormalizedTax, record.CompanyName, record.CompanyNameAr,
		record.Country, record.City, record.Street, record.Building, record.Email, record.Phone,
		record.SalesOrg, record.DistributionChannel, record.Division,
		record.Status, record.AssignedTo, record.IsGolden, record.IsMaster, record.MasterID, record.Confidence,
		record.RejectReason, record.BlockReason, record.QuarantineReason,
		record.BuiltFromRecords, record.SelectedFieldSources, record.BuildStrategy,
		record.Fingerprint, record.PreviousFingerprint, record.CreatedAt, record.UpdatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": record.TenantID, "record_id": record.ID}).Error("Failed to create record")
		return apperrors.Persistence("failed to create record")
	}
	return nil
}

// GetByID fetches one record scoped to a tenant.
func (r *Repository) GetByID(ctx context.Context, tenantID, id string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.GetByID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("records")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("id", id))

	query, args := sb.Build()
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("record", id)
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "record_id": id}).Error("Failed to get record")
		return nil, apperrors.Persistence("failed to get record")
	}
	return &record, nil
}

// GetManyByIDs fetches records by id, scoped to a tenant. Missing ids are
// simply absent from the result; callers decide whether that is an error.
func (r *Repository) GetManyByIDs(ctx context.Context, tenantID string, ids []string) ([]models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.GetManyByIDs")
	defer span.End()

	if len(ids) == 0 {
		return nil, nil
	}

	idArgs := make([]any, len(ids))
	for i, id := range ids {
		idArgs[i] = id
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("records")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.In("id", idArgs...))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var records []models.Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to get records by ids")
		return nil, apperrors.Persistence("failed to get records")
	}
	return records, nil
}

// Update writes all mutable columns of the record and bumps updated_at.
func (r *Repository) Update(ctx context.Context, record *models.Record) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.Update")
	defer span.End()

	record.NormalizedTax = normalizers.NormalizeTaxID(record.TaxNumber)
	record.UpdatedAt = time.Now().UTC()

	ub := sqlbuilder.PostgreSQL.NewUpdateBuilder()
	ub.Update("records")
	ub.Set(
		ub.Assign("request_type", record.RequestType),
		ub.Assign("tax_number", record.TaxNumber),
		ub.Assign("normalized_tax", record.NormalizedTax),
		ub.Assign("company_name", record.CompanyName),
		ub.Assign("company_name_ar", record.CompanyNameAr),
		ub.Assign("country", record.Country),
		ub.Assign("city", record.City),
		ub.Assign("street", record.Street),
		ub.Assign("building", record.Building),
		ub.Assign("email", record.Email),
		ub.Assign("phone", record.Phone),
		ub.Assign("sales_org", record.SalesOrg),
		ub.Assign("distribution_channel", record.DistributionChannel),
		ub.Assign("division", record.Division),
		ub.Assign("status", record.Status),
		ub.Assign("assigned_to", record.AssignedTo),
		ub.Assign("is_golden", record.IsGolden),
		ub.Assign("is_master", record.IsMaster),
		ub.Assign("master_id", record.MasterID),
		ub.Assign("confidence", record.Confidence),
		ub.Assign("reject_reason", record.RejectReason),
		ub.Assign("block_reason", record.BlockReason),
		ub.Assign("quarantine_reason", record.QuarantineReason),
		ub.Assign("built_from_records", record.BuiltFromRecords),
		ub.Assign("selected_field_sources", record.SelectedFieldSources),
		ub.Assign("build_strategy", record.BuildStrategy),
		ub.Assign("fingerprint", record.Fingerprint),
		ub.Assign("previous_fingerprint", record.PreviousFingerprint),
		ub.Assign("updated_at", record.UpdatedAt),
	)
	ub.Where(ub.Equal("tenant_id", record.TenantID), ub.Equal("id", record.ID))

	query, args := ub.Build()
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": record.TenantID, "record_id": record.ID}).Error("Failed to update record")
		return apperrors.Persistence("failed to update record")
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return apperrors.NotFound("record", record.ID)
	}
	return nil
}

// ListActive returns the record set eligible for duplicate grouping: not
// yet merged into a master and not in a terminal state.
func (r *Repository) ListActive(ctx context.Context, tenantID string) ([]models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.ListActive")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.IsNull("master_id"),
		sb.In("status", openStatuses...),
	)
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var records []models.Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to list active records")
		return nil, apperrors.Persistence("failed to list records")
	}
	return records, nil
}

// GetByNormalizedKey returns all records sharing a normalized tax key,
// including merged and quarantined members so operators see full history.
func (r *Repository) GetByNormalizedKey(ctx context.Context, tenantID, key string) ([]models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.GetByNormalizedKey")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("records")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("normalized_tax", key))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var records []models.Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "group_key": key}).Error("Failed to get records by key")
		return nil, apperrors.Persistence("failed to get records by key")
	}
	return records, nil
}

// ListByMasterID returns the records folded into a master (the reverse
// index from a golden record to its sources).
func (r *Repository) ListByMasterID(ctx context.Context, tenantID, masterID string) ([]models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.ListByMasterID")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("records")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("master_id", masterID))
	sb.OrderBy("created_at ASC")

	query, args := sb.Build()
	var records []models.Record
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "master_id": masterID}).Error("Failed to list records by master")
		return nil, apperrors.Persistence("failed to list records by master")
	}
	return records, nil
}

// FindOpenMaster returns the group's current open master: flagged is_master,
// not yet golden, and still in an open workflow state. Nil when none exists.
func (r *Repository) FindOpenMaster(ctx context.Context, tenantID, key string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.FindOpenMaster")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("normalized_tax", key),
		sb.Equal("is_master", true),
		sb.Equal("is_golden", false),
		sb.IsNull("master_id"),
		sb.In("status", openStatuses...),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "group_key": key}).Error("Failed to find open master")
		return nil, apperrors.Persistence("failed to find open master")
	}
	return &record, nil
}

// FindBySourceIdentity returns the record ingested from a given upstream
// system under a given external request id, or nil. Used by the ingestion
// consumer for change detection.
func (r *Repository) FindBySourceIdentity(ctx context.Context, tenantID, sourceSystem, requestID string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.FindBySourceIdentity")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(recordColumns...)
	sb.From("records")
	sb.Where(
		sb.Equal("tenant_id", tenantID),
		sb.Equal("source_system", sourceSystem),
		sb.Equal("request_id", requestID),
	)
	sb.OrderBy("created_at DESC")
	sb.Limit(1)

	query, args := sb.Build()
	var record models.Record
	if err := r.db.GetContext(ctx, &record, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "source_system": sourceSystem, "request_id": requestID}).Error("Failed to find record by source identity")
		return nil, apperrors.Persistence("failed to find record by source identity")
	}
	return &record, nil
}

// AcquireGroupLock takes a transaction-scoped advisory lock on the
// (tenant, group key) pair, serializing concurrent master builds for the
// same group. The lock releases automatically at commit or rollback, so it
// must be called inside an open transaction.
func (r *Repository) AcquireGroupLock(ctx context.Context, tenantID, key string) error {
	ctx, span := tracing.StartSpan(ctx, "record.Repository.AcquireGroupLock")
	defer span.End()

	h := fnv.New64a()
	h.Write([]byte(tenantID))
	h.Write([]byte{0})
	h.Write([]byte(key))

	if _, err := r.db.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", int64(h.Sum64())); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "group_key": key}).Error("Failed to acquire group lock")
		return apperrors.Persistence("failed to acquire group lock")
	}
	return nil
}
