// Package lineage persists the append-only audit trail. There is no update
// or delete here on purpose: lineage rows are immutable, and correction
// happens by appending another event.
package lineage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

var lineageColumns = []string{
	"id", "tenant_id", "record_id", "action", "from_status", "to_status",
	"actor_id", "actor_role", "note", "payload", "created_at",
}

// Repository appends and reads lineage events.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new lineage repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Append writes one lineage event. Must run inside the same transaction as
// the state mutation it records; the caller owns that transaction.
func (r *Repository) Append(ctx context.Context, event *models.LineageEvent) error {
	ctx, span := tracing.StartSpan(ctx, "lineage.Repository.Append")
	defer span.End()

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Payload == nil {
		event.Payload = json.RawMessage("{}")
	}

	ib := sqlbuilder.PostgreSQL.NewInsertBuilder()
	ib.InsertInto("lineage_events")
	ib.Cols(lineageColumns...)
	ib.Values(
		event.ID, event.TenantID, event.RecordID, event.Action, event.FromStatus, event.ToStatus,
		event.ActorID, event.ActorRole, event.Note, []byte(event.Payload), event.CreatedAt,
	)

	query, args := ib.Build()
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": event.TenantID, "record_id": event.RecordID, "action": string(event.Action)}).Error("Failed to append lineage event")
		return apperrors.Persistence("failed to append lineage event")
	}
	return nil
}

// ListByRecord returns a record's full history, oldest first, so the
// sequence of events replays the record's life.
func (r *Repository) ListByRecord(ctx context.Context, tenantID, recordID string) ([]models.LineageEvent, error) {
	ctx, span := tracing.StartSpan(ctx, "lineage.Repository.ListByRecord")
	defer span.End()

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select(lineageColumns...)
	sb.From("lineage_events")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("record_id", recordID))
	sb.OrderBy("created_at ASC", "id ASC")

	query, args := sb.Build()
	var events []models.LineageEvent
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID, "record_id": recordID}).Error("Failed to list lineage events")
		return nil, apperrors.Persistence("failed to list lineage events")
	}
	return events, nil
}
