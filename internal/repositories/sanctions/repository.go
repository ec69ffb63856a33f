// Package sanctions reads the sanctions boundary table. The table is
// populated by an external ETL job; this repository only checks membership
// so the quarantine partitioner can withhold flagged group members.
package sanctions

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/huandu/go-sqlbuilder"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/normalizers"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Repository reads sanctions entries.
type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

// NewRepository creates a new sanctions repository
func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// IsFlagged reports whether a tax key appears on the sanctions list. Keys
// are normalized the same way as grouping keys, so a match is independent
// of the formatting the list provider used.
func (r *Repository) IsFlagged(ctx context.Context, tenantID, taxNumber string) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "sanctions.Repository.IsFlagged")
	defer span.End()

	key := normalizers.NormalizeTaxID(taxNumber)
	if key == "" {
		return false, nil
	}

	sb := sqlbuilder.PostgreSQL.NewSelectBuilder()
	sb.Select("COUNT(1)")
	sb.From("sanctions_entries")
	sb.Where(sb.Equal("tenant_id", tenantID), sb.Equal("normalized_tax", key))

	query, args := sb.Build()
	var count int
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{"tenant_id": tenantID}).Error("Failed to check sanctions list")
		return false, apperrors.Persistence("failed to check sanctions list")
	}
	return count > 0, nil
}
