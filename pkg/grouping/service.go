package grouping

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/record"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/normalizers"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/quality"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Service exposes the duplicate-group views backing the triage and build
// screens. Groups are computed from the active record set on every call.
type Service struct {
	logger     ectologger.Logger
	engine     *Engine
	scorer     *quality.Scorer
	recordRepo *record.Repository
}

// NewService creates a grouping service.
func NewService(logger ectologger.Logger, engine *Engine, scorer *quality.Scorer, recordRepo *record.Repository) *Service {
	return &Service{
		logger:     logger,
		engine:     engine,
		scorer:     scorer,
		recordRepo: recordRepo,
	}
}

// ListDuplicateGroups returns a page of open duplicate groups for a tenant.
func (s *Service) ListDuplicateGroups(ctx context.Context, tenantID string, page, pageSize int) (*models.DuplicateGroupListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "grouping.Service.ListDuplicateGroups")
	defer span.End()

	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}

	active, err := s.recordRepo.ListActive(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	groups, _ := s.engine.Partition(ctx, active)

	resp := &models.DuplicateGroupListResponse{
		Items:      []models.DuplicateGroup{},
		TotalCount: len(groups),
		Page:       page,
		PageSize:   pageSize,
	}
	start := (page - 1) * pageSize
	if start >= len(groups) {
		return resp, nil
	}
	end := start + pageSize
	if end > len(groups) {
		end = len(groups)
	}
	for _, group := range groups[start:end] {
		resp.Items = append(resp.Items, s.engine.Summarize(group))
	}
	return resp, nil
}

// GetRecordsByKey returns every record sharing a group key, open or
// resolved, with per-field quality scores for the build screen.
func (s *Service) GetRecordsByKey(ctx context.Context, tenantID, rawKey string) (*models.GroupRecordsResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "grouping.Service.GetRecordsByKey")
	defer span.End()

	key := normalizers.NormalizeTaxID(rawKey)
	if key == "" {
		return nil, apperrors.ValidationField("group key is empty after normalization", "group_key")
	}

	records, err := s.recordRepo.GetByNormalizedKey(ctx, tenantID, key)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NotFound("duplicate group", key)
	}

	resp := &models.GroupRecordsResponse{GroupKey: key}
	for i := range records {
		resp.Records = append(resp.Records, models.ScoredRecord{
			Record:      records[i],
			FieldScores: s.scorer.ScoreRecord(&records[i]),
		})
	}
	return resp, nil
}
