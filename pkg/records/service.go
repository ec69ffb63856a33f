// Package records implements source record intake and correction: creation
// from data entry or the ingestion feed, field edits on rejected records,
// and the read views over a record's sub-entities and history.
package records

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/contact"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/document"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/lineage"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/record"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/events"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/fingerprint"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Service owns the source-record side of the pipeline.
type Service struct {
	logger       ectologger.Logger
	db           database.DB
	recordRepo   *record.Repository
	contactRepo  *contact.Repository
	documentRepo *document.Repository
	lineageRepo  *lineage.Repository
	emitter      *events.Emitter
}

// NewService creates a records service.
func NewService(
	logger ectologger.Logger,
	db database.DB,
	recordRepo *record.Repository,
	contactRepo *contact.Repository,
	documentRepo *document.Repository,
	lineageRepo *lineage.Repository,
	emitter *events.Emitter,
) *Service {
	return &Service{
		logger:       logger,
		db:           db,
		recordRepo:   recordRepo,
		contactRepo:  contactRepo,
		documentRepo: documentRepo,
		lineageRepo:  lineageRepo,
		emitter:      emitter,
	}
}

// Create registers a new source record and opens its lineage. Manual entry
// and the ingestion feed both land here; the actor records which.
func (s *Service) Create(ctx context.Context, tenantID string, actor models.Actor, req models.CreateRecordRequest) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.Create")
	defer span.End()

	if actor.Role != models.RoleDataEntry && actor.Role != models.RoleSystem {
		return nil, apperrors.Authorizationf("role %s may not create records", actor.Role)
	}

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	rec := &models.Record{
		ID:                  uuid.New().String(),
		TenantID:            tenantID,
		RequestID:           requestID,
		RequestType:         models.RequestTypeNew,
		Origin:              req.Origin,
		SourceSystem:        req.SourceSystem,
		TaxNumber:           req.TaxNumber,
		CompanyName:         req.CompanyName,
		CompanyNameAr:       req.CompanyNameAr,
		Country:             req.Country,
		City:                req.City,
		Street:              req.Street,
		Building:            req.Building,
		Email:               req.Email,
		Phone:               req.Phone,
		SalesOrg:            req.SalesOrg,
		DistributionChannel: req.DistributionChannel,
		Division:            req.Division,
		Status:              models.StatusPending,
		AssignedTo:          models.RoleReviewer,
	}
	rec.Fingerprint = fingerprint.ForRecord(rec)

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Source identity is the idempotency key for the feed: the same
	// (source_system, request_id) pair must not produce a second record.
	existing, err := s.recordRepo.FindBySourceIdentity(ctx, tenantID, rec.SourceSystem, rec.RequestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperrors.StateConflictf("record for %s/%s already exists", rec.SourceSystem, rec.RequestID)
	}

	if err := s.recordRepo.Create(ctx, rec); err != nil {
		return nil, err
	}

	if err := s.lineageRepo.Append(ctx, &models.LineageEvent{
		TenantID:   tenantID,
		RecordID:   rec.ID,
		Action:     models.ActionCreate,
		FromStatus: models.StatusDraft,
		ToStatus:   rec.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":     tenantID,
		"record_id":     rec.ID,
		"source_system": rec.SourceSystem,
	}).Info("Created record")

	s.emitter.EmitRecordCreated(ctx, rec)
	return rec, nil
}

// UpdateFields applies data-entry corrections to a rejected record and
// returns it as updated, ready for another build. Only merge fields may
// change; the diff is recorded in lineage.
func (s *Service) UpdateFields(ctx context.Context, tenantID, recordID string, actor models.Actor, req models.UpdateRecordFieldsRequest) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.UpdateFields")
	defer span.End()

	if actor.Role != models.RoleDataEntry {
		return nil, apperrors.Authorizationf("role %s may not edit record fields", actor.Role)
	}
	for field := range req.Fields {
		if !models.IsMergeField(field) {
			return nil, apperrors.ValidationField("unknown field "+field, "fields")
		}
	}

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rec, err := s.recordRepo.GetByID(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	if rec.IsMerged() || rec.Status.IsTerminal() {
		return nil, apperrors.StateConflictf("record %s is already resolved", recordID)
	}
	if rec.Status != models.StatusRejected && rec.Status != models.StatusUpdated {
		return nil, apperrors.StateConflictf("record %s is %s, only rejected records accept edits", recordID, rec.Status)
	}

	before := rec.Fields()
	var changes []models.FieldChange
	for field, value := range req.Fields {
		if before[field] == value {
			continue
		}
		changes = append(changes, models.FieldChange{Field: field, From: before[field], To: value})
		rec.SetField(field, value)
	}
	if len(changes) == 0 {
		return nil, apperrors.ValidationField("no field values changed", "fields")
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })

	from := rec.Status
	rec.Status = models.StatusUpdated
	rec.PreviousFingerprint = rec.Fingerprint
	rec.Fingerprint = fingerprint.ForRecord(rec)

	if err := s.recordRepo.Update(ctx, rec); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(struct {
		Changes []models.FieldChange `json:"changes"`
	}{Changes: changes})
	if err := s.lineageRepo.Append(ctx, &models.LineageEvent{
		TenantID:   tenantID,
		RecordID:   rec.ID,
		Action:     models.ActionFieldUpdate,
		FromStatus: from,
		ToStatus:   rec.Status,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Payload:    payload,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.emitter.EmitRecordTransitioned(ctx, rec, models.ActionFieldUpdate)
	return rec, nil
}

// GetDetail returns a record with its contacts, documents, and full history.
func (s *Service) GetDetail(ctx context.Context, tenantID, recordID string) (*models.RecordDetail, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.GetDetail")
	defer span.End()

	rec, err := s.recordRepo.GetByID(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	contacts, err := s.contactRepo.ListByRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	documents, err := s.documentRepo.ListByRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	history, err := s.lineageRepo.ListByRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}

	return &models.RecordDetail{
		Record:    *rec,
		Contacts:  contacts,
		Documents: documents,
		Lineage:   history,
	}, nil
}

// List returns a page of active records for a tenant.
func (s *Service) List(ctx context.Context, tenantID string, page, pageSize int) (*models.RecordListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.List")
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

	resp := &models.RecordListResponse{
		Items:      []models.Record{},
		TotalCount: len(active),
		Page:       page,
		PageSize:   pageSize,
	}
	start := (page - 1) * pageSize
	if start >= len(active) {
		return resp, nil
	}
	end := start + pageSize
	if end > len(active) {
		end = len(active)
	}
	resp.Items = active[start:end]
	return resp, nil
}

// Lineage returns a record's full append-only history, oldest first.
func (s *Service) Lineage(ctx context.Context, tenantID, recordID string) (*models.LineageListResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.Lineage")
	defer span.End()

	if _, err := s.recordRepo.GetByID(ctx, tenantID, recordID); err != nil {
		return nil, err
	}
	history, err := s.lineageRepo.ListByRecord(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}
	return &models.LineageListResponse{Items: history, TotalCount: len(history)}, nil
}

// MasterMembers returns the records folded into a master, the reverse of
// each member's master back-reference.
func (s *Service) MasterMembers(ctx context.Context, tenantID, masterID string) (*models.MasterMembersResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "records.Service.MasterMembers")
	defer span.End()

	master, err := s.recordRepo.GetByID(ctx, tenantID, masterID)
	if err != nil {
		return nil, err
	}
	if !master.IsMaster {
		return nil, apperrors.Validationf("record %s is not a master", masterID)
	}
	members, err := s.recordRepo.ListByMasterID(ctx, tenantID, masterID)
	if err != nil {
		return nil, err
	}
	return &models.MasterMembersResponse{MasterID: masterID, Members: members}, nil
}
