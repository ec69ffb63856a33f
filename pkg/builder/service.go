package builder

import (
	"context"
	"encoding/json"
	"time"

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
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/lifecycle"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/normalizers"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/quality"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/quarantine"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// masterConfidence is the match confidence recorded on masters built from
// exact-key duplicate groups.
const masterConfidence = 0.95

// Service materializes master records from duplicate groups. Every build
// runs under a per-group advisory lock inside one transaction: the master
// insert, the member link/quarantine writes, and all lineage appends commit
// together or not at all.
type Service struct {
	logger       ectologger.Logger
	db           database.DB
	scorer       *quality.Scorer
	machine      *lifecycle.Machine
	recordRepo   *record.Repository
	contactRepo  *contact.Repository
	documentRepo *document.Repository
	lineageRepo  *lineage.Repository
	partitioner  *quarantine.Partitioner
	emitter      *events.Emitter
}

// NewService creates a builder service.
func NewService(
	logger ectologger.Logger,
	db database.DB,
	scorer *quality.Scorer,
	machine *lifecycle.Machine,
	recordRepo *record.Repository,
	contactRepo *contact.Repository,
	documentRepo *document.Repository,
	lineageRepo *lineage.Repository,
	partitioner *quarantine.Partitioner,
	emitter *events.Emitter,
) *Service {
	return &Service{
		logger:       logger,
		db:           db,
		scorer:       scorer,
		machine:      machine,
		recordRepo:   recordRepo,
		contactRepo:  contactRepo,
		documentRepo: documentRepo,
		lineageRepo:  lineageRepo,
		partitioner:  partitioner,
		emitter:      emitter,
	}
}

// BuildMaster builds and submits a master record from a duplicate group.
func (s *Service) BuildMaster(ctx context.Context, tenantID string, actor models.Actor, req models.BuildMasterRequest) (*models.BuildMasterResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Service.BuildMaster")
	defer span.End()

	if actor.Role != models.RoleDataEntry {
		return nil, apperrors.Authorizationf("role %s may not build masters", actor.Role)
	}

	groupKey := normalizers.NormalizeTaxID(req.GroupKey)
	if groupKey == "" {
		return nil, apperrors.ValidationField("group key is empty after normalization", "group_key")
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"group_key": groupKey,
		"sources":   len(req.SourceRecordIDs),
	})

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Serialize competing builds for this group. The lock is held until
	// commit/rollback, so the loser re-reads members the winner already
	// linked and fails the checks below with a state conflict.
	if err := s.recordRepo.AcquireGroupLock(ctx, tenantID, groupKey); err != nil {
		return nil, err
	}

	members, err := s.loadGroupMembers(ctx, tenantID, groupKey, req.SourceRecordIDs, req.QuarantineIDs)
	if err != nil {
		return nil, err
	}

	contributing := membersByID(members, req.SourceRecordIDs)

	// Supersede a leftover open master transactionally before building the
	// replacement, keeping at most one open master per group.
	if err := s.supersedeOpenMaster(ctx, tenantID, groupKey); err != nil {
		return nil, err
	}

	plan := AutoFillBest(contributing, s.scorer)
	plan, err = ApplySelections(plan, req.Selections, contributing)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequired(plan); err != nil {
		return nil, err
	}

	master := s.materializeMaster(tenantID, groupKey, contributing, plan, req.Selections)
	if err := s.recordRepo.Create(ctx, master); err != nil {
		return nil, err
	}

	if err := s.stageSubEntities(ctx, tenantID, master.ID, contributing, req.StagedContacts, req.StagedDocuments); err != nil {
		return nil, err
	}

	sourceIDs := make([]string, len(contributing))
	for i, m := range contributing {
		sourceIDs[i] = m.ID
	}
	strategy := models.BuildStrategyAutoBest
	if len(req.Selections) > 0 {
		strategy = models.BuildStrategyManual
	}
	payload, _ := json.Marshal(models.MergePayload{
		MasterID:      master.ID,
		SourceRecords: sourceIDs,
		GroupKey:      groupKey,
		BuildStrategy: strategy,
	})
	if err := s.lineageRepo.Append(ctx, &models.LineageEvent{
		TenantID:   tenantID,
		RecordID:   master.ID,
		Action:     models.ActionMerge,
		FromStatus: models.StatusDraft,
		ToStatus:   models.StatusPending,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Payload:    payload,
	}); err != nil {
		return nil, err
	}

	partition, err := s.partitioner.Apply(ctx, master, members, req.QuarantineIDs, req.QuarantineNote)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"master_id":   master.ID,
		"linked":      len(partition.Linked),
		"quarantined": len(partition.Quarantined),
	}).Info("Built master record")

	s.emitter.EmitMasterBuilt(ctx, master, sourceIDs)
	for _, q := range partition.Quarantined {
		s.emitter.EmitRecordQuarantined(ctx, &q, master.ID)
	}

	resp := &models.BuildMasterResponse{Master: *master}
	for _, m := range partition.Linked {
		resp.Linked = append(resp.Linked, m.ID)
	}
	for _, m := range partition.Quarantined {
		resp.Quarantined = append(resp.Quarantined, m.ID)
	}
	return resp, nil
}

// ResubmitMaster corrects a rejected master and returns it to review under
// the same record id. Link and quarantine classifications from the original
// build carry forward untouched; only field selections and staged
// sub-entities may change.
func (s *Service) ResubmitMaster(ctx context.Context, tenantID, masterID string, actor models.Actor, req models.ResubmitMasterRequest) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Service.ResubmitMaster")
	defer span.End()

	if actor.Role != models.RoleDataEntry {
		return nil, apperrors.Authorizationf("role %s may not resubmit masters", actor.Role)
	}

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	master, err := s.recordRepo.GetByID(ctx, tenantID, masterID)
	if err != nil {
		return nil, err
	}
	if !master.IsMaster {
		return nil, apperrors.Validationf("record %s is not a master", masterID)
	}

	snapshots := master.BuiltFromRecords.Data
	contributing := recordsFromSnapshots(tenantID, snapshots)

	plan := planFromMaster(master)
	plan, err = ApplySelections(plan, req.Selections, contributing)
	if err != nil {
		return nil, err
	}
	if err := ValidateRequired(plan); err != nil {
		return nil, err
	}

	for field, value := range plan.Values {
		master.SetField(field, value)
	}
	master.SelectedFieldSources = database.NewJSONB(plan.Sources)
	if len(req.Selections) > 0 {
		strategy := models.BuildStrategyManual
		master.BuildStrategy = &strategy
	}
	master.PreviousFingerprint = master.Fingerprint
	master.Fingerprint = fingerprint.ForRecord(master)

	outcome, err := s.machine.Apply(master, models.ActionResubmitToMaster, actor, "")
	if err != nil {
		return nil, err
	}

	if err := s.recordRepo.Update(ctx, master); err != nil {
		return nil, err
	}

	if err := s.stageSubEntities(ctx, tenantID, master.ID, contributing, req.StagedContacts, req.StagedDocuments); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(models.MergePayload{MasterID: master.ID, GroupKey: master.NormalizedTax})
	if err := s.lineageRepo.Append(ctx, &models.LineageEvent{
		TenantID:   tenantID,
		RecordID:   master.ID,
		Action:     outcome.Action,
		FromStatus: outcome.FromStatus,
		ToStatus:   outcome.ToStatus,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Payload:    payload,
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.emitter.EmitRecordTransitioned(ctx, master, models.ActionResubmitToMaster)
	return master, nil
}

// loadGroupMembers fetches and validates the records named by a build
// request: every id must exist, belong to the group, and still be open.
func (s *Service) loadGroupMembers(ctx context.Context, tenantID, groupKey string, sourceIDs, quarantineIDs []string) ([]models.Record, error) {
	seen := make(map[string]bool, len(sourceIDs)+len(quarantineIDs))
	var ids []string
	for _, id := range sourceIDs {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, id := range quarantineIDs {
		if seen[id] {
			return nil, apperrors.Validationf("record %s cannot both contribute and be quarantined", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}

	members, err := s.recordRepo.GetManyByIDs(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}
	if len(members) != len(ids) {
		found := make(map[string]bool, len(members))
		for _, m := range members {
			found[m.ID] = true
		}
		for _, id := range ids {
			if !found[id] {
				return nil, apperrors.NotFound("record", id)
			}
		}
	}

	for _, m := range members {
		if m.NormalizedTax != groupKey {
			return nil, apperrors.Validationf("record %s does not belong to group %s", m.ID, groupKey)
		}
		if m.IsMerged() || m.Status.IsTerminal() {
			return nil, apperrors.StateConflictf("record %s was already resolved by another build", m.ID)
		}
		if m.IsMaster {
			return nil, apperrors.Validationf("record %s is itself a master", m.ID)
		}
	}
	return members, nil
}

// supersedeOpenMaster demotes the group's current open master, if any.
func (s *Service) supersedeOpenMaster(ctx context.Context, tenantID, groupKey string) error {
	open, err := s.recordRepo.FindOpenMaster(ctx, tenantID, groupKey)
	if err != nil {
		return err
	}
	if open == nil {
		return nil
	}

	from := open.Status
	reason := "superseded by a rebuilt master"
	open.IsMaster = false
	open.Status = models.StatusRejected
	open.RejectReason = &reason
	if err := s.recordRepo.Update(ctx, open); err != nil {
		return err
	}

	system := models.SystemActor()
	return s.lineageRepo.Append(ctx, &models.LineageEvent{
		TenantID:   tenantID,
		RecordID:   open.ID,
		Action:     models.ActionSupersede,
		FromStatus: from,
		ToStatus:   models.StatusRejected,
		ActorID:    system.ID,
		ActorRole:  system.Role,
		Note:       reason,
	})
}

// materializeMaster assembles the master record from the resolved plan.
func (s *Service) materializeMaster(tenantID, groupKey string, contributing []models.Record, plan FieldPlan, selections []models.FieldSelection) *models.Record {
	now := time.Now().UTC()
	snapshots := make([]models.RecordSnapshot, len(contributing))
	for i := range contributing {
		snapshots[i] = contributing[i].Snapshot(now)
	}

	strategy := models.BuildStrategyAutoBest
	if len(selections) > 0 {
		strategy = models.BuildStrategyManual
	}

	master := &models.Record{
		ID:                   uuid.New().String(),
		TenantID:             tenantID,
		RequestID:            uuid.New().String(),
		RequestType:          models.RequestTypeDuplicate,
		Origin:               "master_builder",
		SourceSystem:         "mdm",
		Status:               models.StatusPending,
		AssignedTo:           models.RoleReviewer,
		IsMaster:             true,
		Confidence:           masterConfidence,
		BuiltFromRecords:     database.NewJSONB(snapshots),
		SelectedFieldSources: database.NewJSONB(plan.Sources),
		BuildStrategy:        &strategy,
	}
	for field, value := range plan.Values {
		master.SetField(field, value)
	}
	master.NormalizedTax = groupKey
	master.Fingerprint = fingerprint.ForRecord(master)
	return master
}

// stageSubEntities copies the selected contacts and documents from
// contributing records onto the master.
func (s *Service) stageSubEntities(ctx context.Context, tenantID, masterID string, contributing []models.Record, contacts []models.StagedContact, documents []models.StagedDocument) error {
	allowed := make(map[string]bool, len(contributing))
	for _, m := range contributing {
		allowed[m.ID] = true
	}

	primaries := 0
	for _, staged := range contacts {
		if !allowed[staged.SourceRecordID] {
			return apperrors.Validationf("staged contact source %s is not a contributing record", staged.SourceRecordID)
		}
		src, err := s.contactRepo.GetByID(ctx, tenantID, staged.SourceRecordID, staged.ContactID)
		if err != nil {
			return err
		}
		if src.IsPrimary {
			primaries++
		}
		if _, err := s.contactRepo.CopyToRecord(ctx, *src, masterID, true); err != nil {
			return err
		}
	}
	if primaries > 1 {
		return apperrors.ValidationField("at most one staged contact may be primary", "staged_contacts")
	}

	for _, staged := range documents {
		if !allowed[staged.SourceRecordID] {
			return apperrors.Validationf("staged document source %s is not a contributing record", staged.SourceRecordID)
		}
		src, err := s.documentRepo.GetByID(ctx, tenantID, staged.SourceRecordID, staged.DocumentID)
		if err != nil {
			return err
		}
		if _, err := s.documentRepo.CopyToRecord(ctx, *src, masterID, true); err != nil {
			return err
		}
	}
	return nil
}

func membersByID(members []models.Record, ids []string) []models.Record {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	out := make([]models.Record, 0, len(ids))
	for _, m := range members {
		if want[m.ID] {
			out = append(out, m)
		}
	}
	return out
}

// recordsFromSnapshots rebuilds lightweight records from build snapshots so
// resubmission selections resolve against the same point-in-time values the
// original build saw.
func recordsFromSnapshots(tenantID string, snapshots []models.RecordSnapshot) []models.Record {
	records := make([]models.Record, len(snapshots))
	for i, snap := range snapshots {
		rec := models.Record{ID: snap.RecordID, TenantID: tenantID, SourceSystem: snap.SourceSystem}
		for field, value := range snap.Fields {
			rec.SetField(field, value)
		}
		records[i] = rec
	}
	return records
}

// planFromMaster reconstructs the field plan a master was built with.
func planFromMaster(master *models.Record) FieldPlan {
	plan := FieldPlan{
		Sources: make(map[string]string),
		Values:  make(map[string]string),
	}
	for field, source := range master.SelectedFieldSources.Data {
		plan.Sources[field] = source
	}
	for field, value := range master.Fields() {
		if value != "" {
			plan.Values[field] = value
		}
	}
	return plan
}
