package builder

import (
	"context"
	"encoding/json"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Approve moves a pending master to Approved and hands it to compliance.
// quarantineIDs optionally sends still-unresolved group members to
// quarantine in the same transaction, back-referenced to this master.
func (s *Service) Approve(ctx context.Context, tenantID, masterID string, actor models.Actor, note string, quarantineIDs []string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Service.Approve")
	defer span.End()

	return s.decide(ctx, tenantID, masterID, actor, models.ActionMasterApprove, "", note, func(ctx context.Context, master *models.Record) ([]models.Record, error) {
		return s.quarantineLeftovers(ctx, tenantID, master, quarantineIDs, note)
	})
}

// Reject returns a pending master to data entry with a reason.
func (s *Service) Reject(ctx context.Context, tenantID, masterID string, actor models.Actor, reason string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Service.Reject")
	defer span.End()

	return s.decide(ctx, tenantID, masterID, actor, models.ActionMasterReject, reason, "", nil)
}

// ComplianceApprove marks an approved master golden and active.
func (s *Service) ComplianceApprove(ctx context.Context, tenantID, masterID string, actor models.Actor, note string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Service.ComplianceApprove")
	defer span.End()

	return s.decide(ctx, tenantID, masterID, actor, models.ActionComplianceApprove, "", note, nil)
}

// ComplianceBlock marks an approved master golden but blocked.
func (s *Service) ComplianceBlock(ctx context.Context, tenantID, masterID string, actor models.Actor, reason string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "builder.Service.ComplianceBlock")
	defer span.End()

	return s.decide(ctx, tenantID, masterID, actor, models.ActionComplianceBlock, reason, "", nil)
}

// decide applies one lifecycle decision to a master record, with an
// optional extra step running inside the same transaction.
func (s *Service) decide(
	ctx context.Context,
	tenantID, masterID string,
	actor models.Actor,
	action models.LifecycleAction,
	reason, note string,
	extra func(ctx context.Context, master *models.Record) ([]models.Record, error),
) (*models.Record, error) {
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

	outcome, err := s.machine.Apply(master, action, actor, reason)
	if err != nil {
		return nil, err
	}

	if err := s.recordRepo.Update(ctx, master); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(struct {
		Reason string `json:"reason,omitempty"`
		Note   string `json:"note,omitempty"`
	}{Reason: reason, Note: note})
	if err := s.lineageRepo.Append(ctx, &models.LineageEvent{
		TenantID:   tenantID,
		RecordID:   master.ID,
		Action:     outcome.Action,
		FromStatus: outcome.FromStatus,
		ToStatus:   outcome.ToStatus,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Note:       note,
		Payload:    payload,
	}); err != nil {
		return nil, err
	}

	var quarantined []models.Record
	if extra != nil {
		if quarantined, err = extra(ctx, master); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	s.emitter.EmitRecordTransitioned(ctx, master, action)
	for _, q := range quarantined {
		s.emitter.EmitRecordQuarantined(ctx, &q, master.ID)
	}
	return master, nil
}

// quarantineLeftovers quarantines unresolved group members named at
// approval time. Each must share the master's group and still be open.
func (s *Service) quarantineLeftovers(ctx context.Context, tenantID string, master *models.Record, quarantineIDs []string, note string) ([]models.Record, error) {
	if len(quarantineIDs) == 0 {
		return nil, nil
	}

	leftovers, err := s.recordRepo.GetManyByIDs(ctx, tenantID, quarantineIDs)
	if err != nil {
		return nil, err
	}
	if len(leftovers) != len(quarantineIDs) {
		return nil, apperrors.Validationf("some quarantine targets do not exist")
	}
	for _, rec := range leftovers {
		if rec.NormalizedTax != master.NormalizedTax {
			return nil, apperrors.Validationf("record %s does not belong to group %s", rec.ID, master.NormalizedTax)
		}
		if rec.IsMerged() || rec.Status.IsTerminal() {
			return nil, apperrors.StateConflictf("record %s is already resolved", rec.ID)
		}
	}

	partition, err := s.partitioner.Apply(ctx, master, leftovers, quarantineIDs, note)
	if err != nil {
		return nil, err
	}
	return partition.Quarantined, nil
}
