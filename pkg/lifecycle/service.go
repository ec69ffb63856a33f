package lifecycle

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/lineage"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/record"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/events"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Service executes lifecycle transitions transactionally: the status write
// and the lineage append either both commit or neither does.
type Service struct {
	logger      ectologger.Logger
	db          database.DB
	machine     *Machine
	recordRepo  *record.Repository
	lineageRepo *lineage.Repository
	emitter     *events.Emitter
}

// NewService creates a lifecycle service.
func NewService(
	logger ectologger.Logger,
	db database.DB,
	machine *Machine,
	recordRepo *record.Repository,
	lineageRepo *lineage.Repository,
	emitter *events.Emitter,
) *Service {
	return &Service{
		logger:      logger,
		db:          db,
		machine:     machine,
		recordRepo:  recordRepo,
		lineageRepo: lineageRepo,
		emitter:     emitter,
	}
}

type transitionPayload struct {
	Reason string `json:"reason,omitempty"`
	Note   string `json:"note,omitempty"`
}

// Transition applies one lifecycle action to a record. The stale-state and
// role checks run against the row as it exists inside the transaction, so a
// concurrent transition cannot slip between read and write.
func (s *Service) Transition(ctx context.Context, tenantID, recordID string, action models.LifecycleAction, actor models.Actor, reason, note string) (*models.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "lifecycle.Service.Transition")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": tenantID,
		"record_id": recordID,
		"action":    string(action),
		"actor_id":  actor.ID,
	})

	ctx, tx, err := s.db.GetTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rec, err := s.recordRepo.GetByID(ctx, tenantID, recordID)
	if err != nil {
		return nil, err
	}

	outcome, err := s.machine.Apply(rec, action, actor, reason)
	if err != nil {
		return nil, err
	}

	if err := s.recordRepo.Update(ctx, rec); err != nil {
		return nil, err
	}

	payload, _ := json.Marshal(transitionPayload{Reason: reason, Note: note})
	event := &models.LineageEvent{
		TenantID:   tenantID,
		RecordID:   rec.ID,
		Action:     outcome.Action,
		FromStatus: outcome.FromStatus,
		ToStatus:   outcome.ToStatus,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Note:       note,
		Payload:    payload,
	}
	if err := s.lineageRepo.Append(ctx, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	log.WithFields(map[string]any{
		"from_status": string(outcome.FromStatus),
		"to_status":   string(outcome.ToStatus),
	}).Info("Applied lifecycle transition")

	s.emitter.EmitRecordTransitioned(ctx, rec, action)
	return rec, nil
}
