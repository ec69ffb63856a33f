// Package quarantine classifies group members at master-submission time:
// merged members become Linked, withheld members become Quarantined, and
// everything else is left untouched for a future grouping pass.
package quarantine

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/lineage"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/record"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/sanctions"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/lifecycle"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Partition is the exhaustive disposition of the processed members: every
// member passed in lands in exactly one of the two lists.
type Partition struct {
	Linked      []models.Record
	Quarantined []models.Record
}

// Partitioner applies link/quarantine decisions to group members.
type Partitioner struct {
	logger        ectologger.Logger
	machine       *lifecycle.Machine
	recordRepo    *record.Repository
	lineageRepo   *lineage.Repository
	sanctionsRepo *sanctions.Repository
}

// NewPartitioner creates a quarantine partitioner.
func NewPartitioner(
	logger ectologger.Logger,
	machine *lifecycle.Machine,
	recordRepo *record.Repository,
	lineageRepo *lineage.Repository,
	sanctionsRepo *sanctions.Repository,
) *Partitioner {
	return &Partitioner{
		logger:        logger,
		machine:       machine,
		recordRepo:    recordRepo,
		lineageRepo:   lineageRepo,
		sanctionsRepo: sanctionsRepo,
	}
}

// Apply partitions members against a freshly built master. A member is
// quarantined when the operator marked it or when it matches the sanctions
// list; otherwise it is linked to the master. Each disposition writes the
// record and its lineage event through the caller's open transaction, so the
// whole partition commits or rolls back with the master itself.
func (p *Partitioner) Apply(ctx context.Context, master *models.Record, members []models.Record, quarantineIDs []string, note string) (Partition, error) {
	ctx, span := tracing.StartSpan(ctx, "quarantine.Partitioner.Apply")
	defer span.End()

	marked := make(map[string]bool, len(quarantineIDs))
	for _, id := range quarantineIDs {
		marked[id] = true
	}

	var result Partition
	for i := range members {
		member := members[i]

		withhold := marked[member.ID]
		if !withhold {
			flagged, err := p.sanctionsRepo.IsFlagged(ctx, member.TenantID, member.TaxNumber)
			if err != nil {
				return Partition{}, err
			}
			if flagged {
				p.logger.WithContext(ctx).WithFields(map[string]any{
					"record_id": member.ID,
					"master_id": master.ID,
				}).Warn("group member matches sanctions list, quarantining")
				withhold = true
			}
		}

		action := models.ActionLink
		reason := ""
		if withhold {
			action = models.ActionQuarantine
			reason = note
			if reason == "" {
				reason = "withheld during master build"
			}
		}

		outcome, err := p.machine.Apply(&member, action, models.SystemActor(), reason)
		if err != nil {
			return Partition{}, err
		}
		masterID := master.ID
		member.MasterID = &masterID

		if err := p.recordRepo.Update(ctx, &member); err != nil {
			return Partition{}, err
		}

		payload, _ := json.Marshal(models.MergePayload{
			MasterID:       master.ID,
			GroupKey:       master.NormalizedTax,
			QuarantineNote: reason,
		})
		event := &models.LineageEvent{
			TenantID:   member.TenantID,
			RecordID:   member.ID,
			Action:     action,
			FromStatus: outcome.FromStatus,
			ToStatus:   outcome.ToStatus,
			ActorID:    models.SystemActor().ID,
			ActorRole:  models.SystemActor().Role,
			Note:       reason,
			Payload:    payload,
		}
		if err := p.lineageRepo.Append(ctx, event); err != nil {
			return Partition{}, err
		}

		if withhold {
			result.Quarantined = append(result.Quarantined, member)
		} else {
			result.Linked = append(result.Linked, member)
		}
	}
	return result, nil
}
