// Package processor handles the upstream record feed. Each message is one
// company record from a source system: unknown source identities become new
// records, known ones are diffed by fingerprint and updated in place when
// the upstream fields actually changed.
package processor

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/Gobusters/ectologger"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/lineage"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/internal/repositories/record"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/database"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/events"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/fingerprint"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/kafka"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/records"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Processor applies feed messages to the record store.
type Processor struct {
	logger      ectologger.Logger
	db          database.DB
	recordRepo  *record.Repository
	lineageRepo *lineage.Repository
	recordsSvc  *records.Service
	emitter     *events.Emitter
}

// NewProcessor creates a feed processor.
func NewProcessor(
	logger ectologger.Logger,
	db database.DB,
	recordRepo *record.Repository,
	lineageRepo *lineage.Repository,
	recordsSvc *records.Service,
	emitter *events.Emitter,
) *Processor {
	return &Processor{
		logger:      logger,
		db:          db,
		recordRepo:  recordRepo,
		lineageRepo: lineageRepo,
		recordsSvc:  recordsSvc,
		emitter:     emitter,
	}
}

// HandleMessage processes one feed message. A nil return commits the
// offset; transient failures return an error so the message is retried.
func (p *Processor) HandleMessage(ctx context.Context, msg *kafka.IncomingMessage) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.HandleMessage")
	defer span.End()

	tenantID := msg.GetTenantID()
	sourceSystem := msg.GetSourceSystem()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":     tenantID,
		"source_system": sourceSystem,
		"offset":        msg.Offset,
	})

	if tenantID == "" || sourceSystem == "" {
		// Unroutable; committing it is the consumer's job once we return nil.
		log.WithFields(map[string]any{"payload": string(msg.Value)}).Error("Feed message missing tenant or source system, dropping")
		return nil
	}

	req := msg.FeedMessage.Record
	req.SourceSystem = sourceSystem
	if req.Origin == "" {
		req.Origin = "feed"
	}
	if req.RequestID == "" {
		req.RequestID = msg.FeedMessage.RequestID
	}
	if req.RequestID == "" {
		req.RequestID = msg.Key
	}
	if req.RequestID == "" || req.TaxNumber == "" || req.CompanyName == "" {
		log.WithFields(map[string]any{"payload": string(msg.Value)}).Error("Feed message missing required record fields, dropping")
		return nil
	}

	existing, err := p.recordRepo.FindBySourceIdentity(ctx, tenantID, sourceSystem, req.RequestID)
	if err != nil {
		return err
	}
	if existing == nil {
		rec, err := p.recordsSvc.Create(ctx, tenantID, models.SystemActor(), req)
		if err != nil {
			return err
		}
		log.WithFields(map[string]any{"record_id": rec.ID}).Info("Created record from feed")
		return nil
	}

	return p.applyFeedUpdate(ctx, existing, req)
}

// applyFeedUpdate diffs an incoming delivery against the stored record and
// updates it when the upstream fields changed. Records already folded into a
// master or sitting in a terminal state are frozen; late deliveries for them
// are logged and dropped.
func (p *Processor) applyFeedUpdate(ctx context.Context, rec *models.Record, req models.CreateRecordRequest) error {
	ctx, span := tracing.StartSpan(ctx, "processor.Processor.applyFeedUpdate")
	defer span.End()

	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id": rec.TenantID,
		"record_id": rec.ID,
	})

	incoming := feedRecord(rec, req)
	newFingerprint := fingerprint.ForRecord(incoming)
	if !fingerprint.HasChanged(rec.Fingerprint, newFingerprint) {
		log.Debug("Feed delivery unchanged, skipping")
		return nil
	}

	if rec.IsMerged() || rec.Status.IsTerminal() {
		log.WithFields(map[string]any{"status": rec.Status}).Warn("Feed update for resolved record, dropping")
		return nil
	}

	before := rec.Fields()
	after := incoming.Fields()
	var changes []models.FieldChange
	for _, field := range models.MergeFields {
		if before[field] == after[field] {
			continue
		}
		changes = append(changes, models.FieldChange{Field: field, From: before[field], To: after[field]})
		rec.SetField(field, after[field])
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Field < changes[j].Field })

	from := rec.Status
	rec.Status = models.StatusUpdated
	rec.PreviousFingerprint = rec.Fingerprint
	rec.Fingerprint = newFingerprint

	ctx, tx, err := p.db.GetTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := p.recordRepo.Update(ctx, rec); err != nil {
		return err
	}

	system := models.SystemActor()
	payload, _ := json.Marshal(struct {
		Changes []models.FieldChange `json:"changes"`
	}{Changes: changes})
	if err := p.lineageRepo.Append(ctx, &models.LineageEvent{
		TenantID:   rec.TenantID,
		RecordID:   rec.ID,
		Action:     models.ActionFieldUpdate,
		FromStatus: from,
		ToStatus:   rec.Status,
		ActorID:    system.ID,
		ActorRole:  system.Role,
		Payload:    payload,
	}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.WithFields(map[string]any{"changed_fields": len(changes)}).Info("Updated record from feed")
	p.emitter.EmitRecordTransitioned(ctx, rec, models.ActionFieldUpdate)
	return nil
}

// feedRecord builds the record a delivery describes, keyed like the stored
// one so fingerprints are comparable.
func feedRecord(rec *models.Record, req models.CreateRecordRequest) *models.Record {
	incoming := &models.Record{SourceSystem: rec.SourceSystem}
	incoming.TaxNumber = req.TaxNumber
	incoming.CompanyName = req.CompanyName
	incoming.CompanyNameAr = req.CompanyNameAr
	incoming.Country = req.Country
	incoming.City = req.City
	incoming.Street = req.Street
	incoming.Building = req.Building
	incoming.Email = req.Email
	incoming.Phone = req.Phone
	incoming.SalesOrg = req.SalesOrg
	incoming.DistributionChannel = req.DistributionChannel
	incoming.Division = req.Division
	return incoming
}
