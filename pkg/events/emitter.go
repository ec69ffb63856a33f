// Package events handles event emission for record lifecycle changes
package events

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/kafka"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/tracing"
)

// Event types published to the record events topic.
const (
	EventRecordCreated      = "record.created"
	EventRecordTransitioned = "record.transitioned"
	EventMasterBuilt        = "record.master_built"
	EventRecordQuarantined  = "record.quarantined"
)

// Emitter publishes record lifecycle events. Emission happens after the
// owning transaction commits; a failed publish is logged and dropped rather
// than rolling back committed state.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitRecordCreated emits a record created event
func (e *Emitter) EmitRecordCreated(ctx context.Context, record *models.Record) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordCreated")
	defer span.End()

	e.publish(ctx, &kafka.RecordEvent{
		EventType: EventRecordCreated,
		TenantID:  record.TenantID,
		RecordID:  record.ID,
		Status:    string(record.Status),
	})
}

// EmitRecordTransitioned emits a lifecycle transition event
func (e *Emitter) EmitRecordTransitioned(ctx context.Context, record *models.Record, action models.LifecycleAction) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordTransitioned")
	defer span.End()

	e.publish(ctx, &kafka.RecordEvent{
		EventType: EventRecordTransitioned,
		TenantID:  record.TenantID,
		RecordID:  record.ID,
		Status:    string(record.Status),
		Action:    string(action),
	})
}

// EmitMasterBuilt emits an event for a newly materialized master record
func (e *Emitter) EmitMasterBuilt(ctx context.Context, master *models.Record, sourceIDs []string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitMasterBuilt")
	defer span.End()

	e.publish(ctx, &kafka.RecordEvent{
		EventType:     EventMasterBuilt,
		TenantID:      master.TenantID,
		RecordID:      master.ID,
		Status:        string(master.Status),
		SourceRecords: sourceIDs,
	})
}

// EmitRecordQuarantined emits a quarantine event
func (e *Emitter) EmitRecordQuarantined(ctx context.Context, record *models.Record, masterID string) {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitRecordQuarantined")
	defer span.End()

	e.publish(ctx, &kafka.RecordEvent{
		EventType: EventRecordQuarantined,
		TenantID:  record.TenantID,
		RecordID:  record.ID,
		Status:    string(record.Status),
		MasterID:  masterID,
	})
}

func (e *Emitter) publish(ctx context.Context, event *kafka.RecordEvent) {
	if e == nil || e.producer == nil {
		return
	}
	if err := e.producer.PublishRecordEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"event_type": event.EventType,
			"record_id":  event.RecordID,
		}).Error("Failed to emit record event")
	}
}
