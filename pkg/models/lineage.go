package models

import (
	"encoding/json"
	"time"
)

// LineageEvent is one append-only history entry for a record. Events are
// never updated or deleted; correction happens by appending a new event.
type LineageEvent struct {
	ID       string `json:"id" db:"id"`
	TenantID string `json:"tenant_id" db:"tenant_id"`
	RecordID string `json:"record_id" db:"record_id"`

	Action     LifecycleAction `json:"action" db:"action"`
	FromStatus RecordStatus    `json:"from_status" db:"from_status"`
	ToStatus   RecordStatus    `json:"to_status" db:"to_status"`

	ActorID   string `json:"actor_id" db:"actor_id"`
	ActorRole Role   `json:"actor_role" db:"actor_role"`

	Note    string          `json:"note,omitempty" db:"note"`
	Payload json.RawMessage `json:"payload,omitempty" db:"payload"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FieldChange is a single before/after pair recorded in a FIELD_UPDATE
// event payload.
type FieldChange struct {
	Field string `json:"field"`
	From  string `json:"from"`
	To    string `json:"to"`
}

// MergePayload is the payload shape for MERGE and LINK events.
type MergePayload struct {
	MasterID       string   `json:"master_id"`
	SourceRecords  []string `json:"source_records,omitempty"`
	GroupKey       string   `json:"group_key,omitempty"`
	BuildStrategy  string   `json:"build_strategy,omitempty"`
	QuarantineNote string   `json:"quarantine_note,omitempty"`
}

// LineageListResponse is the response for listing a record's history.
type LineageListResponse struct {
	Items      []LineageEvent `json:"items"`
	TotalCount int            `json:"total_count"`
}
