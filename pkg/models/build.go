package models

// Build strategies recorded on master records.
const (
	BuildStrategyAutoBest = "auto_best_quality"
	BuildStrategyManual   = "manual"
)

// FieldSelection chooses the value for one master field: either the value
// from a contributing record (SourceRecordID) or an operator-typed value
// (ManualValue, with SourceRecordID left empty).
type FieldSelection struct {
	Field          string `json:"field" validate:"required"`
	SourceRecordID string `json:"source_record_id,omitempty"`
	ManualValue    string `json:"manual_value,omitempty"`
}

// BuildMasterRequest submits a master built from a duplicate group.
// SourceRecordIDs lists the records being merged; Selections override the
// automatic best-quality fill per field; StagedContacts and StagedDocuments
// pick sub-entities to copy onto the master.
type BuildMasterRequest struct {
	GroupKey        string           `json:"group_key" validate:"required"`
	SourceRecordIDs []string         `json:"source_record_ids" validate:"required,min=2"`
	Selections      []FieldSelection `json:"selections" validate:"omitempty,dive"`
	StagedContacts  []StagedContact  `json:"staged_contacts" validate:"omitempty,dive"`
	StagedDocuments []StagedDocument `json:"staged_documents" validate:"omitempty,dive"`
	QuarantineIDs   []string         `json:"quarantine_ids"`
	QuarantineNote  string           `json:"quarantine_note,omitempty"`
}

// ResubmitMasterRequest corrects and resubmits a rejected master. Only the
// field selections may change; the source record set is fixed at build time.
type ResubmitMasterRequest struct {
	Selections      []FieldSelection `json:"selections" validate:"omitempty,dive"`
	StagedContacts  []StagedContact  `json:"staged_contacts" validate:"omitempty,dive"`
	StagedDocuments []StagedDocument `json:"staged_documents" validate:"omitempty,dive"`
}

// ApproveMasterRequest carries a reviewer approval. QuarantineIDs names
// still-open group members to withhold at approval time.
type ApproveMasterRequest struct {
	Note          string   `json:"note,omitempty"`
	QuarantineIDs []string `json:"quarantine_ids,omitempty"`
}

// NoteRequest carries an optional note on a compliance approval.
type NoteRequest struct {
	Note string `json:"note,omitempty"`
}

// DecisionRequest carries a reject/block decision with its reason.
type DecisionRequest struct {
	Reason string `json:"reason" validate:"required,min=10"`
}

// BuildMasterResponse returns the created master and the disposition of
// every group member.
type BuildMasterResponse struct {
	Master      Record   `json:"master"`
	Linked      []string `json:"linked"`
	Quarantined []string `json:"quarantined"`
}
