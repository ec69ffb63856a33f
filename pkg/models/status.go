package models

// RecordStatus is the lifecycle state of a record. Transitions between
// statuses are owned exclusively by the lifecycle state machine; nothing else
// in the engine writes the status column.
type RecordStatus string

const (
	// StatusDraft is a record being prepared by data entry, not yet submitted.
	StatusDraft RecordStatus = "draft"
	// StatusPending is a record awaiting reviewer action.
	StatusPending RecordStatus = "pending"
	// StatusRejected is a record returned to data entry with a reason.
	StatusRejected RecordStatus = "rejected"
	// StatusUpdated is a rejected record whose fields were edited but not yet resubmitted.
	StatusUpdated RecordStatus = "updated"
	// StatusApproved is a record approved by the reviewer, awaiting compliance.
	StatusApproved RecordStatus = "approved"
	// StatusQuarantined is a record withheld from merge pending compliance review.
	StatusQuarantined RecordStatus = "quarantined"
	// StatusBlocked is a record blocked by compliance. Terminal.
	StatusBlocked RecordStatus = "blocked"
	// StatusLinked is a group member merged into a master record. Terminal.
	StatusLinked RecordStatus = "linked"
)

// IsTerminal reports whether no further lifecycle transition may leave s.
// Approved is terminal only once the compliance decision landed, which is
// tracked by the record's IsGolden flag, so it is not terminal here.
func (s RecordStatus) IsTerminal() bool {
	switch s {
	case StatusBlocked, StatusLinked, StatusQuarantined:
		return true
	}
	return false
}

// Valid reports whether s is a known status value.
func (s RecordStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusRejected, StatusUpdated,
		StatusApproved, StatusQuarantined, StatusBlocked, StatusLinked:
		return true
	}
	return false
}

// LifecycleAction tags a lineage event with the operation that produced it.
type LifecycleAction string

const (
	ActionCreate            LifecycleAction = "CREATE"
	ActionSubmit            LifecycleAction = "SUBMIT"
	ActionResubmitToMaster  LifecycleAction = "RESUBMIT_TO_MASTER"
	ActionMasterApprove     LifecycleAction = "MASTER_APPROVE"
	ActionMasterReject      LifecycleAction = "MASTER_REJECT"
	ActionComplianceApprove LifecycleAction = "COMPLIANCE_APPROVE"
	ActionComplianceBlock   LifecycleAction = "COMPLIANCE_BLOCK"
	ActionMerge             LifecycleAction = "MERGE"
	ActionSupersede         LifecycleAction = "SUPERSEDE"
	ActionLink              LifecycleAction = "LINK"
	ActionQuarantine        LifecycleAction = "QUARANTINE"
	ActionFieldUpdate       LifecycleAction = "FIELD_UPDATE"
)
