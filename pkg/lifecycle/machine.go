// Package lifecycle owns the legal states and transitions for records and
// enforces role-gated transition legality. The machine itself is pure: it
// validates and mutates an in-memory record, and the service layer persists
// the result atomically with its lineage event.
package lifecycle

import (
	"strings"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
)

// MinReasonLength is the minimum length for reject/block reason text.
const MinReasonLength = 10

// Transition is one legal edge in the state machine.
type Transition struct {
	Action models.LifecycleAction
	// From lists the legal source states. Empty means any non-terminal
	// state (system transitions like QUARANTINE and LINK).
	From []models.RecordStatus
	To   models.RecordStatus
	// Role that may invoke the transition.
	Role models.Role
	// AssignTo, when set, is the role holding the record afterwards.
	AssignTo models.Role
	// RequiresReason demands reason text of at least MinReasonLength.
	RequiresReason bool
	// SetsGolden marks the record golden on success.
	SetsGolden bool
}

// Outcome reports what a successful transition did, for lineage recording.
type Outcome struct {
	Action     models.LifecycleAction
	FromStatus models.RecordStatus
	ToStatus   models.RecordStatus
	SetGolden  bool
}

// Machine validates and applies lifecycle transitions.
type Machine struct {
	transitions []Transition
}

// NewMachine builds the machine with the default transition table.
func NewMachine() *Machine {
	return &Machine{transitions: defaultTransitions()}
}

func defaultTransitions() []Transition {
	return []Transition{
		{
			Action:   models.ActionCreate,
			From:     []models.RecordStatus{models.StatusDraft},
			To:       models.StatusPending,
			Role:     models.RoleDataEntry,
			AssignTo: models.RoleReviewer,
		},
		{
			Action:   models.ActionSubmit,
			From:     []models.RecordStatus{models.StatusDraft, models.StatusUpdated},
			To:       models.StatusPending,
			Role:     models.RoleDataEntry,
			AssignTo: models.RoleReviewer,
		},
		{
			Action:   models.ActionResubmitToMaster,
			From:     []models.RecordStatus{models.StatusRejected, models.StatusUpdated},
			To:       models.StatusPending,
			Role:     models.RoleDataEntry,
			AssignTo: models.RoleReviewer,
		},
		{
			Action:   models.ActionMasterApprove,
			From:     []models.RecordStatus{models.StatusPending},
			To:       models.StatusApproved,
			Role:     models.RoleReviewer,
			AssignTo: models.RoleCompliance,
		},
		{
			Action:         models.ActionMasterReject,
			From:           []models.RecordStatus{models.StatusPending},
			To:             models.StatusRejected,
			Role:           models.RoleReviewer,
			AssignTo:       models.RoleDataEntry,
			RequiresReason: true,
		},
		{
			Action:     models.ActionComplianceApprove,
			From:       []models.RecordStatus{models.StatusApproved},
			To:         models.StatusApproved,
			Role:       models.RoleCompliance,
			SetsGolden: true,
		},
		{
			Action:         models.ActionComplianceBlock,
			From:           []models.RecordStatus{models.StatusApproved},
			To:             models.StatusBlocked,
			Role:           models.RoleCompliance,
			RequiresReason: true,
			SetsGolden:     true,
		},
		{
			Action: models.ActionQuarantine,
			To:     models.StatusQuarantined,
			Role:   models.RoleSystem,
		},
		{
			Action: models.ActionLink,
			To:     models.StatusLinked,
			Role:   models.RoleSystem,
		},
	}
}

// Resolve finds the transition for action from the given state. Returns a
// state-conflict error when no edge leaves the current state under this
// action, and an authorization error when the edge exists but the actor's
// role may not take it.
func (m *Machine) Resolve(action models.LifecycleAction, from models.RecordStatus, role models.Role) (Transition, error) {
	var candidate *Transition
	for i := range m.transitions {
		t := &m.transitions[i]
		if t.Action != action {
			continue
		}
		candidate = t
		if t.allowsFrom(from) {
			if t.Role != role {
				return Transition{}, apperrors.Authorizationf("role %s may not perform %s", role, action)
			}
			return *t, nil
		}
	}

	if candidate == nil {
		return Transition{}, apperrors.StateConflictf("unknown lifecycle action %s", action)
	}
	return Transition{}, apperrors.StateConflictf("%s is not legal from status %s", action, from)
}

func (t *Transition) allowsFrom(from models.RecordStatus) bool {
	if len(t.From) == 0 {
		return !from.IsTerminal()
	}
	for _, s := range t.From {
		if s == from {
			return true
		}
	}
	return false
}

// Apply validates the transition and mutates the record in memory: status,
// assignment, golden flag, and the reason columns. The caller persists the
// record and the returned outcome's lineage event in one transaction.
func (m *Machine) Apply(record *models.Record, action models.LifecycleAction, actor models.Actor, reason string) (Outcome, error) {
	transition, err := m.Resolve(action, record.Status, actor.Role)
	if err != nil {
		return Outcome{}, err
	}

	reason = strings.TrimSpace(reason)
	if transition.RequiresReason && len(reason) < MinReasonLength {
		return Outcome{}, apperrors.ValidationField("reason must be at least 10 characters", "reason")
	}

	outcome := Outcome{
		Action:     action,
		FromStatus: record.Status,
		ToStatus:   transition.To,
		SetGolden:  transition.SetsGolden,
	}

	record.Status = transition.To
	if transition.AssignTo != "" {
		record.AssignedTo = transition.AssignTo
	}
	if transition.SetsGolden {
		record.IsGolden = true
	}

	switch action {
	case models.ActionMasterReject:
		record.RejectReason = &reason
	case models.ActionComplianceBlock:
		record.BlockReason = &reason
	case models.ActionResubmitToMaster:
		// Rejection is cleared only on successful resubmission.
		record.RejectReason = nil
	case models.ActionQuarantine:
		if reason != "" {
			record.QuarantineReason = &reason
		}
	}

	return outcome, nil
}
