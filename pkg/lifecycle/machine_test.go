package lifecycle

import (
	"testing"

	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/apperrors"
	"github.com/ahamdihussein-star/HSA-MDM-sub002/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	dataEntry  = models.Actor{ID: "u-de", Role: models.RoleDataEntry}
	reviewer   = models.Actor{ID: "u-rev", Role: models.RoleReviewer}
	compliance = models.Actor{ID: "u-comp", Role: models.RoleCompliance}
)

func pendingRecord() *models.Record {
	return &models.Record{
		ID:         "rec-1",
		Status:     models.StatusPending,
		AssignedTo: models.RoleReviewer,
	}
}

func TestMachine_Apply_HappyPath(t *testing.T) {
	machine := NewMachine()
	record := &models.Record{ID: "rec-1", Status: models.StatusDraft, AssignedTo: models.RoleDataEntry}

	// Draft -> Pending
	outcome, err := machine.Apply(record, models.ActionSubmit, dataEntry, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDraft, outcome.FromStatus)
	assert.Equal(t, models.StatusPending, outcome.ToStatus)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.Equal(t, models.RoleReviewer, record.AssignedTo)

	// Pending -> Approved, handed to compliance
	_, err = machine.Apply(record, models.ActionMasterApprove, reviewer, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, record.Status)
	assert.Equal(t, models.RoleCompliance, record.AssignedTo)
	assert.False(t, record.IsGolden)

	// Approved -> Approved golden
	outcome, err = machine.Apply(record, models.ActionComplianceApprove, compliance, "")
	require.NoError(t, err)
	assert.True(t, outcome.SetGolden)
	assert.True(t, record.IsGolden)
	assert.Equal(t, models.StatusApproved, record.Status)
}

func TestMachine_Apply_RejectAndResubmit(t *testing.T) {
	machine := NewMachine()
	record := pendingRecord()

	_, err := machine.Apply(record, models.ActionMasterReject, reviewer, "tax number does not match registry")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, record.Status)
	assert.Equal(t, models.RoleDataEntry, record.AssignedTo)
	require.NotNil(t, record.RejectReason)
	assert.Equal(t, "tax number does not match registry", *record.RejectReason)

	_, err = machine.Apply(record, models.ActionResubmitToMaster, dataEntry, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, record.Status)
	assert.Equal(t, models.RoleReviewer, record.AssignedTo)
	assert.Nil(t, record.RejectReason, "reject reason cleared on resubmission")
}

func TestMachine_Apply_ComplianceBlock(t *testing.T) {
	machine := NewMachine()
	record := &models.Record{ID: "rec-1", Status: models.StatusApproved, AssignedTo: models.RoleCompliance}

	_, err := machine.Apply(record, models.ActionComplianceBlock, compliance, "entity appears on sanctions list")
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, record.Status)
	assert.True(t, record.IsGolden, "block still marks the compliance decision")
	require.NotNil(t, record.BlockReason)
}

func TestMachine_Apply_ReasonValidation(t *testing.T) {
	machine := NewMachine()

	t.Run("reject requires reason of minimum length", func(t *testing.T) {
		record := pendingRecord()
		_, err := machine.Apply(record, models.ActionMasterReject, reviewer, "too short")
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
		assert.Equal(t, models.StatusPending, record.Status, "record untouched on failure")
	})

	t.Run("whitespace does not pad the reason", func(t *testing.T) {
		record := pendingRecord()
		_, err := machine.Apply(record, models.ActionMasterReject, reviewer, "  bad     ")
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})

	t.Run("block requires reason", func(t *testing.T) {
		record := &models.Record{Status: models.StatusApproved}
		_, err := machine.Apply(record, models.ActionComplianceBlock, compliance, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	})
}

func TestMachine_Apply_Authorization(t *testing.T) {
	machine := NewMachine()

	cases := []struct {
		name   string
		status models.RecordStatus
		action models.LifecycleAction
		actor  models.Actor
	}{
		{"data entry cannot approve", models.StatusPending, models.ActionMasterApprove, dataEntry},
		{"reviewer cannot compliance approve", models.StatusApproved, models.ActionComplianceApprove, reviewer},
		{"compliance cannot resubmit", models.StatusRejected, models.ActionResubmitToMaster, compliance},
		{"users cannot quarantine directly", models.StatusPending, models.ActionQuarantine, reviewer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := &models.Record{Status: tc.status}
			_, err := machine.Apply(record, tc.action, tc.actor, "a sufficiently long reason")
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindAuthorization), "got kind %s", apperrors.Kind(err))
		})
	}
}

func TestMachine_Apply_StateConflict(t *testing.T) {
	machine := NewMachine()

	cases := []struct {
		name   string
		status models.RecordStatus
		action models.LifecycleAction
		actor  models.Actor
	}{
		{"approve from rejected", models.StatusRejected, models.ActionMasterApprove, reviewer},
		{"resubmit from pending", models.StatusPending, models.ActionResubmitToMaster, dataEntry},
		{"compliance approve before review", models.StatusPending, models.ActionComplianceApprove, compliance},
		{"quarantine a blocked record", models.StatusBlocked, models.ActionQuarantine, models.SystemActor()},
		{"link a linked record", models.StatusLinked, models.ActionLink, models.SystemActor()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			record := &models.Record{Status: tc.status}
			_, err := machine.Apply(record, tc.action, tc.actor, "a sufficiently long reason")
			require.Error(t, err)
			assert.True(t, apperrors.IsKind(err, apperrors.KindStateConflict), "got kind %s", apperrors.Kind(err))
		})
	}
}

func TestMachine_Apply_SystemTransitions(t *testing.T) {
	machine := NewMachine()

	t.Run("quarantine from any non-terminal state", func(t *testing.T) {
		for _, status := range []models.RecordStatus{models.StatusDraft, models.StatusPending, models.StatusRejected, models.StatusApproved} {
			record := &models.Record{Status: status}
			outcome, err := machine.Apply(record, models.ActionQuarantine, models.SystemActor(), "sanctions list match")
			require.NoError(t, err, string(status))
			assert.Equal(t, models.StatusQuarantined, outcome.ToStatus)
			require.NotNil(t, record.QuarantineReason)
		}
	})

	t.Run("link assigns linked status", func(t *testing.T) {
		record := pendingRecord()
		_, err := machine.Apply(record, models.ActionLink, models.SystemActor(), "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusLinked, record.Status)
	})
}
