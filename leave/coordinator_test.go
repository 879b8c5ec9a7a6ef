package leave_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thegspiro/the-logbook-sub005/compliance"
	"github.com/thegspiro/the-logbook-sub005/leave"
	"github.com/thegspiro/the-logbook-sub005/leave/store"
)

func newCoordinator(t *testing.T) (*leave.Coordinator, *store.Memory) {
	t.Helper()
	mem := store.NewMemory()
	return leave.NewCoordinator(mem), mem
}

func createLeave(t *testing.T, coord *leave.Coordinator, exempt bool) *leave.LeaveOfAbsence {
	t.Helper()
	l, err := coord.CreateLeave(context.Background(), leave.CreateLeaveInput{
		OrgID:                    testOrg,
		UserID:                   "u1",
		StartDate:                d(2026, time.March, 1),
		EndDate:                  dptr(2026, time.May, 31),
		Type:                     leave.LeaveMedical,
		Reason:                   "surgery recovery",
		ExemptFromTrainingWaiver: exempt,
	})
	require.NoError(t, err)
	return l
}

// =============================================================================
// STATE MACHINE TRANSITIONS
// =============================================================================

func TestCreateLeave_DerivesLinkedWaiver(t *testing.T) {
	// GIVEN: A non-exempt leave
	// WHEN: Created through the coordinator
	// THEN: A linked waiver exists with identical dates, unscoped, and the
	//       pair is in the linked-active state

	ctx := context.Background()
	coord, mem := newCoordinator(t)

	l := createLeave(t, coord, false)
	require.NotNil(t, l.LinkedWaiverID)
	assert.Equal(t, leave.LinkActive, l.LinkState())

	w, err := mem.GetWaiver(ctx, testOrg, *l.LinkedWaiverID)
	require.NoError(t, err)
	assert.True(t, w.Active)
	assert.True(t, w.StartDate.Equal(l.StartDate))
	require.NotNil(t, w.EndDate)
	assert.True(t, w.EndDate.Equal(*l.EndDate))
	assert.Empty(t, w.RequirementIDs, "derived waiver covers all requirements")
	require.NotNil(t, w.LinkedLeaveID)
	assert.Equal(t, l.ID, *w.LinkedLeaveID)
}

func TestCreateLeave_Exempt_NoWaiver(t *testing.T) {
	ctx := context.Background()
	coord, mem := newCoordinator(t)

	l := createLeave(t, coord, true)
	assert.Nil(t, l.LinkedWaiverID)
	assert.Equal(t, leave.LinkExempt, l.LinkState())

	waivers, err := mem.ActiveWaiversByUser(ctx, testOrg, "u1")
	require.NoError(t, err)
	assert.Empty(t, waivers)
}

func TestCreateLeave_InvertedDates_Rejected(t *testing.T) {
	coord, _ := newCoordinator(t)

	_, err := coord.CreateLeave(context.Background(), leave.CreateLeaveInput{
		OrgID:     testOrg,
		UserID:    "u1",
		StartDate: d(2026, time.May, 31),
		EndDate:   dptr(2026, time.March, 1),
		Type:      leave.LeaveMedical,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrInvalidPeriod))
}

func TestUpdateLeaveDates_PropagatesToWaiver(t *testing.T) {
	// GIVEN: A linked-active pair
	// WHEN: The leave's dates change
	// THEN: The waiver carries the identical new dates

	ctx := context.Background()
	coord, mem := newCoordinator(t)
	l := createLeave(t, coord, false)

	updated, err := coord.UpdateLeaveDates(ctx, testOrg, l.ID, d(2026, time.April, 1), dptr(2026, time.July, 15))
	require.NoError(t, err)
	assert.True(t, updated.StartDate.Equal(d(2026, time.April, 1)))

	w, err := mem.GetWaiver(ctx, testOrg, *updated.LinkedWaiverID)
	require.NoError(t, err)
	assert.True(t, w.StartDate.Equal(d(2026, time.April, 1)))
	require.NotNil(t, w.EndDate)
	assert.True(t, w.EndDate.Equal(d(2026, time.July, 15)))
}

func TestSetExempt_DeactivatesWaiver(t *testing.T) {
	ctx := context.Background()
	coord, mem := newCoordinator(t)
	l := createLeave(t, coord, false)
	waiverID := *l.LinkedWaiverID

	updated, err := coord.SetExempt(ctx, testOrg, l.ID, true)
	require.NoError(t, err)
	assert.Equal(t, leave.LinkExempt, updated.LinkState())
	assert.Nil(t, updated.LinkedWaiverID)

	w, err := mem.GetWaiver(ctx, testOrg, waiverID)
	require.NoError(t, err)
	assert.False(t, w.Active, "old waiver must be deactivated, not deleted")
}

func TestSetExempt_ClearingCreatesFreshWaiver(t *testing.T) {
	// GIVEN: An exempt active leave
	// WHEN: The exemption is cleared
	// THEN: A fresh derived waiver appears, linked both ways

	ctx := context.Background()
	coord, mem := newCoordinator(t)
	l := createLeave(t, coord, true)

	updated, err := coord.SetExempt(ctx, testOrg, l.ID, false)
	require.NoError(t, err)
	assert.Equal(t, leave.LinkActive, updated.LinkState())
	require.NotNil(t, updated.LinkedWaiverID)

	w, err := mem.GetWaiver(ctx, testOrg, *updated.LinkedWaiverID)
	require.NoError(t, err)
	assert.True(t, w.Active)
	require.NotNil(t, w.LinkedLeaveID)
	assert.Equal(t, l.ID, *w.LinkedLeaveID)
}

func TestDeactivateLeave_CascadesToWaiver(t *testing.T) {
	// GIVEN: A linked-active pair
	// WHEN: The leave is deactivated
	// THEN: No active waiver is left behind

	ctx := context.Background()
	coord, mem := newCoordinator(t)
	l := createLeave(t, coord, false)

	updated, err := coord.DeactivateLeave(ctx, testOrg, l.ID)
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.Equal(t, leave.LinkInactive, updated.LinkState())

	waivers, err := mem.ActiveWaiversByUser(ctx, testOrg, "u1")
	require.NoError(t, err)
	assert.Empty(t, waivers, "no orphaned active waiver after deactivation")
}

func TestCoordinator_UnknownLeave_NotFound(t *testing.T) {
	coord, _ := newCoordinator(t)

	_, err := coord.DeactivateLeave(context.Background(), testOrg, "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrNotFound))
	assert.False(t, errors.Is(err, compliance.ErrAtomicityFailure), "missing record is not an atomicity failure")
}

// =============================================================================
// ATOMICITY
// =============================================================================

func TestCreateLeave_WaiverWriteFails_NothingCommitted(t *testing.T) {
	// GIVEN: A store whose next waiver write fails
	// WHEN: Creating a non-exempt leave
	// THEN: The error is an atomicity failure and the leave was rolled back;
	//       no unprotected leave record exists

	ctx := context.Background()
	coord, mem := newCoordinator(t)
	mem.FailNextWaiverWrite()

	_, err := coord.CreateLeave(ctx, leave.CreateLeaveInput{
		OrgID:     testOrg,
		UserID:    "u1",
		StartDate: d(2026, time.March, 1),
		EndDate:   dptr(2026, time.May, 31),
		Type:      leave.LeaveMedical,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrAtomicityFailure))

	leaves, err := mem.ActiveLeavesByUser(ctx, testOrg, "u1")
	require.NoError(t, err)
	assert.Empty(t, leaves, "leave write must roll back with the waiver write")
}

func TestUpdateLeaveDates_WaiverWriteFails_LeaveUnchanged(t *testing.T) {
	ctx := context.Background()
	coord, mem := newCoordinator(t)
	l := createLeave(t, coord, false)

	mem.FailNextWaiverWrite()
	_, err := coord.UpdateLeaveDates(ctx, testOrg, l.ID, d(2026, time.January, 1), dptr(2026, time.February, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrAtomicityFailure))

	stored, err := mem.GetLeave(ctx, testOrg, l.ID)
	require.NoError(t, err)
	assert.True(t, stored.StartDate.Equal(d(2026, time.March, 1)), "dates must not change when the pair fails")
}
