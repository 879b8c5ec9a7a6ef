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

// =============================================================================
// TEST SETUP
// =============================================================================

const testOrg = compliance.OrgID("dept-1")

func d(year int, month time.Month, day int) compliance.Date {
	return compliance.NewDate(year, month, day)
}

func dptr(year int, month time.Month, day int) *compliance.Date {
	v := compliance.NewDate(year, month, day)
	return &v
}

func newLeave(id, user string, start compliance.Date, end *compliance.Date) leave.LeaveOfAbsence {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return leave.LeaveOfAbsence{
		ID:        id,
		OrgID:     testOrg,
		UserID:    compliance.UserID(user),
		StartDate: start,
		EndDate:   end,
		Type:      leave.LeaveMedical,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newWaiver(id, user string, start compliance.Date, end *compliance.Date) leave.TrainingWaiver {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return leave.TrainingWaiver{
		ID:        id,
		OrgID:     testOrg,
		UserID:    compliance.UserID(user),
		StartDate: start,
		EndDate:   end,
		Reason:    "injury recovery",
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// =============================================================================
// NORMALIZATION TESTS
// =============================================================================

func TestFetchUserWaivers_BothSourcesNormalized(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	fetcher := leave.NewFetcher(mem)

	require.NoError(t, mem.CreateLeave(ctx, newLeave("l1", "u1", d(2026, time.March, 1), dptr(2026, time.May, 31))))
	require.NoError(t, mem.CreateWaiver(ctx, newWaiver("w1", "u1", d(2026, time.September, 1), dptr(2026, time.September, 30))))

	periods, err := fetcher.FetchUserWaivers(ctx, testOrg, "u1")
	require.NoError(t, err)
	require.Len(t, periods, 2)

	for _, p := range periods {
		assert.Equal(t, compliance.UserID("u1"), p.UserID)
	}
}

func TestFetchUserWaivers_OpenEndedLeave_RunsToForever(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	fetcher := leave.NewFetcher(mem)

	require.NoError(t, mem.CreateLeave(ctx, newLeave("l1", "u1", d(2026, time.March, 1), nil)))

	periods, err := fetcher.FetchUserWaivers(ctx, testOrg, "u1")
	require.NoError(t, err)
	require.Len(t, periods, 1)
	assert.True(t, periods[0].Window.End.Equal(compliance.Forever))
}

func TestFetchUserWaivers_LinkedWaiverSkipped(t *testing.T) {
	// GIVEN: A leave created through the coordinator (derived waiver linked)
	// WHEN: Fetching the member's waiver periods
	// THEN: Exactly one period comes back, not two

	ctx := context.Background()
	mem := store.NewMemory()
	coord := leave.NewCoordinator(mem)
	fetcher := leave.NewFetcher(mem)

	_, err := coord.CreateLeave(ctx, leave.CreateLeaveInput{
		OrgID:     testOrg,
		UserID:    "u1",
		StartDate: d(2026, time.March, 1),
		EndDate:   dptr(2026, time.May, 31),
		Type:      leave.LeaveMedical,
	})
	require.NoError(t, err)

	periods, err := fetcher.FetchUserWaivers(ctx, testOrg, "u1")
	require.NoError(t, err)
	assert.Len(t, periods, 1, "the leave and its derived waiver must count once")
}

func TestFetchUserWaivers_ExemptLeaveSkipped(t *testing.T) {
	// GIVEN: An exempt leave
	// WHEN: Fetching waiver periods and leave periods
	// THEN: The training path sees nothing, the attendance path sees the leave

	ctx := context.Background()
	mem := store.NewMemory()
	fetcher := leave.NewFetcher(mem)

	l := newLeave("l1", "u1", d(2026, time.March, 1), dptr(2026, time.May, 31))
	l.ExemptFromTrainingWaiver = true
	require.NoError(t, mem.CreateLeave(ctx, l))

	periods, err := fetcher.FetchUserWaivers(ctx, testOrg, "u1")
	require.NoError(t, err)
	assert.Empty(t, periods, "exempt leave must not reduce training targets")

	leaves, err := fetcher.FetchUserLeaves(ctx, testOrg, "u1")
	require.NoError(t, err)
	assert.Len(t, leaves, 1, "exempt leave still excuses meetings")
}

// =============================================================================
// BATCH / SINGLE EQUIVALENCE
// =============================================================================

func TestFetchOrgWaivers_EquivalentToPerUserFetches(t *testing.T) {
	// GIVEN: Three members with a mix of leaves, standalone waivers and
	//        waiver-only records
	// WHEN: Fetching per-user and org-wide
	// THEN: The batch result matches the per-user result for every member

	ctx := context.Background()
	mem := store.NewMemory()
	fetcher := leave.NewFetcher(mem)

	require.NoError(t, mem.CreateLeave(ctx, newLeave("l1", "u1", d(2026, time.February, 1), dptr(2026, time.April, 30))))
	require.NoError(t, mem.CreateWaiver(ctx, newWaiver("w1", "u1", d(2026, time.August, 1), dptr(2026, time.August, 31))))
	require.NoError(t, mem.CreateLeave(ctx, newLeave("l2", "u2", d(2026, time.June, 1), nil)))
	require.NoError(t, mem.CreateWaiver(ctx, newWaiver("w2", "u3", d(2026, time.January, 1), dptr(2026, time.December, 31))))

	batch, err := fetcher.FetchOrgWaivers(ctx, testOrg)
	require.NoError(t, err)

	for _, user := range []compliance.UserID{"u1", "u2", "u3"} {
		single, err := fetcher.FetchUserWaivers(ctx, testOrg, user)
		require.NoError(t, err)
		assert.ElementsMatch(t, single, batch[user], "user %s diverges between paths", user)
	}
}

// =============================================================================
// FAIL-CLOSED BEHAVIOR
// =============================================================================

func TestFetchers_StoreFailure_FailsClosed(t *testing.T) {
	// GIVEN: A store whose reads fail
	// WHEN: Fetching through any path
	// THEN: ErrDataUnavailable propagates; nothing resembles "no waivers"

	ctx := context.Background()
	mem := store.NewMemory()
	mem.FailReads = true
	fetcher := leave.NewFetcher(mem)

	_, err := fetcher.FetchUserWaivers(ctx, testOrg, "u1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, compliance.ErrDataUnavailable))

	var due *compliance.DataUnavailableError
	require.True(t, errors.As(err, &due))
	assert.Equal(t, "leaves_of_absence", due.Source)

	_, err = fetcher.FetchOrgWaivers(ctx, testOrg)
	assert.True(t, errors.Is(err, compliance.ErrDataUnavailable))

	_, err = fetcher.FetchUserLeaves(ctx, testOrg, "u1")
	assert.True(t, errors.Is(err, compliance.ErrDataUnavailable))
}
