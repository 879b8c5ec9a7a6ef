/*
handlers_test.go - HTTP-level tests for the engine consumers

Tests for:
- Cross-consumer consistency: dashboard, matrices, report and progress
  must all report the same adjusted numbers
- Error mapping for unavailable data sources and invalid input
- The leave mutation flow end to end
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thegspiro/the-logbook-sub005/compliance"
	"github.com/thegspiro/the-logbook-sub005/leave"
	"github.com/thegspiro/the-logbook-sub005/leave/store"
)

const testOrg = "dept-1"

type testEnv struct {
	router   http.Handler
	mem      *store.Memory
	fixtures *store.Fixtures
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mem := store.NewMemory()
	fx := store.NewFixtures()
	ev := &compliance.Evaluator{
		Waivers:      leave.NewFetcher(mem),
		Requirements: fx,
		Activity:     fx,
		Roster:       fx,
		Meetings:     fx,
	}
	h := NewHandler(ev, leave.NewCoordinator(mem), mem)
	return &testEnv{router: NewRouter(h), mem: mem, fixtures: fx}
}

func (e *testEnv) get(t *testing.T, path string, out any) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

func (e *testEnv) send(t *testing.T, method, path string, body any, out any) int {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, json.NewEncoder(buf).Encode(body))
	req := httptest.NewRequest(method, path, buf)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		require.NoError(t, json.NewDecoder(rec.Body).Decode(out))
	}
	return rec.Code
}

func seedTrainingHours(e *testEnv) {
	e.fixtures.AddRequirement(testOrg, compliance.Requirement{
		ID:            "training-hours",
		Name:          "Annual Training Hours",
		Type:          compliance.TypeHours,
		Frequency:     compliance.FrequencyAnnual,
		RequiredValue: decimal.NewFromInt(24),
	})
	e.fixtures.AddMember(testOrg, "u1")
	e.fixtures.SetCompleted(testOrg, "u1", "training-hours", decimal.NewFromInt(17))
}

// =============================================================================
// CROSS-CONSUMER CONSISTENCY
// =============================================================================

func TestReadPaths_AgreeOnAdjustedNumbers(t *testing.T) {
	// GIVEN: A member with a March-May leave and a 24-hour annual requirement
	// WHEN: Reading the dashboard, both matrices, the report and progress
	// THEN: Every view reports adjusted_required = 18 with 3 waived months

	env := newTestEnv(t)
	seedTrainingHours(env)

	code := env.send(t, http.MethodPost, "/api/orgs/dept-1/leaves", CreateLeaveRequest{
		UserID:    "u1",
		StartDate: "2026-03-01",
		EndDate:   strPtr("2026-05-31"),
		Type:      "medical",
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	asOf := "?as_of=2026-06-15"
	check := func(view string, s StandingDTO) {
		t.Helper()
		assert.Equal(t, 18.0, s.AdjustedRequired, "%s: adjusted_required", view)
		assert.Equal(t, 24.0, s.BaseRequired, "%s: base_required", view)
		assert.Equal(t, 3, s.WaivedMonths, "%s: waived_months", view)
		assert.Equal(t, 9, s.ActiveMonths, "%s: active_months", view)
		assert.Equal(t, 17.0, s.Completed, "%s: completed", view)
		assert.False(t, s.Met, "%s: met", view)
		assert.NotEmpty(t, s.AdjustmentNote, "%s: adjustment_note", view)
	}

	var dash DashboardDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/members/u1/dashboard"+asOf, &dash))
	require.Len(t, dash.Standings, 1)
	check("dashboard", dash.Standings[0])

	var matrix MatrixDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/compliance-matrix"+asOf, &matrix))
	require.Len(t, matrix.Members["u1"], 1)
	check("compliance-matrix", matrix.Members["u1"][0])

	var competency MatrixDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/competency-matrix"+asOf, &competency))
	require.Len(t, competency.Members["u1"], 1, "hours requirements belong on the competency matrix")
	check("competency-matrix", competency.Members["u1"][0])

	var report ReportDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/reports/training"+asOf, &report))
	require.Len(t, report.Rows, 1)
	check("report", report.Rows[0].StandingDTO)

	var progress ProgressDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/members/u1/programs/training-hours/progress"+asOf, &progress))
	check("progress", progress.Standing)
	assert.InDelta(t, 17.0/18.0*100, progress.PercentComplete, 0.0001)
}

func TestCompetencyMatrix_ExcludesBinaryRequirements(t *testing.T) {
	env := newTestEnv(t)
	seedTrainingHours(env)
	env.fixtures.AddRequirement(testOrg, compliance.Requirement{
		ID:            "cpr-cert",
		Name:          "CPR Certification",
		Type:          compliance.TypeCertification,
		Frequency:     compliance.FrequencyBiannual,
		RequiredValue: decimal.NewFromInt(1),
	})

	var full MatrixDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/compliance-matrix?as_of=2026-06-15", &full))
	assert.Len(t, full.Members["u1"], 2)

	var competency MatrixDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/competency-matrix?as_of=2026-06-15", &competency))
	require.Len(t, competency.Members["u1"], 1)
	assert.Equal(t, "training-hours", competency.Members["u1"][0].RequirementID)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

func TestReadPaths_DataSourceDown_Returns503(t *testing.T) {
	// GIVEN: A waiver store whose reads fail
	// WHEN: Reading any engine consumer
	// THEN: 503 with the data_unavailable code; never an empty-waiver 200

	env := newTestEnv(t)
	seedTrainingHours(env)
	env.mem.FailReads = true

	req := httptest.NewRequest(http.MethodGet, "/api/orgs/dept-1/members/u1/dashboard", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "data_unavailable", resp.Code)
}

func TestCreateLeave_InvertedDates_Returns400(t *testing.T) {
	env := newTestEnv(t)

	code := env.send(t, http.MethodPost, "/api/orgs/dept-1/leaves", CreateLeaveRequest{
		UserID:    "u1",
		StartDate: "2026-05-31",
		EndDate:   strPtr("2026-03-01"),
		Type:      "medical",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestDeactivateLeave_Unknown_Returns404(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodDelete, "/api/orgs/dept-1/leaves/nope", nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// MUTATION FLOW
// =============================================================================

func TestLeaveLifecycle_OverHTTP(t *testing.T) {
	// GIVEN: A created leave
	// WHEN: Updating dates, toggling exemption, deactivating
	// THEN: Each response reflects the expected link state

	env := newTestEnv(t)
	seedTrainingHours(env)

	var created LeaveDTO
	code := env.send(t, http.MethodPost, "/api/orgs/dept-1/leaves", CreateLeaveRequest{
		UserID:    "u1",
		StartDate: "2026-03-01",
		EndDate:   strPtr("2026-05-31"),
		Type:      "military",
		Reason:    "deployment",
	}, &created)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, "linked-active", created.LinkState)
	require.NotNil(t, created.LinkedWaiverID)

	var waivers []WaiverDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/waivers/", &waivers))
	require.Len(t, waivers, 1)
	assert.Equal(t, *created.LinkedWaiverID, waivers[0].ID)

	var updated LeaveDTO
	code = env.send(t, http.MethodPut, fmt.Sprintf("/api/orgs/dept-1/leaves/%s/dates", created.ID), UpdateLeaveDatesRequest{
		StartDate: "2026-04-01",
		EndDate:   strPtr("2026-06-30"),
	}, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "2026-04-01", updated.StartDate)

	code = env.send(t, http.MethodPut, fmt.Sprintf("/api/orgs/dept-1/leaves/%s/exempt", created.ID), SetExemptRequest{Exempt: true}, &updated)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "exempt", updated.LinkState)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/orgs/dept-1/leaves/%s", created.ID), nil)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	// Nothing active remains on either side.
	leaves, err := env.mem.ActiveLeavesByOrg(context.Background(), testOrg)
	require.NoError(t, err)
	assert.Empty(t, leaves)
	active, err := env.mem.ActiveWaiversByOrg(context.Background(), testOrg)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestStandaloneWaiver_ScopedToRequirement(t *testing.T) {
	// GIVEN: A standalone waiver scoped to one requirement
	// WHEN: Reading the dashboard
	// THEN: Only that requirement is adjusted

	env := newTestEnv(t)
	seedTrainingHours(env)
	env.fixtures.AddRequirement(testOrg, compliance.Requirement{
		ID:            "duty-shifts",
		Name:          "Duty Shifts",
		Type:          compliance.TypeShifts,
		Frequency:     compliance.FrequencyAnnual,
		RequiredValue: decimal.NewFromInt(48),
	})

	code := env.send(t, http.MethodPost, "/api/orgs/dept-1/waivers", CreateWaiverRequest{
		UserID:         "u1",
		StartDate:      "2026-01-01",
		EndDate:        strPtr("2026-03-31"),
		RequirementIDs: []string{"training-hours"},
		Reason:         "light duty",
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	var dash DashboardDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/members/u1/dashboard?as_of=2026-06-15", &dash))
	require.Len(t, dash.Standings, 2)

	byID := map[string]StandingDTO{}
	for _, s := range dash.Standings {
		byID[s.RequirementID] = s
	}
	assert.Equal(t, 18.0, byID["training-hours"].AdjustedRequired)
	assert.Equal(t, 48.0, byID["duty-shifts"].AdjustedRequired, "unscoped requirement stays at its base value")
}

// =============================================================================
// ATTENDANCE AND ELIGIBILITY
// =============================================================================

func TestAttendanceAndEligibility(t *testing.T) {
	// GIVEN: 10 meetings, 6 attended, a leave covering two meeting dates
	// WHEN: Reading attendance and election eligibility
	// THEN: Percentage is 75 and the member clears the 50% bar once the
	//       training requirement is met

	env := newTestEnv(t)
	seedTrainingHours(env)
	for m := time.January; m <= time.October; m++ {
		env.fixtures.AddMeeting(testOrg, compliance.Meeting{
			ID:   fmt.Sprintf("mtg-%d", int(m)),
			Date: compliance.NewDate(2026, m, 1),
		})
	}
	env.fixtures.SetAttendance(testOrg, "u1", 6, 0)

	code := env.send(t, http.MethodPost, "/api/orgs/dept-1/leaves", CreateLeaveRequest{
		UserID:    "u1",
		StartDate: "2026-08-20",
		EndDate:   strPtr("2026-10-10"),
		Type:      "medical",
	}, nil)
	require.Equal(t, http.StatusCreated, code)

	var att AttendanceDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/members/u1/attendance?as_of=2026-11-01", &att))
	assert.Equal(t, 2, att.ExcludedOnLeave)
	assert.Equal(t, 8, att.EligibleMeetings)
	assert.Equal(t, 75.0, att.AttendancePct)

	// 17 of 24 hours completed. Only September clears the 15-day bar
	// (August has 12 covered days, October 10), so adjusted = 24 * 11/12 = 22
	// and the requirement is not met yet.
	var elig EligibilityDTO
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/members/u1/election-eligibility?as_of=2026-11-01", &elig))
	assert.True(t, elig.AttendanceMet)
	assert.False(t, elig.Eligible)
	assert.Equal(t, 1, elig.UnmetRequirements)

	env.fixtures.SetCompleted(testOrg, "u1", "training-hours", decimal.NewFromInt(22))
	require.Equal(t, http.StatusOK, env.get(t, "/api/orgs/dept-1/members/u1/election-eligibility?as_of=2026-11-01", &elig))
	assert.True(t, elig.Eligible)
}

func strPtr(s string) *string { return &s }
