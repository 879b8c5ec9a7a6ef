/*
source.go - Data source interfaces consumed by the engine

PURPOSE:
  Defines the narrow read interfaces between the calculation core and the
  persistence layer. The engine never touches tables directly: a fetcher in
  the leave package normalizes the two heterogeneous record kinds (leaves of
  absence, training waivers) into WaiverPeriods behind WaiverSource.

FAIL-CLOSED CONTRACT:
  When the underlying data source is unavailable, every method returns an
  error wrapping ErrDataUnavailable. Implementations and callers must never
  substitute an empty result: "no waivers" removes protection from members
  who are on leave.

BATCH CONTRACT:
  FetchOrgWaivers must be observationally equivalent to calling
  FetchUserWaivers for every member and grouping by user. It exists so
  organization-wide views (compliance matrix, competency matrix) issue one
  query instead of one per member.

IMPLEMENTATIONS:
  - leave.Fetcher over leave.Store (production path)
  - store/sqlite: RequirementSource, ActivitySource, MeetingSource, RosterSource
*/
package compliance

import (
	"context"

	"github.com/shopspring/decimal"
)

// WaiverSource provides normalized waiver periods for calculation.
type WaiverSource interface {
	// FetchUserWaivers returns all active waiver periods for one member,
	// from both leave-of-absence and training-waiver records.
	FetchUserWaivers(ctx context.Context, org OrgID, user UserID) ([]WaiverPeriod, error)

	// FetchOrgWaivers returns active waiver periods for every member of the
	// organization in a single batch, grouped by user. Must be equivalent
	// to per-user fetches.
	FetchOrgWaivers(ctx context.Context, org OrgID) (map[UserID][]WaiverPeriod, error)

	// FetchUserLeaves returns only leave-of-absence periods for one member.
	// The attendance calculator uses these: training waivers never excuse
	// meetings.
	FetchUserLeaves(ctx context.Context, org OrgID, user UserID) ([]WaiverPeriod, error)
}

// RequirementSource provides requirement definitions to evaluate.
type RequirementSource interface {
	ListRequirements(ctx context.Context, org OrgID) ([]Requirement, error)
}

// ActivitySource provides completed activity (hours/shifts/calls actually
// logged, courses completed) per member and requirement within a window.
type ActivitySource interface {
	CompletedValue(ctx context.Context, org OrgID, user UserID, req RequirementID, window Window) (decimal.Decimal, error)
}

// RosterSource provides the organization's member list, so org-wide views
// include members with no waivers and no activity at all.
type RosterSource interface {
	Members(ctx context.Context, org OrgID) ([]UserID, error)
}

// Meeting is one scheduled meeting, as the attendance calculator sees it.
type Meeting struct {
	ID   string
	Date Date
}

// MeetingSource provides meeting schedules and per-member attendance counts.
type MeetingSource interface {
	Meetings(ctx context.Context, org OrgID, window Window) ([]Meeting, error)

	// AttendanceCounts returns how many meetings in the window the member
	// attended and how many carried an individual per-meeting waiver.
	AttendanceCounts(ctx context.Context, org OrgID, user UserID, window Window) (attended, perMeetingWaived int, err error)
}
