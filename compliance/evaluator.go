/*
evaluator.go - Shared evaluation service for all consumer read paths

PURPOSE:
  The single entry point through which every consumer (personal dashboard,
  compliance matrix, competency matrix, training report, program-enrollment
  progress, election eligibility) obtains adjusted requirements. Cross-call-
  site consistency is the core correctness contract of the subsystem: the
  Evaluator has no hidden state, so the same (user, requirement, as-of date)
  triple always yields a bit-identical AdjustmentResult no matter which view
  asked.

N+1 AVOIDANCE:
  EvaluateOrg uses the batch waiver fetcher exactly once per request. Views
  that evaluate more than one member must call EvaluateOrg, never loop over
  EvaluateUser.
*/
package compliance

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Evaluator wires the engine's calculation core to its data sources.
type Evaluator struct {
	Waivers      WaiverSource
	Requirements RequirementSource
	Activity     ActivitySource
	Roster       RosterSource
	Meetings     MeetingSource
}

// RequirementStanding is one member's position against one requirement.
type RequirementStanding struct {
	Requirement Requirement
	Window      Window
	HasWindow   bool // false for biannual/one_time (no evaluation window)
	Adjustment  AdjustmentResult
	Completed   decimal.Decimal
	Met         bool
}

// EvaluateUser computes the member's standing for every requirement defined
// by the organization, as of the given date.
func (e *Evaluator) EvaluateUser(ctx context.Context, org OrgID, user UserID, asOf Date) ([]RequirementStanding, error) {
	reqs, err := e.Requirements.ListRequirements(ctx, org)
	if err != nil {
		return nil, err
	}

	waivers, err := e.Waivers.FetchUserWaivers(ctx, org, user)
	if err != nil {
		return nil, err
	}

	return e.evaluate(ctx, org, user, asOf, reqs, waivers)
}

// EvaluateOrg computes standings for every member in one batch. The result
// for each member is identical to what EvaluateUser would return.
func (e *Evaluator) EvaluateOrg(ctx context.Context, org OrgID, asOf Date) (map[UserID][]RequirementStanding, error) {
	reqs, err := e.Requirements.ListRequirements(ctx, org)
	if err != nil {
		return nil, err
	}

	members, err := e.Roster.Members(ctx, org)
	if err != nil {
		return nil, err
	}

	// One batched fetch for the whole organization.
	orgWaivers, err := e.Waivers.FetchOrgWaivers(ctx, org)
	if err != nil {
		return nil, err
	}

	out := make(map[UserID][]RequirementStanding, len(members))
	for _, user := range members {
		standings, err := e.evaluate(ctx, org, user, asOf, reqs, orgWaivers[user])
		if err != nil {
			return nil, err
		}
		out[user] = standings
	}
	return out, nil
}

// evaluate is the shared per-member core. Both entry points funnel through
// here so batch and single evaluation cannot drift apart.
func (e *Evaluator) evaluate(ctx context.Context, org OrgID, user UserID, asOf Date, reqs []Requirement, waivers []WaiverPeriod) ([]RequirementStanding, error) {
	standings := make([]RequirementStanding, 0, len(reqs))

	for _, req := range reqs {
		window, hasWindow := WindowFor(req.Frequency, asOf)

		var adj AdjustmentResult
		activityWindow := window
		if hasWindow {
			adj = AdjustRequired(req, window, waivers)
		} else {
			adj = IdentityResult(req.RequiredValue, 0)
			// No rolling window: completion counts over all recorded history.
			activityWindow = Window{Start: NewDate(1, time.January, 1), End: Forever}
		}

		completed, err := e.Activity.CompletedValue(ctx, org, user, req.ID, activityWindow)
		if err != nil {
			return nil, err
		}

		standings = append(standings, RequirementStanding{
			Requirement: req,
			Window:      window,
			HasWindow:   hasWindow,
			Adjustment:  adj,
			Completed:   completed,
			Met:         completed.GreaterThanOrEqual(adj.AdjustedRequired),
		})
	}

	sort.Slice(standings, func(i, j int) bool {
		return standings[i].Requirement.ID < standings[j].Requirement.ID
	})
	return standings, nil
}

// AttendanceForUser computes the member's meeting-attendance standing for
// the window, applying leave-of-absence exclusions (no day threshold).
func (e *Evaluator) AttendanceForUser(ctx context.Context, org OrgID, user UserID, window Window) (AttendanceStanding, error) {
	meetings, err := e.Meetings.Meetings(ctx, org, window)
	if err != nil {
		return AttendanceStanding{}, err
	}

	attended, perMeetingWaived, err := e.Meetings.AttendanceCounts(ctx, org, user, window)
	if err != nil {
		return AttendanceStanding{}, err
	}

	leaves, err := e.Waivers.FetchUserLeaves(ctx, org, user)
	if err != nil {
		return AttendanceStanding{}, err
	}

	dates := make([]Date, len(meetings))
	for i, m := range meetings {
		dates[i] = m.Date
	}

	return ComputeAttendance(dates, attended, perMeetingWaived, leaves), nil
}
