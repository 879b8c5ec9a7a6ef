/*
fetcher.go - Waiver Fetchers

PURPOSE:
  Hides the two-table heterogeneity behind compliance.WaiverSource. Active
  leave-of-absence and training-waiver records are normalized into uniform
  WaiverPeriods so the calculation core never sees source-specific fields.

DOUBLE-COUNT PREVENTION:
  A leave's auto-created waiver carries the same dates as the leave itself.
  The fetcher emits the leave and skips the linked waiver, so one absence
  produces one period, not two. Standalone waivers always pass through.
  Exempt leaves are skipped entirely: they excuse meetings (see
  FetchUserLeaves) but leave training targets untouched.

FAIL-CLOSED:
  Any store failure wraps compliance.ErrDataUnavailable and propagates.
  Returning "no waivers" on error would strip protection from members on
  leave, so fetch errors are never swallowed.
*/
package leave

import (
	"context"

	"github.com/thegspiro/the-logbook-sub005/compliance"
)

// Fetcher adapts a leave.Store into the engine's WaiverSource.
type Fetcher struct {
	Store Store
}

var _ compliance.WaiverSource = (*Fetcher)(nil)

func NewFetcher(store Store) *Fetcher {
	return &Fetcher{Store: store}
}

// FetchUserWaivers returns normalized periods from both record kinds for
// one member, restricted to active records.
func (f *Fetcher) FetchUserWaivers(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]compliance.WaiverPeriod, error) {
	leaves, err := f.Store.ActiveLeavesByUser(ctx, org, user)
	if err != nil {
		return nil, &compliance.DataUnavailableError{Source: "leaves_of_absence", Err: err}
	}

	waivers, err := f.Store.ActiveWaiversByUser(ctx, org, user)
	if err != nil {
		return nil, &compliance.DataUnavailableError{Source: "training_waivers", Err: err}
	}

	return normalize(leaves, waivers)
}

// FetchOrgWaivers returns active periods for the whole organization in one
// batch, grouped by user. Equivalent to per-user fetches, by construction:
// both paths funnel through normalize.
func (f *Fetcher) FetchOrgWaivers(ctx context.Context, org compliance.OrgID) (map[compliance.UserID][]compliance.WaiverPeriod, error) {
	leaves, err := f.Store.ActiveLeavesByOrg(ctx, org)
	if err != nil {
		return nil, &compliance.DataUnavailableError{Source: "leaves_of_absence", Err: err}
	}

	waivers, err := f.Store.ActiveWaiversByOrg(ctx, org)
	if err != nil {
		return nil, &compliance.DataUnavailableError{Source: "training_waivers", Err: err}
	}

	byUserLeaves := make(map[compliance.UserID][]LeaveOfAbsence)
	for _, l := range leaves {
		byUserLeaves[l.UserID] = append(byUserLeaves[l.UserID], l)
	}
	byUserWaivers := make(map[compliance.UserID][]TrainingWaiver)
	for _, w := range waivers {
		byUserWaivers[w.UserID] = append(byUserWaivers[w.UserID], w)
	}

	out := make(map[compliance.UserID][]compliance.WaiverPeriod)
	for user, ls := range byUserLeaves {
		periods, err := normalize(ls, byUserWaivers[user])
		if err != nil {
			return nil, err
		}
		out[user] = periods
	}
	for user, ws := range byUserWaivers {
		if _, done := byUserLeaves[user]; done {
			continue
		}
		periods, err := normalize(nil, ws)
		if err != nil {
			return nil, err
		}
		out[user] = periods
	}
	return out, nil
}

// FetchUserLeaves returns leave-of-absence periods only, including exempt
// leaves. This feeds the attendance calculator: every leave excuses
// meetings, whether or not it reduces training targets.
func (f *Fetcher) FetchUserLeaves(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]compliance.WaiverPeriod, error) {
	leaves, err := f.Store.ActiveLeavesByUser(ctx, org, user)
	if err != nil {
		return nil, &compliance.DataUnavailableError{Source: "leaves_of_absence", Err: err}
	}

	periods := make([]compliance.WaiverPeriod, 0, len(leaves))
	for _, l := range leaves {
		p, err := l.Period()
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, nil
}

// normalize maps one member's records onto waiver periods, skipping exempt
// leaves and leave-linked waivers.
func normalize(leaves []LeaveOfAbsence, waivers []TrainingWaiver) ([]compliance.WaiverPeriod, error) {
	periods := make([]compliance.WaiverPeriod, 0, len(leaves)+len(waivers))

	for _, l := range leaves {
		if l.ExemptFromTrainingWaiver {
			continue
		}
		p, err := l.Period()
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}

	for _, w := range waivers {
		if w.LinkedLeaveID != nil {
			// The leave itself is the canonical period.
			continue
		}
		p, err := w.Period()
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}

	return periods, nil
}
