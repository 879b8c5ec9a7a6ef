/*
attendance.go - Attendance Exclusion Calculator

PURPOSE:
  Computes the eligible-meetings denominator for attendance percentage:

    eligible = total - per_meeting_waivers - meetings_during_leave

ASYMMETRY WARNING - READ BEFORE TOUCHING:
  Meeting exclusion has NO 15-day threshold. A leave covering a single day
  excludes a meeting held on that day, even though the same leave would not
  waive that month for training proration (coverage.go). The training rule
  prorates months; the attendance rule excuses individual dates. These two
  rules are deliberately different and must never be "unified".

  Only organization-wide leaves of absence excuse meetings. A training
  waiver scoped to specific requirements reduces training targets, not
  meeting obligations, so callers pass SourceLeaveOfAbsence periods here.
*/
package compliance

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// MeetingsDuringLeave counts meetings whose date falls inside any of the
// member's leave periods, inclusive on both ends. No day threshold applies.
func MeetingsDuringLeave(meetingDates []Date, leaves []WaiverPeriod) int {
	count := 0
	for _, date := range meetingDates {
		for _, leave := range leaves {
			if leave.Window.Contains(date) {
				count++
				break
			}
		}
	}
	return count
}

// AttendanceStanding is the computed attendance position for one member.
type AttendanceStanding struct {
	TotalMeetings    int
	Attended         int
	PerMeetingWaived int
	ExcludedOnLeave  int
	EligibleMeetings int
	Percentage       decimal.Decimal
}

// ComputeAttendance derives the attendance standing. An empty denominator
// (all meetings waived or on leave) is treated as 100%: an undefined
// percentage must never penalize the member.
func ComputeAttendance(meetingDates []Date, attended, perMeetingWaived int, leaves []WaiverPeriod) AttendanceStanding {
	excluded := MeetingsDuringLeave(meetingDates, leaves)

	eligible := len(meetingDates) - perMeetingWaived - excluded
	if eligible < 0 {
		eligible = 0
	}

	pct := hundred
	if eligible > 0 {
		pct = decimal.NewFromInt(int64(attended)).
			Div(decimal.NewFromInt(int64(eligible))).
			Mul(hundred)
	}

	return AttendanceStanding{
		TotalMeetings:    len(meetingDates),
		Attended:         attended,
		PerMeetingWaived: perMeetingWaived,
		ExcludedOnLeave:  excluded,
		EligibleMeetings: eligible,
		Percentage:       pct,
	}
}
