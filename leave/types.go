// Package leave implements the leave-of-absence / training-waiver domain:
// the persisted record shapes, the fetchers that normalize them into
// compliance waiver periods, and the coordinator that keeps a leave and its
// derived waiver synchronized.
package leave

import (
	"time"

	"github.com/thegspiro/the-logbook-sub005/compliance"
)

// =============================================================================
// LEAVE OF ABSENCE - Officer-recorded, organization-wide exemption
// =============================================================================

type LeaveType string

const (
	LeaveMedical        LeaveType = "medical"
	LeaveMilitary       LeaveType = "military"
	LeavePersonal       LeaveType = "personal"
	LeaveAdministrative LeaveType = "administrative"
)

// LeaveOfAbsence is a period during which a member is excused from duty.
// Unless marked exempt, an active leave carries exactly one linked, active
// TrainingWaiver with matching dates; the Coordinator maintains that pair.
type LeaveOfAbsence struct {
	ID     string
	OrgID  compliance.OrgID
	UserID compliance.UserID

	StartDate compliance.Date
	EndDate   *compliance.Date // nil = permanent / open-ended

	Type   LeaveType
	Reason string

	Active bool

	// ExemptFromTrainingWaiver suppresses the derived waiver: the member is
	// on leave for attendance purposes but still owes full training.
	ExemptFromTrainingWaiver bool

	// LinkedWaiverID points at the auto-created TrainingWaiver, when any.
	LinkedWaiverID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LinkState describes the leave's position in the auto-link state machine.
type LinkState string

const (
	LinkNone     LinkState = "no-waiver"
	LinkActive   LinkState = "linked-active"
	LinkInactive LinkState = "linked-inactive"
	LinkExempt   LinkState = "exempt"
)

// LinkState derives the state from the record's own fields.
func (l LeaveOfAbsence) LinkState() LinkState {
	switch {
	case l.ExemptFromTrainingWaiver:
		return LinkExempt
	case l.LinkedWaiverID == nil:
		return LinkNone
	case l.Active:
		return LinkActive
	default:
		return LinkInactive
	}
}

// =============================================================================
// TRAINING WAIVER - Requirement-scoped exemption
// =============================================================================

// TrainingWaiver reduces training requirements over a date range. It is
// either created directly by a training officer (standalone) or derived from
// a LeaveOfAbsence by the Coordinator.
type TrainingWaiver struct {
	ID     string
	OrgID  compliance.OrgID
	UserID compliance.UserID

	StartDate compliance.Date
	EndDate   *compliance.Date // nil = permanent / open-ended

	// RequirementIDs restricts the waiver to specific requirements; empty
	// means all requirements. Leave-derived waivers are always unscoped.
	RequirementIDs []compliance.RequirementID

	Reason string
	Active bool

	// LinkedLeaveID back-references the LeaveOfAbsence that generated this
	// waiver, nil for standalone waivers.
	LinkedLeaveID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// endOrForever maps a nullable end date onto the engine's sentinel.
func endOrForever(end *compliance.Date) compliance.Date {
	if end == nil {
		return compliance.Forever
	}
	return *end
}

// Period normalizes the leave into a waiver period covering all requirements.
func (l LeaveOfAbsence) Period() (compliance.WaiverPeriod, error) {
	return compliance.NewWaiverPeriod(
		l.UserID, l.StartDate, endOrForever(l.EndDate), nil, compliance.SourceLeaveOfAbsence)
}

// Period normalizes the waiver, preserving its requirement scope.
func (w TrainingWaiver) Period() (compliance.WaiverPeriod, error) {
	return compliance.NewWaiverPeriod(
		w.UserID, w.StartDate, endOrForever(w.EndDate), w.RequirementIDs, compliance.SourceTrainingWaiver)
}
