/*
Package compliance implements the training-waiver / leave-of-absence
requirement adjustment engine.

PURPOSE:
  Computes, for every member and training requirement, a prorated required
  value based on overlapping leave periods, and computes the adjusted
  meeting-attendance denominator. The engine is a pure library: it reads
  waiver/leave data through narrow source interfaces and never persists
  anything itself.

KEY CONCEPTS IN THIS FILE (types.go):
  - WaiverPeriod: one normalized interval of exemption for one member
  - Requirement: a training requirement definition (type, frequency, target)
  - AdjustmentResult: the prorated outcome handed to presentation layers

DESIGN PRINCIPLES:
  1. Purity: adjustment math takes values in, returns values out; no I/O
  2. Precision: decimal.Decimal for required values, no float drift
  3. Uniformity: leave records and training waivers collapse into one
     WaiverPeriod shape before any calculation sees them
  4. Consistency: every consumer (dashboard, matrices, reports, progress)
     goes through the same Evaluator, so results are bit-identical

SEE ALSO:
  - coverage.go: waived-month calculation (the >= 15 day rule)
  - adjust.go: requirement proration
  - attendance.go: meeting-denominator exclusions (NO day threshold)
  - evaluator.go: the shared entry point consumers call
*/
package compliance

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OrgID string
type UserID string
type RequirementID string

// =============================================================================
// WAIVER PERIOD - Normalized exemption interval
// =============================================================================

// SourceKind records which persisted record a WaiverPeriod came from.
// Calculation treats both kinds uniformly; the tag exists so presentation
// layers can explain provenance ("on leave" vs "waived by officer").
type SourceKind string

const (
	SourceLeaveOfAbsence SourceKind = "leave_of_absence"
	SourceTrainingWaiver SourceKind = "training_waiver"
)

// WaiverPeriod is one interval of exemption for one member. It is a value
// object built transiently by a fetcher from a persisted leave or waiver
// record; it is never stored and is recomputed on every calculation.
type WaiverPeriod struct {
	UserID UserID
	Window Window

	// RequirementIDs restricts the waiver to specific requirements.
	// Empty means the waiver applies to all requirements.
	RequirementIDs []RequirementID

	Source SourceKind
}

// NewWaiverPeriod builds a waiver period, rejecting inverted date bounds.
// A nil/zero end date should be passed as Forever by the fetcher.
func NewWaiverPeriod(user UserID, start, end Date, reqIDs []RequirementID, source SourceKind) (WaiverPeriod, error) {
	w, err := NewWindow(start, end)
	if err != nil {
		return WaiverPeriod{}, err
	}
	return WaiverPeriod{UserID: user, Window: w, RequirementIDs: reqIDs, Source: source}, nil
}

// AppliesTo reports whether this waiver covers the given requirement.
// An unscoped waiver (no requirement IDs) covers everything.
func (wp WaiverPeriod) AppliesTo(reqID RequirementID) bool {
	if len(wp.RequirementIDs) == 0 {
		return true
	}
	for _, id := range wp.RequirementIDs {
		if id == reqID {
			return true
		}
	}
	return false
}

// =============================================================================
// REQUIREMENT - Training requirement definition (read-only input)
// =============================================================================

type RequirementType string

const (
	TypeHours            RequirementType = "hours"
	TypeShifts           RequirementType = "shifts"
	TypeCalls            RequirementType = "calls"
	TypeCourses          RequirementType = "courses"
	TypeCertification    RequirementType = "certification"
	TypeSkillsEvaluation RequirementType = "skills_evaluation"
	TypeChecklist        RequirementType = "checklist"
)

// Adjustable reports whether proration applies to this requirement type.
// Completion for courses, certifications, skills evaluations and checklists
// is binary, so those pass through unmodified.
func (t RequirementType) Adjustable() bool {
	switch t {
	case TypeHours, TypeShifts, TypeCalls:
		return true
	}
	return false
}

type Frequency string

const (
	FrequencyAnnual    Frequency = "annual"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyBiannual  Frequency = "biannual"
	FrequencyOneTime   Frequency = "one_time"
)

// Requirement is a training/attendance requirement definition. RequiredValue
// is meaningful only for adjustable types (hours/shifts/calls counts).
type Requirement struct {
	ID            RequirementID
	Name          string
	Type          RequirementType
	Frequency     Frequency
	RequiredValue decimal.Decimal
}

// =============================================================================
// ADJUSTMENT RESULT - Computed, ephemeral, returned to callers
// =============================================================================

// AdjustmentResult carries the prorated required value plus the month counts
// presentation layers need to render banners like
// "Adjusted for 2 waived months of leave (originally 24 hrs, adjusted to 20)".
//
// Invariants: 0 <= WaivedMonths <= TotalMonths; ActiveMonths floors at 0.
type AdjustmentResult struct {
	AdjustedRequired decimal.Decimal
	WaivedMonths     int
	ActiveMonths     int
	TotalMonths      int
}

// IdentityResult is the no-adjustment result: the base value untouched.
func IdentityResult(base decimal.Decimal, totalMonths int) AdjustmentResult {
	if totalMonths <= 0 {
		// Degenerate window: treat as a single fully-active month.
		totalMonths = 1
	}
	return AdjustmentResult{
		AdjustedRequired: base,
		WaivedMonths:     0,
		ActiveMonths:     totalMonths,
		TotalMonths:      totalMonths,
	}
}

// Adjusted reports whether any proration actually happened.
func (r AdjustmentResult) Adjusted() bool { return r.WaivedMonths > 0 }
