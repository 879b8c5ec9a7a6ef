/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for API communication, decoupling the engine's internal
  types from the external contract. Dates travel as ISO strings, decimals
  as float64 (rendering only; all math happens in decimal upstream).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

SEE ALSO:
  - handlers.go: Uses these types
  - compliance/evaluator.go: Source of RequirementStanding
*/
package api

import (
	"fmt"
	"time"

	"github.com/thegspiro/the-logbook-sub005/compliance"
	"github.com/thegspiro/the-logbook-sub005/leave"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// StandingDTO is one member's position against one requirement, including
// the adjustment metadata views need to render waiver banners.
type StandingDTO struct {
	RequirementID   string  `json:"requirement_id"`
	RequirementName string  `json:"requirement_name"`
	Type            string  `json:"type"`
	Frequency       string  `json:"frequency"`
	WindowStart     string  `json:"window_start,omitempty"`
	WindowEnd       string  `json:"window_end,omitempty"`
	BaseRequired    float64 `json:"base_required"`
	AdjustedRequired float64 `json:"adjusted_required"`
	WaivedMonths    int     `json:"waived_months"`
	ActiveMonths    int     `json:"active_months"`
	TotalMonths     int     `json:"total_months"`
	Completed       float64 `json:"completed"`
	Met             bool    `json:"met"`
	AdjustmentNote  string  `json:"adjustment_note,omitempty"`
}

// DashboardDTO is the personal training dashboard payload.
type DashboardDTO struct {
	UserID    string        `json:"user_id"`
	AsOf      string        `json:"as_of"`
	Standings []StandingDTO `json:"standings"`
}

// MatrixDTO is an organization-wide view (compliance or competency matrix).
type MatrixDTO struct {
	AsOf    string                   `json:"as_of"`
	Members map[string][]StandingDTO `json:"members"`
}

// ReportRowDTO is one line of the training report.
type ReportRowDTO struct {
	UserID string `json:"user_id"`
	StandingDTO
}

// ReportDTO is the training report payload.
type ReportDTO struct {
	AsOf string         `json:"as_of"`
	Rows []ReportRowDTO `json:"rows"`
}

// ProgressDTO is program-enrollment progress for one requirement.
type ProgressDTO struct {
	UserID  string      `json:"user_id"`
	AsOf    string      `json:"as_of"`
	Standing StandingDTO `json:"standing"`
	PercentComplete float64 `json:"percent_complete"`
}

// AttendanceDTO is the meeting-attendance standing.
type AttendanceDTO struct {
	UserID           string  `json:"user_id"`
	WindowStart      string  `json:"window_start"`
	WindowEnd        string  `json:"window_end"`
	TotalMeetings    int     `json:"total_meetings"`
	Attended         int     `json:"attended"`
	PerMeetingWaived int     `json:"per_meeting_waived"`
	ExcludedOnLeave  int     `json:"excluded_on_leave"`
	EligibleMeetings int     `json:"eligible_meetings"`
	AttendancePct    float64 `json:"attendance_pct"`
}

// EligibilityDTO is the election-eligibility check result.
type EligibilityDTO struct {
	UserID            string  `json:"user_id"`
	Eligible          bool    `json:"eligible"`
	AttendancePct     float64 `json:"attendance_pct"`
	AttendanceMet     bool    `json:"attendance_met"`
	UnmetRequirements int     `json:"unmet_requirements"`
}

// LeaveDTO represents a leave of absence.
type LeaveDTO struct {
	ID             string  `json:"id"`
	UserID         string  `json:"user_id"`
	StartDate      string  `json:"start_date"`
	EndDate        *string `json:"end_date,omitempty"`
	Type           string  `json:"type"`
	Reason         string  `json:"reason,omitempty"`
	Active         bool    `json:"active"`
	Exempt         bool    `json:"exempt_from_training_waiver"`
	LinkedWaiverID *string `json:"linked_waiver_id,omitempty"`
	LinkState      string  `json:"link_state"`
	CreatedAt      string  `json:"created_at,omitempty"`
}

// WaiverDTO represents a training waiver.
type WaiverDTO struct {
	ID             string   `json:"id"`
	UserID         string   `json:"user_id"`
	StartDate      string   `json:"start_date"`
	EndDate        *string  `json:"end_date,omitempty"`
	RequirementIDs []string `json:"requirement_ids,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	Active         bool     `json:"active"`
	LinkedLeaveID  *string  `json:"linked_leave_id,omitempty"`
	CreatedAt      string   `json:"created_at,omitempty"`
}

// CreateLeaveRequest is the officer request to record a leave.
type CreateLeaveRequest struct {
	UserID    string  `json:"user_id"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
	Type      string  `json:"type"`
	Reason    string  `json:"reason,omitempty"`
	Exempt    bool    `json:"exempt_from_training_waiver"`
}

// UpdateLeaveDatesRequest changes a leave's date range.
type UpdateLeaveDatesRequest struct {
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date,omitempty"`
}

// SetExemptRequest toggles the exempt flag.
type SetExemptRequest struct {
	Exempt bool `json:"exempt_from_training_waiver"`
}

// CreateWaiverRequest creates a standalone training waiver.
type CreateWaiverRequest struct {
	UserID         string   `json:"user_id"`
	StartDate      string   `json:"start_date"`
	EndDate        *string  `json:"end_date,omitempty"`
	RequirementIDs []string `json:"requirement_ids,omitempty"`
	Reason         string   `json:"reason,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toStandingDTO(s compliance.RequirementStanding) StandingDTO {
	base, _ := s.Requirement.RequiredValue.Float64()
	adjusted, _ := s.Adjustment.AdjustedRequired.Float64()
	completed, _ := s.Completed.Float64()

	dto := StandingDTO{
		RequirementID:    string(s.Requirement.ID),
		RequirementName:  s.Requirement.Name,
		Type:             string(s.Requirement.Type),
		Frequency:        string(s.Requirement.Frequency),
		BaseRequired:     base,
		AdjustedRequired: adjusted,
		WaivedMonths:     s.Adjustment.WaivedMonths,
		ActiveMonths:     s.Adjustment.ActiveMonths,
		TotalMonths:      s.Adjustment.TotalMonths,
		Completed:        completed,
		Met:              s.Met,
	}
	if s.HasWindow {
		dto.WindowStart = s.Window.Start.String()
		dto.WindowEnd = s.Window.End.String()
	}
	if s.Adjustment.Adjusted() {
		dto.AdjustmentNote = fmt.Sprintf(
			"Adjusted for %d waived month(s) of leave (originally %v %s, adjusted to %v for %d active months)",
			s.Adjustment.WaivedMonths, base, dto.Type, adjusted, s.Adjustment.ActiveMonths)
	}
	return dto
}

func toStandingDTOs(standings []compliance.RequirementStanding) []StandingDTO {
	dtos := make([]StandingDTO, len(standings))
	for i, s := range standings {
		dtos[i] = toStandingDTO(s)
	}
	return dtos
}

func toLeaveDTO(l leave.LeaveOfAbsence) LeaveDTO {
	dto := LeaveDTO{
		ID:             l.ID,
		UserID:         string(l.UserID),
		StartDate:      l.StartDate.String(),
		Type:           string(l.Type),
		Reason:         l.Reason,
		Active:         l.Active,
		Exempt:         l.ExemptFromTrainingWaiver,
		LinkedWaiverID: l.LinkedWaiverID,
		LinkState:      string(l.LinkState()),
		CreatedAt:      l.CreatedAt.Format(time.RFC3339),
	}
	if l.EndDate != nil {
		s := l.EndDate.String()
		dto.EndDate = &s
	}
	return dto
}

func toWaiverDTO(w leave.TrainingWaiver) WaiverDTO {
	reqIDs := make([]string, len(w.RequirementIDs))
	for i, id := range w.RequirementIDs {
		reqIDs[i] = string(id)
	}
	dto := WaiverDTO{
		ID:             w.ID,
		UserID:         string(w.UserID),
		StartDate:      w.StartDate.String(),
		RequirementIDs: reqIDs,
		Reason:         w.Reason,
		Active:         w.Active,
		LinkedLeaveID:  w.LinkedLeaveID,
		CreatedAt:      w.CreatedAt.Format(time.RFC3339),
	}
	if w.EndDate != nil {
		s := w.EndDate.String()
		dto.EndDate = &s
	}
	return dto
}
