/*
handlers.go - HTTP handlers for the compliance engine's consumers

PURPOSE:
  Exposes the adjustment engine to the intranet frontend. Seven read paths
  consume the engine; all of them resolve adjustments through ONE shared
  compliance.Evaluator. That single funnel is what guarantees the personal
  dashboard, both matrices, the report and program progress return
  bit-identical AdjustmentResults for the same (user, requirement, as-of)
  triple.

ENDPOINTS:
  Read paths (engine consumers):
    GET  /api/orgs/{org}/members/{user}/dashboard
    GET  /api/orgs/{org}/compliance-matrix
    GET  /api/orgs/{org}/competency-matrix
    GET  /api/orgs/{org}/reports/training
    GET  /api/orgs/{org}/members/{user}/programs/{req}/progress
    GET  /api/orgs/{org}/members/{user}/attendance
    GET  /api/orgs/{org}/members/{user}/election-eligibility

  Officer mutations (drive the Auto-Link Coordinator):
    POST   /api/orgs/{org}/leaves
    PUT    /api/orgs/{org}/leaves/{id}/dates
    PUT    /api/orgs/{org}/leaves/{id}/exempt
    DELETE /api/orgs/{org}/leaves/{id}
    POST   /api/orgs/{org}/waivers          (standalone waiver)
    GET    /api/orgs/{org}/leaves
    GET    /api/orgs/{org}/waivers

ERROR HANDLING:
  - 400: invalid input (bad dates, inverted periods)
  - 404: unknown leave/waiver/requirement
  - 500: atomicity failure (the leave mutation did not commit)
  - 503: waiver data source unavailable (never masked as "no waivers")

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/thegspiro/the-logbook-sub005/compliance"
	"github.com/thegspiro/the-logbook-sub005/leave"
)

// DefaultAttendanceThreshold is the minimum attendance percentage for
// election eligibility.
var DefaultAttendanceThreshold = decimal.NewFromInt(50)

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Evaluator   *compliance.Evaluator
	Coordinator *leave.Coordinator
	Store       leave.Store

	// AttendanceThreshold gates election eligibility.
	AttendanceThreshold decimal.Decimal
}

// NewHandler wires the handler. All read paths share the one evaluator.
func NewHandler(ev *compliance.Evaluator, coord *leave.Coordinator, store leave.Store) *Handler {
	return &Handler{
		Evaluator:           ev,
		Coordinator:         coord,
		Store:               store,
		AttendanceThreshold: DefaultAttendanceThreshold,
	}
}

// =============================================================================
// READ PATHS - Engine consumers
// =============================================================================

// Dashboard returns the personal training dashboard.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	user := compliance.UserID(chi.URLParam(r, "user"))
	asOf := asOfParam(r)

	standings, err := h.Evaluator.EvaluateUser(r.Context(), org, user, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, DashboardDTO{
		UserID:    string(user),
		AsOf:      asOf.String(),
		Standings: toStandingDTOs(standings),
	})
}

// ComplianceMatrix returns every member's standing on every requirement.
// Uses the batch fetcher once; never loops per-user fetches.
func (h *Handler) ComplianceMatrix(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	asOf := asOfParam(r)

	byUser, err := h.Evaluator.EvaluateOrg(r.Context(), org, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	members := make(map[string][]StandingDTO, len(byUser))
	for user, standings := range byUser {
		members[string(user)] = toStandingDTOs(standings)
	}
	writeJSON(w, http.StatusOK, MatrixDTO{AsOf: asOf.String(), Members: members})
}

// CompetencyMatrix is the compliance matrix restricted to prorated
// (hours/shifts/calls) requirements.
func (h *Handler) CompetencyMatrix(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	asOf := asOfParam(r)

	byUser, err := h.Evaluator.EvaluateOrg(r.Context(), org, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	members := make(map[string][]StandingDTO, len(byUser))
	for user, standings := range byUser {
		var dtos []StandingDTO
		for _, s := range standings {
			if s.Requirement.Type.Adjustable() {
				dtos = append(dtos, toStandingDTO(s))
			}
		}
		members[string(user)] = dtos
	}
	writeJSON(w, http.StatusOK, MatrixDTO{AsOf: asOf.String(), Members: members})
}

// TrainingReport returns flattened report rows for export.
func (h *Handler) TrainingReport(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	asOf := asOfParam(r)

	byUser, err := h.Evaluator.EvaluateOrg(r.Context(), org, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	var rows []ReportRowDTO
	for user, standings := range byUser {
		for _, s := range standings {
			rows = append(rows, ReportRowDTO{UserID: string(user), StandingDTO: toStandingDTO(s)})
		}
	}
	writeJSON(w, http.StatusOK, ReportDTO{AsOf: asOf.String(), Rows: rows})
}

// ProgramProgress returns one member's progress against one requirement.
func (h *Handler) ProgramProgress(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	user := compliance.UserID(chi.URLParam(r, "user"))
	reqID := compliance.RequirementID(chi.URLParam(r, "req"))
	asOf := asOfParam(r)

	standings, err := h.Evaluator.EvaluateUser(r.Context(), org, user, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	for _, s := range standings {
		if s.Requirement.ID != reqID {
			continue
		}
		dto := toStandingDTO(s)
		pct := 100.0
		if dto.AdjustedRequired > 0 {
			pct = dto.Completed / dto.AdjustedRequired * 100
		}
		writeJSON(w, http.StatusOK, ProgressDTO{
			UserID:          string(user),
			AsOf:            asOf.String(),
			Standing:        dto,
			PercentComplete: pct,
		})
		return
	}
	writeError(w, http.StatusNotFound, "Requirement not found", nil)
}

// Attendance returns the member's meeting attendance for the current year,
// with leave-day exclusions applied (no 15-day threshold on this path).
func (h *Handler) Attendance(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	user := compliance.UserID(chi.URLParam(r, "user"))
	asOf := asOfParam(r)

	window, _ := compliance.WindowFor(compliance.FrequencyAnnual, asOf)
	standing, err := h.Evaluator.AttendanceForUser(r.Context(), org, user, window)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAttendanceDTO(user, window, standing))
}

// ElectionEligibility checks attendance percentage and unmet adjustable
// requirements. Both checks use the same evaluator as every other view.
func (h *Handler) ElectionEligibility(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	user := compliance.UserID(chi.URLParam(r, "user"))
	asOf := asOfParam(r)

	window, _ := compliance.WindowFor(compliance.FrequencyAnnual, asOf)
	attendance, err := h.Evaluator.AttendanceForUser(r.Context(), org, user, window)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	standings, err := h.Evaluator.EvaluateUser(r.Context(), org, user, asOf)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	unmet := 0
	for _, s := range standings {
		if s.Requirement.Type.Adjustable() && !s.Met {
			unmet++
		}
	}

	attendanceMet := attendance.Percentage.GreaterThanOrEqual(h.AttendanceThreshold)
	pct, _ := attendance.Percentage.Float64()
	writeJSON(w, http.StatusOK, EligibilityDTO{
		UserID:            string(user),
		Eligible:          attendanceMet && unmet == 0,
		AttendancePct:     pct,
		AttendanceMet:     attendanceMet,
		UnmetRequirements: unmet,
	})
}

// =============================================================================
// OFFICER MUTATIONS - Leave and waiver management
// =============================================================================

// CreateLeave records a leave of absence; the coordinator derives the linked
// waiver in the same transaction unless exempt.
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))

	var req CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	l, err := h.Coordinator.CreateLeave(r.Context(), leave.CreateLeaveInput{
		OrgID:                    org,
		UserID:                   compliance.UserID(req.UserID),
		StartDate:                start,
		EndDate:                  end,
		Type:                     leave.LeaveType(req.Type),
		Reason:                   req.Reason,
		ExemptFromTrainingWaiver: req.Exempt,
	})
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(*l))
}

// UpdateLeaveDates changes the leave's range; dates propagate to the linked
// waiver atomically.
func (h *Handler) UpdateLeaveDates(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	id := chi.URLParam(r, "id")

	var req UpdateLeaveDatesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	l, err := h.Coordinator.UpdateLeaveDates(r.Context(), org, id, start, end)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*l))
}

// SetExempt toggles the exempt-from-training-waiver flag.
func (h *Handler) SetExempt(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	id := chi.URLParam(r, "id")

	var req SetExemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	l, err := h.Coordinator.SetExempt(r.Context(), org, id, req.Exempt)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*l))
}

// DeactivateLeave ends a leave, cascading to the linked waiver.
func (h *Handler) DeactivateLeave(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))
	id := chi.URLParam(r, "id")

	l, err := h.Coordinator.DeactivateLeave(r.Context(), org, id)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*l))
}

// ListLeaves returns active leaves for the organization.
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))

	leaves, err := h.Store.ActiveLeavesByOrg(r.Context(), org)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to list leaves", err)
		return
	}

	dtos := make([]LeaveDTO, len(leaves))
	for i, l := range leaves {
		dtos[i] = toLeaveDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListWaivers returns active training waivers for the organization.
func (h *Handler) ListWaivers(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))

	waivers, err := h.Store.ActiveWaiversByOrg(r.Context(), org)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Failed to list waivers", err)
		return
	}

	dtos := make([]WaiverDTO, len(waivers))
	for i, wv := range waivers {
		dtos[i] = toWaiverDTO(wv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateWaiver creates a standalone training waiver (no linked leave).
func (h *Handler) CreateWaiver(w http.ResponseWriter, r *http.Request) {
	org := compliance.OrgID(chi.URLParam(r, "org"))

	var req CreateWaiverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, end, err := parseDateRange(req.StartDate, req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if end != nil && start.After(*end) {
		writeError(w, http.StatusBadRequest, "Invalid period",
			&compliance.InvalidPeriodError{Start: start, End: *end})
		return
	}

	reqIDs := make([]compliance.RequirementID, len(req.RequirementIDs))
	for i, id := range req.RequirementIDs {
		reqIDs[i] = compliance.RequirementID(id)
	}

	now := time.Now().UTC()
	wv := leave.TrainingWaiver{
		ID:             uuid.NewString(),
		OrgID:          org,
		UserID:         compliance.UserID(req.UserID),
		StartDate:      start,
		EndDate:        end,
		RequirementIDs: reqIDs,
		Reason:         req.Reason,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := h.Store.CreateWaiver(r.Context(), wv); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create waiver", err)
		return
	}
	writeJSON(w, http.StatusCreated, toWaiverDTO(wv))
}

// =============================================================================
// HELPERS
// =============================================================================

func toAttendanceDTO(user compliance.UserID, window compliance.Window, s compliance.AttendanceStanding) AttendanceDTO {
	pct, _ := s.Percentage.Float64()
	return AttendanceDTO{
		UserID:           string(user),
		WindowStart:      window.Start.String(),
		WindowEnd:        window.End.String(),
		TotalMeetings:    s.TotalMeetings,
		Attended:         s.Attended,
		PerMeetingWaived: s.PerMeetingWaived,
		ExcludedOnLeave:  s.ExcludedOnLeave,
		EligibleMeetings: s.EligibleMeetings,
		AttendancePct:    pct,
	}
}

// asOfParam parses the as_of query parameter, defaulting to today.
func asOfParam(r *http.Request) compliance.Date {
	if s := r.URL.Query().Get("as_of"); s != "" {
		if d, err := compliance.ParseDate(s); err == nil {
			return d
		}
	}
	return compliance.Today()
}

func parseDateRange(start string, end *string) (compliance.Date, *compliance.Date, error) {
	s, err := compliance.ParseDate(start)
	if err != nil {
		return compliance.Date{}, nil, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	if end == nil || *end == "" {
		return s, nil, nil
	}
	e, err := compliance.ParseDate(*end)
	if err != nil {
		return compliance.Date{}, nil, fmt.Errorf("invalid end date %q: %w", *end, err)
	}
	return s, &e, nil
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, compliance.ErrDataUnavailable):
		// Fails closed: the client must not render "no waivers".
		writeErrorCode(w, http.StatusServiceUnavailable, "data_unavailable", err)
	case errors.Is(err, compliance.ErrInvalidPeriod):
		writeErrorCode(w, http.StatusBadRequest, "invalid_period", err)
	case errors.Is(err, compliance.ErrNotFound):
		writeErrorCode(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, compliance.ErrAtomicityFailure):
		// The leave mutation did not commit; nothing changed.
		writeErrorCode(w, http.StatusInternalServerError, "atomicity_failure", err)
	default:
		writeErrorCode(w, http.StatusInternalServerError, "internal", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	resp := ErrorResponse{Error: msg}
	if err != nil {
		resp.Error = fmt.Sprintf("%s: %v", msg, err)
	}
	writeJSON(w, status, resp)
}

func writeErrorCode(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
