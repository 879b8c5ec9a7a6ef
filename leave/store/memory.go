// Package store provides an in-memory leave.TxStore implementation for
// tests and development, plus in-memory fixtures for the engine's other
// data sources.
package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/thegspiro/the-logbook-sub005/compliance"
	"github.com/thegspiro/the-logbook-sub005/leave"
)

// =============================================================================
// MEMORY STORE - leave.TxStore implementation
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	leaves  map[string]leave.LeaveOfAbsence
	waivers map[string]leave.TrainingWaiver

	// FailReads simulates an unavailable data source; reads return errFail
	// so fetchers can be tested for fail-closed behavior.
	FailReads bool

	failNextWaiverWrite bool
}

var _ leave.TxStore = (*Memory)(nil)

type failError struct{}

func (failError) Error() string { return "memory store: reads disabled" }

var errFail = failError{}

func NewMemory() *Memory {
	return &Memory{
		leaves:  make(map[string]leave.LeaveOfAbsence),
		waivers: make(map[string]leave.TrainingWaiver),
	}
}

func (m *Memory) CreateLeave(_ context.Context, l leave.LeaveOfAbsence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves[l.ID] = l
	return nil
}

func (m *Memory) UpdateLeave(_ context.Context, l leave.LeaveOfAbsence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.leaves[l.ID]; !ok {
		return compliance.ErrNotFound
	}
	m.leaves[l.ID] = l
	return nil
}

func (m *Memory) GetLeave(_ context.Context, org compliance.OrgID, id string) (*leave.LeaveOfAbsence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.leaves[id]
	if !ok || l.OrgID != org {
		return nil, compliance.ErrNotFound
	}
	return &l, nil
}

func (m *Memory) ActiveLeavesByUser(_ context.Context, org compliance.OrgID, user compliance.UserID) ([]leave.LeaveOfAbsence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads {
		return nil, errFail
	}
	var out []leave.LeaveOfAbsence
	for _, l := range m.leaves {
		if l.OrgID == org && l.UserID == user && l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) ActiveLeavesByOrg(_ context.Context, org compliance.OrgID) ([]leave.LeaveOfAbsence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads {
		return nil, errFail
	}
	var out []leave.LeaveOfAbsence
	for _, l := range m.leaves {
		if l.OrgID == org && l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *Memory) CreateWaiver(_ context.Context, w leave.TrainingWaiver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waivers[w.ID] = w
	return nil
}

func (m *Memory) UpdateWaiver(_ context.Context, w leave.TrainingWaiver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.waivers[w.ID]; !ok {
		return compliance.ErrNotFound
	}
	m.waivers[w.ID] = w
	return nil
}

func (m *Memory) GetWaiver(_ context.Context, org compliance.OrgID, id string) (*leave.TrainingWaiver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.waivers[id]
	if !ok || w.OrgID != org {
		return nil, compliance.ErrNotFound
	}
	return &w, nil
}

func (m *Memory) ActiveWaiversByUser(_ context.Context, org compliance.OrgID, user compliance.UserID) ([]leave.TrainingWaiver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads {
		return nil, errFail
	}
	var out []leave.TrainingWaiver
	for _, w := range m.waivers {
		if w.OrgID == org && w.UserID == user && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *Memory) ActiveWaiversByOrg(_ context.Context, org compliance.OrgID) ([]leave.TrainingWaiver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.FailReads {
		return nil, errFail
	}
	var out []leave.TrainingWaiver
	for _, w := range m.waivers {
		if w.OrgID == org && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

// WithTx simulates a transaction with snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(leave.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := m.snapshot()
	if err := fn(&txView{parent: m}); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	leaves  map[string]leave.LeaveOfAbsence
	waivers map[string]leave.TrainingWaiver
}

func (m *Memory) snapshot() memorySnapshot {
	ls := make(map[string]leave.LeaveOfAbsence, len(m.leaves))
	for k, v := range m.leaves {
		ls[k] = v
	}
	ws := make(map[string]leave.TrainingWaiver, len(m.waivers))
	for k, v := range m.waivers {
		ws[k] = v
	}
	return memorySnapshot{leaves: ls, waivers: ws}
}

func (m *Memory) restore(s memorySnapshot) {
	m.leaves = s.leaves
	m.waivers = s.waivers
}

// txView performs writes directly against the locked parent. The parent
// holds the lock for the duration of WithTx, so access is exclusive.
type txView struct {
	parent *Memory
}

func (tv *txView) CreateLeave(_ context.Context, l leave.LeaveOfAbsence) error {
	tv.parent.leaves[l.ID] = l
	return nil
}

func (tv *txView) UpdateLeave(_ context.Context, l leave.LeaveOfAbsence) error {
	if _, ok := tv.parent.leaves[l.ID]; !ok {
		return compliance.ErrNotFound
	}
	tv.parent.leaves[l.ID] = l
	return nil
}

func (tv *txView) GetLeave(_ context.Context, org compliance.OrgID, id string) (*leave.LeaveOfAbsence, error) {
	l, ok := tv.parent.leaves[id]
	if !ok || l.OrgID != org {
		return nil, compliance.ErrNotFound
	}
	return &l, nil
}

func (tv *txView) ActiveLeavesByUser(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]leave.LeaveOfAbsence, error) {
	var out []leave.LeaveOfAbsence
	for _, l := range tv.parent.leaves {
		if l.OrgID == org && l.UserID == user && l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

func (tv *txView) ActiveLeavesByOrg(ctx context.Context, org compliance.OrgID) ([]leave.LeaveOfAbsence, error) {
	var out []leave.LeaveOfAbsence
	for _, l := range tv.parent.leaves {
		if l.OrgID == org && l.Active {
			out = append(out, l)
		}
	}
	return out, nil
}

func (tv *txView) CreateWaiver(_ context.Context, w leave.TrainingWaiver) error {
	if tv.parent.failNextWaiverWrite {
		tv.parent.failNextWaiverWrite = false
		return errFail
	}
	tv.parent.waivers[w.ID] = w
	return nil
}

func (tv *txView) UpdateWaiver(_ context.Context, w leave.TrainingWaiver) error {
	if tv.parent.failNextWaiverWrite {
		tv.parent.failNextWaiverWrite = false
		return errFail
	}
	if _, ok := tv.parent.waivers[w.ID]; !ok {
		return compliance.ErrNotFound
	}
	tv.parent.waivers[w.ID] = w
	return nil
}

func (tv *txView) GetWaiver(_ context.Context, org compliance.OrgID, id string) (*leave.TrainingWaiver, error) {
	w, ok := tv.parent.waivers[id]
	if !ok || w.OrgID != org {
		return nil, compliance.ErrNotFound
	}
	return &w, nil
}

func (tv *txView) ActiveWaiversByUser(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]leave.TrainingWaiver, error) {
	var out []leave.TrainingWaiver
	for _, w := range tv.parent.waivers {
		if w.OrgID == org && w.UserID == user && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

func (tv *txView) ActiveWaiversByOrg(ctx context.Context, org compliance.OrgID) ([]leave.TrainingWaiver, error) {
	var out []leave.TrainingWaiver
	for _, w := range tv.parent.waivers {
		if w.OrgID == org && w.Active {
			out = append(out, w)
		}
	}
	return out, nil
}

// FailNextWaiverWrite makes the next in-transaction waiver write fail, for
// atomicity tests (the paired leave write must roll back).
func (m *Memory) FailNextWaiverWrite() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNextWaiverWrite = true
}

// =============================================================================
// FIXTURE SOURCES - RequirementSource / ActivitySource / MeetingSource /
// RosterSource backed by maps, for engine and API tests
// =============================================================================

type Fixtures struct {
	mu           sync.RWMutex
	requirements map[compliance.OrgID][]compliance.Requirement
	members      map[compliance.OrgID][]compliance.UserID
	completed    map[activityKey]decimal.Decimal
	meetings     map[compliance.OrgID][]compliance.Meeting
	attendance   map[attendanceKey]attendanceCounts
}

type activityKey struct {
	Org  compliance.OrgID
	User compliance.UserID
	Req  compliance.RequirementID
}

type attendanceKey struct {
	Org  compliance.OrgID
	User compliance.UserID
}

type attendanceCounts struct {
	Attended         int
	PerMeetingWaived int
}

var (
	_ compliance.RequirementSource = (*Fixtures)(nil)
	_ compliance.ActivitySource    = (*Fixtures)(nil)
	_ compliance.MeetingSource     = (*Fixtures)(nil)
	_ compliance.RosterSource      = (*Fixtures)(nil)
)

func NewFixtures() *Fixtures {
	return &Fixtures{
		requirements: make(map[compliance.OrgID][]compliance.Requirement),
		members:      make(map[compliance.OrgID][]compliance.UserID),
		completed:    make(map[activityKey]decimal.Decimal),
		meetings:     make(map[compliance.OrgID][]compliance.Meeting),
		attendance:   make(map[attendanceKey]attendanceCounts),
	}
}

func (f *Fixtures) AddRequirement(org compliance.OrgID, req compliance.Requirement) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requirements[org] = append(f.requirements[org], req)
}

func (f *Fixtures) AddMember(org compliance.OrgID, user compliance.UserID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.members[org] = append(f.members[org], user)
}

func (f *Fixtures) SetCompleted(org compliance.OrgID, user compliance.UserID, req compliance.RequirementID, v decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed[activityKey{org, user, req}] = v
}

func (f *Fixtures) AddMeeting(org compliance.OrgID, m compliance.Meeting) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meetings[org] = append(f.meetings[org], m)
}

func (f *Fixtures) SetAttendance(org compliance.OrgID, user compliance.UserID, attended, perMeetingWaived int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attendance[attendanceKey{org, user}] = attendanceCounts{attended, perMeetingWaived}
}

func (f *Fixtures) ListRequirements(_ context.Context, org compliance.OrgID) ([]compliance.Requirement, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]compliance.Requirement(nil), f.requirements[org]...), nil
}

func (f *Fixtures) Members(_ context.Context, org compliance.OrgID) ([]compliance.UserID, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]compliance.UserID(nil), f.members[org]...), nil
}

func (f *Fixtures) CompletedValue(_ context.Context, org compliance.OrgID, user compliance.UserID, req compliance.RequirementID, _ compliance.Window) (decimal.Decimal, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.completed[activityKey{org, user, req}], nil
}

func (f *Fixtures) Meetings(_ context.Context, org compliance.OrgID, window compliance.Window) ([]compliance.Meeting, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []compliance.Meeting
	for _, m := range f.meetings[org] {
		if window.Contains(m.Date) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *Fixtures) AttendanceCounts(_ context.Context, org compliance.OrgID, user compliance.UserID, _ compliance.Window) (int, int, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	c := f.attendance[attendanceKey{org, user}]
	return c.Attended, c.PerMeetingWaived, nil
}
