/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements leave.TxStore plus the engine's read sources
  (RequirementSource, ActivitySource, RosterSource, MeetingSource) using
  SQLite. The same patterns apply to PostgreSQL with minor dialect changes.

KEY TABLES:
  members:            Organization roster
  requirements:       Training requirement definitions
  leaves_of_absence:  Officer-recorded leave periods
  training_waivers:   Requirement-scoped waivers (standalone or leave-derived)
  training_records:   Logged hours/shifts/calls per member and requirement
  meetings:           Meeting schedule
  meeting_attendance: Per-member attendance and per-meeting waiver flags

ATOMICITY:
  WithTx wraps the coordinator's paired leave/waiver writes in one SQL
  transaction. Rollback on error, commit on nil.

WAL MODE:
  Opened with WAL and foreign keys on, matching intranet read-heavy use:
  multiple readers never block, single writer at a time.

USAGE:
  st, err := sqlite.New("./data/logbook.db")
  defer st.Close()
  fetcher := leave.NewFetcher(st)
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/thegspiro/the-logbook-sub005/compliance"
	"github.com/thegspiro/the-logbook-sub005/leave"
)

// Store implements the storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var (
	_ leave.TxStore                = (*Store)(nil)
	_ compliance.RequirementSource = (*Store)(nil)
	_ compliance.ActivitySource    = (*Store)(nil)
	_ compliance.RosterSource      = (*Store)(nil)
	_ compliance.MeetingSource     = (*Store)(nil)
)

// New opens (or creates) the database. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS members (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		PRIMARY KEY (org_id, id)
	);

	CREATE TABLE IF NOT EXISTS requirements (
		id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		req_type TEXT NOT NULL,
		frequency TEXT NOT NULL,
		required_value TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (org_id, id)
	);

	CREATE TABLE IF NOT EXISTS leaves_of_absence (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		leave_type TEXT NOT NULL,
		reason TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		exempt_from_training_waiver BOOLEAN NOT NULL DEFAULT FALSE,
		linked_waiver_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loa_org_user_active
		ON leaves_of_absence(org_id, user_id, active);
	CREATE INDEX IF NOT EXISTS idx_loa_org_active
		ON leaves_of_absence(org_id, active);

	CREATE TABLE IF NOT EXISTS training_waivers (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT,
		requirement_ids_json TEXT,
		reason TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		linked_leave_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tw_org_user_active
		ON training_waivers(org_id, user_id, active);
	CREATE INDEX IF NOT EXISTS idx_tw_org_active
		ON training_waivers(org_id, active);
	CREATE INDEX IF NOT EXISTS idx_tw_linked_leave
		ON training_waivers(linked_leave_id) WHERE linked_leave_id IS NOT NULL;

	CREATE TABLE IF NOT EXISTS training_records (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		requirement_id TEXT NOT NULL,
		activity_date TEXT NOT NULL,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_org_user_req_date
		ON training_records(org_id, user_id, requirement_id, activity_date);

	CREATE TABLE IF NOT EXISTS meetings (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		meeting_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_meetings_org_date
		ON meetings(org_id, meeting_date);

	CREATE TABLE IF NOT EXISTS meeting_attendance (
		meeting_id TEXT NOT NULL,
		org_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		attended BOOLEAN NOT NULL DEFAULT FALSE,
		waived BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (meeting_id, user_id)
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_org_user
		ON meeting_attendance(org_id, user_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// queryer abstracts *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// DATE ENCODING
// =============================================================================

func encodeDate(d compliance.Date) string { return d.String() }

func encodeEndDate(d *compliance.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decodeDate(s string) (compliance.Date, error) {
	return compliance.ParseDate(s)
}

func decodeEndDate(ns sql.NullString) (*compliance.Date, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := compliance.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// =============================================================================
// LEAVE STORE (leave.LeaveStore interface)
// =============================================================================

const leaveColumns = `id, org_id, user_id, start_date, end_date, leave_type,
	reason, active, exempt_from_training_waiver, linked_waiver_id, created_at, updated_at`

func (s *Store) CreateLeave(ctx context.Context, l leave.LeaveOfAbsence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createLeave(ctx, s.db, l)
}

func createLeave(ctx context.Context, q queryer, l leave.LeaveOfAbsence) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leaves_of_absence (`+leaveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.OrgID, l.UserID,
		encodeDate(l.StartDate), encodeEndDate(l.EndDate),
		l.Type, l.Reason, l.Active, l.ExemptFromTrainingWaiver,
		nullString(l.LinkedWaiverID),
		l.CreatedAt.UTC().Format(time.RFC3339), l.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert leave: %w", err)
	}
	return nil
}

func (s *Store) UpdateLeave(ctx context.Context, l leave.LeaveOfAbsence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateLeave(ctx, s.db, l)
}

func updateLeave(ctx context.Context, q queryer, l leave.LeaveOfAbsence) error {
	res, err := q.ExecContext(ctx, `
		UPDATE leaves_of_absence
		SET start_date = ?, end_date = ?, leave_type = ?, reason = ?,
		    active = ?, exempt_from_training_waiver = ?, linked_waiver_id = ?,
		    updated_at = ?
		WHERE id = ? AND org_id = ?`,
		encodeDate(l.StartDate), encodeEndDate(l.EndDate),
		l.Type, l.Reason, l.Active, l.ExemptFromTrainingWaiver,
		nullString(l.LinkedWaiverID),
		l.UpdatedAt.UTC().Format(time.RFC3339),
		l.ID, l.OrgID,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return compliance.ErrNotFound
	}
	return nil
}

func (s *Store) GetLeave(ctx context.Context, org compliance.OrgID, id string) (*leave.LeaveOfAbsence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLeave(ctx, s.db, org, id)
}

func getLeave(ctx context.Context, q queryer, org compliance.OrgID, id string) (*leave.LeaveOfAbsence, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+leaveColumns+` FROM leaves_of_absence WHERE id = ? AND org_id = ?`,
		id, org)
	l, err := scanLeave(row)
	if err == sql.ErrNoRows {
		return nil, compliance.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Store) ActiveLeavesByUser(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]leave.LeaveOfAbsence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryLeaves(ctx, s.db, `
		SELECT `+leaveColumns+` FROM leaves_of_absence
		WHERE org_id = ? AND user_id = ? AND active = TRUE
		ORDER BY start_date ASC`, org, user)
}

func (s *Store) ActiveLeavesByOrg(ctx context.Context, org compliance.OrgID) ([]leave.LeaveOfAbsence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryLeaves(ctx, s.db, `
		SELECT `+leaveColumns+` FROM leaves_of_absence
		WHERE org_id = ? AND active = TRUE
		ORDER BY user_id ASC, start_date ASC`, org)
}

func queryLeaves(ctx context.Context, q queryer, query string, args ...any) ([]leave.LeaveOfAbsence, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var leaves []leave.LeaveOfAbsence
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, *l)
	}
	return leaves, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLeave(row rowScanner) (*leave.LeaveOfAbsence, error) {
	var (
		l         leave.LeaveOfAbsence
		startDate string
		endDate   sql.NullString
		reason    sql.NullString
		linkedID  sql.NullString
		createdAt string
		updatedAt string
	)

	err := row.Scan(
		&l.ID, &l.OrgID, &l.UserID, &startDate, &endDate, &l.Type,
		&reason, &l.Active, &l.ExemptFromTrainingWaiver, &linkedID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if l.StartDate, err = decodeDate(startDate); err != nil {
		return nil, fmt.Errorf("failed to decode leave start date: %w", err)
	}
	if l.EndDate, err = decodeEndDate(endDate); err != nil {
		return nil, fmt.Errorf("failed to decode leave end date: %w", err)
	}
	l.Reason = reason.String
	if linkedID.Valid {
		l.LinkedWaiverID = &linkedID.String
	}
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &l, nil
}

// =============================================================================
// WAIVER STORE (leave.WaiverStore interface)
// =============================================================================

const waiverColumns = `id, org_id, user_id, start_date, end_date,
	requirement_ids_json, reason, active, linked_leave_id, created_at, updated_at`

func (s *Store) CreateWaiver(ctx context.Context, w leave.TrainingWaiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createWaiver(ctx, s.db, w)
}

func createWaiver(ctx context.Context, q queryer, w leave.TrainingWaiver) error {
	reqIDs, err := encodeRequirementIDs(w.RequirementIDs)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO training_waivers (`+waiverColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.OrgID, w.UserID,
		encodeDate(w.StartDate), encodeEndDate(w.EndDate),
		reqIDs, w.Reason, w.Active, nullString(w.LinkedLeaveID),
		w.CreatedAt.UTC().Format(time.RFC3339), w.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert waiver: %w", err)
	}
	return nil
}

func (s *Store) UpdateWaiver(ctx context.Context, w leave.TrainingWaiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateWaiver(ctx, s.db, w)
}

func updateWaiver(ctx context.Context, q queryer, w leave.TrainingWaiver) error {
	reqIDs, err := encodeRequirementIDs(w.RequirementIDs)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE training_waivers
		SET start_date = ?, end_date = ?, requirement_ids_json = ?, reason = ?,
		    active = ?, linked_leave_id = ?, updated_at = ?
		WHERE id = ? AND org_id = ?`,
		encodeDate(w.StartDate), encodeEndDate(w.EndDate),
		reqIDs, w.Reason, w.Active, nullString(w.LinkedLeaveID),
		w.UpdatedAt.UTC().Format(time.RFC3339),
		w.ID, w.OrgID,
	)
	if err != nil {
		return fmt.Errorf("failed to update waiver: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return compliance.ErrNotFound
	}
	return nil
}

func (s *Store) GetWaiver(ctx context.Context, org compliance.OrgID, id string) (*leave.TrainingWaiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getWaiver(ctx, s.db, org, id)
}

func getWaiver(ctx context.Context, q queryer, org compliance.OrgID, id string) (*leave.TrainingWaiver, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+waiverColumns+` FROM training_waivers WHERE id = ? AND org_id = ?`,
		id, org)
	w, err := scanWaiver(row)
	if err == sql.ErrNoRows {
		return nil, compliance.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) ActiveWaiversByUser(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]leave.TrainingWaiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryWaivers(ctx, s.db, `
		SELECT `+waiverColumns+` FROM training_waivers
		WHERE org_id = ? AND user_id = ? AND active = TRUE
		ORDER BY start_date ASC`, org, user)
}

func (s *Store) ActiveWaiversByOrg(ctx context.Context, org compliance.OrgID) ([]leave.TrainingWaiver, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryWaivers(ctx, s.db, `
		SELECT `+waiverColumns+` FROM training_waivers
		WHERE org_id = ? AND active = TRUE
		ORDER BY user_id ASC, start_date ASC`, org)
}

func queryWaivers(ctx context.Context, q queryer, query string, args ...any) ([]leave.TrainingWaiver, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query waivers: %w", err)
	}
	defer rows.Close()

	var waivers []leave.TrainingWaiver
	for rows.Next() {
		w, err := scanWaiver(rows)
		if err != nil {
			return nil, err
		}
		waivers = append(waivers, *w)
	}
	return waivers, rows.Err()
}

func scanWaiver(row rowScanner) (*leave.TrainingWaiver, error) {
	var (
		w          leave.TrainingWaiver
		startDate  string
		endDate    sql.NullString
		reqIDsJSON sql.NullString
		reason     sql.NullString
		linkedID   sql.NullString
		createdAt  string
		updatedAt  string
	)

	err := row.Scan(
		&w.ID, &w.OrgID, &w.UserID, &startDate, &endDate,
		&reqIDsJSON, &reason, &w.Active, &linkedID, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if w.StartDate, err = decodeDate(startDate); err != nil {
		return nil, fmt.Errorf("failed to decode waiver start date: %w", err)
	}
	if w.EndDate, err = decodeEndDate(endDate); err != nil {
		return nil, fmt.Errorf("failed to decode waiver end date: %w", err)
	}
	if reqIDsJSON.Valid && reqIDsJSON.String != "" {
		if err := json.Unmarshal([]byte(reqIDsJSON.String), &w.RequirementIDs); err != nil {
			return nil, fmt.Errorf("failed to decode waiver requirement ids: %w", err)
		}
	}
	w.Reason = reason.String
	if linkedID.Valid {
		w.LinkedLeaveID = &linkedID.String
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	w.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &w, nil
}

func encodeRequirementIDs(ids []compliance.RequirementID) (any, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(ids)
	if err != nil {
		return nil, fmt.Errorf("failed to encode requirement ids: %w", err)
	}
	return string(b), nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// =============================================================================
// TRANSACTIONAL STORE (leave.TxStore interface)
// =============================================================================

// WithTx executes fn within one SQL transaction.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (t *txStore) CreateLeave(ctx context.Context, l leave.LeaveOfAbsence) error {
	return createLeave(ctx, t.tx, l)
}

func (t *txStore) UpdateLeave(ctx context.Context, l leave.LeaveOfAbsence) error {
	return updateLeave(ctx, t.tx, l)
}

func (t *txStore) GetLeave(ctx context.Context, org compliance.OrgID, id string) (*leave.LeaveOfAbsence, error) {
	return getLeave(ctx, t.tx, org, id)
}

func (t *txStore) ActiveLeavesByUser(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]leave.LeaveOfAbsence, error) {
	return queryLeaves(ctx, t.tx, `
		SELECT `+leaveColumns+` FROM leaves_of_absence
		WHERE org_id = ? AND user_id = ? AND active = TRUE
		ORDER BY start_date ASC`, org, user)
}

func (t *txStore) ActiveLeavesByOrg(ctx context.Context, org compliance.OrgID) ([]leave.LeaveOfAbsence, error) {
	return queryLeaves(ctx, t.tx, `
		SELECT `+leaveColumns+` FROM leaves_of_absence
		WHERE org_id = ? AND active = TRUE
		ORDER BY user_id ASC, start_date ASC`, org)
}

func (t *txStore) CreateWaiver(ctx context.Context, w leave.TrainingWaiver) error {
	return createWaiver(ctx, t.tx, w)
}

func (t *txStore) UpdateWaiver(ctx context.Context, w leave.TrainingWaiver) error {
	return updateWaiver(ctx, t.tx, w)
}

func (t *txStore) GetWaiver(ctx context.Context, org compliance.OrgID, id string) (*leave.TrainingWaiver, error) {
	return getWaiver(ctx, t.tx, org, id)
}

func (t *txStore) ActiveWaiversByUser(ctx context.Context, org compliance.OrgID, user compliance.UserID) ([]leave.TrainingWaiver, error) {
	return queryWaivers(ctx, t.tx, `
		SELECT `+waiverColumns+` FROM training_waivers
		WHERE org_id = ? AND user_id = ? AND active = TRUE
		ORDER BY start_date ASC`, org, user)
}

func (t *txStore) ActiveWaiversByOrg(ctx context.Context, org compliance.OrgID) ([]leave.TrainingWaiver, error) {
	return queryWaivers(ctx, t.tx, `
		SELECT `+waiverColumns+` FROM training_waivers
		WHERE org_id = ? AND active = TRUE
		ORDER BY user_id ASC, start_date ASC`, org)
}

// =============================================================================
// REQUIREMENT SOURCE (compliance.RequirementSource interface)
// =============================================================================

func (s *Store) ListRequirements(ctx context.Context, org compliance.OrgID) ([]compliance.Requirement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, req_type, frequency, required_value
		FROM requirements WHERE org_id = ? ORDER BY id ASC`, org)
	if err != nil {
		return nil, fmt.Errorf("failed to query requirements: %w", err)
	}
	defer rows.Close()

	var reqs []compliance.Requirement
	for rows.Next() {
		var (
			r        compliance.Requirement
			reqType  string
			freq     string
			required string
		)
		if err := rows.Scan(&r.ID, &r.Name, &reqType, &freq, &required); err != nil {
			return nil, fmt.Errorf("failed to scan requirement: %w", err)
		}
		r.Type = compliance.RequirementType(reqType)
		r.Frequency = compliance.Frequency(freq)
		if r.RequiredValue, err = decimal.NewFromString(required); err != nil {
			return nil, fmt.Errorf("failed to decode required value: %w", err)
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// CreateRequirement inserts a requirement definition.
func (s *Store) CreateRequirement(ctx context.Context, org compliance.OrgID, r compliance.Requirement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO requirements (id, org_id, name, req_type, frequency, required_value)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.ID, org, r.Name, r.Type, r.Frequency, r.RequiredValue.String())
	if err != nil {
		return fmt.Errorf("failed to insert requirement: %w", err)
	}
	return nil
}

// =============================================================================
// ROSTER SOURCE (compliance.RosterSource interface)
// =============================================================================

func (s *Store) Members(ctx context.Context, org compliance.OrgID) ([]compliance.UserID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM members WHERE org_id = ? AND active = TRUE ORDER BY id ASC`, org)
	if err != nil {
		return nil, fmt.Errorf("failed to query members: %w", err)
	}
	defer rows.Close()

	var members []compliance.UserID
	for rows.Next() {
		var id compliance.UserID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, id)
	}
	return members, rows.Err()
}

// AddMember inserts a roster entry.
func (s *Store) AddMember(ctx context.Context, org compliance.OrgID, user compliance.UserID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO members (id, org_id, name, active) VALUES (?, ?, ?, TRUE)`,
		user, org, name)
	if err != nil {
		return fmt.Errorf("failed to insert member: %w", err)
	}
	return nil
}

// =============================================================================
// ACTIVITY SOURCE (compliance.ActivitySource interface)
// =============================================================================

func (s *Store) CompletedValue(ctx context.Context, org compliance.OrgID, user compliance.UserID, req compliance.RequirementID, window compliance.Window) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT value FROM training_records
		WHERE org_id = ? AND user_id = ? AND requirement_id = ?
		  AND activity_date >= ? AND activity_date <= ?`,
		org, user, req, encodeDate(window.Start), encodeDate(window.End))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query training records: %w", err)
	}
	defer rows.Close()

	// Values are summed in decimal, not SQL, to avoid float accumulation.
	total := decimal.Zero
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan training record: %w", err)
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to decode training record value: %w", err)
		}
		total = total.Add(d)
	}
	return total, rows.Err()
}

// RecordActivity logs completed hours/shifts/calls for a member.
func (s *Store) RecordActivity(ctx context.Context, id string, org compliance.OrgID, user compliance.UserID, req compliance.RequirementID, date compliance.Date, value decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO training_records (id, org_id, user_id, requirement_id, activity_date, value)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, org, user, req, encodeDate(date), value.String())
	if err != nil {
		return fmt.Errorf("failed to insert training record: %w", err)
	}
	return nil
}

// =============================================================================
// MEETING SOURCE (compliance.MeetingSource interface)
// =============================================================================

func (s *Store) Meetings(ctx context.Context, org compliance.OrgID, window compliance.Window) ([]compliance.Meeting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meeting_date FROM meetings
		WHERE org_id = ? AND meeting_date >= ? AND meeting_date <= ?
		ORDER BY meeting_date ASC`,
		org, encodeDate(window.Start), encodeDate(window.End))
	if err != nil {
		return nil, fmt.Errorf("failed to query meetings: %w", err)
	}
	defer rows.Close()

	var meetings []compliance.Meeting
	for rows.Next() {
		var (
			m    compliance.Meeting
			date string
		)
		if err := rows.Scan(&m.ID, &date); err != nil {
			return nil, fmt.Errorf("failed to scan meeting: %w", err)
		}
		if m.Date, err = decodeDate(date); err != nil {
			return nil, fmt.Errorf("failed to decode meeting date: %w", err)
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

func (s *Store) AttendanceCounts(ctx context.Context, org compliance.OrgID, user compliance.UserID, window compliance.Window) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var attended, waived int
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(CASE WHEN a.attended THEN 1 END),
			COUNT(CASE WHEN a.waived THEN 1 END)
		FROM meeting_attendance a
		JOIN meetings m ON m.id = a.meeting_id
		WHERE a.org_id = ? AND a.user_id = ?
		  AND m.meeting_date >= ? AND m.meeting_date <= ?`,
		org, user, encodeDate(window.Start), encodeDate(window.End),
	).Scan(&attended, &waived)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query attendance: %w", err)
	}
	return attended, waived, nil
}

// RecordAttendance upserts one member's attendance row for a meeting.
func (s *Store) RecordAttendance(ctx context.Context, meetingID string, org compliance.OrgID, user compliance.UserID, attended, waived bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meeting_attendance (meeting_id, org_id, user_id, attended, waived)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (meeting_id, user_id) DO UPDATE SET attended = ?, waived = ?`,
		meetingID, org, user, attended, waived, attended, waived)
	if err != nil {
		return fmt.Errorf("failed to record attendance: %w", err)
	}
	return nil
}

// CreateMeeting inserts a meeting.
func (s *Store) CreateMeeting(ctx context.Context, id string, org compliance.OrgID, date compliance.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meetings (id, org_id, meeting_date) VALUES (?, ?, ?)`,
		id, org, encodeDate(date))
	if err != nil {
		return fmt.Errorf("failed to insert meeting: %w", err)
	}
	return nil
}
