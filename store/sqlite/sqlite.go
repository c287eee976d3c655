/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces (reservations, catalog, directory, attendance, leave).

KEY TABLES:
  resources:          schedulable catalog (desks, rooms, tables)
  users:              directory records with hierarchy pointer codes
  reservations:       bookings with date range + optional time window
  attendance_records: attendance periods (clock entries stored as JSON)
  leave_requests:     leave requests with snapshotted approver codes
  leave_balances:     per-owner per-year day buckets

SERIALIZATION:
  WithTx / WithLeaveTx open their transaction with BEGIN IMMEDIATE, which
  takes SQLite's write lock up front. The overlap check and the insert
  therefore execute as one serialized unit: two concurrent requests for
  the same slot cannot both pass the check before either commits.

WAL MODE:
  The database is opened with WAL so readers don't block behind the
  single writer.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a versioned
  migration tool.

SEE ALSO:
  - booking/store.go, approval/store.go: interface definitions
  - store/memory: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/booking-engine/approval"
	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/interval"
	"github.com/warp/booking-engine/org"
)

const dayFormat = "2006-01-02"

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at dbPath. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	// _txlock=immediate makes every transaction BEGIN IMMEDIATE: the write
	// lock is taken up front, which is the serialization point WithTx
	// promises.
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps transaction semantics predictable under go-sqlite3.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resources (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		name TEXT NOT NULL,
		capacity INTEGER NOT NULL DEFAULT 1,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		maintenance BOOLEAN NOT NULL DEFAULT FALSE
	);

	CREATE TABLE IF NOT EXISTS users (
		code TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		team_lead_code TEXT,
		manager_code TEXT,
		admin_code TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_users_role ON users(role, active);

	CREATE TABLE IF NOT EXISTS reservations (
		id TEXT PRIMARY KEY,
		resource_id TEXT NOT NULL,
		resource_kind TEXT NOT NULL,
		requester_code TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		window_start TEXT,
		window_end TEXT,
		guests INTEGER NOT NULL DEFAULT 1,
		status TEXT NOT NULL,
		reason TEXT,
		rejection_reason TEXT,
		approved_by TEXT,
		approval_notes TEXT,
		cancelled_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: coarse date-range filter per resource.
	CREATE INDEX IF NOT EXISTS idx_reservations_resource_dates
		ON reservations(resource_id, start_date, end_date);
	CREATE INDEX IF NOT EXISTS idx_reservations_requester
		ON reservations(requester_code, resource_kind, start_date);
	CREATE INDEX IF NOT EXISTS idx_reservations_status
		ON reservations(status);

	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		owner_code TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		entries_json TEXT NOT NULL DEFAULT '[]',
		status TEXT NOT NULL,
		approver_code TEXT,
		notes TEXT,
		rejection_reason TEXT,
		submitted_at TEXT,
		decided_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_owner
		ON attendance_records(owner_code, status);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		owner_code TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL,
		status TEXT NOT NULL,
		level1_approver_code TEXT,
		final_approver_code TEXT,
		reason TEXT,
		rejection_reason TEXT,
		decided_at TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leave_owner
		ON leave_requests(owner_code, status);

	CREATE TABLE IF NOT EXISTS leave_balances (
		owner_code TEXT NOT NULL,
		year INTEGER NOT NULL,
		total_days TEXT NOT NULL DEFAULT '0',
		used_days TEXT NOT NULL DEFAULT '0',
		pending_days TEXT NOT NULL DEFAULT '0',
		PRIMARY KEY (owner_code, year)
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CATALOG
// =============================================================================

// SaveResource upserts a catalog entry.
func (s *Store) SaveResource(ctx context.Context, r booking.Resource) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO resources (id, kind, name, capacity, active, maintenance)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			kind = excluded.kind,
			name = excluded.name,
			capacity = excluded.capacity,
			active = excluded.active,
			maintenance = excluded.maintenance
	`, r.ID, r.Kind, r.Name, r.Capacity, r.Active, r.Maintenance)
	return err
}

func (s *Store) GetResource(ctx context.Context, id string) (booking.Resource, error) {
	var r booking.Resource
	err := s.db.QueryRowContext(ctx,
		"SELECT id, kind, name, capacity, active, maintenance FROM resources WHERE id = ?", id,
	).Scan(&r.ID, &r.Kind, &r.Name, &r.Capacity, &r.Active, &r.Maintenance)
	if errors.Is(err, sql.ErrNoRows) {
		return booking.Resource{}, booking.ErrResourceNotFound
	}
	return r, err
}

// ListResources returns the whole catalog, ordered by name.
func (s *Store) ListResources(ctx context.Context) ([]booking.Resource, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, kind, name, capacity, active, maintenance FROM resources ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []booking.Resource
	for rows.Next() {
		var r booking.Resource
		if err := rows.Scan(&r.ID, &r.Kind, &r.Name, &r.Capacity, &r.Active, &r.Maintenance); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// DIRECTORY
// =============================================================================

// SaveUser upserts a directory record.
func (s *Store) SaveUser(ctx context.Context, u org.User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (code, name, role, active, team_lead_code, manager_code, admin_code)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(code) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			active = excluded.active,
			team_lead_code = excluded.team_lead_code,
			manager_code = excluded.manager_code,
			admin_code = excluded.admin_code
	`, u.Code, u.Name, u.Role, u.Active, u.TeamLeadCode, u.ManagerCode, u.AdminCode)
	return err
}

func (s *Store) GetUser(ctx context.Context, code string) (org.User, error) {
	var u org.User
	var teamLead, manager, admin sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT code, name, role, active, team_lead_code, manager_code, admin_code FROM users WHERE code = ?", code,
	).Scan(&u.Code, &u.Name, &u.Role, &u.Active, &teamLead, &manager, &admin)
	if errors.Is(err, sql.ErrNoRows) {
		return org.User{}, org.ErrUserNotFound
	}
	if err != nil {
		return org.User{}, err
	}
	u.TeamLeadCode = teamLead.String
	u.ManagerCode = manager.String
	u.AdminCode = admin.String
	return u, nil
}

func (s *Store) FindActiveByRole(ctx context.Context, role org.Role) ([]org.User, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT code, name, role, active, team_lead_code, manager_code, admin_code FROM users WHERE role = ? AND active", role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []org.User
	for rows.Next() {
		var u org.User
		var teamLead, manager, admin sql.NullString
		if err := rows.Scan(&u.Code, &u.Name, &u.Role, &u.Active, &teamLead, &manager, &admin); err != nil {
			return nil, err
		}
		u.TeamLeadCode = teamLead.String
		u.ManagerCode = manager.String
		u.AdminCode = admin.String
		out = append(out, u)
	}
	return out, rows.Err()
}

// =============================================================================
// RESERVATIONS (booking.ReservationStore)
// =============================================================================

func (s *Store) Insert(ctx context.Context, r booking.Reservation) error {
	return insertReservation(ctx, s.db, r)
}

func insertReservation(ctx context.Context, q querier, r booking.Reservation) error {
	windowStart, windowEnd := windowColumns(r.Span.Window)
	_, err := q.ExecContext(ctx, `
		INSERT INTO reservations
		(id, resource_id, resource_kind, requester_code, start_date, end_date,
		 window_start, window_end, guests, status, reason, rejection_reason,
		 approved_by, approval_notes, cancelled_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.ResourceID, r.ResourceKind, r.RequesterCode,
		r.Span.StartDate.Format(dayFormat), r.Span.EndDate.Format(dayFormat),
		windowStart, windowEnd, r.Guests, r.Status,
		nullString(r.Reason), nullString(r.RejectionReason),
		nullString(r.ApprovedBy), nullString(r.ApprovalNotes),
		nullTime(r.CancelledAt),
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (booking.Reservation, error) {
	return getReservation(ctx, s.db, id)
}

func getReservation(ctx context.Context, q querier, id string) (booking.Reservation, error) {
	rows, err := q.QueryContext(ctx, reservationSelect+" WHERE id = ?", id)
	if err != nil {
		return booking.Reservation{}, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return booking.Reservation{}, err
		}
		return booking.Reservation{}, booking.ErrReservationNotFound
	}
	return scanReservation(rows)
}

func (s *Store) Update(ctx context.Context, r booking.Reservation) error {
	return updateReservation(ctx, s.db, r)
}

func updateReservation(ctx context.Context, q querier, r booking.Reservation) error {
	res, err := q.ExecContext(ctx, `
		UPDATE reservations SET
			status = ?, reason = ?, rejection_reason = ?,
			approved_by = ?, approval_notes = ?, cancelled_at = ?, updated_at = ?
		WHERE id = ?
	`,
		r.Status, nullString(r.Reason), nullString(r.RejectionReason),
		nullString(r.ApprovedBy), nullString(r.ApprovalNotes),
		nullTime(r.CancelledAt), r.UpdatedAt.UTC().Format(time.RFC3339),
		r.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrReservationNotFound
	}
	return nil
}

const reservationSelect = `
	SELECT id, resource_id, resource_kind, requester_code, start_date, end_date,
	       window_start, window_end, guests, status, reason, rejection_reason,
	       approved_by, approval_notes, cancelled_at, created_at, updated_at
	FROM reservations`

func (s *Store) ListForResource(ctx context.Context, resourceID string, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	return listForResource(ctx, s.db, resourceID, from, to, statuses)
}

func listForResource(ctx context.Context, q querier, resourceID string, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	query, args := statusClause(reservationSelect+`
		WHERE resource_id = ? AND start_date <= ? AND end_date >= ?`,
		[]any{resourceID, to.Format(dayFormat), from.Format(dayFormat)}, statuses)
	return queryReservations(ctx, q, query, args...)
}

func (s *Store) ListForRequester(ctx context.Context, requesterCode string, kind booking.ResourceKind, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	return listForRequester(ctx, s.db, requesterCode, kind, from, to, statuses)
}

func listForRequester(ctx context.Context, q querier, requesterCode string, kind booking.ResourceKind, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	query, args := statusClause(reservationSelect+`
		WHERE requester_code = ? AND resource_kind = ? AND start_date <= ? AND end_date >= ?`,
		[]any{requesterCode, kind, to.Format(dayFormat), from.Format(dayFormat)}, statuses)
	return queryReservations(ctx, q, query, args...)
}

func (s *Store) ListActive(ctx context.Context) ([]booking.Reservation, error) {
	return listActive(ctx, s.db)
}

func listActive(ctx context.Context, q querier) ([]booking.Reservation, error) {
	return queryReservations(ctx, q,
		reservationSelect+" WHERE status IN (?, ?)", booking.StatusPending, booking.StatusConfirmed)
}

// statusClause appends an IN (...) filter for the status set.
func statusClause(query string, args []any, statuses []booking.Status) (string, []any) {
	if len(statuses) == 0 {
		return query, args
	}
	query += " AND status IN ("
	for i, st := range statuses {
		if i > 0 {
			query += ", "
		}
		query += "?"
		args = append(args, st)
	}
	query += ")"
	return query, args
}

func queryReservations(ctx context.Context, q querier, query string, args ...any) ([]booking.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	var out []booking.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanReservation(rows *sql.Rows) (booking.Reservation, error) {
	var (
		r                        booking.Reservation
		startDate, endDate       string
		windowStart, windowEnd   sql.NullString
		reason, rejectionReason  sql.NullString
		approvedBy, approvalNote sql.NullString
		cancelledAt              sql.NullString
		createdAt, updatedAt     string
	)
	err := rows.Scan(
		&r.ID, &r.ResourceID, &r.ResourceKind, &r.RequesterCode,
		&startDate, &endDate, &windowStart, &windowEnd, &r.Guests,
		&r.Status, &reason, &rejectionReason, &approvedBy, &approvalNote,
		&cancelledAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return r, fmt.Errorf("failed to scan reservation: %w", err)
	}

	r.Span.StartDate, _ = time.Parse(dayFormat, startDate)
	r.Span.EndDate, _ = time.Parse(dayFormat, endDate)
	if windowStart.Valid && windowEnd.Valid {
		ws, err := interval.ParseTimeOfDay(windowStart.String)
		if err != nil {
			return r, err
		}
		we, err := interval.ParseTimeOfDay(windowEnd.String)
		if err != nil {
			return r, err
		}
		r.Span.Window = &interval.TimeWindow{Start: ws, End: we}
	}
	r.Reason = reason.String
	r.RejectionReason = rejectionReason.String
	r.ApprovedBy = approvedBy.String
	r.ApprovalNotes = approvalNote.String
	if cancelledAt.Valid {
		t, _ := time.Parse(time.RFC3339, cancelledAt.String)
		r.CancelledAt = &t
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return r, nil
}

// WithTx executes fn inside BEGIN IMMEDIATE, the serialization point for
// overlap-check-then-insert.
func (s *Store) WithTx(ctx context.Context, fn func(booking.ReservationStore) error) error {
	return s.immediateTx(ctx, func(tx *sql.Tx) error {
		return fn(&txStore{tx: tx})
	})
}

func (s *Store) immediateTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) Insert(ctx context.Context, r booking.Reservation) error {
	return insertReservation(ctx, ts.tx, r)
}

func (ts *txStore) Get(ctx context.Context, id string) (booking.Reservation, error) {
	return getReservation(ctx, ts.tx, id)
}

func (ts *txStore) Update(ctx context.Context, r booking.Reservation) error {
	return updateReservation(ctx, ts.tx, r)
}

func (ts *txStore) ListForResource(ctx context.Context, resourceID string, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	return listForResource(ctx, ts.tx, resourceID, from, to, statuses)
}

func (ts *txStore) ListForRequester(ctx context.Context, requesterCode string, kind booking.ResourceKind, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	return listForRequester(ctx, ts.tx, requesterCode, kind, from, to, statuses)
}

func (ts *txStore) ListActive(ctx context.Context) ([]booking.Reservation, error) {
	return listActive(ctx, ts.tx)
}

// =============================================================================
// ATTENDANCE (approval.TxAttendanceStore)
// =============================================================================

// storedEntry is the JSON shape of one clock-in/clock-out pair.
type storedEntry struct {
	ClockIn  string  `json:"clock_in"`
	ClockOut *string `json:"clock_out,omitempty"`
}

func (s *Store) InsertAttendance(ctx context.Context, rec approval.AttendanceRecord) error {
	return insertAttendance(ctx, s.db, rec)
}

func insertAttendance(ctx context.Context, q querier, rec approval.AttendanceRecord) error {
	entries, err := marshalEntries(rec.Entries)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO attendance_records
		(id, owner_code, period_start, period_end, entries_json, status,
		 approver_code, notes, rejection_reason, submitted_at, decided_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, rec.OwnerCode,
		rec.PeriodStart.Format(dayFormat), rec.PeriodEnd.Format(dayFormat),
		entries, rec.Status, nullString(rec.ApproverCode),
		nullString(rec.Notes), nullString(rec.RejectionReason),
		nullTime(rec.SubmittedAt), nullTime(rec.DecidedAt),
		rec.CreatedAt.UTC().Format(time.RFC3339), rec.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetAttendance(ctx context.Context, id string) (approval.AttendanceRecord, error) {
	return getAttendance(ctx, s.db, id)
}

func getAttendance(ctx context.Context, q querier, id string) (approval.AttendanceRecord, error) {
	var (
		rec                     approval.AttendanceRecord
		periodStart, periodEnd  string
		entriesJSON             string
		approver, notes, reject sql.NullString
		submittedAt, decidedAt  sql.NullString
		createdAt, updatedAt    string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, owner_code, period_start, period_end, entries_json, status,
		       approver_code, notes, rejection_reason, submitted_at, decided_at, created_at, updated_at
		FROM attendance_records WHERE id = ?
	`, id).Scan(
		&rec.ID, &rec.OwnerCode, &periodStart, &periodEnd, &entriesJSON, &rec.Status,
		&approver, &notes, &reject, &submittedAt, &decidedAt, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return approval.AttendanceRecord{}, approval.ErrRecordNotFound
	}
	if err != nil {
		return approval.AttendanceRecord{}, err
	}

	rec.PeriodStart, _ = time.Parse(dayFormat, periodStart)
	rec.PeriodEnd, _ = time.Parse(dayFormat, periodEnd)
	rec.Entries, err = unmarshalEntries(entriesJSON)
	if err != nil {
		return approval.AttendanceRecord{}, err
	}
	rec.ApproverCode = approver.String
	rec.Notes = notes.String
	rec.RejectionReason = reject.String
	rec.SubmittedAt = parseNullTime(submittedAt)
	rec.DecidedAt = parseNullTime(decidedAt)
	rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return rec, nil
}

func (s *Store) UpdateAttendance(ctx context.Context, rec approval.AttendanceRecord) error {
	return updateAttendance(ctx, s.db, rec)
}

func updateAttendance(ctx context.Context, q querier, rec approval.AttendanceRecord) error {
	entries, err := marshalEntries(rec.Entries)
	if err != nil {
		return err
	}
	res, err := q.ExecContext(ctx, `
		UPDATE attendance_records SET
			entries_json = ?, status = ?, approver_code = ?, notes = ?,
			rejection_reason = ?, submitted_at = ?, decided_at = ?, updated_at = ?
		WHERE id = ?
	`,
		entries, rec.Status, nullString(rec.ApproverCode), nullString(rec.Notes),
		nullString(rec.RejectionReason), nullTime(rec.SubmittedAt), nullTime(rec.DecidedAt),
		rec.UpdatedAt.UTC().Format(time.RFC3339), rec.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return approval.ErrRecordNotFound
	}
	return nil
}

// WithAttendanceTx mirrors WithTx for attendance data.
func (s *Store) WithAttendanceTx(ctx context.Context, fn func(approval.AttendanceStore) error) error {
	return s.immediateTx(ctx, func(tx *sql.Tx) error {
		return fn(&attendanceTxStore{tx: tx})
	})
}

type attendanceTxStore struct {
	tx *sql.Tx
}

func (ts *attendanceTxStore) InsertAttendance(ctx context.Context, rec approval.AttendanceRecord) error {
	return insertAttendance(ctx, ts.tx, rec)
}

func (ts *attendanceTxStore) GetAttendance(ctx context.Context, id string) (approval.AttendanceRecord, error) {
	return getAttendance(ctx, ts.tx, id)
}

func (ts *attendanceTxStore) UpdateAttendance(ctx context.Context, rec approval.AttendanceRecord) error {
	return updateAttendance(ctx, ts.tx, rec)
}

func marshalEntries(entries []approval.TimeEntry) (string, error) {
	stored := make([]storedEntry, len(entries))
	for i, e := range entries {
		stored[i].ClockIn = e.ClockIn.UTC().Format(time.RFC3339)
		if e.ClockOut != nil {
			out := e.ClockOut.UTC().Format(time.RFC3339)
			stored[i].ClockOut = &out
		}
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entries: %w", err)
	}
	return string(b), nil
}

func unmarshalEntries(data string) ([]approval.TimeEntry, error) {
	var stored []storedEntry
	if err := json.Unmarshal([]byte(data), &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entries: %w", err)
	}
	entries := make([]approval.TimeEntry, len(stored))
	for i, e := range stored {
		entries[i].ClockIn, _ = time.Parse(time.RFC3339, e.ClockIn)
		if e.ClockOut != nil {
			t, _ := time.Parse(time.RFC3339, *e.ClockOut)
			entries[i].ClockOut = &t
		}
	}
	return entries, nil
}

// =============================================================================
// LEAVE (approval.TxLeaveStore)
// =============================================================================

func (s *Store) InsertLeave(ctx context.Context, req approval.LeaveRequest) error {
	return insertLeave(ctx, s.db, req)
}

func insertLeave(ctx context.Context, q querier, req approval.LeaveRequest) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, owner_code, start_date, end_date, days, status,
		 level1_approver_code, final_approver_code, reason, rejection_reason,
		 decided_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		req.ID, req.OwnerCode,
		req.StartDate.Format(dayFormat), req.EndDate.Format(dayFormat),
		req.Days.String(), req.Status,
		nullString(req.Level1ApproverCode), nullString(req.FinalApproverCode),
		nullString(req.Reason), nullString(req.RejectionReason),
		nullTime(req.DecidedAt),
		req.CreatedAt.UTC().Format(time.RFC3339), req.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (s *Store) GetLeave(ctx context.Context, id string) (approval.LeaveRequest, error) {
	return getLeave(ctx, s.db, id)
}

func getLeave(ctx context.Context, q querier, id string) (approval.LeaveRequest, error) {
	var (
		req                  approval.LeaveRequest
		startDate, endDate   string
		days                 string
		level1, final        sql.NullString
		reason, reject       sql.NullString
		decidedAt            sql.NullString
		createdAt, updatedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, owner_code, start_date, end_date, days, status,
		       level1_approver_code, final_approver_code, reason, rejection_reason,
		       decided_at, created_at, updated_at
		FROM leave_requests WHERE id = ?
	`, id).Scan(
		&req.ID, &req.OwnerCode, &startDate, &endDate, &days, &req.Status,
		&level1, &final, &reason, &reject, &decidedAt, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return approval.LeaveRequest{}, approval.ErrRecordNotFound
	}
	if err != nil {
		return approval.LeaveRequest{}, err
	}

	req.StartDate, _ = time.Parse(dayFormat, startDate)
	req.EndDate, _ = time.Parse(dayFormat, endDate)
	req.Days, err = decimal.NewFromString(days)
	if err != nil {
		return approval.LeaveRequest{}, fmt.Errorf("failed to parse days: %w", err)
	}
	req.Level1ApproverCode = level1.String
	req.FinalApproverCode = final.String
	req.Reason = reason.String
	req.RejectionReason = reject.String
	req.DecidedAt = parseNullTime(decidedAt)
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return req, nil
}

func (s *Store) UpdateLeave(ctx context.Context, req approval.LeaveRequest) error {
	return updateLeave(ctx, s.db, req)
}

func updateLeave(ctx context.Context, q querier, req approval.LeaveRequest) error {
	res, err := q.ExecContext(ctx, `
		UPDATE leave_requests SET
			status = ?, rejection_reason = ?, decided_at = ?, updated_at = ?
		WHERE id = ?
	`,
		req.Status, nullString(req.RejectionReason), nullTime(req.DecidedAt),
		req.UpdatedAt.UTC().Format(time.RFC3339), req.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return approval.ErrRecordNotFound
	}
	return nil
}

func (s *Store) GetBalance(ctx context.Context, ownerCode string, year int) (approval.LeaveBalance, error) {
	return getBalance(ctx, s.db, ownerCode, year)
}

func getBalance(ctx context.Context, q querier, ownerCode string, year int) (approval.LeaveBalance, error) {
	b := approval.LeaveBalance{OwnerCode: ownerCode, Year: year}
	var total, used, pending string
	err := q.QueryRowContext(ctx,
		"SELECT total_days, used_days, pending_days FROM leave_balances WHERE owner_code = ? AND year = ?",
		ownerCode, year,
	).Scan(&total, &used, &pending)
	if errors.Is(err, sql.ErrNoRows) {
		// Zero balance until granted: matches the memory store.
		return b, nil
	}
	if err != nil {
		return approval.LeaveBalance{}, err
	}
	if b.TotalDays, err = decimal.NewFromString(total); err != nil {
		return approval.LeaveBalance{}, err
	}
	if b.UsedDays, err = decimal.NewFromString(used); err != nil {
		return approval.LeaveBalance{}, err
	}
	if b.PendingDays, err = decimal.NewFromString(pending); err != nil {
		return approval.LeaveBalance{}, err
	}
	return b, nil
}

func (s *Store) PutBalance(ctx context.Context, b approval.LeaveBalance) error {
	return putBalance(ctx, s.db, b)
}

func putBalance(ctx context.Context, q querier, b approval.LeaveBalance) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO leave_balances (owner_code, year, total_days, used_days, pending_days)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(owner_code, year) DO UPDATE SET
			total_days = excluded.total_days,
			used_days = excluded.used_days,
			pending_days = excluded.pending_days
	`, b.OwnerCode, b.Year, b.TotalDays.String(), b.UsedDays.String(), b.PendingDays.String())
	return err
}

// WithLeaveTx mirrors WithTx for leave data.
func (s *Store) WithLeaveTx(ctx context.Context, fn func(approval.LeaveStore) error) error {
	return s.immediateTx(ctx, func(tx *sql.Tx) error {
		return fn(&leaveTxStore{tx: tx})
	})
}

type leaveTxStore struct {
	tx *sql.Tx
}

func (ts *leaveTxStore) InsertLeave(ctx context.Context, req approval.LeaveRequest) error {
	return insertLeave(ctx, ts.tx, req)
}

func (ts *leaveTxStore) GetLeave(ctx context.Context, id string) (approval.LeaveRequest, error) {
	return getLeave(ctx, ts.tx, id)
}

func (ts *leaveTxStore) UpdateLeave(ctx context.Context, req approval.LeaveRequest) error {
	return updateLeave(ctx, ts.tx, req)
}

func (ts *leaveTxStore) GetBalance(ctx context.Context, ownerCode string, year int) (approval.LeaveBalance, error) {
	return getBalance(ctx, ts.tx, ownerCode, year)
}

func (ts *leaveTxStore) PutBalance(ctx context.Context, b approval.LeaveBalance) error {
	return putBalance(ctx, ts.tx, b)
}

// =============================================================================
// HELPERS
// =============================================================================

func windowColumns(w *interval.TimeWindow) (any, any) {
	if w == nil {
		return nil, nil
	}
	return w.Start.String(), w.End.String()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s.String)
	if err != nil {
		return nil
	}
	return &t
}

// Compile-time interface checks.
var (
	_ booking.TxStore            = (*Store)(nil)
	_ booking.Catalog            = (*Store)(nil)
	_ org.Directory              = (*Store)(nil)
	_ approval.TxAttendanceStore = (*Store)(nil)
	_ approval.TxLeaveStore      = (*Store)(nil)
)
