/*
Package memory provides an in-memory implementation of every persistence
interface (reservations, catalog, attendance, leave, directory).

Used by tests and by the server's dev mode (-db=":memory:" equivalent).
A single RWMutex guards all maps; WithTx takes the write lock for its
whole extent, which makes it the same serialization point the SQLite
store provides with BEGIN IMMEDIATE. Rollback is implemented by cloning
the state before fn runs and restoring the clone on error.
*/
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/warp/booking-engine/approval"
	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/org"
)

// Store holds all records in maps. Zero value is not usable; call New.
type Store struct {
	mu sync.RWMutex
	st *state
}

type state struct {
	resources    map[string]booking.Resource
	reservations map[string]booking.Reservation
	users        map[string]org.User
	attendance   map[string]approval.AttendanceRecord
	leaves       map[string]approval.LeaveRequest
	balances     map[balanceKey]approval.LeaveBalance
}

type balanceKey struct {
	Owner string
	Year  int
}

func New() *Store {
	return &Store{st: &state{
		resources:    make(map[string]booking.Resource),
		reservations: make(map[string]booking.Reservation),
		users:        make(map[string]org.User),
		attendance:   make(map[string]approval.AttendanceRecord),
		leaves:       make(map[string]approval.LeaveRequest),
		balances:     make(map[balanceKey]approval.LeaveBalance),
	}}
}

func (st *state) clone() *state {
	c := &state{
		resources:    make(map[string]booking.Resource, len(st.resources)),
		reservations: make(map[string]booking.Reservation, len(st.reservations)),
		users:        make(map[string]org.User, len(st.users)),
		attendance:   make(map[string]approval.AttendanceRecord, len(st.attendance)),
		leaves:       make(map[string]approval.LeaveRequest, len(st.leaves)),
		balances:     make(map[balanceKey]approval.LeaveBalance, len(st.balances)),
	}
	for k, v := range st.resources {
		c.resources[k] = v
	}
	for k, v := range st.reservations {
		c.reservations[k] = v
	}
	for k, v := range st.users {
		c.users[k] = v
	}
	for k, v := range st.attendance {
		c.attendance[k] = v
	}
	for k, v := range st.leaves {
		c.leaves[k] = v
	}
	for k, v := range st.balances {
		c.balances[k] = v
	}
	return c
}

// =============================================================================
// FIXTURES
// =============================================================================

// AddResource seeds a catalog entry.
func (m *Store) AddResource(r booking.Resource) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.resources[r.ID] = r
}

// AddUser seeds a directory record.
func (m *Store) AddUser(u org.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.users[u.Code] = u
}

// AddAttendance seeds an attendance record (tests create drafts directly).
func (m *Store) AddAttendance(rec approval.AttendanceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.attendance[rec.ID] = rec
}

// SetBalance seeds a leave balance.
func (m *Store) SetBalance(b approval.LeaveBalance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.st.balances[balanceKey{Owner: b.OwnerCode, Year: b.Year}] = b
}

// =============================================================================
// CATALOG + DIRECTORY
// =============================================================================

func (m *Store) GetResource(_ context.Context, id string) (booking.Resource, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.st.resources[id]
	if !ok {
		return booking.Resource{}, booking.ErrResourceNotFound
	}
	return r, nil
}

func (m *Store) GetUser(_ context.Context, code string) (org.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.st.users[code]
	if !ok {
		return org.User{}, org.ErrUserNotFound
	}
	return u, nil
}

func (m *Store) FindActiveByRole(_ context.Context, role org.Role) ([]org.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []org.User
	for _, u := range m.st.users {
		if u.Role == role && u.Active {
			out = append(out, u)
		}
	}
	return out, nil
}

// =============================================================================
// RESERVATIONS
// =============================================================================

func (m *Store) Insert(_ context.Context, r booking.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertReservation(r)
}

func (st *state) insertReservation(r booking.Reservation) error {
	st.reservations[r.ID] = r
	return nil
}

func (m *Store) Get(_ context.Context, id string) (booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getReservation(id)
}

func (st *state) getReservation(id string) (booking.Reservation, error) {
	r, ok := st.reservations[id]
	if !ok {
		return booking.Reservation{}, booking.ErrReservationNotFound
	}
	return r, nil
}

func (m *Store) Update(_ context.Context, r booking.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateReservation(r)
}

func (st *state) updateReservation(r booking.Reservation) error {
	if _, ok := st.reservations[r.ID]; !ok {
		return booking.ErrReservationNotFound
	}
	st.reservations[r.ID] = r
	return nil
}

func (m *Store) ListForResource(_ context.Context, resourceID string, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listForResource(resourceID, from, to, statuses)
}

func (st *state) listForResource(resourceID string, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	var out []booking.Reservation
	for _, r := range st.reservations {
		if r.ResourceID != resourceID || !statusIn(r.Status, statuses) {
			continue
		}
		if datesIntersect(r, from, to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Store) ListForRequester(_ context.Context, requesterCode string, kind booking.ResourceKind, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listForRequester(requesterCode, kind, from, to, statuses)
}

func (st *state) listForRequester(requesterCode string, kind booking.ResourceKind, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	var out []booking.Reservation
	for _, r := range st.reservations {
		if r.RequesterCode != requesterCode || r.ResourceKind != kind || !statusIn(r.Status, statuses) {
			continue
		}
		if datesIntersect(r, from, to) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *Store) ListActive(_ context.Context) ([]booking.Reservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.listActive()
}

func (st *state) listActive() ([]booking.Reservation, error) {
	var out []booking.Reservation
	for _, r := range st.reservations {
		if !r.Status.Terminal() {
			out = append(out, r)
		}
	}
	return out, nil
}

func statusIn(s booking.Status, set []booking.Status) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

func datesIntersect(r booking.Reservation, from, to time.Time) bool {
	return !r.Span.StartDate.After(to) && !r.Span.EndDate.Before(from)
}

// WithTx runs fn under the write lock against a transactional view.
// On error the pre-transaction state is restored.
func (m *Store) WithTx(ctx context.Context, fn func(booking.ReservationStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	backup := m.st.clone()
	if err := fn(&txView{st: m.st}); err != nil {
		m.st = backup
		return err
	}
	return nil
}

// txView exposes the locked state without re-acquiring the mutex.
type txView struct {
	st *state
}

func (v *txView) Insert(_ context.Context, r booking.Reservation) error { return v.st.insertReservation(r) }
func (v *txView) Get(_ context.Context, id string) (booking.Reservation, error) {
	return v.st.getReservation(id)
}
func (v *txView) Update(_ context.Context, r booking.Reservation) error { return v.st.updateReservation(r) }
func (v *txView) ListForResource(_ context.Context, resourceID string, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	return v.st.listForResource(resourceID, from, to, statuses)
}
func (v *txView) ListForRequester(_ context.Context, requesterCode string, kind booking.ResourceKind, from, to time.Time, statuses []booking.Status) ([]booking.Reservation, error) {
	return v.st.listForRequester(requesterCode, kind, from, to, statuses)
}
func (v *txView) ListActive(_ context.Context) ([]booking.Reservation, error) {
	return v.st.listActive()
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Store) InsertAttendance(_ context.Context, rec approval.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertAttendance(rec)
}

func (st *state) insertAttendance(rec approval.AttendanceRecord) error {
	st.attendance[rec.ID] = rec
	return nil
}

func (m *Store) GetAttendance(_ context.Context, id string) (approval.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getAttendance(id)
}

func (st *state) getAttendance(id string) (approval.AttendanceRecord, error) {
	rec, ok := st.attendance[id]
	if !ok {
		return approval.AttendanceRecord{}, approval.ErrRecordNotFound
	}
	return rec, nil
}

func (m *Store) UpdateAttendance(_ context.Context, rec approval.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateAttendance(rec)
}

func (st *state) updateAttendance(rec approval.AttendanceRecord) error {
	if _, ok := st.attendance[rec.ID]; !ok {
		return approval.ErrRecordNotFound
	}
	st.attendance[rec.ID] = rec
	return nil
}

// WithAttendanceTx mirrors WithTx for attendance data.
func (m *Store) WithAttendanceTx(ctx context.Context, fn func(approval.AttendanceStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	backup := m.st.clone()
	if err := fn(&attendanceTxView{st: m.st}); err != nil {
		m.st = backup
		return err
	}
	return nil
}

type attendanceTxView struct {
	st *state
}

func (v *attendanceTxView) InsertAttendance(_ context.Context, rec approval.AttendanceRecord) error {
	return v.st.insertAttendance(rec)
}
func (v *attendanceTxView) GetAttendance(_ context.Context, id string) (approval.AttendanceRecord, error) {
	return v.st.getAttendance(id)
}
func (v *attendanceTxView) UpdateAttendance(_ context.Context, rec approval.AttendanceRecord) error {
	return v.st.updateAttendance(rec)
}

// =============================================================================
// LEAVE
// =============================================================================

func (m *Store) InsertLeave(_ context.Context, req approval.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.insertLeave(req)
}

func (st *state) insertLeave(req approval.LeaveRequest) error {
	st.leaves[req.ID] = req
	return nil
}

func (m *Store) GetLeave(_ context.Context, id string) (approval.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getLeave(id)
}

func (st *state) getLeave(id string) (approval.LeaveRequest, error) {
	req, ok := st.leaves[id]
	if !ok {
		return approval.LeaveRequest{}, approval.ErrRecordNotFound
	}
	return req, nil
}

func (m *Store) UpdateLeave(_ context.Context, req approval.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.updateLeave(req)
}

func (st *state) updateLeave(req approval.LeaveRequest) error {
	if _, ok := st.leaves[req.ID]; !ok {
		return approval.ErrRecordNotFound
	}
	st.leaves[req.ID] = req
	return nil
}

func (m *Store) GetBalance(_ context.Context, ownerCode string, year int) (approval.LeaveBalance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.st.getBalance(ownerCode, year)
}

func (st *state) getBalance(ownerCode string, year int) (approval.LeaveBalance, error) {
	b, ok := st.balances[balanceKey{Owner: ownerCode, Year: year}]
	if !ok {
		return approval.LeaveBalance{OwnerCode: ownerCode, Year: year}, nil
	}
	return b, nil
}

func (m *Store) PutBalance(_ context.Context, b approval.LeaveBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.putBalance(b)
}

func (st *state) putBalance(b approval.LeaveBalance) error {
	st.balances[balanceKey{Owner: b.OwnerCode, Year: b.Year}] = b
	return nil
}

// WithLeaveTx mirrors WithTx for leave data.
func (m *Store) WithLeaveTx(ctx context.Context, fn func(approval.LeaveStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	backup := m.st.clone()
	if err := fn(&leaveTxView{st: m.st}); err != nil {
		m.st = backup
		return err
	}
	return nil
}

type leaveTxView struct {
	st *state
}

func (v *leaveTxView) InsertLeave(_ context.Context, req approval.LeaveRequest) error {
	return v.st.insertLeave(req)
}
func (v *leaveTxView) GetLeave(_ context.Context, id string) (approval.LeaveRequest, error) {
	return v.st.getLeave(id)
}
func (v *leaveTxView) UpdateLeave(_ context.Context, req approval.LeaveRequest) error {
	return v.st.updateLeave(req)
}
func (v *leaveTxView) GetBalance(_ context.Context, ownerCode string, year int) (approval.LeaveBalance, error) {
	return v.st.getBalance(ownerCode, year)
}
func (v *leaveTxView) PutBalance(_ context.Context, b approval.LeaveBalance) error {
	return v.st.putBalance(b)
}

// Compile-time interface checks.
var (
	_ booking.TxStore            = (*Store)(nil)
	_ booking.Catalog            = (*Store)(nil)
	_ org.Directory              = (*Store)(nil)
	_ approval.TxAttendanceStore = (*Store)(nil)
	_ approval.TxLeaveStore      = (*Store)(nil)
)
