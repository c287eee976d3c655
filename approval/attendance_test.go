package approval_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/booking-engine/approval"
	"github.com/warp/booking-engine/org"
	"github.com/warp/booking-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newAttendanceService(store *memory.Store) *approval.AttendanceService {
	return &approval.AttendanceService{Store: store, Directory: store}
}

func closedEntry(day time.Time) approval.TimeEntry {
	out := day.Add(17 * time.Hour)
	return approval.TimeEntry{ClockIn: day.Add(9 * time.Hour), ClockOut: &out}
}

func draftRecord(id, owner string) approval.AttendanceRecord {
	start := date(2026, time.March, 2)
	return approval.AttendanceRecord{
		ID:          id,
		OwnerCode:   owner,
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 0, 4),
		Entries: []approval.TimeEntry{
			closedEntry(start),
			closedEntry(start.AddDate(0, 0, 1)),
		},
		Status: approval.AttendanceDraft,
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestAttendanceSubmit_SnapshotsApprover(t *testing.T) {
	store := orgChart(t)
	store.AddAttendance(draftRecord("att-1", "emp-1"))
	svc := newAttendanceService(store)

	rec, err := svc.Submit(context.Background(), "att-1", "emp-1")
	require.NoError(t, err)
	assert.Equal(t, approval.AttendancePending, rec.Status)
	assert.Equal(t, "lead-1", rec.ApproverCode)
	require.NotNil(t, rec.SubmittedAt)
}

func TestAttendanceSubmit_OpenEntryRejected(t *testing.T) {
	store := orgChart(t)
	rec := draftRecord("att-1", "emp-1")
	rec.Entries = append(rec.Entries, approval.TimeEntry{ClockIn: date(2026, time.March, 4).Add(9 * time.Hour)})
	store.AddAttendance(rec)
	svc := newAttendanceService(store)

	_, err := svc.Submit(context.Background(), "att-1", "emp-1")
	assert.ErrorIs(t, err, approval.ErrOpenTimeEntry)
}

func TestAttendanceSubmit_OnlyOwner(t *testing.T) {
	store := orgChart(t)
	store.AddAttendance(draftRecord("att-1", "emp-1"))
	svc := newAttendanceService(store)

	_, err := svc.Submit(context.Background(), "att-1", "lead-1")
	assert.ErrorIs(t, err, approval.ErrNotEntitled)
}

func TestAttendanceSubmit_OnlyFromDraft(t *testing.T) {
	store := orgChart(t)
	rec := draftRecord("att-1", "emp-1")
	rec.Status = approval.AttendancePending
	store.AddAttendance(rec)
	svc := newAttendanceService(store)

	_, err := svc.Submit(context.Background(), "att-1", "emp-1")
	assert.ErrorIs(t, err, approval.ErrIllegalTransition)
}

func TestAttendanceSubmit_SuperAdminAutoApproves(t *testing.T) {
	store := orgChart(t)
	store.AddAttendance(draftRecord("att-root", "root-1"))
	svc := newAttendanceService(store)

	rec, err := svc.Submit(context.Background(), "att-root", "root-1")
	require.NoError(t, err)
	assert.Equal(t, approval.AttendanceApproved, rec.Status)
	assert.Empty(t, rec.ApproverCode)
}

// =============================================================================
// DECIDE
// =============================================================================

func submitted(t *testing.T, store *memory.Store, svc *approval.AttendanceService, id, owner string) approval.AttendanceRecord {
	t.Helper()
	store.AddAttendance(draftRecord(id, owner))
	rec, err := svc.Submit(context.Background(), id, owner)
	require.NoError(t, err)
	return rec
}

func TestAttendanceApprove_BySnapshotApprover(t *testing.T) {
	store := orgChart(t)
	svc := newAttendanceService(store)
	submitted(t, store, svc, "att-1", "emp-1")

	rec, err := svc.Approve(context.Background(), "att-1", "lead-1", "looks right")
	require.NoError(t, err)
	assert.Equal(t, approval.AttendanceApproved, rec.Status)
	assert.Equal(t, "looks right", rec.Notes)
	require.NotNil(t, rec.DecidedAt)
}

func TestAttendanceApprove_StrangerDenied(t *testing.T) {
	store := orgChart(t)
	svc := newAttendanceService(store)
	submitted(t, store, svc, "att-1", "emp-1")

	// mgr-1 outranks emp-1 but is not the snapshotted approver.
	_, err := svc.Approve(context.Background(), "att-1", "mgr-1", "")
	assert.ErrorIs(t, err, approval.ErrNotEntitled)
}

func TestAttendanceApprove_StaleApproverAfterReorg(t *testing.T) {
	// lead-1 was snapshotted at submission, but emp-1 has since moved to
	// lead-2's team. The stale snapshot must not grant authority.
	store := orgChart(t)
	svc := newAttendanceService(store)
	submitted(t, store, svc, "att-1", "emp-1")

	store.AddUser(org.User{Code: "lead-2", Role: org.RoleTeamLead, Active: true, ManagerCode: "mgr-1"})
	store.AddUser(org.User{Code: "emp-1", Role: org.RoleEmployee, Active: true, TeamLeadCode: "lead-2"})

	_, err := svc.Approve(context.Background(), "att-1", "lead-1", "")
	assert.ErrorIs(t, err, approval.ErrNotEntitled)
}

func TestAttendanceApprove_SuperAdminWildcard(t *testing.T) {
	store := orgChart(t)
	svc := newAttendanceService(store)
	submitted(t, store, svc, "att-1", "emp-1")

	rec, err := svc.Approve(context.Background(), "att-1", "root-1", "")
	require.NoError(t, err)
	assert.Equal(t, approval.AttendanceApproved, rec.Status)
}

func TestAttendanceReject_RequiresReason(t *testing.T) {
	store := orgChart(t)
	svc := newAttendanceService(store)
	submitted(t, store, svc, "att-1", "emp-1")

	_, err := svc.Reject(context.Background(), "att-1", "lead-1", "")
	assert.ErrorIs(t, err, approval.ErrReasonRequired)

	rec, err := svc.Reject(context.Background(), "att-1", "lead-1", "missing friday entries")
	require.NoError(t, err)
	assert.Equal(t, approval.AttendanceRejected, rec.Status)
	assert.Equal(t, "missing friday entries", rec.RejectionReason)
}

func TestAttendanceDecide_TerminalIsIllegal(t *testing.T) {
	store := orgChart(t)
	svc := newAttendanceService(store)
	submitted(t, store, svc, "att-1", "emp-1")

	_, err := svc.Approve(context.Background(), "att-1", "lead-1", "")
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), "att-1", "lead-1", "")
	assert.ErrorIs(t, err, approval.ErrIllegalTransition)
	_, err = svc.Reject(context.Background(), "att-1", "lead-1", "late")
	assert.ErrorIs(t, err, approval.ErrIllegalTransition)
}

func TestAttendanceDecide_ConcurrentDecisionsSerialize(t *testing.T) {
	// The status check and the write run in one store transaction, so of
	// two racing decisions exactly one lands; the other sees the committed
	// terminal status and fails the transition.
	store := orgChart(t)
	svc := newAttendanceService(store)
	submitted(t, store, svc, "att-1", "emp-1")

	errs := make(chan error, 2)
	go func() {
		_, err := svc.Approve(context.Background(), "att-1", "lead-1", "")
		errs <- err
	}()
	go func() {
		_, err := svc.Reject(context.Background(), "att-1", "lead-1", "redo week two")
		errs <- err
	}()

	var failed int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			assert.ErrorIs(t, err, approval.ErrIllegalTransition)
			failed++
		}
	}
	assert.Equal(t, 1, failed)

	rec, err := store.GetAttendance(context.Background(), "att-1")
	require.NoError(t, err)
	assert.NotNil(t, rec.DecidedAt)
	assert.Contains(t,
		[]approval.AttendanceStatus{approval.AttendanceApproved, approval.AttendanceRejected},
		rec.Status)
}
