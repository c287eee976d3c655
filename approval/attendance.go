/*
attendance.go - Attendance approval state machine

  Draft -> PendingApproval -> Approved | Rejected

Submission requires every clock-in in the period to have a matching
clock-out, resolves the single-stage approver chain, and snapshots the
approver code onto the record. Approve/Reject re-validate the actor
against the live hierarchy (resolver.go authorize).
*/
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/booking-engine/org"
)

type AttendanceStatus string

const (
	AttendanceDraft    AttendanceStatus = "draft"
	AttendancePending  AttendanceStatus = "pending_approval"
	AttendanceApproved AttendanceStatus = "approved"
	AttendanceRejected AttendanceStatus = "rejected"
)

// TimeEntry is one clock-in/clock-out pair. A nil ClockOut means the
// entry is still open.
type TimeEntry struct {
	ClockIn  time.Time
	ClockOut *time.Time
}

// Open reports whether the entry lacks a clock-out.
func (e TimeEntry) Open() bool { return e.ClockOut == nil }

// AttendanceRecord covers one owner's attendance for a period.
type AttendanceRecord struct {
	ID        string
	OwnerCode string

	PeriodStart time.Time
	PeriodEnd   time.Time
	Entries     []TimeEntry

	Status          AttendanceStatus
	ApproverCode    string
	Notes           string
	RejectionReason string

	SubmittedAt *time.Time
	DecidedAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AttendanceService drives the attendance state machine. Status checks
// and writes run inside WithAttendanceTx so two concurrent decisions on
// the same record serialize: the second sees the first's committed status
// and fails the transition. Directory lookups stay outside the
// transaction, which serializes against all other store access.
type AttendanceService struct {
	Store     TxAttendanceStore
	Directory org.Directory

	Now func() time.Time
}

func (s *AttendanceService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Submit moves a Draft record to PendingApproval. The approver is resolved
// from the owner's hierarchy pointers and snapshotted onto the record.
// Owners whose role has no superior auto-approve immediately.
func (s *AttendanceService) Submit(ctx context.Context, id, actorCode string) (AttendanceRecord, error) {
	rec, err := s.Store.GetAttendance(ctx, id)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if rec.Status != AttendanceDraft {
		return AttendanceRecord{}, &StateError{RecordID: rec.ID, Status: string(rec.Status), Action: "submit"}
	}
	if actorCode != rec.OwnerCode {
		return AttendanceRecord{}, notEntitledErr(actorCode, rec.OwnerCode)
	}
	for i, entry := range rec.Entries {
		if entry.Open() {
			return AttendanceRecord{}, fmt.Errorf("entry %d (%s): %w",
				i, entry.ClockIn.Format("2006-01-02"), ErrOpenTimeEntry)
		}
	}

	owner, err := s.Directory.GetUser(ctx, rec.OwnerCode)
	if err != nil {
		return AttendanceRecord{}, err
	}
	resolver := &Resolver{Directory: s.Directory}
	chain, err := resolver.ResolveSingle(ctx, owner)
	if err != nil {
		return AttendanceRecord{}, err
	}

	var out AttendanceRecord
	err = s.Store.WithAttendanceTx(ctx, func(tx AttendanceStore) error {
		fresh, err := tx.GetAttendance(ctx, id)
		if err != nil {
			return err
		}
		if fresh.Status != AttendanceDraft {
			return &StateError{RecordID: fresh.ID, Status: string(fresh.Status), Action: "submit"}
		}
		now := s.now()
		fresh.SubmittedAt = &now
		fresh.UpdatedAt = now
		if chain.AutoApproved {
			fresh.Status = AttendanceApproved
			fresh.DecidedAt = &now
		} else {
			fresh.Status = AttendancePending
			fresh.ApproverCode = chain.Level1
		}
		if err := tx.UpdateAttendance(ctx, fresh); err != nil {
			return err
		}
		out = fresh
		return nil
	})
	if err != nil {
		return AttendanceRecord{}, err
	}
	return out, nil
}

// Approve finalizes a PendingApproval record. The actor must be the
// snapshotted approver (re-validated against live hierarchy) or a super
// admin.
func (s *AttendanceService) Approve(ctx context.Context, id, actorCode, notes string) (AttendanceRecord, error) {
	return s.decide(ctx, id, actorCode, AttendanceApproved, notes)
}

// Reject declines a PendingApproval record. The reason is mandatory.
func (s *AttendanceService) Reject(ctx context.Context, id, actorCode, reason string) (AttendanceRecord, error) {
	if reason == "" {
		return AttendanceRecord{}, ErrReasonRequired
	}
	return s.decide(ctx, id, actorCode, AttendanceRejected, reason)
}

func (s *AttendanceService) decide(ctx context.Context, id, actorCode string, to AttendanceStatus, note string) (AttendanceRecord, error) {
	rec, err := s.Store.GetAttendance(ctx, id)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if rec.Status != AttendancePending {
		return AttendanceRecord{}, &StateError{RecordID: rec.ID, Status: string(rec.Status), Action: "decide"}
	}

	owner, err := s.Directory.GetUser(ctx, rec.OwnerCode)
	if err != nil {
		return AttendanceRecord{}, err
	}
	if err := authorize(ctx, s.Directory, actorCode, owner, rec.ApproverCode); err != nil {
		return AttendanceRecord{}, err
	}

	var out AttendanceRecord
	err = s.Store.WithAttendanceTx(ctx, func(tx AttendanceStore) error {
		fresh, err := tx.GetAttendance(ctx, id)
		if err != nil {
			return err
		}
		if fresh.Status != AttendancePending {
			return &StateError{RecordID: fresh.ID, Status: string(fresh.Status), Action: "decide"}
		}
		now := s.now()
		fresh.Status = to
		fresh.DecidedAt = &now
		fresh.UpdatedAt = now
		if to == AttendanceRejected {
			fresh.RejectionReason = note
		} else {
			fresh.Notes = note
		}
		if err := tx.UpdateAttendance(ctx, fresh); err != nil {
			return err
		}
		out = fresh
		return nil
	})
	if err != nil {
		return AttendanceRecord{}, err
	}
	return out, nil
}
