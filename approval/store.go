/*
store.go - Persistence interfaces for approval records

Same contract as booking: mutating operations run inside WithTx, and
implementations make WithTx a real serialization point so a balance check
and the write that reserves the balance commit together.
*/
package approval

import "context"

// AttendanceStore persists attendance records.
type AttendanceStore interface {
	InsertAttendance(ctx context.Context, rec AttendanceRecord) error
	GetAttendance(ctx context.Context, id string) (AttendanceRecord, error)
	UpdateAttendance(ctx context.Context, rec AttendanceRecord) error
}

// TxAttendanceStore adds transactional execution over attendance data.
type TxAttendanceStore interface {
	AttendanceStore

	WithAttendanceTx(ctx context.Context, fn func(AttendanceStore) error) error
}

// LeaveStore persists leave requests and per-year balances.
type LeaveStore interface {
	InsertLeave(ctx context.Context, req LeaveRequest) error
	GetLeave(ctx context.Context, id string) (LeaveRequest, error)
	UpdateLeave(ctx context.Context, req LeaveRequest) error

	// GetBalance returns the owner's balance for a year. Implementations
	// return a zero-valued balance (not an error) when none exists yet.
	GetBalance(ctx context.Context, ownerCode string, year int) (LeaveBalance, error)
	PutBalance(ctx context.Context, b LeaveBalance) error
}

// TxLeaveStore adds transactional execution over leave data.
type TxLeaveStore interface {
	LeaveStore

	WithLeaveTx(ctx context.Context, fn func(LeaveStore) error) error
}
