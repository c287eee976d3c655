/*
errors.go - Error taxonomy for approval workflows

CATEGORIES:
  HierarchyError - no approver resolvable, or the actor lacks authority
  StateError     - action illegal for the record's current status

Mirrors the booking package's taxonomy: structured errors unwrap to
sentinels for errors.Is classification.
*/
package approval

import (
	"errors"
	"fmt"
)

var (
	// ErrNoApprover is the sentinel under HierarchyError when routing fails.
	ErrNoApprover = errors.New("no approver resolvable")

	// ErrNotEntitled is the sentinel under HierarchyError when the actor
	// lacks authority over the record's owner.
	ErrNotEntitled = errors.New("actor not entitled to approve")

	// ErrIllegalTransition is the sentinel under every StateError.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrOpenTimeEntry is returned when a period with an unclosed clock-in
	// is submitted for approval.
	ErrOpenTimeEntry = errors.New("open time entry in period")

	// ErrInsufficientBalance is returned when a leave request exceeds the
	// owner's available days.
	ErrInsufficientBalance = errors.New("insufficient leave balance")

	// ErrReasonRequired is returned when a rejection lacks its mandatory reason.
	ErrReasonRequired = errors.New("reason required")

	// ErrRecordNotFound is returned for unknown record ids.
	ErrRecordNotFound = errors.New("record not found")
)

// HierarchyError reports a routing or authority failure. The record is
// left unchanged.
type HierarchyError struct {
	OwnerCode string
	ActorCode string
	Detail    string
	wrapped   error
}

func (e *HierarchyError) Error() string {
	if e.ActorCode != "" {
		return fmt.Sprintf("actor %s / owner %s: %s", e.ActorCode, e.OwnerCode, e.Detail)
	}
	return fmt.Sprintf("owner %s: %s", e.OwnerCode, e.Detail)
}

func (e *HierarchyError) Unwrap() error { return e.wrapped }

func noApproverErr(ownerCode, detail string) *HierarchyError {
	return &HierarchyError{OwnerCode: ownerCode, Detail: detail, wrapped: ErrNoApprover}
}

func notEntitledErr(actorCode, ownerCode string) *HierarchyError {
	return &HierarchyError{
		OwnerCode: ownerCode,
		ActorCode: actorCode,
		Detail:    "not entitled to approve this record",
		wrapped:   ErrNotEntitled,
	}
}

// StateError reports an action that is illegal for the current status.
type StateError struct {
	RecordID string
	Status   string
	Action   string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("record %s: cannot %s while %s", e.RecordID, e.Action, e.Status)
}

func (e *StateError) Unwrap() error { return ErrIllegalTransition }

// IsClientError reports whether err stems from the caller's request.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNoApprover) ||
		errors.Is(err, ErrNotEntitled) ||
		errors.Is(err, ErrIllegalTransition) ||
		errors.Is(err, ErrOpenTimeEntry) ||
		errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrRecordNotFound)
}
