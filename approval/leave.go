/*
leave.go - Leave approval state machine and balance bookkeeping

  Pending -> ApprovedByLevel1 -> Approved        (employees: two stages)
  Pending -> Approved                            (everyone else)
  Reject from Pending or ApprovedByLevel1, reason mandatory, terminal.
  Cancel from Pending or ApprovedByLevel1 only, never after final
  approval.

BALANCE BOOKKEEPING:
  available = total - used - pending

  Creation moves the requested days into the pending bucket (after the
  availability check). Final approval moves pending -> used. Reject and
  cancel release the pending days. Every mutation of request + balance
  runs inside one store transaction, so the two can never drift apart.

Day amounts are decimal.Decimal: half-day leave is a thing and binary
floats are not how you account for it.
*/
package approval

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/booking-engine/org"
)

type LeaveStatus string

const (
	LeavePending   LeaveStatus = "pending"
	LeaveLevel1    LeaveStatus = "approved_by_level1"
	LeaveApproved  LeaveStatus = "approved"
	LeaveRejected  LeaveStatus = "rejected"
	LeaveCancelled LeaveStatus = "cancelled"
)

// Terminal reports whether no further transition is legal from s.
func (s LeaveStatus) Terminal() bool {
	switch s {
	case LeaveApproved, LeaveRejected, LeaveCancelled:
		return true
	}
	return false
}

// LeaveRequest is a request for a contiguous block of leave days.
type LeaveRequest struct {
	ID        string
	OwnerCode string

	StartDate time.Time
	EndDate   time.Time
	Days      decimal.Decimal

	Status             LeaveStatus
	Level1ApproverCode string
	FinalApproverCode  string
	Reason             string
	RejectionReason    string

	DecidedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeaveBalance tracks one owner's day buckets for a year.
type LeaveBalance struct {
	OwnerCode string
	Year      int

	TotalDays   decimal.Decimal
	UsedDays    decimal.Decimal
	PendingDays decimal.Decimal
}

// Available returns total - used - pending.
func (b LeaveBalance) Available() decimal.Decimal {
	return b.TotalDays.Sub(b.UsedDays).Sub(b.PendingDays)
}

// LeaveService drives leave requests and their balance bookkeeping.
type LeaveService struct {
	Store     TxLeaveStore
	Directory org.Directory

	Now func() time.Time
}

func (s *LeaveService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// LeaveInput is the input to Create. Days may be zero, in which case the
// inclusive calendar-day count of the date range is used.
type LeaveInput struct {
	OwnerCode string
	StartDate time.Time
	EndDate   time.Time
	Days      decimal.Decimal
	Reason    string
}

// Create validates the request against the owner's balance, resolves and
// snapshots the approval chain, reserves the days in the pending bucket,
// and persists the request, all in one transaction. Owners with no
// superior at all are approved immediately (days go straight to used).
func (s *LeaveService) Create(ctx context.Context, in LeaveInput) (LeaveRequest, error) {
	if in.EndDate.Before(in.StartDate) {
		return LeaveRequest{}, fmt.Errorf("leave range: end before start")
	}
	days := in.Days
	if days.IsZero() {
		days = decimal.NewFromInt(int64(in.EndDate.Sub(in.StartDate).Hours()/24) + 1)
	}
	if !days.IsPositive() {
		return LeaveRequest{}, fmt.Errorf("leave days must be positive")
	}

	owner, err := s.Directory.GetUser(ctx, in.OwnerCode)
	if err != nil {
		return LeaveRequest{}, err
	}
	resolver := &Resolver{Directory: s.Directory}
	chain, err := resolver.ResolveLeave(ctx, owner)
	if err != nil {
		return LeaveRequest{}, err
	}

	now := s.now()
	req := LeaveRequest{
		ID:                 uuid.NewString(),
		OwnerCode:          in.OwnerCode,
		StartDate:          in.StartDate,
		EndDate:            in.EndDate,
		Days:               days,
		Status:             LeavePending,
		Level1ApproverCode: chain.Level1,
		FinalApproverCode:  chain.Final,
		Reason:             in.Reason,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err = s.Store.WithLeaveTx(ctx, func(tx LeaveStore) error {
		balance, err := tx.GetBalance(ctx, in.OwnerCode, in.StartDate.Year())
		if err != nil {
			return err
		}
		if balance.Available().LessThan(days) {
			return fmt.Errorf("%w: available %s, requested %s",
				ErrInsufficientBalance, balance.Available(), days)
		}
		if chain.AutoApproved {
			req.Status = LeaveApproved
			req.DecidedAt = &now
			balance.UsedDays = balance.UsedDays.Add(days)
		} else {
			balance.PendingDays = balance.PendingDays.Add(days)
		}
		if err := tx.PutBalance(ctx, balance); err != nil {
			return err
		}
		return tx.InsertLeave(ctx, req)
	})
	if err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

// Approve advances a request one stage. From Pending a two-stage request
// moves to ApprovedByLevel1; single-stage requests and requests already at
// ApprovedByLevel1 finalize, moving the reserved days from pending to used.
//
// Directory lookups run before the transaction opens: WithLeaveTx
// serializes against all other store access, so calling the directory
// from inside fn would block on the transaction's own lock when both are
// backed by the same store. The transaction re-reads the request and
// bails if its status moved between authorization and commit.
func (s *LeaveService) Approve(ctx context.Context, id, actorCode, notes string) (LeaveRequest, error) {
	req, err := s.Store.GetLeave(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.Status != LeavePending && req.Status != LeaveLevel1 {
		return LeaveRequest{}, &StateError{RecordID: req.ID, Status: string(req.Status), Action: "approve"}
	}
	if err := s.authorizeStage(ctx, req, actorCode); err != nil {
		return LeaveRequest{}, err
	}

	var out LeaveRequest
	err = s.Store.WithLeaveTx(ctx, func(tx LeaveStore) error {
		fresh, err := tx.GetLeave(ctx, id)
		if err != nil {
			return err
		}
		if fresh.Status != req.Status {
			return &StateError{RecordID: fresh.ID, Status: string(fresh.Status), Action: "approve"}
		}

		now := s.now()
		switch {
		case fresh.Status == LeavePending && fresh.FinalApproverCode != "":
			fresh.Status = LeaveLevel1
		default:
			fresh.Status = LeaveApproved
			fresh.DecidedAt = &now
			if err := s.settleBalance(ctx, tx, fresh, true); err != nil {
				return err
			}
		}
		fresh.UpdatedAt = now
		if err := tx.UpdateLeave(ctx, fresh); err != nil {
			return err
		}
		out = fresh
		return nil
	})
	return out, err
}

// Reject declines a request from Pending or ApprovedByLevel1, releasing
// the reserved days. The reason is mandatory and the state is terminal.
func (s *LeaveService) Reject(ctx context.Context, id, actorCode, reason string) (LeaveRequest, error) {
	if reason == "" {
		return LeaveRequest{}, ErrReasonRequired
	}
	req, err := s.Store.GetLeave(ctx, id)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.Status != LeavePending && req.Status != LeaveLevel1 {
		return LeaveRequest{}, &StateError{RecordID: req.ID, Status: string(req.Status), Action: "reject"}
	}
	if err := s.authorizeStage(ctx, req, actorCode); err != nil {
		return LeaveRequest{}, err
	}

	var out LeaveRequest
	err = s.Store.WithLeaveTx(ctx, func(tx LeaveStore) error {
		fresh, err := tx.GetLeave(ctx, id)
		if err != nil {
			return err
		}
		if fresh.Status != req.Status {
			return &StateError{RecordID: fresh.ID, Status: string(fresh.Status), Action: "reject"}
		}

		now := s.now()
		fresh.Status = LeaveRejected
		fresh.RejectionReason = reason
		fresh.DecidedAt = &now
		fresh.UpdatedAt = now
		if err := s.settleBalance(ctx, tx, fresh, false); err != nil {
			return err
		}
		if err := tx.UpdateLeave(ctx, fresh); err != nil {
			return err
		}
		out = fresh
		return nil
	})
	return out, err
}

// Cancel withdraws the owner's own request before final approval and
// returns the reserved days. Not legal once finally approved.
func (s *LeaveService) Cancel(ctx context.Context, id, actorCode string) (LeaveRequest, error) {
	var out LeaveRequest
	err := s.Store.WithLeaveTx(ctx, func(tx LeaveStore) error {
		req, err := tx.GetLeave(ctx, id)
		if err != nil {
			return err
		}
		if actorCode != req.OwnerCode {
			return notEntitledErr(actorCode, req.OwnerCode)
		}
		if req.Status != LeavePending && req.Status != LeaveLevel1 {
			return &StateError{RecordID: req.ID, Status: string(req.Status), Action: "cancel"}
		}

		now := s.now()
		req.Status = LeaveCancelled
		req.DecidedAt = &now
		req.UpdatedAt = now
		if err := s.settleBalance(ctx, tx, req, false); err != nil {
			return err
		}
		if err := tx.UpdateLeave(ctx, req); err != nil {
			return err
		}
		out = req
		return nil
	})
	return out, err
}

// authorizeStage re-validates the actor for the request's current stage.
// Level-1 actions check authority over the owner; the final stage checks
// authority over the owner's current level-1 superior.
func (s *LeaveService) authorizeStage(ctx context.Context, req LeaveRequest, actorCode string) error {
	owner, err := s.Directory.GetUser(ctx, req.OwnerCode)
	if err != nil {
		return err
	}
	if req.Status == LeavePending {
		return authorize(ctx, s.Directory, actorCode, owner, req.Level1ApproverCode)
	}

	// Final stage: the target is the owner's current immediate superior,
	// re-derived from live pointers rather than the snapshot.
	superiorCode := owner.SuperiorCode()
	if superiorCode == "" {
		return noApproverErr(owner.Code, "owner no longer has a superior")
	}
	superior, err := s.Directory.GetUser(ctx, superiorCode)
	if err != nil {
		return err
	}
	return authorize(ctx, s.Directory, actorCode, superior, req.FinalApproverCode)
}

// settleBalance finalizes the pending reservation: consume moves the days
// to used, release just frees them.
func (s *LeaveService) settleBalance(ctx context.Context, tx LeaveStore, req LeaveRequest, consume bool) error {
	balance, err := tx.GetBalance(ctx, req.OwnerCode, req.StartDate.Year())
	if err != nil {
		return err
	}
	balance.PendingDays = balance.PendingDays.Sub(req.Days)
	if balance.PendingDays.IsNegative() {
		balance.PendingDays = decimal.Zero
	}
	if consume {
		balance.UsedDays = balance.UsedDays.Add(req.Days)
	}
	return tx.PutBalance(ctx, balance)
}
