/*
Package approval routes attendance and leave records through role-derived
approval chains and drives their state machines.

PURPOSE:
  When a record is submitted, the owner's hierarchy pointers decide who
  must approve it: employee -> team lead -> manager -> admin -> super
  admin. The resolved approver codes are snapshotted onto the record as a
  routing hint. At action time the snapshot is NOT trusted: the actor's
  authority is re-derived from the live hierarchy (org.CanApprove), so a
  reorg between submission and action invalidates a stale approver.

CHAINS:
  Attendance uses a single-stage chain (one approver).
  Leave uses a two-stage chain for employees (level 1 = team lead,
  final = manager) and collapses to a single stage for everyone else.

SEE ALSO:
  - attendance.go, leave.go: the two state machines
  - org/: roles, hierarchy pointers, the CanApprove authority check
*/
package approval

import (
	"context"
	"errors"
	"fmt"

	"github.com/warp/booking-engine/org"
)

// Chain is the resolved approver route for a record. Level1 is always set
// for routable records; Final is set only for two-stage (employee leave)
// chains. AutoApproved marks owners with no superior at all (super admins).
type Chain struct {
	Level1       string
	Final        string
	AutoApproved bool
}

// TwoStage reports whether the chain has a distinct final approver.
func (c Chain) TwoStage() bool { return c.Final != "" && c.Final != c.Level1 }

// Resolver computes approver chains from the live directory.
type Resolver struct {
	Directory org.Directory
}

// ResolveSingle returns the one approver for the owner's records:
// the immediate superior pointer for most roles, the unique active super
// admin for admins, nobody (auto-qualify) for super admins. Routing fails
// with a HierarchyError when a pointer is empty or dangling, since a record
// must never be created unroutable.
func (r *Resolver) ResolveSingle(ctx context.Context, owner org.User) (Chain, error) {
	if owner.Role.Terminal() {
		return Chain{AutoApproved: true}, nil
	}

	if owner.Role == org.RoleAdmin {
		code, err := r.findSuperAdmin(ctx, owner)
		if err != nil {
			return Chain{}, err
		}
		return Chain{Level1: code}, nil
	}

	code := owner.SuperiorCode()
	if code == "" {
		return Chain{}, noApproverErr(owner.Code, fmt.Sprintf("no %s superior pointer set", owner.Role))
	}
	superior, err := r.Directory.GetUser(ctx, code)
	if err != nil {
		if errors.Is(err, org.ErrUserNotFound) {
			return Chain{}, noApproverErr(owner.Code, fmt.Sprintf("superior %s does not exist", code))
		}
		return Chain{}, err
	}
	if !superior.Active {
		return Chain{}, noApproverErr(owner.Code, fmt.Sprintf("superior %s is inactive", code))
	}
	return Chain{Level1: superior.Code}, nil
}

// ResolveLeave returns the leave chain. Employees get two stages: their
// team lead first, then the team lead's own superior for the final say.
// Every other role uses the single-stage route.
func (r *Resolver) ResolveLeave(ctx context.Context, owner org.User) (Chain, error) {
	if owner.Role != org.RoleEmployee {
		return r.ResolveSingle(ctx, owner)
	}

	first, err := r.ResolveSingle(ctx, owner)
	if err != nil {
		return Chain{}, err
	}
	level1, err := r.Directory.GetUser(ctx, first.Level1)
	if err != nil {
		return Chain{}, err
	}
	second, err := r.ResolveSingle(ctx, level1)
	if err != nil {
		return Chain{}, err
	}
	if second.AutoApproved {
		// Level-1 approver has no superior; collapse to one stage.
		return Chain{Level1: first.Level1}, nil
	}
	return Chain{Level1: first.Level1, Final: second.Level1}, nil
}

// findSuperAdmin locates the unique active terminal-role holder.
func (r *Resolver) findSuperAdmin(ctx context.Context, owner org.User) (string, error) {
	holders, err := r.Directory.FindActiveByRole(ctx, org.RoleSuperAdmin)
	if err != nil {
		return "", err
	}
	if len(holders) == 0 {
		return "", noApproverErr(owner.Code, "no active super admin exists")
	}
	return holders[0].Code, nil
}

// authorize re-validates an actor against the live hierarchy. target is
// the user whose direct superior the actor must currently be: the record's
// owner for single-stage and level-1 actions, the owner's current level-1
// superior for the final stage of a two-stage chain. The snapshotted
// approver code identifies who was notified, but authority must
// additionally hold under org.CanApprove right now, because a reorg between
// submission and action strips a stale approver.
func authorize(ctx context.Context, dir org.Directory, actorCode string, target org.User, snapshotted string) error {
	actor, err := dir.GetUser(ctx, actorCode)
	if err != nil {
		return err
	}
	if actor.Role == org.RoleSuperAdmin {
		// Wildcard: super admins may act on anything, snapshot or not.
		if !actor.Active {
			return notEntitledErr(actorCode, target.Code)
		}
		return nil
	}
	if actorCode != snapshotted {
		return notEntitledErr(actorCode, target.Code)
	}
	if !org.CanApprove(actor, target) {
		return notEntitledErr(actorCode, target.Code)
	}
	return nil
}
