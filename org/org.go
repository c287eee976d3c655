/*
Package org models the organizational hierarchy consumed by approval routing.

PURPOSE:
  Users carry denormalized pointers to their immediate superiors (team lead,
  manager, admin). Approval routing walks these pointers at submission time,
  and authority is re-derived from them at action time. This package owns:

  - Role: the fixed five-tier role ladder
  - User: a directory record with hierarchy pointers
  - Directory: the lookup interface collaborators implement
  - CanApprove: the pure authority check over current hierarchy state

AUTHORITY MODEL:
  A snapshotted approver code is a routing hint, not an authorization
  source. CanApprove answers "may this actor approve this owner's records
  right now?" from the owner's live pointers and the actor's live role,
  so a stale snapshot can never grant authority after a reorg.

SEE ALSO:
  - approval/resolver.go: walks the pointer chain at submission time
*/
package org

import (
	"context"
	"errors"
)

// ErrUserNotFound is returned by Directory lookups for unknown user codes.
var ErrUserNotFound = errors.New("user not found")

// =============================================================================
// ROLES
// =============================================================================

// Role is a tier on the approval ladder. Order matters: each role's records
// are approved by the next tier up, terminating at RoleSuperAdmin.
type Role string

const (
	RoleEmployee   Role = "employee"
	RoleTeamLead   Role = "team_lead"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "super_admin"
)

// rank positions roles on the ladder for superiority checks.
var rank = map[Role]int{
	RoleEmployee:   0,
	RoleTeamLead:   1,
	RoleManager:    2,
	RoleAdmin:      3,
	RoleSuperAdmin: 4,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := rank[r]
	return ok
}

// Outranks reports whether r sits strictly above other on the ladder.
func (r Role) Outranks(other Role) bool {
	return rank[r] > rank[other]
}

// Terminal reports whether r has no superior (records auto-qualify).
func (r Role) Terminal() bool {
	return r == RoleSuperAdmin
}

// =============================================================================
// USERS
// =============================================================================

// User is a directory record. The three pointer codes are denormalized
// references to the user's immediate superior of each kind; which one is
// relevant depends on the user's own role.
type User struct {
	Code   string
	Name   string
	Role   Role
	Active bool

	TeamLeadCode string
	ManagerCode  string
	AdminCode    string
}

// SuperiorCode returns the code of the user's immediate superior, per role.
// Super admins have none; admins route to whichever super admin is active,
// which requires a directory lookup and therefore lives in the resolver.
func (u User) SuperiorCode() string {
	switch u.Role {
	case RoleEmployee:
		return u.TeamLeadCode
	case RoleTeamLead:
		return u.ManagerCode
	case RoleManager:
		return u.AdminCode
	default:
		return ""
	}
}

// Directory looks up users and role holders. Implemented by the stores.
type Directory interface {
	// GetUser returns the user with the given code, or ErrUserNotFound.
	GetUser(ctx context.Context, code string) (User, error)

	// FindActiveByRole returns all active users holding the given role.
	FindActiveByRole(ctx context.Context, role Role) ([]User, error)
}

// =============================================================================
// AUTHORITY
// =============================================================================

// CanApprove reports whether actor may approve owner's records given the
// current hierarchy state. Super admins may approve anyone; otherwise the
// actor must be the owner's current immediate superior. Inactive actors
// never qualify.
func CanApprove(actor, owner User) bool {
	if !actor.Active {
		return false
	}
	if actor.Role == RoleSuperAdmin {
		return true
	}
	if !actor.Role.Outranks(owner.Role) {
		return false
	}
	return actor.Code == owner.SuperiorCode()
}
