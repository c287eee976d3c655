package org_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/booking-engine/org"
)

func TestRoleLadder(t *testing.T) {
	assert.True(t, org.RoleTeamLead.Outranks(org.RoleEmployee))
	assert.True(t, org.RoleManager.Outranks(org.RoleTeamLead))
	assert.True(t, org.RoleAdmin.Outranks(org.RoleManager))
	assert.True(t, org.RoleSuperAdmin.Outranks(org.RoleAdmin))

	assert.False(t, org.RoleEmployee.Outranks(org.RoleEmployee))
	assert.False(t, org.RoleEmployee.Outranks(org.RoleTeamLead))

	assert.True(t, org.RoleSuperAdmin.Terminal())
	assert.False(t, org.RoleAdmin.Terminal())

	assert.True(t, org.RoleManager.Valid())
	assert.False(t, org.Role("intern").Valid())
}

func TestSuperiorCode(t *testing.T) {
	u := org.User{
		TeamLeadCode: "lead-1",
		ManagerCode:  "mgr-1",
		AdminCode:    "adm-1",
	}

	u.Role = org.RoleEmployee
	assert.Equal(t, "lead-1", u.SuperiorCode())
	u.Role = org.RoleTeamLead
	assert.Equal(t, "mgr-1", u.SuperiorCode())
	u.Role = org.RoleManager
	assert.Equal(t, "adm-1", u.SuperiorCode())
	u.Role = org.RoleAdmin
	assert.Empty(t, u.SuperiorCode(), "admins route via the directory, not pointers")
	u.Role = org.RoleSuperAdmin
	assert.Empty(t, u.SuperiorCode())
}

func TestCanApprove(t *testing.T) {
	owner := org.User{Code: "emp-1", Role: org.RoleEmployee, Active: true, TeamLeadCode: "lead-1"}
	lead := org.User{Code: "lead-1", Role: org.RoleTeamLead, Active: true}
	otherLead := org.User{Code: "lead-2", Role: org.RoleTeamLead, Active: true}
	peer := org.User{Code: "emp-2", Role: org.RoleEmployee, Active: true}
	root := org.User{Code: "root-1", Role: org.RoleSuperAdmin, Active: true}

	assert.True(t, org.CanApprove(lead, owner), "current superior approves")
	assert.False(t, org.CanApprove(otherLead, owner), "outranking is not enough without the pointer")
	assert.False(t, org.CanApprove(peer, owner), "peers never approve")
	assert.True(t, org.CanApprove(root, owner), "super admin is a wildcard")
	assert.True(t, org.CanApprove(root, root), "super admin covers even itself")

	inactiveLead := lead
	inactiveLead.Active = false
	assert.False(t, org.CanApprove(inactiveLead, owner), "inactive actors never qualify")

	inactiveRoot := root
	inactiveRoot.Active = false
	assert.False(t, org.CanApprove(inactiveRoot, owner))
}

func TestCanApprove_AfterPointerMove(t *testing.T) {
	// The authority check reads the owner's current pointer, so moving
	// the owner to a new team strips the old lead immediately.
	owner := org.User{Code: "emp-1", Role: org.RoleEmployee, Active: true, TeamLeadCode: "lead-1"}
	oldLead := org.User{Code: "lead-1", Role: org.RoleTeamLead, Active: true}

	assert.True(t, org.CanApprove(oldLead, owner))
	owner.TeamLeadCode = "lead-2"
	assert.False(t, org.CanApprove(oldLead, owner))
}
