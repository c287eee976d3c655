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

// orgChart seeds a full ladder:
//
//	emp-1 -> lead-1 -> mgr-1 -> adm-1 -> root-1 (super admin)
func orgChart(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	store.AddUser(org.User{Code: "emp-1", Role: org.RoleEmployee, Active: true, TeamLeadCode: "lead-1"})
	store.AddUser(org.User{Code: "lead-1", Role: org.RoleTeamLead, Active: true, ManagerCode: "mgr-1"})
	store.AddUser(org.User{Code: "mgr-1", Role: org.RoleManager, Active: true, AdminCode: "adm-1"})
	store.AddUser(org.User{Code: "adm-1", Role: org.RoleAdmin, Active: true})
	store.AddUser(org.User{Code: "root-1", Role: org.RoleSuperAdmin, Active: true})
	return store
}

func getUser(t *testing.T, store *memory.Store, code string) org.User {
	t.Helper()
	u, err := store.GetUser(context.Background(), code)
	require.NoError(t, err)
	return u
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// SINGLE-STAGE ROUTING
// =============================================================================

func TestResolveSingle_WalksTheLadder(t *testing.T) {
	store := orgChart(t)
	r := &approval.Resolver{Directory: store}
	ctx := context.Background()

	cases := []struct {
		owner, want string
	}{
		{"emp-1", "lead-1"},
		{"lead-1", "mgr-1"},
		{"mgr-1", "adm-1"},
		{"adm-1", "root-1"},
	}
	for _, c := range cases {
		chain, err := r.ResolveSingle(ctx, getUser(t, store, c.owner))
		require.NoError(t, err, c.owner)
		assert.Equal(t, c.want, chain.Level1, c.owner)
		assert.False(t, chain.AutoApproved)
	}
}

func TestResolveSingle_SuperAdminAutoApproves(t *testing.T) {
	store := orgChart(t)
	r := &approval.Resolver{Directory: store}

	chain, err := r.ResolveSingle(context.Background(), getUser(t, store, "root-1"))
	require.NoError(t, err)
	assert.True(t, chain.AutoApproved)
	assert.Empty(t, chain.Level1)
}

func TestResolveSingle_MissingPointer(t *testing.T) {
	store := orgChart(t)
	store.AddUser(org.User{Code: "emp-orphan", Role: org.RoleEmployee, Active: true})
	r := &approval.Resolver{Directory: store}

	_, err := r.ResolveSingle(context.Background(), getUser(t, store, "emp-orphan"))
	assert.ErrorIs(t, err, approval.ErrNoApprover)
}

func TestResolveSingle_DanglingPointer(t *testing.T) {
	store := orgChart(t)
	store.AddUser(org.User{Code: "emp-dangling", Role: org.RoleEmployee, Active: true, TeamLeadCode: "lead-gone"})
	r := &approval.Resolver{Directory: store}

	_, err := r.ResolveSingle(context.Background(), getUser(t, store, "emp-dangling"))
	assert.ErrorIs(t, err, approval.ErrNoApprover)
}

func TestResolveSingle_InactiveSuperior(t *testing.T) {
	store := orgChart(t)
	store.AddUser(org.User{Code: "lead-1", Role: org.RoleTeamLead, Active: false, ManagerCode: "mgr-1"})
	r := &approval.Resolver{Directory: store}

	_, err := r.ResolveSingle(context.Background(), getUser(t, store, "emp-1"))
	assert.ErrorIs(t, err, approval.ErrNoApprover)
}

func TestResolveSingle_AdminWithoutSuperAdmin(t *testing.T) {
	store := memory.New()
	store.AddUser(org.User{Code: "adm-1", Role: org.RoleAdmin, Active: true})
	r := &approval.Resolver{Directory: store}

	_, err := r.ResolveSingle(context.Background(), getUser(t, store, "adm-1"))
	assert.ErrorIs(t, err, approval.ErrNoApprover)
}

// =============================================================================
// LEAVE ROUTING
// =============================================================================

func TestResolveLeave_EmployeeGetsTwoStages(t *testing.T) {
	store := orgChart(t)
	r := &approval.Resolver{Directory: store}

	chain, err := r.ResolveLeave(context.Background(), getUser(t, store, "emp-1"))
	require.NoError(t, err)
	assert.Equal(t, "lead-1", chain.Level1)
	assert.Equal(t, "mgr-1", chain.Final)
	assert.True(t, chain.TwoStage())
}

func TestResolveLeave_NonEmployeeSingleStage(t *testing.T) {
	store := orgChart(t)
	r := &approval.Resolver{Directory: store}

	chain, err := r.ResolveLeave(context.Background(), getUser(t, store, "lead-1"))
	require.NoError(t, err)
	assert.Equal(t, "mgr-1", chain.Level1)
	assert.Empty(t, chain.Final)
	assert.False(t, chain.TwoStage())
}

func TestResolveLeave_CollapsesWhenLeadHasNoSuperior(t *testing.T) {
	// Team lead reports directly to a super admin: the second stage
	// would auto-approve, so the chain collapses to one stage.
	store := memory.New()
	store.AddUser(org.User{Code: "emp-1", Role: org.RoleEmployee, Active: true, TeamLeadCode: "lead-root"})
	store.AddUser(org.User{Code: "lead-root", Role: org.RoleSuperAdmin, Active: true})
	r := &approval.Resolver{Directory: store}

	chain, err := r.ResolveLeave(context.Background(), getUser(t, store, "emp-1"))
	require.NoError(t, err)
	assert.Equal(t, "lead-root", chain.Level1)
	assert.Empty(t, chain.Final)
}
