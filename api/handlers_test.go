/*
handlers_test.go - HTTP-level tests for the API

Exercises the router end to end against the in-memory store: request
decoding, handler wiring, and the error-to-status mapping.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/booking-engine/approval"
	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/org"
	"github.com/warp/booking-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()
	store := memory.New()

	store.AddResource(booking.Resource{ID: "desk-1", Kind: booking.KindDesk, Name: "Desk 1", Capacity: 1, Active: true})
	store.AddResource(booking.Resource{ID: "room-1", Kind: booking.KindRoom, Name: "Boardroom", Capacity: 8, Active: true})
	store.AddUser(org.User{Code: "emp-1", Role: org.RoleEmployee, Active: true, TeamLeadCode: "lead-1"})
	store.AddUser(org.User{Code: "emp-2", Role: org.RoleEmployee, Active: true, TeamLeadCode: "lead-1"})
	store.AddUser(org.User{Code: "lead-1", Role: org.RoleTeamLead, Active: true, ManagerCode: "mgr-1"})
	store.AddUser(org.User{Code: "mgr-1", Role: org.RoleManager, Active: true, AdminCode: "adm-1"})

	handler := &Handler{
		Bookings:   &booking.Service{Store: store, Catalog: store, Users: store},
		Reconciler: &booking.ExpiryReconciler{Store: store},
		Attendance: &approval.AttendanceService{Store: store, Directory: store},
		Leave:      &approval.LeaveService{Store: store, Directory: store},
	}
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, store
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// =============================================================================
// BOOKINGS
// =============================================================================

func TestAPI_BookDesk(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/bookings", BookingRequestDTO{
		ResourceID:    "desk-1",
		RequesterCode: "emp-1",
		StartDate:     "2026-03-02",
		EndDate:       "2026-03-02",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	dto := decode[ReservationDTO](t, resp)
	assert.Equal(t, "confirmed", dto.Status)
	assert.NotEmpty(t, dto.ID)
}

func TestAPI_DeskConflictIs409(t *testing.T) {
	srv, _ := newTestServer(t)

	req := BookingRequestDTO{
		ResourceID: "desk-1", RequesterCode: "emp-1",
		StartDate: "2026-03-02", EndDate: "2026-03-02",
	}
	resp := postJSON(t, srv.URL+"/api/bookings", req)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	req.RequesterCode = "emp-2"
	resp = postJSON(t, srv.URL+"/api/bookings", req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestAPI_RoomApprovalFlow(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/bookings", BookingRequestDTO{
		ResourceID: "room-1", RequesterCode: "emp-1",
		StartDate: "2026-03-02", EndDate: "2026-03-02",
		StartTime: "09:00", EndTime: "10:00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[ReservationDTO](t, resp)
	require.Equal(t, "pending", created.Status)

	// Approval by an employee is forbidden.
	resp = postJSON(t, srv.URL+"/api/bookings/"+created.ID+"/approve", DecisionRequestDTO{ActorCode: "emp-2"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Approval by a manager confirms.
	resp = postJSON(t, srv.URL+"/api/bookings/"+created.ID+"/approve", DecisionRequestDTO{ActorCode: "mgr-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	approved := decode[ReservationDTO](t, resp)
	assert.Equal(t, "confirmed", approved.Status)
	assert.Equal(t, "mgr-1", approved.ApprovedBy)
}

func TestAPI_RejectWithoutReasonIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/bookings", BookingRequestDTO{
		ResourceID: "room-1", RequesterCode: "emp-1",
		StartDate: "2026-03-02", EndDate: "2026-03-02",
		StartTime: "09:00", EndTime: "10:00",
	})
	created := decode[ReservationDTO](t, resp)

	resp = postJSON(t, srv.URL+"/api/bookings/"+created.ID+"/reject", DecisionRequestDTO{ActorCode: "mgr-1"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_HalfOpenWindowIs400(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/bookings", BookingRequestDTO{
		ResourceID: "room-1", RequesterCode: "emp-1",
		StartDate: "2026-03-02", EndDate: "2026-03-02",
		StartTime: "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_UnknownBookingIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/bookings/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPI_CancelTwiceIs422(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/bookings", BookingRequestDTO{
		ResourceID: "desk-1", RequesterCode: "emp-1",
		StartDate: "2026-03-02", EndDate: "2026-03-02",
	})
	created := decode[ReservationDTO](t, resp)

	resp = postJSON(t, srv.URL+"/api/bookings/"+created.ID+"/cancel", CancelRequestDTO{ActorCode: "emp-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/bookings/"+created.ID+"/cancel", CancelRequestDTO{ActorCode: "emp-1"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// =============================================================================
// LEAVE
// =============================================================================

func TestAPI_LeaveLifecycle(t *testing.T) {
	srv, store := newTestServer(t)
	store.SetBalance(approval.LeaveBalance{
		OwnerCode: "emp-1", Year: 2026,
		TotalDays: mustDecimal(t, "20"),
	})

	resp := postJSON(t, srv.URL+"/api/leave", LeaveRequestDTO{
		OwnerCode: "emp-1",
		StartDate: "2026-06-01",
		EndDate:   "2026-06-05",
		Days:      "5",
		Reason:    "summer trip",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[LeaveDTO](t, resp)
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, "lead-1", created.Level1ApproverCode)

	resp = postJSON(t, srv.URL+"/api/leave/"+created.ID+"/approve", DecisionRequestDTO{ActorCode: "lead-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	staged := decode[LeaveDTO](t, resp)
	assert.Equal(t, "approved_by_level1", staged.Status)

	resp = postJSON(t, srv.URL+"/api/leave/"+created.ID+"/approve", DecisionRequestDTO{ActorCode: "mgr-1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	final := decode[LeaveDTO](t, resp)
	assert.Equal(t, "approved", final.Status)
}

func TestAPI_LeaveInsufficientBalanceIs422(t *testing.T) {
	srv, store := newTestServer(t)
	store.SetBalance(approval.LeaveBalance{
		OwnerCode: "emp-1", Year: 2026,
		TotalDays: mustDecimal(t, "2"),
	})

	resp := postJSON(t, srv.URL+"/api/leave", LeaveRequestDTO{
		OwnerCode: "emp-1",
		StartDate: "2026-06-01",
		EndDate:   "2026-06-05",
		Days:      "5",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

// =============================================================================
// ADMIN
// =============================================================================

func TestAPI_Reconcile(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/bookings", BookingRequestDTO{
		ResourceID: "desk-1", RequesterCode: "emp-1",
		StartDate: "2020-01-06", EndDate: "2020-01-06",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/admin/reconcile", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode[map[string]int](t, resp)
	assert.Equal(t, 1, out["advanced"])
}

func TestAPI_Healthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
