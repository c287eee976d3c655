/*
handlers.go - HTTP API handlers for the booking engine

ENDPOINTS:
  Bookings:
    POST   /api/bookings                 Request a reservation
    GET    /api/bookings/{id}            Get a reservation
    POST   /api/bookings/{id}/cancel     Cancel (owner or manager)
    POST   /api/bookings/{id}/approve    Approve a pending room booking
    POST   /api/bookings/{id}/reject     Reject a pending room booking

  Attendance:
    POST   /api/attendance/{id}/submit   Submit a draft period
    POST   /api/attendance/{id}/approve  Approve
    POST   /api/attendance/{id}/reject   Reject

  Leave:
    POST   /api/leave                    Create a leave request
    POST   /api/leave/{id}/approve       Advance one approval stage
    POST   /api/leave/{id}/reject        Reject
    POST   /api/leave/{id}/cancel        Cancel (owner)

  Admin:
    POST   /api/admin/reconcile          Run the expiry sweep now

ERROR HANDLING:
  Domain errors are classified by the booking/approval taxonomies:
  - 409: conflicts (interval overlap, duplicate pending)
  - 422: state and balance violations
  - 403: authority failures
  - 400: malformed input
  - 404: unknown ids
  - 500: everything else, without leaking storage details
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/booking-engine/approval"
	"github.com/warp/booking-engine/booking"
	"github.com/warp/booking-engine/interval"
	"github.com/warp/booking-engine/org"
)

// Handler holds the services the HTTP layer delegates to.
type Handler struct {
	Bookings   *booking.Service
	Reconciler *booking.ExpiryReconciler
	Attendance *approval.AttendanceService
	Leave      *approval.LeaveService
}

// =============================================================================
// BOOKINGS
// =============================================================================

// RequestBooking creates a reservation.
// POST /api/bookings
func (h *Handler) RequestBooking(w http.ResponseWriter, r *http.Request) {
	var dto BookingRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	req, err := h.parseBookingRequest(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid booking request", err)
		return
	}

	reservation, err := h.Bookings.Request(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toReservationDTO(reservation))
}

func (h *Handler) parseBookingRequest(dto BookingRequestDTO) (booking.BookingRequest, error) {
	if dto.ResourceID == "" || dto.RequesterCode == "" {
		return booking.BookingRequest{}, fmt.Errorf("resource_id and requester_code are required")
	}
	start, err := time.Parse("2006-01-02", dto.StartDate)
	if err != nil {
		return booking.BookingRequest{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := time.Parse("2006-01-02", dto.EndDate)
	if err != nil {
		return booking.BookingRequest{}, fmt.Errorf("end_date: %w", err)
	}

	req := booking.BookingRequest{
		ResourceID:    dto.ResourceID,
		RequesterCode: dto.RequesterCode,
		StartDate:     start,
		EndDate:       end,
		Guests:        dto.Guests,
		Reason:        dto.Reason,
	}

	switch {
	case dto.StartTime == "" && dto.EndTime == "":
		// whole-day booking
	case dto.StartTime != "" && dto.EndTime != "":
		ws, err := interval.ParseTimeOfDay(dto.StartTime)
		if err != nil {
			return booking.BookingRequest{}, err
		}
		we, err := interval.ParseTimeOfDay(dto.EndTime)
		if err != nil {
			return booking.BookingRequest{}, err
		}
		req.Window = &interval.TimeWindow{Start: ws, End: we}
	default:
		return booking.BookingRequest{}, interval.ErrHalfOpenWindow
	}
	return req, nil
}

// GetBooking returns a reservation by id.
// GET /api/bookings/{id}
func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reservation, err := h.Bookings.Store.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(reservation))
}

// CancelBooking cancels a reservation.
// POST /api/bookings/{id}/cancel
func (h *Handler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	var dto CancelRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	reservation, err := h.Bookings.Cancel(r.Context(), chi.URLParam(r, "id"), dto.ActorCode, dto.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(reservation))
}

// ApproveBooking confirms a pending room booking.
// POST /api/bookings/{id}/approve
func (h *Handler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	var dto DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	reservation, err := h.Bookings.Approve(r.Context(), chi.URLParam(r, "id"), dto.ActorCode, dto.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(reservation))
}

// RejectBooking declines a pending room booking.
// POST /api/bookings/{id}/reject
func (h *Handler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	var dto DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	reservation, err := h.Bookings.Reject(r.Context(), chi.URLParam(r, "id"), dto.ActorCode, dto.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(reservation))
}

// =============================================================================
// ATTENDANCE
// =============================================================================

// SubmitAttendance submits a draft period for approval.
// POST /api/attendance/{id}/submit
func (h *Handler) SubmitAttendance(w http.ResponseWriter, r *http.Request) {
	var dto DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.Attendance.Submit(r.Context(), chi.URLParam(r, "id"), dto.ActorCode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(rec))
}

// ApproveAttendance approves a pending record.
// POST /api/attendance/{id}/approve
func (h *Handler) ApproveAttendance(w http.ResponseWriter, r *http.Request) {
	var dto DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.Attendance.Approve(r.Context(), chi.URLParam(r, "id"), dto.ActorCode, dto.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(rec))
}

// RejectAttendance rejects a pending record.
// POST /api/attendance/{id}/reject
func (h *Handler) RejectAttendance(w http.ResponseWriter, r *http.Request) {
	var dto DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.Attendance.Reject(r.Context(), chi.URLParam(r, "id"), dto.ActorCode, dto.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(rec))
}

// =============================================================================
// LEAVE
// =============================================================================

// CreateLeave creates a leave request.
// POST /api/leave
func (h *Handler) CreateLeave(w http.ResponseWriter, r *http.Request) {
	var dto LeaveRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := time.Parse("2006-01-02", dto.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return
	}
	end, err := time.Parse("2006-01-02", dto.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return
	}
	var days decimal.Decimal
	if dto.Days != "" {
		days, err = decimal.NewFromString(dto.Days)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid days", err)
			return
		}
	}

	req, err := h.Leave.Create(r.Context(), approval.LeaveInput{
		OwnerCode: dto.OwnerCode,
		StartDate: start,
		EndDate:   end,
		Days:      days,
		Reason:    dto.Reason,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveDTO(req))
}

// ApproveLeave advances a request one approval stage.
// POST /api/leave/{id}/approve
func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	var dto DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req, err := h.Leave.Approve(r.Context(), chi.URLParam(r, "id"), dto.ActorCode, dto.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(req))
}

// RejectLeave rejects a request.
// POST /api/leave/{id}/reject
func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	var dto DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req, err := h.Leave.Reject(r.Context(), chi.URLParam(r, "id"), dto.ActorCode, dto.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(req))
}

// CancelLeave withdraws the owner's request.
// POST /api/leave/{id}/cancel
func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	var dto DecisionRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	req, err := h.Leave.Cancel(r.Context(), chi.URLParam(r, "id"), dto.ActorCode)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(req))
}

// =============================================================================
// ADMIN
// =============================================================================

// TriggerReconcile runs the expiry sweep immediately.
// POST /api/admin/reconcile
func (h *Handler) TriggerReconcile(w http.ResponseWriter, r *http.Request) {
	advanced, err := h.Reconciler.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Reconciliation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"advanced": advanced})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps the error taxonomies to HTTP statuses. Internal
// errors are surfaced generically without storage details.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, booking.ErrConflict):
		writeError(w, http.StatusConflict, "Booking conflict", err)
	case errors.Is(err, booking.ErrIllegalTransition),
		errors.Is(err, approval.ErrIllegalTransition),
		errors.Is(err, booking.ErrCapacityExceeded),
		errors.Is(err, approval.ErrInsufficientBalance),
		errors.Is(err, approval.ErrOpenTimeEntry):
		writeError(w, http.StatusUnprocessableEntity, "Request not allowed", err)
	case errors.Is(err, booking.ErrNotAuthorized),
		errors.Is(err, approval.ErrNotEntitled),
		errors.Is(err, approval.ErrNoApprover):
		writeError(w, http.StatusForbidden, "Not authorized", err)
	case errors.Is(err, booking.ErrReservationNotFound),
		errors.Is(err, booking.ErrResourceNotFound),
		errors.Is(err, approval.ErrRecordNotFound),
		errors.Is(err, org.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case booking.IsClientError(err), approval.IsClientError(err),
		errors.Is(err, interval.ErrEndBeforeStart),
		errors.Is(err, interval.ErrHalfOpenWindow),
		errors.Is(err, interval.ErrBadTimeOfDay):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}
