/*
dto.go - Data Transfer Objects for API requests and responses

JSON structures decoupling the domain model from the wire contract.
DTOs are pure data carriers; validation happens in handlers.
*/
package api

import (
	"time"

	"github.com/warp/booking-engine/approval"
	"github.com/warp/booking-engine/booking"
)

// =============================================================================
// BOOKING
// =============================================================================

// BookingRequestDTO is the request body for creating a reservation.
type BookingRequestDTO struct {
	ResourceID    string `json:"resource_id"`
	RequesterCode string `json:"requester_code"`
	StartDate     string `json:"start_date"`           // YYYY-MM-DD
	EndDate       string `json:"end_date"`             // YYYY-MM-DD
	StartTime     string `json:"start_time,omitempty"` // HH:MM, with end_time or not at all
	EndTime       string `json:"end_time,omitempty"`
	Guests        int    `json:"guests,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// ReservationDTO represents a reservation in API responses.
type ReservationDTO struct {
	ID              string `json:"id"`
	ResourceID      string `json:"resource_id"`
	ResourceKind    string `json:"resource_kind"`
	RequesterCode   string `json:"requester_code"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	StartTime       string `json:"start_time,omitempty"`
	EndTime         string `json:"end_time,omitempty"`
	Guests          int    `json:"guests"`
	Status          string `json:"status"`
	Reason          string `json:"reason,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	ApprovedBy      string `json:"approved_by,omitempty"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

// CancelRequestDTO is the request body for cancelling a reservation.
type CancelRequestDTO struct {
	ActorCode string `json:"actor_code"`
	Reason    string `json:"reason,omitempty"`
}

// DecisionRequestDTO is the request body for approve/reject actions.
type DecisionRequestDTO struct {
	ActorCode string `json:"actor_code"`
	Notes     string `json:"notes,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// =============================================================================
// APPROVAL
// =============================================================================

// AttendanceDTO represents an attendance record in API responses.
type AttendanceDTO struct {
	ID              string `json:"id"`
	OwnerCode       string `json:"owner_code"`
	PeriodStart     string `json:"period_start"`
	PeriodEnd       string `json:"period_end"`
	Status          string `json:"status"`
	ApproverCode    string `json:"approver_code,omitempty"`
	Notes           string `json:"notes,omitempty"`
	RejectionReason string `json:"rejection_reason,omitempty"`
}

// LeaveRequestDTO is the request body for creating a leave request.
type LeaveRequestDTO struct {
	OwnerCode string `json:"owner_code"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Days      string `json:"days,omitempty"` // decimal, defaults to calendar days
	Reason    string `json:"reason,omitempty"`
}

// LeaveDTO represents a leave request in API responses.
type LeaveDTO struct {
	ID                 string `json:"id"`
	OwnerCode          string `json:"owner_code"`
	StartDate          string `json:"start_date"`
	EndDate            string `json:"end_date"`
	Days               string `json:"days"`
	Status             string `json:"status"`
	Level1ApproverCode string `json:"level1_approver_code,omitempty"`
	FinalApproverCode  string `json:"final_approver_code,omitempty"`
	Reason             string `json:"reason,omitempty"`
	RejectionReason    string `json:"rejection_reason,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toReservationDTO(r booking.Reservation) ReservationDTO {
	dto := ReservationDTO{
		ID:              r.ID,
		ResourceID:      r.ResourceID,
		ResourceKind:    string(r.ResourceKind),
		RequesterCode:   r.RequesterCode,
		StartDate:       r.Span.StartDate.Format("2006-01-02"),
		EndDate:         r.Span.EndDate.Format("2006-01-02"),
		Guests:          r.Guests,
		Status:          string(r.Status),
		Reason:          r.Reason,
		RejectionReason: r.RejectionReason,
		ApprovedBy:      r.ApprovedBy,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
	}
	if r.Span.Window != nil {
		dto.StartTime = r.Span.Window.Start.String()
		dto.EndTime = r.Span.Window.End.String()
	}
	if r.CancelledAt != nil {
		dto.CancelledAt = r.CancelledAt.Format(time.RFC3339)
	}
	return dto
}

func toAttendanceDTO(rec approval.AttendanceRecord) AttendanceDTO {
	return AttendanceDTO{
		ID:              rec.ID,
		OwnerCode:       rec.OwnerCode,
		PeriodStart:     rec.PeriodStart.Format("2006-01-02"),
		PeriodEnd:       rec.PeriodEnd.Format("2006-01-02"),
		Status:          string(rec.Status),
		ApproverCode:    rec.ApproverCode,
		Notes:           rec.Notes,
		RejectionReason: rec.RejectionReason,
	}
}

func toLeaveDTO(req approval.LeaveRequest) LeaveDTO {
	return LeaveDTO{
		ID:                 req.ID,
		OwnerCode:          req.OwnerCode,
		StartDate:          req.StartDate.Format("2006-01-02"),
		EndDate:            req.EndDate.Format("2006-01-02"),
		Days:               req.Days.String(),
		Status:             string(req.Status),
		Level1ApproverCode: req.Level1ApproverCode,
		FinalApproverCode:  req.FinalApproverCode,
		Reason:             req.Reason,
		RejectionReason:    req.RejectionReason,
	}
}
