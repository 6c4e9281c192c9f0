/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the leave domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Employee:
    EmployeeDTO, CreateEmployeeRequest, RosterEntryDTO

  Manager:
    ManagerDTO, CreateManagerRequest, StatusResponse

  Leave request:
    LeaveRequestDTO, CreateLeaveRequest, ApprovalResponse

  Calendar:
    CalendarDayDTO, CalendarResponse

  Ledger:
    BalanceEntryDTO, LedgerResponse

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done by the leave package, not in DTOs. DTOs are pure data
  carriers. Dates travel as "YYYY-MM-DD" strings.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Age          int       `json:"age,omitempty"`
	Contact      string    `json:"contact,omitempty"`
	HolidaysLeft int       `json:"holidays_left"`
	ManagerID    string    `json:"manager_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreateEmployeeRequest is the request body for creating an employee.
type CreateEmployeeRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Age          int    `json:"age"`
	Contact      string `json:"contact"`
	HolidaysLeft int    `json:"holidays_left"`
	ManagerID    string `json:"manager_id"`
}

// RosterEntryDTO is one supervised employee with their requests.
type RosterEntryDTO struct {
	Employee EmployeeDTO       `json:"employee"`
	Requests []LeaveRequestDTO `json:"requests"`
}

// =============================================================================
// MANAGERS
// =============================================================================

type ManagerDTO struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateManagerRequest promotes an existing employee.
type CreateManagerRequest struct {
	EmployeeID string `json:"employee_id"`
}

// StatusResponse is the manager dashboard for one day.
type StatusResponse struct {
	ManagerID    string             `json:"manager_id"`
	Date         string             `json:"date"`
	Working      []EmployeeDTO      `json:"working"`
	OnLeave      []EmployeeDTO      `json:"on_leave"`
	PendingLeave []EmployeeDTO      `json:"pending_leave"`
	Counts       leave.StatusCounts `json:"counts"`
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

// LeaveRequestDTO represents a leave request in API responses.
type LeaveRequestDTO struct {
	ID                string    `json:"id"`
	AuthorID          string    `json:"author_id"`
	ManagerID         string    `json:"manager_id"`
	VacationStartDate string    `json:"vacation_start_date"`
	VacationEndDate   string    `json:"vacation_end_date"`
	Days              int       `json:"days"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateLeaveRequest is the request body for submitting a leave request.
type CreateLeaveRequest struct {
	AuthorID          string `json:"author_id"`
	ManagerID         string `json:"manager_id"`
	VacationStartDate string `json:"vacation_start_date"`
	VacationEndDate   string `json:"vacation_end_date"`
}

// ApprovalResponse is returned by the approve endpoint.
type ApprovalResponse struct {
	Request      LeaveRequestDTO `json:"request"`
	HolidaysLeft int             `json:"holidays_left"`
	Entry        BalanceEntryDTO `json:"entry"`
}

// =============================================================================
// CALENDAR
// =============================================================================

type CalendarDayDTO struct {
	Date    string `json:"date"`
	Tag     string `json:"tag"`
	InMonth bool   `json:"in_month"`
}

// CalendarResponse is a month grid, whole weeks starting on Monday.
type CalendarResponse struct {
	Month string           `json:"month"`
	Days  []CalendarDayDTO `json:"days"`
}

// =============================================================================
// LEDGER
// =============================================================================

type BalanceEntryDTO struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id,omitempty"`
	Delta     string    `json:"delta"`
	Kind      string    `json:"kind"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// LedgerResponse lists an employee's balance entries with their running sum.
type LedgerResponse struct {
	EmployeeID   string            `json:"employee_id"`
	HolidaysLeft int               `json:"holidays_left"`
	LedgerTotal  string            `json:"ledger_total"`
	Entries      []BalanceEntryDTO `json:"entries"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request body for loading a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:           string(e.ID),
		Name:         e.Name,
		Age:          e.Age,
		Contact:      e.Contact,
		HolidaysLeft: e.HolidaysLeft,
		ManagerID:    string(e.ManagerID),
		CreatedAt:    e.CreatedAt,
	}
}

func toEmployeeDTOs(emps []leave.Employee) []EmployeeDTO {
	out := make([]EmployeeDTO, len(emps))
	for i, e := range emps {
		out[i] = toEmployeeDTO(e)
	}
	return out
}

func toRequestDTO(r leave.LeaveRequest) LeaveRequestDTO {
	return LeaveRequestDTO{
		ID:                string(r.ID),
		AuthorID:          string(r.AuthorID),
		ManagerID:         string(r.ManagerID),
		VacationStartDate: r.Start.String(),
		VacationEndDate:   r.End.String(),
		Days:              r.Days(),
		Status:            string(r.Status),
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
}

func toRequestDTOs(reqs []leave.LeaveRequest) []LeaveRequestDTO {
	out := make([]LeaveRequestDTO, len(reqs))
	for i, r := range reqs {
		out[i] = toRequestDTO(r)
	}
	return out
}

func toEntryDTO(e leave.BalanceEntry) BalanceEntryDTO {
	return BalanceEntryDTO{
		ID:        string(e.ID),
		RequestID: string(e.RequestID),
		Delta:     e.Delta.String(),
		Kind:      string(e.Kind),
		Reason:    e.Reason,
		CreatedAt: e.CreatedAt,
	}
}

func toCalendarResponse(view leave.MonthView, cells []leave.DayTag) CalendarResponse {
	days := make([]CalendarDayDTO, len(cells))
	for i, c := range cells {
		days[i] = CalendarDayDTO{Date: c.Day.String(), Tag: string(c.Tag), InMonth: c.InMonth}
	}
	return CalendarResponse{
		Month: leave.StartOfMonth(view.Year, view.Month).Time().Format(leave.MonthLayout),
		Days:  days,
	}
}
