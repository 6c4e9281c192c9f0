/*
handlers.go - HTTP API handlers for the leave calendar engine

PURPOSE:
  Exposes the leave package via REST API. Handles HTTP request/response and
  JSON serialization, and delegates to the Lifecycle Manager, the Directory
  and the pure resolver/aggregator/projector functions.

ENDPOINTS:
  Employees:
    GET    /api/employees                      List all employees
    POST   /api/employees                      Create employee
    GET    /api/employees/{id}                 Get employee details
    GET    /api/employees/{id}/requests        Own requests (?status=)
    GET    /api/employees/{id}/calendar        Month grid (?month=YYYY-MM)
    GET    /api/employees/{id}/ledger          Balance entries

  Managers:
    GET    /api/managers                       List managers
    POST   /api/managers                       Promote an employee
    GET    /api/managers/{id}                  Get manager
    GET    /api/managers/{id}/employees        Roster with requests
    GET    /api/managers/{id}/status           Buckets for ?date=YYYY-MM-DD
    GET    /api/managers/{id}/calendar         Roster month grid

  Requests:
    GET    /api/requests                       List (?status=&author_id=&manager_id=)
    POST   /api/requests                       Submit a request (always PENDING)
    GET    /api/requests/{id}                  Get request
    POST   /api/requests/{id}/approve          PENDING -> APPROVED, charges balance
    POST   /api/requests/{id}/deny             PENDING -> DENIED
    DELETE /api/requests/{id}                  Delete a non-approved request

  Health:
    GET    /health                             Liveness check

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee, manager or request not found
  - 409: Invalid lifecycle transition
  - 422: Insufficient holiday balance
  - 500: Internal errors

SECURITY NOTE:
  No authentication or authorization. Any caller may approve any request.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is the persistence the API needs: the transactional leave store plus
// a wipe for demo scenarios.
type Store interface {
	leave.TxStore
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     Store
	Lifecycle *leave.Lifecycle
	Directory *leave.Directory
	Metrics   *Metrics // nil when metrics are disabled
	Log       logrus.FieldLogger
	Now       func() time.Time

	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store Store, policy leave.Policy, logger logrus.FieldLogger, metrics *Metrics) *Handler {
	return &Handler{
		Store:     store,
		Lifecycle: leave.NewLifecycle(store, policy, logger),
		Directory: leave.NewDirectory(store, logger),
		Metrics:   metrics,
		Log:       logger,
		Now:       time.Now,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTOs(employees))
}

// CreateEmployee creates a new employee with an opening balance.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	emp, err := h.Directory.CreateEmployee(r.Context(), leave.NewEmployee{
		ID:           leave.EmployeeID(req.ID),
		Name:         req.Name,
		Age:          req.Age,
		Contact:      req.Contact,
		HolidaysLeft: req.HolidaysLeft,
		ManagerID:    leave.EmployeeID(req.ManagerID),
	})
	if err != nil {
		writeDomainError(w, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Store.FetchEmployee(r.Context(), employeeParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// ListEmployeeRequests returns one employee's requests, optionally filtered
// by ?status=.
func (h *Handler) ListEmployeeRequests(w http.ResponseWriter, r *http.Request) {
	id := employeeParam(r)
	if _, err := h.Store.FetchEmployee(r.Context(), id); err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}

	filter := leave.RequestFilter{AuthorID: id}
	if err := parseStatusFilter(r, &filter); err != nil {
		writeDomainError(w, "Invalid status filter", err)
		return
	}
	reqs, err := h.Store.ListRequests(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(reqs))
}

// EmployeeCalendar projects the employee's requests onto ?month=.
func (h *Handler) EmployeeCalendar(w http.ResponseWriter, r *http.Request) {
	view, err := h.monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	cells, err := h.Directory.EmployeeCalendar(r.Context(), employeeParam(r), view)
	if err != nil {
		writeDomainError(w, "Failed to build calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarResponse(view, cells))
}

// EmployeeLedger returns the balance entries behind holidays_left.
func (h *Handler) EmployeeLedger(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	emp, err := h.Store.FetchEmployee(ctx, employeeParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	entries, err := h.Store.BalanceEntries(ctx, emp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load ledger", err)
		return
	}

	dtos := make([]BalanceEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, LedgerResponse{
		EmployeeID:   string(emp.ID),
		HolidaysLeft: emp.HolidaysLeft,
		LedgerTotal:  leave.SumEntries(entries).String(),
		Entries:      dtos,
	})
}

// =============================================================================
// MANAGER HANDLERS
// =============================================================================

// ListManagers returns all managers.
func (h *Handler) ListManagers(w http.ResponseWriter, r *http.Request) {
	managers, err := h.Store.ListManagers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list managers", err)
		return
	}
	dtos := make([]ManagerDTO, len(managers))
	for i, m := range managers {
		dtos[i] = ManagerDTO{ID: string(m.ID), CreatedAt: m.CreatedAt}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetManager returns one manager. Employees without supervisory capability
// are not found.
func (h *Handler) GetManager(w http.ResponseWriter, r *http.Request) {
	id := employeeParam(r)
	ok, err := h.Store.IsManager(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get manager", err)
		return
	}
	if !ok {
		writeDomainError(w, "Failed to get manager", &leave.NotFoundError{Kind: "manager", ID: string(id)})
		return
	}

	managers, err := h.Store.ListManagers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get manager", err)
		return
	}
	for _, m := range managers {
		if m.ID == id {
			writeJSON(w, http.StatusOK, ManagerDTO{ID: string(m.ID), CreatedAt: m.CreatedAt})
			return
		}
	}
	writeDomainError(w, "Failed to get manager", &leave.NotFoundError{Kind: "manager", ID: string(id)})
}

// CreateManager grants supervisory capability to an existing employee.
func (h *Handler) CreateManager(w http.ResponseWriter, r *http.Request) {
	var req CreateManagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	m, err := h.Directory.CreateManager(r.Context(), leave.EmployeeID(req.EmployeeID))
	if err != nil {
		writeDomainError(w, "Failed to create manager", err)
		return
	}
	writeJSON(w, http.StatusCreated, ManagerDTO{ID: string(m.ID), CreatedAt: m.CreatedAt})
}

// ManagerEmployees returns the manager's roster with each employee's requests.
func (h *Handler) ManagerEmployees(w http.ResponseWriter, r *http.Request) {
	roster, err := h.Directory.Roster(r.Context(), employeeParam(r))
	if err != nil {
		writeDomainError(w, "Failed to load roster", err)
		return
	}

	dtos := make([]RosterEntryDTO, len(roster))
	for i, row := range roster {
		dtos[i] = RosterEntryDTO{
			Employee: toEmployeeDTO(row.Employee),
			Requests: toRequestDTOs(row.Requests),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ManagerStatus partitions the roster into working / on leave / pending for
// ?date= (default today).
func (h *Handler) ManagerStatus(w http.ResponseWriter, r *http.Request) {
	day := leave.DayOf(h.Now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := leave.ParseDay("date", raw)
		if err != nil {
			writeDomainError(w, "Invalid date", err)
			return
		}
		day = parsed
	}

	managerID := employeeParam(r)
	buckets, err := h.Directory.Status(r.Context(), managerID, day)
	if err != nil {
		writeDomainError(w, "Failed to compute status", err)
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{
		ManagerID:    string(managerID),
		Date:         day.String(),
		Working:      toEmployeeDTOs(buckets.Working),
		OnLeave:      toEmployeeDTOs(buckets.OnLeave),
		PendingLeave: toEmployeeDTOs(buckets.Pending),
		Counts:       buckets.Counts(),
	})
}

// ManagerCalendar projects every roster request onto one month grid.
func (h *Handler) ManagerCalendar(w http.ResponseWriter, r *http.Request) {
	view, err := h.monthParam(r)
	if err != nil {
		writeDomainError(w, "Invalid month", err)
		return
	}
	cells, err := h.Directory.RosterCalendar(r.Context(), employeeParam(r), view)
	if err != nil {
		writeDomainError(w, "Failed to build calendar", err)
		return
	}
	writeJSON(w, http.StatusOK, toCalendarResponse(view, cells))
}

// =============================================================================
// REQUEST HANDLERS
// =============================================================================

// ListRequests returns requests matching the query filters.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := leave.RequestFilter{
		AuthorID:  leave.EmployeeID(q.Get("author_id")),
		ManagerID: leave.EmployeeID(q.Get("manager_id")),
	}
	if err := parseStatusFilter(r, &filter); err != nil {
		writeDomainError(w, "Invalid status filter", err)
		return
	}

	reqs, err := h.Store.ListRequests(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list requests", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTOs(reqs))
}

// CreateRequest submits a new leave request. Its status is always PENDING.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	created, err := h.Lifecycle.Create(r.Context(), leave.CreateInput{
		AuthorID:  leave.EmployeeID(req.AuthorID),
		ManagerID: leave.EmployeeID(req.ManagerID),
		Start:     req.VacationStartDate,
		End:       req.VacationEndDate,
	})
	h.Metrics.ObserveTransition("create", err)
	if err != nil {
		writeDomainError(w, "Failed to create request", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(created))
}

// GetRequest returns a single request.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Store.FetchRequest(r.Context(), requestParam(r))
	if err != nil {
		writeDomainError(w, "Failed to get request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ApproveRequest approves a pending request and charges the balance.
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	approval, err := h.Lifecycle.Approve(r.Context(), requestParam(r))
	h.Metrics.ObserveTransition("approve", err)
	if err != nil {
		writeDomainError(w, "Failed to approve request", err)
		return
	}
	writeJSON(w, http.StatusOK, ApprovalResponse{
		Request:      toRequestDTO(approval.Request),
		HolidaysLeft: approval.Employee.HolidaysLeft,
		Entry:        toEntryDTO(approval.Entry),
	})
}

// DenyRequest denies a pending request.
func (h *Handler) DenyRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Lifecycle.Deny(r.Context(), requestParam(r))
	h.Metrics.ObserveTransition("deny", err)
	if err != nil {
		writeDomainError(w, "Failed to deny request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// DeleteRequest deletes a pending or denied request.
func (h *Handler) DeleteRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.Lifecycle.Delete(r.Context(), requestParam(r))
	h.Metrics.ObserveTransition("delete", err)
	if err != nil {
		writeDomainError(w, "Failed to delete request", err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// Health reports that the server is up.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func employeeParam(r *http.Request) leave.EmployeeID {
	return leave.EmployeeID(chi.URLParam(r, "id"))
}

func requestParam(r *http.Request) leave.RequestID {
	return leave.RequestID(chi.URLParam(r, "id"))
}

// monthParam reads ?month=YYYY-MM, defaulting to the current month.
func (h *Handler) monthParam(r *http.Request) (leave.MonthView, error) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		raw = h.Now().Format(leave.MonthLayout)
	}
	return leave.NewMonthView(raw)
}

func parseStatusFilter(r *http.Request, filter *leave.RequestFilter) error {
	raw := r.URL.Query().Get("status")
	if raw == "" {
		return nil
	}
	st, err := leave.ParseStatus(raw)
	if err != nil {
		return err
	}
	filter.Status = st
	return nil
}

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

// writeDomainError maps leave errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	writeError(w, statusFor(err), message, err)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, leave.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, leave.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, leave.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, leave.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
