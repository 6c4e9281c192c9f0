/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic data
	for demos of the manager dashboard and calendar. Every scenario goes
	through the Directory and the Lifecycle Manager, so the data obeys the
	same rules as API traffic.

AVAILABLE SCENARIOS:

	new-team:       One manager and two employees, no requests yet
	november-team:  November 2024 team with approved, pending and denied
	                requests, overlapping ranges and a short balance

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "november-team"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Add a loader to 'scenarioLoaders'

NOTE:

	Scenarios reset the store. Only use in development/demo environments.
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-team",
		Name:        "New Team",
		Description: "One manager with two employees and no leave requests",
	},
	{
		ID:          "november-team",
		Name:        "November Team",
		Description: "Approved, pending and denied requests in November 2024, including overlaps and a short balance",
	},
}

var scenarioLoaders = map[string]func(ctx context.Context, h *Handler) error{
	"new-team":      loadNewTeamScenario,
	"november-team": loadNovemberTeamScenario,
}

// ListScenarios returns available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario wipes the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	load, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := h.LoadScenarioByID(r.Context(), req.ScenarioID, load); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// LoadScenarioByID resets the store and runs load.
func (h *Handler) LoadScenarioByID(ctx context.Context, id string, load func(context.Context, *Handler) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	h.currentScenario = ""
	h.Metrics.ResetRoster()

	if err := load(ctx, h); err != nil {
		return err
	}
	h.currentScenario = id
	h.Log.WithField("scenario", id).Info("scenario loaded")
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func loadNewTeamScenario(ctx context.Context, h *Handler) error {
	return seedTeam(ctx, h, []leave.NewEmployee{
		{ID: "maria", Name: "Maria Rossi", Age: 45, Contact: "maria@example.com", HolidaysLeft: 25},
		{ID: "anna", Name: "Anna Bianchi", Age: 29, Contact: "anna@example.com", HolidaysLeft: 20, ManagerID: "maria"},
		{ID: "ben", Name: "Ben Carter", Age: 34, Contact: "ben@example.com", HolidaysLeft: 15, ManagerID: "maria"},
	})
}

// loadNovemberTeamScenario builds a roster whose November 2024 calendar
// shows every tag:
//
//	anna   APPROVED Nov 4-8
//	ben    PENDING  Nov 6-10 (5 days against a balance of 3)
//	carla  DENIED   Nov 11-13, then PENDING Nov 12-15 over the same days
//	dario  no requests
func loadNovemberTeamScenario(ctx context.Context, h *Handler) error {
	err := seedTeam(ctx, h, []leave.NewEmployee{
		{ID: "maria", Name: "Maria Rossi", Age: 45, Contact: "maria@example.com", HolidaysLeft: 25},
		{ID: "anna", Name: "Anna Bianchi", Age: 29, Contact: "anna@example.com", HolidaysLeft: 20, ManagerID: "maria"},
		{ID: "ben", Name: "Ben Carter", Age: 34, Contact: "ben@example.com", HolidaysLeft: 3, ManagerID: "maria"},
		{ID: "carla", Name: "Carla Diaz", Age: 41, Contact: "carla@example.com", HolidaysLeft: 12, ManagerID: "maria"},
		{ID: "dario", Name: "Dario Esposito", Age: 23, Contact: "dario@example.com", HolidaysLeft: 8, ManagerID: "maria"},
	})
	if err != nil {
		return err
	}

	submit := func(author, start, end string) (leave.LeaveRequest, error) {
		return h.Lifecycle.Create(ctx, leave.CreateInput{
			AuthorID:  leave.EmployeeID(author),
			ManagerID: "maria",
			Start:     start,
			End:       end,
		})
	}

	annaReq, err := submit("anna", "2024-11-04", "2024-11-08")
	if err != nil {
		return err
	}
	if _, err := h.Lifecycle.Approve(ctx, annaReq.ID); err != nil {
		return err
	}

	if _, err := submit("ben", "2024-11-06", "2024-11-10"); err != nil {
		return err
	}

	carlaDenied, err := submit("carla", "2024-11-11", "2024-11-13")
	if err != nil {
		return err
	}
	if _, err := h.Lifecycle.Deny(ctx, carlaDenied.ID); err != nil {
		return err
	}
	_, err = submit("carla", "2024-11-12", "2024-11-15")
	return err
}

// seedTeam creates the first employee as manager of the rest.
func seedTeam(ctx context.Context, h *Handler, team []leave.NewEmployee) error {
	if len(team) == 0 {
		return nil
	}
	if _, err := h.Directory.CreateEmployee(ctx, team[0]); err != nil {
		return fmt.Errorf("create %s: %w", team[0].ID, err)
	}
	if _, err := h.Directory.CreateManager(ctx, team[0].ID); err != nil {
		return fmt.Errorf("promote %s: %w", team[0].ID, err)
	}
	for _, e := range team[1:] {
		if _, err := h.Directory.CreateEmployee(ctx, e); err != nil {
			return fmt.Errorf("create %s: %w", e.ID, err)
		}
	}
	return nil
}
