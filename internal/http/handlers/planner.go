package handlers

import (
	"net/http"

	"weddingplanner/internal/domain"
	"weddingplanner/internal/middleware"
	"weddingplanner/internal/seating"
)

type budgetRequest struct {
	Total float64 `json:"total" validate:"gt=0"`
	Style string  `json:"style" validate:"max=60"`
}

type seatingRequest struct {
	Guests []domain.Guest `json:"guests" validate:"max=1000,dive"`
}

type seatingResponse struct {
	Tables   []domain.Table     `json:"tables"`
	Warnings []seating.Conflict `json:"warnings"`
	Unseated []string           `json:"unseated"`
}

type adviceRequest struct {
	Problem string `json:"problem" validate:"required,max=2000"`
}

type dashboardRequest struct {
	Profile domain.WeddingProfile `json:"profile"`
	Tasks   []domain.Task         `json:"tasks" validate:"max=500"`
}

// Plan generates the checklist for a wedding profile.
func (a *App) Plan(w http.ResponseWriter, r *http.Request) {
	profile, err := decodeJSON[domain.WeddingProfile](a.Binder, r, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tasks, err := a.Planner.GeneratePlan(r.Context(), profile)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	a.json(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// Budget splits a total into spending categories.
func (a *App) Budget(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[budgetRequest](a.Binder, r, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	items, err := a.Planner.GenerateBudget(r.Context(), req.Total, req.Style)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if items == nil {
		items = []domain.BudgetItem{}
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

// Seating proposes tables and reports the conflicts the layout still holds.
func (a *App) Seating(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[seatingRequest](a.Binder, r, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	tables, err := a.Planner.OrganizeSeating(r.Context(), req.Guests)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if tables == nil {
		tables = []domain.Table{}
	}
	resp := seatingResponse{
		Tables:   tables,
		Warnings: seating.FindConflicts(tables, req.Guests),
		Unseated: seating.Unseated(tables, req.Guests),
	}
	if resp.Warnings == nil {
		resp.Warnings = []seating.Conflict{}
	}
	if resp.Unseated == nil {
		resp.Unseated = []string{}
	}
	a.json(w, http.StatusOK, resp)
}

// SOS answers an emergency in the request locale. It always succeeds once
// the body is valid.
func (a *App) SOS(w http.ResponseWriter, r *http.Request) {
	tag := middleware.LocaleFromContext(r.Context())
	req, err := decodeJSON[adviceRequest](a.Binder, r, tag)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, a.Planner.EmergencyAdvice(r.Context(), req.Problem, tag))
}

// Dashboard summarises progress without calling the model.
func (a *App) Dashboard(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[dashboardRequest](a.Binder, r, middleware.LocaleFromContext(r.Context()))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, domain.Summarize(req.Profile, req.Tasks, a.Now()))
}
