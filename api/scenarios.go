/*
scenarios.go - Demo timelines for testing and demonstrations

PURPOSE:

	Provides pre-built timelines that populate the store with realistic
	projects. Each scenario is a factory document (YAML) describing one or
	more projects and their phases.

AVAILABLE SCENARIOS:

	website-relaunch: Three phases covering 2024, valid
	single-phase:     One phase spanning a quarter, valid
	needs-repair:     A gap and an overlap for the validator to report
	product-roadmap:  Two projects, six phases and four phases

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Parse each document via factory
 3. Save the project
 4. Batch-write its phases without validation, so broken demos load

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "website-relaunch"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Timeline handlers
  - factory/timeline.go: Document schema
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/warp/timeline-engine/factory"
	"github.com/warp/timeline-engine/logging"
	"github.com/warp/timeline-engine/timeline"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "website-relaunch",
		Name:        "Website Relaunch",
		Description: "Three phases partitioning 2024",
	},
	{
		ID:          "single-phase",
		Name:        "Single Phase",
		Description: "One phase covering Q1 2025; add phases by splitting",
	},
	{
		ID:          "needs-repair",
		Name:        "Needs Repair",
		Description: "Stored timeline with a gap and an overlap",
	},
	{
		ID:          "product-roadmap",
		Name:        "Product Roadmap",
		Description: "Two projects with bi-monthly and quarterly phases",
	},
}

var scenarioDocuments = map[string][]string{
	"website-relaunch": {websiteRelaunchYAML},
	"single-phase":     {singlePhaseYAML},
	"needs-repair":     {needsRepairYAML},
	"product-roadmap":  {roadmapAppYAML, roadmapPlatformYAML},
}

const websiteRelaunchYAML = `
project:
  id: website-relaunch
  name: Website Relaunch
  start_date: 2024-01-01
  end_date: 2024-12-31
  currency: USD
phases:
  - id: wr-discovery
    name: Discovery
    description: Research, interviews and information architecture
    start_date: 2024-01-01
    end_date: 2024-04-30
    capital_budget: "10000"
    expense_budget: "5000"
  - id: wr-build
    name: Build
    start_date: 2024-05-01
    end_date: 2024-08-31
    capital_budget: "80000"
    expense_budget: "20000"
  - id: wr-launch
    name: Launch
    start_date: 2024-09-01
    end_date: 2024-12-31
    capital_budget: "5000"
    expense_budget: "15000"
`

const singlePhaseYAML = `
project:
  id: q1-pilot
  name: Q1 Pilot
  start_date: 2025-01-01
  end_date: 2025-03-31
phases:
  - id: pilot-all
    name: Pilot
    start_date: 2025-01-01
    end_date: 2025-03-31
`

const needsRepairYAML = `
project:
  id: warehouse-move
  name: Warehouse Move
  start_date: 2024-03-01
  end_date: 2024-06-30
  currency: EUR
phases:
  - id: wm-plan
    name: Planning
    start_date: 2024-03-01
    end_date: 2024-03-31
  - id: wm-pack
    name: Packing
    start_date: 2024-04-06
    end_date: 2024-05-10
  - id: wm-move
    name: Move
    start_date: 2024-05-08
    end_date: 2024-06-30
`

const roadmapAppYAML = `
project:
  id: mobile-app
  name: Mobile App
  start_date: 2025-01-01
  end_date: 2025-12-31
phases:
  - {id: app-1, name: Alpha, start_date: 2025-01-01, end_date: 2025-02-28}
  - {id: app-2, name: Beta, start_date: 2025-03-01, end_date: 2025-04-30}
  - {id: app-3, name: GA, start_date: 2025-05-01, end_date: 2025-06-30}
  - {id: app-4, name: Growth, start_date: 2025-07-01, end_date: 2025-08-31}
  - {id: app-5, name: Localization, start_date: 2025-09-01, end_date: 2025-10-31}
  - {id: app-6, name: Hardening, start_date: 2025-11-01, end_date: 2025-12-31}
`

const roadmapPlatformYAML = `
project:
  id: platform
  name: Platform
  start_date: 2025-01-01
  end_date: 2025-12-31
phases:
  - {id: plat-q1, name: Q1, start_date: 2025-01-01, end_date: 2025-03-31, capital_budget: "25000"}
  - {id: plat-q2, name: Q2, start_date: 2025-04-01, end_date: 2025-06-30, capital_budget: "25000"}
  - {id: plat-q3, name: Q3, start_date: 2025-07-01, end_date: 2025-09-30, capital_budget: "25000"}
  - {id: plat-q4, name: Q4, start_date: 2025-10-01, end_date: 2025-12-31, capital_budget: "25000"}
`

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the id of the last loaded scenario.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": current})
}

// LoadScenario resets the store and loads the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if _, ok := scenarioDocuments[req.ScenarioID]; !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", fmt.Errorf("scenario %q", req.ScenarioID))
		return
	}

	if err := h.loadScenario(r.Context(), req.ScenarioID); err != nil {
		h.writeStoreError(w, r, "Failed to load scenario", err)
		return
	}

	logging.WithRequest(h.Logger, r).Info("scenario loaded", zap.String("scenario_id", req.ScenarioID))
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"scenario_id": req.ScenarioID,
	})
}

// ResetDatabase clears all projects and phases.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.reset(r.Context()); err != nil {
		h.writeStoreError(w, r, "Failed to reset", err)
		return
	}
	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	logging.WithRequest(h.Logger, r).Info("store reset")
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) loadScenario(ctx context.Context, id string) error {
	if err := h.reset(ctx); err != nil {
		return err
	}
	for _, raw := range scenarioDocuments[id] {
		doc, err := factory.Parse([]byte(raw), factory.FormatYAML)
		if err != nil {
			return err
		}
		if err := h.importDocument(ctx, doc); err != nil {
			return err
		}
	}
	h.mu.Lock()
	h.currentScenario = id
	h.mu.Unlock()
	return nil
}

// importDocument writes a document as-is; continuity is not checked.
func (h *Handler) importDocument(ctx context.Context, doc *factory.Document) error {
	project, phases, err := doc.Build()
	if err != nil {
		return err
	}
	if err := h.Store.SaveProject(ctx, project); err != nil {
		return err
	}
	phases = timeline.NormalizeBudgets(phases, h.BudgetPolicy)
	_, err = h.Store.BatchUpdate(ctx, project.ID, timeline.PrepareForSave(phases))
	return err
}

// reset uses the store's bulk reset when it has one.
func (h *Handler) reset(ctx context.Context) error {
	if rs, ok := h.Store.(Resetter); ok {
		return rs.Reset(ctx)
	}
	projects, err := h.Store.ListProjects(ctx)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if err := h.Store.DeleteProject(ctx, p.ID); err != nil {
			return err
		}
	}
	return nil
}
