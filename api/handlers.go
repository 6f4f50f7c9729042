/*
handlers.go - HTTP API handlers for the timeline engine

PURPOSE:
  Exposes the continuity engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to the timeline
  package. Edit endpoints are previews: they compute the next working set
  and its validation without writing anything. Only PUT .../phases
  persists.

ENDPOINTS:
  Projects:
    GET    /api/projects                         List projects
    POST   /api/projects                         Create project (+ one full-span phase)
    GET    /api/projects/{id}                    Project with its phases

  Phases:
    GET    /api/projects/{id}/phases             Stored phases
    PUT    /api/projects/{id}/phases             Validate, then batch save

  Timeline previews (body: working set, optional):
    POST   /api/projects/{id}/timeline/validate  Validate
    POST   /api/projects/{id}/timeline/resize    Move one boundary
    POST   /api/projects/{id}/timeline/reorder   Move one phase, re-derive dates
    POST   /api/projects/{id}/timeline/delete    Tombstone a phase
    POST   /api/projects/{id}/timeline/add       Append a phase
    POST   /api/projects/{id}/timeline/edit      Apply a draft to one phase

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: persistence collaborator (sqlite or memory)
  - Logger: zap logger
  - BudgetPolicy: how TotalBudget relates to capital and expense

PREVIEW FLOW:
  1. Load project bounds and the stored snapshot
  2. Working set = posted phases, or the snapshot when none are posted
  3. Run the engine operation
  4. Validate the result, track it against the snapshot
  5. Respond with {phases, validation, changes, changed, accepted}

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input (dates, budgets, boundary names)
  - 404: Project not found
  - 409: Project id already taken
  - 422: Timeline fails validation on save
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo timelines
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/warp/timeline-engine/generic"
	"github.com/warp/timeline-engine/logging"
	"github.com/warp/timeline-engine/metrics"
	"github.com/warp/timeline-engine/timeline"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Resetter clears all stored data. Both stores implement it.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store        timeline.ProjectStore
	Logger       *zap.Logger
	BudgetPolicy timeline.BudgetPolicy

	mu              sync.Mutex
	currentScenario string

	// createMu serializes the exists-check and the write in CreateProject.
	createMu sync.Mutex
}

// NewHandler creates a new handler with the given store.
func NewHandler(store timeline.ProjectStore, logger *zap.Logger, policy timeline.BudgetPolicy) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if policy == "" {
		policy = timeline.BudgetManualTotal
	}
	return &Handler{
		Store:        store,
		Logger:       logger,
		BudgetPolicy: policy,
	}
}

// =============================================================================
// PROJECT HANDLERS
// =============================================================================

// ListProjects returns all projects.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.Store.ListProjects(r.Context())
	if err != nil {
		h.writeStoreError(w, r, "Failed to list projects", err)
		return
	}

	dtos := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		dtos[i] = toProjectDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProject returns a project and its stored phases.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	project, err := h.Store.GetProject(ctx, projectIDParam(r))
	if err != nil {
		h.writeStoreError(w, r, "Failed to get project", err)
		return
	}
	phases, err := h.Store.List(ctx, project.ID)
	if err != nil {
		h.writeStoreError(w, r, "Failed to list phases", err)
		return
	}
	writeJSON(w, http.StatusOK, toProjectDetailDTO(*project, phases))
}

// CreateProject stores a project and seeds it with one phase covering the
// whole range, so the new timeline is valid from the start. An id that is
// already taken is refused with 409; if seeding fails the project is
// removed again.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := generic.ParseTimePoint(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}
	end, err := generic.ParseTimePoint(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date format (use YYYY-MM-DD)", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "Project name is required", nil)
		return
	}

	project := timeline.Project{
		ID:        generic.ProjectID(req.ID),
		Name:      req.Name,
		StartDate: start,
		EndDate:   end,
		Currency:  generic.Currency(req.Currency),
	}
	if project.ID == "" {
		project.ID = generic.ProjectID(uuid.NewString())
	}
	if project.Currency == "" {
		project.Currency = generic.DefaultCurrency
	}

	h.createMu.Lock()
	defer h.createMu.Unlock()

	if _, err := h.Store.GetProject(ctx, project.ID); err == nil {
		h.writeStoreError(w, r, "Failed to create project",
			fmt.Errorf("%w: %s", generic.ErrProjectExists, project.ID))
		return
	} else if !generic.IsNotFound(err) {
		h.writeStoreError(w, r, "Failed to create project", err)
		return
	}

	if err := h.Store.SaveProject(ctx, project); err != nil {
		h.writeStoreError(w, r, "Failed to create project", err)
		return
	}

	name := req.PhaseName
	if name == "" {
		name = timeline.DefaultPhaseName(1)
	}
	seed := timeline.PhaseSet{{
		ProjectID:     project.ID,
		Name:          name,
		StartDate:     project.StartDate,
		EndDate:       project.EndDate,
		CapitalBudget: generic.Zero(project.Currency),
		ExpenseBudget: generic.Zero(project.Currency),
		TotalBudget:   generic.Zero(project.Currency),
	}}
	phases, _, err := timeline.SaveTimeline(ctx, h.Store, project.ID, seed)
	if err != nil {
		if derr := h.Store.DeleteProject(ctx, project.ID); derr != nil {
			logging.WithRequest(h.Logger, r).Error("failed to remove unseeded project",
				zap.String("project_id", string(project.ID)),
				zap.Error(derr),
			)
		}
		h.writeStoreError(w, r, "Failed to create initial phase", err)
		return
	}

	logging.WithRequest(h.Logger, r).Info("project created",
		zap.String("project_id", string(project.ID)),
		zap.String("period", project.Period().String()),
	)
	writeJSON(w, http.StatusCreated, toProjectDetailDTO(project, phases))
}

// =============================================================================
// PHASE HANDLERS
// =============================================================================

// GetPhases returns the stored phases sorted by start date.
func (h *Handler) GetPhases(w http.ResponseWriter, r *http.Request) {
	phases, err := h.Store.List(r.Context(), projectIDParam(r))
	if err != nil {
		h.writeStoreError(w, r, "Failed to list phases", err)
		return
	}
	writeJSON(w, http.StatusOK, toPhaseDTOs(phases))
}

// SavePhases validates the posted set and, when it passes, replaces the
// stored phases in one batch. Tombstoned phases are deleted; phases with
// temporary ids are created.
func (h *Handler) SavePhases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.WithRequest(h.Logger, r)

	project, err := h.Store.GetProject(ctx, projectIDParam(r))
	if err != nil {
		h.writeStoreError(w, r, "Failed to get project", err)
		return
	}

	var req SavePhasesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	phases, err := decodePhases(req.Phases, *project)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid phase", err)
		return
	}
	phases = timeline.NormalizeBudgets(phases, h.BudgetPolicy)

	saved, res, err := timeline.SaveTimeline(ctx, h.Store, project.ID, phases)
	if errors.Is(err, generic.ErrInvalidTimeline) {
		recordValidation(res)
		log.Info("save rejected",
			zap.String("project_id", string(project.ID)),
			zap.Strings("problems", res.Messages()),
		)
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "Timeline is invalid",
			Code:    "invalid_timeline",
			Details: toValidationDTO(res),
		})
		return
	}
	if err != nil {
		h.writeStoreError(w, r, "Failed to save phases", err)
		return
	}

	metrics.RecordBatchSave(len(saved))
	log.Info("timeline saved",
		zap.String("project_id", string(project.ID)),
		zap.Int("phases", len(saved)),
	)
	writeJSON(w, http.StatusOK, SavePhasesResponse{Phases: toPhaseDTOs(saved), Saved: len(saved)})
}

// =============================================================================
// TIMELINE PREVIEW HANDLERS
// =============================================================================

// workingSet is what every preview starts from.
type workingSet struct {
	project  timeline.Project
	snapshot timeline.PhaseSet
	phases   timeline.PhaseSet
}

// loadWorkingSet reads the project and its snapshot, then picks the posted
// phases (or the snapshot) as the set to edit. It writes the error
// response itself and returns false on failure.
func (h *Handler) loadWorkingSet(w http.ResponseWriter, r *http.Request, posted []PhaseDTO) (workingSet, bool) {
	ctx := r.Context()
	project, err := h.Store.GetProject(ctx, projectIDParam(r))
	if err != nil {
		h.writeStoreError(w, r, "Failed to get project", err)
		return workingSet{}, false
	}
	snapshot, err := h.Store.List(ctx, project.ID)
	if err != nil {
		h.writeStoreError(w, r, "Failed to list phases", err)
		return workingSet{}, false
	}

	ws := workingSet{project: *project, snapshot: snapshot, phases: snapshot.Clone()}
	if len(posted) > 0 {
		phases, err := decodePhases(posted, *project)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid phase", err)
			return workingSet{}, false
		}
		ws.phases = phases
	}
	return ws, true
}

// writePreview validates the edited set and reports it with its change
// ledger. With guard set, an edit that turns a valid set invalid is
// refused and the prior set is returned with accepted=false.
func (h *Handler) writePreview(w http.ResponseWriter, r *http.Request, op string, ws workingSet, next timeline.PhaseSet, guard bool) {
	start, end := ws.project.StartDate, ws.project.EndDate
	res := timeline.Validate(next, start, end)
	accepted := true
	if guard && !res.IsValid {
		if prior := timeline.Validate(ws.phases, start, end); prior.IsValid {
			accepted = false
			next, res = ws.phases, prior
		}
	}

	changed := !timeline.Equal(ws.phases, next)
	result := metrics.ResultChanged
	switch {
	case !accepted:
		result = metrics.ResultRejected
	case !changed:
		result = metrics.ResultNoop
	}
	metrics.RecordEdit(op, result)
	recordValidation(res)

	ledger := timeline.NewChangeLedger(ws.snapshot)
	ledger.Track(next)

	logging.WithRequest(h.Logger, r).Debug("timeline preview",
		zap.String("operation", op),
		zap.String("project_id", string(ws.project.ID)),
		zap.String("result", result),
		zap.Bool("valid", res.IsValid),
	)

	writeJSON(w, http.StatusOK, PreviewResponse{
		Phases:     toPhaseDTOs(next),
		Validation: toValidationDTO(res),
		Changes:    toChangesDTO(ledger.Summary(), ledger.CanSave(res)),
		Changed:    changed,
		Accepted:   accepted,
	})
}

// ValidateTimeline runs the validator on the working set.
func (h *Handler) ValidateTimeline(w http.ResponseWriter, r *http.Request) {
	var req TimelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ws, ok := h.loadWorkingSet(w, r, req.Phases)
	if !ok {
		return
	}
	h.writePreview(w, r, "validate", ws, ws.phases, false)
}

// ResizePhase moves one boundary of a phase; the neighbor follows.
func (h *Handler) ResizePhase(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	boundary := timeline.Boundary(req.Boundary)
	if !boundary.IsValid() {
		writeError(w, http.StatusBadRequest, "boundary must be start or end", nil)
		return
	}
	date, err := generic.ParseTimePoint(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	ws, ok := h.loadWorkingSet(w, r, req.Phases)
	if !ok {
		return
	}
	next := timeline.ResizeBoundary(ws.phases, generic.PhaseID(req.PhaseID), boundary, date)
	h.writePreview(w, r, "resize", ws, next, false)
}

// ReorderPhases moves a phase and re-derives every date from the new order.
func (h *Handler) ReorderPhases(w http.ResponseWriter, r *http.Request) {
	var req ReorderRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ws, ok := h.loadWorkingSet(w, r, req.Phases)
	if !ok {
		return
	}

	start, end := ws.project.StartDate, ws.project.EndDate
	var next timeline.PhaseSet
	if len(req.Order) > 0 {
		order := make([]generic.PhaseID, len(req.Order))
		for i, id := range req.Order {
			order[i] = generic.PhaseID(id)
		}
		next = timeline.RecalculateDates(timeline.ReorderByIDs(ws.phases, order), start, end)
	} else {
		next = timeline.ReorderAndRecalculate(ws.phases, req.FromIndex, req.ToIndex, start, end)
	}
	h.writePreview(w, r, "reorder", ws, next, true)
}

// DeletePhase tombstones a phase and hands its days to its neighbors.
func (h *Handler) DeletePhase(w http.ResponseWriter, r *http.Request) {
	var req DeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ws, ok := h.loadWorkingSet(w, r, req.Phases)
	if !ok {
		return
	}
	next := timeline.DeletePhase(ws.phases, generic.PhaseID(req.PhaseID))
	h.writePreview(w, r, "delete", ws, next, false)
}

// AddPhase appends a phase by splitting the last one.
func (h *Handler) AddPhase(w http.ResponseWriter, r *http.Request) {
	var req TimelineRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ws, ok := h.loadWorkingSet(w, r, req.Phases)
	if !ok {
		return
	}
	next := timeline.AddPhase(ws.phases, ws.project.StartDate, ws.project.EndDate)
	for i := range next {
		if next[i].ProjectID == "" {
			next[i].ProjectID = ws.project.ID
		}
	}
	h.writePreview(w, r, "add", ws, next, false)
}

// EditPhase applies a draft to one phase. Date edits move the neighbor.
func (h *Handler) EditPhase(w http.ResponseWriter, r *http.Request) {
	var req EditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ws, ok := h.loadWorkingSet(w, r, req.Phases)
	if !ok {
		return
	}
	draft, err := req.Draft.toDraft(ws.project.Currency)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid draft", err)
		return
	}
	next := timeline.ApplyDraft(ws.phases, generic.PhaseID(req.PhaseID), draft, h.BudgetPolicy)
	h.writePreview(w, r, "edit", ws, next, false)
}

// =============================================================================
// HEALTH
// =============================================================================

// Healthz reports liveness.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func projectIDParam(r *http.Request) generic.ProjectID {
	return generic.ProjectID(chi.URLParam(r, "id"))
}

// decodeBody reads a JSON body. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func decodePhases(dtos []PhaseDTO, project timeline.Project) (timeline.PhaseSet, error) {
	phases := make(timeline.PhaseSet, 0, len(dtos))
	for _, d := range dtos {
		p, err := d.toPhase(project)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, nil
}

func recordValidation(res timeline.ValidationResult) {
	for _, e := range res.Errors {
		metrics.RecordValidationError(string(e.Code))
	}
}

// writeStoreError maps domain errors to HTTP statuses.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, generic.ErrProjectExists):
		writeError(w, http.StatusConflict, message, err)
	case errors.Is(err, generic.ErrInvalidTimeline):
		writeError(w, http.StatusUnprocessableEntity, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		logging.WithRequest(h.Logger, r).Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
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
