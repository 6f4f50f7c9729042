/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Dates travel as
  YYYY-MM-DD strings and budgets as decimal strings, so clients never see
  the engine's internal types.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Project:
    ProjectDTO, CreateProjectRequest

  Phase:
    PhaseDTO, DraftDTO

  Timeline previews:
    TimelineRequest, ResizeRequest, ReorderRequest, DeleteRequest,
    EditRequest, PreviewResponse, ValidationDTO, ChangesDTO

  Scenarios:
    ScenarioDTO, LoadScenarioRequest

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - timeline/phase.go: Phase and Project
*/
package api

import (
	"fmt"

	"github.com/warp/timeline-engine/generic"
	"github.com/warp/timeline-engine/timeline"
)

// =============================================================================
// PROJECT TYPES
// =============================================================================

// ProjectDTO represents a project in API responses.
type ProjectDTO struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Currency  string `json:"currency"`
}

// CreateProjectRequest creates a project together with one phase that
// spans it.
type CreateProjectRequest struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Currency  string `json:"currency,omitempty"`
	PhaseName string `json:"phase_name,omitempty"`
}

func toProjectDTO(p timeline.Project) ProjectDTO {
	return ProjectDTO{
		ID:        string(p.ID),
		Name:      p.Name,
		StartDate: p.StartDate.String(),
		EndDate:   p.EndDate.String(),
		Currency:  string(p.Currency),
	}
}

// ProjectDetailDTO is a project with its phases and their budget total.
type ProjectDetailDTO struct {
	ProjectDTO
	Phases      []PhaseDTO `json:"phases"`
	TotalBudget string     `json:"total_budget"`
}

func toProjectDetailDTO(p timeline.Project, phases timeline.PhaseSet) ProjectDetailDTO {
	return ProjectDetailDTO{
		ProjectDTO:  toProjectDTO(p),
		Phases:      toPhaseDTOs(phases),
		TotalBudget: timeline.TotalBudget(phases, p.Currency).Value.String(),
	}
}

// =============================================================================
// PHASE TYPES
// =============================================================================

// PhaseDTO is a phase on the wire, in both directions.
type PhaseDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	CapitalBudget string `json:"capital_budget,omitempty"`
	ExpenseBudget string `json:"expense_budget,omitempty"`
	TotalBudget   string `json:"total_budget,omitempty"`
	Deleted       bool   `json:"deleted,omitempty"`
	Temporary     bool   `json:"temporary,omitempty"`
	Duration      int    `json:"duration"`
}

func toPhaseDTO(p timeline.Phase) PhaseDTO {
	return PhaseDTO{
		ID:            string(p.ID),
		Name:          p.Name,
		Description:   p.Description,
		StartDate:     p.StartDate.String(),
		EndDate:       p.EndDate.String(),
		CapitalBudget: p.CapitalBudget.Value.String(),
		ExpenseBudget: p.ExpenseBudget.Value.String(),
		TotalBudget:   p.TotalBudget.Value.String(),
		Deleted:       p.Deleted,
		Temporary:     p.IsTemporary(),
		Duration:      p.Duration(),
	}
}

func toPhaseDTOs(ps timeline.PhaseSet) []PhaseDTO {
	dtos := make([]PhaseDTO, len(ps))
	for i, p := range ps {
		dtos[i] = toPhaseDTO(p)
	}
	return dtos
}

// toPhase converts a posted phase. Missing ids become temporary ids.
func (d PhaseDTO) toPhase(project timeline.Project) (timeline.Phase, error) {
	start, err := generic.ParseTimePoint(d.StartDate)
	if err != nil {
		return timeline.Phase{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := generic.ParseTimePoint(d.EndDate)
	if err != nil {
		return timeline.Phase{}, fmt.Errorf("end_date: %w", err)
	}

	budgets := [3]generic.Amount{}
	for i, s := range []string{d.CapitalBudget, d.ExpenseBudget, d.TotalBudget} {
		a, err := generic.ParseAmount(s, project.Currency)
		if err != nil {
			return timeline.Phase{}, fmt.Errorf("budget %q: %w", s, err)
		}
		if a.IsNegative() {
			return timeline.Phase{}, fmt.Errorf("budget %q must not be negative", s)
		}
		budgets[i] = a
	}

	id := generic.PhaseID(d.ID)
	if id == "" {
		id = timeline.NewTemporaryID()
	}
	return timeline.Phase{
		ID:            id,
		ProjectID:     project.ID,
		Name:          d.Name,
		Description:   d.Description,
		StartDate:     start,
		EndDate:       end,
		CapitalBudget: budgets[0],
		ExpenseBudget: budgets[1],
		TotalBudget:   budgets[2],
		Deleted:       d.Deleted,
	}, nil
}

// DraftDTO carries only the fields the user touched.
type DraftDTO struct {
	Name          *string `json:"name,omitempty"`
	Description   *string `json:"description,omitempty"`
	StartDate     *string `json:"start_date,omitempty"`
	EndDate       *string `json:"end_date,omitempty"`
	CapitalBudget *string `json:"capital_budget,omitempty"`
	ExpenseBudget *string `json:"expense_budget,omitempty"`
	TotalBudget   *string `json:"total_budget,omitempty"`
}

func (d DraftDTO) toDraft(currency generic.Currency) (timeline.DraftPhase, error) {
	draft := timeline.DraftPhase{Name: d.Name, Description: d.Description}

	for _, f := range []struct {
		name string
		in   *string
		out  **generic.TimePoint
	}{
		{"start_date", d.StartDate, &draft.StartDate},
		{"end_date", d.EndDate, &draft.EndDate},
	} {
		if f.in == nil {
			continue
		}
		tp, err := generic.ParseTimePoint(*f.in)
		if err != nil {
			return timeline.DraftPhase{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.out = &tp
	}

	for _, f := range []struct {
		name string
		in   *string
		out  **generic.Amount
	}{
		{"capital_budget", d.CapitalBudget, &draft.CapitalBudget},
		{"expense_budget", d.ExpenseBudget, &draft.ExpenseBudget},
		{"total_budget", d.TotalBudget, &draft.TotalBudget},
	} {
		if f.in == nil {
			continue
		}
		a, err := generic.ParseAmount(*f.in, currency)
		if err != nil {
			return timeline.DraftPhase{}, fmt.Errorf("%s: %w", f.name, err)
		}
		if a.IsNegative() {
			return timeline.DraftPhase{}, fmt.Errorf("%s must not be negative", f.name)
		}
		*f.out = &a
	}
	return draft, nil
}

// =============================================================================
// TIMELINE PREVIEW TYPES
// =============================================================================

// TimelineRequest carries the client's working set. When Phases is empty
// the stored phases are used.
type TimelineRequest struct {
	Phases []PhaseDTO `json:"phases,omitempty"`
}

type ResizeRequest struct {
	TimelineRequest
	PhaseID  string `json:"phase_id"`
	Boundary string `json:"boundary"` // "start" or "end"
	Date     string `json:"date"`
}

// ReorderRequest moves the phase at FromIndex to ToIndex. When Order is set
// it wins and lists the full desired order by id.
type ReorderRequest struct {
	TimelineRequest
	FromIndex int      `json:"from_index"`
	ToIndex   int      `json:"to_index"`
	Order     []string `json:"order,omitempty"`
}

type DeleteRequest struct {
	TimelineRequest
	PhaseID string `json:"phase_id"`
}

type EditRequest struct {
	TimelineRequest
	PhaseID string   `json:"phase_id"`
	Draft   DraftDTO `json:"draft"`
}

// SavePhasesRequest replaces a project's phases.
type SavePhasesRequest struct {
	Phases []PhaseDTO `json:"phases"`
}

// ValidationErrorDTO is one validator finding.
type ValidationErrorDTO struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
	PhaseID string `json:"phase_id,omitempty"`
}

type ValidationDTO struct {
	IsValid bool                 `json:"is_valid"`
	Errors  []ValidationErrorDTO `json:"errors"`
}

func toValidationDTO(res timeline.ValidationResult) ValidationDTO {
	dto := ValidationDTO{IsValid: res.IsValid, Errors: make([]ValidationErrorDTO, len(res.Errors))}
	for i, e := range res.Errors {
		dto.Errors[i] = ValidationErrorDTO{
			Field:   string(e.Field),
			Code:    string(e.Code),
			Message: e.Message,
			PhaseID: string(e.PhaseID),
		}
	}
	return dto
}

// ChangesDTO is the change ledger against the stored snapshot.
type ChangesDTO struct {
	Changed          map[string][]string `json:"changed"`
	Added            []string            `json:"added"`
	PendingDeletions []string            `json:"pending_deletions"`
	HasChanges       bool                `json:"has_changes"`
	CanSave          bool                `json:"can_save"`
}

func toChangesDTO(s timeline.Summary, canSave bool) ChangesDTO {
	dto := ChangesDTO{
		Changed:          make(map[string][]string, len(s.Changed)),
		Added:            idStrings(s.Added),
		PendingDeletions: idStrings(s.PendingDeletions),
		HasChanges:       s.HasChanges,
		CanSave:          canSave,
	}
	for id, fields := range s.Changed {
		dto.Changed[string(id)] = fields
	}
	return dto
}

func idStrings(ids []generic.PhaseID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

// PreviewResponse is returned by every timeline edit preview.
type PreviewResponse struct {
	Phases     []PhaseDTO    `json:"phases"`
	Validation ValidationDTO `json:"validation"`
	Changes    ChangesDTO    `json:"changes"`
	Changed    bool          `json:"changed"`
	Accepted   bool          `json:"accepted"`
}

// SavePhasesResponse is returned after a successful batch save.
type SavePhasesResponse struct {
	Phases []PhaseDTO `json:"phases"`
	Saved  int        `json:"saved"`
}

// =============================================================================
// SCENARIO / ERROR TYPES
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
