package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/warp/timeline-engine/api"
	"github.com/warp/timeline-engine/generic"
	"github.com/warp/timeline-engine/timeline"
	"github.com/warp/timeline-engine/timeline/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// =============================================================================
// TEST SETUP
// =============================================================================

const relaunch = "/api/projects/website-relaunch"

func newTestRouter(t *testing.T, scenario string) http.Handler {
	t.Helper()
	h := api.NewHandler(store.NewMemory(), zaptest.NewLogger(t), timeline.BudgetManualTotal)
	router := api.NewRouter(h, api.RouterOptions{Metrics: true})
	if scenario != "" {
		rec := do(t, router, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: scenario})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	return router
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func phaseByID(phases []api.PhaseDTO, id string) api.PhaseDTO {
	for _, p := range phases {
		if p.ID == id {
			return p
		}
	}
	return api.PhaseDTO{}
}

// =============================================================================
// PROJECTS
// =============================================================================

func TestCreateProject_SeedsFullSpanPhase(t *testing.T) {
	router := newTestRouter(t, "")

	rec := do(t, router, http.MethodPost, "/api/projects", api.CreateProjectRequest{
		ID:        "q3",
		Name:      "Q3 Push",
		StartDate: "2024-07-01",
		EndDate:   "2024-09-30",
	})

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	got := decode[api.ProjectDetailDTO](t, rec)
	assert.Equal(t, "USD", got.Currency)
	require.Len(t, got.Phases, 1)
	assert.Equal(t, "Phase 1", got.Phases[0].Name)
	assert.Equal(t, "2024-07-01", got.Phases[0].StartDate)
	assert.Equal(t, "2024-09-30", got.Phases[0].EndDate)
	assert.False(t, got.Phases[0].Temporary)

	list := decode[[]api.ProjectDTO](t, do(t, router, http.MethodGet, "/api/projects", nil))
	require.Len(t, list, 1)
	assert.Equal(t, "q3", list[0].ID)
}

func TestCreateProject_BadInput(t *testing.T) {
	router := newTestRouter(t, "")

	bad := []api.CreateProjectRequest{
		{Name: "x", StartDate: "01/01/2024", EndDate: "2024-12-31"},
		{Name: "", StartDate: "2024-01-01", EndDate: "2024-12-31"},
		{Name: "x", StartDate: "2024-12-31", EndDate: "2024-01-01"},
	}
	for _, req := range bad {
		rec := do(t, router, http.MethodPost, "/api/projects", req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%+v", req)
	}
}

func TestCreateProject_ExistingID_Conflict(t *testing.T) {
	// GIVEN: The relaunch timeline is stored
	router := newTestRouter(t, "website-relaunch")

	// WHEN: A project is created with the same id
	rec := do(t, router, http.MethodPost, "/api/projects", api.CreateProjectRequest{
		ID:        "website-relaunch",
		Name:      "Oops",
		StartDate: "2030-01-01",
		EndDate:   "2030-01-31",
	})

	// THEN: It is refused and the stored timeline is untouched
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	got := decode[api.ProjectDetailDTO](t, do(t, router, http.MethodGet, relaunch, nil))
	assert.Equal(t, "Website Relaunch", got.Name)
	assert.Equal(t, "2024-01-01", got.StartDate)
	assert.Len(t, got.Phases, 3)
}

// failingBatchStore accepts projects but cannot write phases.
type failingBatchStore struct {
	*store.Memory
}

func (failingBatchStore) BatchUpdate(context.Context, generic.ProjectID, timeline.PhaseSet) (timeline.PhaseSet, error) {
	return nil, errors.New("disk full")
}

func TestCreateProject_SeedFails_ProjectRemoved(t *testing.T) {
	h := api.NewHandler(failingBatchStore{store.NewMemory()}, zaptest.NewLogger(t), timeline.BudgetManualTotal)
	router := api.NewRouter(h, api.RouterOptions{})

	rec := do(t, router, http.MethodPost, "/api/projects", api.CreateProjectRequest{
		ID: "q3", Name: "Q3", StartDate: "2024-07-01", EndDate: "2024-09-30",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusNotFound, do(t, router, http.MethodGet, "/api/projects/q3", nil).Code)
}

func TestGetProject_WithPhasesAndTotal(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	rec := do(t, router, http.MethodGet, relaunch, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[api.ProjectDetailDTO](t, rec)
	assert.Len(t, got.Phases, 3)
	assert.Equal(t, "135000", got.TotalBudget)
}

func TestGetProject_NotFound(t *testing.T) {
	router := newTestRouter(t, "")

	for _, path := range []string{"/api/projects/nope", "/api/projects/nope/phases"} {
		rec := do(t, router, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
		assert.NotEmpty(t, decode[api.ErrorResponse](t, rec).Error)
	}
}

// =============================================================================
// PREVIEWS
// =============================================================================

func TestResizePreview_MovesNeighbor(t *testing.T) {
	// GIVEN: The relaunch timeline
	router := newTestRouter(t, "website-relaunch")

	// WHEN: Build's end moves to 2024-07-15
	rec := do(t, router, http.MethodPost, relaunch+"/timeline/resize", api.ResizeRequest{
		PhaseID: "wr-build", Boundary: "end", Date: "2024-07-15",
	})

	// THEN: Launch starts the next day and the ledger shows both edits
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[api.PreviewResponse](t, rec)
	assert.True(t, got.Changed)
	assert.True(t, got.Accepted)
	assert.True(t, got.Validation.IsValid)
	assert.Equal(t, "2024-07-16", phaseByID(got.Phases, "wr-launch").StartDate)
	assert.Equal(t, []string{"end_date"}, got.Changes.Changed["wr-build"])
	assert.Equal(t, []string{"start_date"}, got.Changes.Changed["wr-launch"])
	assert.True(t, got.Changes.CanSave)

	// nothing was persisted
	stored := decode[[]api.PhaseDTO](t, do(t, router, http.MethodGet, relaunch+"/phases", nil))
	assert.Equal(t, "2024-09-01", phaseByID(stored, "wr-launch").StartDate)
}

func TestResizePreview_BadInput(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	rec := do(t, router, http.MethodPost, relaunch+"/timeline/resize", api.ResizeRequest{
		PhaseID: "wr-build", Boundary: "middle", Date: "2024-07-15",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodPost, relaunch+"/timeline/resize", api.ResizeRequest{
		PhaseID: "wr-build", Boundary: "end", Date: "July 15",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResizePreview_PinnedBoundary_NotChanged(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	rec := do(t, router, http.MethodPost, relaunch+"/timeline/resize", api.ResizeRequest{
		PhaseID: "wr-discovery", Boundary: "start", Date: "2024-03-01",
	})

	got := decode[api.PreviewResponse](t, rec)
	assert.False(t, got.Changed)
	assert.False(t, got.Changes.HasChanges)
	assert.False(t, got.Changes.CanSave)
}

func TestReorderPreview_ByIndex(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	rec := do(t, router, http.MethodPost, relaunch+"/timeline/reorder", api.ReorderRequest{FromIndex: 2, ToIndex: 0})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decode[api.PreviewResponse](t, rec)
	assert.True(t, got.Accepted)
	assert.True(t, got.Validation.IsValid)
	launch := phaseByID(got.Phases, "wr-launch")
	assert.Equal(t, "2024-01-01", launch.StartDate)
	assert.Equal(t, 122, launch.Duration)
}

func TestReorderPreview_ByOrder(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	rec := do(t, router, http.MethodPost, relaunch+"/timeline/reorder", api.ReorderRequest{
		Order: []string{"wr-build", "wr-discovery", "wr-launch"},
	})

	got := decode[api.PreviewResponse](t, rec)
	assert.Equal(t, "2024-01-01", phaseByID(got.Phases, "wr-build").StartDate)
	assert.True(t, got.Validation.IsValid)
}

func TestReorderPreview_NoopMove(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	got := decode[api.PreviewResponse](t,
		do(t, router, http.MethodPost, relaunch+"/timeline/reorder", api.ReorderRequest{FromIndex: 1, ToIndex: 1}))

	assert.False(t, got.Changed)
	assert.True(t, got.Accepted)
}

func TestDeletePreview_ThenSave(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	// WHEN: Build is deleted in the preview
	got := decode[api.PreviewResponse](t,
		do(t, router, http.MethodPost, relaunch+"/timeline/delete", api.DeleteRequest{PhaseID: "wr-build"}))

	// THEN: It is a tombstone pending deletion and its days are shared out
	assert.True(t, phaseByID(got.Phases, "wr-build").Deleted)
	assert.Equal(t, []string{"wr-build"}, got.Changes.PendingDeletions)
	assert.Equal(t, "2024-07-01", phaseByID(got.Phases, "wr-discovery").EndDate)
	assert.True(t, got.Changes.CanSave)

	// WHEN: The working set is saved
	rec := do(t, router, http.MethodPut, relaunch+"/phases", api.SavePhasesRequest{Phases: got.Phases})

	// THEN: Two phases remain
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[api.SavePhasesResponse](t, rec)
	assert.Equal(t, 2, saved.Saved)
	stored := decode[[]api.PhaseDTO](t, do(t, router, http.MethodGet, relaunch+"/phases", nil))
	require.Len(t, stored, 2)
	assert.Equal(t, "2024-07-02", phaseByID(stored, "wr-launch").StartDate)
}

func TestAddPreview_ThenSave_AssignsID(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	got := decode[api.PreviewResponse](t, do(t, router, http.MethodPost, relaunch+"/timeline/add", nil))

	require.Len(t, got.Phases, 4)
	require.Len(t, got.Changes.Added, 1)
	added := phaseByID(got.Phases, got.Changes.Added[0])
	assert.True(t, added.Temporary)
	assert.Equal(t, "Phase 4", added.Name)
	assert.Equal(t, "2024-12-31", added.EndDate)

	rec := do(t, router, http.MethodPut, relaunch+"/phases", api.SavePhasesRequest{Phases: got.Phases})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	for _, p := range decode[api.SavePhasesResponse](t, rec).Phases {
		assert.False(t, p.Temporary, p.ID)
		assert.False(t, strings.HasPrefix(p.ID, timeline.TemporaryIDPrefix))
	}
}

func TestEditPreview_BlankName_BlocksSave(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")
	blank := ""

	got := decode[api.PreviewResponse](t, do(t, router, http.MethodPost, relaunch+"/timeline/edit", api.EditRequest{
		PhaseID: "wr-launch",
		Draft:   api.DraftDTO{Name: &blank},
	}))

	assert.False(t, got.Validation.IsValid)
	require.Len(t, got.Validation.Errors, 1)
	assert.Equal(t, "required", got.Validation.Errors[0].Code)
	assert.Equal(t, "wr-launch", got.Validation.Errors[0].PhaseID)
	assert.True(t, got.Changes.HasChanges)
	assert.False(t, got.Changes.CanSave)
}

func TestEditPreview_DateAndBudget(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")
	end, capital := "2024-06-30", "42"

	got := decode[api.PreviewResponse](t, do(t, router, http.MethodPost, relaunch+"/timeline/edit", api.EditRequest{
		PhaseID: "wr-build",
		Draft:   api.DraftDTO{EndDate: &end, CapitalBudget: &capital},
	}))

	assert.True(t, got.Validation.IsValid)
	assert.Equal(t, "42", phaseByID(got.Phases, "wr-build").CapitalBudget)
	assert.Equal(t, "2024-07-01", phaseByID(got.Phases, "wr-launch").StartDate)
	assert.Equal(t, []string{"end_date", "capital_budget"}, got.Changes.Changed["wr-build"])
}

func TestEditPreview_NegativeBudget_BadRequest(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")
	neg := "-1"

	rec := do(t, router, http.MethodPost, relaunch+"/timeline/edit", api.EditRequest{
		PhaseID: "wr-build",
		Draft:   api.DraftDTO{ExpenseBudget: &neg},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestValidatePreview_ReportsStoredProblems(t *testing.T) {
	router := newTestRouter(t, "needs-repair")

	got := decode[api.PreviewResponse](t,
		do(t, router, http.MethodPost, "/api/projects/warehouse-move/timeline/validate", nil))

	assert.False(t, got.Validation.IsValid)
	require.Len(t, got.Validation.Errors, 2)
	assert.Equal(t, "gap", got.Validation.Errors[0].Code)
	assert.Equal(t, "overlap", got.Validation.Errors[1].Code)
	assert.False(t, got.Changed)
}

// =============================================================================
// SAVE
// =============================================================================

func TestSavePhases_Invalid_Unprocessable(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")
	stored := decode[[]api.PhaseDTO](t, do(t, router, http.MethodGet, relaunch+"/phases", nil))
	stored[2].StartDate = "2024-09-05"

	rec := do(t, router, http.MethodPut, relaunch+"/phases", api.SavePhasesRequest{Phases: stored})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp := decode[api.ErrorResponse](t, rec)
	assert.Equal(t, "invalid_timeline", resp.Code)

	after := decode[[]api.PhaseDTO](t, do(t, router, http.MethodGet, relaunch+"/phases", nil))
	assert.Equal(t, "2024-09-01", phaseByID(after, "wr-launch").StartDate)
}

func TestSavePhases_MalformedPhase_BadRequest(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")

	rec := do(t, router, http.MethodPut, relaunch+"/phases", api.SavePhasesRequest{Phases: []api.PhaseDTO{
		{Name: "x", StartDate: "nope", EndDate: "2024-12-31"},
	}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// SCENARIOS / OPS
// =============================================================================

func TestScenarios_ListLoadReset(t *testing.T) {
	router := newTestRouter(t, "")

	list := decode[[]api.ScenarioDTO](t, do(t, router, http.MethodGet, "/api/scenarios", nil))
	assert.Len(t, list, 4)

	rec := do(t, router, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "product-roadmap"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	projects := decode[[]api.ProjectDTO](t, do(t, router, http.MethodGet, "/api/projects", nil))
	assert.Len(t, projects, 2)

	current := decode[map[string]string](t, do(t, router, http.MethodGet, "/api/scenarios/current", nil))
	assert.Equal(t, "product-roadmap", current["scenario_id"])

	rec = do(t, router, http.MethodPost, "/api/scenarios/reset", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	projects = decode[[]api.ProjectDTO](t, do(t, router, http.MethodGet, "/api/projects", nil))
	assert.Empty(t, projects)
}

func TestScenarios_Unknown(t *testing.T) {
	router := newTestRouter(t, "")
	rec := do(t, router, http.MethodPost, "/api/scenarios/load", api.LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthzAndMetrics(t *testing.T) {
	router := newTestRouter(t, "website-relaunch")
	do(t, router, http.MethodPost, relaunch+"/timeline/add", nil)

	assert.Equal(t, http.StatusOK, do(t, router, http.MethodGet, "/healthz", nil).Code)

	rec := do(t, router, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `timeline_edit_total{operation="add",result="changed"}`)
}
