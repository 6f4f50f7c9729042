package timeline_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/timeline-engine/generic"
	"github.com/warp/timeline-engine/timeline"
)

// =============================================================================
// CONTINUITY
// =============================================================================

func TestValidate_ContiguousPartition_IsValid(t *testing.T) {
	// GIVEN: Three phases partitioning 2024
	// WHEN: Validating against the 2024 bounds
	// THEN: No errors
	res := timeline.Validate(threePhases(), project2024Start, project2024End)

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestValidate_SinglePhaseSpanningProject_IsValid(t *testing.T) {
	ps := timeline.PhaseSet{phase("only", "All", "2024-01-01", "2024-12-31")}
	requireValid(t, ps, project2024Start, project2024End)
}

func TestValidate_InputOrderDoesNotMatter(t *testing.T) {
	// GIVEN: The same partition listed out of date order
	ps := threePhases()
	ps[0], ps[2] = ps[2], ps[0]

	// THEN: Validation sorts by start date first
	requireValid(t, ps, project2024Start, project2024End)
}

func TestValidate_Gap_ReportedWithDayCount(t *testing.T) {
	// GIVEN: Phase 2 starts five days after phase 1 ends + 1
	ps := threePhases()
	ps[1].StartDate = date("2024-05-06")

	res := timeline.Validate(ps, project2024Start, project2024End)

	require.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	e := res.Errors[0]
	assert.Equal(t, timeline.CodeGap, e.Code)
	assert.Equal(t, timeline.FieldTimeline, e.Field)
	assert.Equal(t, generic.PhaseID("p2"), e.PhaseID)
	assert.Equal(t, `There is a gap of 5 day(s) between "Discovery" and "Build"`, e.Message)
}

func TestValidate_Overlap_ReportedWithDayCount(t *testing.T) {
	// GIVEN: Phase 2 starts three days before phase 1 ends
	ps := threePhases()
	ps[1].StartDate = date("2024-04-28")

	res := timeline.Validate(ps, project2024Start, project2024End)

	require.False(t, res.IsValid)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, timeline.CodeOverlap, res.Errors[0].Code)
	assert.Equal(t, `Phases "Discovery" and "Build" overlap by 3 day(s)`, res.Errors[0].Message)
}

func TestValidate_GapAndOverlap_NeverBothForOnePair(t *testing.T) {
	// GIVEN: A gap between p1/p2 and an overlap between p2/p3
	ps := threePhases()
	ps[1].StartDate = date("2024-05-10")
	ps[2].StartDate = date("2024-08-01")

	res := timeline.Validate(ps, project2024Start, project2024End)

	// THEN: One error per broken pair, each naming the later phase
	require.Len(t, res.Errors, 2)
	assert.Equal(t, timeline.CodeGap, res.Errors[0].Code)
	assert.Equal(t, generic.PhaseID("p2"), res.Errors[0].PhaseID)
	assert.Equal(t, timeline.CodeOverlap, res.Errors[1].Code)
	assert.Equal(t, generic.PhaseID("p3"), res.Errors[1].PhaseID)
}

func TestValidate_BoundaryMismatch_FirstAndLast(t *testing.T) {
	// GIVEN: The timeline starts a day late and ends a day early
	ps := threePhases()
	ps[0].StartDate = date("2024-01-02")
	ps[2].EndDate = date("2024-12-30")

	res := timeline.Validate(ps, project2024Start, project2024End)

	require.Len(t, res.Errors, 2)
	assert.Equal(t, timeline.FieldStartDate, res.Errors[0].Field)
	assert.Equal(t, timeline.CodeBoundaryMismatch, res.Errors[0].Code)
	assert.Equal(t, timeline.FieldEndDate, res.Errors[1].Field)
	assert.Equal(t, timeline.CodeBoundaryMismatch, res.Errors[1].Code)
}

func TestValidate_EndBeforeStart_InvalidRange(t *testing.T) {
	ps := timeline.PhaseSet{phase("bad", "Backwards", "2024-12-31", "2024-01-01")}

	res := timeline.Validate(ps, project2024Start, project2024End)

	assert.True(t, res.HasCode(timeline.CodeInvalidRange))
	assert.Len(t, res.ForPhase("bad"), 3, "range plus both boundary mismatches")
}

func TestValidate_NoActivePhases_Empty(t *testing.T) {
	// GIVEN: Nothing, then only a tombstone
	for _, ps := range []timeline.PhaseSet{nil, {func() timeline.Phase {
		p := phase("gone", "Gone", "2024-01-01", "2024-12-31")
		p.Deleted = true
		return p
	}()}} {
		res := timeline.Validate(ps, project2024Start, project2024End)

		require.False(t, res.IsValid)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, timeline.CodeEmpty, res.Errors[0].Code)
	}
}

func TestValidate_TombstonesIgnored(t *testing.T) {
	// GIVEN: A valid partition plus a deleted phase overlapping everything
	ps := threePhases()
	ghost := phase("ghost", "", "2023-06-01", "2025-06-01")
	ghost.Deleted = true
	ps = append(ps, ghost)

	requireValid(t, ps, project2024Start, project2024End)
}

// =============================================================================
// NAME RULES
// =============================================================================

func TestValidate_Name_Required(t *testing.T) {
	for _, name := range []string{"", "   ", "\t"} {
		ps := timeline.PhaseSet{phase("only", name, "2024-01-01", "2024-12-31")}

		res := timeline.Validate(ps, project2024Start, project2024End)

		require.Len(t, res.Errors, 1, "name %q", name)
		assert.Equal(t, timeline.FieldName, res.Errors[0].Field)
		assert.Equal(t, timeline.CodeRequired, res.Errors[0].Code)
		assert.Equal(t, "Phase name is required", res.Errors[0].Message)
	}
}

func TestValidate_Name_MaxLength(t *testing.T) {
	atLimit := strings.Repeat("a", timeline.MaxNameLength)
	assert.Empty(t, timeline.ValidateName(atLimit))

	errs := timeline.ValidateName(atLimit + "a")
	require.Len(t, errs, 1)
	assert.Equal(t, timeline.CodeMaxLength, errs[0].Code)
	assert.Equal(t, "Phase name must be 100 characters or less", errs[0].Message)
}

func TestValidate_Name_CountsCharactersNotBytes(t *testing.T) {
	// 100 two-byte runes is still at the limit
	assert.Empty(t, timeline.ValidateName(strings.Repeat("é", timeline.MaxNameLength)))
}

func TestValidate_Name_BothRulesCanFire(t *testing.T) {
	// GIVEN: 101 spaces, blank after trimming and too long
	errs := timeline.ValidateName(strings.Repeat(" ", timeline.MaxNameLength+1))

	require.Len(t, errs, 2)
	assert.Equal(t, timeline.CodeRequired, errs[0].Code)
	assert.Equal(t, timeline.CodeMaxLength, errs[1].Code)
}

// =============================================================================
// RESULT HELPERS
// =============================================================================

func TestValidationResult_Err_WrapsInvalidTimeline(t *testing.T) {
	ps := threePhases()
	ps[1].Name = ""
	res := timeline.Validate(ps, project2024Start, project2024End)

	err := res.Err("proj-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrInvalidTimeline))
	var invalid *generic.InvalidTimelineError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, []string{"Phase name is required"}, invalid.Problems)

	assert.NoError(t, timeline.Validate(threePhases(), project2024Start, project2024End).Err("proj-1"))
}

func TestValidateReordering_ReturnsFirstMessage(t *testing.T) {
	ps := threePhases()
	ok, msg := timeline.ValidateReordering(ps, project2024Start, project2024End)
	assert.True(t, ok)
	assert.Empty(t, msg)

	ps[2].EndDate = date("2024-12-01")
	ok, msg = timeline.ValidateReordering(ps, project2024Start, project2024End)
	assert.False(t, ok)
	assert.Contains(t, msg, "project end date (2024-12-31)")
}
