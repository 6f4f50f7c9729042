package timeline

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/warp/timeline-engine/generic"
)

// =============================================================================
// VALIDATION ERRORS
// =============================================================================

// Field names a ValidationError is attached to.
type Field string

const (
	FieldName      Field = "name"
	FieldStartDate Field = "start_date"
	FieldEndDate   Field = "end_date"
	FieldTimeline  Field = "timeline"
	FieldDates     Field = "dates"
)

// Code classifies a ValidationError for programmatic handling.
type Code string

const (
	CodeRequired         Code = "required"
	CodeMaxLength        Code = "max_length"
	CodeInvalidRange     Code = "invalid_range"
	CodeBoundaryMismatch Code = "boundary_mismatch"
	CodeGap              Code = "gap"
	CodeOverlap          Code = "overlap"
	CodeEmpty            Code = "empty"
)

// ValidationError is one continuity or field problem. PhaseID is empty for
// timeline-wide problems.
type ValidationError struct {
	Field   Field
	Code    Code
	Message string
	PhaseID generic.PhaseID
}

func (e ValidationError) Error() string { return e.Message }

// ValidationResult is the validator's output. IsValid iff Errors is empty.
type ValidationResult struct {
	IsValid bool
	Errors  []ValidationError
}

// Messages flattens the errors for logs and error wrapping.
func (r ValidationResult) Messages() []string {
	msgs := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		msgs[i] = e.Message
	}
	return msgs
}

// ForPhase returns the errors attached to one phase.
func (r ValidationResult) ForPhase(id generic.PhaseID) []ValidationError {
	var out []ValidationError
	for _, e := range r.Errors {
		if e.PhaseID == id {
			out = append(out, e)
		}
	}
	return out
}

// HasCode reports whether any error carries code.
func (r ValidationResult) HasCode(code Code) bool {
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Err converts an invalid result into an *generic.InvalidTimelineError.
func (r ValidationResult) Err(projectID generic.ProjectID) error {
	if r.IsValid {
		return nil
	}
	return &generic.InvalidTimelineError{ProjectID: projectID, Problems: r.Messages()}
}

// =============================================================================
// VALIDATE
// =============================================================================

// Validate checks the active phases against the continuity invariants and
// the field rules. Every violation is reported, not just the first.
func Validate(phases PhaseSet, projectStart, projectEnd generic.TimePoint) ValidationResult {
	active := phases.Active()
	var errs []ValidationError

	for _, p := range active {
		errs = append(errs, validateName(p)...)
	}

	for _, p := range active {
		if p.EndDate.Before(p.StartDate) {
			errs = append(errs, ValidationError{
				Field:   FieldDates,
				Code:    CodeInvalidRange,
				Message: fmt.Sprintf("Phase %q ends (%s) before it starts (%s)", displayName(p), p.EndDate, p.StartDate),
				PhaseID: p.ID,
			})
		}
	}

	if len(active) == 0 {
		errs = append(errs, ValidationError{
			Field:   FieldTimeline,
			Code:    CodeEmpty,
			Message: "Timeline must contain at least one phase",
		})
		return result(errs)
	}

	first, last := active[0], active[len(active)-1]
	if !first.StartDate.Equal(projectStart) {
		errs = append(errs, ValidationError{
			Field:   FieldStartDate,
			Code:    CodeBoundaryMismatch,
			Message: fmt.Sprintf("First phase must start on the project start date (%s), starts %s", projectStart, first.StartDate),
			PhaseID: first.ID,
		})
	}
	if !last.EndDate.Equal(projectEnd) {
		errs = append(errs, ValidationError{
			Field:   FieldEndDate,
			Code:    CodeBoundaryMismatch,
			Message: fmt.Sprintf("Last phase must end on the project end date (%s), ends %s", projectEnd, last.EndDate),
			PhaseID: last.ID,
		})
	}

	for i := 1; i < len(active); i++ {
		prev, next := active[i-1], active[i]
		expected := prev.EndDate.NextDay()
		switch {
		case next.StartDate.After(expected):
			errs = append(errs, ValidationError{
				Field: FieldTimeline,
				Code:  CodeGap,
				Message: fmt.Sprintf("There is a gap of %d day(s) between %q and %q",
					generic.DaysBetween(expected, next.StartDate), displayName(prev), displayName(next)),
				PhaseID: next.ID,
			})
		case next.StartDate.BeforeOrEqual(prev.EndDate):
			errs = append(errs, ValidationError{
				Field: FieldTimeline,
				Code:  CodeOverlap,
				Message: fmt.Sprintf("Phases %q and %q overlap by %d day(s)",
					displayName(prev), displayName(next), generic.DaysBetween(next.StartDate, prev.EndDate)+1),
				PhaseID: next.ID,
			})
		}
	}

	return result(errs)
}

// ValidateReordering validates a recalculated order and returns the first
// problem for display.
func ValidateReordering(phases PhaseSet, projectStart, projectEnd generic.TimePoint) (bool, string) {
	res := Validate(phases, projectStart, projectEnd)
	if res.IsValid {
		return true, ""
	}
	return false, res.Errors[0].Message
}

// ValidateName applies the name rules to a single string.
func ValidateName(name string) []ValidationError {
	return validateName(Phase{Name: name})
}

// The two rules are independent: a long run of spaces breaks both.
func validateName(p Phase) []ValidationError {
	var errs []ValidationError
	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ValidationError{
			Field:   FieldName,
			Code:    CodeRequired,
			Message: "Phase name is required",
			PhaseID: p.ID,
		})
	}
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		errs = append(errs, ValidationError{
			Field:   FieldName,
			Code:    CodeMaxLength,
			Message: fmt.Sprintf("Phase name must be %d characters or less", MaxNameLength),
			PhaseID: p.ID,
		})
	}
	return errs
}

func result(errs []ValidationError) ValidationResult {
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func displayName(p Phase) string {
	if strings.TrimSpace(p.Name) == "" {
		return string(p.ID)
	}
	return p.Name
}
