/*
Package factory converts timeline documents into engine types.

PURPOSE:
  A timeline document describes one project and its phases in JSON or
  YAML. The factory parses it into a timeline.Project and a
  timeline.PhaseSet, fills defaults, and rejects malformed values
  (bad dates, negative budgets). It does not check continuity; run
  timeline.Validate on the result for that.

DOCUMENT SCHEMA (YAML shown, JSON uses the same keys):
  project:
    id: website-relaunch
    name: Website Relaunch
    start_date: 2024-01-01
    end_date: 2024-12-31
    currency: USD
  phases:
    - name: Discovery
      start_date: 2024-01-01
      end_date: 2024-04-30
      capital_budget: "12000"
      expense_budget: "3000.50"
      total_budget: "15000.50"

DEFAULTS:
  - Missing phase ids become temporary ids (created on save)
  - Missing currency is USD
  - Missing budgets are zero; a missing total is capital + expense

USAGE:
  doc, err := factory.ParseFile("timeline.yaml")
  project, phases, err := doc.Build()
  res := timeline.Validate(phases, project.StartDate, project.EndDate)

SEE ALSO:
  - timeline/phase.go: Project and Phase
  - api/scenarios.go: Demo timelines built from documents
  - cmd/server/check.go: Offline validation of a document
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/warp/timeline-engine/generic"
	"github.com/warp/timeline-engine/timeline"
)

// =============================================================================
// DOCUMENT SCHEMA TYPES
// =============================================================================

// Document is the serialized form of one project timeline.
type Document struct {
	Project ProjectJSON `json:"project" yaml:"project"`
	Phases  []PhaseJSON `json:"phases" yaml:"phases"`
}

// ProjectJSON represents the project bounds.
type ProjectJSON struct {
	ID        string            `json:"id" yaml:"id"`
	Name      string            `json:"name" yaml:"name"`
	StartDate generic.TimePoint `json:"start_date" yaml:"start_date"`
	EndDate   generic.TimePoint `json:"end_date" yaml:"end_date"`
	Currency  string            `json:"currency,omitempty" yaml:"currency,omitempty"`
}

// PhaseJSON represents one phase. Budgets are decimal strings.
type PhaseJSON struct {
	ID            string            `json:"id,omitempty" yaml:"id,omitempty"`
	Name          string            `json:"name" yaml:"name"`
	Description   string            `json:"description,omitempty" yaml:"description,omitempty"`
	StartDate     generic.TimePoint `json:"start_date" yaml:"start_date"`
	EndDate       generic.TimePoint `json:"end_date" yaml:"end_date"`
	CapitalBudget string            `json:"capital_budget,omitempty" yaml:"capital_budget,omitempty"`
	ExpenseBudget string            `json:"expense_budget,omitempty" yaml:"expense_budget,omitempty"`
	TotalBudget   string            `json:"total_budget,omitempty" yaml:"total_budget,omitempty"`
}

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the format from a file extension; anything that is
// not .json is read as YAML.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// =============================================================================
// PARSING
// =============================================================================

// Parse decodes a document in the given format.
func Parse(data []byte, format Format) (*Document, error) {
	var doc Document
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid timeline JSON: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&doc); err != nil {
			return nil, fmt.Errorf("invalid timeline YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown document format %q", format)
	}
	return &doc, nil
}

// ParseFile reads and decodes a document, choosing the format by extension.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data, FormatForPath(path))
}

// Build converts the document into engine types.
func (d *Document) Build() (timeline.Project, timeline.PhaseSet, error) {
	project, err := d.Project.Build()
	if err != nil {
		return timeline.Project{}, nil, err
	}

	phases := make(timeline.PhaseSet, 0, len(d.Phases))
	for i, pj := range d.Phases {
		p, err := pj.Build(project.ID, project.Currency)
		if err != nil {
			return timeline.Project{}, nil, fmt.Errorf("phase %d: %w", i+1, err)
		}
		phases = append(phases, p)
	}
	return project, phases, nil
}

// Build converts the project section.
func (pj ProjectJSON) Build() (timeline.Project, error) {
	if pj.ID == "" {
		return timeline.Project{}, fmt.Errorf("project id is required")
	}
	if pj.StartDate.IsZero() || pj.EndDate.IsZero() {
		return timeline.Project{}, fmt.Errorf("project start_date and end_date are required")
	}
	if pj.EndDate.Before(pj.StartDate) {
		return timeline.Project{}, generic.ErrInvalidPeriod
	}
	currency := generic.Currency(pj.Currency)
	if currency == "" {
		currency = generic.DefaultCurrency
	}
	name := pj.Name
	if name == "" {
		name = pj.ID
	}
	return timeline.Project{
		ID:        generic.ProjectID(pj.ID),
		Name:      name,
		StartDate: pj.StartDate,
		EndDate:   pj.EndDate,
		Currency:  currency,
	}, nil
}

// Build converts one phase. Date order is left to the validator.
func (pj PhaseJSON) Build(projectID generic.ProjectID, currency generic.Currency) (timeline.Phase, error) {
	if pj.StartDate.IsZero() || pj.EndDate.IsZero() {
		return timeline.Phase{}, fmt.Errorf("start_date and end_date are required")
	}

	capital, err := parseBudget("capital_budget", pj.CapitalBudget, currency)
	if err != nil {
		return timeline.Phase{}, err
	}
	expense, err := parseBudget("expense_budget", pj.ExpenseBudget, currency)
	if err != nil {
		return timeline.Phase{}, err
	}
	total := capital.Add(expense)
	if pj.TotalBudget != "" {
		if total, err = generic.ParseAmount(pj.TotalBudget, currency); err != nil {
			return timeline.Phase{}, fmt.Errorf("total_budget: %w", err)
		}
	}

	id := generic.PhaseID(pj.ID)
	if id == "" {
		id = timeline.NewTemporaryID()
	}

	return timeline.Phase{
		ID:            id,
		ProjectID:     projectID,
		Name:          pj.Name,
		Description:   pj.Description,
		StartDate:     pj.StartDate,
		EndDate:       pj.EndDate,
		CapitalBudget: capital,
		ExpenseBudget: expense,
		TotalBudget:   total,
	}, nil
}

func parseBudget(field, value string, currency generic.Currency) (generic.Amount, error) {
	a, err := generic.ParseAmount(value, currency)
	if err != nil {
		return generic.Amount{}, fmt.Errorf("%s: %w", field, err)
	}
	if a.IsNegative() {
		return generic.Amount{}, fmt.Errorf("%s must not be negative", field)
	}
	return a, nil
}

// =============================================================================
// ENCODING
// =============================================================================

// NewDocument builds a document from engine types. Tombstoned phases are
// left out.
func NewDocument(project timeline.Project, phases timeline.PhaseSet) *Document {
	doc := &Document{
		Project: ProjectJSON{
			ID:        string(project.ID),
			Name:      project.Name,
			StartDate: project.StartDate,
			EndDate:   project.EndDate,
			Currency:  string(project.Currency),
		},
	}
	for _, p := range phases.Active() {
		doc.Phases = append(doc.Phases, PhaseJSON{
			ID:            string(p.ID),
			Name:          p.Name,
			Description:   p.Description,
			StartDate:     p.StartDate,
			EndDate:       p.EndDate,
			CapitalBudget: p.CapitalBudget.Value.String(),
			ExpenseBudget: p.ExpenseBudget.Value.String(),
			TotalBudget:   p.TotalBudget.Value.String(),
		})
	}
	return doc
}

// Encode writes the document in the given format.
func (d *Document) Encode(format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(d, "", "  ")
	case FormatYAML:
		return yaml.Marshal(d)
	}
	return nil, fmt.Errorf("unknown document format %q", format)
}
