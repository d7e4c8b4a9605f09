package reporting

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

// ApplicableMetricTemplates keeps the active templates whose scope covers the report scope,
// ordered by sequence then id.
func ApplicableMetricTemplates(scope storage.Scope, templates []storage.MetricTemplate) []storage.MetricTemplate {
	var out []storage.MetricTemplate
	for _, t := range templates {
		if t.Active && t.Scope.Covers(scope) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func ApplicableSectionTemplates(scope storage.Scope, templates []storage.SectionTemplate) []storage.SectionTemplate {
	var out []storage.SectionTemplate
	for _, t := range templates {
		if t.Active && t.Scope.Covers(scope) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ValidateMetricTemplate checks that a template can produce a typed metric line.
func ValidateMetricTemplate(t storage.MetricTemplate) error {
	if !t.ValueType.Valid() {
		return fmt.Errorf("metric template %q: value type %q is not set: %w", t.Name, t.ValueType, apperr.ErrValidation)
	}
	if _, err := typedValue(t.ValueType, t.Default, t.SelectionOptions); err != nil {
		return fmt.Errorf("metric template %q: default: %w", t.Name, err)
	}
	return nil
}

// typedValue keeps only the field of v that matches vt and checks it is present.
func typedValue(vt storage.ValueType, v storage.MetricValue, options []string) (storage.MetricValue, error) {
	var out storage.MetricValue
	switch vt {
	case storage.ValueInt:
		if v.Int == nil {
			return out, fmt.Errorf("integer value missing: %w", apperr.ErrValidation)
		}
		n := *v.Int
		out.Int = &n
	case storage.ValueFloat:
		if v.Float == nil {
			return out, fmt.Errorf("float value missing: %w", apperr.ErrValidation)
		}
		f := *v.Float
		out.Float = &f
	case storage.ValueText:
		if v.Text == nil {
			return out, fmt.Errorf("text value missing: %w", apperr.ErrValidation)
		}
		s := *v.Text
		out.Text = &s
	case storage.ValueSelection:
		if v.Selection == nil {
			return out, fmt.Errorf("selection value missing: %w", apperr.ErrValidation)
		}
		if !slices.Contains(options, *v.Selection) {
			return out, fmt.Errorf("selection %q is not one of %v: %w", *v.Selection, options, apperr.ErrValidation)
		}
		s := *v.Selection
		out.Selection = &s
	default:
		return out, fmt.Errorf("unknown value type %q: %w", vt, apperr.ErrValidation)
	}
	return out, nil
}

// ComposeLines expands the applicable templates into metric lines and sections for header.
// Every generated child carries the header scope. Nothing is returned if any template is invalid.
func ComposeLines(header storage.Report, metrics []storage.MetricTemplate, sections []storage.SectionTemplate) ([]storage.MetricLine, []storage.Section, error) {
	var lines []storage.MetricLine
	for _, t := range ApplicableMetricTemplates(header.Scope, metrics) {
		if err := ValidateMetricTemplate(t); err != nil {
			return nil, nil, err
		}
		value, _ := typedValue(t.ValueType, t.Default, t.SelectionOptions)
		lines = append(lines, storage.MetricLine{
			TemplateID: t.ID,
			Scope:      header.Scope,
			Name:       t.Name,
			ValueType:  t.ValueType,
			Options:    slices.Clone(t.SelectionOptions),
			Required:   t.Required,
			Value:      value,
			Sequence:   t.Sequence,
		})
	}

	var out []storage.Section
	for _, t := range ApplicableSectionTemplates(header.Scope, sections) {
		out = append(out, storage.Section{
			TemplateID:  t.ID,
			Scope:       header.Scope,
			Title:       t.Name,
			Description: t.Description,
			Sequence:    t.Sequence,
		})
	}

	return lines, out, nil
}

// Summary renders the plain-text digest sent with report notifications.
func Summary(r storage.Report) string {
	parts := []string{
		fmt.Sprintf("Daily Report %s", r.Date.Format("2006-01-02")),
		fmt.Sprintf("Company: #%d", r.Scope.CompanyID),
	}
	if r.Scope.BranchID != 0 {
		parts = append(parts, fmt.Sprintf("Branch: #%d", r.Scope.BranchID))
	}
	if r.Scope.DepartmentID != 0 {
		parts = append(parts, fmt.Sprintf("Department: #%d", r.Scope.DepartmentID))
	}
	parts = append(parts, fmt.Sprintf("Manager: #%d", r.ManagerID))
	parts = append(parts, fmt.Sprintf("State: %s", r.State))
	if r.Activities != "" {
		parts = append(parts, "Activities: "+r.Activities)
	}
	if len(r.Complaints) > 0 {
		items := make([]string, 0, len(r.Complaints))
		for _, c := range r.Complaints {
			items = append(items, fmt.Sprintf("%s (%s)", c.Description, c.Severity))
		}
		parts = append(parts, "Complaints: "+strings.Join(items, "; "))
	}
	if len(r.StaffLogs) > 0 {
		items := make([]string, 0, len(r.StaffLogs))
		for _, s := range r.StaffLogs {
			items = append(items, fmt.Sprintf("%s: %s", s.StaffName, s.Attendance))
		}
		parts = append(parts, "Staff: "+strings.Join(items, "; "))
	}
	if len(r.ContractorRatings) > 0 {
		items := make([]string, 0, len(r.ContractorRatings))
		for _, c := range r.ContractorRatings {
			items = append(items, fmt.Sprintf("%s: %s", c.Contractor, strconv.FormatFloat(c.Rating, 'f', -1, 64)))
		}
		parts = append(parts, "Contractors: "+strings.Join(items, "; "))
	}
	if len(r.MetricLines) > 0 {
		items := make([]string, 0, len(r.MetricLines))
		for _, l := range r.MetricLines {
			items = append(items, fmt.Sprintf("%s: %s", l.Name, FormatValue(l.Value)))
		}
		parts = append(parts, "Metrics: "+strings.Join(items, "; "))
	}
	if len(r.Sections) > 0 {
		items := make([]string, 0, len(r.Sections))
		for _, s := range r.Sections {
			items = append(items, strings.TrimSpace(fmt.Sprintf("%s: %s %s", s.Title, s.Subject, s.Description)))
		}
		parts = append(parts, "Dynamic Sections: "+strings.Join(items, "; "))
	}
	if r.Notes != "" {
		parts = append(parts, "Notes: "+r.Notes)
	}
	return strings.Join(parts, "\n")
}

// FormatValue prints whichever typed field is set.
func FormatValue(v storage.MetricValue) string {
	switch {
	case v.Int != nil:
		return strconv.FormatInt(*v.Int, 10)
	case v.Float != nil:
		return strconv.FormatFloat(*v.Float, 'f', -1, 64)
	case v.Text != nil:
		return *v.Text
	case v.Selection != nil:
		return *v.Selection
	}
	return ""
}
