package reporting

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantops/internal/apperr"
	"plantops/internal/storage"
)

func intPtr(v int64) *int64       { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func TestApplicableMetricTemplates_BranchFilter(t *testing.T) {
	const companyA, branchB, branchC = 1, 2, 3

	templates := []storage.MetricTemplate{
		{ID: 1, Name: "Trucks dispatched", ValueType: storage.ValueInt, Default: storage.MetricValue{Int: intPtr(0)}, Active: true, Sequence: 10},
		{ID: 2, Name: "Cement stock", ValueType: storage.ValueFloat, Default: storage.MetricValue{Float: floatPtr(0)}, Active: true, Sequence: 5,
			Scope: storage.Scope{BranchID: branchB}},
		{ID: 3, Name: "Pump hours", ValueType: storage.ValueFloat, Default: storage.MetricValue{Float: floatPtr(0)}, Active: true, Sequence: 1,
			Scope: storage.Scope{BranchID: branchC}},
	}
	header := storage.Report{Scope: storage.Scope{CompanyID: companyA, BranchID: branchB}}

	lines, sections, err := ComposeLines(header, templates, nil)
	require.NoError(t, err)
	assert.Empty(t, sections)
	require.Len(t, lines, 2)

	// ordered by sequence
	assert.Equal(t, "Cement stock", lines[0].Name)
	assert.Equal(t, "Trucks dispatched", lines[1].Name)
	assert.Equal(t, int64(0), *lines[1].Value.Int)
	assert.Nil(t, lines[1].Value.Float)
}

func TestApplicableTemplates_InactiveAndTieBreak(t *testing.T) {
	templates := []storage.SectionTemplate{
		{ID: 9, Name: "Safety", Active: true, Sequence: 1},
		{ID: 4, Name: "Quality", Active: true, Sequence: 1},
		{ID: 5, Name: "Old", Active: false},
		{ID: 6, Name: "Other company", Active: true, Scope: storage.Scope{CompanyID: 99}},
	}

	got := ApplicableSectionTemplates(storage.Scope{CompanyID: 1, BranchID: 1}, templates)
	require.Len(t, got, 2)
	assert.Equal(t, int64(4), got[0].ID)
	assert.Equal(t, int64(9), got[1].ID)
}

func TestComposeLines_ScopeCopiedToEveryChild(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pick := func() int64 { return int64(rng.Intn(4)) } // 0 means unset

	for i := 0; i < 500; i++ {
		header := storage.Report{Scope: storage.Scope{CompanyID: int64(rng.Intn(3) + 1), BranchID: pick(), DepartmentID: pick()}}

		var metrics []storage.MetricTemplate
		var sections []storage.SectionTemplate
		for j := 0; j < 8; j++ {
			scope := storage.Scope{CompanyID: pick(), BranchID: pick(), DepartmentID: pick()}
			metrics = append(metrics, storage.MetricTemplate{
				ID: int64(j + 1), Name: "m", ValueType: storage.ValueText,
				Default: storage.MetricValue{Text: strPtr("")}, Active: rng.Intn(5) > 0, Scope: scope,
			})
			sections = append(sections, storage.SectionTemplate{
				ID: int64(j + 1), Name: "s", Active: rng.Intn(5) > 0, Scope: scope,
			})
		}

		lines, secs, err := ComposeLines(header, metrics, sections)
		require.NoError(t, err)

		for _, l := range lines {
			require.Equal(t, header.Scope, l.Scope)
			tmpl := metrics[l.TemplateID-1]
			require.True(t, tmpl.Active)
			require.True(t, tmpl.Scope.Covers(header.Scope))
		}
		for _, s := range secs {
			require.Equal(t, header.Scope, s.Scope)
			require.Equal(t, "s", s.Title)
		}

		applicable := 0
		for _, m := range metrics {
			if m.Active && m.Scope.Covers(header.Scope) {
				applicable++
			}
		}
		require.Len(t, lines, applicable)
	}
}

func TestValidateMetricTemplate(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    storage.MetricTemplate
		wantErr bool
	}{
		{"int ok", storage.MetricTemplate{ValueType: storage.ValueInt, Default: storage.MetricValue{Int: intPtr(3)}}, false},
		{"type unset", storage.MetricTemplate{Default: storage.MetricValue{Int: intPtr(3)}}, true},
		{"default missing", storage.MetricTemplate{ValueType: storage.ValueFloat}, true},
		{"default of other type", storage.MetricTemplate{ValueType: storage.ValueFloat, Default: storage.MetricValue{Int: intPtr(1)}}, true},
		{"selection ok", storage.MetricTemplate{ValueType: storage.ValueSelection, SelectionOptions: []string{"ok", "bad"},
			Default: storage.MetricValue{Selection: strPtr("ok")}}, false},
		{"selection outside options", storage.MetricTemplate{ValueType: storage.ValueSelection, SelectionOptions: []string{"ok"},
			Default: storage.MetricValue{Selection: strPtr("maybe")}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMetricTemplate(tt.tmpl)
			if tt.wantErr {
				assert.True(t, errors.Is(err, apperr.ErrValidation))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSummary(t *testing.T) {
	r := storage.Report{
		Scope:      storage.Scope{CompanyID: 1, BranchID: 1},
		ManagerID:  7,
		State:      storage.ReportSubmitted,
		Activities: "Poured slab at site 4",
		Complaints: []storage.Complaint{{Description: "Late truck", Severity: "high"}},
		MetricLines: []storage.MetricLine{
			{Name: "Trucks", Value: storage.MetricValue{Int: intPtr(12)}},
			{Name: "Weather", Value: storage.MetricValue{Selection: strPtr("rain")}},
		},
		Notes: "none",
	}

	got := Summary(r)
	assert.Contains(t, got, "Company: #1")
	assert.Contains(t, got, "Activities: Poured slab at site 4")
	assert.Contains(t, got, "Complaints: Late truck (high)")
	assert.Contains(t, got, "Metrics: Trucks: 12; Weather: rain")
	assert.Contains(t, got, "Notes: none")
	assert.NotContains(t, got, "Contractors:")
}
