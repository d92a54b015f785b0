package export

import (
	"fmt"
	"io"
	"text/template"

	"github.com/de-tools/vision-audit/pkg/models/api"
)

// SummaryFormatter produces the executive view: the headline numbers,
// how the issues stack up by severity, and the top remediation actions.
type SummaryFormatter struct {
	// TopRecommendations bounds the action list; the full set stays in
	// the detailed report.
	TopRecommendations int
}

func NewSummaryFormatter() *SummaryFormatter {
	return &SummaryFormatter{TopRecommendations: 3}
}

type summaryView struct {
	api.QualityReport
	SeverityCounts map[string]int
	TopActions     []api.Recommendation
	WorstDimension string
	WorstScore     int
}

func (f *SummaryFormatter) Format(w io.Writer, report api.QualityReport) error {
	view := summaryView{
		QualityReport:  report,
		SeverityCounts: map[string]int{},
		WorstScore:     101,
	}
	for _, is := range report.Issues {
		view.SeverityCounts[string(is.Severity)]++
	}
	for _, ds := range report.Dimensions {
		if ds.Score < view.WorstScore {
			view.WorstScore = ds.Score
			view.WorstDimension = ds.Dimension
		}
	}
	top := f.TopRecommendations
	if top <= 0 || top > len(report.Recommendations) {
		top = len(report.Recommendations)
	}
	view.TopActions = report.Recommendations[:top]

	tmpl := `
EXECUTIVE SUMMARY: {{.Dataset}}
Generated: {{.GeneratedAt.Format "2006-01-02 15:04"}} (run {{.RunId}})

Overall: {{.OverallScore}}/100, grade {{.Grade}} ({{.Status}})
Weakest dimension: {{.WorstDimension}} at {{.WorstScore}}/100

Issues: {{len .Issues}} total ({{index .SeverityCounts "critical"}} critical, {{index .SeverityCounts "high"}} high, {{index .SeverityCounts "medium"}} medium, {{index .SeverityCounts "low"}} low)

Next actions:
{{range .TopActions}}  - {{.Action}}
{{end}}`

	t, err := template.New("summary").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(w, view)
}
