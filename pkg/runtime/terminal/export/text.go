package export

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/de-tools/vision-audit/pkg/models/api"
)

type TableConfig struct {
	NameWidth   int
	ScoreWidth  int
	DetailWidth int
}

func DefaultTableConfig() TableConfig {
	return TableConfig{
		NameWidth:   28,
		ScoreWidth:  10,
		DetailWidth: 58,
	}
}

// TextFormatter is the full console report: dimension table, issue list
// and recommendations.
type TextFormatter struct {
	config TableConfig
}

func NewTextFormatter() *TextFormatter {
	return &TextFormatter{config: DefaultTableConfig()}
}

func (f *TextFormatter) Format(w io.Writer, report api.QualityReport) error {
	funcMap := template.FuncMap{
		"formatRow": func(name string, score interface{}, detail string) string {
			if len(detail) > f.config.DetailWidth {
				detail = detail[:f.config.DetailWidth-3] + "..."
			}
			return fmt.Sprintf("| %-*s | %-*v | %-*s |",
				f.config.NameWidth, name,
				f.config.ScoreWidth, score,
				f.config.DetailWidth, detail)
		},
		"separator": func() string {
			return fmt.Sprintf("+%s+%s+%s+",
				strings.Repeat("-", f.config.NameWidth+2),
				strings.Repeat("-", f.config.ScoreWidth+2),
				strings.Repeat("-", f.config.DetailWidth+2))
		},
		"penaltyNote": penaltyNote,
		"inc":         func(i int) int { return i + 1 },
	}

	tmpl := `
Quality Assessment: {{.Dataset}}
Run {{.RunId}} generated at {{.GeneratedAt.Format "2006-01-02 15:04:05"}} ({{.Status}})
Overall Score: {{.OverallScore}}/100 (grade {{.Grade}})
{{if .Warnings}}
Warnings:
{{range .Warnings}}  - {{.}}
{{end}}{{end}}
{{separator}}
{{formatRow "Dimension" "Score" "Notes"}}
{{separator}}
{{range .Dimensions}}{{formatRow .Dimension (printf "%d/100" .Score) (penaltyNote .Penalties)}}
{{end}}{{separator}}

Issues ({{len .Issues}}):
{{range .Issues}}  [{{.Severity}}] {{.Dimension}}: {{.Description}}
{{end}}
Recommendations:
{{range $i, $r := .Recommendations}}  {{inc $i}}. {{$r.Action}} (priority {{printf "%.2f" $r.Priority}})
{{end}}`

	t, err := template.New("report").Funcs(funcMap).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(w, report)
}

func penaltyNote(penalties []api.PenaltyApplication) string {
	if len(penalties) == 0 {
		return ""
	}
	parts := make([]string, 0, len(penalties))
	for _, p := range penalties {
		parts = append(parts, fmt.Sprintf("%s -%.2f", p.Name, p.Amount))
	}
	return "penalties: " + strings.Join(parts, ", ")
}
