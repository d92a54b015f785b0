package export

import (
	"fmt"
	"io"
	"text/template"

	"github.com/de-tools/vision-audit/pkg/models/api"
)

// RunReporter prints the stage-by-stage breakdown of one pipeline run.
// The analyze command uses it alongside the report formatter when the
// caller asks to see how the run went, not just what it concluded.
type RunReporter struct {
	writer io.Writer
}

func NewRunReporter(writer io.Writer) *RunReporter {
	return &RunReporter{writer: writer}
}

func (r *RunReporter) Handle(run api.PipelineRun) error {
	tmpl := `
Pipeline run {{.Id}} ({{.Mode}}) finished {{.Status}}
{{range .Stages}}  {{printf "%-20s" .Name}} {{printf "%-16s" .Status}} {{.DurationMs}}ms{{if .Error}}  {{.Error}}{{end}}
{{end}}`

	t, err := template.New("run").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(r.writer, run)
}
