package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/de-tools/vision-audit/pkg/models/api"
)

// CSVFormatter flattens the report into one table. The record column
// tags the row kind so spreadsheet filters can split the sections.
type CSVFormatter struct{}

func NewCSVFormatter() *CSVFormatter {
	return &CSVFormatter{}
}

func (f *CSVFormatter) Format(w io.Writer, report api.QualityReport) error {
	cw := csv.NewWriter(w)

	rows := [][]string{
		{"record", "name", "severity", "value", "detail"},
		{"summary", report.Dataset, "", fmt.Sprintf("%d", report.OverallScore), fmt.Sprintf("grade %s, %s", report.Grade, report.Status)},
	}
	for _, ds := range report.Dimensions {
		rows = append(rows, []string{"dimension", ds.Dimension, "", fmt.Sprintf("%d", ds.Score), ""})
	}
	for _, is := range report.Issues {
		rows = append(rows, []string{"issue", is.Id, string(is.Severity), fmt.Sprintf("%g", is.Observed), is.Description})
	}
	for _, rec := range report.Recommendations {
		rows = append(rows, []string{"recommendation", rec.Id, "", fmt.Sprintf("%.2f", rec.Priority), rec.Action})
	}
	for _, warning := range report.Warnings {
		rows = append(rows, []string{"warning", "", "", "", warning})
	}

	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}
