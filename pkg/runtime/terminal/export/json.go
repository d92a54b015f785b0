package export

import (
	"encoding/json"
	"io"

	"github.com/de-tools/vision-audit/pkg/models/api"
)

// JSONFormatter writes the report as indented JSON. The same document
// round-trips back in as a comparison baseline.
type JSONFormatter struct{}

func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

func (f *JSONFormatter) Format(w io.Writer, report api.QualityReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
