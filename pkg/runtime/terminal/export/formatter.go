package export

import (
	"fmt"
	"io"

	"github.com/de-tools/vision-audit/pkg/models/api"
)

// Formatter renders one quality report to a writer. The caller picks the
// implementation; nothing inside the core branches on output format.
type Formatter interface {
	Format(w io.Writer, report api.QualityReport) error
}

// ForName resolves a formatter by the name used on the command line.
func ForName(name string) (Formatter, error) {
	switch name {
	case "", "text":
		return NewTextFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "csv":
		return NewCSVFormatter(), nil
	case "summary":
		return NewSummaryFormatter(), nil
	}
	return nil, fmt.Errorf("unknown report format %q, expected text, json, csv or summary", name)
}
