package commands

import (
	"errors"
	"fmt"
	"io"
	"text/template"

	"github.com/spf13/cobra"

	"github.com/de-tools/vision-audit/pkg/adapters"
	"github.com/de-tools/vision-audit/pkg/models/api"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
	"github.com/de-tools/vision-audit/pkg/store/client"
)

type CompareCmd struct {
	profile      string
	against      string
	baselinePath string
	threshold    float64
	configPath   string
	serverURL    string
	deps         Deps
}

func NewCompareCmd(deps Deps) *cobra.Command {
	cc := &CompareCmd{deps: deps}
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare a dataset's latest assessment against a baseline",
		RunE:  cc.run,
	}

	cmd.Flags().StringVar(&cc.profile, "profile", "", "Registered dataset profile to compare")
	cmd.Flags().StringVar(&cc.against, "against", "", "Baseline run id (defaults to the previous stored run)")
	cmd.Flags().StringVar(&cc.baselinePath, "baseline", "", "JSON report to use as the baseline; runs a fresh assessment to compare")
	cmd.Flags().Float64Var(&cc.threshold, "threshold", 0, "Regression threshold in score points (0 keeps the configured value)")
	cmd.Flags().StringVar(&cc.configPath, "config", "", "Path to the scoring configuration file")
	cmd.Flags().StringVar(&cc.serverURL, "server", "", "Compare via a running vision-audit server instead of the local store")

	_ = cmd.MarkFlagRequired("profile")

	return cmd
}

func (cc *CompareCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if cc.serverURL != "" {
		if cc.baselinePath != "" {
			return errors.New("--baseline cannot be combined with --server")
		}
		cl, err := client.NewClient(cc.serverURL)
		if err != nil {
			return err
		}
		report, err := cl.Comparison(ctx, cc.profile, cc.against)
		if err != nil {
			return fmt.Errorf("comparison via %s failed: %w", cc.serverURL, err)
		}
		return writeComparison(cc.deps.Output, *report)
	}

	cfg, err := config.Load(cc.configPath)
	if err != nil {
		return err
	}
	if cc.threshold > 0 {
		cfg.Comparison.RegressionThreshold = cc.threshold
	}

	registry, err := cc.deps.Registry()
	if err != nil {
		return fmt.Errorf("open profile registry: %w", err)
	}

	// A file baseline needs a fresh run to compare against; a stored
	// baseline needs the persistence layer instead.
	if cc.baselinePath != "" {
		svc, err := cc.deps.Services(registry, cfg, false)
		if err != nil {
			return err
		}
		baseline, err := readBaseline(cc.baselinePath)
		if err != nil {
			return err
		}
		current, _, err := svc.Assess(ctx, cc.profile, assessment.RunOptions{})
		if err != nil {
			return fmt.Errorf("assessment of %s failed: %w", cc.profile, err)
		}
		comparison := svc.CompareResults(baseline, *current)
		return writeComparison(cc.deps.Output, adapters.MapComparisonDomainToApi(comparison))
	}

	svc, err := cc.deps.Services(registry, cfg, true)
	if err != nil {
		return err
	}
	comparison, err := svc.Compare(ctx, cc.profile, cc.against)
	if err != nil {
		return fmt.Errorf("comparison for %s failed: %w", cc.profile, err)
	}
	return writeComparison(cc.deps.Output, adapters.MapComparisonDomainToApi(comparison))
}

func writeComparison(w io.Writer, report api.ComparisonReport) error {
	tmpl := `
Comparison: {{.Dataset}}
Baseline run {{.BaselineRunId}} scored {{.BaselineScore}}, current run {{.CurrentRunId}} scored {{.CurrentScore}}
Overall delta: {{printf "%+d" .OverallDelta}}{{if .OverallRegression}}  ** REGRESSION (threshold {{.Threshold}}) **{{end}}

{{range .Dimensions}}  {{printf "%-28s" .Dimension}} {{printf "%6.1f" .Baseline}} -> {{printf "%6.1f" .Current}} ({{printf "%+.1f" .Delta}}){{if .Regression}}  regression{{end}}
{{end}}`

	t, err := template.New("comparison").Parse(tmpl)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}
	return t.Execute(w, report)
}
