package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/de-tools/vision-audit/pkg/adapters"
	"github.com/de-tools/vision-audit/pkg/models/api"
	"github.com/de-tools/vision-audit/pkg/models/domain"
	"github.com/de-tools/vision-audit/pkg/runtime/terminal/export"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
)

type AnalyzeCmd struct {
	path          string
	profile       string
	format        string
	quick         bool
	comprehensive bool
	configPath    string
	report        string
	outPath       string
	baselinePath  string
	save          bool
	showStages    bool
	deps          Deps
}

func NewAnalyzeCmd(deps Deps) *cobra.Command {
	ac := &AnalyzeCmd{deps: deps}
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Assess the quality of an image dataset",
		RunE:  ac.run,
	}

	cmd.Flags().StringVar(&ac.path, "path", "", "Path to the dataset root (alternative to --profile)")
	cmd.Flags().StringVar(&ac.profile, "profile", "", "Registered dataset profile to assess")
	cmd.Flags().StringVar(&ac.format, "format", "auto", "Annotation format: auto, yolo, coco or voc (with --path)")
	cmd.Flags().BoolVar(&ac.quick, "quick", false, "Skip image decoding and deep annotation parsing")
	cmd.Flags().BoolVar(&ac.comprehensive, "comprehensive", false, "Force a full analysis regardless of configuration")
	cmd.Flags().StringVar(&ac.configPath, "config", "", "Path to the scoring configuration file")
	cmd.Flags().StringVar(&ac.report, "report", "text", "Report format: text, json, csv or summary")
	cmd.Flags().StringVar(&ac.outPath, "out", "", "Write the report to a file instead of stdout")
	cmd.Flags().StringVar(&ac.baselinePath, "baseline", "", "Compare against a previously exported JSON report")
	cmd.Flags().BoolVar(&ac.save, "save", false, "Persist the run for later comparison and trend analysis")
	cmd.Flags().BoolVar(&ac.showStages, "stages", false, "Print the per-stage run breakdown")

	return cmd
}

func (ac *AnalyzeCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	if (ac.path == "") == (ac.profile == "") {
		return errors.New("exactly one of --path or --profile is required")
	}
	if ac.quick && ac.comprehensive {
		return errors.New("--quick and --comprehensive are mutually exclusive")
	}

	cfg, err := config.Load(ac.configPath)
	if err != nil {
		return err
	}

	registry, dataset, err := ac.resolveDataset()
	if err != nil {
		return err
	}

	svc, err := ac.deps.Services(registry, cfg, ac.save)
	if err != nil {
		return err
	}

	opts := assessment.RunOptions{Save: ac.save}
	if ac.quick || ac.comprehensive {
		quick := ac.quick
		opts.Quick = &quick
	}

	result, run, err := svc.Assess(ctx, dataset, opts)
	if err != nil {
		return fmt.Errorf("assessment of %s failed: %w", dataset, err)
	}

	report := adapters.MapQualityResultDomainToApi(*result)
	formatter, err := export.ForName(ac.report)
	if err != nil {
		return err
	}

	out := ac.deps.Output
	if ac.outPath != "" {
		file, err := os.Create(ac.outPath)
		if err != nil {
			return fmt.Errorf("create report file: %w", err)
		}
		defer file.Close()
		out = file
	}
	if err := formatter.Format(out, report); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if ac.showStages {
		reporter := export.NewRunReporter(ac.deps.Output)
		if err := reporter.Handle(adapters.MapPipelineRunDomainToApi(run)); err != nil {
			return err
		}
	}

	if ac.baselinePath != "" {
		baseline, err := readBaseline(ac.baselinePath)
		if err != nil {
			return err
		}
		comparison := svc.CompareResults(baseline, *result)
		return writeComparison(ac.deps.Output, adapters.MapComparisonDomainToApi(comparison))
	}
	return nil
}

// resolveDataset turns the flags into a registry and the profile name to
// assess under it. An ad-hoc --path dataset gets a single-entry registry
// named after its directory.
func (ac *AnalyzeCmd) resolveDataset() (config.Registry, string, error) {
	if ac.path != "" {
		format, err := domain.ParseAnnotationFormat(ac.format)
		if err != nil {
			return nil, "", err
		}
		ds := domain.Dataset{
			Name:   filepath.Base(filepath.Clean(ac.path)),
			Path:   ac.path,
			Format: format,
		}
		return config.NewStaticRegistry(ds), ds.Name, nil
	}
	registry, err := ac.deps.Registry()
	if err != nil {
		return nil, "", fmt.Errorf("open profile registry: %w", err)
	}
	return registry, ac.profile, nil
}

func readBaseline(path string) (domain.QualityResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return domain.QualityResult{}, fmt.Errorf("open baseline: %w", err)
	}
	defer file.Close()

	var report api.QualityReport
	if err := json.NewDecoder(file).Decode(&report); err != nil {
		return domain.QualityResult{}, fmt.Errorf("decode baseline %s: %w", path, err)
	}
	return adapters.MapQualityReportApiToDomain(report), nil
}
