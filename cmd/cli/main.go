package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/de-tools/vision-audit/pkg/runtime/terminal"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
	"github.com/de-tools/vision-audit/pkg/store/sqlite"
	assessmentstore "github.com/de-tools/vision-audit/pkg/store/sqlite/assessment"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	profilePath := filepath.Join(home, ".visionauditcfg")
	dbPath := filepath.Join(home, ".vision-audit.db")

	cli := terminal.NewCLI(terminal.Options{
		Registry: func() (config.Registry, error) {
			return config.NewRegistry(profilePath)
		},
		Services: func(registry config.Registry, cfg config.AppConfig, persist bool) (assessment.Service, error) {
			deps := assessment.Deps{
				Registry: registry,
				Config:   cfg,
				Logger:   logger,
			}
			if persist {
				db, err := sqlite.NewDB(sqlite.Settings{DbPath: dbPath})
				if err != nil {
					return nil, fmt.Errorf("open assessment database: %w", err)
				}
				store, err := assessmentstore.NewStore(db)
				if err != nil {
					return nil, err
				}
				deps.Store = store
				deps.DB = db
			}
			return assessment.NewService(deps)
		},
		Output: os.Stdout,
	})

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
