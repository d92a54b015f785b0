package main

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/de-tools/vision-audit/pkg/server"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
	"github.com/de-tools/vision-audit/pkg/services/workflow"
	"github.com/de-tools/vision-audit/pkg/store/sqlite"
	assessmentstore "github.com/de-tools/vision-audit/pkg/store/sqlite/assessment"
	workflowstore "github.com/de-tools/vision-audit/pkg/store/sqlite/workflow"
)

var (
	cfgPath      string
	profilesPath string
	dbPath       string
	interval     time.Duration
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Vision Audit",
		RunE:  runServer,
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "",
		"Path to the scoring configuration file (defaults apply when omitted)")
	rootCmd.Flags().StringVarP(&profilesPath, "profiles", "p", filepath.Join(home, ".visionauditcfg"),
		"Path to the dataset profile registry")
	rootCmd.Flags().StringVar(&dbPath, "db", "vision-audit.db",
		"Path to the assessment database")
	rootCmd.Flags().DurationVar(&interval, "interval", time.Hour,
		"Re-assessment interval for started workflows")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	registry, err := config.NewRegistry(profilesPath)
	if err != nil {
		return fmt.Errorf("failed to create profile registry: %w", err)
	}

	appCfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	db, err := sqlite.NewDB(sqlite.Settings{DbPath: dbPath})
	if err != nil {
		return fmt.Errorf("failed to open assessment database: %w", err)
	}
	defer db.Close()

	store, err := assessmentstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create assessment store: %w", err)
	}
	wfStore, err := workflowstore.NewStore(db)
	if err != nil {
		return fmt.Errorf("failed to create workflow store: %w", err)
	}

	svc, err := assessment.NewService(assessment.Deps{
		Registry: registry,
		Store:    store,
		DB:       db,
		Config:   appCfg,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	workflowCtrl := workflow.NewController(svc, registry, wfStore, interval)
	if err := workflowCtrl.Init(ctx); err != nil {
		return fmt.Errorf("failed to resume workflows: %w", err)
	}

	logger.Info().Msgf("Profile registry found at `%s` successfully loaded.", profilesPath)
	profiles, _ := registry.GetProfiles(ctx)
	for _, profile := range profiles {
		ds, err := registry.GetDataset(ctx, profile)
		if err != nil {
			logger.Warn().Err(err).Str("profile", profile).Msg("skipping malformed profile")
			continue
		}
		logger.Info().Msgf("Name: `%s`, Format: `%s`, Path: `%s`", ds.Name, ds.Format, ds.Path)
	}

	host := os.Getenv("SERVER_HOST")
	port := os.Getenv("SERVER_PORT")
	if host == "" {
		host = "127.0.0.1"
	}
	if port == "" {
		port = "8080"
	}

	api := server.NewWebAPI(server.Config{
		Addr: net.JoinHostPort(host, port),
		Dependencies: server.Dependencies{
			Assessment: svc,
			Workflows:  workflowCtrl,
			Logger:     logger,
		},
	})
	return api.Start()
}
