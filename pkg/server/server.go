package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/de-tools/vision-audit/pkg/handlers/quality"
	visionauditmiddleware "github.com/de-tools/vision-audit/pkg/server/middleware"
	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/workflow"
)

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Assessment assessment.Service
	Workflows  workflow.Controller
	Logger     zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

func ConfigureRouter(config Config) *chi.Mux {
	qualityHandler := quality.NewHandler(config.Dependencies.Assessment, config.Dependencies.Workflows)
	logger := config.Dependencies.Logger

	router := chi.NewRouter()
	router.Use(visionauditmiddleware.Logger(&logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/datasets", qualityHandler.ListDatasets)
		r.Route("/datasets/{profile}", func(r chi.Router) {
			r.Post("/assessments", qualityHandler.RunAssessment)
			r.Get("/assessments", qualityHandler.ListAssessments)
			r.Get("/assessments/latest", qualityHandler.LatestAssessment)
			r.Get("/comparison", qualityHandler.GetComparison)
			r.Get("/trend", qualityHandler.GetTrend)
			r.Post("/workflows/start", qualityHandler.StartWorkflow)
			r.Post("/workflows/stop", qualityHandler.StopWorkflow)
			r.Get("/workflows/status", qualityHandler.WorkflowStatus)
		})
	})
	router.Handle("/metrics", promhttp.Handler())

	return router
}

func NewWebAPI(config Config) *WebAPI {
	router := ConfigureRouter(config)
	logger := config.Dependencies.Logger

	shutdownTimeout := config.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &WebAPI{
		router: router,
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: router,
		},
		shutdownTimeout: shutdownTimeout,
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}
