package commands

import (
	"io"

	"github.com/de-tools/vision-audit/pkg/services/assessment"
	"github.com/de-tools/vision-audit/pkg/services/config"
)

// RegistryFactory opens the user's dataset profile registry. It is a
// factory so commands that never touch profiles do not fail when the
// profile file is absent.
type RegistryFactory func() (config.Registry, error)

// ServiceFactory builds the assessment service for one command
// invocation. persist asks for a store-backed service so runs can be
// saved and history read.
type ServiceFactory func(registry config.Registry, cfg config.AppConfig, persist bool) (assessment.Service, error)

// Deps is everything a command needs from the surrounding process.
type Deps struct {
	Registry RegistryFactory
	Services ServiceFactory
	Output   io.Writer
}
