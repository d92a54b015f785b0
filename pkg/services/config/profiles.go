package config

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"gopkg.in/ini.v1"

	"github.com/de-tools/vision-audit/pkg/models/domain"
)

var ErrProfileNotFound = errors.New("profile not found")

// Registry resolves named dataset profiles from the user's profile file.
// Each section maps a profile name to a dataset root and its annotation
// format.
type Registry interface {
	GetProfiles(ctx context.Context) ([]string, error)
	GetDataset(ctx context.Context, profile string) (domain.Dataset, error)
}

type cfgRegistry struct {
	cfg *ini.File
}

func NewRegistry(path string) (Registry, error) {
	cfg, err := ini.Load(path)
	if err != nil {
		return nil, err
	}
	return &cfgRegistry{cfg: cfg}, nil
}

// NewStaticRegistry serves a fixed set of datasets. The CLI uses it when
// a dataset is addressed by path instead of a registered profile.
func NewStaticRegistry(datasets ...domain.Dataset) Registry {
	byName := make(map[string]domain.Dataset, len(datasets))
	for _, ds := range datasets {
		byName[ds.Name] = ds
	}
	return &staticRegistry{datasets: byName}
}

type staticRegistry struct {
	datasets map[string]domain.Dataset
}

func (sr *staticRegistry) GetProfiles(_ context.Context) ([]string, error) {
	profiles := make([]string, 0, len(sr.datasets))
	for name := range sr.datasets {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)
	return profiles, nil
}

func (sr *staticRegistry) GetDataset(_ context.Context, profile string) (domain.Dataset, error) {
	ds, ok := sr.datasets[profile]
	if !ok {
		return domain.Dataset{}, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}
	return ds, nil
}

func (cr *cfgRegistry) GetProfiles(_ context.Context) ([]string, error) {
	var profiles []string
	for _, section := range cr.cfg.Sections() {
		if len(section.Keys()) > 0 {
			profiles = append(profiles, section.Name())
		}
	}
	sort.Strings(profiles)
	return profiles, nil
}

func (cr *cfgRegistry) GetDataset(_ context.Context, profile string) (domain.Dataset, error) {
	section, err := cr.cfg.GetSection(profile)
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("%w: %s", ErrProfileNotFound, profile)
	}

	path := section.Key("path").String()
	if path == "" {
		return domain.Dataset{}, fmt.Errorf("profile %s has no path", profile)
	}
	format, err := domain.ParseAnnotationFormat(section.Key("format").String())
	if err != nil {
		return domain.Dataset{}, fmt.Errorf("profile %s: %w", profile, err)
	}

	return domain.Dataset{
		Name:      profile,
		Path:      path,
		Format:    format,
		ClassFile: section.Key("class_file").String(),
	}, nil
}
