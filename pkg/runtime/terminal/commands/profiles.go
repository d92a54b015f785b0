package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

type ProfilesCmd struct {
	deps Deps
}

func NewProfilesCmd(deps Deps) *cobra.Command {
	pc := &ProfilesCmd{deps: deps}
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List registered dataset profiles",
		RunE:  pc.run,
	}
	return cmd
}

func (pc *ProfilesCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	registry, err := pc.deps.Registry()
	if err != nil {
		return fmt.Errorf("open profile registry: %w", err)
	}

	profiles, err := registry.GetProfiles(ctx)
	if err != nil {
		return err
	}
	if len(profiles) == 0 {
		_, err := fmt.Fprintln(pc.deps.Output, "no dataset profiles registered")
		return err
	}

	for _, profile := range profiles {
		ds, err := registry.GetDataset(ctx, profile)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(pc.deps.Output, "%-24s %-6s %s\n", ds.Name, ds.Format, ds.Path); err != nil {
			return err
		}
	}
	return nil
}
