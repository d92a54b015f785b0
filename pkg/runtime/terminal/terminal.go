package terminal

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/de-tools/vision-audit/pkg/runtime/terminal/commands"
)

// CLI represents the command-line interface
type CLI struct {
	deps    commands.Deps
	rootCmd *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	Registry commands.RegistryFactory
	Services commands.ServiceFactory
	Output   io.Writer
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	cli := &CLI{
		deps: commands.Deps{
			Registry: opts.Registry,
			Services: opts.Services,
			Output:   opts.Output,
		},
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vision-audit",
		Short: "Image dataset quality assessment tool",
	}

	cmd.AddCommand(commands.NewAnalyzeCmd(cli.deps))
	cmd.AddCommand(commands.NewCompareCmd(cli.deps))
	cmd.AddCommand(commands.NewProfilesCmd(cli.deps))

	return cmd
}
