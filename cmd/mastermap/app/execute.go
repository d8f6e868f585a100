package app

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentstation/mastermap/cmd/mastermap/cmd/classify"
	"github.com/agentstation/mastermap/cmd/mastermap/cmd/clean"
	"github.com/agentstation/mastermap/cmd/mastermap/cmd/cleanup"
	"github.com/agentstation/mastermap/cmd/mastermap/cmd/list"
	"github.com/agentstation/mastermap/cmd/mastermap/cmd/reconcile"
	"github.com/agentstation/mastermap/cmd/mastermap/cmd/report"
	"github.com/agentstation/mastermap/cmd/mastermap/cmd/resolve"
	"github.com/agentstation/mastermap/internal/cmd/output"
	"github.com/agentstation/mastermap/pkg/logging"
)

// Execute runs the CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.createRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *App) createRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "mastermap",
		Short:   "Census master data reconciliation",
		Version: a.version,
		Long: `mastermap reconciles the unit identifiers and names of one census upload.

It builds an authoritative identifier/name mapping from the canonical tables
(单位基本情况_611, 调查单位基本情况_601), propagates it into every other
dataset in the namespace, and writes a report for a reviewer when issues
remain that cannot be fixed automatically. Upload a resolution document with
"mastermap resolve" and run "mastermap reconcile" again to continue.`,
		PersistentPreRunE: a.setupCommand,
		SilenceUsage:      true,
		SilenceErrors:     true,
	}

	root.AddGroup(&cobra.Group{ID: "core", Title: "Core Commands:"})
	root.AddGroup(&cobra.Group{ID: "management", Title: "Management Commands:"})

	flags := root.PersistentFlags()
	flags.StringVar(&a.config.ConfigFile, "config", "", "config file (default is $HOME/.mastermap.yaml)")
	flags.BoolP("verbose", "v", false, "verbose output (shortcut for --log-level=debug)")
	flags.BoolP("quiet", "q", false, "minimal output (shortcut for --log-level=warn)")
	flags.Bool("no-color", false, "disable colored output")
	flags.StringP("format", "o", "", "output format: table, json, yaml, wide")
	flags.String("log-level", "", "log level: trace, debug, info, warn, error (overrides -v/-q)")
	flags.StringVar(&a.config.Backend, "backend", a.config.Backend, "storage backend: s3, bolt, dir, memory")
	flags.StringVarP(&a.config.Namespace, "namespace", "n", a.config.Namespace, "blob prefix of the census upload")
	flags.StringVar(&a.config.BoltPath, "bolt-path", a.config.BoltPath, "bolt database file (bolt backend)")
	flags.StringVar(&a.config.DirRoot, "dir-root", a.config.DirRoot, "root directory (dir backend)")

	root.SetVersionTemplate(fmt.Sprintf("mastermap {{.Version}} (commit %s, built %s by %s)\n", a.commit, a.date, a.builtBy))

	a.registerCommands(root)
	return root
}

// setupCommand applies the global flags before any command runs.
func (a *App) setupCommand(cmd *cobra.Command, _ []string) error {
	format := mustGetString(cmd, "format")
	if _, err := output.ParseFormat(format); err != nil {
		return err
	}
	a.config.UpdateFromFlags(
		mustGetBool(cmd, "verbose"),
		mustGetBool(cmd, "quiet"),
		mustGetBool(cmd, "no-color"),
		format,
		mustGetString(cmd, "log-level"),
	)
	if a.config.Format == "" {
		a.config.Format = string(output.DetectFormat(""))
	}
	if err := a.config.Validate(); err != nil {
		return err
	}

	logger := NewLogger(a.config)
	a.logger = &logger
	ctx := logging.WithLogger(cmd.Context(), a.logger)
	cmd.SetContext(logging.WithOperation(ctx, cmd.Name()))
	return nil
}

func (a *App) registerCommands(root *cobra.Command) {
	root.AddCommand(reconcile.NewCommand(a))
	root.AddCommand(report.NewCommand(a))
	root.AddCommand(resolve.NewCommand(a))

	root.AddCommand(list.NewCommand(a))
	root.AddCommand(clean.NewCommand(a))
	root.AddCommand(classify.NewCommand(a))
	root.AddCommand(cleanup.NewCommand(a))
}

// ExitOnError prints err and exits with status 1.
func ExitOnError(err error) {
	if err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

// mustGetBool retrieves a persistent flag defined in this package.
func mustGetBool(cmd *cobra.Command, name string) bool {
	val, err := cmd.Flags().GetBool(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}

// mustGetString retrieves a persistent flag defined in this package.
func mustGetString(cmd *cobra.Command, name string) string {
	val, err := cmd.Flags().GetString(name)
	if err != nil {
		panic("programming error: failed to get flag " + name + ": " + err.Error())
	}
	return val
}
