// Package cli implements the graphir command line: listing the registered operators and running passes on
// graphs loaded from YAML files.
package cli

import (
	"flag"
	"strconv"

	"github.com/gomlx/graphir/op"
	"github.com/gomlx/graphir/pass"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	_ "github.com/gomlx/graphir/ops"
	_ "github.com/gomlx/graphir/passes"
)

// RootOptions holds the global flags and the registries the commands work on.
type RootOptions struct {
	Verbosity int

	Registry *op.Registry
	Manager  *pass.Manager
}

// NewRootCommand creates the graphir command, working on the default operator registry and pass manager.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{Registry: op.Default(), Manager: pass.Default()})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	klogFlags := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(klogFlags)

	cmd := &cobra.Command{
		Use:           "graphir",
		Short:         "Inspect operators and run passes on computation graphs",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return klogFlags.Set("v", strconv.Itoa(opts.Verbosity))
		},
	}
	cmd.PersistentFlags().IntVarP(&opts.Verbosity, "verbosity", "v", 0, "log verbosity (klog -v)")

	cmd.AddCommand(newOpsCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}
