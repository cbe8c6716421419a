package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/gomlx/graphir/graph"
	"github.com/gomlx/graphir/internal/graphfile"
	"github.com/gomlx/graphir/passes"
	"github.com/gomlx/graphir/types"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"k8s.io/klog/v2"
)

// RunOptions holds the flags of the run command.
type RunOptions struct {
	File   string
	Passes []string
	Plan   bool
}

func newRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{}
	cmd := &cobra.Command{
		Use:   "run -f <graph.yaml> [-p <pass>]...",
		Short: "Run passes on a graph and print it",
		Long: `Loads a graph from a YAML file, applies the given passes in order and prints the
resulting graph, with shapes and storage ids when the passes computed them.

With --plan the passes are reordered to satisfy their dependencies first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPasses(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.File, "file", "f", "", "YAML graph file")
	cmd.Flags().StringArrayVarP(&opts.Passes, "pass", "p", nil, "pass to run, can be repeated")
	cmd.Flags().BoolVar(&opts.Plan, "plan", false, "order the passes by their dependencies")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func runPasses(cmd *cobra.Command, rootOpts *RootOptions, opts *RunOptions) error {
	f, err := os.Open(opts.File)
	if err != nil {
		return errors.Wrapf(err, "opening graph file")
	}
	defer func() { _ = f.Close() }()
	g, err := graphfile.Load(f, rootOpts.Registry)
	if err != nil {
		return errors.WithMessagef(err, "loading %q", opts.File)
	}

	names := opts.Passes
	if opts.Plan {
		names, err = rootOpts.Manager.Plan(g, names...)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "plan: %s\n", strings.Join(names, " -> "))
	}
	klog.V(1).Infof("running passes %v on %q", names, opts.File)
	out, err := rootOpts.Manager.Run(g, names...)
	if err != nil {
		return err
	}
	ir, found, err := graph.LookupAttr[string](out, types.AttrGraphIR)
	if err != nil {
		return err
	}
	if !found {
		if out, err = passes.PrintGraphIR(out); err != nil {
			return err
		}
		if ir, err = graph.GetAttr[string](out, types.AttrGraphIR); err != nil {
			return err
		}
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), ir)
	return err
}
