package cli

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/gomlx/graphir/op"
	"github.com/spf13/cobra"
)

func newOpsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List the registered operators",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tINPUTS\tOUTPUTS\tATTRIBUTES\tDESCRIPTION")
			for _, name := range opts.Registry.ListNames() {
				o := opts.Registry.MustGet(name)
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", name,
					formatArity(o.NumInputs()), formatArity(o.NumOutputs()),
					strings.Join(o.AttrNames(), ","), o.Description())
			}
			return w.Flush()
		},
	}
}

func formatArity(n int) string {
	if n == op.VariableArity {
		return "var"
	}
	return strconv.Itoa(n)
}
