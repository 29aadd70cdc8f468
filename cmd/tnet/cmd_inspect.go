package main

import (
	"fmt"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/born-ml/tnet/internal/serialization"
)

func newInspectCmd(a *app) *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the tensors of a container",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := serialization.OpenWithOptions(args[0], serialization.ReaderOptions{
				SkipChecksumValidation: !verify,
				ValidationLevel:        serialization.ValidationStrict,
			})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			h := r.Header()
			fmt.Fprintf(out, "created %s, %d tensors, %d bytes", h.CreatedAt.Format("2006-01-02 15:04:05"), len(h.Tensors), h.DataSize)
			if r.Flags()&serialization.FlagCompressed != 0 {
				fmt.Fprint(out, ", zstd")
			}
			fmt.Fprintln(out)
			for _, k := range slices.Sorted(maps.Keys(h.Metadata)) {
				fmt.Fprintf(out, "  %s: %s\n", k, h.Metadata[k])
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tINDICES\tCOMPLEX\tNORM")
			for _, name := range r.Names() {
				meta, _ := h.Find(name)
				t, err := r.Tensor(name)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%v\t%t\t%s\n", name, meta.Indices, meta.Complex, t.NormLog())
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", true, "verify the data checksum")
	return cmd
}
