package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/born-ml/tnet/internal/decomp"
	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/serialization"
	"github.com/born-ml/tnet/internal/tensor"
)

func newSVDCmd(a *app) *cobra.Command {
	var (
		name   string
		left   []string
		out    string
		bond   int
		maxDim int
		cutoff float64
	)
	cmd := &cobra.Command{
		Use:   "svd FILE",
		Short: "Factor a stored tensor into U·D·V",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := serialization.Open(args[0])
			if err != nil {
				return err
			}
			t, err := r.Tensor(name)
			if err != nil {
				return err
			}
			inds, err := selectIndices(t, left)
			if err != nil {
				return err
			}

			opts := a.cfg.Decomp
			if cmd.Flags().Changed("maxdim") {
				opts.MaxDim = maxDim
			}
			if cmd.Flags().Changed("cutoff") {
				opts.Cutoff = cutoff
			}
			if err := opts.Validate(); err != nil {
				return err
			}
			w := decomp.NewWorker(max(a.cfg.Bonds, bond), opts)
			f, err := w.SVD(bond, t, inds)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "kept %d, truncation error %.6g\n", len(f.Eigs), f.TruncErr)
			if out == "" {
				return nil
			}
			d, err := f.D.Dense()
			if err != nil {
				return err
			}
			return writeContainer(a, out, map[string]*tensor.Tensor{"U": f.U, "D": d, "V": f.V}, map[string]string{
				"source":    name,
				"trunc_err": strconv.FormatFloat(f.TruncErr, 'g', -1, 64),
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "psi", "tensor to factor")
	cmd.Flags().StringSliceVar(&left, "left", nil, "names of the indices that go to U")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write U, D and V to this container")
	cmd.Flags().IntVar(&bond, "bond", 0, "bond to record the result at")
	cmd.Flags().IntVar(&maxDim, "maxdim", 0, "override decomp.max_dim")
	cmd.Flags().Float64Var(&cutoff, "cutoff", 0, "override decomp.cutoff")
	_ = cmd.MarkFlagRequired("left")
	return cmd
}

// selectIndices resolves index names, primes included, against t.
func selectIndices(t *tensor.Tensor, names []string) ([]index.Index, error) {
	out := make([]index.Index, 0, len(names))
	for _, n := range names {
		var found bool
		for _, i := range t.Indices().Indices() {
			if i.Name() == strings.TrimSpace(n) {
				out = append(out, i)
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Errorf("no index named %q in %s", n, t.Indices())
		}
	}
	return out, nil
}
