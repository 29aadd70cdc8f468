package main

import (
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/born-ml/tnet/internal/index"
	"github.com/born-ml/tnet/internal/serialization"
	"github.com/born-ml/tnet/internal/tensor"
)

func newRandomCmd(a *app) *cobra.Command {
	var (
		name string
		seed uint64
	)
	cmd := &cobra.Command{
		Use:   "random FILE NAME:DIM[:TYPE]...",
		Short: "Write a container holding one random tensor",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			inds := make([]index.Index, 0, len(args)-1)
			for _, arg := range args[1:] {
				i, err := parseIndex(arg)
				if err != nil {
					return err
				}
				inds = append(inds, i)
			}
			t, err := tensor.New(inds...)
			if err != nil {
				return err
			}
			if err := t.Randomize(rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))); err != nil {
				return err
			}
			return writeContainer(a, args[0], map[string]*tensor.Tensor{name: t}, map[string]string{
				"generator": "random",
				"seed":      strconv.FormatUint(seed, 10),
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "psi", "tensor name")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed")
	return cmd
}

// parseIndex parses NAME:DIM[:TYPE] with TYPE one of link or site.
func parseIndex(s string) (index.Index, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 || parts[0] == "" {
		return index.Index{}, errors.Errorf("index %q: want NAME:DIM[:TYPE]", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 1 {
		return index.Index{}, errors.Errorf("index %q: bad dimension", s)
	}
	typ := index.Link
	if len(parts) == 3 {
		switch strings.ToLower(parts[2]) {
		case "link":
		case "site":
			typ = index.Site
		default:
			return index.Index{}, errors.Errorf("index %q: unknown type %q", s, parts[2])
		}
	}
	return index.New(parts[0], m, typ), nil
}

func writeContainer(a *app, path string, tensors map[string]*tensor.Tensor, metadata map[string]string) error {
	w, err := serialization.Create(path, serialization.WriterOptions{Compress: a.cfg.Compress})
	if err != nil {
		return err
	}
	if err := w.WriteTensors(tensors, metadata); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}
