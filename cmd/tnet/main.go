// Package main provides the tnet command line tool for inspecting and
// decomposing tensors stored in .tnet containers.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/born-ml/tnet/internal/config"
	"github.com/born-ml/tnet/internal/logging"
	"github.com/born-ml/tnet/internal/prodstats"
	"github.com/born-ml/tnet/internal/tensor"
)

const version = "v0.1.0-dev"

// app carries the state shared by all commands.
type app struct {
	configPath string
	showStats  bool
	cfg        config.Config
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "tnet",
		Short:         "Inspect and decompose labeled-index tensors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			l, err := cfg.Logger(stderr)
			if err != nil {
				return err
			}
			logging.SetLogger(l)
			tensor.SetParallelConfig(cfg.Parallel)
			a.cfg = cfg
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if !a.showStats {
				return nil
			}
			return printStats(cmd.OutOrStdout())
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVar(&a.showStats, "stats", false, "print engine counters when done")

	root.AddCommand(
		&cobra.Command{
			Use:   "version",
			Short: "Show version",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "tnet %s\n", version)
			},
		},
		newInspectCmd(a),
		newRandomCmd(a),
		newSVDCmd(a),
		newConfigCmd(a),
	)
	return root
}

func printStats(w io.Writer) error {
	samples, err := prodstats.Snapshot()
	if err != nil {
		return err
	}
	for _, s := range samples {
		fmt.Fprintf(w, "%s %g\n", s.Name, s.Value)
	}
	return nil
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
